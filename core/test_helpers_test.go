package core

import (
	"context"
	"sync"
	"time"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	return l.values, nil
}

type stubConfirmer struct {
	calls []ConfirmTokenInput
	token *Token
	err   error
}

func (s *stubConfirmer) ConfirmToken(_ context.Context, in ConfirmTokenInput) (*Token, error) {
	s.calls = append(s.calls, in)
	return s.token, s.err
}

type revokeCall struct {
	sessionSecret string
	userID        string
	accessToken   string
}

type stubRevoker struct {
	calls []revokeCall
	token *Token
	err   error
}

func (s *stubRevoker) RevokeTokenBySessionSecret(_ context.Context, sessionSecret string) (*Token, error) {
	s.calls = append(s.calls, revokeCall{sessionSecret: sessionSecret})
	return s.token, s.err
}

func (s *stubRevoker) RevokeTokenByUserIDAndAccessToken(_ context.Context, userID string, accessToken string) (*Token, error) {
	s.calls = append(s.calls, revokeCall{userID: userID, accessToken: accessToken})
	return s.token, s.err
}

type sentSuccess struct {
	sessionSecret string
	params        SessionSuccessCallback
}

type sentFail struct {
	sessionSecret string
	params        SessionFailCallback
}

type recordingSessionsSender struct {
	mu        sync.Mutex
	successes []sentSuccess
	fails     []sentFail
	err       error
}

func (s *recordingSessionsSender) SendSuccessCallback(_ context.Context, sessionSecret string, params SessionSuccessCallback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successes = append(s.successes, sentSuccess{sessionSecret: sessionSecret, params: params})
	return s.err
}

func (s *recordingSessionsSender) SendFailCallback(_ context.Context, sessionSecret string, params SessionFailCallback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails = append(s.fails, sentFail{sessionSecret: sessionSecret, params: params})
	return s.err
}

type recordingTokensSender struct {
	mu     sync.Mutex
	tokens []string
	err    error
}

func (s *recordingTokensSender) SendRevokeTokenCallback(_ context.Context, accessToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = append(s.tokens, accessToken)
	return s.err
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func sampleConsents() *ProviderOfferedConsents {
	return &ProviderOfferedConsents{
		Balances:     []AccountReference{{IBAN: "DE89370400440532013000", Currency: "EUR"}},
		Transactions: []AccountReference{{IBAN: "DE89370400440532013000"}},
	}
}
