package gojob

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-compliance-connector/adapters/gologger"
	"github.com/goliatone/go-compliance-connector/core"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	JobIDSessionSuccess = "connector.callback.session.success"
	JobIDSessionFail    = "connector.callback.session.fail"
	JobIDTokenRevoke    = "connector.callback.token.revoke"
)

const (
	paramSessionSecret = "session_secret"
	paramAccessToken   = "access_token"
	paramPayload       = "payload"
)

// QueuedSessionsSender enqueues session callbacks instead of posting them.
// A CallbackWorker delivers them later.
type QueuedSessionsSender struct {
	enqueuer queue.Enqueuer
}

func NewQueuedSessionsSender(enqueuer queue.Enqueuer) *QueuedSessionsSender {
	return &QueuedSessionsSender{enqueuer: enqueuer}
}

func (s *QueuedSessionsSender) SendSuccessCallback(ctx context.Context, sessionSecret string, params core.SessionSuccessCallback) error {
	if s == nil || s.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	msg, err := newSessionMessage(JobIDSessionSuccess, sessionSecret, params)
	if err != nil {
		return err
	}
	return s.enqueuer.Enqueue(ctx, msg)
}

func (s *QueuedSessionsSender) SendFailCallback(ctx context.Context, sessionSecret string, params core.SessionFailCallback) error {
	if s == nil || s.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	msg, err := newSessionMessage(JobIDSessionFail, sessionSecret, params)
	if err != nil {
		return err
	}
	return s.enqueuer.Enqueue(ctx, msg)
}

type QueuedTokensSender struct {
	enqueuer queue.Enqueuer
}

func NewQueuedTokensSender(enqueuer queue.Enqueuer) *QueuedTokensSender {
	return &QueuedTokensSender{enqueuer: enqueuer}
}

func (s *QueuedTokensSender) SendRevokeTokenCallback(ctx context.Context, accessToken string) error {
	if s == nil || s.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if strings.TrimSpace(accessToken) == "" {
		return fmt.Errorf("gojob: access token is required")
	}
	return s.enqueuer.Enqueue(ctx, &job.ExecutionMessage{
		JobID:      JobIDTokenRevoke,
		ScriptPath: JobIDTokenRevoke,
		Parameters: map[string]any{paramAccessToken: accessToken},
	})
}

func newSessionMessage(jobID string, sessionSecret string, params any) (*job.ExecutionMessage, error) {
	if sessionSecret == "" {
		return nil, fmt.Errorf("gojob: session secret is required")
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("gojob: encode %s payload: %w", jobID, err)
	}
	return &job.ExecutionMessage{
		JobID:      jobID,
		ScriptPath: jobID,
		Parameters: map[string]any{
			paramSessionSecret: sessionSecret,
			paramPayload:       string(payload),
		},
	}, nil
}

// CallbackWorker drains queued callbacks into the HTTP senders. A failed
// delivery is dead-lettered and never requeued.
type CallbackWorker struct {
	dequeuer queue.Dequeuer
	sessions core.SessionsCallbackSender
	tokens   core.TokensCallbackSender
	hook     worker.Hook
	logger   glog.Logger
	clock    func() time.Time
}

type WorkerOption func(*CallbackWorker)

func WithWorkerHook(hook worker.Hook) WorkerOption {
	return func(w *CallbackWorker) {
		w.hook = hook
	}
}

func WithWorkerLogger(provider glog.LoggerProvider, logger glog.Logger) WorkerOption {
	return func(w *CallbackWorker) {
		w.logger = gologger.ResolveComponent("callback.worker", provider, logger)
	}
}

func WithWorkerClock(clock func() time.Time) WorkerOption {
	return func(w *CallbackWorker) {
		if clock != nil {
			w.clock = clock
		}
	}
}

func NewCallbackWorker(
	dequeuer queue.Dequeuer,
	sessions core.SessionsCallbackSender,
	tokens core.TokensCallbackSender,
	opts ...WorkerOption,
) (*CallbackWorker, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	w := &CallbackWorker{
		dequeuer: dequeuer,
		sessions: sessions,
		tokens:   tokens,
		logger:   gologger.ResolveComponent("callback.worker", nil, nil),
		clock:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// ProcessNext dequeues and delivers a single callback. It returns the
// delivery error after the message has been dead-lettered.
func (w *CallbackWorker) ProcessNext(ctx context.Context) error {
	if w == nil || w.dequeuer == nil {
		return fmt.Errorf("gojob: callback worker is not configured")
	}
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	if delivery == nil {
		return nil
	}

	msg := delivery.Message()
	startedAt := w.clock()
	event := worker.Event{Message: msg, Delivery: delivery, Attempt: 1, StartedAt: startedAt}
	if w.hook != nil {
		w.hook.OnStart(ctx, event)
	}

	deliverErr := w.deliver(ctx, msg)
	event.Duration = w.clock().Sub(startedAt)
	if deliverErr == nil {
		if err := delivery.Ack(ctx); err != nil {
			return fmt.Errorf("gojob: ack %s: %w", jobID(msg), err)
		}
		if w.hook != nil {
			w.hook.OnSuccess(ctx, event)
		}
		w.logger.Debug("callback delivered", "job_id", jobID(msg))
		return nil
	}

	event.Err = deliverErr
	if w.hook != nil {
		w.hook.OnFailure(ctx, event)
	}
	w.logger.Error("callback dead-lettered", "job_id", jobID(msg), "error", deliverErr)
	if err := delivery.Nack(ctx, queue.NackOptions{
		Requeue:    false,
		DeadLetter: true,
		Reason:     deliverErr.Error(),
	}); err != nil {
		return fmt.Errorf("gojob: nack %s: %w", jobID(msg), err)
	}
	return deliverErr
}

func (w *CallbackWorker) deliver(ctx context.Context, msg *job.ExecutionMessage) error {
	if msg == nil {
		return fmt.Errorf("gojob: delivery has no message")
	}
	switch strings.TrimSpace(msg.JobID) {
	case JobIDSessionSuccess:
		if w.sessions == nil {
			return fmt.Errorf("gojob: sessions sender is not configured")
		}
		var params core.SessionSuccessCallback
		secret, err := decodeSessionMessage(msg, &params)
		if err != nil {
			return err
		}
		return w.sessions.SendSuccessCallback(ctx, secret, params)
	case JobIDSessionFail:
		if w.sessions == nil {
			return fmt.Errorf("gojob: sessions sender is not configured")
		}
		var params core.SessionFailCallback
		secret, err := decodeSessionMessage(msg, &params)
		if err != nil {
			return err
		}
		return w.sessions.SendFailCallback(ctx, secret, params)
	case JobIDTokenRevoke:
		if w.tokens == nil {
			return fmt.Errorf("gojob: tokens sender is not configured")
		}
		accessToken, _ := msg.Parameters[paramAccessToken].(string)
		if strings.TrimSpace(accessToken) == "" {
			return fmt.Errorf("gojob: %s message has no access token", JobIDTokenRevoke)
		}
		return w.tokens.SendRevokeTokenCallback(ctx, accessToken)
	default:
		return fmt.Errorf("gojob: unsupported job id %q", msg.JobID)
	}
}

func decodeSessionMessage(msg *job.ExecutionMessage, target any) (string, error) {
	secret, _ := msg.Parameters[paramSessionSecret].(string)
	if secret == "" {
		return "", fmt.Errorf("gojob: %s message has no session secret", msg.JobID)
	}
	var raw []byte
	switch payload := msg.Parameters[paramPayload].(type) {
	case string:
		raw = []byte(payload)
	case []byte:
		raw = payload
	default:
		return "", fmt.Errorf("gojob: %s message has no payload", msg.JobID)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return "", fmt.Errorf("gojob: decode %s payload: %w", msg.JobID, err)
	}
	return secret, nil
}

func jobID(msg *job.ExecutionMessage) string {
	if msg == nil {
		return ""
	}
	return msg.JobID
}

var (
	_ core.SessionsCallbackSender = (*QueuedSessionsSender)(nil)
	_ core.TokensCallbackSender   = (*QueuedTokensSender)(nil)
)
