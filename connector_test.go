package connector

import (
	"io/fs"
	"testing"
)

func TestNewService_AppliesRuntimeConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ServiceName = "bank-connector"
	cfg.Callbacks.BaseURL = "https://callbacks.example"
	service, err := NewService(cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	resolved := service.Config()
	if resolved.ServiceName != "bank-connector" {
		t.Fatalf("expected service name bank-connector, got %q", resolved.ServiceName)
	}
	if resolved.Callbacks.BaseURL != "https://callbacks.example" {
		t.Fatalf("expected base url to survive resolution, got %q", resolved.Callbacks.BaseURL)
	}
	if resolved.Payments.SuccessStatus != "ACTC" {
		t.Fatalf("expected default payment status ACTC, got %q", resolved.Payments.SuccessStatus)
	}
}

func TestSetup_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Callbacks.BaseURL = "not a url"
	if _, err := Setup(cfg); err == nil {
		t.Fatalf("expected invalid base url to fail")
	}
}

func TestGetMigrationsFS_ContainsBothDialects(t *testing.T) {
	root := GetMigrationsFS()
	for _, pattern := range []string{"data/sql/migrations/*.up.sql", "data/sql/migrations/sqlite/*.up.sql"} {
		matches, err := fs.Glob(root, pattern)
		if err != nil {
			t.Fatalf("glob %s: %v", pattern, err)
		}
		if len(matches) == 0 {
			t.Fatalf("expected migrations for %s", pattern)
		}
	}
}
