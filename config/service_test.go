package config_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/xraph/queuectl"
	"github.com/xraph/queuectl/config"
	"github.com/xraph/queuectl/store/memory"
)

func newService(t *testing.T) (*config.Service, *memory.Store) {
	t.Helper()
	s := memory.New()
	svc := config.NewService(s, nil)
	if err := svc.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return svc, s
}

func TestService_InitSeedsDefaults(t *testing.T) {
	svc, _ := newService(t)

	got, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	for k, want := range config.Defaults() {
		if got[k] != want {
			t.Errorf("%s = %q, want %q", k, got[k], want)
		}
	}
	if len(got) != len(config.Defaults()) {
		t.Errorf("len = %d, want %d", len(got), len(config.Defaults()))
	}
}

func TestService_InitDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	svc, s := newService(t)

	if err := svc.Set(ctx, config.KeyBackoffBase, "5"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := config.NewService(s, nil).Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}

	got, _ := svc.Get(ctx)
	if got[config.KeyBackoffBase] != "5" {
		t.Errorf("backoff_base = %q, want %q after re-seed", got[config.KeyBackoffBase], "5")
	}
}

func TestService_SetUnknownKey(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	err := svc.Set(ctx, "poll_interval", "1")
	if !errors.Is(err, queuectl.ErrInvalidConfigKey) {
		t.Fatalf("err = %v, want ErrInvalidConfigKey", err)
	}
	if !strings.Contains(err.Error(), "Allowed keys: backoff_base, max_retries_default, timeout_seconds") {
		t.Errorf("error %q does not list the allowed keys", err)
	}

	got, _ := svc.Get(ctx)
	if _, ok := got["poll_interval"]; ok {
		t.Error("unknown key was persisted")
	}
}

func TestService_SetValidatesValue(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	tests := []struct {
		key, value string
		ok         bool
	}{
		{config.KeyBackoffBase, "3", true},
		{config.KeyBackoffBase, "0", false},
		{config.KeyBackoffBase, "two", false},
		{config.KeyMaxRetriesDefault, "0", true},
		{config.KeyMaxRetriesDefault, "-1", false},
		{config.KeyTimeoutSeconds, "60", true},
		{config.KeyTimeoutSeconds, "1.5", false},
		{config.KeyTimeoutSeconds, strconv.FormatInt(config.MaxTimeoutSeconds, 10), true},
		{config.KeyTimeoutSeconds, strconv.FormatInt(config.MaxTimeoutSeconds+1, 10), false},
		{config.KeyTimeoutSeconds, "10000000000", false},
	}

	for _, tt := range tests {
		err := svc.Set(ctx, tt.key, tt.value)
		if tt.ok && err != nil {
			t.Errorf("Set(%s, %s): %v", tt.key, tt.value, err)
		}
		if !tt.ok && !errors.Is(err, queuectl.ErrValidation) {
			t.Errorf("Set(%s, %s) err = %v, want ErrValidation", tt.key, tt.value, err)
		}
	}
}

func TestService_Settings(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	got, err := svc.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if got != config.DefaultSettings() {
		t.Errorf("Settings = %+v, want defaults %+v", got, config.DefaultSettings())
	}

	_ = svc.Set(ctx, config.KeyBackoffBase, "3")
	_ = svc.Set(ctx, config.KeyMaxRetriesDefault, "5")
	_ = svc.Set(ctx, config.KeyTimeoutSeconds, "45")

	got, err = svc.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	want := config.Settings{BackoffBase: 3, MaxRetriesDefault: 5, Timeout: 45 * time.Second}
	if got != want {
		t.Errorf("Settings = %+v, want %+v", got, want)
	}
}

func TestService_SettingsFallsBackOnBadValue(t *testing.T) {
	ctx := context.Background()
	svc, s := newService(t)

	// Bypass validation to simulate a hand-edited store.
	if err := s.SetConfig(ctx, config.KeyBackoffBase, "fast"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	got, err := svc.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if got.BackoffBase != 2 {
		t.Errorf("BackoffBase = %d, want default 2", got.BackoffBase)
	}
}

func TestService_SettingsTimeoutNeverWraps(t *testing.T) {
	ctx := context.Background()
	svc, s := newService(t)

	// A timeout this large overflows time.Duration; the default applies.
	if err := s.SetConfig(ctx, config.KeyTimeoutSeconds, "10000000000"); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	got, err := svc.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if got.Timeout != 20*time.Second {
		t.Errorf("Timeout = %v, want default 20s", got.Timeout)
	}

	if err := svc.Set(ctx, config.KeyTimeoutSeconds, strconv.FormatInt(config.MaxTimeoutSeconds, 10)); err != nil {
		t.Fatalf("Set(max): %v", err)
	}
	got, _ = svc.Settings(ctx)
	if got.Timeout <= 0 {
		t.Errorf("Timeout = %v, want positive", got.Timeout)
	}
}

func TestAllowedKeys_Sorted(t *testing.T) {
	got := strings.Join(config.AllowedKeys(), ",")
	if got != "backoff_base,max_retries_default,timeout_seconds" {
		t.Errorf("AllowedKeys = %s", got)
	}
}
