package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCallSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	out, err := Call(context.Background(), fastRetry(), "primary", ptr("fallback"),
		func(ctx context.Context, cfg string) (string, error) {
			calls++
			return cfg, nil
		}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "primary" {
		t.Fatalf("expected primary config on first attempt, got %q", out)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestCallSwitchesToFallbackAfterFirstFailure(t *testing.T) {
	var used []string
	out, err := Call(context.Background(), fastRetry(), "primary", ptr("fallback"),
		func(ctx context.Context, cfg string) (string, error) {
			used = append(used, cfg)
			if len(used) == 1 {
				return "", errors.New("transient")
			}
			return cfg, nil
		}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "fallback" {
		t.Fatalf("expected fallback config result, got %q", out)
	}
	want := []string{"primary", "fallback"}
	if len(used) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(used))
	}
	for i := range want {
		if used[i] != want[i] {
			t.Fatalf("call %d: expected %q, got %q", i, want[i], used[i])
		}
	}
}

func TestCallMakesExactlyMaxAttempts(t *testing.T) {
	calls := 0
	_, err := Call(context.Background(), fastRetry(), "primary", ptr("fallback"),
		func(ctx context.Context, cfg string) (int, error) {
			calls++
			return 0, errors.New("always fails")
		}, nil)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", calls)
	}
}

func TestCallValidatorFailureRetries(t *testing.T) {
	calls := 0
	out, err := Call(context.Background(), fastRetry(), "m", nil,
		func(ctx context.Context, cfg string) (int, error) {
			calls++
			return calls, nil
		},
		func(v int) error {
			if v < 2 {
				return fmt.Errorf("value %d unusable", v)
			}
			return nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != 2 || calls != 2 {
		t.Fatalf("expected validator to force a second attempt, got out=%d calls=%d", out, calls)
	}
}

func TestCallBackoffDoubles(t *testing.T) {
	var sleeps []time.Duration
	opts := RetryOptions{
		MaxAttempts:    4,
		InitialBackoff: time.Second,
		Sleep:          func(_ context.Context, d time.Duration) { sleeps = append(sleeps, d) },
	}
	_, err := Call(context.Background(), opts, "m", nil,
		func(ctx context.Context, cfg string) (int, error) { return 0, errors.New("nope") }, nil)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(sleeps) != len(want) {
		t.Fatalf("expected %d sleeps, got %d", len(want), len(sleeps))
	}
	for i := range want {
		if sleeps[i] != want[i] {
			t.Fatalf("sleep %d: expected %v, got %v", i, want[i], sleeps[i])
		}
	}
}

func TestCallNoFallbackKeepsPrimary(t *testing.T) {
	var used []string
	_, err := Call(context.Background(), fastRetry(), "only", nil,
		func(ctx context.Context, cfg string) (int, error) {
			used = append(used, cfg)
			return 0, errors.New("down")
		}, nil)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	for i, cfg := range used {
		if cfg != "only" {
			t.Fatalf("attempt %d used %q, expected primary", i+1, cfg)
		}
	}
}
