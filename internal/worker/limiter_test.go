package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_AllowWithinBurst(t *testing.T) {
	l := NewLimiter(1, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("openai") {
			t.Errorf("call %d within burst should be allowed", i)
		}
	}
	if l.Allow("openai") {
		t.Error("call beyond burst should be denied")
	}
}

func TestLimiter_ProvidersIndependent(t *testing.T) {
	l := NewLimiter(1, 1)

	if !l.Allow("openai") {
		t.Error("first openai call should be allowed")
	}
	if !l.Allow("anthropic") {
		t.Error("anthropic limit should be independent of openai")
	}
}

func TestLimiter_WaitRespectsContext(t *testing.T) {
	l := NewLimiter(0.001, 1)
	l.Allow("openai") // exhaust the burst

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, "openai"); err == nil {
		t.Error("expected Wait to fail when context expires before a token frees")
	}
}

func TestLimiter_SetProviderRate(t *testing.T) {
	l := NewLimiter(1, 1)
	l.SetProviderRate("ollama", 100, 10)

	for i := 0; i < 10; i++ {
		if !l.Allow("ollama") {
			t.Errorf("custom burst of 10 should allow call %d", i)
		}
	}
}

func TestLimiter_DefaultsOnBadInput(t *testing.T) {
	l := NewLimiter(0, 0)
	if l.defaultBurst <= 0 {
		t.Error("expected positive default burst")
	}
	if l.defaultRate <= 0 {
		t.Error("expected positive default rate")
	}
}
