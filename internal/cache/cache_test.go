package cache

import (
	"bytes"
	"testing"
	"time"
)

func TestVerdictKey_DistinctInputs(t *testing.T) {
	base := VerdictKey("hash-a", "ind_as", "rule-1", "prompt")

	variants := []string{
		VerdictKey("hash-b", "ind_as", "rule-1", "prompt"),
		VerdictKey("hash-a", "sebi", "rule-1", "prompt"),
		VerdictKey("hash-a", "ind_as", "rule-2", "prompt"),
		VerdictKey("hash-a", "ind_as", "rule-1", "prompt2"),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collides with base key", i)
		}
	}

	if again := VerdictKey("hash-a", "ind_as", "rule-1", "prompt"); again != base {
		t.Error("key not deterministic for identical inputs")
	}
}

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("expected miss for unknown key")
	}

	if err := c.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, found := c.Get("k")
	if !found || !bytes.Equal(val, []byte("v")) {
		t.Errorf("expected hit with value v, got %q found=%v", val, found)
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("expected miss after delete")
	}
}

func TestDiskCache_SetGetExpiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Minute)

	if err := c.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, found := c.Get("k")
	if !found || !bytes.Equal(val, []byte("v")) {
		t.Errorf("expected hit, got %q found=%v", val, found)
	}

	// Entry with an already-elapsed TTL must read as a miss
	if err := c.Set("expired", []byte("v"), -time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, found := c.Get("expired"); found {
		t.Error("expected expired entry to miss")
	}
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	dir := t.TempDir()
	c := NewLayeredCache(time.Minute, dir, time.Minute)

	// Write through both layers, then clear memory only by building a fresh
	// layered cache over the same disk dir
	if err := c.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	fresh := NewLayeredCache(time.Minute, dir, time.Minute)
	val, found := fresh.Get("k")
	if !found || !bytes.Equal(val, []byte("v")) {
		t.Fatalf("expected disk hit through fresh layered cache, found=%v", found)
	}

	// After promotion the memory layer answers directly
	if _, found := fresh.memory.Get("k"); !found {
		t.Error("expected promotion into memory layer")
	}
}

func TestNew_BackendSelection(t *testing.T) {
	tests := []struct {
		backend string
		wantErr bool
	}{
		{"memory", false},
		{"disk", false},
		{"layered", false},
		{"", false},
		{"memcached", true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := configFor(tt.backend, t.TempDir())
			c, err := New(cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error for unknown backend")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if c == nil {
				t.Fatal("expected non-nil cache")
			}
		})
	}
}

func TestNew_DisabledReturnsNil(t *testing.T) {
	cfg := configFor("memory", "")
	cfg.Enabled = false
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c != nil {
		t.Error("expected nil cache when disabled")
	}
}
