package cache

import (
	"testing"
	"time"
)

func TestMemorySetGet(t *testing.T) {
	m := NewMemory(true)
	m.Set("k", []byte("v"), time.Minute)

	got, ok := m.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("Get = (%q, %v), want (v, true)", got, ok)
	}
}

func TestMemoryExpiryWithSimulatedClock(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	m := NewMemoryWithClock(func() time.Time { return now })

	m.Set("k", []byte("v"), time.Second)

	if _, ok := m.Get("k"); !ok {
		t.Fatal("entry should be present before expiry")
	}

	// 1100ms later the 1s entry must read as a miss, with no eviction call.
	now = now.Add(1100 * time.Millisecond)
	if _, ok := m.Get("k"); ok {
		t.Fatal("entry should be a miss after TTL elapsed")
	}
}

func TestMemoryOverwrite(t *testing.T) {
	m := NewMemory(true)
	m.Set("k", []byte("old"), time.Minute)
	m.Set("k", []byte("new"), time.Minute)

	got, _ := m.Get("k")
	if string(got) != "new" {
		t.Errorf("Get = %q, want new (writes always overwrite)", got)
	}
}

func TestMemoryDisabled(t *testing.T) {
	m := NewMemory(false)
	m.Set("k", []byte("v"), time.Minute)
	if _, ok := m.Get("k"); ok {
		t.Error("disabled cache should always miss")
	}
}

func TestMemoryMissingKey(t *testing.T) {
	m := NewMemory(true)
	if _, ok := m.Get("absent"); ok {
		t.Error("missing key should be a miss")
	}
}

func TestEvictRemovesExpired(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	m := NewMemoryWithClock(func() time.Time { return now })

	m.Set("short", []byte("a"), time.Second)
	m.Set("long", []byte("b"), time.Hour)

	now = now.Add(2 * time.Second)
	m.evict()

	total, active := m.Stats()
	if total != 1 || active != 1 {
		t.Errorf("after evict: total=%d active=%d, want 1/1", total, active)
	}
}

type payload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestJSONRoundTrip(t *testing.T) {
	m := NewMemory(true)
	SetJSON(m, "p", payload{Name: "x", Value: 1.5}, time.Minute)

	var got payload
	if !GetJSON(m, "p", &got) {
		t.Fatal("GetJSON should hit")
	}
	if got.Name != "x" || got.Value != 1.5 {
		t.Errorf("GetJSON = %+v", got)
	}
}

func TestGetJSONCorruptEntryIsMiss(t *testing.T) {
	m := NewMemory(true)
	m.Set("p", []byte("{not json"), time.Minute)

	var got payload
	if GetJSON(m, "p", &got) {
		t.Error("corrupt entry should read as a miss")
	}
}
