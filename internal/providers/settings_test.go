package providers

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestSettingsStore(t *testing.T) *SettingsStore {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewSettingsStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestSettingsGetMissingReturnsDefaults(t *testing.T) {
	store := newTestSettingsStore(t)

	st, err := store.Get(context.Background(), "provider-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st.ProviderID != "provider-1" {
		t.Fatalf("provider id %q", st.ProviderID)
	}
	if !st.DailySummaryEnabled || !st.MiddaySummaryEnabled || !st.WeeklySummaryEnabled ||
		!st.SessionRemindersEnabled || !st.ExpiryRemindersEnabled {
		t.Fatalf("defaults must enable everything: %+v", st)
	}
	if st.Timezone != "" {
		t.Fatalf("defaults carry no timezone override, got %q", st.Timezone)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	store := newTestSettingsStore(t)

	st := DefaultSettings("provider-1")
	st.MiddaySummaryEnabled = false
	st.Timezone = "America/Sao_Paulo"
	if err := store.Set(context.Background(), st); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.Get(context.Background(), "provider-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MiddaySummaryEnabled {
		t.Fatal("midday toggle lost")
	}
	if got.Timezone != "America/Sao_Paulo" {
		t.Fatalf("timezone %q", got.Timezone)
	}

	// Other providers are untouched.
	other, err := store.Get(context.Background(), "provider-2")
	if err != nil {
		t.Fatalf("get other: %v", err)
	}
	if !other.MiddaySummaryEnabled {
		t.Fatal("settings leaked across providers")
	}
}
