package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Settings holds per-provider notification preferences. They live in Redis
// so toggling them never touches the relational schema.
type Settings struct {
	ProviderID string `json:"provider_id"`
	// Timezone overrides the deployment default for this provider's
	// summaries and reminders, e.g. "America/Sao_Paulo".
	Timezone                string `json:"timezone,omitempty"`
	DailySummaryEnabled     bool   `json:"daily_summary_enabled"`
	MiddaySummaryEnabled    bool   `json:"midday_summary_enabled"`
	WeeklySummaryEnabled    bool   `json:"weekly_summary_enabled"`
	SessionRemindersEnabled bool   `json:"session_reminders_enabled"`
	ExpiryRemindersEnabled  bool   `json:"expiry_reminders_enabled"`
}

// DefaultSettings returns the preferences a provider starts with: everything
// on, deployment timezone.
func DefaultSettings(providerID string) *Settings {
	return &Settings{
		ProviderID:              providerID,
		DailySummaryEnabled:     true,
		MiddaySummaryEnabled:    true,
		WeeklySummaryEnabled:    true,
		SessionRemindersEnabled: true,
		ExpiryRemindersEnabled:  true,
	}
}

// SettingsStore persists provider settings in Redis as JSON blobs.
type SettingsStore struct {
	redis *redis.Client
}

func NewSettingsStore(redisClient *redis.Client) *SettingsStore {
	return &SettingsStore{redis: redisClient}
}

func (s *SettingsStore) key(providerID string) string {
	return fmt.Sprintf("provider:settings:%s", providerID)
}

// Get retrieves settings, returning defaults when none are stored.
func (s *SettingsStore) Get(ctx context.Context, providerID string) (*Settings, error) {
	data, err := s.redis.Get(ctx, s.key(providerID)).Bytes()
	if err == redis.Nil {
		return DefaultSettings(providerID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("providers: get settings: %w", err)
	}
	var st Settings
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("providers: unmarshal settings: %w", err)
	}
	return &st, nil
}

// Set saves settings.
func (s *SettingsStore) Set(ctx context.Context, st *Settings) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("providers: marshal settings: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(st.ProviderID), data, 0).Err(); err != nil {
		return fmt.Errorf("providers: set settings: %w", err)
	}
	return nil
}
