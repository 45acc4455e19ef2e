// internal/app/reminder_registry.go
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"training_reminder_bot/internal/domain/preference"
	"training_reminder_bot/internal/domain/reminder"
)

const registryKey = "reminder_registry"

// PreferenceRegistry stores the reminder registry as a JSON array under a
// single preference key.
type PreferenceRegistry struct {
	store preference.Store
	key   string
}

func NewPreferenceRegistry(store preference.Store, prefix string) *PreferenceRegistry {
	return &PreferenceRegistry{store: store, key: prefix + registryKey}
}

// Load returns the registered trigger IDs. A missing value is an empty
// registry; an undecodable one is reported as reminder.ErrRegistryCorrupt.
func (r *PreferenceRegistry) Load(ctx context.Context) ([]string, error) {
	raw, err := r.store.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, preference.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read reminder registry: %w", err)
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("%w: %v", reminder.ErrRegistryCorrupt, err)
	}
	return ids, nil
}

func (r *PreferenceRegistry) Save(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode reminder registry: %w", err)
	}
	if err := r.store.Set(ctx, r.key, string(data)); err != nil {
		return fmt.Errorf("failed to write reminder registry: %w", err)
	}
	return nil
}

func (r *PreferenceRegistry) Clear(ctx context.Context) error {
	if err := r.store.Delete(ctx, r.key); err != nil {
		return fmt.Errorf("failed to clear reminder registry: %w", err)
	}
	return nil
}
