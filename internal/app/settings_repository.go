// internal/app/settings_repository.go
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"training_reminder_bot/internal/domain/preference"
	"training_reminder_bot/internal/domain/reminder"
)

const (
	enabledKey   = "reminders_enabled"
	leadKey      = "reminder_lead_minutes"
	branchesKey  = "reminder_branches"
	groupsKey    = "reminder_groups"
	permittedKey = "notifications_permitted"
)

// SettingsRepository persists the reminder selection and the notification
// permission flag next to the registry.
type SettingsRepository struct {
	store       preference.Store
	prefix      string
	defaultLead int
}

func NewSettingsRepository(store preference.Store, prefix string, defaultLead int) *SettingsRepository {
	return &SettingsRepository{store: store, prefix: prefix, defaultLead: reminder.ClampLead(defaultLead)}
}

// Load returns the persisted settings. Missing or malformed values fall back
// to defaults (disabled, default lead, empty selection).
func (r *SettingsRepository) Load(ctx context.Context) (reminder.Settings, error) {
	st := reminder.Settings{LeadMinutes: r.defaultLead}

	enabled, err := r.get(ctx, enabledKey)
	if err != nil {
		return st, err
	}
	st.Enabled, _ = strconv.ParseBool(enabled)

	if lead, err := r.get(ctx, leadKey); err != nil {
		return st, err
	} else if n, convErr := strconv.Atoi(lead); convErr == nil {
		st.LeadMinutes = reminder.ClampLead(n)
	}

	if st.Branches, err = r.getList(ctx, branchesKey); err != nil {
		return st, err
	}
	if st.Groups, err = r.getList(ctx, groupsKey); err != nil {
		return st, err
	}
	return st, nil
}

func (r *SettingsRepository) Save(ctx context.Context, st reminder.Settings) error {
	if err := r.store.Set(ctx, r.prefix+enabledKey, strconv.FormatBool(st.Enabled)); err != nil {
		return fmt.Errorf("failed to save %s: %w", enabledKey, err)
	}
	if err := r.store.Set(ctx, r.prefix+leadKey, strconv.Itoa(reminder.ClampLead(st.LeadMinutes))); err != nil {
		return fmt.Errorf("failed to save %s: %w", leadKey, err)
	}
	if err := r.setList(ctx, branchesKey, st.Branches); err != nil {
		return err
	}
	return r.setList(ctx, groupsKey, st.Groups)
}

// NotificationsPermitted reports whether the user granted notifications.
func (r *SettingsRepository) NotificationsPermitted(ctx context.Context) (bool, error) {
	v, err := r.get(ctx, permittedKey)
	if err != nil {
		return false, err
	}
	ok, _ := strconv.ParseBool(v)
	return ok, nil
}

func (r *SettingsRepository) SetNotificationsPermitted(ctx context.Context, permitted bool) error {
	if err := r.store.Set(ctx, r.prefix+permittedKey, strconv.FormatBool(permitted)); err != nil {
		return fmt.Errorf("failed to save %s: %w", permittedKey, err)
	}
	return nil
}

// get returns "" for a missing key.
func (r *SettingsRepository) get(ctx context.Context, key string) (string, error) {
	v, err := r.store.Get(ctx, r.prefix+key)
	if err != nil {
		if errors.Is(err, preference.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, nil
}

func (r *SettingsRepository) getList(ctx context.Context, key string) ([]string, error) {
	raw, err := r.get(ctx, key)
	if err != nil || raw == "" {
		return nil, err
	}
	var out []string
	if jsonErr := json.Unmarshal([]byte(raw), &out); jsonErr != nil {
		return nil, nil
	}
	return out, nil
}

func (r *SettingsRepository) setList(ctx context.Context, key string, values []string) error {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := r.store.Set(ctx, r.prefix+key, string(data)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
