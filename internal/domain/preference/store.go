package preference

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("preference not found")

// Store is a durable string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error) // ErrNotFound when absent
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
