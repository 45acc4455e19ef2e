package reminder

import (
	"context"
	"errors"
	"strconv"
)

// ErrRegistryCorrupt is returned by Registry.Load when the persisted value
// cannot be decoded.
var ErrRegistryCorrupt = errors.New("reminder registry is corrupt")

// Registry is the persisted set of trigger IDs that currently have a live
// deferred trigger. It must stay consistent with the platform's live triggers.
type Registry interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, ids []string) error
	Clear(ctx context.Context) error
}

// LegacyRange is the degraded-mode safety net: numeric trigger IDs used by the
// registry-less format. When the registry is empty or unreadable, every ID in
// [Start, Start+Count) is cancelled so stale triggers cannot survive.
type LegacyRange struct {
	Start int
	Count int
}

// IDs lists the legacy trigger IDs.
func (r LegacyRange) IDs() []string {
	if r.Count <= 0 {
		return nil
	}
	ids := make([]string, 0, r.Count)
	for i := 0; i < r.Count; i++ {
		ids = append(ids, strconv.Itoa(r.Start+i))
	}
	return ids
}
