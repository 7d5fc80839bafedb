package capacity

import (
	"cmp"
	"slices"
	"time"

	"github.com/dmitrymomot/devicecap/pkg/device"
)

// Tier is a removal priority bucket. Lower tiers are removed first.
type Tier int

const (
	TierStale  Tier = iota // never connected, or last seen more than a week ago
	TierIdle               // last seen more than a day ago
	TierRecent             // everything else
)

const (
	staleAfter = 7 * 24 * time.Hour
	idleAfter  = 24 * time.Hour
)

func (t Tier) String() string {
	switch t {
	case TierStale:
		return "stale"
	case TierIdle:
		return "idle"
	default:
		return "recent"
	}
}

// TierOf classifies a device by connectivity recency at now.
func TierOf(d *device.Device, now time.Time) Tier {
	if d.LastConnection == nil {
		return TierStale
	}
	switch age := now.Sub(*d.LastConnection); {
	case age > staleAfter:
		return TierStale
	case age > idleAfter:
		return TierIdle
	default:
		return TierRecent
	}
}

// RankForRemoval orders candidates by tier, then oldest created_at, then id, and returns the first n.
// The id tie-break keeps the result reproducible for identical timestamps.
// The input slice is not modified.
func RankForRemoval(candidates []*device.Device, n int, now time.Time) []*device.Device {
	if n <= 0 || len(candidates) == 0 {
		return nil
	}

	ranked := slices.Clone(candidates)
	slices.SortStableFunc(ranked, func(a, b *device.Device) int {
		return cmp.Or(
			cmp.Compare(TierOf(a, now), TierOf(b, now)),
			a.CreatedAt.Compare(b.CreatedAt),
			cmp.Compare(a.ID.String(), b.ID.String()),
		)
	})

	return ranked[:min(n, len(ranked))]
}

// MostRecentlySuspended orders suspended devices newest suspension first and returns up to n.
func MostRecentlySuspended(suspended []*device.Device, n int) []*device.Device {
	if n <= 0 || len(suspended) == 0 {
		return nil
	}

	ranked := slices.Clone(suspended)
	slices.SortStableFunc(ranked, func(a, b *device.Device) int {
		return cmp.Or(
			compareTimeDesc(a.SuspendedAt, b.SuspendedAt),
			cmp.Compare(a.ID.String(), b.ID.String()),
		)
	})

	return ranked[:min(n, len(ranked))]
}

// compareTimeDesc sorts later times first and nil last.
func compareTimeDesc(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return b.Compare(*a)
	}
}
