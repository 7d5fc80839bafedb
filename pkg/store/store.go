package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicecap/pkg/device"
	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

// Tx is the set of reads and writes available inside one account-scoped transaction.
// Reads return copies; nothing is visible to other transactions until the enclosing
// InAccountTx callback returns nil.
type Tx interface {
	// CurrentSubscription returns the newest non-canceled subscription of the account,
	// or subscription.ErrSubscriptionNotFound.
	CurrentSubscription(ctx context.Context, accountID uuid.UUID) (*subscription.Subscription, error)
	SaveSubscription(ctx context.Context, sub *subscription.Subscription) error
	// CancelOtherSubscriptions cancels every active or past-due subscription except keepID.
	CancelOtherSubscriptions(ctx context.Context, accountID, keepID uuid.UUID, now time.Time) (int, error)

	// Devices returns the full device collection of the account, ordered by creation time.
	Devices(ctx context.Context, accountID uuid.UUID) ([]*device.Device, error)
	SaveDevice(ctx context.Context, d *device.Device) error

	// ActivationTokenByDigest locks and returns the token, or device.ErrTokenNotFound.
	ActivationTokenByDigest(ctx context.Context, digest string) (*device.ActivationToken, error)
	SaveActivationToken(ctx context.Context, t *device.ActivationToken) error

	// PendingScheduledChange returns the account's pending intent, or subscription.ErrScheduledChangeNotFound.
	PendingScheduledChange(ctx context.Context, accountID uuid.UUID) (*subscription.ScheduledChange, error)
	SaveScheduledChange(ctx context.Context, c *subscription.ScheduledChange) error

	// AccountRole returns the entitlement tier, plan.TierUser when none was ever written.
	AccountRole(ctx context.Context, accountID uuid.UUID) (plan.Tier, error)
	SetAccountRole(ctx context.Context, accountID uuid.UUID, tier plan.Tier) error
}

// Store runs account-scoped transactions.
//
// Writers for the same account are serialized: a second InAccountTx for an account
// blocks until the first commits or rolls back. If fn returns an error every write
// made through tx is discarded and that error is returned unchanged; failures of
// the store itself are wrapped with ErrTxFailed.
type Store interface {
	InAccountTx(ctx context.Context, accountID uuid.UUID, fn func(ctx context.Context, tx Tx) error) error
	// View runs fn against a consistent snapshot without taking the account write lock.
	// Writes made through tx inside View fail or are discarded depending on the implementation.
	View(ctx context.Context, accountID uuid.UUID, fn func(ctx context.Context, tx Tx) error) error
	// DueScheduledChanges lists pending scheduled changes with effective_at <= now, oldest first.
	DueScheduledChanges(ctx context.Context, now time.Time, limit int) ([]*subscription.ScheduledChange, error)
}

// FindDevice returns the device with the given id from a collection, or device.ErrDeviceNotFound.
func FindDevice(devices []*device.Device, id uuid.UUID) (*device.Device, error) {
	for _, d := range devices {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, device.ErrDeviceNotFound
}
