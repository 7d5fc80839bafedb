package device

import (
	"time"

	"github.com/google/uuid"
)

// ActivationToken is a single-use credential binding a device type to a purchase.
// Only a digest of the secret code is stored.
type ActivationToken struct {
	ID           uuid.UUID  `json:"id"`
	Digest       string     `json:"-"`
	DeviceTypeID string     `json:"device_type_id"`
	PurchaseRef  string     `json:"purchase_ref"`
	ExpiresAt    time.Time  `json:"expires_at"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	DeviceID     *uuid.UUID `json:"device_id,omitempty"` // device created by redemption
	CreatedAt    time.Time  `json:"created_at"`
}

func (t *ActivationToken) IsUsed() bool {
	return t.UsedAt != nil
}

func (t *ActivationToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Redeem consumes the token for the given device. It never un-consumes.
func (t *ActivationToken) Redeem(deviceID uuid.UUID, now time.Time) {
	now = now.UTC()
	t.UsedAt = &now
	t.DeviceID = &deviceID
}

// Clone returns a deep copy.
func (t *ActivationToken) Clone() *ActivationToken {
	c := *t
	c.UsedAt = cloneTime(t.UsedAt)
	if t.DeviceID != nil {
		id := *t.DeviceID
		c.DeviceID = &id
	}
	return &c
}
