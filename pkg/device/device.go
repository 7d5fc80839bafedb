package device

import (
	"time"

	"github.com/google/uuid"
)

// State is a device lifecycle state.
type State string

const (
	StatePending   State = "pending"   // created, no traffic yet
	StateActive    State = "active"    // operational, counts against capacity
	StateSuspended State = "suspended" // keeps configuration, does not count, reversible
	StateDisabled  State = "disabled"  // administrative soft removal, excluded from capacity math
)

// Suspension reasons written by the core.
const (
	ReasonPlanChange           = "plan_change"
	ReasonPlanChangeSuspension = "plan_change_suspension"
	ReasonCapacity             = "capacity"
	ReasonUser                 = "user"
)

// OfflineAfter is how long without a connection makes a device count as offline.
const OfflineAfter = 24 * time.Hour

// Device is a physical IoT device owned by one account.
// Devices are never deleted while the account exists; they are soft-removed via StateDisabled.
type Device struct {
	ID               uuid.UUID  `json:"id"`
	AccountID        uuid.UUID  `json:"account_id"`
	DeviceTypeID     string     `json:"device_type_id"`
	Name             string     `json:"name"`
	State            State      `json:"state"`
	LastConnection   *time.Time `json:"last_connection,omitempty"`
	AlertStatus      string     `json:"alert_status,omitempty"`
	SuspensionReason string     `json:"suspension_reason,omitempty"`
	SuspendedAt      *time.Time `json:"suspended_at,omitempty"`
	DisabledReason   string     `json:"disabled_reason,omitempty"`
	DisabledAt       *time.Time `json:"disabled_at,omitempty"`
	// StateBeforeDisable is what Enable restores. Empty means "never recorded".
	StateBeforeDisable State     `json:"state_before_disable,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// New creates a pending device for the account.
func New(accountID uuid.UUID, deviceTypeID, name string, now time.Time) *Device {
	now = now.UTC()
	return &Device{
		ID:           uuid.New(),
		AccountID:    accountID,
		DeviceTypeID: deviceTypeID,
		Name:         name,
		State:        StatePending,
		AlertStatus:  "ok",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsOperational reports whether the device counts against subscription capacity.
func (d *Device) IsOperational() bool {
	return d.State == StateActive
}

// IsOffline is true when the device never connected or was last seen more than a day ago.
func (d *Device) IsOffline(now time.Time) bool {
	return d.LastConnection == nil || now.Sub(*d.LastConnection) > OfflineAfter
}

// Clone returns a deep copy, so stores can hand out devices without sharing pointers.
func (d *Device) Clone() *Device {
	c := *d
	c.LastConnection = cloneTime(d.LastConnection)
	c.SuspendedAt = cloneTime(d.SuspendedAt)
	c.DisabledAt = cloneTime(d.DisabledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
