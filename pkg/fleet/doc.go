// Package fleet implements the explicit, account-initiated operations on devices
// and subscription capacity that sit outside plan changes.
//
// Device actions:
//
//	svc := fleet.NewService(st, catalog, fleet.WithLogger(log))
//	res, err := svc.SuspendDevices(ctx, accountID, ids, device.ReasonUser)
//	res, err = svc.WakeDevices(ctx, accountID, ids)
//
// WakeDevices never exceeds capacity: when the suspended devices named would not
// fit into the available slots the whole call is rejected with ErrInsufficientCapacity.
// EnableDevice restores the state a device had before it was disabled, except that a
// device which was active comes back suspended (reason "capacity") when no slot is free.
//
// Subscription actions:
//
//	slots, err := svc.AddDeviceSlot(ctx, accountID)
//	slots, err = svc.RemoveDeviceSlot(ctx, accountID)
//	sub, err := svc.CancelSubscription(ctx, accountID)
//	sub, err = svc.RecordPaymentResult(ctx, accountID, false) // active -> past_due
//
// Every operation runs in one account transaction, so concurrent calls for the same
// account observe each other's effects and capacity is checked against committed state.
package fleet
