// Package device owns the IoT device entity, its lifecycle state machine and
// the activation token entity.
//
// Lifecycle:
//
//	pending --activate--> active --suspend--> suspended --wake--> active
//	{pending,active,suspended} --disable--> disabled --enable--> remembered state (or pending)
//
// Only active devices are operational and count against subscription
// capacity. Suspend and Wake are idempotent no-ops when the device is already
// in the target state. Disable remembers the state it left so Enable can
// restore it exactly, including suspension metadata.
package device
