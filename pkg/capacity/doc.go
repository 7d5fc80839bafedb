// Package capacity is the device capacity accountant.
//
// Given an account's subscription (or its absence) and its full device
// collection, an Accountant computes the operational count, effective limit,
// available slots and excess, and ranks devices for forced removal:
//
//	acc := capacity.New(sub, &p, devices, capacity.WithNow(now))
//	if acc.IsOverCapacity() {
//	    victims := acc.RankForRemoval(acc.Excess())
//	}
//
// Removal ranking puts devices that never connected or were last seen more
// than a week ago first, then devices idle for more than a day, then the
// rest; each tier is ordered by oldest creation time. The accountant never
// fails for missing data: no devices and no subscription both yield defaults.
package capacity
