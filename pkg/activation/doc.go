// Package activation issues single-use device activation tokens and redeems
// them into active devices.
//
// A code is a signed payload (token id, device type, expiry); the store keeps
// only a keyed BLAKE2b digest of it, so a database dump cannot be replayed.
// Redemption runs in one account transaction: the token is checked, the
// device is created active, and the token is consumed. Capacity never blocks
// the device: accounts over their limit or without a subscription get a
// warning on the successful result instead.
package activation
