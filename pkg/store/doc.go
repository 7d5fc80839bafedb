// Package store defines the persistence ports used by the device capacity engine.
//
// Every mutating operation runs inside Store.InAccountTx, which serializes
// writers per account and commits all-or-nothing. Implementations live in
// the memory (tests, local development) and postgres subpackages; WithLocker
// adds a cross-instance lock on top of either.
package store
