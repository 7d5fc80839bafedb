// Package memory is an in-process implementation of store.Store used by tests
// and local development. Data lives only as long as the Store value.
package memory
