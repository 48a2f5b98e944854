// Package repository defines error types shared by the locker store.
// These sentinel values allow higher layers such as the registry and the
// HTTP handlers to tell a broken store file apart from a failed write.
// ErrStoreUnreadable means the existing file could not be parsed, while
// ErrStoreWriteFailed means the snapshot could not be written back and the
// in-memory state is not durable.
package repository

import "errors"

// ErrStoreUnreadable is returned when the store file exists but cannot be
// decoded.  Handlers should translate this into an HTTP 500 response.
var ErrStoreUnreadable = errors.New("store unreadable")

// ErrStoreWriteFailed is returned when a snapshot cannot be persisted.
// Handlers should translate this into an HTTP 500 response.
var ErrStoreWriteFailed = errors.New("store write failed")
