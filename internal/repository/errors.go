// Package repository persists the board snapshot.  The sentinel errors let
// the service layer tell a first start apart from a damaged snapshot.
package repository

import "errors"

// ErrSnapshotNotFound is returned when no snapshot was ever saved under the
// configured key.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrSnapshotCorrupt is returned when the stored payload cannot be decoded.
// Callers discard it and start from a default board.
var ErrSnapshotCorrupt = errors.New("snapshot corrupt")
