package store

import "errors"

// ErrNotFound is returned when an operation references a session id that
// is absent from the store. An existing session with zero turns is not an
// error; callers get an empty result instead.
var ErrNotFound = errors.New("session not found")
