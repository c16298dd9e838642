// Package store persists chat sessions and their turns in SQLite.
//
// A session groups the turns of one conversation. Each turn is a user
// message paired with the assistant response, written atomically together
// with the owning session's last_activity. The store reconstructs bounded
// conversation context for the completion call and sweeps out sessions
// that have been inactive past a retention threshold.
package store
