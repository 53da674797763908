package storage

import "errors"

var ErrKeyNotFound = errors.New("key not found")

// SessionKey namespaces a client storage key under its session.
func SessionKey(session, key string) string {
	return "session:" + session + ":" + key
}
