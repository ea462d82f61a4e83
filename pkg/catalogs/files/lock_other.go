//go:build !unix

package files

import "context"

// lock is a no-op where flock is unavailable; writes still replace the
// catalog atomically.
func lock(context.Context, string) (func() error, error) {
	return func() error { return nil }, nil
}
