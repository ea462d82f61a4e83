//go:build unix

package files

import (
	"context"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/agentstation/scansync/pkg/constants"
	"github.com/agentstation/scansync/pkg/errors"
)

const lockPollInterval = 25 * time.Millisecond

// lock takes an exclusive flock on path, creating it if needed. It polls
// until the lock is free, ctx ends, or constants.LockTimeout passes.
func lock(ctx context.Context, path string) (func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, constants.FilePermissions) //nolint:gosec
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, constants.LockTimeout)
	defer cancel()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if err != unix.EWOULDBLOCK && err != unix.EINTR {
			_ = f.Close()
			return nil, errors.WrapIO("lock", path, err)
		}

		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, &errors.ResourceError{
				Operation: "lock",
				Resource:  "catalog",
				ID:        path,
				Err:       errors.ErrTimeout,
			}
		case <-ticker.C:
		}
	}

	return func() error {
		if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
			_ = f.Close()
			return errors.WrapIO("unlock", path, err)
		}
		return f.Close()
	}, nil
}
