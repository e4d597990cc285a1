package orchestration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/autokube/provisioner/internal/provisioning/fault"
	"github.com/autokube/provisioner/internal/util/naming"
)

// lockRetryDelay is how often a blocked run re-tries the lock.
const lockRetryDelay = 250 * time.Millisecond

// ClusterLock is an exclusive lock on a cluster's inventory directory.
// It is held for the whole run and also excludes other processes.
type ClusterLock struct {
	fl *flock.Flock
}

// AcquireLock locks dir, creating it if needed. It waits until the lock is
// free, timeout elapses or ctx ends. A lock that could not be taken within
// timeout is a KindUnavailable fault.
func AcquireLock(ctx context.Context, dir string, timeout time.Duration) (*ClusterLock, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cluster directory: %w", err)
	}

	lockCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	fl := flock.New(filepath.Join(dir, naming.LockFile))
	ok, err := fl.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fault.Newf(fault.KindUnavailable, "another run holds %s (waited %s)", fl.Path(), timeout)
		}
		return nil, fmt.Errorf("failed to lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, fault.Newf(fault.KindUnavailable, "another run holds %s", fl.Path())
	}
	return &ClusterLock{fl: fl}, nil
}

// Release unlocks. The lock file itself is left in place.
func (l *ClusterLock) Release() error {
	return l.fl.Unlock()
}
