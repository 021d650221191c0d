package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pantry-backend/application/ports"
)

// CatalogLock implements ports.CatalogLock with a process-local mutex. It
// honors the same expiry semantics as the DynamoDB lock so handler code
// behaves identically against either driver.
type CatalogLock struct {
	mu      sync.Mutex
	heldBy  string
	expires time.Time
}

// NewCatalogLock creates an in-memory catalog lock
func NewCatalogLock() *CatalogLock {
	return &CatalogLock{}
}

// Acquire blocks up to lockTimeout trying to take the catalog lock, holding
// it for at most lockDuration.
func (cl *CatalogLock) Acquire(ctx context.Context, owner string, lockDuration, lockTimeout time.Duration) error {
	deadline := time.Now().Add(lockTimeout)

	for {
		if cl.tryAcquire(owner, lockDuration) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout acquiring catalog lock for %s", owner)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (cl *CatalogLock) tryAcquire(owner string, lockDuration time.Duration) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := time.Now()
	if cl.heldBy != "" && now.Before(cl.expires) {
		return false
	}

	cl.heldBy = owner
	cl.expires = now.Add(lockDuration)
	return true
}

// Release frees the lock if still held by the owner. A lock that expired
// and was taken over by someone else is left alone.
func (cl *CatalogLock) Release(ctx context.Context, owner string) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.heldBy == owner {
		cl.heldBy = ""
		cl.expires = time.Time{}
	}
	return nil
}

var _ ports.CatalogLock = (*CatalogLock)(nil)
