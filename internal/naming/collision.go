package naming

import (
	"errors"
	"fmt"
	"sync"
)

// ErrKeyCollision is returned (wrapped) when a source's derivative key is
// already owned by another source, e.g. chair.jpg and chair.png both
// deriving chair.webp.
var ErrKeyCollision = errors.New("derivative key collision")

// Collision names a derivative key and the source that already owns it.
type Collision struct {
	Key   string
	Owner string
}

// CollisionResolver tracks derivative keys claimed by source keys within one
// run. The first source to claim a key owns it. All methods are
// goroutine-safe.
type CollisionResolver struct {
	mu     sync.Mutex
	owners map[string]string // derivative key → source key that owns it
}

// NewCollisionResolver creates a ready-to-use resolver.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{owners: make(map[string]string)}
}

// Claim records keys for source. When any key is already owned by a
// different source, nothing is claimed and the clashes are returned in keys
// order. Claiming the same keys again for the same source succeeds.
func (cr *CollisionResolver) Claim(source string, keys []string) []Collision {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	var clashes []Collision
	for _, k := range keys {
		if owner, ok := cr.owners[k]; ok && owner != source {
			clashes = append(clashes, Collision{Key: k, Owner: owner})
		}
	}
	if len(clashes) > 0 {
		return clashes
	}
	for _, k := range keys {
		cr.owners[k] = source
	}
	return nil
}

// Owner returns the source that owns key.
func (cr *CollisionResolver) Owner(key string) (string, bool) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	owner, ok := cr.owners[key]
	return owner, ok
}

// CollisionError reports every key source could not claim.
func CollisionError(source string, clashes []Collision) error {
	first := clashes[0]
	if len(clashes) == 1 {
		return fmt.Errorf("%w: %s: %s already claimed by %s", ErrKeyCollision, source, first.Key, first.Owner)
	}
	return fmt.Errorf("%w: %s: %s already claimed by %s (and %d more)",
		ErrKeyCollision, source, first.Key, first.Owner, len(clashes)-1)
}
