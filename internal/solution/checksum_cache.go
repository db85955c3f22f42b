package solution

import (
	"context"
	"sync"
)

// checksumCache maps Checksum -> in-flight or completed materialization,
// and pins the most-recently-requested entry with one supplementary
// reference. Two instances exist per Workspace (any-branch and
// primary-branch); both share the same *sync.Mutex instance as the
// owning Workspace, so all consistency across the whole subsystem is
// serialized by one lock.
type checksumCache struct {
	mu *sync.Mutex // shared with the owning Workspace; never per-instance

	entries map[Checksum]*refCountedLazySolution

	lastRequestedChecksum Checksum
	lastRequested         *refCountedLazySolution
	hasLastRequested      bool
}

func newChecksumCache(mu *sync.Mutex) *checksumCache {
	return &checksumCache{
		mu:      mu,
		entries: make(map[Checksum]*refCountedLazySolution),
	}
}

// tryFastGet probes lastRequested first, then the map. Must be called
// with mu held. Returns nil if absent.
func (c *checksumCache) tryFastGet(cs Checksum) (*refCountedLazySolution, error) {
	if c.hasLastRequested && c.lastRequestedChecksum == cs {
		if err := c.lastRequested.addReference(); err != nil {
			return nil, err
		}
		return c.lastRequested, nil
	}

	if e, ok := c.entries[cs]; ok {
		if err := e.addReference(); err != nil {
			return nil, err
		}
		return e, nil
	}

	return nil, nil
}

// slowGetOrCreate returns the existing entry for cs, bumping its
// refcount, or creates a new one whose cleanup removes cs from the map
// iff the stored entry is still this same object (ABA-safe). Must be
// called with mu held. The returned entry's refcount includes the
// caller's own reference.
func (c *checksumCache) slowGetOrCreate(base context.Context, cs Checksum, producer producerFunc) (*refCountedLazySolution, error) {
	return c.slowGetOrCreateWithPromotion(base, cs, producer, nil)
}

// slowGetOrCreateWithPromotion is slowGetOrCreate plus an optional
// *promotionOutcome attached to a freshly-created entry (ignored on a
// cache hit, since the outcome belongs to whichever call first created
// the entry this checksum collapsed onto).
func (c *checksumCache) slowGetOrCreateWithPromotion(base context.Context, cs Checksum, producer producerFunc, promotion *promotionOutcome) (*refCountedLazySolution, error) {
	if e, ok := c.entries[cs]; ok {
		if err := e.addReference(); err != nil {
			return nil, err
		}
		return e, nil
	}

	var created *refCountedLazySolution
	created = newRefCountedLazySolutionWithPromotion(base, producer, func() {
		// Runs under c.mu (invoked from release(), which requires the
		// caller to hold it). ABA check: only erase the mapping if it
		// still points at this exact entry — a concurrent
		// slowGetOrCreate could have already replaced it after a prior
		// cleanup raced ahead, though under a single mutex that
		// specific race cannot happen; the identity check is kept
		// anyway as the defense of record.
		if c.entries[cs] == created {
			delete(c.entries, cs)
		}
	}, promotion)

	c.entries[cs] = created
	return created, nil
}

// setLastRequested must be called with mu NOT held: it locks internally,
// bumps the incoming entry and swaps it into the lastRequested slot,
// unlocks, and only then releases the prior slot's entry. That ordering
// is load-bearing — release() can itself invoke cleanup(), which
// deletes from c.entries, and cleanup must not try to reacquire a mutex
// this goroutine is still holding.
func (c *checksumCache) setLastRequested(e *refCountedLazySolution, cs Checksum) error {
	c.mu.Lock()

	if err := e.addReference(); err != nil {
		c.mu.Unlock()
		return err
	}

	priorEntry := c.lastRequested
	priorHad := c.hasLastRequested

	c.lastRequested = e
	c.lastRequestedChecksum = cs
	c.hasLastRequested = true

	c.mu.Unlock()

	if priorHad {
		c.mu.Lock()
		priorEntry.release()
		c.mu.Unlock()
	}

	return nil
}
