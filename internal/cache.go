package internal

import (
	"sync"

	"github.com/ruqqus-community/go-ruqqus/pkg/types"
)

// SubmissionCache de-duplicates and memoizes submissions by entity ID. A
// submission ID that is present is never reported as new again for the
// lifetime of the cache.
//
// The cache also carries the poll generation counter: the number of completed
// poll ticks. The counter starts at zero so the first tick only establishes a
// baseline; without that rule every item that existed before the client
// started would fire as "new".
type SubmissionCache struct {
	mu         sync.RWMutex
	entries    map[string]types.Submission
	generation uint64
}

// NewSubmissionCache returns an empty cache with the generation counter at zero.
func NewSubmissionCache() *SubmissionCache {
	return &SubmissionCache{entries: make(map[string]types.Submission)}
}

// Upsert inserts or overwrites a submission by ID. Submissions without an ID
// are ignored. The generation counter is not touched.
func (c *SubmissionCache) Upsert(s types.Submission) {
	if s == nil || s.EntityID() == "" {
		return
	}

	c.mu.Lock()
	c.entries[s.EntityID()] = s
	c.mu.Unlock()
}

// UpsertMany is the batch form of Upsert, used by the poll engine after each
// tick to refresh every listed item.
func (c *SubmissionCache) UpsertMany(subs []types.Submission) {
	c.mu.Lock()
	for _, s := range subs {
		if s == nil || s.EntityID() == "" {
			continue
		}
		c.entries[s.EntityID()] = s
	}
	c.mu.Unlock()
}

// Get returns the cached submission for id, or nil if absent.
func (c *SubmissionCache) Get(id string) types.Submission {
	c.mu.RLock()
	s := c.entries[id]
	c.mu.RUnlock()
	return s
}

// Contains reports whether id is present.
func (c *SubmissionCache) Contains(id string) bool {
	c.mu.RLock()
	_, ok := c.entries[id]
	c.mu.RUnlock()
	return ok
}

// Len returns the number of cached submissions.
func (c *SubmissionCache) Len() int {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return n
}

// Generation returns the number of completed poll ticks.
func (c *SubmissionCache) Generation() uint64 {
	c.mu.RLock()
	g := c.generation
	c.mu.RUnlock()
	return g
}

// AdvanceGeneration increments the poll generation counter and returns the
// new value. Called exactly once per completed poll tick.
func (c *SubmissionCache) AdvanceGeneration() uint64 {
	c.mu.Lock()
	c.generation++
	g := c.generation
	c.mu.Unlock()
	return g
}
