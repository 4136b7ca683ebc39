package library

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/promptly/internal/domain"
)

// Ticket identifies one fetch of the collection.
type Ticket struct {
	seq   uint64
	epoch uint64
}

// Collection is the locally held copy of one user's prompts.
//
// Fetches are latest-wins: Begin issues a ticket before the fetch and Commit
// applies its result only if no newer fetch was committed, no local change
// was made and the collection was not reset since the ticket was issued.
type Collection struct {
	mu        sync.Mutex
	prompts   []domain.Prompt
	loaded    bool
	seq       uint64
	committed uint64
	epoch     uint64
}

// NewCollection creates an empty, unloaded collection.
func NewCollection() *Collection {
	return &Collection{}
}

// Begin issues a ticket for a fetch about to start.
func (c *Collection) Begin() Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return Ticket{seq: c.seq, epoch: c.epoch}
}

// Commit replaces the contents with prompts fetched under t. It reports
// whether the result was applied.
func (c *Collection) Commit(t Ticket, prompts []domain.Prompt) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.epoch != c.epoch || t.seq <= c.committed {
		return false
	}
	c.committed = t.seq
	c.prompts = slices.Clone(prompts)
	c.loaded = true
	return true
}

// Add puts a newly created prompt in front and supersedes in-flight fetches.
func (c *Collection) Add(p domain.Prompt) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prompts = slices.Insert(slices.DeleteFunc(c.prompts, func(x domain.Prompt) bool {
		return x.ID == p.ID
	}), 0, p)
	c.supersedeLocked()
}

// Remove drops the prompt with id and supersedes in-flight fetches. It
// reports whether the prompt was present.
func (c *Collection) Remove(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := len(c.prompts)
	c.prompts = slices.DeleteFunc(c.prompts, func(x domain.Prompt) bool {
		return x.ID == id
	})
	c.supersedeLocked()
	return len(c.prompts) != before
}

// Reset empties the collection and invalidates every outstanding ticket.
func (c *Collection) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.prompts = nil
	c.loaded = false
	c.committed = c.seq
}

// Loaded reports whether a fetch has been committed since the last Reset.
func (c *Collection) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Prompts returns a copy of the held prompts.
func (c *Collection) Prompts() []domain.Prompt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.prompts)
}

// Get returns the held prompt with id.
func (c *Collection) Get(id uuid.UUID) (domain.Prompt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.prompts {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Prompt{}, false
}

// View runs the pipeline over the held prompts.
func (c *Collection) View(q Query, loc *time.Location) View {
	return Build(c.Prompts(), q, loc)
}

func (c *Collection) supersedeLocked() {
	c.seq++
	c.committed = c.seq
}
