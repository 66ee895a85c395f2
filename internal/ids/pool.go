// Package ids hands out and tracks element identifiers for one open
// document so that created, renamed and removed nodes never collide.
package ids

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrIDClaimed is returned when claiming an id that another owner holds.
var ErrIDClaimed = errors.New("id already claimed")

// Pool tracks claimed ids and their owners.
type Pool struct {
	mu      sync.Mutex
	claimed map[string]any
	// fresh logs generated ids since the oldest open Mark.
	fresh []claim
}

type claim struct {
	id    string
	owner any
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{claimed: make(map[string]any)}
}

// Claim reserves id for owner. Re-claiming an id for the same owner is a
// no-op.
func (p *Pool) Claim(id string, owner any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.claimed[id]; ok && cur != owner {
		return fmt.Errorf("%w: %s", ErrIDClaimed, id)
	}
	p.claimed[id] = owner
	return nil
}

// Unclaim releases id.
func (p *Pool) Unclaim(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.claimed, id)
}

// Assigned reports whether id is currently claimed.
func (p *Pool) Assigned(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.claimed[id]
	return ok
}

// Len returns the number of claimed ids.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.claimed)
}

// Owner returns the owner id is claimed for.
func (p *Pool) Owner(id string) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	owner, ok := p.claimed[id]
	return owner, ok
}

// NextPrefixed generates an unclaimed id of the form "<prefix>_<7 hex>" and
// claims it for owner.
func (p *Pool) NextPrefixed(prefix string, owner any) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		raw := strings.ReplaceAll(uuid.NewString(), "-", "")
		id := prefix + "_" + raw[:7]
		if _, taken := p.claimed[id]; taken {
			continue
		}
		p.claimed[id] = owner
		p.fresh = append(p.fresh, claim{id: id, owner: owner})
		return id
	}
}

// Mark returns the position to Release or Keep back to.
func (p *Pool) Mark() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.fresh)
}

// Release unclaims the ids NextPrefixed generated since mark that are
// still held by the owner they were generated for.
func (p *Pool) Release(mark int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if mark < 0 || mark > len(p.fresh) {
		return
	}
	for _, c := range p.fresh[mark:] {
		if cur, ok := p.claimed[c.id]; ok && cur == c.owner {
			delete(p.claimed, c.id)
		}
	}
	p.fresh = p.fresh[:mark]
}

// Keep stops tracking the ids generated since mark; they stay claimed.
func (p *Pool) Keep(mark int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if mark >= 0 && mark <= len(p.fresh) {
		p.fresh = p.fresh[:mark]
	}
}

// Clear forgets every claim.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.claimed = make(map[string]any)
	p.fresh = nil
}
