package verificationrepofake

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-otp-auth/internal/persistence"
	"github.com/jrsteele09/go-otp-auth/verification"
)

var _ verification.Repo = (*FakeCodeRepo)(nil)

type FakeCodeRepo struct {
	codes map[string]*verification.Code
	seq   map[string]int // insertion order, breaks CreatedAt ties
	next  int
	lock  sync.RWMutex
}

func NewFakeCodeRepo() *FakeCodeRepo {
	return &FakeCodeRepo{
		codes: make(map[string]*verification.Code),
		seq:   make(map[string]int),
	}
}

func (r *FakeCodeRepo) Replace(_ context.Context, code *verification.Code) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, c := range r.codes {
		if c.IsDeleted() || c.IsUsed || !sameTriple(c, code.Identifier, code.Kind, code.Purpose) {
			continue
		}
		c.IsUsed = true
		c.IsVerified = false
		c.VerificationToken = ""
		c.Touch(code.CreatedAt)
	}
	r.codes[code.ID] = code.Clone()
	r.next++
	r.seq[code.ID] = r.next
	return nil
}

func (r *FakeCodeRepo) Latest(_ context.Context, identifier string, kind verification.Kind, purpose verification.Purpose) (*verification.Code, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	matches := r.filter(func(c *verification.Code) bool {
		return sameTriple(c, identifier, kind, purpose)
	})
	if len(matches) == 0 {
		return nil, persistence.ErrNoRecord
	}
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.IsUsed != b.IsUsed {
			return !a.IsUsed
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return r.seq[a.ID] > r.seq[b.ID]
	})
	return matches[0].Clone(), nil
}

func (r *FakeCodeRepo) FindByToken(_ context.Context, identifier string, kind verification.Kind, purpose verification.Purpose, token string) (*verification.Code, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	matches := r.filter(func(c *verification.Code) bool {
		return sameTriple(c, identifier, kind, purpose) && c.VerificationToken == token
	})
	if len(matches) == 0 {
		return nil, persistence.ErrNoRecord
	}
	return matches[0].Clone(), nil
}

func (r *FakeCodeRepo) Get(_ context.Context, id string) (*verification.Code, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	c, ok := r.live(id)
	if !ok {
		return nil, persistence.ErrNoRecord
	}
	return c.Clone(), nil
}

func (r *FakeCodeRepo) IncrementAttempts(_ context.Context, id string, now time.Time) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	c, ok := r.live(id)
	if !ok {
		return 0, persistence.ErrNoRecord
	}
	c.Attempts++
	c.Touch(now)
	return c.Attempts, nil
}

func (r *FakeCodeRepo) MarkVerified(_ context.Context, id string, version int, token string, now time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	c, ok := r.live(id)
	if !ok {
		return persistence.ErrNoRecord
	}
	if c.Version != version || c.IsVerified {
		return persistence.ErrVersionConflict
	}
	c.IsVerified = true
	c.VerifiedAt = &now
	c.VerificationToken = token
	c.Attempts = 0
	c.Touch(now)
	return nil
}

func (r *FakeCodeRepo) MarkUsed(_ context.Context, id string, now time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	c, ok := r.live(id)
	if !ok || c.IsUsed {
		return persistence.ErrNoRecord
	}
	c.IsUsed = true
	c.UsedAt = &now
	c.Touch(now)
	return nil
}

func (r *FakeCodeRepo) CountSince(_ context.Context, identifier string, kind verification.Kind, since time.Time) (int, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	matches := r.filter(func(c *verification.Code) bool {
		return c.Identifier == identifier && c.Kind == kind && c.CreatedAt.After(since)
	})
	return len(matches), nil
}

func (r *FakeCodeRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var removed int64
	for id, c := range r.codes {
		if c.ExpiresAt.Before(before) {
			delete(r.codes, id)
			delete(r.seq, id)
			removed++
		}
	}
	return removed, nil
}

// All returns every live code, oldest first. Used by tests to assert invariants.
func (r *FakeCodeRepo) All() []*verification.Code {
	r.lock.RLock()
	defer r.lock.RUnlock()

	all := r.filter(func(*verification.Code) bool { return true })
	sort.Slice(all, func(i, j int) bool {
		return r.seq[all[i].ID] < r.seq[all[j].ID]
	})
	out := make([]*verification.Code, 0, len(all))
	for _, c := range all {
		out = append(out, c.Clone())
	}
	return out
}

func (r *FakeCodeRepo) live(id string) (*verification.Code, bool) {
	c, ok := r.codes[id]
	if !ok || c.IsDeleted() {
		return nil, false
	}
	return c, true
}

func (r *FakeCodeRepo) filter(match func(*verification.Code) bool) []*verification.Code {
	var out []*verification.Code
	for _, c := range r.codes {
		if !c.IsDeleted() && match(c) {
			out = append(out, c)
		}
	}
	return out
}

func sameTriple(c *verification.Code, identifier string, kind verification.Kind, purpose verification.Purpose) bool {
	return c.Identifier == identifier && c.Kind == kind && c.Purpose == purpose
}
