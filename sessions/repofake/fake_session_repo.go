package sessionrepofake

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-otp-auth/internal/persistence"
	"github.com/jrsteele09/go-otp-auth/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	sessions map[string]*sessions.Session
	lock     sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]*sessions.Session),
	}
}

func (r *FakeSessionRepo) Insert(_ context.Context, session *sessions.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.sessions[session.ID] = session.Clone()
	return nil
}

func (r *FakeSessionRepo) FindActive(_ context.Context, id, userID string) (*sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	s, ok := r.active(id, userID)
	if !ok {
		return nil, persistence.ErrNoRecord
	}
	return s.Clone(), nil
}

func (r *FakeSessionRepo) RotateTokens(_ context.Context, id, currentRefresh, access, refresh string, now time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	s, ok := r.sessions[id]
	if !ok || !s.IsActive || s.IsDeleted() || s.RefreshToken != currentRefresh {
		return persistence.ErrNoRecord
	}
	s.AccessToken = access
	s.RefreshToken = refresh
	s.LastActivityAt = now
	s.Touch(now)
	return nil
}

func (r *FakeSessionRepo) Touch(_ context.Context, id string, now time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	s, ok := r.sessions[id]
	if !ok || !s.IsActive || s.IsDeleted() {
		return persistence.ErrNoRecord
	}
	s.LastActivityAt = now
	s.Touch(now)
	return nil
}

func (r *FakeSessionRepo) Revoke(_ context.Context, id, userID string, reason sessions.RevokeReason, now time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	s, ok := r.active(id, userID)
	if !ok {
		return persistence.ErrNoRecord
	}
	revoke(s, reason, now)
	return nil
}

func (r *FakeSessionRepo) RevokeAll(_ context.Context, userID string, reason sessions.RevokeReason, now time.Time) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var n int64
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive && !s.IsDeleted() {
			revoke(s, reason, now)
			n++
		}
	}
	return n, nil
}

func (r *FakeSessionRepo) RevokeByDevice(_ context.Context, userID, deviceID string, reason sessions.RevokeReason, now time.Time) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var n int64
	for _, s := range r.sessions {
		if s.UserID == userID && s.DeviceID == deviceID && s.IsActive && !s.IsDeleted() {
			revoke(s, reason, now)
			n++
		}
	}
	return n, nil
}

func (r *FakeSessionRepo) ListActive(_ context.Context, userID string) ([]*sessions.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	list := make([]*sessions.Session, 0)
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive && !s.IsDeleted() {
			list = append(list, s.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].LastActivityAt.After(list[j].LastActivityAt)
	})
	return list, nil
}

// Get returns any stored session, active or not. Used by tests.
func (r *FakeSessionRepo) Get(id string) (*sessions.Session, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (r *FakeSessionRepo) active(id, userID string) (*sessions.Session, bool) {
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID || !s.IsActive || s.IsDeleted() {
		return nil, false
	}
	return s, true
}

func revoke(s *sessions.Session, reason sessions.RevokeReason, now time.Time) {
	s.IsActive = false
	s.RevokedAt = &now
	s.RevokeReason = reason
	s.Touch(now)
}
