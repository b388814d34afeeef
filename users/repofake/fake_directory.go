package userrepofake

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-otp-auth/users"
)

var _ users.Directory = (*FakeDirectory)(nil)

// FakeDirectory is an in-memory user service.
type FakeDirectory struct {
	users       map[string]*users.Snapshot
	identifiers map[string]string // identifierType:identifier to user id
	logins      map[string][]users.LoginMetadata
	lock        sync.RWMutex

	// LookupErr and RecordLoginErr force failures when set.
	LookupErr      error
	RecordLoginErr error
}

func NewFakeDirectory() *FakeDirectory {
	return &FakeDirectory{
		users:       make(map[string]*users.Snapshot),
		identifiers: make(map[string]string),
		logins:      make(map[string][]users.LoginMetadata),
	}
}

func (d *FakeDirectory) LookupOrCreate(_ context.Context, req users.LookupRequest) (*users.Snapshot, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.LookupErr != nil {
		return nil, d.LookupErr
	}

	key := string(req.IdentifierType) + ":" + req.Identifier
	if id, ok := d.identifiers[key]; ok {
		cp := *d.users[id]
		return &cp, nil
	}

	user := &users.Snapshot{
		ID:              uuid.NewString(),
		Status:          "pending_setup",
		LifecycleState:  "onboarding",
		NeedsOnboarding: true,
	}
	if req.IdentifierType == users.IdentifierEmail {
		user.Email = req.Identifier
	} else {
		user.Phone = req.Identifier
	}
	d.users[user.ID] = user
	d.identifiers[key] = user.ID

	cp := *user
	return &cp, nil
}

func (d *FakeDirectory) RecordLogin(_ context.Context, userID string, meta users.LoginMetadata) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.RecordLoginErr != nil {
		return d.RecordLoginErr
	}
	if _, ok := d.users[userID]; !ok {
		return errors.New("user not found")
	}
	d.logins[userID] = append(d.logins[userID], meta)
	return nil
}

// Put stores a user and indexes its phone and email.
func (d *FakeDirectory) Put(user users.Snapshot) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.users[user.ID] = &user
	if user.Phone != "" {
		d.identifiers[string(users.IdentifierPhone)+":"+user.Phone] = user.ID
	}
	if user.Email != "" {
		d.identifiers[string(users.IdentifierEmail)+":"+user.Email] = user.ID
	}
}

func (d *FakeDirectory) Logins(userID string) []users.LoginMetadata {
	d.lock.RLock()
	defer d.lock.RUnlock()

	return append([]users.LoginMetadata(nil), d.logins[userID]...)
}
