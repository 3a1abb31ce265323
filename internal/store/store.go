// Package store persists contacts. All implementations are safe for concurrent use and scope
// mutations to the owner of a contact with a single conditional statement.
package store

import (
	"context"

	"github.com/pkg/errors"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/model"
)

var (
	// ErrNotFound is returned when no contact with the requested id exists.
	ErrNotFound = errors.New("contact not found")
	// ErrNotOwner is returned when the contact exists but belongs to another user.
	ErrNotOwner = errors.New("contact belongs to another user")
)

// Store is the persistence contract of the contacts resource.
type Store interface {
	// FindByOwner returns the contacts of owner, newest first.
	FindByOwner(ctx context.Context, owner string) ([]model.Contact, error)
	// Create persists the contact and returns it with its assigned id.
	Create(ctx context.Context, contact model.Contact) (model.Contact, error)
	// FindByID returns ErrNotFound if the contact does not exist.
	FindByID(ctx context.Context, id string) (model.Contact, error)
	// UpdateOwned applies the update if the contact exists and belongs to owner, and returns the
	// contact after the update.
	UpdateOwned(ctx context.Context, id string, owner string, update model.ContactUpdate) (model.Contact, error)
	// DeleteOwned removes the contact if it exists and belongs to owner.
	DeleteOwned(ctx context.Context, id string, owner string) error
	// Ping checks that the backing database is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// classifyMiss explains why a conditional update or delete matched nothing.
func classifyMiss(ctx context.Context, s Store, id string) error {
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}
	return ErrNotOwner
}

// FindOwned returns the contact if it exists and belongs to owner. Updates that carry no values
// use it instead of writing anything.
func FindOwned(ctx context.Context, s Store, id string, owner string) (model.Contact, error) {
	contact, err := s.FindByID(ctx, id)
	if err != nil {
		return model.Contact{}, err
	}
	if !contact.OwnedBy(owner) {
		return model.Contact{}, ErrNotOwner
	}
	return contact, nil
}
