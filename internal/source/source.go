// Package source defines the data collaborators the stores consume and
// ships the concrete implementations: an in-memory fixture, a SQL
// database and combinations thereof. An iCalendar feed lister lives in
// package ics.
package source

import (
	"context"
	"errors"

	"porschevents/internal/model"
)

var ErrUnavailable = errors.New("data source unavailable")

// EventLister provides the full event collection.
type EventLister interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
}

// UserFinder looks users up by email. A missing user is reported as
// (nil, nil), not as an error.
type UserFinder interface {
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// UserRegistrar is implemented by sources that can persist new users.
type UserRegistrar interface {
	CreateUser(ctx context.Context, u model.User) error
}

// Source is the complete collaborator: events and users.
type Source interface {
	EventLister
	UserFinder
}

type combined struct {
	EventLister
	UserFinder
}

// Combine builds a Source from separate event and user providers. If
// users also implements UserRegistrar, so does the result.
func Combine(events EventLister, users UserFinder) Source {
	c := combined{EventLister: events, UserFinder: users}
	if reg, ok := users.(UserRegistrar); ok {
		return combinedRegistrar{combined: c, reg: reg}
	}
	return c
}

type combinedRegistrar struct {
	combined
	reg UserRegistrar
}

func (c combinedRegistrar) CreateUser(ctx context.Context, u model.User) error {
	return c.reg.CreateUser(ctx, u)
}
