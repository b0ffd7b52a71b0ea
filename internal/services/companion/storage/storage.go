// Package storage defines the persistence interfaces for the companion
// service. The engine owns no storage mechanics: implementations must supply
// per-companion atomic read-modify-write so two concurrent mutations can never
// both commit against the same stale state.
package storage

import (
	"context"

	apperrors "github.com/louisbranch/regenmon/internal/platform/errors"
	"github.com/louisbranch/regenmon/internal/services/companion/domain"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such entity" states
// and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// RecentActionLimit is how many log entries Get merges into the companion view.
const RecentActionLimit = 10

// UserStore persists user profiles keyed by identity token.
type UserStore interface {
	// PutUser inserts or fully replaces a user profile.
	PutUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserByToken(ctx context.Context, tokenIdentifier string) (domain.User, error)
}

// MutationView exposes the transaction-scoped state a mutation may consult.
type MutationView interface {
	// Companion returns the row as read inside the transaction.
	Companion() domain.Companion
	// HasActionOrigin reports whether any log entry for this companion
	// already carries the given idempotency key.
	HasActionOrigin(originID string) (bool, error)
}

// MutateFunc computes the post-mutation companion and the log entries to
// append. Returning an error aborts the transaction with nothing written.
type MutateFunc func(view MutationView) (domain.Companion, []domain.Action, error)

// CompanionStore owns the companion document and its append-only action log.
type CompanionStore interface {
	// Hatch replaces any existing companion for the owner: the previous
	// companion and its entire action log are deleted and c is inserted,
	// all in one transaction.
	Hatch(ctx context.Context, c domain.Companion) error
	GetCompanion(ctx context.Context, id string) (domain.Companion, error)
	GetCompanionByOwner(ctx context.Context, ownerID string) (domain.Companion, error)
	// Mutate runs fn against the current companion inside a single
	// transaction. The returned companion and appended actions commit
	// atomically, or nothing does.
	Mutate(ctx context.Context, id string, fn MutateFunc) (domain.Companion, error)
	// DeleteCompanion removes every action referencing the companion and
	// then the companion itself.
	DeleteCompanion(ctx context.Context, id string) error
}

// ActionStore reads the append-only log.
type ActionStore interface {
	// ListRecentActions returns up to limit entries in descending time order.
	ListRecentActions(ctx context.Context, companionID string, limit int) ([]domain.Action, error)
}
