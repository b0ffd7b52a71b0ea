package app

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/regenmon/internal/services/companion/domain"
	"github.com/louisbranch/regenmon/internal/services/companion/storage"
)

// UpdatePatch carries the optional fields of the legacy whole-object update.
// Nil means "leave unchanged". Only informational fields skip validation;
// stats and coins are normalized so the storage invariants hold even on this
// path.
type UpdatePatch struct {
	Name           *string
	ArchetypeID    *string
	Stats          *domain.Stats
	Coins          *int
	EvolutionBonus *int
	IsGameOver     *bool
	GameOverAt     *time.Time
}

// HistoryEntry is one client-submitted history item. Only the head of the
// submitted sequence is ever inspected; ID is the idempotency key.
type HistoryEntry struct {
	ID     string
	Type   domain.ActionType
	Amount int
	Date   time.Time
}

// Update is the legacy "send the whole object" path retained for backward
// compatibility. It patches the provided fields and reconciles the history
// head against the action log, inserting at most once per idempotency key.
func (s *Service) Update(ctx context.Context, companionID string, patch UpdatePatch, history []HistoryEntry) error {
	ctx, span := s.tracer.Start(ctx, "companion.Update")
	defer span.End()

	if _, _, err := s.ownedCompanion(ctx, companionID); err != nil {
		return err
	}

	now := s.clock().UTC()
	_, err := s.stores.Companions.Mutate(ctx, companionID, func(view storage.MutationView) (domain.Companion, []domain.Action, error) {
		companion := view.Companion()

		if patch.Name != nil {
			companion.Name = *patch.Name
		}
		if patch.ArchetypeID != nil {
			companion.ArchetypeID = *patch.ArchetypeID
		}
		if patch.Stats != nil {
			companion.Stats = patch.Stats.Clamped()
		}
		if patch.Coins != nil {
			coins := *patch.Coins
			if coins < 0 {
				coins = 0
			}
			companion.Coins = coins
		}
		if patch.EvolutionBonus != nil {
			companion.EvolutionBonus = *patch.EvolutionBonus
		}
		if patch.IsGameOver != nil {
			companion.IsGameOver = *patch.IsGameOver
		}
		if patch.GameOverAt != nil {
			at := *patch.GameOverAt
			companion.GameOverAt = &at
		}

		actions, err := s.reconcileHistory(view, companion, history, now)
		if err != nil {
			return domain.Companion{}, nil, err
		}
		return companion, actions, nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrCompanionNotFound
		}
		return err
	}
	return nil
}

// reconcileHistory inspects only the head of the submitted sequence: older
// entries are assumed already reconciled by earlier calls. The head is
// inserted iff it carries a key no existing log entry has, which keeps
// retried submissions idempotent.
func (s *Service) reconcileHistory(view storage.MutationView, companion domain.Companion, history []HistoryEntry, now time.Time) ([]domain.Action, error) {
	if len(history) == 0 {
		return nil, nil
	}
	head := history[0]
	if head.ID == "" || !head.Type.Valid() {
		return nil, nil
	}

	duplicate, err := view.HasActionOrigin(head.ID)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return nil, nil
	}

	timestamp := head.Date
	if timestamp.IsZero() {
		timestamp = now
	}
	action := domain.Action{
		ID:          s.actionID(),
		CompanionID: companion.ID,
		Type:        head.Type,
		Details:     domain.Imported{Amount: head.Amount, OriginID: head.ID},
		Timestamp:   timestamp,
	}
	return []domain.Action{action}, nil
}
