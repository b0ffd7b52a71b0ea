package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/regenmon/internal/platform/errors"
	"github.com/louisbranch/regenmon/internal/platform/id"
	"github.com/louisbranch/regenmon/internal/platform/requestctx"
	"github.com/louisbranch/regenmon/internal/services/companion/domain"
	"github.com/louisbranch/regenmon/internal/services/companion/storage"
)

// Stores groups the storage interfaces the service depends on.
type Stores struct {
	Users      storage.UserStore
	Companions storage.CompanionStore
	Actions    storage.ActionStore
}

// Service implements every companion operation.
type Service struct {
	stores      Stores
	clock       func() time.Time
	idGenerator func() (string, error)
	actionID    func() string
	rng         domain.RNG
	tracer      trace.Tracer
}

// NewService creates a Service with default clock and id generation.
// The RNG must be goroutine-safe; reward rolls happen on request paths.
func NewService(stores Stores, rng domain.RNG) *Service {
	return &Service{
		stores:      stores,
		clock:       time.Now,
		idGenerator: id.NewID,
		actionID:    func() string { return ulid.Make().String() },
		rng:         rng,
		tracer:      otel.Tracer("companion"),
	}
}

// ErrUnauthenticated is returned when no caller identity was resolved.
var ErrUnauthenticated = apperrors.New(apperrors.CodeUnauthenticated, "caller identity is required")

// ErrUserNotFound is returned when the identity has no stored profile.
var ErrUserNotFound = apperrors.New(apperrors.CodeUserNotFound, "user profile not found")

// ErrCompanionNotFound is returned when the referenced companion is missing.
var ErrCompanionNotFound = apperrors.New(apperrors.CodeCompanionNotFound, "companion not found")

// resolveUser maps the request identity to its stored profile.
func (s *Service) resolveUser(ctx context.Context) (domain.User, error) {
	identity, ok := requestctx.IdentityFromContext(ctx)
	if !ok {
		return domain.User{}, ErrUnauthenticated
	}
	user, err := s.stores.Users.GetUserByToken(ctx, identity.TokenIdentifier)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// ownedCompanion loads the companion and enforces caller ownership. A
// companion owned by someone else reads as not found so ids cannot be probed.
func (s *Service) ownedCompanion(ctx context.Context, companionID string) (domain.User, domain.Companion, error) {
	user, err := s.resolveUser(ctx)
	if err != nil {
		return domain.User{}, domain.Companion{}, err
	}
	companion, err := s.stores.Companions.GetCompanion(ctx, companionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.User{}, domain.Companion{}, ErrCompanionNotFound
		}
		return domain.User{}, domain.Companion{}, fmt.Errorf("load companion: %w", err)
	}
	if companion.OwnerID != user.ID {
		return domain.User{}, domain.Companion{}, ErrCompanionNotFound
	}
	return user, companion, nil
}

// StoreUser creates or refreshes the caller's profile. Called on login.
func (s *Service) StoreUser(ctx context.Context, name string) (domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "companion.StoreUser")
	defer span.End()

	identity, ok := requestctx.IdentityFromContext(ctx)
	if !ok {
		return domain.User{}, ErrUnauthenticated
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(identity.Name)
	}

	existing, err := s.stores.Users.GetUserByToken(ctx, identity.TokenIdentifier)
	if err == nil {
		if name != "" && name != existing.Name {
			existing.Name = name
			if err := s.stores.Users.PutUser(ctx, existing); err != nil {
				return domain.User{}, fmt.Errorf("update user: %w", err)
			}
		}
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}

	if name == "" {
		name = domain.DefaultUserName
	}
	userID, err := s.idGenerator()
	if err != nil {
		return domain.User{}, fmt.Errorf("generate user id: %w", err)
	}
	user := domain.User{
		ID:              userID,
		TokenIdentifier: identity.TokenIdentifier,
		Name:            name,
		TutorialsSeen:   []string{},
	}
	if err := s.stores.Users.PutUser(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// GetUser returns the caller's profile.
func (s *Service) GetUser(ctx context.Context) (domain.User, error) {
	return s.resolveUser(ctx)
}

// MarkTutorialSeen records a dismissed tutorial, at most once per id.
func (s *Service) MarkTutorialSeen(ctx context.Context, tutorialID string) error {
	tutorialID = strings.TrimSpace(tutorialID)
	if tutorialID == "" {
		return apperrors.New(apperrors.CodeValidation, "tutorial id is required")
	}
	user, err := s.resolveUser(ctx)
	if err != nil {
		return err
	}
	if user.HasSeenTutorial(tutorialID) {
		return nil
	}
	user.TutorialsSeen = append(user.TutorialsSeen, tutorialID)
	if err := s.stores.Users.PutUser(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// Hatch creates a new companion for the caller, replacing any existing one
// along with its entire action log.
func (s *Service) Hatch(ctx context.Context, name, archetypeID string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "companion.Hatch")
	defer span.End()

	user, err := s.resolveUser(ctx)
	if err != nil {
		return "", err
	}

	companionID, err := s.idGenerator()
	if err != nil {
		return "", fmt.Errorf("generate companion id: %w", err)
	}
	companion, err := domain.NewCompanion(companionID, user.ID, name, archetypeID, s.rng, s.clock().UTC())
	if err != nil {
		return "", err
	}
	if err := s.stores.Companions.Hatch(ctx, companion); err != nil {
		return "", fmt.Errorf("hatch companion: %w", err)
	}
	return companionID, nil
}

// CompanionView is the read model returned by Get: the stored companion
// merged with recent history and the derived, never-persisted clock values.
type CompanionView struct {
	Companion domain.Companion
	History   []domain.Action
	Evolution domain.Evolution
	Mood      domain.Mood
}

// Get returns the caller's companion view, or nil when none exists.
func (s *Service) Get(ctx context.Context) (*CompanionView, error) {
	user, err := s.resolveUser(ctx)
	if err != nil {
		return nil, err
	}

	companion, err := s.stores.Companions.GetCompanionByOwner(ctx, user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load companion: %w", err)
	}

	history, err := s.stores.Actions.ListRecentActions(ctx, companion.ID, storage.RecentActionLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	now := s.clock().UTC()
	return &CompanionView{
		Companion: companion,
		History:   history,
		Evolution: domain.ComputeEvolution(companion.CreatedAt, now),
		Mood:      companion.Stats.Mood(),
	}, nil
}

// ActionResult reports the post-action gauges and balance.
type ActionResult struct {
	Stats domain.Stats
	Coins int
}

// ApplyAction charges the flat fee and raises the mapped stat. The stat
// update, coin debit and log append commit as one unit or not at all.
func (s *Service) ApplyAction(ctx context.Context, companionID string, actionType domain.ActionType) (ActionResult, error) {
	ctx, span := s.tracer.Start(ctx, "companion.ApplyAction")
	defer span.End()

	if !actionType.IsStatAction() {
		return ActionResult{}, apperrors.WithMetadata(
			apperrors.CodeValidation,
			"action type must be feed, play or sleep",
			map[string]string{"ActionType": string(actionType)},
		)
	}
	if _, _, err := s.ownedCompanion(ctx, companionID); err != nil {
		return ActionResult{}, err
	}

	now := s.clock().UTC()
	updated, err := s.stores.Companions.Mutate(ctx, companionID, func(view storage.MutationView) (domain.Companion, []domain.Action, error) {
		companion, change, err := domain.ApplyStatAction(view.Companion(), actionType)
		if err != nil {
			return domain.Companion{}, nil, err
		}
		action := domain.Action{
			ID:          s.actionID(),
			CompanionID: companion.ID,
			Type:        actionType,
			Details:     change,
			Timestamp:   now,
		}
		return companion, []domain.Action{action}, nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ActionResult{}, ErrCompanionNotFound
		}
		return ActionResult{}, err
	}
	return ActionResult{Stats: updated.Stats, Coins: updated.Coins}, nil
}

// Chat logs a chat interaction and, when the caller requests evaluation,
// rolls the server-side reward. The flag only gates whether a roll happens;
// the outcome and amount are always decided here.
func (s *Service) Chat(ctx context.Context, companionID, message string, rewardEligible bool) (int, error) {
	ctx, span := s.tracer.Start(ctx, "companion.Chat")
	defer span.End()

	if strings.TrimSpace(message) == "" {
		return 0, apperrors.New(apperrors.CodeValidation, "chat message is required")
	}
	if _, _, err := s.ownedCompanion(ctx, companionID); err != nil {
		return 0, err
	}

	now := s.clock().UTC()
	award := 0
	if rewardEligible {
		award = domain.RollChatReward(s.rng)
	}

	_, err := s.stores.Companions.Mutate(ctx, companionID, func(view storage.MutationView) (domain.Companion, []domain.Action, error) {
		companion := view.Companion()
		var actions []domain.Action
		if award > 0 {
			companion.Coins += award
			actions = append(actions, domain.Action{
				ID:          s.actionID(),
				CompanionID: companion.ID,
				Type:        domain.ActionEarn,
				Details:     domain.CoinGrant{Amount: award, Source: domain.EarnSourceChat},
				Timestamp:   now,
			})
		}
		actions = append(actions, domain.Action{
			ID:          s.actionID(),
			CompanionID: companion.ID,
			Type:        domain.ActionChat,
			Details:     domain.ChatMessage{Message: message},
			Timestamp:   now,
		})
		return companion, actions, nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrCompanionNotFound
		}
		return 0, err
	}
	return award, nil
}

// ClaimDailyReward credits the fixed daily bonus, capped per calendar day.
func (s *Service) ClaimDailyReward(ctx context.Context, companionID string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "companion.ClaimDailyReward")
	defer span.End()

	if _, _, err := s.ownedCompanion(ctx, companionID); err != nil {
		return 0, err
	}

	now := s.clock().UTC()
	updated, err := s.stores.Companions.Mutate(ctx, companionID, func(view storage.MutationView) (domain.Companion, []domain.Action, error) {
		companion, grant, err := domain.ClaimDailyReward(view.Companion(), now)
		if err != nil {
			return domain.Companion{}, nil, err
		}
		action := domain.Action{
			ID:          s.actionID(),
			CompanionID: companion.ID,
			Type:        domain.ActionEarn,
			Details:     grant,
			Timestamp:   now,
		}
		return companion, []domain.Action{action}, nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrCompanionNotFound
		}
		return 0, err
	}
	return updated.Coins, nil
}

// Reset deletes the caller's companion and its entire action log.
func (s *Service) Reset(ctx context.Context, companionID string) error {
	ctx, span := s.tracer.Start(ctx, "companion.Reset")
	defer span.End()

	if _, _, err := s.ownedCompanion(ctx, companionID); err != nil {
		return err
	}
	if err := s.stores.Companions.DeleteCompanion(ctx, companionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrCompanionNotFound
		}
		return fmt.Errorf("delete companion: %w", err)
	}
	return nil
}
