package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/regenmon/internal/services/companion/domain"
	"github.com/louisbranch/regenmon/internal/services/companion/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "companion.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testCompanion(id, ownerID string) domain.Companion {
	return domain.Companion{
		ID:          id,
		OwnerID:     ownerID,
		Name:        "Spore",
		ArchetypeID: "verdant",
		Stats:       domain.Stats{Happiness: 50, Energy: 50, Hunger: 50},
		Coins:       100,
		CreatedAt:   time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(" "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestUserPutGetRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	u := domain.User{ID: "user-1", TokenIdentifier: "token|abc", Name: "Trainer", TutorialsSeen: []string{"intro"}}
	if err := store.PutUser(ctx, u); err != nil {
		t.Fatalf("put user: %v", err)
	}

	byID, err := store.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if byID.Name != "Trainer" || len(byID.TutorialsSeen) != 1 {
		t.Fatalf("unexpected user %+v", byID)
	}

	byToken, err := store.GetUserByToken(ctx, "token|abc")
	if err != nil {
		t.Fatalf("get user by token: %v", err)
	}
	if byToken.ID != "user-1" {
		t.Fatalf("expected user-1, got %s", byToken.ID)
	}
}

func TestUserPutUpdatesInPlace(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	u := domain.User{ID: "user-1", TokenIdentifier: "token|abc", Name: "Trainer"}
	if err := store.PutUser(ctx, u); err != nil {
		t.Fatalf("put user: %v", err)
	}
	u.Name = "Renamed"
	u.TutorialsSeen = []string{"intro", "chat"}
	if err := store.PutUser(ctx, u); err != nil {
		t.Fatalf("update user: %v", err)
	}

	got, err := store.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Name != "Renamed" || len(got.TutorialsSeen) != 2 {
		t.Fatalf("unexpected user %+v", got)
	}
}

func TestGetUserNotFound(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.GetUser(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHatchInsertAndFetch(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	c := testCompanion("comp-1", "user-1")
	if err := store.Hatch(ctx, c); err != nil {
		t.Fatalf("hatch: %v", err)
	}

	got, err := store.GetCompanion(ctx, "comp-1")
	if err != nil {
		t.Fatalf("get companion: %v", err)
	}
	if got.OwnerID != "user-1" || got.Coins != 100 {
		t.Fatalf("unexpected companion %+v", got)
	}
	if !got.CreatedAt.Equal(c.CreatedAt) {
		t.Fatalf("expected createdAt %s, got %s", c.CreatedAt, got.CreatedAt)
	}
	if !got.LastDailyReward.IsZero() {
		t.Fatalf("expected zero lastDailyReward, got %s", got.LastDailyReward)
	}

	byOwner, err := store.GetCompanionByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("get by owner: %v", err)
	}
	if byOwner.ID != "comp-1" {
		t.Fatalf("expected comp-1, got %s", byOwner.ID)
	}
}

func TestHatchReplacesExistingAndItsLog(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Hatch(ctx, testCompanion("comp-1", "user-1")); err != nil {
		t.Fatalf("first hatch: %v", err)
	}
	appendTestAction(t, store, "comp-1", "act-1")

	if err := store.Hatch(ctx, testCompanion("comp-2", "user-1")); err != nil {
		t.Fatalf("second hatch: %v", err)
	}

	if _, err := store.GetCompanion(ctx, "comp-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected old companion gone, got %v", err)
	}
	actions, err := store.ListRecentActions(ctx, "comp-1", 10)
	if err != nil {
		t.Fatalf("list old actions: %v", err)
	}
	if len(actions) != 0 {
		t.Fatalf("expected old action log deleted, got %d entries", len(actions))
	}

	current, err := store.GetCompanionByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("get by owner: %v", err)
	}
	if current.ID != "comp-2" {
		t.Fatalf("expected comp-2 active, got %s", current.ID)
	}
}

func TestMutateCommitsStateAndLogTogether(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Hatch(ctx, testCompanion("comp-1", "user-1")); err != nil {
		t.Fatalf("hatch: %v", err)
	}

	updated, err := store.Mutate(ctx, "comp-1", func(view storage.MutationView) (domain.Companion, []domain.Action, error) {
		c := view.Companion()
		c.Coins -= 10
		c.Stats.Hunger = 60
		action := domain.Action{
			ID:          "act-1",
			CompanionID: c.ID,
			Type:        domain.ActionFeed,
			Details:     domain.StatChange{Cost: -10, Stat: domain.StatHunger, NewValue: 60},
			Timestamp:   time.Now().UTC(),
		}
		return c, []domain.Action{action}, nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if updated.Coins != 90 {
		t.Fatalf("expected coins 90, got %d", updated.Coins)
	}

	actions, err := store.ListRecentActions(ctx, "comp-1", 10)
	if err != nil {
		t.Fatalf("list actions: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("expected one log entry, got %d", len(actions))
	}
	change, ok := actions[0].Details.(domain.StatChange)
	if !ok {
		t.Fatalf("expected StatChange details, got %T", actions[0].Details)
	}
	if change.Cost != -10 || change.Stat != domain.StatHunger || change.NewValue != 60 {
		t.Fatalf("unexpected details %+v", change)
	}
}

func TestMutateRollsBackEverythingOnError(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Hatch(ctx, testCompanion("comp-1", "user-1")); err != nil {
		t.Fatalf("hatch: %v", err)
	}

	boom := errors.New("insufficient funds")
	_, err := store.Mutate(ctx, "comp-1", func(view storage.MutationView) (domain.Companion, []domain.Action, error) {
		c := view.Companion()
		c.Coins = 0
		return c, nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	got, err := store.GetCompanion(ctx, "comp-1")
	if err != nil {
		t.Fatalf("get companion: %v", err)
	}
	if got.Coins != 100 {
		t.Fatalf("expected coins untouched at 100, got %d", got.Coins)
	}
	actions, err := store.ListRecentActions(ctx, "comp-1", 10)
	if err != nil {
		t.Fatalf("list actions: %v", err)
	}
	if len(actions) != 0 {
		t.Fatalf("expected no log entries, got %d", len(actions))
	}
}

func TestMutateConcurrentFeedsOnlyOneSucceeds(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	c := testCompanion("comp-1", "user-1")
	c.Coins = domain.ActionCost
	if err := store.Hatch(ctx, c); err != nil {
		t.Fatalf("hatch: %v", err)
	}

	feed := func(actionID string) error {
		_, err := store.Mutate(ctx, "comp-1", func(view storage.MutationView) (domain.Companion, []domain.Action, error) {
			updated, change, err := domain.ApplyStatAction(view.Companion(), domain.ActionFeed)
			if err != nil {
				return domain.Companion{}, nil, err
			}
			action := domain.Action{
				ID:          actionID,
				CompanionID: updated.ID,
				Type:        domain.ActionFeed,
				Details:     change,
				Timestamp:   time.Now().UTC(),
			}
			return updated, []domain.Action{action}, nil
		})
		return err
	}

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- feed(fmt.Sprintf("act-%d", i))
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientFunds):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || rejected != 1 {
		t.Fatalf("expected one success and one rejection, got %d/%d", succeeded, rejected)
	}

	got, err := store.GetCompanion(ctx, "comp-1")
	if err != nil {
		t.Fatalf("get companion: %v", err)
	}
	if got.Coins != 0 {
		t.Fatalf("expected coins 0, got %d", got.Coins)
	}
	actions, err := store.ListRecentActions(ctx, "comp-1", 10)
	if err != nil {
		t.Fatalf("list actions: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(actions))
	}
}

func TestMutateNotFound(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Mutate(context.Background(), "missing", func(view storage.MutationView) (domain.Companion, []domain.Action, error) {
		return view.Companion(), nil, nil
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMutateHasActionOrigin(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Hatch(ctx, testCompanion("comp-1", "user-1")); err != nil {
		t.Fatalf("hatch: %v", err)
	}

	insert := func(wantInserted bool) {
		t.Helper()
		_, err := store.Mutate(ctx, "comp-1", func(view storage.MutationView) (domain.Companion, []domain.Action, error) {
			dup, err := view.HasActionOrigin("legacy-42")
			if err != nil {
				return domain.Companion{}, nil, err
			}
			if dup {
				if wantInserted {
					t.Fatal("expected origin to be new")
				}
				return view.Companion(), nil, nil
			}
			if !wantInserted {
				t.Fatal("expected origin to be a duplicate")
			}
			action := domain.Action{
				ID:          fmt.Sprintf("act-%t", wantInserted),
				CompanionID: "comp-1",
				Type:        domain.ActionEarn,
				Details:     domain.Imported{Amount: 5, OriginID: "legacy-42"},
				Timestamp:   time.Now().UTC(),
			}
			return view.Companion(), []domain.Action{action}, nil
		})
		if err != nil {
			t.Fatalf("mutate: %v", err)
		}
	}

	insert(true)
	insert(false)

	actions, err := store.ListRecentActions(ctx, "comp-1", 10)
	if err != nil {
		t.Fatalf("list actions: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("expected exactly one reconciled entry, got %d", len(actions))
	}
	if actions[0].OriginID() != "legacy-42" {
		t.Fatalf("expected origin id legacy-42, got %q", actions[0].OriginID())
	}
}

func TestListRecentActionsOrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Hatch(ctx, testCompanion("comp-1", "user-1")); err != nil {
		t.Fatalf("hatch: %v", err)
	}

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	for i := range 12 {
		_, err := store.Mutate(ctx, "comp-1", func(view storage.MutationView) (domain.Companion, []domain.Action, error) {
			action := domain.Action{
				ID:          fmt.Sprintf("act-%02d", i),
				CompanionID: "comp-1",
				Type:        domain.ActionChat,
				Details:     domain.ChatMessage{Message: fmt.Sprintf("hello %d", i)},
				Timestamp:   base.Add(time.Duration(i) * time.Minute),
			}
			return view.Companion(), []domain.Action{action}, nil
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	actions, err := store.ListRecentActions(ctx, "comp-1", 10)
	if err != nil {
		t.Fatalf("list actions: %v", err)
	}
	if len(actions) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(actions))
	}
	if actions[0].ID != "act-11" {
		t.Fatalf("expected newest entry first, got %s", actions[0].ID)
	}
	for i := 1; i < len(actions); i++ {
		if actions[i].Timestamp.After(actions[i-1].Timestamp) {
			t.Fatal("expected descending time order")
		}
	}
}

func TestDeleteCompanionCascades(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Hatch(ctx, testCompanion("comp-1", "user-1")); err != nil {
		t.Fatalf("hatch: %v", err)
	}
	appendTestAction(t, store, "comp-1", "act-1")

	if err := store.DeleteCompanion(ctx, "comp-1"); err != nil {
		t.Fatalf("delete companion: %v", err)
	}

	if _, err := store.GetCompanion(ctx, "comp-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected companion gone, got %v", err)
	}
	actions, err := store.ListRecentActions(ctx, "comp-1", 10)
	if err != nil {
		t.Fatalf("list actions: %v", err)
	}
	if len(actions) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(actions))
	}
}

func TestDeleteCompanionNotFound(t *testing.T) {
	store := openTestStore(t)
	if err := store.DeleteCompanion(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func appendTestAction(t *testing.T, store *Store, companionID, actionID string) {
	t.Helper()
	_, err := store.Mutate(context.Background(), companionID, func(view storage.MutationView) (domain.Companion, []domain.Action, error) {
		action := domain.Action{
			ID:          actionID,
			CompanionID: companionID,
			Type:        domain.ActionChat,
			Details:     domain.ChatMessage{Message: "hi"},
			Timestamp:   time.Now().UTC(),
		}
		return view.Companion(), []domain.Action{action}, nil
	})
	if err != nil {
		t.Fatalf("append action: %v", err)
	}
}
