package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/regenmon/internal/services/companion/domain"
	"github.com/louisbranch/regenmon/internal/services/companion/storage"
)

const companionColumns = `
id, owner_id, name, archetype_id, happiness, energy, hunger, coins,
created_at, daily_rewards_claimed, last_daily_reward, evolution_bonus,
is_game_over, game_over_at`

// Hatch replaces any existing companion for the owner inside one transaction.
func (s *Store) Hatch(ctx context.Context, c domain.Companion) error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("companion id is required")
	}
	if strings.TrimSpace(c.OwnerID) == "" {
		return fmt.Errorf("companion owner id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin hatch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	prev, err := getCompanionByOwner(ctx, tx, c.OwnerID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if err == nil {
		if err := deleteCompanionCascade(ctx, tx, prev.ID); err != nil {
			return err
		}
	}

	if err := insertCompanion(ctx, tx, c); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit hatch: %w", err)
	}
	return nil
}

// GetCompanion fetches a companion by id.
func (s *Store) GetCompanion(ctx context.Context, id string) (domain.Companion, error) {
	return getCompanion(ctx, s.sqlDB, id)
}

// GetCompanionByOwner fetches the owner's active companion.
func (s *Store) GetCompanionByOwner(ctx context.Context, ownerID string) (domain.Companion, error) {
	return getCompanionByOwner(ctx, s.sqlDB, ownerID)
}

// Mutate runs fn against the current companion inside a single immediate
// transaction. The updated companion and appended actions commit atomically.
func (s *Store) Mutate(ctx context.Context, id string, fn storage.MutateFunc) (domain.Companion, error) {
	if fn == nil {
		return domain.Companion{}, fmt.Errorf("mutate function is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Companion{}, fmt.Errorf("begin mutate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := getCompanion(ctx, tx, id)
	if err != nil {
		return domain.Companion{}, err
	}

	view := &mutationView{ctx: ctx, tx: tx, companion: current}
	updated, actions, err := fn(view)
	if err != nil {
		return domain.Companion{}, err
	}

	if err := updateCompanion(ctx, tx, updated); err != nil {
		return domain.Companion{}, err
	}
	for _, action := range actions {
		if err := insertAction(ctx, tx, action); err != nil {
			return domain.Companion{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Companion{}, fmt.Errorf("commit mutate: %w", err)
	}
	return updated, nil
}

// DeleteCompanion removes the companion and its entire action log.
func (s *Store) DeleteCompanion(ctx context.Context, id string) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := getCompanion(ctx, tx, id); err != nil {
		return err
	}
	if err := deleteCompanionCascade(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// mutationView exposes transaction-scoped reads to MutateFunc callbacks.
type mutationView struct {
	ctx       context.Context
	tx        *sql.Tx
	companion domain.Companion
}

func (v *mutationView) Companion() domain.Companion {
	return v.companion
}

func (v *mutationView) HasActionOrigin(originID string) (bool, error) {
	if strings.TrimSpace(originID) == "" {
		return false, nil
	}
	const query = `SELECT COUNT(1) FROM actions WHERE companion_id = ? AND origin_id = ?`
	var count int
	if err := v.tx.QueryRowContext(v.ctx, query, v.companion.ID, originID).Scan(&count); err != nil {
		return false, fmt.Errorf("check action origin: %w", err)
	}
	return count > 0, nil
}

func insertCompanion(ctx context.Context, q querier, c domain.Companion) error {
	const query = `
INSERT INTO companions (` + companionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := q.ExecContext(ctx, query,
		c.ID, c.OwnerID, c.Name, c.ArchetypeID,
		c.Stats.Happiness, c.Stats.Energy, c.Stats.Hunger, c.Coins,
		toMillis(c.CreatedAt), c.DailyRewardsClaimed, toMillis(c.LastDailyReward),
		c.EvolutionBonus, boolToInt(c.IsGameOver), toNullMillis(c.GameOverAt),
	)
	if err != nil {
		return fmt.Errorf("insert companion: %w", err)
	}
	return nil
}

func updateCompanion(ctx context.Context, q querier, c domain.Companion) error {
	const query = `
UPDATE companions SET
    name = ?, archetype_id = ?, happiness = ?, energy = ?, hunger = ?,
    coins = ?, daily_rewards_claimed = ?, last_daily_reward = ?,
    evolution_bonus = ?, is_game_over = ?, game_over_at = ?
WHERE id = ?`
	result, err := q.ExecContext(ctx, query,
		c.Name, c.ArchetypeID, c.Stats.Happiness, c.Stats.Energy, c.Stats.Hunger,
		c.Coins, c.DailyRewardsClaimed, toMillis(c.LastDailyReward),
		c.EvolutionBonus, boolToInt(c.IsGameOver), toNullMillis(c.GameOverAt),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("update companion: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update companion rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func getCompanion(ctx context.Context, q querier, id string) (domain.Companion, error) {
	const query = `SELECT ` + companionColumns + ` FROM companions WHERE id = ?`
	return scanCompanion(q.QueryRowContext(ctx, query, id))
}

func getCompanionByOwner(ctx context.Context, q querier, ownerID string) (domain.Companion, error) {
	const query = `SELECT ` + companionColumns + ` FROM companions WHERE owner_id = ?`
	return scanCompanion(q.QueryRowContext(ctx, query, ownerID))
}

func deleteCompanionCascade(ctx context.Context, q querier, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM actions WHERE companion_id = ?`, id); err != nil {
		return fmt.Errorf("delete companion actions: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM companions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete companion: %w", err)
	}
	return nil
}

func scanCompanion(row *sql.Row) (domain.Companion, error) {
	var c domain.Companion
	var createdAt, lastDaily int64
	var gameOver int
	var gameOverAt sql.NullInt64
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.ArchetypeID,
		&c.Stats.Happiness, &c.Stats.Energy, &c.Stats.Hunger, &c.Coins,
		&createdAt, &c.DailyRewardsClaimed, &lastDaily,
		&c.EvolutionBonus, &gameOver, &gameOverAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Companion{}, storage.ErrNotFound
		}
		return domain.Companion{}, fmt.Errorf("scan companion: %w", err)
	}
	c.CreatedAt = fromMillis(createdAt)
	c.LastDailyReward = fromMillis(lastDaily)
	c.IsGameOver = gameOver != 0
	c.GameOverAt = fromNullMillis(gameOverAt)
	return c, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
