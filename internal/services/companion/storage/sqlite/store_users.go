package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/regenmon/internal/services/companion/domain"
	"github.com/louisbranch/regenmon/internal/services/companion/storage"
)

// PutUser inserts or fully replaces a user profile.
func (s *Store) PutUser(ctx context.Context, u domain.User) error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(u.TokenIdentifier) == "" {
		return fmt.Errorf("user token identifier is required")
	}

	tutorials := u.TutorialsSeen
	if tutorials == nil {
		tutorials = []string{}
	}
	seen, err := json.Marshal(tutorials)
	if err != nil {
		return fmt.Errorf("marshal tutorials seen: %w", err)
	}

	const query = `
INSERT INTO users (id, token_identifier, name, tutorials_seen)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    token_identifier = excluded.token_identifier,
    name = excluded.name,
    tutorials_seen = excluded.tutorials_seen`
	if _, err := s.sqlDB.ExecContext(ctx, query, u.ID, u.TokenIdentifier, u.Name, string(seen)); err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetUser fetches a user profile by id.
func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	const query = `
SELECT id, token_identifier, name, tutorials_seen
FROM users WHERE id = ?`
	return scanUser(s.sqlDB.QueryRowContext(ctx, query, id))
}

// GetUserByToken fetches a user profile by identity token.
func (s *Store) GetUserByToken(ctx context.Context, tokenIdentifier string) (domain.User, error) {
	const query = `
SELECT id, token_identifier, name, tutorials_seen
FROM users WHERE token_identifier = ?`
	return scanUser(s.sqlDB.QueryRowContext(ctx, query, tokenIdentifier))
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var seen string
	if err := row.Scan(&u.ID, &u.TokenIdentifier, &u.Name, &seen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, storage.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	if err := json.Unmarshal([]byte(seen), &u.TutorialsSeen); err != nil {
		return domain.User{}, fmt.Errorf("unmarshal tutorials seen: %w", err)
	}
	return u, nil
}
