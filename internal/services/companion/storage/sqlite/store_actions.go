package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/louisbranch/regenmon/internal/services/companion/domain"
	"github.com/louisbranch/regenmon/internal/services/companion/storage"
)

// ListRecentActions returns up to limit log entries, newest first.
func (s *Store) ListRecentActions(ctx context.Context, companionID string, limit int) ([]domain.Action, error) {
	if limit <= 0 {
		limit = storage.RecentActionLimit
	}
	const query = `
SELECT id, companion_id, type, details, timestamp
FROM actions
WHERE companion_id = ?
ORDER BY timestamp DESC, id DESC
LIMIT ?`
	rows, err := s.sqlDB.QueryContext(ctx, query, companionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var actions []domain.Action
	for rows.Next() {
		var a domain.Action
		var details string
		var ts int64
		if err := rows.Scan(&a.ID, &a.CompanionID, &a.Type, &details, &ts); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		a.Timestamp = fromMillis(ts)
		a.Details, err = decodeDetails(details)
		if err != nil {
			return nil, fmt.Errorf("decode action %s: %w", a.ID, err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read actions: %w", err)
	}
	return actions, nil
}

func insertAction(ctx context.Context, q querier, a domain.Action) error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("action id is required")
	}
	if !a.Type.Valid() {
		return fmt.Errorf("action type %q is invalid", a.Type)
	}

	details, err := encodeDetails(a.Details)
	if err != nil {
		return fmt.Errorf("encode action details: %w", err)
	}

	var origin sql.NullString
	if key := a.OriginID(); key != "" {
		origin = sql.NullString{String: key, Valid: true}
	}

	const query = `
INSERT INTO actions (id, companion_id, type, details, origin_id, timestamp)
VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := q.ExecContext(ctx, query, a.ID, a.CompanionID, string(a.Type), details, origin, toMillis(a.Timestamp)); err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

// detailsEnvelope is the persisted form of the details union. Kind selects the
// variant so decoding stays exhaustive.
type detailsEnvelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

const (
	detailsKindStatChange  = "stat_change"
	detailsKindCoinGrant   = "coin_grant"
	detailsKindChatMessage = "chat_message"
	detailsKindImported    = "imported"
)

func encodeDetails(d domain.Details) (string, error) {
	var kind string
	switch d.(type) {
	case domain.StatChange:
		kind = detailsKindStatChange
	case domain.CoinGrant:
		kind = detailsKindCoinGrant
	case domain.ChatMessage:
		kind = detailsKindChatMessage
	case domain.Imported:
		kind = detailsKindImported
	default:
		return "", fmt.Errorf("unknown details variant %T", d)
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(detailsEnvelope{Kind: kind, Payload: payload})
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeDetails(encoded string) (domain.Details, error) {
	var envelope detailsEnvelope
	if err := json.Unmarshal([]byte(encoded), &envelope); err != nil {
		return nil, err
	}
	switch envelope.Kind {
	case detailsKindStatChange:
		var d domain.StatChange
		if err := json.Unmarshal(envelope.Payload, &d); err != nil {
			return nil, err
		}
		return d, nil
	case detailsKindCoinGrant:
		var d domain.CoinGrant
		if err := json.Unmarshal(envelope.Payload, &d); err != nil {
			return nil, err
		}
		return d, nil
	case detailsKindChatMessage:
		var d domain.ChatMessage
		if err := json.Unmarshal(envelope.Payload, &d); err != nil {
			return nil, err
		}
		return d, nil
	case detailsKindImported:
		var d domain.Imported
		if err := json.Unmarshal(envelope.Payload, &d); err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown details kind %q", envelope.Kind)
}
