package domain

import "time"

// ActionType tags an append-only log entry.
type ActionType string

const (
	ActionFeed  ActionType = "feed"
	ActionPlay  ActionType = "play"
	ActionSleep ActionType = "sleep"
	ActionEarn  ActionType = "earn"
	ActionChat  ActionType = "chat"
)

// Valid reports whether t is a known action type.
func (t ActionType) Valid() bool {
	switch t {
	case ActionFeed, ActionPlay, ActionSleep, ActionEarn, ActionChat:
		return true
	}
	return false
}

// IsStatAction reports whether t is one of the paid stat-raising actions.
func (t ActionType) IsStatAction() bool {
	switch t {
	case ActionFeed, ActionPlay, ActionSleep:
		return true
	}
	return false
}

// Stat returns the gauge raised by a paid stat action.
func (t ActionType) Stat() StatName {
	switch t {
	case ActionFeed:
		return StatHunger
	case ActionPlay:
		return StatHappiness
	case ActionSleep:
		return StatEnergy
	}
	return ""
}

// EarnSource tags where a coin credit came from.
type EarnSource string

const (
	EarnSourceChat  EarnSource = "chat"
	EarnSourceDaily EarnSource = "daily"
)

// Details is the closed set of action payload variants. Each log entry carries
// exactly one variant so handling stays exhaustive.
type Details interface {
	isDetails()
}

// StatChange records a paid stat action: the signed cost and the resulting
// gauge value.
type StatChange struct {
	Cost     int      `json:"cost"`
	Stat     StatName `json:"stat"`
	NewValue int      `json:"newValue"`
}

// CoinGrant records a coin credit and its source.
type CoinGrant struct {
	Amount int        `json:"amount"`
	Source EarnSource `json:"source"`
}

// ChatMessage records the content of a chat interaction.
type ChatMessage struct {
	Message string `json:"message"`
}

// Imported records a legacy history entry reconciled through the whole-object
// update path. OriginID is the client-side idempotency key.
type Imported struct {
	Amount   int    `json:"amount"`
	OriginID string `json:"originId"`
}

func (StatChange) isDetails()  {}
func (CoinGrant) isDetails()   {}
func (ChatMessage) isDetails() {}
func (Imported) isDetails()    {}

// Action is one append-only log entry for a companion.
type Action struct {
	ID          string
	CompanionID string
	Type        ActionType
	Details     Details
	Timestamp   time.Time
}

// OriginID returns the idempotency key for reconciled entries, or "".
func (a Action) OriginID() string {
	if d, ok := a.Details.(Imported); ok {
		return d.OriginID
	}
	return ""
}

// Amount returns the coin delta carried by the entry, or 0 for chat entries.
func (a Action) Amount() int {
	switch d := a.Details.(type) {
	case StatChange:
		return d.Cost
	case CoinGrant:
		return d.Amount
	case Imported:
		return d.Amount
	}
	return 0
}
