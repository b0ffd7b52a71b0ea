package domain

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/regenmon/internal/platform/errors"
)

// Stat bounds shared by every mutation path.
const (
	StatMin = 0
	StatMax = 100
)

// Hatch constants: starting balance and the randomized initial stat window.
const (
	StartingCoins   = 100
	InitialStatMin  = 25
	InitialStatSpan = 50
)

// StatName identifies one of the three bounded gauges.
type StatName string

const (
	StatHappiness StatName = "happiness"
	StatEnergy    StatName = "energy"
	StatHunger    StatName = "hunger"
)

// Stats holds the three bounded integer gauges.
type Stats struct {
	Happiness int `json:"happiness"`
	Energy    int `json:"energy"`
	Hunger    int `json:"hunger"`
}

// Clamped returns a copy with every gauge forced into [StatMin, StatMax].
func (s Stats) Clamped() Stats {
	return Stats{
		Happiness: clampStat(s.Happiness),
		Energy:    clampStat(s.Energy),
		Hunger:    clampStat(s.Hunger),
	}
}

// Get returns the named gauge value.
func (s Stats) Get(name StatName) int {
	switch name {
	case StatHappiness:
		return s.Happiness
	case StatEnergy:
		return s.Energy
	case StatHunger:
		return s.Hunger
	}
	return 0
}

func clampStat(v int) int {
	if v < StatMin {
		return StatMin
	}
	if v > StatMax {
		return StatMax
	}
	return v
}

// Mood is the binary disposition derived from the stat gauges.
type Mood string

const (
	MoodHappy Mood = "happy"
	MoodSad   Mood = "sad"
)

// Mood reports happy when the mean of the three gauges exceeds 50.
func (s Stats) Mood() Mood {
	avg := (s.Happiness + s.Energy + s.Hunger) / 3
	if avg > 50 {
		return MoodHappy
	}
	return MoodSad
}

// Companion is the single active virtual pet instance owned by a user.
type Companion struct {
	// ID is the companion identifier.
	ID string
	// OwnerID references the owning user profile.
	OwnerID string
	// Name is the player-chosen display name.
	Name string
	// ArchetypeID selects the sprite/theming family; opaque to the engine.
	ArchetypeID string
	// Stats holds the three bounded gauges.
	Stats Stats
	// Coins is the spendable balance, never negative.
	Coins int
	// CreatedAt is the evolution epoch.
	CreatedAt time.Time
	// DailyRewardsClaimed counts claims for the calendar day of LastDailyReward.
	DailyRewardsClaimed int
	// LastDailyReward is the timestamp of the most recent daily claim.
	LastDailyReward time.Time
	// EvolutionBonus is carried opaquely for the legacy client.
	EvolutionBonus int
	// IsGameOver and GameOverAt are stored but gate nothing in this engine.
	IsGameOver bool
	GameOverAt *time.Time
}

// RNG is the randomness source injected into hatch and reward rolls.
type RNG interface {
	Float64() float64
	IntN(n int) int
}

// NewStats draws each initial gauge uniformly from [25, 75).
func NewStats(rng RNG) Stats {
	return Stats{
		Happiness: rng.IntN(InitialStatSpan) + InitialStatMin,
		Energy:    rng.IntN(InitialStatSpan) + InitialStatMin,
		Hunger:    rng.IntN(InitialStatSpan) + InitialStatMin,
	}
}

// NewCompanion assembles a freshly hatched companion.
func NewCompanion(id, ownerID, name, archetypeID string, rng RNG, now time.Time) (Companion, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Companion{}, apperrors.New(apperrors.CodeCompanionNameEmpty, "companion name is required")
	}
	archetypeID = strings.TrimSpace(archetypeID)
	if archetypeID == "" {
		return Companion{}, apperrors.New(apperrors.CodeCompanionArchetypeRequired, "companion archetype is required")
	}
	return Companion{
		ID:              id,
		OwnerID:         ownerID,
		Name:            name,
		ArchetypeID:     archetypeID,
		Stats:           NewStats(rng),
		Coins:           StartingCoins,
		CreatedAt:       now,
		LastDailyReward: now,
	}, nil
}
