package domain

import (
	"time"

	apperrors "github.com/louisbranch/regenmon/internal/platform/errors"
)

// Economy constants. Costs and rewards are flat across action types.
const (
	ActionCost    = 10
	StatIncrement = 10

	DailyRewardAmount = 30
	DailyRewardLimit  = 3

	ChatRewardThreshold = 0.5
	ChatRewardMaxAmount = 5
)

// ErrInsufficientFunds is returned when the balance cannot cover an action.
var ErrInsufficientFunds = apperrors.New(apperrors.CodeInsufficientFunds, "coin balance below action cost")

// ErrDailyLimitReached is returned when the calendar-day claim cap is exhausted.
var ErrDailyLimitReached = apperrors.New(apperrors.CodeDailyLimitReached, "daily reward limit reached")

// ApplyStatAction validates and applies a paid stat action. On success it
// returns the updated companion together with the log payload describing the
// change. On failure the input companion is returned unchanged.
func ApplyStatAction(c Companion, action ActionType) (Companion, StatChange, error) {
	if !action.IsStatAction() {
		return c, StatChange{}, apperrors.WithMetadata(
			apperrors.CodeValidation,
			"action type must be feed, play or sleep",
			map[string]string{"ActionType": string(action)},
		)
	}
	if c.Coins < ActionCost {
		return c, StatChange{}, ErrInsufficientFunds
	}

	stat := action.Stat()
	updated := c.Stats
	switch stat {
	case StatHunger:
		updated.Hunger = clampStat(updated.Hunger + StatIncrement)
	case StatHappiness:
		updated.Happiness = clampStat(updated.Happiness + StatIncrement)
	case StatEnergy:
		updated.Energy = clampStat(updated.Energy + StatIncrement)
	}

	c.Stats = updated
	c.Coins -= ActionCost

	return c, StatChange{
		Cost:     -ActionCost,
		Stat:     stat,
		NewValue: updated.Get(stat),
	}, nil
}

// RollChatReward draws the server-side chat reward. A draw above the threshold
// awards a uniform amount in [1, ChatRewardMaxAmount]; otherwise zero.
func RollChatReward(rng RNG) int {
	if rng.Float64() > ChatRewardThreshold {
		return rng.IntN(ChatRewardMaxAmount) + 1
	}
	return 0
}

// EffectiveDailyClaims resolves the claim counter for the calendar day of now.
// The counter logically resets at the UTC day boundary; no corrective write is
// ever needed.
func EffectiveDailyClaims(lastReward time.Time, claimed int, now time.Time) int {
	if sameUTCDate(lastReward, now) {
		return claimed
	}
	return 0
}

// ClaimDailyReward validates the per-day cap and applies the fixed bonus. On
// failure the input companion is returned unchanged.
func ClaimDailyReward(c Companion, now time.Time) (Companion, CoinGrant, error) {
	effective := EffectiveDailyClaims(c.LastDailyReward, c.DailyRewardsClaimed, now)
	if effective >= DailyRewardLimit {
		return c, CoinGrant{}, ErrDailyLimitReached
	}

	c.Coins += DailyRewardAmount
	c.DailyRewardsClaimed = effective + 1
	c.LastDailyReward = now

	return c, CoinGrant{Amount: DailyRewardAmount, Source: EarnSourceDaily}, nil
}

func sameUTCDate(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
