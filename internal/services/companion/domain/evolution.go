package domain

import "time"

// Stage is a discrete growth phase derived purely from elapsed time.
type Stage string

const (
	StageBaby  Stage = "baby"
	StageAdult Stage = "adult"
	StageFull  Stage = "full"
)

// Stages is the fixed ordered growth sequence.
var Stages = [...]Stage{StageBaby, StageAdult, StageFull}

// EvolutionInterval is the fixed duration each stage occupies before the next
// one unlocks. The final stage is terminal.
const EvolutionInterval = time.Hour

// Evolution is the derived growth snapshot for a companion. It is recomputed
// on every read and never persisted, so stored data cannot desynchronize from
// the clock.
type Evolution struct {
	Stage         Stage
	StageIndex    int
	TimeRemaining time.Duration
}

// ComputeEvolution maps creation time and current time to a growth snapshot.
func ComputeEvolution(createdAt, now time.Time) Evolution {
	elapsed := now.Sub(createdAt)
	if elapsed < 0 {
		elapsed = 0
	}

	index := int(elapsed / EvolutionInterval)
	last := len(Stages) - 1
	if index > last {
		index = last
	}

	var remaining time.Duration
	if index < last {
		remaining = time.Duration(index+1)*EvolutionInterval - elapsed
		if remaining < 0 {
			remaining = 0
		}
	}

	return Evolution{
		Stage:         Stages[index],
		StageIndex:    index,
		TimeRemaining: remaining,
	}
}
