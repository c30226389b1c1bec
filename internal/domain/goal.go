package domain

import "time"

// DefaultGoalTarget is the yearly book count used until the reader sets one.
const DefaultGoalTarget = 24

// ReadingGoal is the singleton yearly target.
type ReadingGoal struct {
	Target int `json:"target"`
	Year   int `json:"year"`
}

// DefaultGoal returns the goal used when nothing is stored yet.
func DefaultGoal() ReadingGoal {
	return ReadingGoal{
		Target: DefaultGoalTarget,
		Year:   time.Now().Year(),
	}
}

// GoalProgress is a reading goal with its completion figures attached.
type GoalProgress struct {
	Goal     ReadingGoal `json:"goal"`
	Finished int         `json:"finished"`
	Percent  float64     `json:"percent"`
}

// Progress reports how many of the target books are finished, capped at 100%.
func (g ReadingGoal) Progress(finished int) float64 {
	if g.Target <= 0 {
		return 0
	}
	pct := float64(finished) / float64(g.Target) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
