package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/heysmata/strava-for-books/internal/domain"
	"github.com/heysmata/strava-for-books/internal/sse"
)

const goalKey = "goal:reading"

// GetGoal returns the reading goal. A missing or unreadable record yields
// the default goal rather than an error; goal data is never worth failing
// a request over.
func (s *Store) GetGoal(ctx context.Context) (domain.ReadingGoal, error) {
	var goal domain.ReadingGoal
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(goalKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &goal)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) && s.logger != nil {
			s.logger.Warn("reading goal record unreadable, using default", "error", err)
		}
		return domain.DefaultGoal(), nil
	}

	if goal.Target <= 0 {
		return domain.DefaultGoal(), nil
	}
	return goal, nil
}

// SetGoal replaces the reading goal.
func (s *Store) SetGoal(ctx context.Context, goal domain.ReadingGoal) error {
	if goal.Target <= 0 {
		return fmt.Errorf("goal target must be positive, got %d", goal.Target)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(goal)
		if err != nil {
			return fmt.Errorf("marshal goal: %w", err)
		}
		return txn.Set([]byte(goalKey), data)
	})
	if err != nil {
		return fmt.Errorf("set goal: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("reading goal updated", "target", goal.Target, "year", goal.Year)
	}

	s.eventEmitter.Emit(sse.NewGoalUpdatedEvent(goal))
	return nil
}
