package interview

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nexthire/server/internal/model"
)

func TestLadder_Next(t *testing.T) {
	l := Ladder{RaiseAt: 8, LowerAt: 4}
	tests := []struct {
		name    string
		current model.Difficulty
		score   int
		want    model.Difficulty
	}{
		{"high score raises", model.DifficultyMedium, 9, model.DifficultyHard},
		{"low score lowers", model.DifficultyMedium, 3, model.DifficultyEasy},
		{"middle score holds", model.DifficultyMedium, 6, model.DifficultyMedium},
		{"exactly raise threshold", model.DifficultyEasy, 8, model.DifficultyMedium},
		{"exactly lower threshold", model.DifficultyHard, 4, model.DifficultyMedium},
		{"just under raise", model.DifficultyMedium, 7, model.DifficultyMedium},
		{"just over lower", model.DifficultyMedium, 5, model.DifficultyMedium},
		{"top stays top", model.DifficultyHard, 10, model.DifficultyHard},
		{"bottom stays bottom", model.DifficultyEasy, 0, model.DifficultyEasy},
		{"unknown treated as medium", model.Difficulty("expert"), 9, model.DifficultyHard},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, l.Next(tc.current, tc.score))
		})
	}
}

func TestLadder_MovesAtMostOneStep(t *testing.T) {
	l := Ladder{RaiseAt: 8, LowerAt: 4}
	for _, cur := range levels {
		for score := 0; score <= 10; score++ {
			next := l.Next(cur, score)
			assert.Contains(t, levels, next)
			diff := levelIndex(next) - levelIndex(cur)
			assert.True(t, diff >= -1 && diff <= 1, "%s with %d moved to %s", cur, score, next)
		}
	}
}

func TestLadder_CustomThresholds(t *testing.T) {
	l := Ladder{RaiseAt: 10, LowerAt: 0}
	assert.Equal(t, model.DifficultyMedium, l.Next(model.DifficultyMedium, 9))
	assert.Equal(t, model.DifficultyMedium, l.Next(model.DifficultyMedium, 1))
	assert.Equal(t, model.DifficultyHard, l.Next(model.DifficultyMedium, 10))
}
