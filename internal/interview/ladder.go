package interview

import "github.com/nexthire/server/internal/model"

var levels = []model.Difficulty{model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard}

// Ladder moves difficulty one rung at a time based on the last answer's score.
type Ladder struct {
	RaiseAt int
	LowerAt int
}

// Next returns the difficulty for the following question. An unknown level counts as medium.
func (l Ladder) Next(current model.Difficulty, score int) model.Difficulty {
	idx := levelIndex(current)
	switch {
	case score >= l.RaiseAt && idx < len(levels)-1:
		idx++
	case score <= l.LowerAt && idx > 0:
		idx--
	}
	return levels[idx]
}

func levelIndex(d model.Difficulty) int {
	for i, lv := range levels {
		if lv == d {
			return i
		}
	}
	return 1
}
