package interview

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/nexthire/server/internal/model"
)

const passMark = 60

// BuildReport aggregates a session's turns. Each skill's score is its mean answer score
// scaled to 0-100, and the final score is the mean across skills. Both use floor division.
func BuildReport(sessionID uuid.UUID, turns []model.Turn) model.Report {
	if len(turns) == 0 {
		return model.Report{
			SessionID:    sessionID,
			FinalScore:   0,
			SkillScores:  map[string]int{},
			Summary:      "No answers were submitted in this session.",
			Strengths:    []string{},
			Improvements: []string{"Answer at least one question to receive a scored report."},
		}
	}

	var order []string
	sums := map[string]int{}
	counts := map[string]int{}
	for _, t := range turns {
		if _, seen := counts[t.Skill]; !seen {
			order = append(order, t.Skill)
		}
		sums[t.Skill] += t.Score
		counts[t.Skill]++
	}

	skillScores := make(map[string]int, len(order))
	total := 0
	strengths := []string{}
	improvements := []string{}
	for _, skill := range order {
		avg := sums[skill] * 10 / counts[skill]
		skillScores[skill] = avg
		total += avg
		if avg >= passMark {
			strengths = append(strengths, skill)
		} else {
			improvements = append(improvements, fmt.Sprintf("More depth on %s", skill))
		}
	}
	if len(improvements) == 0 {
		improvements = []string{"Answer depth", "Examples"}
	}
	final := total / len(order)

	return model.Report{
		SessionID:    sessionID,
		FinalScore:   final,
		SkillScores:  skillScores,
		Summary:      summaryFor(final),
		Strengths:    strengths,
		Improvements: improvements,
	}
}

func summaryFor(score int) string {
	switch {
	case score >= 80:
		return "Strong technical foundation."
	case score >= passMark:
		return "Solid foundation with room to grow."
	default:
		return "Needs more practice on the fundamentals."
	}
}

// spokenSummary is read aloud at the end of a live interview when the model gives none
func spokenSummary(r model.Report) string {
	return fmt.Sprintf("Thanks, that's the end of the interview. Your overall score is %d out of 100. %s", r.FinalScore, r.Summary)
}
