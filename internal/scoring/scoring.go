package scoring

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nexthire/server/internal/config"
	"github.com/nexthire/server/internal/model"
	"github.com/nexthire/server/internal/repo"
)

// Weights blends the three scores; values are percentages summing to 100.
type Weights struct {
	Interview int
	Mock      int
	Resume    int
}

// DefaultWeights is the 60/20/20 interview/mock/resume policy
var DefaultWeights = Weights{Interview: 60, Mock: 20, Resume: 20}

// WeightsFrom converts configuration into Weights
func WeightsFrom(c config.WeightConfig) Weights {
	return Weights{Interview: c.Interview, Mock: c.Mock, Resume: c.Resume}
}

// Overall blends the scores and truncates toward zero. Integer percent weights keep
// the result exact: 90/70/80 gives (5400+1400+1600)/100 = 84.
func (w Weights) Overall(interviewAvg, mock, resume int) int {
	return (w.Interview*interviewAvg + w.Mock*mock + w.Resume*resume) / 100
}

// InterviewAverage is the truncated mean, or 0 for no interviews
func InterviewAverage(scores []int) int {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return sum / len(scores)
}

// Aggregator reads a candidate's scores from the stores and builds the dashboard row
type Aggregator struct {
	resumes  repo.ResumeRepo
	sessions repo.SessionRepo
	records  repo.RecordRepo
	hr       repo.HRRepo
	weights  Weights
}

func NewAggregator(resumes repo.ResumeRepo, sessions repo.SessionRepo, records repo.RecordRepo, hr repo.HRRepo, weights Weights) *Aggregator {
	return &Aggregator{resumes: resumes, sessions: sessions, records: records, hr: hr, weights: weights}
}

// Summarize computes the candidate row for one account
func (a *Aggregator) Summarize(ctx context.Context, acc model.Account) (model.Candidate, error) {
	c := model.Candidate{
		Email:  acc.Email,
		Name:   acc.Username,
		Phone:  acc.Phone,
		Role:   acc.Role,
		Status: model.CandidateNew,
	}

	upload, err := a.resumes.GetUpload(ctx, acc.Email)
	switch {
	case err == nil:
		c.Resume = upload.Filename
	case !errors.Is(err, repo.ErrNotFound):
		return model.Candidate{}, fmt.Errorf("resume upload: %w", err)
	}

	if c.ResumeScore, err = a.resumes.LatestScore(ctx, acc.Email); err != nil {
		return model.Candidate{}, fmt.Errorf("resume score: %w", err)
	}
	if c.MockScore, err = a.sessions.BestScore(ctx, acc.Email, model.KindMock); err != nil {
		return model.Candidate{}, fmt.Errorf("mock score: %w", err)
	}

	records, err := a.records.List(ctx, acc.Email)
	if err != nil {
		return model.Candidate{}, fmt.Errorf("interview records: %w", err)
	}
	scores := make([]int, len(records))
	for i, r := range records {
		scores[i] = r.Score
		if c.LastInterview == nil || r.CreatedAt.After(*c.LastInterview) {
			at := r.CreatedAt
			c.LastInterview = &at
		}
	}
	c.InterviewScore = InterviewAverage(scores)
	c.OverallScore = a.weights.Overall(c.InterviewScore, c.MockScore, c.ResumeScore)

	status, err := a.hr.GetStatus(ctx, acc.Email)
	switch {
	case err == nil:
		c.Status = status
	case !errors.Is(err, repo.ErrNotFound):
		return model.Candidate{}, fmt.Errorf("candidate status: %w", err)
	}
	return c, nil
}

// SummarizeAll builds rows for every account in order
func (a *Aggregator) SummarizeAll(ctx context.Context, accounts []model.Account) ([]model.Candidate, error) {
	out := make([]model.Candidate, 0, len(accounts))
	for _, acc := range accounts {
		c, err := a.Summarize(ctx, acc)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Filter narrows a candidate list. Empty fields and "all" match everything.
type Filter struct {
	Search   string
	Role     string
	MinScore int
	Status   string
}

// FilterSort applies f and orders by overall score, highest first. Equal scores keep input order.
// The input slice is not modified.
func FilterSort(cands []model.Candidate, f Filter) []model.Candidate {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]model.Candidate, 0, len(cands))
	for _, c := range cands {
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Email), search) &&
			!strings.Contains(strings.ToLower(c.Phone), search) {
			continue
		}
		if !matchAll(f.Role, c.Role) || !matchAll(f.Status, c.Status) {
			continue
		}
		if c.OverallScore < f.MinScore {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OverallScore > out[j].OverallScore })
	return out
}

func matchAll(want, got string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.EqualFold(want, "all") || strings.EqualFold(want, got)
}
