package resume

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nexthire/server/internal/llm"
	"github.com/nexthire/server/internal/model"
	"github.com/nexthire/server/internal/prompts"
	"github.com/nexthire/server/internal/repo"
)

var (
	ErrNotPDF       = errors.New("only PDF resumes can be analyzed")
	ErrUnreadable   = errors.New("could not read PDF")
	ErrTextTooShort = errors.New("resume text too short, the PDF may be scanned")
	ErrUnavailable  = errors.New("resume analysis service unavailable")
)

const (
	// MinTextLength is the fewest characters a text-based resume can yield
	MinTextLength = 150
	maxPromptText = 6000
)

// Analysis is the model's evaluation with the ATS score lifted out
type Analysis struct {
	Score  int            `json:"score"`
	Fields map[string]any `json:"-"`
}

// Analyzer scores resumes with the remote model and keeps a history per candidate
type Analyzer struct {
	extractor Extractor
	provider  llm.Provider
	prompts   *prompts.Manager
	resumes   repo.ResumeRepo
	logger    *zap.Logger
}

// NewAnalyzer wires an analyzer. provider may be nil; Analyze then fails with ErrUnavailable.
func NewAnalyzer(extractor Extractor, provider llm.Provider, pm *prompts.Manager, resumes repo.ResumeRepo, logger *zap.Logger) *Analyzer {
	return &Analyzer{extractor: extractor, provider: provider, prompts: pm, resumes: resumes, logger: logger}
}

// Analyze extracts the PDF's text, asks the model for a structured evaluation and,
// when email is set, records the result in the candidate's history.
func (a *Analyzer) Analyze(ctx context.Context, email, filename string, data []byte) (Analysis, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return Analysis{}, ErrNotPDF
	}

	text, err := a.extractor.Extract(data)
	if err != nil {
		a.logger.Info("resume text extraction failed", zap.String("filename", filename), zap.Error(err))
		return Analysis{}, ErrUnreadable
	}
	if utf8.RuneCountInString(text) < MinTextLength {
		return Analysis{}, ErrTextTooShort
	}

	if a.provider == nil {
		return Analysis{}, ErrUnavailable
	}
	msgs, err := a.prompts.Build(prompts.Resume, map[string]string{"Resume": truncateRunes(text, maxPromptText)})
	if err != nil {
		return Analysis{}, fmt.Errorf("build resume prompt: %w", err)
	}
	raw, err := a.provider.Complete(ctx, llm.Request{Messages: msgs, MaxTokens: 900, Temperature: 0.4})
	if err != nil {
		a.logger.Warn("resume analysis call failed", zap.String("provider", a.provider.Name()), zap.Error(err))
		return Analysis{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	fields := map[string]any{}
	if err := llm.DecodeJSON(raw, &fields); err != nil {
		a.logger.Warn("resume analysis reply had no JSON", zap.Int("reply_len", len(raw)))
		return Analysis{}, err
	}

	score := clampPercent(toInt(fields["ats_score"]))
	fields["score"] = score
	result := Analysis{Score: score, Fields: fields}

	if email != "" {
		row := model.ResumeAnalysis{
			Email:     email,
			ATSScore:  score,
			Breakdown: toIntMap(fields["skill_breakdown"]),
			Reasons:   toStrings(fields["low_score_reasons"]),
			Analysis:  fields,
		}
		if err := a.resumes.AddAnalysis(ctx, &row); err != nil {
			return Analysis{}, fmt.Errorf("store resume analysis: %w", err)
		}
	}
	return result, nil
}

// History lists a candidate's analyses, newest first
func (a *Analyzer) History(ctx context.Context, email string) ([]model.ResumeAnalysis, error) {
	list, err := a.resumes.ListAnalyses(ctx, email)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.ResumeAnalysis{}
	}
	return list, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(math.Round(n))
	case int:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64)
		if err != nil {
			return 0
		}
		return int(math.Round(f))
	default:
		return 0
	}
}

func toIntMap(v any) map[string]int {
	out := map[string]int{}
	m, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for k, val := range m {
		out[k] = toInt(val)
	}
	return out
}

func toStrings(v any) []string {
	out := []string{}
	list, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func clampPercent(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
