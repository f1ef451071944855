package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account roles
const (
	RoleCandidate = "candidate"
	RoleHR        = "hr"
)

// OTP purposes
const (
	PurposeSignup = "signup"
	PurposeReset  = "reset"
)

// Account represents a registered user
type Account struct {
	ID           int64
	Email        string
	Username     string
	Phone        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// OTP is the single active passcode for an (email, purpose) pair. Only the hash is stored.
type OTP struct {
	Email     string
	Purpose   string
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Difficulty is a rung of the question difficulty ladder
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// SessionStatus tracks the interview session lifecycle
type SessionStatus string

const (
	StatusCreated        SessionStatus = "created"
	StatusAwaitingAnswer SessionStatus = "awaiting_answer"
	StatusEvaluating     SessionStatus = "evaluating"
	StatusReported       SessionStatus = "reported"
)

// SessionKind distinguishes request/response mock interviews from live socket interviews
type SessionKind string

const (
	KindMock SessionKind = "mock"
	KindLive SessionKind = "live"
)

// InterviewSession is the persisted header of one interview
type InterviewSession struct {
	ID         uuid.UUID
	Owner      string
	Kind       SessionKind
	Skills     []string
	Role       string
	Experience string
	Difficulty Difficulty
	Status     SessionStatus
	CreatedAt  time.Time
}

// Turn is one question/answer/evaluation unit. Immutable once written.
type Turn struct {
	ID           int64
	SessionID    uuid.UUID
	Skill        string
	Difficulty   Difficulty
	Question     string
	Answer       string
	Score        int
	Feedback     string
	Posture      string
	PostureScore int
	CreatedAt    time.Time
}

// Report is the final evaluation of a session, upserted by session id
type Report struct {
	SessionID    uuid.UUID      `json:"session_id"`
	FinalScore   int            `json:"final_score"`
	SkillScores  map[string]int `json:"skill_scores"`
	Summary      string         `json:"summary"`
	Strengths    []string       `json:"strengths"`
	Improvements []string       `json:"improvements"`
	CreatedAt    time.Time      `json:"created_at"`
}

// InterviewRecord summarizes a finished live interview for the HR dashboard
type InterviewRecord struct {
	Email        string    `json:"email"`
	SessionID    uuid.UUID `json:"session_id"`
	Score        int       `json:"score"`
	Tips         string    `json:"tips"`
	PostureScore int       `json:"posture_score"`
	CreatedAt    time.Time `json:"date"`
}

// Resume is the most recent upload for a candidate
type Resume struct {
	Email      string
	Filename   string
	UploadedAt time.Time
}

// ResumeAnalysis is one stored model evaluation of a resume
type ResumeAnalysis struct {
	ID        int64          `json:"id"`
	Email     string         `json:"email"`
	ATSScore  int            `json:"ats_score"`
	Breakdown map[string]int `json:"skill_breakdown"`
	Reasons   []string       `json:"low_score_reasons"`
	Analysis  map[string]any `json:"analysis,omitempty"`
	CreatedAt time.Time      `json:"date"`
}

// Candidate statuses set by HR
const (
	CandidateNew         = "new"
	CandidateShortlisted = "shortlisted"
	CandidateRejected    = "rejected"
	CandidateFinal       = "final"
	CandidateHired       = "hired"
)

var candidateStatuses = map[string]bool{
	CandidateNew:         true,
	CandidateShortlisted: true,
	CandidateRejected:    true,
	CandidateFinal:       true,
	CandidateHired:       true,
}

// ValidCandidateStatus reports whether s is one of the HR pipeline states
func ValidCandidateStatus(s string) bool {
	return candidateStatuses[strings.ToLower(s)]
}

// Note is an append-only HR annotation
type Note struct {
	Email     string    `json:"-"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"date"`
}

// Candidate is the dashboard summary row with the blended score
type Candidate struct {
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	Role           string     `json:"role"`
	Resume         string     `json:"resume,omitempty"`
	ResumeScore    int        `json:"resume_score"`
	MockScore      int        `json:"mock_score"`
	InterviewScore int        `json:"interview_score"`
	OverallScore   int        `json:"overall_score"`
	Status         string     `json:"status"`
	LastInterview  *time.Time `json:"last_interview"`
}
