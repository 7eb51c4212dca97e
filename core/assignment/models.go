package assignment

import (
	"time"

	"github.com/pkg/errors"
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusCanceled   Status = "Canceled"
)

var (
	Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCanceled}

	// ActiveStatuses are the ones that block a duplicate assignment of the same task.
	ActiveStatuses = []Status{StatusPending, StatusInProgress}

	errInvalidStatus    = errors.New("invalid status")
	errInvalidSentiment = errors.New("invalid sentiment")
)

// ParseStatus is case-sensitive.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", errInvalidStatus
}

func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusInProgress
}

// IsFinal reports whether the status is terminal for the participant flow.
func (s Status) IsFinal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

type Sentiment string

const (
	SentimentHappy      Sentiment = "happy"
	SentimentCalm       Sentiment = "calm"
	SentimentNeutral    Sentiment = "neutral"
	SentimentFrustrated Sentiment = "frustrated"
	SentimentSad        Sentiment = "sad"
)

var Sentiments = []Sentiment{SentimentHappy, SentimentCalm, SentimentNeutral, SentimentFrustrated, SentimentSad}

// ParseSentiment is case-sensitive.
func ParseSentiment(s string) (Sentiment, error) {
	for _, st := range Sentiments {
		if string(st) == s {
			return st, nil
		}
	}
	return "", errInvalidSentiment
}

type Assignment struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participant_id"`
	TaskID        string    `json:"task_id"`
	AdminID       string    `json:"admin_id"`
	Status        Status    `json:"status"`
	AssignedAt    time.Time `json:"assigned_at"` // UTC
}

// Evaluation is the participant's self-reported sentiment on a finished assignment.
type Evaluation struct {
	ID            string    `json:"id"`
	AssignmentID  string    `json:"assignment_id"`
	ParticipantID string    `json:"participant_id"`
	Sentiment     Sentiment `json:"sentiment"`
	EvaluatedAt   time.Time `json:"evaluated_at"` // UTC
}

type CreateResult struct {
	Assigned int `json:"assignedCount"`
	Skipped  int `json:"skippedCount"`
}

type QueryFilter struct {
	ParticipantID string
	TaskID        string
	Statuses      []Status
}
