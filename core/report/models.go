package report

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/paku/core/assignment"
	"github.com/trezcool/paku/core/participant"
)

type (
	ParticipantTotals struct {
		Total          int `json:"total"`
		PendingReviews int `json:"pending_reviews"`
		Active         int `json:"active"`
	}

	AssignmentTotals struct {
		Total      int `json:"total"`
		Pending    int `json:"pending"`
		InProgress int `json:"in_progress"`
		Completed  int `json:"completed"`
		Canceled   int `json:"canceled"`
	}

	Summary struct {
		Participants ParticipantTotals `json:"participants"`
		Tasks        int               `json:"tasks"`
		Assignments  AssignmentTotals  `json:"assignments"`
	}

	// AssignmentRow is an assignment joined with its task, its participant and its latest evaluation.
	AssignmentRow struct {
		AssignmentID    string                 `json:"assignment_id"`
		Status          assignment.Status      `json:"status"`
		AssignedAt      time.Time              `json:"assigned_at"`
		TaskID          string                 `json:"task_id"`
		TaskName        string                 `json:"task_name"`
		RequiredSkill   participant.SkillLevel `json:"required_skill"`
		ParticipantID   string                 `json:"participant_id"`
		ParticipantName string                 `json:"participant_name"`
		Sentiment       null.String            `json:"sentiment"`
		EvaluatedAt     null.Time              `json:"evaluated_at"`
	}

	AssignmentFilter struct {
		Status        assignment.Status      `query:"status"`
		RequiredSkill participant.SkillLevel `query:"skill"`
		ParticipantID string                 `query:"-"`
	}

	ChildTotals struct {
		Total             int `json:"total"`
		Completed         int `json:"completed"`
		CompletedRecently int `json:"completed_recently"` // completed since a given time
	}

	ParentReport struct {
		Participant participant.Participant `json:"participant"`
		Totals      ChildTotals             `json:"totals"`
		History     []AssignmentRow         `json:"history"`
	}
)
