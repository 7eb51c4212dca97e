package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/paku/core/assignment"
	"github.com/trezcool/paku/core/participant"
	"github.com/trezcool/paku/core/report"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) *reportRepository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) Summary(_ context.Context) (report.Summary, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var sum report.Summary
	for _, p := range repo.db.participants {
		sum.Participants.Total++
		if p.SkillLevel == participant.SkillPending {
			sum.Participants.PendingReviews++
		}
		if p.IsActive {
			sum.Participants.Active++
		}
	}
	sum.Tasks = len(repo.db.tasks)
	for _, a := range repo.db.assignments {
		sum.Assignments.Total++
		switch a.Status {
		case assignment.StatusPending:
			sum.Assignments.Pending++
		case assignment.StatusInProgress:
			sum.Assignments.InProgress++
		case assignment.StatusCompleted:
			sum.Assignments.Completed++
		case assignment.StatusCanceled:
			sum.Assignments.Canceled++
		}
	}
	return sum, nil
}

// latestEvaluations maps assignment ids to their newest evaluation. Caller holds the lock.
func (repo *reportRepository) latestEvaluations() map[string]assignment.Evaluation {
	latest := make(map[string]assignment.Evaluation)
	for _, e := range repo.db.evaluations {
		if cur, ok := latest[e.AssignmentID]; !ok || !e.EvaluatedAt.Before(cur.EvaluatedAt) {
			latest[e.AssignmentID] = e
		}
	}
	return latest
}

func (repo *reportRepository) row(a *assignment.Assignment, evals map[string]assignment.Evaluation) report.AssignmentRow {
	row := report.AssignmentRow{
		AssignmentID:  a.ID,
		Status:        a.Status,
		AssignedAt:    a.AssignedAt,
		TaskID:        a.TaskID,
		ParticipantID: a.ParticipantID,
	}
	if t, ok := repo.db.tasks[a.TaskID]; ok {
		row.TaskName = t.Name
		row.RequiredSkill = t.RequiredSkill
	}
	if p, ok := repo.db.participants[a.ParticipantID]; ok {
		row.ParticipantName = p.Name
	}
	if e, ok := evals[a.ID]; ok {
		row.Sentiment = null.StringFrom(string(e.Sentiment))
		row.EvaluatedAt = null.TimeFrom(e.EvaluatedAt)
	}
	return row
}

func (repo *reportRepository) QueryAssignmentRows(_ context.Context, filter report.AssignmentFilter) ([]report.AssignmentRow, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	evals := repo.latestEvaluations()
	rows := make([]report.AssignmentRow, 0)
	for _, a := range repo.db.assignments {
		if filter.ParticipantID != "" && a.ParticipantID != filter.ParticipantID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		row := repo.row(a, evals)
		if filter.RequiredSkill != "" && row.RequiredSkill != filter.RequiredSkill {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].AssignedAt.Equal(rows[j].AssignedAt) {
			return rows[i].AssignedAt.After(rows[j].AssignedAt)
		}
		return repo.db.inserted[rows[i].AssignmentID] > repo.db.inserted[rows[j].AssignmentID]
	})
	return rows, nil
}

func (repo *reportRepository) ChildTotals(_ context.Context, participantID string, since time.Time) (report.ChildTotals, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	evals := repo.latestEvaluations()
	var totals report.ChildTotals
	for _, a := range repo.db.assignments {
		if a.ParticipantID != participantID {
			continue
		}
		totals.Total++
		if a.Status != assignment.StatusCompleted {
			continue
		}
		totals.Completed++
		if e, ok := evals[a.ID]; ok && !e.EvaluatedAt.Before(since) {
			totals.CompletedRecently++
		}
	}
	return totals, nil
}

func (repo *reportRepository) CompletedHistory(_ context.Context, participantID string, limit int) ([]report.AssignmentRow, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	evals := repo.latestEvaluations()
	rows := make([]report.AssignmentRow, 0)
	for _, a := range repo.db.assignments {
		if a.ParticipantID == participantID && a.Status == assignment.StatusCompleted {
			rows = append(rows, repo.row(a, evals))
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].EvaluatedAt.Time.After(rows[j].EvaluatedAt.Time)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
