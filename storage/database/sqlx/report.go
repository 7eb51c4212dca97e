package sqlxrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/paku/core/assignment"
	"github.com/trezcool/paku/core/participant"
	"github.com/trezcool/paku/core/report"
)

// rowsSelect joins every assignment with its task, its participant & its latest evaluation.
const rowsSelect = `SELECT a.id, a.status, a.assigned_at, t.id AS task_id, t.name AS task_name, t.required_skill,
		p.id AS participant_id, p.name AS participant_name, e.sentiment, e.evaluated_at
	FROM assignment a
	JOIN task t ON t.id = a.task_id
	JOIN participant p ON p.id = a.participant_id
	LEFT JOIN LATERAL (
		SELECT sentiment, evaluated_at FROM evaluation
		WHERE assignment_id = a.id ORDER BY evaluated_at DESC LIMIT 1
	) e ON TRUE`

type reportRow struct {
	ID              string      `db:"id"`
	Status          string      `db:"status"`
	AssignedAt      time.Time   `db:"assigned_at"`
	TaskID          string      `db:"task_id"`
	TaskName        string      `db:"task_name"`
	RequiredSkill   string      `db:"required_skill"`
	ParticipantID   string      `db:"participant_id"`
	ParticipantName string      `db:"participant_name"`
	Sentiment       null.String `db:"sentiment"`
	EvaluatedAt     null.Time   `db:"evaluated_at"`
}

func (r reportRow) row() report.AssignmentRow {
	row := report.AssignmentRow{
		AssignmentID:    r.ID,
		Status:          assignment.Status(r.Status),
		AssignedAt:      r.AssignedAt.UTC(),
		TaskID:          r.TaskID,
		TaskName:        r.TaskName,
		RequiredSkill:   participant.SkillLevel(r.RequiredSkill),
		ParticipantID:   r.ParticipantID,
		ParticipantName: r.ParticipantName,
		Sentiment:       r.Sentiment,
		EvaluatedAt:     r.EvaluatedAt,
	}
	if row.EvaluatedAt.Valid {
		row.EvaluatedAt.Time = row.EvaluatedAt.Time.UTC()
	}
	return row
}

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *sqlx.DB) *reportRepository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) Summary(ctx context.Context) (report.Summary, error) {
	var sum report.Summary

	err := repo.db.QueryRowxContext(ctx, `SELECT COUNT(*),
			COUNT(*) FILTER (WHERE skill_level = $1),
			COUNT(*) FILTER (WHERE is_active)
		FROM participant`, string(participant.SkillPending)).
		Scan(&sum.Participants.Total, &sum.Participants.PendingReviews, &sum.Participants.Active)
	if err != nil {
		return report.Summary{}, errors.Wrap(err, "counting participants")
	}

	if err = repo.db.GetContext(ctx, &sum.Tasks, `SELECT COUNT(*) FROM task`); err != nil {
		return report.Summary{}, errors.Wrap(err, "counting tasks")
	}

	err = repo.db.QueryRowxContext(ctx, `SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COUNT(*) FILTER (WHERE status = $4)
		FROM assignment`,
		string(assignment.StatusPending), string(assignment.StatusInProgress),
		string(assignment.StatusCompleted), string(assignment.StatusCanceled)).
		Scan(&sum.Assignments.Total, &sum.Assignments.Pending, &sum.Assignments.InProgress,
			&sum.Assignments.Completed, &sum.Assignments.Canceled)
	if err != nil {
		return report.Summary{}, errors.Wrap(err, "counting assignments")
	}
	return sum, nil
}

func (repo *reportRepository) selectRows(ctx context.Context, q string, args ...interface{}) ([]report.AssignmentRow, error) {
	var rows []reportRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]report.AssignmentRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.row())
	}
	return out, nil
}

func (repo *reportRepository) QueryAssignmentRows(ctx context.Context, filter report.AssignmentFilter) ([]report.AssignmentRow, error) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.ParticipantID != "" {
		conds = append(conds, "a.participant_id = "+arg(filter.ParticipantID))
	}
	if filter.Status != "" {
		conds = append(conds, "a.status = "+arg(string(filter.Status)))
	}
	if filter.RequiredSkill != "" {
		conds = append(conds, "t.required_skill = "+arg(string(filter.RequiredSkill)))
	}

	q := rowsSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY a.assigned_at DESC, a.id"

	rows, err := repo.selectRows(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignment report")
	}
	return rows, nil
}

func (repo *reportRepository) ChildTotals(ctx context.Context, participantID string, since time.Time) (report.ChildTotals, error) {
	var totals report.ChildTotals
	err := repo.db.QueryRowxContext(ctx, `SELECT COUNT(*),
			COUNT(*) FILTER (WHERE a.status = $2),
			COUNT(*) FILTER (WHERE a.status = $2 AND e.evaluated_at >= $3)
		FROM assignment a
		LEFT JOIN LATERAL (
			SELECT MAX(evaluated_at) AS evaluated_at FROM evaluation WHERE assignment_id = a.id
		) e ON TRUE
		WHERE a.participant_id = $1`,
		participantID, string(assignment.StatusCompleted), since.UTC()).
		Scan(&totals.Total, &totals.Completed, &totals.CompletedRecently)
	if err != nil {
		return report.ChildTotals{}, errors.Wrap(err, "counting child assignments")
	}
	return totals, nil
}

func (repo *reportRepository) CompletedHistory(ctx context.Context, participantID string, limit int) ([]report.AssignmentRow, error) {
	q := rowsSelect + ` WHERE a.participant_id = $1 AND a.status = $2
		ORDER BY e.evaluated_at DESC NULLS LAST, a.id LIMIT $3`
	rows, err := repo.selectRows(ctx, q, participantID, string(assignment.StatusCompleted), limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying completed history")
	}
	return rows, nil
}
