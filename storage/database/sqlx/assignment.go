package sqlxrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/paku/core/assignment"
)

const assignmentColumns = `id, participant_id, task_id, admin_id, status, assigned_at`

type assignmentRow struct {
	ID            string    `db:"id"`
	ParticipantID string    `db:"participant_id"`
	TaskID        string    `db:"task_id"`
	AdminID       string    `db:"admin_id"`
	Status        string    `db:"status"`
	AssignedAt    time.Time `db:"assigned_at"`
}

func (r assignmentRow) assignment() assignment.Assignment {
	return assignment.Assignment{
		ID:            r.ID,
		ParticipantID: r.ParticipantID,
		TaskID:        r.TaskID,
		AdminID:       r.AdminID,
		Status:        assignment.Status(r.Status),
		AssignedAt:    r.AssignedAt.UTC(),
	}
}

type assignmentRepository struct {
	db   *sqlx.DB
	exec executor // db, or the tx handed out by WithinTx
	inTx bool
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *sqlx.DB) *assignmentRepository {
	return &assignmentRepository{db: db, exec: db}
}

func (repo *assignmentRepository) WithinTx(ctx context.Context, fn func(repo assignment.Repository) error) error {
	if repo.inTx {
		return fn(repo)
	}
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		return fn(&assignmentRepository{db: repo.db, exec: tx, inTx: true})
	})
}

// LockTask takes a transaction-scoped advisory lock keyed by the task id.
// Outside of a transaction the lock would be released right away, so it is refused.
func (repo *assignmentRepository) LockTask(ctx context.Context, taskID string) error {
	if !repo.inTx {
		return errors.New("LockTask called outside of a transaction")
	}
	if _, err := repo.exec.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "assignment:"+taskID); err != nil {
		return errors.Wrap(err, "locking task")
	}
	return nil
}

func (repo *assignmentRepository) ActiveParticipantIDs(ctx context.Context, taskID string, participantIDs []string) ([]string, error) {
	ids := make([]string, 0)
	err := sqlx.SelectContext(ctx, repo.exec, &ids,
		`SELECT DISTINCT participant_id FROM assignment
		WHERE task_id = $1 AND participant_id = ANY($2::uuid[]) AND status = ANY($3)
		ORDER BY participant_id`,
		taskID, pq.StringArray(participantIDs), pq.StringArray(statusStrings(assignment.ActiveStatuses)))
	if err != nil {
		return nil, errors.Wrap(err, "querying active assignments")
	}
	return ids, nil
}

// InsertAssignments writes every row with a single multi-values INSERT.
func (repo *assignmentRepository) InsertAssignments(ctx context.Context, asgmts []assignment.Assignment) ([]assignment.Assignment, error) {
	if len(asgmts) == 0 {
		return asgmts, nil
	}
	out := make([]assignment.Assignment, 0, len(asgmts))
	values := make([]string, 0, len(asgmts))
	args := make([]interface{}, 0, 6*len(asgmts))
	for _, a := range asgmts {
		a.ID = uuid.NewString()
		a.AssignedAt = a.AssignedAt.UTC()
		n := len(args)
		values = append(values, "($"+strconv.Itoa(n+1)+", $"+strconv.Itoa(n+2)+", $"+strconv.Itoa(n+3)+
			", $"+strconv.Itoa(n+4)+", $"+strconv.Itoa(n+5)+", $"+strconv.Itoa(n+6)+")")
		args = append(args, a.ID, a.ParticipantID, a.TaskID, a.AdminID, string(a.Status), a.AssignedAt)
		out = append(out, a)
	}

	q := `INSERT INTO assignment (` + assignmentColumns + `) VALUES ` + strings.Join(values, ", ")
	if _, err := repo.exec.ExecContext(ctx, q, args...); err != nil {
		return nil, errors.Wrap(err, "inserting assignments")
	}
	return out, nil
}

func (repo *assignmentRepository) get(ctx context.Context, id, suffix string) (assignment.Assignment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	var row assignmentRow
	err := sqlx.GetContext(ctx, repo.exec, &row, `SELECT `+assignmentColumns+` FROM assignment WHERE id = $1`+suffix, id)
	if err != nil {
		return assignment.Assignment{}, trapNoRows(err, assignment.ErrNotFound, "finding assignment")
	}
	return row.assignment(), nil
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	return repo.get(ctx, id, "")
}

func (repo *assignmentRepository) GetAssignmentForUpdate(ctx context.Context, id string) (assignment.Assignment, error) {
	return repo.get(ctx, id, " FOR UPDATE")
}

func (repo *assignmentRepository) QueryAssignments(ctx context.Context, filter *assignment.QueryFilter) ([]assignment.Assignment, error) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		if filter.ParticipantID != "" {
			conds = append(conds, "participant_id = "+arg(filter.ParticipantID))
		}
		if filter.TaskID != "" {
			conds = append(conds, "task_id = "+arg(filter.TaskID))
		}
		if len(filter.Statuses) > 0 {
			conds = append(conds, "status = ANY("+arg(pq.StringArray(statusStrings(filter.Statuses)))+")")
		}
	}

	q := `SELECT ` + assignmentColumns + ` FROM assignment`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY assigned_at DESC, id"

	var rows []assignmentRow
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	out := make([]assignment.Assignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.assignment())
	}
	return out, nil
}

func (repo *assignmentRepository) SetStatus(ctx context.Context, id string, status assignment.Status) error {
	if _, err := uuid.Parse(id); err != nil {
		return assignment.ErrNotFound
	}
	res, err := repo.exec.ExecContext(ctx, `UPDATE assignment SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return errors.Wrap(err, "updating assignment status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "updating assignment status")
	}
	if n == 0 {
		return assignment.ErrNotFound
	}
	return nil
}

func (repo *assignmentRepository) SetStatusIf(ctx context.Context, id string, expected, status assignment.Status) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	res, err := repo.exec.ExecContext(ctx,
		`UPDATE assignment SET status = $3 WHERE id = $1 AND status = $2`, id, string(expected), string(status))
	if err != nil {
		return false, errors.Wrap(err, "updating assignment status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "updating assignment status")
	}
	return n == 1, nil
}

func (repo *assignmentRepository) InsertEvaluation(ctx context.Context, e assignment.Evaluation) (assignment.Evaluation, error) {
	e.ID = uuid.NewString()
	e.EvaluatedAt = e.EvaluatedAt.UTC()
	_, err := repo.exec.ExecContext(ctx,
		`INSERT INTO evaluation (id, assignment_id, participant_id, sentiment, evaluated_at) VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.AssignmentID, e.ParticipantID, string(e.Sentiment), e.EvaluatedAt)
	if err != nil {
		return assignment.Evaluation{}, errors.Wrap(err, "inserting evaluation")
	}
	return e, nil
}

func (repo *assignmentRepository) CountEvaluations(ctx context.Context, assignmentID string) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, repo.exec, &n, `SELECT COUNT(*) FROM evaluation WHERE assignment_id = $1`, assignmentID); err != nil {
		return 0, errors.Wrap(err, "counting evaluations")
	}
	return n, nil
}

func statusStrings(statuses []assignment.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
