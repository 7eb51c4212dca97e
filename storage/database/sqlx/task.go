package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/paku/core/participant"
	"github.com/trezcool/paku/core/task"
)

type taskRow struct {
	ID            string    `db:"id"`
	AdminID       string    `db:"admin_id"`
	Name          string    `db:"name"`
	Description   string    `db:"description"`
	RequiredSkill string    `db:"required_skill"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r taskRow) task() task.Task {
	return task.Task{
		ID:            r.ID,
		AdminID:       r.AdminID,
		Name:          r.Name,
		Description:   r.Description,
		RequiredSkill: participant.SkillLevel(r.RequiredSkill),
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

type stepRow struct {
	TaskID      string      `db:"task_id"`
	StepNumber  int         `db:"step_number"`
	Instruction string      `db:"instruction"`
	ImagePath   null.String `db:"image_path"`
}

type taskRepository struct {
	db *sqlx.DB
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *sqlx.DB) *taskRepository {
	return &taskRepository{db: db}
}

// CreateTask inserts the task & its steps atomically.
func (repo *taskRepository) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	t.ID = uuid.NewString()
	t.CreatedAt = t.CreatedAt.UTC()

	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO task (id, admin_id, name, description, required_skill, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			t.ID, t.AdminID, t.Name, t.Description, string(t.RequiredSkill), t.CreatedAt)
		if err != nil {
			return errors.Wrap(err, "inserting task")
		}
		for i := range t.Steps {
			t.Steps[i].TaskID = t.ID
			s := t.Steps[i]
			_, err = tx.ExecContext(ctx,
				`INSERT INTO task_step (task_id, step_number, instruction, image_path) VALUES ($1, $2, $3, $4)`,
				s.TaskID, s.StepNumber, s.Instruction, null.NewString(s.ImagePath, s.ImagePath != ""))
			if err != nil {
				return errors.Wrap(err, "inserting task step")
			}
		}
		return nil
	})
	if err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func (repo *taskRepository) GetTask(ctx context.Context, id string) (task.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return task.Task{}, task.ErrNotFound
	}
	var row taskRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, admin_id, name, description, required_skill, created_at FROM task WHERE id = $1`, id)
	if err != nil {
		return task.Task{}, trapNoRows(err, task.ErrNotFound, "finding task")
	}

	var steps []stepRow
	err = repo.db.SelectContext(ctx, &steps,
		`SELECT task_id, step_number, instruction, image_path FROM task_step WHERE task_id = $1 ORDER BY step_number`, id)
	if err != nil {
		return task.Task{}, errors.Wrap(err, "querying task steps")
	}

	t := row.task()
	t.Steps = make([]task.Step, 0, len(steps))
	for _, s := range steps {
		t.Steps = append(t.Steps, task.Step{
			TaskID:      s.TaskID,
			StepNumber:  s.StepNumber,
			Instruction: s.Instruction,
			ImagePath:   s.ImagePath.String,
		})
	}
	return t, nil
}

func (repo *taskRepository) QueryTasks(ctx context.Context) ([]task.Task, error) {
	var rows []taskRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT id, admin_id, name, description, required_skill, created_at FROM task ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	tasks := make([]task.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.task())
	}
	return tasks, nil
}
