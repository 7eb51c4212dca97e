package task

import (
	"context"
	"time"

	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/participant"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = core.NewNotFoundError("task not found")
)

type (
	Repository interface {
		// CreateTask inserts the task and all its steps.
		CreateTask(ctx context.Context, t Task) (Task, error)
		// GetTask returns the task with its steps.
		GetTask(ctx context.Context, id string) (Task, error)
		// QueryTasks returns the tasks without their steps, newest first.
		QueryTasks(ctx context.Context) ([]Task, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, actor core.Actor, nt NewTask) (Task, error) {
	if err := actor.RequireRole(core.RoleAdmin, "only admins can create tasks"); err != nil {
		return Task{}, err
	}
	skill, err := participant.ParseSkillLevel(nt.RequiredSkill)
	if err != nil {
		return Task{}, core.NewValidationError(err, core.FieldError{Field: "required_skill", Error: err.Error()})
	}
	if len(nt.Steps) == 0 {
		return Task{}, core.NewValidationError(nil, core.FieldError{Field: "steps", Error: "at least one step is required"})
	}

	t := Task{
		AdminID:       actor.ID,
		Name:          nt.Name,
		Description:   nt.Description,
		RequiredSkill: skill,
		CreatedAt:     NowFunc().UTC(),
		Steps:         make([]Step, 0, len(nt.Steps)),
	}
	for _, s := range nt.Steps {
		if s.StepNumber < 1 {
			return Task{}, core.NewValidationError(nil, core.FieldError{Field: "steps", Error: "step numbers start at 1"})
		}
		t.Steps = append(t.Steps, Step{StepNumber: s.StepNumber, Instruction: s.Instruction, ImagePath: s.ImagePath})
	}
	return svc.repo.CreateTask(ctx, t)
}

// GetWithSteps returns the task with its steps in ascending step_number order.
func (svc *Service) GetWithSteps(ctx context.Context, id string) (Task, error) {
	t, err := svc.repo.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	t.Steps = t.SortedSteps()
	return t, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Task, error) {
	return svc.repo.QueryTasks(ctx)
}
