package assignment

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/task"
)

var errNoSteps = errors.New("This task has no steps defined")

// StepResult is either one step of the task or the signal that every step is done.
type StepResult struct {
	Step     *task.Step `json:"step,omitempty"`
	Number   int        `json:"number"`
	Total    int        `json:"total"`
	Evaluate bool       `json:"evaluate"`
}

// ResolveStep maps a 1-based step request onto the task steps ordered by step_number.
// Requesting total+1 means the evaluation phase; anything outside [1, total+1] is invalid.
func ResolveStep(t task.Task, requested int) (StepResult, error) {
	steps := t.SortedSteps()
	total := len(steps)
	if total == 0 {
		return StepResult{}, core.NewValidationError(errNoSteps, core.FieldError{Field: "step", Error: errNoSteps.Error()})
	}
	if requested < 1 || requested > total+1 {
		msg := "step must be between 1 and " + strconv.Itoa(total+1)
		return StepResult{}, core.NewValidationError(errors.New(msg), core.FieldError{Field: "step", Error: msg})
	}
	if requested == total+1 {
		return StepResult{Number: requested, Total: total, Evaluate: true}, nil
	}
	step := steps[requested-1]
	return StepResult{Step: &step, Number: requested, Total: total}, nil
}

// StepTracker drives the participant through the steps of an assignment.
type StepTracker struct {
	repo  Repository
	tasks TaskFinder
}

func NewStepTracker(repo Repository, tasks TaskFinder) *StepTracker {
	return &StepTracker{repo: repo, tasks: tasks}
}

// EnsureStarted moves a Pending assignment to In Progress.
// It reports false, without error, when the assignment had already left Pending.
func (st *StepTracker) EnsureStarted(ctx context.Context, a Assignment) (bool, error) {
	started, err := st.repo.SetStatusIf(ctx, a.ID, StatusPending, StatusInProgress)
	if err != nil {
		return false, errors.Wrap(err, "starting assignment")
	}
	return started, nil
}

// Navigate resolves the requested step of the caller's assignment and marks it started.
func (st *StepTracker) Navigate(ctx context.Context, actor core.Actor, assignmentID string, requested int) (Assignment, StepResult, bool, error) {
	if err := actor.RequireRole(core.RoleParticipant, "only participants can work on assignments"); err != nil {
		return Assignment{}, StepResult{}, false, err
	}
	a, err := st.repo.GetAssignment(ctx, core.CleanString(assignmentID))
	if err != nil {
		return Assignment{}, StepResult{}, false, err
	}
	if a.ParticipantID != actor.ID {
		return Assignment{}, StepResult{}, false, ErrNotFound
	}

	t, err := st.tasks.GetWithSteps(ctx, a.TaskID)
	if err != nil {
		return Assignment{}, StepResult{}, false, errors.Wrap(err, "getting task")
	}
	res, err := ResolveStep(t, requested)
	if err != nil {
		return Assignment{}, StepResult{}, false, err
	}

	started, err := st.EnsureStarted(ctx, a)
	if err != nil {
		return Assignment{}, StepResult{}, false, err
	}
	if started {
		a.Status = StatusInProgress
	}
	return a, res, started, nil
}
