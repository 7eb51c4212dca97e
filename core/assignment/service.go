package assignment

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/participant"
	"github.com/trezcool/paku/core/task"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = core.NewNotFoundError("assignment not found")
)

type (
	Repository interface {
		// WithinTx runs fn inside one transaction, against a Repository bound to it.
		// The transaction is committed when fn returns nil and rolled back otherwise.
		WithinTx(ctx context.Context, fn func(repo Repository) error) error

		// LockTask holds the per-task creation lock until the end of the current transaction.
		LockTask(ctx context.Context, taskID string) error
		// ActiveParticipantIDs returns which of participantIDs already hold a Pending or In Progress assignment of the task.
		ActiveParticipantIDs(ctx context.Context, taskID string, participantIDs []string) ([]string, error)
		InsertAssignments(ctx context.Context, asgmts []Assignment) ([]Assignment, error)

		GetAssignment(ctx context.Context, id string) (Assignment, error)
		// GetAssignmentForUpdate also locks the row until the end of the current transaction.
		GetAssignmentForUpdate(ctx context.Context, id string) (Assignment, error)
		QueryAssignments(ctx context.Context, filter *QueryFilter) ([]Assignment, error)

		// SetStatus returns ErrNotFound when no such assignment exists.
		SetStatus(ctx context.Context, id string, status Status) error
		// SetStatusIf only writes when the stored status equals expected and reports whether it did.
		SetStatusIf(ctx context.Context, id string, expected, status Status) (bool, error)

		InsertEvaluation(ctx context.Context, e Evaluation) (Evaluation, error)
		CountEvaluations(ctx context.Context, assignmentID string) (int, error)
	}

	TaskFinder interface {
		GetWithSteps(ctx context.Context, id string) (task.Task, error)
	}

	ParticipantFinder interface {
		Query(ctx context.Context, filter *participant.QueryFilter) ([]participant.Participant, error)
	}

	Service struct {
		repo         Repository
		tasks        TaskFinder
		participants ParticipantFinder
	}
)

func NewService(repo Repository, tasks TaskFinder, participants ParticipantFinder) *Service {
	return &Service{repo: repo, tasks: tasks, participants: participants}
}

// CreateAssignments assigns a task to many participants at once.
// Participants already holding a Pending or In Progress assignment of the task are skipped,
// and so are repeated ids in the request.
func (svc *Service) CreateAssignments(ctx context.Context, actor core.Actor, taskID string, participantIDs []string) (CreateResult, error) {
	if err := actor.RequireRole(core.RoleAdmin, "only admins can assign tasks"); err != nil {
		return CreateResult{}, err
	}

	taskID = core.CleanString(taskID)
	if taskID == "" {
		return CreateResult{}, core.NewValidationError(nil, core.FieldError{Field: "taskId", Error: "this field is required"})
	}
	ids, dupes := core.DedupStrings(participantIDs)
	if len(ids) == 0 {
		return CreateResult{}, core.NewValidationError(nil, core.FieldError{Field: "participantIds", Error: "select at least one participant"})
	}

	if _, err := svc.tasks.GetWithSteps(ctx, taskID); err != nil {
		return CreateResult{}, errors.Wrap(err, "getting task")
	}

	found, err := svc.participants.Query(ctx, &participant.QueryFilter{IDs: ids})
	if err != nil {
		return CreateResult{}, errors.Wrap(err, "querying participants")
	}
	if len(found) != len(ids) {
		known := make(map[string]struct{}, len(found))
		for _, p := range found {
			known[p.ID] = struct{}{}
		}
		unknown := make([]string, 0, len(ids)-len(found))
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				unknown = append(unknown, id)
			}
		}
		return CreateResult{}, core.NewValidationError(nil, core.FieldError{
			Field: "participantIds",
			Error: "unknown participants: " + strings.Join(unknown, ", "),
		})
	}

	var res CreateResult
	now := NowFunc().UTC()
	err = svc.repo.WithinTx(ctx, func(repo Repository) error {
		if err := repo.LockTask(ctx, taskID); err != nil {
			return err
		}
		active, err := repo.ActiveParticipantIDs(ctx, taskID, ids)
		if err != nil {
			return err
		}
		skip := make(map[string]struct{}, len(active))
		for _, id := range active {
			skip[id] = struct{}{}
		}

		toInsert := make([]Assignment, 0, len(ids))
		for _, pid := range ids {
			if _, ok := skip[pid]; ok {
				continue
			}
			toInsert = append(toInsert, Assignment{
				ParticipantID: pid,
				TaskID:        taskID,
				AdminID:       actor.ID,
				Status:        StatusPending,
				AssignedAt:    now,
			})
		}
		if len(toInsert) > 0 {
			if _, err = repo.InsertAssignments(ctx, toInsert); err != nil {
				return err
			}
		}
		res = CreateResult{Assigned: len(toInsert), Skipped: dupes + len(ids) - len(toInsert)}
		return nil
	})
	if err != nil {
		return CreateResult{}, errors.Wrap(err, "creating assignments")
	}
	return res, nil
}

// SetStatusUnconditional is the admin override: any status to any status.
// TODO: confirm with product whether admins may reopen Completed assignments.
func (svc *Service) SetStatusUnconditional(ctx context.Context, actor core.Actor, id, newStatus string) (Assignment, error) {
	if err := actor.RequireRole(core.RoleAdmin, "only admins can override an assignment status"); err != nil {
		return Assignment{}, err
	}
	status, err := ParseStatus(newStatus)
	if err != nil {
		return Assignment{}, core.NewValidationError(err, core.FieldError{Field: "newStatus", Error: "invalid status value"})
	}
	if err = svc.repo.SetStatus(ctx, core.CleanString(id), status); err != nil {
		return Assignment{}, err
	}
	return svc.repo.GetAssignment(ctx, core.CleanString(id))
}

// SetStatusIfCurrently is a compare-and-set on the assignment status.
func (svc *Service) SetStatusIfCurrently(ctx context.Context, id string, expected, status Status) (bool, error) {
	return svc.repo.SetStatusIf(ctx, id, expected, status)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Assignment, error) {
	return svc.repo.GetAssignment(ctx, id)
}

// GetForParticipant returns the assignment only if it belongs to the calling participant.
func (svc *Service) GetForParticipant(ctx context.Context, actor core.Actor, id string) (Assignment, error) {
	if err := actor.RequireRole(core.RoleParticipant, "participants only"); err != nil {
		return Assignment{}, err
	}
	a, err := svc.repo.GetAssignment(ctx, core.CleanString(id))
	if err != nil {
		return Assignment{}, err
	}
	if a.ParticipantID != actor.ID {
		return Assignment{}, ErrNotFound
	}
	return a, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Assignment, error) {
	return svc.repo.QueryAssignments(ctx, filter)
}
