package report

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/assignment"
	"github.com/trezcool/paku/core/participant"
)

var (
	NowFunc = time.Now // mockable

	historyLimit = 10
)

type (
	Repository interface {
		Summary(ctx context.Context) (Summary, error)
		// QueryAssignmentRows returns the matching rows, newest assignment first.
		QueryAssignmentRows(ctx context.Context, filter AssignmentFilter) ([]AssignmentRow, error)
		ChildTotals(ctx context.Context, participantID string, since time.Time) (ChildTotals, error)
		// CompletedHistory returns the latest completed assignments of a participant, latest evaluation first.
		CompletedHistory(ctx context.Context, participantID string, limit int) ([]AssignmentRow, error)
	}

	ParticipantGetter interface {
		GetForParent(ctx context.Context, actor core.Actor, id string) (participant.Participant, error)
	}

	Service struct {
		repo         Repository
		participants ParticipantGetter
	}
)

func NewService(repo Repository, participants ParticipantGetter) *Service {
	return &Service{repo: repo, participants: participants}
}

func (svc *Service) AdminSummary(ctx context.Context, actor core.Actor) (Summary, error) {
	if err := actor.RequireRole(core.RoleAdmin, "admins only"); err != nil {
		return Summary{}, err
	}
	return svc.repo.Summary(ctx)
}

func (svc *Service) AssignmentReport(ctx context.Context, actor core.Actor, filter AssignmentFilter) ([]AssignmentRow, error) {
	if err := actor.RequireRole(core.RoleAdmin, "admins only"); err != nil {
		return nil, err
	}
	if filter.Status != "" {
		if _, err := assignment.ParseStatus(string(filter.Status)); err != nil {
			return nil, core.NewValidationError(err, core.FieldError{Field: "status", Error: "invalid status value"})
		}
	}
	if filter.RequiredSkill != "" {
		if _, err := participant.ParseSkillLevel(string(filter.RequiredSkill)); err != nil {
			return nil, core.NewValidationError(err, core.FieldError{Field: "skill", Error: "invalid skill level"})
		}
	}
	return svc.repo.QueryAssignmentRows(ctx, filter)
}

// ParentReport is the progress report of one child of the calling parent.
func (svc *Service) ParentReport(ctx context.Context, actor core.Actor, participantID string) (ParentReport, error) {
	p, err := svc.participants.GetForParent(ctx, actor, participantID)
	if err != nil {
		return ParentReport{}, err
	}
	totals, err := svc.repo.ChildTotals(ctx, p.ID, NowFunc().UTC().AddDate(0, 0, -7))
	if err != nil {
		return ParentReport{}, errors.Wrap(err, "getting child totals")
	}
	history, err := svc.repo.CompletedHistory(ctx, p.ID, historyLimit)
	if err != nil {
		return ParentReport{}, errors.Wrap(err, "getting completed history")
	}
	return ParentReport{Participant: p, Totals: totals, History: history}, nil
}

var statusRank = map[assignment.Status]int{
	assignment.StatusInProgress: 0,
	assignment.StatusPending:    1,
	assignment.StatusCompleted:  2,
	assignment.StatusCanceled:   3,
}

// ParticipantTasks lists the caller's assignments: In Progress first, then Pending, Completed and Canceled.
func (svc *Service) ParticipantTasks(ctx context.Context, actor core.Actor) ([]AssignmentRow, error) {
	if err := actor.RequireRole(core.RoleParticipant, "participants only"); err != nil {
		return nil, err
	}
	rows, err := svc.repo.QueryAssignmentRows(ctx, AssignmentFilter{ParticipantID: actor.ID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return statusRank[rows[i].Status] < statusRank[rows[j].Status]
	})
	return rows, nil
}
