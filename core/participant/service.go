package participant

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/paku/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound  = core.NewNotFoundError("participant not found")
	ErrPINExists = core.NewConflictError("This PIN is already in use. Please choose a different PIN.")
)

type (
	Repository interface {
		PINExists(ctx context.Context, pinDigest string) (bool, error)
		// CreateParticipant returns ErrPINExists when the digest is already taken.
		CreateParticipant(ctx context.Context, p Participant) (Participant, error)
		GetParticipant(ctx context.Context, filter GetFilter) (Participant, error)
		QueryParticipants(ctx context.Context, filter *QueryFilter) ([]Participant, error)
		// UpdateReview saves the skill level & active flag only.
		UpdateReview(ctx context.Context, id string, skill SkillLevel, isActive bool) (Participant, error)
	}

	Service struct {
		repo   Repository
		secret []byte
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{repo: repo, secret: []byte(conf.SecretKey)}
}

// Digest returns the stored form of `pin`.
func (svc *Service) Digest(pin string) string {
	return DigestPIN(svc.secret, pin)
}

func (svc *Service) CheckPIN(p Participant, pin string) bool {
	return p.CheckPIN(svc.secret, pin)
}

// Register creates a child profile for the calling parent: inactive, skill level Pending.
func (svc *Service) Register(ctx context.Context, actor core.Actor, np NewParticipant) (Participant, error) {
	if err := actor.RequireRole(core.RoleParent, "only parents can register a child"); err != nil {
		return Participant{}, err
	}
	if !ValidPIN(np.PIN) {
		return Participant{}, core.NewValidationError(nil, core.FieldError{Field: "pin", Error: "The child PIN must be exactly 4 digits."})
	}

	digest := svc.Digest(np.PIN)
	exists, err := svc.repo.PINExists(ctx, digest)
	if err != nil {
		return Participant{}, errors.Wrap(err, "checking PIN uniqueness")
	}
	if exists {
		return Participant{}, ErrPINExists
	}

	return svc.repo.CreateParticipant(ctx, Participant{
		ParentID:       actor.ID,
		Name:           np.Name,
		PINDigest:      digest,
		SkillLevel:     SkillPending,
		IsActive:       false,
		SensoryDetails: np.SensoryDetails,
		CreatedAt:      NowFunc().UTC(),
	})
}

// Review sets the skill level and the active flag of a participant.
func (svc *Service) Review(ctx context.Context, actor core.Actor, id string, rp ReviewParticipant) (Participant, error) {
	if err := actor.RequireRole(core.RoleAdmin, "only admins can review participants"); err != nil {
		return Participant{}, err
	}
	skill, err := ParseSkillLevel(rp.SkillLevel)
	if err != nil {
		return Participant{}, core.NewValidationError(err, core.FieldError{Field: "skill_level", Error: skillText})
	}
	if rp.IsActive == nil {
		return Participant{}, core.NewValidationError(nil, core.FieldError{Field: "is_active", Error: "this field is required"})
	}
	return svc.repo.UpdateReview(ctx, id, skill, *rp.IsActive)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Participant, error) {
	return svc.repo.GetParticipant(ctx, GetFilter{ID: id})
}

// LookupByPIN finds a participant by PIN whatever its active flag.
func (svc *Service) LookupByPIN(ctx context.Context, pin string) (Participant, error) {
	return svc.repo.GetParticipant(ctx, GetFilter{PINDigest: svc.Digest(pin)})
}

// GetForParent returns the participant only if it belongs to the calling parent (admins see all).
func (svc *Service) GetForParent(ctx context.Context, actor core.Actor, id string) (Participant, error) {
	p, err := svc.GetByID(ctx, id)
	if err != nil {
		return Participant{}, err
	}
	if actor.IsAdmin() {
		return p, nil
	}
	if !actor.IsParent() || p.ParentID != actor.ID {
		return Participant{}, ErrNotFound
	}
	return p, nil
}

func (svc *Service) QueryByParent(ctx context.Context, parentID string) ([]Participant, error) {
	return svc.repo.QueryParticipants(ctx, &QueryFilter{ParentID: parentID})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Participant, error) {
	return svc.repo.QueryParticipants(ctx, filter)
}
