package sqlxrepos

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/paku/core/participant"
)

const participantColumns = `id, parent_id, name, pin_digest, skill_level, is_active, sensory_details, created_at`

type participantRepository struct {
	db *sqlx.DB
}

var _ participant.Repository = (*participantRepository)(nil) // interface compliance check

func NewParticipantRepository(db *sqlx.DB) *participantRepository {
	return &participantRepository{db: db}
}

func (repo *participantRepository) PINExists(ctx context.Context, digest string) (bool, error) {
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM participant WHERE pin_digest = $1)`, digest); err != nil {
		return false, errors.Wrap(err, "checking participant PIN")
	}
	return exists, nil
}

func (repo *participantRepository) CreateParticipant(ctx context.Context, p participant.Participant) (participant.Participant, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = p.CreatedAt.UTC()
	q := `INSERT INTO participant (` + participantColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.db.ExecContext(ctx, q,
		p.ID, p.ParentID, p.Name, p.PINDigest, string(p.SkillLevel), p.IsActive, p.SensoryDetails, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return participant.Participant{}, participant.ErrPINExists
		}
		return participant.Participant{}, errors.Wrap(err, "inserting participant")
	}
	return p, nil
}

func scanParticipant(row interface{ Scan(...interface{}) error }) (participant.Participant, error) {
	var p participant.Participant
	var skill string
	err := row.Scan(&p.ID, &p.ParentID, &p.Name, &p.PINDigest, &skill, &p.IsActive, &p.SensoryDetails, &p.CreatedAt)
	p.SkillLevel = participant.SkillLevel(skill)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, err
}

func (repo *participantRepository) GetParticipant(ctx context.Context, filter participant.GetFilter) (participant.Participant, error) {
	q := `SELECT ` + participantColumns + ` FROM participant WHERE `
	var row *sqlx.Row

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return participant.Participant{}, participant.ErrNotFound
		}
		row = repo.db.QueryRowxContext(ctx, q+`id = $1`, filter.ID)
	case filter.PINDigest != "":
		row = repo.db.QueryRowxContext(ctx, q+`pin_digest = $1`, filter.PINDigest)
	default:
		return participant.Participant{}, participant.ErrNotFound
	}

	p, err := scanParticipant(row)
	if err != nil {
		return participant.Participant{}, trapNoRows(err, participant.ErrNotFound, "finding participant")
	}
	return p, nil
}

func (repo *participantRepository) QueryParticipants(ctx context.Context, filter *participant.QueryFilter) ([]participant.Participant, error) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		if filter.IDs != nil {
			ids := make([]string, 0, len(filter.IDs))
			for _, id := range filter.IDs {
				if _, err := uuid.Parse(id); err == nil {
					ids = append(ids, id)
				}
			}
			conds = append(conds, "id = ANY("+arg(pq.StringArray(ids))+"::uuid[])")
		}
		if filter.ParentID != "" {
			conds = append(conds, "parent_id = "+arg(filter.ParentID))
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = "+arg(*filter.IsActive))
		}
		if filter.SkillLevel != "" {
			conds = append(conds, "skill_level = "+arg(string(filter.SkillLevel)))
		}
	}

	q := `SELECT ` + participantColumns + ` FROM participant`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at, id"

	rows, err := repo.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying participants")
	}
	defer func() { _ = rows.Close() }()

	out := make([]participant.Participant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning participant")
		}
		out = append(out, p)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "querying participants")
	}
	return out, nil
}

func (repo *participantRepository) UpdateReview(ctx context.Context, id string, skill participant.SkillLevel, isActive bool) (participant.Participant, error) {
	if _, err := uuid.Parse(id); err != nil {
		return participant.Participant{}, participant.ErrNotFound
	}
	q := `UPDATE participant SET skill_level = $2, is_active = $3 WHERE id = $1 RETURNING ` + participantColumns
	p, err := scanParticipant(repo.db.QueryRowxContext(ctx, q, id, string(skill), isActive))
	if err != nil {
		return participant.Participant{}, trapNoRows(err, participant.ErrNotFound, "updating participant review")
	}
	return p, nil
}
