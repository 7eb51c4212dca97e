package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/paku/core/participant"
)

type participantRepository struct {
	db *DB
}

var _ participant.Repository = (*participantRepository)(nil) // interface compliance check

func NewParticipantRepository(db *DB) *participantRepository {
	return &participantRepository{db: db}
}

func (repo *participantRepository) pinExists(digest string) bool {
	for _, p := range repo.db.participants {
		if p.PINDigest == digest {
			return true
		}
	}
	return false
}

func (repo *participantRepository) PINExists(_ context.Context, digest string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.pinExists(digest), nil
}

func (repo *participantRepository) CreateParticipant(_ context.Context, p participant.Participant) (participant.Participant, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.pinExists(p.PINDigest) {
		return participant.Participant{}, participant.ErrPINExists
	}
	p.ID = uuid.NewString()
	repo.db.participants[p.ID] = &p
	repo.db.track(p.ID)
	return p, nil
}

func (repo *participantRepository) GetParticipant(_ context.Context, filter participant.GetFilter) (participant.Participant, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if p, ok := repo.db.participants[filter.ID]; ok {
			return *p, nil
		}
		return participant.Participant{}, participant.ErrNotFound
	}
	if filter.PINDigest != "" {
		for _, p := range repo.db.participants {
			if p.PINDigest == filter.PINDigest {
				return *p, nil
			}
		}
	}
	return participant.Participant{}, participant.ErrNotFound
}

func (repo *participantRepository) QueryParticipants(_ context.Context, filter *participant.QueryFilter) ([]participant.Participant, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var ids map[string]struct{}
	if filter != nil && filter.IDs != nil {
		ids = make(map[string]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = struct{}{}
		}
	}

	out := make([]participant.Participant, 0)
	for _, p := range repo.db.participants {
		if filter != nil {
			if ids != nil {
				if _, ok := ids[p.ID]; !ok {
					continue
				}
			}
			if filter.ParentID != "" && p.ParentID != filter.ParentID {
				continue
			}
			if filter.IsActive != nil && p.IsActive != *filter.IsActive {
				continue
			}
			if filter.SkillLevel != "" && p.SkillLevel != filter.SkillLevel {
				continue
			}
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return repo.db.inserted[out[i].ID] < repo.db.inserted[out[j].ID] })
	return out, nil
}

func (repo *participantRepository) UpdateReview(_ context.Context, id string, skill participant.SkillLevel, isActive bool) (participant.Participant, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p, ok := repo.db.participants[id]
	if !ok {
		return participant.Participant{}, participant.ErrNotFound
	}
	p.SkillLevel = skill
	p.IsActive = isActive
	return *p, nil
}
