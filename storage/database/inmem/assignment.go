package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/paku/core/assignment"
)

type assignmentRepository struct {
	db   *DB
	inTx bool // the DB mutex is already held by WithinTx
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) rlock() func() {
	if repo.inTx {
		return func() {}
	}
	repo.db.mutex.RLock()
	return repo.db.mutex.RUnlock
}

func (repo *assignmentRepository) lock() func() {
	if repo.inTx {
		return func() {}
	}
	repo.db.mutex.Lock()
	return repo.db.mutex.Unlock
}

// WithinTx holds the write lock for the whole of fn and restores the assignments & evaluations if it fails.
func (repo *assignmentRepository) WithinTx(_ context.Context, fn func(repo assignment.Repository) error) error {
	if repo.inTx {
		return fn(repo)
	}
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	asgmts := make(map[string]assignment.Assignment, len(repo.db.assignments))
	for id, a := range repo.db.assignments {
		asgmts[id] = *a
	}
	evals := append([]assignment.Evaluation(nil), repo.db.evaluations...)

	if err := fn(&assignmentRepository{db: repo.db, inTx: true}); err != nil {
		repo.db.assignments = make(map[string]*assignment.Assignment, len(asgmts))
		for id := range asgmts {
			a := asgmts[id]
			repo.db.assignments[id] = &a
		}
		repo.db.evaluations = evals
		return err
	}
	return nil
}

// LockTask is a no-op: WithinTx already serializes every writer.
func (repo *assignmentRepository) LockTask(_ context.Context, _ string) error {
	return nil
}

func (repo *assignmentRepository) ActiveParticipantIDs(_ context.Context, taskID string, participantIDs []string) ([]string, error) {
	defer repo.rlock()()

	wanted := make(map[string]struct{}, len(participantIDs))
	for _, id := range participantIDs {
		wanted[id] = struct{}{}
	}
	seen := make(map[string]struct{})
	active := make([]string, 0)
	for _, a := range repo.db.assignments {
		if a.TaskID != taskID || !a.Status.IsActive() {
			continue
		}
		if _, ok := wanted[a.ParticipantID]; !ok {
			continue
		}
		if _, ok := seen[a.ParticipantID]; ok {
			continue
		}
		seen[a.ParticipantID] = struct{}{}
		active = append(active, a.ParticipantID)
	}
	sort.Strings(active)
	return active, nil
}

func (repo *assignmentRepository) InsertAssignments(_ context.Context, asgmts []assignment.Assignment) ([]assignment.Assignment, error) {
	defer repo.lock()()

	out := make([]assignment.Assignment, 0, len(asgmts))
	for _, a := range asgmts {
		a.ID = uuid.NewString()
		cp := a
		repo.db.assignments[a.ID] = &cp
		repo.db.track(a.ID)
		out = append(out, a)
	}
	return out, nil
}

func (repo *assignmentRepository) GetAssignment(_ context.Context, id string) (assignment.Assignment, error) {
	defer repo.rlock()()

	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) GetAssignmentForUpdate(ctx context.Context, id string) (assignment.Assignment, error) {
	return repo.GetAssignment(ctx, id)
}

func (repo *assignmentRepository) QueryAssignments(_ context.Context, filter *assignment.QueryFilter) ([]assignment.Assignment, error) {
	defer repo.rlock()()

	out := make([]assignment.Assignment, 0)
	for _, a := range repo.db.assignments {
		if filter != nil {
			if filter.ParticipantID != "" && a.ParticipantID != filter.ParticipantID {
				continue
			}
			if filter.TaskID != "" && a.TaskID != filter.TaskID {
				continue
			}
			if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, a.Status) {
				continue
			}
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return repo.db.inserted[out[i].ID] > repo.db.inserted[out[j].ID] })
	return out, nil
}

func (repo *assignmentRepository) SetStatus(_ context.Context, id string, status assignment.Status) error {
	defer repo.lock()()

	a, ok := repo.db.assignments[id]
	if !ok {
		return assignment.ErrNotFound
	}
	a.Status = status
	return nil
}

func (repo *assignmentRepository) SetStatusIf(_ context.Context, id string, expected, status assignment.Status) (bool, error) {
	defer repo.lock()()

	a, ok := repo.db.assignments[id]
	if !ok || a.Status != expected {
		return false, nil
	}
	a.Status = status
	return true, nil
}

func (repo *assignmentRepository) InsertEvaluation(_ context.Context, e assignment.Evaluation) (assignment.Evaluation, error) {
	defer repo.lock()()

	if _, ok := repo.db.assignments[e.AssignmentID]; !ok {
		return assignment.Evaluation{}, assignment.ErrNotFound
	}
	e.ID = uuid.NewString()
	repo.db.evaluations = append(repo.db.evaluations, e)
	return e, nil
}

func (repo *assignmentRepository) CountEvaluations(_ context.Context, assignmentID string) (int, error) {
	defer repo.rlock()()

	n := 0
	for _, e := range repo.db.evaluations {
		if e.AssignmentID == assignmentID {
			n++
		}
	}
	return n, nil
}

func hasStatus(statuses []assignment.Status, s assignment.Status) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}
