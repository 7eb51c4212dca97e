package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/paku/core/task"
)

type taskRepository struct {
	db *DB
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *DB) *taskRepository {
	return &taskRepository{db: db}
}

func (repo *taskRepository) CreateTask(_ context.Context, t task.Task) (task.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t.ID = uuid.NewString()
	steps := make([]task.Step, 0, len(t.Steps))
	for _, s := range t.Steps {
		s.TaskID = t.ID
		steps = append(steps, s)
	}
	t.Steps = steps
	repo.db.tasks[t.ID] = &t
	repo.db.track(t.ID)
	return copyTask(t), nil
}

func (repo *taskRepository) GetTask(_ context.Context, id string) (task.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	t, ok := repo.db.tasks[id]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	return copyTask(*t), nil
}

func (repo *taskRepository) QueryTasks(_ context.Context) ([]task.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tasks := make([]task.Task, 0, len(repo.db.tasks))
	for _, t := range repo.db.tasks {
		cp := *t
		cp.Steps = nil
		tasks = append(tasks, cp)
	}
	sort.Slice(tasks, func(i, j int) bool { return repo.db.inserted[tasks[i].ID] > repo.db.inserted[tasks[j].ID] })
	return tasks, nil
}

func copyTask(t task.Task) task.Task {
	t.Steps = append([]task.Step(nil), t.Steps...)
	return t
}
