package inmemdb

import (
	"sync"

	"github.com/trezcool/paku/core/assignment"
	"github.com/trezcool/paku/core/auth"
	"github.com/trezcool/paku/core/participant"
	"github.com/trezcool/paku/core/task"
	"github.com/trezcool/paku/core/user"
)

// DB is a process-local store for dev mode & tests.
// One RWMutex guards every table so a transaction can hold it for its whole duration.
type DB struct {
	mutex sync.RWMutex

	users        map[string]*user.User
	participants map[string]*participant.Participant
	tasks        map[string]*task.Task
	assignments  map[string]*assignment.Assignment
	evaluations  []assignment.Evaluation
	attempts     []auth.Attempt

	seq      int64
	inserted map[string]int64 // row id -> insertion sequence, for stable ordering
}

func Open() *DB {
	db := new(DB)
	db.reset()
	return db
}

// Reset drops all the data.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.reset()
}

func (db *DB) reset() {
	db.users = make(map[string]*user.User)
	db.participants = make(map[string]*participant.Participant)
	db.tasks = make(map[string]*task.Task)
	db.assignments = make(map[string]*assignment.Assignment)
	db.evaluations = nil
	db.attempts = nil
	db.seq = 0
	db.inserted = make(map[string]int64)
}

func (db *DB) track(id string) {
	db.seq++
	db.inserted[id] = db.seq
}

// Close is a no-op, kept so DB can stand in for a real database handle.
func (db *DB) Close() error { return nil }
