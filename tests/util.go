package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/assignment"
	"github.com/trezcool/paku/core/participant"
	"github.com/trezcool/paku/core/task"
	"github.com/trezcool/paku/core/user"
	"github.com/trezcool/paku/storage/database"
)

// TestDatabaseURLEnv names the variable holding the postgres DSN of the integration tests.
const TestDatabaseURLEnv = "TEST_DATABASE_URL"

// OpenDB connects to the test postgres database and migrates it. The test is skipped when none is configured.
func OpenDB(t *testing.T) *sqlx.DB {
	dsn := os.Getenv(TestDatabaseURLEnv)
	if dsn == "" {
		t.Skipf("%s not set", TestDatabaseURLEnv)
	}
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err, "sqlx.Connect()")
	require.NoError(t, database.Migrate(db.DB), "Migrate()")
	return db
}

// ResetDB truncates every table.
func ResetDB(t *testing.T, db *sqlx.DB) {
	_, err := db.Exec(`TRUNCATE evaluation, assignment, task_step, task, login_attempt, participant, "user" CASCADE`)
	require.NoError(t, err, "ResetDB()")
}

func CreateUser(t *testing.T, repo user.Repository, name, email, pwd string, roles []string, isActive bool, createdAt ...time.Time) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		require.NoError(t, usr.SetPassword(pwd), "CreateUser()")
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err, "CreateUser()")
	return usr
}

func CreateParticipant(
	t *testing.T,
	repo participant.Repository,
	conf *core.Config,
	parentID, name, pin string,
	skill participant.SkillLevel,
	isActive bool,
) participant.Participant {
	p, err := repo.CreateParticipant(context.Background(), participant.Participant{
		ParentID:       parentID,
		Name:           name,
		PINDigest:      participant.DigestPIN([]byte(conf.SecretKey), pin),
		SkillLevel:     skill,
		IsActive:       isActive,
		SensoryDetails: "likes quiet rooms",
		CreatedAt:      time.Now().UTC(),
	})
	require.NoError(t, err, "CreateParticipant()")
	return p
}

// CreateTask numbers the instructions from 1.
func CreateTask(t *testing.T, repo task.Repository, adminID, name string, skill participant.SkillLevel, instructions ...string) task.Task {
	tsk := task.Task{
		AdminID:       adminID,
		Name:          name,
		Description:   name,
		RequiredSkill: skill,
		CreatedAt:     time.Now().UTC(),
	}
	for i, ins := range instructions {
		tsk.Steps = append(tsk.Steps, task.Step{StepNumber: i + 1, Instruction: ins})
	}
	tsk, err := repo.CreateTask(context.Background(), tsk)
	require.NoError(t, err, "CreateTask()")
	return tsk
}

func CreateAssignment(t *testing.T, repo assignment.Repository, participantID, taskID, adminID string, status assignment.Status, assignedAt ...time.Time) assignment.Assignment {
	tstamp := time.Now().UTC()
	if len(assignedAt) > 0 {
		tstamp = assignedAt[0].UTC()
	}
	asgmts, err := repo.InsertAssignments(context.Background(), []assignment.Assignment{{
		ParticipantID: participantID,
		TaskID:        taskID,
		AdminID:       adminID,
		Status:        status,
		AssignedAt:    tstamp,
	}})
	require.NoError(t, err, "CreateAssignment()")
	require.Len(t, asgmts, 1)
	return asgmts[0]
}
