package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/participant"
	"github.com/trezcool/paku/core/report"
	"github.com/trezcool/paku/core/user"
	appfs "github.com/trezcool/paku/fs"
	emailsvc "github.com/trezcool/paku/services/email"
	inmemdb "github.com/trezcool/paku/storage/database/inmem"
	"github.com/trezcool/paku/tests"
)

var (
	usrRepo         user.Repository
	participantRepo participant.Repository
	mailSvc         *emailsvc.ConsoleServiceMock
)

func setup(t *testing.T) (*commandLine, *core.Config) {
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, core.NopLogger)

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	participantRepo = inmemdb.NewParticipantRepository(db)
	mailSvc = emailsvc.NewConsoleServiceMock(conf)

	usrSvc := user.NewService(usrRepo)
	participantSvc := participant.NewService(participantRepo, conf)

	// start CLI
	return &commandLine{
		usrSvc: usrSvc,
		digest: report.NewDigest(usrSvc, participantSvc, inmemdb.NewReportRepository(db), mailSvc, core.NopLogger),
		out:    new(bytes.Buffer),
	}, conf
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	switch {
	case tt.wantErr != nil:
		assert.True(t, errors.Is(err, tt.wantErr), "cli.run() error = %v, wantErr %v", err, tt.wantErr)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err, "cli.run()")
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "0"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "rewards", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)

	testutil.CreateUser(t, usrRepo, "Parent", "parent@test.cd", "", []string{user.RoleParent}, true)

	type extra struct {
		pwd string
	}
	pwd := "Sup3r$ecret"
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "bad role", args: []string{"adduser", "-email", "x@test.cd", "-role", "root"}, extra: extra{pwd: pwd}, wantErr: errHelp},
		{name: "email but no password", args: []string{"adduser", "-email", "boss@test.cd"}, wantErr: errHelp},
		{name: "weak password", args: []string{"adduser", "-email", "boss@test.cd"}, extra: extra{pwd: "password"},
			wantErrStr: "invalid password: password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"},
		{name: "parent email taken", args: []string{"adduser", "-email", "parent@test.cd", "-role", "parent"}, extra: extra{pwd: pwd},
			wantErrStr: "a user with this email already exists"},
		{name: "new admin", args: []string{"adduser", "-email", "Boss@test.cd", "-name", "Boss"}, extra: extra{pwd: pwd}},
		{name: "existing parent becomes admin", args: []string{"adduser", "-email", "parent@test.cd"}, extra: extra{pwd: pwd}},
		{name: "new parent", args: []string{"adduser", "-email", "mama@test.cd", "-name", "Mama", "-role", "parent"}, extra: extra{pwd: pwd}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	ctx := context.Background()
	boss, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "boss@test.cd"})
	require.NoError(t, err)
	assert.True(t, boss.IsAdmin())
	assert.NoError(t, boss.CheckPassword(pwd))

	parent, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "parent@test.cd"})
	require.NoError(t, err)
	assert.True(t, parent.IsAdmin())
	assert.True(t, parent.IsParent())

	mama, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "mama@test.cd"})
	require.NoError(t, err)
	assert.Equal(t, []string{user.RoleParent}, mama.Roles)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe@test.cd", "mdr", []string{user.RoleParent}, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", " AWE@test.cd"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				require.NoError(t, err, "GetUser()")
				assert.False(t, bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash), "failed to update new password")
				assert.NoError(t, refreshedUsr.CheckPassword("lmao"))
			}
		})
	}
}

func Test_commandLine_weeklyDigest(t *testing.T) {
	cli, conf := setup(t)

	mama := testutil.CreateUser(t, usrRepo, "Mama", "mama@test.cd", "", []string{user.RoleParent}, true)
	testutil.CreateUser(t, usrRepo, "Childless", "nokids@test.cd", "", []string{user.RoleParent}, true)
	testutil.CreateUser(t, usrRepo, "Gone", "gone@test.cd", "", []string{user.RoleParent}, false)
	testutil.CreateParticipant(t, participantRepo, conf, mama.ID, "Ami", "1234", participant.SkillBasicVisual, true)

	require.NoError(t, cli.run([]string{"admin", "weeklydigest"}))
	assert.Contains(t, cli.out.(*bytes.Buffer).String(), "weekly digest: 1 sent, 1 skipped")

	sent := mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "mama@test.cd", sent[0].To[0].Address)
}
