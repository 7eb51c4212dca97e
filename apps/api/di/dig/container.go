package dig_container

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/paku/apps/api/echo"
	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/assignment"
	"github.com/trezcool/paku/core/auth"
	"github.com/trezcool/paku/core/participant"
	"github.com/trezcool/paku/core/report"
	"github.com/trezcool/paku/core/task"
	"github.com/trezcool/paku/core/user"
	appfs "github.com/trezcool/paku/fs"
	emailsvc "github.com/trezcool/paku/services/email"
	logsvc "github.com/trezcool/paku/services/logger"
	"github.com/trezcool/paku/services/metrics"
	redisstore "github.com/trezcool/paku/storage/cache/redis"
	"github.com/trezcool/paku/storage/database"
	inmemdb "github.com/trezcool/paku/storage/database/inmem"
	sqlxrepos "github.com/trezcool/paku/storage/database/sqlx"
)

const attemptRetention = 24 * time.Hour

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Storage is every repository of the selected engine, plus what must be closed on exit.
type Storage struct {
	dig.Out

	Users        user.Repository
	Participants participant.Repository
	Tasks        task.Repository
	Assignments  assignment.Repository
	Reports      report.Repository
	Attempts     auth.AttemptLog
	Closers      Closers
}

// Closers are closed in order on shutdown.
type Closers []io.Closer

func (cs Closers) Close() error {
	var firstErr error
	for _, c := range cs {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(logsvc.NewZap(conf, os.Stdout).Named("api"), conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(logsvc.NewZap(conf, os.Stdout).Named("db"), conf)
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) Storage {
	var st Storage
	switch conf.Database.Engine {
	case "inmem":
		db := inmemdb.Open()
		st = Storage{
			Users:        inmemdb.NewUserRepository(db),
			Participants: inmemdb.NewParticipantRepository(db),
			Tasks:        inmemdb.NewTaskRepository(db),
			Assignments:  inmemdb.NewAssignmentRepository(db),
			Reports:      inmemdb.NewReportRepository(db),
			Attempts:     inmemdb.NewAttemptLog(db),
			Closers:      Closers{db},
		}
	default:
		setUp := func() (*sqlx.DB, error) {
			if err := database.CreateIfNotExist(conf); err != nil {
				return nil, err
			}
			db, err := database.Open(conf)
			if err != nil {
				return nil, err
			}
			if err = database.Migrate(db.DB); err != nil {
				return nil, err
			}
			return db, nil
		}
		db, err := setUp()
		if err != nil {
			loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		st = Storage{
			Users:        sqlxrepos.NewUserRepository(db),
			Participants: sqlxrepos.NewParticipantRepository(db),
			Tasks:        sqlxrepos.NewTaskRepository(db),
			Assignments:  sqlxrepos.NewAssignmentRepository(db),
			Reports:      sqlxrepos.NewReportRepository(db),
			Attempts:     sqlxrepos.NewAttemptLog(db),
			Closers:      Closers{db},
		}
	}

	if conf.Redis.Enabled {
		cli, err := redisstore.NewClient(conf)
		if err != nil {
			loggerParam.Logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
		}
		st.Attempts = redisstore.NewAttemptLog(cli, attemptRetention)
		st.Closers = append(st.Closers, cli)
	}
	return st
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator returns a validator knowing every custom tag of the app.
func NewValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	participant.InitValidators(validate, translator)
	assignment.InitValidators(validate, translator)
	return validate
}

func newMetrics() *metrics.Manager {
	return metrics.NewManager(metrics.WithGoCollectors())
}

func newAssignmentService(repo assignment.Repository, taskSvc *task.Service, participantSvc *participant.Service) *assignment.Service {
	return assignment.NewService(repo, taskSvc, participantSvc)
}

func newStepTracker(repo assignment.Repository, taskSvc *task.Service) *assignment.StepTracker {
	return assignment.NewStepTracker(repo, taskSvc)
}

func newPinAuthenticator(conf *core.Config, participantSvc *participant.Service, attempts auth.AttemptLog, logger core.Logger) *auth.PinAuthenticator {
	limiter := auth.NewRateLimiter(attempts, auth.PolicyFromConfig(conf))
	return auth.NewPinAuthenticator(participantSvc, limiter, logger)
}

func newReportService(repo report.Repository, participantSvc *participant.Service) *report.Service {
	return report.NewService(repo, participantSvc)
}

func newDigest(usrSvc *user.Service, participantSvc *participant.Service, repo report.Repository, mailSvc core.EmailService, logger core.Logger) *report.Digest {
	return report.NewDigest(usrSvc, participantSvc, repo, mailSvc, logger)
}

// New returns a new dependency injection dig.Container
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(NewTranslator))
	must(c.Provide(NewValidator))
	must(c.Provide(newMetrics))

	must(c.Provide(user.NewService))
	must(c.Provide(participant.NewService))
	must(c.Provide(task.NewService))
	must(c.Provide(newAssignmentService))
	must(c.Provide(newStepTracker))
	must(c.Provide(assignment.NewRecorder))
	must(c.Provide(newPinAuthenticator))
	must(c.Provide(newReportService))
	must(c.Provide(newDigest))
	must(c.Provide(echoapi.NewServer))

	return c
}

// Init runs the start-up steps shared by every binary.
func Init(conf *core.Config, logger core.Logger) {
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
