package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/participant"
	"github.com/trezcool/paku/core/report"
	"github.com/trezcool/paku/core/user"
	appfs "github.com/trezcool/paku/fs"
	emailsvc "github.com/trezcool/paku/services/email"
	logsvc "github.com/trezcool/paku/services/logger"
	"github.com/trezcool/paku/storage/database"
	sqlxrepos "github.com/trezcool/paku/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewZap(conf, os.Stderr).Named("admin"), conf)
	defer logger.Sync()

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Error(fmt.Sprintf("opening database: %v", err), err)
		os.Exit(1)
	}
	defer db.Close()

	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)

	// set up services
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db))
	participantSvc := participant.NewService(sqlxrepos.NewParticipantRepository(db), conf)
	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// start CLI
	cli := commandLine{
		db:     db.DB,
		usrSvc: usrSvc,
		digest: report.NewDigest(usrSvc, participantSvc, sqlxrepos.NewReportRepository(db), mailSvc, logger),
	}
	if err := cli.run(os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		logger.Sync()
		os.Exit(1)
	}
}
