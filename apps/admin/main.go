package main

import (
	"log"
	"os"

	logsvc "github.com/classledger/backend/services/logger"

	"github.com/classledger/backend/core"
	"github.com/classledger/backend/core/attendance"
	"github.com/classledger/backend/core/roster"
	emailsvc "github.com/classledger/backend/services/email"
	"github.com/classledger/backend/storage/database"
	pgrepos "github.com/classledger/backend/storage/database/pg"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	errAndDie(db.Ping())

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, appLogger)
	}

	rosterRepo := pgrepos.NewRosterRepository(db)
	attRepo := pgrepos.NewAttendanceRepository(db)

	// start CLI
	cli := commandLine{
		db:        db,
		conf:      conf,
		rosterSvc: roster.NewService(rosterRepo),
		attSvc:    attendance.NewService(attRepo, rosterRepo, mailSvc, appLogger, conf),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
