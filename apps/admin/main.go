package main

import (
	"log"
	"os"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/user"
	emailsvc "github.com/jbkiprop/studentos/services/email"
	logsvc "github.com/jbkiprop/studentos/services/logger"
	"github.com/jbkiprop/studentos/storage/database"
	sqlxrepos "github.com/jbkiprop/studentos/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up DB
	errAndDie(database.CreateIfNotExist(core.Conf))
	db, err := database.Open(core.Conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	appLogger := logsvc.NewRollbarLogger(logger, core.Conf)
	appLogger.Enable(false)

	// start CLI
	cli := commandLine{
		db:     db.DB,
		usrSvc: user.NewService(database.Wrap(db), sqlxrepos.NewUserRepository(db), emailsvc.NewConsoleService(), appLogger),
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
