package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/jbkiprop/studentos/apps/api/echo"
	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/academic"
	"github.com/jbkiprop/studentos/core/course"
	"github.com/jbkiprop/studentos/core/messaging"
	"github.com/jbkiprop/studentos/core/notification"
	"github.com/jbkiprop/studentos/core/user"
	emailsvc "github.com/jbkiprop/studentos/services/email"
	logsvc "github.com/jbkiprop/studentos/services/logger"
	"github.com/jbkiprop/studentos/storage/database"
	sqlxrepos "github.com/jbkiprop/studentos/storage/database/sqlx"
)

func main() {
	std := stdlog.New(os.Stdout, "API : ", stdlog.LstdFlags|stdlog.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, core.Conf)
	logger.Enable(!core.Conf.Debug)

	// set up DB
	db, err := database.Open(core.Conf)
	errAndDie(err, std)
	defer db.Close()

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	userRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	academicRepo := sqlxrepos.NewAcademicRepository(db)
	messageRepo := sqlxrepos.NewMessageRepository(db)
	notifRepo := sqlxrepos.NewNotificationRepository(db)

	notifSvc := notification.NewService(notifRepo, logger)
	userSvc := user.NewService(database.Wrap(db), userRepo, mailSvc, logger)
	courseSvc := course.NewService(courseRepo, userRepo, notifSvc, logger)
	academicSvc := academic.NewService(academicRepo, courseRepo, notifSvc, logger)
	messagingSvc := messaging.NewService(messageRepo, userRepo, logger)

	// start API server
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(
		&echoapi.Options{
			Address:         core.Conf.Server.Addr,
			UserSvc:         userSvc,
			CourseSvc:       courseSvc,
			AcademicSvc:     academicSvc,
			MessagingSvc:    messagingSvc,
			NotificationSvc: notifSvc,
			Logger:          logger,
			SignalShutdown:  func() { shutdown <- syscall.SIGTERM },
		},
	)
	go app.Start()

	<-shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		logger.Error("stopping server", err)
	}
}

func errAndDie(err error, std *stdlog.Logger) {
	if err != nil {
		std.Fatalf("%+v", err)
	}
}
