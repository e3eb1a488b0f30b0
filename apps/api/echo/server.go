package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/academic"
	"github.com/jbkiprop/studentos/core/course"
	"github.com/jbkiprop/studentos/core/messaging"
	"github.com/jbkiprop/studentos/core/notification"
	"github.com/jbkiprop/studentos/core/user"
)

type (
	Options struct {
		Address         string
		DisableReqLogs  bool
		UserSvc         *user.Service
		CourseSvc       *course.Service
		AcademicSvc     *academic.Service
		MessagingSvc    *messaging.Service
		NotificationSvc *notification.Service
		Logger          core.Logger
		SignalShutdown  func()
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.SignalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerAuthAPI(v1, jwt, s.opts.UserSvc)
	registerAdmissionsAPI(v1, jwt, s.opts.UserSvc)
	registerCourseAPI(v1, jwt, s.opts.UserSvc, s.opts.CourseSvc)
	registerAcademicAPI(v1, jwt, s.opts.UserSvc, s.opts.AcademicSvc, s.opts.CourseSvc, s.opts.NotificationSvc, s.opts.MessagingSvc, s.opts.Logger)
	registerMessagingAPI(v1, jwt, s.opts.UserSvc, s.opts.MessagingSvc, s.opts.NotificationSvc)
	registerUploadsAPI(v1, jwt)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" API!")
}
