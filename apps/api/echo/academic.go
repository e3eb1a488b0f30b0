package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/academic"
	"github.com/jbkiprop/studentos/core/course"
	"github.com/jbkiprop/studentos/core/messaging"
	"github.com/jbkiprop/studentos/core/notification"
	"github.com/jbkiprop/studentos/core/report"
	"github.com/jbkiprop/studentos/core/user"
)

type academicApi struct {
	users    *user.Service
	svc      *academic.Service
	courses  *course.Service
	notifs   *notification.Service
	messages *messaging.Service
	log      core.Logger
}

func registerAcademicAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	users *user.Service,
	svc *academic.Service,
	courses *course.Service,
	notifs *notification.Service,
	messages *messaging.Service,
	log core.Logger,
) {
	api := academicApi{users: users, svc: svc, courses: courses, notifs: notifs, messages: messages, log: log}

	gg := g.Group("/grades", jwt)
	gg.GET("", api.queryGrades)
	gg.POST("", api.addGrade, teacherMiddleware())

	ag := g.Group("/attendance", jwt)
	ag.GET("", api.queryAttendance)
	ag.POST("", api.logAttendance, teacherMiddleware())

	g.PUT("/remarks", api.saveRemark, jwt, teacherMiddleware())
	g.PUT("/submissions/:id/grade", api.gradeSubmission, jwt, teacherMiddleware())

	g.GET("/dashboard", api.dashboard, jwt)

	rg := g.Group("/reports", jwt)
	rg.GET("/students/:id", api.reportCard)
	rg.GET("/batch", api.batchReports, teacherMiddleware())
}

func (api *academicApi) queryGrades(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	grades, err := api.svc.GradesFor(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *academicApi) addGrade(ctx echo.Context) error {
	var data academic.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	g, err := api.svc.AddGrade(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding grade")
	}
	return ctx.JSON(http.StatusCreated, g)
}

func (api *academicApi) queryAttendance(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	entries, err := api.svc.AttendanceFor(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *academicApi) logAttendance(ctx echo.Context) error {
	var data academic.NewAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttendance")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	a, err := api.svc.LogAttendance(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "logging attendance")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *academicApi) saveRemark(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	var data academic.UpsertRemark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpsertRemark")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if err := api.svc.SaveRemark(ctx.Request().Context(), usr.ID, data); err != nil {
		return errors.Wrap(err, "saving remark")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicApi) gradeSubmission(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data struct {
		AssignmentID int `json:"assignment_id" validate:"required"`
		academic.GradeWork
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeWork")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}
	if err := api.svc.GradeSubmission(ctx.Request().Context(), data.AssignmentID, id, data.GradeWork); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

type adminSummary struct {
	UserCount   int `json:"user_count"`
	CourseCount int `json:"course_count"`
}

type dashboardResponse struct {
	Student       *academic.StudentSummary    `json:"student,omitempty"`
	Teacher       *academic.TeacherSummary    `json:"teacher,omitempty"`
	Admin         *adminSummary               `json:"admin,omitempty"`
	Notifications []notification.Notification `json:"notifications"`
	UnreadCount   int                         `json:"unread_count"`
}

// dashboard assembles the role-dependent landing page payload.
func (api *academicApi) dashboard(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	var resp dashboardResponse
	switch usr.Role {
	case user.RoleStudent:
		summary, err := api.svc.StudentSummary(rctx, usr.ID)
		if err != nil {
			return errors.Wrap(err, "building student summary")
		}
		resp.Student = &summary
	case user.RoleTeacher:
		summary, err := api.svc.TeacherSummary(rctx, usr.ID)
		if err != nil {
			return errors.Wrap(err, "building teacher summary")
		}
		resp.Teacher = &summary
	case user.RoleAdmin:
		summary := new(adminSummary)
		if summary.UserCount, err = api.users.Count(rctx); err != nil {
			return errors.Wrap(err, "counting users")
		}
		if summary.CourseCount, err = api.courses.Count(rctx); err != nil {
			return errors.Wrap(err, "counting courses")
		}
		resp.Admin = summary
	}

	if resp.Notifications, err = api.notifs.Latest(rctx, usr.ID, 0); err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if resp.UnreadCount, err = api.messages.UnreadCount(rctx, usr.ID); err != nil {
		return errors.Wrap(err, "counting unread messages")
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *academicApi) buildCard(ctx echo.Context, studentID int) (report.Card, error) {
	rctx := ctx.Request().Context()

	usr, err := api.users.GetByID(rctx, studentID)
	if err != nil {
		return report.Card{}, err
	}
	card := report.Card{Username: usr.Username}
	if det, err := api.users.StudentDetails(rctx, studentID); err == nil {
		card.FullName = det.FullName
		card.AdmissionNumber = det.AdmissionNumber
	}
	if card.Data, err = api.svc.StudentReportData(rctx, studentID); err != nil {
		return report.Card{}, err
	}
	return card, nil
}

// reportCard serves one student's PDF. A student may only fetch their own.
func (api *academicApi) reportCard(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	if usr.IsStudent() && usr.ID != id {
		return errHttpForbidden
	}
	card, err := api.buildCard(ctx, id)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := report.Render(card, &buf); err != nil {
		return errors.Wrap(err, "rendering report card")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", card.Filename()))
	return ctx.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}

// batchReports bundles every student's report card into one ZIP for
// parent-teacher meetings. A student whose card cannot be rendered is
// skipped, never the whole batch.
func (api *academicApi) batchReports(ctx echo.Context) error {
	students, err := api.users.QueryByRole(ctx.Request().Context(), user.RoleStudent)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}

	cards := make([]report.Card, 0, len(students))
	for _, s := range students {
		card, err := api.buildCard(ctx, s.ID)
		if err != nil {
			api.log.Warn("skipping report card", "student_id", s.ID, "error", err)
			continue
		}
		cards = append(cards, card)
	}

	var buf bytes.Buffer
	if _, err := report.WriteBatchZip(cards, &buf, api.log); err != nil {
		return errors.Wrap(err, "writing batch zip")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", report.BatchZipName))
	return ctx.Blob(http.StatusOK, "application/zip", buf.Bytes())
}
