package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/course"
	"github.com/jbkiprop/studentos/core/user"
)

type courseApi struct {
	users *user.Service
	svc   *course.Service
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, users *user.Service, svc *course.Service) {
	api := courseApi{users: users, svc: svc}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, teacherMiddleware())
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, teacherMiddleware())
	cg.DELETE("/:id", api.destroy, teacherMiddleware())
	cg.POST("/:id/students", api.enrollStudent, teacherMiddleware())
	cg.POST("/:id/assignments", api.addAssignment, teacherMiddleware())
	cg.POST("/:id/assignments/:assignmentID/submissions", api.submitWork, roleMiddleware(user.RoleStudent))

	ag := g.Group("/assignments", jwt)
	ag.GET("/:id/submissions", api.querySubmissions, teacherMiddleware())
}

func (api *courseApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	courses, err := api.svc.CoursesFor(ctx.Request().Context(), usr, ctx.QueryParam("search"))
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	crs, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	detail, err := api.svc.Get(ctx.Request().Context(), usr, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *courseApi) update(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	crs, err := api.svc.Update(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), usr, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

type enrollStudentRequest struct {
	Username string `json:"username" validate:"required"`
}

func (r *enrollStudentRequest) Validate() error {
	r.Username = core.CleanString(r.Username, true /* lower */)
	return core.Validate.Struct(r)
}

func (api *courseApi) enrollStudent(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	// the detail fetch enforces course ownership
	if _, err := api.svc.Get(ctx.Request().Context(), usr, id); err != nil {
		return err
	}

	var data enrollStudentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to enrollStudentRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	student, err := api.svc.EnrollByUsername(ctx.Request().Context(), id, data.Username)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, student)
}

// addAssignment accepts multipart form data so an attachment can ride along.
func (api *courseApi) addAssignment(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}

	data := course.NewAssignment{
		Title:       ctx.FormValue("title"),
		Description: ctx.FormValue("description"),
		DueDate:     ctx.FormValue("due_date"),
	}
	if fh, err := ctx.FormFile("attachment"); err == nil {
		path, err := core.SaveUpload(fh, core.Conf.UploadDir)
		if err != nil {
			return err
		}
		data.AttachmentPath = path
	}
	if err := data.Validate(); err != nil {
		return err
	}

	assign, err := api.svc.AddAssignment(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, assign)
}

func (api *courseApi) submitWork(ctx echo.Context) error {
	courseID, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	assignmentID, err := intParam(ctx, "assignmentID")
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}

	data := course.NewSubmission{Content: ctx.FormValue("content")}
	if fh, err := ctx.FormFile("attachment"); err == nil {
		path, err := core.SaveUpload(fh, core.Conf.UploadDir)
		if err != nil {
			return err
		}
		data.AttachmentPath = path
	}

	sub, err := api.svc.SubmitWork(ctx.Request().Context(), usr, courseID, assignmentID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *courseApi) querySubmissions(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if _, err := api.svc.GetAssignment(ctx.Request().Context(), id); err != nil {
		return err
	}
	subs, err := api.svc.Submissions(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}
