package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/user"
)

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
		Role     string `json:"role" validate:"required,oneof=student teacher admin"`
		Remember bool   `json:"remember"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	EnrollResponse struct {
		User        user.User           `json:"user"`
		Details     user.StudentDetails `json:"details"`
		Credentials user.Credentials    `json:"credentials"`
		EmailError  string              `json:"email_error,omitempty"`
	}
)

func (r *LoginRequest) Validate() error {
	r.Username = core.CleanString(r.Username, true /* lower */)
	return core.Validate.Struct(r)
}

type authApi struct {
	svc *user.Service
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *user.Service) {
	api := authApi{svc: svc}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.GET("/me", api.me, jwt)
}

// login authenticates against the claimed role: a valid password on a
// mismatched role still fails.
func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password, user.Role(data.Role))
	if err != nil {
		return err
	}
	token, err := GenerateToken(GetUserClaims(usr, data.Remember))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

// --- admissions ---

type admissionsApi struct {
	svc *user.Service
}

func registerAdmissionsAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *user.Service) {
	api := admissionsApi{svc: svc}

	sg := g.Group("/students", jwt, adminMiddleware())
	sg.POST("", api.enroll)
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy)
}

func (api *admissionsApi) enroll(ctx echo.Context) error {
	var data user.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	res, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}

	resp := EnrollResponse{User: res.User, Details: res.Details, Credentials: res.Credentials}
	if res.EmailErr != nil {
		resp.EmailError = "Student enrolled, but the credentials email could not be sent."
	}
	return ctx.JSON(http.StatusCreated, resp)
}

// orderableStudentFields whitelists ORDER BY targets; anything else is dropped.
var orderableStudentFields = map[string]bool{
	"u.id":               true,
	"u.username":         true,
	"u.created_at":       true,
	"d.full_name":        true,
	"d.admission_number": true,
}

func (api *admissionsApi) query(ctx echo.Context) error {
	var ord Ordering
	ord.Bind(ctx)

	orderings := ord.Orderings[:0]
	for _, o := range ord.Orderings {
		if orderableStudentFields[o.Field] {
			orderings = append(orderings, o)
		}
	}

	records, err := api.svc.Students(ctx.Request().Context(), orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *admissionsApi) retrieve(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	det, err := api.svc.StudentDetails(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, det)
}

func (api *admissionsApi) update(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	var data user.UpdateStudentDetails
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudentDetails")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if err := api.svc.UpdateDetails(ctx.Request().Context(), id, data); err != nil {
		return err
	}
	det, err := api.svc.StudentDetails(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, det)
}

func (api *admissionsApi) destroy(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	if _, err := api.svc.GetByID(ctx.Request().Context(), id); err != nil {
		return err
	}
	if err := api.svc.DeleteStudent(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}
