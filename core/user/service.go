package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jbkiprop/studentos/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrBadCredentials = errors.New("invalid username or password")
)

// RoleMismatchError is returned when the claimed login role does not match the
// account's actual role. The message deliberately names the actual role so
// students who pick the wrong login tab know which one to use.
type RoleMismatchError struct {
	Actual  Role
	Claimed Role
}

func (e RoleMismatchError) Error() string {
	return fmt.Sprintf("Invalid login. This account is registered as a %s, not a %s.",
		e.Actual.Title(), e.Claimed.Title())
}

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		CreateStudentDetails(ctx context.Context, det StudentDetails, exec ...core.DBExecutor) (StudentDetails, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
		QueryUsersByRole(ctx context.Context, role Role) ([]User, error)
		CountUsers(ctx context.Context) (int, error)
		QueryStudentRecords(ctx context.Context, ordering []core.DBOrdering) ([]StudentRecord, error)
		GetStudentDetails(ctx context.Context, userID int) (StudentDetails, error)
		UpdateStudentDetails(ctx context.Context, userID int, det StudentDetails) error
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		// manual cascade pieces; the service decides which to run and in what
		// transaction (there is no referential cascade in the schema)
		DeleteStudentDetails(ctx context.Context, userID int, exec ...core.DBExecutor) error
		DeleteEnrollmentsByStudent(ctx context.Context, userID int, exec ...core.DBExecutor) error
		DeleteUser(ctx context.Context, userID int, exec ...core.DBExecutor) error
	}

	Service struct {
		db   core.DB
		repo Repository
		mail core.EmailService
		log  core.Logger
	}

	// EnrollResult reports a completed enrollment. EmailErr carries the
	// best-effort credential delivery failure; it never fails the enrollment.
	EnrollResult struct {
		User        User
		Details     StudentDetails
		Credentials Credentials
		EmailErr    error
	}
)

func NewService(db core.DB, repo Repository, mailSvc core.EmailService, log core.Logger) *Service {
	return &Service{db: db, repo: repo, mail: mailSvc, log: log}
}

// Authenticate verifies the password and that the claimed role matches the
// account's actual role. A role mismatch fails login even with a valid
// password.
func (svc *Service) Authenticate(ctx context.Context, username, password string, claimed Role) (User, error) {
	usr, err := svc.repo.GetUserByUsername(ctx, core.CleanString(username, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrBadCredentials
		}
		return User{}, errors.Wrap(err, "finding user by username")
	}
	if err := usr.CheckPassword(password); err != nil {
		return User{}, ErrBadCredentials
	}
	if usr.Role != claimed {
		return User{}, RoleMismatchError{Actual: usr.Role, Claimed: claimed}
	}

	usr, err = svc.repo.SetLastLogin(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}

// Enroll creates the student account and its details atomically, then emails
// the generated credentials. Email failure is downgraded to a warning on the
// result; the enrollment stands.
func (svc *Service) Enroll(ctx context.Context, ns NewStudent) (EnrollResult, error) {
	username, password, err := GenerateCredentials(ns.FullName)
	if err != nil {
		return EnrollResult{}, err
	}

	now := time.Now().UTC()
	usr := User{
		Username:  username,
		Role:      RoleStudent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(password); err != nil {
		return EnrollResult{}, err
	}

	tx, err := svc.db.BeginTxx(ctx, nil)
	if err != nil {
		return EnrollResult{}, errors.Wrap(err, "beginning enrollment tx")
	}

	usr, err = svc.repo.CreateUser(ctx, usr, tx)
	if err != nil {
		_ = tx.Rollback()
		return EnrollResult{}, errors.Wrap(err, "creating student user")
	}

	det := StudentDetails{
		UserID:          usr.ID,
		FullName:        ns.FullName,
		Email:           ns.Email,
		Mobile:          null.NewString(ns.Mobile, ns.Mobile != ""),
		DOB:             null.NewString(ns.DOB, ns.DOB != ""),
		Gender:          null.NewString(ns.Gender, ns.Gender != ""),
		Address:         null.NewString(ns.Address, ns.Address != ""),
		GuardianName:    null.NewString(ns.GuardianName, ns.GuardianName != ""),
		GuardianMobile:  null.NewString(ns.GuardianMobile, ns.GuardianMobile != ""),
		GuardianEmail:   null.NewString(ns.GuardianEmail, ns.GuardianEmail != ""),
		AdmissionNumber: AdmissionNumber(usr.ID),
	}
	det, err = svc.repo.CreateStudentDetails(ctx, det, tx)
	if err != nil {
		_ = tx.Rollback()
		return EnrollResult{}, errors.Wrap(err, "creating student details")
	}

	if err := tx.Commit(); err != nil {
		return EnrollResult{}, errors.Wrap(err, "committing enrollment tx")
	}

	creds := Credentials{Username: username, Password: password, AdmissionNumber: det.AdmissionNumber}
	res := EnrollResult{User: usr, Details: det, Credentials: creds}
	res.EmailErr = svc.sendCredentials(ns, creds)
	if res.EmailErr != nil {
		svc.log.Warn("credentials email failed", res.EmailErr)
	}
	return res, nil
}

func (svc *Service) sendCredentials(ns NewStudent, creds Credentials) error {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: ns.FullName, Address: ns.Email}},
		Subject:      "Welcome to " + core.Conf.AppName + " - Your Login Credentials",
		TemplateName: "welcome",
		TemplateData: struct {
			FullName        string
			Username        string
			Password        string
			AdmissionNumber string
		}{ns.FullName, creds.Username, creds.Password, creds.AdmissionNumber},
	}
	return svc.mail.Send(msg)
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) QueryByRole(ctx context.Context, role Role) ([]User, error) {
	return svc.repo.QueryUsersByRole(ctx, role)
}

// Count reports the total number of accounts, the broadcast sentinel included.
func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountUsers(ctx)
}

// Students lists all student records with their details and enrolled courses.
func (svc *Service) Students(ctx context.Context, ordering []core.DBOrdering) ([]StudentRecord, error) {
	return svc.repo.QueryStudentRecords(ctx, ordering)
}

func (svc *Service) StudentDetails(ctx context.Context, userID int) (StudentDetails, error) {
	return svc.repo.GetStudentDetails(ctx, userID)
}

func (svc *Service) UpdateDetails(ctx context.Context, userID int, ud UpdateStudentDetails) error {
	det := StudentDetails{
		UserID:         userID,
		FullName:       ud.FullName,
		Email:          ud.Email,
		Mobile:         null.NewString(ud.Mobile, ud.Mobile != ""),
		DOB:            null.NewString(ud.DOB, ud.DOB != ""),
		Gender:         null.NewString(ud.Gender, ud.Gender != ""),
		Address:        null.NewString(ud.Address, ud.Address != ""),
		GuardianName:   null.NewString(ud.GuardianName, ud.GuardianName != ""),
		GuardianMobile: null.NewString(ud.GuardianMobile, ud.GuardianMobile != ""),
		GuardianEmail:  null.NewString(ud.GuardianEmail, ud.GuardianEmail != ""),
	}
	return svc.repo.UpdateStudentDetails(ctx, userID, det)
}

// DeleteStudent removes the account, its details and its enrollments in one
// transaction. Grade, attendance and submission rows are not touched and
// become orphaned.
func (svc *Service) DeleteStudent(ctx context.Context, userID int) error {
	tx, err := svc.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning delete tx")
	}
	if err := svc.repo.DeleteStudentDetails(ctx, userID, tx); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "deleting student details")
	}
	if err := svc.repo.DeleteEnrollmentsByStudent(ctx, userID, tx); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "deleting enrollments")
	}
	if err := svc.repo.DeleteUser(ctx, userID, tx); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "deleting user")
	}
	return errors.Wrap(tx.Commit(), "committing delete tx")
}

// AddOperator creates or updates a non-student account (admin CLI).
func (svc *Service) AddOperator(ctx context.Context, username, password string, role Role) (User, error) {
	username = core.CleanString(username, true /* lower */)

	usr, err := svc.repo.GetUserByUsername(ctx, username)
	found := err == nil
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return User{}, err
		}
		now := time.Now().UTC()
		usr = User{Username: username, Role: role, CreatedAt: now, UpdatedAt: now}
	}
	if err := ValidatePassword(password, usr); err != nil {
		return User{}, err
	}
	if err := usr.SetPassword(password); err != nil {
		return User{}, err
	}

	if !found {
		return svc.repo.CreateUser(ctx, usr)
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}
