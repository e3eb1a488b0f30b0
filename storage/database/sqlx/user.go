package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/user"
)

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo userRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate key value")
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	query := `
INSERT INTO user_account (username, password_hash, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	err := repo.getExec(exec).GetContext(ctx, &usr.ID, query,
		usr.Username, usr.PasswordHash, usr.Role, usr.CreatedAt, usr.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) CreateStudentDetails(ctx context.Context, det user.StudentDetails, exec ...core.DBExecutor) (user.StudentDetails, error) {
	query := `
INSERT INTO student_details
    (user_id, full_name, email, mobile, dob, gender, address, guardian_name, guardian_mobile, guardian_email, admission_number)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		det.UserID, det.FullName, det.Email, det.Mobile, det.DOB, det.Gender, det.Address,
		det.GuardianName, det.GuardianMobile, det.GuardianEmail, det.AdmissionNumber)
	return det, errors.Wrap(err, "inserting student details")
}

func (repo userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	var usr user.User
	err := repo.exec.GetContext(ctx, &usr, `SELECT * FROM user_account WHERE id = $1`, id)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by ID")
	}
	return usr, nil
}

func (repo userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var usr user.User
	err := repo.exec.GetContext(ctx, &usr, `SELECT * FROM user_account WHERE lower(username) = lower($1)`, username)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by username")
	}
	return usr, nil
}

func (repo userRepository) QueryUsersByRole(ctx context.Context, role user.Role) ([]user.User, error) {
	var users []user.User
	err := repo.exec.SelectContext(ctx, &users,
		`SELECT * FROM user_account WHERE role = $1 ORDER BY username`, role)
	return users, errors.Wrap(err, "querying users by role")
}

func (repo userRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := repo.exec.GetContext(ctx, &n, `SELECT count(*) FROM user_account`)
	return n, errors.Wrap(err, "counting users")
}

func (repo userRepository) QueryStudentRecords(ctx context.Context, ordering []core.DBOrdering) ([]user.StudentRecord, error) {
	orderBy := "u.id"
	if len(ordering) > 0 {
		clauses := make([]string, 0, len(ordering))
		for _, o := range ordering {
			clauses = append(clauses, o.String())
		}
		orderBy = strings.Join(clauses, ", ")
	}

	query := `
SELECT u.id, u.username, u.role, u.created_at, u.last_login,
       d.full_name, d.email, d.mobile, d.dob, d.gender, d.address,
       d.guardian_name, d.guardian_mobile, d.guardian_email, d.admission_number,
       COALESCE(string_agg(c.name, ', ' ORDER BY c.name), '') AS courses
FROM user_account u
JOIN student_details d ON d.user_id = u.id
LEFT JOIN enrollment e ON e.student_id = u.id
LEFT JOIN course c ON c.id = e.course_id
WHERE u.role = 'student'
GROUP BY u.id, d.user_id
ORDER BY ` + orderBy

	rows, err := repo.exec.QueryxContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "querying student records")
	}
	defer func() { _ = rows.Close() }()

	var records []user.StudentRecord
	for rows.Next() {
		var rec user.StudentRecord
		err = rows.Scan(
			&rec.User.ID, &rec.User.Username, &rec.User.Role, &rec.User.CreatedAt, &rec.User.LastLogin,
			&rec.Details.FullName, &rec.Details.Email, &rec.Details.Mobile, &rec.Details.DOB,
			&rec.Details.Gender, &rec.Details.Address, &rec.Details.GuardianName,
			&rec.Details.GuardianMobile, &rec.Details.GuardianEmail, &rec.Details.AdmissionNumber,
			&rec.Courses,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scanning student record")
		}
		rec.Details.UserID = rec.User.ID
		records = append(records, rec)
	}
	return records, errors.Wrap(rows.Err(), "querying student records")
}

func (repo userRepository) GetStudentDetails(ctx context.Context, userID int) (user.StudentDetails, error) {
	var det user.StudentDetails
	err := repo.exec.GetContext(ctx, &det, `SELECT * FROM student_details WHERE user_id = $1`, userID)
	if err != nil {
		return user.StudentDetails{}, trapNoRowsErr(err, user.ErrNotFound, "finding student details")
	}
	return det, nil
}

func (repo userRepository) UpdateStudentDetails(ctx context.Context, userID int, det user.StudentDetails) error {
	query := `
UPDATE student_details
SET full_name = $2, email = $3, mobile = $4, dob = $5, gender = $6, address = $7,
    guardian_name = $8, guardian_mobile = $9, guardian_email = $10
WHERE user_id = $1`
	res, err := repo.exec.ExecContext(ctx, query,
		userID, det.FullName, det.Email, det.Mobile, det.DOB, det.Gender, det.Address,
		det.GuardianName, det.GuardianMobile, det.GuardianEmail)
	if err != nil {
		return errors.Wrap(err, "updating student details")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.UpdatedAt = time.Now().UTC()
	query := `
UPDATE user_account
SET username = $2, password_hash = $3, updated_at = $4
WHERE id = $1`
	_, err := repo.getExec(exec).ExecContext(ctx, query, usr.ID, usr.Username, usr.PasswordHash, usr.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

func (repo userRepository) SetLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	err := repo.exec.GetContext(ctx, &usr.LastLogin,
		`UPDATE user_account SET last_login = now() WHERE id = $1 RETURNING last_login`, usr.ID)
	return usr, errors.Wrap(err, "setting last login")
}

func (repo userRepository) DeleteStudentDetails(ctx context.Context, userID int, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM student_details WHERE user_id = $1`, userID)
	return errors.Wrap(err, "deleting student details")
}

func (repo userRepository) DeleteEnrollmentsByStudent(ctx context.Context, userID int, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM enrollment WHERE student_id = $1`, userID)
	return errors.Wrap(err, "deleting enrollments")
}

func (repo userRepository) DeleteUser(ctx context.Context, userID int, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM user_account WHERE id = $1`, userID)
	return errors.Wrap(err, "deleting user")
}
