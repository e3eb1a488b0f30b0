package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, u := range repo.db.users {
		if strings.EqualFold(u.Username, usr.Username) {
			return user.User{}, user.ErrUsernameExists
		}
	}
	usr.ID = repo.db.nextPK()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) CreateStudentDetails(ctx context.Context, det user.StudentDetails, exec ...core.DBExecutor) (user.StudentDetails, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.details[det.UserID] = &det
	return det, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if strings.EqualFold(usr.Username, username) {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsersByRole(ctx context.Context, role user.Role) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var users []user.User
	for _, usr := range repo.db.users {
		if usr.Role == role {
			users = append(users, *usr)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (repo *userRepository) CountUsers(ctx context.Context) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return len(repo.db.users), nil
}

func (repo *userRepository) QueryStudentRecords(ctx context.Context, ordering []core.DBOrdering) ([]user.StudentRecord, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var records []user.StudentRecord
	for _, usr := range repo.db.users {
		if usr.Role != user.RoleStudent {
			continue
		}
		rec := user.StudentRecord{User: *usr}
		if det, ok := repo.db.details[usr.ID]; ok {
			rec.Details = *det
		}

		var names []string
		for key := range repo.db.enrollments {
			if key.studentID != usr.ID {
				continue
			}
			if crs, ok := repo.db.courses[key.courseID]; ok {
				names = append(names, crs.Name)
			}
		}
		sort.Strings(names)
		rec.Courses = strings.Join(names, ", ")
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].User.ID < records[j].User.ID })
	return records, nil
}

func (repo *userRepository) GetStudentDetails(ctx context.Context, userID int) (user.StudentDetails, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if det, ok := repo.db.details[userID]; ok {
		return *det, nil
	}
	return user.StudentDetails{}, user.ErrNotFound
}

func (repo *userRepository) UpdateStudentDetails(ctx context.Context, userID int, det user.StudentDetails) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	existing, ok := repo.db.details[userID]
	if !ok {
		return user.ErrNotFound
	}
	det.UserID = userID
	det.AdmissionNumber = existing.AdmissionNumber
	repo.db.details[userID] = &det
	return nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.UpdatedAt = time.Now().UTC()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	stored, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	stored.LastLogin.SetValid(time.Now().UTC())
	return *stored, nil
}

func (repo *userRepository) DeleteStudentDetails(ctx context.Context, userID int, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.details, userID)
	return nil
}

func (repo *userRepository) DeleteEnrollmentsByStudent(ctx context.Context, userID int, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for key := range repo.db.enrollments {
		if key.studentID == userID {
			delete(repo.db.enrollments, key)
		}
	}
	return nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, userID int, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.users, userID)
	return nil
}
