package inmemdb

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jbkiprop/studentos/core"
	"github.com/jbkiprop/studentos/core/academic"
	"github.com/jbkiprop/studentos/core/course"
	"github.com/jbkiprop/studentos/core/messaging"
	"github.com/jbkiprop/studentos/core/notification"
	"github.com/jbkiprop/studentos/core/user"
)

type enrollKey struct {
	studentID int
	courseID  int
}

// DB is the in-memory test double of the relational store. The repositories
// in this package share its tables; the noopExecutor makes it (and its fake
// transactions) satisfy core.DB so services built on BeginTxx run unchanged.
type DB struct {
	noopExecutor
	mu sync.RWMutex
	pk int

	users         map[int]*user.User
	details       map[int]*user.StudentDetails
	courses       map[int]*course.Course
	enrollments   map[enrollKey]bool
	assignments   map[int]*course.Assignment
	submissions   map[int]*course.Submission
	grades        map[int]*academic.Grade
	attendance    map[int]*academic.Attendance
	remarks       map[int]*academic.Remark
	messages      map[int]*messaging.Message
	notifications map[int]*notification.Notification
}

var _ core.DB = (*DB)(nil)

func Open() *DB {
	db := &DB{
		users:         make(map[int]*user.User),
		details:       make(map[int]*user.StudentDetails),
		courses:       make(map[int]*course.Course),
		enrollments:   make(map[enrollKey]bool),
		assignments:   make(map[int]*course.Assignment),
		submissions:   make(map[int]*course.Submission),
		grades:        make(map[int]*academic.Grade),
		attendance:    make(map[int]*academic.Attendance),
		remarks:       make(map[int]*academic.Remark),
		messages:      make(map[int]*messaging.Message),
		notifications: make(map[int]*notification.Notification),
	}
	// sentinel broadcast channel, seeded by migration in the real store
	db.users[user.GroupUserID] = &user.User{
		ID:        user.GroupUserID,
		Username:  "Group Chat",
		Role:      user.RoleGroup,
		CreatedAt: time.Now().UTC(),
	}
	return db
}

// nextPK must be called with the write lock held.
func (db *DB) nextPK() int {
	db.pk++
	return db.pk
}

func (db *DB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (core.DBTx, error) {
	return fakeTx{}, nil
}

// fakeTx is a no-op transaction: inmem writes apply immediately and are
// never rolled back.
type fakeTx struct {
	noopExecutor
}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

// noopExecutor satisfies core.DBExecutor for types that are never queried
// with SQL. The inmem repositories ignore the executor arguments entirely.
type noopExecutor struct{}

var errNoSQL = errors.New("in-mem db does not speak SQL")

func (noopExecutor) DriverName() string { return "inmem" }
func (noopExecutor) Rebind(q string) string {
	return q
}
func (noopExecutor) BindNamed(q string, arg interface{}) (string, []interface{}, error) {
	return q, nil, errNoSQL
}
func (noopExecutor) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errNoSQL
}
func (noopExecutor) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	return nil, errNoSQL
}
func (noopExecutor) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	return nil
}
func (noopExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}
func (noopExecutor) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errNoSQL
}
func (noopExecutor) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errNoSQL
}
