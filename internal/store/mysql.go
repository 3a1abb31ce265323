package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/config"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/model"
)

// MySQL stores contacts in the contacts table of a MySQL database.
type MySQL struct {
	db *sqlx.DB

	// insert is a prepared statement for creating a contact.
	insert *sqlx.NamedStmt
	// selectWhereOwner is a prepared statement for listing the contacts of a user.
	selectWhereOwner *sqlx.Stmt
	// selectWhereId is a prepared statement for selecting contacts with a given id.
	selectWhereId *sqlx.Stmt
	// deleteWhereIdAndOwner is a prepared statement for deleting a contact of a given user.
	deleteWhereIdAndOwner *sqlx.Stmt
}

// OpenMySQL returns a connection pool for the database described by cfg. No connection is made
// until the pool is first used.
func OpenMySQL(cfg config.MySQL) (*sql.DB, error) {
	dsn := mysql.NewConfig()
	dsn.User = cfg.User
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = cfg.Host
	dsn.DBName = cfg.Name
	dsn.ParseTime = true
	// Report matched instead of changed rows, so that an update writing the values already
	// stored is not mistaken for a miss.
	dsn.ClientFoundRows = true
	sqlDB, err := sql.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return sqlDB, nil
}

// NewMySQL wraps the sql database with sqlx and prepares all statements. The database can be a
// real database for production use or a mock database within unit tests.
func NewMySQL(sqlDB *sql.DB) (*MySQL, error) {
	s := &MySQL{db: sqlx.NewDb(sqlDB, "mysql")}
	var err error

	// Prepared statements offer a significant speed increase if executed many times.
	s.insert, err = s.db.PrepareNamed(`
		INSERT INTO contacts (owner, name, email, phone, type, created_at)
		VALUES (:owner, :name, :email, :phone, :type, :created_at)
	`)
	if err != nil {
		return nil, errors.Wrap(err, "could not prepare insert")
	}
	s.selectWhereOwner, err = s.db.Preparex(`
		SELECT * FROM contacts WHERE owner = ? ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "could not prepare select by owner")
	}
	s.selectWhereId, err = s.db.Preparex(`
		SELECT * FROM contacts WHERE id = ?
	`)
	if err != nil {
		return nil, errors.Wrap(err, "could not prepare select by id")
	}
	s.deleteWhereIdAndOwner, err = s.db.Preparex(`
		DELETE FROM contacts WHERE id = ? AND owner = ?
	`)
	if err != nil {
		return nil, errors.Wrap(err, "could not prepare delete")
	}
	return s, nil
}

func (s *MySQL) FindByOwner(ctx context.Context, owner string) ([]model.Contact, error) {
	contacts := []model.Contact{}
	if err := s.selectWhereOwner.SelectContext(ctx, &contacts, owner); err != nil {
		return nil, errors.WithStack(err)
	}
	return contacts, nil
}

func (s *MySQL) Create(ctx context.Context, contact model.Contact) (model.Contact, error) {
	// created_at is a DATETIME(6) column.
	contact.CreatedAt = contact.CreatedAt.UTC().Truncate(time.Microsecond)
	result, err := s.insert.ExecContext(ctx, &contact)
	if err != nil {
		return model.Contact{}, errors.WithStack(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Contact{}, errors.WithStack(err)
	}
	contact.Id = strconv.FormatInt(id, 10)
	return contact, nil
}

func (s *MySQL) FindByID(ctx context.Context, id string) (model.Contact, error) {
	if !isNumericID(id) {
		return model.Contact{}, ErrNotFound
	}
	var contacts []model.Contact
	if err := s.selectWhereId.SelectContext(ctx, &contacts, id); err != nil {
		return model.Contact{}, errors.WithStack(err)
	}
	if len(contacts) == 0 {
		return model.Contact{}, ErrNotFound
	}
	return contacts[0], nil
}

func (s *MySQL) UpdateOwned(ctx context.Context, id string, owner string, update model.ContactUpdate) (model.Contact, error) {
	if !isNumericID(id) {
		return model.Contact{}, ErrNotFound
	}
	fields := update.Fields()
	if len(fields) == 0 {
		return FindOwned(ctx, s, id, owner)
	}

	var args []interface{}
	var builder strings.Builder
	builder.WriteString("UPDATE contacts SET ")
	for i, f := range fields {
		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(f.Name)
		builder.WriteString("=?")
		args = append(args, f.Value)
	}
	builder.WriteString(" WHERE id=? AND owner=?")
	args = append(args, id, owner)

	result, err := s.db.ExecContext(ctx, builder.String(), args...)
	if err != nil {
		return model.Contact{}, errors.WithStack(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return model.Contact{}, errors.WithStack(err)
	}
	if rowsAffected == 0 {
		return model.Contact{}, classifyMiss(ctx, s, id)
	}

	// Return the full contact after the update.
	return s.FindByID(ctx, id)
}

func (s *MySQL) DeleteOwned(ctx context.Context, id string, owner string) error {
	if !isNumericID(id) {
		return ErrNotFound
	}
	result, err := s.deleteWhereIdAndOwner.ExecContext(ctx, id, owner)
	if err != nil {
		return errors.WithStack(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if rowsAffected == 0 {
		return classifyMiss(ctx, s, id)
	}
	return nil
}

func (s *MySQL) Ping(ctx context.Context) error {
	return errors.WithStack(s.db.PingContext(ctx))
}

// Close releases the prepared statements and the database. All of them are closed even if one
// fails; the first failure is returned.
func (s *MySQL) Close() error {
	var firstErr error
	for _, stmt := range []interface{ Close() error }{
		s.insert, s.selectWhereOwner, s.selectWhereId, s.deleteWhereIdAndOwner,
	} {
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "could not close statement")
		}
	}
	if err := s.db.Close(); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, "could not close database")
	}
	return firstErr
}

// isNumericID reports whether id can be an auto-increment key. Anything else can not exist.
func isNumericID(id string) bool {
	_, err := strconv.ParseInt(id, 10, 64)
	return err == nil
}

var _ Store = &MySQL{}
