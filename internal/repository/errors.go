// Package repository holds the MySQL-backed stores.  The sentinel errors
// below let the service layer tell failure scenarios apart without looking
// at driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when no row matches the lookup.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert or update collides with the
// unique email key.
var ErrEmailExists = errors.New("email already exists")

// ErrUsernameExists is returned when an insert or update collides with the
// unique username key.
var ErrUsernameExists = errors.New("username already exists")

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// duplicateKey translates a MySQL duplicate-entry error into the matching
// sentinel.  Other errors are returned unchanged.
func duplicateKey(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
		return err
	}
	// Message looks like: Duplicate entry 'ava' for key 'users.uq_users_username'
	if strings.Contains(me.Message, "uq_users_username") {
		return ErrUsernameExists
	}
	return ErrEmailExists
}
