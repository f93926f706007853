// Package repository defines the data access layer.  This file holds the
// sentinel errors shared across repositories so that handlers can map
// failures onto HTTP responses: ErrForbidden becomes 403, the not-found
// sentinels become 404, and ErrSeatsUnavailable / ErrScheduleConflict become
// 409.  The two conflict sentinels are expected, retryable outcomes of
// racing requests, not bugs.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller does not own the resource they
// are trying to read or mutate.
var ErrForbidden = errors.New("forbidden")

// ErrSeatsUnavailable signals that at least one requested seat is already
// held by a CONFIRMED booking on the same showtime.  The caller should
// re-fetch availability and retry with a different selection.
var ErrSeatsUnavailable = errors.New("seats unavailable")

// ErrScheduleConflict signals that another showtime in the same hall starts
// within the exclusivity window of the requested time.
var ErrScheduleConflict = errors.New("schedule conflict")

// MySQL error numbers for a lost lock race.  1213 is a deadlock victim,
// 1205 a lock wait timeout.  Both mean another transaction won.
const (
	mysqlDeadlock    = 1213
	mysqlLockTimeout = 1205
)

// IsLockConflict reports whether err is a MySQL deadlock or lock wait
// timeout.  Handlers use it to re-surface commit-time races as
// ErrSeatsUnavailable / ErrScheduleConflict instead of an opaque 500.
func IsLockConflict(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDeadlock || me.Number == mysqlLockTimeout
	}
	return false
}
