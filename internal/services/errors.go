package services

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a resource does not exist or is hidden
	// from the caller.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller may not act on a resource.
	ErrForbidden = errors.New("forbidden")

	// ErrReservedUsername is returned when self-registration claims a reserved name.
	ErrReservedUsername = errors.New("reserved username")

	// ErrInvalidCredentials is returned for both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrPostNotPublished is returned when a non-admin comments on a draft.
	ErrPostNotPublished = errors.New("post is not published")
)

// uniqueViolation reports whether err is a UNIQUE constraint failure and, if
// so, which column ("users.email", "posts.slug", ...) triggered it.
func uniqueViolation(err error) (string, bool) {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return "", false
	}
	// The driver may report either the primary or the extended result code.
	code := serr.Code()
	if code != sqlite3.SQLITE_CONSTRAINT_UNIQUE && code&0xff != sqlite3.SQLITE_CONSTRAINT {
		return "", false
	}
	const marker = "UNIQUE constraint failed: "
	msg := serr.Error()
	i := strings.Index(msg, marker)
	if i < 0 {
		return "", false
	}
	col := msg[i+len(marker):]
	if j := strings.IndexAny(col, " ,)"); j >= 0 {
		col = col[:j]
	}
	return col, true
}
