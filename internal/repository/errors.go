// Package repository implements the storage ports with database/sql.  The
// same queries run against MySQL in production and against SQLite for the
// single-file deployment and the tests.  Missing rows are reported with the
// sentinel errors of package model; handlers never see sql.ErrNoRows.
package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// isDuplicate reports a unique-key violation.  MySQL signals it with error
// 1062, SQLite with a "UNIQUE constraint failed" message.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// notFound turns sql.ErrNoRows into sentinel and passes other errors on.
func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

// Timestamps are stored as Unix milliseconds so both dialects share one
// column type and one scan path.
func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
