package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// openTestDB returns a migrated private in-memory SQLite database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open("file:"+uuid.NewString()+"?mode=memory&cache=shared", false)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(openTestDB(t))
	s.Users.WithCost(bcrypt.MinCost)
	return s
}

// stepClock returns a clock that advances one second per call.
func stepClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func strPtr(s string) *string { return &s }
