package session

import (
	"testing"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/testutil"
)

func setupTestStore(t *testing.T) (*GormStore, *logger.TestLogger) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &Entry{})
	log := logger.NewTestLogger()
	return NewGormStore(db, log), log
}
