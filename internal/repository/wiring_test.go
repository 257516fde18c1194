package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"sportsync/ingestion/internal/backfill"
	"sportsync/ingestion/internal/jobs"
)

// Compile-time checks that the Postgres repositories satisfy the core interfaces
var (
	_ jobs.Store           = (*JobRepository)(nil)
	_ jobs.RunLog          = (*RunRepository)(nil)
	_ backfill.CountSource = (*HealthRepository)(nil)
)

func TestNewDatabase_WiresRepositories(t *testing.T) {
	db := newDatabase(nil)

	assert.Same(t, db, db.Jobs.db)
	assert.Same(t, db, db.Runs.db)
	assert.Same(t, db, db.Leagues.db)
	assert.Same(t, db, db.Clubs.db)
	assert.Same(t, db, db.Fixtures.db)
	assert.Same(t, db, db.DeepData.db)
	assert.Same(t, db, db.Platinum.db)
	assert.Same(t, db, db.Seasons.db)

	var pinger interface{ Health(context.Context) error } = db
	assert.NotNil(t, pinger)
}
