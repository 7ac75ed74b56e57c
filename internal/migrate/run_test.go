package migrate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersions_SortedSQLFiles(t *testing.T) {
	files, err := Versions()
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for i, f := range files {
		assert.True(t, strings.HasSuffix(f, ".sql"), f)
		if i > 0 {
			assert.Less(t, files[i-1], f)
		}
	}
	assert.Equal(t, "0001_outbound.sql", files[0])
	assert.Contains(t, files, "0002_verified_attempt_budget.sql")
}

func TestEmbeddedSchema_DefinesTables(t *testing.T) {
	raw, err := migrationsFS.ReadFile("migrations/0001_outbound.sql")
	require.NoError(t, err)

	schema := string(raw)
	for _, table := range []string{
		"campaigns", "outbound_jobs", "outbound_attempts", "comm_preferences", "identity_links", "audit_log_entries",
	} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" ", table)
	}
	assert.Contains(t, schema, "UNIQUE (job_id, attempt_number)")
	assert.Contains(t, schema, "ON DELETE CASCADE")
}
