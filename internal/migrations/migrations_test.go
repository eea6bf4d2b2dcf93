package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(files, "sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestSchemaCoversLedgerTables(t *testing.T) {
	data, err := fs.ReadFile(files, "sql/000001_init_schema.up.sql")
	require.NoError(t, err)
	schema := string(data)

	for _, table := range []string{
		"users", "user_balances", "points_log", "badges", "user_badges", "item_types",
		"pickups", "pickup_items", "donations", "redemptions", "vouchers",
		"voucher_redemptions", "point_settings",
	} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
	assert.Contains(t, schema, "CHECK (points_balance >= 0)")
	assert.Contains(t, schema, "CHECK (quantity >= 0)")
}
