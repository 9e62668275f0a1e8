package migrate

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name()] = true
	}
	for name := range names {
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			assert.True(t, names[strings.TrimSuffix(name, ".up.sql")+".down.sql"], "missing down for %s", name)
		case strings.HasSuffix(name, ".down.sql"):
			assert.True(t, names[strings.TrimSuffix(name, ".down.sql")+".up.sql"], "missing up for %s", name)
		default:
			t.Errorf("unexpected file %s", name)
		}
	}
}
