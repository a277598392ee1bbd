package postgres

import (
	"io/fs"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readSchema(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	for _, name := range migrationFiles() {
		content, err := fs.ReadFile(migrationsFS, "migrations/"+name)
		require.NoError(t, err)
		b.Write(content)
		b.WriteString("\n")
	}
	return b.String()
}

func TestMigrationFilesOrdered(t *testing.T) {
	names := migrationFiles()
	require.NotEmpty(t, names)
	assert.True(t, sort.StringsAreSorted(names))
	for _, name := range names {
		assert.True(t, strings.HasSuffix(name, ".sql"), name)
	}
}

func TestSchemaDefinesAllTables(t *testing.T) {
	schema := readSchema(t)
	for _, table := range []string{
		"subscriptions",
		"payments",
		"billing_plans",
		"organization_labels",
		"users",
	} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
}

// UpsertByOwner's ON CONFLICT (owner_user_id) and the repository's 23505
// mapping both depend on these unique indexes existing.
func TestSchemaDefinesUniqueConstraints(t *testing.T) {
	schema := readSchema(t)

	ownerIdx := strings.Index(schema, "CREATE UNIQUE INDEX IF NOT EXISTS subscriptions_owner_key")
	require.GreaterOrEqual(t, ownerIdx, 0)
	assert.Contains(t, schema[ownerIdx:ownerIdx+200], "subscriptions (owner_user_id)")

	extIdx := strings.Index(schema, "CREATE UNIQUE INDEX IF NOT EXISTS payments_provider_external_key")
	require.GreaterOrEqual(t, extIdx, 0)
	assert.Contains(t, schema[extIdx:extIdx+200], "payments (provider, external_id)")
	assert.Contains(t, schema[extIdx:extIdx+200], "WHERE external_id IS NOT NULL")

	codeIdx := strings.Index(schema, "CREATE UNIQUE INDEX IF NOT EXISTS organization_labels_code_key")
	require.GreaterOrEqual(t, codeIdx, 0)
	assert.Contains(t, schema[codeIdx:codeIdx+200], "organization_labels (code)")
}

// Every column the repositories select must exist in the schema, so a
// column rename cannot drift between the DDL and the scan lists.
func TestSchemaCoversRepositoryColumns(t *testing.T) {
	schema := readSchema(t)

	columnLists := map[string]string{
		"subscriptions":       subscriptionColumns,
		"payments":            paymentColumns,
		"billing_plans":       billingPlanColumns,
		"organization_labels": orgLabelColumns,
		"users":               userColumns,
	}
	for table, columns := range columnLists {
		start := strings.Index(schema, "CREATE TABLE IF NOT EXISTS "+table+" (")
		require.GreaterOrEqual(t, start, 0, table)
		end := strings.Index(schema[start:], ";")
		require.Greater(t, end, 0, table)
		ddl := schema[start : start+end]

		for _, col := range strings.Split(columns, ",") {
			col = strings.TrimSpace(col)
			assert.Contains(t, ddl, "\n    "+col+" ", "%s.%s", table, col)
		}
	}
}
