package database

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableColumns parses the column names out of a CREATE TABLE block in the
// embedded schema.
func tableColumns(t *testing.T, schema, table string) map[string]bool {
	t.Helper()
	re := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS ` + table + ` \((.*?)\);`)
	m := re.FindStringSubmatch(schema)
	require.NotNil(t, m, "table %s not found in schema", table)

	cols := make(map[string]bool)
	for _, line := range strings.Split(m[1], "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 {
			continue
		}
		cols[fields[0]] = true
	}
	return cols
}

// The repositories build their queries from hand-maintained column lists,
// and the handler tests run against in-memory fakes, so nothing else
// catches a repository referencing a column the migration never creates.
func TestSchemaCoversRepositoryColumns(t *testing.T) {
	raw, err := migrationsFS.ReadFile("migrations/001_schema.sql")
	require.NoError(t, err)
	schema := string(raw)

	tests := []struct {
		table   string
		columns []string
	}{
		{"organizations", []string{
			"id", "name", "slug", "api_key_hash", "retention_days",
			"is_active", "created_at", "updated_at",
		}},
		{"users", []string{
			"id", "organization_id", "email", "password_hash", "full_name",
			"role", "api_key_hash", "is_active", "created_at", "updated_at",
		}},
		{"chats", []string{
			"id", "organization_id", "owner_id", "title", "source", "tags",
			"metadata", "is_active", "created_at", "updated_at",
		}},
		{"messages", []string{
			"id", "chat_id", "organization_id", "owner_id", "role",
			"content", "tokens", "created_at",
		}},
		{"attachments", []string{
			"id", "message_id", "chat_id", "organization_id", "owner_id",
			"file_name", "content_type", "size_bytes", "s3_key", "created_at",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			cols := tableColumns(t, schema, tt.table)
			for _, col := range tt.columns {
				assert.True(t, cols[col], "column %s.%s missing from schema", tt.table, col)
			}
		})
	}
}
