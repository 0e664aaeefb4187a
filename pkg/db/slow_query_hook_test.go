package db

import "testing"

func TestDescribeQuery(t *testing.T) {
	tests := []struct {
		sql       string
		operation string
		table     string
	}{
		{"SELECT id FROM tasks WHERE user_id = $1", "select", "tasks"},
		{"\n        INSERT INTO projects (user_id, name)\n VALUES ($1, $2)", "insert", "projects"},
		{"UPDATE access_tokens SET expires_at = NOW()", "update", "access_tokens"},
		{"DELETE FROM users WHERE id = $1", "delete", "users"},
		{"BEGIN", "begin", "unknown"},
		{"", "unknown", "unknown"},
	}

	for _, tt := range tests {
		op, table := describeQuery(tt.sql)
		if op != tt.operation || table != tt.table {
			t.Errorf("describeQuery(%q) = (%q, %q), want (%q, %q)", tt.sql, op, table, tt.operation, tt.table)
		}
	}
}
