package querier

import (
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/thisisjab/gelfpush/querier/ast"
)

var (
	testStart = time.Date(2021, 4, 17, 0, 0, 0, 0, time.UTC)
	testEnd   = time.Date(2021, 4, 18, 0, 0, 0, 0, time.UTC)
)

func TestBuildTimestampBounds(t *testing.T) {
	b := NewSQLQueryBuilder(SQLOptions{TableName: "gelf_messages"})

	tests := map[string]struct {
		query ast.Query
		sql   string
		args  []any
	}{
		"start only": {
			query: ast.Query{Start: testStart, Limit: 100},
			sql:   "SELECT * FROM gelf_messages WHERE timestamp >= ? ORDER BY timestamp ASC LIMIT 100",
			args:  []any{testStart},
		},
		"forward range": {
			query: ast.Query{Start: testStart, End: testEnd, Limit: 10},
			sql:   "SELECT * FROM gelf_messages WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC LIMIT 10",
			args:  []any{testStart, testEnd},
		},
		"backward range": {
			query: ast.Query{Start: testEnd, End: testStart, Limit: 10},
			sql:   "SELECT * FROM gelf_messages WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp DESC LIMIT 10",
			args:  []any{testStart, testEnd},
		},
	}

	for name, tc := range tests {
		result, err := b.Build(tc.query)
		if err != nil {
			t.Fatalf("%s: Build: %v", name, err)
		}
		if result.Query != tc.sql {
			t.Fatalf("%s: query\n%s,\nwant\n%s", name, result.Query, tc.sql)
		}
		if !reflect.DeepEqual(result.Args, tc.args) {
			t.Fatalf("%s: args %v, want %v", name, result.Args, tc.args)
		}
	}
}

func TestBuildComparisons(t *testing.T) {
	b := NewSQLQueryBuilder(SQLOptions{TableName: "gelf_messages"})

	tests := map[string]struct {
		node ast.QueryNode
		sql  string
		args []any
	}{
		"equality": {
			node: ast.ComparisonNode{FieldName: "host", Value: "edge-1", Operator: ast.OperatorEq},
			sql:  "SELECT * FROM gelf_messages WHERE timestamp >= ? AND host = ? ORDER BY timestamp ASC LIMIT 10",
			args: []any{testStart, "edge-1"},
		},
		"substring": {
			node: ast.ComparisonNode{FieldName: "short_message", Value: "503", Operator: ast.OperatorLike},
			sql:  "SELECT * FROM gelf_messages WHERE timestamp >= ? AND short_message LIKE ? ORDER BY timestamp ASC LIMIT 10",
			args: []any{testStart, "%503%"},
		},
		"membership": {
			node: ast.ComparisonNode{FieldName: "fields.ClientCountry", Value: []any{"us", "de"}, Operator: ast.OperatorIn},
			sql:  "SELECT * FROM gelf_messages WHERE timestamp >= ? AND fields.ClientCountry IN (?, ?) ORDER BY timestamp ASC LIMIT 10",
			args: []any{testStart, "us", "de"},
		},
		"conjunction": {
			node: ast.AndNode{Children: []ast.QueryNode{
				ast.ComparisonNode{FieldName: "host", Value: "edge-1", Operator: ast.OperatorEq},
				ast.ComparisonNode{FieldName: "fields.EdgeResponseBytes", Value: int64(1024), Operator: ast.OperatorGt},
			}},
			sql:  "SELECT * FROM gelf_messages WHERE timestamp >= ? AND (host = ? AND fields.EdgeResponseBytes > ?) ORDER BY timestamp ASC LIMIT 10",
			args: []any{testStart, "edge-1", int64(1024)},
		},
		"negation": {
			node: ast.NotNode{Child: ast.ComparisonNode{FieldName: "host", Value: "edge-1", Operator: ast.OperatorEq}},
			sql:  "SELECT * FROM gelf_messages WHERE timestamp >= ? AND NOT (host = ?) ORDER BY timestamp ASC LIMIT 10",
			args: []any{testStart, "edge-1"},
		},
	}

	for name, tc := range tests {
		result, err := b.Build(ast.Query{Start: testStart, Limit: 10, Node: tc.node})
		if err != nil {
			t.Fatalf("%s: Build: %v", name, err)
		}
		if result.Query != tc.sql {
			t.Fatalf("%s: query\n%s,\nwant\n%s", name, result.Query, tc.sql)
		}
		if !reflect.DeepEqual(result.Args, tc.args) {
			t.Fatalf("%s: args %v, want %v", name, result.Args, tc.args)
		}
	}
}

func TestBuildCustomSort(t *testing.T) {
	b := NewSQLQueryBuilder(SQLOptions{TableName: "gelf_messages"})

	q := ast.Query{
		Start: testStart,
		Limit: 10,
		Sort:  []ast.SortField{{Name: "host", IsDescending: true}},
	}

	result, err := b.Build(q)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	expected := "SELECT * FROM gelf_messages WHERE timestamp >= ? ORDER BY host DESC, timestamp ASC LIMIT 10"
	if result.Query != expected {
		t.Fatalf("query\n%s,\nwant\n%s", result.Query, expected)
	}
}

func TestBuildSelectColumns(t *testing.T) {
	b := NewSQLQueryBuilder(SQLOptions{
		TableName:     "gelf_messages",
		SelectColumns: []string{"id", "host", "timestamp"},
	})

	result, err := b.Build(ast.Query{Start: testStart, Limit: 10})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	expected := "SELECT id, host, timestamp FROM gelf_messages WHERE timestamp >= ? ORDER BY timestamp ASC LIMIT 10"
	if result.Query != expected {
		t.Fatalf("query\n%s,\nwant\n%s", result.Query, expected)
	}
}

func TestBuildRejectsDisallowedSortField(t *testing.T) {
	b := NewSQLQueryBuilder(SQLOptions{TableName: "gelf_messages"})

	q := ast.Query{
		Start: testStart,
		Limit: 10,
		Sort:  []ast.SortField{{Name: "password"}},
	}

	if _, err := b.Build(q); err == nil {
		t.Fatalf("Build: expected an error for a disallowed sort field")
	}
}

func TestBuildRejectsDisallowedFilterField(t *testing.T) {
	b := NewSQLQueryBuilder(SQLOptions{
		TableName:                "gelf_messages",
		AllowedFilterFieldsRegex: regexp.MustCompile(`^(host|timestamp|fields\.[A-Za-z0-9_][A-Za-z0-9_.]*)$`),
	})

	q := ast.Query{
		Start: testStart,
		Limit: 10,
		Node:  ast.ComparisonNode{FieldName: "secret; DROP TABLE", Value: "x", Operator: ast.OperatorEq},
	}

	if _, err := b.Build(q); err == nil {
		t.Fatalf("Build: expected an error for a disallowed filter field")
	}
}
