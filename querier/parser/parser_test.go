package parser

import (
	"testing"
	"time"

	"github.com/thisisjab/gelfpush/querier/ast"
	"github.com/thisisjab/gelfpush/querier/lexer"
)

func parse(t *testing.T, input string) *ast.Query {
	t.Helper()

	q, err := New(lexer.New(input)).ParseQuery()
	if err != nil {
		t.Fatalf("ParseQuery(%q): %v", input, err)
	}
	return q
}

func TestParseControlSectionTimestamp(t *testing.T) {
	tests := map[string]ast.Query{
		"timestamp=2021-04-17": {
			Start: time.Date(2021, 4, 17, 0, 0, 0, 0, time.UTC),
		},
		"timestamp=2021-04-17,2022-03-10": {
			Start: time.Date(2021, 4, 17, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2022, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		"timestamp=2022-02-12T12:00:00": {
			Start: time.Date(2022, 2, 12, 12, 0, 0, 0, time.UTC),
		},
		"timestamp=2022-02-12T12:00:00,2022-02-12T10:10:10": {
			Start: time.Date(2022, 2, 12, 12, 0, 0, 0, time.UTC),
			End:   time.Date(2022, 2, 12, 10, 10, 10, 0, time.UTC),
		},
	}

	for input, expected := range tests {
		actual := parse(t, input)
		if !actual.Equal(&expected) {
			t.Fatalf("ParseQuery(%q)\n%+v,\nwant %+v", input, actual, expected)
		}
	}
}

func TestParseControlSectionLimit(t *testing.T) {
	tests := map[string]ast.Query{
		"limit=100": {
			Limit: 100,
		},
		"limit=1000": {
			Limit: 1000,
		},
	}

	for input, expected := range tests {
		actual := parse(t, input)
		if !actual.Equal(&expected) {
			t.Fatalf("ParseQuery(%q)\n%+v,\nwant %+v", input, actual, expected)
		}
	}
}

func TestParseControlSectionCursor(t *testing.T) {
	tests := map[string]ast.Query{
		`cursor="2021-04-17T12:00:00.000000001Z"`: {
			Cursor: "2021-04-17T12:00:00.000000001Z",
		},
	}

	for input, expected := range tests {
		actual := parse(t, input)
		if !actual.Equal(&expected) {
			t.Fatalf("ParseQuery(%q)\n%+v,\nwant %+v", input, actual, expected)
		}
	}
}

func TestParseControlSectionSort(t *testing.T) {
	tests := map[string]ast.Query{
		"sort=timestamp": {
			Sort: []ast.SortField{{Name: "timestamp"}},
		},
		"sort=-timestamp": {
			Sort: []ast.SortField{{Name: "timestamp", IsDescending: true}},
		},
		"sort=host,-timestamp": {
			Sort: []ast.SortField{
				{Name: "host"},
				{Name: "timestamp", IsDescending: true},
			},
		},
	}

	for input, expected := range tests {
		actual := parse(t, input)
		if !actual.Equal(&expected) {
			t.Fatalf("ParseQuery(%q)\n%+v,\nwant %+v", input, actual, expected)
		}
	}
}

func TestParseCombinedControlSection(t *testing.T) {
	input := "timestamp=2021-04-17,2021-04-18 limit=50 sort=-timestamp"
	expected := ast.Query{
		Start: time.Date(2021, 4, 17, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2021, 4, 18, 0, 0, 0, 0, time.UTC),
		Limit: 50,
		Sort:  []ast.SortField{{Name: "timestamp", IsDescending: true}},
	}

	actual := parse(t, input)
	if !actual.Equal(&expected) {
		t.Fatalf("ParseQuery(%q)\n%+v,\nwant %+v", input, actual, expected)
	}
}

func TestParseFilterComparisons(t *testing.T) {
	tests := map[string]ast.Query{
		"limit=10 : host=edge-1": {
			Limit: 10,
			Node:  ast.ComparisonNode{FieldName: "host", Value: "edge-1", Operator: ast.OperatorEq},
		},
		`limit=10 : short_message~="503"`: {
			Limit: 10,
			Node:  ast.ComparisonNode{FieldName: "short_message", Value: "503", Operator: ast.OperatorLike},
		},
		"limit=10 : fields.EdgeResponseBytes>1024": {
			Limit: 10,
			Node:  ast.ComparisonNode{FieldName: "fields.EdgeResponseBytes", Value: int64(1024), Operator: ast.OperatorGt},
		},
		"limit=10 : fields.SampleRate<=0.5": {
			Limit: 10,
			Node:  ast.ComparisonNode{FieldName: "fields.SampleRate", Value: 0.5, Operator: ast.OperatorLte},
		},
		"limit=10 : fields.ClientASN!=1203": {
			Limit: 10,
			Node:  ast.ComparisonNode{FieldName: "fields.ClientASN", Value: int64(1203), Operator: ast.OperatorNe},
		},
		"limit=10 : fields.CacheTiered=true": {
			Limit: 10,
			Node:  ast.ComparisonNode{FieldName: "fields.CacheTiered", Value: true, Operator: ast.OperatorEq},
		},
		"limit=10 : fields.ClientCountry=us,de": {
			Limit: 10,
			Node:  ast.ComparisonNode{FieldName: "fields.ClientCountry", Value: []any{"us", "de"}, Operator: ast.OperatorIn},
		},
	}

	for input, expected := range tests {
		actual := parse(t, input)
		if !actual.Equal(&expected) {
			t.Fatalf("ParseQuery(%q)\n%+v,\nwant %+v", input, actual, expected)
		}
	}
}

func TestParseFilterLogicalOperators(t *testing.T) {
	tests := map[string]ast.Query{
		"limit=10 : host=a & fields.ClientCountry=us": {
			Limit: 10,
			Node: ast.AndNode{Children: []ast.QueryNode{
				ast.ComparisonNode{FieldName: "host", Value: "a", Operator: ast.OperatorEq},
				ast.ComparisonNode{FieldName: "fields.ClientCountry", Value: "us", Operator: ast.OperatorEq},
			}},
		},
		"limit=10 : host=a | host=b": {
			Limit: 10,
			Node: ast.OrNode{Children: []ast.QueryNode{
				ast.ComparisonNode{FieldName: "host", Value: "a", Operator: ast.OperatorEq},
				ast.ComparisonNode{FieldName: "host", Value: "b", Operator: ast.OperatorEq},
			}},
		},
		"limit=10 : !host=a": {
			Limit: 10,
			Node: ast.NotNode{
				Child: ast.ComparisonNode{FieldName: "host", Value: "a", Operator: ast.OperatorEq},
			},
		},
		"limit=10 : host=a & host=b & host=c": {
			Limit: 10,
			Node: ast.AndNode{Children: []ast.QueryNode{
				ast.ComparisonNode{FieldName: "host", Value: "a", Operator: ast.OperatorEq},
				ast.ComparisonNode{FieldName: "host", Value: "b", Operator: ast.OperatorEq},
				ast.ComparisonNode{FieldName: "host", Value: "c", Operator: ast.OperatorEq},
			}},
		},
		"limit=10 : !(host=a | fields.ClientCountry=us) & fields.EdgeResponseBytes>0": {
			Limit: 10,
			Node: ast.AndNode{Children: []ast.QueryNode{
				ast.NotNode{Child: ast.OrNode{Children: []ast.QueryNode{
					ast.ComparisonNode{FieldName: "host", Value: "a", Operator: ast.OperatorEq},
					ast.ComparisonNode{FieldName: "fields.ClientCountry", Value: "us", Operator: ast.OperatorEq},
				}}},
				ast.ComparisonNode{FieldName: "fields.EdgeResponseBytes", Value: int64(0), Operator: ast.OperatorGt},
			}},
		},
	}

	for input, expected := range tests {
		actual := parse(t, input)
		if !actual.Equal(&expected) {
			t.Fatalf("ParseQuery(%q)\n%+v,\nwant %+v", input, actual, expected)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"bogus=1",
		"limit=abc",
		"timestamp=notadate",
		"cursor=unquoted",
		"sort=",
		"limit=10 : host",
		"limit=10 : host=",
		"limit=10 : (host=a",
		"limit=10 : host=a extra",
		"limit=10 : host>a,b",
	}

	for _, input := range tests {
		if _, err := New(lexer.New(input)).ParseQuery(); err == nil {
			t.Fatalf("ParseQuery(%q): expected an error", input)
		}
	}
}
