package querier

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/thisisjab/gelfpush/querier/ast"
)

// SQLOptions holds configuration for the SQL query builder.
type SQLOptions struct {
	// AllowedSortFields is a whitelist of field names permitted in ORDER BY clauses.
	// This prevents SQL injection through malicious sort parameters.
	// If empty, defaults to ["host", "timestamp"].
	AllowedSortFields []string

	// AllowedFilterFieldsRegex is a regex pattern to validate field names in WHERE clauses.
	// This provides fine-grained control over which fields can be filtered,
	// including support for nested JSON paths (e.g., fields.ClientCountry).
	// If nil, no regex validation is performed on filter fields.
	AllowedFilterFieldsRegex *regexp.Regexp

	// TableName is the name of the table to query from.
	TableName string

	// SelectColumns is the list of columns to SELECT.
	// If empty, defaults to SELECT *.
	SelectColumns []string
}

// SQLQueryBuilder is a generic SQL query builder that constructs
// SELECT queries with WHERE, ORDER BY, and LIMIT clauses.
type SQLQueryBuilder struct {
	opts SQLOptions
}

// NewSQLQueryBuilder creates a new SQL query builder with the given options.
func NewSQLQueryBuilder(opts SQLOptions) *SQLQueryBuilder {
	return &SQLQueryBuilder{opts: opts}
}

// BuildResult holds the generated SQL query and its arguments.
type BuildResult struct {
	Query string
	Args  []any
}

// Build builds a complete SELECT query from the given Query parameters.
func (b *SQLQueryBuilder) Build(q ast.Query) (BuildResult, error) {
	whereClause, args, err := b.buildWhereClause(q.Node, q.Start, q.End)
	if err != nil {
		return BuildResult{}, fmt.Errorf("failed to build where clause: %w", err)
	}

	orderByClause, err := b.buildOrderByClause(q.Start, q.End, q.Sort)
	if err != nil {
		return BuildResult{}, fmt.Errorf("failed to build order by clause: %w", err)
	}

	limitClause := fmt.Sprintf("LIMIT %d", q.Limit)

	selectCols := strings.Join(b.opts.SelectColumns, ", ")
	if len(b.opts.SelectColumns) == 0 {
		selectCols = "*"
	}

	sqlQuery := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s %s %s",
		selectCols,
		b.opts.TableName,
		whereClause,
		orderByClause,
		limitClause,
	)

	return BuildResult{Query: sqlQuery, Args: args}, nil
}

// buildWhereClause constructs the WHERE clause with timestamp bounds and query conditions.
func (b *SQLQueryBuilder) buildWhereClause(root ast.QueryNode, start, end time.Time) (string, []any, error) {
	queryClause, args, err := b.parseQueryNode(root)
	if err != nil {
		return "", nil, err
	}

	// A reversed range (End before Start) means a backward search; normalize
	// the bounds so Start stays the lower bound. A zero End is an open range,
	// never a bound.
	sTime, eTime := start, end
	if !end.IsZero() && end.Before(start) {
		sTime, eTime = end, start
	}

	// Always add timestamp bounds
	parts := []string{"timestamp >= ?"}
	finalArgs := []any{sTime}

	if !eTime.IsZero() {
		parts = append(parts, "timestamp <= ?")
		finalArgs = append(finalArgs, eTime)
	}

	// Add query conditions if they exist
	if queryClause != "" {
		parts = append(parts, queryClause)
		finalArgs = append(finalArgs, args...)
	}

	return strings.Join(parts, " AND "), finalArgs, nil
}

// buildOrderByClause determines the sort order based on custom fields
// and the relationship between Start and End timestamps.
func (b *SQLQueryBuilder) buildOrderByClause(start, end time.Time, sortFields []ast.SortField) (string, error) {
	// Determine the chronological direction:
	// "If End is before Start, the query is executed in backward chronological order."
	timeDirection := "ASC"
	if !end.IsZero() && end.Before(start) {
		timeDirection = "DESC"
	}

	// Define allowed fields for security/validation
	allowedFields := b.opts.AllowedSortFields
	if len(allowedFields) == 0 {
		allowedFields = []string{"host", "timestamp"}
	}

	// Handle the case where no specific sort fields are requested
	if len(sortFields) == 0 {
		return fmt.Sprintf("ORDER BY timestamp %s", timeDirection), nil
	}

	// Validate and build custom sort parts
	var parts []string
	for _, field := range sortFields {
		if !slices.Contains(allowedFields, field.Name) {
			return "", fmt.Errorf("field `%s` is not allowed for sorting", field.Name)
		}

		direction := "ASC"
		if field.IsDescending {
			direction = "DESC"
		}

		parts = append(parts, fmt.Sprintf("%s %s", field.Name, direction))
	}

	// Ensure timestamp is included in the sort to respect the Start/End logic
	// if it wasn't already explicitly provided in sortFields.
	hasTimestamp := slices.ContainsFunc(sortFields, func(f ast.SortField) bool {
		return f.Name == "timestamp"
	})

	if !hasTimestamp {
		parts = append(parts, fmt.Sprintf("timestamp %s", timeDirection))
	}

	return fmt.Sprintf("ORDER BY %s", strings.Join(parts, ", ")), nil
}

// parseQueryNode recursively traverses the query tree and generates SQL.
func (b *SQLQueryBuilder) parseQueryNode(node ast.QueryNode) (string, []any, error) {
	if node == nil {
		return "", nil, nil
	}

	switch n := node.(type) {
	case ast.AndNode:
		// Join all children with AND.
		return b.joinNodes(n.Children, "AND")

	case ast.OrNode:
		// Join all children with OR.
		return b.joinNodes(n.Children, "OR")

	case ast.NotNode:
		// Recurse into the single child and wrap with NOT.
		childQuery, args, err := b.parseQueryNode(n.Child)

		if err != nil {
			return "", nil, err
		}

		if childQuery == "" {
			return "", nil, nil
		}

		return fmt.Sprintf("NOT (%s)", childQuery), args, nil

	case ast.ComparisonNode:
		// This is a leaf node. We stop recursing here and
		// convert the specific comparison into SQL.
		return b.formatComparison(n)

	default:
		return "", nil, fmt.Errorf("unknown query node type: %T", node)
	}
}

// joinNodes is a helper to handle the recursion for logical groups.
func (b *SQLQueryBuilder) joinNodes(children []ast.QueryNode, operator string) (string, []any, error) {
	if len(children) == 0 {
		return "", nil, nil
	}

	var parts []string
	var args []any
	for _, child := range children {
		query, qArgs, err := b.parseQueryNode(child) // Recursive call
		if err != nil {
			return "", nil, err
		}
		if query != "" {
			parts = append(parts, query)
			args = append(args, qArgs...)
		}
	}

	if len(parts) == 0 {
		return "", nil, nil
	}

	// Wrap in parentheses to ensure correct precedence
	// when the database evaluates the full string.
	return fmt.Sprintf("(%s)", strings.Join(parts, fmt.Sprintf(" %s ", operator))), args, nil
}

// formatComparison converts a ComparisonNode into SQL.
func (b *SQLQueryBuilder) formatComparison(n ast.ComparisonNode) (string, []any, error) {
	if n.FieldName == "" || n.Value == nil {
		return "", nil, fmt.Errorf("invalid comparison node: missing field name or value")
	}

	// Prevent SQL injection by validating field name against allowed pattern
	if b.opts.AllowedFilterFieldsRegex != nil && !b.opts.AllowedFilterFieldsRegex.MatchString(n.FieldName) {
		return "", nil, fmt.Errorf("invalid field name: %s", n.FieldName)
	}

	switch n.Operator {
	case ast.OperatorEq:
		return fmt.Sprintf("%s = ?", n.FieldName), []any{n.Value}, nil
	case ast.OperatorNe:
		return fmt.Sprintf("%s != ?", n.FieldName), []any{n.Value}, nil
	case ast.OperatorGt:
		return fmt.Sprintf("%s > ?", n.FieldName), []any{n.Value}, nil
	case ast.OperatorLt:
		return fmt.Sprintf("%s < ?", n.FieldName), []any{n.Value}, nil
	case ast.OperatorGte:
		return fmt.Sprintf("%s >= ?", n.FieldName), []any{n.Value}, nil
	case ast.OperatorLte:
		return fmt.Sprintf("%s <= ?", n.FieldName), []any{n.Value}, nil

	case ast.OperatorLike:
		// Substring match: wrap textual values in wildcards.
		s, ok := n.Value.(string)
		if !ok {
			return "", nil, fmt.Errorf("operator `~=` needs a string value for field %s", n.FieldName)
		}
		return fmt.Sprintf("%s LIKE ?", n.FieldName), []any{"%" + s + "%"}, nil

	case ast.OperatorIn:
		values, ok := n.Value.([]any)
		if !ok || len(values) == 0 {
			return "", nil, fmt.Errorf("operator `IN` needs a value list for field %s", n.FieldName)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		return fmt.Sprintf("%s IN (%s)", n.FieldName, placeholders), values, nil
	}

	return "", nil, fmt.Errorf("unsupported operator: %v", n.Operator)
}
