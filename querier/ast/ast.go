package ast

import (
	"fmt"
	"reflect"
	"time"

	"github.com/thisisjab/gelfpush/fault"
)

type QueryDirection string

const (
	QueryDirectionForward  QueryDirection = "forward"
	QueryDirectionBackward QueryDirection = "backward"
)

// Query defines the parameters for searching and filtering archived
// messages. It supports time-based pagination and flexible sorting.
type Query struct {
	// Node is the root of the filter expression tree, nil when the query
	// has no filter section.
	Node QueryNode

	// Sort defines the order of the results. If multiple fields are provided,
	// they are applied in the order they appear in the slice.
	Sort []SortField

	// Start defines the beginning of the time range (inclusive).
	// This field is required for all queries.
	Start time.Time

	// End defines the end of the time range (exclusive).
	// If End is before Start, the query is executed in backward chronological order.
	End time.Time

	// Limit specifies the maximum number of records to return.
	// Must be between 1 and 1000.
	Limit int

	// Cursor is an opaque string used to resume a search from a specific point.
	// When provided, it overrides the starting point of the search.
	Cursor string
}

// SortField defines a single sorting criterion.
type SortField struct {
	// Name is the field to sort by (e.g., "timestamp", "host").
	Name string
	// IsDescending specifies if the sort should be in reverse order.
	IsDescending bool
}

// GetQueryDirection determines the temporal direction of the search.
// It returns QueryDirectionBackward if the End timestamp is earlier than the Start,
// indicating the user is searching "into the past."
func (q Query) GetQueryDirection() QueryDirection {
	if !q.End.IsZero() && q.End.Before(q.Start) {
		return QueryDirectionBackward
	}
	return QueryDirectionForward
}

func (q Query) Validate() error {
	// MAYBE: In future we may want to read these from configs.
	const LimitMin = 1
	const LimitMax = 1000

	if q.Limit > LimitMax {
		return fault.New(fault.BadInputCode, "").WithMetadata(fault.FieldErrorsMetadata{"limit": []string{fmt.Sprintf("Values larger than %d are not supported.", LimitMax)}})
	}

	if q.Limit < LimitMin {
		return fault.New(fault.BadInputCode, "").WithMetadata(fault.FieldErrorsMetadata{"limit": []string{fmt.Sprintf("Values smaller than %d are not supported.", LimitMin)}})
	}

	if q.Start.IsZero() && q.Cursor == "" {
		return fault.New(fault.BadInputCode, "").WithMetadata(fault.FieldErrorsMetadata{"timestamp": []string{"Field is required."}})
	}

	return nil
}

// Equal reports whether two queries are field-for-field identical. Used by
// tests; expression trees are compared structurally.
func (q Query) Equal(other *Query) bool {
	if other == nil {
		return false
	}

	if !q.Start.Equal(other.Start) || !q.End.Equal(other.End) {
		return false
	}
	if q.Limit != other.Limit || q.Cursor != other.Cursor {
		return false
	}
	if !reflect.DeepEqual(q.Sort, other.Sort) {
		return false
	}

	return reflect.DeepEqual(q.Node, other.Node)
}

// QueryNode is the interface that all nodes in the filter tree must
// implement. It uses a private marker method to ensure only types defined in
// this package can be used as nodes, creating a controlled "sum type"
// behavior.
type QueryNode interface {
	queryNode()
}

// AndNode represents a logical conjunction.
// It is satisfied only if all of its Children evaluate to true.
// Drivers should typically join children with a logical "AND".
type AndNode struct {
	Children []QueryNode
}

func (n AndNode) queryNode() {}

// OrNode represents a logical disjunction.
// It is satisfied if at least one of its Children evaluates to true.
// Drivers should typically join children with a logical "OR".
type OrNode struct {
	Children []QueryNode
}

func (n OrNode) queryNode() {}

// NotNode represents a logical negation.
// It inverts the boolean result of its single Child node.
type NotNode struct {
	Child QueryNode
}

func (n NotNode) queryNode() {}

// ComparisonOperator defines the type of comparison to be performed
// in an expression (e.g., equality, greater than).
type ComparisonOperator uint8

const (
	// OperatorEq checks if the field is equal to the value.
	OperatorEq ComparisonOperator = iota
	// OperatorNe checks if the field is not equal to the value.
	OperatorNe
	// OperatorGt checks if the field is strictly greater than the value.
	OperatorGt
	// OperatorLt checks if the field is strictly less than the value.
	OperatorLt
	// OperatorGte checks if the field is greater than or equal to the value.
	OperatorGte
	// OperatorLte checks if the field is less than or equal to the value.
	OperatorLte
	// OperatorLike checks if the field contains the value as a substring.
	OperatorLike
	// OperatorIn checks if the field is in the list of values.
	OperatorIn
)

// ComparisonNode is a leaf node in the filter tree.
// It represents a concrete filter expression against a specific field.
type ComparisonNode struct {
	// FieldName is the identifier for the message field.
	// This can be a column (e.g., "host") or a path into the fields JSON
	// (e.g., "fields.ClientCountry").
	FieldName string

	// Value is the literal data to compare against. For OperatorIn this is
	// a []any. Drivers are responsible for handling type casting.
	Value any

	// Operator defines the relationship between the FieldName and the Value.
	Operator ComparisonOperator
}

func (n ComparisonNode) queryNode() {}
