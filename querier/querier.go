package querier

import (
	"context"

	"github.com/thisisjab/gelfpush/entity"
	"github.com/thisisjab/gelfpush/querier/ast"
)

type QueryRequest struct {
	Query ast.Query
}

type QueryResponse struct {
	Messages []entity.GelfMessage
	Cursor   string
}

// Querier searches the message archive.
type Querier interface {
	Query(ctx context.Context, req QueryRequest) (QueryResponse, error)
}
