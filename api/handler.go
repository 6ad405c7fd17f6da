package api

import (
	"net/http"

	"github.com/thisisjab/gelfpush/querier"
	"github.com/thisisjab/gelfpush/querier/lexer"
	"github.com/thisisjab/gelfpush/querier/parser"
)

const defaultSearchLimit = 100

type searchMessagesRequest struct {
	Query string `json:"query"`
}

// searchMessagesHandler runs a query-string search against the archive:
//
//	{"query": "timestamp=2021-04-17 limit=50 : host=edge-1 & fields.EdgeResponseStatusClass=5xx"}
func (s *server) searchMessagesHandler(w http.ResponseWriter, r *http.Request) {
	var req searchMessagesRequest
	if s.returnOnError(w, r, s.readJson(w, r, &req)) {
		return
	}

	query, err := parser.New(lexer.New(req.Query)).ParseQuery()
	if s.returnOnError(w, r, err) {
		return
	}

	if query.Limit == 0 {
		query.Limit = defaultSearchLimit
	}

	if s.returnOnError(w, r, query.Validate()) {
		return
	}

	resp, err := s.archive.Query(r.Context(), querier.QueryRequest{Query: *query})
	if s.returnOnError(w, r, err) {
		return
	}

	// Return JSON response
	s.writeJson( //nolint:errcheck
		w,
		http.StatusOK,
		apiResponse{
			Success: true,
			Data:    map[string]any{"messages": resp.Messages},
			Metadata: map[string]any{"pagination": map[string]any{
				"cursor": resp.Cursor,
			}},
		},
		nil,
	)
}
