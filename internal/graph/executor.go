package graph

import (
	"context"
	"time"
)

// Record is one row of a query result, keyed by the returned column names.
type Record map[string]any

// StringValue returns a string column, or "" when absent.
func (r Record) StringValue(key string) string {
	s, _ := r[key].(string)
	return s
}

// FloatValue returns a numeric column as float64.
func (r Record) FloatValue(key string) (float64, bool) {
	return asFloat(r[key])
}

// IntValue returns a numeric column as int.
func (r Record) IntValue(key string) (int, bool) {
	f, ok := asFloat(r[key])
	return int(f), ok
}

// StringSlice returns a list column as []string, skipping nil entries.
func (r Record) StringSlice(key string) []string {
	raw, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Counters summarizes the write effects of a query.
type Counters struct {
	NodesCreated         int `json:"nodes_created"`
	NodesDeleted         int `json:"nodes_deleted"`
	RelationshipsCreated int `json:"relationships_created"`
	RelationshipsDeleted int `json:"relationships_deleted"`
	PropertiesSet        int `json:"properties_set"`
}

// Summary carries query execution metadata.
type Summary struct {
	Counters Counters `json:"counters"`
}

// QueryResult is the structured outcome of one executed query.
type QueryResult struct {
	Records       []Record      `json:"records"`
	Summary       Summary       `json:"summary"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// QueryExecutor runs parameterized queries against the graph store. Per-call
// timeouts are expressed through the context deadline. Failures carry the
// original query for diagnostics; callers at the algorithm and scheduler
// boundary wrap them into OperationError.
type QueryExecutor interface {
	Execute(ctx context.Context, query string, params map[string]any) (*QueryResult, error)
}

// QueryError is the typed failure raised by a QueryExecutor, carrying the
// query and parameters that failed.
type QueryError struct {
	Query  string
	Params map[string]any
	Cause  error
}

func (e *QueryError) Error() string {
	return "query failed: " + e.Cause.Error()
}

func (e *QueryError) Unwrap() error { return e.Cause }
