// Package neo4j implements the graph query and storage contracts on top of
// the Neo4j Go driver.
package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/plusplusoneplusplus/taskgraph/internal/graph"
)

// Executor implements graph.QueryExecutor using Neo4j.
type Executor struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewExecutor connects to Neo4j and verifies connectivity.
func NewExecutor(ctx context.Context, uri, username, password, database string) (*Executor, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Executor{driver: driver, database: database}, nil
}

// Execute runs a parameterized query and returns all rows plus write
// counters. The context deadline bounds the call.
func (e *Executor) Execute(ctx context.Context, query string, params map[string]any) (*graph.QueryResult, error) {
	session := e.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: e.database})
	defer session.Close(ctx)

	start := time.Now()
	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		result := &graph.QueryResult{}
		for res.Next(ctx) {
			rec := res.Record()
			row := make(graph.Record, len(rec.Keys))
			for i, key := range rec.Keys {
				row[key] = convertValue(rec.Values[i])
			}
			result.Records = append(result.Records, row)
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		c := summary.Counters()
		result.Summary.Counters = graph.Counters{
			NodesCreated:         c.NodesCreated(),
			NodesDeleted:         c.NodesDeleted(),
			RelationshipsCreated: c.RelationshipsCreated(),
			RelationshipsDeleted: c.RelationshipsDeleted(),
			PropertiesSet:        c.PropertiesSet(),
		}
		return result, nil
	})
	if err != nil {
		return nil, &graph.QueryError{Query: query, Params: params, Cause: err}
	}
	result := out.(*graph.QueryResult)
	result.ExecutionTime = time.Since(start)
	return result, nil
}

// Close releases the driver.
func (e *Executor) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

// convertValue maps driver entity types onto the plain shapes the rest of
// the system consumes: nodes and relationships become property maps keyed
// the way graph.Record helpers expect, lists are converted element-wise.
func convertValue(v any) any {
	switch x := v.(type) {
	case neo4j.Node:
		return map[string]any{
			"labels":     toAnySlice(x.Labels),
			"properties": x.Props,
		}
	case neo4j.Relationship:
		return map[string]any{
			"type":       x.Type,
			"properties": x.Props,
		}
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = convertValue(e)
		}
		return out
	default:
		return v
	}
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

var _ graph.QueryExecutor = (*Executor)(nil)
