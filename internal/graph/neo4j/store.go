package neo4j

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/plusplusoneplusplus/taskgraph/internal/graph"
)

// Store implements graph.NodeStore and graph.RelationshipStore with Cypher
// issued through a graph.QueryExecutor, so it works against a live driver or
// a test executor alike.
type Store struct {
	exec graph.QueryExecutor
}

// NewStore creates a Cypher-backed store.
func NewStore(exec graph.QueryExecutor) *Store {
	return &Store{exec: exec}
}

func (s *Store) CreateNode(ctx context.Context, node *graph.Node) (*graph.Node, error) {
	exists, err := s.NodeExists(ctx, node.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, graph.NewOperationError("create node", fmt.Sprintf("node already exists: %s", node.ID))
	}

	props := make(map[string]any, len(node.Properties)+2)
	for k, v := range node.Properties {
		props[k] = v
	}
	props["id"] = node.ID
	if _, ok := props["created_at"]; !ok {
		props["created_at"] = time.Now().UTC().Format(time.RFC3339)
	}

	query := fmt.Sprintf("CREATE (n%s) SET n = $props RETURN n.id AS id", labelFragment(node.Labels))
	if _, err := s.exec.Execute(ctx, query, map[string]any{"props": props}); err != nil {
		return nil, graph.WrapOperationError("create node", err)
	}
	created := *node
	created.Properties = props
	return &created, nil
}

func (s *Store) GetNode(ctx context.Context, id string) (*graph.Node, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, graph.NewValidationError("id", "must not be empty")
	}
	res, err := s.exec.Execute(ctx,
		"MATCH (n {id: $id}) RETURN labels(n) AS labels, properties(n) AS properties",
		map[string]any{"id": id})
	if err != nil {
		return nil, graph.WrapOperationError("get node", err)
	}
	if len(res.Records) == 0 {
		return nil, &graph.NodeNotFoundError{ID: id}
	}
	return nodeFromRecord(id, res.Records[0])
}

func (s *Store) UpdateNode(ctx context.Context, id string, properties map[string]any) (*graph.Node, error) {
	res, err := s.exec.Execute(ctx,
		"MATCH (n {id: $id}) SET n += $props, n.updated_at = $now "+
			"RETURN labels(n) AS labels, properties(n) AS properties",
		map[string]any{
			"id":    id,
			"props": properties,
			"now":   time.Now().UTC().Format(time.RFC3339),
		})
	if err != nil {
		return nil, graph.WrapOperationError("update node", err)
	}
	if len(res.Records) == 0 {
		return nil, &graph.NodeNotFoundError{ID: id}
	}
	return nodeFromRecord(id, res.Records[0])
}

func (s *Store) DeleteNode(ctx context.Context, id string, detach bool) error {
	query := "MATCH (n {id: $id}) DELETE n"
	if detach {
		query = "MATCH (n {id: $id}) DETACH DELETE n"
	}
	res, err := s.exec.Execute(ctx, query, map[string]any{"id": id})
	if err != nil {
		return graph.WrapOperationError("delete node", err)
	}
	if res.Summary.Counters.NodesDeleted == 0 {
		return &graph.NodeNotFoundError{ID: id}
	}
	return nil
}

func (s *Store) NodeExists(ctx context.Context, id string) (bool, error) {
	res, err := s.exec.Execute(ctx,
		"MATCH (n {id: $id}) RETURN count(n) AS count",
		map[string]any{"id": id})
	if err != nil {
		return false, graph.WrapOperationError("node exists", err)
	}
	if len(res.Records) == 0 {
		return false, nil
	}
	count, _ := res.Records[0].IntValue("count")
	return count > 0, nil
}

func (s *Store) FindNodes(ctx context.Context, label string, limit int) ([]*graph.Node, error) {
	query := fmt.Sprintf(
		"MATCH (n%s) RETURN n.id AS id, labels(n) AS labels, properties(n) AS properties",
		labelFragment([]string{label}))
	params := map[string]any{}
	if limit > 0 {
		query += " LIMIT $limit"
		params["limit"] = limit
	}
	res, err := s.exec.Execute(ctx, query, params)
	if err != nil {
		return nil, graph.WrapOperationError("find nodes", err)
	}
	nodes := make([]*graph.Node, 0, len(res.Records))
	for _, rec := range res.Records {
		n, err := nodeFromRecord(rec.StringValue("id"), rec)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// CreateNodes persists nodes with UNWIND batches. Nodes are grouped by label
// signature since labels cannot be parameterized in Cypher.
func (s *Store) CreateNodes(ctx context.Context, nodes []*graph.Node, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = graph.DefaultBatchSize
	}

	groups := make(map[string][]*graph.Node)
	for _, n := range nodes {
		labels := append([]string(nil), n.Labels...)
		sort.Strings(labels)
		groups[strings.Join(labels, "|")] = append(groups[strings.Join(labels, "|")], n)
	}

	created := 0
	step := 0
	for _, group := range groups {
		for start := 0; start < len(group); start += batchSize {
			end := start + batchSize
			if end > len(group) {
				end = len(group)
			}
			rows := make([]any, 0, end-start)
			for _, n := range group[start:end] {
				props := make(map[string]any, len(n.Properties)+1)
				for k, v := range n.Properties {
					props[k] = v
				}
				props["id"] = n.ID
				rows = append(rows, props)
			}
			query := fmt.Sprintf("UNWIND $rows AS row CREATE (n%s) SET n = row",
				labelFragment(group[0].Labels))
			res, err := s.exec.Execute(ctx, query, map[string]any{"rows": rows})
			if err != nil {
				return created, &graph.TransactionError{Op: "create nodes", Step: step, Cause: err}
			}
			created += res.Summary.Counters.NodesCreated
			step++
		}
	}
	return created, nil
}

func (s *Store) CreateRelationship(ctx context.Context, rel *graph.Relationship) (*graph.Relationship, error) {
	exists, err := s.RelationshipExists(ctx, rel.StartID, rel.EndID, rel.Type)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, graph.NewOperationError("create relationship",
			fmt.Sprintf("relationship already exists: (%s)-[:%s]->(%s)", rel.StartID, rel.Type, rel.EndID))
	}

	// The MATCH pattern enforces that both endpoints exist.
	query := fmt.Sprintf(
		"MATCH (a {id: $start}), (b {id: $end}) CREATE (a)-[r:`%s`]->(b) SET r = $props RETURN type(r) AS type",
		rel.Type)
	res, err := s.exec.Execute(ctx, query, map[string]any{
		"start": rel.StartID,
		"end":   rel.EndID,
		"props": rel.Properties,
	})
	if err != nil {
		return nil, graph.WrapOperationError("create relationship", err)
	}
	if res.Summary.Counters.RelationshipsCreated == 0 {
		return nil, graph.NewOperationError("create relationship",
			fmt.Sprintf("endpoint missing for (%s)-[:%s]->(%s)", rel.StartID, rel.Type, rel.EndID))
	}
	return rel, nil
}

func (s *Store) GetRelationship(ctx context.Context, startID, endID, relType string) (*graph.Relationship, error) {
	relType = strings.ToUpper(strings.TrimSpace(relType))
	query := fmt.Sprintf(
		"MATCH (a {id: $start})-[r:`%s`]->(b {id: $end}) RETURN properties(r) AS properties",
		relType)
	res, err := s.exec.Execute(ctx, query, map[string]any{"start": startID, "end": endID})
	if err != nil {
		return nil, graph.WrapOperationError("get relationship", err)
	}
	if len(res.Records) == 0 {
		return nil, &graph.RelationshipNotFoundError{StartID: startID, EndID: endID, Type: relType}
	}
	props, _ := res.Records[0]["properties"].(map[string]any)
	return &graph.Relationship{StartID: startID, EndID: endID, Type: relType, Properties: props}, nil
}

func (s *Store) DeleteRelationship(ctx context.Context, startID, endID, relType string) error {
	relType = strings.ToUpper(strings.TrimSpace(relType))
	query := fmt.Sprintf(
		"MATCH (a {id: $start})-[r:`%s`]->(b {id: $end}) DELETE r", relType)
	res, err := s.exec.Execute(ctx, query, map[string]any{"start": startID, "end": endID})
	if err != nil {
		return graph.WrapOperationError("delete relationship", err)
	}
	if res.Summary.Counters.RelationshipsDeleted == 0 {
		return &graph.RelationshipNotFoundError{StartID: startID, EndID: endID, Type: relType}
	}
	return nil
}

func (s *Store) RelationshipExists(ctx context.Context, startID, endID, relType string) (bool, error) {
	relType = strings.ToUpper(strings.TrimSpace(relType))
	query := fmt.Sprintf(
		"MATCH (a {id: $start})-[r:`%s`]->(b {id: $end}) RETURN count(r) AS count", relType)
	res, err := s.exec.Execute(ctx, query, map[string]any{"start": startID, "end": endID})
	if err != nil {
		return false, graph.WrapOperationError("relationship exists", err)
	}
	if len(res.Records) == 0 {
		return false, nil
	}
	count, _ := res.Records[0].IntValue("count")
	return count > 0, nil
}

func nodeFromRecord(id string, rec graph.Record) (*graph.Node, error) {
	props, _ := rec["properties"].(map[string]any)
	if id == "" {
		if s, ok := props["id"].(string); ok {
			id = s
		}
	}
	return graph.NewNode(id, rec.StringSlice("labels"), props)
}

// labelFragment renders labels as a `:A:B` fragment with backtick quoting.
func labelFragment(labels []string) string {
	var b strings.Builder
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		b.WriteString(":`")
		b.WriteString(strings.ReplaceAll(l, "`", ""))
		b.WriteString("`")
	}
	return b.String()
}

var (
	_ graph.NodeStore         = (*Store)(nil)
	_ graph.RelationshipStore = (*Store)(nil)
)
