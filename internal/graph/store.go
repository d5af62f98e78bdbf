package graph

import "context"

// DefaultBatchSize is the batch size used by bulk store operations when the
// caller passes zero.
const DefaultBatchSize = 100

// NodeStore provides node persistence by identity.
//
// Creation follows a check-then-create pattern; two concurrent creators can
// both pass the exists check, so the store's own uniqueness enforcement is
// the real backstop. Callers treat "already exists" as a normal, retriable
// outcome.
type NodeStore interface {
	// CreateNode persists a node. Fails with OperationError when the
	// identity already exists.
	CreateNode(ctx context.Context, node *Node) (*Node, error)
	// GetNode fetches a node by ID. Fails with NodeNotFoundError when absent.
	GetNode(ctx context.Context, id string) (*Node, error)
	// UpdateNode merges properties onto an existing node and stamps
	// updated_at.
	UpdateNode(ctx context.Context, id string, properties map[string]any) (*Node, error)
	// DeleteNode removes a node. With detach set, incident relationships are
	// removed too; without it, deletion fails while relationships remain.
	DeleteNode(ctx context.Context, id string, detach bool) error
	// NodeExists reports whether the identity is present.
	NodeExists(ctx context.Context, id string) (bool, error)
	// FindNodes returns nodes carrying the label, up to limit (0 = no limit).
	FindNodes(ctx context.Context, label string, limit int) ([]*Node, error)
	// CreateNodes persists nodes in batches of batchSize (0 = DefaultBatchSize)
	// and returns the number created.
	CreateNodes(ctx context.Context, nodes []*Node, batchSize int) (int, error)
}

// RelationshipStore provides relationship persistence keyed by the
// (start, end, type) triple.
type RelationshipStore interface {
	// CreateRelationship persists a relationship. Fails with OperationError
	// when the triple already exists; both endpoints must exist (enforced by
	// the match pattern of the query layer).
	CreateRelationship(ctx context.Context, rel *Relationship) (*Relationship, error)
	// GetRelationship fetches a relationship by triple. Fails with
	// RelationshipNotFoundError when absent.
	GetRelationship(ctx context.Context, startID, endID, relType string) (*Relationship, error)
	// DeleteRelationship removes a relationship by triple.
	DeleteRelationship(ctx context.Context, startID, endID, relType string) error
	// RelationshipExists reports whether the triple is present.
	RelationshipExists(ctx context.Context, startID, endID, relType string) (bool, error)
}
