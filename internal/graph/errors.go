package graph

import "fmt"

// ValidationError reports malformed caller input. It is always local: it
// never wraps a lower-layer error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Message)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// OperationError reports a graph operation that failed or returned a
// semantically invalid state (cycle during topological sort, missing
// max-flow endpoint, node already exists). It carries the underlying
// cause when one exists.
type OperationError struct {
	Op    string
	Cause error
	Msg   string
}

func (e *OperationError) Error() string {
	switch {
	case e.Cause != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
}

func (e *OperationError) Unwrap() error { return e.Cause }

// NewOperationError creates an OperationError without a cause.
func NewOperationError(op, msg string) *OperationError {
	return &OperationError{Op: op, Msg: msg}
}

// WrapOperationError wraps a lower-layer failure, preserving the cause.
// An optional message adds context about the failing step.
func WrapOperationError(op string, cause error, msg ...string) *OperationError {
	e := &OperationError{Op: op, Cause: cause}
	if len(msg) > 0 {
		e.Msg = msg[0]
	}
	return e
}

// NodeNotFoundError reports a lookup for a node identity that does not exist.
type NodeNotFoundError struct {
	ID string
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node not found: %s", e.ID)
}

// RelationshipNotFoundError reports a lookup for a relationship that does
// not exist.
type RelationshipNotFoundError struct {
	StartID string
	EndID   string
	Type    string
}

func (e *RelationshipNotFoundError) Error() string {
	return fmt.Sprintf("relationship not found: (%s)-[:%s]->(%s)", e.StartID, e.Type, e.EndID)
}

// TransactionError reports a multi-step operation aborted mid-way.
type TransactionError struct {
	Op    string
	Step  int
	Cause error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: transaction aborted at step %d: %v", e.Op, e.Step, e.Cause)
}

func (e *TransactionError) Unwrap() error { return e.Cause }
