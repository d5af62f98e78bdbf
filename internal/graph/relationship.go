package graph

import (
	"strings"
	"time"
)

// Common relationship types used by the scheduling layers. Types are
// uppercase by graph convention.
const (
	RelDependsOn   = "DEPENDS_ON"
	RelRequires    = "REQUIRES"
	RelCanUse      = "CAN_USE"
	RelFallbackFor = "FALLBACK_FOR"
	RelCleanupFor  = "CLEANUP_FOR"
)

// Relationship is a directed, typed edge between two node identities.
// A given (start, end, type) triple is unique; the store rejects duplicates.
type Relationship struct {
	StartID    string         `json:"start_id"`
	EndID      string         `json:"end_id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// NewRelationship validates and constructs a Relationship. The type is
// normalized to uppercase and a created_at stamp is added.
func NewRelationship(startID, endID, relType string, properties map[string]any) (*Relationship, error) {
	startID = strings.TrimSpace(startID)
	endID = strings.TrimSpace(endID)
	if startID == "" {
		return nil, NewValidationError("start_id", "must not be empty")
	}
	if endID == "" {
		return nil, NewValidationError("end_id", "must not be empty")
	}
	relType = strings.ToUpper(strings.TrimSpace(relType))
	if relType == "" {
		return nil, NewValidationError("type", "must not be empty")
	}
	props := make(map[string]any, len(properties)+1)
	for k, v := range properties {
		props[k] = v
	}
	if _, ok := props["created_at"]; !ok {
		props["created_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	return &Relationship{StartID: startID, EndID: endID, Type: relType, Properties: props}, nil
}

// FloatProperty returns a numeric relationship property as float64.
func (r *Relationship) FloatProperty(key string) (float64, bool) {
	if r.Properties == nil {
		return 0, false
	}
	return asFloat(r.Properties[key])
}
