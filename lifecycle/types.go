package lifecycle

import (
	"strings"

	"github.com/teranos/kgraph/errors"
	"github.com/teranos/kgraph/rdf"
)

// Mode selects the existence precondition of a write.
type Mode int

const (
	// ModeCreate fails with AlreadyExists when the target has any quad.
	ModeCreate Mode = iota + 1
	// ModeUpdate fails with NotFound when the target has no quad.
	ModeUpdate
	// ModeUpsert has no precondition.
	ModeUpsert
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeUpdate:
		return "update"
	case ModeUpsert:
		return "upsert"
	default:
		return "invalid"
	}
}

// ParseMode parses "create", "update" or "upsert".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "create":
		return ModeCreate, nil
	case "update":
		return ModeUpdate, nil
	case "upsert":
		return ModeUpsert, nil
	}
	return 0, errors.InvalidStatementf("unknown operation mode %q", s)
}

// MarshalText renders the mode name.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText parses a mode name.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Scope selects how much of an object a delete or read covers.
type Scope int

const (
	// ScopeSubjectOnly covers the target's own quads and the links into it.
	ScopeSubjectOnly Scope = iota
	// ScopeSubgraph additionally covers everything the target contains.
	ScopeSubgraph
)

func (s Scope) String() string {
	if s == ScopeSubgraph {
		return "subgraph"
	}
	return "subject"
}

// ParseScope parses "subject" or "subgraph".
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "subject", "subject-only":
		return ScopeSubjectOnly, nil
	case "subgraph", "full":
		return ScopeSubgraph, nil
	}
	return 0, errors.InvalidStatementf("unknown scope %q", s)
}

// Request is a structured-object write.
//
// Payload is the complete desired state of the target and everything it
// contains. Statements with an empty graph are placed in Graph. Grouping
// statements in the payload are ignored and recomputed. Without ParentURI the
// target must be an entity; with it, the target is written inside the parent.
type Request struct {
	Mode      Mode            `json:"mode" yaml:"mode"`
	Graph     string          `json:"graph" yaml:"graph"`
	TargetURI string          `json:"target" yaml:"target"`
	ParentURI string          `json:"parent,omitempty" yaml:"parent,omitempty"`
	Payload   []rdf.Statement `json:"payload" yaml:"payload"`
}

// DeleteRequest removes an object.
type DeleteRequest struct {
	Graph     string `json:"graph" yaml:"graph"`
	TargetURI string `json:"target" yaml:"target"`
	Scope     Scope  `json:"scope" yaml:"scope"`
}

// Result reports a completed operation. MutatedURIs lists, sorted, every
// subject whose statements changed; Count is its length.
type Result struct {
	OperationID string   `json:"operation_id"`
	MutatedURIs []string `json:"mutated_uris"`
	Count       int      `json:"count"`
	Added       int      `json:"added"`
	Removed     int      `json:"removed"`
}
