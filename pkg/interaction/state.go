package interaction

import (
	"sort"
	"time"

	"github.com/goccy/go-json"
)

// State is an immutable snapshot of the highlight state.
type State struct {
	Hovered     string          `json:"hovered,omitempty"`
	ActiveNodes map[string]bool `json:"-"`
	ActiveEdges map[string]bool `json:"-"`
	Generation  uint64          `json:"generation"`
	Phase       Phase           `json:"phase"`
	Origin      Origin          `json:"-"`
	PathID      string          `json:"path,omitempty"`
	ActivatedAt time.Time       `json:"-"`
	ExpiresAt   time.Time       `json:"-"`
	AutoEnabled bool            `json:"auto_enabled"`
}

// MarshalJSON writes activated_at and expires_at only while an activation
// is live.
func (s State) MarshalJSON() ([]byte, error) {
	type fields State
	out := struct {
		fields
		ActivatedAt *time.Time `json:"activated_at,omitempty"`
		ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	}{fields: fields(s)}
	if !s.ActivatedAt.IsZero() {
		out.ActivatedAt = &s.ActivatedAt
	}
	if !s.ExpiresAt.IsZero() {
		out.ExpiresAt = &s.ExpiresAt
	}
	return json.Marshal(out)
}

// IsHovered reports whether id is under the pointer.
func (s State) IsHovered(id string) bool { return s.Hovered != "" && s.Hovered == id }

// IsActiveNode reports whether node id is highlighted.
func (s State) IsActiveNode(id string) bool { return s.ActiveNodes[id] }

// IsActiveEdge reports whether edge id is highlighted.
func (s State) IsActiveEdge(id string) bool { return s.ActiveEdges[id] }

// NodeIDs returns the active node ids sorted.
func (s State) NodeIDs() []string { return sortedKeys(s.ActiveNodes) }

// EdgeIDs returns the active edge ids sorted.
func (s State) EdgeIDs() []string { return sortedKeys(s.ActiveEdges) }

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
