package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
)

// Node is an artifact in the documentation hierarchy. The base record is
// shared by every tier; the embedded pointers carry the per-variant payload
// and are nil when the node has none of their fields:
//
//   - Composition: containment lists of molecules, organisms, SOPs, modules,
//     phases and journeys.
//   - Touchpoint: customer-journey atom payload.
//   - Governance: SOP review and compliance metadata.
//
// Fields the model does not know about are kept in Extra so a graph survives
// a load/save cycle unchanged.
type Node struct {
	ID          string         `json:"id"`
	Type        NodeType       `json:"type"`
	Title       string         `json:"title,omitempty"`
	Version     string         `json:"version,omitempty"`
	Status      string         `json:"status,omitempty"`
	Owner       string         `json:"owner,omitempty"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`

	*Composition
	*Touchpoint
	*Governance

	Extra map[string]any `json:"-"`
}

type Composition struct {
	ComposedOf []string `json:"composedOf,omitempty"`
	Components []string `json:"components,omitempty"`
	Atoms      []string `json:"atoms,omitempty"`
	Modules    []string `json:"modules,omitempty"`
	Phases     []string `json:"phases,omitempty"`
	ReusableIn []string `json:"reusableIn,omitempty"`
}

type Touchpoint struct {
	Actor           string   `json:"actor,omitempty"`
	AtomType        string   `json:"atom_type,omitempty"`
	CustomerVisible *bool    `json:"customer_visible,omitempty"`
	SLAHours        *float64 `json:"sla_hours,omitempty"`
	RegulatoryRefs  []string `json:"regulatory_refs,omitempty"`
}

type Governance struct {
	Approver             string   `json:"approver,omitempty"`
	LastReviewed         string   `json:"lastReviewed,omitempty"`
	NextReview           string   `json:"nextReview,omitempty"`
	EffectiveDate        string   `json:"effectiveDate,omitempty"`
	Department           string   `json:"department,omitempty"`
	ComplianceFrameworks []string `json:"complianceFrameworks,omitempty"`
	ReviewFrequency      string   `json:"reviewFrequency,omitempty"`
}

// Children returns the ordered, de-duplicated union of every containment list.
func (n *Node) Children() []string {
	if n == nil || n.Composition == nil {
		return nil
	}
	c := n.Composition
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{c.ComposedOf, c.Components, c.Atoms, c.Modules, c.Phases} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func (n *Node) IsCustomerVisible() bool {
	return n != nil && n.Touchpoint != nil && n.CustomerVisible != nil && *n.CustomerVisible
}

// SLA returns sla_hours, or 0 when absent.
func (n *Node) SLA() float64 {
	if n == nil || n.Touchpoint == nil || n.SLAHours == nil {
		return 0
	}
	return *n.SLAHours
}

func (n *Node) Regulatory() []string {
	if n == nil || n.Touchpoint == nil {
		return nil
	}
	return n.RegulatoryRefs
}

// Label is the display name: the title, falling back to the id.
func (n *Node) Label() string {
	if n.Title != "" {
		return n.Title
	}
	return n.ID
}

type nodeAlias Node

func (n *Node) UnmarshalJSON(data []byte) error {
	var alias nodeAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	known := knownNodeFields()
	for key, value := range raw {
		if known[key] {
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		if alias.Extra == nil {
			alias.Extra = make(map[string]any)
		}
		alias.Extra[key] = v
	}

	*n = Node(alias)
	return nil
}

func (n Node) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(nodeAlias(n))
	if err != nil || len(n.Extra) == 0 {
		return data, err
	}

	merged := make(map[string]json.RawMessage, len(n.Extra)+8)
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}

	known := knownNodeFields()
	for key, value := range n.Extra {
		if known[key] {
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		merged[key] = encoded
	}

	return json.Marshal(merged)
}

var (
	knownFieldsOnce sync.Once
	knownFields     map[string]bool
)

// knownNodeFields collects the JSON names of Node and its embedded variants.
func knownNodeFields() map[string]bool {
	knownFieldsOnce.Do(func() {
		knownFields = make(map[string]bool)
		collectJSONNames(reflect.TypeOf(Node{}), knownFields)
	})
	return knownFields
}

func collectJSONNames(t reflect.Type, into map[string]bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			collectJSONNames(ft, into)
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		into[name] = true
	}
}
