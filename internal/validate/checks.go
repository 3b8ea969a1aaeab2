package validate

import (
	"errors"
	"math"
	"reflect"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"

	"github.com/sopforge/core/internal/graph"
	"github.com/sopforge/core/internal/models"
	"github.com/sopforge/core/internal/parser"
)

var fields = newFieldValidator()

// newFieldValidator reports failing fields by their json or yaml name.
func newFieldValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "yaml"} {
			if name, _, _ := strings.Cut(f.Tag.Get(key), ","); name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

type sopMetadata struct {
	Title   string `json:"title" validate:"required"`
	Version string `json:"version" validate:"required"`
	Status  string `json:"status" validate:"required"`
	Owner   string `json:"owner" validate:"required"`
}

type componentMetadata struct {
	ID      string `yaml:"id" validate:"required"`
	Type    string `yaml:"type" validate:"required"`
	Version string `yaml:"version" validate:"required"`
	Title   string `yaml:"title" validate:"required"`
}

// missingFields returns the names of required fields left empty in s.
func missingFields(s any) []string {
	err := fields.Struct(s)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fe.Field())
	}
	return out
}

// containment lists whose children must be of a fixed type.
var typedChildren = []struct {
	parent models.NodeType
	field  string
	child  models.NodeType
	list   func(*models.Composition) []string
}{
	{models.NodeModule, "atoms", models.NodeAtom, func(c *models.Composition) []string { return c.Atoms }},
	{models.NodePhase, "modules", models.NodeModule, func(c *models.Composition) []string { return c.Modules }},
	{models.NodeJourney, "phases", models.NodePhase, func(c *models.Composition) []string { return c.Phases }},
}

func (c *checker) run() {
	g := c.graph
	if err := parser.CheckStructure(g); err != nil {
		c.errorf("", "%v", err)
		return
	}

	c.journey = g.Flavor() == models.FlavorJourney
	c.result.Flavor = g.Flavor()
	c.result.Summary.TotalNodes = len(g.Nodes)
	c.result.Summary.TotalEdges = len(g.Edges)
	c.result.Summary.TotalComponents = c.library.Len()
	c.infof("graph flavor: %s", c.result.Flavor)

	c.checkMetadata()
	c.checkNodes()
	c.checkEdges()
	c.checkContainment()
	c.checkOrphans()
	c.checkCycles()
	c.checkSLAs()
	c.checkRegulatory()
	c.checkVersions()
	c.checkSOPMetadata()
	c.checkComponents()
}

func (c *checker) checkMetadata() {
	if !c.journey {
		return
	}
	md := c.graph.Metadata
	if md == nil {
		c.warnf("", "graph missing metadata")
		return
	}
	if md["schema_version"] == nil {
		c.warnf("", "metadata missing schema_version")
	}
	if md["stats"] == nil {
		c.warnf("", "metadata missing stats")
	}
}

func (c *checker) checkNodes() {
	for _, id := range c.graph.NodeIDs() {
		n := c.graph.Nodes[id]
		if n == nil {
			c.errorf(id, "node %s is null", id)
			continue
		}

		switch {
		case n.ID == "":
			c.journeyOrSOP(id, "node %s missing 'id' field", id)
		case n.ID != id:
			c.journeyOrSOP(id, "node %s: id field '%s' does not match key", id, n.ID)
		}

		switch {
		case n.Type == "":
			c.errorf(id, "node %s missing 'type' field", id)
		case !n.Type.Known():
			c.warnf(id, "node %s has unknown type '%s'", id, n.Type)
		}

		if n.Title == "" {
			c.journeyOrSOP(id, "node %s missing 'title' field", id)
		}
		if n.Version == "" && !c.journey {
			c.warnf(id, "node %s missing 'version' field", id)
		}

		if c.journey && n.Type == models.NodeAtom {
			c.checkJourneyAtom(id, n)
		}
		for _, tc := range typedChildren {
			if n.Type == tc.parent && (n.Composition == nil || tc.list(n.Composition) == nil) {
				c.errorf(id, "%s %s missing or invalid '%s' array", tc.parent, id, tc.field)
			}
		}
	}
}

func (c *checker) checkJourneyAtom(id string, n *models.Node) {
	tp := n.Touchpoint
	if tp == nil {
		tp = &models.Touchpoint{}
	}
	if tp.Actor == "" {
		c.errorf(id, "atom %s missing 'actor' field", id)
	}
	if tp.AtomType == "" {
		c.errorf(id, "atom %s missing 'atom_type' field", id)
	}
	if tp.CustomerVisible == nil {
		c.errorf(id, "atom %s missing or invalid 'customer_visible' field", id)
	}
	if tp.SLAHours == nil {
		c.errorf(id, "atom %s missing or invalid 'sla_hours' field", id)
	}
}

func (c *checker) checkEdges() {
	for i, e := range c.graph.Edges {
		if e.Source == "" {
			c.errorf("", "edge %d missing 'source' field", i)
		}
		if e.Target == "" {
			c.errorf("", "edge %d missing 'target' field", i)
		}
		if e.Type == "" {
			c.journeyOrSOP("", "edge %d missing 'type' field", i)
		}
		if e.Source != "" {
			if _, ok := c.graph.Node(e.Source); !ok {
				c.errorf(e.Source, "edge references non-existent source: %s", e.Source)
			}
		}
		if e.Target != "" {
			if _, ok := c.graph.Node(e.Target); !ok {
				c.errorf(e.Target, "edge references non-existent target: %s", e.Target)
			}
		}
	}
}

func (c *checker) checkContainment() {
	for _, id := range c.graph.NodeIDs() {
		n := c.graph.Nodes[id]
		if n == nil || n.Composition == nil {
			continue
		}

		for _, tc := range typedChildren {
			if n.Type != tc.parent {
				continue
			}
			for _, child := range tc.list(n.Composition) {
				cn, ok := c.graph.Node(child)
				switch {
				case !ok:
					c.errorf(id, "%s %s references non-existent %s: %s", tc.parent, id, tc.child, child)
				case cn.Type != tc.child:
					c.errorf(id, "%s %s references %s which is not a %s", tc.parent, id, child, tc.child)
				}
			}
		}

		for _, ref := range []struct {
			verb string
			ids  []string
		}{
			{"references", n.Components},
			{"composed of", n.ComposedOf},
		} {
			for _, child := range ref.ids {
				if !c.resolves(child) {
					c.errorf(id, "node %s %s non-existent component: %s", id, ref.verb, child)
				}
			}
		}
	}
}

func (c *checker) resolves(id string) bool {
	if _, ok := c.graph.Node(id); ok {
		return true
	}
	_, ok := c.library.Get(id)
	return ok
}

// checkOrphans warns about atoms that no edge touches and no node contains.
func (c *checker) checkOrphans() {
	referenced := make(map[string]bool)
	for _, e := range c.graph.Edges {
		referenced[e.Source] = true
		referenced[e.Target] = true
	}
	for _, e := range c.graph.ContainmentEdges() {
		referenced[e.Target] = true
	}

	var orphans []string
	for _, id := range c.graph.NodeIDs() {
		if n := c.graph.Nodes[id]; n != nil && n.Type == models.NodeAtom && !referenced[id] {
			orphans = append(orphans, id)
		}
	}
	if len(orphans) > 0 {
		c.warnf("", "found %d orphaned atoms: %s", len(orphans), strings.Join(orphans, ", "))
	}
}

func (c *checker) checkCycles() {
	cycles := graph.DetectCycles(c.graph)
	for _, cy := range cycles {
		c.errorf(cy[0], "circular dependency detected: %s", cy)
	}
	containment := graph.DetectContainmentCycles(c.graph)
	for _, cy := range containment {
		c.errorf(cy[0], "circular containment detected: %s", cy)
	}
	if len(cycles) == 0 && len(containment) == 0 {
		c.infof("no circular dependencies found")
	}
}

func (c *checker) checkSLAs() {
	for _, id := range c.graph.NodeIDs() {
		n := c.graph.Nodes[id]
		if n == nil {
			continue
		}
		if n.Type == models.NodeAtom && n.SLA() < 0 {
			c.errorf(id, "atom %s has invalid sla_hours: %g", id, n.SLA())
		}

		if n.Type != models.NodeModule || n.Composition == nil || n.SLA() == 0 {
			continue
		}
		var sum float64
		for _, atomID := range n.Atoms {
			if a, ok := c.graph.Node(atomID); ok {
				sum += a.SLA()
			}
		}
		if math.Abs(n.SLA()-sum) > 0.1 {
			c.warnf(id, "module %s SLA (%gh) doesn't match sum of atoms (%gh)", id, n.SLA(), sum)
		}
	}
}

func (c *checker) checkRegulatory() {
	for _, id := range c.graph.NodeIDs() {
		n := c.graph.Nodes[id]
		if n != nil && n.Type == models.NodeAtom && n.IsCustomerVisible() && len(n.Regulatory()) == 0 {
			c.warnf(id, "customer-visible atom %s missing regulatory_refs", id)
		}
	}
}

func (c *checker) checkVersions() {
	for _, id := range c.graph.NodeIDs() {
		n := c.graph.Nodes[id]
		if n == nil || n.Version == "" {
			continue
		}
		if _, err := semver.StrictNewVersion(n.Version); err != nil {
			c.warnf(id, "node %s has invalid semantic version: %s", id, n.Version)
		}
	}

	for _, comp := range c.library.All() {
		if comp.Frontmatter == nil || comp.Frontmatter.Version == "" {
			continue
		}
		v := comp.Frontmatter.Version
		if _, err := semver.StrictNewVersion(v); err != nil {
			c.warnf("", "component %s has invalid semantic version: %s", comp.ID, v)
		}
	}
}

func (c *checker) checkSOPMetadata() {
	for _, id := range c.graph.NodeIDs() {
		n := c.graph.Nodes[id]
		if n == nil || n.Type != models.NodeSOP {
			continue
		}
		meta := sopMetadata{Title: n.Title, Version: n.Version, Status: n.Status, Owner: n.Owner}
		for _, field := range missingFields(meta) {
			c.warnf(id, "SOP %s missing required field: %s", id, field)
		}
	}
}

func (c *checker) checkComponents() {
	if c.library == nil {
		return
	}
	c.infof("loaded %d components", c.library.Len())

	for _, w := range c.library.Warnings {
		c.warnf("", "%s", w)
	}
	for _, comp := range c.library.All() {
		fm := comp.Frontmatter
		if fm == nil {
			fm = &parser.Frontmatter{ID: comp.ID}
		}
		meta := componentMetadata{ID: fm.ID, Type: fm.Type, Version: fm.Version, Title: fm.Title}
		for _, field := range missingFields(meta) {
			c.warnf("", "component %s missing required field: %s", comp.ID, field)
		}
	}
}
