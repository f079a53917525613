// Package graph turns aggregated transfer relationships into the
// declarative node/edge model consumed by the rendering layer, and
// persists/restores snapshots of it.
package graph

import (
	"strconv"
	"strings"

	"flowgraph/internal/models"
)

// Builder assembles and decorates a renderable graph model
type Builder struct {
	nodes   []models.GraphNode
	edges   []models.GraphEdge
	physics bool
}

// NewBuilder creates an empty Builder with physics-driven layout on
func NewBuilder() *Builder {
	return &Builder{physics: true}
}

// Build creates one node per distinct label and one edge per
// aggregated relationship
func (b *Builder) Build(aggregates []models.AggregatedEdge) {
	b.nodes = nil
	b.edges = nil

	seen := make(map[string]bool)
	addNode := func(label string) {
		if !seen[label] {
			seen[label] = true
			b.nodes = append(b.nodes, models.GraphNode{ID: label})
		}
	}

	for _, agg := range aggregates {
		addNode(agg.FromLabel)
		addNode(agg.ToLabel)
		b.edges = append(b.edges, models.GraphEdge{
			From:   agg.FromLabel,
			To:     agg.ToLabel,
			Amount: agg.TotalAmount,
		})
	}
}

// BuildFromRecords builds the model from raw records. Parallel records
// between the same pair collapse into a single edge whose amount is
// the last record's, losing per-record granularity. Prefer Build with
// aggregates; this path exists for pre-filtered raw data.
func (b *Builder) BuildFromRecords(records []models.TransactionRecord) {
	b.nodes = nil
	b.edges = nil

	seen := make(map[string]bool)
	addNode := func(label string) {
		if !seen[label] {
			seen[label] = true
			b.nodes = append(b.nodes, models.GraphNode{ID: label})
		}
	}

	type pair struct{ from, to string }
	edgeIdx := make(map[pair]int)

	for i := range records {
		r := &records[i]
		addNode(r.FromLabel)
		addNode(r.ToLabel)

		key := pair{r.FromLabel, r.ToLabel}
		if idx, ok := edgeIdx[key]; ok {
			b.edges[idx].Amount = r.Amount
			continue
		}
		edgeIdx[key] = len(b.edges)
		b.edges = append(b.edges, models.GraphEdge{
			From:   r.FromLabel,
			To:     r.ToLabel,
			Amount: r.Amount,
		})
	}
}

// Customize decorates nodes and edges with display attributes. It is
// idempotent: formatting always starts from the raw amount kept on the
// edge, so applying it again never double-formats.
func (b *Builder) Customize(displayAmounts, proportionalEdges bool) {
	for i := range b.nodes {
		node := &b.nodes[i]
		name, account := models.SplitLabel(node.ID)

		node.Title = node.ID
		if name != "" && account != "" {
			node.Label = name + "\n(" + account + ")"
		} else {
			node.Label = node.ID
		}
		node.Shape = "dot"
		node.Image = ""
	}

	for i := range b.edges {
		edge := &b.edges[i]
		formatted := FormatAmount(edge.Amount)

		edge.Title = "Total Amount: " + formatted + " EUR"
		if displayAmounts {
			edge.Label = formatted + " EUR"
		} else {
			edge.Label = ""
		}
		if proportionalEdges {
			edge.Value = edge.Amount
		} else {
			edge.Value = 1
		}
	}
}

// TogglePhysics enables or disables physics-driven auto layout. When
// disabling, nodes that were never pinned get explicit null
// coordinates; only already-pinned nodes keep a fixed position.
func (b *Builder) TogglePhysics(enable bool) {
	if !enable {
		for i := range b.nodes {
			node := &b.nodes[i]
			if node.X == nil || node.Y == nil {
				node.X = nil
				node.Y = nil
			}
		}
	}
	b.physics = enable
}

// PinNode assigns fixed display coordinates to a node, exempting it
// from automatic layout
func (b *Builder) PinNode(id string, x, y float64) bool {
	for i := range b.nodes {
		if b.nodes[i].ID == id {
			b.nodes[i].X = &x
			b.nodes[i].Y = &y
			return true
		}
	}
	return false
}

// Model returns the renderable node/edge document
func (b *Builder) Model() models.GraphModel {
	return models.GraphModel{Nodes: b.nodes, Edges: b.edges}
}

// SetState replaces the builder contents, used when restoring a
// snapshot
func (b *Builder) SetState(nodes []models.GraphNode, edges []models.GraphEdge) {
	b.nodes = nodes
	b.edges = edges
}

// FormatAmount renders an amount in accounting style with a dot for
// thousands and a comma for decimals: 1234.5 -> "1.234,50"
func FormatAmount(amount float64) string {
	s := strconv.FormatFloat(amount, 'f', 2, 64)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	intPart := s[:len(s)-3]
	decPart := s[len(s)-2:]

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	out := strings.Join(groups, ".") + "," + decPart
	if neg {
		out = "-" + out
	}
	return out
}
