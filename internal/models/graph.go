package models

// AggregatedEdge is a single summarized relationship between two
// labels: the sum and count of every matching transfer from one to the
// other. Direction matters; A→B and B→A are distinct aggregates.
type AggregatedEdge struct {
	FromLabel   string  `json:"from_label"`
	ToLabel     string  `json:"to_label"`
	TotalAmount float64 `json:"total_amount"`
	Count       int     `json:"count"`
}

// GraphNode is one party in the renderable graph model. X and Y are
// present only when the node has been pinned; nil means the layout
// engine places it.
type GraphNode struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Title string   `json:"title"`
	Shape string   `json:"shape"`
	Image string   `json:"image"`
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
}

// GraphEdge is one directed relationship in the renderable model.
// Amount carries the raw aggregated total so customization can be
// re-applied without double-formatting.
type GraphEdge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Label  string  `json:"label"`
	Title  string  `json:"title"`
	Value  float64 `json:"value"`
	Amount float64 `json:"amount"`
}

// GraphModel is the declarative node/edge document handed to the
// external rendering layer
type GraphModel struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphSnapshot is the persisted capture of a graph plus the filter
// parameters that produced it
type GraphSnapshot struct {
	Nodes   []GraphNode    `json:"nodes"`
	Edges   []GraphEdge    `json:"edges"`
	Filters FilterCriteria `json:"filters"`
}
