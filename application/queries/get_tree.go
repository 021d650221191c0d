package queries

// GetTreeQuery returns the whole catalog as nested nodes, the shape
// category-picker UIs consume directly. The tree is bounded by the depth
// cap, so the full render stays small.
type GetTreeQuery struct {
	// RootID optionally restricts the render to one subtree.
	RootID string
}

// Validate validates the GetTreeQuery
func (q GetTreeQuery) Validate() error {
	return nil
}

// TreeNode is one rendered node with its children nested in display order.
type TreeNode struct {
	IngredientView
	Children []TreeNode `json:"children"`
}

// TreeStats summarizes the rendered tree.
type TreeStats struct {
	NodeCount   int `json:"node_count"`
	RootCount   int `json:"root_count"`
	LeafCount   int `json:"leaf_count"`
	OrphanCount int `json:"orphan_count"`
}

// GetTreeResult is the full tree response. Parentless legacy leaves are
// listed separately from the category roots so clients can render them as
// their own group.
type GetTreeResult struct {
	Roots   []TreeNode `json:"roots"`
	Orphans []TreeNode `json:"orphans,omitempty"`
	Stats   TreeStats  `json:"stats"`
}
