package aggregates

import (
	"errors"
	"sort"

	"pantry-backend/domain/config"
	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	pkgerrors "pantry-backend/pkg/errors"
)

// Taxonomy is the aggregate over the ingredient tree. It is built from
// repository state per operation rather than held as a process-wide
// singleton, and it owns all of the structural math: ancestor walks,
// breadth-first descendant collection, cycle detection, and the
// re-level plan a move must compute before any write lands.
type Taxonomy struct {
	nodes    map[valueobjects.IngredientID]*entities.Ingredient
	children map[valueobjects.IngredientID][]valueobjects.IngredientID
	slugs    map[string]valueobjects.IngredientID
	roots    []valueobjects.IngredientID
	cfg      *config.DomainConfig
}

// MovePlan is the precomputed outcome of a reparent: the node's new
// placement plus the new level of every descendant. Nothing in the plan
// has been written anywhere; the caller commits it atomically or not at all.
type MovePlan struct {
	NodeID      valueobjects.IngredientID
	NewParentID *valueobjects.IngredientID
	OldLevel    valueobjects.Level
	NewLevel    valueobjects.Level
	Releveled   []RelevelStep
}

// RelevelStep is one descendant's level change within a MovePlan.
type RelevelStep struct {
	ID       valueobjects.IngredientID
	OldLevel valueobjects.Level
	NewLevel valueobjects.Level
}

// TaxonomyStats summarizes the tree for dashboards and consistency reports.
type TaxonomyStats struct {
	NodeCount   int
	RootCount   int
	LeafCount   int
	OrphanCount int // parentless nodes sitting at the legacy leaf level
}

// NewTaxonomy creates an empty tree.
func NewTaxonomy(cfg *config.DomainConfig) *Taxonomy {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Taxonomy{
		nodes:    make(map[valueobjects.IngredientID]*entities.Ingredient),
		children: make(map[valueobjects.IngredientID][]valueobjects.IngredientID),
		slugs:    make(map[string]valueobjects.IngredientID),
		cfg:      cfg,
	}
}

// BuildTaxonomy assembles the tree from stored ingredients. Registration is
// two-pass so input order does not matter; a parent reference that points
// outside the set fails the build.
func BuildTaxonomy(ingredients []*entities.Ingredient, cfg *config.DomainConfig) (*Taxonomy, error) {
	t := NewTaxonomy(cfg)

	for _, ing := range ingredients {
		if ing == nil {
			return nil, errors.New("taxonomy cannot contain a nil ingredient")
		}
		if _, exists := t.nodes[ing.ID()]; exists {
			return nil, errors.New("duplicate ingredient id: " + ing.ID().String())
		}
		if _, taken := t.slugs[ing.Name().Slug()]; taken {
			return nil, pkgerrors.NewSlugTaken(ing.Name().Slug())
		}
		t.nodes[ing.ID()] = ing
		t.slugs[ing.Name().Slug()] = ing.ID()
	}

	for _, ing := range t.nodes {
		parentID := ing.ParentID()
		if parentID == nil {
			t.roots = append(t.roots, ing.ID())
			continue
		}
		if _, exists := t.nodes[*parentID]; !exists {
			return nil, errors.New("ingredient " + ing.ID().String() + " references a parent outside the catalog")
		}
		t.children[*parentID] = append(t.children[*parentID], ing.ID())
	}

	t.sortSiblings(t.roots)
	for parentID := range t.children {
		t.sortSiblings(t.children[parentID])
	}

	return t, nil
}

// AddNode registers a new ingredient, enforcing slug uniqueness and
// parent/level consistency against the current tree.
func (t *Taxonomy) AddNode(ingredient *entities.Ingredient) error {
	if ingredient == nil {
		return errors.New("ingredient cannot be nil")
	}

	id := ingredient.ID()
	if _, exists := t.nodes[id]; exists {
		return errors.New("ingredient already exists in taxonomy")
	}
	if _, taken := t.slugs[ingredient.Name().Slug()]; taken {
		return pkgerrors.NewSlugTaken(ingredient.Name().Slug())
	}

	parentID := ingredient.ParentID()
	if parentID != nil {
		parent, exists := t.nodes[*parentID]
		if !exists {
			return pkgerrors.NewParentNotFound(parentID.String())
		}
		if ingredient.Level().Int() != parent.Level().Int()+1 {
			return errors.New("ingredient level does not follow its parent")
		}
	} else if !ingredient.Level().IsRoot() && ingredient.Level().Int() != t.cfg.LegacyOrphanLevel {
		return errors.New("parentless ingredient must be a root or a legacy leaf")
	}

	t.nodes[id] = ingredient
	t.slugs[ingredient.Name().Slug()] = id
	if parentID == nil {
		t.roots = append(t.roots, id)
		t.sortSiblings(t.roots)
	} else {
		t.children[*parentID] = append(t.children[*parentID], id)
		t.sortSiblings(t.children[*parentID])
	}

	return nil
}

// Node retrieves an ingredient by ID.
func (t *Taxonomy) Node(id valueobjects.IngredientID) (*entities.Ingredient, error) {
	node, exists := t.nodes[id]
	if !exists {
		return nil, pkgerrors.NewIngredientNotFound(id.String())
	}
	return node, nil
}

// NodeBySlug retrieves an ingredient by its globally unique slug.
func (t *Taxonomy) NodeBySlug(slug string) (*entities.Ingredient, error) {
	id, exists := t.slugs[slug]
	if !exists {
		return nil, pkgerrors.NewIngredientNotFound(slug)
	}
	return t.nodes[id], nil
}

// HasNode checks existence without error
func (t *Taxonomy) HasNode(id valueobjects.IngredientID) bool {
	_, exists := t.nodes[id]
	return exists
}

// Size returns the number of ingredients in the tree
func (t *Taxonomy) Size() int {
	return len(t.nodes)
}

// Roots returns the top-level categories (level 0) sorted by display name.
// Parentless legacy leaves are a separate group; see Orphans.
func (t *Taxonomy) Roots() []*entities.Ingredient {
	roots := make([]*entities.Ingredient, 0, len(t.roots))
	for _, node := range t.resolve(t.roots) {
		if node.Level().IsRoot() {
			roots = append(roots, node)
		}
	}
	return roots
}

// Orphans returns parentless legacy leaves sorted by display name. These
// predate the hierarchy and stay adoptable via move, so tree renders list
// them alongside the roots instead of hiding them.
func (t *Taxonomy) Orphans() []*entities.Ingredient {
	orphans := make([]*entities.Ingredient, 0)
	for _, node := range t.resolve(t.roots) {
		if !node.Level().IsRoot() {
			orphans = append(orphans, node)
		}
	}
	return orphans
}

// All returns every ingredient sorted by display name.
func (t *Taxonomy) All() []*entities.Ingredient {
	all := make([]*entities.Ingredient, 0, len(t.nodes))
	for _, node := range t.nodes {
		all = append(all, node)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name().Display() < all[j].Name().Display()
	})
	return all
}

// Ancestors walks parent references from the given node to its root,
// nearest-first. The walk is bounded by the depth cap, so a chain that
// fails to terminate marks a corrupted store rather than looping.
func (t *Taxonomy) Ancestors(id valueobjects.IngredientID) ([]*entities.Ingredient, error) {
	node, err := t.Node(id)
	if err != nil {
		return nil, err
	}

	ancestors := []*entities.Ingredient{}
	current := node
	for hops := 0; current.ParentID() != nil; hops++ {
		if hops >= t.cfg.MaxLevel {
			return nil, errors.New("ancestor chain exceeds the depth cap; catalog is corrupted")
		}
		parent, exists := t.nodes[*current.ParentID()]
		if !exists {
			return nil, errors.New("ancestor chain references a missing ingredient")
		}
		ancestors = append(ancestors, parent)
		current = parent
	}

	return ancestors, nil
}

// Path returns the root-first chain ending at the node itself, ready for
// breadcrumb rendering ("Chocolate > Dark Chocolate > Semi-Sweet Chips").
func (t *Taxonomy) Path(id valueobjects.IngredientID) ([]*entities.Ingredient, error) {
	ancestors, err := t.Ancestors(id)
	if err != nil {
		return nil, err
	}

	path := make([]*entities.Ingredient, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		path = append(path, ancestors[i])
	}
	node, _ := t.Node(id)
	return append(path, node), nil
}

// Children returns the direct children sorted by display name.
func (t *Taxonomy) Children(id valueobjects.IngredientID) ([]*entities.Ingredient, error) {
	if _, err := t.Node(id); err != nil {
		return nil, err
	}
	return t.resolve(t.children[id]), nil
}

// Descendants collects every node whose ancestor chain includes the given
// node, breadth-first, as a worklist rather than recursion.
func (t *Taxonomy) Descendants(id valueobjects.IngredientID) ([]*entities.Ingredient, error) {
	if _, err := t.Node(id); err != nil {
		return nil, err
	}

	descendants := []*entities.Ingredient{}
	queue := append([]valueobjects.IngredientID{}, t.children[id]...)
	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]

		current := t.nodes[currentID]
		descendants = append(descendants, current)
		queue = append(queue, t.children[currentID]...)
	}

	return descendants, nil
}

// IsLeaf reports whether the node has zero children.
func (t *Taxonomy) IsLeaf(id valueobjects.IngredientID) (bool, error) {
	if _, err := t.Node(id); err != nil {
		return false, err
	}
	return len(t.children[id]) == 0, nil
}

// WouldCreateCycle reports whether reparenting the node under the candidate
// would close a loop: true when the node is the candidate itself or appears
// anywhere in the candidate's ancestor chain. Every reparent must pass
// through this check; no mutation path may skip it.
func (t *Taxonomy) WouldCreateCycle(id, candidateParentID valueobjects.IngredientID) (bool, error) {
	if _, err := t.Node(id); err != nil {
		return false, err
	}
	if _, exists := t.nodes[candidateParentID]; !exists {
		return false, pkgerrors.NewParentNotFound(candidateParentID.String())
	}

	if id.Equals(candidateParentID) {
		return true, nil
	}

	ancestors, err := t.Ancestors(candidateParentID)
	if err != nil {
		return false, err
	}
	for _, ancestor := range ancestors {
		if ancestor.ID().Equals(id) {
			return true, nil
		}
	}

	return false, nil
}

// PlanMove runs the full validation sequence for a reparent and returns the
// write set: the node's new placement and the recomputed level of every
// descendant. Each step short-circuits, and nothing is mutated here, so a
// failed plan leaves the tree byte-for-byte untouched.
func (t *Taxonomy) PlanMove(id valueobjects.IngredientID, newParentID *valueobjects.IngredientID) (*MovePlan, error) {
	node, err := t.Node(id)
	if err != nil {
		return nil, err
	}

	var newLevel valueobjects.Level
	if newParentID != nil {
		parent, exists := t.nodes[*newParentID]
		if !exists {
			return nil, pkgerrors.NewParentNotFound(newParentID.String())
		}

		cycle, err := t.WouldCreateCycle(id, *newParentID)
		if err != nil {
			return nil, err
		}
		if cycle {
			return nil, pkgerrors.NewCircularReference(id.String(), newParentID.String())
		}

		childLevel, err := parent.Level().Child()
		if err != nil {
			return nil, pkgerrors.NewMaxDepthExceeded(id.String(), parent.Level().Int()+1, t.cfg.MaxLevel)
		}
		newLevel = childLevel
	} else {
		newLevel = valueobjects.Level(0)
	}

	plan := &MovePlan{
		NodeID:      id,
		NewParentID: newParentID,
		OldLevel:    node.Level(),
		NewLevel:    newLevel,
		Releveled:   []RelevelStep{},
	}

	// Recompute every descendant's level relative to the node's new depth
	// before anything is written. A single over-depth descendant aborts the
	// whole move.
	type workItem struct {
		id    valueobjects.IngredientID
		level int
	}
	queue := []workItem{}
	for _, childID := range t.children[id] {
		queue = append(queue, workItem{childID, newLevel.Int() + 1})
	}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if item.level > t.cfg.MaxLevel {
			return nil, pkgerrors.NewMaxDepthExceeded(item.id.String(), item.level, t.cfg.MaxLevel)
		}

		descendant := t.nodes[item.id]
		if descendant.Level().Int() != item.level {
			plan.Releveled = append(plan.Releveled, RelevelStep{
				ID:       item.id,
				OldLevel: descendant.Level(),
				NewLevel: valueobjects.Level(item.level),
			})
		}

		for _, childID := range t.children[item.id] {
			queue = append(queue, workItem{childID, item.level + 1})
		}
	}

	return plan, nil
}

// ApplyMove commits a plan to the in-memory tree: the node is relocated,
// descendants are releveled, and the child index is rebuilt around the new
// placement. The entities involved record their domain events.
func (t *Taxonomy) ApplyMove(plan *MovePlan) error {
	if plan == nil {
		return errors.New("move plan cannot be nil")
	}
	node, err := t.Node(plan.NodeID)
	if err != nil {
		return err
	}

	releveledIDs := make([]string, 0, len(plan.Releveled))
	for _, step := range plan.Releveled {
		releveledIDs = append(releveledIDs, step.ID.String())
	}

	oldParentID := node.ParentID()
	if err := node.Relocate(plan.NewParentID, plan.NewLevel, releveledIDs); err != nil {
		return err
	}

	for _, step := range plan.Releveled {
		descendant, exists := t.nodes[step.ID]
		if !exists {
			return pkgerrors.NewIngredientNotFound(step.ID.String())
		}
		if err := descendant.Relevel(step.NewLevel); err != nil {
			return err
		}
	}

	t.unlink(plan.NodeID, oldParentID)
	if plan.NewParentID == nil {
		t.roots = append(t.roots, plan.NodeID)
		t.sortSiblings(t.roots)
	} else {
		t.children[*plan.NewParentID] = append(t.children[*plan.NewParentID], plan.NodeID)
		t.sortSiblings(t.children[*plan.NewParentID])
	}

	return nil
}

// LeafSuggestions collects up to max leaf names a consumer can offer in
// place of a non-leaf pick: the node's own leaf descendants first (they
// refine it), then leaf siblings, in breadth-first order.
func (t *Taxonomy) LeafSuggestions(id valueobjects.IngredientID, max int) []string {
	if max <= 0 {
		return nil
	}
	node, exists := t.nodes[id]
	if !exists {
		return nil
	}

	suggestions := []string{}
	seen := map[valueobjects.IngredientID]bool{id: true}

	appendLeaf := func(candidate *entities.Ingredient) bool {
		if seen[candidate.ID()] || len(t.children[candidate.ID()]) > 0 {
			return len(suggestions) < max
		}
		seen[candidate.ID()] = true
		suggestions = append(suggestions, candidate.Name().Display())
		return len(suggestions) < max
	}

	descendants, err := t.Descendants(id)
	if err == nil {
		for _, d := range descendants {
			if !appendLeaf(d) {
				return suggestions
			}
		}
	}

	siblings := t.roots
	if node.ParentID() != nil {
		siblings = t.children[*node.ParentID()]
	}
	for _, siblingID := range siblings {
		if !appendLeaf(t.nodes[siblingID]) {
			return suggestions
		}
	}

	// Siblings that are categories themselves still hide usable leaves.
	for _, siblingID := range siblings {
		if siblingID.Equals(id) {
			continue
		}
		nested, err := t.Descendants(siblingID)
		if err != nil {
			continue
		}
		for _, d := range nested {
			if !appendLeaf(d) {
				return suggestions
			}
		}
	}

	return suggestions
}

// Stats computes tree-level counts on demand.
func (t *Taxonomy) Stats() TaxonomyStats {
	stats := TaxonomyStats{NodeCount: len(t.nodes)}
	for id, node := range t.nodes {
		if len(t.children[id]) == 0 {
			stats.LeafCount++
		}
		if node.ParentID() == nil {
			if node.Level().IsRoot() {
				stats.RootCount++
			} else {
				stats.OrphanCount++
			}
		}
	}
	return stats
}

// Validate sweeps the structural invariants: parents resolve, ancestor
// chains terminate within the depth cap, levels follow parents, parentless
// nodes sit at the root or legacy leaf level, and slugs stay unique.
func (t *Taxonomy) Validate() error {
	for id, node := range t.nodes {
		parentID := node.ParentID()
		if parentID == nil {
			if !node.Level().IsRoot() && node.Level().Int() != t.cfg.LegacyOrphanLevel {
				return errors.New("parentless ingredient " + id.String() + " is neither a root nor a legacy leaf")
			}
		} else {
			parent, exists := t.nodes[*parentID]
			if !exists {
				return errors.New("ingredient " + id.String() + " references a missing parent")
			}
			if node.Level().Int() != parent.Level().Int()+1 {
				return errors.New("ingredient " + id.String() + " does not sit one level below its parent")
			}
		}

		if _, err := t.Ancestors(id); err != nil {
			return err
		}
	}

	if len(t.slugs) != len(t.nodes) {
		return errors.New("slug index out of step with the catalog")
	}

	return nil
}

// Private helper methods

func (t *Taxonomy) resolve(ids []valueobjects.IngredientID) []*entities.Ingredient {
	nodes := make([]*entities.Ingredient, 0, len(ids))
	for _, id := range ids {
		if node, exists := t.nodes[id]; exists {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func (t *Taxonomy) sortSiblings(ids []valueobjects.IngredientID) {
	sort.Slice(ids, func(i, j int) bool {
		return t.nodes[ids[i]].Name().Display() < t.nodes[ids[j]].Name().Display()
	})
}

func (t *Taxonomy) unlink(id valueobjects.IngredientID, parentID *valueobjects.IngredientID) {
	if parentID == nil {
		t.roots = removeID(t.roots, id)
		return
	}
	t.children[*parentID] = removeID(t.children[*parentID], id)
}

func removeID(ids []valueobjects.IngredientID, id valueobjects.IngredientID) []valueobjects.IngredientID {
	filtered := ids[:0]
	for _, candidate := range ids {
		if !candidate.Equals(id) {
			filtered = append(filtered, candidate)
		}
	}
	return filtered
}
