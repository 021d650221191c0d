package services

import (
	"context"
	"fmt"
	"time"

	"pantry-backend/application/ports"
	"pantry-backend/domain/config"
	"pantry-backend/domain/core/aggregates"
	"pantry-backend/domain/core/entities"
	"pantry-backend/domain/core/valueobjects"
	"pantry-backend/domain/versioning"

	"go.uber.org/zap"
)

// Issue kinds reported by the consistency sweep.
const (
	IssueMissingParent = "missing-parent"
	IssueLevelMismatch = "level-mismatch"
	IssueBadRootLevel  = "bad-root-level"
	IssueDepthOverflow = "depth-overflow"
	IssueBrokenChain   = "broken-chain"
	IssueDuplicateSlug = "duplicate-slug"
)

// ConsistencyIssue is one structural defect found in the stored catalog.
type ConsistencyIssue struct {
	IngredientID string `json:"ingredient_id"`
	Kind         string `json:"kind"`
	Detail       string `json:"detail"`
}

// ConsistencyReport is the outcome of a full catalog sweep. Legacy orphans
// (parentless nodes at the leaf level) are counted in Stats, not listed as
// issues: they are a supported historical state, not a defect.
type ConsistencyReport struct {
	CheckedAt time.Time                `json:"checked_at"`
	Checksum  string                   `json:"checksum,omitempty"`
	Stats     aggregates.TaxonomyStats `json:"stats"`
	Issues    []ConsistencyIssue       `json:"issues"`
}

// Clean reports whether the sweep found no defects.
func (r *ConsistencyReport) Clean() bool {
	return len(r.Issues) == 0
}

// ConsistencyChecker sweeps the stored catalog for invariant violations.
// Unlike the write-path validation, which rejects the first problem it sees,
// the checker keeps going and reports everything, so one run gives operators
// the full repair list.
type ConsistencyChecker struct {
	ingredients ports.IngredientRepository
	versioning  *versioning.VersioningService
	domainCfg   *config.DomainConfig
	logger      *zap.Logger
}

// NewConsistencyChecker creates a new checker instance
func NewConsistencyChecker(
	ingredients ports.IngredientRepository,
	versioningService *versioning.VersioningService,
	domainCfg *config.DomainConfig,
	logger *zap.Logger,
) *ConsistencyChecker {
	return &ConsistencyChecker{
		ingredients: ingredients,
		versioning:  versioningService,
		domainCfg:   domainCfg,
		logger:      logger,
	}
}

// Check loads the whole catalog and sweeps every structural invariant:
// parents resolve, levels follow parents, parentless nodes sit at the root
// or legacy leaf level, ancestor chains terminate, and slugs stay unique.
func (c *ConsistencyChecker) Check(ctx context.Context) (*ConsistencyReport, error) {
	all, err := c.ingredients.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	report := &ConsistencyReport{
		CheckedAt: time.Now(),
		Issues:    []ConsistencyIssue{},
	}

	byID := make(map[valueobjects.IngredientID]*entities.Ingredient, len(all))
	slugOwners := make(map[string]valueobjects.IngredientID, len(all))
	for _, node := range all {
		byID[node.ID()] = node
		if owner, taken := slugOwners[node.Name().Slug()]; taken {
			report.Issues = append(report.Issues, ConsistencyIssue{
				IngredientID: node.ID().String(),
				Kind:         IssueDuplicateSlug,
				Detail:       fmt.Sprintf("slug %q is already owned by %s", node.Name().Slug(), owner.String()),
			})
		} else {
			slugOwners[node.Name().Slug()] = node.ID()
		}
	}

	for _, node := range all {
		c.checkPlacement(node, byID, report)
		c.checkChain(node, byID, report)
	}

	report.Stats = c.stats(all, byID)

	// The checksum requires a buildable tree; a catalog with broken parent
	// references has no canonical serialization to hash.
	if tax, err := aggregates.BuildTaxonomy(all, c.domainCfg); err == nil {
		if checksum, err := c.versioning.CalculateChecksum(tax); err == nil {
			report.Checksum = checksum
		}
	}

	if !report.Clean() {
		c.logger.Warn("Catalog consistency sweep found defects",
			zap.Int("issues", len(report.Issues)),
			zap.Int("nodes", report.Stats.NodeCount),
		)
	}

	return report, nil
}

// checkPlacement verifies the node's parent reference and level against its
// immediate surroundings.
func (c *ConsistencyChecker) checkPlacement(node *entities.Ingredient, byID map[valueobjects.IngredientID]*entities.Ingredient, report *ConsistencyReport) {
	parentID := node.ParentID()
	if parentID == nil {
		if !node.Level().IsRoot() && node.Level().Int() != c.domainCfg.LegacyOrphanLevel {
			report.Issues = append(report.Issues, ConsistencyIssue{
				IngredientID: node.ID().String(),
				Kind:         IssueBadRootLevel,
				Detail:       fmt.Sprintf("parentless node sits at level %d; expected 0 or %d", node.Level().Int(), c.domainCfg.LegacyOrphanLevel),
			})
		}
		return
	}

	parent, exists := byID[*parentID]
	if !exists {
		report.Issues = append(report.Issues, ConsistencyIssue{
			IngredientID: node.ID().String(),
			Kind:         IssueMissingParent,
			Detail:       fmt.Sprintf("parent %s is not in the catalog", parentID.String()),
		})
		return
	}

	if node.Level().Int() != parent.Level().Int()+1 {
		report.Issues = append(report.Issues, ConsistencyIssue{
			IngredientID: node.ID().String(),
			Kind:         IssueLevelMismatch,
			Detail:       fmt.Sprintf("level %d does not sit one below parent level %d", node.Level().Int(), parent.Level().Int()),
		})
	}
	if node.Level().Int() > c.domainCfg.MaxLevel {
		report.Issues = append(report.Issues, ConsistencyIssue{
			IngredientID: node.ID().String(),
			Kind:         IssueDepthOverflow,
			Detail:       fmt.Sprintf("level %d exceeds the depth cap %d", node.Level().Int(), c.domainCfg.MaxLevel),
		})
	}
}

// checkChain walks the ancestor chain with a hop bound so cycles and
// runaway chains surface as issues instead of hanging the sweep.
func (c *ConsistencyChecker) checkChain(node *entities.Ingredient, byID map[valueobjects.IngredientID]*entities.Ingredient, report *ConsistencyReport) {
	current := node
	for hops := 0; current.ParentID() != nil; hops++ {
		if hops >= c.domainCfg.MaxLevel {
			report.Issues = append(report.Issues, ConsistencyIssue{
				IngredientID: node.ID().String(),
				Kind:         IssueBrokenChain,
				Detail:       "ancestor chain does not terminate within the depth cap",
			})
			return
		}
		parent, exists := byID[*current.ParentID()]
		if !exists {
			// Already reported as a missing parent on the owning node.
			return
		}
		current = parent
	}
}

func (c *ConsistencyChecker) stats(all []*entities.Ingredient, byID map[valueobjects.IngredientID]*entities.Ingredient) aggregates.TaxonomyStats {
	hasChildren := make(map[valueobjects.IngredientID]bool, len(all))
	for _, node := range all {
		if pid := node.ParentID(); pid != nil {
			if _, exists := byID[*pid]; exists {
				hasChildren[*pid] = true
			}
		}
	}

	stats := aggregates.TaxonomyStats{NodeCount: len(all)}
	for _, node := range all {
		if !hasChildren[node.ID()] {
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
