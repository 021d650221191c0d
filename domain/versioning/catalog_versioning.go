package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"pantry-backend/domain/core/aggregates"
)

// CatalogVersion is a point-in-time stamp of the whole ingredient tree,
// recorded after bulk operations so migrations can be audited and verified.
type CatalogVersion struct {
	Version     int       `json:"version"`
	Checksum    string    `json:"checksum"`
	NodeCount   int       `json:"node_count"`
	RootCount   int       `json:"root_count"`
	LeafCount   int       `json:"leaf_count"`
	OrphanCount int       `json:"orphan_count"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by"`
	Description string    `json:"description"`
	Changes     []Change  `json:"changes,omitempty"`
}

// Change represents one catalog mutation folded into a version
type Change struct {
	Type        ChangeType `json:"type"`
	EntityID    string     `json:"entity_id"`
	Description string     `json:"description"`
	Timestamp   time.Time  `json:"timestamp"`
}

// ChangeType represents the type of change
type ChangeType string

const (
	ChangeTypeIngredientCreated ChangeType = "ingredient_created"
	ChangeTypeIngredientRenamed ChangeType = "ingredient_renamed"
	ChangeTypeIngredientMoved   ChangeType = "ingredient_moved"
	ChangeTypeIngredientDeleted ChangeType = "ingredient_deleted"
	ChangeTypeAliasAdded        ChangeType = "alias_added"
	ChangeTypeAliasRemoved      ChangeType = "alias_removed"
	ChangeTypeBatchImport       ChangeType = "batch_import"
)

// VersioningService stamps and compares catalog versions
type VersioningService struct {
	maxVersions int
	autoVersion bool
}

// NewVersioningService creates a new versioning service
func NewVersioningService(maxVersions int, autoVersion bool) *VersioningService {
	return &VersioningService{
		maxVersions: maxVersions,
		autoVersion: autoVersion,
	}
}

// CreateVersion stamps the current tree. The checksum is computed over an
// explicit sorted row form of every node, so two catalogs with the same
// structure always hash the same and any drift in id, slug, parent, level
// or name changes the hash.
func (s *VersioningService) CreateVersion(
	tax *aggregates.Taxonomy,
	currentVersion int,
	userID string,
	description string,
) (*CatalogVersion, error) {
	if tax == nil {
		return nil, fmt.Errorf("taxonomy cannot be nil")
	}

	checksum, err := s.CalculateChecksum(tax)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum: %w", err)
	}

	stats := tax.Stats()
	return &CatalogVersion{
		Version:     currentVersion + 1,
		Checksum:    checksum,
		NodeCount:   stats.NodeCount,
		RootCount:   stats.RootCount,
		LeafCount:   stats.LeafCount,
		OrphanCount: stats.OrphanCount,
		CreatedAt:   time.Now(),
		CreatedBy:   userID,
		Description: description,
		Changes:     []Change{},
	}, nil
}

// CalculateChecksum hashes the structural content of the tree.
func (s *VersioningService) CalculateChecksum(tax *aggregates.Taxonomy) (string, error) {
	type row struct {
		ID     string `json:"id"`
		Slug   string `json:"slug"`
		Name   string `json:"name"`
		Parent string `json:"parent,omitempty"`
		Level  int    `json:"level"`
	}

	// All() is sorted by display name, so the row order is deterministic.
	nodes := tax.All()
	rows := make([]row, 0, len(nodes))
	for _, node := range nodes {
		r := row{
			ID:    node.ID().String(),
			Slug:  node.Name().Slug(),
			Name:  node.Name().Display(),
			Level: node.Level().Int(),
		}
		if pid := node.ParentID(); pid != nil {
			r.Parent = pid.String()
		}
		rows = append(rows, r)
	}

	jsonData, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(jsonData)
	return hex.EncodeToString(hash[:]), nil
}

// CompareVersions summarizes the distance between two stamps
func (s *VersioningService) CompareVersions(v1, v2 *CatalogVersion) (*VersionDiff, error) {
	if v1 == nil || v2 == nil {
		return nil, fmt.Errorf("versions cannot be nil")
	}

	diff := &VersionDiff{
		FromVersion: v1.Version,
		ToVersion:   v2.Version,
		NodeDelta:   v2.NodeCount - v1.NodeCount,
		LeafDelta:   v2.LeafCount - v1.LeafCount,
		Identical:   v1.Checksum == v2.Checksum,
		TimeDiff:    v2.CreatedAt.Sub(v1.CreatedAt),
	}

	for _, change := range v2.Changes {
		switch change.Type {
		case ChangeTypeIngredientCreated:
			diff.Created++
		case ChangeTypeIngredientRenamed:
			diff.Renamed++
		case ChangeTypeIngredientMoved:
			diff.Moved++
		case ChangeTypeIngredientDeleted:
			diff.Deleted++
		}
	}

	return diff, nil
}

// VersionDiff represents the difference between two versions
type VersionDiff struct {
	FromVersion int           `json:"from_version"`
	ToVersion   int           `json:"to_version"`
	NodeDelta   int           `json:"node_delta"`
	LeafDelta   int           `json:"leaf_delta"`
	Created     int           `json:"created"`
	Renamed     int           `json:"renamed"`
	Moved       int           `json:"moved"`
	Deleted     int           `json:"deleted"`
	Identical   bool          `json:"identical"`
	TimeDiff    time.Duration `json:"time_diff"`
}

// VersioningPolicy defines when a new stamp is taken
type VersioningPolicy struct {
	AutoVersion          bool          `json:"auto_version"`
	MaxVersions          int           `json:"max_versions"`
	RetentionPeriod      time.Duration `json:"retention_period"`
	VersionOnChangeCount int           `json:"version_on_change_count"`
	VersionOnTimeElapsed time.Duration `json:"version_on_time_elapsed"`
}

// DefaultVersioningPolicy returns the default versioning policy
func DefaultVersioningPolicy() VersioningPolicy {
	return VersioningPolicy{
		AutoVersion:          true,
		MaxVersions:          10,
		RetentionPeriod:      30 * 24 * time.Hour,
		VersionOnChangeCount: 25,
		VersionOnTimeElapsed: 24 * time.Hour,
	}
}

// ShouldCreateVersion determines if a new version should be created
func (p *VersioningPolicy) ShouldCreateVersion(
	lastVersion *CatalogVersion,
	changesSinceLast int,
	currentTime time.Time,
) bool {
	if !p.AutoVersion {
		return false
	}

	if lastVersion == nil {
		return true
	}

	if changesSinceLast >= p.VersionOnChangeCount {
		return true
	}

	if currentTime.Sub(lastVersion.CreatedAt) >= p.VersionOnTimeElapsed {
		return true
	}

	return false
}
