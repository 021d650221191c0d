package config

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Hierarchy constraints. MaxLevel is the deepest level a node may
	// occupy; the tree therefore has MaxLevel+1 levels in total.
	MaxLevel          int
	LeafLevel         int
	LegacyOrphanLevel int

	// Validation feedback
	MaxLeafSuggestions int

	// Name constraints
	MinNameLength int
	MaxNameLength int
	MaxSlugLength int

	// Alias constraints
	MaxAliasesPerIngredient int

	// Query limits
	MaxSearchResults int
	MaxImportBatch   int

	// Validation settings
	AllowEmptyCategory bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		// Three levels: root categories (0), sub-categories (1),
		// concrete ingredients (2).
		MaxLevel:  2,
		LeafLevel: 2,
		// Parentless creates land at leaf depth, matching the flat
		// pre-hierarchy import behavior.
		LegacyOrphanLevel: 2,

		MaxLeafSuggestions: 3,

		MinNameLength: 1,
		MaxNameLength: 120,
		MaxSlugLength: 140,

		MaxAliasesPerIngredient: 20,

		MaxSearchResults: 100,
		MaxImportBatch:   1000,

		AllowEmptyCategory: true,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// Tighter query limits for the deployed API
	config.MaxSearchResults = 50
	config.MaxImportBatch = 500

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More permissive for local catalogs
	config.MaxSearchResults = 500
	config.MaxImportBatch = 5000

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}
