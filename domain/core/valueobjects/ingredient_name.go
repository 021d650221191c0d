package valueobjects

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"pantry-backend/domain/config"
	pkgerrors "pantry-backend/pkg/errors"
)

// slugPattern accepts lowercase kebab-case keys, e.g. "semi-sweet-chips".
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// IngredientName is a value object pairing the human display label with the
// globally unique slug key. Slug generation happens upstream; this type only
// validates what it is handed.
type IngredientName struct {
	display string
	slug    string
}

// NewIngredientName creates a name with validation using default configuration
func NewIngredientName(display, slug string) (IngredientName, error) {
	return NewIngredientNameWithConfig(display, slug, config.DefaultDomainConfig())
}

// NewIngredientNameWithConfig creates a name with validation and configuration
func NewIngredientNameWithConfig(display, slug string, cfg *config.DomainConfig) (IngredientName, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	display = strings.TrimSpace(display)
	slug = strings.TrimSpace(slug)

	if display == "" {
		return IngredientName{}, pkgerrors.NewValidationError("display name cannot be empty")
	}

	displayLength := utf8.RuneCountInString(display)
	if displayLength < cfg.MinNameLength {
		return IngredientName{}, fmt.Errorf("display name too short: minimum %d characters required", cfg.MinNameLength)
	}

	if displayLength > cfg.MaxNameLength {
		return IngredientName{}, fmt.Errorf("display name exceeds maximum length of %d characters", cfg.MaxNameLength)
	}

	if slug == "" {
		return IngredientName{}, pkgerrors.NewValidationError("slug cannot be empty")
	}

	if utf8.RuneCountInString(slug) > cfg.MaxSlugLength {
		return IngredientName{}, fmt.Errorf("slug exceeds maximum length of %d characters", cfg.MaxSlugLength)
	}

	if !slugPattern.MatchString(slug) {
		return IngredientName{}, pkgerrors.NewValidationError("slug must be lowercase kebab-case")
	}

	return IngredientName{
		display: display,
		slug:    slug,
	}, nil
}

// Display returns the human-readable label
func (n IngredientName) Display() string {
	return n.display
}

// Slug returns the globally unique key
func (n IngredientName) Slug() string {
	return n.slug
}

// IsEmpty checks if the name is the zero value
func (n IngredientName) IsEmpty() bool {
	return n.display == "" && n.slug == ""
}

// Equals checks if two names are equal
func (n IngredientName) Equals(other IngredientName) bool {
	return n.display == other.display && n.slug == other.slug
}

// MatchesQuery reports whether the display name contains the query,
// case-insensitively. This is the substring test the catalog search uses.
func (n IngredientName) MatchesQuery(query string) bool {
	if query == "" {
		return false
	}
	return strings.Contains(strings.ToLower(n.display), strings.ToLower(query))
}

// WithDisplay returns a copy carrying a new display label and the same slug.
// Renames never touch the slug; external references key on it.
func (n IngredientName) WithDisplay(display string) (IngredientName, error) {
	return NewIngredientName(display, n.slug)
}
