package validators

import (
	"fmt"
	"regexp"
	"strings"

	"pantry-backend/domain/config"
	"pantry-backend/pkg/errors"
)

// IngredientValidator validates ingredient-related domain rules before any
// value object is constructed, so callers get every field problem in one
// aggregated response instead of the first failure.
type IngredientValidator struct {
	nameMinLength     int
	nameMaxLength     int
	slugMaxLength     int
	categoryMaxLength int
	slugPattern        *regexp.Regexp
	allowEmptyCategory bool
}

// NewIngredientValidator creates a validator with the default catalog rules
func NewIngredientValidator() *IngredientValidator {
	return NewIngredientValidatorWithConfig(config.DefaultDomainConfig())
}

// NewIngredientValidatorWithConfig creates a validator bound to a specific configuration
func NewIngredientValidatorWithConfig(cfg *config.DomainConfig) *IngredientValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &IngredientValidator{
		nameMinLength:      cfg.MinNameLength,
		nameMaxLength:      cfg.MaxNameLength,
		slugMaxLength:      cfg.MaxSlugLength,
		categoryMaxLength:  255,
		slugPattern:        regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`),
		allowEmptyCategory: cfg.AllowEmptyCategory,
	}
}

// ValidateNewIngredient aggregates every field problem of a create request
func (v *IngredientValidator) ValidateNewIngredient(displayName, slug, category string) error {
	validationErrors := errors.NewValidationErrors()

	if err := v.ValidateDisplayName(displayName); err != nil {
		if domainErr, ok := err.(*errors.DomainError); ok {
			validationErrors.AddError(domainErr)
		} else {
			validationErrors.Add("display_name", err.Error())
		}
	}

	if err := v.ValidateSlug(slug); err != nil {
		if domainErr, ok := err.(*errors.DomainError); ok {
			validationErrors.AddError(domainErr)
		} else {
			validationErrors.Add("slug", err.Error())
		}
	}

	if err := v.ValidateCategory(category); err != nil {
		if domainErr, ok := err.(*errors.DomainError); ok {
			validationErrors.AddError(domainErr)
		} else {
			validationErrors.Add("category", err.Error())
		}
	}

	if validationErrors.HasErrors() {
		return validationErrors
	}

	return nil
}

// ValidateDisplayName validates the human label
func (v *IngredientValidator) ValidateDisplayName(displayName string) error {
	displayName = strings.TrimSpace(displayName)

	if len(displayName) < v.nameMinLength {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"DISPLAY_NAME_REQUIRED",
			"Display name is required",
		).WithDetail("field", "display_name")
	}

	if len(displayName) > v.nameMaxLength {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"DISPLAY_NAME_TOO_LONG",
			fmt.Sprintf("Display name exceeds maximum length of %d characters", v.nameMaxLength),
		).WithDetail("field", "display_name").WithDetail("actual_length", len(displayName)).WithDetail("max_length", v.nameMaxLength)
	}

	return nil
}

// ValidateSlug validates the globally unique lookup key. Uniqueness itself
// is a store-level check; this covers shape only.
func (v *IngredientValidator) ValidateSlug(slug string) error {
	if slug == "" {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"SLUG_REQUIRED",
			"Slug is required",
		).WithDetail("field", "slug")
	}

	if len(slug) > v.slugMaxLength {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"SLUG_TOO_LONG",
			fmt.Sprintf("Slug exceeds maximum length of %d characters", v.slugMaxLength),
		).WithDetail("field", "slug").WithDetail("max_length", v.slugMaxLength)
	}

	if !v.slugPattern.MatchString(slug) {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"INVALID_SLUG_FORMAT",
			"Slug must be lowercase kebab-case (letters, digits, single dashes)",
		).WithDetail("field", "slug").WithDetail("slug", slug)
	}

	return nil
}

// ValidateCategory validates the legacy free-text category
func (v *IngredientValidator) ValidateCategory(category string) error {
	category = strings.TrimSpace(category)

	if category == "" {
		if v.allowEmptyCategory {
			return nil
		}
		return errors.NewDomainError(
			errors.DomainValidationError,
			"CATEGORY_REQUIRED",
			"Category is required",
		).WithDetail("field", "category")
	}

	if len(category) > v.categoryMaxLength {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"CATEGORY_TOO_LONG",
			fmt.Sprintf("Category exceeds maximum length of %d characters", v.categoryMaxLength),
		).WithDetail("field", "category").WithDetail("max_length", v.categoryMaxLength)
	}

	return nil
}

// AliasValidator validates alias and crosswalk rules
type AliasValidator struct {
	nameMaxLength    int
	maxPerIngredient int
	schemePattern    *regexp.Regexp
	codeMaxLength    int
}

// NewAliasValidator creates an alias validator with the default rules
func NewAliasValidator() *AliasValidator {
	return NewAliasValidatorWithConfig(config.DefaultDomainConfig())
}

// NewAliasValidatorWithConfig creates an alias validator bound to a configuration
func NewAliasValidatorWithConfig(cfg *config.DomainConfig) *AliasValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &AliasValidator{
		nameMaxLength:    cfg.MaxNameLength,
		maxPerIngredient: cfg.MaxAliasesPerIngredient,
		schemePattern:    regexp.MustCompile(`^[a-z0-9_-]+$`),
		codeMaxLength:    64,
	}
}

// ValidateAliasName validates the alternate lookup name
func (v *AliasValidator) ValidateAliasName(name string) error {
	name = strings.TrimSpace(name)

	if name == "" {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"ALIAS_NAME_REQUIRED",
			"Alias name is required",
		).WithDetail("field", "name")
	}

	if len(name) > v.nameMaxLength {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"ALIAS_NAME_TOO_LONG",
			fmt.Sprintf("Alias name exceeds maximum length of %d characters", v.nameMaxLength),
		).WithDetail("field", "name").WithDetail("max_length", v.nameMaxLength)
	}

	return nil
}

// ValidateCrosswalk validates an external scheme/code pair
func (v *AliasValidator) ValidateCrosswalk(scheme, code string) error {
	scheme = strings.TrimSpace(scheme)
	code = strings.TrimSpace(code)

	if scheme == "" && code == "" {
		return nil // plain alias, no crosswalk
	}

	if (scheme == "") != (code == "") {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"INCOMPLETE_CROSSWALK",
			"Crosswalk scheme and code must be supplied together",
		).WithDetail("field", "scheme")
	}

	if !v.schemePattern.MatchString(scheme) {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"INVALID_SCHEME_FORMAT",
			"Crosswalk scheme contains invalid characters",
		).WithDetail("field", "scheme").WithDetail("scheme", scheme)
	}

	if len(code) > v.codeMaxLength {
		return errors.NewDomainError(
			errors.DomainValidationError,
			"CROSSWALK_CODE_TOO_LONG",
			fmt.Sprintf("Crosswalk code exceeds maximum length of %d characters", v.codeMaxLength),
		).WithDetail("field", "code").WithDetail("max_length", v.codeMaxLength)
	}

	return nil
}

// ValidateAliasCount enforces the per-ingredient alias cap
func (v *AliasValidator) ValidateAliasCount(current int) error {
	if current >= v.maxPerIngredient {
		return errors.NewDomainError(
			errors.DomainBusinessRuleError,
			"TOO_MANY_ALIASES",
			fmt.Sprintf("Cannot have more than %d aliases per ingredient", v.maxPerIngredient),
		).WithDetail("count", current).WithDetail("limit", v.maxPerIngredient)
	}

	return nil
}
