package valueobjects

import (
	"fmt"

	"pantry-backend/domain/config"
)

// Level is the depth of a node in the hierarchy: 0 for root categories,
// MaxLevel (2) for the leaf-capable depth. The zero value is a valid root
// level, so reconstruction from storage never needs a fallible call.
type Level int

// NewLevel validates a raw level against the configured depth cap.
func NewLevel(value int) (Level, error) {
	return NewLevelWithConfig(value, config.DefaultDomainConfig())
}

// NewLevelWithConfig validates a raw level against a specific configuration.
func NewLevelWithConfig(value int, cfg *config.DomainConfig) (Level, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if value < 0 {
		return 0, fmt.Errorf("level cannot be negative, got %d", value)
	}
	if value > cfg.MaxLevel {
		return 0, fmt.Errorf("level %d exceeds the maximum depth of %d", value, cfg.MaxLevel)
	}
	return Level(value), nil
}

// Int returns the raw depth.
func (l Level) Int() int {
	return int(l)
}

// IsRoot reports whether this is the top of the tree.
func (l Level) IsRoot() bool {
	return l == 0
}

// Child returns the level one step deeper, failing past the depth cap.
func (l Level) Child() (Level, error) {
	return NewLevel(int(l) + 1)
}

// WithinMax reports whether the level fits under the default depth cap.
func (l Level) WithinMax() bool {
	return int(l) <= config.DefaultDomainConfig().MaxLevel
}

// In reports whether the level appears in the allowed set.
func (l Level) In(allowed []int) bool {
	for _, a := range allowed {
		if int(l) == a {
			return true
		}
	}
	return false
}
