package commands

import (
	"context"
	"errors"
	"fmt"

	"pantry-backend/application/services"

	"go.uber.org/zap"
)

// CheckConsistencyCommand runs a full structural sweep over the stored
// catalog. It writes nothing; operators run it after incidents or bulk
// imports to confirm the tree still honors its invariants.
type CheckConsistencyCommand struct {
	ActorID string `json:"actor_id" validate:"required"`
}

// Validate validates the command
func (cmd CheckConsistencyCommand) Validate() error {
	if cmd.ActorID == "" {
		return errors.New("actor ID is required")
	}
	return nil
}

// CheckConsistencyHandler delegates the sweep to the consistency checker and
// logs the verdict.
type CheckConsistencyHandler struct {
	checker *services.ConsistencyChecker
	logger  *zap.Logger
}

// NewCheckConsistencyHandler creates a new handler instance
func NewCheckConsistencyHandler(checker *services.ConsistencyChecker, logger *zap.Logger) *CheckConsistencyHandler {
	return &CheckConsistencyHandler{
		checker: checker,
		logger:  logger,
	}
}

// Handle executes the consistency check
func (h *CheckConsistencyHandler) Handle(ctx context.Context, cmd CheckConsistencyCommand) (*services.ConsistencyReport, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	report, err := h.checker.Check(ctx)
	if err != nil {
		return nil, err
	}

	h.logger.Info("Consistency sweep finished",
		zap.Bool("clean", report.Clean()),
		zap.Int("issues", len(report.Issues)),
		zap.Int("nodes", report.Stats.NodeCount),
		zap.String("actorID", cmd.ActorID),
	)

	return report, nil
}
