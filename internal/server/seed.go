package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kollabhq/kollab/internal/apierr"
	"github.com/kollabhq/kollab/internal/logging"
	"github.com/kollabhq/kollab/internal/session"
)

// Demo principal credentials, seeded when demo mode is enabled.
const (
	DemoEmail    = "demo@kollab.local"
	DemoPassword = "Demo123!kollab"

	demoName          = "Demo"
	demoWorkspaceSlug = "demo-workspace"
)

// SeedDemo ensures the demo principal and its workspace exist. Idempotent:
// an already seeded principal is left untouched, password included.
func SeedDemo(ctx context.Context, repo Repository, logger *slog.Logger) error {
	if _, err := repo.GetPrincipalByEmail(ctx, DemoEmail); err == nil {
		return nil
	} else if !errors.Is(err, apierr.ErrNotFound) {
		return fmt.Errorf("looking up demo principal: %w", err)
	}

	hash, err := session.HashPassword(DemoPassword)
	if err != nil {
		return fmt.Errorf("hashing demo password: %w", err)
	}
	principal, err := repo.CreatePrincipal(ctx, DemoEmail, demoName, hash)
	if err != nil {
		return fmt.Errorf("creating demo principal: %w", err)
	}
	workspace, err := repo.CreateWorkspaceWithOwner(ctx, demoWorkspaceSlug, "Demo Workspace", principal.ID)
	if err != nil {
		return fmt.Errorf("creating demo workspace: %w", err)
	}

	logger.Info("demo principal seeded",
		logging.Principal(principal.ID.String()),
		logging.Workspace(workspace.ID.String()))
	return nil
}
