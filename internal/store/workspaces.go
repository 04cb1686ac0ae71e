package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
)

// CreateWorkspace inserts a workspace and its creator's owner membership in
// the same transaction handle. Callers run it inside WithTransaction so the
// two writes commit or roll back together.
func CreateWorkspace(ctx context.Context, q Queryer, slug, name string, creatorID uuid.UUID) (*Workspace, error) {
	var w Workspace
	err := q.GetContext(ctx, &w, `
		INSERT INTO workspaces (id, slug, name, creator_id, settings)
		VALUES ($1, $2, $3, $4, '{}'::jsonb)
		RETURNING id, slug, name, creator_id, settings, created_at, updated_at`,
		uuid.New(), slug, name, creatorID)
	if err != nil {
		return nil, classify(err, "workspace")
	}

	if _, err := q.ExecContext(ctx, `
		INSERT INTO memberships (workspace_id, principal_id, role)
		VALUES ($1, $2, $3)`, w.ID, creatorID, RoleOwner); err != nil {
		return nil, classify(err, "membership")
	}
	return &w, nil
}

// GetWorkspace loads a workspace by id.
func GetWorkspace(ctx context.Context, q Queryer, id uuid.UUID) (*Workspace, error) {
	var w Workspace
	err := q.GetContext(ctx, &w, `
		SELECT id, slug, name, creator_id, settings, created_at, updated_at
		FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return nil, classify(err, "workspace")
	}
	return &w, nil
}

// GetWorkspaceBySlug loads a workspace by slug.
func GetWorkspaceBySlug(ctx context.Context, q Queryer, slug string) (*Workspace, error) {
	var w Workspace
	err := q.GetContext(ctx, &w, `
		SELECT id, slug, name, creator_id, settings, created_at, updated_at
		FROM workspaces WHERE slug = $1`, slug)
	if err != nil {
		return nil, classify(err, "workspace")
	}
	return &w, nil
}

// ListWorkspacesForPrincipal returns the workspaces the principal belongs
// to, newest first.
func ListWorkspacesForPrincipal(ctx context.Context, q Queryer, principalID uuid.UUID) ([]Workspace, error) {
	workspaces := []Workspace{}
	err := q.SelectContext(ctx, &workspaces, `
		SELECT w.id, w.slug, w.name, w.creator_id, w.settings, w.created_at, w.updated_at
		FROM workspaces w
		JOIN memberships m ON m.workspace_id = w.id
		WHERE m.principal_id = $1
		ORDER BY w.created_at DESC, w.id DESC`, principalID)
	if err != nil {
		return nil, classify(err, "workspace")
	}
	return workspaces, nil
}

// UpdateWorkspace changes the name and settings of a workspace.
func UpdateWorkspace(ctx context.Context, q Queryer, id uuid.UUID, name string, settings json.RawMessage) (*Workspace, error) {
	if len(settings) == 0 {
		settings = json.RawMessage(`{}`)
	}
	var w Workspace
	err := q.GetContext(ctx, &w, `
		UPDATE workspaces SET name = $2, settings = $3, updated_at = now()
		WHERE id = $1
		RETURNING id, slug, name, creator_id, settings, created_at, updated_at`,
		id, name, settings)
	if err != nil {
		return nil, classify(err, "workspace")
	}
	return &w, nil
}

// DeleteWorkspace removes a workspace. Dependent rows cascade in the
// schema.
func DeleteWorkspace(ctx context.Context, q Queryer, id uuid.UUID) error {
	res, err := q.ExecContext(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return classify(err, "workspace")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return classify(sql.ErrNoRows, "workspace")
	}
	return nil
}
