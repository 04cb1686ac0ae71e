package store

import (
	"context"

	"github.com/google/uuid"
)

// defaultFolderNames are created alongside every project.
var defaultFolderNames = []string{"General", "Archive"}

// CreateProjectWithDefaults inserts a project and its default folders in one
// transaction handle.
func CreateProjectWithDefaults(ctx context.Context, q Queryer, workspaceID, createdBy uuid.UUID, name string) (*Project, []Folder, error) {
	var p Project
	err := q.GetContext(ctx, &p, `
		INSERT INTO projects (id, workspace_id, name, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, workspace_id, name, created_by, created_at`,
		uuid.New(), workspaceID, name, createdBy)
	if err != nil {
		return nil, nil, classify(err, "project")
	}

	folders := make([]Folder, 0, len(defaultFolderNames))
	for _, folderName := range defaultFolderNames {
		var f Folder
		err := q.GetContext(ctx, &f, `
			INSERT INTO folders (id, project_id, name)
			VALUES ($1, $2, $3)
			RETURNING id, project_id, name`,
			uuid.New(), p.ID, folderName)
		if err != nil {
			return nil, nil, classify(err, "folder")
		}
		folders = append(folders, f)
	}
	return &p, folders, nil
}

// GetProject loads a project scoped to its workspace.
func GetProject(ctx context.Context, q Queryer, workspaceID, id uuid.UUID) (*Project, error) {
	var p Project
	err := q.GetContext(ctx, &p, `
		SELECT id, workspace_id, name, created_by, created_at
		FROM projects WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return nil, classify(err, "project")
	}
	return &p, nil
}

// ListProjects returns a workspace's projects, newest first.
func ListProjects(ctx context.Context, q Queryer, workspaceID uuid.UUID) ([]Project, error) {
	projects := []Project{}
	err := q.SelectContext(ctx, &projects, `
		SELECT id, workspace_id, name, created_by, created_at
		FROM projects WHERE workspace_id = $1
		ORDER BY created_at DESC, id DESC`, workspaceID)
	if err != nil {
		return nil, classify(err, "project")
	}
	return projects, nil
}
