package store

import (
	"context"

	"github.com/google/uuid"
)

// SearchResources matches documents, tasks and projects in a workspace by
// title substring, case-insensitively, newest first across all three types.
func SearchResources(ctx context.Context, q Queryer, workspaceID uuid.UUID, query string, limit int) ([]SearchResult, error) {
	results := []SearchResult{}
	pattern := "%" + query + "%"
	err := q.SelectContext(ctx, &results, `
		SELECT id, workspace_id, 'document' AS resource_type, title, created_at
		FROM documents
		WHERE workspace_id = $1 AND archived = false AND title ILIKE $2
		UNION ALL
		SELECT id, workspace_id, 'task' AS resource_type, title, created_at
		FROM tasks
		WHERE workspace_id = $1 AND title ILIKE $2
		UNION ALL
		SELECT id, workspace_id, 'project' AS resource_type, name AS title, created_at
		FROM projects
		WHERE workspace_id = $1 AND name ILIKE $2
		ORDER BY created_at DESC
		LIMIT $3`, workspaceID, pattern, limit)
	if err != nil {
		return nil, classify(err, "search")
	}
	return results, nil
}
