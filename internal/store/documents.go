package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// CreateDocument inserts a document in a workspace.
func CreateDocument(ctx context.Context, q Queryer, workspaceID, createdBy uuid.UUID, title, content string) (*Document, error) {
	var d Document
	err := q.GetContext(ctx, &d, `
		INSERT INTO documents (id, workspace_id, title, content, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, workspace_id, title, content, archived, created_by, created_at, updated_at`,
		uuid.New(), workspaceID, title, content, createdBy)
	if err != nil {
		return nil, classify(err, "document")
	}
	return &d, nil
}

// GetDocument loads a document, scoped to its workspace so an id from
// another tenant reads as missing.
func GetDocument(ctx context.Context, q Queryer, workspaceID, id uuid.UUID) (*Document, error) {
	var d Document
	err := q.GetContext(ctx, &d, `
		SELECT id, workspace_id, title, content, archived, created_by, created_at, updated_at
		FROM documents WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return nil, classify(err, "document")
	}
	return &d, nil
}

// ListDocuments returns up to limit+1 unarchived documents after the cursor,
// newest first. The caller trims the extra row and uses it to decide whether
// a next page exists.
func ListDocuments(ctx context.Context, q Queryer, workspaceID uuid.UUID, cursor *Cursor, limit int) ([]Document, error) {
	docs := []Document{}
	var err error
	if cursor == nil {
		err = q.SelectContext(ctx, &docs, `
			SELECT id, workspace_id, title, content, archived, created_by, created_at, updated_at
			FROM documents
			WHERE workspace_id = $1 AND archived = false
			ORDER BY created_at DESC, id DESC
			LIMIT $2`, workspaceID, limit+1)
	} else {
		err = q.SelectContext(ctx, &docs, `
			SELECT id, workspace_id, title, content, archived, created_by, created_at, updated_at
			FROM documents
			WHERE workspace_id = $1 AND archived = false
			  AND (created_at, id) < ($2, $3)
			ORDER BY created_at DESC, id DESC
			LIMIT $4`, workspaceID, cursor.CreatedAt, cursor.ID, limit+1)
	}
	if err != nil {
		return nil, classify(err, "document")
	}
	return docs, nil
}

// UpdateDocument rewrites a document's title and content.
func UpdateDocument(ctx context.Context, q Queryer, workspaceID, id uuid.UUID, title, content string) (*Document, error) {
	var d Document
	err := q.GetContext(ctx, &d, `
		UPDATE documents SET title = $3, content = $4, updated_at = now()
		WHERE workspace_id = $1 AND id = $2
		RETURNING id, workspace_id, title, content, archived, created_by, created_at, updated_at`,
		workspaceID, id, title, content)
	if err != nil {
		return nil, classify(err, "document")
	}
	return &d, nil
}

// ArchiveDocument soft-deletes a document. Archived documents drop out of
// listings but stay readable by id.
func ArchiveDocument(ctx context.Context, q Queryer, workspaceID, id uuid.UUID) error {
	res, err := q.ExecContext(ctx, `
		UPDATE documents SET archived = true, updated_at = now()
		WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return classify(err, "document")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return classify(sql.ErrNoRows, "document")
	}
	return nil
}
