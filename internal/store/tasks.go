package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/kollabhq/kollab/internal/apierr"
)

// Task statuses.
const (
	TaskStatusOpen       = "open"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

var taskStatuses = map[string]bool{
	TaskStatusOpen:       true,
	TaskStatusInProgress: true,
	TaskStatusDone:       true,
}

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s string) bool {
	return taskStatuses[s]
}

// CreateTaskWithTags inserts a task and binds its tags in one transaction
// handle. Tags are upserted by name within the workspace so repeated names
// converge on one row.
func CreateTaskWithTags(ctx context.Context, q Queryer, task *Task, tagNames []string) (*Task, []Tag, error) {
	if task.Status == "" {
		task.Status = TaskStatusOpen
	}
	if !ValidTaskStatus(task.Status) {
		return nil, nil, apierr.Validation("unknown task status %q", task.Status)
	}

	var created Task
	err := q.GetContext(ctx, &created, `
		INSERT INTO tasks (id, workspace_id, project_id, title, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, workspace_id, project_id, title, status, created_by, created_at, updated_at`,
		uuid.New(), task.WorkspaceID, task.ProjectID, task.Title, task.Status, task.CreatedBy)
	if err != nil {
		return nil, nil, classify(err, "task")
	}

	tags, err := attachTags(ctx, q, &created, tagNames)
	if err != nil {
		return nil, nil, err
	}
	return &created, tags, nil
}

func attachTags(ctx context.Context, q Queryer, task *Task, tagNames []string) ([]Tag, error) {
	tags := make([]Tag, 0, len(tagNames))
	seen := make(map[string]bool, len(tagNames))
	for _, name := range tagNames {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		var tag Tag
		err := q.GetContext(ctx, &tag, `
			INSERT INTO tags (id, workspace_id, name)
			VALUES ($1, $2, $3)
			ON CONFLICT (workspace_id, name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id, workspace_id, name`,
			uuid.New(), task.WorkspaceID, name)
		if err != nil {
			return nil, classify(err, "tag")
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO task_tags (task_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, task.ID, tag.ID); err != nil {
			return nil, classify(err, "tag")
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// GetTask loads a task scoped to its workspace.
func GetTask(ctx context.Context, q Queryer, workspaceID, id uuid.UUID) (*Task, error) {
	var t Task
	err := q.GetContext(ctx, &t, `
		SELECT id, workspace_id, project_id, title, status, created_by, created_at, updated_at
		FROM tasks WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return nil, classify(err, "task")
	}
	return &t, nil
}

// ListTasksPage returns one offset page of tasks plus the workspace total,
// newest first. Page numbers start at 1.
func ListTasksPage(ctx context.Context, q Queryer, workspaceID uuid.UUID, page, limit int) ([]Task, int, error) {
	if page < 1 {
		page = 1
	}

	var total int
	if err := q.GetContext(ctx, &total, `
		SELECT count(*) FROM tasks WHERE workspace_id = $1`, workspaceID); err != nil {
		return nil, 0, classify(err, "task")
	}

	tasks := []Task{}
	err := q.SelectContext(ctx, &tasks, `
		SELECT id, workspace_id, project_id, title, status, created_by, created_at, updated_at
		FROM tasks WHERE workspace_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, workspaceID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, classify(err, "task")
	}
	return tasks, total, nil
}

// ListTagsForTask returns a task's tags by name order.
func ListTagsForTask(ctx context.Context, q Queryer, taskID uuid.UUID) ([]Tag, error) {
	tags := []Tag{}
	err := q.SelectContext(ctx, &tags, `
		SELECT t.id, t.workspace_id, t.name
		FROM tags t
		JOIN task_tags tt ON tt.tag_id = t.id
		WHERE tt.task_id = $1
		ORDER BY t.name ASC`, taskID)
	if err != nil {
		return nil, classify(err, "tag")
	}
	return tags, nil
}

// UpdateTask rewrites a task's title and status and replaces its tag set
// when tagNames is non-nil.
func UpdateTask(ctx context.Context, q Queryer, workspaceID, id uuid.UUID, title, status string, tagNames []string) (*Task, []Tag, error) {
	if !ValidTaskStatus(status) {
		return nil, nil, apierr.Validation("unknown task status %q", status)
	}

	var t Task
	err := q.GetContext(ctx, &t, `
		UPDATE tasks SET title = $3, status = $4, updated_at = now()
		WHERE workspace_id = $1 AND id = $2
		RETURNING id, workspace_id, project_id, title, status, created_by, created_at, updated_at`,
		workspaceID, id, title, status)
	if err != nil {
		return nil, nil, classify(err, "task")
	}

	if tagNames == nil {
		tags, err := ListTagsForTask(ctx, q, t.ID)
		if err != nil {
			return nil, nil, err
		}
		return &t, tags, nil
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id = $1`, t.ID); err != nil {
		return nil, nil, classify(err, "tag")
	}
	tags, err := attachTags(ctx, q, &t, tagNames)
	if err != nil {
		return nil, nil, err
	}
	return &t, tags, nil
}

// DeleteTask removes a task. Tag bindings cascade in the schema.
func DeleteTask(ctx context.Context, q Queryer, workspaceID, id uuid.UUID) error {
	res, err := q.ExecContext(ctx, `
		DELETE FROM tasks WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return classify(err, "task")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return classify(sql.ErrNoRows, "task")
	}
	return nil
}
