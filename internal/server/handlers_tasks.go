package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/kollabhq/kollab/internal/apierr"
	"github.com/kollabhq/kollab/internal/cache"
	"github.com/kollabhq/kollab/internal/store"
)

type createTaskRequest struct {
	Title     string   `json:"title" validate:"required,max=500"`
	Status    string   `json:"status"`
	ProjectID string   `json:"projectId" validate:"omitempty,uuid"`
	Tags      []string `json:"tags" validate:"max=20,dive,required,max=100"`
}

type updateTaskRequest struct {
	Title  string `json:"title" validate:"required,max=500"`
	Status string `json:"status" validate:"required"`

	// Tags replaces the full tag set when present; nil keeps the current set.
	Tags []string `json:"tags" validate:"omitempty,max=20,dive,required,max=100"`
}

type taskResponse struct {
	Task *store.Task `json:"task"`
	Tags []store.Tag `json:"tags"`
}

// taskPage is the cached form of one task listing page.
type taskPage struct {
	Tasks []store.Task `json:"tasks"`
	Total int          `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

// handleListTasks lists tasks with page/limit pagination. Every page rides
// the cache; task writes drop all cached pages of the workspace.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleViewer); err != nil {
		s.respondError(w, r, err)
		return
	}

	limit, err := listLimit(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			s.respondError(w, r, apierr.Validation("page must be a positive integer"))
			return
		}
	}

	result, err := cache.GetOrCompute(r.Context(), s.cache,
		cache.TasksListKey(workspace.ID.String(), page, limit), cache.TTLList,
		func(ctx context.Context) (taskPage, error) {
			tasks, total, err := s.repo.ListTasksPage(ctx, workspace.ID, page, limit)
			if err != nil {
				return taskPage{}, err
			}
			return taskPage{Tasks: tasks, Total: total, Page: page, Limit: limit}, nil
		})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleCreateTask creates a task and its tag relations in one transaction,
// then drops every cached task page of the workspace.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleEditor); err != nil {
		s.respondError(w, r, err)
		return
	}

	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.Status != "" && !store.ValidTaskStatus(req.Status) {
		s.respondError(w, r, apierr.Validation("unknown task status %q", req.Status))
		return
	}

	task := &store.Task{
		WorkspaceID: workspace.ID,
		Title:       req.Title,
		Status:      req.Status,
		CreatedBy:   PrincipalFrom(r.Context()).ID,
	}
	if req.ProjectID != "" {
		projectID, err := resourceID(req.ProjectID, "project")
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		task.ProjectID = &projectID
	}

	created, tags, err := s.repo.CreateTaskWithTags(r.Context(), task, req.Tags)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	// Cached pages are stale only after the commit above succeeded.
	s.cache.DeletePattern(r.Context(), cache.TasksListPattern(workspace.ID.String()))

	s.respondJSON(w, http.StatusCreated, taskResponse{Task: created, Tags: tags})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleViewer); err != nil {
		s.respondError(w, r, err)
		return
	}
	id, err := resourceIDParam(r, "taskID", "task")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	task, err := s.repo.GetTask(r.Context(), workspace.ID, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	tags, err := s.repo.ListTagsForTask(r.Context(), task.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, taskResponse{Task: task, Tags: tags})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleEditor); err != nil {
		s.respondError(w, r, err)
		return
	}
	id, err := resourceIDParam(r, "taskID", "task")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if !store.ValidTaskStatus(req.Status) {
		s.respondError(w, r, apierr.Validation("unknown task status %q", req.Status))
		return
	}

	task, tags, err := s.repo.UpdateTask(r.Context(), workspace.ID, id, req.Title, req.Status, req.Tags)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.cache.DeletePattern(r.Context(), cache.TasksListPattern(workspace.ID.String()))

	s.respondJSON(w, http.StatusOK, taskResponse{Task: task, Tags: tags})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.workspaceFromRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.authorize(r, workspace.ID, store.RoleEditor); err != nil {
		s.respondError(w, r, err)
		return
	}
	id, err := resourceIDParam(r, "taskID", "task")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.repo.DeleteTask(r.Context(), workspace.ID, id); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.cache.DeletePattern(r.Context(), cache.TasksListPattern(workspace.ID.String()))

	s.respondJSON(w, http.StatusNoContent, nil)
}
