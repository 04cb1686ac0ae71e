package server

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kollabhq/kollab/internal/store"
)

// Repository is the persistence surface the handlers depend on. The
// production implementation wraps *store.Store and runs every multi-table
// write inside a transaction; tests substitute an in-memory fake.
type Repository interface {
	CreatePrincipal(ctx context.Context, email, name, passwordHash string) (*store.Principal, error)
	GetPrincipalByEmail(ctx context.Context, email string) (*store.Principal, error)
	GetPrincipal(ctx context.Context, id uuid.UUID) (*store.Principal, error)
	UpdatePrincipalPassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	CreateWorkspaceWithOwner(ctx context.Context, slug, name string, creatorID uuid.UUID) (*store.Workspace, error)
	GetWorkspace(ctx context.Context, id uuid.UUID) (*store.Workspace, error)
	GetWorkspaceBySlug(ctx context.Context, slug string) (*store.Workspace, error)
	ListWorkspacesForPrincipal(ctx context.Context, principalID uuid.UUID) ([]store.Workspace, error)
	UpdateWorkspace(ctx context.Context, id uuid.UUID, name string, settings json.RawMessage) (*store.Workspace, error)
	DeleteWorkspace(ctx context.Context, id uuid.UUID) error

	ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]store.Membership, error)
	AddMember(ctx context.Context, workspaceID, principalID uuid.UUID, role store.Role) (*store.Membership, error)
	UpdateMemberRole(ctx context.Context, workspaceID, principalID uuid.UUID, role store.Role) (*store.Membership, error)
	RemoveMember(ctx context.Context, workspaceID, principalID uuid.UUID) error
	TransferOwnership(ctx context.Context, workspaceID, fromPrincipal, toPrincipal uuid.UUID) (*store.Membership, error)

	CreateDocument(ctx context.Context, workspaceID, createdBy uuid.UUID, title, content string) (*store.Document, error)
	GetDocument(ctx context.Context, workspaceID, id uuid.UUID) (*store.Document, error)
	ListDocuments(ctx context.Context, workspaceID uuid.UUID, cursor *store.Cursor, limit int) ([]store.Document, error)
	UpdateDocument(ctx context.Context, workspaceID, id uuid.UUID, title, content string) (*store.Document, error)
	ArchiveDocument(ctx context.Context, workspaceID, id uuid.UUID) error

	CreateTaskWithTags(ctx context.Context, task *store.Task, tagNames []string) (*store.Task, []store.Tag, error)
	GetTask(ctx context.Context, workspaceID, id uuid.UUID) (*store.Task, error)
	ListTasksPage(ctx context.Context, workspaceID uuid.UUID, page, limit int) ([]store.Task, int, error)
	ListTagsForTask(ctx context.Context, taskID uuid.UUID) ([]store.Tag, error)
	UpdateTask(ctx context.Context, workspaceID, id uuid.UUID, title, status string, tagNames []string) (*store.Task, []store.Tag, error)
	DeleteTask(ctx context.Context, workspaceID, id uuid.UUID) error

	CreateProjectWithDefaults(ctx context.Context, workspaceID, createdBy uuid.UUID, name string) (*store.Project, []store.Folder, error)
	GetProject(ctx context.Context, workspaceID, id uuid.UUID) (*store.Project, error)
	ListProjects(ctx context.Context, workspaceID uuid.UUID) ([]store.Project, error)

	CreateTeamWithLeader(ctx context.Context, workspaceID, leaderID uuid.UUID, name string) (*store.Team, error)
	GetTeam(ctx context.Context, workspaceID, id uuid.UUID) (*store.Team, error)
	ListTeams(ctx context.Context, workspaceID uuid.UUID) ([]store.Team, error)
	ListTeamMembers(ctx context.Context, teamID uuid.UUID) ([]store.TeamMember, error)

	SearchResources(ctx context.Context, workspaceID uuid.UUID, query string, limit int) ([]store.SearchResult, error)
}

// sqlRepository implements Repository over a *store.Store.
type sqlRepository struct {
	s *store.Store
}

// NewRepository wraps a store in the handler-facing Repository.
func NewRepository(s *store.Store) Repository {
	return &sqlRepository{s: s}
}

func (r *sqlRepository) CreatePrincipal(ctx context.Context, email, name, passwordHash string) (*store.Principal, error) {
	return store.CreatePrincipal(ctx, r.s.DB(), email, name, passwordHash)
}

func (r *sqlRepository) GetPrincipalByEmail(ctx context.Context, email string) (*store.Principal, error) {
	return store.GetPrincipalByEmail(ctx, r.s.DB(), email)
}

func (r *sqlRepository) GetPrincipal(ctx context.Context, id uuid.UUID) (*store.Principal, error) {
	return store.GetPrincipal(ctx, r.s.DB(), id)
}

func (r *sqlRepository) UpdatePrincipalPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return store.UpdatePrincipalPassword(ctx, r.s.DB(), id, passwordHash)
}

// CreateWorkspaceWithOwner creates the workspace and its owner membership
// atomically.
func (r *sqlRepository) CreateWorkspaceWithOwner(ctx context.Context, slug, name string, creatorID uuid.UUID) (*store.Workspace, error) {
	var w *store.Workspace
	err := r.s.WithTransaction(ctx, store.TxOptions{}, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		w, err = store.CreateWorkspace(ctx, tx, slug, name, creatorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (r *sqlRepository) GetWorkspace(ctx context.Context, id uuid.UUID) (*store.Workspace, error) {
	return store.GetWorkspace(ctx, r.s.DB(), id)
}

func (r *sqlRepository) GetWorkspaceBySlug(ctx context.Context, slug string) (*store.Workspace, error) {
	return store.GetWorkspaceBySlug(ctx, r.s.DB(), slug)
}

func (r *sqlRepository) ListWorkspacesForPrincipal(ctx context.Context, principalID uuid.UUID) ([]store.Workspace, error) {
	return store.ListWorkspacesForPrincipal(ctx, r.s.DB(), principalID)
}

func (r *sqlRepository) UpdateWorkspace(ctx context.Context, id uuid.UUID, name string, settings json.RawMessage) (*store.Workspace, error) {
	return store.UpdateWorkspace(ctx, r.s.DB(), id, name, settings)
}

func (r *sqlRepository) DeleteWorkspace(ctx context.Context, id uuid.UUID) error {
	return store.DeleteWorkspace(ctx, r.s.DB(), id)
}

func (r *sqlRepository) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]store.Membership, error) {
	return store.ListMembers(ctx, r.s.DB(), workspaceID)
}

func (r *sqlRepository) AddMember(ctx context.Context, workspaceID, principalID uuid.UUID, role store.Role) (*store.Membership, error) {
	return store.AddMember(ctx, r.s.DB(), workspaceID, principalID, role)
}

// UpdateMemberRole runs serializable so a concurrent ownership change cannot
// race the owner check.
func (r *sqlRepository) UpdateMemberRole(ctx context.Context, workspaceID, principalID uuid.UUID, role store.Role) (*store.Membership, error) {
	var m *store.Membership
	err := r.s.WithTransaction(ctx, store.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		m, err = store.UpdateMemberRole(ctx, tx, workspaceID, principalID, role)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// TransferOwnership runs serializable, the demotion and the promotion must
// land together or not at all.
func (r *sqlRepository) TransferOwnership(ctx context.Context, workspaceID, fromPrincipal, toPrincipal uuid.UUID) (*store.Membership, error) {
	var m *store.Membership
	err := r.s.WithTransaction(ctx, store.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		m, err = store.TransferOwnership(ctx, tx, workspaceID, fromPrincipal, toPrincipal)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RemoveMember runs serializable, the owner check and the delete must be one
// atomic step.
func (r *sqlRepository) RemoveMember(ctx context.Context, workspaceID, principalID uuid.UUID) error {
	return r.s.WithTransaction(ctx, store.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx *sqlx.Tx) error {
		return store.RemoveMember(ctx, tx, workspaceID, principalID)
	})
}

func (r *sqlRepository) CreateDocument(ctx context.Context, workspaceID, createdBy uuid.UUID, title, content string) (*store.Document, error) {
	return store.CreateDocument(ctx, r.s.DB(), workspaceID, createdBy, title, content)
}

func (r *sqlRepository) GetDocument(ctx context.Context, workspaceID, id uuid.UUID) (*store.Document, error) {
	return store.GetDocument(ctx, r.s.DB(), workspaceID, id)
}

func (r *sqlRepository) ListDocuments(ctx context.Context, workspaceID uuid.UUID, cursor *store.Cursor, limit int) ([]store.Document, error) {
	return store.ListDocuments(ctx, r.s.DB(), workspaceID, cursor, limit)
}

func (r *sqlRepository) UpdateDocument(ctx context.Context, workspaceID, id uuid.UUID, title, content string) (*store.Document, error) {
	return store.UpdateDocument(ctx, r.s.DB(), workspaceID, id, title, content)
}

func (r *sqlRepository) ArchiveDocument(ctx context.Context, workspaceID, id uuid.UUID) error {
	return store.ArchiveDocument(ctx, r.s.DB(), workspaceID, id)
}

// CreateTaskWithTags creates the task and its tag relations atomically.
func (r *sqlRepository) CreateTaskWithTags(ctx context.Context, task *store.Task, tagNames []string) (*store.Task, []store.Tag, error) {
	var (
		created *store.Task
		tags    []store.Tag
	)
	err := r.s.WithTransaction(ctx, store.TxOptions{}, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		created, tags, err = store.CreateTaskWithTags(ctx, tx, task, tagNames)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return created, tags, nil
}

func (r *sqlRepository) GetTask(ctx context.Context, workspaceID, id uuid.UUID) (*store.Task, error) {
	return store.GetTask(ctx, r.s.DB(), workspaceID, id)
}

func (r *sqlRepository) ListTasksPage(ctx context.Context, workspaceID uuid.UUID, page, limit int) ([]store.Task, int, error) {
	return store.ListTasksPage(ctx, r.s.DB(), workspaceID, page, limit)
}

func (r *sqlRepository) ListTagsForTask(ctx context.Context, taskID uuid.UUID) ([]store.Tag, error) {
	return store.ListTagsForTask(ctx, r.s.DB(), taskID)
}

// UpdateTask rewrites the task and replaces its tag set atomically.
func (r *sqlRepository) UpdateTask(ctx context.Context, workspaceID, id uuid.UUID, title, status string, tagNames []string) (*store.Task, []store.Tag, error) {
	var (
		updated *store.Task
		tags    []store.Tag
	)
	err := r.s.WithTransaction(ctx, store.TxOptions{}, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		updated, tags, err = store.UpdateTask(ctx, tx, workspaceID, id, title, status, tagNames)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, tags, nil
}

func (r *sqlRepository) DeleteTask(ctx context.Context, workspaceID, id uuid.UUID) error {
	return store.DeleteTask(ctx, r.s.DB(), workspaceID, id)
}

// CreateProjectWithDefaults creates the project and its default folders
// atomically.
func (r *sqlRepository) CreateProjectWithDefaults(ctx context.Context, workspaceID, createdBy uuid.UUID, name string) (*store.Project, []store.Folder, error) {
	var (
		project *store.Project
		folders []store.Folder
	)
	err := r.s.WithTransaction(ctx, store.TxOptions{}, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		project, folders, err = store.CreateProjectWithDefaults(ctx, tx, workspaceID, createdBy, name)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return project, folders, nil
}

func (r *sqlRepository) GetProject(ctx context.Context, workspaceID, id uuid.UUID) (*store.Project, error) {
	return store.GetProject(ctx, r.s.DB(), workspaceID, id)
}

func (r *sqlRepository) ListProjects(ctx context.Context, workspaceID uuid.UUID) ([]store.Project, error) {
	return store.ListProjects(ctx, r.s.DB(), workspaceID)
}

// CreateTeamWithLeader creates the team and its leader membership
// atomically.
func (r *sqlRepository) CreateTeamWithLeader(ctx context.Context, workspaceID, leaderID uuid.UUID, name string) (*store.Team, error) {
	var team *store.Team
	err := r.s.WithTransaction(ctx, store.TxOptions{}, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		team, err = store.CreateTeamWithLeader(ctx, tx, workspaceID, leaderID, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

func (r *sqlRepository) GetTeam(ctx context.Context, workspaceID, id uuid.UUID) (*store.Team, error) {
	return store.GetTeam(ctx, r.s.DB(), workspaceID, id)
}

func (r *sqlRepository) ListTeams(ctx context.Context, workspaceID uuid.UUID) ([]store.Team, error) {
	return store.ListTeams(ctx, r.s.DB(), workspaceID)
}

func (r *sqlRepository) ListTeamMembers(ctx context.Context, teamID uuid.UUID) ([]store.TeamMember, error) {
	return store.ListTeamMembers(ctx, r.s.DB(), teamID)
}

func (r *sqlRepository) SearchResources(ctx context.Context, workspaceID uuid.UUID, query string, limit int) ([]store.SearchResult, error) {
	return store.SearchResources(ctx, r.s.DB(), workspaceID, query, limit)
}
