package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role is a workspace membership role. Roles are totally ordered:
// viewer < editor < admin < owner.
type Role string

// Membership roles.
const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

// roleRank maps roles onto their ordering. Unknown roles rank below viewer
// so a corrupt row can never grant access.
var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

// Rank returns the role's position in the ordering.
func (r Role) Rank() int {
	return roleRank[r]
}

// AtLeast reports whether r grants at least the privileges of min. The
// comparison is monotonic in the role ordering.
func (r Role) AtLeast(min Role) bool {
	return r.Rank() >= min.Rank()
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Principal is an authenticated actor.
type Principal struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Session is an opaque-id login session.
type Session struct {
	ID          string    `db:"id" json:"-"`
	PrincipalID uuid.UUID `db:"principal_id" json:"principalId"`
	ExpiresAt   time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	RenewedAt   time.Time `db:"renewed_at" json:"renewedAt"`

	// Fresh is set when the session was renewed while loading; the pipeline
	// re-issues the cookie with the extended expiry. Never persisted.
	Fresh bool `db:"-" json:"-"`
}

// Workspace is the top-level tenancy container.
type Workspace struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Slug      string          `db:"slug" json:"slug"`
	Name      string          `db:"name" json:"name"`
	CreatorID uuid.UUID       `db:"creator_id" json:"creatorId"`
	Settings  json.RawMessage `db:"settings" json:"settings"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// Membership authorizes a principal on a workspace with a role.
type Membership struct {
	WorkspaceID uuid.UUID `db:"workspace_id" json:"workspaceId"`
	PrincipalID uuid.UUID `db:"principal_id" json:"principalId"`
	Role        Role      `db:"role" json:"role"`
	JoinedAt    time.Time `db:"joined_at" json:"joinedAt"`
}

// Document is a workspace-scoped rich-text document.
type Document struct {
	ID          uuid.UUID `db:"id" json:"id"`
	WorkspaceID uuid.UUID `db:"workspace_id" json:"workspaceId"`
	Title       string    `db:"title" json:"title"`
	Content     string    `db:"content" json:"content"`
	Archived    bool      `db:"archived" json:"archived"`
	CreatedBy   uuid.UUID `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Task is a workspace-scoped unit of work, optionally bound to a project.
type Task struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	WorkspaceID uuid.UUID  `db:"workspace_id" json:"workspaceId"`
	ProjectID   *uuid.UUID `db:"project_id" json:"projectId,omitempty"`
	Title       string     `db:"title" json:"title"`
	Status      string     `db:"status" json:"status"`
	CreatedBy   uuid.UUID  `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// Tag labels tasks within a workspace.
type Tag struct {
	ID          uuid.UUID `db:"id" json:"id"`
	WorkspaceID uuid.UUID `db:"workspace_id" json:"workspaceId"`
	Name        string    `db:"name" json:"name"`
}

// Project groups tasks and folders within a workspace.
type Project struct {
	ID          uuid.UUID `db:"id" json:"id"`
	WorkspaceID uuid.UUID `db:"workspace_id" json:"workspaceId"`
	Name        string    `db:"name" json:"name"`
	CreatedBy   uuid.UUID `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Folder is a project-scoped container created with the project.
type Folder struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ProjectID uuid.UUID `db:"project_id" json:"projectId"`
	Name      string    `db:"name" json:"name"`
}

// Team is a named group of workspace members.
type Team struct {
	ID          uuid.UUID `db:"id" json:"id"`
	WorkspaceID uuid.UUID `db:"workspace_id" json:"workspaceId"`
	Name        string    `db:"name" json:"name"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// TeamMember binds a principal to a team. Every team keeps at least one
// leader.
type TeamMember struct {
	TeamID      uuid.UUID `db:"team_id" json:"teamId"`
	PrincipalID uuid.UUID `db:"principal_id" json:"principalId"`
	Leader      bool      `db:"leader" json:"leader"`
}

// SearchResult is one row of the cross-resource search listing.
type SearchResult struct {
	ID           uuid.UUID `db:"id" json:"id"`
	WorkspaceID  uuid.UUID `db:"workspace_id" json:"workspaceId"`
	ResourceType string    `db:"resource_type" json:"resourceType"`
	Title        string    `db:"title" json:"title"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}
