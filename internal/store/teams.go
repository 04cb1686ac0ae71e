package store

import (
	"context"

	"github.com/google/uuid"
)

// CreateTeamWithLeader inserts a team and its first member as leader in one
// transaction handle.
func CreateTeamWithLeader(ctx context.Context, q Queryer, workspaceID, leaderID uuid.UUID, name string) (*Team, error) {
	var t Team
	err := q.GetContext(ctx, &t, `
		INSERT INTO teams (id, workspace_id, name)
		VALUES ($1, $2, $3)
		RETURNING id, workspace_id, name, created_at`,
		uuid.New(), workspaceID, name)
	if err != nil {
		return nil, classify(err, "team")
	}

	if _, err := q.ExecContext(ctx, `
		INSERT INTO team_members (team_id, principal_id, leader)
		VALUES ($1, $2, true)`, t.ID, leaderID); err != nil {
		return nil, classify(err, "team member")
	}
	return &t, nil
}

// GetTeam loads a team scoped to its workspace.
func GetTeam(ctx context.Context, q Queryer, workspaceID, id uuid.UUID) (*Team, error) {
	var t Team
	err := q.GetContext(ctx, &t, `
		SELECT id, workspace_id, name, created_at
		FROM teams WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return nil, classify(err, "team")
	}
	return &t, nil
}

// ListTeams returns a workspace's teams by creation order.
func ListTeams(ctx context.Context, q Queryer, workspaceID uuid.UUID) ([]Team, error) {
	teams := []Team{}
	err := q.SelectContext(ctx, &teams, `
		SELECT id, workspace_id, name, created_at
		FROM teams WHERE workspace_id = $1
		ORDER BY created_at ASC, id ASC`, workspaceID)
	if err != nil {
		return nil, classify(err, "team")
	}
	return teams, nil
}

// ListTeamMembers returns a team's members, leaders first.
func ListTeamMembers(ctx context.Context, q Queryer, teamID uuid.UUID) ([]TeamMember, error) {
	members := []TeamMember{}
	err := q.SelectContext(ctx, &members, `
		SELECT team_id, principal_id, leader
		FROM team_members WHERE team_id = $1
		ORDER BY leader DESC, principal_id ASC`, teamID)
	if err != nil {
		return nil, classify(err, "team member")
	}
	return members, nil
}
