package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/kollabhq/kollab/internal/apierr"
)

// GetMembership loads one principal's membership on a workspace. A
// non-member is a not-found failure, which the resolver turns into a
// negative cache entry.
func GetMembership(ctx context.Context, q Queryer, workspaceID, principalID uuid.UUID) (*Membership, error) {
	var m Membership
	err := q.GetContext(ctx, &m, `
		SELECT workspace_id, principal_id, role, joined_at
		FROM memberships WHERE workspace_id = $1 AND principal_id = $2`,
		workspaceID, principalID)
	if err != nil {
		return nil, classify(err, "membership")
	}
	return &m, nil
}

// ListMembers returns every membership on a workspace, owners first then by
// join time.
func ListMembers(ctx context.Context, q Queryer, workspaceID uuid.UUID) ([]Membership, error) {
	members := []Membership{}
	err := q.SelectContext(ctx, &members, `
		SELECT workspace_id, principal_id, role, joined_at
		FROM memberships WHERE workspace_id = $1
		ORDER BY CASE role
			WHEN 'owner' THEN 0
			WHEN 'admin' THEN 1
			WHEN 'editor' THEN 2
			ELSE 3
		END, joined_at ASC`, workspaceID)
	if err != nil {
		return nil, classify(err, "membership")
	}
	return members, nil
}

// AddMember grants a principal a role on a workspace. Adding the same
// principal twice is a conflict. Granting owner is rejected, ownership only
// moves through TransferOwnership.
func AddMember(ctx context.Context, q Queryer, workspaceID, principalID uuid.UUID, role Role) (*Membership, error) {
	if !role.Valid() {
		return nil, apierr.Validation("unknown role %q", role)
	}
	if role == RoleOwner {
		return nil, apierr.Validation("ownership is transferred, not granted")
	}

	var m Membership
	err := q.GetContext(ctx, &m, `
		INSERT INTO memberships (workspace_id, principal_id, role)
		VALUES ($1, $2, $3)
		RETURNING workspace_id, principal_id, role, joined_at`,
		workspaceID, principalID, role)
	if err != nil {
		return nil, classify(err, "membership")
	}
	return &m, nil
}

// UpdateMemberRole changes a member's role. The owner row is immutable here
// and owner cannot be assigned, so the workspace always keeps exactly one
// owner.
func UpdateMemberRole(ctx context.Context, q Queryer, workspaceID, principalID uuid.UUID, role Role) (*Membership, error) {
	if !role.Valid() {
		return nil, apierr.Validation("unknown role %q", role)
	}
	if role == RoleOwner {
		return nil, apierr.Validation("ownership is transferred, not granted")
	}

	current, err := GetMembership(ctx, q, workspaceID, principalID)
	if err != nil {
		return nil, err
	}
	if current.Role == RoleOwner {
		return nil, apierr.Conflict("the workspace owner cannot be demoted")
	}

	var m Membership
	err = q.GetContext(ctx, &m, `
		UPDATE memberships SET role = $3
		WHERE workspace_id = $1 AND principal_id = $2
		RETURNING workspace_id, principal_id, role, joined_at`,
		workspaceID, principalID, role)
	if err != nil {
		return nil, classify(err, "membership")
	}
	return &m, nil
}

// RemoveMember deletes a membership. The owner cannot be removed. Run inside
// a serializable transaction so a concurrent ownership transfer cannot race
// the owner check.
func RemoveMember(ctx context.Context, q Queryer, workspaceID, principalID uuid.UUID) error {
	current, err := GetMembership(ctx, q, workspaceID, principalID)
	if err != nil {
		return err
	}
	if current.Role == RoleOwner {
		return apierr.Conflict("the workspace owner cannot be removed")
	}

	if _, err := q.ExecContext(ctx, `
		DELETE FROM memberships WHERE workspace_id = $1 AND principal_id = $2`,
		workspaceID, principalID); err != nil {
		return classify(err, "membership")
	}
	return nil
}

// TransferOwnership atomically demotes the current owner to admin and
// promotes the target to owner, returning the new owner's membership. Run
// inside a serializable transaction.
func TransferOwnership(ctx context.Context, q Queryer, workspaceID, fromPrincipal, toPrincipal uuid.UUID) (*Membership, error) {
	current, err := GetMembership(ctx, q, workspaceID, fromPrincipal)
	if err != nil {
		return nil, err
	}
	if current.Role != RoleOwner {
		return nil, apierr.Forbidden("only the owner can transfer ownership")
	}
	if _, err := GetMembership(ctx, q, workspaceID, toPrincipal); err != nil {
		return nil, err
	}

	if _, err := q.ExecContext(ctx, `
		UPDATE memberships SET role = $3
		WHERE workspace_id = $1 AND principal_id = $2`,
		workspaceID, fromPrincipal, RoleAdmin); err != nil {
		return nil, classify(err, "membership")
	}

	var m Membership
	err = q.GetContext(ctx, &m, `
		UPDATE memberships SET role = $3
		WHERE workspace_id = $1 AND principal_id = $2
		RETURNING workspace_id, principal_id, role, joined_at`,
		workspaceID, toPrincipal, RoleOwner)
	if err != nil {
		return nil, classify(err, "membership")
	}
	return &m, nil
}
