// Package authz decides whether a principal may act on a workspace.
//
// The resolver is the single decision point for membership and role checks.
// Results are cache-fronted under member:{principal}:{workspace} with an
// explicit negative sentinel for verified non-members; authorization
// decisions always re-check the source of truth on a negative hit so a
// just-granted membership is never denied by a stale sentinel.
//
// The system-admin override is configuration-driven and evaluated by the
// caller before the resolver; it never touches the resolver cache.
package authz
