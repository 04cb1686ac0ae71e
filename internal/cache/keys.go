package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Key namespaces. Every cache key belongs to exactly one namespace, and every
// namespace has exactly one TTL band and documented invalidation triggers.
const (
	NamespaceSession      = "session"
	NamespaceMember       = "member"
	NamespaceMembers      = "members"
	NamespaceWorkspace    = "workspace"
	NamespaceDocumentList = "documents_list"
	NamespaceTaskList     = "tasks_list"
	NamespaceProjectList  = "projects_list"
	NamespaceTeamList     = "teams_list"
	NamespaceSearch       = "search"
	NamespaceRateLimit    = "rate_limit"
	NamespaceLock         = "lock"
)

// TTL bands per namespace.
const (
	TTLMember    = 30 * time.Minute
	TTLMembers   = 10 * time.Minute
	TTLWorkspace = 30 * time.Minute
	TTLList      = 5 * time.Minute
	TTLSearch    = 2 * time.Minute
)

// SessionKey returns the cache key for a session id.
func SessionKey(sessionID string) string {
	return NamespaceSession + ":" + sessionID
}

// MemberKey returns the cache key for a single membership resolution.
func MemberKey(principalID, workspaceID string) string {
	return fmt.Sprintf("%s:%s:%s", NamespaceMember, principalID, workspaceID)
}

// MemberPattern matches every member key of a workspace, for pattern
// deletion on workspace removal.
func MemberPattern(workspaceID string) string {
	return fmt.Sprintf("%s:*:%s", NamespaceMember, workspaceID)
}

// MembersKey returns the cache key for a workspace's member listing.
func MembersKey(workspaceID string) string {
	return NamespaceMembers + ":" + workspaceID
}

// WorkspaceKey returns the cache key for a workspace record.
func WorkspaceKey(workspaceID string) string {
	return NamespaceWorkspace + ":" + workspaceID
}

// DocumentsListKey returns the cache key for a workspace's document listing.
func DocumentsListKey(workspaceID string) string {
	return NamespaceDocumentList + ":" + workspaceID
}

// TasksListKey returns the cache key for one page of a workspace's tasks.
func TasksListKey(workspaceID string, page, limit int) string {
	return fmt.Sprintf("%s:workspace:%s:page:%d:limit:%d", NamespaceTaskList, workspaceID, page, limit)
}

// TasksListPattern matches every cached task page of a workspace.
func TasksListPattern(workspaceID string) string {
	return fmt.Sprintf("%s:workspace:%s:*", NamespaceTaskList, workspaceID)
}

// ProjectsListKey returns the cache key for a workspace's project listing.
func ProjectsListKey(workspaceID string) string {
	return NamespaceProjectList + ":" + workspaceID
}

// TeamsListKey returns the cache key for a workspace's team listing.
func TeamsListKey(workspaceID string) string {
	return NamespaceTeamList + ":" + workspaceID
}

// SearchKey returns the cache key for a search result set. The key hashes
// the full input tuple so that any input that changes the value is part of
// the key.
func SearchKey(query, workspaceID string, limit int) string {
	sum := md5.Sum(fmt.Appendf(nil, "%s|%s|%d", query, workspaceID, limit))
	return NamespaceSearch + ":" + hex.EncodeToString(sum[:])
}

// RateLimitKey returns the counter key for a bucket/principal pair.
func RateLimitKey(bucket, principal string) string {
	return fmt.Sprintf("%s:%s:%s", NamespaceRateLimit, bucket, principal)
}

// LockKey returns the mutex key guarding computation of key.
func LockKey(key string) string {
	return NamespaceLock + ":" + key
}

// Namespace extracts the namespace of a key for metric labeling.
func Namespace(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
