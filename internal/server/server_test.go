package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/kollabhq/kollab/internal/apierr"
	"github.com/kollabhq/kollab/internal/authz"
	"github.com/kollabhq/kollab/internal/cache"
	"github.com/kollabhq/kollab/internal/config"
	"github.com/kollabhq/kollab/internal/ratelimit"
	"github.com/kollabhq/kollab/internal/session"
	"github.com/kollabhq/kollab/internal/store"
)

// fakeRepository is an in-memory Repository. Call counters let tests assert
// cache behavior.
type fakeRepository struct {
	mu sync.Mutex

	principals map[uuid.UUID]*store.Principal
	byEmail    map[string]uuid.UUID

	workspaces map[uuid.UUID]*store.Workspace
	bySlug     map[string]uuid.UUID

	// members[workspaceID][principalID]
	members map[uuid.UUID]map[uuid.UUID]*store.Membership

	documents []store.Document
	tasks     []store.Task
	taskTags  map[uuid.UUID][]store.Tag
	projects  []store.Project
	teams     map[uuid.UUID]*store.Team
	teamRows  map[uuid.UUID][]store.TeamMember

	listDocumentsCalls int
	listTasksCalls     int
	searchCalls        int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		principals: make(map[uuid.UUID]*store.Principal),
		byEmail:    make(map[string]uuid.UUID),
		workspaces: make(map[uuid.UUID]*store.Workspace),
		bySlug:     make(map[string]uuid.UUID),
		members:    make(map[uuid.UUID]map[uuid.UUID]*store.Membership),
		taskTags:   make(map[uuid.UUID][]store.Tag),
		teams:      make(map[uuid.UUID]*store.Team),
		teamRows:   make(map[uuid.UUID][]store.TeamMember),
	}
}

func (f *fakeRepository) CreatePrincipal(_ context.Context, email, name, hash string) (*store.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(email)
	if _, ok := f.byEmail[email]; ok {
		return nil, apierr.Conflict("principal already exists")
	}
	p := &store.Principal{
		ID: uuid.New(), Email: email, Name: name, PasswordHash: hash,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	f.principals[p.ID] = p
	f.byEmail[email] = p.ID
	return p, nil
}

func (f *fakeRepository) GetPrincipalByEmail(_ context.Context, email string) (*store.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, apierr.NotFound("principal")
	}
	return f.principals[id], nil
}

func (f *fakeRepository) GetPrincipal(_ context.Context, id uuid.UUID) (*store.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.principals[id]
	if !ok {
		return nil, apierr.NotFound("principal")
	}
	return p, nil
}

func (f *fakeRepository) UpdatePrincipalPassword(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.principals[id]
	if !ok {
		return apierr.NotFound("principal")
	}
	p.PasswordHash = hash
	p.UpdatedAt = time.Now()
	return nil
}

func (f *fakeRepository) CreateWorkspaceWithOwner(_ context.Context, slug, name string, creatorID uuid.UUID) (*store.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bySlug[slug]; ok {
		return nil, apierr.Conflict("workspace slug already exists")
	}
	w := &store.Workspace{
		ID: uuid.New(), Slug: slug, Name: name, CreatorID: creatorID,
		Settings: json.RawMessage(`{}`), CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	f.workspaces[w.ID] = w
	f.bySlug[slug] = w.ID
	f.members[w.ID] = map[uuid.UUID]*store.Membership{
		creatorID: {WorkspaceID: w.ID, PrincipalID: creatorID, Role: store.RoleOwner, JoinedAt: time.Now()},
	}
	return w, nil
}

func (f *fakeRepository) GetWorkspace(_ context.Context, id uuid.UUID) (*store.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workspaces[id]
	if !ok {
		return nil, apierr.NotFound("workspace")
	}
	return w, nil
}

func (f *fakeRepository) GetWorkspaceBySlug(_ context.Context, slug string) (*store.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.bySlug[slug]
	if !ok {
		return nil, apierr.NotFound("workspace")
	}
	return f.workspaces[id], nil
}

func (f *fakeRepository) ListWorkspacesForPrincipal(_ context.Context, principalID uuid.UUID) ([]store.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Workspace{}
	for wsID, members := range f.members {
		if _, ok := members[principalID]; ok {
			out = append(out, *f.workspaces[wsID])
		}
	}
	return out, nil
}

func (f *fakeRepository) UpdateWorkspace(_ context.Context, id uuid.UUID, name string, settings json.RawMessage) (*store.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workspaces[id]
	if !ok {
		return nil, apierr.NotFound("workspace")
	}
	w.Name = name
	if settings != nil {
		w.Settings = settings
	}
	w.UpdatedAt = time.Now()
	return w, nil
}

func (f *fakeRepository) DeleteWorkspace(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workspaces[id]
	if !ok {
		return apierr.NotFound("workspace")
	}
	delete(f.bySlug, w.Slug)
	delete(f.workspaces, id)
	delete(f.members, id)
	return nil
}

func (f *fakeRepository) ListMembers(_ context.Context, workspaceID uuid.UUID) ([]store.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Membership{}
	for _, m := range f.members[workspaceID] {
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeRepository) AddMember(_ context.Context, workspaceID, principalID uuid.UUID, role store.Role) (*store.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members, ok := f.members[workspaceID]
	if !ok {
		return nil, apierr.NotFound("workspace")
	}
	if !role.Valid() || role == store.RoleOwner {
		return nil, apierr.Validation("invalid role %q", role)
	}
	if _, exists := members[principalID]; exists {
		return nil, apierr.Conflict("already a member")
	}
	m := &store.Membership{WorkspaceID: workspaceID, PrincipalID: principalID, Role: role, JoinedAt: time.Now()}
	members[principalID] = m
	return m, nil
}

func (f *fakeRepository) UpdateMemberRole(_ context.Context, workspaceID, principalID uuid.UUID, role store.Role) (*store.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[workspaceID][principalID]
	if !ok {
		return nil, apierr.NotFound("membership")
	}
	if m.Role == store.RoleOwner {
		return nil, apierr.Conflict("the workspace owner cannot be demoted")
	}
	if !role.Valid() || role == store.RoleOwner {
		return nil, apierr.Validation("invalid role %q", role)
	}
	m.Role = role
	return m, nil
}

func (f *fakeRepository) TransferOwnership(_ context.Context, workspaceID, fromPrincipal, toPrincipal uuid.UUID) (*store.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	from, ok := f.members[workspaceID][fromPrincipal]
	if !ok {
		return nil, apierr.NotFound("membership")
	}
	if from.Role != store.RoleOwner {
		return nil, apierr.Forbidden("only the owner can transfer ownership")
	}
	to, ok := f.members[workspaceID][toPrincipal]
	if !ok {
		return nil, apierr.NotFound("membership")
	}
	from.Role = store.RoleAdmin
	to.Role = store.RoleOwner
	copied := *to
	return &copied, nil
}

func (f *fakeRepository) RemoveMember(_ context.Context, workspaceID, principalID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[workspaceID][principalID]
	if !ok {
		return apierr.NotFound("membership")
	}
	if m.Role == store.RoleOwner {
		return apierr.Conflict("the workspace owner cannot be removed")
	}
	delete(f.members[workspaceID], principalID)
	return nil
}

func (f *fakeRepository) CreateDocument(_ context.Context, workspaceID, createdBy uuid.UUID, title, content string) (*store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := store.Document{
		ID: uuid.New(), WorkspaceID: workspaceID, Title: title, Content: content,
		CreatedBy: createdBy, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	f.documents = append([]store.Document{d}, f.documents...)
	return &d, nil
}

func (f *fakeRepository) GetDocument(_ context.Context, workspaceID, id uuid.UUID) (*store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.documents {
		d := f.documents[i]
		if d.WorkspaceID == workspaceID && d.ID == id {
			return &d, nil
		}
	}
	return nil, apierr.NotFound("document")
}

func (f *fakeRepository) ListDocuments(_ context.Context, workspaceID uuid.UUID, _ *store.Cursor, limit int) ([]store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listDocumentsCalls++
	out := []store.Document{}
	for _, d := range f.documents {
		if d.WorkspaceID == workspaceID && !d.Archived {
			out = append(out, d)
		}
		if len(out) == limit+1 {
			break
		}
	}
	return out, nil
}

func (f *fakeRepository) UpdateDocument(_ context.Context, workspaceID, id uuid.UUID, title, content string) (*store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.documents {
		if f.documents[i].WorkspaceID == workspaceID && f.documents[i].ID == id {
			f.documents[i].Title = title
			f.documents[i].Content = content
			f.documents[i].UpdatedAt = time.Now()
			d := f.documents[i]
			return &d, nil
		}
	}
	return nil, apierr.NotFound("document")
}

func (f *fakeRepository) ArchiveDocument(_ context.Context, workspaceID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.documents {
		if f.documents[i].WorkspaceID == workspaceID && f.documents[i].ID == id {
			f.documents[i].Archived = true
			return nil
		}
	}
	return apierr.NotFound("document")
}

func (f *fakeRepository) CreateTaskWithTags(_ context.Context, task *store.Task, tagNames []string) (*store.Task, []store.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := *task
	t.ID = uuid.New()
	if t.Status == "" {
		t.Status = "open"
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()
	f.tasks = append([]store.Task{t}, f.tasks...)

	tags := []store.Tag{}
	for _, name := range tagNames {
		tags = append(tags, store.Tag{ID: uuid.New(), WorkspaceID: t.WorkspaceID, Name: name})
	}
	f.taskTags[t.ID] = tags
	return &t, tags, nil
}

func (f *fakeRepository) GetTask(_ context.Context, workspaceID, id uuid.UUID) (*store.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		t := f.tasks[i]
		if t.WorkspaceID == workspaceID && t.ID == id {
			return &t, nil
		}
	}
	return nil, apierr.NotFound("task")
}

func (f *fakeRepository) ListTasksPage(_ context.Context, workspaceID uuid.UUID, page, limit int) ([]store.Task, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listTasksCalls++
	all := []store.Task{}
	for _, t := range f.tasks {
		if t.WorkspaceID == workspaceID {
			all = append(all, t)
		}
	}
	start := (page - 1) * limit
	if start >= len(all) {
		return []store.Task{}, len(all), nil
	}
	end := min(start+limit, len(all))
	return all[start:end], len(all), nil
}

func (f *fakeRepository) ListTagsForTask(_ context.Context, taskID uuid.UUID) ([]store.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.taskTags[taskID], nil
}

func (f *fakeRepository) UpdateTask(_ context.Context, workspaceID, id uuid.UUID, title, status string, tagNames []string) (*store.Task, []store.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].WorkspaceID == workspaceID && f.tasks[i].ID == id {
			f.tasks[i].Title = title
			f.tasks[i].Status = status
			f.tasks[i].UpdatedAt = time.Now()
			if tagNames != nil {
				tags := []store.Tag{}
				for _, name := range tagNames {
					tags = append(tags, store.Tag{ID: uuid.New(), WorkspaceID: workspaceID, Name: name})
				}
				f.taskTags[id] = tags
			}
			t := f.tasks[i]
			return &t, f.taskTags[id], nil
		}
	}
	return nil, nil, apierr.NotFound("task")
}

func (f *fakeRepository) DeleteTask(_ context.Context, workspaceID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].WorkspaceID == workspaceID && f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			delete(f.taskTags, id)
			return nil
		}
	}
	return apierr.NotFound("task")
}

func (f *fakeRepository) CreateProjectWithDefaults(_ context.Context, workspaceID, createdBy uuid.UUID, name string) (*store.Project, []store.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := store.Project{ID: uuid.New(), WorkspaceID: workspaceID, Name: name, CreatedBy: createdBy, CreatedAt: time.Now()}
	f.projects = append(f.projects, p)
	folders := []store.Folder{
		{ID: uuid.New(), ProjectID: p.ID, Name: "General"},
		{ID: uuid.New(), ProjectID: p.ID, Name: "Archive"},
	}
	return &p, folders, nil
}

func (f *fakeRepository) GetProject(_ context.Context, workspaceID, id uuid.UUID) (*store.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.projects {
		p := f.projects[i]
		if p.WorkspaceID == workspaceID && p.ID == id {
			return &p, nil
		}
	}
	return nil, apierr.NotFound("project")
}

func (f *fakeRepository) ListProjects(_ context.Context, workspaceID uuid.UUID) ([]store.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Project{}
	for _, p := range f.projects {
		if p.WorkspaceID == workspaceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepository) CreateTeamWithLeader(_ context.Context, workspaceID, leaderID uuid.UUID, name string) (*store.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &store.Team{ID: uuid.New(), WorkspaceID: workspaceID, Name: name, CreatedAt: time.Now()}
	f.teams[t.ID] = t
	f.teamRows[t.ID] = []store.TeamMember{{TeamID: t.ID, PrincipalID: leaderID, Leader: true}}
	return t, nil
}

func (f *fakeRepository) GetTeam(_ context.Context, workspaceID, id uuid.UUID) (*store.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.teams[id]
	if !ok || t.WorkspaceID != workspaceID {
		return nil, apierr.NotFound("team")
	}
	return t, nil
}

func (f *fakeRepository) ListTeams(_ context.Context, workspaceID uuid.UUID) ([]store.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Team{}
	for _, t := range f.teams {
		if t.WorkspaceID == workspaceID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeRepository) ListTeamMembers(_ context.Context, teamID uuid.UUID) ([]store.TeamMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.teamRows[teamID], nil
}

func (f *fakeRepository) SearchResources(_ context.Context, workspaceID uuid.UUID, query string, limit int) ([]store.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	out := []store.SearchResult{}
	lower := strings.ToLower(query)
	for _, d := range f.documents {
		if d.WorkspaceID == workspaceID && !d.Archived && strings.Contains(strings.ToLower(d.Title), lower) {
			out = append(out, store.SearchResult{ID: d.ID, WorkspaceID: workspaceID, ResourceType: "document", Title: d.Title, CreatedAt: d.CreatedAt})
		}
	}
	for _, t := range f.tasks {
		if t.WorkspaceID == workspaceID && strings.Contains(strings.ToLower(t.Title), lower) {
			out = append(out, store.SearchResult{ID: t.ID, WorkspaceID: workspaceID, ResourceType: "task", Title: t.Title, CreatedAt: t.CreatedAt})
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetMembership makes the fake double as the resolver's membership source.
func (f *fakeRepository) GetMembership(_ context.Context, workspaceID, principalID uuid.UUID) (*store.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[workspaceID][principalID]
	if !ok {
		return nil, apierr.NotFound("membership")
	}
	copied := *m
	return &copied, nil
}

// fakeSessionStore backs the session manager with memory, delegating
// principal reads to the repository.
type fakeSessionStore struct {
	mu       sync.Mutex
	repo     *fakeRepository
	sessions map[string]*store.Session
}

func newFakeSessionStore(repo *fakeRepository) *fakeSessionStore {
	return &fakeSessionStore{repo: repo, sessions: make(map[string]*store.Session)}
}

func (f *fakeSessionStore) CreateSession(_ context.Context, id string, principalID uuid.UUID, expiresAt time.Time) (*store.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess := &store.Session{ID: id, PrincipalID: principalID, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	f.sessions[id] = sess
	copied := *sess
	return &copied, nil
}

func (f *fakeSessionStore) GetSession(_ context.Context, id string) (*store.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[id]
	if !ok {
		return nil, apierr.NotFound("session")
	}
	copied := *sess
	return &copied, nil
}

func (f *fakeSessionStore) RenewSession(_ context.Context, id string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[id]
	if !ok {
		return apierr.NotFound("session")
	}
	sess.ExpiresAt = expiresAt
	return nil
}

func (f *fakeSessionStore) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionStore) DeleteSessionsForPrincipal(_ context.Context, principalID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := []string{}
	for id, sess := range f.sessions {
		if sess.PrincipalID == principalID {
			delete(f.sessions, id)
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeSessionStore) GetPrincipal(ctx context.Context, id uuid.UUID) (*store.Principal, error) {
	return f.repo.GetPrincipal(ctx, id)
}

// testEnv bundles a running server and its collaborators.
type testEnv struct {
	repo  *fakeRepository
	cache *cache.Client
	srv   *Server
	ts    *httptest.Server
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DatabaseURL:   "postgres://test",
		CacheURL:      "redis://test",
		AuthSecret:    "test-secret",
		FrontendURL:   "http://localhost:3000",
		SessionExpiry: 30 * 24 * time.Hour,
		ListenAddr:    ":0",
		Environment:   config.EnvDevelopment,
	}
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	cacheClient := cache.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = cacheClient.Close() })

	cfg := testConfig(t)
	if mutate != nil {
		mutate(cfg)
	}

	repo := newFakeRepository()
	sessions := session.NewManager(newFakeSessionStore(repo), cfg.AuthSecret, cfg.SessionExpiry,
		session.WithCache(cacheClient))
	resolver := authz.NewResolver(repo, cacheClient)
	limiter := ratelimit.New(cacheClient)

	srv := New(cfg, repo, sessions, resolver, cacheClient, limiter)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &testEnv{repo: repo, cache: cacheClient, srv: srv, ts: ts}
}

// client is an HTTP client with a cookie jar that transparently handles the
// CSRF double-submit.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (e *testEnv) client(t *testing.T) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: e.ts.URL, http: &http.Client{Jar: jar}}
}

func (c *client) csrfToken() string {
	u, _ := url.Parse(c.base)
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == csrfCookieName {
			return ck.Value
		}
	}
	return ""
}

func (c *client) do(method, path string, body any) *http.Response {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.csrfToken(); token != "" {
		req.Header.Set(csrfHeaderName, token)
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// register signs up a principal and returns the created workspace. The
// client's jar holds the session and CSRF cookies afterwards.
func (c *client) register(email, name string) authResponse {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/api/auth/register", registerRequest{
		Email: email, Name: name, Password: "Aa1!xxxx",
	})
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)
	return decodeBody[authResponse](c.t, resp)
}
