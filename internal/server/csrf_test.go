package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFCookieIssuedOnFirstRequest(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.ts.URL + "/health/live")
	require.NoError(t, err)
	defer resp.Body.Close()

	var found *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == csrfCookieName {
			found = c
		}
	}
	require.NotNil(t, found, "first response must set the CSRF cookie")
	assert.NotEmpty(t, found.Value)
	assert.True(t, found.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, found.SameSite)
}

func TestCSRFMissingTokenRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.client(t)
	created := c.register("a@b.c", "A")

	// Same jar, but the header is stripped.
	req, err := http.NewRequest(http.MethodPost,
		env.ts.URL+"/api/workspaces/"+created.Workspace.ID.String()+"/documents", nil)
	require.NoError(t, err)

	resp, err := c.http.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCSRFMismatchedTokenRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.client(t)
	created := c.register("a@b.c", "A")

	req, err := http.NewRequest(http.MethodPost,
		env.ts.URL+"/api/workspaces/"+created.Workspace.ID.String()+"/documents", nil)
	require.NoError(t, err)
	req.Header.Set(csrfHeaderName, "not-the-token")

	resp, err := c.http.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCSRFExemptsLoginAndRegister(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.client(t)

	// No prior request, no token, still accepted.
	resp := c.do(http.MethodPost, "/api/auth/register", registerRequest{
		Email: "a@b.c", Name: "A", Password: "Aa1!xxxx",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCSRFIgnoresReadMethods(t *testing.T) {
	env := newTestEnv(t, nil)

	// GET without any cookie or header passes validation.
	resp, err := http.Get(env.ts.URL + "/health/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEqual(t, http.StatusForbidden, resp.StatusCode)
}

func TestStateChanging(t *testing.T) {
	for method, want := range map[string]bool{
		http.MethodGet:     false,
		http.MethodHead:    false,
		http.MethodOptions: false,
		http.MethodPost:    true,
		http.MethodPut:     true,
		http.MethodPatch:   true,
		http.MethodDelete:  true,
	} {
		assert.Equal(t, want, stateChanging(method), method)
	}
}
