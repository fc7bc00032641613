package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClient struct {
	t   *testing.T
	app *fiber.App
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	cfg := testutil.SQLiteConfig(t)
	db := testutil.NewSQLiteDB(t)

	srv, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)
	return &testClient{t: t, app: srv.NewApp()}
}

func (tc *testClient) do(method, path, token string, body interface{}) (int, []byte) {
	tc.t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(tc.t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.app.Test(req, -1)
	require.NoError(tc.t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(tc.t, err)
	return resp.StatusCode, data
}

func (tc *testClient) register(email string) models.AuthResult {
	tc.t.Helper()
	status, body := tc.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "password": "secret1",
	})
	require.Equal(tc.t, http.StatusOK, status, string(body))
	var result models.AuthResult
	require.NoError(tc.t, json.Unmarshal(body, &result))
	return result
}

func decodeError(t *testing.T, body []byte) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp), string(body))
	return resp
}

func decodePost(t *testing.T, body []byte) models.Post {
	t.Helper()
	var post models.Post
	require.NoError(t, json.Unmarshal(body, &post), string(body))
	return post
}

func TestAuthFlow(t *testing.T) {
	tc := newTestClient(t)

	registered := tc.register("writer@example.com")
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "writer@example.com", registered.User.Email)

	status, body := tc.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "writer@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, models.CodeAlreadyExists, decodeError(t, body).Code)

	status, body = tc.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "writer@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, status)
	var login models.AuthResult
	require.NoError(t, json.Unmarshal(body, &login))
	assert.Equal(t, registered.User.ID, login.User.ID)

	status, body = tc.do(http.MethodGet, "/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"id":"`+registered.User.ID+`","email":"writer@example.com"}`, string(body))
}

func TestLoginFailuresLookAlike(t *testing.T) {
	tc := newTestClient(t)
	tc.register("known@example.com")

	_, wrongPassword := tc.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "known@example.com", "password": "nope-nope",
	})
	status, unknownEmail := tc.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "unknown@example.com", "password": "nope-nope",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, string(wrongPassword), string(unknownEmail))
	assert.Equal(t, "invalid email or password", decodeError(t, unknownEmail).Error)
}

func TestRegisterValidation(t *testing.T) {
	tc := newTestClient(t)

	status, body := tc.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "short@example.com", "password": "12345",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	resp := decodeError(t, body)
	assert.Equal(t, models.CodeInvalidArgument, resp.Code)
	assert.Equal(t, "password must be at least 6 characters", resp.Error)

	status, body = tc.do(http.MethodPost, "/auth/register", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid request body", decodeError(t, body).Error)
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	tc := newTestClient(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/auth/me"},
		{http.MethodGet, "/posts"},
		{http.MethodPost, "/posts"},
		{http.MethodPut, "/posts/abc"},
		{http.MethodDelete, "/posts/abc"},
		{http.MethodPost, "/posts/autosave"},
		{http.MethodGet, "/posts/autosave"},
	}
	for _, r := range routes {
		status, body := tc.do(r.method, r.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, "%s %s", r.method, r.path)
		assert.Equal(t, models.CodeUnauthenticated, decodeError(t, body).Code)

		status, _ = tc.do(r.method, r.path, "garbage.token.value", nil)
		assert.Equal(t, http.StatusUnauthorized, status, "%s %s", r.method, r.path)
	}
}

func TestPostLifecycle(t *testing.T) {
	tc := newTestClient(t)
	token := tc.register("posts@example.com").Token

	status, body := tc.do(http.MethodPost, "/posts", token, map[string]interface{}{
		"content": "<p>A</p>", "coverImage": "",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	a := decodePost(t, body)
	assert.Nil(t, a.CoverImage)
	assert.Equal(t, a.CreatedAt, a.UpdatedAt)
	assert.Contains(t, string(body), `"coverImage":null`)
	assert.NotContains(t, string(body), "userId")

	status, body = tc.do(http.MethodPost, "/posts", token, map[string]interface{}{
		"content": "<p>B</p>", "coverImage": "cover.png",
	})
	require.Equal(t, http.StatusOK, status)
	b := decodePost(t, body)

	status, body = tc.do(http.MethodPut, "/posts/"+a.ID, token, map[string]interface{}{"content": "<p>A2</p>"})
	require.Equal(t, http.StatusOK, status, string(body))
	updated := decodePost(t, body)
	assert.Equal(t, "<p>A2</p>", updated.Content)
	assert.True(t, updated.CreatedAt.Equal(a.CreatedAt))

	status, body = tc.do(http.MethodGet, "/posts", token, nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Posts []models.Post `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Posts, 2)
	assert.Equal(t, a.ID, list.Posts[0].ID)
	assert.Equal(t, b.ID, list.Posts[1].ID)

	status, body = tc.do(http.MethodPut, "/posts/"+b.ID, token, map[string]interface{}{"coverImage": nil})
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, decodePost(t, body).CoverImage)

	status, body = tc.do(http.MethodPut, "/posts/"+b.ID, token, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "no fields to update", decodeError(t, body).Error)

	status, body = tc.do(http.MethodDelete, "/posts/"+a.ID, token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body)

	status, _ = tc.do(http.MethodDelete, "/posts/does-not-exist", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = tc.do(http.MethodGet, "/posts", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Posts, 1)
}

func TestCreatePostRequiresContent(t *testing.T) {
	tc := newTestClient(t)
	token := tc.register("empty@example.com").Token

	status, body := tc.do(http.MethodPost, "/posts", token, map[string]interface{}{"content": "  "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "content is required", decodeError(t, body).Error)
}

func TestPostsAreIsolatedPerUser(t *testing.T) {
	tc := newTestClient(t)
	owner := tc.register("owner@example.com").Token
	other := tc.register("other@example.com").Token

	status, body := tc.do(http.MethodPost, "/posts", owner, map[string]interface{}{"content": "mine"})
	require.Equal(t, http.StatusOK, status)
	post := decodePost(t, body)

	status, body = tc.do(http.MethodPut, "/posts/"+post.ID, other, map[string]interface{}{"content": "theirs"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "post not found", decodeError(t, body).Error)

	status, _ = tc.do(http.MethodDelete, "/posts/"+post.ID, other, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = tc.do(http.MethodGet, "/posts", other, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"posts":[]}`, string(body))

	status, body = tc.do(http.MethodGet, "/posts", owner, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"content":"mine"`)
}

func TestAutosaveEndpoints(t *testing.T) {
	tc := newTestClient(t)
	token := tc.register("draft@example.com").Token

	status, body := tc.do(http.MethodGet, "/posts/autosave", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{}`, string(body))

	status, body = tc.do(http.MethodPost, "/posts/autosave", token, map[string]interface{}{"content": "draft"})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"success":true}`, string(body))

	status, body = tc.do(http.MethodPost, "/posts/autosave", token, map[string]interface{}{"content": ""})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"success":true}`, string(body))

	status, body = tc.do(http.MethodGet, "/posts/autosave", token, nil)
	require.Equal(t, http.StatusOK, status)
	var resp struct {
		Post *models.Post `json:"post"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotNil(t, resp.Post)
	assert.Equal(t, "autosave", resp.Post.ID)
	assert.Equal(t, "draft", resp.Post.Content)
	assert.Equal(t, resp.Post.CreatedAt, resp.Post.UpdatedAt)
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	tc := newTestClient(t)

	status, _ := tc.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := tc.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"redis":"disabled"`)

	status, body = tc.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, models.CodeNotFound, decodeError(t, body).Code)
}

func TestUpdateWithEmptyBodyChecksOwnershipFirst(t *testing.T) {
	tc := newTestClient(t)
	owner := tc.register("first@example.com").Token
	other := tc.register("second@example.com").Token

	status, body := tc.do(http.MethodPost, "/posts", owner, map[string]interface{}{"content": "kept"})
	require.Equal(t, http.StatusOK, status)
	post := decodePost(t, body)

	status, body = tc.do(http.MethodPut, "/posts/"+post.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, models.CodeNotFound, decodeError(t, body).Code)

	status, body = tc.do(http.MethodPut, "/posts/"+post.ID, owner, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "no fields to update", decodeError(t, body).Error)

	status, body = tc.do(http.MethodPost, "/auth/login", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "email and password are required", decodeError(t, body).Error)
}
