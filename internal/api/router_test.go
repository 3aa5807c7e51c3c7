package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/insight-board-be/internal/auth"
	"github.com/isdelr/insight-board-be/internal/database"
	"github.com/isdelr/insight-board-be/internal/models"
	"github.com/isdelr/insight-board-be/internal/services"
)

type testEnv struct {
	router http.Handler
	tokens *auth.Manager
}

func setupTestEnv(t *testing.T, devRoutes bool) *testEnv {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	tokens := auth.NewManager(fmt.Sprintf("test-secret-%s", t.Name()))
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db, eventService)
	uploadService := services.NewUploadService(db, eventService, t.TempDir())

	return &testEnv{
		router: NewRouter(tokens, userService, uploadService, devRoutes),
		tokens: tokens,
	}
}

func (e *testEnv) postJSON(t *testing.T, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (e *testEnv) signup(t *testing.T, name, email, password string) string {
	t.Helper()
	rec := e.postJSON(t, "/signup", "", map[string]string{"name": name, "email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	require.Equal(t, name, body["name"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestSignupLoginProfileFlow(t *testing.T) {
	env := setupTestEnv(t, false)

	token1 := env.signup(t, "Ann", "ann@x.com", "secret123")

	rec := env.postJSON(t, "/login", "", map[string]string{"email": "ann@x.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Ann", body["name"])
	token2 := body["token"].(string)

	// Different token bytes, identical claims.
	claims1, err := env.tokens.Verify(token1)
	require.NoError(t, err)
	claims2, err := env.tokens.Verify(token2)
	require.NoError(t, err)
	assert.Equal(t, claims1.UserID, claims2.UserID)
	assert.Equal(t, claims1.Email, claims2.Email)

	rec = env.get(t, "/get-user-profile", token2)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decodeBody(t, rec)
	assert.Equal(t, "Ann", profile["name"])
	assert.Equal(t, "ann@x.com", profile["email"])
	assert.EqualValues(t, claims1.UserID, profile["id"])
}

func TestSignupDuplicateEmail(t *testing.T) {
	env := setupTestEnv(t, false)

	env.signup(t, "Ann", "ann@x.com", "secret123")

	rec := env.postJSON(t, "/signup", "", map[string]string{"name": "Other", "email": "ann@x.com", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Email already in use"}`, rec.Body.String())
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := setupTestEnv(t, false)
	env.signup(t, "Ann", "ann@x.com", "secret123")

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "ann@x.com", password: "nope"},
		{name: "unknown email", email: "ghost@x.com", password: "secret123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.postJSON(t, "/login", "", map[string]string{"email": tt.email, "password": tt.password})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"Invalid credentials"}`, rec.Body.String())
		})
	}
}

func TestProtectedRoutesRejectBadTokens(t *testing.T) {
	env := setupTestEnv(t, false)
	foreign := auth.NewManager("some-other-secret")
	foreignToken, err := foreign.Issue(mustUser(t, env))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "no token", token: ""},
		{name: "malformed token", token: "garbage"},
		{name: "foreign secret", token: foreignToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.get(t, "/get-user-profile", tt.token)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			rec = env.postJSON(t, "/update-profile", tt.token, map[string]string{"name": "X", "email": "x@x.com"})
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			rec = env.postJSON(t, "/upload-data-file", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestUpdateProfileReissuesToken(t *testing.T) {
	env := setupTestEnv(t, false)
	oldToken := env.signup(t, "Ann", "ann@x.com", "secret123")

	rec := env.postJSON(t, "/update-profile", oldToken, map[string]string{"name": "Anna", "email": "anna@x.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "Anna", body["name"])

	newToken := body["token"].(string)
	claims, err := env.tokens.Verify(newToken)
	require.NoError(t, err)
	assert.Equal(t, "anna@x.com", claims.Email)

	// The old token is not invalidated; it still authenticates by user id.
	rec = env.get(t, "/get-user-profile", oldToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	profile := decodeBody(t, rec)
	assert.Equal(t, "anna@x.com", profile["email"])
}

func TestUpdateProfilePasswordChecks(t *testing.T) {
	env := setupTestEnv(t, false)
	token := env.signup(t, "Ann", "ann@x.com", "secret123")

	rec := env.postJSON(t, "/update-profile", token, map[string]string{
		"name":            "Ann",
		"email":           "ann@x.com",
		"currentPassword": "wrong",
		"newPassword":     "newsecret",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Current password is incorrect"}`, rec.Body.String())

	// The refused rotation left the old password in place.
	rec = env.postJSON(t, "/login", "", map[string]string{"email": "ann@x.com", "password": "secret123"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateProfileEmailCollision(t *testing.T) {
	env := setupTestEnv(t, false)
	env.signup(t, "Ann", "ann@x.com", "secret123")
	bobToken := env.signup(t, "Bob", "bob@x.com", "secret456")

	rec := env.postJSON(t, "/update-profile", bobToken, map[string]string{"name": "Bob", "email": "ann@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Email already in use"}`, rec.Body.String())
}

func TestUploadDataFile(t *testing.T) {
	env := setupTestEnv(t, false)
	token := env.signup(t, "Ann", "ann@x.com", "secret123")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("dataFile", "sales.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("a,b\n1,2\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-data-file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"File uploaded successfully"}`, rec.Body.String())
}

func TestUploadDataFile_MissingPart(t *testing.T) {
	env := setupTestEnv(t, false)
	token := env.signup(t, "Ann", "ann@x.com", "secret123")

	// Multipart body with the wrong field name.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("somethingElse", "value"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-data-file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No file uploaded"}`, rec.Body.String())
}

func TestDevRoutes(t *testing.T) {
	env := setupTestEnv(t, true)
	env.signup(t, "Ann", "ann@x.com", "secret123")

	rec := env.get(t, "/test-db", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["userCount"])

	rec = env.get(t, "/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var users []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "ann@x.com", users[0]["email"])
	_, leaked := users[0]["password_hash"]
	assert.False(t, leaked)
}

func TestDevRoutesDisabledByDefault(t *testing.T) {
	env := setupTestEnv(t, false)

	for _, path := range []string{"/test-db", "/users", "/system"} {
		rec := env.get(t, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, "route %s should not exist", path)
	}
}

// mustUser registers a throwaway account and returns its model for token
// issuance against a different secret.
func mustUser(t *testing.T, env *testEnv) models.User {
	t.Helper()
	token := env.signup(t, "Token Donor", "donor@x.com", "secret123")
	claims, err := env.tokens.Verify(token)
	require.NoError(t, err)
	return models.User{ID: claims.UserID, Email: claims.Email}
}
