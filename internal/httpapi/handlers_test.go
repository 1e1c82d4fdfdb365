package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"loadtracker.app/internal/auth"
	"loadtracker.app/internal/inventory"
	"loadtracker.app/internal/project"
	"loadtracker.app/internal/upload"
)

type recordingMailer struct {
	welcomes []string
	resets   []string
}

func (m *recordingMailer) SendWelcome(_ context.Context, to, _ string) error {
	m.welcomes = append(m.welcomes, to)
	return nil
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, _, resetURL string) error {
	m.resets = append(m.resets, resetURL)
	return nil
}

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T

	store  *auth.MemoryStore
	mailer *recordingMailer
	admin  auth.User
	viewer auth.User
	app    auth.App
}

const (
	adminPassword  = "forklift-operator-1"
	viewerPassword = "dock-watcher-22"
)

func allPermissionKeys() []string {
	keys := make([]string, 0, len(auth.BuiltinPermissions))
	for _, p := range auth.BuiltinPermissions {
		keys = append(keys, p.Key)
	}
	return keys
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	store := auth.NewMemoryStore()
	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		Issuer:        "loadtracker",
		Audience:      "loadtracker-app",
		AccessTTL:     time.Hour,
		RememberTTL:   24 * time.Hour,
		RefreshTTL:    24 * time.Hour,
		ResetTTL:      time.Hour,
	}, nil)
	if err != nil {
		t.Fatalf("token issuer: %v", err)
	}
	mailer := &recordingMailer{}
	authSvc, err := auth.NewService(store, issuer,
		auth.WithMailer(mailer),
		auth.WithResetURL("https://tracker.example.com/reset-password"),
	)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	ctx := context.Background()
	if err := authSvc.EnsureBuiltins(ctx); err != nil {
		t.Fatalf("ensure builtins: %v", err)
	}

	adminRole, err := authSvc.CreateRole(ctx, "admin", "full access", true, allPermissionKeys())
	if err != nil {
		t.Fatalf("create admin role: %v", err)
	}
	viewerRole, err := authSvc.CreateRole(ctx, "viewer", "read-only inventory", true,
		[]string{auth.PermInventoryRead})
	if err != nil {
		t.Fatalf("create viewer role: %v", err)
	}
	admin, err := authSvc.CreateUser(ctx, auth.CreateUserInput{
		Email:    "admin@example.com",
		Password: adminPassword,
		FullName: "Avery Admin",
		RoleID:   adminRole.ID,
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	viewer, err := authSvc.CreateUser(ctx, auth.CreateUserInput{
		Email:    "viewer@example.com",
		Password: viewerPassword,
		FullName: "Val Viewer",
		RoleID:   viewerRole.ID,
	})
	if err != nil {
		t.Fatalf("create viewer: %v", err)
	}
	app := store.AddApp(auth.App{Name: "Dispatch Board", URL: "https://dispatch.example.com", IsActive: true})

	invSvc, err := inventory.NewService(inventory.NewMemoryStore())
	if err != nil {
		t.Fatalf("inventory service: %v", err)
	}
	projSvc, err := project.NewService(project.NewMemoryStore())
	if err != nil {
		t.Fatalf("project service: %v", err)
	}
	uploadSvc, err := upload.NewService(t.TempDir(), "http://localhost:8080/uploads")
	if err != nil {
		t.Fatalf("upload service: %v", err)
	}

	api := New(ReadyProbe{}, "test", authSvc, invSvc, projSvc, uploadSvc)
	api.SetRateLimit(1000, 1000)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
		store:   store,
		mailer:  mailer,
		admin:   admin,
		viewer:  viewer,
		app:     app,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) put(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPut, path, body, headers)
}

func (c *apiClient) del(path string, headers map[string]string) *http.Response {
	return c.do(http.MethodDelete, path, nil, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func (c *apiClient) login(email, password string) (string, string) {
	c.t.Helper()
	resp := c.post("/v1/auth/login", map[string]any{
		"email":    email,
		"password": password,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("login status: %d", resp.StatusCode)
	}
	payload := decode[loginResponse](c.t, resp)
	if payload.Tokens.AccessToken == "" || payload.Tokens.RefreshToken == "" {
		c.t.Fatal("empty tokens issued")
	}
	return payload.Tokens.AccessToken, payload.Tokens.RefreshToken
}

func (c *apiClient) adminHeader() map[string]string {
	token, _ := c.login(c.admin.Email, adminPassword)
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func wantStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("status = %d, want %d (body: %s)", resp.StatusCode, want, body)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	api := newTestAPI(t)

	for _, payload := range []map[string]any{
		{"email": "ghost@example.com", "password": "whatever-else"},
		{"email": api.admin.Email, "password": "wrong-password"},
	} {
		resp := api.post("/v1/auth/login", payload, nil)
		wantStatus(t, resp, http.StatusUnauthorized)
		body := decode[map[string]any](t, resp)
		if body["error"] != "invalid credentials" {
			t.Fatalf("error = %v, want uniform message", body["error"])
		}
	}
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/v1/users", nil, nil)
	wantStatus(t, resp, http.StatusUnauthorized)

	resp = api.get("/v1/users", nil, map[string]string{"Authorization": "Bearer not-a-token"})
	wantStatus(t, resp, http.StatusUnauthorized)
}

func TestPermissionEnforcement(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.login(api.viewer.Email, viewerPassword)
	viewerHeader := map[string]string{"Authorization": "Bearer " + token}

	// viewer may read inventory but not manage users
	resp := api.get("/v1/inventory", nil, viewerHeader)
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = api.post("/v1/users", map[string]any{
		"email":     "new@example.com",
		"password":  "some-password-9",
		"full_name": "New User",
		"role_id":   api.viewer.RoleID,
	}, viewerHeader)
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()
}

func TestUserLifecycle(t *testing.T) {
	api := newTestAPI(t)
	header := api.adminHeader()

	resp := api.post("/v1/users", map[string]any{
		"email":     "dock@example.com",
		"password":  "pallets-and-racks-3",
		"full_name": "Drew Docker",
		"phone":     "+1 555 0100",
		"role_id":   api.viewer.RoleID,
	}, header)
	wantStatus(t, resp, http.StatusCreated)
	created := decode[auth.User](t, resp)
	if created.Status != auth.UserStatusActive {
		t.Fatalf("status = %s, want active default", created.Status)
	}
	if len(api.mailer.welcomes) == 0 || api.mailer.welcomes[len(api.mailer.welcomes)-1] != "dock@example.com" {
		t.Fatal("expected welcome email for new user")
	}

	// duplicate email
	resp = api.post("/v1/users", map[string]any{
		"email":     "dock@example.com",
		"password":  "pallets-and-racks-3",
		"full_name": "Drew Docker",
		"role_id":   api.viewer.RoleID,
	}, header)
	wantStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	resp = api.put("/v1/users/"+created.ID, map[string]any{
		"full_name": "Drew D. Docker",
	}, header)
	wantStatus(t, resp, http.StatusOK)
	updated := decode[auth.User](t, resp)
	if updated.FullName != "Drew D. Docker" {
		t.Fatalf("full_name = %s", updated.FullName)
	}

	resp = api.get("/v1/users", url.Values{"page": {"1"}, "limit": {"50"}}, header)
	wantStatus(t, resp, http.StatusOK)
	list := decode[map[string]any](t, resp)
	if int(list["total"].(float64)) != 3 {
		t.Fatalf("total = %v, want 3", list["total"])
	}

	// delete deactivates rather than removing
	resp = api.del("/v1/users/"+created.ID, header)
	wantStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = api.get("/v1/users/"+created.ID, nil, header)
	wantStatus(t, resp, http.StatusOK)
	deactivated := decode[auth.User](t, resp)
	if deactivated.Status != auth.UserStatusInactive {
		t.Fatalf("status = %s, want inactive", deactivated.Status)
	}

	// deactivated users cannot log in
	resp = api.post("/v1/auth/login", map[string]any{
		"email":    "dock@example.com",
		"password": "pallets-and-racks-3",
	}, nil)
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestRoleLifecycle(t *testing.T) {
	api := newTestAPI(t)
	header := api.adminHeader()

	resp := api.post("/v1/roles", map[string]any{
		"name":        "loader",
		"description": "dock loading crew",
		"permissions": []string{auth.PermInventoryRead, auth.PermInventoryCreate, auth.PermInventoryCreate},
	}, header)
	wantStatus(t, resp, http.StatusCreated)
	role := decode[auth.Role](t, resp)
	if len(role.Permissions) != 2 {
		t.Fatalf("permissions = %v, want deduped pair", role.Permissions)
	}

	// rename and replace the permission set in one call
	resp = api.put("/v1/roles/"+role.ID, map[string]any{
		"name":        "dock-loader",
		"permissions": []string{auth.PermProjectsRead},
	}, header)
	wantStatus(t, resp, http.StatusOK)
	updated := decode[auth.Role](t, resp)
	if updated.Name != "dock-loader" {
		t.Fatalf("name = %s", updated.Name)
	}
	if len(updated.Permissions) != 1 || updated.Permissions[0] != auth.PermProjectsRead {
		t.Fatalf("permissions = %v, want replacement", updated.Permissions)
	}

	// a role with members cannot be deleted
	resp = api.del("/v1/roles/"+api.viewer.RoleID, header)
	wantStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	resp = api.del("/v1/roles/"+role.ID, header)
	wantStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()
}

func TestPermissionCatalogGrouped(t *testing.T) {
	api := newTestAPI(t)
	header := api.adminHeader()

	resp := api.get("/v1/permissions", nil, header)
	wantStatus(t, resp, http.StatusOK)
	payload := decode[map[string][]permissionGroup](t, resp)
	groups := payload["categories"]
	if len(groups) == 0 {
		t.Fatal("expected grouped catalog")
	}
	seen := map[string]bool{}
	for _, g := range groups {
		if seen[g.Category] {
			t.Fatalf("category %s appears twice", g.Category)
		}
		seen[g.Category] = true
		if len(g.Permissions) == 0 {
			t.Fatalf("category %s has no permissions", g.Category)
		}
	}
	if !seen["Inventory"] || !seen["User Management"] {
		t.Fatalf("missing expected categories: %v", seen)
	}
}

func TestAppGrantFlow(t *testing.T) {
	api := newTestAPI(t)
	header := api.adminHeader()

	resp := api.post("/v1/app-permissions", map[string]any{
		"user_id": api.viewer.ID,
		"app_id":  api.app.ID,
	}, header)
	wantStatus(t, resp, http.StatusCreated)
	grant := decode[auth.AppGrant](t, resp)
	if !grant.IsActive || grant.GrantedBy != api.admin.ID {
		t.Fatalf("grant = %+v", grant)
	}

	// duplicate pair
	resp = api.post("/v1/app-permissions", map[string]any{
		"user_id": api.viewer.ID,
		"app_id":  api.app.ID,
	}, header)
	wantStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	// the grantee sees the app
	viewerToken, _ := api.login(api.viewer.Email, viewerPassword)
	viewerHeader := map[string]string{"Authorization": "Bearer " + viewerToken}
	resp = api.get("/v1/user/apps", nil, viewerHeader)
	wantStatus(t, resp, http.StatusOK)
	apps := decode[map[string][]auth.App](t, resp)
	if len(apps["apps"]) != 1 || apps["apps"][0].Name != "Dispatch Board" {
		t.Fatalf("apps = %v", apps)
	}

	// deactivating the grant hides the app
	resp = api.put("/v1/app-permissions/"+grant.ID, map[string]any{
		"is_active": false,
	}, header)
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = api.get("/v1/user/apps", nil, viewerHeader)
	wantStatus(t, resp, http.StatusOK)
	apps = decode[map[string][]auth.App](t, resp)
	if len(apps["apps"]) != 0 {
		t.Fatalf("apps = %v, want none after revoke", apps)
	}

	resp = api.del("/v1/app-permissions/"+grant.ID, header)
	wantStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()
}

func TestSelfServiceProfile(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.login(api.viewer.Email, viewerPassword)
	header := map[string]string{"Authorization": "Bearer " + token}

	resp := api.get("/v1/user/profile", nil, header)
	wantStatus(t, resp, http.StatusOK)
	me := decode[auth.User](t, resp)
	if me.Email != api.viewer.Email {
		t.Fatalf("profile email = %s", me.Email)
	}

	resp = api.put("/v1/user/profile", map[string]any{
		"full_name": "Val V. Viewer",
		"phone":     "+1 555 0199",
	}, header)
	wantStatus(t, resp, http.StatusOK)
	updated := decode[auth.User](t, resp)
	if updated.FullName != "Val V. Viewer" || updated.Phone != "+1 555 0199" {
		t.Fatalf("profile update = %+v", updated)
	}

	resp = api.get("/v1/user/permissions", nil, header)
	wantStatus(t, resp, http.StatusOK)
	perms := decode[map[string][]string](t, resp)
	if len(perms["permissions"]) != 1 || perms["permissions"][0] != auth.PermInventoryRead {
		t.Fatalf("permissions = %v", perms)
	}
}

func TestRefreshFlow(t *testing.T) {
	api := newTestAPI(t)
	access, refresh := api.login(api.viewer.Email, viewerPassword)

	resp := api.post("/v1/auth/refresh", map[string]any{"refresh_token": refresh}, nil)
	wantStatus(t, resp, http.StatusOK)
	renewed := decode[loginResponse](t, resp)
	if renewed.Tokens.AccessToken == "" {
		t.Fatal("expected fresh access token")
	}

	// an access token is not accepted as a refresh token
	resp = api.post("/v1/auth/refresh", map[string]any{"refresh_token": access}, nil)
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestForgotAndResetPassword(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/v1/auth/forgot-password", map[string]any{"email": api.viewer.Email}, nil)
	wantStatus(t, resp, http.StatusAccepted)
	resp.Body.Close()

	// unknown addresses get the same response
	resp = api.post("/v1/auth/forgot-password", map[string]any{"email": "ghost@example.com"}, nil)
	wantStatus(t, resp, http.StatusAccepted)
	resp.Body.Close()

	if len(api.mailer.resets) != 1 {
		t.Fatalf("reset emails = %d, want 1", len(api.mailer.resets))
	}
	link, err := url.Parse(api.mailer.resets[0])
	if err != nil {
		t.Fatalf("parse reset link: %v", err)
	}
	token := link.Query().Get("token")
	if token == "" {
		t.Fatal("reset link carries no token")
	}

	resp = api.post("/v1/auth/reset-password", map[string]any{
		"token":    token,
		"password": "fresh-password-77",
	}, nil)
	wantStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	// old password is dead, new one works
	resp = api.post("/v1/auth/login", map[string]any{
		"email":    api.viewer.Email,
		"password": viewerPassword,
	}, nil)
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
	api.login(api.viewer.Email, "fresh-password-77")
}

func TestChangePassword(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.login(api.viewer.Email, viewerPassword)
	header := map[string]string{"Authorization": "Bearer " + token}

	resp := api.post("/v1/auth/change-password", map[string]any{
		"current_password": "wrong",
		"new_password":     "another-password-5",
	}, header)
	wantStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = api.post("/v1/auth/change-password", map[string]any{
		"current_password": viewerPassword,
		"new_password":     "another-password-5",
	}, header)
	wantStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	api.login(api.viewer.Email, "another-password-5")
}

func TestInventoryFlow(t *testing.T) {
	api := newTestAPI(t)
	header := api.adminHeader()

	resp := api.post("/v1/inventory", map[string]any{
		"sku":       "PLT-1001",
		"quantity":  12,
		"location":  "Dock 4",
		"truck_ref": "TRK-88",
	}, header)
	wantStatus(t, resp, http.StatusCreated)
	item := decode[inventory.Item](t, resp)
	if item.Status != inventory.StatusLoaded {
		t.Fatalf("status = %s, want loaded when truck_ref set", item.Status)
	}
	if item.CheckedInBy != api.admin.ID {
		t.Fatalf("checked_in_by = %s", item.CheckedInBy)
	}

	resp = api.post("/v1/inventory", map[string]any{
		"sku":      "PLT-1002",
		"quantity": 0,
		"location": "Dock 4",
	}, header)
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	status := "dispatched"
	resp = api.put("/v1/inventory/"+item.ID, map[string]any{"status": status}, header)
	wantStatus(t, resp, http.StatusOK)
	updated := decode[inventory.Item](t, resp)
	if updated.Status != inventory.StatusDispatched {
		t.Fatalf("status = %s", updated.Status)
	}

	resp = api.get("/v1/inventory", url.Values{"page": {"1"}, "limit": {"10"}}, header)
	wantStatus(t, resp, http.StatusOK)
	list := decode[map[string]any](t, resp)
	if int(list["total"].(float64)) != 1 {
		t.Fatalf("total = %v", list["total"])
	}

	resp = api.del("/v1/inventory/"+item.ID, header)
	wantStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = api.get("/v1/inventory/"+item.ID, nil, header)
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestProjectFlow(t *testing.T) {
	api := newTestAPI(t)
	header := api.adminHeader()

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	due := start.AddDate(0, 0, -7)
	resp := api.post("/v1/projects", map[string]any{
		"name":       "Warehouse Move",
		"client":     "Acme Logistics",
		"start_date": start,
		"due_date":   due,
	}, header)
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = api.post("/v1/projects", map[string]any{
		"name":   "Warehouse Move",
		"client": "Acme Logistics",
	}, header)
	wantStatus(t, resp, http.StatusCreated)
	proj := decode[project.Project](t, resp)
	if proj.Status != project.StatusPlanned {
		t.Fatalf("status = %s, want planned default", proj.Status)
	}

	resp = api.put("/v1/projects/"+proj.ID, map[string]any{"status": "ACTIVE"}, header)
	wantStatus(t, resp, http.StatusOK)
	updated := decode[project.Project](t, resp)
	if updated.Status != project.StatusActive {
		t.Fatalf("status = %s", updated.Status)
	}

	resp = api.del("/v1/projects/"+proj.ID, header)
	wantStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()
}

func multipartImage(t *testing.T, field, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func pngBytes(size int) []byte {
	header := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	buf := make([]byte, size)
	copy(buf, header)
	return buf
}

func TestUploadImage(t *testing.T) {
	api := newTestAPI(t)
	header := api.adminHeader()

	body, contentType := multipartImage(t, "image", "dock.png", pngBytes(2048))
	req, err := http.NewRequest(http.MethodPost, api.baseURL+"/v1/upload/image", body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", header["Authorization"])
	resp, err := api.client.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	wantStatus(t, resp, http.StatusCreated)
	stored := decode[upload.Stored](t, resp)
	if !strings.HasPrefix(stored.URL, "http://localhost:8080/uploads/") {
		t.Fatalf("url = %s", stored.URL)
	}
	if !strings.HasSuffix(stored.Filename, ".png") {
		t.Fatalf("filename = %s", stored.Filename)
	}

	// non-image payloads are rejected
	body, contentType = multipartImage(t, "image", "notes.txt", []byte("just some text, not an image"))
	req, err = http.NewRequest(http.MethodPost, api.baseURL+"/v1/upload/image", body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", header["Authorization"])
	resp, err = api.client.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestHealthEndpointsArePublic(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		resp := api.get(path, nil, nil)
		wantStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/v1/auth/login", map[string]any{
		"email":    api.admin.Email,
		"password": adminPassword,
		"surprise": true,
	}, nil)
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}
