package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"docuvault.org/internal/audit"
	"docuvault.org/internal/auth"
	"docuvault.org/internal/docs"
)

type fakeExchanger struct {
	identity auth.ExternalIdentity
	err      error
}

func (f fakeExchanger) Exchange(ctx context.Context, code string) (auth.ExternalIdentity, error) {
	return f.identity, f.err
}

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
	trail   *audit.MemoryStore
}

func newTestAPI(t *testing.T) *apiClient {
	return newTestAPIWithExchanger(t, nil)
}

func newTestAPIWithExchanger(t *testing.T, exchanger IdentityExchanger) *apiClient {
	t.Helper()

	accounts := auth.NewMemoryStore()
	trail := audit.NewMemoryStore()
	if err := auth.SeedAccounts(context.Background(), accounts, auth.DefaultSeeds()); err != nil {
		t.Fatalf("seed accounts: %v", err)
	}

	tokens, err := auth.NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	recorder := audit.NewRecorder(trail)

	api := New(Options{
		Auth:       auth.NewService(accounts, tokens, recorder),
		Authz:      auth.NewAuthorizer(recorder),
		Docs:       docs.NewService(docs.NewMemoryStore()),
		Recorder:   recorder,
		AuditLog:   trail,
		Exchanger:  exchanger,
		Version:    "test",
		RateBurst:  1000,
		RatePerSec: 1000,
	})

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(api.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
		trail:   trail,
	}
}

func (c *apiClient) do(method, path string, body any, token string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) decode(resp *http.Response, dst any) {
	c.t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		c.t.Fatalf("decode response: %v", err)
	}
}

func (c *apiClient) login(username, password string) loginResponse {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/v1/auth/login", loginRequest{Identifier: username, Password: password}, "")
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("login %s: status %d", username, resp.StatusCode)
	}
	var out loginResponse
	c.decode(resp, &out)
	return out
}

func (c *apiClient) errorBody(resp *http.Response) string {
	c.t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	c.decode(resp, &body)
	return body.Error
}

func TestLoginEndpoint(t *testing.T) {
	c := newTestAPI(t)

	out := c.login("admin", "Admin123")
	if out.Tokens.AccessToken == "" || out.Tokens.RefreshToken == "" {
		t.Fatal("expected a token pair")
	}
	if out.User.Role != auth.RoleAdmin {
		t.Fatalf("role = %s, want admin", out.User.Role)
	}
}

func TestLoginFailureIsGeneric(t *testing.T) {
	c := newTestAPI(t)

	wrongPw := c.do(http.MethodPost, "/v1/auth/login", loginRequest{Identifier: "admin", Password: "nope"}, "")
	if wrongPw.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong password: status %d, want 401", wrongPw.StatusCode)
	}
	msg1 := c.errorBody(wrongPw)

	unknown := c.do(http.MethodPost, "/v1/auth/login", loginRequest{Identifier: "ghost", Password: "nope"}, "")
	if unknown.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown user: status %d, want 401", unknown.StatusCode)
	}
	msg2 := c.errorBody(unknown)

	if msg1 != msg2 {
		t.Fatalf("responses reveal account existence: %q vs %q", msg1, msg2)
	}
}

func TestLockoutReturns423(t *testing.T) {
	c := newTestAPI(t)

	for i := 0; i < 5; i++ {
		resp := c.do(http.MethodPost, "/v1/auth/login", loginRequest{Identifier: "johndoe", Password: "bad"}, "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("failure %d: status %d, want 401", i+1, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := c.do(http.MethodPost, "/v1/auth/login", loginRequest{Identifier: "johndoe", Password: "User123"}, "")
	if resp.StatusCode != http.StatusLocked {
		t.Fatalf("locked login: status %d, want 423", resp.StatusCode)
	}
	resp.Body.Close()

	entries, _ := c.trail.List(context.Background(), audit.Filter{Action: audit.ActionUserLoginFailed})
	if len(entries) != 5 {
		t.Fatalf("failed-login entries = %d, want 5", len(entries))
	}
}

func TestRegisterEndpoint(t *testing.T) {
	c := newTestAPI(t)

	resp := c.do(http.MethodPost, "/v1/auth/register", registerRequest{
		Username: "newuser", Email: "new@example.com", Password: "Secret123",
	}, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d, want 201", resp.StatusCode)
	}
	var account auth.PublicAccount
	c.decode(resp, &account)
	if account.Username != "newuser" || account.Role != auth.RoleUser {
		t.Fatalf("account = %+v", account)
	}

	dup := c.do(http.MethodPost, "/v1/auth/register", registerRequest{
		Username: "newuser", Email: "other@example.com", Password: "Secret123",
	}, "")
	if dup.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate: status %d, want 409", dup.StatusCode)
	}
	dup.Body.Close()

	// The new account can log in straight away.
	c.login("newuser", "Secret123")
}

func TestRefreshEndpoint(t *testing.T) {
	c := newTestAPI(t)
	out := c.login("johndoe", "User123")

	resp := c.do(http.MethodPost, "/v1/auth/refresh", refreshRequest{RefreshToken: out.Tokens.RefreshToken}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: status %d, want 200", resp.StatusCode)
	}
	var refreshed refreshResponse
	c.decode(resp, &refreshed)
	if refreshed.AccessToken == "" {
		t.Fatal("expected a new access token")
	}

	bad := c.do(http.MethodPost, "/v1/auth/refresh", refreshRequest{RefreshToken: out.Tokens.AccessToken}, "")
	if bad.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh with access token: status %d, want 401", bad.StatusCode)
	}
	bad.Body.Close()
}

func TestAuthRequired(t *testing.T) {
	c := newTestAPI(t)

	for _, path := range []string{"/v1/documents", "/v1/profile", "/v1/admin/users"} {
		resp := c.do(http.MethodGet, path, nil, "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s without token: status %d, want 401", path, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := c.do(http.MethodGet, "/v1/documents", nil, "not-a-jwt")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token: status %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDocumentOwnership(t *testing.T) {
	c := newTestAPI(t)
	john := c.login("johndoe", "User123")
	jane := c.login("janedoe", "User123")
	admin := c.login("admin", "Admin123")

	resp := c.do(http.MethodPost, "/v1/documents", createDocumentRequest{
		Title: "Private Notes", Content: "secret plans",
	}, john.Tokens.AccessToken)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d, want 201", resp.StatusCode)
	}
	var doc docs.Document
	c.decode(resp, &doc)

	// Owner reads fine and the view counter moves.
	read := c.do(http.MethodGet, "/v1/documents/"+doc.ID, nil, john.Tokens.AccessToken)
	if read.StatusCode != http.StatusOK {
		t.Fatalf("owner read: status %d", read.StatusCode)
	}
	var got docs.Document
	c.decode(read, &got)
	if got.ViewCount != 1 {
		t.Fatalf("view count = %d, want 1", got.ViewCount)
	}

	// A different user is refused and the denial is audited.
	denied := c.do(http.MethodGet, "/v1/documents/"+doc.ID, nil, jane.Tokens.AccessToken)
	if denied.StatusCode != http.StatusForbidden {
		t.Fatalf("non-owner read: status %d, want 403", denied.StatusCode)
	}
	denied.Body.Close()
	entries, _ := c.trail.List(context.Background(), audit.Filter{Action: audit.ActionAccessDenied})
	if len(entries) != 1 {
		t.Fatalf("denied entries = %d, want 1", len(entries))
	}
	if entries[0].Details["reason"] != "not the owner" {
		t.Fatalf("details = %v", entries[0].Details)
	}

	// Admin bypasses ownership.
	bypass := c.do(http.MethodGet, "/v1/documents/"+doc.ID, nil, admin.Tokens.AccessToken)
	if bypass.StatusCode != http.StatusOK {
		t.Fatalf("admin read: status %d, want 200", bypass.StatusCode)
	}
	bypass.Body.Close()

	// Unknown ids are 404 for everyone; existence is decided before
	// ownership.
	missing := c.do(http.MethodGet, "/v1/documents/nope", nil, jane.Tokens.AccessToken)
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing doc: status %d, want 404", missing.StatusCode)
	}
	missing.Body.Close()

	// Writes follow the same gate.
	title := "Hijacked"
	put := c.do(http.MethodPut, "/v1/documents/"+doc.ID, updateDocumentRequest{Title: &title}, jane.Tokens.AccessToken)
	if put.StatusCode != http.StatusForbidden {
		t.Fatalf("non-owner update: status %d, want 403", put.StatusCode)
	}
	put.Body.Close()
	del := c.do(http.MethodDelete, "/v1/documents/"+doc.ID, nil, john.Tokens.AccessToken)
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("owner delete: status %d, want 204", del.StatusCode)
	}
	del.Body.Close()
}

func TestPublicFlagDoesNotBypassOwnershipGate(t *testing.T) {
	c := newTestAPI(t)
	john := c.login("johndoe", "User123")
	jane := c.login("janedoe", "User123")
	admin := c.login("admin", "Admin123")

	resp := c.do(http.MethodPost, "/v1/documents", createDocumentRequest{
		Title: "Public Handbook", Content: "for everyone", Public: true,
	}, john.Tokens.AccessToken)
	var doc docs.Document
	c.decode(resp, &doc)

	// The public flag is stored metadata; reads still go through the
	// ownership gate and denials are audited.
	read := c.do(http.MethodGet, "/v1/documents/"+doc.ID, nil, jane.Tokens.AccessToken)
	if read.StatusCode != http.StatusForbidden {
		t.Fatalf("non-owner read of public doc: status %d, want 403", read.StatusCode)
	}
	read.Body.Close()
	entries, _ := c.trail.List(context.Background(), audit.Filter{Action: audit.ActionAccessDenied})
	if len(entries) != 1 {
		t.Fatalf("denied entries = %d, want 1", len(entries))
	}
	if entries[0].Details["reason"] != "not the owner" {
		t.Fatalf("details = %v", entries[0].Details)
	}

	owner := c.do(http.MethodGet, "/v1/documents/"+doc.ID, nil, john.Tokens.AccessToken)
	if owner.StatusCode != http.StatusOK {
		t.Fatalf("owner read: status %d, want 200", owner.StatusCode)
	}
	owner.Body.Close()
	bypass := c.do(http.MethodGet, "/v1/documents/"+doc.ID, nil, admin.Tokens.AccessToken)
	if bypass.StatusCode != http.StatusOK {
		t.Fatalf("admin read: status %d, want 200", bypass.StatusCode)
	}
	bypass.Body.Close()

	title := "Defaced"
	put := c.do(http.MethodPut, "/v1/documents/"+doc.ID, updateDocumentRequest{Title: &title}, jane.Tokens.AccessToken)
	if put.StatusCode != http.StatusForbidden {
		t.Fatalf("non-owner update: status %d, want 403", put.StatusCode)
	}
	put.Body.Close()
}

func TestDocumentListScope(t *testing.T) {
	c := newTestAPI(t)
	john := c.login("johndoe", "User123")
	jane := c.login("janedoe", "User123")
	admin := c.login("admin", "Admin123")

	for _, owner := range []loginResponse{john, jane} {
		resp := c.do(http.MethodPost, "/v1/documents", createDocumentRequest{
			Title: "Doc by " + owner.User.Username, Content: "x",
		}, owner.Tokens.AccessToken)
		resp.Body.Close()
	}

	var mine listDocumentsResponse
	c.decode(c.do(http.MethodGet, "/v1/documents", nil, john.Tokens.AccessToken), &mine)
	if mine.Count != 1 || mine.Items[0].OwnerID != john.User.ID {
		t.Fatalf("user list = %+v", mine)
	}

	var all listDocumentsResponse
	c.decode(c.do(http.MethodGet, "/v1/documents", nil, admin.Tokens.AccessToken), &all)
	if all.Count != 2 {
		t.Fatalf("admin list count = %d, want 2", all.Count)
	}
}

func TestAdminEndpoints(t *testing.T) {
	c := newTestAPI(t)
	admin := c.login("admin", "Admin123")
	john := c.login("johndoe", "User123")

	// Role gate.
	denied := c.do(http.MethodGet, "/v1/admin/users", nil, john.Tokens.AccessToken)
	if denied.StatusCode != http.StatusForbidden {
		t.Fatalf("user on admin route: status %d, want 403", denied.StatusCode)
	}
	denied.Body.Close()
	entries, _ := c.trail.List(context.Background(), audit.Filter{Action: audit.ActionAccessDenied})
	if len(entries) != 1 {
		t.Fatalf("denied entries = %d, want 1", len(entries))
	}

	var users listUsersResponse
	c.decode(c.do(http.MethodGet, "/v1/admin/users", nil, admin.Tokens.AccessToken), &users)
	if users.Count != 4 {
		t.Fatalf("users = %d, want the 4 seeds", users.Count)
	}

	// Self-delete is refused; deleting another account works.
	self := c.do(http.MethodDelete, "/v1/admin/users/"+admin.User.ID, nil, admin.Tokens.AccessToken)
	if self.StatusCode != http.StatusBadRequest {
		t.Fatalf("self delete: status %d, want 400", self.StatusCode)
	}
	self.Body.Close()
	del := c.do(http.MethodDelete, "/v1/admin/users/"+john.User.ID, nil, admin.Tokens.AccessToken)
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("delete user: status %d, want 204", del.StatusCode)
	}
	del.Body.Close()

	// The deleted user's still-valid token stops working immediately.
	stale := c.do(http.MethodGet, "/v1/profile", nil, john.Tokens.AccessToken)
	if stale.StatusCode != http.StatusUnauthorized {
		t.Fatalf("deleted account token: status %d, want 401", stale.StatusCode)
	}
	stale.Body.Close()
}

func TestAuditLogEndpoint(t *testing.T) {
	c := newTestAPI(t)
	admin := c.login("admin", "Admin123")
	c.login("johndoe", "User123")

	var logs auditLogsResponse
	c.decode(c.do(http.MethodGet, "/v1/admin/audit-logs?action=USER_LOGIN", nil, admin.Tokens.AccessToken), &logs)
	if logs.Count != 2 {
		t.Fatalf("USER_LOGIN entries = %d, want 2", logs.Count)
	}
	for _, e := range logs.Items {
		if e.Action != audit.ActionUserLogin {
			t.Fatalf("filter leaked action %s", e.Action)
		}
	}

	bad := c.do(http.MethodGet, "/v1/admin/audit-logs?limit=9999", nil, admin.Tokens.AccessToken)
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("oversized limit: status %d, want 400", bad.StatusCode)
	}
	bad.Body.Close()
}

func TestProfileEndpoints(t *testing.T) {
	c := newTestAPI(t)
	john := c.login("johndoe", "User123")

	var profile auth.PublicAccount
	c.decode(c.do(http.MethodGet, "/v1/profile", nil, john.Tokens.AccessToken), &profile)
	if profile.Username != "johndoe" {
		t.Fatalf("profile = %+v", profile)
	}

	username := "johnny"
	password := "NewPass123"
	resp := c.do(http.MethodPut, "/v1/profile", updateProfileRequest{
		Username: &username, Password: &password,
	}, john.Tokens.AccessToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update profile: status %d, want 200", resp.StatusCode)
	}
	var updated auth.PublicAccount
	c.decode(resp, &updated)
	if updated.Username != "johnny" {
		t.Fatalf("username = %q", updated.Username)
	}

	// Old password no longer works, new one does.
	old := c.do(http.MethodPost, "/v1/auth/login", loginRequest{Identifier: "johnny", Password: "User123"}, "")
	if old.StatusCode != http.StatusUnauthorized {
		t.Fatalf("old password: status %d, want 401", old.StatusCode)
	}
	old.Body.Close()
	c.login("johnny", "NewPass123")
}

func TestGoogleCallback(t *testing.T) {
	c := newTestAPIWithExchanger(t, fakeExchanger{identity: auth.ExternalIdentity{
		Email:   "newcomer@example.com",
		Name:    "newcomer",
		Subject: "google-sub-9",
	}})

	resp := c.do(http.MethodGet, "/v1/auth/google/callback?code=abc", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("callback: status %d, want 200", resp.StatusCode)
	}
	var out loginResponse
	c.decode(resp, &out)
	if out.User.Provider != auth.ProviderGoogle {
		t.Fatalf("provider = %s", out.User.Provider)
	}
	if out.Tokens.AccessToken == "" {
		t.Fatal("expected tokens")
	}

	missingCode := c.do(http.MethodGet, "/v1/auth/google/callback", nil, "")
	if missingCode.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing code: status %d, want 400", missingCode.StatusCode)
	}
	missingCode.Body.Close()
}

func TestGoogleCallbackUnconfigured(t *testing.T) {
	c := newTestAPI(t)

	resp := c.do(http.MethodGet, "/v1/auth/google/callback?code=abc", nil, "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("no exchanger: status %d, want 503", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGoogleCallbackExchangeFailure(t *testing.T) {
	c := newTestAPIWithExchanger(t, fakeExchanger{err: errors.New("provider said no")})

	resp := c.do(http.MethodGet, "/v1/auth/google/callback?code=abc", nil, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("failed exchange: status %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutEndpoint(t *testing.T) {
	c := newTestAPI(t)
	john := c.login("johndoe", "User123")

	resp := c.do(http.MethodPost, "/v1/auth/logout", nil, john.Tokens.AccessToken)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: status %d, want 204", resp.StatusCode)
	}
	resp.Body.Close()

	entries, _ := c.trail.List(context.Background(), audit.Filter{Action: audit.ActionUserLogout})
	if len(entries) != 1 {
		t.Fatalf("logout entries = %d, want 1", len(entries))
	}
}

func TestHealthEndpoints(t *testing.T) {
	c := newTestAPI(t)

	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		resp := c.do(http.MethodGet, path, nil, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d, want 200", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	c := newTestAPI(t)

	resp := c.do(http.MethodGet, "/healthz", nil, "")
	defer resp.Body.Close()
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing security headers")
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
}
