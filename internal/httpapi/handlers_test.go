package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"nexchat.app/internal/analytics"
	"nexchat.app/internal/audit"
	"nexchat.app/internal/content"
	"nexchat.app/internal/directory"
	"nexchat.app/internal/identity"
	"nexchat.app/internal/ledger"
	"nexchat.app/internal/moderation"
	"nexchat.app/internal/session"
	"nexchat.app/internal/stream"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T

	content *content.MemoryStore
	sink    *audit.MemorySink
	idp     *identity.MemoryProvider
}

func newTestAPI(t *testing.T) *apiClient {
	return newTestAPIWithStore(t, nil)
}

// newTestAPIWithStore lets a test wrap the content store, typically to
// inject backend failures on specific writes.
func newTestAPIWithStore(t *testing.T, wrap func(content.Store) content.Store) *apiClient {
	t.Helper()

	sink := audit.NewMemorySink()
	recorder := audit.NewRecorder(sink)
	idp := identity.NewMemoryProvider()

	contentStore := content.NewMemoryStore(stream.New())
	var store content.Store = contentStore
	if wrap != nil {
		store = wrap(contentStore)
	}
	directorySvc := directory.NewService(directory.NewMemoryStore(), idp, recorder)
	sessions := session.NewManager(session.NewMemoryStore(), recorder)

	seedAdmins(t, directorySvc)

	changes := stream.New()
	deps := Deps{
		Sessions:   sessions,
		Directory:  directorySvc,
		Moderation: moderation.NewWorkflow(store, idp, recorder),
		Ledger: ledger.NewService(store, ledger.NewMemoryLog(), ledger.NewSigner("test-secret"), recorder,
			ledger.WithChangeStream(changes)),
		Analytics: analytics.NewService(store),
		Recorder:  recorder,
		Content:   store,
		Changes:   changes,
	}
	api := New(ReadyProbe{}, "test", deps)
	api.rateBurst = 100
	api.ratePerSec = 100

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
		content: contentStore,
		sink:    sink,
		idp:     idp,
	}
}

func seedAdmins(t *testing.T, svc *directory.Service) {
	t.Helper()
	for _, a := range []struct{ email, role string }{
		{"root@nexchat.app", session.RoleSuperAdmin},
		{"mod@nexchat.app", session.RoleModerator},
		{"analyst@nexchat.app", session.RoleAnalyst},
	} {
		if _, err := svc.Create(context.Background(), "seed", a.email, "Seed Admin", "seed-password-1", a.role); err != nil {
			t.Fatalf("seed admin %s: %v", a.email, err)
		}
	}
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
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

func (c *apiClient) del(path string, headers map[string]string) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("delete request: %v", err)
	}
	return resp
}

func (c *apiClient) login(email string) map[string]string {
	c.t.Helper()
	resp := c.post("/v1/auth/login", map[string]any{
		"email":    email,
		"password": "seed-password-1",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("unexpected login status for %s: %d", email, resp.StatusCode)
	}
	var payload loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode login response: %v", err)
	}
	if payload.Token == "" {
		c.t.Fatalf("empty session token issued")
	}
	return map[string]string{"Authorization": "Bearer " + payload.Token}
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

func TestLoginRejectsBadCredentials(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/v1/auth/login", map[string]any{
		"email":    "root@nexchat.app",
		"password": "wrong",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestSessionLifecycle(t *testing.T) {
	api := newTestAPI(t)
	auth := api.login("root@nexchat.app")

	resp := api.get("/v1/auth/session", nil, auth)
	info := decode[map[string]any](t, resp)
	if info["admin_email"] != "root@nexchat.app" || info["role"] != session.RoleSuperAdmin {
		t.Fatalf("session info: %+v", info)
	}

	resp = api.post("/v1/auth/logout", nil, auth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status: %d", resp.StatusCode)
	}
	if api.idp.SignOuts("root@nexchat.app") != 1 {
		t.Fatal("logout must sign the admin out at the identity provider")
	}

	resp = api.get("/v1/auth/session", nil, auth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestAPIRequiresSession(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/v1/users", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["error"] == "" {
		t.Fatalf("expected error message")
	}
}

func TestPermissionEnforcement(t *testing.T) {
	api := newTestAPI(t)
	analystAuth := api.login("analyst@nexchat.app")

	// view_analytics is granted.
	resp := api.get("/v1/analytics/overview", nil, analystAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("analytics for analyst: %d", resp.StatusCode)
	}

	// manage_tokens is not.
	resp = api.post("/v1/tokens/mint", map[string]any{
		"recipient": "u1", "amount": 10,
	}, analystAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for analyst mint, got %d", resp.StatusCode)
	}

	events, err := api.sink.Recent(context.Background(), "analyst@nexchat.app", 10)
	if err != nil {
		t.Fatalf("audit trail: %v", err)
	}
	found := false
	for _, e := range events {
		if e.Type == audit.EventPermissionDenied {
			found = true
		}
	}
	if !found {
		t.Fatal("permission denial not audited")
	}
}

func TestModerationFlow(t *testing.T) {
	api := newTestAPI(t)
	auth := api.login("mod@nexchat.app")
	ctx := context.Background()

	api.content.InsertUser(ctx, content.UserAccount{ID: "u1", Email: "creator@nexchat.app"})
	api.content.InsertVideo(ctx, content.Video{ID: "v1", AuthorID: "u1"})
	api.content.InsertReport(ctx, content.Report{ID: "r1", Kind: content.ReportKindVideo, TargetID: "v1"})

	// Toggle block.
	resp := api.post("/v1/users/u1/block", nil, auth)
	toggled := decode[map[string]any](t, resp)
	if toggled["blocked"] != true {
		t.Fatalf("toggle response: %+v", toggled)
	}

	// Resolve the report by deleting the target video, confirmed.
	resp = api.del("/v1/reports/r1/video?confirm=true", auth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("report video delete status: %d", resp.StatusCode)
	}
	if _, err := api.content.Video(ctx, "v1"); err == nil {
		t.Fatal("video should be deleted")
	}
	r, _ := api.content.Report(ctx, "r1")
	if r.Status != content.ReportStatusResolved || r.ActionTaken != content.ActionVideoDeleted {
		t.Fatalf("report after video deletion: %+v", r)
	}
}

func TestDestructiveOpsRequireConfirmation(t *testing.T) {
	api := newTestAPI(t)
	auth := api.login("root@nexchat.app")
	api.content.InsertUser(context.Background(), content.UserAccount{ID: "u1"})

	resp := api.del("/v1/users/u1", auth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusPreconditionRequired {
		t.Fatalf("expected 428 without confirm, got %d", resp.StatusCode)
	}
	if _, err := api.content.User(context.Background(), "u1"); err != nil {
		t.Fatal("user must survive unconfirmed delete")
	}

	resp = api.del("/v1/users/u1?confirm=true", auth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirmed delete status: %d", resp.StatusCode)
	}
}

func TestMintFlow(t *testing.T) {
	api := newTestAPI(t)
	auth := api.login("root@nexchat.app")
	ctx := context.Background()
	api.content.InsertUser(ctx, content.UserAccount{ID: "u1", Email: "creator@nexchat.app", Tokens: 5})

	resp := api.post("/v1/tokens/mint", map[string]any{
		"recipient": "creator@nexchat.app",
		"amount":    100,
		"note":      "launch bonus",
	}, auth)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("mint status: %d", resp.StatusCode)
	}
	tx := decode[map[string]any](t, resp)
	if tx["amount"].(float64) != 100 || tx["signature"] == "" {
		t.Fatalf("transaction: %+v", tx)
	}

	resp = api.get("/v1/tokens/balance", url.Values{"user": []string{"u1"}}, auth)
	bal := decode[map[string]any](t, resp)
	if bal["balance"].(float64) != 105 {
		t.Fatalf("balance: %+v", bal)
	}

	resp = api.get("/v1/tokens/transactions", url.Values{"limit": []string{"10"}}, auth)
	list := decode[listTransactionsResponse](t, resp)
	if len(list.Items) != 1 || list.Items[0].AdminEmail != "root@nexchat.app" {
		t.Fatalf("transactions: %+v", list.Items)
	}

	// Invalid amounts are rejected before any write.
	resp = api.post("/v1/tokens/mint", map[string]any{
		"recipient": "u1", "amount": -5,
	}, auth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative mint status: %d", resp.StatusCode)
	}
}

func TestBanCreatorReportsPartialFailures(t *testing.T) {
	api := newTestAPI(t)
	auth := api.login("root@nexchat.app")
	ctx := context.Background()
	api.content.InsertUser(ctx, content.UserAccount{ID: "u1"})
	api.content.InsertVideo(ctx, content.Video{ID: "v1", AuthorID: "u1"})
	api.content.InsertVideo(ctx, content.Video{ID: "v2", AuthorID: "u1"})

	resp := api.post("/v1/users/u1/ban?confirm=true", map[string]any{"reason": "spam"}, auth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ban status: %d", resp.StatusCode)
	}
	res := decode[moderation.BanResult](t, resp)
	if !res.Banned || res.DeletedVideos != 2 || len(res.Failures) != 0 {
		t.Fatalf("ban result: %+v", res)
	}
}

// failingReportStore lets report reads through but fails every status write.
type failingReportStore struct {
	content.Store
	err error
}

func (s failingReportStore) SetReportStatus(ctx context.Context, id, status, actionTaken string, at time.Time) error {
	return s.err
}

func TestReportVideoDeleteSurfacesResolveFailure(t *testing.T) {
	api := newTestAPIWithStore(t, func(s content.Store) content.Store {
		return failingReportStore{Store: s, err: errors.New("backend unavailable")}
	})
	auth := api.login("mod@nexchat.app")
	ctx := context.Background()
	api.content.InsertVideo(ctx, content.Video{ID: "v1", AuthorID: "u1"})
	api.content.InsertReport(ctx, content.Report{ID: "r1", Kind: content.ReportKindVideo, TargetID: "v1"})

	resp := api.del("/v1/reports/r1/video?confirm=true", auth)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 when resolve fails after deletion, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	msg, _ := body["error"].(string)
	if !strings.Contains(msg, "video v1 removed") || !strings.Contains(msg, "report r1 still open") {
		t.Fatalf("error must name which step failed: %q", msg)
	}

	// The deletion committed; only the resolve is outstanding.
	if _, err := api.content.Video(ctx, "v1"); err == nil {
		t.Fatal("video should be deleted")
	}
}

func TestDeactivatedAdminLosesLiveSession(t *testing.T) {
	api := newTestAPI(t)
	rootAuth := api.login("root@nexchat.app")
	modAuth := api.login("mod@nexchat.app")

	resp := api.get("/v1/admins", nil, rootAuth)
	payload := decode[map[string][]directory.Admin](t, resp)
	var modID string
	for _, a := range payload["items"] {
		if a.Email == "mod@nexchat.app" {
			modID = a.ID
		}
	}
	if modID == "" {
		t.Fatal("moderator admin not listed")
	}

	resp = api.post("/v1/admins/"+modID+"/status", map[string]any{"active": false}, rootAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deactivate status: %d", resp.StatusCode)
	}

	// The moderator's existing token no longer works.
	resp = api.get("/v1/users", nil, modAuth)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deactivated admin, got %d", resp.StatusCode)
	}
}

func TestAuditTrailEndpoint(t *testing.T) {
	api := newTestAPI(t)
	auth := api.login("root@nexchat.app")

	resp := api.get("/v1/audit/events", url.Values{"limit": []string{"10"}}, auth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("audit events status: %d", resp.StatusCode)
	}
	payload := decode[map[string][]audit.Event](t, resp)
	if len(payload["items"]) == 0 {
		t.Fatal("expected at least the login session event")
	}
}

func TestHealthAndReady(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/healthz", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %d", resp.StatusCode)
	}
	resp = api.get("/readyz", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz: %d", resp.StatusCode)
	}
}
