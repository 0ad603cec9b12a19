package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zentriztech/zentriz-genesis/internal/config"
	"github.com/zentriztech/zentriz-genesis/internal/db"
	"github.com/zentriztech/zentriz-genesis/internal/domain"
	"github.com/zentriztech/zentriz-genesis/internal/engine"
	"github.com/zentriztech/zentriz-genesis/internal/migrate"
	"github.com/zentriztech/zentriz-genesis/internal/runner"
)

type testServer struct {
	URL        string
	UploadsDir string
	Runner     *httptest.Server
	RunnerLog  *runnerLog
	client     *http.Client
	close      func()
}

// runnerLog records the dispatch calls the fake runner service receives.
type runnerLog struct {
	runs  []map[string]any
	stops []map[string]any
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	rlog := &runnerLog{}
	runnerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Path {
		case "/run":
			rlog.runs = append(rlog.runs, body)
			w.WriteHeader(http.StatusAccepted)
		case "/stop":
			rlog.stops = append(rlog.stops, body)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	cfg := config.Default()
	cfg.Uploads.Dir = workspace + "/uploads"
	cfg.Runner.ServiceURL = runnerSrv.URL
	disp, err := runner.FromConfig(cfg)
	if err != nil {
		t.Fatalf("build dispatcher: %v", err)
	}
	e := engine.New(conn, cfg, disp)
	seedPortal(t, e)

	handler, err := New(Config{
		Engine:     e,
		BasePath:   cfg.Server.BasePath,
		JWTSecret:  cfg.Auth.JWTSecret,
		UploadsDir: cfg.Uploads.Dir,
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:        "http://" + ln.Addr().String(),
		UploadsDir: cfg.Uploads.Dir,
		Runner:     runnerSrv,
		RunnerLog:  rlog,
		client:     &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			runnerSrv.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

// seedPortal creates one plan, two tenants and three users: alice@acme,
// bob@globex and a platform admin. All passwords are "password123".
func seedPortal(t *testing.T, e engine.Engine) {
	t.Helper()
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	plan := domain.Plan{ID: uuid.NewString(), Slug: "ouro", Name: "Ouro", MaxProjects: 5, MaxUsersPerTenant: 10}
	if err := e.Repo.InsertPlan(ctx, plan); err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	for _, seed := range []struct {
		tenant string
		email  string
		role   string
	}{
		{"acme", "alice@acme.test", domain.RoleUser},
		{"globex", "bob@globex.test", domain.RoleUser},
		{"", "root@zentriz.test", domain.RoleAdmin},
	} {
		u := domain.User{
			ID:           uuid.NewString(),
			Email:        seed.email,
			Name:         seed.email,
			PasswordHash: string(hash),
			Role:         seed.role,
			Status:       "active",
			CreatedAt:    "2026-01-01T00:00:00Z",
		}
		if seed.tenant != "" {
			tid := uuid.NewString()
			if err := e.Repo.InsertTenant(ctx, domain.Tenant{
				ID: tid, Name: seed.tenant, PlanID: plan.ID, Status: "active", CreatedAt: "2026-01-01T00:00:00Z",
			}); err != nil {
				t.Fatalf("seed tenant %s: %v", seed.tenant, err)
			}
			u.TenantID = &tid
		}
		if err := e.Repo.InsertUser(ctx, u); err != nil {
			t.Fatalf("seed user %s: %v", seed.email, err)
		}
	}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, token string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func login(t *testing.T, srv *testServer, email string) string {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/auth/login", map[string]string{
		"email":    email,
		"password": "password123",
	}, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, res.StatusCode, string(data))
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &out); err != nil || out.Token == "" {
		t.Fatalf("login response: %v %s", err, string(data))
	}
	return out.Token
}

// uploadSpec posts a multipart spec submission and returns the new project.
func uploadSpec(t *testing.T, srv *testServer, token, title string, files map[string]string) (domain.Project, *http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("title", title); err != nil {
		t.Fatalf("write title: %v", err)
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		io.WriteString(fw, content)
	}
	mw.Close()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/specs", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, _ := io.ReadAll(res.Body)
	var out struct {
		Project domain.Project `json:"project"`
	}
	if res.StatusCode == http.StatusCreated {
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("unmarshal submit response: %v %s", err, string(data))
		}
	}
	return out.Project, res, data
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/auth/login", map[string]string{
		"email":    "alice@acme.test",
		"password": "wrong",
	}, "")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	srv := newTestServer(t)
	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/projects", nil, "")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", res.StatusCode)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/health", nil, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d, want 200", res.StatusCode)
	}
}

func TestSpecSubmitAndRunFlow(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "alice@acme.test")

	p, res, data := uploadSpec(t, srv, token, "Portal revamp", map[string]string{
		"spec.md": "# Portal revamp\nBuild the thing.",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("submit spec: %d %s", res.StatusCode, string(data))
	}
	if p.Status != domain.StatusSpecSubmitted {
		t.Fatalf("status = %s, want spec_submitted", p.Status)
	}

	runRes, runData := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/projects/"+p.ID+"/run", nil, token)
	if runRes.StatusCode != http.StatusAccepted {
		t.Fatalf("run: %d %s", runRes.StatusCode, string(runData))
	}
	if len(srv.RunnerLog.runs) != 1 {
		t.Fatalf("runner calls = %d, want 1", len(srv.RunnerLog.runs))
	}
	call := srv.RunnerLog.runs[0]
	if call["projectId"] != p.ID || call["token"] == "" || call["specPath"] == "" {
		t.Fatalf("runner payload: %+v", call)
	}

	// second run while running conflicts
	runRes, runData = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/projects/"+p.ID+"/run", nil, token)
	if runRes.StatusCode != http.StatusConflict {
		t.Fatalf("second run: %d %s", runRes.StatusCode, string(runData))
	}

	// the runner token works against the API
	runnerToken, _ := call["token"].(string)
	patchRes, patchData := doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/api/projects/"+p.ID, map[string]any{
		"status":          domain.StatusCTOCharter,
		"charter_summary": "charter ready",
	}, runnerToken)
	if patchRes.StatusCode != http.StatusOK {
		t.Fatalf("runner patch: %d %s", patchRes.StatusCode, string(patchData))
	}
	var patched domain.Project
	if err := json.Unmarshal(patchData, &patched); err != nil {
		t.Fatalf("unmarshal patch: %v", err)
	}
	if patched.Status != domain.StatusCTOCharter || patched.CharterSummary == nil {
		t.Fatalf("patched = %+v", patched)
	}
}

func TestSpecSubmitNonMarkdownPendsConversion(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "alice@acme.test")

	p, res, data := uploadSpec(t, srv, token, "Docs only", map[string]string{
		"brief.pdf": "%PDF-1.4 fake",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("submit: %d %s", res.StatusCode, string(data))
	}
	if p.Status != domain.StatusPendingConversion {
		t.Fatalf("status = %s, want pending_conversion", p.Status)
	}

	// no markdown spec means run is a bad request
	runRes, runData := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/projects/"+p.ID+"/run", nil, token)
	if runRes.StatusCode != http.StatusBadRequest {
		t.Fatalf("run without md: %d %s", runRes.StatusCode, string(runData))
	}
}

func TestSpecSubmitRejectsUnknownExtension(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "alice@acme.test")
	_, res, data := uploadSpec(t, srv, token, "Nope", map[string]string{
		"virus.exe": "MZ",
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
}

func TestStopAndAcceptFlow(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "alice@acme.test")
	p, _, _ := uploadSpec(t, srv, token, "Lifecycle", map[string]string{"spec.md": "# s"})

	// accept before anything ran conflicts
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/projects/"+p.ID+"/accept", nil, token)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("early accept: %d %s", res.StatusCode, string(data))
	}

	if res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/projects/"+p.ID+"/run", nil, token); res.StatusCode != http.StatusAccepted {
		t.Fatalf("run: %d %s", res.StatusCode, string(data))
	}
	if res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/projects/"+p.ID+"/stop", nil, token); res.StatusCode != http.StatusOK {
		t.Fatalf("stop: %d %s", res.StatusCode, string(data))
	}
	if len(srv.RunnerLog.stops) != 1 {
		t.Fatalf("stop notifications = %d, want 1", len(srv.RunnerLog.stops))
	}

	if res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/projects/"+p.ID+"/accept", nil, token); res.StatusCode != http.StatusOK {
		t.Fatalf("accept: %d %s", res.StatusCode, string(data))
	}
	// idempotent
	if res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/projects/"+p.ID+"/accept", nil, token); res.StatusCode != http.StatusOK {
		t.Fatalf("second accept: %d %s", res.StatusCode, string(data))
	}
}

func TestCrossTenantIsolation(t *testing.T) {
	srv := newTestServer(t)
	alice := login(t, srv, "alice@acme.test")
	bob := login(t, srv, "bob@globex.test")
	admin := login(t, srv, "root@zentriz.test")

	p, _, _ := uploadSpec(t, srv, alice, "Secret", map[string]string{"spec.md": "# s"})

	// bob gets 403 on the direct read, 404 everywhere else
	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/projects/"+p.ID, nil, bob)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("bob get: %d, want 403", res.StatusCode)
	}
	for _, call := range []struct {
		method, path string
	}{
		{http.MethodPost, "/run"},
		{http.MethodPost, "/stop"},
		{http.MethodGet, "/dialogue"},
		{http.MethodGet, "/tasks"},
		{http.MethodGet, "/files"},
	} {
		res, data := doJSON(t, srv.Client(), call.method, srv.URL+"/api/projects/"+p.ID+call.path, nil, bob)
		if res.StatusCode != http.StatusNotFound {
			t.Fatalf("bob %s %s: %d %s, want 404", call.method, call.path, res.StatusCode, string(data))
		}
	}

	// bob's listing does not include alice's project
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/projects", nil, bob)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("bob list: %d", res.StatusCode)
	}
	var projects []domain.Project
	json.Unmarshal(data, &projects)
	if len(projects) != 0 {
		t.Fatalf("bob sees %d projects, want 0", len(projects))
	}

	// the platform admin sees it
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/projects/"+p.ID, nil, admin)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("admin get: %d", res.StatusCode)
	}
}

func TestDialogueEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "alice@acme.test")
	p, _, _ := uploadSpec(t, srv, token, "Transcript", map[string]string{"spec.md": "# s"})

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/projects/"+p.ID+"/dialogue", map[string]any{
		"from_role": "cto",
		"summary":   "missing to_role",
	}, token)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid entry: %d %s", res.StatusCode, string(data))
	}

	for _, s := range []string{"charter drafted", "backlog ready"} {
		res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/projects/"+p.ID+"/dialogue", map[string]any{
			"from_role": "cto",
			"to_role":   "pm",
			"summary":   s,
		}, token)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("append: %d %s", res.StatusCode, string(data))
		}
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/projects/"+p.ID+"/dialogue", nil, token)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list: %d", res.StatusCode)
	}
	var entries []domain.DialogueEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(entries) != 2 || entries[0].Summary != "charter drafted" || entries[1].Summary != "backlog ready" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestTaskEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "alice@acme.test")
	p, _, _ := uploadSpec(t, srv, token, "Board", map[string]string{"spec.md": "# s"})

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/projects/"+p.ID+"/tasks", map[string]any{
		"tasks": []map[string]any{
			{"task_id": "T-2", "module": "api", "owner_role": "dev", "status": "ASSIGNED"},
			{"task_id": "T-1", "module": "auth", "owner_role": "dev", "status": "ASSIGNED", "requirements": "login form"},
		},
	}, token)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("upsert: %d %s", res.StatusCode, string(data))
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(tasks) != 2 || tasks[0].TaskID != "T-1" || tasks[1].TaskID != "T-2" {
		t.Fatalf("tasks = %+v", tasks)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/api/projects/"+p.ID+"/tasks/T-1", map[string]any{
		"status":   "DONE",
		"evidence": "tests green",
	}, token)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch task: %d %s", res.StatusCode, string(data))
	}
	var got domain.Task
	json.Unmarshal(data, &got)
	if got.Status != "DONE" || got.Requirements == nil || *got.Requirements != "login form" {
		t.Fatalf("patched task = %+v", got)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/api/projects/"+p.ID+"/tasks/T-404", map[string]any{
		"status": "DONE",
	}, token)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("patch missing task: %d %s", res.StatusCode, string(data))
	}
}

func TestTenantAndUserAdministration(t *testing.T) {
	srv := newTestServer(t)
	alice := login(t, srv, "alice@acme.test")
	admin := login(t, srv, "root@zentriz.test")

	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/tenants", nil, alice)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("alice tenants: %d, want 403", res.StatusCode)
	}
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/tenants", nil, admin)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("admin tenants: %d", res.StatusCode)
	}
	var tenants []domain.Tenant
	json.Unmarshal(data, &tenants)
	if len(tenants) != 2 {
		t.Fatalf("tenants = %d, want 2", len(tenants))
	}
	if tenants[0].Plan == nil {
		t.Fatalf("tenant plan not joined: %+v", tenants[0])
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/users", map[string]any{
		"email":     "carol@acme.test",
		"name":      "Carol",
		"password":  "password123",
		"role":      "user",
		"tenant_id": tenants[0].ID,
	}, admin)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create user: %d %s", res.StatusCode, string(data))
	}

	res, _ = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/users", map[string]any{
		"email":    "mallory@evil.test",
		"name":     "Mallory",
		"password": "password123",
		"role":     "user",
	}, alice)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("alice create user: %d, want 403", res.StatusCode)
	}
}

func TestAdminSpecSubmitWithoutTenant(t *testing.T) {
	srv := newTestServer(t)
	admin := login(t, srv, "root@zentriz.test")

	p, res, data := uploadSpec(t, srv, admin, "Admin filed", map[string]string{
		"spec.md": "# admin",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("admin submit: %d %s", res.StatusCode, string(data))
	}
	if p.TenantID == "" {
		t.Fatalf("admin project has no tenant: %+v", p)
	}
	if p.Status != domain.StatusSpecSubmitted {
		t.Fatalf("status = %s, want spec_submitted", p.Status)
	}
}

func TestPublicPlansAndSignup(t *testing.T) {
	srv := newTestServer(t)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/plans", nil, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("plans: %d %s", res.StatusCode, string(data))
	}
	var plans []domain.Plan
	if err := json.Unmarshal(data, &plans); err != nil || len(plans) != 1 || plans[0].Slug != "ouro" {
		t.Fatalf("plan catalog = %s (err %v)", string(data), err)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/tenant/signup", map[string]string{
		"tenant_name": "initech",
		"plan":        "ouro",
		"email":       "peter@initech.test",
		"name":        "Peter",
		"password":    "password123",
	}, "")
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("signup: %d %s", res.StatusCode, string(data))
	}
	var out struct {
		Token  string        `json:"token"`
		User   domain.User   `json:"user"`
		Tenant domain.Tenant `json:"tenant"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal signup: %v", err)
	}
	if out.User.Role != domain.RoleTenantAdmin || out.Tenant.Name != "initech" || out.Token == "" {
		t.Fatalf("signup response = %+v", out)
	}

	// the minted token is live
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/me", nil, out.Token)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me with signup token: %d", res.StatusCode)
	}

	// tenant names are unique
	res, _ = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/tenant/signup", map[string]string{
		"tenant_name": "initech",
		"plan":        "ouro",
		"email":       "other@initech.test",
		"name":        "Other",
		"password":    "password123",
	}, "")
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate signup: %d, want 409", res.StatusCode)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/tenant/signup", map[string]string{
		"tenant_name": "hooli",
		"plan":        "platina",
		"email":       "g@hooli.test",
		"name":        "G",
		"password":    "password123",
	}, "")
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown plan signup: %d, want 400", res.StatusCode)
	}
}

func TestForeignUploadLeavesNoFile(t *testing.T) {
	srv := newTestServer(t)
	alice := login(t, srv, "alice@acme.test")
	bob := login(t, srv, "bob@globex.test")
	p, _, _ := uploadSpec(t, srv, alice, "Guarded", map[string]string{"spec.md": "# s"})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "sneak.md")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	io.WriteString(fw, "# sneak")
	mw.Close()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/projects/"+p.ID+"/files", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+bob)
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("bob upload: %d, want 404", res.StatusCode)
	}
	if _, err := os.Stat(filepath.Join(srv.UploadsDir, p.ID, "sneak.md")); !os.IsNotExist(err) {
		t.Fatalf("refused upload left a file on disk (stat err = %v)", err)
	}
}

func TestCompletedNotification(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "alice@acme.test")
	p, _, _ := uploadSpec(t, srv, token, "Notify", map[string]string{"spec.md": "# s"})

	res, data := doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/api/projects/"+p.ID, map[string]any{
		"status": domain.StatusCompleted,
	}, token)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/notifications", nil, token)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("notifications: %d", res.StatusCode)
	}
	var ns []domain.Notification
	json.Unmarshal(data, &ns)
	if len(ns) != 1 || ns[0].Type != "project_completed" {
		t.Fatalf("notifications = %+v", ns)
	}
}
