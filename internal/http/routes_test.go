package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/potatoreg/internal/auth"
	healthctl "github.com/dropDatabas3/potatoreg/internal/http/controllers/health"
	rbacctl "github.com/dropDatabas3/potatoreg/internal/http/controllers/rbac"
	registryctl "github.com/dropDatabas3/potatoreg/internal/http/controllers/registry"
	simplectl "github.com/dropDatabas3/potatoreg/internal/http/controllers/simple"
	ssoctl "github.com/dropDatabas3/potatoreg/internal/http/controllers/ssoflow"
	usersctl "github.com/dropDatabas3/potatoreg/internal/http/controllers/users"
	rbacsvc "github.com/dropDatabas3/potatoreg/internal/http/services/rbac"
	registrysvc "github.com/dropDatabas3/potatoreg/internal/http/services/registry"
	ssosvc "github.com/dropDatabas3/potatoreg/internal/http/services/ssoflow"
	userssvc "github.com/dropDatabas3/potatoreg/internal/http/services/users"
	jwtx "github.com/dropDatabas3/potatoreg/internal/jwt"
	"github.com/dropDatabas3/potatoreg/internal/security/password"
	"github.com/dropDatabas3/potatoreg/internal/sso"
	"github.com/dropDatabas3/potatoreg/internal/storage"
	"github.com/dropDatabas3/potatoreg/internal/store/core"
	"github.com/dropDatabas3/potatoreg/internal/store/memory"
)

type testApp struct {
	handler http.Handler
	store   core.Store
	issuer  *jwtx.Issuer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	disk, err := storage.NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk err: %v", err)
	}
	issuer, err := jwtx.NewIssuer("test-secret", "HS256", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer err: %v", err)
	}

	for _, seed := range []struct {
		username, pass string
		super          bool
	}{
		{"root", "rootpass", true},
		{"dev", "devpass", false},
	} {
		hash, _ := password.HashDefault(seed.pass)
		if err := st.Users().Create(ctx, &core.User{
			Username: seed.username, PasswordHash: hash, Active: true, Superuser: seed.super,
		}); err != nil {
			t.Fatalf("seed %s: %v", seed.username, err)
		}
	}

	resolver := auth.NewResolver(st.Users(), issuer)
	loginSvc := userssvc.NewLoginService(userssvc.LoginDeps{
		Resolver: resolver, Issuer: issuer, Users: st.Users(), LocalEnabled: true,
	})
	indexSvc := registrysvc.NewIndexService(registrysvc.IndexDeps{
		Users: st.Users(), Packages: st.Packages(), Storage: disk,
	})
	uploadSvc := registrysvc.NewUploadService(registrysvc.UploadDeps{
		Packages: st.Packages(), Storage: disk,
	})
	packageSvc := registrysvc.NewPackageService(registrysvc.PackageDeps{
		Users: st.Users(), Packages: st.Packages(), Storage: disk,
	})
	ssoSvc := ssosvc.New(ssosvc.Deps{
		Enabled:     false,
		Provisioner: sso.NewProvisioner(st, false),
		Issuer:      issuer,
		Users:       st.Users(),
	})

	handler := NewRouter(RouterDeps{
		Resolver: resolver,
		Health:   healthctl.New("potatoreg", "test", st),
		Token:    usersctl.NewTokenController(loginSvc),
		Users: usersctl.NewUsersController(
			userssvc.NewCrudService(userssvc.CrudDeps{Users: st.Users()}),
			userssvc.NewTokenService(userssvc.TokenDeps{Users: st.Users()}),
		),
		Simple:   simplectl.New(indexSvc),
		Upload:   registryctl.NewUploadController(uploadSvc, nil),
		Packages: registryctl.NewPackagesController(packageSvc),
		RBAC: rbacctl.New(rbacsvc.New(rbacsvc.Deps{
			Users: st.Users(), Roles: st.Roles(), Packages: st.Packages(),
		})),
		SSO: ssoctl.New(ssoSvc),
	})
	return &testApp{handler: handler, store: st, issuer: issuer}
}

func (a *testApp) request(t *testing.T, method, path, bearer string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) login(t *testing.T, username, pass string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": pass})
	rec := a.request(t, http.MethodPost, "/api/users/token", "", bytes.NewReader(body), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", username, rec.Code, rec.Body)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if out.AccessToken == "" {
		t.Fatal("login returned empty token")
	}
	return out.AccessToken
}

func (a *testApp) uploadArtifact(t *testing.T, bearer, name, version, filename string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("name", name)
	_ = mw.WriteField("version", version)
	fw, _ := mw.CreateFormFile("content", filename)
	_, _ = fw.Write([]byte("artifact bytes for " + filename))
	_ = mw.Close()
	return a.request(t, http.MethodPost, "/upload/", bearer, &buf, mw.FormDataContentType())
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)
	if rec := app.request(t, http.MethodGet, "/health", "", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("/health = %d", rec.Code)
	}
	if rec := app.request(t, http.MethodGet, "/readyz", "", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("/readyz = %d", rec.Code)
	}
}

func TestLoginAndSimpleIndexFlow(t *testing.T) {
	app := newTestApp(t)
	tok := app.login(t, "dev", "devpass")

	if rec := app.uploadArtifact(t, tok, "demo", "1.0.0", "demo-1.0.0.whl"); rec.Code != http.StatusCreated {
		t.Fatalf("upload = %d body %s", rec.Code, rec.Body)
	}

	rec := app.request(t, http.MethodGet, "/simple/", tok, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/simple/ = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content-type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `<a href="/simple/demo/">demo</a>`) {
		t.Fatalf("index body: %s", rec.Body)
	}

	rec = app.request(t, http.MethodGet, "/simple/demo/", tok, nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "demo-1.0.0.whl") {
		t.Fatalf("package page = %d body %s", rec.Code, rec.Body)
	}

	rec = app.request(t, http.MethodGet, "/simple/demo/demo-1.0.0.whl", tok, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download = %d", rec.Code)
	}
	if got := rec.Body.String(); got != "artifact bytes for demo-1.0.0.whl" {
		t.Fatalf("download body = %q", got)
	}
}

func TestSimpleIndex_RequiresAuth(t *testing.T) {
	app := newTestApp(t)
	rec := app.request(t, http.MethodGet, "/simple/", "", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if hint := rec.Header().Get("WWW-Authenticate"); !strings.Contains(hint, "Basic") || !strings.Contains(hint, "Bearer") {
		t.Fatalf("WWW-Authenticate = %q, want both schemes", hint)
	}
}

func TestSimpleIndex_BasicAuthWorks(t *testing.T) {
	app := newTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/simple/", nil)
	req.SetBasicAuth("dev", "devpass")
	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("basic auth index = %d", rec.Code)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	app := newTestApp(t)
	body, _ := json.Marshal(map[string]string{"username": "dev", "password": "nope"})
	rec := app.request(t, http.MethodPost, "/api/users/token", "", bytes.NewReader(body), "application/json")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	// login nunca se cachea
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("Cache-Control = %q", cc)
	}
}

func TestAdminRoutes_RequireSuperuser(t *testing.T) {
	app := newTestApp(t)
	devTok := app.login(t, "dev", "devpass")
	rootTok := app.login(t, "root", "rootpass")

	// listado de usuarios: solo superuser
	if rec := app.request(t, http.MethodGet, "/api/users/", devTok, nil, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("dev on /api/users/ = %d, want 403", rec.Code)
	}
	if rec := app.request(t, http.MethodGet, "/api/users/", rootTok, nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("root on /api/users/ = %d, want 200", rec.Code)
	}
}

func TestLabelVisibilityOverHTTP(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	devTok := app.login(t, "dev", "devpass")
	rootTok := app.login(t, "root", "rootpass")

	if rec := app.uploadArtifact(t, devTok, "secret-pkg", "1.0.0", "secret_pkg-1.0.0.whl"); rec.Code != http.StatusCreated {
		t.Fatalf("upload = %d", rec.Code)
	}
	if err := app.store.Packages().SetLabels(ctx, "secret-pkg", []string{"platform"}); err != nil {
		t.Fatalf("SetLabels err: %v", err)
	}

	// sin label: 404, indistinguible de inexistente
	if rec := app.request(t, http.MethodGet, "/simple/secret-pkg/", devTok, nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("invisible package = %d, want 404", rec.Code)
	}
	// superuser lo ve
	if rec := app.request(t, http.MethodGet, "/simple/secret-pkg/", rootTok, nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("superuser = %d, want 200", rec.Code)
	}
}

func TestUpload_DuplicateIsConflict(t *testing.T) {
	app := newTestApp(t)
	tok := app.login(t, "dev", "devpass")
	if rec := app.uploadArtifact(t, tok, "demo", "1.0.0", "demo-1.0.0.whl"); rec.Code != http.StatusCreated {
		t.Fatalf("first upload = %d", rec.Code)
	}
	if rec := app.uploadArtifact(t, tok, "demo", "1.0.0", "demo-1.0.0.whl"); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate upload = %d, want 409", rec.Code)
	}
}

func TestSSODisabled(t *testing.T) {
	app := newTestApp(t)
	rec := app.request(t, http.MethodGet, "/sso/login", "", nil, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("/sso/login = %d, want 503", rec.Code)
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	app := newTestApp(t)
	rec := app.request(t, http.MethodGet, "/nope", "", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("404 body is not JSON: %s", rec.Body)
	}
}
