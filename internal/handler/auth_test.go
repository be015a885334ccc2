package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/vitalstack/auth-service/internal/config"
	"github.com/vitalstack/auth-service/internal/handler"
	"github.com/vitalstack/auth-service/internal/model"
	"github.com/vitalstack/auth-service/internal/router"
	"github.com/vitalstack/auth-service/internal/utils"
)

func testConfig() config.Config {
	return config.Config{
		Env:            "test",
		AccessSecret:   "test-access-secret",
		RefreshSecret:  "test-refresh-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     10,
	}
}

type testEnv struct {
	srv    *httptest.Server
	users  *fakeUsers
	tokens *fakeTokens
	cfg    config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()
	users := newFakeUsers()
	tokens := newFakeTokens()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, cfg,
		handler.NewAuthHandler(cfg, users, tokens, nil),
		handler.NewMetricsHandler(users),
		nil) // no redis in tests: limiter is a no-op

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, users: users, tokens: tokens, cfg: cfg}
}

// newBrowser returns a client with a cookie jar, standing in for the
// storefront frontend.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func postJSON(t *testing.T, hc *http.Client, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(blob)
	}
	resp, err := hc.Post(url, "application/json", rd)
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, blob
}

func getJSON(t *testing.T, hc *http.Client, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := hc.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, blob
}

func decodeUser(t *testing.T, blob []byte) model.Public {
	t.Helper()
	var out struct {
		User model.Public `json:"user"`
	}
	if err := json.Unmarshal(blob, &out); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	return out.User
}

// assertNoSecrets fails when a response body leaks password material.
func assertNoSecrets(t *testing.T, blob []byte) {
	t.Helper()
	for _, needle := range []string{"passwordHash", "password_hash", "$2a$", "$2b$"} {
		if bytes.Contains(blob, []byte(needle)) {
			t.Fatalf("response leaks %q: %s", needle, blob)
		}
	}
}

func jarCookie(t *testing.T, hc *http.Client, rawURL, name string) *http.Cookie {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	for _, ck := range hc.Jar.Cookies(u) {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func register(t *testing.T, env *testEnv, hc *http.Client, email, password, name string) model.Public {
	t.Helper()
	resp, blob := postJSON(t, hc, env.srv.URL+"/api/auth/register",
		map[string]string{"email": email, "password": password, "name": name})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", resp.StatusCode, blob)
	}
	assertNoSecrets(t, blob)
	return decodeUser(t, blob)
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	u := register(t, env, newBrowser(t), "a@x.com", "Passw0rd!", "A")
	if u.Email != "a@x.com" || u.Name != "A" || u.Role != model.RoleUser {
		t.Fatalf("unexpected projection: %+v", u)
	}

	browser := newBrowser(t)
	resp, blob := postJSON(t, browser, env.srv.URL+"/api/auth/login",
		map[string]string{"email": "a@x.com", "password": "Passw0rd!"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", resp.StatusCode, blob)
	}
	assertNoSecrets(t, blob)
	if got := decodeUser(t, blob); got.ID != u.ID {
		t.Fatalf("login returned user %d, registered %d", got.ID, u.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, newBrowser(t), "a@x.com", "Passw0rd!", "A")

	resp, blob := postJSON(t, newBrowser(t), env.srv.URL+"/api/auth/register",
		map[string]string{"email": "a@x.com", "password": "other"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(blob), "already exists") {
		t.Fatalf("expected 'already exists' in body: %s", blob)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	for _, body := range []map[string]string{
		{"password": "x"},
		{"email": "a@x.com"},
		{},
	} {
		resp, _ := postJSON(t, newBrowser(t), env.srv.URL+"/api/auth/register", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for %v, got %d", body, resp.StatusCode)
		}
	}
}

func TestLoginFailuresIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, newBrowser(t), "a@x.com", "Passw0rd!", "A")

	_, wrongPw := postJSON(t, newBrowser(t), env.srv.URL+"/api/auth/login",
		map[string]string{"email": "a@x.com", "password": "wrong"})
	_, noUser := postJSON(t, newBrowser(t), env.srv.URL+"/api/auth/login",
		map[string]string{"email": "nobody@x.com", "password": "wrong"})

	// Unknown email and wrong password must produce identical bodies so
	// the endpoint cannot be used to enumerate accounts.
	if string(wrongPw) != string(noUser) {
		t.Fatalf("login failures distinguishable: %s vs %s", wrongPw, noUser)
	}

	resp, _ := postJSON(t, newBrowser(t), env.srv.URL+"/api/auth/login",
		map[string]string{"email": "a@x.com", "password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestLoginSetsSessionCookies(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, newBrowser(t), "a@x.com", "Passw0rd!", "A")

	browser := newBrowser(t)
	resp, _ := postJSON(t, browser, env.srv.URL+"/api/auth/login",
		map[string]string{"email": "a@x.com", "password": "Passw0rd!"})

	var gotAccess, gotRefresh bool
	for _, ck := range resp.Cookies() {
		switch ck.Name {
		case utils.AccessCookie:
			gotAccess = true
			if !ck.HttpOnly {
				t.Fatalf("access cookie not HttpOnly")
			}
		case utils.RefreshCookie:
			gotRefresh = true
			if !ck.HttpOnly {
				t.Fatalf("refresh cookie not HttpOnly")
			}
		}
	}
	if !gotAccess || !gotRefresh {
		t.Fatalf("expected both session cookies, got access=%v refresh=%v", gotAccess, gotRefresh)
	}
}

func TestVerify(t *testing.T) {
	env := newTestEnv(t)
	browser := newBrowser(t)
	register(t, env, browser, "a@x.com", "Passw0rd!", "A")

	resp, _ := getJSON(t, browser, env.srv.URL+"/api/auth/verify")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with session, got %d", resp.StatusCode)
	}

	resp, _ = getJSON(t, newBrowser(t), env.srv.URL+"/api/auth/verify")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", resp.StatusCode)
	}
}

func TestVerifyRejectsExpiredAccessToken(t *testing.T) {
	env := newTestEnv(t)
	// Correctly signed token whose expiry is already in the past.
	expired, err := utils.NewAccessToken(env.cfg.AccessSecret,
		utils.Identity{UserID: 1, Email: "a@x.com", Role: model.RoleUser}, -1)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/api/auth/verify", nil)
	req.AddCookie(&http.Cookie{Name: utils.AccessCookie, Value: expired.Token})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", resp.StatusCode)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	browser := newBrowser(t)
	register(t, env, browser, "a@x.com", "Passw0rd!", "A")

	old := jarCookie(t, browser, env.srv.URL, utils.RefreshCookie)
	if old == nil {
		t.Fatalf("no refresh cookie after register")
	}

	resp, blob := postJSON(t, browser, env.srv.URL+"/api/auth/refresh", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", resp.StatusCode, blob)
	}
	assertNoSecrets(t, blob)

	rotated := jarCookie(t, browser, env.srv.URL, utils.RefreshCookie)
	if rotated == nil || rotated.Value == old.Value {
		t.Fatalf("refresh token was not rotated")
	}

	// The superseded token must be dead even though its own expiry claim
	// is still in the future.
	req, _ := http.NewRequest(http.MethodPost, env.srv.URL+"/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: utils.RefreshCookie, Value: old.Value})
	replay, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	defer func() { _ = replay.Body.Close() }()
	if replay.StatusCode != http.StatusUnauthorized {
		t.Fatalf("replayed refresh token accepted: %d", replay.StatusCode)
	}
}

func TestLogoutSingleUseRefresh(t *testing.T) {
	env := newTestEnv(t)
	browser := newBrowser(t)
	register(t, env, browser, "a@x.com", "Passw0rd!", "A")

	stolen := jarCookie(t, browser, env.srv.URL, utils.RefreshCookie)

	resp, _ := postJSON(t, browser, env.srv.URL+"/api/auth/logout", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}
	for _, ck := range resp.Cookies() {
		if (ck.Name == utils.AccessCookie || ck.Name == utils.RefreshCookie) &&
			(ck.Value != "" || ck.MaxAge >= 0) {
			t.Fatalf("cookie %s not cleared on logout", ck.Name)
		}
	}
	if env.tokens.count() != 0 {
		t.Fatalf("refresh token row survived logout")
	}

	req, _ := http.NewRequest(http.MethodPost, env.srv.URL+"/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: utils.RefreshCookie, Value: stolen.Value})
	replay, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	defer func() { _ = replay.Body.Close() }()
	if replay.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh after logout accepted: %d", replay.StatusCode)
	}
}

func TestLogoutWithoutSessionStillSucceeds(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := postJSON(t, newBrowser(t), env.srv.URL+"/api/auth/logout", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t)
	browser := newBrowser(t)
	register(t, env, browser, "a@x.com", "Passw0rd!", "A")

	access := jarCookie(t, browser, env.srv.URL, utils.AccessCookie)
	req, _ := http.NewRequest(http.MethodPost, env.srv.URL+"/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: utils.RefreshCookie, Value: access.Value})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("access token accepted on refresh endpoint: %d", resp.StatusCode)
	}
}

func TestRefreshWithoutToken(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := postJSON(t, newBrowser(t), env.srv.URL+"/api/auth/refresh", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	browser := newBrowser(t)
	u := register(t, env, browser, "a@x.com", "Passw0rd!", "A")

	resp, blob := getJSON(t, browser, env.srv.URL+"/api/auth/me")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", resp.StatusCode)
	}
	assertNoSecrets(t, blob)
	if got := decodeUser(t, blob); got.ID != u.ID || got.Email != u.Email {
		t.Fatalf("me returned %+v", got)
	}

	// User deleted after the token was issued: token still verifies, the
	// subject no longer resolves.
	env.users.delete(u.ID)
	resp, _ = getJSON(t, browser, env.srv.URL+"/api/auth/me")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted user, got %d", resp.StatusCode)
	}
}

func TestMeRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := getJSON(t, newBrowser(t), env.srv.URL+"/api/auth/me")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAdminRevokeSessions(t *testing.T) {
	env := newTestEnv(t)
	browser := newBrowser(t)
	u := register(t, env, browser, "a@x.com", "Passw0rd!", "A")
	stolen := jarCookie(t, browser, env.srv.URL, utils.RefreshCookie)
	if env.tokens.count() != 1 {
		t.Fatalf("expected one refresh row after register, got %d", env.tokens.count())
	}

	target := fmt.Sprintf("%s/api/admin/users/%d/sessions", env.srv.URL, u.ID)

	// A regular user's own access token is not enough.
	req, _ := http.NewRequest(http.MethodDelete, target, nil)
	resp, err := browser.Do(req)
	if err != nil {
		t.Fatalf("revoke as user: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", resp.StatusCode)
	}

	admin, err := utils.NewAccessToken(env.cfg.AccessSecret,
		utils.Identity{UserID: 999, Email: "ops@x.com", Role: model.RoleAdmin}, 15)
	if err != nil {
		t.Fatalf("mint admin token: %v", err)
	}
	req, _ = http.NewRequest(http.MethodDelete, target, nil)
	req.AddCookie(&http.Cookie{Name: utils.AccessCookie, Value: admin.Token})
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("revoke as admin: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if env.tokens.count() != 0 {
		t.Fatalf("refresh rows survived revocation")
	}

	// The user's refresh credential is dead everywhere.
	req, _ = http.NewRequest(http.MethodPost, env.srv.URL+"/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: utils.RefreshCookie, Value: stolen.Value})
	replay, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	defer func() { _ = replay.Body.Close() }()
	if replay.StatusCode != http.StatusUnauthorized {
		t.Fatalf("refresh after revocation accepted: %d", replay.StatusCode)
	}
}

func TestSyncUser(t *testing.T) {
	env := newTestEnv(t)
	hc := newBrowser(t)

	// First federated sign-in creates a password-less account.
	resp, blob := postJSON(t, hc, env.srv.URL+"/api/auth/sync-user", map[string]string{
		"externalId": "auth0|123", "email": "fed@x.com", "name": "Fed",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, blob)
	}
	created := decodeUser(t, blob)

	// Subsequent sign-ins update in place.
	resp, blob = postJSON(t, hc, env.srv.URL+"/api/auth/sync-user", map[string]string{
		"externalId": "auth0|123", "email": "fed@x.com", "name": "Fed Renamed",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := decodeUser(t, blob); got.ID != created.ID || got.Name != "Fed Renamed" {
		t.Fatalf("sync did not update existing user: %+v", got)
	}

	// A password account with a matching email gets linked, not duplicated.
	pw := register(t, env, newBrowser(t), "linked@x.com", "Passw0rd!", "L")
	resp, blob = postJSON(t, hc, env.srv.URL+"/api/auth/sync-user", map[string]string{
		"externalId": "auth0|456", "email": "linked@x.com",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for linked account, got %d", resp.StatusCode)
	}
	if got := decodeUser(t, blob); got.ID != pw.ID {
		t.Fatalf("expected link to user %d, got %d", pw.ID, got.ID)
	}

	resp, _ = postJSON(t, hc, env.srv.URL+"/api/auth/sync-user", map[string]string{"email": "x@x.com"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without external id, got %d", resp.StatusCode)
	}
}
