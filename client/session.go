// Package client is the Go consumer of the auth service: it mirrors the
// server session the way the storefront frontend does, caches the signed-in
// user locally, polls the verify endpoint while a user is present and forces
// a local logout the moment the session stops verifying. Tokens themselves
// never surface here; they ride in HTTP-only cookies managed by the jar.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/vitalstack/auth-service/internal/model"
)

const defaultPollInterval = 60 * time.Second

// Options tune a Session. Zero values get sensible defaults.
type Options struct {
	Cache            Cache         // advisory local cache; nil disables caching
	PollInterval     time.Duration // verify polling period, default 60s
	HTTPClient       *http.Client  // default: fresh client with a cookie jar
	OnSessionExpired func()        // invoked after a forced logout
}

// Session is the client-side session controller. All methods are safe for
// concurrent use.
type Session struct {
	base string
	http *http.Client
	opts Options

	mu      sync.Mutex
	user    *model.Public
	loading bool
}

// New builds a Session against the service at baseURL and rehydrates state
// from the local cache. The cache is advisory, never authoritative: a stale
// cached user is cleared by the first verify poll.
func New(baseURL string, opts Options) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	hc := opts.HTTPClient
	if hc == nil {
		jar, _ := cookiejar.New(nil)
		hc = &http.Client{Jar: jar, Timeout: 10 * time.Second}
	}
	s := &Session{base: baseURL, http: hc, opts: opts, loading: true}
	if opts.Cache != nil {
		if u, err := opts.Cache.Load(); err == nil && u != nil {
			s.user = u
		}
	}
	s.loading = false
	return s
}

// Current returns a copy of the signed-in user, if any.
func (s *Session) Current() (model.Public, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return model.Public{}, false
	}
	return *s.user, true
}

// Loading reports whether the session is still rehydrating.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Login authenticates and adopts the returned user projection. On failure
// the server's message is surfaced unchanged.
func (s *Session) Login(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, "/api/auth/login", map[string]string{
		"email": email, "password": password,
	})
}

// Signup registers a new account; the server logs the caller in immediately,
// so the returned user is adopted the same way as Login.
func (s *Session) Signup(ctx context.Context, name, email, password string) error {
	return s.authenticate(ctx, "/api/auth/register", map[string]string{
		"name": name, "email": email, "password": password,
	})
}

func (s *Session) authenticate(ctx context.Context, path string, body map[string]string) error {
	resp, err := s.post(ctx, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return errors.New(serverMessage(resp.Body))
	}
	var out struct {
		User model.Public `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode user: %w", err)
	}
	s.adopt(&out.User)
	return nil
}

// Logout tears the session down. The server call is best-effort; local
// state is cleared unconditionally even when the network call fails.
func (s *Session) Logout(ctx context.Context) {
	if resp, err := s.post(ctx, "/api/auth/logout", nil); err == nil {
		_ = resp.Body.Close()
	}
	s.clear()
}

// Verify probes the server session once. A non-success response forces a
// local logout and returns an error.
func (s *Session) Verify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/api/auth/verify", nil)
	if err != nil {
		return err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		s.forceLogout()
		return errors.New("session expired")
	}
	return nil
}

// Start polls Verify on the configured interval for as long as a user is
// present, until ctx is cancelled. This is a polling liveness check; the
// server never pushes invalidations.
func (s *Session) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.opts.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, ok := s.Current(); !ok {
					continue
				}
				_ = s.Verify(ctx)
			}
		}
	}()
}

// UpdateFitnessMetrics merges the patch into local state optimistically,
// then persists it. A 401 takes the same forced-logout path as Verify. Any
// other failure keeps the optimistic value and logs; the next successful
// call reconciles local state to the server's returned document.
func (s *Session) UpdateFitnessMetrics(ctx context.Context, patch model.MetricsPatch) error {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return errors.New("not signed in")
	}
	if patch.LastCalculated == "" {
		patch.LastCalculated = time.Now().UTC().Format(time.RFC3339)
	}
	patch.Apply(&s.user.Metrics)
	s.persistLocked()
	s.mu.Unlock()

	resp, err := s.post(ctx, "/api/user/metrics", patch)
	if err != nil {
		log.Printf("client: persist metrics: %v", err)
		return nil // optimistic value stands
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		s.forceLogout()
		return errors.New("session expired")
	case resp.StatusCode != http.StatusOK:
		log.Printf("client: persist metrics: %s", serverMessage(resp.Body))
		return nil
	}

	// Reconcile to the server's merged document.
	var out struct {
		Metrics model.FitnessMetrics `json:"fitnessMetrics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil
	}
	s.mu.Lock()
	if s.user != nil {
		s.user.Metrics = out.Metrics
		s.persistLocked()
	}
	s.mu.Unlock()
	return nil
}

func (s *Session) adopt(u *model.Public) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
	s.persistLocked()
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	if s.opts.Cache != nil {
		if err := s.opts.Cache.Clear(); err != nil {
			log.Printf("client: clear cache: %v", err)
		}
	}
}

func (s *Session) forceLogout() {
	s.clear()
	if s.opts.OnSessionExpired != nil {
		s.opts.OnSessionExpired()
	}
}

// persistLocked writes the current user to the cache. Caller holds mu.
func (s *Session) persistLocked() {
	if s.opts.Cache == nil {
		return
	}
	var err error
	if s.user != nil {
		err = s.opts.Cache.Save(s.user)
	} else {
		err = s.opts.Cache.Clear()
	}
	if err != nil {
		log.Printf("client: persist cache: %v", err)
	}
}

func (s *Session) post(ctx context.Context, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(blob)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.http.Do(req)
}

// serverMessage pulls the error text out of a response body, falling back to
// a generic message when the body is not the expected shape.
func serverMessage(r io.Reader) string {
	var out struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&out); err == nil {
		if out.Error != "" {
			return out.Error
		}
		if out.Message != "" {
			return out.Message
		}
	}
	return "request failed"
}
