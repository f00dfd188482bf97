// Package session holds the credential a calendar session talks to the
// remote service with. A *Session is created once and passed explicitly to
// every controller; nothing reads credentials from package state.
package session

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"weekcal/internal/api"
	"weekcal/internal/apperr"
	"weekcal/internal/config"
	appLog "weekcal/internal/log"
)

// Authenticator is the part of the remote contract a session needs.
type Authenticator interface {
	// Register creates the account. An "already exists" answer is not an
	// error.
	Register(ctx context.Context, username, email, password string) error
	// Login exchanges credentials for a bearer token.
	Login(ctx context.Context, username, password string) (string, error)
}

// state is the persisted form.
type state struct {
	Token     string `yaml:"token"`
	TokenType string `yaml:"token_type,omitempty"`
	Onboarded bool   `yaml:"onboarded"`
}

// Session is safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	path  string
	creds config.CredentialsConfig
	st    state
}

// New returns an in-memory session. A non-empty path makes Save and the
// setters persist the state there.
func New(path string, creds config.CredentialsConfig) *Session {
	return &Session{path: path, creds: creds}
}

// Open loads the state file at path; a missing file is an empty session.
func Open(path string, creds config.CredentialsConfig) (*Session, error) {
	s := New(path, creds)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, &s.st); err != nil {
		return nil, err
	}
	return s, nil
}

// Token returns the bearer credential, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Token
}

// Authenticated reports whether a credential is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Onboarded reports whether the onboarding marker is set.
func (s *Session) Onboarded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Onboarded
}

// SetToken stores a credential and persists it.
func (s *Session) SetToken(token string) error {
	s.mu.Lock()
	s.st.Token = token
	s.st.TokenType = "bearer"
	s.mu.Unlock()
	return s.Save()
}

// MarkOnboarded sets the onboarding marker and persists it.
func (s *Session) MarkOnboarded() error {
	s.mu.Lock()
	s.st.Onboarded = true
	s.mu.Unlock()
	return s.Save()
}

// Logout drops the credential. The onboarding marker is kept.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.st.Token = ""
	s.st.TokenType = ""
	s.mu.Unlock()
	return s.Save()
}

// Save writes the state file. In-memory sessions do nothing.
func (s *Session) Save() error {
	if s.path == "" {
		return nil
	}
	s.mu.RLock()
	data, err := yaml.Marshal(s.st)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(s.path, data, ".weekcal-state-*.tmp")
}

// Ensure makes sure a credential is held: with none, it registers the
// configured account (an existing account is fine) and logs in. A refused
// login is an auth failure; an unreachable service is a network failure.
func (s *Session) Ensure(ctx context.Context, auth Authenticator) error {
	if s.Authenticated() {
		return nil
	}
	if s.creds.Username == "" || s.creds.Password == "" {
		return apperr.Auth("not logged in and no credentials configured", nil)
	}

	if err := auth.Register(ctx, s.creds.Username, s.creds.Email, s.creds.Password); err != nil {
		// Login below decides whether the account is usable.
		appLog.Warn("register failed, trying login", "username", s.creds.Username, "err", err)
	}

	token, err := auth.Login(ctx, s.creds.Username, s.creds.Password)
	if err != nil {
		switch api.StatusCode(err) {
		case http.StatusUnauthorized, http.StatusBadRequest:
			return apperr.Auth("incorrect username or password", err)
		}
		// Transport and server failures are not a credential problem.
		return api.Classify("could not reach the login service", err)
	}
	if err := s.SetToken(token); err != nil {
		appLog.Error("session state save failed", err, "path", s.path)
	}
	appLog.Info("session logged in", "username", s.creds.Username)
	return nil
}
