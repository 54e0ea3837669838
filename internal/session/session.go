package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garnizeh/ats/internal/models"
	pub "github.com/garnizeh/ats/pkg/models"
	"github.com/garnizeh/ats/pkg/repository"
)

// LoginPath is the location the user is sent to after the session ends.
const LoginPath = "/login"

var ErrNotLoggedIn = errors.New("not logged in")

// Navigator exposes the current location and moves the user elsewhere.
type Navigator interface {
	Location() string
	Navigate(path string)
}

// Authenticator is the subset of the API client used to obtain a token.
type Authenticator interface {
	Login(ctx context.Context, creds pub.Credentials) (pub.AuthResult, error)
	Register(ctx context.Context, reg pub.Registration) (pub.AuthResult, error)
}

// Session is the process-wide login state. Its Context is cancelled when the
// session ends, aborting every request made on its behalf.
type Session struct {
	repo   repository.SessionRepo
	nav    Navigator
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	token    string
	user     pub.User
	ctx      context.Context
	cancel   context.CancelFunc
	tornDown bool
}

type Option func(*Session)

func WithNavigator(n Navigator) Option { return func(s *Session) { s.nav = n } }

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// Open restores the persisted session, if any. An expired JWT is discarded
// and the stored state cleared.
func Open(ctx context.Context, repo repository.SessionRepo, opts ...Option) (*Session, error) {
	s := &Session{
		repo:   repo,
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	stored, err := repo.LoadSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if stored == nil || stored.Token == "" {
		return s, nil
	}

	if expired(stored.Token, s.now()) {
		s.logger.Info("session: stored token expired, discarding", "user", stored.User.Username)
		if err := repo.ClearSession(ctx); err != nil {
			return nil, fmt.Errorf("clear expired session: %w", err)
		}
		return s, nil
	}

	s.token = stored.Token
	s.user = stored.User
	return s, nil
}

// expired reports whether token is a JWT whose exp lies before now. Opaque
// tokens never expire client-side.
func expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the logged-in user and whether there is one.
func (s *Session) User() (pub.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.token != ""
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Context is done once the current session ends.
func (s *Session) Context() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

// Establish stores res as the current login and persists it.
func (s *Session) Establish(ctx context.Context, res pub.AuthResult) error {
	if res.Token == "" {
		return errors.New("auth result carries no token")
	}
	if err := s.repo.SaveSession(ctx, &models.Session{Token: res.Token, User: res.User()}); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.token = res.Token
	s.user = res.User()
	if s.tornDown {
		s.ctx, s.cancel = context.WithCancel(context.Background())
		s.tornDown = false
	}
	s.mu.Unlock()

	s.logger.Info("session: established", "user", res.Username)
	return nil
}

// Login authenticates through api and establishes the session.
func (s *Session) Login(ctx context.Context, api Authenticator, creds pub.Credentials) (pub.User, error) {
	res, err := api.Login(ctx, creds)
	if err != nil {
		return pub.User{}, err
	}
	if err := s.Establish(ctx, res); err != nil {
		return pub.User{}, err
	}
	return res.User(), nil
}

func (s *Session) Register(ctx context.Context, api Authenticator, reg pub.Registration) (pub.User, error) {
	res, err := api.Register(ctx, reg)
	if err != nil {
		return pub.User{}, err
	}
	if err := s.Establish(ctx, res); err != nil {
		return pub.User{}, err
	}
	return res.User(), nil
}

// Logout ends the session: persisted state is cleared and pending
// authenticated requests are cancelled.
func (s *Session) Logout(ctx context.Context) error {
	s.teardown()
	if err := s.repo.ClearSession(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// HandleUnauthorized reacts to a rejected token. It runs at most once per
// session; the navigator is sent to LoginPath unless already there.
func (s *Session) HandleUnauthorized() {
	if !s.teardown() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.ClearSession(ctx); err != nil {
		s.logger.Error("session: clear after 401", "err", err)
	}

	s.logger.Warn("session: token rejected, logged out")
	if s.nav != nil && s.nav.Location() != LoginPath {
		s.nav.Navigate(LoginPath)
	}
}

// teardown clears in-memory state and cancels the session context. It
// reports whether this call ended a live session.
func (s *Session) teardown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown {
		return false
	}
	s.tornDown = true
	s.token = ""
	s.user = pub.User{}
	s.cancel()
	return true
}
