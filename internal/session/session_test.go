package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garnizeh/ats/internal/models"
	"github.com/garnizeh/ats/internal/session"
	pub "github.com/garnizeh/ats/pkg/models"
	"github.com/garnizeh/ats/pkg/repository/mock"
)

type fakeNav struct {
	mu       sync.Mutex
	location string
	visits   []string
}

func (n *fakeNav) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

func (n *fakeNav) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.location = path
	n.visits = append(n.visits, path)
}

type fakeAuth struct {
	res pub.AuthResult
	err error
}

func (f fakeAuth) Login(ctx context.Context, creds pub.Credentials) (pub.AuthResult, error) {
	return f.res, f.err
}

func (f fakeAuth) Register(ctx context.Context, reg pub.Registration) (pub.AuthResult, error) {
	return f.res, f.err
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "exp": exp.Unix()}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestOpen_RestoresStoredSession(t *testing.T) {
	repo := &mock.SessionRepo{Stored: &models.Session{Token: "opaque", User: pub.User{ID: 1, Username: "rita"}}}
	s, err := session.Open(context.Background(), repo)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Token() != "opaque" {
		t.Fatalf("unexpected token %q", s.Token())
	}
	u, ok := s.User()
	if !ok || u.Username != "rita" {
		t.Fatalf("unexpected user %#v %v", u, ok)
	}
}

func TestOpen_DiscardsExpiredJWT(t *testing.T) {
	repo := &mock.SessionRepo{Stored: &models.Session{Token: signed(t, time.Now().Add(-time.Minute))}}
	s, err := session.Open(context.Background(), repo)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Authenticated() {
		t.Fatalf("expired token must be discarded")
	}
	if stored, _, clears := repo.Snapshot(); stored != nil || clears != 1 {
		t.Fatalf("expected persisted session cleared, stored=%v clears=%d", stored, clears)
	}

	live := signed(t, time.Now().Add(time.Hour))
	repo = &mock.SessionRepo{Stored: &models.Session{Token: live}}
	s, err = session.Open(context.Background(), repo)
	if err != nil || s.Token() != live {
		t.Fatalf("live token must be kept: %v", err)
	}
}

func TestOpen_LoadError(t *testing.T) {
	boom := errors.New("disk gone")
	if _, err := session.Open(context.Background(), &mock.SessionRepo{LoadErr: boom}); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestLoginPersistsAndLogoutCancels(t *testing.T) {
	repo := &mock.SessionRepo{}
	s, err := session.Open(context.Background(), repo)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	auth := fakeAuth{res: pub.AuthResult{Token: "tok", UserID: 2, Username: "rita", Email: "rita@example.com"}}
	u, err := s.Login(context.Background(), auth, pub.Credentials{Username: "rita", Password: "pw"})
	if err != nil || u.ID != 2 {
		t.Fatalf("Login: %#v, %v", u, err)
	}
	if stored, saves, _ := repo.Snapshot(); stored == nil || stored.Token != "tok" || saves != 1 {
		t.Fatalf("expected persisted login, got %#v", stored)
	}

	ctx := s.Context()
	if err := s.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatalf("logout must cancel the session context")
	}
	if s.Authenticated() {
		t.Fatalf("expected no token after logout")
	}

	// a new login gets a fresh, live context
	if _, err := s.Login(context.Background(), auth, pub.Credentials{}); err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if s.Context().Err() != nil {
		t.Fatalf("expected live context after re-login")
	}
}

func TestLogin_FailureKeepsState(t *testing.T) {
	repo := &mock.SessionRepo{}
	s, _ := session.Open(context.Background(), repo)
	boom := errors.New("Invalid credentials")
	if _, err := s.Login(context.Background(), fakeAuth{err: boom}, pub.Credentials{}); !errors.Is(err, boom) {
		t.Fatalf("expected login error, got %v", err)
	}
	if _, saves, _ := repo.Snapshot(); saves != 0 {
		t.Fatalf("failed login must not persist")
	}
}

func TestHandleUnauthorized_OncePerSession(t *testing.T) {
	repo := &mock.SessionRepo{Stored: &models.Session{Token: "tok"}}
	nav := &fakeNav{location: "/applicants"}
	s, err := session.Open(context.Background(), repo, session.WithNavigator(nav))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.HandleUnauthorized()
		}()
	}
	wg.Wait()

	if s.Authenticated() {
		t.Fatalf("token must be cleared")
	}
	if len(nav.visits) != 1 || nav.visits[0] != session.LoginPath {
		t.Fatalf("expected exactly one redirect to login, got %v", nav.visits)
	}
	if stored, _, clears := repo.Snapshot(); stored != nil || clears != 1 {
		t.Fatalf("expected one clear, got stored=%v clears=%d", stored, clears)
	}
}

func TestHandleUnauthorized_NoRedirectOnLoginPage(t *testing.T) {
	repo := &mock.SessionRepo{Stored: &models.Session{Token: "tok"}}
	nav := &fakeNav{location: session.LoginPath}
	s, _ := session.Open(context.Background(), repo, session.WithNavigator(nav))

	s.HandleUnauthorized()
	if len(nav.visits) != 0 {
		t.Fatalf("must not redirect when already on the login page, got %v", nav.visits)
	}
	if s.Authenticated() {
		t.Fatalf("token must still be cleared")
	}
}
