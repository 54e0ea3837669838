package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/garnizeh/ats/internal/models"
)

// SessionRepo is an in-memory repository.SessionRepo for tests.
type SessionRepo struct {
	mu      sync.Mutex
	Stored  *models.Session
	LoadErr error
	SaveErr error
	Saves   int
	Clears  int
}

func (m *SessionRepo) LoadSession(ctx context.Context) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.Stored == nil {
		return nil, nil
	}
	s := *m.Stored
	return &s, nil
}

func (m *SessionRepo) SaveSession(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	cp := *s
	m.Stored = &cp
	m.Saves++
	return nil
}

func (m *SessionRepo) ClearSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stored = nil
	m.Clears++
	return nil
}

// Snapshot returns the stored session and the call counters.
func (m *SessionRepo) Snapshot() (stored *models.Session, saves, clears int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Stored, m.Saves, m.Clears
}

// UserRepo is an in-memory repository.UserRepo for tests.
type UserRepo struct {
	mu        sync.Mutex
	Users     []models.User
	CreateErr error
	GetErr    error
}

func (m *UserRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	cp := *u
	cp.ID = int64(len(m.Users) + 1)
	m.Users = append(m.Users, cp)
	return cp.ID, nil
}

func (m *UserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.ID == id })
}

func (m *UserRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.Username == username })
}

func (m *UserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.find(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *UserRepo) find(match func(models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, u := range m.Users {
		if match(u) {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}
