package services

import (
	"context"
	"sort"
	"sync"

	"kocrou/internal/domain"
	"kocrou/internal/domain/models"
)

type memUsers struct {
	mu    sync.Mutex
	users map[int64]models.User
	next  int64
}

func newMemUsers() *memUsers { return &memUsers{users: map[int64]models.User{}} }

func (m *memUsers) Insert(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.users {
		if other.Email == u.Email {
			return domain.ConflictError{Resource: "utilisateur", Err: domain.ErrEmailTaken}
		}
	}
	m.next++
	u.ID = m.next
	m.users[u.ID] = *u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, domain.NotFoundError{Resource: "utilisateur", Err: domain.ErrUserNotFound}
	}
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, domain.NotFoundError{Resource: "utilisateur", Err: domain.ErrUserNotFound}
}

func (m *memUsers) List(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memUsers) SetAdmin(_ context.Context, id int64, admin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.NotFoundError{Resource: "utilisateur", Err: domain.ErrUserNotFound}
	}
	u.IsAdmin = admin
	m.users[id] = u
	return nil
}

func (m *memUsers) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return domain.NotFoundError{Resource: "utilisateur", Err: domain.ErrUserNotFound}
	}
	delete(m.users, id)
	return nil
}

type memLogs struct {
	mu   sync.Mutex
	logs []models.ActivityLog
}

func (m *memLogs) Insert(_ context.Context, l *models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, *l)
	return nil
}

func (m *memLogs) List(_ context.Context, t models.LogType, limit int) ([]models.ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ActivityLog
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if t == "" || m.logs[i].Type == t {
			out = append(out, m.logs[i])
		}
	}
	return out, nil
}

func (m *memLogs) DeleteAll(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.logs))
	m.logs = nil
	return n, nil
}

type memSettings struct {
	row   *models.Settings
	saves int
}

func (m *memSettings) Get(_ context.Context, defaults models.Settings) (models.Settings, error) {
	if m.row == nil {
		d := defaults
		m.row = &d
	}
	return *m.row, nil
}

func (m *memSettings) Save(_ context.Context, s models.Settings) error {
	m.row = &s
	m.saves++
	return nil
}
