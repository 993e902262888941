package api

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"riz/pkg/auth"
)

type fakeAccount struct {
	Account
	resetToken  *string
	resetExpiry *time.Time
}

// fakeStore is an in-memory UserStore and SeedStore.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*fakeAccount
	// failWith makes every call return the error.
	failWith error
}

var (
	_ UserStore = (*fakeStore)(nil)
	_ SeedStore = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[int64]*fakeAccount)}
}

func (s *fakeStore) add(acct Account) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	acct.ID = s.nextID
	if acct.Status == "" {
		acct.Status = statusActive
	}
	s.users[acct.ID] = &fakeAccount{Account: acct}
	return acct.ID
}

func (s *fakeStore) get(id int64) *fakeAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func (s *fakeStore) FindByIdentifier(_ context.Context, identifier string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return Account{}, s.failWith
	}
	for _, u := range s.sorted() {
		if u.Identifier == identifier {
			return u.Account, nil
		}
	}
	return Account{}, ErrUserNotFound
}

func (s *fakeStore) FindByID(_ context.Context, id int64) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return Account{}, s.failWith
	}
	u, ok := s.users[id]
	if !ok {
		return Account{}, ErrUserNotFound
	}
	return u.Account, nil
}

func (s *fakeStore) FindForReset(_ context.Context, identifierOrEmail string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return Account{}, s.failWith
	}
	for _, u := range s.sorted() {
		if !u.Active() {
			continue
		}
		if u.Identifier == identifierOrEmail || strings.EqualFold(u.Email, identifierOrEmail) {
			return u.Account, nil
		}
	}
	return Account{}, ErrUserNotFound
}

func (s *fakeStore) SetResetToken(_ context.Context, userID int64, token string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.resetToken, u.resetExpiry = &token, &expiry
	return nil
}

func (s *fakeStore) ClearResetToken(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.resetToken, u.resetExpiry = nil, nil
	return nil
}

func (s *fakeStore) ConsumeResetToken(_ context.Context, token, passwordHash string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return 0, s.failWith
	}
	for _, u := range s.users {
		if u.resetToken == nil || *u.resetToken != token {
			continue
		}
		if !u.resetExpiry.After(now) || !u.Active() {
			continue
		}
		u.PasswordHash = passwordHash
		u.resetToken, u.resetExpiry = nil, nil
		u.UpdatedAt = now
		return u.ID, nil
	}
	return 0, ErrInvalidResetToken
}

func (s *fakeStore) UpdatePasswordHash(_ context.Context, userID int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (s *fakeStore) ListSubordinates(_ context.Context, managerID int64) ([]Subordinate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []Subordinate
	for _, u := range s.sorted() {
		if u.ManagerID == nil || *u.ManagerID != managerID {
			continue
		}
		out = append(out, Subordinate{
			ID:         u.ID,
			Name:       u.Name,
			Identifier: u.Identifier,
			Email:      u.Email,
			Department: u.Department,
			Position:   u.Position,
			Role:       string(u.Role),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeStore) ListTeam(_ context.Context, department string, roles []auth.Role) ([]TeamMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	allowed := make(map[auth.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	var out []TeamMember
	for _, u := range s.sorted() {
		if u.Department != department || !allowed[u.Role] {
			continue
		}
		out = append(out, TeamMember{
			ID:              u.ID,
			Name:            u.Name,
			Position:        string(u.Role),
			Identifier:      u.Identifier,
			Department:      u.Department,
			Email:           u.Email,
			BackgroundColor: u.BackgroundColor,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *fakeStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failWith
}

func (s *fakeStore) CreateAccount(_ context.Context, acct Account) (int64, bool, error) {
	s.mu.Lock()
	if s.failWith != nil {
		s.mu.Unlock()
		return 0, false, s.failWith
	}
	for _, u := range s.users {
		if u.Identifier == acct.Identifier {
			s.mu.Unlock()
			return u.ID, false, nil
		}
		if strings.EqualFold(u.Email, acct.Email) {
			s.mu.Unlock()
			return 0, false, ErrDuplicateEmail
		}
	}
	s.mu.Unlock()
	acct.Email = strings.ToLower(acct.Email)
	return s.add(acct), true, nil
}

func (s *fakeStore) UpdateUser(_ context.Context, userID int64, changes UserChanges) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return Account{}, s.failWith
	}
	u, ok := s.users[userID]
	if !ok {
		return Account{}, ErrUserNotFound
	}
	cols := changes.columns()
	if email, ok := cols["email"].(string); ok {
		for _, other := range s.users {
			if other.ID != userID && strings.EqualFold(other.Email, email) {
				return Account{}, ErrDuplicateEmail
			}
		}
		u.Email = email
	}
	for col, v := range cols {
		str, _ := v.(string)
		switch col {
		case "name":
			u.Name = str
		case "role":
			u.Role = auth.Role(str)
		case "department":
			u.Department = str
		case "directorate":
			u.Directorate = str
		case "position":
			u.Position = str
		case "status":
			u.Status = str
		}
	}
	return u.Account, nil
}

func (s *fakeStore) EmailInUse(_ context.Context, email string, exceptID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, s.failWith
	}
	for _, u := range s.users {
		if u.ID != exceptID && strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) ListAccounts(context.Context) ([]ManagedUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	counts := map[int64]int64{}
	for _, u := range s.users {
		if u.ManagerID != nil {
			counts[*u.ManagerID]++
		}
	}
	out := []ManagedUser{}
	for _, u := range s.sorted() {
		m := ManagedUser{
			ID:               u.ID,
			Identifier:       u.Identifier,
			Email:            u.Email,
			Name:             u.Name,
			Role:             string(u.Role),
			Department:       u.Department,
			Directorate:      u.Directorate,
			Position:         u.Position,
			Status:           u.Status,
			ManagerID:        u.ManagerID,
			SubordinateCount: counts[u.ID],
		}
		if u.ManagerID != nil {
			if mgr, ok := s.users[*u.ManagerID]; ok {
				name := mgr.Name
				m.ManagerName = &name
			}
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeStore) SetManager(ctx context.Context, userID int64, managerID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if managerID != nil {
		lookup := func(_ context.Context, id int64) (*int64, error) {
			m, ok := s.users[id]
			if !ok {
				return nil, ErrUnknownManager
			}
			return m.ManagerID, nil
		}
		if err := checkManagerChain(ctx, userID, *managerID, lookup); err != nil {
			return err
		}
		id := *managerID
		managerID = &id
	}
	u.ManagerID = managerID
	return nil
}

// sorted returns accounts by id; callers hold mu.
func (s *fakeStore) sorted() []*fakeAccount {
	out := make([]*fakeAccount, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var errStoreDown = errors.New("connection refused")
