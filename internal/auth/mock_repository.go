package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type mockRepository struct {
	mu     sync.RWMutex
	users  map[uint]*User
	tokens map[string]*PasswordResetToken
	nextID uint
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:  make(map[uint]*User),
		tokens: make(map[string]*PasswordResetToken),
		nextID: 1,
	}
}

func (r *mockRepository) CreateUser(user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.Email = NormalizeEmail(user.Email)
	for _, u := range r.users {
		if u.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	for _, u := range r.users {
		if u.Phone == user.Phone {
			return ErrDuplicatePhone
		}
	}

	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *mockRepository) GetUserByID(id uint) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *mockRepository) GetUserByEmail(email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *mockRepository) GetUserByPhone(phone string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Phone == phone {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *mockRepository) GetUserByIdentifier(identifier string) (*User, error) {
	if strings.Contains(identifier, "@") {
		return r.GetUserByEmail(identifier)
	}
	return r.GetUserByPhone(identifier)
}

func (r *mockRepository) UpdateUser(user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}

	user.Email = NormalizeEmail(user.Email)
	for _, u := range r.users {
		if u.ID != user.ID && u.Email == user.Email {
			return ErrDuplicateEmail
		}
		if u.ID != user.ID && u.Phone == user.Phone {
			return ErrDuplicatePhone
		}
	}

	clone := *user
	clone.CreatedAt = current.CreatedAt
	r.users[user.ID] = &clone
	return nil
}

func (r *mockRepository) UpdatePassword(userID uint, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *mockRepository) DeleteUser(userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, userID)
	for token, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, token)
		}
	}
	return nil
}

func (r *mockRepository) IncrementFailedLogins(userID uint) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	user.FailedLoginCount++
	return user.FailedLoginCount, nil
}

func (r *mockRepository) ResetFailedLogins(userID uint, loginAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.FailedLoginCount = 0
	user.LastLoginAt = &loginAt
	return nil
}

func (r *mockRepository) LockUser(userID uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.Status = StatusLocked
	user.LockedAt = &at
	return nil
}

func (r *mockRepository) UnlockUser(userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.Status = StatusActive
	user.FailedLoginCount = 0
	user.LockedAt = nil
	return nil
}

func (r *mockRepository) CreateResetToken(token *PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()
	clone := *token
	r.tokens[token.Token] = &clone
	return nil
}

func (r *mockRepository) GetResetToken(token string) (*PasswordResetToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tokens[token]
	if !ok {
		return nil, ErrTokenNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *mockRepository) ConsumeResetToken(tokenID uuid.UUID, userID uint, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens {
		if t.ID == tokenID {
			if t.Used {
				return ErrTokenNotFound
			}
			t.Used = true
			user, ok := r.users[userID]
			if !ok {
				return ErrUserNotFound
			}
			user.PasswordHash = passwordHash
			return nil
		}
	}
	return ErrTokenNotFound
}
