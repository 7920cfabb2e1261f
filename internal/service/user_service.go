package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"servly-chat-server/internal/domain"
)

// ErrInvalidCredentials is returned on a failed login. Deliberately the same
// error for unknown email and wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserService implements the auth collaborator's user logic.
type UserService struct {
	userRepo IUserRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo IUserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Register creates a new user account.
func (s *UserService) Register(name, email, password string, role domain.Role) (*domain.User, error) {
	if name == "" || email == "" || password == "" {
		return nil, errors.New("name, email and password are required")
	}
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	existing, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("email %q is already registered", email)
	}

	user, err := domain.NewUser(name, email, password, role)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.CreateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and returns the account.
func (s *UserService) Login(email, password string) (*domain.User, error) {
	user, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetUserByID returns the account for id, or nil if none exists.
func (s *UserService) GetUserByID(id uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetUserByID(id)
}
