package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/model"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/repository"
)

var (
	// ErrInvalidCredentials is returned for an unknown user or a wrong password
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthenticated is returned for a missing, unknown or expired session token
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrMissingFields is returned when a required account field is empty
	ErrMissingFields = errors.New("username and password are required")
	// ErrPasswordMismatch is returned when the confirmation differs from the password
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrUsernameTaken is returned when the username already exists
	ErrUsernameTaken = errors.New("username already exists")
	// ErrInvalidRole is returned for a role other than admin or user
	ErrInvalidRole = errors.New("invalid role")
	// ErrProtectedUser is returned when deleting the built-in admin or oneself
	ErrProtectedUser = errors.New("user cannot be deleted")
)

// protectedUsername is the built-in administrator account
const protectedUsername = "admin"

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// AuthService manages accounts and login sessions
type AuthService interface {
	Login(ctx context.Context, username, password string) (*model.Session, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*model.User, error)
	Register(ctx context.Context, username, password, confirm string) (*model.User, error)

	ListUsers(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, username, password, role string) (*model.User, error)
	DeleteUser(ctx context.Context, actor *model.User, id uint) error
}

type authService struct {
	users      repository.UserRepository
	clock      clockwork.Clock
	sessionTTL time.Duration
}

// NewAuthService creates a new auth service issuing sessions valid for sessionTTL
func NewAuthService(users repository.UserRepository, clock clockwork.Clock, sessionTTL time.Duration) AuthService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &authService{users: users, clock: clock, sessionTTL: sessionTTL}
}

func (s *authService) Login(ctx context.Context, username, password string) (*model.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	session := &model.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: s.clock.Now().Add(s.sessionTTL).UTC(),
		User:      *user,
	}
	if err := s.users.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.users.DeleteSession(ctx, token)
}

// Authenticate resolves a session token to its user
func (s *authService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	session, err := s.users.GetSession(ctx, token, s.clock.Now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return &session.User, nil
}

// Register creates a self-service account, which always gets the user role
func (s *authService) Register(ctx context.Context, username, password, confirm string) (*model.User, error) {
	if strings.TrimSpace(username) == "" || password == "" || confirm == "" {
		return nil, ErrMissingFields
	}
	if password != confirm {
		return nil, ErrPasswordMismatch
	}
	return s.createUser(ctx, username, password, model.RoleUser)
}

func (s *authService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// CreateUser adds an account on behalf of an administrator. An empty role means user.
func (s *authService) CreateUser(ctx context.Context, username, password, role string) (*model.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, ErrMissingFields
	}
	if role == "" {
		role = model.RoleUser
	}
	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, ErrInvalidRole
	}
	return s.createUser(ctx, username, password, role)
}

func (s *authService) createUser(ctx context.Context, username, password, role string) (*model.User, error) {
	username = strings.TrimSpace(username)
	_, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{Username: username, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account; the built-in admin and the acting user are protected
func (s *authService) DeleteUser(ctx context.Context, actor *model.User, id uint) error {
	target, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if target.Username == protectedUsername || (actor != nil && actor.ID == target.ID) {
		return ErrProtectedUser
	}
	return s.users.Delete(ctx, id)
}
