// Package account provides registration, login, and profile management.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"zedit/api/internal/store"
	"zedit/api/internal/util"
)

var (
	ErrMissingFields      = errors.New("please add all fields")
	ErrEmailTaken         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOldPassword = errors.New("invalid old password")
	ErrInvalidTheme       = errors.New("theme must be light or dark")
)

// UserStore defines the storage interface for accounts
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) error
	UpdateUserProfile(ctx context.Context, userID, name, profilePic string) error
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	UpdateUserTheme(ctx context.Context, userID, theme string) error
}

type Service struct {
	store UserStore
}

func NewService(store UserStore) *Service {
	return &Service{store: store}
}

type RegisterRequest struct {
	Name     string
	Email    string
	Password string
}

// Register creates a new user account and returns it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (store.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" || req.Password == "" {
		return store.User{}, ErrMissingFields
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return store.User{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := store.User{
		ID:           util.NewID("usr"),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		AvatarColor:  "#8F8FFF",
		Theme:        "light",
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate checks email/password and returns the user on success.
func (s *Service) Authenticate(ctx context.Context, email, password string) (store.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}

type ProfileUpdate struct {
	Name       string // empty keeps the current name
	ProfilePic *string // nil keeps the current picture, pointer to "" clears it
}

// UpdateProfile applies a partial profile update and returns the fresh record.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (store.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return store.User{}, err
	}

	name := user.Name
	if strings.TrimSpace(update.Name) != "" {
		name = strings.TrimSpace(update.Name)
	}
	profilePic := user.ProfilePic
	if update.ProfilePic != nil {
		profilePic = *update.ProfilePic
	}

	if err := s.store.UpdateUserProfile(ctx, userID, name, profilePic); err != nil {
		return store.User{}, err
	}
	user.Name = name
	user.ProfilePic = profilePic
	return user, nil
}

// UpdatePassword verifies the old password before re-hashing the new one.
func (s *Service) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return ErrMissingFields
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidOldPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpdateUserPassword(ctx, userID, string(hash))
}

// UpdateTheme switches the stored UI theme preference.
func (s *Service) UpdateTheme(ctx context.Context, userID, theme string) error {
	if theme != "light" && theme != "dark" {
		return ErrInvalidTheme
	}
	return s.store.UpdateUserTheme(ctx, userID, theme)
}
