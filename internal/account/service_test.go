package account

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"zedit/api/internal/store"
)

type fakeUserStore struct {
	usersByEmail map[string]store.User
	usersByID    map[string]store.User
	created      []store.User

	profileUpdates  []string
	passwordUpdates []string
	themeUpdates    []string
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		usersByEmail: map[string]store.User{},
		usersByID:    map[string]store.User{},
	}
}

func (f *fakeUserStore) add(user store.User) {
	f.usersByEmail[user.Email] = user
	f.usersByID[user.ID] = user
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	user, ok := f.usersByEmail[email]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id string) (store.User, error) {
	user, ok := f.usersByID[id]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserStore) CreateUser(_ context.Context, user store.User) error {
	f.created = append(f.created, user)
	f.add(user)
	return nil
}

func (f *fakeUserStore) UpdateUserProfile(_ context.Context, userID, name, profilePic string) error {
	f.profileUpdates = append(f.profileUpdates, userID+"|"+name+"|"+profilePic)
	return nil
}

func (f *fakeUserStore) UpdateUserPassword(_ context.Context, userID, hash string) error {
	f.passwordUpdates = append(f.passwordUpdates, userID)
	user := f.usersByID[userID]
	user.PasswordHash = hash
	f.add(user)
	return nil
}

func (f *fakeUserStore) UpdateUserTheme(_ context.Context, userID, theme string) error {
	f.themeUpdates = append(f.themeUpdates, userID+"|"+theme)
	return nil
}

func TestRegisterHashesPasswordAndDefaults(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewService(fs)

	user, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "  Ann  ",
		Email:    "A@X.com",
		Password: "p1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Name != "Ann" {
		t.Fatalf("expected trimmed name, got %q", user.Name)
	}
	if user.Email != "a@x.com" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}
	if user.Theme != "light" {
		t.Fatalf("expected light default theme, got %q", user.Theme)
	}
	if user.PasswordHash == "p1" || user.PasswordHash == "" {
		t.Fatalf("expected hashed password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("p1")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestRegisterRejectsMissingFieldsAndDuplicates(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewService(fs)

	if _, err := svc.Register(context.Background(), RegisterRequest{Name: "Ann"}); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}

	if _, err := svc.Register(context.Background(), RegisterRequest{Name: "Ann", Email: "a@x.com", Password: "p1"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), RegisterRequest{Name: "Ann2", Email: "a@x.com", Password: "p2"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewService(fs)
	if _, err := svc.Register(context.Background(), RegisterRequest{Name: "Ann", Email: "a@x.com", Password: "p1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Authenticate(context.Background(), "a@x.com", "p1"); err != nil {
		t.Fatalf("expected login success, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "a@x.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "nobody@x.com", "p1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestUpdatePasswordRequiresOldPassword(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewService(fs)
	user, err := svc.Register(context.Background(), RegisterRequest{Name: "Ann", Email: "a@x.com", Password: "p1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.UpdatePassword(context.Background(), user.ID, "wrong", "p2"); !errors.Is(err, ErrInvalidOldPassword) {
		t.Fatalf("expected ErrInvalidOldPassword, got %v", err)
	}
	if err := svc.UpdatePassword(context.Background(), user.ID, "p1", "p2"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "a@x.com", "p2"); err != nil {
		t.Fatalf("expected new password to work, got %v", err)
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewService(fs)
	user, err := svc.Register(context.Background(), RegisterRequest{Name: "Ann", Email: "a@x.com", Password: "p1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// Name only: picture untouched.
	updated, err := svc.UpdateProfile(context.Background(), user.ID, ProfileUpdate{Name: "Annie"})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Name != "Annie" || updated.ProfilePic != "" {
		t.Fatalf("unexpected profile: %+v", updated)
	}

	// Clearing the picture uses an explicit empty pointer.
	empty := ""
	updated, err = svc.UpdateProfile(context.Background(), user.ID, ProfileUpdate{ProfilePic: &empty})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Name != "Ann" && updated.Name != "Annie" {
		t.Fatalf("unexpected name after picture-only update: %q", updated.Name)
	}
}

func TestUpdateThemeValidatesValue(t *testing.T) {
	fs := newFakeUserStore()
	svc := NewService(fs)
	if err := svc.UpdateTheme(context.Background(), "usr_1", "dark"); err != nil {
		t.Fatalf("update theme: %v", err)
	}
	if err := svc.UpdateTheme(context.Background(), "usr_1", "solarized"); !errors.Is(err, ErrInvalidTheme) {
		t.Fatalf("expected ErrInvalidTheme, got %v", err)
	}
}
