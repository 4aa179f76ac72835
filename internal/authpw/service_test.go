package authpw

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"rescueops/api/internal/store"
)

type fakeUserStore struct {
	getUserByEmail              func(ctx context.Context, email string) (store.User, error)
	getUserByID                 func(ctx context.Context, id string) (store.User, error)
	createUser                  func(ctx context.Context, user store.User) error
	updateUserVerificationToken func(ctx context.Context, userID, token string, expiresAt time.Time) error
	verifyUserEmail             func(ctx context.Context, token string) error
	updateUserPassword          func(ctx context.Context, userID, passwordHash string) error
	createPasswordReset         func(ctx context.Context, userID, token string, expiresAt time.Time) error
	getPasswordReset            func(ctx context.Context, token string) (string, error)
	markPasswordResetUsed       func(ctx context.Context, token string) error
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if f.getUserByEmail != nil {
		return f.getUserByEmail(ctx, email)
	}
	return store.User{}, errors.New("not found")
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id string) (store.User, error) {
	if f.getUserByID != nil {
		return f.getUserByID(ctx, id)
	}
	return store.User{}, errors.New("not found")
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user store.User) error {
	if f.createUser != nil {
		return f.createUser(ctx, user)
	}
	return nil
}

func (f *fakeUserStore) UpdateUserVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	if f.updateUserVerificationToken != nil {
		return f.updateUserVerificationToken(ctx, userID, token, expiresAt)
	}
	return nil
}

func (f *fakeUserStore) VerifyUserEmail(ctx context.Context, token string) error {
	if f.verifyUserEmail != nil {
		return f.verifyUserEmail(ctx, token)
	}
	return nil
}

func (f *fakeUserStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	if f.updateUserPassword != nil {
		return f.updateUserPassword(ctx, userID, passwordHash)
	}
	return nil
}

func (f *fakeUserStore) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	if f.createPasswordReset != nil {
		return f.createPasswordReset(ctx, userID, token, expiresAt)
	}
	return nil
}

func (f *fakeUserStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	if f.getPasswordReset != nil {
		return f.getPasswordReset(ctx, token)
	}
	return "", errors.New("not found")
}

func (f *fakeUserStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	if f.markPasswordResetUsed != nil {
		return f.markPasswordResetUsed(ctx, token)
	}
	return nil
}

func TestSignUpCreatesUser(t *testing.T) {
	var created store.User
	fs := &fakeUserStore{
		createUser: func(ctx context.Context, user store.User) error {
			created = user
			return nil
		},
	}
	svc := NewService(fs)

	resp, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:       "casey@rescue.org",
		Password:    "hunter2hunter2",
		DisplayName: "Casey",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if resp.UserID == "" || !resp.RequiresEmailVerify {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !strings.HasPrefix(created.ID, "user_") {
		t.Errorf("expected user_ id prefix, got %q", created.ID)
	}
	if created.PasswordHash == "hunter2hunter2" {
		t.Error("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("hunter2hunter2")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
	if created.IsEmailVerified {
		t.Error("new user should not be verified")
	}
}

func TestSignUpRejectsShortPassword(t *testing.T) {
	svc := NewService(&fakeUserStore{})
	_, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:       "casey@rescue.org",
		Password:    "short",
		DisplayName: "Casey",
	})
	if err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	fs := &fakeUserStore{
		getUserByEmail: func(ctx context.Context, email string) (store.User, error) {
			return store.User{ID: "user_1", Email: email}, nil
		},
	}
	svc := NewService(fs)
	_, err := svc.SignUp(context.Background(), SignUpRequest{
		Email:       "casey@rescue.org",
		Password:    "hunter2hunter2",
		DisplayName: "Casey",
	})
	if err == nil {
		t.Fatal("expected error for duplicate email")
	}
}

func TestSignInVerifiedUser(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter2hunter2"), bcrypt.MinCost)
	fs := &fakeUserStore{
		getUserByEmail: func(ctx context.Context, email string) (store.User, error) {
			return store.User{ID: "user_1", Email: email, PasswordHash: string(hash), IsEmailVerified: true}, nil
		},
	}
	svc := NewService(fs)

	resp, err := svc.SignIn(context.Background(), SignInRequest{Email: "casey@rescue.org", Password: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if resp.RequiresVerify {
		t.Error("verified user should not require verify")
	}
	if resp.User.ID != "user_1" {
		t.Errorf("unexpected user: %+v", resp.User)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter2hunter2"), bcrypt.MinCost)
	fs := &fakeUserStore{
		getUserByEmail: func(ctx context.Context, email string) (store.User, error) {
			return store.User{ID: "user_1", Email: email, PasswordHash: string(hash), IsEmailVerified: true}, nil
		},
	}
	svc := NewService(fs)

	if _, err := svc.SignIn(context.Background(), SignInRequest{Email: "casey@rescue.org", Password: "wrong-password"}); err == nil {
		t.Fatal("expected error for wrong password")
	}
}

func TestSignInUnverifiedUser(t *testing.T) {
	fs := &fakeUserStore{
		getUserByEmail: func(ctx context.Context, email string) (store.User, error) {
			return store.User{ID: "user_1", Email: email, IsEmailVerified: false}, nil
		},
	}
	svc := NewService(fs)

	resp, err := svc.SignIn(context.Background(), SignInRequest{Email: "casey@rescue.org", Password: "whatever123"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if !resp.RequiresVerify {
		t.Error("unverified user should require verify")
	}
}

func TestSignInDeactivatedUser(t *testing.T) {
	now := time.Now()
	fs := &fakeUserStore{
		getUserByEmail: func(ctx context.Context, email string) (store.User, error) {
			return store.User{ID: "user_1", Email: email, IsEmailVerified: true, DeactivatedAt: &now}, nil
		},
	}
	svc := NewService(fs)

	if _, err := svc.SignIn(context.Background(), SignInRequest{Email: "casey@rescue.org", Password: "whatever123"}); err == nil {
		t.Fatal("expected error for deactivated user")
	}
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	svc := NewService(&fakeUserStore{})
	token, err := svc.RequestPasswordReset(context.Background(), "nobody@rescue.org")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if token != "" {
		t.Error("unknown email should yield empty token")
	}
}

func TestResetPassword(t *testing.T) {
	var updatedUserID string
	var markedToken string
	fs := &fakeUserStore{
		getPasswordReset: func(ctx context.Context, token string) (string, error) {
			if token != "reset-token" {
				return "", errors.New("not found")
			}
			return "user_1", nil
		},
		updateUserPassword: func(ctx context.Context, userID, passwordHash string) error {
			updatedUserID = userID
			return nil
		},
		markPasswordResetUsed: func(ctx context.Context, token string) error {
			markedToken = token
			return nil
		},
	}
	svc := NewService(fs)

	if err := svc.ResetPassword(context.Background(), ResetPasswordRequest{Token: "reset-token", NewPassword: "newpassword1"}); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if updatedUserID != "user_1" {
		t.Errorf("expected password update for user_1, got %q", updatedUserID)
	}
	if markedToken != "reset-token" {
		t.Errorf("expected token marked used, got %q", markedToken)
	}
}

func TestResetPasswordInvalidToken(t *testing.T) {
	svc := NewService(&fakeUserStore{})
	if err := svc.ResetPassword(context.Background(), ResetPasswordRequest{Token: "bogus", NewPassword: "newpassword1"}); err == nil {
		t.Fatal("expected error for invalid token")
	}
}
