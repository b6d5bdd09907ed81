package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-assist/rostering-api/internal/models"
	appErrors "github.com/campus-assist/rostering-api/pkg/errors"
)

type mockAuthRepo struct {
	userByUsername    *models.User
	findErr           error
	created           *models.User
	lastLoginUpdated  bool
	passwordUpdated   string
	updatePasswordErr error
	auditLogs         []*models.AuditLog
}

func (m *mockAuthRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.userByUsername == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByUsername, nil
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	m.created = user
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, username string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, username, passwordHash string, updatedAt time.Time) error {
	if m.updatePasswordErr != nil {
		return m.updatePasswordErr
	}
	m.passwordUpdated = passwordHash
	if m.userByUsername != nil {
		m.userByUsername.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type mockRegisterStudentRepo struct {
	created *models.Student
}

func (m *mockRegisterStudentRepo) Create(ctx context.Context, student *models.Student) error {
	m.created = student
	return nil
}

type mockRegisterAssistantRepo struct {
	created *models.HelpDeskAssistant
}

func (m *mockRegisterAssistantRepo) CreateHelpDesk(ctx context.Context, a *models.HelpDeskAssistant) error {
	m.created = a
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "rostering-api"}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByUsername: &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: string(password), Active: true, Role: models.RoleAdmin}}
	svc := NewAuthService(repo, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, models.RoleAdmin, res.Role)
	assert.True(t, repo.lastLoginUpdated)
	assert.Len(t, repo.auditLogs, 1)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByUsername: &models.User{Username: "alice", PasswordHash: string(password), Active: false}}
	svc := NewAuthService(repo, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "password"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByUsername: &models.User{Username: "alice", PasswordHash: string(password), Active: true}}
	svc := NewAuthService(repo, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "wrong"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceChangePassword(t *testing.T) {
	oldHash, _ := bcrypt.GenerateFromPassword([]byte("old"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByUsername: &models.User{Username: "alice", PasswordHash: string(oldHash), Active: true}}
	svc := NewAuthService(repo, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	err := svc.ChangePassword(context.Background(), "alice", models.ChangePasswordRequest{OldPassword: "old", NewPassword: "newpassword"})
	require.NoError(t, err)
	assert.NotEqual(t, string(oldHash), repo.passwordUpdated)
}

func TestAuthServiceChangePasswordWrongOld(t *testing.T) {
	oldHash, _ := bcrypt.GenerateFromPassword([]byte("old"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByUsername: &models.User{Username: "alice", PasswordHash: string(oldHash), Active: true}}
	svc := NewAuthService(repo, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	err := svc.ChangePassword(context.Background(), "alice", models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "newpassword"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestAuthServiceValidateToken(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := NewAuthService(repo, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())
	user := &models.User{Username: "alice", Role: models.RoleAdmin}
	token, _, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.Username, claims.Username)
	assert.Equal(t, user.Role, claims.Role)
}

func TestAuthServiceRegisterCreatesInactiveProfile(t *testing.T) {
	repo := &mockAuthRepo{}
	students := &mockRegisterStudentRepo{}
	assistants := &mockRegisterAssistantRepo{}
	svc := NewAuthService(repo, students, assistants, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "bob",
		Email:    "bob@example.com",
		Name:     "Bob Builder",
		Password: "password1",
		Degree:   models.DegreeBSc,
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", res.RegistrationID)
	require.NotNil(t, repo.created)
	assert.False(t, repo.created.Active)
	assert.Equal(t, models.RoleStudent, repo.created.Role)
	require.NotNil(t, students.created)
	assert.Equal(t, "Bob Builder", students.created.Name)
	require.NotNil(t, assistants.created)
	assert.False(t, assistants.created.Active)
}

func TestAuthServiceRegisterRejectsExistingUsername(t *testing.T) {
	repo := &mockAuthRepo{userByUsername: &models.User{Username: "alice"}}
	svc := NewAuthService(repo, nil, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "password1",
		Degree:   models.DegreeBSc,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}
