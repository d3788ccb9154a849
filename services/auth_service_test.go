package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergiramirez/tennis-league/models"
)

func registerTestUser(t *testing.T, svc AuthService) (*models.User, string) {
	t.Helper()
	user, token, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Lucía",
		LastName:  "Herrera",
		Email:     "lucia@example.com",
		Phone:     "+34600111222",
		Password:  "secreto123",
	})
	require.NoError(t, err)
	return user, token
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo)

	user, token := registerTestUser(t, svc)
	assert.Equal(t, models.RolePlayer, user.Role)
	assert.False(t, user.EmailConfirmed)
	assert.NotEmpty(t, token)
	assert.NotEqual(t, "secreto123", user.PasswordHash)

	logged, err := svc.Login(context.Background(), LoginInput{Email: "lucia@example.com", Password: "secreto123"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	_, err = svc.Login(context.Background(), LoginInput{Email: "lucia@example.com", Password: "incorrecta"})
	assert.ErrorIs(t, err, ErrAuthInvalidCredentials)

	_, err = svc.Login(context.Background(), LoginInput{Email: "nadie@example.com", Password: "secreto123"})
	assert.ErrorIs(t, err, ErrAuthInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())

	_, _, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Ana", Email: "ana@example.com", Phone: "+34600", Password: "corta",
	})
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, _, err = svc.Register(context.Background(), RegisterInput{
		FirstName: "Ana", Email: "ana@example.com", Password: "secreto123",
	})
	assert.ErrorIs(t, err, ErrPhoneRequired)
}

func TestRegisterConflicts(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo())
	registerTestUser(t, svc)

	_, _, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Otra", Email: "lucia@example.com", Phone: "+34600999888", Password: "secreto123",
	})
	assert.ErrorIs(t, err, ErrAuthEmailTaken)

	_, _, err = svc.Register(context.Background(), RegisterInput{
		FirstName: "Otra", Email: "otra@example.com", Phone: "+34600111222", Password: "secreto123",
	})
	assert.ErrorIs(t, err, ErrAuthPhoneTaken)
}

func TestConfirmEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo)
	user, token := registerTestUser(t, svc)

	require.NoError(t, svc.ConfirmEmail(context.Background(), token))
	assert.True(t, repo.users[user.ID].EmailConfirmed)

	err := svc.ConfirmEmail(context.Background(), "token-desconocido")
	assert.ErrorIs(t, err, ErrAuthTokenInvalid)
}

func TestPasswordReset(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo)
	registerTestUser(t, svc)

	token, err := svc.GeneratePasswordResetToken(context.Background(), "lucia@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Unknown addresses do not reveal whether the account exists.
	blank, err := svc.GeneratePasswordResetToken(context.Background(), "nadie@example.com")
	require.NoError(t, err)
	assert.Empty(t, blank)

	require.NoError(t, svc.ResetPasswordByToken(context.Background(), token, "nuevoSecreto1"))

	_, err = svc.Login(context.Background(), LoginInput{Email: "lucia@example.com", Password: "nuevoSecreto1"})
	assert.NoError(t, err)

	err = svc.ResetPasswordByToken(context.Background(), token, "otraClave123")
	assert.ErrorIs(t, err, ErrAuthTokenInvalid)
}
