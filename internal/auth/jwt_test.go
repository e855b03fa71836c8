package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGenerateValidateRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	userID := uuid.New()
	uniID := uuid.New()

	token, err := svc.Generate(userID, "a@b.edu", "organizer", &uniID, true)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)

	ident := claims.Identity()
	require.Equal(t, userID, ident.UserID)
	require.Equal(t, "organizer", ident.Role)
	require.True(t, ident.IsStaff)
	require.NotNil(t, ident.UniversityID)
	require.Equal(t, uniID, *ident.UniversityID)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 1).Generate(uuid.New(), "a@b.edu", "student", nil, false)
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", 1).Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := NewJWTService("secret", 1).Validate("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIdentityWithoutUniversity(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	token, err := svc.Generate(uuid.New(), "s@b.edu", "student", nil, false)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	require.Nil(t, claims.Identity().UniversityID)
	require.False(t, claims.Identity().IsStaff)
}
