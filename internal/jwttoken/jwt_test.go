package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodbridge/internal/platform/middleware"
	id "foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
)

func TestValidateRoundTrip(t *testing.T) {
	svc := New("test-signing-key", "foodbridge-test")
	actor := id.NewUserID()

	token, err := svc.GenerateToken(actor, middleware.RoleRecipient, time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actor, claims.UserID)
	assert.Equal(t, middleware.RoleRecipient, claims.Role)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := New("test-signing-key", "foodbridge-test")

	token, err := svc.GenerateToken(id.NewUserID(), middleware.RoleDonor, -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsWrongKey(t *testing.T) {
	issuer := New("key-one", "foodbridge-test")
	verifier := New("key-two", "foodbridge-test")

	token, err := issuer.GenerateToken(id.NewUserID(), middleware.RoleLogistics, time.Minute)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
