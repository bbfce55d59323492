package services

import (
	"testing"

	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserServiceGetMissing(t *testing.T) {
	svc := NewUserService(newTestDB(t))

	user, err := svc.Get("42")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserServiceUpsert(t *testing.T) {
	svc := NewUserService(newTestDB(t))

	require.NoError(t, svc.Upsert(&models.UserProfile{
		UserID: "42", LastName: "Иванов", FirstName: "Пётр", Registered: true,
	}))

	user, err := svc.Get("42")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Иванов", user.LastName)
	assert.True(t, user.Registered)

	// re-registration replaces the name
	require.NoError(t, svc.Upsert(&models.UserProfile{
		UserID: "42", LastName: "Петров", FirstName: "Иван", Registered: true,
	}))
	user, err = svc.Get("42")
	require.NoError(t, err)
	assert.Equal(t, "Петров", user.LastName)
}
