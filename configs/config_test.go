package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDatabaseAndSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/roommates")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_BASE_URL", "https://smartroommate.example/")
	t.Setenv("NOTIFY_TIMEOUT", "3s")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", s.Port)
	assert.Equal(t, 72*time.Hour, s.JWTTTL)
	assert.Equal(t, 3*time.Second, s.NotifyTimeout)
	assert.Equal(t, "https://smartroommate.example", s.AppBaseURL)
	assert.Equal(t, 20, s.DBMaxOpenConns)
	assert.Equal(t, 5, s.DBMaxIdleConns)
	assert.Equal(t, 30*time.Minute, s.DBConnMaxLifetime)
}

func TestLoadReadsPoolSizes(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/roommates")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_MAX_OPEN_CONNS", "40")
	t.Setenv("DB_MAX_IDLE_CONNS", "10")
	t.Setenv("DB_CONN_MAX_LIFETIME", "5m")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 40, s.DBMaxOpenConns)
	assert.Equal(t, 10, s.DBMaxIdleConns)
	assert.Equal(t, 5*time.Minute, s.DBConnMaxLifetime)

	t.Setenv("DB_MAX_IDLE_CONNS", "50")
	_, err = Load()
	assert.Error(t, err)
}
