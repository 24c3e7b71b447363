package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateConnectionString(t *testing.T) {
	conStr, err := GenerateConnectionString("localhost", "sync", "secret", "syncdb", "disable", 5432, 10, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t,
		"host=localhost port=5432 user=sync password=secret dbname=syncdb sslmode=disable connect_timeout=5 pool_max_conns=10",
		conStr)
}

func TestGenerateConnectionStringValidation(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		user    string
		pass    string
		dbName  string
		sslMode string
		port    int
		wantErr error
	}{
		{"пустой хост", "", "u", "p", "db", "disable", 5432, ErrStorageEmptyHostName},
		{"некорректный порт", "h", "u", "p", "db", "disable", 70000, ErrStorageInvalidPortNumber},
		{"пустой пользователь", "h", "", "p", "db", "disable", 5432, ErrStorageEmptyUsername},
		{"пустой пароль", "h", "u", "", "db", "disable", 5432, ErrStorageEmptyPassword},
		{"пустое имя базы", "h", "u", "p", "", "disable", 5432, ErrStorageInvalidDatabaseName},
		{"пустой режим SSL", "h", "u", "p", "db", "", 5432, ErrStorageInvalidSslMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateConnectionString(tt.host, tt.user, tt.pass, tt.dbName, tt.sslMode, tt.port, 10, time.Second)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
