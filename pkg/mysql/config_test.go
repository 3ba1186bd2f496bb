package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 3307, User: "u", Password: "p", DBName: "wallet"}
	assert.Equal(t, "u:p@tcp(db:3307)/wallet?charset=utf8mb4&parseTime=True&loc=Local", cfg.DSN())

	cfg.LockWaitTimeoutSeconds = 3
	assert.Contains(t, cfg.DSN(), "&innodb_lock_wait_timeout=3")
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"info", "warn", "error", "silent", ""} {
		assert.NotNil(t, newLogger(level))
	}
}
