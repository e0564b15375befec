package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsConnectionError(t *testing.T) {
	assert.False(t, IsConnectionError(nil))
	assert.False(t, IsConnectionError(errors.New("syntax error")))
	assert.False(t, IsConnectionError(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsConnectionError(&pgconn.PgError{Code: "08006"}))
	assert.True(t, IsConnectionError(fmt.Errorf("batch put: %w", &pgconn.PgError{Code: "57P01"})))
	assert.True(t, IsConnectionError(fmt.Errorf("get: %w", sql.ErrConnDone)))
}
