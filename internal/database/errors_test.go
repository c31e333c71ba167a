package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		want      ErrorClass
		retryable bool
	}{
		{"nil", nil, ErrorClassPermanent, false},
		{"plain", errors.New("boom"), ErrorClassPermanent, false},
		{"serialization", &pq.Error{Code: "40001"}, ErrorClassSerialization, true},
		{"deadlock", &pq.Error{Code: "40P01"}, ErrorClassDeadlock, true},
		{"lock not available", &pq.Error{Code: "55P03"}, ErrorClassTransient, true},
		{"unique violation", &pq.Error{Code: "23505"}, ErrorClassConflict, false},
		{"wrapped", fmt.Errorf("insert: %w", &pq.Error{Code: "40001"}), ErrorClassSerialization, true},
		{"syntax", &pq.Error{Code: "42601"}, ErrorClassPermanent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}

	assert.True(t, IsUniqueViolation(fmt.Errorf("x: %w", &pq.Error{Code: "23505"})))
	assert.True(t, IsLockNotAvailable(&pq.Error{Code: "55P03"}))
	assert.False(t, IsLockNotAvailable(&pq.Error{Code: "40001"}))
}

func TestNotFound(t *testing.T) {
	assert.Equal(t, ErrOrderNotFound, NotFound(sql.ErrNoRows, ErrOrderNotFound))
	assert.ErrorIs(t, NotFound(fmt.Errorf("scan: %w", sql.ErrNoRows), ErrOrderNotFound), ErrOrderNotFound)

	other := errors.New("connection reset")
	assert.Equal(t, other, NotFound(other, ErrOrderNotFound))
}

func TestMigrateRejectsUnknownDirection(t *testing.T) {
	_, err := Migrate(context.Background(), nil, fstest.MapFS{}, "sideways")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sideways")
}

func TestMigrateWithNoFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"README.md": &fstest.MapFile{Data: []byte("notes")},
	}

	ran, err := Migrate(context.Background(), nil, fsys, "up")
	require.NoError(t, err)
	assert.Empty(t, ran)
}
