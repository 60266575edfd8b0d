package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"siteclock/internal/domain"
)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func TestWriteErrorStatuses(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", domain.ErrInvalidInput), http.StatusBadRequest},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("employee 3: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrConflict, http.StatusConflict},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, zap.NewNop(), tt.err)
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}

	rec := httptest.NewRecorder()
	writeError(rec, zap.NewNop(), errors.New("pq: secret detail"))
	assert.NotContains(t, rec.Body.String(), "secret detail")
}

func TestPathID(t *testing.T) {
	id, rest, err := pathID("/api/worksites/12/details", "/api/worksites/")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
	assert.Equal(t, "details", rest)

	_, _, err = pathID("/api/worksites/", "/api/worksites/")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = pathID("/api/worksites/-4", "/api/worksites/")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParseDateParam(t *testing.T) {
	start, err := parseDateParam("2025-03-10", time.UTC, false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), start)

	end, err := parseDateParam("2025-03-10", time.UTC, true)
	require.NoError(t, err)
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 59, end.Minute())

	exact, err := parseDateParam("2025-03-10T12:00", time.UTC, true)
	require.NoError(t, err)
	assert.Equal(t, 12, exact.Hour())

	zero, err := parseDateParam("", time.UTC, true)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = parseDateParam("10/03/2025", time.UTC, false)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
