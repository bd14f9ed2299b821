package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodavia/transport-settlements/internal/service"
)

func TestHandleErrorMapsSentinels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{log: zerolog.Nop()}

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"permission denied", service.ErrPermissionDenied, http.StatusForbidden},
		{"invalid input", fmt.Errorf("%w: bad value", service.ErrInvalidInput), http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: settlement", service.ErrNotFound), http.StatusNotFound},
		{"conflict", fmt.Errorf("%w: already settled", service.ErrConflict), http.StatusConflict},
		{"unexpected", fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			h.handleError(c, tc.err)
			assert.Equal(t, tc.expected, rec.Code)
		})
	}
}

func TestParseIDs(t *testing.T) {
	first := uuid.New()
	second := uuid.New()

	ids, err := parseIDs([]string{first.String(), " " + second.String() + " ", ""})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first, second}, ids)

	_, err = parseIDs([]string{"not-a-uuid"})
	assert.Error(t, err)
}

func TestIntQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		raw      string
		expected int
	}{
		{"missing", "", 20},
		{"valid", "page_size=3", 3},
		{"zero falls back", "page_size=0", 20},
		{"negative falls back", "page_size=-5", 20},
		{"garbage falls back", "page_size=abc", 20},
		{"trailing garbage falls back", "page_size=3x", 20},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/settlements?"+tc.raw, nil)
			assert.Equal(t, tc.expected, intQuery(c, "page_size", 20))
		})
	}
}

func TestSplitQuery(t *testing.T) {
	assert.Nil(t, splitQuery(""))
	assert.Equal(t, []string{"a", "b"}, splitQuery("a,b"))
}

func TestParseDateAcceptsCommonLayouts(t *testing.T) {
	for _, raw := range []string{"2026-03-10", "2026-03-10T15:04:05", "2026-03-10T15:04:05Z"} {
		parsed, err := parseDate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, 2026, parsed.Year())
	}

	_, err := parseDate("10/03/2026")
	assert.Error(t, err)
}
