package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkobari/skmeterd/internal/readings"
)

func TestHealthHandler(t *testing.T) {
	a, _ := setupAppTest(t, nil, nil)

	rec := httptest.NewRecorder()
	a.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())
}

func TestStatusHandler(t *testing.T) {
	t.Run("before any session", func(t *testing.T) {
		a, _ := setupAppTest(t, nil, nil)

		rec := httptest.NewRecorder()
		a.statusHandler(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp statusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Connected)
		assert.Nil(t, resp.Latest)
		assert.Zero(t, resp.ReadingCount)
	})

	t.Run("with a joined meter and readings", func(t *testing.T) {
		fake := newFakeMeter(t)
		require.NoError(t, fake.Join(context.Background(), "id", "pwd"))

		a, _ := setupAppTest(t, nil, fake)
		a.setClient(fake)
		a.log.Record(readings.Reading{TakenAt: time.Now(), Watts: 500})

		rec := httptest.NewRecorder()
		a.statusHandler(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var resp statusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Connected)
		assert.Equal(t, "21", resp.Channel)
		assert.Equal(t, "8888", resp.PanID)
		assert.Equal(t, "fe80::21d:1290:1234:5678", resp.Meter)
		require.NotNil(t, resp.Latest)
		assert.Equal(t, int32(500), resp.Latest.Watts)
		assert.Equal(t, 1, resp.ReadingCount)
	})
}
