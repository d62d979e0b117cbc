package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeConn bool

func (f fakeConn) IsConnected() bool { return bool(f) }

func TestCheck(t *testing.T) {
	checker := NewChecker(fakeConn(true), fakePinger{}, fakePinger{err: errors.New("down")})

	status := checker.Check(context.Background())
	assert.Equal(t, "connected", status.NATS)
	assert.Equal(t, "connected", status.Redis)
	assert.Equal(t, "disconnected", status.Database)
	assert.False(t, status.Healthy())
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		db     Pinger
		status int
	}{
		{"liveness ignores deps", "/health", fakePinger{err: errors.New("down")}, http.StatusOK},
		{"ready", "/ready", fakePinger{}, http.StatusOK},
		{"not ready", "/ready", fakePinger{err: errors.New("down")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewChecker(fakeConn(true), fakePinger{}, tt.db)
			rec := httptest.NewRecorder()
			checker.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)

			if tt.path == "/ready" {
				var status Status
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
				assert.Equal(t, "connected", status.NATS)
			}
		})
	}
}
