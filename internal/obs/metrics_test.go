package obs

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestMetrics_ExposesCounters(t *testing.T) {
	m := NewMetrics()
	m.Operation("login", "ok")
	m.StoreError("is_blacklisted", "fail_open")
	m.Rejection("token_revoked")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `aloha_auth_operations_total{op="login",result="ok"} 1`)
	assert.Contains(t, string(body), `aloha_revocation_store_errors_total{op="is_blacklisted",policy="fail_open"} 1`)
	assert.Contains(t, string(body), `aloha_http_auth_rejections_total{kind="token_revoked"} 1`)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Operation("login", "ok")
		m.StoreError("claim", "fail_closed")
		m.Rejection("token_missing")
	})
}

func TestNewLogger_FallsBackToInfo(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: "nonsense", App: "aloha-admin", Env: "test"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}
