package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JonMunkholm/importexport/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyAuth(t *testing.T) {
	operators := map[string]string{"k1": "alice", "k2": "bob"}

	tests := []struct {
		name       string
		required   bool
		key        string
		wantStatus int
		wantOp     string
	}{
		{"required missing", true, "", http.StatusUnauthorized, ""},
		{"required invalid", true, "nope", http.StatusForbidden, ""},
		{"required valid", true, "k2", http.StatusOK, "bob"},
		{"optional missing", false, "", http.StatusOK, ""},
		{"optional invalid", false, "nope", http.StatusOK, ""},
		{"optional valid", false, "k1", http.StatusOK, "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotOp string
			h := APIKeyAuth(tt.required, operators)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotOp = Operator(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOp, gotOp)
		})
	}
}

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		header  string
		xff     string
		want    string
	}{
		{"untrusted ignores header", nil, "1.2.3.4:5000", "9.9.9.9", "", "1.2.3.4"},
		{"trusted uses real ip", []string{"10.0.0.0/8"}, "10.1.1.1:5000", "9.9.9.9", "", "9.9.9.9"},
		{"trusted uses first forwarded", []string{"10.0.0.1"}, "10.0.0.1:5000", "", "8.8.8.8, 10.0.0.1", "8.8.8.8"},
		{"trusted rejects garbage", []string{"10.0.0.0/8"}, "10.1.1.1:5000", "not-an-ip", "", "10.1.1.1"},
		{"bad cidr skipped", []string{"nonsense", "::1"}, "[::1]:5000", "7.7.7.7", "", "7.7.7.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ClientIP(r)
				if r.RemoteAddr != tt.remote {
					t.Errorf("RemoteAddr rewritten to %q", r.RemoteAddr)
				}
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.header != "" {
				req.Header.Set("X-Real-IP", tt.header)
			}
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogger_CapturesStatus(t *testing.T) {
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestClientIP_WithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:4000"
	assert.Equal(t, "192.0.2.7", ClientIP(req))
}

func TestLogger_RecordsOperator(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	chain := TrustedRealIP(nil)(Logger(APIKeyAuth(true, map[string]string{"k1": "alice"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logging.FromContext(r.Context()).Info("import job created")
			w.WriteHeader(http.StatusCreated)
		}))))

	req := httptest.NewRequest(http.MethodPost, "/api/import-jobs", nil)
	req.RemoteAddr = "203.0.113.9:1234"
	req.Header.Set("X-API-Key", "k1")
	chain.ServeHTTP(httptest.NewRecorder(), req)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var handlerEntry, requestEntry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &handlerEntry))
	require.NoError(t, json.Unmarshal(lines[1], &requestEntry))

	assert.Equal(t, "import job created", handlerEntry["msg"])
	assert.Equal(t, "alice", handlerEntry["operator"])

	assert.Equal(t, "request", requestEntry["msg"])
	assert.Equal(t, "alice", requestEntry["operator"])
	assert.Equal(t, "203.0.113.9", requestEntry["ip"])
	assert.EqualValues(t, http.StatusCreated, requestEntry["status"])
}
