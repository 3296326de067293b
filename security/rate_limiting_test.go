package security

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(method, userAgent string, auth *core.Record) *core.RequestEvent {
	req := httptest.NewRequest(method, "/api/admin/events/evt-1/checkins", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	e := &core.RequestEvent{Auth: auth}
	e.Request = req
	e.Response = httptest.NewRecorder()
	return e
}

func admin(id string) *core.Record {
	r := core.NewRecord(core.NewAuthCollection("admins"))
	r.Id = id
	return r
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var apiErr *router.ApiError
	require.True(t, errors.As(err, &apiErr), "expected an API error, got %v", err)
	return apiErr.Status
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAntiBot(t *testing.T) {
	limiter := NewRateLimiter(nil, 5, quietLogger())
	guard := limiter.AntiBot()

	tests := []struct {
		ua      string
		blocked bool
	}{
		{"Mozilla/5.0 (Macintosh)", false},
		{"Googlebot/2.1", true},
		{"my-scraper 1.0", true},
		{"", false},
	}

	for _, tt := range tests {
		err := guard.Func(newEvent(http.MethodPost, tt.ua, nil))
		if tt.blocked {
			assert.Equal(t, http.StatusForbidden, statusOf(t, err), tt.ua)
		} else {
			assert.NoError(t, err, tt.ua)
		}
	}
}

func TestMutationLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(db, 2, quietLogger())
	guard := limiter.MutationLimit()

	mock.ExpectIncr("ratelimit:admin:admin-1").SetVal(1)
	mock.ExpectExpire("ratelimit:admin:admin-1", time.Minute).SetVal(true)
	mock.ExpectIncr("ratelimit:admin:admin-1").SetVal(2)
	mock.ExpectIncr("ratelimit:admin:admin-1").SetVal(3)

	assert.NoError(t, guard.Func(newEvent(http.MethodPost, "", admin("admin-1"))))
	assert.NoError(t, guard.Func(newEvent(http.MethodPost, "", admin("admin-1"))))
	assert.Equal(t, http.StatusTooManyRequests, statusOf(t, guard.Func(newEvent(http.MethodPost, "", admin("admin-1")))))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMutationLimit_ReadsAndAnonymous(t *testing.T) {
	db, mock := redismock.NewClientMock()
	guard := NewRateLimiter(db, 2, quietLogger()).MutationLimit()

	// GET never touches the counter.
	assert.NoError(t, guard.Func(newEvent(http.MethodGet, "", admin("admin-1"))))

	mock.ExpectIncr("ratelimit:ip:10.0.0.7").SetVal(5)
	assert.Equal(t, http.StatusTooManyRequests, statusOf(t, guard.Func(newEvent(http.MethodDelete, "", nil))))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMutationLimit_RedisDown(t *testing.T) {
	db, mock := redismock.NewClientMock()
	guard := NewRateLimiter(db, 2, quietLogger()).MutationLimit()

	mock.ExpectIncr("ratelimit:admin:admin-1").SetErr(errors.New("connection refused"))
	assert.NoError(t, guard.Func(newEvent(http.MethodPost, "", admin("admin-1"))))

	assert.NoError(t, mock.ExpectationsWereMet())
}
