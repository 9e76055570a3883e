package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gamenight-api/internal/logger"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	clock := time.Date(2024, 6, 5, 19, 30, 0, 0, time.UTC)
	l := NewRateLimiter(1, 1)
	l.now = func() time.Time { return clock }

	h := l.Middleware(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	hit := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/session", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 1000; i++ {
		assert.Equal(t, http.StatusNoContent, hit(fmt.Sprintf("10.0.%d.%d:4000", i/256, i%256)))
	}
	assert.Equal(t, 1000, l.size())

	// un cliente sigue activo, el resto queda ocioso
	clock = clock.Add(limiterIdleTTL / 2)
	hit("10.0.0.1:4000")

	clock = clock.Add(limiterIdleTTL/2 + time.Second)
	assert.Equal(t, http.StatusNoContent, hit("192.168.1.1:4000"))
	assert.Equal(t, 2, l.size())
}
