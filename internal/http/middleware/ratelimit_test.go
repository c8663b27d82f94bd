package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func limitedRouter(rl *RateLimiter, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(pre...)
	r.Use(rl.Handler())
	r.POST("/contact", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func post(r http.Handler, ip string, hdr map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/contact", nil)
	req.RemoteAddr = ip + ":1234"
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHourlyLimiter_RejectsAfterQuota(t *testing.T) {
	rl := NewHourlyLimiter("test_hourly", 3, KeyByClientIP())
	r := limitedRouter(rl)

	for i := 0; i < 3; i++ {
		if w := post(r, "10.0.0.1", nil); w.Code != http.StatusCreated {
			t.Fatalf("request %d: code=%d", i, w.Code)
		}
	}
	w := post(r, "10.0.0.1", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("4th request code=%d", w.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["code"] != "too_many_requests" || body["request_id"] == "" {
		t.Fatalf("body = %v", body)
	}
	// one token per 20 minutes
	secs, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || secs < 1100 || secs > 1200 {
		t.Fatalf("Retry-After = %q", w.Header().Get("Retry-After"))
	}
	if got := testutil.ToFloat64(rateLimited.WithLabelValues("test_hourly")); got != 1 {
		t.Fatalf("rate limited counter = %v", got)
	}

	// separate bucket per client
	if w := post(r, "10.0.0.2", nil); w.Code != http.StatusCreated {
		t.Fatalf("other client code=%d", w.Code)
	}
}

func TestRateLimiter_ReplayBypasses(t *testing.T) {
	rl := NewRateLimiter("test_bypass", 0.001, 1, KeyByClientIP())
	idem := IdempotencyValidator(IdempotencyOptions{}, func(_ context.Context, _, key string, _ time.Time) (bool, error) {
		return key == "seen", nil
	})
	r := limitedRouter(rl, idem)

	if w := post(r, "10.1.0.1", nil); w.Code != http.StatusCreated {
		t.Fatalf("first code=%d", w.Code)
	}
	if w := post(r, "10.1.0.1", nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second code=%d", w.Code)
	}
	if w := post(r, "10.1.0.1", map[string]string{HeaderIdempotencyKey: "seen"}); w.Code != http.StatusCreated {
		t.Fatalf("replay code=%d", w.Code)
	}
}

func TestKeyByAdminOrIP(t *testing.T) {
	rl := NewRateLimiter("test_admin", 0.001, 1, KeyByAdminOrIP())
	r := limitedRouter(rl, AdminIdentity())

	if w := post(r, "10.2.0.1", map[string]string{HeaderAuthenticatedUser: "jane"}); w.Code != http.StatusCreated {
		t.Fatalf("jane first code=%d", w.Code)
	}
	// same admin from a different address shares the bucket
	if w := post(r, "10.2.0.2", map[string]string{HeaderAuthenticatedUser: "jane"}); w.Code != http.StatusTooManyRequests {
		t.Fatalf("jane second code=%d", w.Code)
	}
	if w := post(r, "10.2.0.1", nil); w.Code != http.StatusCreated {
		t.Fatalf("anonymous code=%d", w.Code)
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter("test_sweep", 10, 5, KeyByClientIP())
	now := time.Now()
	rl.get("ip:a", now)
	rl.get("ip:b", now.Add(9*time.Minute))
	if rl.Len() != 2 {
		t.Fatalf("len = %d", rl.Len())
	}
	if n := rl.Sweep(now.Add(10 * time.Minute)); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if rl.Len() != 1 {
		t.Fatalf("len after sweep = %d", rl.Len())
	}
}

func TestHourlyLimiter_TTLCoversRefill(t *testing.T) {
	rl := NewHourlyLimiter("test_ttl", 5, KeyByClientIP())
	if rl.ttl < time.Hour-time.Second {
		t.Fatalf("ttl = %v, want about an hour", rl.ttl)
	}
	if NewHourlyLimiter("test_zero", 0, KeyByClientIP()).burst != 1 {
		t.Fatal("n <= 0 should be raised to 1")
	}
}
