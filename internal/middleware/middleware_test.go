package middleware

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/hertz/pkg/app"
	hconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"
	ri "github.com/redis/go-redis/v9"

	"DopamineBreaker/config"
	"DopamineBreaker/pkg/token"
	"DopamineBreaker/storage/redis"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *ri.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := ri.NewClient(&ri.Options{Addr: mr.Addr()})
	redis.SetClient(client)
	t.Cleanup(func() {
		redis.SetClient(nil)
		_ = client.Close()
	})
	return mr, client
}

func newEngine() *route.Engine {
	return route.NewEngine(hconfig.NewOptions([]hconfig.Option{}))
}

func pong(ctx context.Context, c *app.RequestContext) {
	c.String(http.StatusOK, "ok")
}

func TestRateLimiterAllow(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{Window: 60, MaxRequests: 2, KeyPrefix: "test:rate", BlockDuration: 60}, client)
	rl.now = func() time.Time { return now }

	for i := 1; i <= 2; i++ {
		allowed, count, err := rl.Allow(ctx, "ip:1.2.3.4")
		if err != nil {
			t.Fatal(err)
		}
		if !allowed || count != i {
			t.Fatalf("request %d: allowed=%v count=%d", i, allowed, count)
		}
		now = now.Add(time.Second)
	}

	allowed, count, err := rl.Allow(ctx, "ip:1.2.3.4")
	if err != nil {
		t.Fatal(err)
	}
	if allowed || count != 3 {
		t.Fatalf("third request: allowed=%v count=%d", allowed, count)
	}

	// 其它客户端不受影响
	if allowed, _, _ := rl.Allow(ctx, "ip:5.6.7.8"); !allowed {
		t.Fatal("other client should be allowed")
	}

	// 窗口滑过后旧记录被清理
	now = now.Add(2 * time.Minute)
	allowed, count, err = rl.Allow(ctx, "ip:1.2.3.4")
	if err != nil {
		t.Fatal(err)
	}
	if !allowed || count != 1 {
		t.Fatalf("after window: allowed=%v count=%d", allowed, count)
	}
}

func TestRateLimiterBlock(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()
	rl := NewRateLimiter(RateLimitConfig{Window: 60, MaxRequests: 1, KeyPrefix: "test:rate", BlockDuration: 30}, client)

	blocked, err := rl.IsBlocked(ctx, "user:1")
	if err != nil || blocked {
		t.Fatalf("blocked=%v err=%v", blocked, err)
	}
	if err := rl.Block(ctx, "user:1"); err != nil {
		t.Fatal(err)
	}
	if blocked, _ := rl.IsBlocked(ctx, "user:1"); !blocked {
		t.Fatal("expected blocked")
	}
	if !mr.Exists(redis.Key("test:rate", "block", "user:1")) {
		t.Fatal("block key missing")
	}

	mr.FastForward(31 * time.Second)
	if blocked, _ := rl.IsBlocked(ctx, "user:1"); blocked {
		t.Fatal("block should expire")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	setupRedis(t)
	if !config.Cfg.RateLimitEnabled {
		t.Skip("rate limit disabled by environment")
	}

	r := newEngine()
	r.GET("/ping", RateLimitMiddleware(RateLimitConfig{Window: 60, MaxRequests: 2, KeyPrefix: "test:mw", ByIP: true, BlockDuration: 60}), pong)

	for i := 0; i < 2; i++ {
		resp := ut.PerformRequest(r, http.MethodGet, "/ping", nil).Result()
		if resp.StatusCode() != http.StatusOK {
			t.Fatalf("request %d: status %d", i, resp.StatusCode())
		}
		if string(resp.Header.Peek("X-RateLimit-Limit")) != "2" {
			t.Fatalf("limit header = %q", resp.Header.Peek("X-RateLimit-Limit"))
		}
	}

	resp := ut.PerformRequest(r, http.MethodGet, "/ping", nil).Result()
	if resp.StatusCode() != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode())
	}
	if !strings.Contains(string(resp.Body()), "TOO_MANY_REQUESTS") {
		t.Fatalf("body = %s", resp.Body())
	}

	// 被封禁后直接拒绝
	resp = ut.PerformRequest(r, http.MethodGet, "/ping", nil).Result()
	if resp.StatusCode() != http.StatusTooManyRequests {
		t.Fatalf("blocked status = %d", resp.StatusCode())
	}
}

func TestRateLimitMiddlewareWithoutRedis(t *testing.T) {
	redis.SetClient(nil)

	r := newEngine()
	r.GET("/ping", RateLimitMiddleware(RateLimitConfig{Window: 60, MaxRequests: 1, KeyPrefix: "test:mw"}), pong)

	for i := 0; i < 3; i++ {
		if resp := ut.PerformRequest(r, http.MethodGet, "/ping", nil).Result(); resp.StatusCode() != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode())
		}
	}
}

func TestAdminTokenMiddleware(t *testing.T) {
	prev := config.Cfg.AdminToken
	t.Cleanup(func() { config.Cfg.AdminToken = prev })

	r := newEngine()
	r.POST("/generate", AdminTokenMiddleware(), pong)

	tests := []struct {
		name       string
		configured string
		header     string
		want       int
	}{
		{"disabled", "", "", http.StatusForbidden},
		{"disabled with header", "", "anything", http.StatusForbidden},
		{"missing", "s3cret", "", http.StatusForbidden},
		{"wrong", "s3cret", "nope", http.StatusForbidden},
		{"match", "s3cret", "s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config.Cfg.AdminToken = tt.configured
			var headers []ut.Header
			if tt.header != "" {
				headers = append(headers, ut.Header{Key: AdminTokenHeader, Value: tt.header})
			}
			resp := ut.PerformRequest(r, http.MethodPost, "/generate", nil, headers...).Result()
			if resp.StatusCode() != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode(), tt.want)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	r := newEngine()
	r.Use(CORSMiddleware([]string{"http://localhost:5173/"}))
	r.GET("/ping", pong)
	r.OPTIONS("/ping", pong)

	resp := ut.PerformRequest(r, http.MethodOptions, "/ping", nil, ut.Header{Key: "Origin", Value: "http://localhost:5173"}).Result()
	if resp.StatusCode() != http.StatusNoContent {
		t.Fatalf("preflight status = %d", resp.StatusCode())
	}
	if got := string(resp.Header.Peek("Access-Control-Allow-Origin")); got != "http://localhost:5173" {
		t.Fatalf("allow origin = %q", got)
	}
	if !strings.Contains(string(resp.Header.Peek("Access-Control-Allow-Headers")), AdminTokenHeader) {
		t.Fatal("admin header should be allowed")
	}

	resp = ut.PerformRequest(r, http.MethodGet, "/ping", nil, ut.Header{Key: "Origin", Value: "http://evil.example"}).Result()
	if resp.StatusCode() != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode())
	}
	if got := resp.Header.Peek("Access-Control-Allow-Origin"); len(got) != 0 {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	r := newEngine()
	r.Use(RecoverMiddlewareWithConfig(RecoverConfig{IsProduction: true}))
	r.GET("/boom", func(ctx context.Context, c *app.RequestContext) {
		panic("kaboom")
	})

	resp := ut.PerformRequest(r, http.MethodGet, "/boom", nil).Result()
	if resp.StatusCode() != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode())
	}
	if strings.Contains(string(resp.Body()), "kaboom") {
		t.Fatal("production response should hide panic details")
	}

	r = newEngine()
	r.Use(RecoverMiddlewareWithConfig(RecoverConfig{}))
	r.GET("/boom", func(ctx context.Context, c *app.RequestContext) {
		panic("kaboom")
	})
	resp = ut.PerformRequest(r, http.MethodGet, "/boom", nil).Result()
	if resp.StatusCode() != http.StatusInternalServerError || !strings.Contains(string(resp.Body()), "kaboom") {
		t.Fatalf("status = %d body = %s", resp.StatusCode(), resp.Body())
	}
}

func initAuth(t *testing.T) {
	t.Helper()
	if err := token.Init(); err != nil {
		t.Fatal(err)
	}
	if err := Init(); err != nil {
		t.Fatal(err)
	}
}

func bearer(tok string) ut.Header {
	return ut.Header{Key: "Authorization", Value: "Bearer " + tok}
}

func whoami(ctx context.Context, c *app.RequestContext) {
	uid, ok := GetUserID(ctx, c)
	if !ok {
		uid = "anonymous"
	}
	c.String(http.StatusOK, uid)
}

func TestAuthMiddleware(t *testing.T) {
	initAuth(t)
	access, refresh, _, err := token.GenerateTokenPair("1001")
	if err != nil {
		t.Fatal(err)
	}

	r := newEngine()
	r.GET("/me", AuthMiddleware(), whoami)

	resp := ut.PerformRequest(r, http.MethodGet, "/me", nil, bearer(access)).Result()
	if resp.StatusCode() != http.StatusOK || string(resp.Body()) != "1001" {
		t.Fatalf("status = %d body = %s", resp.StatusCode(), resp.Body())
	}

	// refresh token 签名合法但被 Authorizator 拒绝
	tests := []struct {
		name    string
		headers []ut.Header
		want    int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"garbage", []ut.Header{bearer("not-a-jwt")}, http.StatusUnauthorized},
		{"refresh", []ut.Header{bearer(refresh)}, http.StatusForbidden},
	}
	for _, tt := range tests {
		resp := ut.PerformRequest(r, http.MethodGet, "/me", nil, tt.headers...).Result()
		if resp.StatusCode() != tt.want {
			t.Fatalf("%s: status = %d, want %d", tt.name, resp.StatusCode(), tt.want)
		}
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	initAuth(t)
	access, refresh, _, err := token.GenerateTokenPair("1001")
	if err != nil {
		t.Fatal(err)
	}

	r := newEngine()
	r.GET("/whoami", OptionalAuthMiddleware(), whoami)

	tests := []struct {
		name    string
		headers []ut.Header
		want    string
	}{
		{"anonymous", nil, "anonymous"},
		{"access", []ut.Header{bearer(access)}, "1001"},
		{"refresh token is ignored", []ut.Header{bearer(refresh)}, "anonymous"},
		{"invalid token is ignored", []ut.Header{bearer("not-a-jwt")}, "anonymous"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ut.PerformRequest(r, http.MethodGet, "/whoami", nil, tt.headers...).Result()
			if resp.StatusCode() != http.StatusOK || string(resp.Body()) != tt.want {
				t.Fatalf("status = %d body = %s", resp.StatusCode(), resp.Body())
			}
		})
	}
}
