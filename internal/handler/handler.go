package handler

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"

	"DopamineBreaker/internal/middleware"
	"DopamineBreaker/internal/model"
	"DopamineBreaker/internal/service"
)

// Services handler 依赖的服务，测试中通过 Use 注入
type Services struct {
	Auth    *service.AuthService
	Catalog *service.CatalogService
	Refresh *service.RefreshService
	Record  *service.RecordService
	Medal   *service.MedalService
	Mission *service.MissionService
}

var (
	override     atomic.Pointer[Services]
	defaultsOnce sync.Once
	defaults     *Services
)

// defaultServices 首次请求时构建一次
var defaultServices = func() *Services {
	return &Services{
		Auth:    service.Auth(),
		Catalog: service.Catalog(),
		Refresh: service.Refresh(),
		Record:  service.Record(),
		Medal:   service.Medal(),
		Mission: service.Mission(),
	}
}

// Use 替换默认服务，传 nil 恢复默认
func Use(s *Services) {
	override.Store(s)
}

func services() *Services {
	if s := override.Load(); s != nil {
		return s
	}
	defaultsOnce.Do(func() {
		defaults = defaultServices()
	})
	return defaults
}

// viewer 未登录或 token 无效时为匿名
func viewer(ctx context.Context, c *app.RequestContext) model.Viewer {
	uid, ok := middleware.GetUserID(ctx, c)
	if !ok {
		return model.Anonymous()
	}
	return services().Auth.ViewerFor(ctx, uid)
}

// queryInt 缺省或非法时取默认值
func queryInt(c *app.RequestContext, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// Index GET /
func Index(ctx context.Context, c *app.RequestContext) {
	c.JSON(http.StatusOK, utils.H{"message": "DopamineBreaker API server", "status": "running"})
}

// Health GET /health
func Health(ctx context.Context, c *app.RequestContext) {
	c.JSON(http.StatusOK, utils.H{"status": "healthy"})
}
