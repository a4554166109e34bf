package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/jwt"

	"DopamineBreaker/config"
	"DopamineBreaker/pkg/errors"
	"DopamineBreaker/pkg/response"
	"DopamineBreaker/pkg/token"
)

const (
	IdentityKey = token.IdentityKey

	// AdminTokenHeader 手动生成每日任务时携带的管理令牌
	AdminTokenHeader = "X-Admin-Token"
)

var (
	authMiddleware *jwt.HertzJWTMiddleware
)

func initAuthMiddleware() error {
	// 使用 token 包中共享的生成器
	sharedGenerator := token.GetGenerator()
	if sharedGenerator == nil {
		return fmt.Errorf("token generator not initialized, call token.Init() first")
	}

	mw, err := jwt.New(&jwt.HertzJWTMiddleware{
		Realm:       "DopamineBreaker API",
		Key:         sharedGenerator.Key,
		Timeout:     sharedGenerator.Timeout,
		MaxRefresh:  sharedGenerator.MaxRefresh,
		IdentityKey: sharedGenerator.IdentityKey,
		TimeFunc:    sharedGenerator.TimeFunc,

		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			uid, ok := uidFromClaims(jwt.ExtractClaims(ctx, c))
			if !ok {
				return nil
			}
			return uid
		},

		// refresh token 不能当作 access token 使用
		Authorizator: func(data interface{}, ctx context.Context, c *app.RequestContext) bool {
			_, isRefresh := jwt.ExtractClaims(ctx, c)["type"]
			return data != nil && !isRefresh
		},

		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			c.JSON(code, response.ErrorResponse{
				Error: response.ErrorDetail{
					Code:    errors.Unauthorized.Code,
					Message: message,
				},
			})
		},

		TokenLookup:   "header: Authorization, query: token",
		TokenHeadName: "Bearer",
	})
	if err != nil {
		return fmt.Errorf("failed to build auth middleware: %w", err)
	}

	authMiddleware = mw
	return nil
}

// AuthMiddleware 必须登录
func AuthMiddleware() app.HandlerFunc {
	if authMiddleware == nil {
		panic("AuthMiddleware not initialized, call Init() first")
	}
	return authMiddleware.MiddlewareFunc()
}

// OptionalAuthMiddleware token 合法时写入用户 ID，缺失或任何校验失败都按未登录继续
func OptionalAuthMiddleware() app.HandlerFunc {
	if authMiddleware == nil {
		panic("OptionalAuthMiddleware not initialized, call Init() first")
	}

	return func(ctx context.Context, c *app.RequestContext) {
		claims, err := authMiddleware.GetClaimsFromJWT(ctx, c)
		if err == nil {
			if _, isRefresh := claims["type"]; !isRefresh && claimsUnexpired(claims) {
				if uid, ok := uidFromClaims(claims); ok {
					c.Set(IdentityKey, uid)
				}
			}
		}
		c.Next(ctx)
	}
}

// AdminTokenMiddleware ADMIN_TOKEN 未配置时接口关闭
func AdminTokenMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		expected := config.Cfg.AdminToken
		provided := string(c.GetHeader(AdminTokenHeader))

		if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) != 1 {
			response.Error(ctx, c, errors.AdminTokenInvalid)
			c.Abort()
			return
		}
		c.Next(ctx)
	}
}

// GetUserID 从请求上下文中获取用户ID（public_id，字符串格式）
func GetUserID(ctx context.Context, c *app.RequestContext) (string, bool) {
	userID, exists := c.Get(IdentityKey)
	if !exists {
		return "", false
	}

	id, ok := userID.(string)
	if !ok || id == "" {
		return "", false
	}

	return id, true
}

func uidFromClaims(claims jwt.MapClaims) (string, bool) {
	switch v := claims[IdentityKey].(type) {
	case string:
		return v, v != ""
	case float64:
		return fmt.Sprintf("%.0f", v), true
	default:
		return "", false
	}
}

// claimsUnexpired GetClaimsFromJWT 已校验签名和 exp，这里只兜底缺少 exp 的 token
func claimsUnexpired(claims jwt.MapClaims) bool {
	exp, ok := claims["exp"].(float64)
	return ok && int64(exp) > authMiddleware.TimeFunc().Unix()
}
