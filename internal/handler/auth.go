package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"DopamineBreaker/internal/middleware"
	"DopamineBreaker/internal/model/dto"
	"DopamineBreaker/pkg/errors"
	"DopamineBreaker/pkg/response"
)

// Register 注册
// POST /api/auth/register
func Register(ctx context.Context, c *app.RequestContext) {
	var req dto.RegisterRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	user, err := services().Auth.Register(ctx, &req, c.ClientIP())
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, map[string]interface{}{
		"message": "User created successfully",
		"user":    user,
	})
}

// Login 登录并签发 token 对
// POST /api/auth/login
func Login(ctx context.Context, c *app.RequestContext) {
	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	tokens, err := services().Auth.Login(ctx, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, tokens)
}

// RefreshToken 刷新访问令牌
// POST /api/auth/token/refresh
func RefreshToken(ctx context.Context, c *app.RequestContext) {
	var req dto.RefreshTokenRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	tokens, err := services().Auth.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, tokens)
}

// Me 当前登录用户
// GET /api/auth/me
func Me(ctx context.Context, c *app.RequestContext) {
	uid, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	user, err := services().Auth.Me(ctx, uid)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, user)
}
