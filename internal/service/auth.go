package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"DopamineBreaker/config"
	"DopamineBreaker/internal/cache"
	"DopamineBreaker/internal/model"
	"DopamineBreaker/internal/model/dto"
	"DopamineBreaker/internal/repository"
	"DopamineBreaker/pkg/errors"
	"DopamineBreaker/pkg/logger"
	"DopamineBreaker/pkg/slider"
	"DopamineBreaker/pkg/snowflake"
	"DopamineBreaker/pkg/token"
	"DopamineBreaker/storage/database"
	"DopamineBreaker/utils"
)

const minPasswordLength = 6

var (
	authService *AuthService
	authOnce    sync.Once
)

func Auth() *AuthService {
	authOnce.Do(func() {
		authService = NewAuthService(repository.NewUserRepository(database.DB()), slider.GetClient())
	})
	return authService
}

type AuthService struct {
	users   repository.UserRepository
	captcha slider.Client
}

func NewAuthService(users repository.UserRepository, captcha slider.Client) *AuthService {
	if captcha == nil {
		captcha = slider.NoopClient{}
	}
	return &AuthService{users: users, captcha: captcha}
}

// Register 用户名和邮箱都唯一，冲突时返回 409 对应的错误码
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest, remoteIP string) (*dto.UserSnapshot, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if username == "" || email == "" || req.Password == "" {
		return nil, errors.Definition{Code: errors.InvalidRequest.Code, Message: "Username, email, and password are required"}
	}
	if !utils.ValidateUsername(username) {
		return nil, errors.Definition{Code: errors.InvalidRequest.Code, Message: "Username must be 3-50 letters, digits, '_', '.' or '-'"}
	}
	if !utils.ValidateEmail(email) {
		return nil, errors.Definition{Code: errors.InvalidRequest.Code, Message: "Email is invalid"}
	}
	if len(req.Password) < minPasswordLength {
		return nil, errors.Definition{Code: errors.InvalidRequest.Code, Message: fmt.Sprintf("Password must be at least %d characters", minPasswordLength)}
	}

	ok, err := s.captcha.Verify(ctx, req.CaptchaVerifyParam, remoteIP, config.Cfg.CaptchaSceneID)
	if err != nil || !ok {
		logger.Logger.Warn("Register captcha verification failed",
			zap.String("remote_ip", remoteIP),
			zap.Error(err),
		)
		return nil, errors.VerificationSliderFailed
	}

	taken, err := s.users.UsernameTaken(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errors.UsernameAlreadyExists
	}

	taken, err = s.users.EmailTaken(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errors.EmailAlreadyExists
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID: %w", err)
	}

	user := &model.User{
		PublicID:     publicID,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// 并发注册时唯一索引兜底
		if stderrors.Is(err, errors.ErrDuplicateEntry) {
			return nil, errors.UsernameAlreadyExists
		}
		return nil, err
	}

	logger.Logger.Info("User registered",
		zap.Int64("public_id", user.PublicID),
		zap.String("username", user.Username),
	)

	snapshot := userSnapshot(user)
	return &snapshot, nil
}

// Login 用户名或密码错误都返回 INVALID_CREDENTIALS
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthTokenResponse, error) {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return nil, errors.Definition{Code: errors.InvalidRequest.Code, Message: "Username and password are required"}
	}

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errors.InvalidCredentials
		}
		return nil, err
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return nil, errors.InvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

// RefreshToken 校验 refresh token 并轮换出新的 token 对
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.AuthTokenResponse, error) {
	if refreshToken == "" {
		return nil, errors.RefreshTokenInvalid
	}

	uid, err := token.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, errors.RefreshTokenInvalid
	}

	if !cache.ValidateRefreshTokenExists(ctx, uid, refreshToken) {
		return nil, errors.RefreshTokenInvalid
	}

	publicID, err := strconv.ParseInt(uid, 10, 64)
	if err != nil {
		return nil, errors.RefreshTokenInvalid
	}

	user, err := s.users.GetByPublicID(ctx, publicID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errors.RefreshTokenInvalid
		}
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

// Me token 中的用户已被删除时视为未授权
func (s *AuthService) Me(ctx context.Context, uid string) (*dto.UserSnapshot, error) {
	publicID, err := strconv.ParseInt(uid, 10, 64)
	if err != nil {
		return nil, errors.Unauthorized
	}

	user, err := s.users.GetByPublicID(ctx, publicID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errors.Unauthorized
		}
		return nil, err
	}

	snapshot := userSnapshot(user)
	return &snapshot, nil
}

// ViewerFor 把 token 中的 public_id 换成库内 id，找不到用户时按未登录处理
func (s *AuthService) ViewerFor(ctx context.Context, uid string) model.Viewer {
	if uid == "" {
		return model.Anonymous()
	}

	publicID, err := strconv.ParseInt(uid, 10, 64)
	if err != nil {
		return model.Anonymous()
	}

	user, err := s.users.GetByPublicID(ctx, publicID)
	if err != nil {
		if !repository.IsNotFound(err) {
			logger.Logger.Warn("Failed to resolve viewer", zap.String("uid", uid), zap.Error(err))
		}
		return model.Anonymous()
	}
	return model.Authenticated(user.ID)
}

func (s *AuthService) issueTokens(ctx context.Context, user *model.User) (*dto.AuthTokenResponse, error) {
	uid := strconv.FormatInt(user.PublicID, 10)

	accessToken, refreshToken, expiresIn, err := token.GenerateTokenPair(uid)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token pair: %w", err)
	}

	if err := cache.SetRefreshToken(ctx, uid, refreshToken); err != nil {
		logger.Logger.Warn("Failed to store refresh token",
			zap.String("uid", uid),
			zap.Error(err),
		)
	}

	return &dto.AuthTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
		User:         userSnapshot(user),
	}, nil
}

func userSnapshot(user *model.User) dto.UserSnapshot {
	return dto.UserSnapshot{
		ID:       strconv.FormatInt(user.PublicID, 10),
		Username: user.Username,
		Email:    user.Email,
	}
}
