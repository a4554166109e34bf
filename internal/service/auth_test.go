package service

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	ri "github.com/redis/go-redis/v9"

	"DopamineBreaker/internal/model"
	"DopamineBreaker/internal/model/dto"
	"DopamineBreaker/internal/repository"
	"DopamineBreaker/pkg/errors"
	"DopamineBreaker/pkg/snowflake"
	"DopamineBreaker/pkg/token"
	"DopamineBreaker/storage/redis"
)

type rejectingCaptcha struct{}

func (rejectingCaptcha) Verify(context.Context, string, string, string) (bool, error) {
	return false, nil
}

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	if err := snowflake.Init(1, 1); err != nil {
		t.Fatal(err)
	}
	if err := token.Init(); err != nil {
		t.Fatal(err)
	}
	return NewAuthService(repository.NewUserRepository(newTestDB(t)), nil)
}

func withRedis(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := ri.NewClient(&ri.Options{Addr: mr.Addr()})
	redis.SetClient(client)
	t.Cleanup(func() {
		redis.SetClient(nil)
		_ = client.Close()
	})
}

func register(t *testing.T, svc *AuthService, username, email string) *dto.UserSnapshot {
	t.Helper()
	user, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: username,
		Email:    email,
		Password: "secret123",
	}, "127.0.0.1")
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	return user
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	user := register(t, svc, "alice", "Alice@Example.com")
	if user.ID == "" || user.Email != "alice@example.com" {
		t.Errorf("user = %+v", user)
	}

	resp, err := svc.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "secret123"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" || resp.TokenType != "Bearer" || resp.ExpiresIn <= 0 {
		t.Errorf("tokens = %+v", resp)
	}
	if resp.User.ID != user.ID {
		t.Errorf("login user = %+v", resp.User)
	}

	uid, err := token.ParseAccessToken(resp.AccessToken)
	if err != nil || uid != user.ID {
		t.Errorf("access token uid = %q, %v", uid, err)
	}
	if _, err := token.ParseAccessToken(resp.RefreshToken); err == nil {
		t.Error("refresh token must not work as access token")
	}

	me, err := svc.Me(ctx, uid)
	if err != nil || me.Username != "alice" {
		t.Errorf("Me = %+v, %v", me, err)
	}
	if viewer := svc.ViewerFor(ctx, uid); viewer.UserID == nil {
		t.Error("viewer should be authenticated")
	}
	if viewer := svc.ViewerFor(ctx, "12345"); viewer != model.Anonymous() {
		t.Error("unknown uid should be anonymous")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService(t)
	register(t, svc, "alice", "alice@example.com")

	tests := []struct {
		name string
		req  dto.RegisterRequest
		want string
	}{
		{"missing fields", dto.RegisterRequest{Username: "bob"}, errors.InvalidRequest.Code},
		{"bad username", dto.RegisterRequest{Username: "b o b", Email: "bob@example.com", Password: "secret123"}, errors.InvalidRequest.Code},
		{"bad email", dto.RegisterRequest{Username: "bob", Email: "bob", Password: "secret123"}, errors.InvalidRequest.Code},
		{"short password", dto.RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "123"}, errors.InvalidRequest.Code},
		{"username taken", dto.RegisterRequest{Username: "alice", Email: "bob@example.com", Password: "secret123"}, errors.UsernameAlreadyExists.Code},
		{"email taken", dto.RegisterRequest{Username: "bob", Email: "alice@example.com", Password: "secret123"}, errors.EmailAlreadyExists.Code},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), &tt.req, "127.0.0.1")
			var def errors.Definition
			if !stderrors.As(err, &def) || def.Code != tt.want {
				t.Errorf("expected %s, got %v", tt.want, err)
			}
		})
	}
}

func TestRegisterCaptchaRejected(t *testing.T) {
	svc := newAuthService(t)
	svc.captcha = rejectingCaptcha{}

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "carol", Email: "carol@example.com", Password: "secret123",
	}, "127.0.0.1")
	if !stderrors.Is(err, errors.VerificationSliderFailed) {
		t.Errorf("expected VerificationSliderFailed, got %v", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc := newAuthService(t)
	register(t, svc, "alice", "alice@example.com")
	ctx := context.Background()

	if _, err := svc.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "wrong-pass"}); !stderrors.Is(err, errors.InvalidCredentials) {
		t.Errorf("wrong password: %v", err)
	}
	if _, err := svc.Login(ctx, &dto.LoginRequest{Username: "nobody", Password: "secret123"}); !stderrors.Is(err, errors.InvalidCredentials) {
		t.Errorf("unknown user: %v", err)
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	withRedis(t)
	svc := newAuthService(t)
	register(t, svc, "alice", "alice@example.com")
	ctx := context.Background()

	login, err := svc.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "secret123"})
	if err != nil {
		t.Fatal(err)
	}

	rotated, err := svc.RefreshToken(ctx, login.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if rotated.RefreshToken == login.RefreshToken {
		t.Error("refresh token should rotate")
	}

	if _, err := svc.RefreshToken(ctx, login.RefreshToken); !stderrors.Is(err, errors.RefreshTokenInvalid) {
		t.Errorf("old refresh token should be rejected, got %v", err)
	}
	if _, err := svc.RefreshToken(ctx, rotated.AccessToken); !stderrors.Is(err, errors.RefreshTokenInvalid) {
		t.Errorf("access token should not refresh, got %v", err)
	}
	if _, err := svc.RefreshToken(ctx, ""); !stderrors.Is(err, errors.RefreshTokenInvalid) {
		t.Errorf("empty token: %v", err)
	}
}
