package slider

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"DopamineBreaker/config"
	"DopamineBreaker/pkg/errors"
	"DopamineBreaker/pkg/logger"
)

const defaultAliyunEndpoint = "captcha.cn-shanghai.aliyuncs.com"

// Client 滑块验证客户端接口
type Client interface {
	// Verify captchaVerifyParam 为前端滑块组件返回的 token，scene 为业务场景
	Verify(ctx context.Context, captchaVerifyParam, remoteIP, scene string) (bool, error)
}

var (
	sliderClient Client
	sliderOnce   sync.Once
	sliderErr    error
)

// Init 初始化滑块验证客户端，provider 为 none 时注册不做人机校验
func Init() error {
	sliderOnce.Do(func() {
		cfg := config.Cfg

		switch cfg.CaptchaProvider {
		case "aliyun":
			sliderClient, sliderErr = NewAliyunClient(defaultAliyunEndpoint)
		case "none", "":
			sliderClient = NoopClient{}
		default:
			sliderErr = fmt.Errorf("%w: %s", errors.ErrUnsupportedCaptchaProvider, cfg.CaptchaProvider)
		}

		if sliderErr != nil {
			logger.Logger.Error("Failed to initialize slider client", zap.Error(sliderErr))
			return
		}

		logger.Logger.Info("Slider client initialized successfully",
			zap.String("provider", cfg.CaptchaProvider),
		)
	})

	return sliderErr
}

// GetClient 未初始化时退化为 NoopClient
func GetClient() Client {
	if sliderClient == nil {
		return NoopClient{}
	}
	return sliderClient
}

// SetClient 测试中替换客户端
func SetClient(c Client) {
	sliderClient = c
}

func Verify(ctx context.Context, captchaVerifyParam, remoteIP, scene string) (bool, error) {
	return GetClient().Verify(ctx, captchaVerifyParam, remoteIP, scene)
}
