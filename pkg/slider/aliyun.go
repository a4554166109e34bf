package slider

import (
	"context"
	"fmt"

	captcha "github.com/alibabacloud-go/captcha-20230305/client"
	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	"github.com/alibabacloud-go/tea/tea"
	credential "github.com/aliyun/credentials-go/credentials"
	"go.uber.org/zap"

	"DopamineBreaker/pkg/errors"
	"DopamineBreaker/pkg/logger"
)

// 注册接口同步等待校验结果，超时要比 HTTP 请求短
const (
	aliyunConnectTimeoutMs = 2000
	aliyunReadTimeoutMs    = 3000
)

// intelligentCaptchaAPI 便于测试替换 SDK 调用
type intelligentCaptchaAPI interface {
	VerifyIntelligentCaptcha(request *captcha.VerifyIntelligentCaptchaRequest) (*captcha.VerifyIntelligentCaptchaResponse, error)
}

// AliyunClient 阿里云智能验证码，只用于注册
type AliyunClient struct {
	api intelligentCaptchaAPI
}

// NewAliyunClient 凭证走默认凭证链（环境变量、配置文件或实例角色）
func NewAliyunClient(endpoint string) (*AliyunClient, error) {
	cred, err := credential.NewCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun credential: %w", err)
	}

	api, err := captcha.NewClient(&openapi.Config{
		Credential:     cred,
		Endpoint:       tea.String(endpoint),
		ConnectTimeout: tea.Int(aliyunConnectTimeoutMs),
		ReadTimeout:    tea.Int(aliyunReadTimeoutMs),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create captcha client: %w", err)
	}

	return &AliyunClient{api: api}, nil
}

func (c *AliyunClient) Verify(ctx context.Context, captchaVerifyParam, remoteIP, scene string) (bool, error) {
	if captchaVerifyParam == "" {
		return false, errors.ErrCaptchaTokenRequired
	}

	resp, err := c.api.VerifyIntelligentCaptcha(&captcha.VerifyIntelligentCaptchaRequest{
		CaptchaVerifyParam: tea.String(captchaVerifyParam),
		SceneId:            tea.String(scene),
	})
	if err != nil {
		logger.Logger.Error("Register captcha request failed",
			zap.String("scene", scene),
			zap.String("remote_ip", remoteIP),
			zap.Error(err),
		)
		return false, fmt.Errorf("failed to verify captcha: %w", err)
	}

	passed, err := interpret(resp)
	if err != nil {
		logger.Logger.Warn("Register captcha rejected",
			zap.String("scene", scene),
			zap.String("remote_ip", remoteIP),
			zap.Error(err),
		)
		return false, err
	}
	return passed, nil
}

// interpret VerifyResult 为 true 才算通过，其余情况都带上阿里云返回的 code
func interpret(resp *captcha.VerifyIntelligentCaptchaResponse) (bool, error) {
	if resp == nil || resp.Body == nil {
		return false, errors.ErrCaptchaResponseNil
	}
	body := resp.Body

	if body.Result != nil && tea.BoolValue(body.Result.VerifyResult) {
		return true, nil
	}

	code := tea.StringValue(body.Code)
	if code != "" && code != "200" {
		return false, fmt.Errorf("%w: %s - %s", errors.ErrCaptchaVerificationFailed, code, tea.StringValue(body.Message))
	}

	verifyCode := ""
	if body.Result != nil {
		verifyCode = tea.StringValue(body.Result.VerifyCode)
	}
	return false, fmt.Errorf("%w: verify code %q", errors.ErrCaptchaVerificationFailed, verifyCode)
}
