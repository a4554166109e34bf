package errors

import stderrors "errors"

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 通用错误。
var (
	InvalidRequest  = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	TooManyRequests = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests, please retry later"}
	InternalError   = Definition{Code: "INTERNAL_ERROR", Message: "Internal server error"}
)

// 认证相关错误。
var (
	Unauthorized             = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidCredentials       = Definition{Code: "INVALID_CREDENTIALS", Message: "Invalid credentials"}
	UsernameAlreadyExists    = Definition{Code: "USERNAME_ALREADY_EXISTS", Message: "Username already exists"}
	EmailAlreadyExists       = Definition{Code: "EMAIL_ALREADY_EXISTS", Message: "Email already exists"}
	RefreshTokenInvalid      = Definition{Code: "REFRESH_TOKEN_INVALID", Message: "Refresh token invalid"}
	VerificationSliderFailed = Definition{Code: "VERIFICATION_SLIDER_FAILED", Message: "Slider verification failed"}
	AdminTokenInvalid        = Definition{Code: "ADMIN_TOKEN_INVALID", Message: "Admin token invalid"}
)

// 每日任务模块错误。
var (
	CatalogNotGenerated  = Definition{Code: "CATALOG_NOT_GENERATED", Message: "Today's missions have not been generated yet"}
	CatalogRefreshFailed = Definition{Code: "CATALOG_REFRESH_FAILED", Message: "Daily mission generation failed"}
	InvalidTier          = Definition{Code: "INVALID_TIER", Message: "Invalid tier. Must be bronze, silver, or gold"}
	PresetMissionInvalid = Definition{Code: "PRESET_MISSION_INVALID", Message: "preset_mission_id must be between 1 and 13"}
)

// 自定义任务模块错误。
var (
	MissionNotFound      = Definition{Code: "MISSION_NOT_FOUND", Message: "Mission not found"}
	MissionFieldsMissing = Definition{Code: "MISSION_FIELDS_MISSING", Message: "title and duration are required"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	InvalidRequest.Code:           InvalidRequest,
	TooManyRequests.Code:          TooManyRequests,
	InternalError.Code:            InternalError,
	Unauthorized.Code:             Unauthorized,
	InvalidCredentials.Code:       InvalidCredentials,
	UsernameAlreadyExists.Code:    UsernameAlreadyExists,
	EmailAlreadyExists.Code:       EmailAlreadyExists,
	RefreshTokenInvalid.Code:      RefreshTokenInvalid,
	VerificationSliderFailed.Code: VerificationSliderFailed,
	AdminTokenInvalid.Code:        AdminTokenInvalid,
	CatalogNotGenerated.Code:      CatalogNotGenerated,
	CatalogRefreshFailed.Code:     CatalogRefreshFailed,
	InvalidTier.Code:              InvalidTier,
	PresetMissionInvalid.Code:     PresetMissionInvalid,
	MissionNotFound.Code:          MissionNotFound,
	MissionFieldsMissing.Code:     MissionFieldsMissing,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// 存储与生成相关的哨兵错误，调用方通过 errors.Is 判断。
var (
	ErrGeneration      = stderrors.New("mission generation failed")
	ErrDuplicateEntry  = stderrors.New("catalog entry already exists for date")
	ErrCatalogNotFound = stderrors.New("catalog entry not found")
	ErrStorage         = stderrors.New("storage write failed")
)

// token 相关哨兵错误。
var (
	ErrTokenGeneratorNotInitialized = stderrors.New("token generator not initialized")
	ErrUnexpectedSigningMethod      = stderrors.New("unexpected signing method")
	ErrInvalidToken                 = stderrors.New("invalid token")
	ErrInvalidTokenClaims           = stderrors.New("invalid token claims")
	ErrInvalidTokenType             = stderrors.New("invalid token type")
	ErrUserIDNotFound               = stderrors.New("user id not found in token")
)

// 滑块验证相关哨兵错误。
var (
	ErrUnsupportedCaptchaProvider = stderrors.New("unsupported captcha provider")
	ErrCaptchaTokenRequired       = stderrors.New("captcha token required")
	ErrCaptchaResponseNil         = stderrors.New("captcha response is nil")
	ErrCaptchaVerificationFailed  = stderrors.New("captcha verification failed")
)
