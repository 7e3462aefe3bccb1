package types

import "errors"

// 服务层错误分类
// 处理器通过 errors.Is 映射为 HTTP 状态码
var (
	// ErrNotFound 会话或资源不存在
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized 会话归属校验失败
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBadRequest 非法请求（会话非活跃、捐赠人列表为空、未知工具名等）
	ErrBadRequest = errors.New("bad request")
	// ErrValidation 工具参数或结构化输出不符合 schema
	ErrValidation = errors.New("validation failed")
	// ErrUpstream 补全能力调用失败（可重试）
	ErrUpstream = errors.New("upstream completion failed")
	// ErrUpstreamTimeout 补全能力调用超时（可重试）
	ErrUpstreamTimeout = errors.New("upstream completion timed out")
	// ErrInternal 持久化等内部错误
	ErrInternal = errors.New("internal error")
)

// Retryable 判断错误是否值得由服务层重试
// 归属和不存在类错误永不重试
func Retryable(err error) bool {
	return errors.Is(err, ErrUpstream) || errors.Is(err, ErrUpstreamTimeout)
}
