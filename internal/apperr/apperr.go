package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误分类，决定边界层的 HTTP 映射与是否可重试。
type Kind int

const (
	KindValidation   Kind = iota // 入参不合法，调用方问题，不重试
	KindBusinessRule             // 合法请求但违反业务规则（重复账户、总额 ≤ 0 等）
	KindNotFound                 // 资源不存在或不属于请求者（刻意不区分，防枚举）
	KindAuth                     // 凭证错误或账户停用，不透露具体原因
	KindTransient                // 存储瞬时故障，可按退避策略重试
	KindInternal                 // 未预期错误，只对外暴露通用消息
)

// Error 带分类的业务错误。Message 可以直接下发给调用方；
// 内部原因放在 Err 里，只进日志不出边界。
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error   { return &Error{Kind: KindValidation, Message: msg} }
func BusinessRule(msg string) *Error { return &Error{Kind: KindBusinessRule, Message: msg} }
func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func Auth(msg string) *Error         { return &Error{Kind: KindAuth, Message: msg} }

// Transient 包装一次存储瞬时故障。
func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Message: "存储暂时不可用", Err: err}
}

// Internal 包装未预期错误，对外只暴露通用消息。
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "内部服务错误", Err: err}
}

// KindOf 提取错误分类，无法识别的错误一律按 Internal 处理。
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsTransient 判断是否瞬时故障（重试策略的判定入口）。
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}
