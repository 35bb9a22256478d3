package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"order_management/internal/apperr"
)

const (
	maxRetryAttempts  = 3
	initialRetryDelay = 100 * time.Millisecond
)

// isTransientStoreErr 判断存储错误是否瞬时可重试。
// sqlite 的 busy/locked 属于瞬时竞争；约束冲突等确定性错误不重试。
func isTransientStoreErr(err error) bool {
	if err == nil {
		return false
	}
	if apperr.IsTransient(err) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "database is locked") ||
		strings.Contains(s, "database table is locked") ||
		strings.Contains(s, "busy")
}

// retryTransient 执行一次持久化操作，瞬时故障按指数退避重试：
// 100ms × 2^attempt，最多 3 次，重试耗尽后升级为内部错误。
// 每次重试重放同一份内存状态的保存，行级幂等。
func retryTransient(ctx context.Context, logger zerolog.Logger, op func() error) error {
	delay := initialRetryDelay
	var err error
	for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
		err = op()
		if err == nil || !isTransientStoreErr(err) {
			return err
		}
		if attempt == maxRetryAttempts {
			break
		}
		logger.Warn().
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(err).
			Msg("存储瞬时故障，退避后重试")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return apperr.Internal(err)
}
