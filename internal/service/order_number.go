package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	orderNoPrefix     = "ORD"
	orderNoTimeLayout = "20060102150405" // UTC yyyyMMddHHmmss
	// 时间戳 + 随机后缀理论上几乎不会碰撞，但唯一性靠显式查重保证，
	// 连续碰撞到上限说明存储已经异常，直接失败。
	maxOrderNoAttempts = 10
)

// generateOrderNumber 生成候选订单号：ORD-yyyyMMddHHmmss-xxxxxxxx（8 位小写 hex）。
func generateOrderNumber() string {
	return fmt.Sprintf("%s-%s-%s",
		orderNoPrefix,
		time.Now().UTC().Format(orderNoTimeLayout),
		uuid.NewString()[:8])
}

// computeTotal 汇总行项目金额：quantity × unit_price。
// 空名称的行视为未填完的占位行，不参与计算。
func computeTotal(items []OrderItemInput) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if strings.TrimSpace(it.ProductName) == "" {
			continue
		}
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
