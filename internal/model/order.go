package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus 订单履约状态（0-4，接口上直接用整数传输）
type OrderStatus int

const (
	StatusPending   OrderStatus = iota // 待处理
	StatusConfirmed                    // 已确认
	StatusShipped                      // 已发货
	StatusDelivered                    // 已送达
	StatusCancelled                    // 已取消
)

// ValidStatus 校验履约状态取值范围。
func ValidStatus(v int) bool {
	return v >= int(StatusPending) && v <= int(StatusCancelled)
}

// ApprovalStatus 管理员审批状态，与履约状态相互独立。
type ApprovalStatus int

const (
	ApprovalPending ApprovalStatus = iota
	ApprovalApproved
	ApprovalRejected
)

// Order 订单主记录。
// 归属关系创建后不可变；DeletedAt 即软删除标记，软删除的订单对读写接口不可见，
// 但行保留用于审计，order_no 的唯一性覆盖软删除行。
type Order struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrderNo         string          `gorm:"size:64;uniqueIndex;not null" json:"order_no"`
	UserID          uint            `gorm:"not null;index" json:"user_id"`
	Status          OrderStatus     `gorm:"not null;default:0" json:"status"`
	ApprovalStatus  ApprovalStatus  `gorm:"not null;default:0" json:"approval_status"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_amount"`
	Description     string          `gorm:"size:500;not null" json:"description"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	RejectionReason *string         `gorm:"size:500" json:"rejection_reason,omitempty"`

	Items []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`

	// OwnerName 由 service 层单独查询填充（管理员视图需要归属人），不落库。
	OwnerName string `gorm:"-" json:"owner_name,omitempty"`
}

// 显式实现结构，确定表名
func (Order) TableName() string { return "orders" }

// OrderItem 订单行项目。只保留 OrderID 外键，不反向引用 Order。
type OrderItem struct {
	ID      uint `gorm:"primarykey" json:"id"`
	OrderID uint `gorm:"not null;index" json:"order_id"`

	ProductName string          `gorm:"size:200;not null" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_price"` // quantity × unit_price
}

func (OrderItem) TableName() string { return "order_items" }
