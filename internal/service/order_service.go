package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"order_management/internal/apperr"
	"order_management/internal/model"
)

const (
	maxDescriptionLen = 500
	maxProductNameLen = 200
	maxItemsPerOrder  = 100
)

// OrderItemInput 创建/更新订单时的行项目入参。
type OrderItemInput struct {
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// CreateOrderInput 创建订单入参。
type CreateOrderInput struct {
	Description string
	Items       []OrderItemInput
}

// UpdateOrderInput 更新订单入参。Items 为 nil 时保留原有行项目。
type UpdateOrderInput struct {
	Description string
	Status      int
	Items       []OrderItemInput
}

// OrderService 订单生命周期：创建、查询、更新、软删除与管理员审批。
// 所有读写只作用于未软删除的行；归属校验失败与不存在返回同一个 not found，
// 不向非归属人暴露订单是否存在。
type OrderService struct {
	db     *gorm.DB
	logger zerolog.Logger

	// newOrderNo 可替换，用于演练订单号碰撞路径。
	newOrderNo func() string
}

func NewOrderService(db *gorm.DB, logger zerolog.Logger) *OrderService {
	return &OrderService{
		db:         db,
		logger:     logger.With().Str("component", "order_service").Logger(),
		newOrderNo: generateOrderNumber,
	}
}

// uniqueOrderNo 生成并查重订单号。唯一性覆盖软删除行，所以查重走 Unscoped。
func (s *OrderService) uniqueOrderNo(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxOrderNoAttempts; attempt++ {
		no := s.newOrderNo()
		var count int64
		err := s.db.WithContext(ctx).Unscoped().
			Model(&model.Order{}).
			Where("order_no = ?", no).
			Count(&count).Error
		if err != nil {
			return "", apperr.Internal(err)
		}
		if count == 0 {
			return no, nil
		}
		s.logger.Warn().Str("order_no", no).Msg("订单号碰撞，重新生成")
	}
	return "", apperr.Internal(fmt.Errorf("订单号连续碰撞 %d 次", maxOrderNoAttempts))
}

// validateItems 校验行项目：空名称行放行（后续被丢弃），完整行要求数量与单价为正。
func validateItems(items []OrderItemInput) error {
	if len(items) > maxItemsPerOrder {
		return apperr.Validation(fmt.Sprintf("订单最多包含 %d 个条目", maxItemsPerOrder))
	}
	complete := 0
	for _, it := range items {
		if strings.TrimSpace(it.ProductName) == "" {
			continue
		}
		complete++
		if len(it.ProductName) > maxProductNameLen {
			return apperr.Validation("商品名称过长")
		}
		if it.Quantity <= 0 {
			return apperr.Validation("条目数量必须大于 0")
		}
		if it.UnitPrice.LessThanOrEqual(decimal.Zero) {
			return apperr.Validation("条目单价必须大于 0")
		}
	}
	if complete == 0 {
		return apperr.Validation("订单至少包含一个有效条目")
	}
	return nil
}

// buildItems 将入参转为实体，丢弃空名称的占位行。
func buildItems(items []OrderItemInput) []model.OrderItem {
	out := make([]model.OrderItem, 0, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.ProductName)
		if name == "" {
			continue
		}
		qty := decimal.NewFromInt(int64(it.Quantity))
		out = append(out, model.OrderItem{
			ProductName: name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.UnitPrice.Mul(qty),
		})
	}
	return out
}

// CreateOrder 创建订单：校验入参 → 确认归属用户存在 → 计算总额（必须 > 0）
// → 生成唯一订单号 → 订单头与行项目在同一事务内落库（含重试策略）。
func (s *OrderService) CreateOrder(ctx context.Context, userID uint, in CreateOrderInput) (*model.Order, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, apperr.Validation("订单描述不能为空")
	}
	if len(desc) > maxDescriptionLen {
		return nil, apperr.Validation("订单描述过长")
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation("订单至少包含一个条目")
	}
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}

	var owner model.User
	if err := s.db.WithContext(ctx).First(&owner, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("用户不存在")
		}
		return nil, apperr.Internal(err)
	}

	total := computeTotal(in.Items)
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.BusinessRule("订单总额必须大于 0")
	}

	orderNo, err := s.uniqueOrderNo(ctx)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		OrderNo:        orderNo,
		UserID:         userID,
		Status:         model.StatusPending,
		ApprovalStatus: model.ApprovalPending,
		TotalAmount:    total,
		Description:    desc,
		Items:          buildItems(in.Items),
	}

	// gorm 对带关联的 Create 本身就是单事务：订单头与行项目要么全部写入要么都不写。
	err = retryTransient(ctx, s.logger, func() error {
		return s.db.WithContext(ctx).Create(order).Error
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			return nil, err
		}
		return nil, apperr.Internal(err)
	}

	order.OwnerName = owner.Username
	s.logger.Info().
		Str("order_no", order.OrderNo).
		Uint("user_id", userID).
		Str("total", total.String()).
		Int("items", len(order.Items)).
		Msg("订单已创建")
	return order, nil
}

// GetOrder 按归属查询单个订单。不属于请求者或已软删除时一律返回 not found。
func (s *OrderService) GetOrder(ctx context.Context, orderID, userID uint) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).Preload("Items").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("订单不存在")
		}
		return nil, apperr.Internal(err)
	}
	return &order, nil
}

// ListUserOrders 列出用户全部未删除订单，最新的在前。
func (s *OrderService) ListUserOrders(ctx context.Context, userID uint) ([]model.Order, error) {
	var orders []model.Order
	err := s.db.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return orders, nil
}

// UpdateOrder 更新订单：描述可选（非空才覆盖），履约状态总是覆盖（0-4 任意值，
// 不做状态机约束，保留管理侧改单的灵活性），Items 非 nil 时整组替换并重算总额。
func (s *OrderService) UpdateOrder(ctx context.Context, orderID, userID uint, in UpdateOrderInput) (*model.Order, error) {
	if !model.ValidStatus(in.Status) {
		return nil, apperr.Validation("订单状态必须在 0-4 之间")
	}
	desc := strings.TrimSpace(in.Description)
	if len(desc) > maxDescriptionLen {
		return nil, apperr.Validation("订单描述过长")
	}
	if in.Items != nil {
		if len(in.Items) == 0 {
			return nil, apperr.Validation("订单至少包含一个条目")
		}
		if err := validateItems(in.Items); err != nil {
			return nil, err
		}
	}

	var order model.Order
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("订单不存在")
		}
		return nil, apperr.Internal(err)
	}

	if desc != "" {
		order.Description = desc
	}
	order.Status = model.OrderStatus(in.Status)

	var newItems []model.OrderItem
	if in.Items != nil {
		total := computeTotal(in.Items)
		if total.LessThanOrEqual(decimal.Zero) {
			return nil, apperr.BusinessRule("订单总额必须大于 0")
		}
		newItems = buildItems(in.Items)
		order.TotalAmount = total
	}

	err = retryTransient(ctx, s.logger, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if in.Items != nil {
				// 整组替换：旧行项目随替换级联清除
				if err := tx.Where("order_id = ?", order.ID).Delete(&model.OrderItem{}).Error; err != nil {
					return err
				}
				for i := range newItems {
					newItems[i].OrderID = order.ID
				}
				if err := tx.Create(&newItems).Error; err != nil {
					return err
				}
			}
			return tx.Omit("Items").Save(&order).Error
		})
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			return nil, err
		}
		return nil, apperr.Internal(err)
	}

	s.logger.Info().
		Uint("order_id", orderID).
		Uint("user_id", userID).
		Int("status", in.Status).
		Msg("订单已更新")
	return s.GetOrder(ctx, orderID, userID)
}

// DeleteOrder 软删除订单。已删除或非归属订单再次删除同样返回 not found，天然幂等。
func (s *OrderService) DeleteOrder(ctx context.Context, orderID, userID uint) error {
	var order model.Order
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("订单不存在")
		}
		return apperr.Internal(err)
	}

	err = retryTransient(ctx, s.logger, func() error {
		// gorm.DeletedAt：Delete 只打删除标记并记录时间，行保留用于审计
		return s.db.WithContext(ctx).Delete(&order).Error
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			return err
		}
		return apperr.Internal(err)
	}

	s.logger.Info().Uint("order_id", orderID).Uint("user_id", userID).Msg("订单已软删除")
	return nil
}

// ListAllOrders 管理员视角：全量未删除订单，最新在前，附带归属人用户名。
func (s *OrderService) ListAllOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	err := s.db.WithContext(ctx).Preload("Items").
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.attachOwnerNames(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachOwnerNames 单独一次查询补齐归属人用户名，实体上不持有 User 引用。
func (s *OrderService) attachOwnerNames(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(orders))
	seen := make(map[uint]struct{}, len(orders))
	for _, o := range orders {
		if _, ok := seen[o.UserID]; !ok {
			seen[o.UserID] = struct{}{}
			ids = append(ids, o.UserID)
		}
	}
	var users []model.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return apperr.Internal(err)
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	for i := range orders {
		orders[i].OwnerName = names[orders[i].UserID]
	}
	return nil
}

// ApproveOrder 管理员批准订单：审批状态置 Approved、记录批准时间、清空驳回原因。
// 不限归属，但软删除订单照样不可见。
func (s *OrderService) ApproveOrder(ctx context.Context, orderID uint) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).Preload("Items").First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("订单不存在")
		}
		return nil, apperr.Internal(err)
	}

	now := time.Now().UTC()
	order.ApprovalStatus = model.ApprovalApproved
	order.ApprovedAt = &now
	order.RejectionReason = nil

	if err := s.saveApproval(ctx, &order); err != nil {
		return nil, err
	}
	s.logger.Info().Uint("order_id", orderID).Str("order_no", order.OrderNo).Msg("订单已批准")
	return &order, nil
}

// RejectOrder 管理员驳回订单：必须给出非空原因，清空批准时间。
func (s *OrderService) RejectOrder(ctx context.Context, orderID uint, reason string) (*model.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("驳回原因不能为空")
	}
	if len(reason) > maxDescriptionLen {
		return nil, apperr.Validation("驳回原因过长")
	}

	var order model.Order
	err := s.db.WithContext(ctx).Preload("Items").First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("订单不存在")
		}
		return nil, apperr.Internal(err)
	}

	order.ApprovalStatus = model.ApprovalRejected
	order.RejectionReason = &reason
	order.ApprovedAt = nil

	if err := s.saveApproval(ctx, &order); err != nil {
		return nil, err
	}
	s.logger.Info().
		Uint("order_id", orderID).
		Str("order_no", order.OrderNo).
		Str("reason", reason).
		Msg("订单已驳回")
	return &order, nil
}

func (s *OrderService) saveApproval(ctx context.Context, order *model.Order) error {
	err := retryTransient(ctx, s.logger, func() error {
		return s.db.WithContext(ctx).Omit("Items").Save(order).Error
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			return err
		}
		return apperr.Internal(err)
	}
	return nil
}
