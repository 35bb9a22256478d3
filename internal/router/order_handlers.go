package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"order_management/internal/middleware"
	"order_management/internal/service"
)

// orderItemReq 行项目入参。空 product_name 表示未填完的占位行，
// 由 service 层丢弃，所以这里不强制 required。
type orderItemReq struct {
	ProductName string          `json:"product_name" binding:"max=200"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func toItemInputs(items []orderItemReq) []service.OrderItemInput {
	out := make([]service.OrderItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, service.OrderItemInput{
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return out
}

// createOrder 创建订单，201 + 新订单详情。
func createOrder(orders *service.OrderService, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Description string         `json:"description" binding:"required,max=500"`
			Items       []orderItemReq `json:"items" binding:"required,min=1,max=100"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		order, err := orders.CreateOrder(c.Request.Context(), middleware.UserID(c), service.CreateOrderInput{
			Description: req.Description,
			Items:       toItemInputs(req.Items),
		})
		if err != nil {
			respondErr(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"code": 0, "data": order})
	}
}

// listOrders 当前用户的全部未删除订单，最新在前。
func listOrders(orders *service.OrderService, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := orders.ListUserOrders(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondErr(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": list})
	}
}

// getOrder 查询单个订单，仅归属人可见。
func getOrder(orders *service.OrderService, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		order, err := orders.GetOrder(c.Request.Context(), id, middleware.UserID(c))
		if err != nil {
			respondErr(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": order})
	}
}

// updateOrder 更新描述/状态/行项目。
func updateOrder(orders *service.OrderService, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req struct {
			Description string         `json:"description" binding:"max=500"`
			Status      int            `json:"status"`
			Items       []orderItemReq `json:"items"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		in := service.UpdateOrderInput{
			Description: req.Description,
			Status:      req.Status,
		}
		// items 字段缺省与显式空数组语义不同：缺省保留原行项目
		if req.Items != nil {
			in.Items = toItemInputs(req.Items)
		}

		order, err := orders.UpdateOrder(c.Request.Context(), id, middleware.UserID(c), in)
		if err != nil {
			respondErr(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": order})
	}
}

// deleteOrder 软删除，成功返回 204。
func deleteOrder(orders *service.OrderService, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := orders.DeleteOrder(c.Request.Context(), id, middleware.UserID(c)); err != nil {
			respondErr(c, logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// adminListOrders 管理员视角的全量订单（附归属人）。
func adminListOrders(orders *service.OrderService, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := orders.ListAllOrders(c.Request.Context())
		if err != nil {
			respondErr(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": list})
	}
}

// approveOrder 管理员批准订单。
func approveOrder(orders *service.OrderService, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		order, err := orders.ApproveOrder(c.Request.Context(), id)
		if err != nil {
			respondErr(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": order})
	}
}

// rejectOrder 管理员驳回订单，必须附原因。
func rejectOrder(orders *service.OrderService, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req struct {
			Reason string `json:"reason" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		order, err := orders.RejectOrder(c.Request.Context(), id, req.Reason)
		if err != nil {
			respondErr(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": order})
	}
}
