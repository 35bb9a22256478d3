package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"order_management/internal/config"
	"order_management/internal/model"
	"order_management/internal/security"
	"order_management/internal/service"
)

type testEnv struct {
	r  *gin.Engine
	db *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Order{}, &model.OrderItem{}))

	tokens := security.NewTokenService(
		"0123456789abcdef0123456789abcdef",
		"order-management-api",
		"order-management-client",
		time.Hour,
	)
	hasher := security.NewPasswordHasher(4)
	authSvc := service.NewAuthService(db, hasher, tokens, zerolog.Nop())
	orderSvc := service.NewOrderService(db, zerolog.Nop())

	r := gin.New()
	// rdb 传 nil：测试环境不起 Redis，跳过限流
	Setup(r, authSvc, orderSvc, tokens, nil, config.AppConfig{}, zerolog.Nop())
	return &testEnv{r: r, db: db}
}

// do 发送一次 JSON 请求，token 非空时附 Bearer 头。
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(b)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type authData struct {
	Token string `json:"token"`
	User  struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
		Role     int    `json:"role"`
	} `json:"user"`
}

type orderData struct {
	ID              uint            `json:"id"`
	OrderNo         string          `json:"order_no"`
	UserID          uint            `json:"user_id"`
	Status          int             `json:"status"`
	ApprovalStatus  int             `json:"approval_status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Description     string          `json:"description"`
	RejectionReason *string         `json:"rejection_reason"`
	OwnerName       string          `json:"owner_name"`
	Items           []struct {
		ProductName string          `json:"product_name"`
		Quantity    int             `json:"quantity"`
		TotalPrice  decimal.Decimal `json:"total_price"`
	} `json:"items"`
}

func (e *testEnv) registerUser(t *testing.T, username, email string) authData {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username,
		"email":    email,
		"password": "Secur3!pass",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var data authData
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	return data
}

// loginAdmin 把账户提为管理员后重新登录（角色在令牌里，必须换新令牌）。
func (e *testEnv) loginAdmin(t *testing.T, username string) authData {
	t.Helper()
	require.NoError(t, e.db.Model(&model.User{}).Where("username = ?", username).
		Update("role", model.RoleAdmin).Error)
	w := e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": username,
		"password": "Secur3!pass",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data authData
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	return data
}

func widgetOrderBody() gin.H {
	return gin.H{
		"description": "office equipment",
		"items": []gin.H{
			{"product_name": "Widget", "quantity": 2, "unit_price": 10.00},
		},
	}
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	alice := env.registerUser(t, "alice", "alice@x.com")
	assert.NotEmpty(t, alice.Token)
	assert.Equal(t, "alice", alice.User.Username)

	// 同用户名重复注册
	w := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice",
		"email":    "other@x.com",
		"password": "Secur3!pass",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 登录 + /me
	w = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "alice",
		"password": "Secur3!pass",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var login authData
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &login))

	w = env.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 错误密码与未知用户同响应
	w = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "alice", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "nobody", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrderEndpointsRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/orders"},
		{http.MethodGet, "/api/orders"},
		{http.MethodGet, "/api/orders/1"},
		{http.MethodPut, "/api/orders/1"},
		{http.MethodDelete, "/api/orders/1"},
		{http.MethodGet, "/api/orders/admin/all"},
	} {
		w := env.do(t, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	alice := env.registerUser(t, "alice", "alice@x.com")
	bob := env.registerUser(t, "bob", "bob@x.com")

	// 创建
	w := env.do(t, http.MethodPost, "/api/orders", alice.Token, widgetOrderBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created orderData
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	assert.Regexp(t, `^ORD-\d{14}-[0-9a-f]{8}$`, created.OrderNo)
	assert.True(t, created.TotalAmount.Equal(decimal.RequireFromString("20")))
	assert.Equal(t, 0, created.Status)
	assert.Equal(t, 0, created.ApprovalStatus)

	orderPath := fmt.Sprintf("/api/orders/%d", created.ID)

	// 归属人可读，他人 404
	w = env.do(t, http.MethodGet, orderPath, alice.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, orderPath, bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 更新
	w = env.do(t, http.MethodPut, orderPath, alice.Token, gin.H{
		"description": "updated description",
		"status":      2,
		"items": []gin.H{
			{"product_name": "Gadget", "quantity": 3, "unit_price": 2.50},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated orderData
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &updated))
	assert.Equal(t, 2, updated.Status)
	assert.True(t, updated.TotalAmount.Equal(decimal.RequireFromString("7.5")))

	// 列表
	w = env.do(t, http.MethodGet, "/api/orders", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []orderData
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &list))
	assert.Len(t, list, 1)

	// 软删除 + 幂等
	w = env.do(t, http.MethodDelete, orderPath, alice.Token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodDelete, orderPath, alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, orderPath, alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateOrderValidationOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	alice := env.registerUser(t, "alice", "alice@x.com")

	// 全部是空名称的占位行
	w := env.do(t, http.MethodPost, "/api/orders", alice.Token, gin.H{
		"description": "placeholder only",
		"items": []gin.H{
			{"product_name": "", "quantity": 0, "unit_price": 0.00},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 缺 items
	w = env.do(t, http.MethodPost, "/api/orders", alice.Token, gin.H{
		"description": "no items",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminWorkflowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	alice := env.registerUser(t, "alice", "alice@x.com")
	env.registerUser(t, "carol", "carol@x.com")
	admin := env.loginAdmin(t, "carol")

	w := env.do(t, http.MethodPost, "/api/orders", alice.Token, widgetOrderBody())
	require.Equal(t, http.StatusCreated, w.Code)
	var created orderData
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))

	// 普通用户进不了管理员接口
	w = env.do(t, http.MethodGet, "/api/orders/admin/all", alice.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 管理员全量视图带归属人
	w = env.do(t, http.MethodGet, "/api/orders/admin/all", admin.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []orderData
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &all))
	require.Len(t, all, 1)
	assert.Equal(t, "alice", all[0].OwnerName)

	// 驳回必须给原因
	rejectPath := fmt.Sprintf("/api/orders/%d/reject", created.ID)
	w = env.do(t, http.MethodPost, rejectPath, admin.Token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, rejectPath, admin.Token, gin.H{"reason": "out of stock"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rejected orderData
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &rejected))
	assert.Equal(t, 2, rejected.ApprovalStatus)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "out of stock", *rejected.RejectionReason)

	// 批准清空驳回原因
	approvePath := fmt.Sprintf("/api/orders/%d/approve", created.ID)
	w = env.do(t, http.MethodPost, approvePath, admin.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var approved orderData
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &approved))
	assert.Equal(t, 1, approved.ApprovalStatus)
	assert.Nil(t, approved.RejectionReason)

	// 审批接口对普通用户 403
	w = env.do(t, http.MethodPost, approvePath, alice.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
