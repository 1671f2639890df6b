package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"restaurant-orders-api/config"
	"restaurant-orders-api/middleware"
	"restaurant-orders-api/models"
	"restaurant-orders-api/routes"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var userSeq uint64

// setupAPI wires a fresh in-memory database and a full router. Each test gets
// its own database, named after the test so shared-cache connections within
// one test see the same data.
func setupAPI(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.JWTSecret = []byte("test_secret")
	config.RDB = nil

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))
	config.DB = db

	r := gin.New()
	routes.SetupRoutes(r)
	return r
}

// newUser persists a user with the given role and returns it with a signed token
func newUser(t *testing.T, role models.UserRole) (*models.User, string) {
	t.Helper()
	n := atomic.AddUint64(&userSeq, 1)
	user := models.User{
		Name:         fmt.Sprintf("Test %s %d", role, n),
		Email:        fmt.Sprintf("%s%d@example.com", role, n),
		PasswordHash: "not-a-real-hash",
		Role:         role,
	}
	require.NoError(t, config.DB.Create(&user).Error)

	token, err := middleware.GenerateToken(&user)
	require.NoError(t, err)
	return &user, token
}

// seedProduct persists a category (reused by name) and a product under it
func seedProduct(t *testing.T, name string, price string, stock int) *models.Product {
	t.Helper()
	var category models.Category
	err := config.DB.Where("name = ?", "Test Menu").First(&category).Error
	if err == gorm.ErrRecordNotFound {
		category = models.Category{Name: "Test Menu", IsActive: true}
		require.NoError(t, config.DB.Create(&category).Error)
	} else {
		require.NoError(t, err)
	}

	product := models.Product{
		CategoryID:  category.ID,
		Name:        name,
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		IsAvailable: true,
	}
	require.NoError(t, config.DB.Create(&product).Error)
	return &product
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

// openTable opens a tab on a table through the API and returns the order id
func openTable(t *testing.T, r *gin.Engine, token, label string, items []map[string]interface{}) uint {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/waiter/tables", token, map[string]interface{}{
		"table_label": label,
		"items":       items,
	})
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	body := decodeBody(t, w)
	order := body["order"].(map[string]interface{})
	return uint(order["id"].(float64))
}

func item(productID uint, qty int) map[string]interface{} {
	return map[string]interface{}{"product_id": productID, "quantity": qty}
}

// jsonDecimal reads a decoded JSON money field regardless of whether it was
// serialized as a quoted string or a bare number
func jsonDecimal(t *testing.T, v interface{}) decimal.Decimal {
	t.Helper()
	switch x := v.(type) {
	case string:
		return decimal.RequireFromString(x)
	case float64:
		return decimal.NewFromFloat(x)
	}
	t.Fatalf("unexpected money field type %T", v)
	return decimal.Zero
}

func assertMoney(t *testing.T, expected string, v interface{}) {
	t.Helper()
	got := jsonDecimal(t, v)
	require.True(t, decimal.RequireFromString(expected).Equal(got),
		"expected %s, got %s", expected, got)
}
