package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopadmin/internal/apiclient"
	"github.com/shopadmin/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method string
	URI    string
	Body   map[string]any
}

// fakeBackend answers each "METHOD /path" with a fixed JSON body and
// records what it received.
func fakeBackend(t *testing.T, routes map[string]string) (*apiclient.Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{Method: r.Method, URI: r.URL.RequestURI()}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			require.NoError(t, json.Unmarshal(data, &rec.Body))
		}
		calls = append(calls, rec)

		body, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"no route"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c, err := apiclient.New(apiclient.Config{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second}, nil)
	require.NoError(t, err)
	return c, &calls
}

func TestProductsList(t *testing.T) {
	api, calls := fakeBackend(t, map[string]string{
		"GET /api/products": `{"products":[{"id":"p1","name":"Mug","price":"12.5","stock":"3"}],
			"pagination":{"page":2,"limit":5,"total":6,"totalPages":2}}`,
	})

	page, err := NewProducts(api).List(context.Background(), 2, 5)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 12.5, page.Items[0].Price.Float64())
	assert.Equal(t, 3, page.Items[0].Stock.Int())
	assert.Equal(t, 6, page.Total)
	assert.Equal(t, "/api/products?limit=5&page=2", (*calls)[0].URI)
}

func TestProductsDefaultsPaging(t *testing.T) {
	api, calls := fakeBackend(t, map[string]string{
		"GET /api/products": `{"products":[],"pagination":{"page":1,"limit":10,"total":0,"totalPages":0}}`,
	})
	page, err := NewProducts(api).List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Equal(t, "/api/products?limit=10&page=1", (*calls)[0].URI)
}

func TestProductMissingEnvelope(t *testing.T) {
	api, _ := fakeBackend(t, map[string]string{
		"GET /api/products/p1": `{"message":"ok"}`,
	})
	_, err := NewProducts(api).Get(context.Background(), "p1")
	require.Error(t, err)
	assert.Equal(t, apiclient.KindUnknown, apiclient.KindOf(err))
}

func TestCategoriesAcceptBothShapes(t *testing.T) {
	t.Run("bare array", func(t *testing.T) {
		api, _ := fakeBackend(t, map[string]string{
			"GET /api/categories": `[{"id":"c1","name":"Kitchen"},{"id":"c2","name":"Garden"}]`,
		})
		all, err := NewCategories(api).All(context.Background())
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("wrapped", func(t *testing.T) {
		api, _ := fakeBackend(t, map[string]string{
			"GET /api/categories": `{"categories":[{"id":"c1","name":"Kitchen"}]}`,
		})
		all, err := NewCategories(api).All(context.Background())
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "Kitchen", all[0].Name)
	})

	t.Run("single item", func(t *testing.T) {
		api, _ := fakeBackend(t, map[string]string{
			"GET /api/categories/c1": `{"id":"c1","name":"Kitchen"}`,
			"PUT /api/categories/c1": `{"category":{"id":"c1","name":"Home"}}`,
		})
		svc := NewCategories(api)
		got, err := svc.Get(context.Background(), "c1")
		require.NoError(t, err)
		assert.Equal(t, "Kitchen", got.Name)

		name := "Home"
		got, err = svc.Update(context.Background(), "c1", model.CategoryInput{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Home", got.Name)
	})
}

func TestCategoriesPagedLocally(t *testing.T) {
	api, _ := fakeBackend(t, map[string]string{
		"GET /api/categories": `[{"id":"a"},{"id":"b"},{"id":"c"}]`,
	})
	page, err := NewCategories(api).List(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "c", page.Items[0].ID)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
}

func TestSettingsUpdateAddressesKey(t *testing.T) {
	api, calls := fakeBackend(t, map[string]string{
		"PUT /api/settings/site name": `{"setting":{"id":"s1","key":"site name","value":"Shop","type":"string"}}`,
	})
	value := "Shop"
	typ := model.SettingTypeNumber
	got, err := NewSettings(api).Update(context.Background(), "site name",
		model.SettingInput{Key: "ignored", Value: &value, Type: &typ})
	require.NoError(t, err)
	assert.Equal(t, "Shop", got.Value)

	call := (*calls)[0]
	assert.Equal(t, "/api/settings/site%20name", call.URI)
	assert.Equal(t, map[string]any{"value": "Shop"}, call.Body)
}

func TestSettingsPublic(t *testing.T) {
	api, _ := fakeBackend(t, map[string]string{
		"GET /api/settings/public": `{"settings":{"currency":"USD"}}`,
	})
	public, err := NewSettings(api).Public(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"currency": "USD"}, public)
}

func TestOrderStatusUpdate(t *testing.T) {
	api, calls := fakeBackend(t, map[string]string{
		"PUT /api/orders/o1/status": `{"order":{"id":"o1","status":"shipped","totalAmount":"40.00"},"message":"updated"}`,
	})
	order, err := NewOrders(api).UpdateStatus(context.Background(), "o1", model.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, order.Status)
	assert.Equal(t, map[string]any{"status": "shipped"}, (*calls)[0].Body)
}

func TestUsers(t *testing.T) {
	api, calls := fakeBackend(t, map[string]string{
		"GET /api/users": `{"users":[{"id":"u1","email":"a@example.com","role":"admin"}],
			"pagination":{"page":1,"limit":10,"total":1,"totalPages":1}}`,
		"GET /api/users/u1":    `{"user":{"id":"u1","email":"a@example.com","role":"admin"}}`,
		"GET /api/users/u2":    `{"message":"ok"}`,
		"DELETE /api/users/u1": `{"message":"deleted"}`,
	})
	users := NewUsers(api)
	ctx := context.Background()

	page, err := users.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, model.UserRoleAdmin, page.Items[0].Role)
	assert.Equal(t, "/api/users?limit=10&page=1", (*calls)[0].URI)

	user, err := users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.Email)

	_, err = users.Get(ctx, "u2")
	assert.Error(t, err)

	require.NoError(t, users.Delete(ctx, "u1"))
	assert.Equal(t, http.MethodDelete, (*calls)[len(*calls)-1].Method)
}

func TestAuthLoginRequiresTokenAndUser(t *testing.T) {
	api, _ := fakeBackend(t, map[string]string{
		"POST /api/auth/login": `{"message":"ok","token":"","user":{"id":"u1"}}`,
	})
	_, err := NewAuth(api).Login(context.Background(), model.LoginRequest{Email: "a@b.c", Password: "secret"})
	require.Error(t, err)
	assert.Equal(t, apiclient.KindUnknown, apiclient.KindOf(err))
}

func TestDashboardStatsCoerced(t *testing.T) {
	api, _ := fakeBackend(t, map[string]string{
		"GET /api/dashboard/stats": `{"users":"4","orders":7,"products":"x","revenue":"1234.5"}`,
	})
	stats, err := NewDashboard(api).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Users.Int())
	assert.Equal(t, 0, stats.Products.Int())
	assert.Equal(t, "1234.50", stats.Revenue.String())
}

func TestGoogleSignInURL(t *testing.T) {
	assert.Equal(t, "http://localhost:5000/api/auth/google", GoogleSignInURL("http://localhost:5000/api/"))
}
