package handlers_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"food-order-tracker/catalog"
	"food-order-tracker/config"
	"food-order-tracker/handlers"
	"food-order-tracker/middleware"
	"food-order-tracker/models"
	"food-order-tracker/routes"
	"food-order-tracker/scheduler"
	"food-order-tracker/simulator"
	"food-order-tracker/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)

const validOrder = `{
	"deliveryDetails": {"name": "Jane Doe", "address": "123 Main St, City", "phone": "555-123-4567"},
	"items": [{"menuItemId": "1", "quantity": 2}, {"menuItemId": "2", "quantity": 1}]
}`

type app struct {
	router *gin.Engine
	store  *store.OrderStore
	sched  *scheduler.ManualScheduler
	sim    *simulator.Simulator
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newApp(t *testing.T) app {
	t.Helper()

	db, err := config.OpenDB("file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared")
	require.NoError(t, err)
	menu := catalog.NewRepository(db)
	require.NoError(t, menu.Migrate(context.Background()))
	require.NoError(t, menu.Seed(context.Background(), catalog.DefaultMenu()))

	sched := scheduler.NewManualScheduler(epoch)
	orders := store.NewOrderStore(store.WithClock(sched))
	sim := simulator.New(orders, sched, simulator.DefaultDelays(), nil)

	r := gin.New()
	r.Use(middleware.BodyLimit(middleware.DefaultBodyLimit))
	routes.SetupRoutes(r, handlers.New(orders, sim, menu, nil), simulator.DefaultDelays())
	return app{router: r, store: orders, sched: sched, sim: sim}
}

func (a app) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a app) placeOrder(t *testing.T) models.Order {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/orders", validOrder)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Order](t, w.Body)
}

func decode[T any](t *testing.T, r io.Reader) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(r).Decode(&v))
	return v
}

type errorsBody struct {
	Errors []handlers.FieldError `json:"errors"`
}

func orderWith(t *testing.T, mutate func(map[string]any)) string {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(validOrder), &m))
	mutate(m)
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return string(b)
}

func TestPlaceOrder(t *testing.T) {
	t.Run("should create order and start its progression", func(t *testing.T) {
		a := newApp(t)

		o := a.placeOrder(t)

		assert.NotEmpty(t, o.ID)
		assert.Equal(t, models.StatusReceived, o.Status)
		assert.Equal(t, models.DeliveryDetails{Name: "Jane Doe", Address: "123 Main St, City", Phone: "555-123-4567"}, o.DeliveryDetails)
		require.Len(t, o.Items, 2)
		assert.Equal(t, models.OrderItem{MenuItemID: "1", Name: "Margherita Pizza", Price: 12.99, Quantity: 2}, o.Items[0])
		assert.Equal(t, models.OrderItem{MenuItemID: "2", Name: "Pepperoni Pizza", Price: 14.99, Quantity: 1}, o.Items[1])
		assert.InDelta(t, 40.97, o.Total, 0.0001)
		assert.True(t, a.sim.Pending(o.ID))
	})

	t.Run("should trim delivery details", func(t *testing.T) {
		a := newApp(t)
		body := orderWith(t, func(m map[string]any) {
			m["deliveryDetails"].(map[string]any)["name"] = "  Zoë O'Brien-Smith  "
		})

		w := a.do(t, http.MethodPost, "/api/orders", body)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		o := decode[models.Order](t, w.Body)
		assert.Equal(t, "Zoë O'Brien-Smith", o.DeliveryDetails.Name)
	})

	rejections := []struct {
		name  string
		body  string
		field string
	}{
		{"missing delivery details", `{"items":[{"menuItemId":"1","quantity":1}]}`, "deliveryDetails"},
		{"empty name", orderWith(t, func(m map[string]any) { m["deliveryDetails"].(map[string]any)["name"] = "" }), "deliveryDetails.name"},
		{"name with numbers", orderWith(t, func(m map[string]any) { m["deliveryDetails"].(map[string]any)["name"] = "Jane123" }), "deliveryDetails.name"},
		{"one letter name", orderWith(t, func(m map[string]any) { m["deliveryDetails"].(map[string]any)["name"] = "J" }), "deliveryDetails.name"},
		{"short address", orderWith(t, func(m map[string]any) { m["deliveryDetails"].(map[string]any)["address"] = "1 A" }), "deliveryDetails.address"},
		{"address with symbols", orderWith(t, func(m map[string]any) { m["deliveryDetails"].(map[string]any)["address"] = "123 Main St; DROP" }), "deliveryDetails.address"},
		{"invalid phone", orderWith(t, func(m map[string]any) { m["deliveryDetails"].(map[string]any)["phone"] = "abc" }), "deliveryDetails.phone"},
		{"empty items", orderWith(t, func(m map[string]any) { m["items"] = []any{} }), "items"},
		{"missing menu item id", orderWith(t, func(m map[string]any) { m["items"] = []any{map[string]any{"quantity": 1}} }), "items[0].menuItemId"},
		{"blank menu item id", orderWith(t, func(m map[string]any) { m["items"] = []any{map[string]any{"menuItemId": "  ", "quantity": 1}} }), "items[0].menuItemId"},
		{"zero quantity", orderWith(t, func(m map[string]any) { m["items"] = []any{map[string]any{"menuItemId": "1", "quantity": 0}} }), "items[0].quantity"},
		{"quantity above 99", orderWith(t, func(m map[string]any) { m["items"] = []any{map[string]any{"menuItemId": "1", "quantity": 100}} }), "items[0].quantity"},
		{"invalid menu item id", orderWith(t, func(m map[string]any) { m["items"] = []any{map[string]any{"menuItemId": "invalid-id", "quantity": 1}} }), "items[0].menuItemId"},
	}
	for _, tt := range rejections {
		t.Run("should reject "+tt.name, func(t *testing.T) {
			a := newApp(t)

			w := a.do(t, http.MethodPost, "/api/orders", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			body := decode[errorsBody](t, w.Body)
			require.NotEmpty(t, body.Errors)
			fields := make([]string, 0, len(body.Errors))
			for _, e := range body.Errors {
				fields = append(fields, e.Field)
				assert.NotEmpty(t, e.Message)
			}
			assert.Contains(t, fields, tt.field)
			assert.Empty(t, a.store.List(), "rejected orders must not be stored")
		})
	}

	t.Run("should reject malformed json", func(t *testing.T) {
		a := newApp(t)

		w := a.do(t, http.MethodPost, "/api/orders", `{"items":`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decode[errorsBody](t, w.Body)
		require.Len(t, body.Errors, 1)
		assert.Equal(t, "body", body.Errors[0].Field)
	})

	t.Run("should reject bodies over the size limit", func(t *testing.T) {
		a := newApp(t)
		huge := `{"deliveryDetails":{"name":"` + strings.Repeat("a", 200<<10) + `"}}`

		w := a.do(t, http.MethodPost, "/api/orders", huge)

		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.JSONEq(t, `{"error":"Request body too large"}`, w.Body.String())
		assert.Empty(t, a.store.List())
	})
}

func TestListOrders(t *testing.T) {
	t.Run("should return an empty array", func(t *testing.T) {
		a := newApp(t)

		w := a.do(t, http.MethodGet, "/api/orders", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("should list newest first and filter by status", func(t *testing.T) {
		a := newApp(t)
		first := a.placeOrder(t)
		second := a.placeOrder(t)
		_, err := a.store.UpdateStatus(first.ID, models.StatusPreparing)
		require.NoError(t, err)

		w := a.do(t, http.MethodGet, "/api/orders", "")
		require.Equal(t, http.StatusOK, w.Code)
		list := decode[[]models.Order](t, w.Body)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, first.ID, list[1].ID)

		w = a.do(t, http.MethodGet, "/api/orders?status=Preparing", "")
		require.Equal(t, http.StatusOK, w.Code)
		list = decode[[]models.Order](t, w.Body)
		require.Len(t, list, 1)
		assert.Equal(t, first.ID, list[0].ID)
	})

	t.Run("should reject an unknown status filter", func(t *testing.T) {
		a := newApp(t)

		w := a.do(t, http.MethodGet, "/api/orders?status=Lost", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetOrder(t *testing.T) {
	t.Run("should return 404 for unknown order id", func(t *testing.T) {
		a := newApp(t)

		w := a.do(t, http.MethodGet, "/api/orders/nonexistent", "")

		require.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"Order not found"}`, w.Body.String())
	})

	t.Run("should return order when id exists", func(t *testing.T) {
		a := newApp(t)
		o := a.placeOrder(t)

		w := a.do(t, http.MethodGet, "/api/orders/"+o.ID, "")

		require.Equal(t, http.StatusOK, w.Code)
		got := decode[models.Order](t, w.Body)
		assert.Equal(t, o.ID, got.ID)
		assert.Equal(t, models.StatusReceived, got.Status)
		assert.Len(t, got.Items, 2)
	})

	t.Run("should reflect the simulated progression", func(t *testing.T) {
		a := newApp(t)
		o := a.placeOrder(t)

		a.sched.Advance(8 * time.Second)

		got := decode[models.Order](t, a.do(t, http.MethodGet, "/api/orders/"+o.ID, "").Body)
		assert.Equal(t, models.StatusPreparing, got.Status)
		require.NotNil(t, got.UpdatedAt)
		assert.True(t, got.UpdatedAt.Equal(epoch.Add(8*time.Second)))
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	t.Run("should return 404 for unknown order id", func(t *testing.T) {
		a := newApp(t)

		w := a.do(t, http.MethodPatch, "/api/orders/nonexistent/status", `{"status":"Preparing"}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("should reject invalid status", func(t *testing.T) {
		a := newApp(t)
		o := a.placeOrder(t)

		w := a.do(t, http.MethodPatch, "/api/orders/"+o.ID+"/status", `{"status":"Invalid"}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decode[errorsBody](t, w.Body)
		require.Len(t, body.Errors, 1)
		assert.Equal(t, "Invalid status", body.Errors[0].Message)
	})

	t.Run("should reject missing status", func(t *testing.T) {
		a := newApp(t)
		o := a.placeOrder(t)

		w := a.do(t, http.MethodPatch, "/api/orders/"+o.ID+"/status", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should update order status and return order", func(t *testing.T) {
		a := newApp(t)
		o := a.placeOrder(t)

		w := a.do(t, http.MethodPatch, "/api/orders/"+o.ID+"/status", `{"status":"Preparing"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, models.StatusPreparing, decode[models.Order](t, w.Body).Status)
		got := decode[models.Order](t, a.do(t, http.MethodGet, "/api/orders/"+o.ID, "").Body)
		assert.Equal(t, models.StatusPreparing, got.Status)
	})

	t.Run("should reject skipping a status", func(t *testing.T) {
		a := newApp(t)
		o := a.placeOrder(t)

		w := a.do(t, http.MethodPatch, "/api/orders/"+o.ID+"/status", `{"status":"Delivered"}`)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Order Received", body["current_status"])
		assert.Equal(t, []any{"Preparing"}, body["valid_next_states"])
	})
}

func TestPublicRoutes(t *testing.T) {
	a := newApp(t)

	t.Run("should list the menu", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/menu", "")

		require.Equal(t, http.StatusOK, w.Code)
		var items []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
		require.Len(t, items, 6)
		for _, key := range []string{"id", "name", "description", "price", "image"} {
			assert.Contains(t, items[0], key)
		}
	})

	t.Run("should filter the menu by category", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/menu?category=salad", "")

		require.Equal(t, http.StatusOK, w.Code)
		items := decode[[]models.MenuItem](t, w.Body)
		require.Len(t, items, 1)
		assert.Equal(t, "Caesar Salad", items[0].Name)

		w = a.do(t, http.MethodGet, "/api/menu?category=dessert", "")
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("should list order statuses in order", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/order-statuses", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `["Order Received","Preparing","Out for Delivery","Delivered"]`, w.Body.String())
	})

	t.Run("should describe the state machine", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/state-machine", "")

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			StateMachine []struct {
				From         string  `json:"from"`
				To           string  `json:"to"`
				AfterSeconds float64 `json:"after_seconds"`
			} `json:"state_machine"`
			TerminalStates []string `json:"terminal_states"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.StateMachine, 3)
		assert.Equal(t, "Order Received", body.StateMachine[0].From)
		assert.Equal(t, 8.0, body.StateMachine[0].AfterSeconds)
		assert.Equal(t, []string{"Delivered"}, body.TerminalStates)
	})

	t.Run("should report health", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/health", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "healthy")
	})
}

func readEvent(t *testing.T, r *bufio.Reader) models.Order {
	t.Helper()
	var data bytes.Buffer
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if data.Len() > 0 {
				break
			}
			continue
		}
		if payload, ok := strings.CutPrefix(line, "data:"); ok {
			data.WriteString(strings.TrimSpace(payload))
		}
	}
	var o models.Order
	require.NoError(t, json.Unmarshal(data.Bytes(), &o))
	return o
}

func openStream(t *testing.T, srv *httptest.Server, id string) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + "/api/orders/" + id + "/stream")
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStreamOrder(t *testing.T) {
	t.Run("should return 404 for unknown order id", func(t *testing.T) {
		a := newApp(t)

		w := a.do(t, http.MethodGet, "/api/orders/nonexistent/stream", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("should stream every status and close after delivery", func(t *testing.T) {
		a := newApp(t)
		srv := httptest.NewServer(a.router)
		t.Cleanup(srv.Close) // runs after the stream bodies are closed
		o := a.placeOrder(t)

		resp := openStream(t, srv, o.ID)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")
		body := bufio.NewReader(resp.Body)

		var seen []models.OrderStatus
		seen = append(seen, readEvent(t, body).Status)
		a.sched.Advance(8 * time.Second)
		seen = append(seen, readEvent(t, body).Status)
		a.sched.Advance(10 * time.Second)
		seen = append(seen, readEvent(t, body).Status)
		a.sched.Advance(12 * time.Second)
		last := readEvent(t, body)
		seen = append(seen, last.Status)

		assert.Equal(t, []models.OrderStatus{
			models.StatusReceived, models.StatusPreparing, models.StatusOutForDelivery, models.StatusDelivered,
		}, seen)
		assert.Equal(t, o.ID, last.ID)
		assert.Len(t, last.StatusHistory, 3)

		rest, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Empty(t, strings.TrimSpace(string(rest)), "stream must end after delivery")
		assert.False(t, a.sim.Pending(o.ID))
	})

	t.Run("should send a single event for a delivered order", func(t *testing.T) {
		a := newApp(t)
		srv := httptest.NewServer(a.router)
		t.Cleanup(srv.Close) // runs after the stream bodies are closed
		o := a.placeOrder(t)
		a.sched.Advance(time.Minute)

		resp := openStream(t, srv, o.ID)
		body := bufio.NewReader(resp.Body)

		assert.Equal(t, models.StatusDelivered, readEvent(t, body).Status)
		rest, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Empty(t, strings.TrimSpace(string(rest)))
	})

	t.Run("should end the previous stream when a new one subscribes", func(t *testing.T) {
		a := newApp(t)
		srv := httptest.NewServer(a.router)
		t.Cleanup(srv.Close) // runs after the stream bodies are closed
		o := a.placeOrder(t)

		first := bufio.NewReader(openStream(t, srv, o.ID).Body)
		assert.Equal(t, models.StatusReceived, readEvent(t, first).Status)
		second := bufio.NewReader(openStream(t, srv, o.ID).Body)
		assert.Equal(t, models.StatusReceived, readEvent(t, second).Status)

		rest, err := io.ReadAll(first)
		require.NoError(t, err)
		assert.Empty(t, strings.TrimSpace(string(rest)))

		a.sched.Advance(8 * time.Second)
		assert.Equal(t, models.StatusPreparing, readEvent(t, second).Status)
	})
}
