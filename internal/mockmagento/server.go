// Package mockmagento is an in-memory stand-in for the Magento 2 guest
// checkout REST endpoints.
package mockmagento

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nazeru/storefront-checkout-go/internal/domain"
	"github.com/nazeru/storefront-checkout-go/pkg/idempotency"
	"github.com/nazeru/storefront-checkout-go/pkg/metrics"
)

type guestCart struct {
	ID       string         `json:"id"`
	Active   bool           `json:"is_active"`
	Items    []any          `json:"items"`
	Shipping map[string]any `json:"-"`
	OrderID  string         `json:"-"`
}

type Server struct {
	mu        sync.Mutex
	carts     map[string]*guestCart
	countries []domain.Country
	orders    int
	orderKeys *idempotency.Cache
	metrics   *metrics.ServerMetrics

	failOrders bool
}

func New(m *metrics.ServerMetrics) *Server {
	return &Server{
		carts:     make(map[string]*guestCart),
		countries: DefaultCountries(),
		orderKeys: idempotency.NewCache(),
		metrics:   m,
	}
}

func DefaultCountries() []domain.Country {
	return []domain.Country{
		{ID: "CA", Code: "CA", Name: "Canada", AvailableRegions: []domain.Region{
			{ID: 66, Code: "ON", Name: "Ontario"},
		}},
		{ID: "US", Code: "US", Name: "United States", AvailableRegions: []domain.Region{
			{ID: 12, Code: "CA", Name: "California"},
			{ID: 43, Code: "NY", Name: "New York"},
			{ID: 57, Code: "TX", Name: "Texas"},
		}},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /rest/V1/directory/countries", s.instrument("countries", s.handleCountries))
	mux.HandleFunc("POST /rest/V1/guest-carts", s.instrument("create_cart", s.handleCreateCart))
	mux.HandleFunc("GET /rest/V1/guest-carts/{id}", s.instrument("get_cart", s.handleGetCart))
	mux.HandleFunc("GET /rest/V1/guest-carts/{id}/totals", s.instrument("get_totals", s.handleTotals))
	mux.HandleFunc("POST /rest/V1/guest-carts/{id}/shipping-information", s.instrument("shipping_information", s.handleShipping))
	mux.HandleFunc("PUT /rest/V1/guest-carts/{id}/order", s.instrument("place_order", s.handleOrder))
	return mux
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.Observe(name, rec.status, start)
	}
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	countries := s.countries
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, countries)
}

func (s *Server) handleCreateCart(w http.ResponseWriter, r *http.Request) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.mu.Lock()
	s.carts[id] = &guestCart{ID: id, Active: true, Items: []any{}}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, id)
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.activeCart(w, r.PathValue("id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.activeCart(w, r.PathValue("id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, totals(c))
}

type shippingInformation struct {
	AddressInformation struct {
		ShippingAddress     map[string]any `json:"shipping_address"`
		BillingAddress      map[string]any `json:"billing_address"`
		ShippingMethodCode  string         `json:"shipping_method_code"`
		ShippingCarrierCode string         `json:"shipping_carrier_code"`
	} `json:"addressInformation"`
}

func (s *Server) handleShipping(w http.ResponseWriter, r *http.Request) {
	var req shippingInformation
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	info := req.AddressInformation
	if info.ShippingAddress == nil {
		writeError(w, http.StatusBadRequest, `"%1" is required. Enter and try again.`, []any{"shipping_address"})
		return
	}
	if info.ShippingMethodCode != "flatrate" || info.ShippingCarrierCode != "flatrate" {
		writeError(w, http.StatusBadRequest, "Carrier with such method not found: %carrier, %method", map[string]any{
			"carrier": info.ShippingCarrierCode, "method": info.ShippingMethodCode,
		})
		return
	}
	if info.ShippingAddress["country_id"] == nil || info.ShippingAddress["region_id"] == nil {
		writeError(w, http.StatusBadRequest, "The shipping information was unable to be saved. Verify the input data and try again.", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.activeCart(w, r.PathValue("id"))
	if !ok {
		return
	}
	c.Shipping = info.ShippingAddress
	writeJSON(w, http.StatusOK, map[string]any{
		"payment_methods": []map[string]any{{"code": "checkmo", "title": "Check / Money order"}},
		"totals":          totals(c),
	})
}

type placeOrder struct {
	PaymentMethod struct {
		Method string `json:"method"`
	} `json:"paymentMethod"`
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	key := idempotency.Key(r)
	if key != "" {
		if prev, ok := s.orderKeys.Get(key); ok {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(prev)
			return
		}
	}
	s.mu.Lock()
	failing := s.failOrders
	s.mu.Unlock()
	if failing {
		writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable", nil)
		return
	}

	var req placeOrder
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if req.PaymentMethod.Method != "checkmo" {
		writeError(w, http.StatusBadRequest, "The requested Payment Method is not available.", nil)
		return
	}

	s.mu.Lock()
	c, ok := s.activeCart(w, r.PathValue("id"))
	if !ok {
		s.mu.Unlock()
		return
	}
	if c.Shipping == nil {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "Shipping address is not set", nil)
		return
	}
	s.orders++
	c.OrderID = fmt.Sprintf("%09d", s.orders)
	c.Active = false
	orderID := c.OrderID
	s.mu.Unlock()

	body, _ := json.Marshal(orderID)
	if key != "" {
		body = s.orderKeys.Put(key, body)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// SetFailOrders makes every order placement fail with 503 while on.
func (s *Server) SetFailOrders(on bool) {
	s.mu.Lock()
	s.failOrders = on
	s.mu.Unlock()
}

// Orders returns the number of orders placed so far.
func (s *Server) Orders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders
}

// activeCart must be called with s.mu held.
func (s *Server) activeCart(w http.ResponseWriter, id string) (*guestCart, bool) {
	c, ok := s.carts[id]
	if !ok || !c.Active {
		writeError(w, http.StatusNotFound, "No such entity with %fieldName = %fieldValue", map[string]any{
			"fieldName": "cartId", "fieldValue": id,
		})
		return nil, false
	}
	return c, true
}

func totals(c *guestCart) map[string]any {
	shipping := 0
	if c.Shipping != nil {
		shipping = 5
	}
	return map[string]any{
		"grand_total":     shipping,
		"shipping_amount": shipping,
		"items_qty":       len(c.Items),
		"quote_currency":  "USD",
	}
}

func writeError(w http.ResponseWriter, code int, message string, params any) {
	body := map[string]any{"message": message}
	if params != nil {
		body["parameters"] = params
	}
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
