package checkout_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/nazeru/storefront-checkout-go/internal/app"
	"github.com/nazeru/storefront-checkout-go/internal/cart"
	"github.com/nazeru/storefront-checkout-go/internal/checkout"
	"github.com/nazeru/storefront-checkout-go/internal/directory"
	"github.com/nazeru/storefront-checkout-go/internal/domain"
	"github.com/nazeru/storefront-checkout-go/internal/state"
	"github.com/nazeru/storefront-checkout-go/pkg/action"
	"github.com/nazeru/storefront-checkout-go/pkg/idempotency"
	"github.com/nazeru/storefront-checkout-go/pkg/magento"
	"github.com/nazeru/storefront-checkout-go/pkg/store"
)

const cartRefreshed action.Type = "TEST/CART_REFRESHED"

type call struct {
	Method string
	Path   string
	Body   []byte
	Key    string
}

type reply struct {
	resp json.RawMessage
	err  error
}

// fakeBackend answers requests by "METHOD path".
type fakeBackend struct {
	mu      sync.Mutex
	replies map[string]reply
	calls   []call
}

func newFakeBackend() *fakeBackend {
	countries, _ := json.Marshal([]domain.Country{{
		ID: "US",
		AvailableRegions: []domain.Region{
			{ID: 12, Code: "CA", Name: "California"},
			{ID: 43, Code: "NY", Name: "New York"},
		},
	}})
	return &fakeBackend{replies: map[string]reply{
		"GET /rest/V1/directory/countries": {resp: countries},
	}}
}

func (f *fakeBackend) on(method, path string, resp string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var raw json.RawMessage
	if resp != "" {
		raw = json.RawMessage(resp)
	}
	f.replies[method+" "+path] = reply{resp: raw, err: err}
}

func (f *fakeBackend) Do(ctx context.Context, method, path string, body any, opts ...magento.RequestOption) (json.RawMessage, error) {
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(method, path, nil)
	for _, opt := range opts {
		opt(req)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Method: method, Path: path, Body: data, Key: idempotency.Key(req)})
	r, ok := f.replies[method+" "+path]
	if !ok {
		return nil, errors.New("unexpected request " + method + " " + path)
	}
	return r.resp, r.err
}

func (f *fakeBackend) callsTo(method, path string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// fakeCart records refreshes as actions so their order relative to checkout
// actions is observable.
type fakeCart struct {
	mu       sync.Mutex
	forced   []bool
	cleared  chan struct{}
	clearErr error
}

func newFakeCart() *fakeCart {
	return &fakeCart{cleared: make(chan struct{}, 1)}
}

func (c *fakeCart) GetCartDetails(opts cart.DetailsOptions) state.Thunk {
	return func(ctx context.Context, d state.Dispatcher) error {
		c.mu.Lock()
		c.forced = append(c.forced, opts.ForceRefresh)
		c.mu.Unlock()
		d.Dispatch(action.New(cartRefreshed, nil))
		return nil
	}
}

func (c *fakeCart) ClearGuestCartID(ctx context.Context) error {
	c.cleared <- struct{}{}
	return c.clearErr
}

func (c *fakeCart) wasCleared() bool {
	select {
	case <-c.cleared:
		return true
	default:
		return false
	}
}

type harness struct {
	store    *store.Store[state.State]
	backend  *fakeBackend
	cart     *fakeCart
	workflow *checkout.Workflow

	mu      sync.Mutex
	actions []action.Action
}

func reduce(s state.State, a action.Action) state.State {
	s.App = app.Reduce(s.App, a)
	s.Directory = directory.Reduce(s.Directory, a)
	s.Checkout = checkout.Reduce(s.Checkout, a)
	return s
}

func newHarness(t *testing.T, cartID domain.GuestCartID) *harness {
	t.Helper()
	initial := state.Initial()
	initial.Cart.GuestCartID = cartID

	h := &harness{
		store:   store.New(reduce, initial),
		backend: newFakeBackend(),
		cart:    newFakeCart(),
	}
	h.workflow = checkout.NewWorkflow(h.backend, h.cart, directory.NewService(h.backend))
	h.store.Subscribe(func(a action.Action, _ state.State) {
		h.mu.Lock()
		h.actions = append(h.actions, a)
		h.mu.Unlock()
	})
	return h
}

func (h *harness) types() []action.Type {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]action.Type, 0, len(h.actions))
	for _, a := range h.actions {
		out = append(out, a.Type)
	}
	return out
}

func (h *harness) last() action.Action {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.actions[len(h.actions)-1]
}

func assertTypes(t *testing.T, got []action.Type, want ...action.Type) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("actions = %v, want %v", got, want)
		}
	}
}

func TestReset_ClosesDrawerThenResets(t *testing.T) {
	h := newHarness(t, "cart-1")
	ctx := context.Background()
	_ = h.store.Run(ctx, app.OpenDrawer("cart"))
	_ = h.store.Run(ctx, h.workflow.EditSection(domain.SectionInput))

	if err := h.store.Run(ctx, h.workflow.Reset()); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	assertTypes(t, h.types(), app.ToggleDrawer, checkout.Edit, app.ToggleDrawer, checkout.Reset)
	st := h.store.State()
	if st.App.Drawer != "" {
		t.Errorf("Drawer = %q, want closed", st.App.Drawer)
	}
	if st.Checkout.Editing != "" || st.Checkout.Step != domain.StepCart {
		t.Errorf("checkout = %+v, want initial", st.Checkout)
	}
}

func TestEditSection_DispatchesSection(t *testing.T) {
	h := newHarness(t, "")

	if err := h.store.Run(context.Background(), h.workflow.EditSection("anything")); err != nil {
		t.Fatalf("EditSection: %v", err)
	}

	assertTypes(t, h.types(), checkout.Edit)
	if got := h.last().Payload; got != domain.Section("anything") {
		t.Errorf("payload = %v, want anything", got)
	}
	if got := h.store.State().Checkout.Editing; got != "anything" {
		t.Errorf("Editing = %q", got)
	}
}

func TestSubmitCart_AlwaysAccepts(t *testing.T) {
	h := newHarness(t, "")

	if err := h.store.Run(context.Background(), h.workflow.SubmitCart()); err != nil {
		t.Fatalf("SubmitCart: %v", err)
	}

	assertTypes(t, h.types(), checkout.Cart.Accept)
	if len(h.backend.calls) != 0 {
		t.Errorf("expected no backend calls, got %v", h.backend.calls)
	}
	if got := h.store.State().Checkout.Step; got != domain.StepForm {
		t.Errorf("Step = %q, want %q", got, domain.StepForm)
	}
}

func TestSubmitInput_MissingGuestCart(t *testing.T) {
	h := newHarness(t, "")

	err := h.store.Run(context.Background(), h.workflow.SubmitInput(checkout.InputPayload{
		FormValues: domain.Address{"region_code": "NY", "street": "1 Main"},
	}))

	if !errors.Is(err, checkout.ErrMissingGuestCart) {
		t.Fatalf("err = %v, want ErrMissingGuestCart", err)
	}
	if got := h.types(); len(got) != 0 {
		t.Errorf("expected no actions, got %v", got)
	}
	if len(h.backend.calls) != 0 {
		t.Errorf("expected no backend calls, got %v", h.backend.calls)
	}
}

func TestSubmitInput_Success(t *testing.T) {
	h := newHarness(t, "cart-1")
	h.backend.on("POST", "/rest/V1/guest-carts/cart-1/shipping-information", `{"ok":true}`, nil)
	payload := checkout.InputPayload{FormValues: domain.Address{"region_code": "CA", "street": []string{"1 Main"}}}

	if err := h.store.Run(context.Background(), h.workflow.SubmitInput(payload)); err != nil {
		t.Fatalf("SubmitInput: %v", err)
	}

	assertTypes(t, h.types(), checkout.Input.Submit, directory.GetCountriesType, cartRefreshed, checkout.Input.Accept)

	h.mu.Lock()
	submitted := h.actions[0].Payload
	h.mu.Unlock()
	if p, ok := submitted.(checkout.InputPayload); !ok || p.FormValues["region_code"] != "CA" {
		t.Errorf("submit payload = %#v", submitted)
	}
	if got := string(h.last().Payload.(json.RawMessage)); got != `{"ok":true}` {
		t.Errorf("accept payload = %s", got)
	}
	if len(h.cart.forced) != 1 || !h.cart.forced[0] {
		t.Errorf("refreshes = %v, want one forced refresh", h.cart.forced)
	}

	calls := h.backend.callsTo("POST", "/rest/V1/guest-carts/cart-1/shipping-information")
	if len(calls) != 1 {
		t.Fatalf("shipping-information calls = %d, want 1", len(calls))
	}
	var body struct {
		AddressInformation struct {
			Billing  map[string]any `json:"billing_address"`
			Shipping map[string]any `json:"shipping_address"`
			Method   string         `json:"shipping_method_code"`
			Carrier  string         `json:"shipping_carrier_code"`
		} `json:"addressInformation"`
	}
	if err := json.Unmarshal(calls[0].Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	info := body.AddressInformation
	if info.Method != "flatrate" || info.Carrier != "flatrate" {
		t.Errorf("method/carrier = %q/%q", info.Method, info.Carrier)
	}
	for name, addr := range map[string]map[string]any{"billing": info.Billing, "shipping": info.Shipping} {
		if addr["country_id"] != "US" || addr["region_code"] != "CA" || addr["region"] != "California" || addr["region_id"] != float64(12) {
			t.Errorf("%s address = %v", name, addr)
		}
	}

	st := h.store.State().Checkout
	if st.Submitting || st.Step != domain.StepForm || string(st.ShippingInformation) != `{"ok":true}` {
		t.Errorf("checkout state = %+v", st)
	}
}

func TestSubmitInput_RegionRejected(t *testing.T) {
	h := newHarness(t, "cart-1")

	err := h.store.Run(context.Background(), h.workflow.SubmitInput(checkout.InputPayload{
		FormValues: domain.Address{"region_code": "ZZ"},
	}))
	if err != nil {
		t.Fatalf("SubmitInput: %v", err)
	}

	assertTypes(t, h.types(), checkout.Input.Submit, directory.GetCountriesType, checkout.Input.Reject)
	if !errors.Is(h.last().Err(), checkout.ErrRegionUnavailable) {
		t.Errorf("reject payload = %v", h.last().Payload)
	}
	if len(h.backend.callsTo("POST", "/rest/V1/guest-carts/cart-1/shipping-information")) != 0 {
		t.Error("expected no shipping-information request")
	}
	if len(h.cart.forced) != 0 {
		t.Error("expected no cart refresh")
	}
	if st := h.store.State().Checkout; st.Submitting || !errors.Is(st.Err, checkout.ErrRegionUnavailable) {
		t.Errorf("checkout state = %+v", st)
	}
}

func TestSubmitInput_CountriesUnavailable(t *testing.T) {
	h := newHarness(t, "cart-1")
	h.backend.on("GET", "/rest/V1/directory/countries", "", errors.New("directory down"))

	if err := h.store.Run(context.Background(), h.workflow.SubmitInput(checkout.InputPayload{
		FormValues: domain.Address{"region_code": "CA"},
	})); err != nil {
		t.Fatalf("SubmitInput: %v", err)
	}

	assertTypes(t, h.types(), checkout.Input.Submit, directory.GetCountriesType, checkout.Input.Reject)
	if !errors.Is(h.last().Err(), checkout.ErrCountryUnavailable) {
		t.Errorf("reject payload = %v", h.last().Payload)
	}
}

func TestSubmitInput_RequestRejected(t *testing.T) {
	h := newHarness(t, "cart-1")
	boom := &magento.ResponseError{StatusCode: 400, Message: "bad address"}
	h.backend.on("POST", "/rest/V1/guest-carts/cart-1/shipping-information", "", boom)

	if err := h.store.Run(context.Background(), h.workflow.SubmitInput(checkout.InputPayload{
		FormValues: domain.Address{"region_code": "NY"},
	})); err != nil {
		t.Fatalf("SubmitInput: %v", err)
	}

	assertTypes(t, h.types(), checkout.Input.Submit, directory.GetCountriesType, checkout.Input.Reject)
	if !errors.Is(h.last().Err(), boom) {
		t.Errorf("reject payload = %v, want %v", h.last().Payload, boom)
	}
	if len(h.cart.forced) != 0 {
		t.Error("expected no cart refresh after a failed request")
	}
}

func TestSubmitOrder_MissingGuestCart(t *testing.T) {
	h := newHarness(t, "")

	err := h.store.Run(context.Background(), h.workflow.SubmitOrder())

	if !errors.Is(err, checkout.ErrMissingGuestCart) {
		t.Fatalf("err = %v, want ErrMissingGuestCart", err)
	}
	if got := h.types(); len(got) != 0 {
		t.Errorf("expected no actions, got %v", got)
	}
}

func TestSubmitOrder_Failure(t *testing.T) {
	h := newHarness(t, "cart-1")
	boom := errors.New("connection reset")
	h.backend.on("PUT", "/rest/V1/guest-carts/cart-1/order", "", boom)

	if err := h.store.Run(context.Background(), h.workflow.SubmitOrder()); err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	h.workflow.Wait()

	assertTypes(t, h.types(), checkout.Order.Submit, checkout.Order.Reject)
	if !errors.Is(h.last().Err(), boom) {
		t.Errorf("reject payload = %v", h.last().Payload)
	}
	if h.cart.wasCleared() {
		t.Error("guest cart id must not be cleared after a failed order")
	}
	if st := h.store.State().Checkout; st.Submitting || st.Step == domain.StepReceipt {
		t.Errorf("checkout state = %+v", st)
	}
}

func TestSubmitOrder_Success(t *testing.T) {
	h := newHarness(t, "cart-1")
	h.backend.on("PUT", "/rest/V1/guest-carts/cart-1/order", `"000000042"`, nil)

	if err := h.store.Run(context.Background(), h.workflow.SubmitOrder()); err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	h.workflow.Wait()

	assertTypes(t, h.types(), checkout.Order.Submit, checkout.Order.Accept)
	if got := string(h.last().Payload.(json.RawMessage)); got != `"000000042"` {
		t.Errorf("accept payload = %s", got)
	}
	if !h.cart.wasCleared() {
		t.Error("expected guest cart id to be cleared")
	}

	calls := h.backend.callsTo("PUT", "/rest/V1/guest-carts/cart-1/order")
	if len(calls) != 1 {
		t.Fatalf("order calls = %d, want 1", len(calls))
	}
	if string(calls[0].Body) != `{"paymentMethod":{"method":"checkmo"}}` {
		t.Errorf("order body = %s", calls[0].Body)
	}
	if calls[0].Key == "" {
		t.Error("expected an idempotency key on the order request")
	}

	st := h.store.State().Checkout
	if st.Step != domain.StepReceipt || string(st.Order) != `"000000042"` {
		t.Errorf("checkout state = %+v", st)
	}
}

func TestSubmitOrder_ClearFailureIsNotSurfaced(t *testing.T) {
	h := newHarness(t, "cart-1")
	h.cart.clearErr = errors.New("storage offline")
	h.backend.on("PUT", "/rest/V1/guest-carts/cart-1/order", `"1"`, nil)

	if err := h.store.Run(context.Background(), h.workflow.SubmitOrder()); err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	h.workflow.Wait()

	assertTypes(t, h.types(), checkout.Order.Submit, checkout.Order.Accept)
}
