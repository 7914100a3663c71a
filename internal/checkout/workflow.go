// Package checkout drives the guest checkout: editing sections, submitting the
// shipping address and placing the order against the commerce backend.
//
// Every operation returns a thunk. Precondition failures (no guest cart) are
// returned from the thunk before anything is dispatched; failures once a
// submission has started are dispatched as the matching REJECT action.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/nazeru/storefront-checkout-go/internal/app"
	"github.com/nazeru/storefront-checkout-go/internal/cart"
	"github.com/nazeru/storefront-checkout-go/internal/domain"
	"github.com/nazeru/storefront-checkout-go/internal/state"
	"github.com/nazeru/storefront-checkout-go/pkg/action"
	"github.com/nazeru/storefront-checkout-go/pkg/idempotency"
	"github.com/nazeru/storefront-checkout-go/pkg/logging"
	"github.com/nazeru/storefront-checkout-go/pkg/magento"
)

var ErrMissingGuestCart = errors.New("checkout: missing required information: guestCartId")

const (
	shippingMethod = "flatrate"
	// TODO: take the payment method from cart state once payment selection exists.
	paymentMethod = "checkmo"
)

type Requester interface {
	Do(ctx context.Context, method, path string, body any, opts ...magento.RequestOption) (json.RawMessage, error)
}

type CartService interface {
	GetCartDetails(opts cart.DetailsOptions) state.Thunk
	ClearGuestCartID(ctx context.Context) error
}

type DirectoryService interface {
	GetCountries() state.Thunk
}

type InputPayload struct {
	FormValues domain.Address `json:"formValues"`
}

type addressInformation struct {
	BillingAddress      domain.Address `json:"billing_address"`
	ShippingAddress     domain.Address `json:"shipping_address"`
	ShippingMethodCode  string         `json:"shipping_method_code"`
	ShippingCarrierCode string         `json:"shipping_carrier_code"`
}

type shippingInformationRequest struct {
	AddressInformation addressInformation `json:"addressInformation"`
}

type paymentMethodBody struct {
	Method string `json:"method"`
}

type orderRequest struct {
	PaymentMethod paymentMethodBody `json:"paymentMethod"`
}

type Workflow struct {
	client    Requester
	cart      CartService
	directory DirectoryService
	service   string

	// fire-and-forget work started by SubmitOrder
	pending sync.WaitGroup
}

func NewWorkflow(client Requester, cartSvc CartService, dir DirectoryService) *Workflow {
	return &Workflow{
		client:    client,
		cart:      cartSvc,
		directory: dir,
		service:   "checkout",
	}
}

// Wait blocks until background work started by SubmitOrder has finished.
func (w *Workflow) Wait() {
	w.pending.Wait()
}

func (w *Workflow) Reset() state.Thunk {
	return func(ctx context.Context, d state.Dispatcher) error {
		if err := d.Run(ctx, app.CloseDrawer()); err != nil {
			return err
		}
		d.Dispatch(action.New(Reset, nil))
		return nil
	}
}

func (w *Workflow) EditSection(section domain.Section) state.Thunk {
	return func(ctx context.Context, d state.Dispatcher) error {
		d.Dispatch(action.New(Edit, section))
		return nil
	}
}

// SubmitCart accepts the cart as is; there is no cart submission endpoint.
func (w *Workflow) SubmitCart() state.Thunk {
	return func(ctx context.Context, d state.Dispatcher) error {
		d.Dispatch(action.New(Cart.Accept, nil))
		return nil
	}
}

// SubmitInput sends the shipping address. The cart is refreshed before
// INPUT/ACCEPT so listeners never see the accepted step with stale totals.
func (w *Workflow) SubmitInput(payload InputPayload) state.Thunk {
	return func(ctx context.Context, d state.Dispatcher) error {
		cartID := d.State().Cart.GuestCartID
		if cartID.Empty() {
			return ErrMissingGuestCart
		}

		d.Dispatch(action.New(Input.Submit, payload))

		resp, err := w.submitShipping(ctx, d, cartID, payload)
		if err != nil {
			logging.Log(logging.Fields{Service: w.service, CartID: cartID.String(), Step: "submit_input", Status: "rejected", Message: err.Error()})
			d.Dispatch(action.New(Input.Reject, err))
			return nil
		}
		d.Dispatch(action.New(Input.Accept, resp))
		return nil
	}
}

func (w *Workflow) submitShipping(ctx context.Context, d state.Dispatcher, cartID domain.GuestCartID, payload InputPayload) (domain.ShippingInformationResult, error) {
	if err := d.Run(ctx, w.directory.GetCountries()); err != nil {
		return nil, err
	}

	address, err := FormatAddress(payload.FormValues, d.State().Directory.Countries)
	if err != nil {
		return nil, err
	}

	body := shippingInformationRequest{
		AddressInformation: addressInformation{
			BillingAddress:      address,
			ShippingAddress:     address,
			ShippingMethodCode:  shippingMethod,
			ShippingCarrierCode: shippingMethod,
		},
	}
	resp, err := w.client.Do(ctx, http.MethodPost, magento.GuestCartPath(cartID.String(), "shipping-information"), body)
	if err != nil {
		return nil, err
	}

	if err := d.Run(ctx, w.cart.GetCartDetails(cart.DetailsOptions{ForceRefresh: true})); err != nil {
		return nil, err
	}
	return resp, nil
}

// SubmitOrder places the order. On success the persisted guest cart id is
// cleared in the background; the thunk does not wait for it.
func (w *Workflow) SubmitOrder() state.Thunk {
	return func(ctx context.Context, d state.Dispatcher) error {
		cartID := d.State().Cart.GuestCartID
		if cartID.Empty() {
			return ErrMissingGuestCart
		}

		d.Dispatch(action.New(Order.Submit, nil))

		start := time.Now()
		body := orderRequest{PaymentMethod: paymentMethodBody{Method: paymentMethod}}
		resp, err := w.client.Do(ctx, http.MethodPut, magento.GuestCartPath(cartID.String(), "order"), body,
			magento.WithIdempotencyKey(idempotency.NewKey()))
		if err != nil {
			logging.Log(logging.Fields{Service: w.service, CartID: cartID.String(), Step: "submit_order", Status: "rejected", DurationMS: time.Since(start).Milliseconds(), Message: err.Error()})
			d.Dispatch(action.New(Order.Reject, err))
			return nil
		}

		d.Dispatch(action.New(Order.Accept, resp))
		logging.Log(logging.Fields{Service: w.service, CartID: cartID.String(), Step: "submit_order", Status: "placed", DurationMS: time.Since(start).Milliseconds()})

		w.pending.Add(1)
		go func() {
			defer w.pending.Done()
			if err := w.cart.ClearGuestCartID(context.WithoutCancel(ctx)); err != nil {
				logging.Log(logging.Fields{Service: w.service, CartID: cartID.String(), Step: "clear_guest_cart", Status: "failed", Message: err.Error()})
			}
		}()
		return nil
	}
}
