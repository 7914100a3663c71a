package checkout

import (
	"encoding/json"

	"github.com/nazeru/storefront-checkout-go/internal/domain"
	"github.com/nazeru/storefront-checkout-go/internal/state"
	"github.com/nazeru/storefront-checkout-go/pkg/action"
)

func Reduce(s state.CheckoutState, a action.Action) state.CheckoutState {
	switch a.Type {
	case Reset:
		return state.InitialCheckout()
	case Edit:
		if section, ok := a.Payload.(domain.Section); ok {
			s.Editing = section
		}
	case Cart.Submit, Input.Submit, Order.Submit:
		s.Submitting = true
		s.Err = nil
	case Cart.Accept:
		s.Step = domain.StepForm
		s.Editing = ""
		s.Submitting = false
	case Input.Accept:
		s.Step = domain.StepForm
		s.Editing = ""
		s.Submitting = false
		s.ShippingInformation, _ = a.Payload.(json.RawMessage)
	case Order.Accept:
		s.Step = domain.StepReceipt
		s.Submitting = false
		s.Order, _ = a.Payload.(json.RawMessage)
	case Cart.Reject, Input.Reject, Order.Reject:
		s.Submitting = false
		s.Err = a.Err()
	}
	return s
}
