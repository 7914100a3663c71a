// Package state defines the storefront store shape read by checkout thunks.
package state

import (
	"encoding/json"

	"github.com/nazeru/storefront-checkout-go/internal/domain"
	"github.com/nazeru/storefront-checkout-go/pkg/store"
)

type (
	Thunk      = store.Thunk[State]
	Dispatcher = store.Dispatcher[State]
	Middleware = store.Middleware[State]
)

type State struct {
	App       AppState
	Cart      CartState
	Directory DirectoryState
	Checkout  CheckoutState
}

type AppState struct {
	// Drawer names the open drawer; empty when closed.
	Drawer string
}

type CartState struct {
	GuestCartID domain.GuestCartID
	Details     json.RawMessage
	Totals      json.RawMessage
	Loading     bool
	Err         error
}

type DirectoryState struct {
	Countries []domain.Country
	Err       error
}

type CheckoutState struct {
	Step                domain.Step
	Editing             domain.Section
	Submitting          bool
	ShippingInformation domain.ShippingInformationResult
	Order               domain.OrderResult
	Err                 error
}

func Initial() State {
	return State{Checkout: InitialCheckout()}
}

func InitialCheckout() CheckoutState {
	return CheckoutState{Step: domain.StepCart}
}
