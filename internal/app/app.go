// Package app holds storefront chrome state such as the navigation drawer.
package app

import (
	"context"

	"github.com/nazeru/storefront-checkout-go/internal/state"
	"github.com/nazeru/storefront-checkout-go/pkg/action"
)

var ns = action.NewNamespace("APP")

var ToggleDrawer = ns.Type("TOGGLE_DRAWER")

// OpenDrawer returns a thunk that opens the named drawer.
func OpenDrawer(name string) state.Thunk {
	return func(ctx context.Context, d state.Dispatcher) error {
		d.Dispatch(action.New(ToggleDrawer, name))
		return nil
	}
}

// CloseDrawer returns a thunk that closes whatever drawer is open.
func CloseDrawer() state.Thunk {
	return func(ctx context.Context, d state.Dispatcher) error {
		d.Dispatch(action.New(ToggleDrawer, nil))
		return nil
	}
}

func Reduce(s state.AppState, a action.Action) state.AppState {
	if a.Type != ToggleDrawer {
		return s
	}
	name, _ := a.Payload.(string)
	s.Drawer = name
	return s
}
