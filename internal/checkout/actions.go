package checkout

import "github.com/nazeru/storefront-checkout-go/pkg/action"

var ns = action.NewNamespace("CHECKOUT")

var (
	Reset = ns.Type("RESET")
	Edit  = ns.Type("EDIT")

	Cart  = ns.Group("CART")
	Input = ns.Group("INPUT")
	Order = ns.Group("ORDER")
)
