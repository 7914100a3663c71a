// Package storefront assembles the store, its reducers and middleware, and
// the services whose thunks drive a guest checkout.
package storefront

import (
	"context"
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nazeru/storefront-checkout-go/internal/app"
	"github.com/nazeru/storefront-checkout-go/internal/cart"
	"github.com/nazeru/storefront-checkout-go/internal/checkout"
	"github.com/nazeru/storefront-checkout-go/internal/directory"
	"github.com/nazeru/storefront-checkout-go/internal/journal"
	"github.com/nazeru/storefront-checkout-go/internal/state"
	"github.com/nazeru/storefront-checkout-go/pkg/action"
	"github.com/nazeru/storefront-checkout-go/pkg/logging"
	"github.com/nazeru/storefront-checkout-go/pkg/magento"
	"github.com/nazeru/storefront-checkout-go/pkg/metrics"
	"github.com/nazeru/storefront-checkout-go/pkg/store"
)

type Requester interface {
	Do(ctx context.Context, method, path string, body any, opts ...magento.RequestOption) (json.RawMessage, error)
}

type Options struct {
	SessionID string
	IDStore   cart.IDStore
	// Journal receives checkout outcome events; nil disables journaling.
	Journal journal.Sink
	// JournalTopic overrides the topic journaled events are published to.
	JournalTopic string
	// Registerer enables action metrics when set.
	Registerer prometheus.Registerer
	// LogActions writes every dispatched action to the log.
	LogActions bool
}

type Storefront struct {
	Store     *store.Store[state.State]
	Cart      *cart.Service
	Directory *directory.Service
	Checkout  *checkout.Workflow
}

func Reduce(s state.State, a action.Action) state.State {
	s.App = app.Reduce(s.App, a)
	s.Cart = cart.Reduce(s.Cart, a)
	s.Directory = directory.Reduce(s.Directory, a)
	s.Checkout = checkout.Reduce(s.Checkout, a)
	return s
}

func New(client Requester, opts Options) *Storefront {
	var mws []state.Middleware
	if opts.LogActions {
		mws = append(mws, logging.Middleware[state.State]("storefront", opts.SessionID))
	}
	if opts.Registerer != nil {
		mws = append(mws, metrics.ActionMiddleware[state.State](opts.Registerer, "storefront"))
	}
	if opts.Journal != nil {
		mws = append(mws, journal.Middleware(opts.Journal, opts.SessionID, opts.JournalTopic))
	}

	cartSvc := cart.NewService(client, opts.IDStore)
	dirSvc := directory.NewService(client)
	return &Storefront{
		Store:     store.New(Reduce, state.Initial(), mws...),
		Cart:      cartSvc,
		Directory: dirSvc,
		Checkout:  checkout.NewWorkflow(client, cartSvc, dirSvc),
	}
}

func (sf *Storefront) Run(ctx context.Context, t state.Thunk) error {
	return sf.Store.Run(ctx, t)
}

func (sf *Storefront) State() state.State {
	return sf.Store.State()
}

// Start restores the persisted guest cart or opens a new one, then loads its
// details.
func (sf *Storefront) Start(ctx context.Context) error {
	if err := sf.Run(ctx, sf.Cart.RestoreGuestCart()); err != nil {
		return err
	}
	if err := sf.Run(ctx, sf.Cart.CreateGuestCart()); err != nil {
		return err
	}
	return sf.Run(ctx, sf.Cart.GetCartDetails(cart.DetailsOptions{}))
}

// Close waits for background checkout work to finish.
func (sf *Storefront) Close() {
	sf.Checkout.Wait()
}
