// Package cart manages the guest cart: creating it, remembering its id and
// fetching its details and totals.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/nazeru/storefront-checkout-go/internal/domain"
	"github.com/nazeru/storefront-checkout-go/internal/state"
	"github.com/nazeru/storefront-checkout-go/pkg/action"
	"github.com/nazeru/storefront-checkout-go/pkg/magento"
)

var ns = action.NewNamespace("CART")

var (
	GuestCartRequest = ns.Type("GET_GUEST_CART", "REQUEST")
	GuestCartReceive = ns.Type("GET_GUEST_CART", "RECEIVE")
	DetailsRequest   = ns.Type("GET_DETAILS", "REQUEST")
	DetailsReceive   = ns.Type("GET_DETAILS", "RECEIVE")
	ResetGuestCartID = ns.Type("RESET_GUEST_CART_ID")
)

type Requester interface {
	Do(ctx context.Context, method, path string, body any, opts ...magento.RequestOption) (json.RawMessage, error)
}

type Details struct {
	Cart   json.RawMessage `json:"cart"`
	Totals json.RawMessage `json:"totals"`
}

type DetailsOptions struct {
	ForceRefresh bool
}

type Service struct {
	client Requester
	ids    IDStore
}

func NewService(client Requester, ids IDStore) *Service {
	if ids == nil {
		ids = NewMemoryIDStore()
	}
	return &Service{client: client, ids: ids}
}

// CreateGuestCart opens a new guest cart unless one is already in state.
func (s *Service) CreateGuestCart() state.Thunk {
	return func(ctx context.Context, d state.Dispatcher) error {
		if !d.State().Cart.GuestCartID.Empty() {
			return nil
		}
		d.Dispatch(action.New(GuestCartRequest, nil))

		id, err := s.createCart(ctx)
		if err != nil {
			d.Dispatch(action.New(GuestCartReceive, err))
			return err
		}
		if err := s.ids.Save(ctx, id); err != nil {
			d.Dispatch(action.New(GuestCartReceive, err))
			return err
		}
		d.Dispatch(action.New(GuestCartReceive, id))
		return nil
	}
}

// RestoreGuestCart loads a previously persisted cart id into state.
func (s *Service) RestoreGuestCart() state.Thunk {
	return func(ctx context.Context, d state.Dispatcher) error {
		id, err := s.ids.Load(ctx)
		if err != nil {
			return err
		}
		if !id.Empty() {
			d.Dispatch(action.New(GuestCartReceive, id))
		}
		return nil
	}
}

// GetCartDetails fetches the cart and its totals. Cached details are reused
// unless opts.ForceRefresh is set. Request failures are dispatched, not
// returned.
func (s *Service) GetCartDetails(opts DetailsOptions) state.Thunk {
	return func(ctx context.Context, d state.Dispatcher) error {
		cur := d.State().Cart
		if !opts.ForceRefresh && cur.Details != nil && !cur.GuestCartID.Empty() {
			return nil
		}
		if cur.GuestCartID.Empty() {
			if err := d.Run(ctx, s.CreateGuestCart()); err != nil {
				return nil
			}
		}

		d.Dispatch(action.New(DetailsRequest, nil))
		details, err := s.fetchDetails(ctx, d.State().Cart.GuestCartID)

		// an expired cart answers 404: start over with a fresh one
		var rerr *magento.ResponseError
		if errors.As(err, &rerr) && rerr.StatusCode == http.StatusNotFound {
			if err := d.Run(ctx, s.ResetGuestCart()); err != nil {
				d.Dispatch(action.New(DetailsReceive, err))
				return nil
			}
			if err := d.Run(ctx, s.CreateGuestCart()); err != nil {
				d.Dispatch(action.New(DetailsReceive, err))
				return nil
			}
			details, err = s.fetchDetails(ctx, d.State().Cart.GuestCartID)
		}
		if err != nil {
			d.Dispatch(action.New(DetailsReceive, err))
			return nil
		}
		d.Dispatch(action.New(DetailsReceive, details))
		return nil
	}
}

// ResetGuestCart forgets the persisted cart id and clears it from state.
func (s *Service) ResetGuestCart() state.Thunk {
	return func(ctx context.Context, d state.Dispatcher) error {
		if err := s.ids.Clear(ctx); err != nil {
			return err
		}
		d.Dispatch(action.New(ResetGuestCartID, nil))
		return nil
	}
}

// ClearGuestCartID forgets the persisted cart id without touching state.
func (s *Service) ClearGuestCartID(ctx context.Context) error {
	return s.ids.Clear(ctx)
}

func (s *Service) createCart(ctx context.Context) (domain.GuestCartID, error) {
	resp, err := s.client.Do(ctx, http.MethodPost, magento.Path("guest-carts"), nil)
	if err != nil {
		return "", err
	}
	var id string
	if err := json.Unmarshal(resp, &id); err != nil {
		return "", fmt.Errorf("cart: decode guest cart id: %w", err)
	}
	return domain.GuestCartID(id), nil
}

func (s *Service) fetchDetails(ctx context.Context, id domain.GuestCartID) (Details, error) {
	cartResp, err := s.client.Do(ctx, http.MethodGet, magento.GuestCartPath(id.String()), nil)
	if err != nil {
		return Details{}, err
	}
	totals, err := s.client.Do(ctx, http.MethodGet, magento.GuestCartPath(id.String(), "totals"), nil)
	if err != nil {
		return Details{}, err
	}
	return Details{Cart: cartResp, Totals: totals}, nil
}

func Reduce(s state.CartState, a action.Action) state.CartState {
	switch a.Type {
	case GuestCartReceive:
		if a.Error {
			s.Err = a.Err()
			return s
		}
		if id, ok := a.Payload.(domain.GuestCartID); ok {
			s.GuestCartID = id
			s.Err = nil
		}
	case DetailsRequest:
		s.Loading = true
	case DetailsReceive:
		s.Loading = false
		if a.Error {
			s.Err = a.Err()
			return s
		}
		if details, ok := a.Payload.(Details); ok {
			s.Details = details.Cart
			s.Totals = details.Totals
			s.Err = nil
		}
	case ResetGuestCartID:
		return state.CartState{}
	}
	return s
}
