// Package directory loads reference data (countries and their regions) used
// to validate addresses.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nazeru/storefront-checkout-go/internal/domain"
	"github.com/nazeru/storefront-checkout-go/internal/state"
	"github.com/nazeru/storefront-checkout-go/pkg/action"
	"github.com/nazeru/storefront-checkout-go/pkg/magento"
)

var GetCountriesType = action.NewNamespace("DIRECTORY").Type("GET_COUNTRIES")

type Requester interface {
	Do(ctx context.Context, method, path string, body any, opts ...magento.RequestOption) (json.RawMessage, error)
}

type Service struct {
	client Requester
}

func NewService(client Requester) *Service {
	return &Service{client: client}
}

// GetCountries loads the country list once. Failures are dispatched as a
// failed GET_COUNTRIES action and leave the list untouched.
func (s *Service) GetCountries() state.Thunk {
	return func(ctx context.Context, d state.Dispatcher) error {
		if len(d.State().Directory.Countries) > 0 {
			return nil
		}
		resp, err := s.client.Do(ctx, http.MethodGet, magento.Path("directory", "countries"), nil)
		if err != nil {
			d.Dispatch(action.New(GetCountriesType, err))
			return nil
		}
		var countries []domain.Country
		if err := json.Unmarshal(resp, &countries); err != nil {
			d.Dispatch(action.New(GetCountriesType, fmt.Errorf("directory: decode countries: %w", err)))
			return nil
		}
		d.Dispatch(action.New(GetCountriesType, countries))
		return nil
	}
}

func Reduce(s state.DirectoryState, a action.Action) state.DirectoryState {
	if a.Type != GetCountriesType {
		return s
	}
	if a.Error {
		s.Err = a.Err()
		return s
	}
	if countries, ok := a.Payload.([]domain.Country); ok {
		s.Countries = countries
		s.Err = nil
	}
	return s
}
