package checkout

import (
	"errors"
	"fmt"

	"github.com/nazeru/storefront-checkout-go/internal/domain"
)

// DefaultCountryID is the only country addresses are resolved against.
const DefaultCountryID = "US"

var (
	ErrCountryUnavailable = errors.New("checkout: country is not available")
	ErrRegionUnavailable  = errors.New("checkout: region is not available")
)

// FormatAddress resolves the shopper's region against the directory and
// returns the address in the shape the shipping-information endpoint takes.
// Fields present in address override the resolved country and region values.
func FormatAddress(address domain.Address, countries []domain.Country) (domain.Address, error) {
	var country *domain.Country
	for i := range countries {
		if countries[i].ID == DefaultCountryID {
			country = &countries[i]
			break
		}
	}
	if country == nil {
		return nil, fmt.Errorf("%w: %q", ErrCountryUnavailable, DefaultCountryID)
	}

	rawCode, hasCode := address["region_code"]
	code, isString := rawCode.(string)

	var region *domain.Region
	if isString {
		for i := range country.AvailableRegions {
			if country.AvailableRegions[i].Code == code {
				region = &country.AvailableRegions[i]
				break
			}
		}
	}
	if region == nil {
		label := ""
		if hasCode {
			label = fmt.Sprint(rawCode)
		}
		return nil, fmt.Errorf("%w: %q", ErrRegionUnavailable, label)
	}

	out := domain.Address{
		"country_id":  DefaultCountryID,
		"region_id":   region.ID,
		"region_code": region.Code,
		"region":      region.Name,
	}
	for k, v := range address {
		out[k] = v
	}
	return out, nil
}
