package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

type GuestCartID string

func (id GuestCartID) Empty() bool { return strings.TrimSpace(string(id)) == "" }

func (id GuestCartID) String() string { return string(id) }

// Section is the checkout step currently being edited.
type Section string

const (
	SectionCart  Section = "cart"
	SectionInput Section = "input"
	SectionOrder Section = "order"
)

// Step is the checkout page the shopper is on.
type Step string

const (
	StepCart    Step = "cart"
	StepForm    Step = "form"
	StepReceipt Step = "receipt"
)

// Address holds customer-entered fields keyed by their Magento names
// (street, city, region_code, postcode, ...).
type Address map[string]any

// RegionID accepts both 12 and "12" on decode; Magento sends the quoted form.
type RegionID int

func (r *RegionID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*r = 0
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return err
	}
	*r = RegionID(n)
	return nil
}

type Region struct {
	ID   RegionID `json:"id"`
	Code string   `json:"code"`
	Name string   `json:"name"`
}

type Country struct {
	ID               string   `json:"id"`
	Code             string   `json:"two_letter_abbreviation,omitempty"`
	Name             string   `json:"full_name_english,omitempty"`
	AvailableRegions []Region `json:"available_regions,omitempty"`
}

// ShippingInformationResult and OrderResult are forwarded untouched.
type (
	ShippingInformationResult = json.RawMessage
	OrderResult               = json.RawMessage
)
