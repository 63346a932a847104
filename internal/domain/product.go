package domain

import (
	"encoding/json"
	"strings"
)

// ProductType identifies the line of business being quoted.
type ProductType string

const (
	ProductAuto       ProductType = "auto"
	ProductLife       ProductType = "life"
	ProductHealth     ProductType = "health"
	ProductHome       ProductType = "home"
	ProductConsortium ProductType = "consortium"
)

var productLabels = map[ProductType]string{
	ProductAuto:       "Seguro Auto",
	ProductLife:       "Seguro Vida",
	ProductHealth:     "Seguro Saúde",
	ProductHome:       "Seguro Residencial",
	ProductConsortium: "Consórcio",
}

// productEnumKeys are the enum names the dashboard uses for each product.
var productEnumKeys = map[ProductType]string{
	ProductAuto:       "INSURANCE_AUTO",
	ProductLife:       "INSURANCE_LIFE",
	ProductHealth:     "INSURANCE_HEALTH",
	ProductHome:       "INSURANCE_HOME",
	ProductConsortium: "CONSORTIUM",
}

// Products lists every supported product in display order.
func Products() []ProductType {
	return []ProductType{ProductConsortium, ProductAuto, ProductLife, ProductHome, ProductHealth}
}

// Label returns the Portuguese display name used by the dashboard.
func (p ProductType) Label() string {
	if l, ok := productLabels[p]; ok {
		return l
	}
	return string(p)
}

// IsInsurance reports whether the product is an insurance line (as opposed to consortium).
func (p ProductType) IsInsurance() bool {
	return p != ProductConsortium && p.Valid()
}

// Valid reports whether p is a known product.
func (p ProductType) Valid() bool {
	_, ok := productLabels[p]
	return ok
}

// ParseProductType accepts the wire code ("auto"), the display label
// ("Seguro Auto") or the dashboard enum key ("INSURANCE_AUTO"),
// case-insensitively.
func ParseProductType(s string) (ProductType, error) {
	s = strings.TrimSpace(s)
	for p, label := range productLabels {
		if strings.EqualFold(s, string(p)) || strings.EqualFold(s, label) || strings.EqualFold(s, productEnumKeys[p]) {
			return p, nil
		}
	}
	return "", &ErrValidation{Field: "productType", Message: "unknown product: " + s}
}

// UnmarshalJSON lets payloads from the legacy UI send display labels.
func (p *ProductType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*p = ""
		return nil
	}
	parsed, err := ParseProductType(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
