package domain

import (
	"encoding/json"
	"time"
)

// ============================================================
// Quote request: one variant per product
// ============================================================

// DefaultClientAge is assumed when a request carries no client age.
const DefaultClientAge = 35

// ClientData holds the insured person's attributes.
type ClientData struct {
	Name       string `json:"name"`
	Age        int    `json:"age"`
	TaxID      string `json:"cpf"`
	PostalCode string `json:"zipCode"`
}

// QuoteItem is the product-specific part of a quote request.
// Exactly one implementation exists per ProductType.
type QuoteItem interface {
	Product() ProductType
}

// AutoItem describes the vehicle being insured.
type AutoItem struct {
	Model        string  `json:"model,omitempty"`
	VehicleValue float64 `json:"fipeValue"`
}

// LifeItem describes a life insurance inquiry.
type LifeItem struct {
	Occupation string  `json:"occupation,omitempty"`
	Capital    float64 `json:"capital,omitempty"`
}

// HealthItem describes a health plan inquiry.
type HealthItem struct {
	Lives int `json:"lives"`
}

// HomeItem describes the property being insured.
type HomeItem struct {
	PropertyValue float64 `json:"propertyValue"`
}

// ConsortiumItem describes the credit letter being priced.
type ConsortiumItem struct {
	CreditValue float64 `json:"creditValue"`
}

func (AutoItem) Product() ProductType       { return ProductAuto }
func (LifeItem) Product() ProductType       { return ProductLife }
func (HealthItem) Product() ProductType     { return ProductHealth }
func (HomeItem) Product() ProductType       { return ProductHome }
func (ConsortiumItem) Product() ProductType { return ProductConsortium }

// QuoteRequest is a single pricing inquiry. It is treated as immutable
// once handed to the orchestrator.
type QuoteRequest struct {
	ID     string     `json:"id"`
	LeadID string     `json:"leadId,omitempty"`
	Client ClientData `json:"clientData"`
	Item   QuoteItem  `json:"itemData"`
}

// Product is derived from the item variant.
func (r *QuoteRequest) Product() ProductType {
	if r == nil || r.Item == nil {
		return ""
	}
	return r.Item.Product()
}

// MarshalJSON writes the request in the flat wire shape.
func (r QuoteRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID string `json:"id"`
		*QuotePayload
	}{ID: r.ID, QuotePayload: PayloadFromRequest(&r)})
}

// UnmarshalJSON reads the flat wire shape and rebuilds the item variant.
func (r *QuoteRequest) UnmarshalJSON(b []byte) error {
	var w struct {
		ID string `json:"id"`
		QuotePayload
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	req, err := w.QuotePayload.ToRequest()
	if err != nil {
		return err
	}
	*r = *req
	r.ID = w.ID
	return nil
}

// QuotePayload is the flat wire shape accepted at the HTTP boundary and by
// insurer HTTP APIs. Only the fields relevant to ProductType are read.
type QuotePayload struct {
	LeadID      string      `json:"leadId,omitempty"`
	ProductType ProductType `json:"productType"`
	ClientData  ClientData  `json:"clientData"`
	ItemData    struct {
		Model         string  `json:"model,omitempty"`
		FipeValue     float64 `json:"fipeValue,omitempty"`
		PropertyValue float64 `json:"propertyValue,omitempty"`
		CreditValue   float64 `json:"creditValue,omitempty"`
		Capital       float64 `json:"capital,omitempty"`
		Lives         int     `json:"lives,omitempty"`
		Occupation    string  `json:"occupation,omitempty"`
	} `json:"itemData"`
}

// ToRequest converts the flat payload into a typed QuoteRequest.
func (p *QuotePayload) ToRequest() (*QuoteRequest, error) {
	if !p.ProductType.Valid() {
		return nil, &ErrValidation{Field: "productType", Message: "unknown or missing product"}
	}
	if p.ClientData.Age < 0 {
		return nil, &ErrValidation{Field: "clientData.age", Message: "must not be negative"}
	}
	client := p.ClientData
	if client.Age == 0 {
		client.Age = DefaultClientAge
	}

	d := p.ItemData
	var item QuoteItem
	switch p.ProductType {
	case ProductAuto:
		if d.FipeValue < 0 {
			return nil, &ErrValidation{Field: "itemData.fipeValue", Message: "must not be negative"}
		}
		item = AutoItem{Model: d.Model, VehicleValue: d.FipeValue}
	case ProductLife:
		if d.Capital < 0 {
			return nil, &ErrValidation{Field: "itemData.capital", Message: "must not be negative"}
		}
		item = LifeItem{Occupation: d.Occupation, Capital: d.Capital}
	case ProductHealth:
		if d.Lives < 0 {
			return nil, &ErrValidation{Field: "itemData.lives", Message: "must not be negative"}
		}
		item = HealthItem{Lives: d.Lives}
	case ProductHome:
		if d.PropertyValue < 0 {
			return nil, &ErrValidation{Field: "itemData.propertyValue", Message: "must not be negative"}
		}
		item = HomeItem{PropertyValue: d.PropertyValue}
	case ProductConsortium:
		if d.CreditValue < 0 {
			return nil, &ErrValidation{Field: "itemData.creditValue", Message: "must not be negative"}
		}
		item = ConsortiumItem{CreditValue: d.CreditValue}
	}

	return &QuoteRequest{
		LeadID: p.LeadID,
		Client: client,
		Item:   item,
	}, nil
}

// PayloadFromRequest flattens a typed request back into the wire shape.
func PayloadFromRequest(r *QuoteRequest) *QuotePayload {
	p := &QuotePayload{
		LeadID:      r.LeadID,
		ProductType: r.Product(),
		ClientData:  r.Client,
	}
	switch it := r.Item.(type) {
	case AutoItem:
		p.ItemData.Model = it.Model
		p.ItemData.FipeValue = it.VehicleValue
	case LifeItem:
		p.ItemData.Occupation = it.Occupation
		p.ItemData.Capital = it.Capital
	case HealthItem:
		p.ItemData.Lives = it.Lives
	case HomeItem:
		p.ItemData.PropertyValue = it.PropertyValue
	case ConsortiumItem:
		p.ItemData.CreditValue = it.CreditValue
	}
	return p
}

// ============================================================
// Coverages & results
// ============================================================

// CoverageUnit tags how a coverage value should be read.
type CoverageUnit string

const (
	UnitCurrency CoverageUnit = "currency"
	UnitPercent  CoverageUnit = "percent"
	UnitDays     CoverageUnit = "days"
	UnitMonths   CoverageUnit = "months"
	UnitText     CoverageUnit = "text"
)

// CoverageKind separates basic lines from optional add-ons.
type CoverageKind string

const (
	CoverageBasic      CoverageKind = "basic"
	CoverageAdditional CoverageKind = "additional"
)

// CoverageItem is a named coverage line.
type CoverageItem struct {
	Name        string       `json:"name"`
	Value       float64      `json:"value"`
	Unit        CoverageUnit `json:"unit"`
	Description string       `json:"description,omitempty"`
	Kind        CoverageKind `json:"type"`
	Editable    bool         `json:"editable"`
}

// InstallmentPlan is one payment option: Count payments of Value.
type InstallmentPlan struct {
	Count        int     `json:"count"`
	Value        float64 `json:"value"`
	Total        float64 `json:"total"`
	InterestRate float64 `json:"interestRate,omitempty"`
}

// QuoteStatus is the lifecycle state of a single insurer quote.
type QuoteStatus string

const (
	QuoteCalculating QuoteStatus = "calculating"
	QuoteSuccess     QuoteStatus = "success"
	QuoteError       QuoteStatus = "error"
)

// PremiumBasis says what TotalPremium represents for the product.
type PremiumBasis string

const (
	BasisAnnual             PremiumBasis = "annual"
	BasisMonthly            PremiumBasis = "monthly"
	BasisMonthlyInstallment PremiumBasis = "monthly_installment"
)

// QuoteResult is one insurer's priced response to a QuoteRequest.
type QuoteResult struct {
	ID             string            `json:"id"`
	BatchID        string            `json:"batchId,omitempty"`
	InsurerID      string            `json:"insurerId"`
	InsurerName    string            `json:"insurerName"`
	InsurerLogo    string            `json:"insurerLogo"`
	Product        ProductType       `json:"productType"`
	ProductName    string            `json:"productName"`
	TotalPremium   float64           `json:"totalPremium"`
	PremiumBasis   PremiumBasis      `json:"premiumBasis,omitempty"`
	Tax            float64           `json:"tax"`
	Installments   []InstallmentPlan `json:"installments"`
	Coverages      []CoverageItem    `json:"coverages"`
	Status         QuoteStatus       `json:"status"`
	ProposalNumber string            `json:"proposalNumber,omitempty"`
	PDFURL         string            `json:"pdfUrl,omitempty"`
	ValidUntil     time.Time         `json:"validity"`
	Score          int               `json:"score"`
	Error          string            `json:"error,omitempty"`
	DerivedFrom    string            `json:"derivedFrom,omitempty"`
	LatencyMs      int64             `json:"latencyMs"`
}

// Succeeded reports whether the quote carries a usable price.
func (q *QuoteResult) Succeeded() bool {
	return q.Status == QuoteSuccess
}

// InsurerFailure records why one insurer branch of a batch failed.
type InsurerFailure struct {
	InsurerID string `json:"insurerId"`
	Reason    string `json:"reason"`
}

// QuoteBatch is the settled outcome of one multi-insurer calculation.
type QuoteBatch struct {
	ID          string           `json:"id"`
	Request     *QuoteRequest    `json:"request"`
	Dispatched  []string         `json:"dispatched"`
	Results     []QuoteResult    `json:"results"`
	Failures    []InsurerFailure `json:"failures,omitempty"`
	StartedAt   time.Time        `json:"startedAt"`
	CompletedAt time.Time        `json:"completedAt"`
}

// Successful returns only the success-status results, in batch order.
func (b *QuoteBatch) Successful() []QuoteResult {
	out := make([]QuoteResult, 0, len(b.Results))
	for _, r := range b.Results {
		if r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}

// FindResult returns the result with the given ID.
func (b *QuoteBatch) FindResult(id string) (*QuoteResult, bool) {
	for i := range b.Results {
		if b.Results[i].ID == id {
			return &b.Results[i], true
		}
	}
	return nil, false
}

// CoverageEditRequest is the body of a coverage edit on a quote result.
type CoverageEditRequest struct {
	Coverage string  `json:"coverage"`
	Value    float64 `json:"value"`
}
