package domain

import "time"

// ============================================================
// Leads: pipeline de prospecção (kanban)
// ============================================================

// LeadStatus is the kanban column a lead currently sits in.
type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadContacted LeadStatus = "contacted"
	LeadProposal  LeadStatus = "proposal"
	LeadWon       LeadStatus = "won"
	LeadLost      LeadStatus = "lost"
)

var leadStatusLabels = map[LeadStatus]string{
	LeadNew:       "Novo",
	LeadContacted: "Contatado",
	LeadProposal:  "Em Proposta",
	LeadWon:       "Vendido",
	LeadLost:      "Perdido",
}

// Valid reports whether s is a known status.
func (s LeadStatus) Valid() bool {
	_, ok := leadStatusLabels[s]
	return ok
}

// Label returns the column title shown on the board.
func (s LeadStatus) Label() string {
	if l, ok := leadStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

// CanMoveTo reports whether a drag from s to next is allowed.
// Won is terminal, lost can only be reopened, and won is reached
// through proposal acceptance rather than a plain move.
func (s LeadStatus) CanMoveTo(next LeadStatus) bool {
	if !next.Valid() || s == next {
		return false
	}
	switch s {
	case LeadWon:
		return false
	case LeadLost:
		return next == LeadNew
	}
	return next != LeadWon
}

// LeadOrigin tells where the lead came from.
type LeadOrigin string

const (
	OriginManual        LeadOrigin = "manual"
	OriginWeb           LeadOrigin = "web"
	OriginWebLife       LeadOrigin = "web_life"
	OriginWebConsortium LeadOrigin = "web_consortium"
)

// Lead is a sales prospect tracked through the pipeline.
type Lead struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	Email               string        `json:"email"`
	Phone               string        `json:"phone"`
	Status              LeadStatus    `json:"status"`
	Interest            ProductType   `json:"interest"`
	Value               float64       `json:"value"`
	Score               int           `json:"score"`
	LastInteraction     string        `json:"lastInteraction,omitempty"`
	Notes               string        `json:"notes,omitempty"`
	NextBestAction      string        `json:"nextBestAction,omitempty"`
	Tags                []string      `json:"tags,omitempty"`
	Origin              LeadOrigin    `json:"origin,omitempty"`
	RoutingReason       string        `json:"routingReason,omitempty"`
	TaxID               string        `json:"cpf,omitempty"`
	VehicleModel        string        `json:"vehicleModel,omitempty"`
	Contemplated        bool          `json:"contemplated"`
	PreCalculatedQuotes []QuoteResult `json:"preCalculatedQuotes,omitempty"`
	AIDraftMessage      string        `json:"aiDraftMessage,omitempty"`
	ReadyToPropose      bool          `json:"readyToPropose"`
	AcceptedQuoteID     string        `json:"acceptedQuoteId,omitempty"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// HasQuote reports whether quoteID is among the attached quotes.
func (l *Lead) HasQuote(quoteID string) bool {
	for _, q := range l.PreCalculatedQuotes {
		if q.ID == quoteID {
			return true
		}
	}
	return false
}

// RawLead is the payload posted by an external origin system (web form
// for life or consortium). Non-critical fields may be missing.
type RawLead struct {
	Name       string      `json:"name"`
	Email      string      `json:"email,omitempty"`
	Phone      string      `json:"phone,omitempty"`
	Age        *int        `json:"age,omitempty"`
	Product    ProductType `json:"product"`
	InputValue float64     `json:"inputValue,omitempty"`
	Origin     LeadOrigin  `json:"origin,omitempty"`
}

// CreateLeadRequest is the body for manual lead entry.
type CreateLeadRequest struct {
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Phone        string      `json:"phone"`
	Interest     ProductType `json:"interest"`
	Value        float64     `json:"value"`
	Notes        string      `json:"notes,omitempty"`
	TaxID        string      `json:"cpf,omitempty"`
	VehicleModel string      `json:"vehicleModel,omitempty"`
	Contemplated bool        `json:"contemplated"`
}

// MoveLeadRequest is the body of a kanban move.
type MoveLeadRequest struct {
	Status LeadStatus `json:"status"`
}

// AcceptProposalRequest marks a lead as won with the chosen quote.
type AcceptProposalRequest struct {
	QuoteID string `json:"quoteId"`
}
