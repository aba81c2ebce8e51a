package core

import (
	"errors"
	"strings"
	"time"
)

// Document types. A devis (quote) and a facture (invoice) share the same
// totals model and only differ in numbering prefix and lifecycle.
const (
	Devis   DocumentType = "devis"
	Facture DocumentType = "facture"
)

// Document statuses. The set is closed for business logic, but aggregation
// must tolerate unknown values (they group under their literal string).
const (
	StatusDraft    DocumentStatus = "brouillon"
	StatusSent     DocumentStatus = "envoye"
	StatusViewed   DocumentStatus = "vu"
	StatusAccepted DocumentStatus = "accepte"
	StatusSigned   DocumentStatus = "signe"
	StatusInvoiced DocumentStatus = "facture"
	StatusRefused  DocumentStatus = "refuse"
	StatusPaid     DocumentStatus = "payee"
)

// Project statuses.
const (
	ProjectProspect  ProjectStatus = "prospect"
	ProjectActive    ProjectStatus = "en_cours"
	ProjectCompleted ProjectStatus = "termine"
	ProjectOnHold    ProjectStatus = "en_attente"
)

type (
	DocumentType   string
	DocumentStatus string
	ProjectStatus  string

	// LineItem is a single priced line inside a document section.
	// UnitPrice and PurchaseUnitCost are HT amounts in cents. A nil VATRate
	// means the document default applies.
	LineItem struct {
		Designation      string   `json:"designation"`
		Quantity         float64  `json:"quantity"`
		UnitPrice        Money    `json:"unit_price"`
		PurchaseUnitCost Money    `json:"purchase_unit_cost"`
		VATRate          *float64 `json:"vat_rate,omitempty"`
	}

	// Section groups line items under an optional title.
	Section struct {
		Title string     `json:"title"`
		Lines []LineItem `json:"lines"`
	}

	// Document is a devis or facture. Totals are owned by ComputeTotals and
	// recomputed on every change; they are never hand-edited.
	Document struct {
		ID                 string         `json:"id"`
		Type               DocumentType   `json:"type"`
		Numero             string         `json:"numero"`
		ClientID           string         `json:"client_id"`
		ProjectID          string         `json:"project_id"`
		Status             DocumentStatus `json:"status"`
		Date               time.Time      `json:"date"`
		Sections           []Section      `json:"sections"`
		VATDefault         float64        `json:"vat_default"`
		DiscountPct        float64        `json:"discount_pct"`
		RetentionGuarantee bool           `json:"retention_guarantee"`
		Micro              bool           `json:"micro"`
		Totals             Totals         `json:"totals"`
	}

	// Expense is a dated business expense, optionally linked to a project.
	Expense struct {
		ID        string    `json:"id"`
		Date      time.Time `json:"date"`
		Amount    Money     `json:"amount"`
		Category  string    `json:"category"`
		ProjectID string    `json:"project_id"`
	}

	// Payment is money actually received.
	Payment struct {
		ID     string    `json:"id"`
		Date   time.Time `json:"date"`
		Amount Money     `json:"amount"`
	}

	// Project is a chantier (job site).
	Project struct {
		ID             string        `json:"id"`
		Name           string        `json:"name"`
		ClientID       string        `json:"client_id"`
		Status         ProjectStatus `json:"status"`
		BudgetEstimate Money         `json:"budget_estimate"`
		Completion     float64       `json:"completion"`
	}

	Client struct {
		ID        string `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrUnknownDocument = errors.New("unknown document")
)

// DisplayName joins the client name fields for ranking output.
func (c Client) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// IsAccepted reports whether the status counts toward revenue: the document
// has been accepted, signed or paid.
func (s DocumentStatus) IsAccepted() bool {
	switch s {
	case StatusAccepted, StatusSigned, StatusPaid:
		return true
	}
	return false
}

// IsPending reports whether the document is awaiting a client decision.
func (s DocumentStatus) IsPending() bool {
	return s == StatusSent || s == StatusViewed
}

// IsSentOut reports whether the document left the draft stage. Drafts are
// deliberately excluded so conversion rates are computed against documents
// the client actually received.
func (s DocumentStatus) IsSentOut() bool {
	switch s {
	case StatusSent, StatusViewed, StatusAccepted, StatusSigned, StatusPaid, StatusRefused, StatusInvoiced:
		return true
	}
	return false
}

// EffectiveVATRate returns the line's rate, falling back to the document
// default when no override is set.
func (l LineItem) EffectiveVATRate(documentDefault float64) float64 {
	if l.VATRate != nil {
		return num(*l.VATRate)
	}
	return num(documentDefault)
}

func (d Document) Validate() error {
	if d.Type != Devis && d.Type != Facture {
		return errors.New("invalid document type")
	}
	if d.Date.IsZero() {
		return ErrInvalidDate
	}
	if d.DiscountPct < 0 || d.DiscountPct > 100 {
		return errors.New("discount must be between 0 and 100")
	}
	for _, s := range d.Sections {
		for _, l := range s.Lines {
			if l.Quantity < 0 {
				return errors.New("negative quantity")
			}
			if l.UnitPrice.Cents < 0 || l.PurchaseUnitCost.Cents < 0 {
				return ErrInvalidAmount
			}
		}
	}
	return nil
}

func (e Expense) Validate() error {
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if e.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (p Payment) Validate() error {
	if p.Date.IsZero() {
		return ErrInvalidDate
	}
	if p.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
