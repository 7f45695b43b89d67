// Package models defines the domain entities for progress-claims management.
package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultGSTRate is applied to new contracts and settings when nothing else is configured.
var DefaultGSTRate = decimal.NewFromFloat(0.1)

// GSTRateScale is the number of decimal places a GST rate is stored with,
// so 12.25% is representable but 12.345% is not.
const GSTRateScale = 4

// CheckGSTRate reports whether rate is a fraction in [0,1] that can be stored
// without rounding.
func CheckGSTRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("GST rate must be between 0 and 1")
	}
	if !rate.Equal(rate.Truncate(GSTRateScale)) {
		return errors.New("GST rate can have at most two decimal places as a percentage")
	}
	return nil
}

// MaxDescriptionLength is the maximum allowed length for line item descriptions.
const MaxDescriptionLength = 200

// ClientInfo identifies the party a contract is billed to.
type ClientInfo struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// LineItem is one billable scope element, either a contract template item or a live claim item.
// ThisClaim is always derived from the other amounts.
type LineItem struct {
	ID              string          `json:"id"`
	Description     string          `json:"description"`
	ContractValue   decimal.Decimal `json:"contractValue"`
	PercentComplete decimal.Decimal `json:"percentComplete"`
	PreviousClaim   decimal.Decimal `json:"previousClaim"`
	ThisClaim       decimal.Decimal `json:"thisClaim"`
}

// Contract is a construction project with a fixed value against which progress is claimed.
type Contract struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	ABN           string          `json:"abn"`
	ClientInfo    ClientInfo      `json:"clientInfo"`
	ContractValue decimal.Decimal `json:"contractValue"`
	GSTRate       decimal.Decimal `json:"gstRate"`
	TemplateItems []LineItem      `json:"templateItems"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Totals are the aggregate amounts of a claim.
type Totals struct {
	ExGST  decimal.Decimal `json:"exGst"`
	GST    decimal.Decimal `json:"gst"`
	IncGST decimal.Decimal `json:"incGst"`
}

// ChangeEntry is one append-only record in a claim's changelog.
// OldValue and NewValue are opaque to the system.
type ChangeEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	FieldChanged string    `json:"fieldChanged"`
	OldValue     any       `json:"oldValue"`
	NewValue     any       `json:"newValue"`
}

// Claim is a periodic request for payment against a contract.
// Attachments are owned by the claim but stored and fetched separately.
type Claim struct {
	ID         string        `json:"id"`
	ContractID string        `json:"contractId"`
	Number     int           `json:"number"`
	Date       time.Time     `json:"date"`
	Status     ClaimStatus   `json:"status"`
	Items      []LineItem    `json:"items"`
	Totals     Totals        `json:"totals"`
	Changelog  []ChangeEntry `json:"changelog"`
}

// Attachment is a supporting file on a claim.
type Attachment struct {
	ID        string    `json:"id"`
	ClaimID   string    `json:"claimId"`
	FileName  string    `json:"fileName"`
	MIMEType  string    `json:"mimeType"`
	Size      int64     `json:"size"`
	Content   []byte    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// Settings is the process-wide singleton holding company details and the admin credential.
type Settings struct {
	CompanyName       string          `json:"companyName"`
	CompanyABN        string          `json:"companyAbn"`
	DefaultGSTRate    decimal.Decimal `json:"defaultGstRate"`
	AdminPasswordHash string          `json:"adminPasswordHash"`
	SessionTimeout    time.Duration   `json:"sessionTimeout"`
}

// CloneItems returns a deep copy of items so callers can mutate the result freely.
func CloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

// Document is a rendered claim document ready to be sent to the user.
type Document struct {
	FileName string
	MIMEType string
	Content  []byte
}
