package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/claimspro/internal/models"
)

const (
	documentMIMEType = "text/plain; charset=utf-8"
	displayDate      = "02 Jan 2006"
	paymentTermDays  = 30
)

var hundred = decimal.NewFromInt(100)

// Renderer produces plain-text assessment and invoice documents.
type Renderer struct {
	now func() time.Time
}

// NewRenderer creates a Renderer. A nil clock defaults to time.Now.
func NewRenderer(now func() time.Time) *Renderer {
	if now == nil {
		now = time.Now
	}
	return &Renderer{now: now}
}

// RenderAssessment lays out a claim for review by the client's assessor.
func (r *Renderer) RenderAssessment(
	contract models.Contract,
	claim models.Claim,
	_ models.Settings,
) (models.Document, error) {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, "PROGRESS CLAIM ASSESSMENT")
	fmt.Fprintln(&buf)
	fmt.Fprintf(&buf, "Claim #%03d\n", claim.Number)
	fmt.Fprintf(&buf, "Date: %s\n", claim.Date.Format(displayDate))
	fmt.Fprintf(&buf, "Status: %s\n", claim.Status)
	fmt.Fprintln(&buf)
	fmt.Fprintln(&buf, "Contract Information")
	fmt.Fprintf(&buf, "Project: %s\n", contract.Name)
	fmt.Fprintf(&buf, "Client: %s\n", contract.ClientInfo.Name)
	fmt.Fprintf(&buf, "Contract Value: %s\n", FormatMoney(contract.ContractValue))
	fmt.Fprintln(&buf)

	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tDescription\tContract Value\t% Complete\tPrevious Claims\tThis Claim\t")
	for i, item := range claim.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s%%\t%s\t%s\t\n",
			i+1,
			item.Description,
			FormatMoney(item.ContractValue),
			item.PercentComplete.String(),
			FormatMoney(item.PreviousClaim),
			FormatMoney(item.ThisClaim),
		)
	}
	if err := tw.Flush(); err != nil {
		return models.Document{}, fmt.Errorf("failed to write items table: %w", err)
	}

	fmt.Fprintln(&buf)
	fmt.Fprintf(&buf, "Subtotal (Ex GST): %s\n", FormatMoney(claim.Totals.ExGST))
	fmt.Fprintf(&buf, "GST: %s\n", FormatMoney(claim.Totals.GST))
	fmt.Fprintf(&buf, "Total (Inc GST): %s\n", FormatMoney(claim.Totals.IncGST))
	fmt.Fprintln(&buf)
	fmt.Fprintf(&buf, "Generated on %s\n", r.now().Format("02 Jan 2006 15:04"))

	return models.Document{
		FileName: fmt.Sprintf("Assessment_Claim_%03d.txt", claim.Number),
		MIMEType: documentMIMEType,
		Content:  buf.Bytes(),
	}, nil
}

// RenderInvoice lays out a tax invoice for a claim, billed from the company in settings.
func (r *Renderer) RenderInvoice(
	contract models.Contract,
	claim models.Claim,
	settings models.Settings,
) (models.Document, error) {
	var buf bytes.Buffer
	issued := r.now()

	company := settings.CompanyName
	if company == "" {
		company = "[Your Company Name]"
	}
	abn := settings.CompanyABN
	if abn == "" {
		abn = contract.ABN
	}
	if abn == "" {
		abn = "[ABN]"
	}

	fmt.Fprintln(&buf, "INVOICE")
	fmt.Fprintln(&buf)
	fmt.Fprintf(&buf, "Invoice #: INV-%03d\n", claim.Number)
	fmt.Fprintf(&buf, "Date: %s\n", issued.Format(displayDate))
	fmt.Fprintf(&buf, "Due Date: %s\n", issued.AddDate(0, 0, paymentTermDays).Format(displayDate))
	fmt.Fprintln(&buf)
	fmt.Fprintln(&buf, "From:")
	fmt.Fprintln(&buf, company)
	fmt.Fprintf(&buf, "ABN: %s\n", abn)
	fmt.Fprintln(&buf)
	fmt.Fprintln(&buf, "Bill To:")
	fmt.Fprintln(&buf, contract.ClientInfo.Name)
	if contract.ClientInfo.Email != "" {
		fmt.Fprintln(&buf, contract.ClientInfo.Email)
	}
	if contract.ClientInfo.Phone != "" {
		fmt.Fprintln(&buf, contract.ClientInfo.Phone)
	}
	fmt.Fprintln(&buf)
	fmt.Fprintf(&buf, "Re: %s\n", contract.Name)
	fmt.Fprintf(&buf, "Progress Claim #%d\n", claim.Number)
	fmt.Fprintln(&buf)

	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tDescription\tContract Value\t% Complete\tAmount\t")
	for i, item := range claim.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s%%\t%s\t\n",
			i+1,
			item.Description,
			FormatMoney(item.ContractValue),
			item.PercentComplete.String(),
			FormatMoney(item.ThisClaim),
		)
	}
	if err := tw.Flush(); err != nil {
		return models.Document{}, fmt.Errorf("failed to write items table: %w", err)
	}

	fmt.Fprintln(&buf)
	fmt.Fprintf(&buf, "Subtotal: %s\n", FormatMoney(claim.Totals.ExGST))
	fmt.Fprintf(&buf, "GST (%s%%): %s\n", contract.GSTRate.Mul(hundred).String(), FormatMoney(claim.Totals.GST))
	fmt.Fprintf(&buf, "TOTAL: %s\n", FormatMoney(claim.Totals.IncGST))
	fmt.Fprintln(&buf)
	fmt.Fprintf(&buf, "Payment Terms: Net %d days\n", paymentTermDays)
	fmt.Fprintln(&buf, "Please remit payment to the above address.")

	return models.Document{
		FileName: fmt.Sprintf("Invoice_Claim_%03d.txt", claim.Number),
		MIMEType: documentMIMEType,
		Content:  buf.Bytes(),
	}, nil
}

// FormatMoney renders d as dollars with thousands separators, e.g. "$25,000.00".
func FormatMoney(d decimal.Decimal) string {
	d = d.Round(2)
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
