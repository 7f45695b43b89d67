// Package report renders claims data for people: CSV exports, charts,
// assessment and invoice documents, and dashboard statistics.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gitlab.com/yelinaung/claimspro/internal/models"
)

const dateLayout = "2006-01-02"

// GenerateClaimsCSV writes one row per claim of contract with its totals.
func GenerateClaimsCSV(contract models.Contract, claims []models.Claim) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"Contract", "Claim", "Date", "Status", "Ex GST", "GST", "Inc GST"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range claims {
		row := []string{
			contract.Name,
			strconv.Itoa(claims[i].Number),
			claims[i].Date.Format(dateLayout),
			string(claims[i].Status),
			claims[i].Totals.ExGST.StringFixed(2),
			claims[i].Totals.GST.StringFixed(2),
			claims[i].Totals.IncGST.StringFixed(2),
		}

		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// GenerateClaimItemsCSV writes the line items of a single claim.
func GenerateClaimItemsCSV(claim models.Claim) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"#", "Description", "Contract Value", "% Complete", "Previous Claims", "This Claim"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i, item := range claim.Items {
		row := []string{
			strconv.Itoa(i + 1),
			item.Description,
			item.ContractValue.StringFixed(2),
			item.PercentComplete.String(),
			item.PreviousClaim.StringFixed(2),
			item.ThisClaim.StringFixed(2),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ClaimsReportFilename names a contract's claims export, e.g. "claims_riverside_2026-04-15.csv".
func ClaimsReportFilename(contract models.Contract, now time.Time) string {
	return fmt.Sprintf("claims_%s_%s.csv", slug(contract.Name), now.Format(dateLayout))
}

// ClaimItemsFilename names a single claim's item export.
func ClaimItemsFilename(claim models.Claim) string {
	return fmt.Sprintf("claim_%03d_items.csv", claim.Number)
}

func slug(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "contract"
	}
	return s
}
