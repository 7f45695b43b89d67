// Package calc holds the pure arithmetic for claim line items and totals.
// Nothing here performs I/O or returns errors: out-of-range inputs are clamped or defaulted.
package calc

import (
	"fmt"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/claimspro/internal/models"
)

var (
	hundred         = decimal.NewFromInt(100)
	minimumClaim    = decimal.NewFromInt(100)
	overBudgetRatio = decimal.NewFromFloat(1.1)
)

// RoundCents rounds d to 2 decimal places, half away from zero.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ComputeThisClaim returns the amount claimable for item this period:
// max(0, contractValue * percentComplete/100 - previousClaim), rounded to cents.
func ComputeThisClaim(item models.LineItem) decimal.Decimal {
	earned := item.ContractValue.Mul(item.PercentComplete).Div(hundred)
	diff := earned.Sub(item.PreviousClaim)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return RoundCents(diff)
}

// ComputeClaimTotals aggregates items into ex-GST, GST and inc-GST totals.
// GST is derived from the rounded ex-GST sum, and inc-GST from the two rounded parts.
func ComputeClaimTotals(items []models.LineItem, gstRate decimal.Decimal) models.Totals {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.ThisClaim)
	}

	exGST := RoundCents(sum)
	gst := RoundCents(exGST.Mul(gstRate))
	return models.Totals{
		ExGST:  exGST,
		GST:    gst,
		IncGST: RoundCents(exGST.Add(gst)),
	}
}

// RecalculateItems returns a copy of items with ThisClaim recomputed on each.
// The input slice is left untouched.
func RecalculateItems(items []models.LineItem) []models.LineItem {
	out := make([]models.LineItem, len(items))
	for i, item := range items {
		item.ThisClaim = ComputeThisClaim(item)
		out[i] = item
	}
	return out
}

// Validation is the outcome of checking a percent-complete edit.
// Warning is set when the value is legal but suspicious.
type Validation struct {
	Valid   bool
	Warning string
}

// ValidatePercentComplete rejects values outside [0,100] and warns on regressions.
func ValidatePercentComplete(newValue, previousValue decimal.Decimal) Validation {
	if newValue.IsNegative() || newValue.GreaterThan(hundred) {
		return Validation{
			Valid:   false,
			Warning: fmt.Sprintf("percent complete must be between 0 and 100, got %s", newValue.String()),
		}
	}
	if newValue.LessThan(previousValue) {
		return Validation{
			Valid: true,
			Warning: fmt.Sprintf("percent complete decreased from %s%% to %s%%",
				previousValue.String(), newValue.String()),
		}
	}
	return Validation{Valid: true}
}

// Progress summarises how much of a contract's value has been claimed.
type Progress struct {
	TotalValue         decimal.Decimal
	TotalClaimed       decimal.Decimal
	ProgressPercentage decimal.Decimal
}

// ComputeContractProgress sums item values and amounts claimed to date.
// The percentage is rounded to one decimal place and is zero when there is no value.
func ComputeContractProgress(items []models.LineItem) Progress {
	totalValue := decimal.Zero
	totalClaimed := decimal.Zero
	for _, item := range items {
		totalValue = totalValue.Add(item.ContractValue)
		totalClaimed = totalClaimed.Add(item.PreviousClaim).Add(item.ThisClaim)
	}

	pct := decimal.Zero
	if !totalValue.IsZero() {
		pct = totalClaimed.Div(totalValue).Mul(hundred).Round(1)
	}

	return Progress{
		TotalValue:         RoundCents(totalValue),
		TotalClaimed:       RoundCents(totalClaimed),
		ProgressPercentage: pct,
	}
}

// SanityCheck returns advisory warnings about a claim. It never blocks anything.
func SanityCheck(claim models.Claim, contractValue decimal.Decimal) []string {
	var warnings []string

	if claim.Totals.IncGST.LessThan(minimumClaim) {
		warnings = append(warnings, fmt.Sprintf("Claim total $%s inc GST is unusually small",
			claim.Totals.IncGST.StringFixed(2)))
	}

	claimed := decimal.Zero
	for _, item := range claim.Items {
		if item.PercentComplete.IsNegative() || item.PercentComplete.GreaterThan(hundred) {
			warnings = append(warnings, fmt.Sprintf("Item %q has percent complete %s%% outside 0-100",
				item.Description, item.PercentComplete.String()))
		}
		claimed = claimed.Add(item.PreviousClaim).Add(item.ThisClaim)
	}

	if claimed.GreaterThan(contractValue.Mul(overBudgetRatio)) {
		warnings = append(warnings, fmt.Sprintf("Total claimed $%s exceeds contract value $%s by more than 10%%",
			claimed.StringFixed(2), contractValue.StringFixed(2)))
	}

	return warnings
}
