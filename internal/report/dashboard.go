package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/claimspro/internal/calc"
	"gitlab.com/yelinaung/claimspro/internal/models"
)

const (
	recentClaimsLimit = 5
	monthlyWindow     = 6
)

// ContractSummary is the claimed-to-date position of one contract.
type ContractSummary struct {
	ContractID    string
	Name          string
	ContractValue decimal.Decimal
	TotalClaimed  decimal.Decimal
	Remaining     decimal.Decimal
	Progress      decimal.Decimal
	ClaimsCount   int
}

// MonthlyTotal aggregates claims dated within one calendar month.
type MonthlyTotal struct {
	Month  string // YYYY-MM
	Claims int
	Value  decimal.Decimal
}

// Stats is the portfolio overview shown on the dashboard.
type Stats struct {
	TotalContracts      int
	TotalContractValue  decimal.Decimal
	TotalClaims         int
	TotalClaimed        decimal.Decimal
	PendingClaims       int
	OverallProgress     decimal.Decimal
	AverageClaimValue   decimal.Decimal
	AverageContractSize decimal.Decimal
	CompletionRate      decimal.Decimal
	StatusBreakdown     map[models.ClaimStatus]int
	Monthly             []MonthlyTotal
	Contracts           []ContractSummary
	RecentClaims        []models.Claim
}

// ComputeStats summarizes all contracts and claims. Claimed amounts are inc-GST.
// Percentages are rounded to one decimal place, money to cents.
func ComputeStats(contracts []models.Contract, claims []models.Claim) Stats {
	stats := Stats{
		TotalContracts:  len(contracts),
		TotalClaims:     len(claims),
		StatusBreakdown: make(map[models.ClaimStatus]int),
	}

	for i := range contracts {
		stats.TotalContractValue = stats.TotalContractValue.Add(contracts[i].ContractValue)
	}
	for i := range claims {
		stats.TotalClaimed = stats.TotalClaimed.Add(claims[i].Totals.IncGST)
		stats.StatusBreakdown[claims[i].Status]++
		if claims[i].Status.IsPending() {
			stats.PendingClaims++
		}
	}

	stats.OverallProgress = percentOf(stats.TotalClaimed, stats.TotalContractValue)
	if stats.TotalClaims > 0 {
		stats.AverageClaimValue = calc.RoundCents(stats.TotalClaimed.Div(decimal.NewFromInt(int64(stats.TotalClaims))))
	}
	if stats.TotalContracts > 0 {
		stats.AverageContractSize = calc.RoundCents(
			stats.TotalContractValue.Div(decimal.NewFromInt(int64(stats.TotalContracts))),
		)
	}

	stats.Contracts = contractSummaries(contracts, claims)
	completed := 0
	for _, c := range stats.Contracts {
		if c.Progress.GreaterThanOrEqual(hundred) {
			completed++
		}
	}
	if stats.TotalContracts > 0 {
		stats.CompletionRate = decimal.NewFromInt(int64(completed)).
			Mul(hundred).
			Div(decimal.NewFromInt(int64(stats.TotalContracts))).
			Round(1)
	}

	stats.Monthly = monthlyTotals(claims)
	stats.RecentClaims = recentClaims(claims)
	return stats
}

func contractSummaries(contracts []models.Contract, claims []models.Claim) []ContractSummary {
	claimed := aggregateByContract(claims)
	counts := make(map[string]int)
	for i := range claims {
		counts[claims[i].ContractID]++
	}

	out := make([]ContractSummary, 0, len(contracts))
	for i := range contracts {
		c := contracts[i]
		total := claimed[c.ID]
		out = append(out, ContractSummary{
			ContractID:    c.ID,
			Name:          c.Name,
			ContractValue: c.ContractValue,
			TotalClaimed:  total,
			Remaining:     c.ContractValue.Sub(total),
			Progress:      percentOf(total, c.ContractValue),
			ClaimsCount:   counts[c.ID],
		})
	}
	return out
}

// monthlyTotals groups claims by YYYY-MM and keeps the latest months only.
func monthlyTotals(claims []models.Claim) []MonthlyTotal {
	byMonth := make(map[string]*MonthlyTotal)
	for i := range claims {
		key := claims[i].Date.Format("2006-01")
		m, ok := byMonth[key]
		if !ok {
			m = &MonthlyTotal{Month: key}
			byMonth[key] = m
		}
		m.Claims++
		m.Value = m.Value.Add(claims[i].Totals.IncGST)
	}

	out := make([]MonthlyTotal, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	if len(out) > monthlyWindow {
		out = out[len(out)-monthlyWindow:]
	}
	return out
}

// recentClaims returns the newest claims by date, ties broken by higher number.
func recentClaims(claims []models.Claim) []models.Claim {
	sorted := make([]models.Claim, len(claims))
	copy(sorted, claims)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.After(sorted[j].Date)
		}
		return sorted[i].Number > sorted[j].Number
	})
	if len(sorted) > recentClaimsLimit {
		sorted = sorted[:recentClaimsLimit]
	}
	return sorted
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole).Round(1)
}
