//go:build ignore
// +build ignore

package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/claimspro/internal/models"
	"gitlab.com/yelinaung/claimspro/internal/report"
)

func main() {
	contracts := []models.Contract{
		{ID: "c1", Name: "Riverside Apartments"},
		{ID: "c2", Name: "Harbour View"},
	}
	claims := []models.Claim{
		{ContractID: "c1", Number: 1, Status: models.StatusPaid, Totals: models.Totals{IncGST: decimal.NewFromInt(44000)}},
		{ContractID: "c1", Number: 2, Status: models.StatusInvoiced, Totals: models.Totals{IncGST: decimal.NewFromInt(27500)}},
		{ContractID: "c1", Number: 3, Status: models.StatusDraft, Totals: models.Totals{IncGST: decimal.NewFromInt(11000)}},
		{ContractID: "c2", Number: 1, Status: models.StatusApproved, Totals: models.Totals{IncGST: decimal.NewFromInt(38500)}},
		{ContractID: "c2", Number: 2, Status: models.StatusForAssessment, Totals: models.Totals{IncGST: decimal.NewFromInt(16500)}},
	}

	statusChart, err := report.GenerateStatusChart(claims)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	claimedChart, err := report.GenerateClaimedChart(contracts, claims)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile("status.png", statusChart, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile("claimed.png", claimedChart, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ Created status.png and claimed.png - sample claim charts")
}
