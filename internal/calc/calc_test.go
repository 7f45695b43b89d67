package calc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/claimspro/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "expected %s, got %s", want, got.String())
}

func TestComputeThisClaim(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		item models.LineItem
		want string
	}{
		{
			name: "first claim at 25 percent",
			item: models.LineItem{ContractValue: dec("100000"), PercentComplete: dec("25")},
			want: "25000",
		},
		{
			name: "subtracts previous claim",
			item: models.LineItem{ContractValue: dec("100000"), PercentComplete: dec("60"), PreviousClaim: dec("25000")},
			want: "35000",
		},
		{
			name: "clamps regression to zero",
			item: models.LineItem{ContractValue: dec("1000"), PercentComplete: dec("10"), PreviousClaim: dec("400")},
			want: "0",
		},
		{
			name: "rounds half up at the cent",
			item: models.LineItem{ContractValue: dec("0.25"), PercentComplete: dec("50")},
			want: "0.13",
		},
		{
			name: "fractional percent",
			item: models.LineItem{ContractValue: dec("3333.33"), PercentComplete: dec("33.3")},
			want: "1110",
		},
		{
			name: "zero percent",
			item: models.LineItem{ContractValue: dec("5000")},
			want: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			requireDecimal(t, tt.want, ComputeThisClaim(tt.item))
		})
	}
}

func TestComputeClaimTotals(t *testing.T) {
	t.Parallel()

	t.Run("single item with ten percent GST", func(t *testing.T) {
		t.Parallel()
		totals := ComputeClaimTotals([]models.LineItem{{ThisClaim: dec("25000")}}, dec("0.1"))
		requireDecimal(t, "25000", totals.ExGST)
		requireDecimal(t, "2500", totals.GST)
		requireDecimal(t, "27500", totals.IncGST)
	})

	t.Run("GST is derived from rounded ex GST", func(t *testing.T) {
		t.Parallel()
		items := []models.LineItem{{ThisClaim: dec("10.005")}, {ThisClaim: dec("10.005")}}
		totals := ComputeClaimTotals(items, dec("0.15"))
		requireDecimal(t, "20.01", totals.ExGST)
		// 20.01 * 0.15 = 3.0015
		requireDecimal(t, "3", totals.GST)
		requireDecimal(t, "23.01", totals.IncGST)
	})

	t.Run("empty items", func(t *testing.T) {
		t.Parallel()
		totals := ComputeClaimTotals(nil, dec("0.1"))
		require.True(t, totals.ExGST.IsZero())
		require.True(t, totals.GST.IsZero())
		require.True(t, totals.IncGST.IsZero())
	})

	t.Run("zero rate", func(t *testing.T) {
		t.Parallel()
		totals := ComputeClaimTotals([]models.LineItem{{ThisClaim: dec("999.99")}}, decimal.Zero)
		requireDecimal(t, "999.99", totals.IncGST)
		require.True(t, totals.GST.IsZero())
	})
}

func TestRecalculateItems(t *testing.T) {
	t.Parallel()

	items := []models.LineItem{
		{ID: "a", ContractValue: dec("1000"), PercentComplete: dec("40"), ThisClaim: dec("1")},
		{ID: "b", ContractValue: dec("2000"), PercentComplete: dec("50"), PreviousClaim: dec("500")},
	}

	got := RecalculateItems(items)

	require.Len(t, got, 2)
	requireDecimal(t, "400", got[0].ThisClaim)
	requireDecimal(t, "500", got[1].ThisClaim)
	require.Equal(t, "a", got[0].ID)

	requireDecimal(t, "1", items[0].ThisClaim)
	require.True(t, items[1].ThisClaim.IsZero())
}

func TestValidatePercentComplete(t *testing.T) {
	t.Parallel()

	t.Run("above range is invalid", func(t *testing.T) {
		t.Parallel()
		v := ValidatePercentComplete(dec("150"), dec("50"))
		require.False(t, v.Valid)
		require.NotEmpty(t, v.Warning)
	})

	t.Run("negative is invalid", func(t *testing.T) {
		t.Parallel()
		v := ValidatePercentComplete(dec("-1"), decimal.Zero)
		require.False(t, v.Valid)
	})

	t.Run("regression is valid with warning", func(t *testing.T) {
		t.Parallel()
		v := ValidatePercentComplete(dec("30"), dec("50"))
		require.True(t, v.Valid)
		require.Contains(t, v.Warning, "decreased")
	})

	t.Run("progress is valid without warning", func(t *testing.T) {
		t.Parallel()
		v := ValidatePercentComplete(dec("80"), dec("50"))
		require.True(t, v.Valid)
		require.Empty(t, v.Warning)
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		t.Parallel()
		require.True(t, ValidatePercentComplete(decimal.Zero, decimal.Zero).Valid)
		require.True(t, ValidatePercentComplete(dec("100"), dec("100")).Valid)
	})
}

func TestComputeContractProgress(t *testing.T) {
	t.Parallel()

	t.Run("partial progress", func(t *testing.T) {
		t.Parallel()
		items := []models.LineItem{
			{ContractValue: dec("60000"), PreviousClaim: dec("10000"), ThisClaim: dec("5000")},
			{ContractValue: dec("30000"), ThisClaim: dec("5000")},
		}
		p := ComputeContractProgress(items)
		requireDecimal(t, "90000", p.TotalValue)
		requireDecimal(t, "20000", p.TotalClaimed)
		requireDecimal(t, "22.2", p.ProgressPercentage)
	})

	t.Run("zero value yields zero percent", func(t *testing.T) {
		t.Parallel()
		p := ComputeContractProgress([]models.LineItem{{ThisClaim: dec("10")}})
		require.True(t, p.ProgressPercentage.IsZero())
		requireDecimal(t, "10", p.TotalClaimed)
	})
}

func TestSanityCheck(t *testing.T) {
	t.Parallel()

	t.Run("healthy claim has no warnings", func(t *testing.T) {
		t.Parallel()
		claim := models.Claim{
			Items:  []models.LineItem{{ContractValue: dec("100000"), PercentComplete: dec("25"), ThisClaim: dec("25000")}},
			Totals: models.Totals{ExGST: dec("25000"), GST: dec("2500"), IncGST: dec("27500")},
		}
		require.Empty(t, SanityCheck(claim, dec("100000")))
	})

	t.Run("small claim", func(t *testing.T) {
		t.Parallel()
		claim := models.Claim{Totals: models.Totals{IncGST: dec("99.99")}}
		warnings := SanityCheck(claim, dec("1000"))
		require.Len(t, warnings, 1)
		require.Contains(t, warnings[0], "unusually small")
	})

	t.Run("out of range percent", func(t *testing.T) {
		t.Parallel()
		claim := models.Claim{
			Items:  []models.LineItem{{Description: "Roof", PercentComplete: dec("120")}},
			Totals: models.Totals{IncGST: dec("1000")},
		}
		warnings := SanityCheck(claim, dec("100000"))
		require.Len(t, warnings, 1)
		require.Contains(t, warnings[0], "Roof")
	})

	t.Run("over budget by more than ten percent", func(t *testing.T) {
		t.Parallel()
		claim := models.Claim{
			Items:  []models.LineItem{{PercentComplete: dec("100"), PreviousClaim: dec("100000"), ThisClaim: dec("10001")}},
			Totals: models.Totals{IncGST: dec("11001.10")},
		}
		warnings := SanityCheck(claim, dec("100000"))
		require.Len(t, warnings, 1)
		require.Contains(t, warnings[0], "exceeds contract value")
	})

	t.Run("exactly ten percent over is tolerated", func(t *testing.T) {
		t.Parallel()
		claim := models.Claim{
			Items:  []models.LineItem{{PercentComplete: dec("100"), PreviousClaim: dec("100000"), ThisClaim: dec("10000")}},
			Totals: models.Totals{IncGST: dec("11000")},
		}
		require.Empty(t, SanityCheck(claim, dec("100000")))
	})
}
