package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-analyze/charts"
	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/claimspro/internal/models"
)

// ErrNothingToChart is returned when there is no data to plot.
var ErrNothingToChart = errors.New("nothing to chart")

// GenerateStatusChart creates a pie chart of claim counts per status.
// Returns PNG image as bytes.
func GenerateStatusChart(claims []models.Claim) ([]byte, error) {
	if len(claims) == 0 {
		return nil, ErrNothingToChart
	}

	counts := make(map[models.ClaimStatus]int)
	for i := range claims {
		counts[claims[i].Status]++
	}

	// Fixed status order keeps legend colours stable between renders.
	var values []float64
	var names []string
	for _, status := range models.ClaimStatuses {
		if n := counts[status]; n > 0 {
			names = append(names, string(status))
			values = append(values, float64(n))
		}
	}

	return renderPie(values, names, "Claims by Status")
}

// GenerateClaimedChart creates a pie chart of inc-GST amounts claimed per contract.
func GenerateClaimedChart(contracts []models.Contract, claims []models.Claim) ([]byte, error) {
	totals := aggregateByContract(claims)

	var values []float64
	var names []string
	for i := range contracts {
		total, ok := totals[contracts[i].ID]
		if !ok || !total.IsPositive() {
			continue
		}
		names = append(names, contracts[i].Name)
		values = append(values, total.InexactFloat64())
	}
	if len(values) == 0 {
		return nil, ErrNothingToChart
	}

	return renderPie(values, names, "Claimed by Contract (Inc GST)")
}

func renderPie(values []float64, names []string, title string) ([]byte, error) {
	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{
			Text: title,
		}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	return buf, nil
}

// aggregateByContract sums claimed inc-GST per contract id.
func aggregateByContract(claims []models.Claim) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for i := range claims {
		id := claims[i].ContractID
		totals[id] = totals[id].Add(claims[i].Totals.IncGST)
	}
	return totals
}

// ChartFilename creates a filename like "chart_status_2026-04-15.png".
func ChartFilename(kind string, now time.Time) string {
	return fmt.Sprintf("chart_%s_%s.png", kind, now.Format(dateLayout))
}
