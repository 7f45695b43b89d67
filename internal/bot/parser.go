package bot

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/claimspro/internal/claims"
	"gitlab.com/yelinaung/claimspro/internal/models"
)

const inputDateLayout = "2006-01-02"

var (
	errMissingArgs = errors.New("missing arguments")

	hundred = decimal.NewFromInt(100)

	// amountRegex matches amounts like "5", "5.50", "$25,000" or "1,234.5".
	amountRegex = regexp.MustCompile(`^\$?(\d{1,3}(?:,\d{3})+|\d+)(?:\.(\d{1,2}))?$`)
)

// ParseAmount parses a non-negative dollar amount, allowing a leading "$"
// and thousands separators.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	m := amountRegex.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}

	num := strings.ReplaceAll(m[1], ",", "")
	if m[2] != "" {
		num += "." + m[2]
	}
	return decimal.NewFromString(num)
}

// ParsePercent parses a percentage such as "75", "75%" or "62.5".
// Range checking is left to the calculation rules.
func ParsePercent(s string) (decimal.Decimal, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid percentage %q", s)
	}
	return d, nil
}

// ParseGSTRate accepts a fraction ("0.1") or a percentage ("10" or "10%").
func ParseGSTRate(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	isPercent := strings.HasSuffix(s, "%")
	d, err := decimal.NewFromString(strings.TrimSuffix(s, "%"))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid GST rate %q", s)
	}
	if isPercent || d.GreaterThan(decimal.NewFromInt(1)) {
		d = d.Div(hundred)
	}
	return d, nil
}

// parseIndex parses a 1-based list position and returns it unchanged.
func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return n, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(inputDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseContractArgs parses
//
//	Name | value | client [| abn [| email [| phone [| gst]]]]
func ParseContractArgs(args string) (claims.ContractInput, error) {
	parts := strings.Split(args, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 3 || parts[0] == "" || parts[2] == "" {
		return claims.ContractInput{}, errMissingArgs
	}

	value, err := ParseAmount(parts[1])
	if err != nil {
		return claims.ContractInput{}, err
	}

	in := claims.ContractInput{
		Name:          parts[0],
		ContractValue: value,
		Client:        models.ClientInfo{Name: parts[2]},
	}
	if len(parts) > 3 {
		in.ABN = parts[3]
	}
	if len(parts) > 4 {
		in.Client.Email = parts[4]
	}
	if len(parts) > 5 {
		in.Client.Phone = parts[5]
	}
	if len(parts) > 6 && parts[6] != "" {
		rate, err := ParseGSTRate(parts[6])
		if err != nil {
			return claims.ContractInput{}, err
		}
		in.GSTRate = &rate
	}
	return in, nil
}

// ParseItemArgs parses "<value> <description>".
func ParseItemArgs(args string) (decimal.Decimal, string, error) {
	valueStr, description, ok := strings.Cut(strings.TrimSpace(args), " ")
	description = strings.TrimSpace(description)
	if !ok || description == "" {
		return decimal.Zero, "", errMissingArgs
	}

	value, err := ParseAmount(valueStr)
	if err != nil {
		return decimal.Zero, "", err
	}
	return value, description, nil
}
