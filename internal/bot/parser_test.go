package bot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "100", want: "100"},
		{input: "5.5", want: "5.5"},
		{input: "5.50", want: "5.5"},
		{input: "$25000", want: "25000"},
		{input: "$25,000", want: "25000"},
		{input: "1,234,567.89", want: "1234567.89"},
		{input: "  42  ", want: "42"},
		{input: "0", want: "0"},
		{input: "-5", wantErr: true},
		{input: "5.555", wantErr: true},
		{input: "12,34", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got.String())
		})
	}
}

func TestParsePercent(t *testing.T) {
	t.Parallel()

	got, err := ParsePercent("75%")
	require.NoError(t, err)
	require.Equal(t, "75", got.String())

	got, err = ParsePercent("62.5")
	require.NoError(t, err)
	require.Equal(t, "62.5", got.String())

	got, err = ParsePercent("150")
	require.NoError(t, err, "range is checked by the calculation rules")
	require.Equal(t, "150", got.String())

	_, err = ParsePercent("lots")
	require.Error(t, err)
}

func TestParseGSTRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"0.1", "0.1"},
		{"10", "0.1"},
		{"10%", "0.1"},
		{"0", "0"},
		{"1", "1"},
		{"0.5%", "0.005"},
	}
	for _, tt := range tests {
		got, err := ParseGSTRate(tt.input)
		require.NoError(t, err, tt.input)
		require.Equal(t, tt.want, got.String(), tt.input)
	}

	_, err := ParseGSTRate("ten")
	require.Error(t, err)
}

func TestParseContractArgs(t *testing.T) {
	t.Parallel()

	t.Run("minimal", func(t *testing.T) {
		t.Parallel()
		in, err := ParseContractArgs("Riverside Apartments | $100,000 | Acme Developments")
		require.NoError(t, err)
		require.Equal(t, "Riverside Apartments", in.Name)
		require.Equal(t, "100000", in.ContractValue.String())
		require.Equal(t, "Acme Developments", in.Client.Name)
		require.Nil(t, in.GSTRate)
	})

	t.Run("all fields", func(t *testing.T) {
		t.Parallel()
		in, err := ParseContractArgs("Shed | 12000 | Bob | 12 345 678 901 | bob@example.com | 0400 000 000 | 15%")
		require.NoError(t, err)
		require.Equal(t, "12 345 678 901", in.ABN)
		require.Equal(t, "bob@example.com", in.Client.Email)
		require.Equal(t, "0400 000 000", in.Client.Phone)
		require.NotNil(t, in.GSTRate)
		require.Equal(t, "0.15", in.GSTRate.String())
	})

	t.Run("empty gst keeps default", func(t *testing.T) {
		t.Parallel()
		in, err := ParseContractArgs("Shed | 12000 | Bob | | | |")
		require.NoError(t, err)
		require.Nil(t, in.GSTRate)
	})

	t.Run("missing parts", func(t *testing.T) {
		t.Parallel()
		_, err := ParseContractArgs("Shed | 12000")
		require.ErrorIs(t, err, errMissingArgs)

		_, err = ParseContractArgs(" | 12000 | Bob")
		require.ErrorIs(t, err, errMissingArgs)
	})

	t.Run("bad value", func(t *testing.T) {
		t.Parallel()
		_, err := ParseContractArgs("Shed | lots | Bob")
		require.ErrorContains(t, err, "invalid amount")
	})
}

func TestParseItemArgs(t *testing.T) {
	t.Parallel()

	value, desc, err := ParseItemArgs("50000 Site works and excavation")
	require.NoError(t, err)
	require.Equal(t, "50000", value.String())
	require.Equal(t, "Site works and excavation", desc)

	_, _, err = ParseItemArgs("50000")
	require.ErrorIs(t, err, errMissingArgs)

	_, _, err = ParseItemArgs("Framing 5000")
	require.Error(t, err)
}

func TestParseIndexAndDate(t *testing.T) {
	t.Parallel()

	n, err := parseIndex("#3")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	_, err = parseIndex("0")
	require.Error(t, err)

	d, err := parseDate("2026-04-15")
	require.NoError(t, err)
	require.Equal(t, 15, d.Day())

	_, err = parseDate("15/04/2026")
	require.ErrorContains(t, err, "YYYY-MM-DD")
}
