package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fptr(v float64) *float64 { return &v }

func record(asOf time.Time, periodType PeriodType) FundamentalRecord {
	return FundamentalRecord{
		Ticker:     "AAPL",
		AsOfDate:   asOf,
		PeriodType: periodType,
		ReportType: ReportBalanceSheet,
	}
}

func TestLatestAsOf(t *testing.T) {
	tests := []struct {
		name    string
		records []FundamentalRecord
		date    time.Time
		want    time.Time // AsOfDate of expected record; zero means nil
	}{
		{
			name: "most recent record wins",
			records: []FundamentalRecord{
				record(date(2023, 3, 31), PeriodQuarterly),
				record(date(2023, 6, 30), PeriodQuarterly),
				record(date(2023, 9, 30), PeriodQuarterly),
			},
			date: date(2023, 12, 31),
			want: date(2023, 9, 30),
		},
		{
			name: "record exactly on the date is included",
			records: []FundamentalRecord{
				record(date(2023, 3, 31), PeriodQuarterly),
				record(date(2023, 6, 30), PeriodQuarterly),
			},
			date: date(2023, 6, 30),
			want: date(2023, 6, 30),
		},
		{
			name: "record one day after is excluded",
			records: []FundamentalRecord{
				record(date(2023, 3, 31), PeriodQuarterly),
				record(date(2023, 7, 1), PeriodQuarterly),
			},
			date: date(2023, 6, 30),
			want: date(2023, 3, 31),
		},
		{
			name: "TTM duplicate of an older quarter is skipped",
			records: []FundamentalRecord{
				record(date(2023, 3, 31), PeriodTTM),
				record(date(2023, 6, 30), PeriodQuarterly),
			},
			date: date(2023, 12, 31),
			want: date(2023, 6, 30),
		},
		{
			name: "TTM kept when it is the most recent record",
			records: []FundamentalRecord{
				record(date(2023, 6, 30), PeriodQuarterly),
				record(date(2023, 9, 30), PeriodTTM),
			},
			date: date(2023, 12, 31),
			want: date(2023, 9, 30),
		},
		{
			name: "no record at or before the date",
			records: []FundamentalRecord{
				record(date(2024, 3, 31), PeriodQuarterly),
			},
			date: date(2023, 12, 31),
		},
		{
			name:    "empty input",
			records: nil,
			date:    date(2023, 12, 31),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LatestAsOf(tt.records, tt.date)
			if tt.want.IsZero() {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.AsOfDate)
		})
	}
}

func TestFundamentalRecord_OptionalFields(t *testing.T) {
	r := FundamentalRecord{
		TotalRevenue:  fptr(1000),
		CostOfRevenue: fptr(600),
	}

	revenue, ok := r.Revenue()
	assert.True(t, ok)
	assert.Equal(t, 1000.0, revenue)

	_, ok = r.SGA()
	assert.False(t, ok, "absent field must not default to zero silently")

	// Interest expense is the one field that defaults to zero when absent
	interest, reported := r.Interest()
	assert.False(t, reported)
	assert.Equal(t, 0.0, interest)
}

func TestModelResult_Years(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{"ten years", date(2014, 1, 1), date(2024, 1, 1), 10},
		{"five years", date(2019, 1, 1), date(2024, 1, 1), 5},
		{"six months rounds up to one", date(2023, 7, 1), date(2024, 1, 1), 1},
		{"one month floors at one", date(2023, 12, 1), date(2024, 1, 1), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ModelResult{StartDate: tt.start, EndDate: tt.end}
			assert.Equal(t, tt.want, r.Years())
		})
	}
}

func TestModelVariant_Factors(t *testing.T) {
	assert.Equal(t, 1, CAPM.NumFactors())
	assert.Equal(t, 3, ThreeFactor.NumFactors())
	assert.Equal(t, 4, FourFactor.NumFactors())
	assert.Equal(t, 5, FiveFactor.NumFactors())
	assert.Equal(t, 6, SixFactor.NumFactors())

	// Each family is a superset of the previous one
	assert.Subset(t, FourFactor.Factors(), ThreeFactor.Factors())
	assert.Subset(t, SixFactor.Factors(), FiveFactor.Factors())
	assert.Equal(t, FactorMarket, SixFactor.Factors()[0])
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("5")
	require.NoError(t, err)
	assert.Equal(t, FiveFactor, v)

	v, err = ParseVariant("CAPM")
	require.NoError(t, err)
	assert.Equal(t, CAPM, v)

	_, err = ParseVariant("seven")
	assert.Error(t, err)
}
