package contracts

import (
	"fmt"
	"time"
)

// MissingDataError reports that a ticker lacks price or fundamental data at a
// required date. Callers exclude the ticker from the cross-section; it is
// never fatal for a batch.
type MissingDataError struct {
	Ticker string
	What   string // "price", "fundamentals", ...
	Date   time.Time
}

func (e *MissingDataError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("missing %s data for %s", e.What, e.Ticker)
	}
	return fmt.Sprintf("missing %s data for %s at %s", e.What, e.Ticker, e.Date.Format("2006-01-02"))
}

// InsufficientDataError reports that too few observations remain for a model
// run. The affected model variant fails; other variants and tickers continue.
type InsufficientDataError struct {
	Reason       string
	Observations int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %s (%d observations)", e.Reason, e.Observations)
}

// InsufficientPortfolioSizeError reports a momentum formation month with
// fewer than the minimum number of ranked stocks. That month is skipped.
type InsufficientPortfolioSizeError struct {
	FormationDate time.Time
	Ranked        int
	Minimum       int
}

func (e *InsufficientPortfolioSizeError) Error() string {
	return fmt.Sprintf("only %d ranked stocks at %s, need %d",
		e.Ranked, e.FormationDate.Format("2006-01-02"), e.Minimum)
}

// RegressionDegenerateError reports a rank-deficient or under-determined
// regression. The model variant run fails and is reported, never silently
// substituted.
type RegressionDegenerateError struct {
	Reason       string
	Observations int
	Factors      int
}

func (e *RegressionDegenerateError) Error() string {
	return fmt.Sprintf("degenerate regression: %s (n=%d, k=%d)", e.Reason, e.Observations, e.Factors)
}

// ExternalProviderError wraps a network or rate-limit failure from a data
// provider. The batch driver logs it and continues with the next ticker.
type ExternalProviderError struct {
	Provider string
	Err      error
}

func (e *ExternalProviderError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *ExternalProviderError) Unwrap() error {
	return e.Err
}
