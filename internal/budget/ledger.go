// Package budget accounts differential privacy spend per principal.
// The collector consumes before injecting noise; implementations decide
// whether the spend fits the principal's window.
package budget

import (
	"context"
	"time"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
)

// Grant is the outcome of a consumption attempt. Remaining is best-effort
// and never negative.
type Grant struct {
	Granted   bool
	Remaining float64
}

// Ledger tracks epsilon spend. Implementations must be safe for concurrent
// use. Callers treat any error as a denial; the ledger never fails open.
type Ledger interface {
	Consume(ctx context.Context, principal domain.PrincipalID, eps float64) (Grant, error)
}

// Limits sizes a principal's budget window.
type Limits struct {
	// Cap is the total epsilon a principal may spend per window.
	Cap float64
	// Window is the rolling period after which spend resets.
	Window time.Duration
}

// DefaultLimits returns the stock budget sizing.
func DefaultLimits() Limits {
	return Limits{Cap: 20, Window: 24 * time.Hour}
}

// CapSlack absorbs float accumulation drift so a principal can spend the cap
// exactly.
const CapSlack = 1e-9
