// Package ledger abstracts the hosting value-transfer system. The core only
// needs two primitives from it: the current time index and an atomic transfer.
package ledger

import (
	"context"

	"paygate/pkg/domain"
)

// Ledger is the external transfer primitive plus its clock. Implementations
// must guarantee that Transfer is atomic and final once it returns nil, and
// that CurrentTimeIndex never decreases.
type Ledger interface {
	// CurrentTimeIndex returns the monotonically non-decreasing time index
	// used to derive rate-limit windows and spending buckets.
	CurrentTimeIndex() uint64

	// Transfer moves amount from one principal to another. A non-nil error
	// means no value moved.
	Transfer(ctx context.Context, amount uint64, from, to domain.Principal) error
}
