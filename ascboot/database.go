package ascboot

import (
	"context"
	"sync"

	"github.com/inconshreveable/log15"
	"golang.org/x/time/rate"

	"github.com/vitelabs/go-vite-ascending/common/types"
)

// DatabaseIterator streams account identifiers from the ledger's account
// table as the secondary source C1 falls back to once the priorities
// working set runs dry (§4.2). It holds at most one cursor open at a time
// and wraps back to the start of the table once exhausted.
type DatabaseIterator struct {
	ledger  Ledger
	limiter *rate.Limiter
	log     log15.Logger

	mu     sync.Mutex
	cursor uint64
	warmup bool
}

// NewDatabaseIterator builds a C2 instance rate-limited by requestsPerSec,
// backed by golang.org/x/time/rate the same way the corpus's RPC rate
// limiters are built (see DESIGN.md).
func NewDatabaseIterator(ledger Ledger, requestsPerSec float64) *DatabaseIterator {
	burst := int(requestsPerSec)
	if burst < 1 {
		burst = 1
	}
	return &DatabaseIterator{
		ledger:  ledger,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), burst),
		log:     log15.New("module", "ascboot/database"),
		warmup:  true,
	}
}

// Next returns the next account in key order, wrapping to the beginning of
// the table once a full cycle completes. It returns the zero account when
// the token bucket has no budget left or the account table is empty.
func (d *DatabaseIterator) Next(ctx context.Context) types.Account {
	if !d.limiter.Allow() {
		return types.ZeroAccount
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	account, next, ok := d.ledger.Iterate(d.cursor)
	if !ok {
		return types.ZeroAccount
	}

	if next <= d.cursor && d.cursor != 0 {
		// The table wrapped: a full cycle has completed.
		d.warmup = false
	}
	d.cursor = next
	return account
}

// Warmup reports true until a full cycle of the account table has
// completed, matching §4.2: the orchestrator uses this to suppress
// throttling during initial catch-up, since there is no success-ratio
// signal yet to throttle on.
func (d *DatabaseIterator) Warmup() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.warmup
}
