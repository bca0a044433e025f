package ascboot

import "time"

// Config bundles every tunable named in the design document. The core never
// parses flags, files, or environment variables itself; the embedding node
// builds one of these and hands it to NewService.
type Config struct {
	// PullCount is the number of blocks requested per pull.
	PullCount uint32

	// DatabaseRequestsLimit is the token-bucket rate, in requests per
	// second, at which the database iterator (C2) may be consulted.
	DatabaseRequestsLimit float64

	// BlockWaitCount is the back-pressure threshold against the block
	// processor's bootstrap queue.
	BlockWaitCount int

	// ThrottleWait is the cooperative wait granularity used for
	// back-pressure and availability polling.
	ThrottleWait time.Duration

	// ThrottleCoefficient scales capacity = coefficient * sqrt(block_count).
	ThrottleCoefficient float64

	// Timeout is the tag-table expiration threshold.
	Timeout time.Duration

	// PrioritiesMax bounds the size of the priorities working set.
	PrioritiesMax int

	// BlockingMax bounds the size of the blocked-on-dependency set.
	BlockingMax int

	// RequestsMax bounds the number of in-flight tags.
	RequestsMax int

	// PriorityMax clamps a single account's priority weight.
	PriorityMax float64

	// PriorityCutoff is the erase threshold: an entry whose priority
	// falls to or below this value is removed from priorities.
	PriorityCutoff float64

	// PriorityInitial is the weight assigned to a freshly inserted account.
	PriorityInitial float64

	// PrioritySavedDefault is the saved priority used when an account
	// with no prior priority entry is blocked.
	PrioritySavedDefault float64

	// Cooldown is the minimum age a priority entry's timestamp must have
	// before it is eligible for selection again.
	Cooldown time.Duration

	// ChannelOutstandingCap is the per-channel in-flight request cap.
	ChannelOutstandingCap uint32

	// ScoringMaxPeers bounds the peer score table (the LRU backing it).
	ScoringMaxPeers int

	// ScoringSilenceTimeout is how long a channel may go without a
	// response before Timeout() prunes it.
	ScoringSilenceTimeout time.Duration

	// AccountHeadCacheTTL is the lifetime of the ledger account-head
	// lookaside cache consulted when building a tag.
	AccountHeadCacheTTL time.Duration
}

// DefaultConfig returns the values documented in the specification's
// configuration table. They are tunables, not invariants.
func DefaultConfig() Config {
	return Config{
		PullCount:             128,
		DatabaseRequestsLimit: 10,
		BlockWaitCount:        1000,
		ThrottleWait:          100 * time.Millisecond,
		ThrottleCoefficient:   8,
		Timeout:               3 * time.Second,
		PrioritiesMax:         1 << 20,
		BlockingMax:           1 << 20,
		RequestsMax:           1024,
		PriorityMax:           32.0,
		PriorityCutoff:        1.0,
		PriorityInitial:       2.0,
		PrioritySavedDefault:  1.0,
		Cooldown:              3 * time.Second,
		ChannelOutstandingCap: 4,
		ScoringMaxPeers:       256,
		ScoringSilenceTimeout: 10 * time.Second,
		AccountHeadCacheTTL:   2 * time.Second,
	}
}
