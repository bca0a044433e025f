package ascboot

import (
	"math"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/vitelabs/go-vite-ascending/common/types"
)

// priorityEntry is one row of the working set described in §3. timestamp
// records the last time this account was selected, so NextPriority can
// exclude it until the cooldown passes.
type priorityEntry struct {
	account   types.Account
	priority  float64
	timestamp time.Time
}

// blockingEntry records the dependency an account's chain is waiting on,
// plus the priority it carried before it was blocked.
type blockingEntry struct {
	dependency    types.Hash
	savedPriority float64
}

// Accounts is the account-priorities and blocked-on-dependency working set
// (C1). It is not internally synchronized: callers (the Service) hold the
// single service mutex around every call, per §5.
type Accounts struct {
	cfg   Config
	stats Stats
	log   log15.Logger

	// priorities, keyed by account for O(1) membership/update, backed by
	// a dense slot array + Fenwick tree for O(log n) weighted sampling.
	index  map[types.Account]int
	slots  []priorityEntry
	weight *fenwick

	blocking map[types.Account]blockingEntry

	rng *csprng
}

func NewAccounts(cfg Config, stats Stats) *Accounts {
	return &Accounts{
		cfg:      cfg,
		stats:    stats,
		log:      log15.New("module", "ascboot/accounts"),
		index:    make(map[types.Account]int),
		slots:    make([]priorityEntry, 0, 1024),
		weight:   newFenwick(1024),
		blocking: make(map[types.Account]blockingEntry),
		rng:      newCSPRNG(),
	}
}

func (a *Accounts) PrioritySize() int {
	return len(a.slots)
}

func (a *Accounts) BlockedSize() int {
	return len(a.blocking)
}

func (a *Accounts) InPriorities(account types.Account) bool {
	_, ok := a.index[account]
	return ok
}

func (a *Accounts) InBlocking(account types.Account) bool {
	_, ok := a.blocking[account]
	return ok
}

// PriorityUp implements §4.1 priority_up.
func (a *Accounts) PriorityUp(account types.Account) {
	assertInvariant(!account.IsZero(), "priority_up on zero account")

	if entry, blocked := a.blocking[account]; blocked {
		entry.savedPriority = math.Min(entry.savedPriority+1, a.cfg.PriorityMax)
		a.blocking[account] = entry
		return
	}

	if i, ok := a.index[account]; ok {
		a.setPriority(i, math.Min(a.slots[i].priority+1, a.cfg.PriorityMax))
		return
	}

	if len(a.slots) >= a.cfg.PrioritiesMax {
		a.stats.Inc("ascboot", "priorities_full", DirOut)
		a.log.Debug("priorities at capacity, dropping insert", "account", account)
		return
	}

	a.insert(account, a.cfg.PriorityInitial)
}

// PriorityDown implements §4.1 priority_down.
func (a *Accounts) PriorityDown(account types.Account) {
	i, ok := a.index[account]
	if !ok {
		return
	}

	next := a.slots[i].priority / 2
	if next <= a.cfg.PriorityCutoff {
		a.erase(i)
		return
	}
	a.setPriority(i, next)
}

// Block implements §4.1 block. If the blocking set is already at capacity
// and this account has no existing entry to overwrite, the account is
// dropped from priorities anyway (it is no longer pullable as-is) but no
// blocking entry is recorded, preserving the |blocking| <= BlockingMax
// invariant at the cost of forgetting the dependency until rediscovered.
func (a *Accounts) Block(account types.Account, dependency types.Hash) {
	assertInvariant(!account.IsZero(), "block on zero account")

	saved := a.cfg.PrioritySavedDefault
	if i, ok := a.index[account]; ok {
		saved = a.slots[i].priority
		a.erase(i)
	}

	assertInvariant(!a.InPriorities(account), "account present in both priorities and blocking after block()")

	if _, exists := a.blocking[account]; !exists && len(a.blocking) >= a.cfg.BlockingMax {
		a.stats.Inc("ascboot", "blocking_full", DirOut)
		a.log.Debug("blocking set at capacity, dropping insert", "account", account)
		return
	}

	a.blocking[account] = blockingEntry{dependency: dependency, savedPriority: saved}
}

// Unblock implements §4.1 unblock. hash == nil means "absent": the move
// happens unconditionally. A non-nil hash must match the stored dependency.
func (a *Accounts) Unblock(account types.Account, hash *types.Hash) bool {
	entry, ok := a.blocking[account]
	if !ok {
		return false
	}
	if hash != nil && *hash != entry.dependency {
		return false
	}

	delete(a.blocking, account)

	if len(a.slots) >= a.cfg.PrioritiesMax {
		// Capacity exhausted: the account is dropped rather than
		// re-inserted. It will be rediscovered later via the database
		// iterator or another block/inspect cycle.
		a.stats.Inc("ascboot", "priorities_full", DirOut)
		return true
	}

	a.insert(account, entry.savedPriority)
	return true
}

// Timestamp implements §4.1 timestamp. reset=true clears the cooldown (the
// account becomes immediately eligible for NextPriority again, e.g. after
// inspect observes progress and wants to keep pulling the same chain);
// reset=false cools it down starting now (used when an account is actually
// selected for a pull, so it is not re-selected on the very next
// iteration).
func (a *Accounts) Timestamp(account types.Account, reset bool) {
	i, ok := a.index[account]
	if !ok {
		return
	}
	if reset {
		a.slots[i].timestamp = time.Now().Add(-a.cfg.Cooldown)
	} else {
		a.slots[i].timestamp = time.Now()
	}
}

// NextPriority implements §4.1 next_priority: weighted-random selection
// among entries whose timestamp is older than the cooldown. Sampling is
// O(log n) via the Fenwick tree in the common case; if repeated samples
// land on cooled-down entries (which thins out as the cooldown passes), it
// falls back to a bounded linear scan so the call always terminates with a
// correct answer instead of looping indefinitely on an adversarial clock.
func (a *Accounts) NextPriority() types.Account {
	n := len(a.slots)
	if n == 0 {
		return types.ZeroAccount
	}

	cutoff := time.Now().Add(-a.cfg.Cooldown)

	const maxAttempts = 16
	for attempt := 0; attempt < maxAttempts; attempt++ {
		total := a.weight.total(n)
		if total <= 0 {
			break
		}
		target := a.rng.Float64()*total + smallestPositive
		i := a.weight.find(target, n)
		if i < 0 || i >= n {
			continue
		}
		if a.slots[i].timestamp.Before(cutoff) {
			return a.slots[i].account
		}
	}

	// Fallback: linear scan, weighted reservoir sampling over the
	// eligible subset only.
	var chosen types.Account
	var seenWeight float64
	for _, e := range a.slots {
		if !e.timestamp.Before(cutoff) {
			continue
		}
		seenWeight += e.priority
		if a.rng.Float64()*seenWeight < e.priority {
			chosen = e.account
		}
	}
	return chosen
}

// NextBlocking implements §4.1 next_blocking: uniform-random draw from the
// blocking set.
func (a *Accounts) NextBlocking() types.Hash {
	if len(a.blocking) == 0 {
		return types.ZeroHash
	}
	target := a.rng.Intn(len(a.blocking))
	i := 0
	for _, entry := range a.blocking {
		if i == target {
			return entry.dependency
		}
		i++
	}
	panic("unreachable")
}

func (a *Accounts) insert(account types.Account, priority float64) {
	i := len(a.slots)
	a.slots = append(a.slots, priorityEntry{account: account, priority: priority, timestamp: time.Now().Add(-a.cfg.Cooldown)})
	a.index[account] = i
	a.weight.add(i, priority)
}

func (a *Accounts) setPriority(i int, priority float64) {
	a.weight.set(i, a.slots[i].priority, priority)
	a.slots[i].priority = priority
}

// erase removes slot i via swap-with-last, keeping the slot array dense so
// the Fenwick tree never has to shrink. Insertion order (used to break ties
// among equal weights) is preserved except across a removal that swaps a
// later account into an earlier slot.
func (a *Accounts) erase(i int) {
	last := len(a.slots) - 1

	removedAccount := a.slots[i].account
	a.weight.set(i, a.slots[i].priority, 0)
	delete(a.index, removedAccount)

	if i != last {
		moved := a.slots[last]
		a.weight.set(last, moved.priority, 0)
		a.weight.add(i, moved.priority)
		a.slots[i] = moved
		a.index[moved.account] = i
	}

	a.slots = a.slots[:last]
}

const smallestPositive = 1e-9
