package ascboot

import (
	"context"
	"time"

	"github.com/vitelabs/go-vite-ascending/common/types"
)

// freshTagID draws a fresh id for a new Tag. Collisions are astronomically
// unlikely from a 64-bit CSPRNG draw; per §3/§4.5, a collision on Insert is
// a programming-invariant violation, not something this retries around.
// Both request workers call it, so the draw is taken under the service mutex.
func (s *Service) freshTagID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Uint64()
}

// accountHead consults the short-TTL go-cache lookaside in front of the
// ledger's account store, per §4.6 step 4, to avoid a read-transaction per
// tag build for accounts that were just queried.
func (s *Service) accountHead(ctx context.Context, account types.Account) (types.Hash, bool) {
	key := account.Hex()
	if cached, ok := s.headCache.Get(key); ok {
		head := cached.(types.Hash)
		return head, !head.IsZero()
	}

	tx, err := s.ledger.TxBeginRead(ctx)
	if err != nil {
		s.log.Error("accountHead: failed to open read transaction", "err", err)
		return types.ZeroHash, false
	}
	info, ok := s.ledger.AccountGet(tx, account)
	if !ok {
		s.headCache.SetDefault(key, types.ZeroHash)
		return types.ZeroHash, false
	}
	s.headCache.SetDefault(key, info.Head)
	return info.Head, !info.Head.IsZero()
}

// acquireChannel implements §4.6 priorities-worker step 2: blocks up to d,
// retrying, for a channel from C3. On success the channel's outstanding
// count has already been incremented.
func (s *Service) acquireChannel(d time.Duration) Channel {
	var channel Channel
	s.waitFor(d, func() bool {
		channel = s.scoring.Channel()
		if channel != nil {
			s.scoring.IncrementOutstanding(channel)
		}
		return channel != nil
	})
	return channel
}

// releaseChannel undoes acquireChannel's IncrementOutstanding when the
// worker abandons a channel without actually sending (e.g. no account was
// available).
func (s *Service) releaseChannel(ch Channel) {
	s.mu.Lock()
	s.scoring.DecrementOutstanding(ch)
	s.mu.Unlock()
}

// acquireAccount implements §4.6 priorities-worker step 3: C1.NextPriority
// first, then C2.Next if the database limiter permits. C2.Next may open a
// ledger read transaction, so it is always called outside the service
// mutex, per §5's "no blocking I/O while holding it" rule.
//
// The selected account is cooled down (Timestamp with reset=false)
// immediately on selection, mirroring wait_available_account's
// accounts.timestamp(account) call right after available_account()
// returns in the original source: without this, NextPriority's cooldown
// gate never excludes a just-picked account and the same high-weight
// entry gets re-selected every loop iteration instead of rotating.
func (s *Service) acquireAccount(ctx context.Context, d time.Duration) types.Account {
	for {
		if s.isStopped() {
			return types.ZeroAccount
		}

		s.mu.Lock()
		account := s.accounts.NextPriority()
		if !account.IsZero() {
			s.accounts.Timestamp(account, false)
		}
		s.mu.Unlock()

		if account.IsZero() {
			account = s.dbIter.Next(ctx)
		}
		if !account.IsZero() {
			return account
		}

		s.cond.WaitTimeout(d)
	}
}

// acquireDependency is the dependencies-worker analogue of acquireAccount:
// C1.NextBlocking only, no database fallback.
func (s *Service) acquireDependency(d time.Duration) types.Hash {
	var hash types.Hash
	s.waitFor(d, func() bool {
		hash = s.accounts.NextBlocking()
		return !hash.IsZero()
	})
	return hash
}

// backpressureOK implements §4.6 priorities-worker step 1: the block
// processor's bootstrap queue depth below BlockWaitCount, and C5 has room
// for another in-flight tag.
func (s *Service) backpressureOK() bool {
	return s.processor.Size(BlockSourceBootstrap) < s.cfg.BlockWaitCount && !s.tags.Full()
}

// prioritiesWorker implements the worker described in §4.6.
func (s *Service) prioritiesWorker() {
	ctx := context.Background()
	for !s.isStopped() {
		if !s.waitFor(s.cfg.ThrottleWait, s.backpressureOK) {
			return
		}

		channel := s.acquireChannel(s.cfg.ThrottleWait)
		if channel == nil {
			continue
		}

		account := s.acquireAccount(ctx, 100*time.Millisecond)
		if account.IsZero() {
			s.releaseChannel(channel)
			continue
		}

		s.sendPull(ctx, channel, account)

		if !s.dbIter.Warmup() && s.throttle.Throttled() {
			s.cond.WaitTimeout(s.cfg.ThrottleWait)
		}
	}
}

// sendPull builds and dispatches a blocks pull for account, per §4.6 step 4.
func (s *Service) sendPull(ctx context.Context, channel Channel, account types.Account) {
	head, hasHead := s.accountHead(ctx, account)

	tag := Tag{
		ID:      s.freshTagID(),
		Account: account,
		Time:    time.Now(),
	}
	if hasHead {
		tag.Type = QueryBlocksByHash
		tag.StartHash = head
	} else {
		tag.Type = QueryBlocksByAccount
		tag.StartAccount = account
	}

	s.mu.Lock()
	s.tags.Insert(tag)
	s.mu.Unlock()

	req := Request{
		ID:           tag.ID,
		Type:         tag.Type,
		StartHash:    tag.StartHash,
		StartAccount: tag.StartAccount,
		Count:        s.cfg.PullCount,
	}

	s.events.Emit(TopicRequest, tag)
	if err := channel.Send(ctx, req, DropPolicyLimiter, TrafficClassBootstrap); err != nil {
		s.log.Debug("pull send failed", "err", err, "channel", channel.ID())
	}
}

// dependenciesWorker implements the worker described in §4.6: identical
// structure to prioritiesWorker but pulls a hash from C1.NextBlocking and
// emits an account_info_by_hash query.
func (s *Service) dependenciesWorker() {
	ctx := context.Background()
	for !s.isStopped() {
		if !s.waitFor(s.cfg.ThrottleWait, s.backpressureOK) {
			return
		}

		channel := s.acquireChannel(s.cfg.ThrottleWait)
		if channel == nil {
			continue
		}

		hash := s.acquireDependency(100 * time.Millisecond)
		if hash.IsZero() {
			s.releaseChannel(channel)
			continue
		}

		tag := Tag{
			ID:        s.freshTagID(),
			Type:      QueryAccountInfoByHash,
			StartHash: hash,
			Time:      time.Now(),
		}

		s.mu.Lock()
		s.tags.Insert(tag)
		s.mu.Unlock()

		req := Request{ID: tag.ID, Type: QueryAccountInfoByHash, StartHash: hash}
		s.events.Emit(TopicRequest, tag)
		if err := channel.Send(ctx, req, DropPolicyLimiter, TrafficClassBootstrap); err != nil {
			s.log.Debug("dependency query send failed", "err", err, "channel", channel.ID())
		}
	}
}

// timeoutsWorker implements the worker described in §4.6: once per second,
// reconciles peer scoring, resizes the throttle, and expires stale tags.
func (s *Service) timeoutsWorker() {
	for !s.isStopped() {
		live := s.network.List()

		s.mu.Lock()
		s.scoring.Sync(live)
		s.scoring.Timeout()
		s.mu.Unlock()

		capacity := ComputeCapacity(s.cfg.ThrottleCoefficient, s.ledger.BlockCount())
		s.throttle.Resize(capacity)

		expired := s.tags.Expire(time.Now(), s.cfg.Timeout)
		for _, tag := range expired {
			s.events.Emit(TopicTimeout, tag)
			s.stats.Inc("ascboot", "timeout", DirIn)
		}

		if len(expired) > 0 {
			s.cond.Broadcast()
		}

		s.cond.WaitTimeout(time.Second)
	}
}
