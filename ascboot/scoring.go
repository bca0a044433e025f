package ascboot

import (
	"time"

	mapset "github.com/deckarep/golang-set"
	lru "github.com/hashicorp/golang-lru"
	"github.com/inconshreveable/log15"
)

// peerEntry is the per-channel bookkeeping described in §3/§4.3.
type peerEntry struct {
	channel      Channel
	outstanding  uint32
	lastResponse time.Time
}

// Scoring is the peer-scoring and channel-selection component (C3). It is
// not internally synchronized: the Service holds the single service mutex
// around every call, per §5.
//
// The live table is backed by a hashicorp/golang-lru cache sized to
// ScoringMaxPeers so that a channel that silently goes dark and is never
// explicitly evicted by Timeout still ages out by recency rather than
// growing the table without bound — the same role this exact library plays
// for the reference repository's pool/blacklist and chain/index caches.
type Scoring struct {
	cfg Config
	log log15.Logger

	cache *lru.Cache // key: channel id (string), value: *peerEntry
}

func NewScoring(cfg Config) *Scoring {
	cache, err := lru.New(cfg.ScoringMaxPeers)
	if err != nil {
		// Only possible failure is a non-positive size, a configuration
		// error caught at construction time rather than deferred to a
		// runtime assertion.
		panic(err)
	}
	return &Scoring{
		cfg:   cfg,
		log:   log15.New("module", "ascboot/scoring"),
		cache: cache,
	}
}

// Sync reconciles the live table with the current set of live channels
// (§4.3), using golang-set difference operations the same way the
// reference repository's wallet/keystore manager diffs address sets.
func (s *Scoring) Sync(live []Channel) {
	current := mapset.NewThreadUnsafeSet()
	byID := make(map[interface{}]Channel, len(live))
	for _, ch := range live {
		current.Add(ch.ID())
		byID[ch.ID()] = ch
	}

	known := mapset.NewThreadUnsafeSet()
	for _, key := range s.cache.Keys() {
		known.Add(key)
	}

	for stale := range known.Difference(current).Iter() {
		s.cache.Remove(stale)
	}

	for fresh := range current.Difference(known).Iter() {
		id := fresh.(string)
		s.cache.Add(id, &peerEntry{channel: byID[id], lastResponse: time.Now()})
	}
}

// ReceivedMessage implements §4.3 received_message.
func (s *Scoring) ReceivedMessage(ch Channel) {
	v, ok := s.cache.Get(ch.ID())
	if !ok {
		return
	}
	entry := v.(*peerEntry)
	if entry.outstanding > 0 {
		entry.outstanding--
	}
	entry.lastResponse = time.Now()
}

// DecrementOutstanding undoes a Channel/IncrementOutstanding reservation
// that was never sent on (e.g. the worker abandoned it for lack of an
// account or dependency to pull). Unlike ReceivedMessage, it does not touch
// last_response, since no reply was actually observed.
func (s *Scoring) DecrementOutstanding(ch Channel) {
	v, ok := s.cache.Get(ch.ID())
	if !ok {
		return
	}
	entry := v.(*peerEntry)
	if entry.outstanding > 0 {
		entry.outstanding--
	}
}

// Timeout implements §4.3 timeout: prune entries silent past
// ScoringSilenceTimeout. Pruned channels are eligible to be re-added by the
// next Sync if they are still live.
func (s *Scoring) Timeout() {
	cutoff := time.Now().Add(-s.cfg.ScoringSilenceTimeout)
	for _, key := range s.cache.Keys() {
		v, ok := s.cache.Peek(key)
		if !ok {
			continue
		}
		entry := v.(*peerEntry)
		if entry.lastResponse.Before(cutoff) {
			s.cache.Remove(key)
		}
	}
}

// Channel implements §4.3 channel: prefers the channel with the lowest
// outstanding count, ties broken by most recent last_response, skipping any
// channel at the per-channel outstanding cap. Returns nil if none qualify.
//
// On success the caller must immediately call IncrementOutstanding.
func (s *Scoring) Channel() Channel {
	var best *peerEntry
	for _, key := range s.cache.Keys() {
		v, ok := s.cache.Peek(key)
		if !ok {
			continue
		}
		entry := v.(*peerEntry)
		if entry.outstanding >= s.cfg.ChannelOutstandingCap {
			continue
		}
		if best == nil ||
			entry.outstanding < best.outstanding ||
			(entry.outstanding == best.outstanding && entry.lastResponse.After(best.lastResponse)) {
			best = entry
		}
	}
	if best == nil {
		return nil
	}
	return best.channel
}

// IncrementOutstanding bumps the chosen channel's outstanding count. Callers
// must invoke this immediately after Channel returns a non-nil result and
// before releasing the service mutex, per §4.3's "caller must immediately
// increment outstanding" contract.
func (s *Scoring) IncrementOutstanding(ch Channel) {
	v, ok := s.cache.Get(ch.ID())
	if !ok {
		return
	}
	v.(*peerEntry).outstanding++
}

// Size reports the number of tracked channels, exposed for diagnostics.
func (s *Scoring) Size() int {
	return s.cache.Len()
}
