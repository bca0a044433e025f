package ascboot

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/inconshreveable/log15"
	"github.com/olebedev/emitter"
	uberatomic "go.uber.org/atomic"

	"github.com/vitelabs/go-vite-ascending/common"
	"github.com/vitelabs/go-vite-ascending/common/types"
)

// Observer topics fired on each Service's own emitter.Emitter. Test code and
// future node-level observability subscribe via Service.Observe.
const (
	TopicRequest   = "ascboot.request"
	TopicReply     = "ascboot.reply"
	TopicTimeout   = "ascboot.timeout"
	TopicFrontiers = "ascboot.frontiers"
)

// verifyResult is the outcome of §4.6.1 blocks-payload verification.
type verifyResult int

const (
	verifyOK verifyResult = iota
	verifyNothingNew
	verifyInvalid
)

// ServiceInfo is the read-only diagnostics snapshot restored by §4.7,
// mirroring the reference source's collect_container_info.
type ServiceInfo struct {
	Priorities   int
	Blocking     int
	Tags         int
	ThrottleSize int
	ThrottleCap  int
	ThrottleHits int
	ScoringPeers int
}

// Service is the orchestrator (C6): it owns C1-C5 and the three worker
// goroutines described in §4.6, and is the only entry point the rest of
// the node talks to (Start, Stop, Process).
type Service struct {
	cfg Config
	log log15.Logger

	accounts *Accounts
	scoring  *Scoring
	throttle *Throttle
	tags     *Tags
	dbIter   *DatabaseIterator

	ledger    Ledger
	network   Network
	processor BlockProcessor
	stats     Stats

	headCache *gocache.Cache
	events    *emitter.Emitter

	// mu guards every mutation of accounts/scoring plus the data this
	// orchestrator keeps for itself; throttle and tags carry their own
	// locks and are also used outside mu. cond is the single condition
	// variable used to coordinate waits, per §5.
	mu   sync.Mutex
	cond *common.TimeoutCond

	lifecycle common.LifecycleStatus
	stopped   uberatomic.Bool
	wg        sync.WaitGroup
	subID     int

	rng *csprng
}

// NewService constructs the orchestrator. Start must be called before it
// does any work.
func NewService(cfg Config, ledger Ledger, network Network, processor BlockProcessor, stats Stats) *Service {
	if stats == nil {
		stats = NopStats{}
	}
	s := &Service{
		cfg:       cfg,
		log:       log15.New("module", "ascboot/service"),
		accounts:  NewAccounts(cfg, stats),
		scoring:   NewScoring(cfg),
		throttle:  NewThrottle(ComputeCapacity(cfg.ThrottleCoefficient, ledger.BlockCount())),
		tags:      NewTags(cfg.RequestsMax),
		dbIter:    NewDatabaseIterator(ledger, cfg.DatabaseRequestsLimit),
		ledger:    ledger,
		network:   network,
		processor: processor,
		stats:     stats,
		headCache: gocache.New(cfg.AccountHeadCacheTTL, 2*cfg.AccountHeadCacheTTL),
		events:    &emitter.Emitter{},
		cond:      common.NewTimeoutCond(),
		rng:       newCSPRNG(),
	}
	s.lifecycle.PreInit()
	s.lifecycle.PostInit()
	return s
}

// Observe subscribes to one of the TopicXxx observer points (§9's
// cycle-breaking observer design note, implemented on olebedev/emitter).
func (s *Service) Observe(topic string) <-chan emitter.Event {
	return s.events.On(topic)
}

// Info returns a point-in-time snapshot of every bounded container's size,
// the §4.7 diagnostics supplement.
func (s *Service) Info() ServiceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ServiceInfo{
		Priorities:   s.accounts.PrioritySize(),
		Blocking:     s.accounts.BlockedSize(),
		Tags:         s.tags.Size(),
		ThrottleSize: s.throttle.Size(),
		ThrottleCap:  s.throttle.Capacity(),
		ThrottleHits: s.throttle.Successes(),
		ScoringPeers: s.scoring.Size(),
	}
}

// Start implements §4.6 start: idempotent, launches the three worker
// goroutines and subscribes to the block processor's batch-completion feed.
func (s *Service) Start() {
	if !s.lifecycle.PreStart() {
		s.log.Debug("start ignored", "err", ErrAlreadyStarted)
		return
	}
	s.stopped.Store(false)
	s.subID = s.processor.Subscribe(s.inspectBatch)

	s.wg.Add(3)
	common.Go(func() { defer s.wg.Done(); s.prioritiesWorker() })
	common.Go(func() { defer s.wg.Done(); s.dependenciesWorker() })
	common.Go(func() { defer s.wg.Done(); s.timeoutsWorker() })

	s.lifecycle.PostStart()
	s.log.Info("started")
}

// Stop implements §4.6 stop: idempotent, signals every worker and waits for
// them to join.
func (s *Service) Stop() {
	if !s.lifecycle.PreStop() {
		s.log.Debug("stop ignored", "err", ErrNotStarted)
		return
	}
	s.mu.Lock()
	s.stopped.Store(true)
	s.mu.Unlock()
	s.cond.Broadcast()
	s.wg.Wait()
	s.processor.Unsubscribe(s.subID)
	s.lifecycle.PostStop()
	s.log.Info("stopped")
}

func (s *Service) isStopped() bool {
	return s.stopped.Load()
}

// waitFor blocks on the condition variable (up to d) until ready() reports
// true or the service is stopped, re-checking both on every wake, per §5's
// "every timed wait re-checks stopped on wake".
func (s *Service) waitFor(d time.Duration, ready func() bool) bool {
	for {
		s.mu.Lock()
		done := s.isStopped() || ready()
		s.mu.Unlock()
		if done {
			return !s.isStopped()
		}
		_ = s.cond.WaitTimeout(d)
	}
}

// Process implements §4.6 Process(reply, channel): the ingress entry point
// for asynchronous replies.
func (s *Service) Process(reply Reply, channel Channel) {
	s.mu.Lock()
	tag, ok := s.tags.Take(reply.ID)
	if !ok {
		s.mu.Unlock()
		s.stats.Inc("ascboot", "missing_tag", DirIn)
		s.log.Debug("reply for unknown tag", "err", ErrUnknownTag, "id", reply.ID)
		return
	}
	s.scoring.ReceivedMessage(channel)
	s.mu.Unlock()

	s.stats.Sample("ascboot.tag_duration", time.Since(tag.Time).Milliseconds(), [2]int64{0, int64(s.cfg.Timeout.Milliseconds())})
	s.events.Emit(TopicReply, tag, reply)

	switch payload := reply.Payload.(type) {
	case BlocksPayload:
		s.processBlocks(tag, payload)
	case AccountInfoPayload:
		s.processAccountInfo(payload)
	case FrontiersPayload:
		s.events.Emit(TopicFrontiers, payload)
	case EmptyPayload:
		assertInvariant(false, "empty payload reached dispatch", "tag", tag.ID)
	default:
		assertInvariant(false, "unrecognized reply payload variant")
	}

	s.cond.Broadcast()
}

func (s *Service) processBlocks(tag Tag, payload BlocksPayload) {
	result := verifyBlocks(tag, payload.Blocks)

	switch result {
	case verifyOK:
		ctx := context.Background()
		for _, b := range payload.Blocks {
			if err := s.processor.Add(ctx, b, BlockSourceBootstrap); err != nil {
				s.log.Error("block processor add failed", "err", err, "hash", b.Hash)
			}
		}
		s.throttle.Add(true)
		s.stats.Add("ascboot", "blocks", DirIn, int64(len(payload.Blocks)))
	case verifyNothingNew:
		s.mu.Lock()
		s.accounts.PriorityDown(tag.Account)
		s.mu.Unlock()
		s.throttle.Add(false)
		s.stats.Inc("ascboot", "nothing_new", DirIn)
	case verifyInvalid:
		s.stats.Inc("ascboot", "invalid", DirIn)
	}
}

func (s *Service) processAccountInfo(payload AccountInfoPayload) {
	if payload.Account.IsZero() {
		return
	}
	s.mu.Lock()
	s.accounts.PriorityUp(payload.Account)
	s.mu.Unlock()
}

// verifyBlocks implements §4.6.1.
func verifyBlocks(tag Tag, blocks []Block) verifyResult {
	if len(blocks) == 0 {
		return verifyNothingNew
	}

	startAsHash := tag.StartHash
	if tag.Type == QueryBlocksByAccount {
		startAsHash = tag.StartAccount.AsHash()
	}

	if len(blocks) == 1 && blocks[0].Hash == startAsHash {
		return verifyNothingNew
	}

	switch tag.Type {
	case QueryBlocksByHash:
		if blocks[0].Hash != tag.StartHash {
			return verifyInvalid
		}
	case QueryBlocksByAccount:
		if blocks[0].AccountField() != tag.StartAccount.AsHash() {
			return verifyInvalid
		}
	default:
		return verifyInvalid
	}

	for i := 1; i < len(blocks); i++ {
		if blocks[i].Previous != blocks[i-1].Hash {
			return verifyInvalid
		}
	}
	return verifyOK
}

// inspectBatch implements §4.6.2 Inspect, invoked on every block-processor
// batch completion.
func (s *Service) inspectBatch(batch []ProcessedBlock) {
	ctx := context.Background()
	tx, err := s.ledger.TxBeginRead(ctx)
	if err != nil {
		s.log.Error("inspect: failed to open read transaction", "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.cond.Broadcast()

	for _, pb := range batch {
		switch pb.Status {
		case StatusProgress:
			s.inspectProgress(tx, pb.Block)
		case StatusGapSource:
			s.inspectGapSource(tx, pb.Block)
		default:
			s.stats.Inc("ascboot", statusLabel(pb.Status), DirIn)
		}
	}
}

func (s *Service) inspectProgress(tx Transaction, b Block) {
	a := b.Account
	s.accounts.Unblock(a, nil)
	s.accounts.PriorityUp(a)
	s.accounts.Timestamp(a, true)

	if b.IsSend && !b.Destination.IsZero() {
		d := b.Destination
		hash := b.Hash
		s.accounts.Unblock(d, &hash)
		s.accounts.PriorityUp(d)
	}
}

func (s *Service) inspectGapSource(tx Transaction, b Block) {
	var a types.Account
	if b.Previous.IsZero() {
		a = b.Account
	} else if owner, ok := tx.BlockAccount(b.Previous); ok {
		a = owner
	} else {
		return
	}
	s.accounts.Block(a, b.Source)
}

func statusLabel(status BlockStatus) string {
	switch status {
	case StatusGapPrevious:
		return "gap_previous"
	case StatusOld:
		return "old"
	case StatusFork:
		return "fork"
	case StatusUnreceivable:
		return "unreceivable"
	default:
		return "unknown"
	}
}
