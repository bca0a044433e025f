package ascboot

import (
	"context"

	"github.com/vitelabs/go-vite-ascending/common/types"
)

// BlockSource tags where a block entered the block processor from. Only
// BlockSourceBootstrap is produced by this package, but the type is shared
// with whatever else feeds the same processor.
type BlockSource int

const (
	BlockSourceUnspecified BlockSource = iota
	BlockSourceBootstrap
)

// BlockStatus is the block processor's verdict on a submitted block. Only
// StatusProgress and StatusGapSource are acted upon by Inspect; the rest are
// recorded for observability and otherwise ignored, matching §4.6.2.
type BlockStatus int

const (
	StatusProgress BlockStatus = iota
	StatusGapSource
	StatusGapPrevious
	StatusOld
	StatusFork
	StatusUnreceivable
)

// Block is the minimal block shape the core needs: identity, chain linkage,
// and the send/receive fields that drive account discovery. Wire encoding,
// signatures, and proof-of-work are out of scope and live entirely in the
// collaborator that produced the block.
type Block struct {
	Hash      types.Hash
	Previous  types.Hash
	Account   types.Account
	IsSend    bool
	Destination types.Account
	Source    types.Hash // valid when IsSend is false; the source/link field
}

// AccountField reinterprets Account as a Hash for the blocks_by_account
// verification check in §4.6.1, where an open/state block's account field
// must match the tag's queried account.
func (b Block) AccountField() types.Hash {
	return b.Account.AsHash()
}

// ProcessedBlock pairs a block with the processor's verdict, as delivered in
// a completed batch.
type ProcessedBlock struct {
	Status BlockStatus
	Block  Block
}

// BatchProcessedFunc is invoked once per completed batch.
type BatchProcessedFunc func(batch []ProcessedBlock)

// BlockProcessor is the out-of-scope collaborator that actually validates
// and applies blocks. The core only ever adds blocks to it, reads its queue
// depth for back-pressure, and subscribes to its batch-completion feed.
//
// Subscribe/Unsubscribe follow the reference repository's hand-rolled
// subscriber-map pattern (map[int]callback, monotonically increasing ids)
// rather than a generic pub/sub bus: this is exactly the one-way observer
// needed to break the Service<->BlockProcessor reference cycle described in
// the design notes, registered at Start and unregistered at Stop.
type BlockProcessor interface {
	Add(ctx context.Context, block Block, source BlockSource) error
	Size(source BlockSource) int
	Subscribe(fn BatchProcessedFunc) (subID int)
	Unsubscribe(subID int)
}

// AccountInfo is the ledger's view of an account: at minimum, its current
// head block.
type AccountInfo struct {
	Head types.Hash
}

// Transaction is a read-only view over the ledger, valid for the lifetime of
// a single inspect or request call.
type Transaction interface {
	// BlockAccount resolves the account that owns a given block hash.
	BlockAccount(hash types.Hash) (types.Account, bool)
}

// Ledger is the out-of-scope collaborator holding on-disk block and account
// state. The core never writes to it.
type Ledger interface {
	TxBeginRead(ctx context.Context) (Transaction, error)
	AccountGet(tx Transaction, account types.Account) (AccountInfo, bool)
	BlockCount() uint64

	// Iterate returns the account at cursor and the cursor to resume from
	// on the next call, wrapping to the beginning once the table is
	// exhausted. ok is false only if the account table is empty.
	Iterate(cursor uint64) (account types.Account, next uint64, ok bool)
}

// DropPolicy and TrafficClass mirror the wire layer's send-time hints; the
// core only ever asks for the bootstrap-appropriate combination, but the
// values are collaborator-defined, so they are opaque here.
type DropPolicy int

const (
	DropPolicyLimiter DropPolicy = iota
)

type TrafficClass int

const (
	TrafficClassBootstrap TrafficClass = iota
)

// QueryType selects the shape of an outbound pull request.
type QueryType int

const (
	QueryBlocksByHash QueryType = iota
	QueryBlocksByAccount
	QueryAccountInfoByHash
)

// Request is what gets handed to a Channel's Send.
type Request struct {
	ID   uint64
	Type QueryType
	// Start carries either a block hash (blocks_by_hash,
	// account_info_by_hash) or an account (blocks_by_account), depending
	// on Type.
	StartHash    types.Hash
	StartAccount types.Account
	Count        uint32
}

// Channel is a transport-layer connection to a remote peer.
type Channel interface {
	ID() string
	Send(ctx context.Context, req Request, drop DropPolicy, class TrafficClass) error
	AtCapacity() bool
}

// Network lists the currently live peer channels.
type Network interface {
	List() []Channel
}

// ReplyPayload is the tagged union of everything an asc_pull_ack can carry.
// The zero-value EmptyPayload case is a programming-invariant violation, not
// a legitimate "nothing happened" signal (see §4.6 and §7).
type ReplyPayload interface {
	isReplyPayload()
}

type BlocksPayload struct {
	Blocks []Block
}

type AccountInfoPayload struct {
	Account types.Account
}

type FrontiersPayload struct {
	Frontiers []Block
}

type EmptyPayload struct{}

func (BlocksPayload) isReplyPayload()      {}
func (AccountInfoPayload) isReplyPayload() {}
func (FrontiersPayload) isReplyPayload()   {}
func (EmptyPayload) isReplyPayload()       {}

// Reply is an inbound asc_pull_ack, matched against the tag table by ID.
type Reply struct {
	ID      uint64
	Payload ReplyPayload
}

// StatDir mirrors the wire-level direction tag used on every stat sample.
type StatDir int

const (
	DirIn StatDir = iota
	DirOut
)

// Stats is the fire-and-forget counters/histograms collaborator (§6),
// backed in this implementation by rcrowley/go-metrics (see stats.go).
type Stats interface {
	Inc(typ, detail string, dir StatDir)
	Add(typ, detail string, dir StatDir, n int64)
	Sample(name string, value int64, bounds [2]int64)
}
