package ascboot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	id string
}

func (f *fakeChannel) ID() string { return f.id }
func (f *fakeChannel) Send(ctx context.Context, req Request, drop DropPolicy, class TrafficClass) error {
	return nil
}
func (f *fakeChannel) AtCapacity() bool { return false }

func scoringConfig() Config {
	cfg := DefaultConfig()
	cfg.ScoringMaxPeers = 16
	cfg.ChannelOutstandingCap = 2
	cfg.ScoringSilenceTimeout = 50 * time.Millisecond
	return cfg
}

func TestScoring_SyncAddsAndRemoves(t *testing.T) {
	s := NewScoring(scoringConfig())
	a, b := &fakeChannel{id: "a"}, &fakeChannel{id: "b"}

	s.Sync([]Channel{a, b})
	assert.Equal(t, 2, s.Size())

	s.Sync([]Channel{a})
	assert.Equal(t, 1, s.Size())
}

func TestScoring_ChannelPrefersLowestOutstanding(t *testing.T) {
	s := NewScoring(scoringConfig())
	a, b := &fakeChannel{id: "a"}, &fakeChannel{id: "b"}
	s.Sync([]Channel{a, b})

	s.IncrementOutstanding(a)

	got := s.Channel()
	require.NotNil(t, got)
	assert.Equal(t, "b", got.ID())
}

func TestScoring_ChannelSkipsAtCap(t *testing.T) {
	cfg := scoringConfig()
	cfg.ChannelOutstandingCap = 1
	s := NewScoring(cfg)
	a := &fakeChannel{id: "a"}
	s.Sync([]Channel{a})

	s.IncrementOutstanding(a)

	assert.Nil(t, s.Channel())
}

func TestScoring_ReceivedMessageDecrementsOutstanding(t *testing.T) {
	s := NewScoring(scoringConfig())
	a := &fakeChannel{id: "a"}
	s.Sync([]Channel{a})
	s.IncrementOutstanding(a)
	s.IncrementOutstanding(a)

	s.ReceivedMessage(a)

	got := s.Channel()
	require.NotNil(t, got)
}

func TestScoring_ReceivedMessageSaturatesAtZero(t *testing.T) {
	s := NewScoring(scoringConfig())
	a := &fakeChannel{id: "a"}
	s.Sync([]Channel{a})

	s.ReceivedMessage(a)
	s.ReceivedMessage(a)

	assert.NotNil(t, s.Channel())
}

func TestScoring_TimeoutPrunesSilentChannels(t *testing.T) {
	cfg := scoringConfig()
	s := NewScoring(cfg)
	a := &fakeChannel{id: "a"}
	s.Sync([]Channel{a})

	time.Sleep(cfg.ScoringSilenceTimeout * 2)
	s.Timeout()

	assert.Equal(t, 0, s.Size())
}

func TestScoring_NoChannelWhenEmpty(t *testing.T) {
	s := NewScoring(scoringConfig())
	assert.Nil(t, s.Channel())
}
