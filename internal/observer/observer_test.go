package observer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safe-core/internal/event"
	"safe-core/internal/mq"
	"safe-core/pkg/cache"
	"safe-core/pkg/lock"
	"safe-core/pkg/model"
)

var (
	safeA  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	safeB  = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	owner1 = common.HexToAddress("0x0000000000000000000000000000000000000001")
	owner2 = common.HexToAddress("0x0000000000000000000000000000000000000002")
	owner3 = common.HexToAddress("0x0000000000000000000000000000000000000003")
)

type fakeSource struct {
	mu    sync.Mutex
	queue map[common.Address][]model.MultisigTransaction
	polls int
}

func (f *fakeSource) AccountInfo(_ context.Context, safe common.Address) (*model.AccountInfo, error) {
	return &model.AccountInfo{
		Address:   safe,
		Nonce:     10,
		Threshold: 2,
		Owners:    []common.Address{owner1, owner2, owner3},
		Version:   "1.3.0",
	}, nil
}

func (f *fakeSource) Pending(_ context.Context, safe common.Address, _ uint64) ([]model.MultisigTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	return append([]model.MultisigTransaction(nil), f.queue[safe]...), nil
}

func (f *fakeSource) set(safe common.Address, txs ...model.MultisigTransaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queue == nil {
		f.queue = map[common.Address][]model.MultisigTransaction{}
	}
	f.queue[safe] = txs
}

func proposal(nonce uint64, hash string, signers ...common.Address) model.MultisigTransaction {
	tx := model.MultisigTransaction{Nonce: nonce, SafeTxHash: common.HexToHash(hash)}
	for _, s := range signers {
		tx.Confirmations = append(tx.Confirmations, model.Confirmation{Owner: s, SignatureType: model.SignatureEOA})
	}
	return tx
}

func types(events []event.ProposalEvent) []event.Type {
	var out []event.Type
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestPollLifecycle(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{}
	producer := mq.NewMemoryProducer()
	o := New(Config{ChainID: 1, Safes: []common.Address{safeA}, Topic: "safe_events"}, src, producer, nil)

	src.set(safeA, proposal(10, "0x10", owner1))
	events, err := o.Poll(ctx, safeA)
	require.NoError(t, err)
	assert.Empty(t, events, "first poll is a baseline")

	src.set(safeA, proposal(10, "0x10", owner1), proposal(11, "0x11", owner2))
	events, err = o.Poll(ctx, safeA)
	require.NoError(t, err)
	assert.Equal(t, []event.Type{event.ProposalCreated}, types(events))
	assert.Equal(t, uint64(11), events[0].Nonce)

	src.set(safeA, proposal(10, "0x10", owner1, owner2), proposal(11, "0x11", owner2))
	events, err = o.Poll(ctx, safeA)
	require.NoError(t, err)
	assert.Equal(t, []event.Type{event.ProposalConfirmed, event.ProposalReady}, types(events))
	assert.True(t, events[1].Ready)
	assert.Equal(t, 2, events[1].Confirmations)

	// Nothing changed.
	events, err = o.Poll(ctx, safeA)
	require.NoError(t, err)
	assert.Empty(t, events)

	src.set(safeA, proposal(11, "0x11", owner2))
	events, err = o.Poll(ctx, safeA)
	require.NoError(t, err)
	assert.Equal(t, []event.Type{event.ProposalDropped}, types(events))
	assert.Equal(t, common.HexToHash("0x10"), events[0].SafeTxHash)

	msgs := producer.Messages()
	require.Len(t, msgs, 4)
	for _, m := range msgs {
		assert.Equal(t, "safe_events", m.Topic)
	}
	var decoded event.ProposalEvent
	require.NoError(t, json.Unmarshal(msgs[2].Payload, &decoded))
	assert.Equal(t, event.ProposalReady, decoded.Type)
	assert.Equal(t, safeA, decoded.Safe)
	assert.Equal(t, common.HexToHash("0x10").Hex(), msgs[2].Key)
}

func TestForeignSignerNeverReady(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{}
	o := New(Config{ChainID: 1}, src, mq.NewMemoryProducer(), nil)
	stranger := common.HexToAddress("0x00000000000000000000000000000000000000ff")

	src.set(safeA)
	_, err := o.Poll(ctx, safeA)
	require.NoError(t, err)

	src.set(safeA, proposal(10, "0x10", owner1, stranger))
	events, err := o.Poll(ctx, safeA)
	require.NoError(t, err)
	assert.Equal(t, []event.Type{event.ProposalCreated}, types(events))
	assert.False(t, events[0].Ready)
}

func TestPollSkipsLockedSafe(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{}
	l := lock.NewMemoryLock()
	o := New(Config{ChainID: 1}, src, mq.NewMemoryProducer(), l)

	ok, err := l.Acquire(ctx, "observer:1:"+safeA.Hex(), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	events, err := o.Poll(ctx, safeA)
	require.NoError(t, err)
	assert.Nil(t, events)
	assert.Equal(t, 0, src.polls)

	require.NoError(t, l.Release(ctx, "observer:1:"+safeA.Hex()))
	_, err = o.Poll(ctx, safeA)
	require.NoError(t, err)
	assert.Equal(t, 1, src.polls)
}

func TestTickPollsEverySafe(t *testing.T) {
	src := &fakeSource{}
	o := New(Config{ChainID: 1, Safes: []common.Address{safeA, safeB}, Workers: 2}, src, mq.NewMemoryProducer(), lock.NewMemoryLock())
	o.Tick(context.Background())
	assert.Equal(t, 2, src.polls)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(New(Config{}, &fakeSource{}, mq.NewMemoryProducer(), nil))
	assert.Error(t, s.Start(context.Background(), "not a schedule"))
}

func TestSchedulerTicks(t *testing.T) {
	src := &fakeSource{}
	s := NewScheduler(New(Config{ChainID: 1, Safes: []common.Address{safeA}}, src, mq.NewMemoryProducer(), nil))
	require.NoError(t, s.Start(context.Background(), "@every 1s"))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.polls > 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestReplicasPublishOnce(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{}
	shared := cache.NewMemoryCache(time.Hour, time.Minute)
	l := lock.NewMemoryLock()
	producer := mq.NewMemoryProducer()
	cfg := Config{ChainID: 1, Topic: "safe_events", Snapshots: shared}
	a := New(cfg, src, producer, l)
	b := New(cfg, src, producer, l)

	src.set(safeA, proposal(10, "0x10", owner1))
	_, err := a.Poll(ctx, safeA)
	require.NoError(t, err)
	_, err = b.Poll(ctx, safeA)
	require.NoError(t, err)
	assert.Empty(t, producer.Messages(), "baseline is shared")

	src.set(safeA, proposal(10, "0x10", owner1), proposal(11, "0x11", owner2))
	events, err := a.Poll(ctx, safeA)
	require.NoError(t, err)
	assert.Equal(t, []event.Type{event.ProposalCreated}, types(events))
	events, err = b.Poll(ctx, safeA)
	require.NoError(t, err)
	assert.Empty(t, events)

	msgs := producer.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, common.HexToHash("0x11").Hex(), msgs[0].Key)
}

// flakyProducer fails the first n publishes.
type flakyProducer struct {
	*mq.MemoryProducer
	failures int
}

func (p *flakyProducer) Publish(ctx context.Context, topic, key string, payload []byte) error {
	if p.failures > 0 {
		p.failures--
		return errors.New("broker down")
	}
	return p.MemoryProducer.Publish(ctx, topic, key, payload)
}

func TestFailedPublishIsRetried(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{}
	producer := &flakyProducer{MemoryProducer: mq.NewMemoryProducer()}
	o := New(Config{ChainID: 1, Topic: "safe_events"}, src, producer, nil)

	src.set(safeA)
	_, err := o.Poll(ctx, safeA)
	require.NoError(t, err)

	src.set(safeA, proposal(10, "0x10", owner1))
	producer.failures = 1
	_, err = o.Poll(ctx, safeA)
	require.Error(t, err)
	assert.Empty(t, producer.Messages())

	events, err := o.Poll(ctx, safeA)
	require.NoError(t, err)
	assert.Equal(t, []event.Type{event.ProposalCreated}, types(events))
	require.Len(t, producer.Messages(), 1)

	events, err = o.Poll(ctx, safeA)
	require.NoError(t, err)
	assert.Empty(t, events)
}
