// Package observer watches Safe transaction queues and publishes changes.
//
// Each poll takes a fresh queue snapshot per Safe and diffs it against the
// previous one. The first poll of a Safe only records a baseline. Snapshots
// live in a cache.Cache so replicas sharing Redis diff against the same
// state; delivery is at least once.
package observer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"safe-core/internal/event"
	"safe-core/internal/mq"
	"safe-core/pkg/cache"
	"safe-core/pkg/lock"
	"safe-core/pkg/logger"
	"safe-core/pkg/model"
	"safe-core/pkg/monitor"
	"safe-core/pkg/signature"
)

// Source is the read side of safeclient.Client.
type Source interface {
	AccountInfo(ctx context.Context, safe common.Address) (*model.AccountInfo, error)
	Pending(ctx context.Context, safe common.Address, fromNonce uint64) ([]model.MultisigTransaction, error)
}

type entry struct {
	Nonce         uint64 `json:"nonce"`
	Confirmations int    `json:"confirmations"`
	Ready         bool   `json:"ready"`
}

// snapshot is the pending queue of one Safe as of the last successful poll.
type snapshot map[common.Hash]entry

type Config struct {
	ChainID uint64
	Safes   []common.Address
	Topic   string
	// Workers bounds how many Safes are polled at once.
	Workers int
	// LockTTL is how long a per-Safe poll lock is held at most.
	LockTTL time.Duration
	// Snapshots holds the last queue per Safe. Replicas must share it, e.g.
	// a cache.RedisCache; nil keeps snapshots in process.
	Snapshots cache.Cache
	// SnapshotTTL bounds how long an unpolled Safe's snapshot is kept.
	SnapshotTTL time.Duration
}

type Observer struct {
	cfg      Config
	source   Source
	producer mq.Producer
	locker   lock.DistributedLock
	now      func() time.Time
}

// New builds an observer. locker may be nil for single-instance runs.
func New(cfg Config, source Source, producer mq.Producer, locker lock.DistributedLock) *Observer {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = 24 * time.Hour
	}
	if cfg.Snapshots == nil {
		cfg.Snapshots = cache.NewMemoryCache(cfg.SnapshotTTL, 10*time.Minute)
	}
	return &Observer{
		cfg:      cfg,
		source:   source,
		producer: producer,
		locker:   locker,
		now:      time.Now,
	}
}

// Tick polls every configured Safe with a bounded worker pool.
func (o *Observer) Tick(ctx context.Context) {
	jobs := make(chan common.Address)
	var wg sync.WaitGroup
	for i := 0; i < o.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for safe := range jobs {
				if _, err := o.Poll(ctx, safe); err != nil {
					logger.Warn("poll safe failed", zap.String("safe", safe.Hex()), zap.Error(err))
				}
			}
		}()
	}

	for _, safe := range o.cfg.Safes {
		select {
		case jobs <- safe:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()
}

// Poll refreshes one Safe and publishes the events it produced. It returns
// nil events without error when another instance holds the Safe's lock.
func (o *Observer) Poll(ctx context.Context, safe common.Address) ([]event.ProposalEvent, error) {
	if o.locker != nil {
		key := "observer:" + strconv.FormatUint(o.cfg.ChainID, 10) + ":" + safe.Hex()
		ok, err := o.locker.Acquire(ctx, key, o.cfg.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			logger.Debug("safe is polled by another instance", zap.String("safe", safe.Hex()))
			return nil, nil
		}
		defer func() {
			if err := o.locker.Release(context.WithoutCancel(ctx), key); err != nil {
				logger.Warn("release observer lock", zap.String("safe", safe.Hex()), zap.Error(err))
			}
		}()
	}

	start := o.now()
	info, err := o.source.AccountInfo(ctx, safe)
	if err != nil {
		return nil, err
	}
	queue, err := o.source.Pending(ctx, safe, info.Nonce)
	if err != nil {
		return nil, err
	}
	monitor.ObservePoll(o.cfg.ChainID, o.now().Sub(start).Seconds())
	monitor.SetPending(safe.Hex(), len(queue))

	current := make(snapshot, len(queue))
	for _, tx := range queue {
		current[tx.SafeTxHash] = entry{
			Nonce:         tx.Nonce,
			Confirmations: len(tx.Confirmations),
			Ready:         signature.Check(info, tx.Confirmations).Ready,
		}
	}

	key := o.snapshotKey(safe)
	var previous snapshot
	err = o.cfg.Snapshots.Get(ctx, key, &previous)
	switch {
	case errors.Is(err, cache.ErrMiss):
		if err := o.cfg.Snapshots.Set(ctx, key, current, o.cfg.SnapshotTTL); err != nil {
			return nil, fmt.Errorf("save snapshot: %w", err)
		}
		logger.Info("observer baseline", zap.String("safe", safe.Hex()), zap.Int("pending", len(queue)))
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	// The snapshot only advances once every event is out, so a failed
	// publish is retried on the next poll.
	events := o.diff(safe, info.Threshold, previous, current)
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return events, err
		}
		if err := o.producer.Publish(ctx, o.cfg.Topic, ev.SafeTxHash.Hex(), payload); err != nil {
			return events, fmt.Errorf("publish %s: %w", ev.Type, err)
		}
		monitor.IncObserverEvent(string(ev.Type))
		logger.Info("observer event",
			zap.String("type", string(ev.Type)),
			zap.String("safe", safe.Hex()),
			zap.String("safeTxHash", ev.SafeTxHash.Hex()),
			zap.Uint64("nonce", ev.Nonce),
		)
	}
	if err := o.cfg.Snapshots.Set(ctx, key, current, o.cfg.SnapshotTTL); err != nil {
		return events, fmt.Errorf("save snapshot: %w", err)
	}
	return events, nil
}

func (o *Observer) snapshotKey(safe common.Address) string {
	return "observer:snapshot:" + strconv.FormatUint(o.cfg.ChainID, 10) + ":" + safe.Hex()
}

// diff lists events ordered by nonce then hash, so a consumer sees a
// deterministic sequence.
func (o *Observer) diff(safe common.Address, threshold uint64, previous, current snapshot) []event.ProposalEvent {
	at := o.now().UTC()
	mk := func(t event.Type, hash common.Hash, e entry) event.ProposalEvent {
		return event.ProposalEvent{
			Type:          t,
			ChainID:       o.cfg.ChainID,
			Safe:          safe,
			SafeTxHash:    hash,
			Nonce:         e.Nonce,
			Confirmations: e.Confirmations,
			Threshold:     threshold,
			Ready:         e.Ready,
			ObservedAt:    at,
		}
	}

	var events []event.ProposalEvent
	for _, hash := range sortedHashes(current) {
		cur := current[hash]
		prev, existed := previous[hash]
		switch {
		case !existed:
			events = append(events, mk(event.ProposalCreated, hash, cur))
		case cur.Confirmations > prev.Confirmations:
			events = append(events, mk(event.ProposalConfirmed, hash, cur))
		}
		if cur.Ready && (!existed || !prev.Ready) {
			events = append(events, mk(event.ProposalReady, hash, cur))
		}
	}
	for _, hash := range sortedHashes(previous) {
		if _, still := current[hash]; !still {
			events = append(events, mk(event.ProposalDropped, hash, previous[hash]))
		}
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Nonce < events[j].Nonce })
	return events
}

func sortedHashes(m snapshot) []common.Hash {
	out := make([]common.Hash, 0, len(m))
	for h := range m {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}
