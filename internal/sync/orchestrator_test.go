package sync

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/blockcursor/zsync/internal/decode"
	"github.com/blockcursor/zsync/internal/model"
	"github.com/blockcursor/zsync/internal/rpcnode"
	"go.uber.org/zap"
)

// fakeNode serves a fixed tip and a coinbase-only block for every height
// up to that tip, so a downloaded chunk always decodes cleanly.
type fakeNode struct {
	mu        sync.Mutex
	tip       int64
	tipErr    error
	missing   map[uint64]bool
	callCount int
}

func (f *fakeNode) BlockCount() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	return f.tip, f.tipErr
}

func (f *fakeNode) Block(height uint64) (*rpcnode.RawBlock, error) {
	f.mu.Lock()
	missing := f.missing[height]
	f.mu.Unlock()
	if missing {
		return nil, errors.New("node unavailable")
	}
	coinbase := "deadbeef"
	return &rpcnode.RawBlock{
		Hash:   hashFor(height),
		Height: height,
		Tx: []*rpcnode.RawTransaction{
			{
				Txid: "tx-" + hashFor(height),
				Vin:  []rpcnode.RawVin{{Coinbase: &coinbase}},
				Vout: []rpcnode.RawVout{{N: 0, Value: 6.25}},
			},
		},
	}, nil
}

func hashFor(height uint64) string {
	return "h" + string(rune('0'+height%10))
}

type fakeLookup struct{}

func (fakeLookup) Lookup(context.Context, string, uint32) (float64, []string, bool, error) {
	return 0, nil, false, nil
}

// fakeStore implements Persister, CheckpointStore, Cursor and
// MissedHeightRecorder against in-memory state, guarded by a single mutex.
type fakeStore struct {
	mu          sync.Mutex
	latest      uint64
	checkpoints map[uint64]*model.Checkpoint
	persisted   []uint64
	missed      []uint64
	persistErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{checkpoints: map[uint64]*model.Checkpoint{}}
}

func (s *fakeStore) PersistChunk(ctx context.Context, plan ChunkPlan, blocks []*decode.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persistErr != nil {
		return s.persistErr
	}

	for _, c := range blocks {
		if c == nil || c.Block.Height < plan.ResumeFrom {
			continue
		}
		s.persisted = append(s.persisted, c.Block.Height)
		if c.Block.Height > s.latest {
			s.latest = c.Block.Height
		}
	}
	delete(s.checkpoints, plan.ChunkStart)
	return nil
}

func (s *fakeStore) GetCheckpoint(ctx context.Context, chunkStart uint64) (*model.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cp, ok := s.checkpoints[chunkStart]; ok {
		copied := *cp
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeStore) CreateCheckpointIfAbsent(ctx context.Context, chunkStart, chunkEnd uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.checkpoints[chunkStart]; ok {
		return nil
	}
	s.checkpoints[chunkStart] = &model.Checkpoint{
		ChunkStart:    chunkStart,
		ChunkEnd:      chunkEnd,
		LastCommitted: int64(chunkStart) - 1,
	}
	return nil
}

func (s *fakeStore) FinishCheckpoint(ctx context.Context, chunkStart uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, chunkStart)
	return nil
}

func (s *fakeStore) ListUnfinishedCheckpoints(ctx context.Context) ([]model.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Checkpoint, 0, len(s.checkpoints))
	for _, cp := range s.checkpoints {
		out = append(out, *cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkStart > out[j].ChunkStart })
	return out, nil
}

func (s *fakeStore) LatestSynced(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, nil
}

func (s *fakeStore) AddMissedHeight(ctx context.Context, height uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missed = append(s.missed, height)
	return nil
}

func newTestOrchestrator(node *fakeNode, store *fakeStore, chunkSize uint64) *Orchestrator {
	o := New(
		Config{ChunkSize: chunkSize, MaxConcurrent: 2, SyncInterval: time.Hour, TipRetryInterval: time.Millisecond},
		node, fakeLookup{}, store, store, store, store,
		nil, NewControl(), zap.NewNop(),
	)
	o.sleep = func(context.Context, time.Duration) error { return nil }
	return o
}

func TestOrchestrator_ListSyncBelowChunkSize(t *testing.T) {
	node := &fakeNode{tip: 3}
	store := newFakeStore()
	o := newTestOrchestrator(node, store, 200)

	if err := o.Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if store.latest != 3 {
		t.Fatalf("latest = %d, want 3", store.latest)
	}
	if len(store.checkpoints) != 0 {
		t.Fatalf("expected no checkpoints for a list-sync path, got %d", len(store.checkpoints))
	}
}

func TestOrchestrator_RangeSyncAboveChunkSize(t *testing.T) {
	node := &fakeNode{tip: 9}
	store := newFakeStore()
	o := newTestOrchestrator(node, store, 4)

	if err := o.Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if store.latest != 9 {
		t.Fatalf("latest = %d, want 9", store.latest)
	}
	if len(store.checkpoints) != 0 {
		t.Fatalf("expected every checkpoint finished, got %d remaining", len(store.checkpoints))
	}
}

func TestOrchestrator_ResumesUnfinishedCheckpointBeforeNewWork(t *testing.T) {
	node := &fakeNode{tip: 9}
	store := newFakeStore()
	store.checkpoints[0] = &model.Checkpoint{ChunkStart: 0, ChunkEnd: 3, LastCommitted: 1}
	store.latest = 7

	o := newTestOrchestrator(node, store, 4)

	if err := o.Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	found := map[uint64]bool{}
	for _, h := range store.persisted {
		found[h] = true
	}
	for _, want := range []uint64{2, 3, 8, 9} {
		if !found[want] {
			t.Fatalf("expected height %d to be persisted, got %v", want, store.persisted)
		}
	}
	if found[0] || found[1] {
		t.Fatalf("resumed checkpoint must skip already-committed heights 0,1: %v", store.persisted)
	}
}

func TestOrchestrator_NoopWhenAlreadySynced(t *testing.T) {
	node := &fakeNode{tip: 5}
	store := newFakeStore()
	store.latest = 5
	o := newTestOrchestrator(node, store, 200)

	if err := o.Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if len(store.persisted) != 0 {
		t.Fatalf("expected no work, got %v", store.persisted)
	}
}

func TestOrchestrator_ConcurrentSyncReturnsImmediately(t *testing.T) {
	node := &fakeNode{tip: 1}
	store := newFakeStore()
	o := newTestOrchestrator(node, store, 200)

	o.syncing.Store(true)
	if err := o.Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if len(store.persisted) != 0 {
		t.Fatalf("expected the second Sync to no-op while one is in progress, got %v", store.persisted)
	}
}

func TestOrchestrator_TipRetriesOnUnready(t *testing.T) {
	node := &fakeNode{tip: 0, tipErr: &rpcnode.TipUnreadyError{Err: errors.New("Loading block index")}}
	store := newFakeStore()
	o := newTestOrchestrator(node, store, 200)

	attempts := 0
	o.sleep = func(context.Context, time.Duration) error {
		attempts++
		if attempts == 2 {
			node.mu.Lock()
			node.tipErr = nil
			node.tip = 0
			node.mu.Unlock()
		}
		return nil
	}

	if err := o.Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if attempts < 2 {
		t.Fatalf("expected at least 2 retry sleeps, got %d", attempts)
	}
}

func TestOrchestrator_FatalRpcErrorStopsRunLoop(t *testing.T) {
	node := &fakeNode{tip: 0, tipErr: &rpcnode.FatalRpcError{Err: errors.New("boom")}}
	store := newFakeStore()
	o := newTestOrchestrator(node, store, 200)

	err := o.RunLoop(context.Background())
	var fatal *rpcnode.FatalRpcError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected RunLoop to return a FatalRpcError, got %v", err)
	}
}

func TestOrchestrator_MissedHeightsRecorded(t *testing.T) {
	node := &fakeNode{tip: 3, missing: map[uint64]bool{2: true}}
	store := newFakeStore()
	o := newTestOrchestrator(node, store, 200)

	if err := o.Sync(context.Background()); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if len(store.missed) != 1 || store.missed[0] != 2 {
		t.Fatalf("expected height 2 recorded as missed, got %v", store.missed)
	}
}
