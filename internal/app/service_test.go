package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jaminalder/hyperxo/internal/domain"
)

// minimal renderer for tests: encode moves count as bytes
func testRenderer(snap Snapshot) []byte { return []byte(fmt.Sprintf("moves=%d", len(snap.Moves))) }

func newTestService(opts ...Option) *Service {
	base := []Option{WithRenderer(testRenderer), WithThinkDelay(0, 0), WithSeed(1)}
	return NewService(append(base, opts...)...)
}

func TestCreateAndGet(t *testing.T) {
	s := newTestService()
	snap, err := s.CreateGame(3)
	if err != nil {
		t.Fatalf("CreateGame error: %v", err)
	}
	if len(snap.ID) != 32 {
		t.Fatalf("expected 32 hex digit id, got %q", snap.ID)
	}
	if snap.Game.CurrentPlayer() != domain.X || snap.Human != domain.X || snap.Computer != domain.O {
		t.Fatalf("expected human X to move first against computer O")
	}
	if snap.Depth != 3 {
		t.Fatalf("expected depth 3, got %d", snap.Depth)
	}
	if snap.Created.IsZero() || snap.Updated.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}
	got, ok := s.Get(snap.ID)
	if !ok || got.ID != snap.ID {
		t.Fatalf("Get should find created game")
	}
	if _, ok := s.Get("missing"); ok {
		t.Fatalf("Get should not find unknown game")
	}
}

func TestCreateRejectsUnsupportedDepth(t *testing.T) {
	s := newTestService()
	for _, depth := range []int{0, 2, 4, 9} {
		if _, err := s.CreateGame(depth); !errors.Is(err, ErrUnsupportedDepth) {
			t.Fatalf("depth %d: expected ErrUnsupportedDepth, got %v", depth, err)
		}
	}
	s = newTestService(WithDepths(2))
	if _, err := s.CreateGame(2); err != nil {
		t.Fatalf("configured depth should be accepted: %v", err)
	}
}

func TestPlaySchedulesComputerReply(t *testing.T) {
	s := newTestService()
	snap, _ := s.CreateGame(3)

	after, err := s.Play(snap.ID, 0, 4)
	if err != nil {
		t.Fatalf("Play error: %v", err)
	}
	if !after.AIPending {
		t.Fatalf("computer reply should be pending after a human move")
	}
	if len(after.Moves) != 1 || after.Moves[0] != (MoveRecord{Player: domain.X, Board: 0, Cell: 4}) {
		t.Fatalf("unexpected move log %+v", after.Moves)
	}

	s.Wait()
	got, _ := s.Get(snap.ID)
	if got.AIPending {
		t.Fatalf("pending flag should clear after the computer moved")
	}
	if len(got.Moves) != 2 {
		t.Fatalf("expected 2 moves, got %d", len(got.Moves))
	}
	reply := got.Moves[1]
	if reply.Player != domain.O || reply.Board != 4 {
		t.Fatalf("computer must answer on board 4, got %+v", reply)
	}
	if got.Game.CurrentPlayer() != domain.X {
		t.Fatalf("turn should return to the human")
	}
	last, ok := got.LastMove()
	if !ok || last != reply {
		t.Fatalf("LastMove mismatch: %+v", last)
	}
}

func TestPlayRejectsWhileComputerThinking(t *testing.T) {
	s := newTestService(WithThinkDelay(200*time.Millisecond, 200*time.Millisecond))
	snap, _ := s.CreateGame(3)
	if _, err := s.Play(snap.ID, 0, 4); err != nil {
		t.Fatalf("Play error: %v", err)
	}
	if _, err := s.Play(snap.ID, 4, 0); !errors.Is(err, ErrAIPending) {
		t.Fatalf("expected ErrAIPending, got %v", err)
	}
	s.Wait()
	got, _ := s.Get(snap.ID)
	if len(got.Moves) != 2 {
		t.Fatalf("rejected move must not be recorded, got %d moves", len(got.Moves))
	}
}

func TestPlayErrors(t *testing.T) {
	s := newTestService()
	if _, err := s.Play("missing", 0, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	snap, _ := s.CreateGame(3)
	if _, err := s.Play(snap.ID, 9, 0); !errors.Is(err, domain.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := s.Play(snap.ID, 0, 4); err != nil {
		t.Fatalf("Play error: %v", err)
	}
	s.Wait()
	got, _ := s.Get(snap.ID)
	forced, ok := got.Game.ForcedBoard()
	if !ok {
		t.Fatalf("expected a forced board after the computer reply")
	}
	wrong := (forced + 1) % 9
	if _, err := s.Play(snap.ID, wrong, 0); !errors.Is(err, domain.ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove off the forced board, got %v", err)
	}
}

func TestConcurrentPlaysOnlyOneWins(t *testing.T) {
	s := newTestService(WithThinkDelay(50*time.Millisecond, 50*time.Millisecond))
	snap, _ := s.CreateGame(3)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for cell := 0; cell < 9; cell++ {
		wg.Add(1)
		go func(cell int) {
			defer wg.Done()
			if _, err := s.Play(snap.ID, 4, cell); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(cell)
	}
	wg.Wait()
	s.Wait()
	if accepted != 1 {
		t.Fatalf("exactly one concurrent move should be accepted, got %d", accepted)
	}
	got, _ := s.Get(snap.ID)
	if len(got.Moves) != 2 {
		t.Fatalf("expected human and computer move, got %d", len(got.Moves))
	}
}

func TestSubscribeReceivesBroadcast(t *testing.T) {
	s := newTestService()
	snap, _ := s.CreateGame(3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, unsub, err := s.Subscribe(ctx, snap.ID)
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	defer unsub()

	if _, err := s.Play(snap.ID, 0, 4); err != nil {
		t.Fatalf("Play error: %v", err)
	}
	for _, want := range []string{"moves=1", "moves=2"} {
		select {
		case msg := <-ch:
			if string(msg) != want {
				t.Fatalf("expected %q, got %q", want, string(msg))
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting for %q", want)
		}
	}
	s.Wait()
}

func TestSubscribeUnknownGame(t *testing.T) {
	s := newTestService()
	if _, _, err := s.Subscribe(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s := newTestService()
	snap, _ := s.CreateGame(3)
	ctx, cancel := context.WithCancel(context.Background())
	ch, _, _ := s.Subscribe(ctx, snap.ID)
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for channel close")
	}
}

func TestReapExpiresIdleSessions(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var clockMu sync.Mutex
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		clockMu.Lock()
		now = now.Add(d)
		clockMu.Unlock()
	}
	s := newTestService(WithClock(clock), WithSessionTTL(time.Minute))

	idle, _ := s.CreateGame(3)
	ch, _, _ := s.Subscribe(context.Background(), idle.ID)
	advance(30 * time.Second)
	active, _ := s.CreateGame(3)

	if n := s.Reap(); n != 0 {
		t.Fatalf("nothing should expire yet, removed %d", n)
	}
	advance(45 * time.Second)
	if n := s.Reap(); n != 1 {
		t.Fatalf("expected one expired game, removed %d", n)
	}
	if _, ok := s.Get(idle.ID); ok {
		t.Fatalf("idle game should be gone")
	}
	if _, ok := s.Get(active.ID); !ok {
		t.Fatalf("recent game should survive")
	}
	if _, ok := <-ch; ok {
		t.Fatalf("subscribers of a reaped game should be closed")
	}
}

func TestReapSkipsBusySessionWithoutStallingService(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var clockMu sync.Mutex
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return now
	}
	s := newTestService(WithClock(clock), WithSessionTTL(time.Minute))

	busy, _ := s.CreateGame(3)
	idle, _ := s.CreateGame(3)
	clockMu.Lock()
	now = now.Add(2 * time.Minute)
	clockMu.Unlock()

	// hold the session lock the way a running search does
	ss, ok := s.lookup(busy.ID)
	if !ok {
		t.Fatalf("busy game missing")
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()

	reaped := make(chan int, 1)
	go func() { reaped <- s.Reap() }()
	select {
	case n := <-reaped:
		if n != 1 {
			t.Fatalf("expected only the idle game to be reaped, removed %d", n)
		}
	case <-time.After(time.Second):
		t.Fatalf("Reap blocked on a busy session")
	}

	fresh, err := s.CreateGame(3)
	if err != nil {
		t.Fatalf("CreateGame error: %v", err)
	}
	got := make(chan bool, 1)
	go func() {
		_, ok := s.Get(fresh.ID)
		got <- ok
	}()
	select {
	case ok := <-got:
		if !ok {
			t.Fatalf("fresh game should be found")
		}
	case <-time.After(time.Second):
		t.Fatalf("Get on an unrelated game stalled")
	}
	if _, ok := s.Get(idle.ID); ok {
		t.Fatalf("idle game should be gone")
	}
	if _, ok := s.lookup(busy.ID); !ok {
		t.Fatalf("busy game should survive the reap")
	}
}
