package app

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/jaminalder/hyperxo/internal/domain"
	"github.com/jaminalder/hyperxo/internal/engine"
)

// Errors exposed by the service layer.
var (
	ErrNotFound         = errors.New("game not found")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrUnsupportedDepth = errors.New("unsupported depth")
	ErrAIPending        = errors.New("computer is completing its move")
)

// MoveRecord is one entry of a game's move log.
type MoveRecord struct {
	Player domain.Cell
	Board  int
	Cell   int
}

// Snapshot is a consistent copy of a session taken under its lock.
type Snapshot struct {
	ID        string
	Game      *domain.GameState
	Human     domain.Cell
	Computer  domain.Cell
	Depth     int
	Moves     []MoveRecord
	AIPending bool
	Created   time.Time
	Updated   time.Time
}

// LastMove returns the most recent move, if any.
func (s *Snapshot) LastMove() (MoveRecord, bool) {
	if len(s.Moves) == 0 {
		return MoveRecord{}, false
	}
	return s.Moves[len(s.Moves)-1], true
}

// session is guarded by mu for every read and write of the game, the engine
// and the bookkeeping fields.
type session struct {
	mu        sync.Mutex
	id        string
	game      *domain.GameState
	engine    *engine.Engine
	human     domain.Cell
	moves     []MoveRecord
	aiPending bool
	created   time.Time
	updated   time.Time
}

func (ss *session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:        ss.id,
		Game:      ss.game.Clone(),
		Human:     ss.human,
		Computer:  ss.engine.Player(),
		Depth:     ss.engine.Depth(),
		Moves:     append([]MoveRecord(nil), ss.moves...),
		AIPending: ss.aiPending,
		Created:   ss.created,
		Updated:   ss.updated,
	}
}

type subscriber struct {
	ch        chan []byte
	closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

const subscriberBuffer = 4

// Service manages game sessions, computer turns and subscribers.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*session
	subs     map[string]map[*subscriber]struct{}
	render   func(Snapshot) []byte

	depths   []int
	delayMin time.Duration
	delayMax time.Duration
	ttl      time.Duration
	now      func() time.Time
	rng      *rand.Rand
	log      zerolog.Logger

	pending sync.WaitGroup
}

// Option configures a Service.
type Option func(s *Service)

// WithRenderer sets the broadcast renderer.
func WithRenderer(renderer func(Snapshot) []byte) Option {
	return func(s *Service) { s.render = renderer }
}

// WithDepths sets the search depths a game may be created with.
func WithDepths(depths ...int) Option {
	return func(s *Service) { s.depths = append([]int(nil), depths...) }
}

// WithThinkDelay sets the range of the computer's artificial pause.
func WithThinkDelay(min, max time.Duration) Option {
	return func(s *Service) { s.delayMin, s.delayMax = min, max }
}

// WithSessionTTL sets how long an idle session survives Reap.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithSeed seeds the think-delay jitter.
func WithSeed(seed uint64) Option {
	return func(s *Service) { s.rng = rand.New(rand.NewSource(seed)) }
}

// NewService creates a service with the default depths 3, 5 and 8.
func NewService(opts ...Option) *Service {
	s := &Service{
		sessions: make(map[string]*session),
		subs:     make(map[string]map[*subscriber]struct{}),
		depths:   []int{3, 5, 8},
		delayMin: time.Second,
		delayMax: 2 * time.Second,
		ttl:      30 * time.Minute,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.render == nil {
		s.render = func(Snapshot) []byte { return nil }
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	return s
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(Snapshot) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		s.render = func(Snapshot) []byte { return nil }
		return
	}
	s.render = renderer
}

// Depths returns the allowed search depths.
func (s *Service) Depths() []int {
	return append([]int(nil), s.depths...)
}

// CreateGame registers a new game against a computer playing O at depth.
func (s *Service) CreateGame(depth int) (*Snapshot, error) {
	if !s.depthAllowed(depth) {
		return nil, errors.Wrapf(ErrUnsupportedDepth, "depth %d, choose one of %v", depth, s.depths)
	}
	now := s.now()
	ss := &session{
		id:      newGameID(),
		game:    domain.New(),
		engine:  engine.New(domain.O, depth, engine.WithLogger(s.log)),
		human:   domain.X,
		created: now,
		updated: now,
	}
	s.mu.Lock()
	s.sessions[ss.id] = ss
	s.mu.Unlock()

	s.log.Info().Str("game", ss.id).Int("depth", depth).Msg("game created")
	ss.mu.Lock()
	defer ss.mu.Unlock()
	snap := ss.snapshotLocked()
	return &snap, nil
}

func (s *Service) depthAllowed(depth int) bool {
	for _, d := range s.depths {
		if d == depth {
			return true
		}
	}
	return false
}

func (s *Service) lookup(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[id]
	return ss, ok
}

// Get returns a snapshot of the game if present.
func (s *Service) Get(id string) (*Snapshot, bool) {
	ss, ok := s.lookup(id)
	if !ok {
		return nil, false
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	snap := ss.snapshotLocked()
	return &snap, true
}

// Play applies the human's move and, when the computer is to move next,
// schedules its reply in the background.
func (s *Service) Play(id string, board, cell int) (*Snapshot, error) {
	ss, ok := s.lookup(id)
	if !ok {
		return nil, ErrNotFound
	}

	ss.mu.Lock()
	g := ss.game
	if g.Resolved() {
		ss.mu.Unlock()
		return nil, domain.ErrGameFinished
	}
	if ss.aiPending {
		ss.mu.Unlock()
		return nil, ErrAIPending
	}
	if g.CurrentPlayer() != ss.human {
		ss.mu.Unlock()
		return nil, ErrNotYourTurn
	}
	player := g.CurrentPlayer()
	if err := g.ApplyMove(board, cell); err != nil {
		ss.mu.Unlock()
		return nil, err
	}
	ss.moves = append(ss.moves, MoveRecord{Player: player, Board: board, Cell: cell})
	ss.updated = s.now()

	schedule := !g.Resolved() && g.CurrentPlayer() == ss.engine.Player()
	if schedule {
		ss.aiPending = true
		s.pending.Add(1)
	}
	snap := ss.snapshotLocked()
	ss.mu.Unlock()

	s.publish(snap)
	if schedule {
		go s.computerTurn(ss)
	}
	return &snap, nil
}

// computerTurn waits out the think delay, then searches and plays while
// holding the session lock for the whole search.
func (s *Service) computerTurn(ss *session) {
	defer s.pending.Done()
	if d := s.thinkDelay(); d > 0 {
		time.Sleep(d)
	}

	ss.mu.Lock()
	changed := s.playComputerLocked(ss)
	ss.aiPending = false
	snap := ss.snapshotLocked()
	ss.mu.Unlock()

	if changed {
		s.publish(snap)
	}
}

func (s *Service) playComputerLocked(ss *session) bool {
	g := ss.game
	if g.Resolved() || g.CurrentPlayer() != ss.engine.Player() {
		return false
	}
	res, err := ss.engine.Search(g)
	if err != nil {
		s.log.Error().Err(err).Str("game", ss.id).Msg("computer search failed")
		return false
	}
	player := g.CurrentPlayer()
	if err := g.ApplyMove(res.Move.Board, res.Move.Cell); err != nil {
		s.log.Error().Err(err).Str("game", ss.id).Msg("computer chose an illegal move")
		return false
	}
	ss.moves = append(ss.moves, MoveRecord{Player: player, Board: res.Move.Board, Cell: res.Move.Cell})
	ss.updated = s.now()
	s.log.Info().
		Str("game", ss.id).
		Int("board", res.Move.Board).
		Int("cell", res.Move.Cell).
		Float64("score", res.Score).
		Int("depth", res.Depth).
		Uint64("nodes", res.Stats.Nodes).
		Dur("elapsed", res.Elapsed).
		Msg("computer moved")
	return true
}

func (s *Service) thinkDelay() time.Duration {
	if s.delayMax <= s.delayMin {
		return s.delayMin
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delayMin + time.Duration(s.rng.Int63n(int64(s.delayMax-s.delayMin)))
}

// Wait blocks until every scheduled computer turn has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// Reap drops sessions idle for longer than the TTL and returns how many
// were removed. Sessions waiting on a computer move are kept.
func (s *Service) Reap() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, ss := range s.sessions {
		// A held session lock means a move or search is running, so it is not idle.
		if !ss.mu.TryLock() {
			continue
		}
		expired := !ss.aiPending && now.Sub(ss.updated) >= s.ttl
		ss.mu.Unlock()
		if !expired {
			continue
		}
		delete(s.sessions, id)
		for sub := range s.subs[id] {
			sub.close()
		}
		delete(s.subs, id)
		removed++
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Int("active", len(s.sessions)).Msg("reaped idle games")
	}
	return removed
}

// Run reaps idle sessions every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Reap()
		}
	}
}

// Subscribe registers a subscriber for a game. Returns a channel and an unsubscribe func.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return nil, func() {}, ErrNotFound
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, subscriberBuffer)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub, nil
}

// publish renders snap and fans it out; slow subscribers are dropped.
// Sends are non-blocking and happen under mu so they never race a close.
func (s *Service) publish(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.subs[snap.ID]
	if !ok || len(set) == 0 {
		return
	}
	payload := s.render(snap)
	for sub := range set {
		select {
		case sub.ch <- payload:
		default:
			sub.close()
			delete(set, sub)
		}
	}
}
