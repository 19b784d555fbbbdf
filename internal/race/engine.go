package race

import (
	"log"
	"sync"
	"time"

	"speedway/internal/config"
)

// Dispatcher delivers outbound events to a room's connections. An Outbound
// with an empty To goes to every member. Implemented by the websocket hub;
// tests plug in a recorder.
type Dispatcher interface {
	Dispatch(roomCode string, outs []Outbound)
}

// TickStats summarizes one tick for metrics.
type TickStats struct {
	Duration  time.Duration
	Rooms     int
	Players   int
	Obstacles int
}

// Engine is the fixed-rate driver: once per tick it advances every room's
// state machine, difficulty, obstacle window and leaderboard, then emits one
// snapshot per room. Rooms are processed independently; each locks only
// itself.
type Engine struct {
	mu       sync.Mutex
	cfg      config.RaceConfig
	store    *Store
	journal  *Journal
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	dispatcher Dispatcher

	// OnTickStats, when set, is called after every tick with timing and
	// population counters. Wired to prometheus by main.
	OnTickStats func(TickStats)
}

// NewEngine creates an engine over the given store. The dispatcher may be
// nil until SetDispatcher is called; events produced before then are
// dropped.
func NewEngine(cfg config.RaceConfig, store *Store, journal *Journal) *Engine {
	return &Engine{
		cfg:      cfg,
		store:    store,
		journal:  journal,
		stopChan: make(chan struct{}),
	}
}

// Store exposes the room store for read-only surfaces.
func (e *Engine) Store() *Store { return e.store }

// SetDispatcher wires the transport that delivers outbound events.
func (e *Engine) SetDispatcher(d Dispatcher) { e.dispatcher = d }

// Start begins the tick loop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	e.ticker = time.NewTicker(time.Second / time.Duration(e.cfg.TickRate))

	go func() {
		for {
			select {
			case <-e.ticker.C:
				e.tick()
			case <-e.stopChan:
				return
			}
		}
	}()

	log.Printf("🏁 Race engine started at %d TPS", e.cfg.TickRate)
}

// Stop halts the tick loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("🛑 Race engine stopped")
}

// tick advances every room once and broadcasts its snapshot.
func (e *Engine) tick() {
	start := time.Now()
	stats := TickStats{}

	e.store.ForEach(func(r *Room) {
		outs := r.Tick(start)
		e.dispatch(r.Code(), outs)

		stats.Rooms++
		members, obstacles := r.counts()
		stats.Players += members
		stats.Obstacles += obstacles
	})

	stats.Duration = time.Since(start)
	if e.OnTickStats != nil {
		e.OnTickStats(stats)
	}
}

// Join admits a connection into the room for code, creating the room on the
// first join of that code.
func (e *Engine) Join(code, connID, name string) error {
	room, err := e.store.GetOrCreate(code)
	if err != nil {
		return err
	}

	outs, err := room.Join(connID, name, time.Now())
	if err != nil {
		// A failed first join must not leave an orphaned empty room.
		if room.MemberCount() == 0 {
			e.store.Remove(code)
		}
		return err
	}

	e.journal.Emit(JournalJoin, code, connID, name)
	log.Printf("👤 %s joined room %s", name, code)
	e.dispatch(code, outs)
	return nil
}

// Disconnect removes a connection's membership and player state atomically.
// The room is destroyed in the same operation when its last member leaves.
func (e *Engine) Disconnect(code, connID string) {
	room := e.store.Get(code)
	if room == nil {
		return // Benign: teardown raced the disconnect
	}

	outs, empty := room.Leave(connID, time.Now())
	if empty {
		e.store.Remove(code)
		log.Printf("🚪 Room %s destroyed (last member left)", code)
	}

	e.journal.Emit(JournalLeave, code, connID, "")
	e.dispatch(code, outs)
}

// SetDistance forwards a host's distance change.
func (e *Engine) SetDistance(code, connID string, meters float64) error {
	room := e.store.Get(code)
	if room == nil {
		return ErrRoomNotFound
	}
	outs, err := room.SetDistance(connID, meters)
	if err != nil {
		return err
	}
	e.dispatch(code, outs)
	return nil
}

// StartRace forwards a host's start command.
func (e *Engine) StartRace(code, connID string) error {
	room := e.store.Get(code)
	if room == nil {
		return ErrRoomNotFound
	}
	outs, err := room.Start(connID, time.Now())
	if err != nil {
		return err
	}
	log.Printf("🏁 Room %s: countdown started", code)
	e.dispatch(code, outs)
	return nil
}

// TogglePause forwards a host's pause/resume command.
func (e *Engine) TogglePause(code, connID string) error {
	room := e.store.Get(code)
	if room == nil {
		return ErrRoomNotFound
	}
	outs, err := room.TogglePause(connID, time.Now())
	if err != nil {
		return err
	}
	e.dispatch(code, outs)
	return nil
}

// Restart forwards a host's restart command.
func (e *Engine) Restart(code, connID string) error {
	room := e.store.Get(code)
	if room == nil {
		return ErrRoomNotFound
	}
	outs, err := room.Restart(connID, time.Now())
	if err != nil {
		return err
	}
	e.dispatch(code, outs)
	return nil
}

// Update forwards a player's intent report.
func (e *Engine) Update(code, connID string, upd PlayerUpdate) error {
	room := e.store.Get(code)
	if room == nil {
		return ErrRoomNotFound
	}
	outs, err := room.ApplyUpdate(connID, upd, time.Now())
	if err != nil {
		return err
	}
	e.dispatch(code, outs)
	return nil
}

// Collision forwards a client-reported collision.
func (e *Engine) Collision(code, connID string) error {
	room := e.store.Get(code)
	if room == nil {
		return ErrRoomNotFound
	}
	outs, err := room.ReportCollision(connID, time.Now())
	if err != nil {
		return err
	}
	e.dispatch(code, outs)
	return nil
}

// dispatch hands events to the transport and mirrors race milestones into
// the journal.
func (e *Engine) dispatch(code string, outs []Outbound) {
	if len(outs) == 0 {
		return
	}

	for _, o := range outs {
		switch o.Event.Name {
		case EvtRaceStarted:
			e.journal.Emit(JournalRaceStart, code, "", "")
			log.Printf("🏎️ Room %s: race started", code)
		case EvtRacePaused:
			e.journal.Emit(JournalRacePause, code, "", "")
		case EvtRaceResumed:
			e.journal.Emit(JournalRaceResume, code, "", "")
		case EvtPlayerFinished:
			if p, ok := o.Event.Data.(PlayerFinishedPayload); ok {
				e.journal.Emit(JournalPlayerFinish, code, p.PlayerID, p.Name)
				log.Printf("🏆 Room %s: %s finished #%d (%dms)", code, p.Name, p.Position, p.FinishTimeMs)
			}
		case EvtRaceFinished:
			e.journal.Emit(JournalRaceFinish, code, "", "")
			log.Printf("🏆 Room %s: race finished", code)
		case EvtGameRestarted:
			e.journal.Emit(JournalRestart, code, "", "")
		}
	}

	if e.dispatcher != nil {
		e.dispatcher.Dispatch(code, outs)
	}
}
