package race

import (
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"speedway/internal/config"
)

// Member is one entry in a room's join-ordered member list.
type Member struct {
	ID   string
	Name string
}

// PlayerUpdate is a client's per-frame intent report.
type PlayerUpdate struct {
	LateralPosition float64 `json:"lateralPosition"`
	WorldY          float64 `json:"worldY"`
	DistanceMeters  float64 `json:"distanceMeters"`
	Stunned         bool    `json:"stunned"`
}

// Room is one isolated race instance. All mutation goes through its mutex:
// intent events and the tick driver each take the lock for the duration of
// one atomic update, so no two tasks ever mutate a room concurrently and
// rooms never block each other.
type Room struct {
	mu     sync.Mutex
	cfg    config.RaceConfig
	limits config.ResourceLimits
	rng    *rand.Rand

	code    string
	members []Member // join order
	players map[string]*Player
	hostID  string

	state              State
	raceDistanceMeters float64

	// Difficulty state, trends toward caps while racing.
	gameSpeed      float64
	roadWidth      float64
	lastRoadGrowth time.Time

	// Obstacle window.
	obstacles       []*Obstacle
	nextObstacleID  int // monotonic, never reused
	lastSpawnWorldY float64
	spawnCursorSet  bool

	// Timing.
	countdownStartedAt time.Time
	lastCountdownValue int
	raceStartedAt      time.Time
	pausedAt           time.Time

	finishOrder []string // append-only within one race
}

// NewRoom creates an empty waiting room.
func NewRoom(code string, cfg config.RaceConfig, limits config.ResourceLimits) *Room {
	return &Room{
		cfg:                cfg,
		limits:             limits,
		rng:                rand.New(rand.NewSource(time.Now().UnixNano())),
		code:               code,
		players:            make(map[string]*Player),
		state:              StateWaiting,
		raceDistanceMeters: cfg.DefaultDistanceMeters,
		gameSpeed:          cfg.BaseSpeed,
		roadWidth:          cfg.BaseRoadWidth,
	}
}

// Code returns the room's shareable code.
func (r *Room) Code() string { return r.code }

// MemberCount returns the current number of members.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// State returns the current race state.
func (r *Room) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// HostID returns the connection id holding authority over this room.
func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// counts returns member and obstacle counts for metrics.
func (r *Room) counts() (members, obstacles int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members), len(r.obstacles)
}

// SnapshotNow builds a point-in-time snapshot for read-only surfaces.
func (r *Room) SnapshotNow(now time.Time) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buildSnapshot(now)
}

// Join admits a new member. The first joiner becomes host. Joins are
// rejected while a race is underway; a finished room behaves like a waiting
// room until the host restarts it.
func (r *Room) Join(connID, name string, now time.Time) ([]Outbound, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if len(name) > r.limits.MaxNameLength {
		name = name[:r.limits.MaxNameLength]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.state.AcceptsJoins() {
		return nil, ErrRaceInProgress
	}
	if len(r.members) >= r.limits.MaxPlayersPerRoom {
		return nil, ErrRoomFull
	}

	slot := len(r.members)
	p := newPlayer(connID, name, slot, r.cfg.GridColumns, r.cfg.GridRowSpacingPx)

	// members and players always hold the same id set; update both here.
	r.members = append(r.members, Member{ID: connID, Name: name})
	r.players[connID] = p
	if r.hostID == "" {
		r.hostID = connID
	}

	return []Outbound{
		toConn(connID, EvtJoined, JoinedPayload{
			RoomCode: r.code,
			PlayerID: connID,
			IsHost:   r.hostID == connID,
			Snapshot: r.buildSnapshot(now),
		}),
		toRoom(EvtUserJoined, UserJoinedPayload{
			PlayerID: connID,
			Name:     name,
			Color:    p.Color,
		}),
	}, nil
}

// Leave removes a member and its player state together, as one atomic
// update. No rollback of prior effects: obstacles the player caused to spawn
// remain. Returns empty=true when the last member left and the room must be
// destroyed by the store in the same operation.
func (r *Room) Leave(connID string, now time.Time) (outs []Outbound, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, m := range r.members {
		if m.ID == connID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, len(r.members) == 0
	}

	name := r.members[idx].Name
	r.members = append(r.members[:idx], r.members[idx+1:]...)
	delete(r.players, connID)

	if len(r.members) == 0 {
		return nil, true
	}

	payload := UserLeftPayload{PlayerID: connID, Name: name}
	if r.hostID == connID && r.cfg.PromoteHostOnLeave {
		r.hostID = r.members[0].ID
		payload.NewHostID = r.hostID
	}
	outs = append(outs, toRoom(EvtUserLeft, payload))

	// The departed player may have been the last one still racing. This
	// must also cover Paused: resuming never re-checks completion, so a
	// paused room whose last unfinished player left would otherwise resume
	// into a race nobody can end.
	if (r.state == StateRacing || r.state == StatePaused) && r.allFinished() {
		outs = append(outs, r.finishRace()...)
	}

	return outs, false
}

// SetDistance changes the race distance. Host-only, waiting-only. An
// out-of-range value is clamped rather than rejected.
func (r *Room) SetDistance(connID string, meters float64) ([]Outbound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if connID != r.hostID {
		return nil, ErrNotHost
	}
	if r.state != StateWaiting {
		return nil, ErrWrongState
	}

	meters = math.Min(math.Max(meters, r.cfg.MinDistanceMeters), r.cfg.MaxDistanceMeters)
	r.raceDistanceMeters = meters

	return []Outbound{toRoom(EvtDistanceChanged, DistanceChangedPayload{DistanceMeters: meters})}, nil
}

// Start begins the countdown. Host-only, waiting-only, needs at least two
// players. The countdown itself is advanced by the tick driver.
func (r *Room) Start(connID string, now time.Time) ([]Outbound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if connID != r.hostID {
		return nil, ErrNotHost
	}
	if r.state != StateWaiting {
		return nil, ErrWrongState
	}
	if len(r.players) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	r.state = StateCountdown
	r.countdownStartedAt = now
	r.lastCountdownValue = 0
	return nil, nil
}

// TogglePause flips between racing and paused. Host-only. Resuming shifts
// raceStartedAt forward by the paused duration so elapsed race time stays a
// plain now-start subtraction and pause is free time.
func (r *Room) TogglePause(connID string, now time.Time) ([]Outbound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if connID != r.hostID {
		return nil, ErrNotHost
	}

	switch r.state {
	case StateRacing:
		r.state = StatePaused
		r.pausedAt = now
		return []Outbound{toRoom(EvtRacePaused, nil)}, nil
	case StatePaused:
		r.raceStartedAt = r.raceStartedAt.Add(now.Sub(r.pausedAt))
		r.state = StateRacing
		return []Outbound{toRoom(EvtRaceResumed, nil)}, nil
	default:
		return nil, ErrWrongState
	}
}

// Restart returns a finished room to waiting: every player back on its grid
// slot, obstacles and finish order cleared, difficulty reset. Tolerated as a
// no-op while already waiting.
func (r *Room) Restart(connID string, now time.Time) ([]Outbound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if connID != r.hostID {
		return nil, ErrNotHost
	}
	if r.state == StateWaiting {
		return nil, nil
	}
	if r.state != StateFinished {
		return nil, ErrWrongState
	}

	for _, p := range r.players {
		p.ResetToGrid()
	}
	r.obstacles = r.obstacles[:0]
	r.lastSpawnWorldY = 0
	r.spawnCursorSet = false
	r.finishOrder = r.finishOrder[:0]
	r.resetDifficulty(now)
	r.state = StateWaiting

	return []Outbound{toRoom(EvtGameRestarted, nil)}, nil
}

// ApplyUpdate applies a client intent report. Accepted only while racing and
// the sender has not finished; otherwise silently dropped so stale packets
// around state changes stay harmless. Fields are last-write-wins; distance
// is kept monotonic.
func (r *Room) ApplyUpdate(connID string, upd PlayerUpdate, now time.Time) ([]Outbound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[connID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	if r.state != StateRacing || p.Finished {
		return nil, nil
	}

	p.LateralPosition = math.Min(math.Max(upd.LateralPosition, 0), 1)
	p.WorldY = upd.WorldY
	if upd.DistanceMeters > p.DistanceMeters {
		p.DistanceMeters = upd.DistanceMeters
	}
	// A self-reported stun flag is treated like a collision report; the
	// server still owns the expiry.
	if upd.Stunned {
		p.Stun(now, r.cfg.StunDuration)
	}

	return r.checkFinish(p, now), nil
}

// ReportCollision stuns the sender for the configured duration. Idempotent
// while a stun is already active.
func (r *Room) ReportCollision(connID string, now time.Time) ([]Outbound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[connID]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	p.Stun(now, r.cfg.StunDuration)
	return nil, nil
}

// Tick advances the room by one fixed-rate step and emits the snapshot.
// Order is fixed: countdown advance, stun expiry, difficulty, obstacle
// window, then snapshot (which recomputes the leaderboard).
func (r *Room) Tick(now time.Time) []Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	var outs []Outbound

	if r.state == StateCountdown {
		outs = append(outs, r.advanceCountdown(now)...)
	}

	if r.state == StateRacing {
		for _, p := range r.players {
			p.expireStun(now)
		}
		r.advanceDifficulty(now)
		r.spawnObstacles()
	}

	// Despawn runs in every state so leftovers clear after a finish.
	r.despawnObstacles()

	outs = append(outs, toRoom(EvtGameState, r.buildSnapshot(now)))
	return outs
}

// advanceCountdown emits the remaining whole seconds when the value changes
// and flips to racing once the countdown has elapsed.
func (r *Room) advanceCountdown(now time.Time) []Outbound {
	elapsed := now.Sub(r.countdownStartedAt)
	if elapsed >= r.cfg.CountdownDuration() {
		r.state = StateRacing
		r.raceStartedAt = now
		r.resetDifficulty(now)
		return []Outbound{toRoom(EvtRaceStarted, RaceStartedPayload{DistanceMeters: r.raceDistanceMeters})}
	}

	remaining := int(math.Ceil((r.cfg.CountdownDuration() - elapsed).Seconds()))
	if remaining != r.lastCountdownValue {
		r.lastCountdownValue = remaining
		return []Outbound{toRoom(EvtCountdown, CountdownPayload{Value: remaining})}
	}
	return nil
}
