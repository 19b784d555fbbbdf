package race

// Outbound events produced by the core. The transport layer serializes them
// as {"event": name, "data": payload}; the core never touches bytes.

// Event is a single outbound message.
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data,omitempty"`
}

// Outbound pairs an event with its destination. An empty To means the whole
// room; otherwise it targets one connection.
type Outbound struct {
	To    string
	Event Event
}

// Event names on the wire.
const (
	EvtJoined          = "joined"
	EvtUserJoined      = "user:joined"
	EvtUserLeft        = "user:left"
	EvtDistanceChanged = "race:distance"
	EvtCountdown       = "race:countdown"
	EvtRaceStarted     = "race:started"
	EvtRacePaused      = "race:paused"
	EvtRaceResumed     = "race:resumed"
	EvtPlayerFinished  = "player:finished"
	EvtRaceFinished    = "race:finished"
	EvtGameRestarted   = "game:restarted"
	EvtGameState       = "game:state"
	EvtError           = "error"
)

// JoinedPayload is sent to the joining connection itself.
type JoinedPayload struct {
	RoomCode string   `json:"roomCode"`
	PlayerID string   `json:"playerId"`
	IsHost   bool     `json:"isHost"`
	Snapshot Snapshot `json:"snapshot"`
}

// UserJoinedPayload announces a new member to the rest of the room.
type UserJoinedPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Color    string `json:"color"`
}

// UserLeftPayload announces a departure, including any host promotion.
type UserLeftPayload struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	NewHostID string `json:"newHostId,omitempty"`
}

// DistanceChangedPayload carries the (clamped) race distance.
type DistanceChangedPayload struct {
	DistanceMeters float64 `json:"distanceMeters"`
}

// CountdownPayload carries the remaining whole seconds, emitted on change.
type CountdownPayload struct {
	Value int `json:"value"`
}

// RaceStartedPayload announces the countdown-to-racing transition.
type RaceStartedPayload struct {
	DistanceMeters float64 `json:"distanceMeters"`
}

// PlayerFinishedPayload announces a single finish-line crossing.
type PlayerFinishedPayload struct {
	PlayerID     string `json:"playerId"`
	Name         string `json:"name"`
	Position     int    `json:"position"`
	FinishTimeMs int64  `json:"finishTimeMs"`
}

// RaceFinishedPayload carries the final standings once everyone is done.
type RaceFinishedPayload struct {
	Results []FinishResult `json:"results"`
}

// FinishResult is one row of the final standings, ordered by position.
type FinishResult struct {
	PlayerID     string `json:"playerId"`
	Name         string `json:"name"`
	Position     int    `json:"position"`
	FinishTimeMs int64  `json:"finishTimeMs"`
}

// ErrorPayload carries a human-readable rejection reason.
type ErrorPayload struct {
	Message string `json:"message"`
}

func toRoom(name string, data interface{}) Outbound {
	return Outbound{Event: Event{Name: name, Data: data}}
}

func toConn(connID, name string, data interface{}) Outbound {
	return Outbound{To: connID, Event: Event{Name: name, Data: data}}
}
