package game

// Outbound event types broadcast to every member of a room.
const (
	EventPlayerList       = "playerList"
	EventHostChanged      = "hostChanged"
	EventMatchStarted     = "matchStarted"
	EventTimerUpdate      = "timerUpdate"
	EventCodeSubmitted    = "codeSubmitted"
	EventExecutionStarted = "executionStarted"
	EventPositionUpdated  = "positionUpdated"
	EventPlayerEliminated = "playerEliminated"
	EventRoundRestarted   = "roundRestarted"
	EventGameOver         = "gameOver"
	EventLevelStarted     = "levelStarted"
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type PlayerSummary struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type PlayerState struct {
	Id                  string  `json:"id"`
	Name                string  `json:"name"`
	Color               string  `json:"color"`
	IsHost              bool    `json:"isHost"`
	IsReady             bool    `json:"isReady"`
	IsEliminated        bool    `json:"isEliminated"`
	HasSubmitted        bool    `json:"hasSubmitted"`
	Position            Vec3    `json:"position"`
	Rotation            float64 `json:"rotation"`
	DistanceToSatellite float64 `json:"distanceToSatellite"`
}

type PlayerListPayload struct {
	HostId  string        `json:"hostId"`
	Players []PlayerState `json:"players"`
}

type HostChangedPayload struct {
	HostId   string `json:"hostId"`
	HostName string `json:"hostName"`
}

type MatchStartedPayload struct {
	Phase             Phase `json:"phase"`
	SatellitePosition Vec3  `json:"satellitePosition"`
	Round             int   `json:"round"`
	SecondsRemaining  int   `json:"secondsRemaining"`
}

type TimerUpdatePayload struct {
	SecondsRemaining int `json:"secondsRemaining"`
}

type CodeSubmittedPayload struct {
	PlayerId   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type ActivePlayerProgram struct {
	Id       string  `json:"id"`
	Name     string  `json:"name"`
	Color    string  `json:"color"`
	Commands Program `json:"commands"`
}

type ExecutionStartedPayload struct {
	ActivePlayers []ActivePlayerProgram `json:"activePlayers"`
}

type PositionUpdatedPayload struct {
	PlayerId         string  `json:"playerId"`
	Position         Vec3    `json:"position"`
	Rotation         float64 `json:"rotation"`
	DistanceToTarget float64 `json:"distanceToTarget"`
}

type PlayerEliminatedPayload struct {
	PlayerId   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type RoundRestartedPayload struct {
	SecondsRemaining int `json:"secondsRemaining"`
}

type RankEntry struct {
	Id                  string  `json:"id"`
	Name                string  `json:"name"`
	Color               string  `json:"color"`
	DistanceToSatellite float64 `json:"distanceToSatellite"`
}

// GameOverPayload has a nil Winner when the level ended with no active
// players left.
type GameOverPayload struct {
	Winner  *PlayerSummary `json:"winner"`
	Ranking []RankEntry    `json:"ranking"`
	Round   int            `json:"round"`
}

type LevelStartedPayload struct {
	Round             int   `json:"round"`
	SatellitePosition Vec3  `json:"satellitePosition"`
	Phase             Phase `json:"phase"`
	SecondsRemaining  int   `json:"secondsRemaining"`
}
