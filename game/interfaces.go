package game

import (
	"context"
	"time"
)

type UniqueIdGenerator interface {
	Generate() string
	Dispose(id string)
}

// TickerFactory returns a tick channel and the function that stops it.
type TickerFactory interface {
	NewTicker(period time.Duration) (<-chan time.Time, func())
}

type WebsocketConnection interface {
	Close(reason string)
	Write(data []byte) error
	Read() ([]byte, error)
	Ping() error
}

// Client is the dispatcher's view of one connection.
type Client interface {
	ID() string
	Send(data []byte) error
	Close(reason string)
}

// Dispatcher is what connections and HTTP handlers need from the Server.
type Dispatcher interface {
	Connect(ctx context.Context, c Client) error
	Disconnect(ctx context.Context, playerId string)
	Submit(ctx context.Context, in Inbound)
	RoomSnapshot(ctx context.Context, roomId string) (RoomSnapshot, error)
}

type MetricsSink interface {
	RoomOpened()
	RoomClosed()
	PlayerConnected()
	PlayerDisconnected()
	MatchStarted()
	LevelFinished(won bool)
	TimerTick()
}

type ResultRecorder interface {
	RecordLevel(ctx context.Context, result LevelResult) error
}

type LevelResult struct {
	RoomId     string
	Round      int
	WinnerId   string
	WinnerName string
	Ranking    []RankEntry
	FinishedAt time.Time
}

type RoomSnapshot struct {
	RoomId            string        `json:"roomId"`
	Phase             Phase         `json:"phase"`
	Round             int           `json:"round"`
	HostId            string        `json:"hostId"`
	SatellitePosition Vec3          `json:"satellitePosition"`
	SecondsRemaining  int           `json:"secondsRemaining"`
	Players           []PlayerState `json:"players"`
}

type noopMetrics struct{}

func (noopMetrics) RoomOpened() {}
func (noopMetrics) RoomClosed() {}
func (noopMetrics) PlayerConnected() {}
func (noopMetrics) PlayerDisconnected() {}
func (noopMetrics) MatchStarted() {}
func (noopMetrics) LevelFinished(bool) {}
func (noopMetrics) TimerTick() {}
