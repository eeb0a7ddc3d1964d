package game

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// --- WebsocketConnection ---

type MockWebsocketConnection struct {
	mock.Mock
}

func (m *MockWebsocketConnection) Close(reason string) {
	m.Called(reason)
}

func (m *MockWebsocketConnection) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockWebsocketConnection) Read() ([]byte, error) {
	args := m.Called()
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockWebsocketConnection) Ping() error {
	args := m.Called()
	return args.Error(0)
}

// --- UniqueIdGenerator ---

type MockUniqueIdGenerator struct {
	mock.Mock
}

func (m *MockUniqueIdGenerator) Generate() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockUniqueIdGenerator) Dispose(id string) {
	m.Called(id)
}

// --- TickerFactory ---

type MockTickerFactory struct {
	mock.Mock
}

func (m *MockTickerFactory) NewTicker(period time.Duration) (<-chan time.Time, func()) {
	args := m.Called(period)
	return args.Get(0).(chan time.Time), args.Get(1).(func())
}

// --- ResultRecorder ---

type MockResultRecorder struct {
	mock.Mock
}

func (m *MockResultRecorder) RecordLevel(ctx context.Context, result LevelResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

// --- MetricsSink ---

type MockMetricsSink struct {
	mock.Mock
}

func (m *MockMetricsSink) RoomOpened() { m.Called() }
func (m *MockMetricsSink) RoomClosed() { m.Called() }
func (m *MockMetricsSink) PlayerConnected() { m.Called() }
func (m *MockMetricsSink) PlayerDisconnected() { m.Called() }
func (m *MockMetricsSink) MatchStarted() { m.Called() }
func (m *MockMetricsSink) LevelFinished(won bool) { m.Called(won) }
func (m *MockMetricsSink) TimerTick() { m.Called() }

// --- Dispatcher ---

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Connect(ctx context.Context, c Client) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockDispatcher) Disconnect(ctx context.Context, playerId string) {
	m.Called(ctx, playerId)
}

func (m *MockDispatcher) Submit(ctx context.Context, in Inbound) {
	m.Called(ctx, in)
}

func (m *MockDispatcher) RoomSnapshot(ctx context.Context, roomId string) (RoomSnapshot, error) {
	args := m.Called(ctx, roomId)
	return args.Get(0).(RoomSnapshot), args.Error(1)
}
