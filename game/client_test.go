package game

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func outboxFrame(t *testing.T, c *WsClient) frame {
	t.Helper()
	select {
	case data := <-c.outbox:
		return decodeFrame(t, data)
	case <-time.After(waitFor):
		require.FailNow(t, "nothing queued")
		return frame{}
	}
}

func TestClientSend(t *testing.T) {
	t.Parallel()

	t.Run("Full Outbox", func(t *testing.T) {
		t.Parallel()
		c := NewClient("p1", &MockWebsocketConnection{}, 10)
		for range outboxSize {
			require.NoError(t, c.Send([]byte("x")))
		}
		assert.ErrorIs(t, c.Send([]byte("x")), ErrSendBufferFull)
	})

	t.Run("Closed", func(t *testing.T) {
		t.Parallel()
		c := NewClient("p1", &MockWebsocketConnection{}, 10)
		c.Close("bye")
		assert.ErrorIs(t, c.Send([]byte("x")), ErrNotConnected)
		c.Close("again")
		assert.Equal(t, "bye", c.reason())
	})
}

func TestReadPump(t *testing.T) {
	t.Parallel()

	t.Run("Read Error Disconnects", func(t *testing.T) {
		t.Parallel()
		socket := &MockWebsocketConnection{}
		socket.On("Read").Return([]byte{}, assert.AnError)
		dispatcher := &MockDispatcher{}
		dispatcher.On("Disconnect", mock.Anything, "p1").Return()

		c := NewClient("p1", socket, 10)
		wg := sync.WaitGroup{}
		wg.Go(func() { c.ReadPump(dispatcher) })
		wg.Wait()

		dispatcher.AssertExpectations(t)
		socket.AssertExpectations(t)
		assert.Error(t, c.ctx.Err())
	})

	t.Run("Valid Frame Is Submitted", func(t *testing.T) {
		t.Parallel()
		socket := &MockWebsocketConnection{}
		socket.On("Read").Return([]byte(`{"type":"createRoom","requestId":9,"payload":{"playerName":"alice"}}`), nil).Once()
		socket.On("Read").Return([]byte{}, assert.AnError)
		dispatcher := &MockDispatcher{}
		dispatcher.On("Submit", mock.Anything, Inbound{From: "p1", RequestId: 9, Action: CreateRoom{PlayerName: "alice"}}).Return()
		dispatcher.On("Disconnect", mock.Anything, "p1").Return()

		c := NewClient("p1", socket, 10)
		wg := sync.WaitGroup{}
		wg.Go(func() { c.ReadPump(dispatcher) })
		wg.Wait()

		dispatcher.AssertExpectations(t)
		assert.Empty(t, c.outbox)
	})

	t.Run("Malformed Frame Gets Error Reply", func(t *testing.T) {
		t.Parallel()
		socket := &MockWebsocketConnection{}
		socket.On("Read").Return([]byte(`{"type":"joinRoom","requestId":4,"payload":{}}`), nil).Once()
		socket.On("Read").Return([]byte{}, assert.AnError)
		dispatcher := &MockDispatcher{}
		dispatcher.On("Disconnect", mock.Anything, "p1").Return()

		c := NewClient("p1", socket, 10)
		wg := sync.WaitGroup{}
		wg.Go(func() { c.ReadPump(dispatcher) })
		wg.Wait()

		f := outboxFrame(t, c)
		assert.Equal(t, "error", f.Type)
		assert.Equal(t, int64(4), f.RequestId)
		assert.Equal(t, ActionJoinRoom, f.Action)
		assert.Equal(t, ErrBadRequestFormat.Error(), f.Error)
		dispatcher.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	t.Run("Flood Is Rate Limited", func(t *testing.T) {
		t.Parallel()
		valid := []byte(`{"type":"toggleReady","requestId":1,"payload":{"roomId":"ABC123"}}`)
		socket := &MockWebsocketConnection{}
		socket.On("Read").Return(valid, nil).Twice()
		socket.On("Read").Return([]byte{}, assert.AnError)
		dispatcher := &MockDispatcher{}
		dispatcher.On("Submit", mock.Anything, mock.Anything).Return()
		dispatcher.On("Disconnect", mock.Anything, "p1").Return()

		c := NewClient("p1", socket, 1)
		wg := sync.WaitGroup{}
		wg.Go(func() { c.ReadPump(dispatcher) })
		wg.Wait()

		dispatcher.AssertNumberOfCalls(t, "Submit", 1)
		assert.Equal(t, ErrRateLimited.Error(), outboxFrame(t, c).Error)
	})
}

func TestWritePump(t *testing.T) {
	t.Parallel()

	t.Run("Writes Queued Frames Then Closes With Reason", func(t *testing.T) {
		t.Parallel()
		written := make(chan struct{})
		socket := &MockWebsocketConnection{}
		socket.On("Write", []byte("hello")).Return(nil).Run(func(mock.Arguments) { close(written) })
		socket.On("Close", "room-closed").Return()

		c := NewClient("p1", socket, 10)
		wg := sync.WaitGroup{}
		wg.Go(func() { c.WritePump(nil) })

		require.NoError(t, c.Send([]byte("hello")))
		<-written
		c.Close("room-closed")
		wg.Wait()

		socket.AssertExpectations(t)
	})

	t.Run("Pings", func(t *testing.T) {
		t.Parallel()
		pinged := make(chan struct{})
		socket := &MockWebsocketConnection{}
		socket.On("Ping").Return(nil).Run(func(mock.Arguments) { close(pinged) }).Once()
		socket.On("Close", "").Return()

		pings := make(chan time.Time)
		c := NewClient("p1", socket, 10)
		wg := sync.WaitGroup{}
		wg.Go(func() { c.WritePump(pings) })

		pings <- time.Now()
		<-pinged
		c.Close("")
		wg.Wait()

		socket.AssertExpectations(t)
	})

	t.Run("Write Error Stops Pump", func(t *testing.T) {
		t.Parallel()
		socket := &MockWebsocketConnection{}
		socket.On("Write", mock.Anything).Return(assert.AnError)
		socket.On("Close", "").Return()

		c := NewClient("p1", socket, 10)
		require.NoError(t, c.Send([]byte("x")))
		wg := sync.WaitGroup{}
		wg.Go(func() { c.WritePump(nil) })
		wg.Wait()

		socket.AssertExpectations(t)
		assert.ErrorIs(t, c.Send([]byte("y")), ErrNotConnected)
	})
}

func TestClientFramesAreJSON(t *testing.T) {
	t.Parallel()
	c := NewClient("p1", &MockWebsocketConnection{}, 10)
	require.NoError(t, c.Send(encodeAck(1, ActionLeaveRoom, nil)))
	assert.True(t, json.Valid(<-c.outbox))
}
