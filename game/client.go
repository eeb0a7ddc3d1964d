package game

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const outboxSize = 256

// WsClient pumps frames between one websocket and the dispatcher.
type WsClient struct {
	id          string
	socket      WebsocketConnection
	outbox      chan []byte
	rateLimiter *rate.Limiter

	ctx       context.Context
	cancelCtx context.CancelFunc

	locker      sync.Mutex
	closeReason string
}

func NewClient(id string, socket WebsocketConnection, messagesPerSecond int) *WsClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &WsClient{
		id:          id,
		socket:      socket,
		outbox:      make(chan []byte, outboxSize),
		rateLimiter: rate.NewLimiter(rate.Limit(messagesPerSecond), messagesPerSecond),
		ctx:         ctx,
		cancelCtx:   cancel,
	}
}

func (c *WsClient) ID() string { return c.id }

// Send never blocks. A full outbox means the peer is too slow to keep up.
func (c *WsClient) Send(data []byte) error {
	if c.ctx.Err() != nil {
		return ErrNotConnected
	}
	select {
	case c.outbox <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops both pumps; the socket is closed by WritePump with reason.
func (c *WsClient) Close(reason string) {
	c.locker.Lock()
	if c.closeReason == "" {
		c.closeReason = reason
	}
	c.locker.Unlock()
	c.cancelCtx()
}

func (c *WsClient) reason() string {
	c.locker.Lock()
	defer c.locker.Unlock()
	return c.closeReason
}

func (c *WsClient) ReadPump(d Dispatcher) {
	defer func() {
		c.cancelCtx()
		d.Disconnect(context.Background(), c.id)
	}()

	for {
		data, err := c.socket.Read()
		if err != nil {
			log.Debug().Err(err).Str("playerId", c.id).Msg("read pump stopped")
			return
		}
		if c.ctx.Err() != nil {
			return
		}

		if !c.rateLimiter.Allow() {
			c.Send(encodeError(0, "", ErrRateLimited))
			continue
		}

		req, action, err := ParseRequest(data)
		if err != nil {
			c.Send(encodeError(req.RequestId, req.Type, err))
			continue
		}

		d.Submit(c.ctx, Inbound{From: c.id, RequestId: req.RequestId, Action: action})
	}
}

func (c *WsClient) WritePump(pings <-chan time.Time) {
	defer func() {
		c.cancelCtx()
		c.socket.Close(c.reason())
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.outbox:
			if err := c.socket.Write(data); err != nil {
				log.Debug().Err(err).Str("playerId", c.id).Msg("write failed")
				return
			}
		case <-pings:
			if err := c.socket.Ping(); err != nil {
				return
			}
		}
	}
}
