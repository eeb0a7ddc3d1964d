package game

import (
	"context"
	"time"
)

type tickerGen struct{}

func NewTickerGen() tickerGen {
	return tickerGen{}
}

func (tickerGen) NewTicker(period time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(period)
	return t.C, t.Stop
}

type timerTick struct {
	roomId string
	gen    uint64
}

type countdown struct {
	gen    uint64
	cancel context.CancelFunc
}

// timers keeps at most one running countdown per room. Each countdown
// forwards its ticks, stamped with a generation, into the dispatcher loop;
// a tick whose generation is no longer current is stale and gets dropped.
type timers struct {
	tickers TickerFactory
	period  time.Duration
	out     chan<- timerTick
	handles map[string]countdown
	nextGen uint64
}

func newTimers(tickers TickerFactory, period time.Duration, out chan<- timerTick) *timers {
	return &timers{
		tickers: tickers,
		period:  period,
		out:     out,
		handles: make(map[string]countdown),
	}
}

// start replaces any countdown already running for the room.
func (t *timers) start(roomId string) {
	t.stop(roomId)

	t.nextGen++
	gen := t.nextGen
	ctx, cancel := context.WithCancel(context.Background())
	t.handles[roomId] = countdown{gen: gen, cancel: cancel}

	ticks, stopTicker := t.tickers.NewTicker(t.period)
	go func() {
		defer stopTicker()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticks:
				select {
				case t.out <- timerTick{roomId: roomId, gen: gen}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}

func (t *timers) stop(roomId string) {
	if h, ok := t.handles[roomId]; ok {
		h.cancel()
		delete(t.handles, roomId)
	}
}

func (t *timers) running(roomId string) bool {
	_, ok := t.handles[roomId]
	return ok
}

func (t *timers) current(tick timerTick) bool {
	h, ok := t.handles[tick.roomId]
	return ok && h.gen == tick.gen
}

func (t *timers) stopAll() {
	for roomId := range t.handles {
		t.stop(roomId)
	}
}
