package game

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const recordTimeout = 5 * time.Second

type connectRequest struct {
	client Client
	done   chan struct{}
}

type snapshotQuery struct {
	roomId string
	resp   chan snapshotResult
}

type snapshotResult struct {
	snapshot RoomSnapshot
	err      error
}

type roomMark struct {
	phase Phase
	epoch int
}

func markOf(r *Room) roomMark {
	return roomMark{phase: r.phase, epoch: r.codingEpoch}
}

// Server is the event dispatcher. A single goroutine (Run) owns the
// registry, the timer table and the connected clients; every inbound event,
// timer tick and disconnect is processed there one at a time, which is what
// makes first-to-the-target a plain absent check.
type Server struct {
	registry *Registry
	timers   *timers
	clients  map[string]Client
	metrics  MetricsSink
	recorder ResultRecorder
	log      zerolog.Logger
	now      func() time.Time

	// clients whose send failed, disconnected once the current event is done
	pendingDrops []string
	recording    sync.WaitGroup

	connects    chan connectRequest
	disconnects chan string
	inbox       chan Inbound
	ticks       chan timerTick
	queries     chan snapshotQuery
	done        chan struct{}
	stopped     chan struct{}
}

// NewServer accepts nil metrics and recorder.
func NewServer(registry *Registry, tickers TickerFactory, metrics MetricsSink, recorder ResultRecorder) *Server {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	ticks := make(chan timerTick, 256)
	return &Server{
		registry:    registry,
		timers:      newTimers(tickers, time.Second, ticks),
		clients:     make(map[string]Client),
		metrics:     metrics,
		recorder:    recorder,
		log:         log.With().Str("component", "dispatcher").Logger(),
		now:         time.Now,
		connects:    make(chan connectRequest, 64),
		disconnects: make(chan string, 256),
		inbox:       make(chan Inbound, 1024),
		ticks:       ticks,
		queries:     make(chan snapshotQuery, 64),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
}

func (s *Server) Run(ctx context.Context, started chan struct{}) {
	close(started)
	defer s.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.connects:
			s.handleConnect(req)
		case id := <-s.disconnects:
			s.handleDisconnect(id)
		case in := <-s.inbox:
			s.handle(in)
		case tick := <-s.ticks:
			s.handleTick(tick)
		case q := <-s.queries:
			s.handleQuery(q)
		}
		s.flushDrops()
	}
}

func (s *Server) shutdown() {
	s.timers.stopAll()
	for id, c := range s.clients {
		c.Close("server-shutdown")
		delete(s.clients, id)
	}
	close(s.done)
	s.recording.Wait()
	close(s.stopped)
	s.log.Info().Msg("dispatcher stopped")
}

// Stopped is closed once the loop has exited and every pending level result
// has been recorded.
func (s *Server) Stopped() <-chan struct{} { return s.stopped }

// Connect returns once the dispatcher knows the client, so frames the client
// submits afterwards are never processed ahead of its registration.
func (s *Server) Connect(ctx context.Context, c Client) error {
	req := connectRequest{client: c, done: make(chan struct{})}
	select {
	case s.connects <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrServerClosed
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrServerClosed
	}
}

func (s *Server) Disconnect(ctx context.Context, playerId string) {
	select {
	case s.disconnects <- playerId:
	case <-ctx.Done():
	case <-s.done:
	}
}

func (s *Server) Submit(ctx context.Context, in Inbound) {
	select {
	case s.inbox <- in:
	case <-ctx.Done():
	case <-s.done:
	}
}

func (s *Server) RoomSnapshot(ctx context.Context, roomId string) (RoomSnapshot, error) {
	q := snapshotQuery{roomId: roomId, resp: make(chan snapshotResult, 1)}
	select {
	case s.queries <- q:
	case <-ctx.Done():
		return RoomSnapshot{}, ctx.Err()
	case <-s.done:
		return RoomSnapshot{}, ErrServerClosed
	}
	select {
	case res := <-q.resp:
		return res.snapshot, res.err
	case <-ctx.Done():
		return RoomSnapshot{}, ctx.Err()
	case <-s.done:
		return RoomSnapshot{}, ErrServerClosed
	}
}

func (s *Server) handleConnect(req connectRequest) {
	c := req.client
	s.clients[c.ID()] = c
	close(req.done)
	s.metrics.PlayerConnected()
	s.log.Debug().Str("playerId", c.ID()).Msg("client connected")
}

func (s *Server) handleDisconnect(playerId string) {
	c, ok := s.clients[playerId]
	if !ok {
		return
	}
	delete(s.clients, playerId)
	s.leave(playerId)
	c.Close("")
	s.metrics.PlayerDisconnected()
	s.log.Debug().Str("playerId", playerId).Msg("client disconnected")
}

func (s *Server) handleQuery(q snapshotQuery) {
	room, ok := s.registry.Room(q.roomId)
	if !ok {
		q.resp <- snapshotResult{err: ErrRoomNotFound}
		return
	}
	q.resp <- snapshotResult{snapshot: room.Snapshot()}
}

func (s *Server) handleTick(tick timerTick) {
	if !s.timers.current(tick) {
		return
	}
	room, ok := s.registry.Room(tick.roomId)
	if !ok {
		s.timers.stop(tick.roomId)
		return
	}
	s.metrics.TimerTick()
	before := markOf(room)
	s.settle(room, before, room.Tick())
}

func (s *Server) handle(in Inbound) {
	// late frames from a client that already disconnected
	if _, ok := s.clients[in.From]; !ok {
		return
	}

	var err error
	switch a := in.Action.(type) {
	case CreateRoom:
		err = s.createRoom(in, a)
	case JoinRoom:
		err = s.joinRoom(in, a)
	case RoomAction:
		err = s.handleRoomAction(in, a)
	case SubmitCode:
		err = s.roomOp(in, a.RoomId, true, func(r *Room) ([]Event, error) {
			return r.SubmitCode(in.From, a.Commands)
		})
	case UpdatePosition:
		err = s.roomOp(in, a.RoomId, false, func(r *Room) ([]Event, error) {
			return r.UpdatePosition(in.From, a.Position, a.Rotation)
		})
	default:
		err = ErrBadRequestFormat
	}

	if err != nil {
		name := ""
		if in.Action != nil {
			name = in.Action.Name()
		}
		s.log.Debug().Err(err).Str("playerId", in.From).Str("action", name).Msg("action rejected")
		s.send(in.From, encodeError(in.RequestId, name, err))
	}
}

func (s *Server) handleRoomAction(in Inbound, a RoomAction) error {
	switch a.Kind {
	case ActionLeaveRoom:
		return s.leaveRoom(in, a)
	case ActionToggleReady:
		return s.roomOp(in, a.RoomId, false, func(r *Room) ([]Event, error) { return r.ToggleReady(in.From) })
	case ActionStartMatch:
		return s.roomOp(in, a.RoomId, true, func(r *Room) ([]Event, error) { return r.StartMatch(in.From) })
	case ActionReachedTarget:
		return s.roomOp(in, a.RoomId, false, func(r *Room) ([]Event, error) { return r.ReachedTarget(in.From) })
	case ActionCrashed:
		return s.roomOp(in, a.RoomId, false, func(r *Room) ([]Event, error) { return r.Crashed(in.From) })
	case ActionExecutionFinished:
		return s.roomOp(in, a.RoomId, false, func(r *Room) ([]Event, error) { return r.ExecutionFinished(in.From) })
	case ActionStartNextLevel:
		return s.roomOp(in, a.RoomId, true, func(r *Room) ([]Event, error) { return r.StartNextLevel(in.From) })
	}
	return ErrBadRequestFormat
}

func (s *Server) createRoom(in Inbound, a CreateRoom) error {
	if _, err := SanitizeName(a.PlayerName); err != nil {
		return err
	}
	s.leave(in.From)

	room, host, events, err := s.registry.CreateRoom(in.From, a.PlayerName)
	if err != nil {
		return err
	}
	s.metrics.RoomOpened()
	s.log.Info().Str("roomId", room.ID()).Str("hostId", host.ID()).Msg("room created")

	s.send(in.From, encodeAck(in.RequestId, ActionCreateRoom, RoomJoinedPayload{RoomId: room.ID(), Player: room.stateOf(host)}))
	s.broadcast(room, events)
	return nil
}

func (s *Server) joinRoom(in Inbound, a JoinRoom) error {
	if _, err := SanitizeName(a.PlayerName); err != nil {
		return err
	}
	if current, ok := s.registry.RoomOf(in.From); ok && current.ID() == normalizeRoomId(a.RoomId) {
		return ErrAlreadyInRoom
	}
	target, ok := s.registry.Room(a.RoomId)
	switch {
	case !ok:
		return ErrRoomNotFound
	case target.Phase() != PhaseLobby:
		return ErrGameInProgress
	case target.Len() >= MaxPlayers:
		return ErrRoomFull
	}
	s.leave(in.From)

	room, p, events, err := s.registry.JoinRoom(a.RoomId, in.From, a.PlayerName)
	if err != nil {
		return err
	}
	s.log.Info().Str("roomId", room.ID()).Str("playerId", p.ID()).Int("players", room.Len()).Msg("player joined")

	s.send(in.From, encodeAck(in.RequestId, ActionJoinRoom, RoomJoinedPayload{RoomId: room.ID(), Player: room.stateOf(p)}))
	s.broadcast(room, events)
	return nil
}

func (s *Server) leaveRoom(in Inbound, a RoomAction) error {
	room, ok := s.registry.Room(a.RoomId)
	if !ok {
		return ErrRoomNotFound
	}
	if _, ok := room.Player(in.From); !ok {
		return ErrNotConnected
	}
	s.removeFromRoom(room, in.From)
	s.send(in.From, encodeAck(in.RequestId, ActionLeaveRoom, nil))
	return nil
}

// leave removes the player from whatever room it is in.
func (s *Server) leave(playerId string) {
	if room, ok := s.registry.RoomOf(playerId); ok {
		s.removeFromRoom(room, playerId)
	}
}

func (s *Server) removeFromRoom(room *Room, playerId string) {
	before := markOf(room)
	events, deleted, err := s.registry.RemovePlayer(room.ID(), playerId)
	if err != nil {
		s.log.Warn().Err(err).Str("roomId", room.ID()).Str("playerId", playerId).Msg("remove player failed")
		return
	}
	if deleted {
		s.timers.stop(room.ID())
		s.metrics.RoomClosed()
		s.log.Info().Str("roomId", room.ID()).Msg("room deleted")
		return
	}
	s.log.Info().Str("roomId", room.ID()).Str("playerId", playerId).Str("hostId", room.HostID()).Msg("player left")
	s.settle(room, before, events)
}

// roomOp resolves the room and the sender's membership before running op.
func (s *Server) roomOp(in Inbound, roomId string, ack bool, op func(*Room) ([]Event, error)) error {
	room, ok := s.registry.Room(roomId)
	if !ok {
		return ErrRoomNotFound
	}
	if _, ok := room.Player(in.From); !ok {
		return ErrNotConnected
	}

	before := markOf(room)
	events, err := op(room)
	if err != nil {
		return err
	}
	if ack {
		s.send(in.From, encodeAck(in.RequestId, in.Action.Name(), nil))
	}
	s.settle(room, before, events)
	return nil
}

// settle applies the side effects of a transition: the countdown runs exactly
// while the room is in the coding phase and restarts on every fresh entry.
func (s *Server) settle(room *Room, before roomMark, events []Event) {
	id := room.ID()
	if room.phase == PhaseCoding {
		if room.codingEpoch != before.epoch || !s.timers.running(id) {
			s.timers.start(id)
		}
	} else {
		s.timers.stop(id)
	}

	if room.phase != before.phase {
		s.log.Info().
			Str("roomId", id).
			Int("round", room.round).
			Stringer("from", before.phase).
			Stringer("to", room.phase).
			Msg("phase transition")
		if before.phase == PhaseLobby {
			s.metrics.MatchStarted()
		}
		if room.phase == PhaseFinished {
			s.levelFinished(room)
		}
	}

	s.broadcast(room, events)
}

func (s *Server) levelFinished(room *Room) {
	s.metrics.LevelFinished(room.winner != "")
	if s.recorder == nil {
		return
	}
	result := room.levelResult(s.now())
	s.recording.Add(1)
	go func() {
		defer s.recording.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := s.recorder.RecordLevel(ctx, result); err != nil {
			s.log.Error().Err(err).Str("roomId", result.RoomId).Int("round", result.Round).Msg("failed to record level result")
		}
	}()
}

func (s *Server) broadcast(room *Room, events []Event) {
	for _, e := range events {
		data, err := encodeEvent(e)
		if err != nil {
			s.log.Error().Err(err).Str("roomId", room.ID()).Str("event", e.Type).Msg("failed to encode event")
			continue
		}
		for _, pid := range room.order {
			s.send(pid, data)
		}
	}
}

func (s *Server) send(playerId string, data []byte) {
	c, ok := s.clients[playerId]
	if !ok {
		return
	}
	if err := c.Send(data); err != nil && !contains(s.pendingDrops, playerId) {
		s.pendingDrops = append(s.pendingDrops, playerId)
	}
}

// flushDrops disconnects clients that could not keep up. Their departure
// broadcasts may queue further drops, so it runs until the queue is empty.
func (s *Server) flushDrops() {
	for len(s.pendingDrops) > 0 {
		playerId := s.pendingDrops[0]
		s.pendingDrops = s.pendingDrops[1:]

		c, ok := s.clients[playerId]
		if !ok {
			continue
		}
		s.log.Warn().Str("playerId", playerId).Msg("dropping slow client")
		c.Close(ErrSendBufferFull.Error())
		s.handleDisconnect(playerId)
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
