package game

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"
)

type Phase int

const (
	PhaseLobby Phase = iota
	PhaseCoding
	PhaseExecuting
	PhaseFinished
)

var phaseNames = [...]string{"lobby", "coding", "executing", "finished"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown phase %q", ErrBadRequestFormat, text)
}

const DefaultCodingSeconds = 30

// Room is the phase state machine of a single match session. It is not safe
// for concurrent use; the dispatcher loop is its only caller. Every operation
// returns the events to broadcast to the room.
type Room struct {
	// Identity
	id     string
	hostId string

	// State machine
	phase  Phase
	round  int
	winner string

	satellite     Vec3
	codingTimer   int
	codingSeconds int
	// incremented every time the room enters the coding phase, so the
	// dispatcher can tell a fresh countdown from a running one
	codingEpoch int

	// Players, order is join order
	players map[string]*Player
	order   []string

	rng *rand.Rand
}

func NewRoom(id string, codingSeconds int, rng *rand.Rand) *Room {
	if codingSeconds <= 0 {
		codingSeconds = DefaultCodingSeconds
	}
	return &Room{
		id:            id,
		phase:         PhaseLobby,
		codingSeconds: codingSeconds,
		players:       make(map[string]*Player, MaxPlayers),
		order:         make([]string, 0, MaxPlayers),
		rng:           rng,
	}
}

func (r *Room) ID() string { return r.id }
func (r *Room) HostID() string { return r.hostId }
func (r *Room) Phase() Phase { return r.phase }
func (r *Room) Round() int { return r.round }
func (r *Room) Winner() string { return r.winner }
func (r *Room) SatellitePosition() Vec3 { return r.satellite }
func (r *Room) CodingTimer() int { return r.codingTimer }
func (r *Room) Len() int { return len(r.order) }
func (r *Room) PlayerIDs() []string { return slices.Clone(r.order) }

func (r *Room) Player(id string) (*Player, bool) {
	p, ok := r.players[id]
	return p, ok
}

func (r *Room) member(id string) (*Player, error) {
	p, ok := r.players[id]
	if !ok {
		return nil, ErrNotConnected
	}
	return p, nil
}

func (r *Room) nextColor() string {
	used := make(map[string]bool, len(r.players))
	for _, p := range r.players {
		used[p.color] = true
	}
	for _, c := range palette {
		if !used[c] {
			return c
		}
	}
	return palette[len(r.players)%len(palette)]
}

func (r *Room) addPlayer(id, name string) (*Player, error) {
	if r.phase != PhaseLobby {
		return nil, ErrGameInProgress
	}
	if len(r.order) >= MaxPlayers {
		return nil, ErrRoomFull
	}
	p := newPlayer(id, name, r.nextColor())
	r.players[id] = p
	r.order = append(r.order, id)
	if r.hostId == "" {
		r.hostId = id
	}
	return p, nil
}

// removePlayer promotes the earliest remaining joiner when the host leaves and
// re-evaluates the phase thresholds the departing player may have been
// holding up.
func (r *Room) removePlayer(id string) []Event {
	if _, ok := r.players[id]; !ok {
		return nil
	}
	delete(r.players, id)
	r.order = slices.DeleteFunc(r.order, func(pid string) bool { return pid == id })

	if len(r.order) == 0 {
		r.hostId = ""
		return nil
	}

	var events []Event
	if r.hostId == id {
		host := r.players[r.order[0]]
		r.hostId = host.id
		events = append(events, Event{EventHostChanged, HostChangedPayload{HostId: host.id, HostName: host.name}})
	}
	events = append(events, r.playerListEvent())

	switch r.phase {
	case PhaseCoding:
		events = append(events, r.checkAllSubmitted()...)
	case PhaseExecuting:
		events = append(events, r.checkRoundComplete()...)
	}
	return events
}

func (r *Room) ToggleReady(playerId string) ([]Event, error) {
	p, err := r.member(playerId)
	if err != nil {
		return nil, err
	}
	if r.phase != PhaseLobby {
		return nil, ErrInvalidPhase
	}
	p.ready = !p.ready
	return []Event{r.playerListEvent()}, nil
}

func (r *Room) StartMatch(playerId string) ([]Event, error) {
	if _, err := r.member(playerId); err != nil {
		return nil, err
	}
	if playerId != r.hostId {
		return nil, ErrNotHost
	}
	if r.phase != PhaseLobby {
		return nil, ErrInvalidPhase
	}

	ready := 0
	for _, p := range r.players {
		if p.ready {
			ready++
		}
	}
	if ready < 2 {
		return nil, ErrInsufficientPlayers
	}

	r.round = 1
	r.winner = ""
	for _, p := range r.players {
		p.resetForLevel()
	}
	r.placeSatellite()
	r.codingTimer = r.codingSeconds
	r.enterCoding()

	return []Event{{EventMatchStarted, MatchStartedPayload{
		Phase:             r.phase,
		SatellitePosition: r.satellite,
		Round:             r.round,
		SecondsRemaining:  r.codingTimer,
	}}}, nil
}

func (r *Room) SubmitCode(playerId string, program Program) ([]Event, error) {
	p, err := r.member(playerId)
	if err != nil {
		return nil, err
	}
	if r.phase != PhaseCoding {
		return nil, ErrInvalidPhase
	}
	if !p.active() {
		return nil, ErrPlayerNotActive
	}
	if p.submitted {
		return nil, ErrCodeAlreadySubmitted
	}
	if err := program.Validate(); err != nil {
		return nil, err
	}

	p.program = slices.Clone(program)
	if p.program == nil {
		p.program = Program{}
	}
	p.submitted = true

	events := []Event{{EventCodeSubmitted, CodeSubmittedPayload{PlayerId: p.id, PlayerName: p.name}}}
	return append(events, r.checkAllSubmitted()...), nil
}

// UpdatePosition stores the client-reported pose verbatim. Reports outside
// the executing phase or from inactive players are dropped: they routinely
// arrive late, after a transition already happened.
func (r *Room) UpdatePosition(playerId string, position Vec3, rotation float64) ([]Event, error) {
	p, err := r.member(playerId)
	if err != nil {
		return nil, err
	}
	if r.phase != PhaseExecuting || !p.active() {
		return nil, nil
	}
	p.position = position
	p.rotation = rotation
	p.distance = position.PlanarDistance(r.satellite)
	return []Event{{EventPositionUpdated, PositionUpdatedPayload{
		PlayerId:         p.id,
		Position:         p.position,
		Rotation:         p.rotation,
		DistanceToTarget: p.distance,
	}}}, nil
}

// ReachedTarget is first-writer-wins: once a winner is set every later
// report is a no-op.
func (r *Room) ReachedTarget(playerId string) ([]Event, error) {
	p, err := r.member(playerId)
	if err != nil {
		return nil, err
	}
	if r.phase != PhaseExecuting || r.winner != "" || !p.active() {
		return nil, nil
	}
	r.winner = p.id
	r.phase = PhaseFinished
	winner := p.summary()
	return []Event{{EventGameOver, GameOverPayload{Winner: &winner, Ranking: r.ranking(), Round: r.round}}}, nil
}

func (r *Room) Crashed(playerId string) ([]Event, error) {
	p, err := r.member(playerId)
	if err != nil {
		return nil, err
	}
	if r.phase != PhaseExecuting || !p.active() {
		return nil, nil
	}
	p.eliminated = true
	events := []Event{{EventPlayerEliminated, PlayerEliminatedPayload{PlayerId: p.id, PlayerName: p.name}}}
	return append(events, r.checkRoundComplete()...), nil
}

func (r *Room) ExecutionFinished(playerId string) ([]Event, error) {
	p, err := r.member(playerId)
	if err != nil {
		return nil, err
	}
	if r.phase != PhaseExecuting || !p.active() || p.finishedExecution {
		return nil, nil
	}
	p.finishedExecution = true
	return r.checkRoundComplete(), nil
}

func (r *Room) StartNextLevel(playerId string) ([]Event, error) {
	if _, err := r.member(playerId); err != nil {
		return nil, err
	}
	if playerId != r.hostId {
		return nil, ErrNotHost
	}
	if r.phase != PhaseFinished {
		return nil, ErrInvalidPhase
	}

	r.round++
	r.winner = ""
	for _, p := range r.players {
		p.resetForLevel()
	}
	r.placeSatellite()
	r.codingTimer = r.codingSeconds
	r.enterCoding()

	events := []Event{
		{EventLevelStarted, LevelStartedPayload{
			Round:             r.round,
			SatellitePosition: r.satellite,
			Phase:             r.phase,
			SecondsRemaining:  r.codingTimer,
		}},
		r.playerListEvent(),
	}
	return append(events, r.checkAllSubmitted()...), nil
}

// placeSatellite picks the level's target and measures every player from
// their spawn point, so a player who never moves ranks by that distance.
func (r *Room) placeSatellite() {
	r.satellite = GenerateTarget(r.round, r.rng)
	for _, p := range r.players {
		p.distance = p.position.PlanarDistance(r.satellite)
	}
}

// Tick advances the coding countdown by one second.
func (r *Room) Tick() []Event {
	if r.phase != PhaseCoding {
		return nil
	}
	if r.codingTimer > 0 {
		r.codingTimer--
	}
	events := []Event{{EventTimerUpdate, TimerUpdatePayload{SecondsRemaining: r.codingTimer}}}
	if r.codingTimer == 0 {
		events = append(events, r.beginExecution()...)
		events = append(events, r.checkRoundComplete()...)
	}
	return events
}

func (r *Room) enterCoding() {
	r.phase = PhaseCoding
	r.codingEpoch++
}

func (r *Room) activePlayers() []*Player {
	active := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		if p := r.players[id]; p.active() {
			active = append(active, p)
		}
	}
	return active
}

func (r *Room) checkAllSubmitted() []Event {
	active := r.activePlayers()
	if len(active) == 0 {
		return r.endLevelWithoutWinner()
	}
	for _, p := range active {
		if !p.submitted {
			return nil
		}
	}
	return r.beginExecution()
}

func (r *Room) beginExecution() []Event {
	r.phase = PhaseExecuting
	programs := make([]ActivePlayerProgram, 0, len(r.order))
	for _, p := range r.activePlayers() {
		p.finishedExecution = false
		commands := p.program
		if commands == nil {
			commands = Program{}
		}
		programs = append(programs, ActivePlayerProgram{Id: p.id, Name: p.name, Color: p.color, Commands: commands})
	}
	return []Event{{EventExecutionStarted, ExecutionStartedPayload{ActivePlayers: programs}}}
}

func (r *Room) checkRoundComplete() []Event {
	if r.phase != PhaseExecuting || r.winner != "" {
		return nil
	}
	active := r.activePlayers()
	if len(active) == 0 {
		return r.endLevelWithoutWinner()
	}
	for _, p := range active {
		if !p.finishedExecution {
			return nil
		}
	}

	for _, p := range r.players {
		p.clearRound()
	}
	r.codingTimer = r.codingSeconds
	r.enterCoding()
	return []Event{{EventRoundRestarted, RoundRestartedPayload{SecondsRemaining: r.codingTimer}}}
}

func (r *Room) endLevelWithoutWinner() []Event {
	r.phase = PhaseFinished
	return []Event{{EventGameOver, GameOverPayload{Winner: nil, Ranking: r.ranking(), Round: r.round}}}
}

// ranking orders the non-eliminated ready players by ascending distance.
func (r *Room) ranking() []RankEntry {
	active := r.activePlayers()
	slices.SortStableFunc(active, func(a, b *Player) int {
		return cmp.Compare(a.distance, b.distance)
	})
	ranking := make([]RankEntry, 0, len(active))
	for _, p := range active {
		ranking = append(ranking, RankEntry{Id: p.id, Name: p.name, Color: p.color, DistanceToSatellite: p.distance})
	}
	return ranking
}

func (r *Room) stateOf(p *Player) PlayerState {
	return PlayerState{
		Id:                  p.id,
		Name:                p.name,
		Color:               p.color,
		IsHost:              p.id == r.hostId,
		IsReady:             p.ready,
		IsEliminated:        p.eliminated,
		HasSubmitted:        p.submitted,
		Position:            p.position,
		Rotation:            p.rotation,
		DistanceToSatellite: p.distance,
	}
}

func (r *Room) playerStates() []PlayerState {
	states := make([]PlayerState, 0, len(r.order))
	for _, id := range r.order {
		states = append(states, r.stateOf(r.players[id]))
	}
	return states
}

func (r *Room) playerListEvent() Event {
	return Event{EventPlayerList, PlayerListPayload{HostId: r.hostId, Players: r.playerStates()}}
}

func (r *Room) Snapshot() RoomSnapshot {
	return RoomSnapshot{
		RoomId:            r.id,
		Phase:             r.phase,
		Round:             r.round,
		HostId:            r.hostId,
		SatellitePosition: r.satellite,
		SecondsRemaining:  r.codingTimer,
		Players:           r.playerStates(),
	}
}

func (r *Room) levelResult(now time.Time) LevelResult {
	result := LevelResult{
		RoomId:     r.id,
		Round:      r.round,
		Ranking:    r.ranking(),
		FinishedAt: now,
	}
	if w, ok := r.players[r.winner]; ok {
		result.WinnerId = w.id
		result.WinnerName = w.name
	}
	return result
}
