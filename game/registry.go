package game

import (
	"math/rand/v2"
	"strings"
)

// Registry owns every open room and which room each player is in.
// Like Room it belongs to the dispatcher loop and is not safe for
// concurrent use.
type Registry struct {
	rooms         map[string]*Room
	memberships   map[string]string
	idGenerator   UniqueIdGenerator
	rng           *rand.Rand
	codingSeconds int
}

func NewRegistry(idgen UniqueIdGenerator, rng *rand.Rand, codingSeconds int) *Registry {
	return &Registry{
		rooms:         make(map[string]*Room),
		memberships:   make(map[string]string),
		idGenerator:   idgen,
		rng:           rng,
		codingSeconds: codingSeconds,
	}
}

func normalizeRoomId(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// Room looks a room up by its case-insensitive code.
func (rg *Registry) Room(id string) (*Room, bool) {
	r, ok := rg.rooms[normalizeRoomId(id)]
	return r, ok
}

func (rg *Registry) RoomOf(playerId string) (*Room, bool) {
	id, ok := rg.memberships[playerId]
	if !ok {
		return nil, false
	}
	return rg.Room(id)
}

func (rg *Registry) Len() int {
	return len(rg.rooms)
}

func (rg *Registry) CreateRoom(playerId, hostName string) (*Room, *Player, []Event, error) {
	if _, ok := rg.memberships[playerId]; ok {
		return nil, nil, nil, ErrAlreadyInRoom
	}
	name, err := SanitizeName(hostName)
	if err != nil {
		return nil, nil, nil, err
	}

	room := NewRoom(rg.idGenerator.Generate(), rg.codingSeconds, rg.rng)
	host, err := room.addPlayer(playerId, name)
	if err != nil {
		rg.idGenerator.Dispose(room.id)
		return nil, nil, nil, err
	}
	rg.rooms[room.id] = room
	rg.memberships[playerId] = room.id
	return room, host, []Event{room.playerListEvent()}, nil
}

func (rg *Registry) JoinRoom(roomId, playerId, playerName string) (*Room, *Player, []Event, error) {
	name, err := SanitizeName(playerName)
	if err != nil {
		return nil, nil, nil, err
	}
	room, ok := rg.Room(roomId)
	if !ok {
		return nil, nil, nil, ErrRoomNotFound
	}
	if _, ok := rg.memberships[playerId]; ok {
		return nil, nil, nil, ErrAlreadyInRoom
	}

	p, err := room.addPlayer(playerId, name)
	if err != nil {
		return nil, nil, nil, err
	}
	rg.memberships[playerId] = room.id
	return room, p, []Event{room.playerListEvent()}, nil
}

// RemovePlayer deletes the player and, when the room ends up empty, the
// room itself. The caller cancels the room's timer when deleted is true.
func (rg *Registry) RemovePlayer(roomId, playerId string) (events []Event, deleted bool, err error) {
	room, ok := rg.Room(roomId)
	if !ok {
		return nil, false, ErrRoomNotFound
	}
	if _, ok := room.players[playerId]; !ok {
		return nil, false, ErrNotConnected
	}

	events = room.removePlayer(playerId)
	delete(rg.memberships, playerId)

	if room.Len() == 0 {
		delete(rg.rooms, room.id)
		rg.idGenerator.Dispose(room.id)
		return nil, true, nil
	}
	return events, false, nil
}
