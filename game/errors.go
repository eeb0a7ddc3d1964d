package game

import "errors"

var (
	ErrRoomNotFound        = errors.New("room-not-found")
	ErrRoomFull            = errors.New("room-full")
	ErrGameInProgress      = errors.New("game-in-progress")
	ErrInsufficientPlayers = errors.New("insufficient-players")
	ErrNotHost             = errors.New("not-host")
	ErrNotConnected        = errors.New("not-connected")
)

// Phase and membership errors
var (
	ErrInvalidPhase         = errors.New("invalid-phase")
	ErrPlayerNotActive      = errors.New("player-not-active")
	ErrCodeAlreadySubmitted = errors.New("code-already-submitted")
)

var ErrBadRequestFormat = errors.New("bad-request-format")

var ErrSendBufferFull = errors.New("send-buffer-full")

var ErrAlreadyInRoom = errors.New("already-in-room")

var (
	ErrRateLimited  = errors.New("rate-limited")
	ErrServerClosed = errors.New("server-closed")
)
