package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Inbound action types.
const (
	ActionCreateRoom        = "createRoom"
	ActionJoinRoom          = "joinRoom"
	ActionLeaveRoom         = "leaveRoom"
	ActionToggleReady       = "toggleReady"
	ActionStartMatch        = "startMatch"
	ActionSubmitCode        = "submitCode"
	ActionUpdatePosition    = "updatePosition"
	ActionReachedTarget     = "reachedTarget"
	ActionCrashed           = "crashed"
	ActionExecutionFinished = "executionFinished"
	ActionStartNextLevel    = "startNextLevel"
)

type Request struct {
	Type      string          `json:"type"`
	RequestId int64           `json:"requestId"`
	Payload   json.RawMessage `json:"payload"`
}

type Action interface {
	Name() string
}

type CreateRoom struct {
	PlayerName string `json:"playerName"`
}

type JoinRoom struct {
	RoomId     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

// RoomAction is every action that only names the room it targets.
type RoomAction struct {
	Kind   string `json:"-"`
	RoomId string `json:"roomId"`
}

type SubmitCode struct {
	RoomId   string  `json:"roomId"`
	Commands Program `json:"commands"`
}

type UpdatePosition struct {
	RoomId   string  `json:"roomId"`
	Position Vec3    `json:"position"`
	Rotation float64 `json:"rotation"`
}

func (CreateRoom) Name() string { return ActionCreateRoom }
func (JoinRoom) Name() string { return ActionJoinRoom }
func (a RoomAction) Name() string { return a.Kind }
func (SubmitCode) Name() string { return ActionSubmitCode }
func (UpdatePosition) Name() string { return ActionUpdatePosition }

// Inbound is a decoded, validated request tagged with its sender.
type Inbound struct {
	From      string
	RequestId int64
	Action    Action
}

// ParseRequest decodes a raw frame. Every structural problem is reported
// as ErrBadRequestFormat so it never reaches room logic.
func ParseRequest(data []byte) (Request, Action, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return req, nil, fmt.Errorf("%w: %w", ErrBadRequestFormat, err)
	}

	var (
		action Action
		err    error
	)
	switch req.Type {
	case ActionCreateRoom:
		var a CreateRoom
		err = decodePayload(req.Payload, &a)
		action = a
	case ActionJoinRoom:
		var a JoinRoom
		if err = decodePayload(req.Payload, &a); err == nil {
			err = requireRoomId(a.RoomId)
		}
		action = a
	case ActionLeaveRoom, ActionToggleReady, ActionStartMatch, ActionReachedTarget,
		ActionCrashed, ActionExecutionFinished, ActionStartNextLevel:
		a := RoomAction{Kind: req.Type}
		if err = decodePayload(req.Payload, &a); err == nil {
			err = requireRoomId(a.RoomId)
		}
		action = a
	case ActionSubmitCode:
		var a SubmitCode
		if err = decodePayload(req.Payload, &a); err == nil {
			err = requireRoomId(a.RoomId)
		}
		if err == nil {
			err = a.Commands.Validate()
		}
		action = a
	case ActionUpdatePosition:
		var a UpdatePosition
		if err = decodePayload(req.Payload, &a); err == nil {
			err = requireRoomId(a.RoomId)
		}
		if err == nil && !finite(a.Position[0], a.Position[1], a.Position[2], a.Rotation) {
			err = fmt.Errorf("%w: non-finite position", ErrBadRequestFormat)
		}
		action = a
	default:
		return req, nil, fmt.Errorf("%w: unknown action %q", ErrBadRequestFormat, req.Type)
	}

	if err != nil {
		if !errors.Is(err, ErrBadRequestFormat) {
			err = fmt.Errorf("%w: %w", ErrBadRequestFormat, err)
		}
		return req, nil, err
	}
	return req, action, nil
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%w: missing payload", ErrBadRequestFormat)
	}
	return json.Unmarshal(raw, v)
}

func requireRoomId(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: missing room id", ErrBadRequestFormat)
	}
	return nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Outbound frames addressed to the requesting client only.

type ackFrame struct {
	Type      string `json:"type"`
	RequestId int64  `json:"requestId"`
	Action    string `json:"action"`
	Payload   any    `json:"payload,omitempty"`
}

type errorFrame struct {
	Type      string `json:"type"`
	RequestId int64  `json:"requestId"`
	Action    string `json:"action,omitempty"`
	Error     string `json:"error"`
}

type RoomJoinedPayload struct {
	RoomId string      `json:"roomId"`
	Player PlayerState `json:"player"`
}

func encodeAck(requestId int64, action string, payload any) []byte {
	data, _ := json.Marshal(ackFrame{Type: "ack", RequestId: requestId, Action: action, Payload: payload})
	return data
}

// encodeError exposes only the sentinel code of err to the client.
func encodeError(requestId int64, action string, err error) []byte {
	data, _ := json.Marshal(errorFrame{Type: "error", RequestId: requestId, Action: action, Error: errorCode(err)})
	return data
}

var errorCodes = []error{
	ErrRoomNotFound, ErrRoomFull, ErrGameInProgress, ErrInsufficientPlayers, ErrNotHost,
	ErrNotConnected, ErrInvalidPhase, ErrPlayerNotActive, ErrCodeAlreadySubmitted,
	ErrAlreadyInRoom, ErrBadRequestFormat, ErrSendBufferFull, ErrRateLimited, ErrServerClosed,
}

func errorCode(err error) string {
	for _, known := range errorCodes {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "unknown-error"
}

func encodeEvent(e Event) ([]byte, error) {
	return json.Marshal(e)
}
