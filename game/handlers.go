package game

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	PingPeriod = 30 * time.Second
	pongWait   = PingPeriod + 30*time.Second
)

type GameHandler struct {
	dispatcher        Dispatcher
	tickers           TickerFactory
	upgrader          websocket.Upgrader
	messagesPerSecond int
}

func NewGameHandler(dispatcher Dispatcher, tickers TickerFactory, allowedOrigins []string, messagesPerSecond int) *GameHandler {
	return &GameHandler{
		dispatcher:        dispatcher,
		tickers:           tickers,
		messagesPerSecond: messagesPerSecond,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

func (h *GameHandler) WebsocketHandler(ctx *gin.Context) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("ip", ctx.ClientIP()).Msg("websocket upgrade failed")
		return
	}

	socket := NewWebsocketConnection(conn, pongWait)
	client := NewClient(uuid.NewString(), socket, h.messagesPerSecond)

	if err := h.dispatcher.Connect(ctx.Request.Context(), client); err != nil {
		socket.Close(errorCode(err))
		return
	}

	pings, stop := h.tickers.NewTicker(PingPeriod)
	go func() {
		defer stop()
		client.WritePump(pings)
	}()
	go client.ReadPump(h.dispatcher)
}

func (h *GameHandler) RoomSnapshotHandler(ctx *gin.Context) {
	snapshot, err := h.dispatcher.RoomSnapshot(ctx.Request.Context(), ctx.Param("id"))
	switch {
	case errors.Is(err, ErrRoomNotFound):
		ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": ErrRoomNotFound.Error()})
	case err != nil:
		log.Error().Err(err).Str("roomId", ctx.Param("id")).Msg("room snapshot failed")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown-error"})
	default:
		ctx.JSON(http.StatusOK, snapshot)
	}
}
