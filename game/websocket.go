package game

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait     = 10 * time.Second
	maxFrameBytes = 16 * 1024
)

type websocketConnection struct {
	socket *websocket.Conn
}

func (wc *websocketConnection) Write(data []byte) error {
	wc.socket.SetWriteDeadline(time.Now().Add(writeWait))
	return wc.socket.WriteMessage(websocket.TextMessage, data)
}

func (wc *websocketConnection) Ping() error {
	return wc.socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (wc *websocketConnection) Read() ([]byte, error) {
	_, p, err := wc.socket.ReadMessage()
	return p, err
}

func (wc *websocketConnection) Close(reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	wc.socket.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	wc.socket.Close()
}

// NewWebsocketConnection keeps the read deadline pongWait ahead of the last pong.
func NewWebsocketConnection(conn *websocket.Conn, pongWait time.Duration) *websocketConnection {
	conn.SetReadLimit(maxFrameBytes)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	return &websocketConnection{conn}
}
