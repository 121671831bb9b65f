package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeTimeout bounds a single outbound frame. A client that stops
	// draining its socket must not block the attempt stream goroutine.
	writeTimeout = 10 * time.Second

	// idleTimeout closes streams with no inbound traffic. Clients send a
	// ping action to keep an open attempt alive between answers.
	idleTimeout = 5 * time.Minute
)

// WriteTyped sends one typed event to the client.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

// WriteError sends an ErrorResponse event.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadJSON reads the next client action, renewing the idle deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(idleTimeout))
	return conn.ReadJSON(v)
}
