package ws

import "github.com/gorilla/websocket"

// fakeConn returns a distinct map key for membership tests. The hub only
// writes to connections during broadcasts, which these tests avoid.
func fakeConn() *websocket.Conn {
	return &websocket.Conn{}
}
