package transport

import (
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/proto"
)

// WSConn carries each message and each payload in one binary frame.
type WSConn struct {
	ws *websocket.Conn
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// UpgradeWS turns an HTTP request into a control connection.
func UpgradeWS(w http.ResponseWriter, r *http.Request) (*WSConn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	return &WSConn{ws: ws}, nil
}

func DialWS(url string) (*WSConn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}

	return &WSConn{ws: ws}, nil
}

func (c *WSConn) read() ([]byte, error) {
	for {
		typ, b, err := c.ws.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) || errors.Is(err, net.ErrClosed) {
				return nil, ErrClosed
			}
			return nil, err
		}

		if typ == websocket.BinaryMessage {
			return b, nil
		}
	}
}

func (c *WSConn) ReadMessage() (proto.Control, error) {
	b, err := c.read()
	if err != nil {
		return proto.Control{}, err
	}
	if len(b) != proto.ControlSize {
		return proto.Control{}, ErrFraming
	}

	return proto.DecodeControl(b)
}

func (c *WSConn) ReadPayload(n int) ([]byte, error) {
	b, err := c.read()
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, ErrFraming
	}

	return b, nil
}

func (c *WSConn) WriteMessage(m *proto.Control) error {
	return c.ws.WriteMessage(websocket.BinaryMessage, m.Encode())
}

func (c *WSConn) WritePayload(b []byte) error {
	return c.ws.WriteMessage(websocket.BinaryMessage, b)
}

func (c *WSConn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

func (c *WSConn) Close() error {
	c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.ws.Close()
}
