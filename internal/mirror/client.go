package mirror

import (
	"encoding/json"
	"time"

	ws "github.com/gorilla/websocket"
)

// Client is a mirror participant: the terminal chat uses it to follow
// the transcript and submit commands.
type Client struct {
	url  string
	conn *ws.Conn
}

func Dial(url string) (*Client, error) {
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return &Client{url: url, conn: conn}, nil
}

// Read blocks for the next transcript message, redialing on dropped
// connections.
func (c *Client) Read() (*Message, error) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if isClosed(err) {
				c.redial()
				continue
			}
			return nil, err
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		return &m, nil
	}
}

// Send submits one inbound message to the daemon.
func (c *Client) Send(in Inbound) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(ws.TextMessage, data)
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) redial() {
	for {
		conn, _, err := ws.DefaultDialer.Dial(c.url, nil)
		if err == nil {
			c.conn = conn
			return
		}
		time.Sleep(time.Second)
	}
}

func isClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure) || ws.IsUnexpectedCloseError(err)
}
