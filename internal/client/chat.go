package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// chat socket message types
const (
	chatAsk       = "ask"
	chatToken     = "token"
	chatDone      = "done"
	chatError     = "error"
	chatKeepAlive = "ka"
)

// chatMessage is one frame on the brain chat socket.
type chatMessage struct {
	Type     string `json:"type"`
	Question string `json:"question,omitempty"`
	Token    string `json:"token,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ChatStream asks the tenant's business brain a question and streams
// the answer token by token over the chat websocket. onToken is invoked
// for each token; returning an error from it aborts the stream.
func (c *Client) ChatStream(ctx context.Context, tenantID, question string, onToken func(token string) error) error {
	wsEndpoint := c.baseURL + "/api/tenants/" + tenantID + "/brain/chat"
	wsEndpoint = strings.Replace(wsEndpoint, "http://", "ws://", 1)
	wsEndpoint = strings.Replace(wsEndpoint, "https://", "wss://", 1)

	u, err := url.Parse(wsEndpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}

	// Close exactly once, from whichever side finishes first.
	var mu sync.Mutex
	closed := false
	closeConn := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			conn.Close()
		}
	}
	defer closeConn()

	if err := conn.WriteJSON(chatMessage{Type: chatAsk, Question: question}); err != nil {
		return fmt.Errorf("send question: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-done:
		}
	}()

	for {
		var msg chatMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read message: %w", err)
		}

		switch msg.Type {
		case chatToken:
			if msg.Token != "" {
				if err := onToken(msg.Token); err != nil {
					return err
				}
			}

		case chatDone:
			return nil

		case chatError:
			return fmt.Errorf("chat error: %s", msg.Error)

		case chatKeepAlive:
			continue

		default:
			continue
		}
	}
}
