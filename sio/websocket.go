/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketCouplings reads batch requests from and writes Results to
// a WebSocket server.
type WebSocketCouplings struct {
	URL string

	in   chan interface{}
	out  chan *Result
	done chan bool
	conn *websocket.Conn
	once sync.Once
}

// NewWebSocketCouplings parses the given command-line arguments.  If
// args is nil, just returns the FlagSet (for usage).
func NewWebSocketCouplings(args []string) (*WebSocketCouplings, *flag.FlagSet) {
	c := &WebSocketCouplings{}
	fs := flag.NewFlagSet("ws", flag.ExitOnError)
	fs.StringVar(&c.URL, "url", "ws://localhost:8080", "Target URL for WebSocket server")
	if args == nil {
		return nil, fs
	}
	fs.Parse(args)
	return c, fs
}

func (c *WebSocketCouplings) eof() {
	c.once.Do(func() {
		close(c.done)
	})
}

// Start creates the WebSocket session and starts processing it.
func (c *WebSocketCouplings) Start(ctx context.Context) error {

	u, err := url.Parse(c.URL)
	if err != nil {
		return err
	}

	c.in = make(chan interface{})
	c.out = make(chan *Result)
	c.done = make(chan bool)

	slog.Info("wsconnect", "url", u.String())
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	c.conn = conn

	go func() {
		defer c.eof()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			_, bs, err := conn.ReadMessage()
			if err != nil {
				slog.Debug("ws ReadMessage", "error", err)
				return
			}
			if len(bs) == 0 {
				continue
			}
			slog.Debug("heard", "msg", string(bs))

			var msg interface{}
			if err = json.Unmarshal(bs, &msg); err != nil {
				slog.Warn("ws Unmarshal", "error", err, "msg", string(bs))
				continue
			}

			select {
			case <-ctx.Done():
				return
			case c.in <- msg:
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-c.out:
				if r == nil {
					return
				}
				js, err := json.Marshal(r)
				if err != nil {
					slog.Error("ws Marshal", "error", err)
					continue
				}
				if err = conn.WriteMessage(websocket.TextMessage, js); err != nil {
					slog.Error("ws WriteMessage", "error", err)
					return
				}
				slog.Debug("ws sent", "result", JShort(r, 70))
			}
		}
	}()

	return nil
}

// IO just returns the channels that Start() initialized.
func (c *WebSocketCouplings) IO(ctx context.Context) (chan interface{}, chan *Result, chan bool, error) {
	return c.in, c.out, c.done, nil
}

// Stop terminates the WebSocket connection.
func (c *WebSocketCouplings) Stop(ctx context.Context) error {
	slog.Info("Disconnecting")
	err := c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.conn.Close()
	c.eof()
	return err
}
