package sio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diffindiffs/didbase/did"
	"github.com/gorilla/websocket"
)

func TestWebSocketCouplings(t *testing.T) {
	got := make(chan *Result, 1)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		defer conn.Close()

		req := `{"id":"w1","procedure":"OLS","specs":[{}]}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(req)); err != nil {
			t.Error(err)
			return
		}

		_, bs, err := conn.ReadMessage()
		if err != nil {
			t.Error(err)
			return
		}
		var res Result
		if err := json.Unmarshal(bs, &res); err != nil {
			t.Error(err)
			return
		}
		got <- &res
	}))
	defer server.Close()

	c, fs := NewWebSocketCouplings([]string{"-url", "ws" + strings.TrimPrefix(server.URL, "http")})
	if fs.Lookup("url") == nil {
		t.Fatal("no url flag")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}

	s, err := NewService(ctx, did.Procedures(), c)
	if err != nil {
		t.Fatal(err)
	}
	s.HaltOnInputEOF = true

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- s.Loop(ctx)
	}()

	select {
	case r := <-got:
		if r.Request != "w1" || r.Error == "" {
			t.Fatal(JS(r))
		}
	case <-ctx.Done():
		t.Fatal("no result")
	}

	select {
	case err := <-loopDone:
		if err != nil {
			t.Fatal(err)
		}
	case <-ctx.Done():
		t.Fatal("loop didn't halt")
	}

	c.Stop(context.Background())
}
