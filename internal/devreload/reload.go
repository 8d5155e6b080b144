// Copyright 2024 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package devreload reloads the browsers of developers whenever the files of
the SPA change: a Watcher watches the project directories and a Broadcaster
notifies all connected browsers over websockets, which then either reload
their stylesheets or the whole page.
*/
package devreload

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/michaelquigley/pfxlog"
)

// Path is the websocket endpoint browsers connect to.
const Path = "/__reload"

// MessageType tells browsers how to reload.
type MessageType string

const (
	Reload MessageType = "reload"
	CSS    MessageType = "css"
)

// Message is sent to browsers.
type Message struct {
	Type MessageType `json:"type"`
	File string      `json:"file,omitempty"`
}

// Broadcaster manages the websocket connections of browsers and broadcasts
// reload messages to them.
type Broadcaster struct {
	writeMu  sync.Mutex // serializes writers, as connections allow only one.
	mu       sync.RWMutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
}

// NewBroadcaster returns a new Broadcaster without any clients.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: map[*websocket.Conn]struct{}{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// development only, so any origin is fine.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades to a websocket connection and keeps it until the
// browser goes away.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already responded.
		return
	}
	b.mu.Lock()
	b.clients[conn] = struct{}{}
	b.mu.Unlock()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	b.drop(conn)
}

// Notify sends the message to all connected browsers, dropping those that
// cannot be written to.
func (b *Broadcaster) Notify(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	b.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(b.clients))
	for client := range b.clients {
		clients = append(clients, client)
	}
	b.mu.RUnlock()
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			pfxlog.Logger().Debugf("dropping reload client: %v", err)
			b.drop(client)
		}
	}
}

// Changed notifies browsers about the changed file: stylesheets get
// swapped, everything else reloads the page.
func (b *Broadcaster) Changed(file string) {
	if strings.HasSuffix(file, ".css") {
		b.Notify(Message{Type: CSS, File: file})
		return
	}
	b.Notify(Message{Type: Reload, File: file})
}

// ClientCount returns the number of connected browsers.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects all browsers.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for client := range b.clients {
		_ = client.Close()
		delete(b.clients, client)
	}
}

func (b *Broadcaster) drop(conn *websocket.Conn) {
	b.mu.Lock()
	delete(b.clients, conn)
	b.mu.Unlock()
	_ = conn.Close()
}

// Script connects to the Broadcaster and reloads.
const Script = `<script>
(function () {
  var delay = 1000;
  function connect() {
    var ws = new WebSocket((location.protocol === "https:" ? "wss:" : "ws:") + "//" + location.host + "` + Path + `");
    ws.onopen = function () { delay = 1000; };
    ws.onmessage = function (e) {
      var msg;
      try { msg = JSON.parse(e.data); } catch (err) { return; }
      if (msg.type === "css") {
        document.querySelectorAll('link[rel="stylesheet"]').forEach(function (link) {
          var url = new URL(link.href);
          url.searchParams.set("t", Date.now());
          link.href = url.toString();
        });
        return;
      }
      location.reload();
    };
    ws.onclose = function () {
      setTimeout(connect, delay);
      delay = Math.min(delay * 2, 30000);
    };
  }
  connect();
})();
</script>`

// Inject adds the reload Script to the end of the body of the index
// document. It is an index rewriter for the SPA handler.
func Inject(_ *http.Request, index string) string {
	if i := strings.LastIndex(index, "</body>"); i >= 0 {
		return index[:i] + Script + index[i:]
	}
	return index + Script
}
