// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	applog "visualiser/internal/log"
)

//go:embed web
var webFS embed.FS

// MaxUploadBytes bounds a file posted to /load.
const MaxUploadBytes = 256 << 20

// WebSocketTransport serves the browser viewer, broadcasts frames to every
// connected client and forwards client commands to a Controller.
type WebSocketTransport struct {
	addr      string
	ctrl      Controller
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex // Also serialises writes to clients.
	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
	server    *http.Server
	listener  net.Listener
	wg        sync.WaitGroup

	uploadsMu sync.Mutex
	uploads   []string
}

// NewWebSocketTransport listens on addr and starts serving. ctrl may be nil,
// in which case commands are answered with an error.
func NewWebSocketTransport(addr string, ctrl Controller) (*WebSocketTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("WebSocketTransport: listening on %s: %w", addr, err)
	}

	wst := &WebSocketTransport{
		addr: ln.Addr().String(),
		ctrl: ctrl,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1 << 16,
			CheckOrigin: func(r *http.Request) bool {
				return true // Viewer may be opened from any origin.
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 256),
		done:      make(chan struct{}),
		listener:  ln,
	}
	wst.start()
	return wst, nil
}

// Addr returns the address the server is listening on.
func (wst *WebSocketTransport) Addr() string {
	return wst.addr
}

// Handler returns the HTTP routes served by the transport.
func (wst *WebSocketTransport) Handler() http.Handler {
	static, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err) // Embedded at build time.
	}
	mux := http.NewServeMux()
	mux.Handle("GET /", http.FileServerFS(static))
	mux.HandleFunc("GET /ws", wst.handleWebSocket)
	mux.HandleFunc("POST /load", wst.handleUpload)
	return mux
}

func (wst *WebSocketTransport) start() {
	wst.server = &http.Server{
		Handler:           wst.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	wst.wg.Add(2)
	go func() {
		defer wst.wg.Done()
		applog.Infof("WebSocketTransport: Serving viewer on http://%s", wst.addr)
		if err := wst.server.Serve(wst.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
	go func() {
		defer wst.wg.Done()
		wst.handleBroadcasts()
	}()
}

// handleWebSocket upgrades HTTP connections to WebSocket and reads commands
// until the client goes away.
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("WebSocketTransport: Client connected, total: %d", total)

	if wst.ctrl != nil {
		wst.reply(conn, StatusMessage{Type: TypeStatus, Status: wst.ctrl.Status()})
	}

	go wst.readCommands(conn)
}

func (wst *WebSocketTransport) readCommands(conn *websocket.Conn) {
	defer wst.drop(conn)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				applog.Debugf("WebSocketTransport: Read error: %v", err)
			}
			return
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			wst.reply(conn, ErrorMessage{Type: TypeError, Error: "malformed command: " + err.Error()})
			continue
		}
		wst.reply(conn, wst.execute(cmd))
	}
}

// execute runs cmd against the controller and returns the reply.
func (wst *WebSocketTransport) execute(cmd Command) any {
	if wst.ctrl == nil {
		return ErrorMessage{Type: TypeError, Error: "no controller attached"}
	}
	switch cmd.Type {
	case TypeToggle:
		paused := wst.ctrl.TogglePause()
		applog.Debugf("WebSocketTransport: Client toggled playback (paused=%t)", paused)
	case TypeLoad:
		if cmd.Path == "" {
			return ErrorMessage{Type: TypeError, Error: "load requires a path"}
		}
		if err := wst.ctrl.Load(cmd.Path); err != nil {
			return ErrorMessage{Type: TypeError, Error: err.Error()}
		}
	case TypeStatus:
	default:
		return ErrorMessage{Type: TypeError, Error: fmt.Sprintf("unknown command %q", cmd.Type)}
	}
	return StatusMessage{Type: TypeStatus, Status: wst.ctrl.Status()}
}

// handleUpload stores a posted audio file and loads it.
func (wst *WebSocketTransport) handleUpload(w http.ResponseWriter, r *http.Request) {
	if wst.ctrl == nil {
		http.Error(w, "no controller attached", http.StatusServiceUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "visualiser-*"+filepath.Ext(header.Filename))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	wst.uploadsMu.Lock()
	wst.uploads = append(wst.uploads, tmp.Name())
	wst.uploadsMu.Unlock()

	_, err = io.Copy(tmp, file)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	applog.Infof("WebSocketTransport: Received upload %q (%d bytes)", header.Filename, header.Size)
	if err := wst.ctrl.Load(tmp.Name()); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reply writes msg to a single client.
func (wst *WebSocketTransport) reply(conn *websocket.Conn, msg any) {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	if !wst.clients[conn] {
		return
	}
	if err := conn.WriteJSON(msg); err != nil {
		applog.Debugf("WebSocketTransport: Error replying to client: %v", err)
	}
}

func (wst *WebSocketTransport) drop(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	conn.Close()
	if ok {
		applog.Infof("WebSocketTransport: Client disconnected, total: %d", total)
	}
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// handleBroadcasts sends messages to all connected clients.
func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				if err := client.WriteJSON(data); err != nil {
					applog.Debugf("WebSocketTransport: Error sending to client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		case <-wst.done:
			return
		}
	}
}

// Send queues data for every client. Messages are dropped while the queue
// is full.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return net.ErrClosed
	default:
	}
	select {
	case wst.broadcast <- data:
	default:
	}
	return nil
}

// Close shuts down the server, disconnects clients and removes uploaded files.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		applog.Infof("WebSocketTransport: Closing server")
		close(wst.done)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Hijacked websocket connections are not tracked by Shutdown.
		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		clear(wst.clients)
		wst.clientsMu.Unlock()

		err = wst.server.Shutdown(ctx)
		wst.wg.Wait()

		wst.uploadsMu.Lock()
		for _, name := range wst.uploads {
			if rerr := os.Remove(name); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
				applog.Warnf("WebSocketTransport: Removing upload %s: %v", name, rerr)
			}
		}
		wst.uploads = nil
		wst.uploadsMu.Unlock()
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
