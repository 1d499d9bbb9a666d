package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bogengine/mm-core/internal/core"
)

const (
	readTimeout      = 90 * time.Second
	writeTimeout      = 10 * time.Second
	maxReconnectWait = 30 * time.Second
	snapshotBuffer   = 256
)

// resyncRequest is the control frame RequestFullSnapshot sends to ask the
// venue to prioritize a full-book resync, the feed-side half of spec
// §4.11's gap recovery protocol.
type resyncRequest struct {
	Type string `json:"type"`
}

// WS is a WebSocket-backed live feed implementing engine.Feed. Grounded
// on the teacher's internal/exchange/ws.go WSFeed: a single connMu-guarded
// *websocket.Conn, a buffered output channel drained by TryRecv, and a
// Run loop that reconnects with exponential backoff (1s up to 30s) and
// re-sends any outstanding resync request on reconnect.
type WS struct {
	url    string
	logger *slog.Logger

	connMu sync.Mutex
	conn   *websocket.Conn

	out chan core.MarketSnapshot
	now func() time.Time

	resyncMu      sync.Mutex
	resyncPending bool
}

// NewWS constructs a live feed that will dial url once Run is called.
func NewWS(url string, logger *slog.Logger) *WS {
	if logger == nil {
		logger = slog.Default()
	}
	return &WS{
		url:    url,
		logger: logger.With("component", "feed.ws"),
		out:    make(chan core.MarketSnapshot, snapshotBuffer),
		now:    time.Now,
	}
}

// TryRecv is the engine's non-blocking poll (spec §4.9).
func (w *WS) TryRecv() (core.MarketSnapshot, bool) {
	select {
	case snap := <-w.out:
		return snap, true
	default:
		return core.MarketSnapshot{}, false
	}
}

// RequestFullSnapshot marks a resync as pending; it is sent on the next
// successful connection (immediately, if currently connected).
func (w *WS) RequestFullSnapshot() {
	w.resyncMu.Lock()
	w.resyncPending = true
	w.resyncMu.Unlock()
	w.trySendResync()
}

// Run connects and maintains the WebSocket connection with auto-reconnect
// until ctx is cancelled. Intended to run in its own goroutine,
// independent of the engine's hot loop (spec §5).
func (w *WS) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := w.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.Warn("feed websocket disconnected, reconnecting", "error", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

func (w *WS) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return err
	}
	w.connMu.Lock()
	w.conn = conn
	w.connMu.Unlock()
	defer func() {
		conn.Close()
		w.connMu.Lock()
		w.conn = nil
		w.connMu.Unlock()
	}()

	w.trySendResync()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(w.now().Add(readTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var wire wireSnapshot
		if err := json.Unmarshal(data, &wire); err != nil {
			w.logger.Error("feed: malformed snapshot message", "error", err)
			continue
		}
		snap := wire.toSnapshot(uint64(w.now().UnixNano()))
		if snap.Flags.Full() {
			w.resyncMu.Lock()
			w.resyncPending = false
			w.resyncMu.Unlock()
		}

		select {
		case w.out <- snap:
		default:
			w.logger.Error("feed: output buffer full, dropping snapshot", "sequence", snap.Sequence)
		}
	}
}

func (w *WS) trySendResync() {
	w.resyncMu.Lock()
	pending := w.resyncPending
	w.resyncMu.Unlock()
	if !pending {
		return
	}

	w.connMu.Lock()
	conn := w.conn
	w.connMu.Unlock()
	if conn == nil {
		return
	}

	conn.SetWriteDeadline(w.now().Add(writeTimeout))
	if err := conn.WriteJSON(resyncRequest{Type: "resync"}); err != nil {
		w.logger.Error("feed: failed to send resync request", "error", err)
	}
}
