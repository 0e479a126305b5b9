package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/dpotapov/tinybrowser/internal/cookiejar"
	"github.com/dpotapov/tinybrowser/internal/httpclient"
	"github.com/dpotapov/tinybrowser/internal/tab"
	"github.com/dpotapov/tinybrowser/internal/weburl"
)

var watchAddr string

var watchCmd = &cobra.Command{
	Use:   "watch <url>",
	Short: "Navigate to a URL and stream its render/task-runner telemetry over a websocket",
	Long: `watch keeps a Tab ticking in the foreground and pushes one JSON
telemetry message per tick to every connected websocket client at /ws -
needs_render transitions, history index, scroll position - the
same live-push loop go-pages.Handler drives a browser's DOM with, repointed
at engine telemetry instead of template re-renders.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchAddr, "addr", ":8088", "address to serve the telemetry endpoint on")
}

// wsUpgrader is shared across connections, the same package-level-Upgrader
// idiom go-pages uses.
var wsUpgrader = websocket.Upgrader{}

// telemetry is one tick's worth of observable Tab state, broadcast to every
// connected watcher.
type telemetry struct {
	Tick         int64   `json:"tick"`
	Status       string  `json:"status"`
	NeedsRender  bool    `json:"rendered_this_tick"`
	ScrollY      float64 `json:"scroll_y"`
	DocHeight    float64 `json:"doc_height"`
	HistoryIndex int     `json:"history_index"`
}

// broadcaster fans out telemetry snapshots to every connected websocket
// handler goroutine without any of them touching the Tab directly - only
// the single pump goroutine in runWatch ever reads Tab fields, preserving
// the "Tab state is UI-thread-only" invariant internal/tab documents.
type broadcaster struct {
	mu   sync.Mutex
	subs map[chan []byte]bool
}

func newBroadcaster() *broadcaster { return &broadcaster{subs: make(map[chan []byte]bool)} }

func (b *broadcaster) subscribe() chan []byte {
	ch := make(chan []byte, 8)
	b.mu.Lock()
	b.subs[ch] = true
	b.mu.Unlock()
	return ch
}

func (b *broadcaster) unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

func (b *broadcaster) publish(msg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- msg:
		default: // a slow watcher drops a tick rather than stalling the pump
		}
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	u, err := weburl.Parse(args[0])
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}

	client := httpclient.New(cookiejar.New())
	client.Logger = logger
	tb := tab.New(client, monospaceFactory, logger)
	tb.Navigate(u, "GET", "")
	printStatus(tb)

	bc := newBroadcaster()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "tinybrowser watch on %s - connect to /ws for telemetry\n", u.String())
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		ch := bc.subscribe()
		defer bc.unsubscribe(ch)

		// Drain incoming frames only to notice the client going away, the
		// same role the read goroutine plays in go-pages.Handler's
		// websocket loop.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}
	})

	server := &http.Server{Addr: watchAddr, Handler: mux}
	go func() {
		logger.Info("tinybrowser watch: serving", "addr", watchAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("tinybrowser watch: server stopped", "error", err)
		}
	}()

	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()
	var tick int64
	for range ticker.C {
		tick++
		before := tb.NeedsRender
		tb.Tick()
		msg, err := json.Marshal(telemetry{
			Tick:         tick,
			Status:       tb.Status,
			NeedsRender:  before,
			ScrollY:      tb.ScrollY,
			DocHeight:    tb.DocHeight,
			HistoryIndex: tb.HistoryIndex,
		})
		if err != nil {
			continue
		}
		bc.publish(msg)
	}
	return nil
}
