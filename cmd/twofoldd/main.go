// twofoldd is the authoritative game server for twofold chess: it enforces
// the variant's rules, owns per-room game state and dispatches state updates
// to connected clients over websockets.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/herohde/twofold/pkg/history"
	"github.com/herohde/twofold/pkg/server"
	"github.com/herohde/twofold/pkg/session"
	"github.com/seekerror/logw"
)

var (
	addr       = flag.String("addr", ":8080", "Listen address")
	historyDir = flag.String("history", "", "History store directory (empty: in-memory)")
	debug      = flag.Bool("debug", false, "Enable the debug scenario endpoint")
	grace      = flag.Duration("grace", 30*time.Second, "Reconnect grace window")
	roomTTL    = flag.Duration("room-ttl", 30*time.Minute, "Idle room expiry")
)

func init() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `usage: twofoldd [options]

TWOFOLDD is the realtime session server for twofold chess.
Options:
`)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := history.NewBadgerStore(*historyDir)
	if err != nil {
		logw.Exitf(ctx, "Failed to open history store: %v", err)
	}
	defer store.Close()

	mgr := session.NewManager(store, session.Config{
		ReconnectGrace: *grace,
		RoomTTL:        *roomTTL,
	})
	go mgr.Run(ctx)

	s := server.New(mgr, store, *debug)
	srv := &http.Server{Addr: *addr, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logw.Infof(ctx, "twofoldd %v listening on %v (debug=%v)", server.Version(), *addr, *debug)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logw.Exitf(ctx, "Server failed: %v", err)
	}
	logw.Infof(ctx, "Server stopped")
}
