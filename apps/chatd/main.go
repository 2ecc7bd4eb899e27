// chatd is the support-chat server: one process owns the connection
// registry and serves both the websocket transport and the REST surface
// on a single listener.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edulink/supportchat/pkg/auth"
	"github.com/edulink/supportchat/pkg/config"
	"github.com/edulink/supportchat/pkg/db"
	"github.com/edulink/supportchat/pkg/directory"
	"github.com/edulink/supportchat/pkg/httpapi"
	"github.com/edulink/supportchat/pkg/identity"
	"github.com/edulink/supportchat/pkg/receipt"
	"github.com/edulink/supportchat/pkg/registry"
	"github.com/edulink/supportchat/pkg/relay"
	"github.com/edulink/supportchat/pkg/snowflake"
	"github.com/edulink/supportchat/pkg/store"
	"github.com/edulink/supportchat/pkg/stream"
	"github.com/edulink/supportchat/pkg/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	session, err := db.NewSession(cfg.ScyllaHosts, cfg.ScyllaKeyspace)
	if err != nil {
		log.Error("failed to connect to ScyllaDB", "hosts", cfg.ScyllaHosts, "error", err)
		os.Exit(1)
	}
	defer session.Close()
	log.Info("connected to ScyllaDB", "keyspace", cfg.ScyllaKeyspace)

	ids, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		log.Error("invalid node id", "node_id", cfg.NodeID, "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	st := store.NewScylla(session, ids, log)
	reg := registry.New(log)

	var firehose relay.Firehose
	if len(cfg.KafkaBrokers) > 0 {
		pub := stream.New(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer pub.Close()
		firehose = pub
		log.Info("firehose enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	rel := relay.New(st, reg, firehose, log)
	authn := auth.New(cfg.JWTSecret)
	dir := directory.New(st, identity.NewRedisResolver(rdb), log)
	receipts := receipt.New(st, reg, log)
	presence := ws.NewMirror(rdb, log)

	router := httpapi.New(st, dir, receipts, presence, authn, log).Router()
	router.Handle("/ws", ws.NewHandler(reg, rel, authn, presence, cfg.SendBuffer, log))

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("support-chat server starting", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
