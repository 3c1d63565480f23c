/*
main.go - Network service entry point

PURPOSE:
  Long-running mode: every accepted TCP connection streams CSV records
  into one shared ledger and gets the full account snapshot back when
  its input ends. Runs until SIGINT/SIGTERM.

STARTUP SEQUENCE:
  1. Load .env and YAML config
  2. Build logger and (optionally) the Kafka event publisher
  3. Create the shared engine
  4. Bind the TCP listener - the only fatal startup condition
  5. Optionally start the HTTP admin surface
  6. Serve until signalled, then drain in-flight connections

FLAGS:
  -config   YAML config path (optional)
  -addr     TCP listen address override

SEE ALSO:
  - server/server.go: connection handling
  - api/server.go: admin surface
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/warp/payments-engine/api"
	"github.com/warp/payments-engine/config"
	"github.com/warp/payments-engine/engine"
	"github.com/warp/payments-engine/events"
	"github.com/warp/payments-engine/events/kafka"
	"github.com/warp/payments-engine/logging"
	"github.com/warp/payments-engine/server"
)

func main() {
	configPath := flag.String("config", "", "YAML config path")
	addr := flag.String("addr", "", "TCP listen address override")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log, err := logging.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Domain events go to Kafka only when brokers are configured.
	var pub events.Publisher = events.Noop{}
	if len(cfg.Events.Brokers) > 0 {
		kp := kafka.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		defer kp.Close()
		pub = kp
		log.Info("publishing account events",
			zap.Strings("brokers", cfg.Events.Brokers),
			zap.String("topic", cfg.Events.Topic),
		)
	}

	eng := engine.New(cfg.HistoryCap(), engine.WithLogger(log), engine.WithPublisher(pub))
	log.Info("engine ready", zap.Int("max_tx_history", cfg.Engine.MaxTxHistory))

	srv := server.New(cfg.Server.Addr, cfg.Server.MaxConnections, eng, log)
	if err := srv.Listen(); err != nil {
		log.Fatal("failed to bind", zap.String("addr", cfg.Server.Addr), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional HTTP admin surface alongside the TCP listener.
	var adminSrv *http.Server
	if cfg.API.Addr != "" {
		adminSrv = &http.Server{
			Addr:         cfg.API.Addr,
			Handler:      api.NewRouter(api.NewHandler(eng)),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			log.Info("admin api listening", zap.String("addr", cfg.API.Addr))
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("admin api failed", zap.Error(err))
			}
		}()
	}

	if err := srv.Serve(ctx); err != nil && err != context.Canceled {
		log.Error("serve failed", zap.Error(err))
	}

	if adminSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("admin api shutdown failed", zap.Error(err))
		}
	}

	log.Info("server stopped")
}
