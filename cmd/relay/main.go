// Command relay forwards weather reports from an APRS TCP feed to CWOP.
//
// Usage:
//
//	relay <hostname> <port>
//
// The CWOP mirror list is read from ./aprs2-servers (one hostname per line,
// tried in order). Everything else is configured through the environment,
// see internal/config.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tve/cwop-relay/internal/adapter/auditlog"
	"github.com/tve/cwop-relay/internal/adapter/cwop"
	"github.com/tve/cwop-relay/internal/adapter/feed"
	"github.com/tve/cwop-relay/internal/adapter/httpadapter"
	kafkaadapter "github.com/tve/cwop-relay/internal/adapter/kafka"
	"github.com/tve/cwop-relay/internal/config"
	"github.com/tve/cwop-relay/internal/domain"
	"github.com/tve/cwop-relay/internal/observability"
	"github.com/tve/cwop-relay/internal/pipeline"
	"github.com/tve/cwop-relay/internal/relay"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, observability.NewMetrics()))
}

func run(args []string, stdout io.Writer, metrics *observability.Metrics) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)

	servers, err := config.LoadServers(cfg.ServersFile)
	if err != nil {
		fmt.Fprintf(stdout, "Server file '%s' missing\n", cfg.ServersFile)
		logger.Error("failed to load CWOP servers", "error", err)
		return 1
	}

	feedCfg, err := config.ParseArgs(args)
	if err != nil {
		fmt.Fprintln(stdout, "Usage: relay hostname port")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(stdout, "%%%%%% Connecting to %s\n", feedCfg.Addr())
	reader, err := feed.Dial(ctx, feedCfg.Addr(), cfg.FeedDialTimeout, logger)
	if err != nil {
		logger.Error("failed to connect to feed", "error", err)
		return 1
	}
	defer reader.Close()

	var publisher relay.Publisher
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = writer
		logger.Info("kafka audit publishing enabled", "topic", cfg.KafkaAuditTopic)
	}

	station := domain.Station{
		Callsign:      cfg.Callsign,
		Passcode:      cfg.Passcode,
		ClientName:    cfg.ClientName,
		ClientVersion: cfg.ClientVersion,
	}
	client := cwop.NewClient(cfg.CWOPPort, cfg.ConnectTimeout, cfg.ReadTimeout)
	poster := relay.NewPoster(station, servers, client, auditlog.NewFile(cfg.LogPath), publisher, logger, metrics)
	logger.Info("relay configured", "servers", len(servers), "callsign", cfg.Callsign, "log_path", cfg.LogPath)

	p := pipeline.New(reader, poster, stdout, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	code := 0
	if err := p.Run(ctx); err != nil {
		logger.Error("pipeline error", "error", err)
		code = 1
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return code
}
