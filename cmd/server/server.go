package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"tyr/internal/clock"
	"tyr/internal/config"
	"tyr/internal/engine"
	"tyr/internal/events"
	"tyr/internal/metrics"
	tyrnet "tyr/internal/net"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	cfg := config.Load()

	// The matching core: one injected clock, books created per instrument
	// on first use.
	clk := clock.New()
	eng := engine.New(clk)

	// Process-wide event tap, on top of the per-session delivery.
	tap := events.MultiSink{metrics.Sink{}}
	if cfg.LogEvents {
		tap = append(tap, events.NewLogSink(log.Logger))
	}
	if len(cfg.KafkaBrokers) > 0 {
		ks := events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := ks.Close(); err != nil {
				log.Error().Err(err).Msg("unable to close kafka sink")
			}
		}()
		tap = append(tap, ks)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("kafka publishing enabled")
	}

	go serveMetrics(cfg.MetricsAddress)

	srv := tyrnet.New(cfg.Address, cfg.Port, eng, tap, cfg.Workers)
	go srv.Run(ctx)

	// Block on running the server.
	<-ctx.Done()
}

func serveMetrics(address string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(address, mux); err != nil {
		log.Error().Err(err).Str("address", address).Msg("metrics endpoint stopped")
	}
}
