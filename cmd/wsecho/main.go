// File: cmd/wsecho/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// wsecho is a minimal WebSocket echo server built on the stream
// adapter: raw TCP accept, HTTP upgrade handshake, then a blocking
// read/write loop per connection with heartbeat pings and Prometheus
// metrics.

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/wstream-io/wstream/api"
	"github.com/wstream-io/wstream/frame"
	"github.com/wstream-io/wstream/handshake"
	"github.com/wstream-io/wstream/metrics"
	"github.com/wstream-io/wstream/role"
	"github.com/wstream-io/wstream/stream"
)

type config struct {
	Addr         string        `env:"WSECHO_ADDR" envDefault:":8080"`
	MetricsAddr  string        `env:"WSECHO_METRICS_ADDR" envDefault:":9090"`
	PingInterval time.Duration `env:"WSECHO_PING_INTERVAL" envDefault:"10s"`
	PongTimeout  time.Duration `env:"WSECHO_PONG_TIMEOUT" envDefault:"30s"`
	ReadTick     time.Duration `env:"WSECHO_READ_TICK" envDefault:"1s"`
}

func main() {
	_ = godotenv.Load()

	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		slog.Error("failed to parse configuration", "error", err)
		os.Exit(1)
	}

	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	logger := slog.New(logHandler)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	m := metrics.New("wsecho")

	g.Go(func() error {
		return serveMetrics(ctx, cfg.MetricsAddr, m, logger)
	})
	g.Go(func() error {
		return serveEcho(ctx, cfg, m, logger)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("wsecho terminated", "error", err)
		os.Exit(1)
	}
	logger.Info("wsecho stopped")
}

func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func serveEcho(ctx context.Context, cfg config, m *metrics.Metrics, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	logger.Info("echo listening", "addr", cfg.Addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go handle(conn, cfg, m, logger)
	}
}

// readWriter pairs the handshake's buffered reader with the raw
// connection for writes.
type readWriter struct {
	io.Reader
	io.Writer
}

func handle(conn net.Conn, cfg config, m *metrics.Metrics, logger *slog.Logger) {
	defer conn.Close()

	id := uuid.NewString()
	log := logger.With("conn", id, "remote", conn.RemoteAddr().String())

	path, br, err := handshake.Upgrade(conn)
	if err != nil {
		log.Warn("handshake failed", "error", err)
		return
	}
	log.Info("stream opened", "path", path)

	st := stream.New[role.Server](readWriter{br, conn},
		stream.WithPingInterval(cfg.PingInterval),
		stream.WithPongTimeout(cfg.PongTimeout),
	)
	m.StreamOpened()
	defer func() {
		m.StreamClosed(st.Stats(), st.Stale())
		log.Info("stream closed", "stats", st.Stats())
	}()

	buf := make([]byte, 4096)
	for {
		// a short read deadline keeps control frames and heartbeats
		// flowing while the peer is idle
		_ = conn.SetReadDeadline(time.Now().Add(cfg.ReadTick))
		n, err := st.Read(buf)
		if n > 0 {
			if werr := echoBack(st, buf[:n]); werr != nil {
				log.Warn("write failed", "error", werr)
				return
			}
		}
		if err != nil {
			var nerr net.Error
			switch {
			case errors.As(err, &nerr) && nerr.Timeout():
				// idle tick; fall through to control pumping
			case errors.Is(err, api.ErrClosed):
				code, reason := st.CloseStatus()
				log.Info("peer closed", "code", code, "reason", reason)
				st.QueueClose(frame.CloseNormalClosure, "")
				drainControl(st, conn)
				return
			case errors.Is(err, io.EOF):
				log.Info("peer disconnected")
				return
			default:
				log.Warn("read failed", "error", err)
				if api.IsProtocol(err) {
					st.QueueClose(frame.CloseProtocolError, err.Error())
					drainControl(st, conn)
				}
				return
			}
		}
		if perr := drainControl(st, conn); perr != nil {
			log.Warn("control flush failed", "error", perr)
			return
		}
		if st.Stale() {
			log.Warn("peer is stale, dropping")
			return
		}
	}
}

func echoBack[R role.Policy, IO io.ReadWriter](st *stream.Stream[R, IO], p []byte) error {
	for len(p) > 0 {
		n, err := st.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func drainControl[R role.Policy, IO io.ReadWriter](st *stream.Stream[R, IO], conn net.Conn) error {
	for {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		more, err := st.PumpControl()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}
