package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/ygrebnov/jobpool/internal/config"
)

func parseServeFlags(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	f := &serveFlags{}
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	f.register(fs)
	require.NoError(t, fs.Parse(args))
	return f.resolve(fs)
}

func TestServeFlags_Resolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hellod.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pool:\n  workers: 6\n  queue_capacity: 10\nlog:\n  level: debug\n"), 0o644))
	t.Setenv("HELLOD_QUEUE_CAPACITY", "20")
	t.Setenv("HELLOD_ADDR", "127.0.0.1:9999")
	t.Setenv("HELLOD_READ_TIMEOUT", "4s")

	cfg, err := parseServeFlags(t, "-c", path, "--addr", "127.0.0.1:7000", "--log-format", "json", "--sleep-delay", "2s")
	require.NoError(t, err)

	require.Equal(t, 4*time.Second, cfg.Server.ReadTimeout, "env")
	require.Equal(t, 2*time.Second, cfg.Server.SleepDelay, "flag")

	require.Equal(t, uint(6), cfg.Pool.Workers, "file")
	require.Equal(t, uint(20), cfg.Pool.QueueCapacity, "env beats file")
	require.Equal(t, "127.0.0.1:7000", cfg.Server.Addr, "flag beats env")
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)

	cfg, err = parseServeFlags(t, "--read-timeout", "0s")
	require.NoError(t, err)
	require.Zero(t, cfg.Server.ReadTimeout, "flag beats env")
}

func TestServeFlags_ResolveInvalid(t *testing.T) {
	_, err := parseServeFlags(t, "--workers", "0")
	require.ErrorContains(t, err, "pool.workers")

	_, err = parseServeFlags(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(config.LogConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	require.Equal(t, log.WarnLevel, logger.GetLevel())
	require.IsType(t, &log.JSONFormatter{}, logger.Formatter)

	_, err = newLogger(config.LogConfig{Level: "loud", Format: "text"})
	require.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	require.Equal(t, "dev\n", out.String())
}

func TestRun_ServesUntilMaxConnections(t *testing.T) {
	// reserve a free port for the server
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	cfg := config.Default()
	cfg.Server.Addr = addr
	cfg.Server.MaxConnections = 1
	cfg.Pool.Workers = 2

	logger := log.New()
	logger.SetOutput(io.Discard)

	done := make(chan error, 1)
	go func() { done <- run(context.Background(), cfg, logger) }()

	var conn net.Conn
	require.Eventually(t, func() bool {
		conn, err = net.Dial("tcp", addr)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	defer conn.Close()

	_, err = conn.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(resp), "HTTP/1.1 200 OK"))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after the connection limit")
	}
}
