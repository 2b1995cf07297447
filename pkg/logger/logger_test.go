package logger_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/pageturn/session-service/pkg/logger"
)

func captureStdOut(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read pipe: %v", err)
	}
	return string(data)
}

func TestDetectEnv(t *testing.T) {
	t.Setenv("APP_ENV", "")
	if got := logger.DetectEnv(); got != logger.EnvDev {
		t.Fatalf("default should be dev, got %q", got)
	}

	t.Setenv("APP_ENV", "staging")
	if got := logger.DetectEnv(); got != logger.EnvStage {
		t.Fatalf("expected stage, got %q", got)
	}

	t.Setenv("APP_ENV", "production")
	if got := logger.DetectEnv(); got != logger.EnvProd {
		t.Fatalf("expected prod, got %q", got)
	}
}

func TestInit_ProdZap_JSONOutput(t *testing.T) {
	cfg := logger.Config{
		Service:          "session-service",
		Version:          "1.0.0",
		Env:              logger.EnvProd,
		Backend:          logger.BackendZap,
		Level:            slog.LevelInfo,
		SampleInitial:    100000,
		SampleThereafter: 100000,
	}

	out := captureStdOut(t, func() {
		logger.Init(cfg)
		slog.Info("booted", slog.String("k", "v"))
	})

	var m map[string]any
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("expected JSON line, got %s, err=%v", out, err)
	}

	if m["msg"] != "booted" {
		t.Fatalf("msg mismatch: %v", m["msg"])
	}
	if m["service"] != "session-service" || m["env"] != "prod" || m["version"] != "1.0.0" {
		t.Fatalf("attrs missing: service=%v env=%v version=%v", m["service"], m["env"], m["version"])
	}
	if m["level"] != "INFO" {
		t.Fatalf("level mismatch: %v", m["level"])
	}
	if m["k"] != "v" {
		t.Fatalf("custom field missing: %v", m["k"])
	}
}

func TestInit_DevStd_TextOutput(t *testing.T) {
	out := captureStdOut(t, func() {
		logger.Init(logger.Config{
			Service: "session-service",
			Env:     logger.EnvDev,
			Backend: logger.BackendStd,
		})
		slog.Info("hello", slog.String("k", "v"))
	})

	if !strings.Contains(out, "msg=hello") {
		t.Fatalf("expected text output, got %s", out)
	}
	if !strings.Contains(out, "service=session-service") {
		t.Fatalf("common attrs missing: %s", out)
	}
}
