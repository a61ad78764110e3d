package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestWithDeploymentID(t *testing.T) {
	ctx := WithDeploymentID(context.Background(), "dep-123")

	lc := GetContext(ctx)
	if lc.DeploymentID != "dep-123" {
		t.Errorf("expected dep-123, got %s", lc.DeploymentID)
	}
}

func TestContextValuesAccumulate(t *testing.T) {
	ctx := context.Background()
	ctx = WithDeploymentID(ctx, "dep-1")
	ctx = WithTag(ctx, "v2.0")
	ctx = WithStage(ctx, "checkout")
	ctx = WithService(ctx, "app")

	lc := GetContext(ctx)
	if lc.DeploymentID != "dep-1" || lc.Tag != "v2.0" || lc.Stage != "checkout" || lc.Service != "app" {
		t.Errorf("unexpected log context: %+v", lc)
	}
}

func TestWithStageDoesNotLeakToParent(t *testing.T) {
	parent := WithStage(context.Background(), "stop")
	_ = WithStage(parent, "restart")

	if got := GetContext(parent).Stage; got != "stop" {
		t.Errorf("parent stage mutated: %s", got)
	}
}

func TestInfoContextIncludesAttributes(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(NewLogger(&buf, slog.LevelDebug, "json"))
	defer slog.SetDefault(prev)

	ctx := WithTag(WithDeploymentID(context.Background(), "dep-9"), "v1.2")
	InfoContext(ctx, "step finished", slog.String("extra", "yes"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if rec["deployment_id"] != "dep-9" {
		t.Errorf("missing deployment_id: %v", rec)
	}
	if rec["tag"] != "v1.2" {
		t.Errorf("missing tag: %v", rec)
	}
	if rec["extra"] != "yes" {
		t.Errorf("missing extra attribute: %v", rec)
	}
	if rec["msg"] != "step finished" {
		t.Errorf("unexpected msg: %v", rec["msg"])
	}
}

func TestDebugContextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(NewLogger(&buf, slog.LevelInfo, "text"))
	defer slog.SetDefault(prev)

	DebugContext(context.Background(), "hidden")
	WarnContext(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message should be filtered: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
