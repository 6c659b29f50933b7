package notify

import (
	"bytes"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	n := Writer(&buf)
	n.Notify(Success, "Added")
	n.Notify(Error, "Failed to sync cart")

	want := "[success] Added\n[error] Failed to sync cart\n"
	if buf.String() != want {
		t.Errorf("got %q; want %q", buf.String(), want)
	}
}

func TestLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := Log(zap.New(core))
	n.Notify(Success, "ok")
	n.Notify(Error, "boom")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[1].Level != zapcore.WarnLevel {
		t.Errorf("unexpected levels %v, %v", entries[0].Level, entries[1].Level)
	}
	if entries[1].ContextMap()["message"] != "boom" {
		t.Errorf("expected message field, got %v", entries[1].ContextMap())
	}
}

func TestDiscard(t *testing.T) {
	Discard.Notify(Error, "ignored")
}
