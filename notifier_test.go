package antrian

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNotifierFunc(t *testing.T) {
	var got NoticeKind
	var msg string
	n := NotifierFunc(func(kind NoticeKind, message string) {
		got, msg = kind, message
	})
	n.Notify(NoticeRateLimited, "slow down")
	if got != NoticeRateLimited || msg != "slow down" {
		t.Errorf("NotifierFunc got %v %q", got, msg)
	}
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := LogNotifier{Logger: NewZapLogger(zap.New(core))}

	n.Notify(NoticeConnectionLost, "offline")
	n.Notify(NoticeConnectionRestored, "online")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	if entries[0].Level != zap.WarnLevel || entries[0].Message != "offline" {
		t.Errorf("first entry = %v %q", entries[0].Level, entries[0].Message)
	}
	if entries[1].Level != zap.InfoLevel {
		t.Errorf("restored should log at info, got %v", entries[1].Level)
	}
	if entries[0].ContextMap()["notice"] != "connection_lost" {
		t.Errorf("notice field = %v", entries[0].ContextMap()["notice"])
	}

	LogNotifier{}.Notify(NoticeRateLimited, "no logger is fine")
}

func TestNoticeKindString(t *testing.T) {
	kinds := map[NoticeKind]string{
		NoticeConnectionLost:     "connection_lost",
		NoticeConnectionRestored: "connection_restored",
		NoticeRateLimited:        "rate_limited",
		NoticeRetryScheduled:     "retry_scheduled",
		NoticeKind(0):            "unknown",
	}
	for k, want := range kinds {
		if k.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(k), k.String(), want)
		}
	}
}

func TestConnectionTracker(t *testing.T) {
	var c connectionTracker
	if c.succeeded() {
		t.Error("success without a prior loss restores nothing")
	}
	if !c.failed() {
		t.Error("first failure should report lost")
	}
	if c.failed() {
		t.Error("repeated failures report lost once")
	}
	if !c.succeeded() {
		t.Error("success after loss should report restored")
	}
	if c.succeeded() {
		t.Error("restored reports once")
	}
}
