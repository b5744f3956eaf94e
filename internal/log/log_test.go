package log

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLogBufferWraps(t *testing.T) {
	b := NewLogBuffer(3)
	for i := 0; i < 5; i++ {
		b.AddEntry(LogEntry{Message: string(rune('a' + i))})
	}
	got := b.Entries()
	want := []string{"c", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, expected %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Message != want[i] {
			t.Errorf("entry %d = %q, expected %q", i, got[i].Message, want[i])
		}
	}
}

func TestLogBufferPartial(t *testing.T) {
	b := NewLogBuffer(4)
	b.AddEntry(LogEntry{Message: "a"})
	if got := b.Entries(); len(got) != 1 || got[0].Message != "a" {
		t.Errorf("entries = %+v", got)
	}
}

func TestLogHTTPRequest(t *testing.T) {
	before := len(GetHTTPLogBuffer().Entries())
	LogHTTPRequest("POST", "/api/v1/reconstruct", 500, time.Millisecond, 10, "127.0.0.1", "test", errors.New("boom"))
	entries := GetHTTPLogBuffer().Entries()
	if len(entries) != before+1 {
		t.Fatalf("expected one new entry, got %d", len(entries)-before)
	}
	last := entries[len(entries)-1]
	if last.Level != "error" || last.Fields["status"] != 500 {
		t.Errorf("entry = %+v", last)
	}
}

func TestInitWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ringbiomass.log")
	if err := InitWithFile(false, FileOptions{Path: path, MaxSizeMB: 1}); err != nil {
		t.Fatalf("InitWithFile() error = %v", err)
	}
	Infof("hello %s", "file")
	Sync()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty")
	}
}
