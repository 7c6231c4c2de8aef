package jsonl

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type rec struct {
	Seq int    `json:"seq"`
	Msg string `json:"msg"`
}

func TestWriteAppendsLines(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "arbitrage")
	defer w.Close()

	for i := 1; i <= 3; i++ {
		if err := w.Write(rec{Seq: i, Msg: "hello"}); err != nil {
			t.Fatal(err)
		}
	}

	lines := readLines(t, w.Path(time.Now()))
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	var got rec
	if err := json.Unmarshal([]byte(lines[2]), &got); err != nil {
		t.Fatal(err)
	}
	if got.Seq != 3 {
		t.Fatalf("last seq = %d, want 3", got.Seq)
	}
}

func TestWriteRotatesOnUTCDateChange(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "trades")
	defer w.Close()

	day1 := time.Date(2026, 8, 29, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 30, 0, 1, 0, 0, time.UTC)
	clock := day1
	w.now = func() time.Time { return clock }

	if err := w.Write(rec{Seq: 1}); err != nil {
		t.Fatal(err)
	}
	clock = day2
	if err := w.Write(rec{Seq: 2}); err != nil {
		t.Fatal(err)
	}

	if got := len(readLines(t, filepath.Join(dir, "trades_2026-08-29.jsonl"))); got != 1 {
		t.Fatalf("day-1 lines = %d, want 1", got)
	}
	if got := len(readLines(t, filepath.Join(dir, "trades_2026-08-30.jsonl"))); got != 1 {
		t.Fatalf("day-2 lines = %d, want 1", got)
	}
}

func TestWriteAppendsAcrossReopens(t *testing.T) {
	dir := t.TempDir()

	w := NewWriter(dir, "signals")
	if err := w.Write(rec{Seq: 1}); err != nil {
		t.Fatal(err)
	}
	w.Close()

	w = NewWriter(dir, "signals")
	if err := w.Write(rec{Seq: 2}); err != nil {
		t.Fatal(err)
	}
	w.Close()

	if got := len(readLines(t, w.Path(time.Now()))); got != 2 {
		t.Fatalf("lines = %d after reopen, want 2", got)
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatal(err)
	}
	return lines
}
