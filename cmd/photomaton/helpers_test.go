package main

import (
	"strings"
	"testing"
)

func TestHumanBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}
	for _, tc := range cases {
		if got := humanBytes(tc.in); got != tc.want {
			t.Errorf("humanBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	if got := statusLabel("completed"); got != "Completed" {
		t.Errorf("unexpected label %q", got)
	}
	if got := statusLabel(""); got != "-" {
		t.Errorf("empty status should render dash, got %q", got)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0d9c5a4e-8a12-4f6f-9f5f-3f2f1e0d9c8b"); got != "0d9c5a4e" {
		t.Errorf("unexpected short id %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("short ids must pass through, got %q", got)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"ID", "Size"},
		[][]string{{"p1", "2.0 KiB"}, {"p2"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	if !strings.Contains(out, "ID") || !strings.Contains(out, "2.0 KiB") {
		t.Fatalf("unexpected table output:\n%s", out)
	}
	if !strings.Contains(out, "p2") {
		t.Fatalf("short rows should be padded:\n%s", out)
	}
}
