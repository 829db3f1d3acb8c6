package domain

import (
	"testing"
	"time"

	"github.com/shaiso/Flust/internal/ir"
)

func TestCompilation_Lifecycle(t *testing.T) {
	c := NewCompilation("demo", ir.Flow{})

	if c.Status != CompilationStatusPending {
		t.Errorf("expected PENDING, got %s", c.Status)
	}
	if c.IsFinished() {
		t.Error("new compilation should not be finished")
	}
	if c.Duration() != 0 {
		t.Error("unfinished compilation should have zero duration")
	}

	c.MarkFailed("CycleDetected", "cycle detected in flow graph")
	if c.Status != CompilationStatusFailed || c.ErrorKind != "CycleDetected" {
		t.Errorf("unexpected state after MarkFailed: %+v", c)
	}
	if !c.IsFinished() || c.FinishedAt == nil {
		t.Error("failed compilation should be finished")
	}

	c.MarkSucceeded("fn main() {}\n")
	if c.Status != CompilationStatusSucceeded || c.Code == "" {
		t.Errorf("unexpected state after MarkSucceeded: %+v", c)
	}
	if c.ErrorKind != "" || c.Error != "" {
		t.Error("MarkSucceeded should clear error fields")
	}
}

func TestParseCompilationStatus(t *testing.T) {
	tests := []struct {
		input string
		want  CompilationStatus
		ok    bool
	}{
		{"PENDING", CompilationStatusPending, true},
		{"RUNNING", CompilationStatusRunning, true},
		{"SUCCEEDED", CompilationStatusSucceeded, true},
		{"FAILED", CompilationStatusFailed, true},
		{"failed", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseCompilationStatus(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseCompilationStatus(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCompilation_IsStale(t *testing.T) {
	c := NewCompilation("demo", ir.Flow{})
	now := time.Now().UTC()

	if c.IsStale(now, time.Minute) {
		t.Error("pending compilation is never stale")
	}

	c.MarkRunning()
	if c.Status != CompilationStatusRunning || c.StartedAt == nil {
		t.Fatalf("expected RUNNING with started_at, got %s", c.Status)
	}
	if c.IsStale(now, time.Minute) {
		t.Error("fresh running compilation should not be stale")
	}
	if !c.IsStale(now.Add(2*time.Minute), time.Minute) {
		t.Error("running compilation past maxAge should be stale")
	}

	c.MarkFailed("Timeout", "worker did not finish")
	if c.IsStale(now.Add(2*time.Minute), time.Minute) {
		t.Error("finished compilation is never stale")
	}
}
