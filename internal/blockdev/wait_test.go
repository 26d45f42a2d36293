package blockdev

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWaitForNodesAlreadyPresent(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "p1")
	if err := os.WriteFile(p1, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := WaitForNodes(context.Background(), []string{p1}, DefaultBackoff); err != nil {
		t.Fatal(err)
	}
}

func TestWaitForNodesAppearLater(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "p1")
	p2 := filepath.Join(dir, "p2")
	time.AfterFunc(150*time.Millisecond, func() {
		os.WriteFile(p1, nil, 0644)
		os.WriteFile(p2, nil, 0644)
	})
	b := Backoff{Initial: 10 * time.Millisecond, Max: 50 * time.Millisecond, Timeout: 5 * time.Second}
	if err := WaitForNodes(context.Background(), []string{p1, p2}, b); err != nil {
		t.Fatal(err)
	}
}

func TestWaitForNodesTimeout(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "p1")
	p2 := filepath.Join(dir, "p2")
	if err := os.WriteFile(p1, nil, 0644); err != nil {
		t.Fatal(err)
	}
	b := Backoff{Initial: 5 * time.Millisecond, Max: 20 * time.Millisecond, Timeout: 100 * time.Millisecond}
	start := time.Now()
	err := WaitForNodes(context.Background(), []string{p1, p2}, b)
	if !errors.Is(err, ErrNodesMissing) {
		t.Fatalf("err = %v, want ErrNodesMissing", err)
	}
	if !strings.Contains(err.Error(), p2) || strings.Contains(err.Error(), p1+",") {
		t.Errorf("error %q should name only the missing node", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("WaitForNodes took %v, want roughly the 100ms timeout", elapsed)
	}
}

func TestWaitForNodesCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := Backoff{Initial: time.Second, Max: time.Second, Timeout: time.Minute}
	err := WaitForNodes(ctx, []string{filepath.Join(t.TempDir(), "never")}, b)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
