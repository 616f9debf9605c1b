package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLockAcquisition(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	defer lock.Release()

	if lock.Path() != filepath.Join(dir, LockFileName) {
		t.Errorf("unexpected lock path %s", lock.Path())
	}
	owner, err := ReadOwner(lock.Path())
	if err != nil {
		t.Fatalf("Failed to read lock file: %v", err)
	}
	if owner.PID != os.Getpid() {
		t.Errorf("expected pid %d, got %d", os.Getpid(), owner.PID)
	}
	if owner.Started.IsZero() || time.Since(owner.Started) > time.Minute {
		t.Errorf("unexpected start time %v", owner.Started)
	}
}

func TestLockConflict(t *testing.T) {
	dir := t.TempDir()

	lock1, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}
	defer lock1.Release()

	lock2, err := AcquireLock(dir)
	if err == nil {
		lock2.Release()
		t.Fatal("Second lock acquisition should have failed")
	}

	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("Expected LockError, got: %T", err)
	}
	if lockErr.Owner.PID != os.Getpid() {
		t.Errorf("conflict should name the holder, got %+v", lockErr.Owner)
	}
	msg := err.Error()
	if !strings.Contains(msg, "another HallBook instance") || !strings.Contains(msg, dir) || !strings.Contains(msg, "(running)") {
		t.Errorf("unhelpful error message: %s", msg)
	}

	// The failed attempt must not clobber the holder's record.
	if owner, _ := ReadOwner(lock1.Path()); owner.PID != os.Getpid() {
		t.Errorf("owner record was overwritten: %+v", owner)
	}
}

func TestLockRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("Failed to release lock: %v", err)
	}
	if _, err := os.Stat(lock.Path()); !os.IsNotExist(err) {
		t.Errorf("Lock file should be removed after release: %s", lock.Path())
	}
	if err := lock.Release(); err != nil {
		t.Errorf("Multiple releases should be safe: %v", err)
	}

	again, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("Failed to reacquire lock after release: %v", err)
	}
	again.Release()
}

func TestParseOwner(t *testing.T) {
	started := time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		content string
		want    Owner
	}{
		{"full record", "pid=12345\nstarted=2026-10-18T09:00:00Z\n", Owner{PID: 12345, Started: started}},
		{"pid only", "pid=67890", Owner{PID: 67890}},
		{"unknown keys", "host=x\npid=42\n", Owner{PID: 42}},
		{"bad pid", "pid=abc", Owner{}},
		{"negative pid", "pid=-3", Owner{}},
		{"bad time", "pid=7\nstarted=yesterday", Owner{PID: 7}},
		{"empty", "", Owner{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseOwner(tt.content)
			if got.PID != tt.want.PID || !got.Started.Equal(tt.want.Started) {
				t.Errorf("parseOwner(%q) = %+v, want %+v", tt.content, got, tt.want)
			}
		})
	}
}

func TestProcessAlive(t *testing.T) {
	if !processAlive(os.Getpid()) {
		t.Error("our own process should be detected as running")
	}
	if (Owner{}).String() != "unknown process" {
		t.Errorf("unexpected description of an empty owner: %s", Owner{})
	}
}

func TestNonExistentDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")

	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("Should be able to create directory and acquire lock: %v", err)
	}
	defer lock.Release()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Directory should have been created: %v", err)
	}
}
