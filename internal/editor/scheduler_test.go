package editor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cipherstudio/studio/internal/jsonldb"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSchedulerAutosaves(t *testing.T) {
	remote := newFakeRemote()
	g := newTestGateway(t, remote)
	s, _ := newStoreWithProject(t)
	sched := NewScheduler(s, g, 10*time.Millisecond, nil)
	sched.Start()
	defer sched.Stop()

	if _, err := s.CreateFile("a.js", "", 0); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return !s.Dirty() }, "autosave never cleared dirty")
	if got := s.Project().Version; got != 1 {
		t.Fatalf("version = %d", got)
	}
	if remote.putCount() == 0 {
		t.Fatal("no remote upload happened")
	}
}

func TestSchedulerCleanTicksAreNoOps(t *testing.T) {
	remote := newFakeRemote()
	g := newTestGateway(t, remote)
	s, _ := newStoreWithProject(t)
	sched := NewScheduler(s, g, 5*time.Millisecond, nil)
	sched.Start()
	defer sched.Stop()

	time.Sleep(50 * time.Millisecond)
	if n := remote.putCount(); n != 0 {
		t.Fatalf("clean project was flushed %d times", n)
	}
}

func TestSchedulerOfflineCleanTicksAreNoOps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.jsonl")
	g, err := NewGateway(path, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := newStoreWithProject(t)
	sched := NewScheduler(s, g, 10*time.Millisecond, nil)
	sched.Start()
	defer sched.Stop()

	if _, err := s.CreateFile("a.js", "", 0); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return !s.Dirty() }, "autosave never cleared dirty")
	if g.PendingSync(s.ProjectID()) {
		t.Fatal("offline flush must not leave the project pending")
	}

	// Once clean, the scheduler must stop touching the cache file.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	after, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(info.ModTime()) {
		t.Fatal("clean ticks rewrote the cache")
	}
}

func TestSchedulerRetriesPendingSync(t *testing.T) {
	remote := newFakeRemote()
	remote.setDown(true)
	g := newTestGateway(t, remote)
	s, _ := newStoreWithProject(t)
	sched := NewScheduler(s, g, 10*time.Millisecond, nil)
	sched.Start()
	defer sched.Stop()

	if _, err := s.CreateFile("a.js", "", 0); err != nil {
		t.Fatal(err)
	}
	// Local save succeeds, remote is down: dirty clears, pending remains.
	waitFor(t, func() bool { return !s.Dirty() }, "local save never completed")
	if !g.PendingSync(s.ProjectID()) {
		t.Fatal("project should be pending sync")
	}

	// The store is clean, yet ticks keep retrying until the remote is back.
	remote.setDown(false)
	waitFor(t, func() bool { return !g.PendingSync(s.ProjectID()) }, "pending sync never resolved")
}

func TestSchedulerHonorsAutosaveSetting(t *testing.T) {
	remote := newFakeRemote()
	g := newTestGateway(t, remote)
	s, _ := newStoreWithProject(t)
	off := false
	if err := s.UpdateSettings(SettingsPatch{Autosave: &off}); err != nil {
		t.Fatal(err)
	}
	sched := NewScheduler(s, g, 5*time.Millisecond, nil)
	sched.Start()
	defer sched.Stop()

	if _, err := s.CreateFile("a.js", "", 0); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if !s.Dirty() {
		t.Fatal("autosave ran despite being disabled")
	}

	// An explicit save works regardless of the setting.
	if err := sched.SaveNow(); err != nil {
		t.Fatal(err)
	}
	if s.Dirty() {
		t.Fatal("explicit save did not flush")
	}
}

func TestSchedulerSingleFlight(t *testing.T) {
	remote := newFakeRemote()
	remote.putDelay = 100 * time.Millisecond
	g := newTestGateway(t, remote)
	s, _ := newStoreWithProject(t)
	sched := NewScheduler(s, g, time.Hour, nil)

	if _, err := s.CreateFile("a.js", "", 0); err != nil {
		t.Fatal(err)
	}
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		done <- sched.SaveNow()
	}()
	<-started
	waitFor(t, func() bool { return remote.putCount() == 1 }, "first save never reached the remote")

	if err := sched.SaveNow(); !errors.Is(err, ErrFlushInFlight) {
		t.Fatalf("err = %v", err)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestSchedulerStopJoins(t *testing.T) {
	remote := newFakeRemote()
	g := newTestGateway(t, remote)
	s, _ := newStoreWithProject(t)
	sched := NewScheduler(s, g, 5*time.Millisecond, nil)
	sched.Start()
	if !sched.Running() {
		t.Fatal("scheduler should be running")
	}
	sched.Stop()
	if sched.Running() {
		t.Fatal("scheduler should be stopped")
	}

	before := remote.putCount()
	if _, err := s.CreateFile("a.js", "", 0); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	if remote.putCount() != before {
		t.Fatal("tick fired after Stop returned")
	}
	// Stopping again is a no-op, and Start after Stop works.
	sched.Stop()
	sched.Start()
	waitFor(t, func() bool { return !s.Dirty() }, "restart did not resume autosave")
	sched.Stop()
}

func TestSchedulerDiscardsStaleCompletion(t *testing.T) {
	remote := newFakeRemote()
	remote.putDelay = 50 * time.Millisecond
	g := newTestGateway(t, remote)
	s, _ := newStoreWithProject(t)
	sched := NewScheduler(s, g, time.Hour, nil)

	fileID, err := s.CreateFile("a.js", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- sched.SaveNow() }()
	waitFor(t, func() bool { return remote.putCount() == 1 }, "save never started")

	// Edit while the flush is in flight.
	if err := s.UpdateContent(fileID, "newer"); err != nil {
		t.Fatal(err)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if !s.Dirty() {
		t.Fatal("mid-flight edit must keep the store dirty")
	}

	// The next save picks the newer content up.
	if err := sched.SaveNow(); err != nil {
		t.Fatal(err)
	}
	if s.Dirty() {
		t.Fatal("second save should clear dirty")
	}
	if got := remote.projects[s.ProjectID()].Files; got[len(got)-1].Content != "newer" {
		t.Fatalf("remote content = %q", got[len(got)-1].Content)
	}
}

func TestSchedulerNoProjectIsQuiet(t *testing.T) {
	g := newTestGateway(t, newFakeRemote())
	s := NewStore()
	sched := NewScheduler(s, g, time.Hour, nil)
	if err := sched.SaveNow(); err != nil {
		t.Fatal(err)
	}
	if got := s.ProjectID(); got != jsonldb.ID(0) {
		t.Fatalf("project = %s", got)
	}
}
