package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"slurm-watch/internal/slurm"
)

type fakeClient struct {
	mu       sync.Mutex
	statuses map[slurm.JobID]slurm.Status
	infos    map[slurm.JobID]slurm.JobInfo
	fail     map[slurm.JobID]error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		statuses: make(map[slurm.JobID]slurm.Status),
		infos:    make(map[slurm.JobID]slurm.JobInfo),
		fail:     make(map[slurm.JobID]error),
	}
}

func (f *fakeClient) Status(ctx context.Context, id slurm.JobID) (slurm.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[id]; ok {
		return slurm.StatusUnknown, err
	}
	if s, ok := f.statuses[id]; ok {
		return s, nil
	}
	return slurm.StatusUnknown, nil
}

func (f *fakeClient) Info(ctx context.Context, id slurm.JobID) (slurm.JobInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if info, ok := f.infos[id]; ok {
		return info, nil
	}
	return slurm.JobInfo{}, errors.New("no info")
}

type update struct {
	id     slurm.JobID
	status slurm.Status
	info   slurm.JobInfo
}

type updateRecorder struct {
	mu      sync.Mutex
	updates []update
}

func (r *updateRecorder) record(id slurm.JobID, status slurm.Status, info slurm.JobInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update{id, status, info})
}

func (r *updateRecorder) all() []update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]update(nil), r.updates...)
}

func TestTrackedReturnsAscendingOrder(t *testing.T) {
	m := New(newFakeClient(), 0, nil)
	m.Track(20)
	m.Track(10)
	m.Track(30)
	m.Track(10)

	ids := m.Tracked()
	if len(ids) != 3 {
		t.Fatalf("expected 3 tracked jobs, got %d", len(ids))
	}
	for i, want := range []slurm.JobID{10, 20, 30} {
		if ids[i] != want {
			t.Errorf("Tracked()[%d] = %d, want %d", i, ids[i], want)
		}
	}
}

func TestPollCycleInvokesCallbackUnconditionally(t *testing.T) {
	client := newFakeClient()
	client.statuses[100] = slurm.StatusRunning
	client.infos[100] = slurm.JobInfo{Name: "train", StdoutPath: "/work/slurm-100.out"}

	rec := &updateRecorder{}
	m := New(client, 0, rec.record)
	m.Track(100)

	// Two cycles with an unchanged status still fire two callbacks.
	m.pollCycle(context.Background())
	m.pollCycle(context.Background())

	updates := rec.all()
	if len(updates) != 2 {
		t.Fatalf("expected 2 callback invocations, got %d", len(updates))
	}
	for _, u := range updates {
		if u.id != 100 || u.status != slurm.StatusRunning {
			t.Errorf("unexpected update %+v", u)
		}
	}
	if updates[1].info.StdoutPath != "/work/slurm-100.out" {
		t.Errorf("expected info to carry stdout path, got %+v", updates[1].info)
	}
}

func TestPollCycleReportsNotYetVisibleJobAsUnknown(t *testing.T) {
	client := newFakeClient()
	client.fail[42] = fmt.Errorf("status of job 42: %w", slurm.ErrNoSuchJob)

	rec := &updateRecorder{}
	m := New(client, 0, rec.record)
	m.Track(42)

	m.pollCycle(context.Background())

	// A job the scheduler does not know yet still produces a callback,
	// so the dashboard shows it as UNKNOWN instead of nothing.
	updates := rec.all()
	if len(updates) != 1 {
		t.Fatalf("expected 1 callback for a not-yet-visible job, got %d", len(updates))
	}
	if updates[0].id != 42 || updates[0].status != slurm.StatusUnknown {
		t.Errorf("unexpected update %+v", updates[0])
	}
	if len(m.Tracked()) != 1 {
		t.Errorf("expected the job to stay tracked, got %v", m.Tracked())
	}
}

func TestPollCycleSkipsFailingJob(t *testing.T) {
	client := newFakeClient()
	client.statuses[10] = slurm.StatusRunning
	client.fail[20] = errors.New("squeue exploded")
	client.statuses[30] = slurm.StatusQueued

	rec := &updateRecorder{}
	m := New(client, 0, rec.record)
	m.Track(10)
	m.Track(20)
	m.Track(30)

	m.pollCycle(context.Background())

	updates := rec.all()
	if len(updates) != 2 {
		t.Fatalf("expected the failing job to be skipped, got %d updates", len(updates))
	}
	if updates[0].id != 10 || updates[1].id != 30 {
		t.Errorf("unexpected update order: %+v", updates)
	}
	// The failing job stays tracked.
	if len(m.Tracked()) != 3 {
		t.Errorf("expected 3 tracked jobs, got %v", m.Tracked())
	}
}

func TestUntrackRemovesJob(t *testing.T) {
	rec := &updateRecorder{}
	m := New(newFakeClient(), 0, rec.record)
	m.Track(100)
	m.Untrack(100)

	m.pollCycle(context.Background())
	if len(rec.all()) != 0 {
		t.Errorf("expected no updates for untracked job, got %v", rec.all())
	}
}

func TestStartStopLifecycle(t *testing.T) {
	m := New(newFakeClient(), 0, nil)

	if err := m.Stop(); err != ErrNotRunning {
		t.Errorf("expected ErrNotRunning before start, got %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !m.IsRunning() {
		t.Error("expected monitor to report running")
	}
	if err := m.Start(context.Background()); err != ErrAlreadyRunning {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
	if err := m.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := m.Stop(); err != ErrNotRunning {
		t.Errorf("expected ErrNotRunning after stop, got %v", err)
	}
}
