package dashboard

import (
	"fmt"
	"reflect"
	"testing"

	"slurm-watch/internal/slurm"
)

func stdoutKey(id slurm.JobID) slurm.StreamKey {
	return slurm.StreamKey{Job: id, Stream: slurm.StreamStdout}
}

func newTestState(t *testing.T, height int) *State {
	t.Helper()
	s := NewState(0)
	s.SetViewportHeight(height)
	return s
}

func TestBufferLinesAreSplitOnNewlines(t *testing.T) {
	s := newTestState(t, 10)
	s.UpdateJob(100, slurm.StatusRunning, slurm.JobInfo{})
	key := stdoutKey(100)

	s.Append(key, "a\nb\nc\n")
	s.Append(key, "d\n")

	view := s.Visible(slurm.StreamStdout, 10)
	want := []string{"a", "b", "c", "d", ""}
	if !reflect.DeepEqual(view.Lines, want) {
		t.Fatalf("expected lines %v, got %v", want, view.Lines)
	}
}

func TestBufferJoinsUnterminatedLines(t *testing.T) {
	s := newTestState(t, 10)
	s.UpdateJob(100, slurm.StatusRunning, slurm.JobInfo{})
	key := stdoutKey(100)

	s.Append(key, "progress: 10%")
	s.Append(key, " ... 50%")
	s.Append(key, " done\nnext\n")

	view := s.Visible(slurm.StreamStdout, 10)
	want := []string{"progress: 10% ... 50% done", "next", ""}
	if !reflect.DeepEqual(view.Lines, want) {
		t.Fatalf("expected lines %v, got %v", want, view.Lines)
	}
}

func TestPinnedPaneFollowsAppends(t *testing.T) {
	s := newTestState(t, 5)
	s.UpdateJob(100, slurm.StatusRunning, slurm.JobInfo{})
	key := stdoutKey(100)

	for i := 0; i < 20; i++ {
		s.Append(key, fmt.Sprintf("line %d\n", i))
	}

	sc := s.Scroll(key)
	if !sc.Pinned {
		t.Fatal("expected pane to be pinned by default")
	}
	// 21 derived lines (trailing empty), height 5.
	if sc.Offset != 16 {
		t.Errorf("expected offset 16, got %d", sc.Offset)
	}

	s.Append(key, "more\n")
	if got := s.Scroll(key).Offset; got != 17 {
		t.Errorf("expected offset to follow append to 17, got %d", got)
	}
}

func TestScrollUpUnpinsAndPreservesOffset(t *testing.T) {
	s := newTestState(t, 5)
	s.UpdateJob(100, slurm.StatusRunning, slurm.JobInfo{})
	key := stdoutKey(100)
	for i := 0; i < 20; i++ {
		s.Append(key, fmt.Sprintf("line %d\n", i))
	}

	s.ScrollUp(3)
	sc := s.Scroll(key)
	if sc.Pinned {
		t.Fatal("expected scroll-up to unpin")
	}
	if sc.Offset != 13 {
		t.Errorf("expected offset 13, got %d", sc.Offset)
	}

	// Appends no longer move the offset.
	s.Append(key, "more\n")
	if got := s.Scroll(key).Offset; got != 13 {
		t.Errorf("expected offset to hold at 13, got %d", got)
	}
}

func TestScrollDownToExactMaxRepins(t *testing.T) {
	s := newTestState(t, 5)
	s.UpdateJob(100, slurm.StatusRunning, slurm.JobInfo{})
	key := stdoutKey(100)
	for i := 0; i < 20; i++ {
		s.Append(key, fmt.Sprintf("line %d\n", i))
	}

	s.ScrollUp(4) // offset 12, unpinned
	s.ScrollDown(2)
	sc := s.Scroll(key)
	if sc.Pinned {
		t.Fatal("expected pane to stay unpinned short of the bottom")
	}
	if sc.Offset != 14 {
		t.Fatalf("expected offset 14, got %d", sc.Offset)
	}

	// Landing exactly on the max offset re-enters follow mode.
	s.ScrollDown(2)
	sc = s.Scroll(key)
	if !sc.Pinned {
		t.Error("expected pane to repin at the exact max offset")
	}
	if sc.Offset != 16 {
		t.Errorf("expected offset 16, got %d", sc.Offset)
	}
}

func TestScrollTopAndBottom(t *testing.T) {
	s := newTestState(t, 5)
	s.UpdateJob(100, slurm.StatusRunning, slurm.JobInfo{})
	key := stdoutKey(100)
	for i := 0; i < 20; i++ {
		s.Append(key, fmt.Sprintf("line %d\n", i))
	}

	s.ScrollToTop()
	sc := s.Scroll(key)
	if sc.Pinned || sc.Offset != 0 {
		t.Errorf("expected unpinned offset 0 after top, got %+v", sc)
	}

	s.ScrollToBottom()
	sc = s.Scroll(key)
	if !sc.Pinned || sc.Offset != 16 {
		t.Errorf("expected pinned offset 16 after bottom, got %+v", sc)
	}
}

func TestScrollClampsToValidRange(t *testing.T) {
	s := newTestState(t, 5)
	s.UpdateJob(100, slurm.StatusRunning, slurm.JobInfo{})
	key := stdoutKey(100)
	s.Append(key, "a\nb\n")

	s.ScrollUp(50)
	if got := s.Scroll(key).Offset; got != 0 {
		t.Errorf("expected offset clamped to 0, got %d", got)
	}

	s.ScrollDown(50)
	if got := s.Scroll(key).Offset; got != 0 {
		t.Errorf("expected offset clamped to max 0 for a short buffer, got %d", got)
	}
}

func TestSwitchFocusTogglesStreams(t *testing.T) {
	s := newTestState(t, 5)
	if s.Focus() != slurm.StreamStdout {
		t.Fatalf("expected stdout focus by default, got %s", s.Focus())
	}
	s.SwitchFocus()
	if s.Focus() != slurm.StreamStderr {
		t.Errorf("expected stderr focus, got %s", s.Focus())
	}
	s.SwitchFocus()
	if s.Focus() != slurm.StreamStdout {
		t.Errorf("expected stdout focus again, got %s", s.Focus())
	}
}

func TestJobNavigationWrapsAround(t *testing.T) {
	s := newTestState(t, 5)
	s.UpdateJob(10, slurm.StatusRunning, slurm.JobInfo{})
	s.UpdateJob(20, slurm.StatusRunning, slurm.JobInfo{})

	if id, _ := s.Current(); id != 10 {
		t.Fatalf("expected first update to select job 10, got %d", id)
	}

	s.NextJob()
	if id, _ := s.Current(); id != 20 {
		t.Errorf("expected job 20, got %d", id)
	}
	s.NextJob()
	if id, _ := s.Current(); id != 10 {
		t.Errorf("expected wraparound to job 10, got %d", id)
	}
	s.PrevJob()
	if id, _ := s.Current(); id != 20 {
		t.Errorf("expected wraparound back to job 20, got %d", id)
	}
}

func TestRemoveJobSelectsNextRemaining(t *testing.T) {
	s := newTestState(t, 5)
	s.UpdateJob(10, slurm.StatusRunning, slurm.JobInfo{})
	s.UpdateJob(20, slurm.StatusRunning, slurm.JobInfo{})
	s.UpdateJob(30, slurm.StatusRunning, slurm.JobInfo{})
	s.Select(20)

	s.RemoveJob(20)
	if id, ok := s.Current(); !ok || id != 30 {
		t.Errorf("expected job 30 selected after removing 20, got %d (ok=%v)", id, ok)
	}

	s.RemoveJob(30)
	if id, ok := s.Current(); !ok || id != 10 {
		t.Errorf("expected wrap to job 10, got %d (ok=%v)", id, ok)
	}
}

func TestRemoveLastJobClearsSelection(t *testing.T) {
	s := newTestState(t, 5)
	s.UpdateJob(100, slurm.StatusRunning, slurm.JobInfo{})
	key := stdoutKey(100)
	s.Append(key, "output\n")

	s.RemoveJob(100)
	if _, ok := s.Current(); ok {
		t.Error("expected selection to be cleared")
	}
	if got := s.Content(key); got != "" {
		t.Errorf("expected buffers dropped, got %q", got)
	}
	if len(s.Jobs()) != 0 {
		t.Errorf("expected no jobs, got %v", s.Jobs())
	}
}

func TestUnknownStatusKeepsJobTracked(t *testing.T) {
	s := newTestState(t, 5)
	s.UpdateJob(100, slurm.StatusRunning, slurm.JobInfo{Name: "train"})
	s.UpdateJob(100, slurm.StatusUnknown, slurm.JobInfo{})

	jobs := s.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("expected job to stay tracked, got %d jobs", len(jobs))
	}
	if jobs[0].Status != slurm.StatusUnknown {
		t.Errorf("expected UNKNOWN status, got %s", jobs[0].Status)
	}
	// The empty info update must not wipe the cached one.
	if jobs[0].Info.Name != "train" {
		t.Errorf("expected cached info to survive, got %+v", jobs[0].Info)
	}
}

func TestVisibleWindowAndPlaceholder(t *testing.T) {
	s := newTestState(t, 3)

	view := s.Visible(slurm.StreamStdout, 3)
	if len(view.Lines) != 1 || view.Lines[0] != Placeholder {
		t.Fatalf("expected placeholder for empty state, got %v", view.Lines)
	}

	s.UpdateJob(100, slurm.StatusRunning, slurm.JobInfo{})
	key := stdoutKey(100)
	for i := 1; i <= 9; i++ {
		s.Append(key, fmt.Sprintf("line %d\n", i))
	}

	view = s.Visible(slurm.StreamStdout, 3)
	// 10 derived lines, pinned: window is the last 3.
	if view.First != 8 || view.Last != 10 || view.Total != 10 {
		t.Errorf("unexpected range %d-%d/%d", view.First, view.Last, view.Total)
	}
	want := []string{"line 8", "line 9", ""}
	if !reflect.DeepEqual(view.Lines, want) {
		t.Errorf("expected window %v, got %v", want, view.Lines)
	}
}

func TestBufferCapTrimsOldestLines(t *testing.T) {
	s := NewState(10)
	s.SetViewportHeight(5)
	s.UpdateJob(100, slurm.StatusRunning, slurm.JobInfo{})
	key := stdoutKey(100)

	for i := 0; i < 30; i++ {
		s.Append(key, fmt.Sprintf("line %d\n", i))
	}

	view := s.Visible(slurm.StreamStdout, 5)
	if view.Total != 31 {
		t.Errorf("expected absolute total 31, got %d", view.Total)
	}
	if view.Last != 31 {
		t.Errorf("expected window to end at absolute line 31, got %d", view.Last)
	}
	if view.Lines[len(view.Lines)-2] != "line 29" {
		t.Errorf("expected newest content kept, got %v", view.Lines)
	}
}
