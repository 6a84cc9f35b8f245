// Package dashboard holds the shared model behind the live view: job
// statuses, log buffers, scroll and focus state. The monitor and tailer
// callbacks mutate it from their goroutines; the UI reads snapshots.
package dashboard

import (
	"sort"
	"strings"
	"sync"

	"slurm-watch/internal/slurm"
)

// DefaultMaxLines caps each stream buffer.
const DefaultMaxLines = 5000

// Placeholder shown for a stream that has produced no output yet.
const Placeholder = "[No output yet - waiting for file updates...]"

// ScrollState is the scroll position of one pane. Pinned means the
// pane follows appends; otherwise the offset holds still.
type ScrollState struct {
	Offset int
	Pinned bool
}

// Buffer is the accumulated content of one stream. Lines are derived
// by splitting the full content on newlines, so content ending in a
// newline carries a trailing empty line.
type Buffer struct {
	lines   []string
	trimmed int
}

// Lines returns the derived lines.
func (b *Buffer) Lines() []string {
	return b.lines
}

// Len returns the number of derived lines.
func (b *Buffer) Len() int {
	return len(b.lines)
}

func (b *Buffer) append(chunk string, maxLines int) {
	parts := strings.Split(chunk, "\n")
	if len(b.lines) == 0 {
		b.lines = parts
	} else {
		// The chunk continues the last (possibly unterminated) line.
		b.lines[len(b.lines)-1] += parts[0]
		b.lines = append(b.lines, parts[1:]...)
	}
	if maxLines > 0 && len(b.lines) > maxLines {
		drop := len(b.lines) - maxLines
		b.lines = append(b.lines[:0], b.lines[drop:]...)
		b.trimmed += drop
	}
}

type jobEntry struct {
	status slurm.Status
	info   slurm.JobInfo
}

// State is the mutex-protected dashboard model.
type State struct {
	mu sync.Mutex

	maxLines int

	jobs    map[slurm.JobID]*jobEntry
	buffers map[slurm.StreamKey]*Buffer
	scroll  map[slurm.StreamKey]*ScrollState

	current slurm.JobID
	hasJob  bool
	focus   slurm.Stream

	// viewportHeight is the pane height used by scroll clamping. The
	// view updates it on resize.
	viewportHeight int
}

// NewState creates an empty dashboard model. maxLines <= 0 uses
// DefaultMaxLines.
func NewState(maxLines int) *State {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return &State{
		maxLines: maxLines,
		jobs:     make(map[slurm.JobID]*jobEntry),
		buffers:  make(map[slurm.StreamKey]*Buffer),
		scroll:   make(map[slurm.StreamKey]*ScrollState),
		focus:    slurm.StreamStdout,
	}
}

// SetViewportHeight records the pane height scroll math works against.
func (s *State) SetViewportHeight(h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h < 1 {
		h = 1
	}
	s.viewportHeight = h
	for key, sc := range s.scroll {
		s.clamp(key, sc)
	}
}

// ViewportHeight returns the pane height the renderer last fed back,
// at least 1. Page-sized scrolling uses it instead of re-deriving the
// layout.
func (s *State) ViewportHeight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewportHeight < 1 {
		return 1
	}
	return s.viewportHeight
}

// UpdateJob records the latest status and info for a job. Unknown
// status never evicts a job. The first update selects the job when
// nothing is selected yet.
func (s *State) UpdateJob(id slurm.JobID, status slurm.Status, info slurm.JobInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[id]
	if !ok {
		entry = &jobEntry{}
		s.jobs[id] = entry
		if !s.hasJob {
			s.current = id
			s.hasJob = true
		}
	}
	entry.status = status
	if info != (slurm.JobInfo{}) {
		entry.info = info
	}
}

// Append adds a chunk to a stream buffer. A pinned pane follows the
// append; an unpinned pane keeps its offset, re-clamped.
func (s *State) Append(key slurm.StreamKey, chunk string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.buffers[key]
	if !ok {
		buf = &Buffer{}
		s.buffers[key] = buf
		s.scroll[key] = &ScrollState{Pinned: true}
	}
	buf.append(chunk, s.maxLines)
	s.clamp(key, s.scroll[key])
}

// clamp re-derives the offset after any buffer or height change.
// Callers hold the lock.
func (s *State) clamp(key slurm.StreamKey, sc *ScrollState) {
	max := s.maxOffset(key)
	if sc.Pinned || sc.Offset > max {
		sc.Offset = max
	}
	if sc.Offset < 0 {
		sc.Offset = 0
	}
}

// maxOffset is the offset that puts the last line at the bottom of the
// pane. Callers hold the lock.
func (s *State) maxOffset(key slurm.StreamKey) int {
	buf, ok := s.buffers[key]
	if !ok {
		return 0
	}
	h := s.viewportHeight
	if h < 1 {
		h = 1
	}
	max := buf.Len() - h
	if max < 0 {
		max = 0
	}
	return max
}

// focusedKey is the stream key scroll actions apply to. Callers hold
// the lock.
func (s *State) focusedKey() (slurm.StreamKey, bool) {
	if !s.hasJob {
		return slurm.StreamKey{}, false
	}
	return slurm.StreamKey{Job: s.current, Stream: s.focus}, true
}

func (s *State) scrollState(key slurm.StreamKey) *ScrollState {
	sc, ok := s.scroll[key]
	if !ok {
		sc = &ScrollState{Pinned: true}
		s.scroll[key] = sc
	}
	return sc
}

// ScrollUp moves the focused pane up n lines and leaves pinned mode.
func (s *State) ScrollUp(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.focusedKey()
	if !ok {
		return
	}
	sc := s.scrollState(key)
	sc.Pinned = false
	sc.Offset -= n
	if sc.Offset < 0 {
		sc.Offset = 0
	}
}

// ScrollDown moves the focused pane down n lines. Landing exactly on
// the max offset re-enters pinned mode; stopping short stays unpinned.
func (s *State) ScrollDown(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.focusedKey()
	if !ok {
		return
	}
	sc := s.scrollState(key)
	max := s.maxOffset(key)
	sc.Offset += n
	if sc.Offset >= max {
		sc.Offset = max
		sc.Pinned = true
	} else {
		sc.Pinned = false
	}
}

// ScrollToTop jumps the focused pane to the first line and unpins it.
func (s *State) ScrollToTop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.focusedKey()
	if !ok {
		return
	}
	sc := s.scrollState(key)
	sc.Offset = 0
	sc.Pinned = false
}

// ScrollToBottom jumps the focused pane to the end and pins it.
func (s *State) ScrollToBottom() {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.focusedKey()
	if !ok {
		return
	}
	sc := s.scrollState(key)
	sc.Offset = s.maxOffset(key)
	sc.Pinned = true
}

// Follow pins the focused pane without moving it first; the next
// clamp snaps it to the bottom.
func (s *State) Follow() {
	s.ScrollToBottom()
}

// SwitchFocus toggles scroll focus between stdout and stderr.
func (s *State) SwitchFocus() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.focus == slurm.StreamStdout {
		s.focus = slurm.StreamStderr
	} else {
		s.focus = slurm.StreamStdout
	}
}

// Focus returns the stream that currently receives scroll actions.
func (s *State) Focus() slurm.Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focus
}

// sortedJobs returns tracked ids ascending. Callers hold the lock.
func (s *State) sortedJobs() []slurm.JobID {
	ids := make([]slurm.JobID, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NextJob selects the next job in ascending id order, wrapping around.
func (s *State) NextJob() {
	s.step(1)
}

// PrevJob selects the previous job in ascending id order, wrapping
// around.
func (s *State) PrevJob() {
	s.step(-1)
}

func (s *State) step(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasJob {
		return
	}
	ids := s.sortedJobs()
	if len(ids) == 0 {
		return
	}
	idx := 0
	for i, id := range ids {
		if id == s.current {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(ids)) % len(ids)
	s.current = ids[idx]
}

// Current returns the selected job id, if any.
func (s *State) Current() (slurm.JobID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.hasJob
}

// Select makes id the current job if it is tracked.
func (s *State) Select(id slurm.JobID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; ok {
		s.current = id
		s.hasJob = true
	}
}

// RemoveJob drops a job with its buffers and scroll state. Removing
// the current job selects the next remaining job, or clears the
// selection when none remain.
func (s *State) RemoveJob(id slurm.JobID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return
	}
	delete(s.jobs, id)
	for _, stream := range []slurm.Stream{slurm.StreamStdout, slurm.StreamStderr} {
		key := slurm.StreamKey{Job: id, Stream: stream}
		delete(s.buffers, key)
		delete(s.scroll, key)
	}

	if !s.hasJob || s.current != id {
		return
	}
	ids := s.sortedJobs()
	if len(ids) == 0 {
		s.hasJob = false
		s.current = 0
		return
	}
	// The first id greater than the removed one, wrapping to the
	// smallest.
	s.current = ids[0]
	for _, candidate := range ids {
		if candidate > id {
			s.current = candidate
			break
		}
	}
}

// Jobs returns a status snapshot of all tracked jobs, ascending by id.
func (s *State) Jobs() []JobView {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]JobView, 0, len(s.jobs))
	for _, id := range s.sortedJobs() {
		entry := s.jobs[id]
		views = append(views, JobView{
			ID:       id,
			Status:   entry.status,
			Info:     entry.info,
			Selected: s.hasJob && id == s.current,
		})
	}
	return views
}

// JobView is one row of the status table.
type JobView struct {
	ID       slurm.JobID
	Status   slurm.Status
	Info     slurm.JobInfo
	Selected bool
}

// PaneView is the renderable window of one stream pane.
type PaneView struct {
	Lines   []string
	First   int
	Last    int
	Total   int
	Pinned  bool
	Focused bool
}

// Visible returns the window of the focused job's stream that fits a
// pane of the given height. An empty buffer yields the placeholder.
func (s *State) Visible(stream slurm.Stream, height int) PaneView {
	s.mu.Lock()
	defer s.mu.Unlock()

	if height < 1 {
		height = 1
	}
	// An empty pane counts as following: output will appear as soon
	// as the file produces any.
	view := PaneView{Focused: s.focus == stream, Pinned: true}
	if !s.hasJob {
		view.Lines = []string{Placeholder}
		return view
	}

	key := slurm.StreamKey{Job: s.current, Stream: stream}
	buf, ok := s.buffers[key]
	if !ok || buf.Len() == 0 {
		view.Lines = []string{Placeholder}
		return view
	}

	sc := s.scrollState(key)
	total := buf.Len()
	offset := sc.Offset
	if sc.Pinned {
		offset = total - height
		if offset < 0 {
			offset = 0
		}
	}
	if offset > total-1 {
		offset = total - 1
	}
	end := offset + height
	if end > total {
		end = total
	}

	// Line numbers stay absolute even after the cap trimmed old lines.
	view.Lines = buf.Lines()[offset:end]
	view.First = buf.trimmed + offset + 1
	view.Last = buf.trimmed + end
	view.Total = buf.trimmed + total
	view.Pinned = sc.Pinned
	return view
}

// Scroll returns the scroll state of a stream key. Used by tests and
// the view's pin indicator.
func (s *State) Scroll(key slurm.StreamKey) ScrollState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc, ok := s.scroll[key]; ok {
		return *sc
	}
	return ScrollState{Pinned: true}
}

// Content returns the full buffer of a stream key as one string. Used
// by the clipboard copy action.
func (s *State) Content(key slurm.StreamKey) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.buffers[key]
	if !ok {
		return ""
	}
	return strings.Join(buf.lines, "\n")
}
