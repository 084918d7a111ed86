package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tturner/smiteclick/internal/clicker"
	"github.com/tturner/smiteclick/internal/hotkey"
	"github.com/tturner/smiteclick/internal/orch"
	"github.com/tturner/smiteclick/internal/settings"
	"github.com/tturner/smiteclick/internal/store"
)

type fakeControl struct {
	mu      sync.Mutex
	running bool
	starts  int
	stops   int
	last    *clicker.Result
}

func (f *fakeControl) Start() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return false
	}
	f.running = true
	f.starts++
	return true
}

func (f *fakeControl) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return false
	}
	f.running = false
	f.stops++
	return true
}

func (f *fakeControl) Toggle() {
	if !f.Start() {
		f.Stop()
	}
}

func (f *fakeControl) Status() orch.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := orch.Status{Phase: orch.PhaseIdle, Last: f.last}
	if f.running {
		st.Phase = orch.PhaseRunning
		st.SessionID = "sess-1"
		st.Count = 7
		st.StartedAt = time.Unix(100, 0)
	}
	return st
}

func (f *fakeControl) finish(r clicker.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	f.last = &r
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestModel(t *testing.T) (model, *fakeControl, *settings.Store) {
	t.Helper()
	ctl := &fakeControl{}
	st := settings.NewStore(settings.Defaults())
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	m := newModel(Deps{Control: ctl, Settings: st, Store: db, Version: "test"})
	return m, ctl, st
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	if !ok {
		t.Fatalf("Update returned %T, want model", next)
	}
	return nm, cmd
}

func TestDashboardControlKeys(t *testing.T) {
	m, ctl, _ := newTestModel(t)

	m, _ = update(t, m, runes("s"))
	if ctl.starts != 1 {
		t.Fatalf("starts = %d, want 1", ctl.starts)
	}
	if m.status.Phase != orch.PhaseRunning {
		t.Errorf("phase = %s, want running", m.status.Phase)
	}

	m, _ = update(t, m, runes("s"))
	if ctl.starts != 1 || m.message != "Already clicking" {
		t.Errorf("second start: starts = %d, message = %q", ctl.starts, m.message)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if ctl.stops != 1 {
		t.Errorf("toggle while running: stops = %d, want 1", ctl.stops)
	}

	m, _ = update(t, m, runes("x"))
	if m.message != "Not clicking" {
		t.Errorf("stop while idle: message = %q", m.message)
	}
}

func TestSessionFinishedMessage(t *testing.T) {
	m, ctl, _ := newTestModel(t)
	ctl.finish(clicker.Result{
		SessionID: "abc",
		Start:     time.Unix(0, 0),
		End:       time.Unix(2, 0),
		Count:     42,
		Reason:    clicker.ReasonLimit,
	})

	m, cmd := update(t, m, tickMsg(time.Now()))
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
	want := "Session finished: 42 clicks in 2s (limit)"
	if m.message != want {
		t.Errorf("message = %q, want %q", m.message, want)
	}

	m.message = ""
	m, _ = update(t, m, tickMsg(time.Now()))
	if m.message != "" {
		t.Errorf("same session reported twice: %q", m.message)
	}
}

func TestDraftRecord(t *testing.T) {
	d := draftFrom(settings.Defaults())
	d.mode = "Fast"
	d.cps = "10"
	d.start = "F9"

	rec, err := d.record()
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := rec[string(settings.KeyCPS)]; got != 31.0 {
		t.Errorf("cps = %v, want 31 (clamped into Fast)", got)
	}
	got, err := settings.Defaults().ApplyRecord(rec)
	if err != nil {
		t.Fatalf("ApplyRecord: %v", err)
	}
	if got.StartHotkey != "Key.f9" || got.CPSMode != settings.ModeFast {
		t.Errorf("applied = %+v", got)
	}

	d.cps = "fast"
	if _, err := d.record(); err == nil {
		t.Error("non-numeric cps should fail")
	}
}

func TestCommit(t *testing.T) {
	st := settings.NewStore(settings.Defaults())
	var notes int
	st.Subscribe(func(settings.Change) { notes++ })

	rec := settings.Defaults().Record()
	rec[string(settings.KeyCPS)] = 20.0
	changed, err := commit(st, rec)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(changed) != 1 || changed[0] != settings.KeyCPS {
		t.Errorf("changed = %v, want [cps]", changed)
	}
	if notes != 1 {
		t.Errorf("notifications = %d, want 1", notes)
	}

	_, err = commit(st, settings.Record{string(settings.KeyStopHotkey): "f6"})
	if !errors.Is(err, settings.ErrHotkeyConflict) {
		t.Fatalf("err = %v, want ErrHotkeyConflict", err)
	}
	if st.Snapshot().StopHotkey != "Key.f7" {
		t.Error("rejected commit changed the store")
	}
}

func TestWarningDialogCountdown(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	info, _ := settings.ModeInsane.Info()
	d := newWarningDialog(info, settings.ModeNormal, settings.Record{}, clock.now)

	tests := []struct {
		advance time.Duration
		label   string
		ready   bool
	}{
		{0, "OK (10)", false},
		{3500 * time.Millisecond, "OK (7)", false},
		{6 * time.Second, "OK (1)", false},
		{500 * time.Millisecond, "OK", true},
	}
	for _, tt := range tests {
		clock.advance(tt.advance)
		if got := d.okLabel(); got != tt.label {
			t.Errorf("okLabel = %q, want %q", got, tt.label)
		}
		if got := d.ready(); got != tt.ready {
			t.Errorf("ready = %v, want %v", got, tt.ready)
		}
	}
}

func TestWarningDialogDeclined(t *testing.T) {
	info, _ := settings.ModeInsane.Info()
	pending := settings.Record{
		string(settings.KeyCPSMode):     "Insane",
		string(settings.KeyCPS):         90.0,
		string(settings.KeyRandomDelay): true,
	}
	d := newWarningDialog(info, settings.ModeNormal, pending, nil)

	got := d.declined()
	if got[string(settings.KeyCPSMode)] != "Normal" || got[string(settings.KeyCPS)] != 30.0 {
		t.Errorf("declined = %v", got)
	}
	if got[string(settings.KeyRandomDelay)] != true {
		t.Error("other changes should be kept")
	}
	if pending[string(settings.KeyCPSMode)] != "Insane" {
		t.Error("declined modified the pending record")
	}
}

func TestSubmitSettingsWithWarning(t *testing.T) {
	m, _, st := newTestModel(t)
	clock := &fakeClock{t: time.Unix(1000, 0)}
	m.now = clock.now

	m.draft = draftFrom(st.Snapshot())
	m.draft.mode = "Insane"
	m.draft.cps = "90"
	m, _ = m.submitSettings()
	if m.dialog == nil {
		t.Fatal("switching to Insane should open the warning dialog")
	}
	if st.Snapshot().CPSMode != settings.ModeNormal {
		t.Fatal("settings changed before confirmation")
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.dialog == nil {
		t.Fatal("enter during cooldown should be ignored")
	}

	clock.advance(10 * time.Second)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.dialog != nil {
		t.Fatal("dialog still open after confirm")
	}
	snap := st.Snapshot()
	if snap.CPSMode != settings.ModeInsane || snap.CPS != 90 {
		t.Errorf("settings = %s/%v, want Insane/90", snap.CPSMode, snap.CPS)
	}
}

func TestSubmitSettingsCancelKeepsMode(t *testing.T) {
	m, _, st := newTestModel(t)
	m.draft = draftFrom(st.Snapshot())
	m.draft.mode = "Fast"
	m.draft.cps = "45"
	m.draft.limitEnabled = true
	m, _ = m.submitSettings()
	if m.dialog == nil {
		t.Fatal("switching to Fast should open the warning dialog")
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	snap := st.Snapshot()
	if snap.CPSMode != settings.ModeNormal || snap.CPS != 30 {
		t.Errorf("settings = %s/%v, want Normal/30", snap.CPSMode, snap.CPS)
	}
	if !snap.ClickLimitEnabled {
		t.Error("non-mode changes should still apply")
	}
	if !strings.Contains(m.message, "Kept Normal") {
		t.Errorf("message = %q", m.message)
	}
}

func TestSubmitSettingsKeepsCPSUnderModeRange(t *testing.T) {
	m, _, st := newTestModel(t)
	st.EnforceModeRange()
	var notes int
	st.Subscribe(func(settings.Change) { notes++ })

	m.draft = draftFrom(st.Snapshot())
	m.draft.mode = "Fast"
	m.draft.cps = "45"
	m, _ = m.submitSettings()
	if m.dialog == nil {
		t.Fatal("switching to Fast should open the warning dialog")
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	snap := st.Snapshot()
	if snap.CPSMode != settings.ModeFast || snap.CPS != 45 {
		t.Errorf("settings = %s/%v, want Fast/45", snap.CPSMode, snap.CPS)
	}
	if notes != 1 {
		t.Errorf("notifications = %d, want 1", notes)
	}

	rec := st.Record()
	rec[string(settings.KeyCPSMode)] = "Normal"
	rec[string(settings.KeyCPS)] = 12.0
	if _, err := commit(st, rec); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if snap := st.Snapshot(); snap.CPSMode != settings.ModeNormal || snap.CPS != 12 {
		t.Errorf("settings = %s/%v, want Normal/12", snap.CPSMode, snap.CPS)
	}
}

func TestSubmitSettingsDirect(t *testing.T) {
	m, _, st := newTestModel(t)
	m.draft = draftFrom(st.Snapshot())
	m.draft.cps = "25"
	m.draft.button = "right"

	m, _ = m.submitSettings()
	if m.dialog != nil {
		t.Fatal("Normal mode should not need confirmation")
	}
	snap := st.Snapshot()
	if snap.CPS != 25 || snap.MouseButton != settings.ButtonRight {
		t.Errorf("settings = %+v", snap)
	}
	if m.isErr || !strings.HasPrefix(m.message, "Settings saved") {
		t.Errorf("message = %q", m.message)
	}

	m.draft.stop = m.draft.start
	m, _ = m.submitSettings()
	if !m.isErr || !strings.Contains(m.message, "both") {
		t.Errorf("conflict message = %q (err=%v)", m.message, m.isErr)
	}
}

func TestProfiles(t *testing.T) {
	m, _, st := newTestModel(t)
	m.screen = screenProfiles

	if err := st.Update("cps", 12); err != nil {
		t.Fatal(err)
	}
	msg := m.saveProfileCmd("steady")()
	m, cmd := update(t, m, msg)
	if m.isErr {
		t.Fatalf("save: %s", m.message)
	}
	if cmd == nil {
		t.Fatal("save should reload the profile list")
	}
	m, _ = update(t, m, cmd())
	if len(m.profiles) != 1 || m.profiles[0].Name != "steady" {
		t.Fatalf("profiles = %+v", m.profiles)
	}

	m, _ = update(t, m, m.saveProfileCmd("steady")())
	if !m.isErr || !strings.Contains(m.message, "already exists") {
		t.Errorf("duplicate save message = %q", m.message)
	}

	if err := st.Update("cps", 3); err != nil {
		t.Fatal(err)
	}
	m, _ = update(t, m, m.loadProfileCmd(m.profiles[0])())
	if got := st.Snapshot().CPS; got != 12 {
		t.Errorf("cps after load = %v, want 12", got)
	}
	if m.message != `Loaded profile "steady"` {
		t.Errorf("message = %q", m.message)
	}

	m, cmd = update(t, m, m.deleteProfileCmd(m.profiles[0])())
	m, _ = update(t, m, cmd())
	if len(m.profiles) != 0 {
		t.Errorf("profiles after delete = %+v", m.profiles)
	}
}

func TestLogs(t *testing.T) {
	m, _, _ := newTestModel(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := m.deps.Store.AddLog(ctx, store.LogEntry{
			StartTime:       start,
			EndTime:         start.Add(2 * time.Second),
			DurationSeconds: 2,
			ClickCount:      20,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	m, cmd := update(t, m, runes("l"))
	if m.screen != screenLogs || cmd == nil {
		t.Fatalf("screen = %v, cmd = %v", m.screen, cmd)
	}
	m, _ = update(t, m, cmd())
	if len(m.logs) != 3 {
		t.Fatalf("logs = %d, want 3", len(m.logs))
	}
	view := m.View()
	if !strings.Contains(view, "3 sessions") || !strings.Contains(view, "10.0 cps") {
		t.Errorf("view missing summary:\n%s", view)
	}

	m, _ = update(t, m, runes("j"))
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}

	m, cmd = update(t, m, m.clearLogsCmd()())
	if m.message != "Cleared 3 logs" {
		t.Errorf("message = %q", m.message)
	}
	m, _ = update(t, m, cmd())
	if len(m.logs) != 0 || m.cursor != 0 {
		t.Errorf("after clear: logs = %d, cursor = %d", len(m.logs), m.cursor)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.screen != screenDashboard {
		t.Errorf("esc should return to the dashboard")
	}
}

func TestCaptureHotkey(t *testing.T) {
	m, _, st := newTestModel(t)
	src := hotkey.NewChanSource()
	m.deps.KeySource = src

	go func() {
		for i := 0; i < 200; i++ {
			if src.Send(hotkey.KeyEvent{Action: hotkey.KeyDown, Key: "Key.f9"}) {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	m.capturing = settings.KeyStopHotkey
	msg := m.captureCmd(settings.KeyStopHotkey)()
	m, _ = update(t, m, msg)
	if m.capturing != "" {
		t.Error("capturing flag not cleared")
	}
	if got := st.Snapshot().StopHotkey; got != "Key.f9" {
		t.Errorf("stop hotkey = %q, want Key.f9 (message %q)", got, m.message)
	}
}

func TestCaptureErrors(t *testing.T) {
	m, _, _ := newTestModel(t)

	m, _ = update(t, m, capturedMsg{key: settings.KeyStartHotkey, err: context.DeadlineExceeded})
	if !m.isErr || m.message != "no key pressed" {
		t.Errorf("timeout message = %q", m.message)
	}

	m, _ = update(t, m, m.captureCmd(settings.KeyStartHotkey)())
	if !m.isErr || !strings.Contains(m.message, "no key source") {
		t.Errorf("missing source message = %q", m.message)
	}

	m, _ = update(t, m, capturedMsg{key: settings.KeyStartHotkey, id: "Key.f7"})
	if !m.isErr || !strings.Contains(m.message, "both") {
		t.Errorf("conflict message = %q", m.message)
	}
}

func TestVisibleRange(t *testing.T) {
	tests := []struct {
		cursor, n, size int
		first, last     int
	}{
		{0, 5, 10, 0, 5},
		{0, 30, 10, 0, 10},
		{15, 30, 10, 10, 20},
		{29, 30, 10, 20, 30},
	}
	for _, tt := range tests {
		first, last := visibleRange(tt.cursor, tt.n, tt.size)
		if first != tt.first || last != tt.last {
			t.Errorf("visibleRange(%d, %d, %d) = %d, %d, want %d, %d",
				tt.cursor, tt.n, tt.size, first, last, tt.first, tt.last)
		}
	}
}

func TestDashboardView(t *testing.T) {
	m, _, _ := newTestModel(t)
	view := m.View()
	for _, want := range []string{"smiteclick test", "IDLE", "10 cps (Normal)", "f6 start, f7 stop (Toggle)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}
