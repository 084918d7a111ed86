package settings

import (
	"errors"
	"sync"
	"testing"
)

func TestStoreUpdateUnknownKey(t *testing.T) {
	s := NewStore(Defaults())
	calls := 0
	s.Subscribe(func(Change) { calls++ })

	err := s.Update("nonexistent_field", 1)
	if !errors.Is(err, ErrInvalidSetting) {
		t.Fatalf("err = %v, want ErrInvalidSetting", err)
	}
	if calls != 0 {
		t.Errorf("notifications = %d, want 0", calls)
	}
	if s.Snapshot() != Defaults() {
		t.Error("store changed after rejected update")
	}
	if s.Version() != 0 {
		t.Errorf("version = %d, want 0", s.Version())
	}
}

func TestStoreUpdateInvalidValue(t *testing.T) {
	s := NewStore(Defaults())
	calls := 0
	s.Subscribe(func(Change) { calls++ })

	if err := s.Update("click_limit_count", 0); !errors.Is(err, ErrInvalidSetting) {
		t.Fatalf("err = %v, want ErrInvalidSetting", err)
	}
	if calls != 0 || s.Snapshot().ClickLimitCount != 1000 {
		t.Errorf("calls=%d limit=%d", calls, s.Snapshot().ClickLimitCount)
	}
}

func TestStoreUpdateNotifiesOnce(t *testing.T) {
	s := NewStore(Defaults())
	var got []Change
	s.Subscribe(func(c Change) { got = append(got, c) })

	if err := s.Update("cps", 25); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("notifications = %d, want 1", len(got))
	}
	c := got[0]
	if !c.Has(KeyCPS) || c.Source != SourceUpdate || c.Settings.CPS != 25 || c.Version != 1 {
		t.Errorf("change = %+v", c)
	}
}

func TestStoreSnapshotIsIndependent(t *testing.T) {
	s := NewStore(Defaults())
	snap := s.Snapshot()
	snap.CPS = 99
	snap.TargetWindow = "mutated"
	if cur := s.Snapshot(); cur.CPS != 10 || cur.TargetWindow != "" {
		t.Errorf("store observed caller mutation: %+v", cur)
	}

	before := s.Snapshot()
	if err := s.Update("cps", 50); err != nil {
		t.Fatal(err)
	}
	if before.CPS != 10 {
		t.Error("earlier snapshot changed after update")
	}
}

func TestStoreLoadProfile(t *testing.T) {
	s := NewStore(Defaults())
	calls := 0
	s.Subscribe(func(Change) { calls++ })

	err := s.LoadProfile(Record{"cps": 20, "bogus_field": 1})
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if s.Snapshot().CPS != 20 {
		t.Errorf("cps = %v, want 20", s.Snapshot().CPS)
	}
	if calls != 1 {
		t.Errorf("notifications = %d, want 1", calls)
	}
}

func TestStoreLoadProfileManyFieldsOneNotification(t *testing.T) {
	s := NewStore(Defaults())
	var changes []Change
	s.Subscribe(func(c Change) { changes = append(changes, c) })

	rec := Record{
		"cps":               15.0,
		"cps_mode":          "Normal",
		"hotkey_mode":       "Hold",
		"specific_pos_x":    1,
		"specific_pos_y":    2,
		"click_limit_count": -3,
	}
	err := s.LoadProfile(rec)
	if !errors.Is(err, ErrInvalidSetting) {
		t.Fatalf("err = %v, want ErrInvalidSetting for the bad limit", err)
	}
	if len(changes) != 1 {
		t.Fatalf("notifications = %d, want 1", len(changes))
	}
	got := s.Snapshot()
	if got.CPS != 15 || got.HotkeyMode != HotkeyHold || got.SpecificPos != (Point{X: 1, Y: 2}) {
		t.Errorf("valid fields not applied: %+v", got)
	}
	if got.ClickLimitCount != 1000 {
		t.Errorf("invalid field applied: limit = %d", got.ClickLimitCount)
	}
	if changes[0].Source != SourceProfile || changes[0].Has(KeyClickLimitCount) {
		t.Errorf("change = %+v", changes[0])
	}
}

func TestStoreLoadEmptyProfileStillNotifies(t *testing.T) {
	s := NewStore(Defaults())
	calls := 0
	s.Subscribe(func(Change) { calls++ })
	if err := s.LoadProfile(Record{"unknown": true}); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("notifications = %d, want 1", calls)
	}
}

func TestStoreUnsubscribe(t *testing.T) {
	s := NewStore(Defaults())
	calls := 0
	sub := s.Subscribe(func(Change) { calls++ })
	_ = s.Update("cps", 11)
	sub.Unsubscribe()
	sub.Unsubscribe()
	_ = s.Update("cps", 12)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestStoreReentrantUpdate(t *testing.T) {
	s := NewStore(Defaults())
	var order []uint64

	s.Subscribe(func(c Change) {
		order = append(order, c.Version)
		if c.Has(KeyCPSMode) {
			if err := s.Update("cps", 40); err != nil {
				t.Errorf("nested Update: %v", err)
			}
			// the nested write is visible immediately
			if s.Snapshot().CPS != 40 {
				t.Error("nested write not applied before return")
			}
		}
	})
	second := 0
	s.Subscribe(func(c Change) {
		if c.Version == 1 && c.Settings.CPS != 10 {
			t.Errorf("first change carried cps %v, want the pre-nested value", c.Settings.CPS)
		}
		second++
	})

	if err := s.Update("cps_mode", "Fast"); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("delivery order = %v, want [1 2]", order)
	}
	if second != 2 {
		t.Errorf("second observer calls = %d, want 2", second)
	}
}

func TestEnforceModeRange(t *testing.T) {
	s := NewStore(Defaults())
	s.EnforceModeRange()

	if err := s.Update("cps_mode", "Extreme"); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().CPS; got != 51 {
		t.Errorf("cps after switching to Extreme = %v, want 51", got)
	}
	if err := s.Update("cps", 200); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().CPS; got != 80 {
		t.Errorf("cps = %v, want clamp to 80", got)
	}
}

func TestEnforceModeRangeClampsInSameChange(t *testing.T) {
	s := NewStore(Defaults())
	s.EnforceModeRange()
	var got []Change
	s.Subscribe(func(c Change) { got = append(got, c) })

	if err := s.Update("cps_mode", "Fast"); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("notifications = %d, want 1", len(got))
	}
	if !got[0].Has(KeyCPSMode) || !got[0].Has(KeyCPS) || got[0].Settings.CPS != 31 {
		t.Errorf("change = %+v, want mode and clamped cps together", got[0])
	}

	got = nil
	if err := s.LoadProfile(Record{"cps": 95, "cps_mode": "Normal"}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Settings.CPS != 30 {
		t.Errorf("profile load changes = %+v, want one with cps 30", got)
	}
}

func TestEnforceModeRangeUnsubscribe(t *testing.T) {
	s := NewStore(Defaults())
	sub := s.EnforceModeRange()
	sub.Unsubscribe()
	sub.Unsubscribe()

	if err := s.Update("cps", 75); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().CPS; got != 75 {
		t.Errorf("cps = %v, want 75 once enforcement is off", got)
	}
}

func TestStoreUpdateRecord(t *testing.T) {
	s := NewStore(Defaults())
	s.EnforceModeRange()
	var got []Change
	s.Subscribe(func(c Change) { got = append(got, c) })

	// cps is only valid in the new mode's band
	changed, err := s.UpdateRecord(Record{"cps": 45, "cps_mode": "Fast", "mouse_button": "left"})
	if err != nil {
		t.Fatalf("UpdateRecord: %v", err)
	}
	if snap := s.Snapshot(); snap.CPS != 45 || snap.CPSMode != ModeFast {
		t.Errorf("cps=%v mode=%v, want 45 Fast", snap.CPS, snap.CPSMode)
	}
	if len(changed) != 2 {
		t.Errorf("changed = %v, want cps and cps_mode", changed)
	}
	if len(got) != 1 || !got[0].Has(KeyCPS) || !got[0].Has(KeyCPSMode) {
		t.Fatalf("changes = %+v, want one carrying both keys", got)
	}

	got = nil
	if changed, err := s.UpdateRecord(Record{"cps": 45}); err != nil || len(changed) != 0 {
		t.Errorf("no-op record: changed = %v, err = %v", changed, err)
	}
	if len(got) != 0 {
		t.Errorf("no-op record notified %d times", len(got))
	}

	before := s.Snapshot()
	for _, rec := range []Record{
		{"cps": 20, "bogus": 1},
		{"cps": 20, "click_limit_count": 0},
		{"stop_hotkey": "Key.f6"},
	} {
		if _, err := s.UpdateRecord(rec); err == nil {
			t.Errorf("UpdateRecord(%v) succeeded, want error", rec)
		}
	}
	if s.Snapshot() != before || len(got) != 0 {
		t.Error("rejected records changed the store")
	}
}

func TestStoreConcurrentReadersSeeWholeRecords(t *testing.T) {
	s := NewStore(Defaults())
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 500; i++ {
			_ = s.LoadProfile(Record{"specific_pos_x": i, "specific_pos_y": i})
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				p := s.Snapshot().SpecificPos
				if p.X != p.Y {
					t.Errorf("torn read: %v", p)
					return
				}
			}
		}()
	}
	wg.Wait()
}
