package model

import "testing"

func TestModuleProgressPercent(t *testing.T) {
	tests := []struct {
		name        string
		slideIndex  int
		totalSlides int
		want        int
	}{
		{"first of ten", 0, 10, 10},
		{"middle of ten", 4, 10, 50},
		{"second to last of ten", 8, 10, 90},
		{"last of ten", 9, 10, 100},
		{"single slide is first and last", 0, 1, 100},
		{"second to last of two", 0, 2, 50},
		{"last of two", 1, 2, 100},
		{"second to last of three", 1, 3, 66},
		{"negative index clamps to zero", -5, 10, 10},
		{"index past end clamps to last", 42, 10, 100},
		{"zero slides", 0, 0, 0},
		{"negative slides", 0, -3, 0},
		// 199张中的第198张：floor(199/200*100)=99，非终点不得凑整到100
		{"large module near completion", 197, 200, 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ModuleProgressPercent(tt.slideIndex, tt.totalSlides)
			if got != tt.want {
				t.Errorf("ModuleProgressPercent(%d, %d) = %d, want %d",
					tt.slideIndex, tt.totalSlides, got, tt.want)
			}
		})
	}
}

func TestModuleProgressPercentMonotonic(t *testing.T) {
	const total = 37
	prev := -1
	for i := 0; i < total; i++ {
		got := ModuleProgressPercent(i, total)
		if got < prev {
			t.Fatalf("progress regressed at slide %d: %d < %d", i, got, prev)
		}
		if got == 100 && i != total-1 {
			t.Fatalf("progress hit 100 at slide %d of %d", i, total)
		}
		prev = got
	}
	if prev != 100 {
		t.Fatalf("final slide progress = %d, want 100", prev)
	}
}

func TestRecomputeProgress(t *testing.T) {
	tests := []struct {
		name    string
		modules []int
		want    int
	}{
		{"no modules", nil, 0},
		{"mixed thirds", []int{0, 50, 100}, 50},
		{"single complete", []int{100}, 100},
		{"rounds half up", []int{50, 51}, 51},
		{"rounds down", []int{33, 33, 34}, 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := CourseProgressSnapshot{CourseID: "c1"}
			for i, p := range tt.modules {
				snap.Modules = append(snap.Modules, ModuleProgressEntry{
					ModuleID: string(rune('a' + i)),
					Progress: p,
				})
			}
			snap.RecomputeProgress()
			if snap.Progress != tt.want {
				t.Errorf("RecomputeProgress() over %v = %d, want %d", tt.modules, snap.Progress, tt.want)
			}
		})
	}
}

func TestSnapshotRemoteRowRoundTrip(t *testing.T) {
	slide := "s9"
	total := 12
	snap := CourseProgressSnapshot{
		CourseID:    "course-1",
		Progress:    42,
		LastSlideID: &slide,
		Modules: []ModuleProgressEntry{
			{ModuleID: "m1", Progress: 42, LastSlideID: &slide, TotalSlides: &total},
		},
	}

	row := snap.RemoteRow(7)
	if row.UserID != 7 || row.CourseID != "course-1" || row.Progress != 42 {
		t.Fatalf("unexpected remote row: %+v", row)
	}

	back := row.Snapshot()
	if back.CourseID != snap.CourseID || back.Progress != snap.Progress {
		t.Fatalf("round trip changed snapshot: %+v", back)
	}
	if len(back.Modules) != 1 || back.Modules[0].ModuleID != "m1" {
		t.Fatalf("round trip lost modules: %+v", back.Modules)
	}
}
