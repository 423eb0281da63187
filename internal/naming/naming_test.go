package naming

import "testing"

func TestNextAlias(t *testing.T) {
	tests := []struct {
		name     string
		existing map[string]string
		want     string
	}{
		{"empty map", map[string]string{}, "c001"},
		{"sequential", map[string]string{"c001": "a.mp4", "c002": "b.mp4"}, "c003"},
		{"gap is reused", map[string]string{"c001": "a.mp4", "c003": "b.mp4"}, "c002"},
		{"nil map", nil, "c001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextAlias(tt.existing); got != tt.want {
				t.Errorf("NextAlias() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAliasFor(t *testing.T) {
	m := map[string]string{"c001": "holiday.mp4", "c002": "city.mov"}
	if alias, ok := AliasFor(m, "city.mov"); !ok || alias != "c002" {
		t.Errorf("AliasFor(city.mov) = %q, %v", alias, ok)
	}
	if _, ok := AliasFor(m, "unknown.mp4"); ok {
		t.Error("AliasFor should miss for unmapped names")
	}
}

func TestSegmentNames(t *testing.T) {
	if got := SegmentFileName("c007", 3); got != "c007_3.mp4" {
		t.Errorf("SegmentFileName = %q", got)
	}
	if got := SegmentAlias("c007", 3); got != "c007_3" {
		t.Errorf("SegmentAlias = %q", got)
	}
}

func TestParseSegmentName(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		alias     string
		ordinal   int
		ok        bool
	}{
		{"well-formed", "c001_2.mp4", "c001", 2, true},
		{"double underscore stem", "my_clip_7.mp4", "my_clip", 7, true},
		{"no underscore", "clip.mp4", "", 0, false},
		{"non-numeric ordinal", "c001_final.mp4", "", 0, false},
		{"zero ordinal", "c001_0.mp4", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alias, ordinal, ok := ParseSegmentName(tt.in)
			if ok != tt.ok || alias != tt.alias || ordinal != tt.ordinal {
				t.Errorf("ParseSegmentName(%q) = %q, %d, %v; want %q, %d, %v",
					tt.in, alias, ordinal, ok, tt.alias, tt.ordinal, tt.ok)
			}
		})
	}
}

func TestOutputFileName(t *testing.T) {
	if got := OutputFileName(12); got != "video_0012.mp4" {
		t.Errorf("OutputFileName(12) = %q", got)
	}
}

func TestEnhancedFileName(t *testing.T) {
	got := EnhancedFileName("/media/raw/trip.mkv", 4)
	if got != "/media/raw/trip_x4.mp4" {
		t.Errorf("EnhancedFileName = %q", got)
	}
}
