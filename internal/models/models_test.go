package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSleepDetail_SleepDate(t *testing.T) {
	tests := []struct {
		name   string
		detail SleepDetail
		want   string
		ok     bool
	}{
		{"day tag", SleepDetail{Day: "2026-02-17", BedtimeEnd: "2026-02-16T07:00:00+09:00"}, "2026-02-17", true},
		{"invalid day falls back to bedtime end", SleepDetail{Day: "bad", BedtimeEnd: "2026-02-17T07:00:00+09:00"}, "2026-02-17", true},
		{"end datetime", SleepDetail{EndDatetime: "2026-02-18T06:30:00+09:00"}, "2026-02-18", true},
		{"nothing usable", SleepDetail{BedtimeEnd: "yesterday"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.detail.SleepDate()
			if ok != tt.ok {
				t.Fatalf("ok = %v, expected %v", ok, tt.ok)
			}
			if ok && got.Format(DateLayout) != tt.want {
				t.Errorf("SleepDate() = %s, expected %s", got.Format(DateLayout), tt.want)
			}
		})
	}
}

func TestNewStats(t *testing.T) {
	s := NewStats([]int{80, 70, 90})
	if s.Count != 3 || *s.Min != 70 || *s.Max != 90 || *s.Avg != 80 {
		t.Errorf("unexpected stats: %+v", s)
	}

	empty := NewStats(nil)
	if empty.Avg != nil || empty.Min != nil || empty.Max != nil || empty.Count != 0 {
		t.Errorf("empty stats should be zero, got %+v", empty)
	}
}

func TestPeriodData_GoalDays(t *testing.T) {
	p := PeriodData{Daily: []DayComposite{
		{Steps: Int(9000)},
		{Steps: Int(8000)},
		{Steps: Int(7999)},
		{},
	}}
	if got := p.GoalDays(8000); got != 2 {
		t.Errorf("GoalDays = %d, expected 2", got)
	}
}

func TestChannelID_Unmarshal(t *testing.T) {
	var doc struct {
		A *ChannelID `json:"a"`
		B *ChannelID `json:"b"`
		C *ChannelID `json:"c"`
	}
	data := `{"a": 123456789012345678, "b": "987", "c": null}`
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if doc.A == nil || *doc.A != "123456789012345678" {
		t.Errorf("numeric id not decoded: %v", doc.A)
	}
	if doc.B == nil || doc.B.Mention() != "<#987>" {
		t.Errorf("string id not decoded: %v", doc.B)
	}
	if doc.C != nil {
		t.Errorf("null id should stay nil")
	}
}

func TestWorkout_NameAndDuration(t *testing.T) {
	label := "Evening run"
	w := Workout{Activity: "running", StartDatetime: "2026-02-17T18:00:00+09:00", EndDatetime: "2026-02-17T18:45:00+09:00"}
	if w.Name() != "running" {
		t.Errorf("Name() = %q", w.Name())
	}
	w.Label = &label
	if w.Name() != label {
		t.Errorf("Name() = %q", w.Name())
	}
	if w.Duration().Minutes() != 45 {
		t.Errorf("Duration() = %v", w.Duration())
	}
}

func TestTimestamp_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", `"2026-02-17T10:00:00+09:00"`, time.Date(2026, 2, 17, 1, 0, 0, 0, time.UTC)},
		{"zoneless with micros", `"2026-02-17T10:00:00.123456"`, time.Date(2026, 2, 17, 10, 0, 0, 123456000, time.Local)},
		{"zoneless", `"2026-02-17T10:00:00"`, time.Date(2026, 2, 17, 10, 0, 0, 0, time.Local)},
		{"space separated", `"2026-02-17 10:00:00"`, time.Date(2026, 2, 17, 10, 0, 0, 0, time.Local)},
		{"garbage", `"soon"`, time.Time{}},
		{"number", `1771290000`, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			if err := json.Unmarshal([]byte(tt.raw), &ts); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !ts.Equal(tt.want) {
				t.Errorf("got %v, expected %v", ts.Time, tt.want)
			}
		})
	}
}
