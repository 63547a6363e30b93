package job

import (
	"testing"
	"time"
)

func TestParseSchedule_FiveFieldsDefaultsSecondsToZero(t *testing.T) {
	s, err := ParseSchedule("30 4 * * *")
	if err != nil {
		t.Fatalf("ParseSchedule() error = %v", err)
	}
	if _, ok := s.seconds[0]; !ok || len(s.seconds) != 1 {
		t.Errorf("seconds = %v, want {0}", s.seconds)
	}
	if _, ok := s.minutes[30]; !ok {
		t.Error("minutes should contain 30")
	}
	if _, ok := s.hours[4]; !ok {
		t.Error("hours should contain 4")
	}
}

func TestParseSchedule_SixFieldsKeepsSeconds(t *testing.T) {
	s, err := ParseSchedule("15 30 4 * * *")
	if err != nil {
		t.Fatalf("ParseSchedule() error = %v", err)
	}
	if _, ok := s.seconds[15]; !ok || len(s.seconds) != 1 {
		t.Errorf("seconds = %v, want {15}", s.seconds)
	}
}

func TestParseSchedule_WrongFieldCountErrors(t *testing.T) {
	if _, err := ParseSchedule("* * *"); err == nil {
		t.Fatal("expected an error for a 3-field expression")
	}
	if _, err := ParseSchedule("* * * * * * *"); err == nil {
		t.Fatal("expected an error for a 7-field expression")
	}
}

func TestParseField_Star(t *testing.T) {
	set, err := parseField("*", 0, 3)
	if err != nil {
		t.Fatalf("parseField() error = %v", err)
	}
	want := map[int]struct{}{0: {}, 1: {}, 2: {}, 3: {}}
	if len(set) != len(want) {
		t.Errorf("parseField(*) = %v, want %v", set, want)
	}
	for v := range want {
		if _, ok := set[v]; !ok {
			t.Errorf("parseField(*) missing %d", v)
		}
	}
}

func TestParseField_Step(t *testing.T) {
	set, err := parseField("*/15", 0, 59)
	if err != nil {
		t.Fatalf("parseField() error = %v", err)
	}
	want := []int{0, 15, 30, 45}
	if len(set) != len(want) {
		t.Fatalf("parseField(*/15) has %d entries, want %d", len(set), len(want))
	}
	for _, v := range want {
		if _, ok := set[v]; !ok {
			t.Errorf("parseField(*/15) missing %d", v)
		}
	}
}

func TestParseField_Range(t *testing.T) {
	set, err := parseField("1-3", 0, 6)
	if err != nil {
		t.Fatalf("parseField() error = %v", err)
	}
	for _, v := range []int{1, 2, 3} {
		if _, ok := set[v]; !ok {
			t.Errorf("parseField(1-3) missing %d", v)
		}
	}
	if len(set) != 3 {
		t.Errorf("parseField(1-3) = %v, want 3 entries", set)
	}
}

func TestParseField_Exact(t *testing.T) {
	set, err := parseField("5", 0, 59)
	if err != nil {
		t.Fatalf("parseField() error = %v", err)
	}
	if _, ok := set[5]; !ok || len(set) != 1 {
		t.Errorf("parseField(5) = %v, want {5}", set)
	}
}

func TestParseField_InvalidStepErrors(t *testing.T) {
	if _, err := parseField("*/0", 0, 59); err == nil {
		t.Fatal("expected an error for a zero step")
	}
	if _, err := parseField("*/abc", 0, 59); err == nil {
		t.Fatal("expected an error for a non-numeric step")
	}
}

func TestParseField_InvalidRangeErrors(t *testing.T) {
	if _, err := parseField("5-1", 0, 59); err == nil {
		t.Fatal("expected an error when range lo > hi")
	}
	if _, err := parseField("a-b", 0, 59); err == nil {
		t.Fatal("expected an error for a non-numeric range")
	}
}

func TestParseField_InvalidValueErrors(t *testing.T) {
	if _, err := parseField("abc", 0, 59); err == nil {
		t.Fatal("expected an error for a non-numeric value")
	}
}

func TestSchedule_Matches(t *testing.T) {
	s, err := ParseSchedule("*/15 * * * *")
	if err != nil {
		t.Fatal(err)
	}
	match := time.Date(2026, time.January, 1, 12, 30, 0, 0, time.UTC)
	if !s.matches(match) {
		t.Errorf("schedule should match %v", match)
	}
	noMatch := time.Date(2026, time.January, 1, 12, 31, 0, 0, time.UTC)
	if s.matches(noMatch) {
		t.Errorf("schedule should not match %v", noMatch)
	}
}

func TestSchedule_Matches_AllFieldsMustAgree(t *testing.T) {
	s, err := ParseSchedule("0 0 1 6 0")
	if err != nil {
		t.Fatal(err)
	}
	// June 1, 2026 is a Monday (weekday 1), not Sunday (0), so a schedule
	// requiring day-of-week 0 must not match even though month/day/hour/
	// minute all line up.
	notSunday := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	if s.matches(notSunday) {
		t.Error("schedule requiring Sunday matched a Monday")
	}
}

func TestCron_Schedule_RejectsBadExpression(t *testing.T) {
	c := NewCron(nil, nil)
	if err := c.Schedule("nonsense", "some_job", nil); err == nil {
		t.Fatal("expected Schedule() to reject a malformed cron expression")
	}
}
