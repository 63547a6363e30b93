package job

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// schedule is a parsed cron expression of 5 or 6 fields (seconds minutes
// hours day-of-month month day-of-week, seconds optional and defaulting
// to 0). Each field is a set of matching values; "*" matches everything.
type schedule struct {
	seconds, minutes, hours, daysOfMonth, months, daysOfWeek map[int]struct{}
}

// ParseSchedule accepts 5 or 6 whitespace-separated fields and supports
// "*", exact integers, "*/n" step values, and "a-b" ranges in each field.
func ParseSchedule(expr string) (*schedule, error) {
	fields := strings.Fields(expr)
	switch len(fields) {
	case 5:
		fields = append([]string{"0"}, fields...)
	case 6:
		// already has a seconds field
	default:
		return nil, fmt.Errorf("job: cron expression %q must have 5 or 6 fields", expr)
	}

	ranges := []struct {
		lo, hi int
	}{
		{0, 59}, {0, 59}, {0, 23}, {1, 31}, {1, 12}, {0, 6},
	}

	sets := make([]map[int]struct{}, 6)
	for i, f := range fields {
		set, err := parseField(f, ranges[i].lo, ranges[i].hi)
		if err != nil {
			return nil, fmt.Errorf("job: cron field %d (%q): %w", i, f, err)
		}
		sets[i] = set
	}

	return &schedule{
		seconds:     sets[0],
		minutes:     sets[1],
		hours:       sets[2],
		daysOfMonth: sets[3],
		months:      sets[4],
		daysOfWeek:  sets[5],
	}, nil
}

func parseField(f string, lo, hi int) (map[int]struct{}, error) {
	out := make(map[int]struct{})

	if f == "*" {
		for v := lo; v <= hi; v++ {
			out[v] = struct{}{}
		}
		return out, nil
	}

	if step, ok := strings.CutPrefix(f, "*/"); ok {
		n, err := strconv.Atoi(step)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("bad step value")
		}
		for v := lo; v <= hi; v += n {
			out[v] = struct{}{}
		}
		return out, nil
	}

	if a, b, ok := strings.Cut(f, "-"); ok {
		loV, err1 := strconv.Atoi(a)
		hiV, err2 := strconv.Atoi(b)
		if err1 != nil || err2 != nil || loV > hiV {
			return nil, fmt.Errorf("bad range")
		}
		for v := loV; v <= hiV; v++ {
			out[v] = struct{}{}
		}
		return out, nil
	}

	v, err := strconv.Atoi(f)
	if err != nil {
		return nil, fmt.Errorf("bad value")
	}
	out[v] = struct{}{}
	return out, nil
}

func (s *schedule) matches(t time.Time) bool {
	_, ok := s.seconds[t.Second()]
	if !ok {
		return false
	}
	if _, ok := s.minutes[t.Minute()]; !ok {
		return false
	}
	if _, ok := s.hours[t.Hour()]; !ok {
		return false
	}
	if _, ok := s.daysOfMonth[t.Day()]; !ok {
		return false
	}
	if _, ok := s.months[int(t.Month())]; !ok {
		return false
	}
	if _, ok := s.daysOfWeek[int(t.Weekday())]; !ok {
		return false
	}
	return true
}

// entry pairs a parsed schedule with the job it enqueues on each match.
type entry struct {
	expr     string
	schedule *schedule
	jobName  string
	args     any
}

// Cron holds a set of (schedule, job name, args) triples and enqueues an
// instance of each whenever the wall clock second matches, ticking at 1Hz.
type Cron struct {
	queue   *Queue
	log     *slog.Logger
	entries []entry
}

func NewCron(queue *Queue, log *slog.Logger) *Cron {
	if log == nil {
		log = slog.Default()
	}
	return &Cron{queue: queue, log: log}
}

// Schedule registers a cron expression that enqueues jobName with args
// whenever it matches.
func (c *Cron) Schedule(expr, jobName string, args any) error {
	s, err := ParseSchedule(expr)
	if err != nil {
		return err
	}
	c.entries = append(c.entries, entry{expr: expr, schedule: s, jobName: jobName, args: args})
	return nil
}

// Run ticks at 1Hz until ctx is canceled, enqueuing a job instance for
// every schedule that matches the current second.
func (c *Cron) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.tick(ctx, now)
		}
	}
}

func (c *Cron) tick(ctx context.Context, now time.Time) {
	for _, e := range c.entries {
		if !e.schedule.matches(now) {
			continue
		}
		if _, err := c.queue.Enqueue(ctx, e.jobName, e.args); err != nil {
			c.log.Error("cron enqueue failed", "schedule", e.expr, "job_name", e.jobName, "error", err)
		}
	}
}
