package schedule

import (
	"testing"
	"time"

	"github.com/examflow/examflow-backend/internal/model"
)

var windowT = time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

func scheduledSession(start, end time.Time, durationMinutes int) *model.ExamSession {
	return &model.ExamSession{
		SchedulingType:  model.SchedulingScheduled,
		WindowStart:     &start,
		WindowEnd:       &end,
		DurationMinutes: durationMinutes,
		Status:          model.SessionStatusPublished,
	}
}

func TestIsWithinWindowScheduled(t *testing.T) {
	s := scheduledSession(windowT, windowT.Add(time.Hour), 60)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before start", windowT.Add(-time.Second), false},
		{"exactly at start", windowT, true},
		{"inside", windowT.Add(30 * time.Minute), true},
		{"exactly at end", windowT.Add(time.Hour), true},
		{"just after end", windowT.Add(time.Hour + time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithinWindow(s, tt.now); got != tt.want {
				t.Errorf("IsWithinWindow(%s) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestIsWithinWindowOnDemand(t *testing.T) {
	from := windowT
	until := windowT.Add(24 * time.Hour)

	tests := []struct {
		name    string
		session *model.ExamSession
		now     time.Time
		want    bool
	}{
		{
			"no bounds always open",
			&model.ExamSession{SchedulingType: model.SchedulingOnDemand},
			windowT.Add(1000 * time.Hour),
			true,
		},
		{
			"before available_from",
			&model.ExamSession{SchedulingType: model.SchedulingOnDemand, AvailableFrom: &from},
			windowT.Add(-time.Minute),
			false,
		},
		{
			"at available_from",
			&model.ExamSession{SchedulingType: model.SchedulingOnDemand, AvailableFrom: &from},
			windowT,
			true,
		},
		{
			"at available_until",
			&model.ExamSession{SchedulingType: model.SchedulingOnDemand, AvailableUntil: &until},
			until,
			true,
		},
		{
			"after available_until",
			&model.ExamSession{SchedulingType: model.SchedulingOnDemand, AvailableUntil: &until},
			until.Add(time.Second),
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithinWindow(tt.session, tt.now); got != tt.want {
				t.Errorf("IsWithinWindow = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEffectiveDeadlineCappedByWindowEnd(t *testing.T) {
	// Window [T, T+3600s], duration 60m, started at T+10s: the raw deadline
	// T+3610s must be capped to the window end.
	s := scheduledSession(windowT, windowT.Add(3600*time.Second), 60)
	got := EffectiveDeadline(s, windowT.Add(10*time.Second))
	if !got.Equal(windowT.Add(3600 * time.Second)) {
		t.Errorf("deadline = %s, want window end %s", got, windowT.Add(3600*time.Second))
	}
}

func TestEffectiveDeadlineUncappedInsideWindow(t *testing.T) {
	s := scheduledSession(windowT, windowT.Add(4*time.Hour), 30)
	started := windowT.Add(time.Hour)
	got := EffectiveDeadline(s, started)
	if !got.Equal(started.Add(30 * time.Minute)) {
		t.Errorf("deadline = %s, want %s", got, started.Add(30*time.Minute))
	}
}

func TestEffectiveDeadlineOnDemand(t *testing.T) {
	s := &model.ExamSession{
		SchedulingType:  model.SchedulingOnDemand,
		DurationMinutes: 45,
	}
	started := windowT.Add(500 * time.Hour)
	if got := EffectiveDeadline(s, started); !got.Equal(started.Add(45 * time.Minute)) {
		t.Errorf("deadline = %s, want start+45m with no cap", got)
	}

	until := started.Add(20 * time.Minute)
	s.AvailableUntil = &until
	if got := EffectiveDeadline(s, started); !got.Equal(until) {
		t.Errorf("deadline = %s, want available_until cap %s", got, until)
	}
}

func TestEffectiveStatus(t *testing.T) {
	s := scheduledSession(windowT, windowT.Add(time.Hour), 60)

	tests := []struct {
		name   string
		stored model.SessionStatus
		now    time.Time
		want   model.SessionStatus
	}{
		{"published before window", model.SessionStatusPublished, windowT.Add(-time.Minute), model.SessionStatusPublished},
		{"published inside window derives active", model.SessionStatusPublished, windowT, model.SessionStatusActive},
		{"published past window derives ended", model.SessionStatusPublished, windowT.Add(2 * time.Hour), model.SessionStatusEnded},
		{"active past window derives ended", model.SessionStatusActive, windowT.Add(2 * time.Hour), model.SessionStatusEnded},
		{"cancelled stays cancelled", model.SessionStatusCancelled, windowT, model.SessionStatusCancelled},
		{"draft stays draft", model.SessionStatusDraft, windowT, model.SessionStatusDraft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.Status = tt.stored
			if got := EffectiveStatus(s, tt.now); got != tt.want {
				t.Errorf("EffectiveStatus = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEffectiveStatusOnDemandPassthrough(t *testing.T) {
	s := &model.ExamSession{
		SchedulingType: model.SchedulingOnDemand,
		Status:         model.SessionStatusPublished,
	}
	if got := EffectiveStatus(s, windowT.Add(9999*time.Hour)); got != model.SessionStatusPublished {
		t.Errorf("on-demand status derived %s, want stored passthrough", got)
	}
}
