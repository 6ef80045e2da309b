package contest

import (
	"errors"
	"testing"
	"time"
)

func TestEvaluateAdmission(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	base := AdmissionPreconditions{Found: true, Active: true, Start: start, End: end, Now: start.Add(time.Hour)}

	tests := []struct {
		name   string
		mutate func(*AdmissionPreconditions)
		want   Reason
	}{
		{name: "open", mutate: func(*AdmissionPreconditions) {}, want: ReasonNone},
		{name: "missing", mutate: func(in *AdmissionPreconditions) { in.Found = false }, want: ReasonContestNotFound},
		{name: "stopped", mutate: func(in *AdmissionPreconditions) { in.Active = false }, want: ReasonContestInactive},
		{name: "archived", mutate: func(in *AdmissionPreconditions) { in.Archived = true }, want: ReasonContestInactive},
		{name: "before start", mutate: func(in *AdmissionPreconditions) { in.Now = start.Add(-time.Nanosecond) }, want: ReasonNotYetStarted},
		{name: "exactly start", mutate: func(in *AdmissionPreconditions) { in.Now = start }, want: ReasonNone},
		{name: "exactly end", mutate: func(in *AdmissionPreconditions) { in.Now = end }, want: ReasonNone},
		{name: "past end", mutate: func(in *AdmissionPreconditions) { in.Now = end.Add(time.Nanosecond) }, want: ReasonEnded},
		{name: "inactive wins over window", mutate: func(in *AdmissionPreconditions) {
			in.Active = false
			in.Now = end.Add(time.Hour)
		}, want: ReasonContestInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			if got := EvaluateAdmission(in); got != tt.want {
				t.Fatalf("EvaluateAdmission() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := ValidateWindow(start, start); err != nil {
		t.Fatalf("ValidateWindow(equal) error = %v", err)
	}
	if err := ValidateWindow(start, start.Add(-time.Minute)); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("ValidateWindow(reversed) error = %v, want ErrInvalidWindow", err)
	}
}
