package contest

import "time"

// Reason is why an admission attempt was rejected. The zero value means admitted.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonContestNotFound      Reason = "contest_not_found"
	ReasonContestInactive      Reason = "contest_inactive"
	ReasonNotYetStarted        Reason = "not_yet_started"
	ReasonEnded                Reason = "ended"
	ReasonAlreadyVoted         Reason = "already_voted"
	ReasonSubscriptionRequired Reason = "subscription_required"
	ReasonCandidateNotFound    Reason = "candidate_not_found"
)

func (r Reason) Rejected() bool { return r != ReasonNone }

type AdmissionPreconditions struct {
	Found    bool
	Active   bool
	Archived bool
	Start    time.Time
	End      time.Time
	Now      time.Time
}

// EvaluateAdmission applies the contest-level checks in order and returns the first failure.
// Voter-level checks (already voted, candidate, subscriptions) follow in the caller.
func EvaluateAdmission(in AdmissionPreconditions) Reason {
	if !in.Found {
		return ReasonContestNotFound
	}
	if !in.Active || in.Archived {
		return ReasonContestInactive
	}
	return CheckWindow(in.Start, in.End, in.Now)
}

// CheckWindow reports whether now lies in [start, end]. Both ends are inclusive.
func CheckWindow(start, end, now time.Time) Reason {
	if now.Before(start) {
		return ReasonNotYetStarted
	}
	if now.After(end) {
		return ReasonEnded
	}
	return ReasonNone
}

// ValidateWindow rejects windows that end before they start.
func ValidateWindow(start, end time.Time) error {
	if end.Before(start) {
		return ErrInvalidWindow
	}
	return nil
}
