package contest

// SessionStep tags which variant a VoterSession holds.
type SessionStep string

const (
	StepSelectingCandidate SessionStep = "selecting_candidate"
	StepConfirmingVote     SessionStep = "confirming_vote"
)

// VoterSession is the per-voter dialog state between opening a contest and confirming a vote.
// CandidateID is only meaningful in StepConfirmingVote.
type VoterSession struct {
	Step        SessionStep `json:"step"`
	ContestID   uint64      `json:"contest_id"`
	CandidateID uint64      `json:"candidate_id,omitempty"`
}

func NewSelection(contestID uint64) VoterSession {
	return VoterSession{Step: StepSelectingCandidate, ContestID: contestID}
}

// NewConfirmation skips selection, used when a deep link already names the candidate.
func NewConfirmation(contestID, candidateID uint64) VoterSession {
	return VoterSession{Step: StepConfirmingVote, ContestID: contestID, CandidateID: candidateID}
}

// Select moves a selecting session to confirmation of candidateID.
// Re-selecting while confirming replaces the pending candidate.
func (s VoterSession) Select(candidateID uint64) (VoterSession, error) {
	switch s.Step {
	case StepSelectingCandidate, StepConfirmingVote:
		return NewConfirmation(s.ContestID, candidateID), nil
	default:
		return VoterSession{}, ErrSessionStep
	}
}

// Confirm checks that candidateID is the one awaiting confirmation and returns the contest id.
func (s VoterSession) Confirm(candidateID uint64) (uint64, error) {
	if s.Step != StepConfirmingVote || s.CandidateID != candidateID {
		return 0, ErrSessionStep
	}
	return s.ContestID, nil
}

func (s VoterSession) Valid() bool {
	switch s.Step {
	case StepSelectingCandidate:
		return s.ContestID != 0
	case StepConfirmingVote:
		return s.ContestID != 0 && s.CandidateID != 0
	default:
		return false
	}
}
