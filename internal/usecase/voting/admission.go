package voting

import (
	"context"
	"errors"
	"log/slog"

	"votebot/internal/bootstrap/logging"
	"votebot/internal/domain/contest"
	"votebot/internal/errs"
	"votebot/internal/ports"
)

type AdmitInput struct {
	ContestID   uint64
	CandidateID uint64
	VoterID     int64
	VoterName   string
}

// AdmitResult carries the outcome of one admission attempt. Reason is empty when the vote was recorded.
type AdmitResult struct {
	Reason    contest.Reason
	Missing   []ports.ChannelRequirement
	Contest   ports.Contest
	Candidate ports.Candidate
}

func (r AdmitResult) Admitted() bool {
	return !r.Reason.Rejected()
}

// Admit records at most one vote per voter and contest. Rejections are reported in the result;
// the error is reserved for store failures.
func (s *Service) Admit(ctx context.Context, input AdmitInput) (AdmitResult, error) {
	if ctx == nil {
		return AdmitResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return AdmitResult{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "voting.admission"),
		slog.Uint64("contest_id", input.ContestID),
		slog.Uint64("candidate_id", input.CandidateID),
		slog.Int64("voter_id", input.VoterID),
	)

	reason, current, err := s.CheckEligibility(ctx, input.ContestID, input.VoterID)
	if err != nil {
		return AdmitResult{}, err
	}
	result := AdmitResult{Reason: reason, Contest: current}
	if result.Reason.Rejected() {
		return s.reject(logCtx, result), nil
	}

	candidate, err := s.repo.GetCandidate(ctx, input.ContestID, input.CandidateID)
	if err != nil {
		if errors.Is(err, ports.ErrCandidateNotFound) {
			result.Reason = contest.ReasonCandidateNotFound
			return s.reject(logCtx, result), nil
		}
		return AdmitResult{}, errs.Wrap(err, "load candidate")
	}
	result.Candidate = candidate

	requirements, err := s.repo.ListChannelRequirements(ctx, input.ContestID)
	if err != nil {
		return AdmitResult{}, errs.Wrap(err, "load channel requirements")
	}
	if missing := s.CheckSubscriptions(ctx, input.VoterID, requirements); len(missing) > 0 {
		result.Reason = contest.ReasonSubscriptionRequired
		result.Missing = missing
		return s.reject(logCtx, result), nil
	}

	inserted, err := s.repo.InsertVote(ctx, ports.VoteCreate{
		ContestID:   input.ContestID,
		CandidateID: input.CandidateID,
		VoterID:     input.VoterID,
		VoterName:   input.VoterName,
		VotedAt:     s.now().UTC(),
	})
	if err != nil {
		return AdmitResult{}, errs.Wrap(err, "insert vote")
	}
	if !inserted {
		result.Reason = contest.ReasonAlreadyVoted
		return s.reject(logCtx, result), nil
	}

	logging.Info(logCtx, "vote admitted", slog.String("candidate", candidate.Name))
	s.RequestBoardSync(ctx, input.ContestID)
	return result, nil
}

func (s *Service) reject(ctx context.Context, result AdmitResult) AdmitResult {
	attrs := []slog.Attr{slog.String("reason", string(result.Reason))}
	if len(result.Missing) > 0 {
		attrs = append(attrs, slog.Int("missing_channels", len(result.Missing)))
	}
	logging.Info(ctx, "vote rejected", attrs...)
	return result
}

// CheckEligibility runs the contest, window and prior-vote checks of Admit without recording anything.
func (s *Service) CheckEligibility(ctx context.Context, contestID uint64, voterID int64) (contest.Reason, ports.Contest, error) {
	if ctx == nil {
		return contest.ReasonNone, ports.Contest{}, errors.New("context is required")
	}

	current, err := s.repo.GetContest(ctx, contestID)
	found := true
	if err != nil {
		if !errors.Is(err, ports.ErrContestNotFound) {
			return contest.ReasonNone, ports.Contest{}, errs.Wrap(err, "load contest")
		}
		found = false
	}

	reason := contest.EvaluateAdmission(contest.AdmissionPreconditions{
		Found:    found,
		Active:   current.IsActive,
		Archived: current.IsArchived,
		Start:    current.StartAt,
		End:      current.EndAt,
		Now:      s.now().UTC(),
	})
	if reason.Rejected() {
		return reason, current, nil
	}

	voted, err := s.repo.HasVoted(ctx, contestID, voterID)
	if err != nil {
		return contest.ReasonNone, current, errs.Wrap(err, "check existing vote")
	}
	if voted {
		return contest.ReasonAlreadyVoted, current, nil
	}
	return contest.ReasonNone, current, nil
}
