package voting

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"votebot/internal/domain/contest"
	"votebot/internal/errs"
)

func sessionKey(voterID int64) string {
	return "session:" + strconv.FormatInt(voterID, 10)
}

func (s *Service) LoadSession(ctx context.Context, voterID int64) (contest.VoterSession, bool, error) {
	if ctx == nil {
		return contest.VoterSession{}, false, errors.New("context is required")
	}
	if s.cache == nil {
		return contest.VoterSession{}, false, errors.New("session cache is not configured")
	}

	raw, found, err := s.cache.Get(ctx, sessionKey(voterID))
	if err != nil {
		return contest.VoterSession{}, false, errs.Wrap(err, "load voter session")
	}
	if !found {
		return contest.VoterSession{}, false, nil
	}

	var session contest.VoterSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil || !session.Valid() {
		s.deleteCacheBestEffort(ctx, sessionKey(voterID))
		return contest.VoterSession{}, false, nil
	}
	return session, true, nil
}

func (s *Service) saveSession(ctx context.Context, voterID int64, session contest.VoterSession) error {
	if s.cache == nil {
		return errors.New("session cache is not configured")
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return errs.Wrap(err, "encode voter session")
	}
	if err := s.cache.Set(ctx, sessionKey(voterID), string(raw), s.opts.SessionTTL); err != nil {
		return errs.Wrap(err, "save voter session")
	}
	return nil
}

// BeginSelection opens a session in which the voter picks a candidate of contestID.
func (s *Service) BeginSelection(ctx context.Context, voterID int64, contestID uint64) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	return s.saveSession(ctx, voterID, contest.NewSelection(contestID))
}

// BeginConfirmation opens a session that already awaits confirmation of candidateID.
func (s *Service) BeginConfirmation(ctx context.Context, voterID int64, contestID uint64, candidateID uint64) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	return s.saveSession(ctx, voterID, contest.NewConfirmation(contestID, candidateID))
}

// SelectCandidate moves the voter's session to confirmation of candidateID.
func (s *Service) SelectCandidate(ctx context.Context, voterID int64, candidateID uint64) (contest.VoterSession, error) {
	session, found, err := s.LoadSession(ctx, voterID)
	if err != nil {
		return contest.VoterSession{}, err
	}
	if !found {
		return contest.VoterSession{}, contest.ErrNoSession
	}

	next, err := session.Select(candidateID)
	if err != nil {
		return contest.VoterSession{}, err
	}
	if err := s.saveSession(ctx, voterID, next); err != nil {
		return contest.VoterSession{}, err
	}
	return next, nil
}

// ConfirmVote closes the voter's session and runs admission for the confirmed candidate.
func (s *Service) ConfirmVote(ctx context.Context, voterID int64, candidateID uint64, voterName string) (AdmitResult, error) {
	session, found, err := s.LoadSession(ctx, voterID)
	if err != nil {
		return AdmitResult{}, err
	}
	if !found {
		return AdmitResult{}, contest.ErrNoSession
	}

	contestID, err := session.Confirm(candidateID)
	if err != nil {
		return AdmitResult{}, err
	}
	s.deleteCacheBestEffort(ctx, sessionKey(voterID))

	return s.Admit(ctx, AdmitInput{
		ContestID:   contestID,
		CandidateID: candidateID,
		VoterID:     voterID,
		VoterName:   voterName,
	})
}

func (s *Service) CancelSession(ctx context.Context, voterID int64) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, sessionKey(voterID)); err != nil {
		return errs.Wrap(err, "delete voter session")
	}
	return nil
}
