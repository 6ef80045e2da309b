package voting

import (
	"context"
	"errors"

	"votebot/internal/errs"
	"votebot/internal/ports"
)

type Interaction struct {
	VoterID   int64
	Username  string
	FirstName string
	LastName  string
}

// TrackInteraction applies the per-voter rate limit and records the interaction.
// It reports true when the voter acted too recently; the activity is not refreshed then.
func (s *Service) TrackInteraction(ctx context.Context, in Interaction) (bool, error) {
	if ctx == nil {
		return false, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return false, errs.Wrap(err, "check context")
	}

	now := s.now().UTC()
	limited, err := s.repo.CheckRateLimit(ctx, in.VoterID, s.opts.RateLimitInterval, now)
	if err != nil {
		return false, errs.Wrap(err, "check rate limit")
	}
	if limited {
		return true, nil
	}

	if err := s.repo.UpsertVoterActivity(ctx, ports.VoterActivity{
		VoterID:      in.VoterID,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		LastActionAt: now,
	}); err != nil {
		return false, errs.Wrap(err, "record voter activity")
	}
	return false, nil
}
