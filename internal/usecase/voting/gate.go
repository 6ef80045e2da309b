package voting

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"votebot/internal/bootstrap/logging"
	"votebot/internal/errs"
	"votebot/internal/ports"
)

// CheckSubscriptions returns the requirements the voter has not met, in requirement order.
// A failed membership query counts as unmet.
func (s *Service) CheckSubscriptions(ctx context.Context, voterID int64, requirements []ports.ChannelRequirement) []ports.ChannelRequirement {
	if len(requirements) == 0 {
		return nil
	}
	if s.chat == nil {
		return append([]ports.ChannelRequirement(nil), requirements...)
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "voting.gate"), slog.Int64("voter_id", voterID))

	unmet := make([]bool, len(requirements))
	var g errgroup.Group
	g.SetLimit(s.opts.GateConcurrency)
	for i, requirement := range requirements {
		g.Go(func() error {
			status, err := s.chat.GetMembership(ctx, requirement.ChannelRef, voterID)
			if err != nil {
				logging.Warn(logCtx, "membership query failed, treating channel as unmet",
					slog.String("channel", requirement.ChannelRef),
					slog.Any("err", errs.Loggable(err)),
				)
				unmet[i] = true
				return nil
			}
			unmet[i] = !isMember(status)
			return nil
		})
	}
	_ = g.Wait()

	missing := make([]ports.ChannelRequirement, 0, len(requirements))
	for i, requirement := range requirements {
		if unmet[i] {
			missing = append(missing, requirement)
		}
	}
	return missing
}

// MissingSubscriptions loads the contest's requirements and checks them for the voter.
func (s *Service) MissingSubscriptions(ctx context.Context, contestID uint64, voterID int64) ([]ports.ChannelRequirement, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	requirements, err := s.repo.ListChannelRequirements(ctx, contestID)
	if err != nil {
		return nil, errs.Wrap(err, "load channel requirements")
	}
	return s.CheckSubscriptions(ctx, voterID, requirements), nil
}

func isMember(status ports.Membership) bool {
	return status == ports.MembershipMember
}
