package voting

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"votebot/internal/bootstrap/logging"
	"votebot/internal/domain/contest"
	"votebot/internal/errs"
	"votebot/internal/ports"
)

type ChannelInput struct {
	ChannelRef string
	Title      string
	InviteLink string
}

type CreateContestInput struct {
	Name       string
	ImageRef   string
	StartAt    time.Time
	EndAt      time.Time
	Candidates []string
	Channels   []ChannelInput
}

type CreateContestResult struct {
	Contest    ports.Contest
	Candidates []ports.Candidate
	Channels   []ports.ChannelRequirement
	Superseded int64
}

// CreateContest archives the currently active contest and creates the new one in a single transaction.
func (s *Service) CreateContest(ctx context.Context, input CreateContestInput) (CreateContestResult, error) {
	if ctx == nil {
		return CreateContestResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return CreateContestResult{}, errs.Wrap(err, "check context")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return CreateContestResult{}, contest.ErrNameRequired
	}
	candidateNames := make([]string, 0, len(input.Candidates))
	for _, candidate := range input.Candidates {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			candidateNames = append(candidateNames, trimmed)
		}
	}
	if len(candidateNames) == 0 {
		return CreateContestResult{}, contest.ErrCandidatesRequired
	}
	// Stored instants carry microsecond precision on every driver.
	startAt := input.StartAt.UTC().Truncate(time.Microsecond)
	endAt := input.EndAt.UTC().Truncate(time.Microsecond)
	if err := contest.ValidateWindow(startAt, endAt); err != nil {
		return CreateContestResult{}, err
	}

	var result CreateContestResult
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		superseded, err := s.repo.ArchiveActiveContests(txCtx)
		if err != nil {
			return errs.Wrap(err, "archive active contests")
		}
		result.Superseded = superseded

		created, err := s.repo.CreateContest(txCtx, ports.ContestCreate{
			Name:     name,
			ImageRef: strings.TrimSpace(input.ImageRef),
			StartAt:  startAt,
			EndAt:    endAt,
		})
		if err != nil {
			return errs.Wrap(err, "create contest")
		}
		result.Contest = created

		for _, channel := range input.Channels {
			ref := strings.TrimSpace(channel.ChannelRef)
			if ref == "" {
				continue
			}
			title := strings.TrimSpace(channel.Title)
			if title == "" {
				title = ref
			}
			requirement, err := s.repo.AddChannelRequirement(txCtx, ports.ChannelRequirementCreate{
				ContestID:  created.ContestID,
				ChannelRef: ref,
				Title:      title,
				InviteLink: strings.TrimSpace(channel.InviteLink),
			})
			if err != nil {
				return errs.Wrap(err, "add channel requirement")
			}
			result.Channels = append(result.Channels, requirement)
		}

		for position, candidateName := range candidateNames {
			candidate, err := s.repo.AddCandidate(txCtx, ports.CandidateCreate{
				ContestID: created.ContestID,
				Name:      candidateName,
				Position:  position,
			})
			if err != nil {
				return errs.Wrap(err, "add candidate")
			}
			result.Candidates = append(result.Candidates, candidate)
		}
		return nil
	}); err != nil {
		return CreateContestResult{}, err
	}

	logging.Info(
		logging.WithComponent(ctx, "voting.lifecycle"),
		"contest created",
		slog.Uint64("contest_id", result.Contest.ContestID),
		slog.Int("candidates", len(result.Candidates)),
		slog.Int("channels", len(result.Channels)),
		slog.Int64("superseded", result.Superseded),
	)
	return result, nil
}

// PublishBoard posts the contest board to chatRef, or to the configured board chat when empty.
func (s *Service) PublishBoard(ctx context.Context, contestID uint64, chatRef string) (ports.BoardPost, error) {
	if ctx == nil {
		return ports.BoardPost{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.BoardPost{}, errs.Wrap(err, "check context")
	}
	if s.chat == nil {
		return ports.BoardPost{}, errors.New("chat platform is not configured")
	}

	target := strings.TrimSpace(chatRef)
	if target == "" {
		target = strings.TrimSpace(s.opts.BoardChatRef)
	}
	if target == "" {
		return ports.BoardPost{}, errors.New("board chat is required")
	}

	current, err := s.repo.GetContest(ctx, contestID)
	if err != nil {
		return ports.BoardPost{}, errs.Wrap(err, "load contest")
	}
	candidates, err := s.repo.ListCandidates(ctx, contestID)
	if err != nil {
		return ports.BoardPost{}, errs.Wrap(err, "load tallies")
	}

	rows := RenderBoardButtons(s.chat.BotUsername(), contestID, candidates)
	sent, err := s.chat.SendMessage(ctx, ports.OutgoingMessage{
		ChatRef:  target,
		Text:     RenderBoardCaption(current),
		PhotoRef: current.ImageRef,
		Buttons:  rows,
	})
	if err != nil {
		return ports.BoardPost{}, errs.Wrap(err, "send board post")
	}

	post := ports.BoardPost{ChatRef: sent.ChatRef, MessageID: sent.MessageID}
	if post.ChatRef == "" {
		post.ChatRef = target
	}
	if err := s.repo.SaveBoardPost(ctx, contestID, post); err != nil {
		return ports.BoardPost{}, errs.Wrap(err, "save board post")
	}
	s.setCacheBestEffort(ctx, boardCacheKey(contestID), boardSignature(rows), 0)

	logging.Info(
		logging.WithComponent(ctx, "voting.lifecycle"),
		"board published",
		slog.Uint64("contest_id", contestID),
		slog.String("chat", post.ChatRef),
		slog.Int("message_id", post.MessageID),
	)
	return post, nil
}

// StopContest ends voting now: the contest is deactivated and archived, and its end moves to now if later.
func (s *Service) StopContest(ctx context.Context, contestID uint64) (ports.Contest, error) {
	if ctx == nil {
		return ports.Contest{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.Contest{}, errs.Wrap(err, "check context")
	}

	if err := s.repo.StopContest(ctx, contestID, s.now().UTC()); err != nil {
		return ports.Contest{}, errs.Wrap(err, "stop contest")
	}
	stopped, err := s.repo.GetContest(ctx, contestID)
	if err != nil {
		return ports.Contest{}, errs.Wrap(err, "reload contest")
	}

	logging.Info(logging.WithComponent(ctx, "voting.lifecycle"), "contest stopped", slog.Uint64("contest_id", contestID))
	return stopped, nil
}

func (s *Service) ArchiveContest(ctx context.Context, contestID uint64) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	if err := s.repo.ArchiveContest(ctx, contestID); err != nil {
		return errs.Wrap(err, "archive contest")
	}
	logging.Info(logging.WithComponent(ctx, "voting.lifecycle"), "contest archived", slog.Uint64("contest_id", contestID))
	return nil
}

// ResetVotes deletes every vote of the contest, keeps its candidates, and schedules a board sync.
func (s *Service) ResetVotes(ctx context.Context, contestID uint64) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, errs.Wrap(err, "check context")
	}

	if _, err := s.repo.GetContest(ctx, contestID); err != nil {
		return 0, errs.Wrap(err, "load contest")
	}
	deleted, err := s.repo.ResetVotes(ctx, contestID)
	if err != nil {
		return 0, errs.Wrap(err, "reset votes")
	}

	logging.Info(logging.WithComponent(ctx, "voting.lifecycle"), "votes reset",
		slog.Uint64("contest_id", contestID),
		slog.Int64("deleted", deleted),
	)
	s.RequestBoardSync(ctx, contestID)
	return deleted, nil
}

func (s *Service) GetActiveContest(ctx context.Context) (ports.Contest, bool, error) {
	if ctx == nil {
		return ports.Contest{}, false, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.Contest{}, false, errs.Wrap(err, "check context")
	}

	active, found, err := s.repo.GetActiveContest(ctx)
	if err != nil {
		return ports.Contest{}, false, errs.Wrap(err, "load active contest")
	}
	return active, found, nil
}

func (s *Service) GetContest(ctx context.Context, contestID uint64) (ports.Contest, error) {
	if ctx == nil {
		return ports.Contest{}, errors.New("context is required")
	}

	current, err := s.repo.GetContest(ctx, contestID)
	if err != nil {
		return ports.Contest{}, errs.Wrap(err, "load contest")
	}
	return current, nil
}

func (s *Service) ListContests(ctx context.Context, onlyArchived bool, limit int) ([]ports.Contest, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	items, err := s.repo.ListContests(ctx, ports.ContestFilter{OnlyArchived: onlyArchived, Limit: limit})
	if err != nil {
		return nil, errs.Wrap(err, "list contests")
	}
	return items, nil
}

func (s *Service) ListCandidates(ctx context.Context, contestID uint64) ([]ports.Candidate, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	items, err := s.repo.ListCandidates(ctx, contestID)
	if err != nil {
		return nil, errs.Wrap(err, "list candidates")
	}
	return items, nil
}
