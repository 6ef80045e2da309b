package voting

import (
	"context"
	"errors"
	"sort"
	"time"

	"votebot/internal/domain/contest"
	"votebot/internal/errs"
	"votebot/internal/ports"
)

type CandidateResult struct {
	CandidateID uint64  `json:"candidate_id"`
	Name        string  `json:"name"`
	Votes       int64   `json:"votes"`
	Percentage  float64 `json:"percentage"`
	Rank        int     `json:"rank"`
}

type ContestResults struct {
	Contest    ports.Contest     `json:"contest"`
	TotalVotes int64             `json:"total_votes"`
	Results    []CandidateResult `json:"results"`
}

type DetailedReport struct {
	ContestResults
	TotalVoters int64                      `json:"total_voters"`
	Channels    []ports.ChannelRequirement `json:"channels"`
}

// RankResults orders candidates by votes descending, then name, and fills percentages.
func RankResults(candidates []ports.Candidate) ([]CandidateResult, int64) {
	var total int64
	for _, candidate := range candidates {
		total += candidate.Votes
	}

	results := make([]CandidateResult, 0, len(candidates))
	for _, candidate := range candidates {
		results = append(results, CandidateResult{
			CandidateID: candidate.CandidateID,
			Name:        candidate.Name,
			Votes:       candidate.Votes,
			Percentage:  contest.VotePercentage(candidate.Votes, total),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Votes != results[j].Votes {
			return results[i].Votes > results[j].Votes
		}
		return results[i].Name < results[j].Name
	})
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, total
}

func (s *Service) Results(ctx context.Context, contestID uint64) (ContestResults, error) {
	if ctx == nil {
		return ContestResults{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ContestResults{}, errs.Wrap(err, "check context")
	}

	current, err := s.repo.GetContest(ctx, contestID)
	if err != nil {
		return ContestResults{}, errs.Wrap(err, "load contest")
	}
	candidates, err := s.repo.ListCandidates(ctx, contestID)
	if err != nil {
		return ContestResults{}, errs.Wrap(err, "load tallies")
	}

	results, total := RankResults(candidates)
	return ContestResults{Contest: current, TotalVotes: total, Results: results}, nil
}

func (s *Service) DetailedReport(ctx context.Context, contestID uint64) (DetailedReport, error) {
	results, err := s.Results(ctx, contestID)
	if err != nil {
		return DetailedReport{}, err
	}

	stats, err := s.repo.GetVoteStats(ctx, contestID)
	if err != nil {
		return DetailedReport{}, errs.Wrap(err, "load vote stats")
	}
	channels, err := s.repo.ListChannelRequirements(ctx, contestID)
	if err != nil {
		return DetailedReport{}, errs.Wrap(err, "load channel requirements")
	}

	return DetailedReport{
		ContestResults: results,
		TotalVoters:    stats.TotalVoters,
		Channels:       channels,
	}, nil
}

func (s *Service) GlobalStats(ctx context.Context) (ports.GlobalStats, error) {
	if ctx == nil {
		return ports.GlobalStats{}, errors.New("context is required")
	}

	stats, err := s.repo.GetGlobalStats(ctx)
	if err != nil {
		return ports.GlobalStats{}, errs.Wrap(err, "load global stats")
	}
	return stats, nil
}

// Snapshot returns the current tallies in feed form.
func (s *Service) Snapshot(ctx context.Context, contestID uint64) (ports.TallySnapshot, error) {
	if ctx == nil {
		return ports.TallySnapshot{}, errors.New("context is required")
	}

	current, err := s.repo.GetContest(ctx, contestID)
	if err != nil {
		return ports.TallySnapshot{}, errs.Wrap(err, "load contest")
	}
	candidates, err := s.repo.ListCandidates(ctx, contestID)
	if err != nil {
		return ports.TallySnapshot{}, errs.Wrap(err, "load tallies")
	}
	return buildSnapshot(current, candidates, s.now().UTC()), nil
}

func buildSnapshot(c ports.Contest, candidates []ports.Candidate, at time.Time) ports.TallySnapshot {
	snapshot := ports.TallySnapshot{
		ContestID:  c.ContestID,
		Name:       c.Name,
		Candidates: make([]ports.TallyEntry, 0, len(candidates)),
		At:         at,
	}
	for _, candidate := range candidates {
		snapshot.TotalVotes += candidate.Votes
		snapshot.Candidates = append(snapshot.Candidates, ports.TallyEntry{
			CandidateID: candidate.CandidateID,
			Name:        candidate.Name,
			Votes:       candidate.Votes,
		})
	}
	return snapshot
}
