package voting

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"votebot/internal/errs"
	"votebot/internal/ports"
)

const (
	ExportJSON  = "json"
	ExportJSONL = "jsonl"
	ExportCSV   = "csv"
)

type exportDocument struct {
	Report DetailedReport `json:"report"`
	Votes  []ports.Vote   `json:"votes"`
}

// Export writes the contest report and vote audit rows to w.
// json writes one document, jsonl one vote per line, csv one vote per row.
func (s *Service) Export(ctx context.Context, contestID uint64, format string, w io.Writer) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case ExportJSON, ExportJSONL, ExportCSV:
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}

	report, err := s.DetailedReport(ctx, contestID)
	if err != nil {
		return err
	}
	votes, err := s.repo.ListVotes(ctx, contestID)
	if err != nil {
		return errs.Wrap(err, "load votes")
	}

	switch normalized {
	case ExportJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(exportDocument{Report: report, Votes: votes}); err != nil {
			return errs.Wrap(err, "encode json export")
		}
	case ExportJSONL:
		encoder := json.NewEncoder(w)
		for _, vote := range votes {
			if err := encoder.Encode(vote); err != nil {
				return errs.Wrap(err, "encode jsonl export")
			}
		}
	case ExportCSV:
		if err := writeVotesCSV(w, report, votes); err != nil {
			return errs.Wrap(err, "write csv export")
		}
	}
	return nil
}

func writeVotesCSV(w io.Writer, report DetailedReport, votes []ports.Vote) error {
	names := make(map[uint64]string, len(report.Results))
	for _, result := range report.Results {
		names[result.CandidateID] = result.Name
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"vote_id", "contest_id", "candidate_id", "candidate", "voter_id", "voter_name", "voted_at"}); err != nil {
		return err
	}
	for _, vote := range votes {
		if err := writer.Write([]string{
			strconv.FormatUint(vote.VoteID, 10),
			strconv.FormatUint(vote.ContestID, 10),
			strconv.FormatUint(vote.CandidateID, 10),
			names[vote.CandidateID],
			strconv.FormatInt(vote.VoterID, 10),
			vote.VoterName,
			vote.VotedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
