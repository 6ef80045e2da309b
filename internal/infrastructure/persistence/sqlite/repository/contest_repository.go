package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"votebot/internal/errs"
	"votebot/internal/infrastructure/persistence/sqlite/model"
	"votebot/internal/ports"
)

type ContestRepository struct {
	db *gorm.DB
}

var _ ports.ContestRepository = (*ContestRepository)(nil)

func NewContestRepository(db *gorm.DB) *ContestRepository {
	return &ContestRepository{db: db}
}

func (r *ContestRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *ContestRepository) CreateContest(ctx context.Context, input ports.ContestCreate) (ports.Contest, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Contest{}, err
	}

	row := model.Contest{
		Name:       input.Name,
		ImageRef:   input.ImageRef,
		StartAt:    input.StartAt.UTC(),
		EndAt:      input.EndAt.UTC(),
		IsActive:   true,
		IsArchived: false,
	}
	if err := db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return ports.Contest{}, ports.ErrActiveContestConflict
		}
		return ports.Contest{}, errs.Wrap(err, "insert contest")
	}
	return mapContest(row), nil
}

func (r *ContestRepository) AddChannelRequirement(ctx context.Context, input ports.ChannelRequirementCreate) (ports.ChannelRequirement, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.ChannelRequirement{}, err
	}

	row := model.ChannelRequirement{
		ContestID:  input.ContestID,
		ChannelRef: strings.TrimSpace(input.ChannelRef),
		Title:      input.Title,
		InviteLink: input.InviteLink,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.ChannelRequirement{}, errs.Wrap(err, "insert channel requirement")
	}
	return mapChannelRequirement(row), nil
}

func (r *ContestRepository) AddCandidate(ctx context.Context, input ports.CandidateCreate) (ports.Candidate, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Candidate{}, err
	}

	row := model.Candidate{
		ContestID: input.ContestID,
		Name:      input.Name,
		Position:  input.Position,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.Candidate{}, errs.Wrap(err, "insert candidate")
	}
	return ports.Candidate{
		CandidateID: row.CandidateID,
		ContestID:   row.ContestID,
		Name:        row.Name,
		Position:    row.Position,
	}, nil
}

func (r *ContestRepository) GetContest(ctx context.Context, contestID uint64) (ports.Contest, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Contest{}, err
	}

	row, err := getContestRow(db, contestID)
	if err != nil {
		return ports.Contest{}, err
	}
	return mapContest(row), nil
}

func (r *ContestRepository) GetActiveContest(ctx context.Context) (ports.Contest, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Contest{}, false, err
	}

	var row model.Contest
	if err := db.
		Where("is_active = ? AND is_archived = ?", true, false).
		Order("created_at desc").
		Order("contest_id desc").
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Contest{}, false, nil
		}
		return ports.Contest{}, false, errs.Wrap(err, "query active contest")
	}
	return mapContest(row), true, nil
}

func (r *ContestRepository) ListContests(ctx context.Context, filter ports.ContestFilter) ([]ports.Contest, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Contest{})
	if filter.OnlyArchived {
		query = query.Where("is_archived = ?", true)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []model.Contest
	if err := query.Order("contest_id desc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query contests")
	}

	items := make([]ports.Contest, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapContest(row))
	}
	return items, nil
}

func (r *ContestRepository) ListChannelRequirements(ctx context.Context, contestID uint64) ([]ports.ChannelRequirement, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.ChannelRequirement
	if err := db.
		Where("contest_id = ?", contestID).
		Order("requirement_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query channel requirements")
	}

	items := make([]ports.ChannelRequirement, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapChannelRequirement(row))
	}
	return items, nil
}

type candidateTally struct {
	CandidateID uint64
	ContestID   uint64
	Name        string
	Position    int
	Votes       int64
}

// ListCandidates returns candidates in board order with vote counts derived from the votes table.
func (r *ContestRepository) ListCandidates(ctx context.Context, contestID uint64) ([]ports.Candidate, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []candidateTally
	if err := db.Model(&model.Candidate{}).
		Select("candidates.candidate_id, candidates.contest_id, candidates.name, candidates.position, COUNT(votes.vote_id) AS votes").
		Joins("LEFT JOIN votes ON votes.candidate_id = candidates.candidate_id AND votes.contest_id = candidates.contest_id").
		Where("candidates.contest_id = ?", contestID).
		Group("candidates.candidate_id, candidates.contest_id, candidates.name, candidates.position").
		Order("candidates.position asc").
		Order("candidates.name asc").
		Scan(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query candidate tallies")
	}

	items := make([]ports.Candidate, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.Candidate{
			CandidateID: row.CandidateID,
			ContestID:   row.ContestID,
			Name:        row.Name,
			Position:    row.Position,
			Votes:       row.Votes,
		})
	}
	return items, nil
}

func (r *ContestRepository) GetCandidate(ctx context.Context, contestID uint64, candidateID uint64) (ports.Candidate, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Candidate{}, err
	}

	var row model.Candidate
	if err := db.
		Where("contest_id = ? AND candidate_id = ?", contestID, candidateID).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Candidate{}, ports.ErrCandidateNotFound
		}
		return ports.Candidate{}, errs.Wrap(err, "query candidate")
	}
	return ports.Candidate{
		CandidateID: row.CandidateID,
		ContestID:   row.ContestID,
		Name:        row.Name,
		Position:    row.Position,
	}, nil
}

func (r *ContestRepository) HasVoted(ctx context.Context, contestID uint64, voterID int64) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	var count int64
	if err := db.Model(&model.Vote{}).
		Where("contest_id = ? AND voter_id = ?", contestID, voterID).
		Count(&count).Error; err != nil {
		return false, errs.Wrap(err, "count voter votes")
	}
	return count > 0, nil
}

// InsertVote relies on idx_votes_contest_voter: a second vote for the same voter affects no rows.
func (r *ContestRepository) InsertVote(ctx context.Context, input ports.VoteCreate) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	row := model.Vote{
		ContestID:   input.ContestID,
		CandidateID: input.CandidateID,
		VoterID:     input.VoterID,
		VoterName:   input.VoterName,
		VotedAt:     input.VotedAt.UTC(),
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contest_id"}, {Name: "voter_id"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return false, nil
		}
		return false, errs.Wrap(result.Error, "insert vote")
	}
	return result.RowsAffected > 0, nil
}

func (r *ContestRepository) ListVotes(ctx context.Context, contestID uint64) ([]ports.Vote, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Vote
	if err := db.
		Where("contest_id = ?", contestID).
		Order("voted_at asc").
		Order("vote_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query votes")
	}

	items := make([]ports.Vote, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.Vote{
			VoteID:      row.VoteID,
			ContestID:   row.ContestID,
			CandidateID: row.CandidateID,
			VoterID:     row.VoterID,
			VoterName:   row.VoterName,
			VotedAt:     row.VotedAt.UTC(),
		})
	}
	return items, nil
}

// StopContest deactivates and archives the contest and pulls its end back to stoppedAt when that is earlier.
func (r *ContestRepository) StopContest(ctx context.Context, contestID uint64, stoppedAt time.Time) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row, err := getContestRow(db, contestID)
	if err != nil {
		return err
	}

	endAt := row.EndAt.UTC()
	if stoppedAt.Before(endAt) {
		endAt = stoppedAt.UTC()
	}
	if err := db.Model(&model.Contest{}).
		Where("contest_id = ?", contestID).
		Updates(map[string]any{
			"is_active":   false,
			"is_archived": true,
			"end_at":      endAt,
		}).Error; err != nil {
		return errs.Wrap(err, "stop contest")
	}
	return nil
}

func (r *ContestRepository) ArchiveContest(ctx context.Context, contestID uint64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Contest{}).
		Where("contest_id = ?", contestID).
		Updates(map[string]any{
			"is_active":   false,
			"is_archived": true,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "archive contest")
	}
	if result.RowsAffected == 0 {
		return ports.ErrContestNotFound
	}
	return nil
}

func (r *ContestRepository) ArchiveActiveContests(ctx context.Context) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	result := db.Model(&model.Contest{}).
		Where("is_active = ? AND is_archived = ?", true, false).
		Updates(map[string]any{
			"is_active":   false,
			"is_archived": true,
		})
	if result.Error != nil {
		return 0, errs.Wrap(result.Error, "archive active contests")
	}
	return result.RowsAffected, nil
}

func (r *ContestRepository) ResetVotes(ctx context.Context, contestID uint64) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	result := db.Where("contest_id = ?", contestID).Delete(&model.Vote{})
	if result.Error != nil {
		return 0, errs.Wrap(result.Error, "delete contest votes")
	}
	return result.RowsAffected, nil
}

func (r *ContestRepository) SaveBoardPost(ctx context.Context, contestID uint64, post ports.BoardPost) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	chatRef := strings.TrimSpace(post.ChatRef)
	if chatRef == "" || post.MessageID == 0 {
		return errors.New("board post requires chat ref and message id")
	}
	result := db.Model(&model.Contest{}).
		Where("contest_id = ?", contestID).
		Updates(map[string]any{
			"board_chat_ref":   chatRef,
			"board_message_id": post.MessageID,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "save board post")
	}
	if result.RowsAffected == 0 {
		return ports.ErrContestNotFound
	}
	return nil
}

func (r *ContestRepository) GetBoardPost(ctx context.Context, contestID uint64) (ports.BoardPost, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.BoardPost{}, false, err
	}

	row, err := getContestRow(db, contestID)
	if err != nil {
		return ports.BoardPost{}, false, err
	}
	board := mapBoard(row)
	if board == nil {
		return ports.BoardPost{}, false, nil
	}
	return *board, true, nil
}

func (r *ContestRepository) UpsertVoterActivity(ctx context.Context, activity ports.VoterActivity) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.VoterActivity{
		VoterID:      activity.VoterID,
		Username:     activity.Username,
		FirstName:    activity.FirstName,
		LastName:     activity.LastName,
		LastActionAt: activity.LastActionAt.UTC(),
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "voter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name", "last_action_at"}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert voter activity")
	}
	return nil
}

func (r *ContestRepository) CheckRateLimit(ctx context.Context, voterID int64, window time.Duration, now time.Time) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	var row model.VoterActivity
	if err := db.Where("voter_id = ?", voterID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, errs.Wrap(err, "query voter activity")
	}
	return row.LastActionAt.After(now.Add(-window)), nil
}

func (r *ContestRepository) GetVoteStats(ctx context.Context, contestID uint64) (ports.VoteStats, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.VoteStats{}, err
	}

	var stats ports.VoteStats
	if err := db.Model(&model.Vote{}).
		Select("COUNT(DISTINCT voter_id) AS total_voters, COUNT(*) AS total_votes").
		Where("contest_id = ?", contestID).
		Scan(&stats).Error; err != nil {
		return ports.VoteStats{}, errs.Wrap(err, "query vote stats")
	}
	return stats, nil
}

func (r *ContestRepository) GetGlobalStats(ctx context.Context) (ports.GlobalStats, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.GlobalStats{}, err
	}

	var stats ports.GlobalStats
	if err := db.Model(&model.Contest{}).Count(&stats.TotalContests).Error; err != nil {
		return ports.GlobalStats{}, errs.Wrap(err, "count contests")
	}
	if err := db.Model(&model.Contest{}).
		Where("is_active = ? AND is_archived = ?", true, false).
		Count(&stats.ActiveContests).Error; err != nil {
		return ports.GlobalStats{}, errs.Wrap(err, "count active contests")
	}
	if err := db.Model(&model.Vote{}).Count(&stats.TotalVotes).Error; err != nil {
		return ports.GlobalStats{}, errs.Wrap(err, "count votes")
	}
	if err := db.Model(&model.Vote{}).Distinct("voter_id").Count(&stats.TotalVoters).Error; err != nil {
		return ports.GlobalStats{}, errs.Wrap(err, "count voters")
	}
	return stats, nil
}

func getContestRow(db *gorm.DB, contestID uint64) (model.Contest, error) {
	var row model.Contest
	if err := db.Where("contest_id = ?", contestID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Contest{}, ports.ErrContestNotFound
		}
		return model.Contest{}, errs.Wrap(err, "query contest")
	}
	return row, nil
}

func mapContest(row model.Contest) ports.Contest {
	return ports.Contest{
		ContestID:  row.ContestID,
		Name:       row.Name,
		ImageRef:   row.ImageRef,
		StartAt:    row.StartAt.UTC(),
		EndAt:      row.EndAt.UTC(),
		IsActive:   row.IsActive,
		IsArchived: row.IsArchived,
		Board:      mapBoard(row),
		CreatedAt:  row.CreatedAt.UTC(),
	}
}

func mapBoard(row model.Contest) *ports.BoardPost {
	if row.BoardChatRef == nil || row.BoardMessageID == nil || *row.BoardMessageID == 0 {
		return nil
	}
	return &ports.BoardPost{ChatRef: *row.BoardChatRef, MessageID: *row.BoardMessageID}
}

func mapChannelRequirement(row model.ChannelRequirement) ports.ChannelRequirement {
	return ports.ChannelRequirement{
		RequirementID: row.RequirementID,
		ContestID:     row.ContestID,
		ChannelRef:    row.ChannelRef,
		Title:         row.Title,
		InviteLink:    row.InviteLink,
	}
}

// isUniqueViolation matches the unique constraint errors of the sqlite and postgres drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "sqlstate 23505")
}
