package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"votebot/internal/domain/contest"
	"votebot/internal/errs"
	"votebot/internal/usecase/voting"
)

type contestChannelFile struct {
	Ref        string `toml:"ref"`
	Title      string `toml:"title"`
	InviteLink string `toml:"invite_link"`
}

type contestFile struct {
	Name       string               `toml:"name"`
	Image      string               `toml:"image"`
	Start      string               `toml:"start"`
	End        string               `toml:"end"`
	Candidates []string             `toml:"candidates"`
	Channels   []contestChannelFile `toml:"channels"`
}

// loadContestFile reads a contest definition and resolves its local times through policy.
func loadContestFile(path string, policy contest.TimePolicy) (voting.CreateContestInput, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return voting.CreateContestInput{}, errors.New("contest file is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return voting.CreateContestInput{}, errs.Wrapf(err, "read contest file %q", path)
	}
	return parseContestFile(raw, policy)
}

func parseContestFile(raw []byte, policy contest.TimePolicy) (voting.CreateContestInput, error) {
	var file contestFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return voting.CreateContestInput{}, errs.Wrap(err, "decode contest file")
	}

	startAt, err := policy.Parse(file.Start)
	if err != nil {
		return voting.CreateContestInput{}, errs.Wrap(err, "parse start")
	}
	endAt, err := policy.Parse(file.End)
	if err != nil {
		return voting.CreateContestInput{}, errs.Wrap(err, "parse end")
	}

	channels := make([]voting.ChannelInput, 0, len(file.Channels))
	for i, channel := range file.Channels {
		ref := strings.TrimSpace(channel.Ref)
		if ref == "" {
			return voting.CreateContestInput{}, fmt.Errorf("channels[%d].ref is required", i)
		}
		channels = append(channels, voting.ChannelInput{
			ChannelRef: ref,
			Title:      strings.TrimSpace(channel.Title),
			InviteLink: strings.TrimSpace(channel.InviteLink),
		})
	}

	return voting.CreateContestInput{
		Name:       file.Name,
		ImageRef:   strings.TrimSpace(file.Image),
		StartAt:    startAt,
		EndAt:      endAt,
		Candidates: file.Candidates,
		Channels:   channels,
	}, nil
}
