package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"votebot/internal/domain/contest"
)

const sampleContestFile = `
name = "Best doctor 2026"
image = "AgACAgIAAxkBAAIB"
start = "01.03.2026 09:00"
end = "2026-03-10"
candidates = ["Aziz", "Zarina"]

[[channels]]
ref = "@news"
title = "News"
invite_link = "https://t.me/news"

[[channels]]
ref = "-1001234567890"
`

func testPolicy(t *testing.T) contest.TimePolicy {
	t.Helper()
	policy, err := contest.NewTimePolicy("+05:00")
	if err != nil {
		t.Fatalf("NewTimePolicy() error = %v", err)
	}
	return policy
}

func TestParseContestFile(t *testing.T) {
	t.Parallel()

	input, err := parseContestFile([]byte(sampleContestFile), testPolicy(t))
	if err != nil {
		t.Fatalf("parseContestFile() error = %v", err)
	}

	if input.Name != "Best doctor 2026" || input.ImageRef != "AgACAgIAAxkBAAIB" {
		t.Fatalf("name/image = %q/%q", input.Name, input.ImageRef)
	}
	wantStart := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)
	if !input.StartAt.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", input.StartAt, wantStart)
	}
	wantEnd := time.Date(2026, 3, 9, 19, 0, 0, 0, time.UTC)
	if !input.EndAt.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", input.EndAt, wantEnd)
	}
	if len(input.Candidates) != 2 || input.Candidates[1] != "Zarina" {
		t.Fatalf("candidates = %v", input.Candidates)
	}
	if len(input.Channels) != 2 {
		t.Fatalf("channels = %+v", input.Channels)
	}
	if input.Channels[0].ChannelRef != "@news" || input.Channels[0].InviteLink != "https://t.me/news" {
		t.Fatalf("channel[0] = %+v", input.Channels[0])
	}
	if input.Channels[1].ChannelRef != "-1001234567890" || input.Channels[1].Title != "" {
		t.Fatalf("channel[1] = %+v", input.Channels[1])
	}
}

func TestParseContestFileErrors(t *testing.T) {
	t.Parallel()

	policy := testPolicy(t)
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{name: "bad toml", raw: "name = "},
		{name: "bad start", raw: "name = \"x\"\nstart = \"tomorrow\"\nend = \"2026-03-10\"", wantErr: contest.ErrInvalidDatetime},
		{name: "bad end", raw: "name = \"x\"\nstart = \"2026-03-01\"\nend = \"10 March\"", wantErr: contest.ErrInvalidDatetime},
		{name: "channel without ref", raw: "start = \"2026-03-01\"\nend = \"2026-03-10\"\n[[channels]]\ntitle = \"News\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := parseContestFile([]byte(tt.raw), policy)
			if err == nil {
				t.Fatalf("parseContestFile() error = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("parseContestFile() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadContestFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "contest.toml")
	if err := os.WriteFile(path, []byte(sampleContestFile), 0o644); err != nil {
		t.Fatalf("write contest file: %v", err)
	}
	input, err := loadContestFile(path, testPolicy(t))
	if err != nil {
		t.Fatalf("loadContestFile() error = %v", err)
	}
	if input.Name != "Best doctor 2026" {
		t.Fatalf("name = %q", input.Name)
	}

	if _, err := loadContestFile(" ", testPolicy(t)); err == nil {
		t.Fatalf("loadContestFile(empty) error = nil")
	}
	if _, err := loadContestFile(filepath.Join(t.TempDir(), "missing.toml"), testPolicy(t)); err == nil {
		t.Fatalf("loadContestFile(missing) error = nil")
	}
}

func TestContestCommandFlags(t *testing.T) {
	t.Parallel()

	if err := contestExportCmd.ParseFlags([]string{"--contest", "7", "--format", "csv", "--out", "votes.csv"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	contestID, _ := contestExportCmd.Flags().GetUint64("contest")
	if contestID != 7 {
		t.Fatalf("contest = %d, want 7", contestID)
	}
	format, _ := contestExportCmd.Flags().GetString("format")
	if format != "csv" {
		t.Fatalf("format = %q, want csv", format)
	}
	out, _ := contestExportCmd.Flags().GetString("out")
	if out != "votes.csv" {
		t.Fatalf("out = %q, want votes.csv", out)
	}

	limit, _ := contestListCmd.Flags().GetInt("limit")
	if limit != 20 {
		t.Fatalf("list limit default = %d, want 20", limit)
	}
}
