package contest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const deepLinkPrefix = "vote_"

type DeepLink struct {
	ContestID   uint64
	CandidateID uint64
}

// ParseDeepLink parses a start payload of the form vote_<contestID>_<candidateID>.
func ParseDeepLink(payload string) (DeepLink, error) {
	trimmed := strings.TrimSpace(payload)
	if !strings.HasPrefix(trimmed, deepLinkPrefix) {
		return DeepLink{}, ErrInvalidDeepLink
	}

	parts := strings.Split(strings.TrimPrefix(trimmed, deepLinkPrefix), "_")
	if len(parts) != 2 {
		return DeepLink{}, ErrInvalidDeepLink
	}
	contestID, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || contestID == 0 {
		return DeepLink{}, ErrInvalidDeepLink
	}
	candidateID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil || candidateID == 0 {
		return DeepLink{}, ErrInvalidDeepLink
	}

	return DeepLink{ContestID: contestID, CandidateID: candidateID}, nil
}

func FormatDeepLink(link DeepLink) string {
	return fmt.Sprintf("%s%d_%d", deepLinkPrefix, link.ContestID, link.CandidateID)
}

// StartURL builds the t.me link that opens a private chat with the bot carrying the payload.
func StartURL(botUsername string, link DeepLink) string {
	bot := strings.TrimPrefix(strings.TrimSpace(botUsername), "@")
	return fmt.Sprintf("https://t.me/%s?start=%s", url.PathEscape(bot), FormatDeepLink(link))
}
