package dialog

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"votebot/internal/bootstrap/logging"
	"votebot/internal/domain/contest"
	"votebot/internal/errs"
	"votebot/internal/ports"
	"votebot/internal/usecase/voting"
)

func (h *Handler) track(ctx context.Context, event ports.InboundEvent) (bool, error) {
	return h.svc.TrackInteraction(ctx, voting.Interaction{
		VoterID:   event.UserID,
		Username:  event.Username,
		FirstName: event.FirstName,
		LastName:  event.LastName,
	})
}

func (h *Handler) start(ctx context.Context, event ports.InboundEvent) error {
	if _, err := h.track(ctx, event); err != nil {
		return err
	}

	if strings.HasPrefix(event.CommandArgs, "vote_") {
		link, err := contest.ParseDeepLink(event.CommandArgs)
		if err == nil {
			return h.startDeepLink(ctx, event, link)
		}
		logging.Warn(ctx, "ignore malformed deep link", slog.String("payload", event.CommandArgs))
	}

	return h.sendWithMenu(ctx, event, welcomeText(event.FirstName, h.IsAdmin(event.UserID)))
}

// startDeepLink shows the contest with its candidates and asks to confirm the linked one.
func (h *Handler) startDeepLink(ctx context.Context, event ports.InboundEvent, link contest.DeepLink) error {
	ctx = logging.WithAttrs(ctx, slog.Uint64("contest_id", link.ContestID), slog.Uint64("candidate_id", link.CandidateID))
	logging.Info(ctx, "deep link opened")

	reason, current, err := h.svc.CheckEligibility(ctx, link.ContestID, event.UserID)
	if err != nil {
		return err
	}
	if reason.Rejected() {
		return h.sendWithMenu(ctx, event, rejectionText(reason, current, h.svc.TimePolicy()))
	}

	candidates, err := h.svc.ListCandidates(ctx, link.ContestID)
	if err != nil {
		return err
	}
	var linked *ports.Candidate
	for i := range candidates {
		if candidates[i].CandidateID == link.CandidateID {
			linked = &candidates[i]
			break
		}
	}

	if err := h.send(ctx, event.ChatID, ports.OutgoingMessage{
		Text:     voting.RenderBoardCaption(current),
		PhotoRef: current.ImageRef,
	}); err != nil {
		return err
	}
	buttons := candidateButtons(candidates, func(c ports.Candidate) string {
		return deepVotePrefix + strconv.FormatUint(link.ContestID, 10) + "_" + strconv.FormatUint(c.CandidateID, 10)
	})
	if err := h.send(ctx, event.ChatID, ports.OutgoingMessage{Text: textSelectCandidate, Buttons: buttons}); err != nil {
		return err
	}

	if linked == nil {
		return nil
	}
	if err := h.svc.BeginConfirmation(ctx, event.UserID, link.ContestID, linked.CandidateID); err != nil {
		return err
	}
	return h.send(ctx, event.ChatID, ports.OutgoingMessage{
		Text:    confirmText(linked.Name),
		Buttons: confirmButtons(linked.CandidateID),
	})
}

// voteMenu starts in-app voting for the active contest.
func (h *Handler) voteMenu(ctx context.Context, event ports.InboundEvent) error {
	limited, err := h.track(ctx, event)
	if err != nil {
		return err
	}
	if limited {
		return h.sendText(ctx, event, textRateLimited)
	}

	active, found, err := h.svc.GetActiveContest(ctx)
	if err != nil {
		return err
	}
	if !found {
		return h.sendWithMenu(ctx, event, textNoActiveContest)
	}

	reason, current, err := h.svc.CheckEligibility(ctx, active.ContestID, event.UserID)
	if err != nil {
		return err
	}
	if reason.Rejected() {
		text := rejectionText(reason, current, h.svc.TimePolicy())
		if reason == contest.ReasonAlreadyVoted {
			text = "✅ Siz allaqachon ovoz bergansiz!\n📊 Natijalarni ko'ring."
		}
		return h.sendWithMenu(ctx, event, text)
	}

	if err := h.svc.BeginSelection(ctx, event.UserID, active.ContestID); err != nil {
		return err
	}

	missing, err := h.svc.MissingSubscriptions(ctx, active.ContestID, event.UserID)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return h.send(ctx, event.ChatID, ports.OutgoingMessage{
			Text:    textSubscribe,
			Buttons: subscriptionButtons(missing, "✅ Obunani tekshirish", dataCheckVote),
		})
	}
	return h.showContestForVoting(ctx, event, current)
}

func (h *Handler) showContestForVoting(ctx context.Context, event ports.InboundEvent, current ports.Contest) error {
	candidates, err := h.svc.ListCandidates(ctx, current.ContestID)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return h.sendText(ctx, event, textNoCandidates)
	}

	buttons := candidateButtons(candidates, func(c ports.Candidate) string {
		return votePrefix + strconv.FormatUint(c.CandidateID, 10)
	})
	return h.send(ctx, event.ChatID, ports.OutgoingMessage{
		Text:     voting.RenderBoardCaption(current),
		PhotoRef: current.ImageRef,
		Buttons:  buttons,
	})
}

func (h *Handler) checkVoteSubscription(ctx context.Context, event ports.InboundEvent) (callbackAnswer, error) {
	session, found, err := h.svc.LoadSession(ctx, event.UserID)
	if err != nil {
		return callbackAnswer{}, err
	}
	if !found || session.Step != contest.StepSelectingCandidate {
		return callbackAnswer{text: textChecking}, h.sendText(ctx, event, textRestart)
	}

	missing, err := h.svc.MissingSubscriptions(ctx, session.ContestID, event.UserID)
	if err != nil {
		return callbackAnswer{}, err
	}
	if len(missing) > 0 {
		return callbackAnswer{text: textSubscribeAll, alert: true}, h.send(ctx, event.ChatID, ports.OutgoingMessage{
			Text:    textSubscribeAgain,
			Buttons: subscriptionButtons(missing, "🔄 Qayta tekshirish", dataCheckVote),
		})
	}

	current, err := h.svc.GetContest(ctx, session.ContestID)
	if err != nil {
		return callbackAnswer{}, err
	}
	return callbackAnswer{text: textSubscribed, alert: true}, h.showContestForVoting(ctx, event, current)
}

func (h *Handler) selectCandidate(ctx context.Context, event ports.InboundEvent, raw string) (callbackAnswer, error) {
	candidateID, ok := parseID(raw)
	if !ok {
		return callbackAnswer{}, nil
	}

	session, found, err := h.svc.LoadSession(ctx, event.UserID)
	if err != nil {
		return callbackAnswer{}, err
	}
	if !found {
		return callbackAnswer{}, h.sendText(ctx, event, textRestart)
	}

	candidate, found, err := h.findCandidate(ctx, session.ContestID, candidateID)
	if err != nil {
		return callbackAnswer{}, err
	}
	if !found {
		return callbackAnswer{}, h.sendText(ctx, event, textCandidateMissing)
	}

	if _, err := h.svc.SelectCandidate(ctx, event.UserID, candidateID); err != nil {
		if errors.Is(err, contest.ErrNoSession) {
			return callbackAnswer{}, h.sendText(ctx, event, textRestart)
		}
		return callbackAnswer{}, err
	}
	return callbackAnswer{}, h.send(ctx, event.ChatID, ports.OutgoingMessage{
		Text:    confirmText(candidate.Name),
		Buttons: confirmButtons(candidateID),
	})
}

func (h *Handler) confirmVote(ctx context.Context, event ports.InboundEvent, raw string) (callbackAnswer, error) {
	candidateID, ok := parseID(raw)
	if !ok {
		return callbackAnswer{}, nil
	}

	result, err := h.svc.ConfirmVote(ctx, event.UserID, candidateID, voterName(event))
	if err != nil {
		if errors.Is(err, contest.ErrNoSession) || errors.Is(err, contest.ErrSessionStep) {
			return callbackAnswer{}, h.sendText(ctx, event, textRestart)
		}
		return callbackAnswer{}, err
	}

	retry := deepCheckPrefix + strconv.FormatUint(result.Contest.ContestID, 10) + "_" + strconv.FormatUint(candidateID, 10)
	return callbackAnswer{}, h.sendOutcome(ctx, event, result, retry)
}

func (h *Handler) cancelVote(ctx context.Context, event ports.InboundEvent) (callbackAnswer, error) {
	if err := h.svc.CancelSession(ctx, event.UserID); err != nil {
		return callbackAnswer{}, err
	}
	return callbackAnswer{text: textCancelled}, nil
}

// deepVote admits a vote chosen from the deep-link candidate list.
func (h *Handler) deepVote(ctx context.Context, event ports.InboundEvent, raw string) (callbackAnswer, error) {
	contestID, candidateID, ok := parseIDPair(raw)
	if !ok {
		return callbackAnswer{}, nil
	}

	result, err := h.admit(ctx, event, contestID, candidateID)
	if err != nil {
		return callbackAnswer{}, err
	}
	retry := deepCheckPrefix + strconv.FormatUint(contestID, 10) + "_" + strconv.FormatUint(candidateID, 10)
	return callbackAnswer{}, h.sendOutcome(ctx, event, result, retry)
}

// deepCheck retries admission after the voter was asked to subscribe.
func (h *Handler) deepCheck(ctx context.Context, event ports.InboundEvent, raw string) (callbackAnswer, error) {
	contestID, candidateID, ok := parseIDPair(raw)
	if !ok {
		return callbackAnswer{}, nil
	}

	result, err := h.admit(ctx, event, contestID, candidateID)
	if err != nil {
		return callbackAnswer{}, err
	}
	if result.Reason == contest.ReasonSubscriptionRequired {
		retry := deepCheckPrefix + strconv.FormatUint(contestID, 10) + "_" + strconv.FormatUint(candidateID, 10)
		return callbackAnswer{text: textSubscribeAll, alert: true}, h.send(ctx, event.ChatID, ports.OutgoingMessage{
			Text:    textSubscribeAgain,
			Buttons: subscriptionButtons(result.Missing, "🔄 Qayta tekshirish", retry),
		})
	}
	return callbackAnswer{text: textSubscribed, alert: true}, h.sendOutcome(ctx, event, result, "")
}

func (h *Handler) admit(ctx context.Context, event ports.InboundEvent, contestID uint64, candidateID uint64) (voting.AdmitResult, error) {
	return h.svc.Admit(ctx, voting.AdmitInput{
		ContestID:   contestID,
		CandidateID: candidateID,
		VoterID:     event.UserID,
		VoterName:   voterName(event),
	})
}

// sendOutcome reports an admission result; retryData is the callback offered when subscriptions are missing.
func (h *Handler) sendOutcome(ctx context.Context, event ports.InboundEvent, result voting.AdmitResult, retryData string) error {
	if result.Admitted() {
		return h.sendWithMenu(ctx, event, successText(result.Candidate.Name))
	}
	if result.Reason == contest.ReasonSubscriptionRequired {
		return h.send(ctx, event.ChatID, ports.OutgoingMessage{
			Text:    textSubscribe,
			Buttons: subscriptionButtons(result.Missing, "✅ Obunani tekshirish", retryData),
		})
	}
	return h.sendText(ctx, event, rejectionText(result.Reason, result.Contest, h.svc.TimePolicy()))
}

func (h *Handler) findCandidate(ctx context.Context, contestID uint64, candidateID uint64) (ports.Candidate, bool, error) {
	candidates, err := h.svc.ListCandidates(ctx, contestID)
	if err != nil {
		return ports.Candidate{}, false, err
	}
	for _, candidate := range candidates {
		if candidate.CandidateID == candidateID {
			return candidate, true, nil
		}
	}
	return ports.Candidate{}, false, nil
}

func (h *Handler) results(ctx context.Context, event ports.InboundEvent) error {
	active, found, err := h.svc.GetActiveContest(ctx)
	if err != nil {
		return err
	}
	if !found {
		return h.sendText(ctx, event, textNoActiveContest)
	}

	results, err := h.svc.Results(ctx, active.ContestID)
	if err != nil {
		return err
	}
	return h.sendText(ctx, event, ResultsText(results))
}

func (h *Handler) info(ctx context.Context, event ports.InboundEvent) error {
	active, found, err := h.svc.GetActiveContest(ctx)
	if err != nil {
		return err
	}

	var report *voting.DetailedReport
	if found {
		loaded, err := h.svc.DetailedReport(ctx, active.ContestID)
		if err != nil {
			return errs.Wrapf(err, "load report of contest %d", active.ContestID)
		}
		report = &loaded
	}
	return h.sendText(ctx, event, infoText(report, h.svc.TimePolicy()))
}
