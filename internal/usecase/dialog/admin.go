package dialog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"

	"votebot/internal/errs"
	"votebot/internal/ports"
	"votebot/internal/usecase/voting"
)

func (h *Handler) adminPanel(ctx context.Context, event ports.InboundEvent) error {
	return h.send(ctx, event.ChatID, ports.OutgoingMessage{Text: adminPanelText(), MenuButtons: adminMenu()})
}

func (h *Handler) backToMain(ctx context.Context, event ports.InboundEvent) error {
	return h.sendWithMenu(ctx, event, "👋 <b>Asosiy menyu</b>")
}

func (h *Handler) activeReport(ctx context.Context) (*voting.DetailedReport, error) {
	active, found, err := h.svc.GetActiveContest(ctx)
	if err != nil || !found {
		return nil, err
	}
	report, err := h.svc.DetailedReport(ctx, active.ContestID)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (h *Handler) adminReport(ctx context.Context, event ports.InboundEvent) error {
	report, err := h.activeReport(ctx)
	if err != nil {
		return err
	}
	if report == nil {
		return h.sendText(ctx, event, textNoActiveContest)
	}
	if err := h.sendText(ctx, event, ReportText("📋 <b>Batafsil Hisobot</b>", *report, h.svc.TimePolicy(), 0)); err != nil {
		return err
	}
	return h.sendVotesCSV(ctx, event, report.Contest.ContestID)
}

// sendVotesCSV attaches the vote audit of a contest as a CSV file.
func (h *Handler) sendVotesCSV(ctx context.Context, event ports.InboundEvent, contestID uint64) error {
	var buf bytes.Buffer
	if err := h.svc.Export(ctx, contestID, voting.ExportCSV, &buf); err != nil {
		return err
	}
	_, err := h.chat.SendDocument(ctx, ports.OutgoingDocument{
		ChatRef:  strconv.FormatInt(event.ChatID, 10),
		FileName: fmt.Sprintf("contest_%d_votes.csv", contestID),
		Content:  buf.Bytes(),
		Caption:  "📥 Ovozlar ro'yxati (CSV)",
	})
	if err != nil {
		return errs.Wrap(err, "send votes csv")
	}
	return nil
}

func (h *Handler) adminStats(ctx context.Context, event ports.InboundEvent) error {
	report, err := h.activeReport(ctx)
	if err != nil {
		return err
	}
	global, err := h.svc.GlobalStats(ctx)
	if err != nil {
		return err
	}
	return h.sendText(ctx, event, statsText(report, global))
}

func (h *Handler) adminStopMenu(ctx context.Context, event ports.InboundEvent) error {
	active, found, err := h.svc.GetActiveContest(ctx)
	if err != nil {
		return err
	}
	if !found {
		return h.sendText(ctx, event, textNoActiveContest)
	}

	name := active.Name
	if runes := []rune(name); len(runes) > 40 {
		name = string(runes[:40]) + "..."
	}
	return h.send(ctx, event.ChatID, ports.OutgoingMessage{
		Text: "⏸ <b>Konkursni To'xtatish</b>\n\nQaysi konkursni to'xtatmoqchisiz?",
		Buttons: [][]ports.Button{{{
			Text: "🗳 " + name,
			Data: stopPrefix + strconv.FormatUint(active.ContestID, 10),
		}}},
	})
}

func (h *Handler) adminStopConfirm(ctx context.Context, event ports.InboundEvent, raw string) (callbackAnswer, error) {
	contestID, ok := parseID(raw)
	if !ok {
		return callbackAnswer{}, nil
	}

	report, err := h.svc.DetailedReport(ctx, contestID)
	if err != nil {
		if errors.Is(err, ports.ErrContestNotFound) {
			return callbackAnswer{}, h.sendText(ctx, event, "❌ Konkurs topilmadi")
		}
		return callbackAnswer{}, err
	}
	if !report.Contest.IsActive {
		return callbackAnswer{}, h.sendText(ctx, event, "❌ Bu konkurs allaqachon to'xtatilgan")
	}

	text := reportHeader("⚠️ <b>KONKURSNI TO'XTATISH</b>", report, h.svc.TimePolicy()) +
		"\n⚠️ <b>OGOHLANTIRISH:</b>\n" +
		"• Konkurs darhol to'xtatiladi\n" +
		"• Foydalanuvchilar endi ovoz bera olmaydi\n" +
		"• Konkurs avtomatik arxivga o'tkaziladi\n\n" +
		"Davom etasizmi?"
	return callbackAnswer{}, h.send(ctx, event.ChatID, ports.OutgoingMessage{
		Text: text,
		Buttons: [][]ports.Button{{
			{Text: "✅ Ha", Data: stopConfirmPrefix + strconv.FormatUint(contestID, 10)},
			{Text: "❌ Yo'q", Data: dataStopCancel},
		}},
	})
}

func (h *Handler) adminStopExecute(ctx context.Context, event ports.InboundEvent, raw string) (callbackAnswer, error) {
	contestID, ok := parseID(raw)
	if !ok {
		return callbackAnswer{}, nil
	}

	stopped, err := h.svc.StopContest(ctx, contestID)
	if err != nil {
		return callbackAnswer{}, err
	}
	text := fmt.Sprintf("✅ <b>Konkurs to'xtatildi!</b>\n\n🗳 %s\n⏰ Tugash: %s",
		html.EscapeString(stopped.Name), h.svc.TimePolicy().Format(stopped.EndAt))
	return callbackAnswer{}, h.sendWithMenu(ctx, event, text)
}

func (h *Handler) adminResetPrompt(ctx context.Context, event ports.InboundEvent) error {
	return h.send(ctx, event.ChatID, ports.OutgoingMessage{
		Text: "⚠️ <b>OGOHLANTIRISH!</b>\n\nSiz barcha ovozlarni o'chirmoqchisiz!\nBu amalni bekor qilib bo'lmaydi.\n\nDavom etasizmi?",
		Buttons: [][]ports.Button{{
			{Text: "✅ Ha", Data: dataResetConfirm},
			{Text: "❌ Yo'q", Data: dataResetCancel},
		}},
	})
}

func (h *Handler) adminResetExecute(ctx context.Context, event ports.InboundEvent) (callbackAnswer, error) {
	active, found, err := h.svc.GetActiveContest(ctx)
	if err != nil {
		return callbackAnswer{}, err
	}
	if !found {
		return callbackAnswer{}, h.sendText(ctx, event, textNoActiveContest)
	}

	deleted, err := h.svc.ResetVotes(ctx, active.ContestID)
	if err != nil {
		return callbackAnswer{}, err
	}
	text := fmt.Sprintf("✅ <b>Ovozlar tozalandi!</b>\n\nKonkurs: %s\nO'chirilgan ovozlar: %d",
		html.EscapeString(active.Name), deleted)
	return callbackAnswer{}, h.sendText(ctx, event, text)
}

func (h *Handler) adminArchive(ctx context.Context, event ports.InboundEvent) error {
	archived, err := h.svc.ListContests(ctx, true, archiveListLimit)
	if err != nil {
		return err
	}
	if len(archived) == 0 {
		return h.sendText(ctx, event, "📚 <b>Arxivlangan konkurslar</b>\n\n📭 Arxiv bo'sh")
	}

	rows := make([][]ports.Button, 0, len(archived))
	for _, item := range archived {
		rows = append(rows, []ports.Button{{
			Text: "📁 " + item.Name,
			Data: archivePrefix + strconv.FormatUint(item.ContestID, 10),
		}})
	}
	return h.send(ctx, event.ChatID, ports.OutgoingMessage{
		Text:    fmt.Sprintf("📚 <b>Arxivlangan konkurslar</b>\n\nJami: %d ta konkurs", len(archived)),
		Buttons: rows,
	})
}

func (h *Handler) adminArchivedContest(ctx context.Context, event ports.InboundEvent, raw string) (callbackAnswer, error) {
	contestID, ok := parseID(raw)
	if !ok {
		return callbackAnswer{}, nil
	}

	report, err := h.svc.DetailedReport(ctx, contestID)
	if err != nil {
		if errors.Is(err, ports.ErrContestNotFound) {
			return callbackAnswer{}, h.sendText(ctx, event, "❌ Konkurs topilmadi")
		}
		return callbackAnswer{}, err
	}
	return callbackAnswer{}, h.sendText(ctx, event, ReportText("📁 <b>Arxivlangan Konkurs</b>", report, h.svc.TimePolicy(), archiveWinnersLimit))
}
