package dialog

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"votebot/internal/domain/contest"
	"votebot/internal/ports"
	"votebot/internal/usecase/voting"
)

const (
	menuVote    = "🗳 Ovoz berish"
	menuResults = "📊 Natijalar"
	menuInfo    = "ℹ️ Ma'lumot"
	menuAdmin   = "👨‍💼 Admin Panel"

	adminReport  = "📋 Batafsil hisobot"
	adminStop    = "⏸ Konkursni to'xtatish"
	adminArchive = "📚 Arxiv"
	adminReset   = "🗑 Ovozlarni tozalash"
	adminBack    = "⬅️ Orqaga"
)

const (
	textGenericFailure   = "❌ Xatolik yuz berdi!"
	textNoActiveContest  = "❌ Hozirda faol konkurs yo'q."
	textRateLimited      = "⏳ Iltimos, biroz kuting..."
	textRestart          = "❌ Xatolik. Qaytadan boshlang."
	textNoCandidates     = "❌ Nomzodlar qo'shilmagan."
	textCandidateMissing = "❌ Nomzod topilmadi!"
	textAlreadyVoted     = "❌ Siz allaqachon ovoz bergansiz!"
	textInactive         = "❌ Bu konkurs tugagan yoki faol emas!"
	textEnded            = "⌛️ Konkurs tugagan!"
	textSelectCandidate  = "👇 O'zingizga yoqqan nomzodni tanlang va ovoz bering:"
	textSubscribe        = "⚠️ <b>Ovoz berish uchun quyidagi kanallarga obuna bo'ling:</b>\n\n"
	textSubscribeAgain   = "⚠️ <b>Obuna bo'lishni unutmang!</b>\n\nQuyidagi kanallarga obuna bo'ling:\n"
	textNotAdmin         = "❌ Sizda admin huquqi yo'q!"
	textDenied           = "❌ Ruxsat yo'q!"
	textCancelled        = "Bekor qilindi"
	textChecking         = "Tekshirilmoqda..."
	textSubscribeAll     = "❌ Barcha kanallarga obuna bo'ling!"
	textSubscribed       = "✅ Obuna tasdiqlandi!"
)

func mainMenu(admin bool) [][]string {
	rows := [][]string{
		{menuVote},
		{menuResults, menuInfo},
	}
	if admin {
		rows = append(rows, []string{menuAdmin})
	}
	return rows
}

func adminMenu() [][]string {
	return [][]string{
		{menuResults, adminReport},
		{adminStop, adminArchive},
		{adminReset},
		{adminBack},
	}
}

func welcomeText(firstName string, admin bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👋 <b>Assalomu alaykum, %s!</b>\n\n", html.EscapeString(firstName))
	b.WriteString("🗳 <b>Ovoz berish botiga xush kelibsiz!</b>\n\n")
	b.WriteString("<b>Botdan foydalanish:</b>\n")
	b.WriteString("1️⃣ Kerakli kanallarga obuna bo'ling\n")
	b.WriteString("2️⃣ \"" + menuVote + "\" tugmasini bosing\n")
	b.WriteString("3️⃣ O'zingizga yoqqan nomzodni tanlang\n\n")
	b.WriteString("📊 Natijalarni real vaqtda kuzatib boring!")
	if admin {
		b.WriteString("\n\n👨‍💼 <i>Siz admin huquqlariga egasiz</i>")
	}
	return b.String()
}

func adminPanelText() string {
	return "👨‍💼 <b>Admin Panel</b>\n\n" +
		"⏸ <b>Konkursni to'xtatish</b> - faol konkursni to'xtatish\n" +
		"📊 <b>Natijalar</b> - joriy konkurs natijalarini ko'rish\n" +
		"📋 <b>Batafsil hisobot</b> - to'liq statistika va CSV fayl\n" +
		"🗑 <b>Ovozlarni tozalash</b> - barcha ovozlarni o'chirish\n" +
		"📚 <b>Arxiv</b> - eski konkurslarni ko'rish\n\n" +
		"Yangi konkurs: <code>votebot contest create --file contest.toml</code>"
}

func successText(candidateName string) string {
	return fmt.Sprintf("✅ <b>Ovozingiz qabul qilindi!</b>\n\nSiz <b>%s</b> ga ovoz berdingiz.\n\nRahmat! 🎉", html.EscapeString(candidateName))
}

func confirmText(candidateName string) string {
	return fmt.Sprintf("❓ <b>Tasdiqlang</b>\n\nSiz <b>%s</b> ga ovoz berasiz?\n\nOvozingizni tasdiqlaysizmi?", html.EscapeString(candidateName))
}

func notStartedText(start string) string {
	return "⏰ Konkurs hali boshlanmagan!\n📅 Boshlanish: " + start
}

// rejectionText renders the voter-facing text for a rejected admission.
func rejectionText(reason contest.Reason, c ports.Contest, policy contest.TimePolicy) string {
	switch reason {
	case contest.ReasonNotYetStarted:
		return notStartedText(policy.Format(c.StartAt))
	case contest.ReasonEnded:
		return textEnded
	case contest.ReasonAlreadyVoted:
		return textAlreadyVoted
	case contest.ReasonCandidateNotFound:
		return textCandidateMissing
	default:
		return textInactive
	}
}

func subscriptionButtons(missing []ports.ChannelRequirement, retryText string, retryData string) [][]ports.Button {
	rows := make([][]ports.Button, 0, len(missing)+1)
	for i, channel := range missing {
		rows = append(rows, []ports.Button{{
			Text: fmt.Sprintf("📢 %d. %s", i+1, channel.Title),
			URL:  channel.InviteLink,
		}})
	}
	rows = append(rows, []ports.Button{{Text: retryText, Data: retryData}})
	return rows
}

func candidateButtons(candidates []ports.Candidate, data func(ports.Candidate) string) [][]ports.Button {
	rows := make([][]ports.Button, 0, len(candidates))
	for _, candidate := range candidates {
		rows = append(rows, []ports.Button{{
			Text: fmt.Sprintf("%s - %s", candidate.Name, contest.FormatCompactCount(candidate.Votes)),
			Data: data(candidate),
		}})
	}
	return rows
}

func confirmButtons(candidateID uint64) [][]ports.Button {
	return [][]ports.Button{{
		{Text: "✅ Ha, tasdiqlash", Data: confirmPrefix + strconv.FormatUint(candidateID, 10)},
		{Text: "❌ Bekor qilish", Data: dataCancelVote},
	}}
}

func medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return strconv.Itoa(rank) + "."
	}
}

func formatPercent(pct float64) string {
	return strconv.FormatFloat(pct, 'f', -1, 64)
}

// ResultsText renders standings with medals and a percentage bar per candidate.
func ResultsText(results voting.ContestResults) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>%s</b>\n\n", html.EscapeString(results.Contest.Name))
	if len(results.Results) == 0 {
		b.WriteString("❌ Hozircha ovozlar yo'q\n")
		return b.String()
	}

	fmt.Fprintf(&b, "📈 Jami ovozlar: <b>%d</b>\n\n", results.TotalVotes)
	for _, result := range results.Results {
		fmt.Fprintf(&b, "%s <b>%s</b>\n", medal(result.Rank), html.EscapeString(result.Name))
		fmt.Fprintf(&b, "   %s %s%% (%d ovoz)\n\n", contest.ProgressBar(result.Percentage), formatPercent(result.Percentage), result.Votes)
	}
	return b.String()
}

func infoText(active *voting.DetailedReport, policy contest.TimePolicy) string {
	var b strings.Builder
	b.WriteString("ℹ️ <b>Bot haqida</b>\n\n")
	if active != nil {
		fmt.Fprintf(&b, "🗳 <b>Joriy konkurs:</b> %s\n", html.EscapeString(active.Contest.Name))
		fmt.Fprintf(&b, "📅 Boshlanish: %s\n", policy.Format(active.Contest.StartAt))
		fmt.Fprintf(&b, "⏰ Tugash: %s\n\n", policy.Format(active.Contest.EndAt))
		fmt.Fprintf(&b, "👥 Ishtirokchilar: %d\n", active.TotalVoters)
		fmt.Fprintf(&b, "🗳 Jami ovozlar: %d\n\n", active.TotalVotes)
	} else {
		b.WriteString("❌ Hozirda faol konkurs yo'q\n\n")
	}
	b.WriteString("📌 <b>Qoidalar:</b>\n")
	b.WriteString("• Har bir foydalanuvchi 1 marta ovoz beradi\n")
	b.WriteString("• PUBLIC kanallarga obuna bo'lish shart\n")
	b.WriteString("• Natijalar real vaqtda yangilanadi\n")
	b.WriteString("• Ovozlar soni kanalda ham ko'rinadi\n")
	return b.String()
}

func reportHeader(title string, report voting.DetailedReport, policy contest.TimePolicy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", title)
	fmt.Fprintf(&b, "🗳 <b>Konkurs:</b> %s\n", html.EscapeString(report.Contest.Name))
	fmt.Fprintf(&b, "📅 <b>Boshlanish:</b> %s\n", policy.Format(report.Contest.StartAt))
	fmt.Fprintf(&b, "⏰ <b>Tugash:</b> %s\n\n", policy.Format(report.Contest.EndAt))
	b.WriteString("📊 <b>Statistika:</b>\n")
	fmt.Fprintf(&b, "👥 Jami ishtirokchilar: %d\n", report.TotalVoters)
	fmt.Fprintf(&b, "🗳 Jami ovozlar: %d\n", report.TotalVotes)
	return b.String()
}

// ReportText renders the admin report; limit caps the listed candidates when positive.
func ReportText(title string, report voting.DetailedReport, policy contest.TimePolicy, limit int) string {
	var b strings.Builder
	b.WriteString(reportHeader(title, report, policy))
	b.WriteString("\n<b>Natijalar:</b>\n")
	for i, result := range report.Results {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(&b, "\n%s <b>%s</b>\n", medal(result.Rank), html.EscapeString(result.Name))
		fmt.Fprintf(&b, "   📊 %d ovoz (%.1f%%)\n", result.Votes, result.Percentage)
	}
	return b.String()
}

func statsText(report *voting.DetailedReport, global ports.GlobalStats) string {
	var b strings.Builder
	b.WriteString("⚡️ <b>Tezkor Statistika</b>\n\n")
	if report != nil {
		fmt.Fprintf(&b, "🗳 <b>%s</b>\n", html.EscapeString(report.Contest.Name))
		fmt.Fprintf(&b, "👥 Ishtirokchilar: %d\n", report.TotalVoters)
		fmt.Fprintf(&b, "🗳 Ovozlar: %d\n", report.TotalVotes)
		if len(report.Results) > 0 {
			top := report.Results[0]
			fmt.Fprintf(&b, "🏆 Yetakchi: <b>%s</b> (%d ovoz)\n", html.EscapeString(top.Name), top.Votes)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("❌ Faol konkurs yo'q\n\n")
	}
	b.WriteString("🌐 <b>Umumiy:</b>\n")
	fmt.Fprintf(&b, "📁 Konkurslar: %d (faol: %d)\n", global.TotalContests, global.ActiveContests)
	fmt.Fprintf(&b, "🗳 Jami ovozlar: %d\n", global.TotalVotes)
	fmt.Fprintf(&b, "👥 Jami ishtirokchilar: %d\n", global.TotalVoters)
	return b.String()
}
