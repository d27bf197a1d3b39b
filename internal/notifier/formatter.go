package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"SignalSentinel/internal/evaluator"
	"SignalSentinel/internal/model"
)

var actionIcons = map[model.Action]string{
	model.ActionBuy:  "🟢",
	model.ActionSell: "🔴",
	model.ActionHold: "🟡",
}

var statusIcons = map[model.Status]string{
	model.StatusPending:    "⏳",
	model.StatusAccurate:   "✅",
	model.StatusInaccurate: "❌",
	model.StatusExpired:    "⌛",
}

// FormatSnapshot formats an indicator snapshot.
func FormatSnapshot(symbol, interval string, s *model.IndicatorSnapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s\n\n", html.EscapeString(symbol), html.EscapeString(interval)))
	b.WriteString(fmt.Sprintf("Price: %s (%+.2f%%)\n", price(s.CurrentPrice), s.PriceChange24h))
	b.WriteString(fmt.Sprintf("RSI(14): %.1f\n", s.RSI))
	b.WriteString(fmt.Sprintf("MACD: %.4g | signal %.4g | hist %.4g\n", s.MACD.Line, s.MACD.Signal, s.MACD.Histogram))
	b.WriteString(fmt.Sprintf("EMA20: %s | EMA50: %s\n", price(s.EMA20), price(s.EMA50)))
	b.WriteString(fmt.Sprintf("Bollinger: %s / %s / %s\n", price(s.Bollinger.Lower), price(s.Bollinger.Middle), price(s.Bollinger.Upper)))
	b.WriteString(fmt.Sprintf("Support: %s | Resistance: %s\n", price(s.Support), price(s.Resistance)))
	b.WriteString(fmt.Sprintf("Volume: %.2f\n", s.Volume24h))
	return b.String()
}

// FormatRecommendation formats a stored recommendation, with its snapshot when given.
func FormatRecommendation(rec model.Recommendation, snap *model.IndicatorSnapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s %s</b> | confidence %.0f%%\n\n",
		actionIcons[rec.Action], strings.ToUpper(string(rec.Action)), html.EscapeString(rec.Symbol), rec.Confidence))
	b.WriteString(fmt.Sprintf("Entry: %s\n", price(rec.EntryPrice)))
	b.WriteString(fmt.Sprintf("Target: %s\n", price(rec.TargetPrice)))
	b.WriteString(fmt.Sprintf("Stop: %s\n", price(rec.StopLoss)))
	b.WriteString(fmt.Sprintf("Timeframe: %s | Risk: %s\n", html.EscapeString(rec.Timeframe), rec.RiskLevel))
	if snap != nil {
		b.WriteString(fmt.Sprintf("RSI %.1f | EMA20 %s | EMA50 %s\n", snap.RSI, price(snap.EMA20), price(snap.EMA50)))
	}
	b.WriteString("\n<b>Reasoning:</b>\n")
	for _, r := range rec.Reasoning {
		b.WriteString("• " + html.EscapeString(r) + "\n")
	}
	b.WriteString(fmt.Sprintf("\n<code>%s</code>", rec.ID))
	return b.String()
}

// FormatQuote formats a live or cached quote.
func FormatQuote(q model.Quote) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💲 <b>%s</b>: %s (%+.2f%% 24h)\n", html.EscapeString(q.Symbol), price(q.Price), q.Change24h))
	if q.Volume > 0 {
		b.WriteString(fmt.Sprintf("Volume 24h: %.0f\n", q.Volume))
	}
	if q.MarketCap > 0 {
		b.WriteString(fmt.Sprintf("Market cap: %.0f\n", q.MarketCap))
	}
	b.WriteString(fmt.Sprintf("Source: %s", html.EscapeString(q.Source)))
	if q.Stale {
		b.WriteString(fmt.Sprintf(" (cached %s)", q.FetchedAt.UTC().Format("2006-01-02 15:04")))
	}
	return b.String()
}

// FormatStats formats evaluation stats.
func FormatStats(st model.EvaluationStats) string {
	var b strings.Builder
	b.WriteString("📈 <b>Recommendation accuracy</b>\n\n")
	b.WriteString(fmt.Sprintf("Total: %d\n", st.Total))
	b.WriteString(fmt.Sprintf("%s Pending: %d\n", statusIcons[model.StatusPending], st.Pending))
	b.WriteString(fmt.Sprintf("%s Accurate: %d\n", statusIcons[model.StatusAccurate], st.Accurate))
	b.WriteString(fmt.Sprintf("%s Inaccurate: %d\n", statusIcons[model.StatusInaccurate], st.Inaccurate))
	b.WriteString(fmt.Sprintf("%s Expired: %d\n", statusIcons[model.StatusExpired], st.Expired))
	b.WriteString(fmt.Sprintf("\nAccuracy: <b>%.1f%%</b>", st.AccuracyRate))
	return b.String()
}

// FormatSummary formats one evaluation pass.
func FormatSummary(s evaluator.Summary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔎 <b>Evaluation pass</b> | %d checked\n\n", s.Considered))
	b.WriteString(fmt.Sprintf("Accurate %d | Inaccurate %d | Expired %d | Pending %d\n",
		s.Accurate, s.Inaccurate, s.Expired, s.StillPending))
	if s.SkippedNoData > 0 {
		b.WriteString(fmt.Sprintf("No price data: %d\n", s.SkippedNoData))
	}
	if s.WriteFailures > 0 {
		b.WriteString(fmt.Sprintf("⚠️ Write failures: %d\n", s.WriteFailures))
	}
	for _, tr := range s.Transitions {
		line := fmt.Sprintf("%s %s %s → %s", statusIcons[tr.Status], strings.ToUpper(string(tr.Action)), html.EscapeString(tr.Symbol), tr.Status)
		if tr.Price > 0 {
			line += " @ " + price(tr.Price)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatPending lists pending recommendations, newest first.
func FormatPending(recs []model.Recommendation, now time.Time) string {
	if len(recs) == 0 {
		return "No pending recommendations."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⏳ <b>Pending</b> (%d)\n\n", len(recs)))
	for _, r := range recs {
		b.WriteString(fmt.Sprintf("%s %s %s | target %s | stop %s | %s ago\n",
			actionIcons[r.Action], strings.ToUpper(string(r.Action)), html.EscapeString(r.Symbol),
			price(r.TargetPrice), price(r.StopLoss), age(now.Sub(r.CreatedAt))))
	}
	return strings.TrimRight(b.String(), "\n")
}

// HelpText lists the chat commands.
const HelpText = `🤖 <b>SignalSentinel</b>

/analyze SYMBOL [interval] - indicators and a new recommendation
/price SYMBOL - current price
/evaluate - grade pending recommendations now
/stats - accuracy stats
/pending - pending recommendations
/help - this message`

func price(p float64) string {
	switch {
	case p >= 1000:
		return fmt.Sprintf("%.2f", p)
	case p >= 1:
		return fmt.Sprintf("%.4f", p)
	}
	return fmt.Sprintf("%.8f", p)
}

func age(d time.Duration) string {
	switch {
	case d >= 48*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	case d >= time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dm", int(d.Minutes()))
}
