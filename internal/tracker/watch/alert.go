package watch

import (
	"fmt"
	"strings"
	"time"
)

type AlertKind string

const (
	AlertStatusChange   AlertKind = "status_change"
	AlertHedgeAvailable AlertKind = "hedge_available"
	AlertFinished       AlertKind = "match_finished"
)

// Alert is one notification produced by a watch tick.
type Alert struct {
	Kind      AlertKind
	FixtureID int64
	Phrase    string
	Minute    int
	ScoreHome int
	ScoreAway int
	From      string
	To        string
	Detail    string
	At        time.Time
}

// Text renders the alert as a Telegram markdown message.
func (a Alert) Text() string {
	var b strings.Builder
	switch a.Kind {
	case AlertStatusChange:
		fmt.Fprintf(&b, "🔄 *%s*\n%s → %s", escapeMarkdown(a.Phrase), a.From, a.To)
	case AlertHedgeAvailable:
		fmt.Fprintf(&b, "🛡 *Hedge available*: %s", escapeMarkdown(a.Phrase))
	case AlertFinished:
		b.WriteString("🏁 *Match finished*")
	default:
		fmt.Fprintf(&b, "ℹ️ %s", a.Kind)
	}
	if a.Detail != "" {
		fmt.Fprintf(&b, "\n%s", escapeMarkdown(a.Detail))
	}
	fmt.Fprintf(&b, "\n\nFixture %d, %d' %d-%d", a.FixtureID, a.Minute, a.ScoreHome, a.ScoreAway)
	return b.String()
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
