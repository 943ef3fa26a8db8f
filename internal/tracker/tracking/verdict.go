package tracking

import (
	"math"

	"github.com/Vodeneev/livebet/internal/tracker/evaluation"
)

var verdictMessages = map[VerdictStatus]string{
	VerdictPending:     "⏳ Paris en attente",
	VerdictWon:         "🎉 Tous les paris gagnés!",
	VerdictLost:        "❌ Tous les paris perdus",
	VerdictPartialLoss: "⚠️ Certains paris perdus",
	VerdictPartialWin:  "✅ Certains paris déjà gagnés",
	VerdictFavorable:   "📈 Tendance favorable",
	VerdictUnfavorable: "📉 Tendance défavorable",
	VerdictNeutral:     "➖ Situation neutre",
}

// Verdict rolls option results into the global outlook.
func Verdict(results []OptionResult) GlobalVerdict {
	v := GlobalVerdict{Total: len(results)}

	sum := 0
	for _, r := range results {
		sum += r.DynamicProbability
		switch r.CurrentStatus {
		case evaluation.StatusWon:
			v.Won++
		case evaluation.StatusLost:
			v.Lost++
		case evaluation.StatusWinning:
			v.Winning++
		case evaluation.StatusLosing:
			v.Losing++
		default:
			v.Pending++
		}
	}
	if v.Total > 0 {
		v.AvgProbability = int(math.Round(float64(sum) / float64(v.Total)))
	}

	switch {
	case v.Total == 0 || v.Pending == v.Total:
		v.Status = VerdictPending
	case v.Won == v.Total:
		v.Status = VerdictWon
	case v.Lost == v.Total:
		v.Status = VerdictLost
	case v.Lost > 0:
		v.Status = VerdictPartialLoss
	case v.Won > 0 && v.Pending > 0:
		v.Status = VerdictPartialWin
	case v.Winning > v.Losing:
		v.Status = VerdictFavorable
	case v.Winning < v.Losing:
		v.Status = VerdictUnfavorable
	default:
		v.Status = VerdictNeutral
	}
	v.Message = verdictMessages[v.Status]

	return v
}
