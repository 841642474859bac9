package pricing

import "time"

// RefundPercentage maps hours to departure onto the refund policy:
// more than 72h before departure refunds in full, then 75%, 50%, and nothing
// inside the final two hours.
func RefundPercentage(departure, now time.Time) int {
	hours := departure.Sub(now).Hours()
	switch {
	case hours > 72:
		return 100
	case hours >= 24:
		return 75
	case hours >= 2:
		return 50
	default:
		return 0
	}
}

// RefundAmount applies a refund percentage to the booking's final price.
func RefundAmount(finalPrice float64, percentage int) float64 {
	return Round2(finalPrice * float64(percentage) / 100)
}
