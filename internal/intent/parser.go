// Package intent turns free-form command text into a structured intent.
// The grammar is a deliberately small keyword heuristic: commands come
// from voice transcription, so matching must tolerate filler words.
package intent

import (
	"strings"

	"starknet-pilot/internal/domain"
)

// Parse extracts the requested action and trading pair from raw text.
// Unrecognized text yields ActionUnknown; callers reject those runs.
func Parse(text string) domain.Intent {
	lower := strings.ToLower(text)

	action := domain.ActionUnknown
	switch {
	case strings.Contains(lower, "execute") || strings.Contains(lower, "trade"):
		action = domain.ActionExecuteStrategy
	case strings.Contains(lower, "check") || strings.Contains(lower, "status"):
		action = domain.ActionCheckStatus
	}

	pair := domain.PairETHUSDC
	if strings.Contains(lower, "btc") {
		pair = domain.PairBTCUSDC
	}

	return domain.Intent{Action: action, Pair: pair}
}
