// Package memo is the caller-owned memoization boundary around the rule
// evaluator and the evolution classifier. Results are keyed on a content
// hash of (trades, settings); the engine packages themselves never cache.
package memo

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/settings"
)

// keyVersion changes whenever the hashed shape or engine semantics change,
// so entries written by an older build are never read back.
const keyVersion = "v1"

type keyInput struct {
	Trades   []journal.Trade   `json:"trades"`
	Settings settings.Settings `json:"settings"`
	Zone     string            `json:"zone"`
}

// Key hashes everything evaluation depends on. The derived rule fields of
// each trade are left out, so re-evaluated trades keep the same key while
// any change to a trade or to the settings produces a new one.
func Key(trades []journal.Trade, s settings.Settings) (string, error) {
	stripped := make([]journal.Trade, len(trades))
	for i, t := range trades {
		t.EvaluatedRules = nil
		t.ViolatedRules = nil
		stripped[i] = t
	}
	b, err := json.Marshal(keyInput{
		Trades:   stripped,
		Settings: s,
		Zone:     s.Location().String(),
	})
	if err != nil {
		return "", fmt.Errorf("memo key: %w", err)
	}
	return fmt.Sprintf("%s:%016x", keyVersion, xxhash.Sum64(b)), nil
}
