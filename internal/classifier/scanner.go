package classifier

import (
	"time"

	"arkengard.com/ability-bot-go/internal/ability"
	"arkengard.com/ability-bot-go/internal/logging"
)

// SlotMatch is the best classification result for one bar slot.
type SlotMatch struct {
	SlotIndex int
	Ability   string
	Result    Result
}

// BarScanner partitions a bar into slots and determines which known
// ability occupies each one.
type BarScanner struct {
	classifier *Classifier
	log        *logging.Logger
}

// NewBarScanner creates a scanner over the given classifier.
func NewBarScanner(classifier *Classifier) *BarScanner {
	return &BarScanner{
		classifier: classifier,
		log:        logging.NewLogger("BarScanner"),
	}
}

// Scan tries every enabled ability with a loaded icon against every slot
// region and records the highest-confidence match per slot, provided it
// clears the configured threshold. Matched abilities get their position
// bound to the slot region; a later scan may rebind a slot if a different
// ability now scores higher there. A slot with no qualifying match is
// simply absent from the result.
func (bs *BarScanner) Scan(bar *ability.BarMapping, table *ability.StateTable, cfg *ability.DetectionConfig) map[int]SlotMatch {
	if cfg == nil {
		cfg = ability.DefaultDetectionConfig()
	}

	// Detection rides on template matching alone. The overlay and color
	// methods report state confidence, not presence, and would happily
	// claim an empty slot.
	scanCfg := *cfg
	scanCfg.Methods = []ability.MethodName{ability.MethodTemplate}

	results := make(map[int]SlotMatch)
	candidates := bs.candidates(table)
	if len(candidates) == 0 {
		bar.MarkScanned(time.Now())
		return results
	}

	for slot, region := range bar.Slots {
		var best SlotMatch
		for _, ab := range candidates {
			r := bs.classifier.Classify(ab, region, &scanCfg)
			if r.Confidence > best.Result.Confidence {
				best = SlotMatch{SlotIndex: slot, Ability: ab.Name, Result: r}
			}
		}

		if best.Ability == "" || best.Result.Confidence < cfg.MatchThreshold {
			continue
		}

		results[slot] = best
		bar.Bind(slot, best.Ability)
		table.SetPosition(best.Ability, region)
		table.SetState(best.Ability, best.Result.State, best.Result.Confidence, best.Result.At)

		bs.log.DebugWithContext("slot matched", map[string]interface{}{
			"slot":       slot,
			"ability":    best.Ability,
			"confidence": best.Result.Confidence,
			"state":      string(best.Result.State),
		})
	}

	bar.MarkScanned(time.Now())
	return results
}

// candidates returns enabled abilities that can be classified visually.
// Abilities with no icon are skipped, not errored.
func (bs *BarScanner) candidates(table *ability.StateTable) []ability.Ability {
	var out []ability.Ability
	for _, ab := range table.Snapshot() {
		if ab.Enabled && ab.HasIcon() {
			out = append(out, ab)
		}
	}
	return out
}
