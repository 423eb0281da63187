// Package reconcile matches a combination of pool segments to a target
// audio duration. Selection is randomized-greedy with a bounded attempt
// count; the accepted combination is corrected to the target by a playback
// rate change or a tail trim, and then assembled through five external
// encode stages.
package reconcile

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// Selection failures. ErrExhausted marks the target as skipped for this
// run; the batch continues.
var (
	ErrNoUsableClips = errors.New("no segments within clip duration bounds")
	ErrExhausted     = errors.New("selection attempts exhausted")
)

// Bounds carries every tolerance the selection algorithm works against.
// All durations in seconds; rates are duration multipliers around 1.0.
type Bounds struct {
	MinClip        float64
	MaxClip        float64
	MinRate        float64
	MaxRate        float64
	MaxAVDiff      float64
	ShorterMaxDiff float64
	LongerMaxDiff  float64
}

// Clip is one pool segment offered to selection.
type Clip struct {
	Alias    string
	Path     string
	Duration float64
}

// Plan is one accepted assembly: the ordered clips plus the adjustment that
// brings their summed duration to the target. Immutable once returned.
type Plan struct {
	Clips    []Clip
	Total    float64 // Summed clip duration before adjustment.
	Target   float64
	Rate     float64 // Duration multiplier; 1.0 means no rate change.
	TrimLast float64 // Seconds cut from the last clip; 0 means no trim.
}

// Key identifies the ordered alias selection for batch-wide deduplication.
func (p *Plan) Key() string {
	aliases := make([]string, len(p.Clips))
	for i, c := range p.Clips {
		aliases[i] = c.Alias
	}
	return strings.Join(aliases, "+")
}

// Aliases returns the ordered segment aliases for the manifest.
func (p *Plan) Aliases() []string {
	out := make([]string, len(p.Clips))
	for i, c := range p.Clips {
		out[i] = c.Alias
	}
	return out
}

// EffectiveDuration is the visual duration after trim and rate change.
func (p *Plan) EffectiveDuration() float64 {
	return (p.Total - p.TrimLast) * p.Rate
}

// Select draws segment combinations until one fits the target within
// bounds and is not a duplicate of an already-used selection. Returns the
// plan and the number of attempts consumed, or ErrExhausted after
// maxAttempts rejections. used holds the Keys of previously accepted plans
// and is not modified here.
func Select(rng *rand.Rand, pool []Clip, target float64, b Bounds, used map[string]bool, maxAttempts int) (*Plan, int, error) {
	usable := make([]Clip, 0, len(pool))
	for _, c := range pool {
		if c.Duration >= b.MinClip && c.Duration <= b.MaxClip {
			usable = append(usable, c)
		}
	}
	if len(usable) == 0 {
		return nil, 0, ErrNoUsableClips
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sel, total := drawCombination(rng, usable, target)
		plan, ok := classify(sel, total, target, b)
		if !ok {
			continue
		}
		if used[plan.Key()] {
			continue
		}
		return plan, attempt, nil
	}
	return nil, maxAttempts, fmt.Errorf("%w after %d attempts (target %.1fs)", ErrExhausted, maxAttempts, target)
}

// drawCombination shuffles the usable pool and greedily accumulates clips
// until the running total reaches the target. The addition that crosses the
// target stays in, so the total may overshoot by up to one clip; a thin
// pool may leave it short.
func drawCombination(rng *rand.Rand, usable []Clip, target float64) ([]Clip, float64) {
	idx := rng.Perm(len(usable))
	var sel []Clip
	total := 0.0
	for _, i := range idx {
		if total >= target {
			break
		}
		sel = append(sel, usable[i])
		total += usable[i].Duration
	}
	return sel, total
}

// classify decides whether a drawn combination is acceptable and which
// correction to apply:
//
//   - within maxAVDiff: accepted as-is (rate 1.0); the residue disappears
//     in the mux-stage hard trim.
//   - short: rejected beyond shorterMaxDiff, otherwise corrected by rate
//     (stretching, multiplier > 1) when in bounds.
//   - long: rejected beyond longerMaxDiff, otherwise corrected by rate
//     (compressing, multiplier < 1); when the rate falls out of bounds the
//     last clip is trimmed by exactly the overshoot, provided the remainder
//     stays a usable clip.
func classify(sel []Clip, total, target float64, b Bounds) (*Plan, bool) {
	if len(sel) == 0 || total <= 0 {
		return nil, false
	}
	diff := total - target

	switch {
	case diff < -b.MaxAVDiff:
		if -diff > b.ShorterMaxDiff {
			return nil, false
		}
		rate := target / total
		if rate < b.MinRate || rate > b.MaxRate {
			return nil, false
		}
		return &Plan{Clips: sel, Total: total, Target: target, Rate: rate}, true

	case diff > b.MaxAVDiff:
		if diff > b.LongerMaxDiff {
			return nil, false
		}
		rate := target / total
		if rate >= b.MinRate && rate <= b.MaxRate {
			return &Plan{Clips: sel, Total: total, Target: target, Rate: rate}, true
		}
		last := sel[len(sel)-1]
		if last.Duration-diff >= b.MinClip {
			return &Plan{Clips: sel, Total: total, Target: target, Rate: 1.0, TrimLast: diff}, true
		}
		return nil, false

	default:
		return &Plan{Clips: sel, Total: total, Target: target, Rate: 1.0}, true
	}
}
