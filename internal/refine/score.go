// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refine

import (
	"math"
	"strings"
	"unicode"

	"github.com/pdiddy/thesis-engine/pkg/types"
)

// Scorer computes a composite humanization score. The interface lets the
// state machine be tested with scripted scores, independent of the text
// heuristics (prd004-refinement R2.5).
type Scorer interface {
	Score(text string) (float64, types.SubScores)
}

// gradeBands maps academic levels to target Flesch-Kincaid grade ranges.
var gradeBands = map[types.AcademicLevel][2]float64{
	types.LevelUndergraduate: {10, 14},
	types.LevelMasters:       {12, 16},
	types.LevelPhD:           {14, 18},
}

// TextScorer scores text on three signals: readability fit to the academic
// level, sentence-length burstiness, and n-gram originality against the
// research corpus. Weights and thresholds come from configuration; none of
// them affect the refinement loop's termination.
type TextScorer struct {
	level       types.AcademicLevel
	corpusGrams map[string]bool
	cfg         types.RefineConfig
}

// NewTextScorer builds a scorer for one section run. Corpus snippets are
// shingled once here, not per attempt.
func NewTextScorer(level types.AcademicLevel, corpusSnippets []string, cfg types.RefineConfig) *TextScorer {
	grams := make(map[string]bool)
	for _, s := range corpusSnippets {
		for _, g := range wordGrams(s, 5) {
			grams[g] = true
		}
	}
	return &TextScorer{level: level, corpusGrams: grams, cfg: cfg}
}

// Score returns the weighted composite and the underlying sub-scores,
// all in [0, 1].
func (s *TextScorer) Score(text string) (float64, types.SubScores) {
	sub := types.SubScores{
		Readability: s.readability(text),
		Burstiness:  burstiness(text),
		Originality: s.originality(text),
	}

	wr, wb, wo := s.cfg.ReadabilityWeight, s.cfg.BurstinessWeight, s.cfg.OriginalityWeight
	if wr+wb+wo <= 0 {
		wr, wb, wo = 0.35, 0.35, 0.30
	}
	composite := (wr*sub.Readability + wb*sub.Burstiness + wo*sub.Originality) / (wr + wb + wo)
	return composite, sub
}

// readability measures how close the text's Flesch-Kincaid grade sits to
// the level's target band: 1.0 inside the band, decaying linearly to 0
// five grades outside it (R2.1).
func (s *TextScorer) readability(text string) float64 {
	grade := fleschKincaidGrade(text)
	band, ok := gradeBands[s.level]
	if !ok {
		band = gradeBands[types.LevelMasters]
	}

	var dist float64
	switch {
	case grade < band[0]:
		dist = band[0] - grade
	case grade > band[1]:
		dist = grade - band[1]
	default:
		return 1.0
	}
	return clamp01(1.0 - dist/5.0)
}

// fleschKincaidGrade computes 0.39*(words/sentences) +
// 11.8*(syllables/words) - 15.59.
func fleschKincaidGrade(text string) float64 {
	sents := sentences(text)
	if len(sents) == 0 {
		return 0
	}
	words := 0
	syllables := 0
	for _, sent := range sents {
		for _, w := range strings.Fields(sent) {
			words++
			syllables += countSyllables(w)
		}
	}
	if words == 0 {
		return 0
	}
	return 0.39*float64(words)/float64(len(sents)) + 11.8*float64(syllables)/float64(words) - 15.59
}

// countSyllables estimates syllables as vowel groups, minimum one.
func countSyllables(word string) int {
	count := 0
	prevVowel := false
	for _, r := range strings.ToLower(word) {
		isVowel := strings.ContainsRune("aeiouy", r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}
	// Silent trailing e.
	if count > 1 && strings.HasSuffix(strings.ToLower(word), "e") {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

// burstiness measures sentence-length variation. Uniform sentence lengths
// are a machine-text signature; the coefficient of variation of sentence
// word counts is scored against a 0.35 target, then discounted for
// repeated trigram phrases (R2.2).
func burstiness(text string) float64 {
	sents := sentences(text)
	if len(sents) < 3 {
		// Too short to judge variation; neutral score.
		return 0.5
	}

	lengths := make([]float64, len(sents))
	mean := 0.0
	for i, s := range sents {
		lengths[i] = float64(len(strings.Fields(s)))
		mean += lengths[i]
	}
	mean /= float64(len(lengths))
	if mean == 0 {
		return 0
	}

	variance := 0.0
	for _, l := range lengths {
		variance += (l - mean) * (l - mean)
	}
	variance /= float64(len(lengths))
	cv := math.Sqrt(variance) / mean

	score := clamp01(cv / 0.35)
	return score * (1.0 - repeatedPhrasePenalty(text))
}

// repeatedPhrasePenalty returns the fraction-weighted penalty for trigrams
// appearing three or more times, capped at 0.5.
func repeatedPhrasePenalty(text string) float64 {
	grams := wordGrams(text, 3)
	if len(grams) == 0 {
		return 0
	}
	counts := make(map[string]int)
	for _, g := range grams {
		counts[g]++
	}
	repeated := 0
	for _, c := range counts {
		if c >= 3 {
			repeated += c
		}
	}
	penalty := 3.0 * float64(repeated) / float64(len(grams))
	if penalty > 0.5 {
		penalty = 0.5
	}
	return penalty
}

// originality measures 5-gram overlap against the corpus snippets: the
// fraction of the draft's 5-grams found verbatim in the corpus. Overlap at
// or below the configured limit scores 1.0; above it the score decays
// linearly (R2.3).
func (s *TextScorer) originality(text string) float64 {
	grams := wordGrams(text, 5)
	if len(grams) == 0 || len(s.corpusGrams) == 0 {
		return 1.0
	}

	hits := 0
	for _, g := range grams {
		if s.corpusGrams[g] {
			hits++
		}
	}
	overlap := float64(hits) / float64(len(grams))

	limit := s.cfg.OverlapLimit
	if limit <= 0 {
		limit = 0.20
	}
	if overlap <= limit {
		return 1.0
	}
	return clamp01(1.0 - (overlap-limit)/(1.0-limit))
}

// sentences splits text on terminal punctuation, dropping empties.
func sentences(text string) []string {
	var out []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(b.String()); len(strings.Fields(s)) > 0 {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); len(strings.Fields(s)) > 0 {
		out = append(out, s)
	}
	return out
}

// wordGrams returns all word n-grams of the text, lowercased with
// punctuation stripped so whitespace and punctuation variants collide.
func wordGrams(text string, n int) []string {
	raw := strings.Fields(strings.ToLower(text))
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w != "" {
			words = append(words, w)
		}
	}
	if len(words) < n {
		return nil
	}
	grams := make([]string, 0, len(words)-n+1)
	for i := 0; i+n <= len(words); i++ {
		grams = append(grams, strings.Join(words[i:i+n], " "))
	}
	return grams
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
