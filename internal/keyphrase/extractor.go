package keyphrase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/arodionov/vacpipe/internal/model"
)

// Ensure Extractor implements model.KeyphraseExtractor.
var _ model.KeyphraseExtractor = (*Extractor)(nil)

// DefaultTopN is how many ranked phrases Extract returns by default.
const DefaultTopN = 20

// DefaultNgramMax is the largest candidate phrase length in tokens.
const DefaultNgramMax = 3

// Extractor ranks candidate n-grams of the lemmatized text by embedding
// similarity to the full text. One Extractor is shared by all workers of a
// run; it holds no per-call state.
type Extractor struct {
	embedder Embedder
	topN     int
	ngramMax int
}

// NewExtractor creates an Extractor. topN and ngramMax fall back to the
// defaults when non-positive.
func NewExtractor(embedder Embedder, topN, ngramMax int) *Extractor {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if ngramMax <= 0 {
		ngramMax = DefaultNgramMax
	}
	return &Extractor{embedder: embedder, topN: topN, ngramMax: ngramMax}
}

// Extract returns the top-N keyphrases of text as a comma-joined string.
// Empty input yields an empty string, not an error.
func (e *Extractor) Extract(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	lemmatized := Lemmatize(text)
	candidates := candidatePhrases(strings.Fields(lemmatized), e.ngramMax)
	if len(candidates) == 0 {
		return "", nil
	}

	// One batch: the document first, then every candidate.
	inputs := append([]string{text}, candidates...)
	vectors, err := e.embedder.Embed(ctx, inputs)
	if err != nil {
		return "", fmt.Errorf("embedding candidates: %w", err)
	}

	doc := vectors[0]
	docNorm := norm(doc)

	type scored struct {
		phrase string
		score  float64
	}
	ranked := make([]scored, len(candidates))
	for i, phrase := range candidates {
		ranked[i] = scored{phrase: phrase, score: cosine(doc, docNorm, vectors[i+1])}
	}

	// Stable sort keeps text order among equal scores deterministic.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	n := min(e.topN, len(ranked))
	phrases := make([]string, n)
	for i := 0; i < n; i++ {
		phrases[i] = ranked[i].phrase
	}
	return strings.Join(phrases, ", "), nil
}

// candidatePhrases builds deduplicated n-grams (1..ngramMax tokens) from the
// lemmatized token stream. Any n-gram containing a stop word is excluded, so
// phrases never start, end, or bridge with filler words.
func candidatePhrases(tokens []string, ngramMax int) []string {
	seen := make(map[string]struct{})
	var out []string

	for size := 1; size <= ngramMax; size++ {
		for i := 0; i+size <= len(tokens); i++ {
			gram := tokens[i : i+size]
			if containsStopword(gram) {
				continue
			}
			phrase := strings.Join(gram, " ")
			if _, dup := seen[phrase]; dup {
				continue
			}
			seen[phrase] = struct{}{}
			out = append(out, phrase)
		}
	}
	return out
}

func containsStopword(gram []string) bool {
	for _, tok := range gram {
		if isStopword(tok) {
			return true
		}
	}
	return false
}

// norm returns the L2 norm of a vector.
func norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// cosine computes cosine similarity as dot(a,b) / (aNorm * bNorm).
// aNorm is the precomputed L2 norm of vector a.
func cosine(a []float64, aNorm float64, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, bNormSq float64
	for i := range a {
		dot += a[i] * b[i]
		bNormSq += b[i] * b[i]
	}
	bNorm := math.Sqrt(bNormSq)
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	return dot / (aNorm * bNorm)
}
