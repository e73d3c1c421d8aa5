package rates

import (
	"context"

	"github.com/arodionov/vacpipe/internal/model"
)

// Ensure Normalizer implements model.SalaryConverter.
var _ model.SalaryConverter = (*Normalizer)(nil)

// Normalizer converts salary bounds to a single target currency using a rate
// Source. The source is usually a CachingSource over the HTTP client.
type Normalizer struct {
	source Source
	target string
}

// NewNormalizer creates a Normalizer targeting the given currency code.
func NewNormalizer(source Source, target string) *Normalizer {
	return &Normalizer{source: source, target: target}
}

// Convert resolves the rate for the vacancy's (publication date, currency)
// pair and multiplies the bounds that are present. An absent upper bound
// defaults to the lower bound before conversion; nil bounds stay nil. The
// returned currency is always the target code, even on the identity-rate
// fallback — intentionally: the caller cannot distinguish "already in target
// currency" from "rate unknown" here.
func (n *Normalizer) Convert(ctx context.Context, v model.Vacancy) (model.NormalizedSalary, error) {
	rate := 1.0
	if v.SalaryCurrency != "" && v.SalaryCurrency != n.target {
		resolved, err := n.source.Resolve(ctx, v.PublishedAt, v.SalaryCurrency)
		if err != nil {
			return model.NormalizedSalary{}, err
		}
		rate = resolved
	}

	from := v.SalaryFrom
	to := v.SalaryTo
	if to == nil {
		to = from
	}

	return model.NormalizedSalary{
		From:     scale(from, rate),
		To:       scale(to, rate),
		Currency: n.target,
	}, nil
}

func scale(value *float64, rate float64) *float64 {
	if value == nil {
		return nil
	}
	scaled := *value * rate
	return &scaled
}
