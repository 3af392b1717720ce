package vector

import (
	"fmt"
	"math"

	"github.com/hyperjump/kiku/internal/models"
)

// Metric is the similarity function an index is built with. Higher scores are closer.
type Metric string

const (
	// MetricCosine scores by cosine similarity in [-1, 1].
	MetricCosine Metric = "cosine"
	// MetricL2 scores by negative Euclidean distance, so 0 is an exact match.
	MetricL2 Metric = "l2"
)

// ParseMetric returns the Metric named by s. Empty defaults to cosine.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricCosine, "":
		return MetricCosine, nil
	case MetricL2:
		return MetricL2, nil
	default:
		return "", fmt.Errorf("unknown metric %q (supported: cosine, l2): %w", s, models.ErrConfiguration)
	}
}

// Score returns the similarity of a and b under m. Both must have the same length.
func (m Metric) Score(a, b []float32) float64 {
	if m == MetricL2 {
		return -L2Distance(a, b)
	}
	return CosineSimilarity(a, b)
}

// metric codes in vectors.bin
const (
	metricCodeCosine byte = 1
	metricCodeL2     byte = 2
)

func (m Metric) code() byte {
	if m == MetricL2 {
		return metricCodeL2
	}
	return metricCodeCosine
}

func metricFromCode(c byte) (Metric, bool) {
	switch c {
	case metricCodeCosine:
		return MetricCosine, true
	case metricCodeL2:
		return MetricL2, true
	default:
		return "", false
	}
}

// InnerProduct returns the inner product of two vectors.
func InnerProduct(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	return math.Sqrt(InnerProduct(x, x))
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 if either is a zero vector.
func CosineSimilarity(a, b []float32) float64 {
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return InnerProduct(a, b) / (na * nb)
}

// L2Distance returns the Euclidean distance between a and b.
func L2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
