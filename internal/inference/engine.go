// Package inference holds the disease catalog and the classifier seam used
// by the detection pipeline.
package inference

import (
	"context"
	"log"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"onion-detect/internal/models"
)

// Classifier turns a stored, decoded image into a detection result. A real
// model replaces MockEngine by implementing this and keeping the result
// shape and value ranges.
type Classifier interface {
	Classify(ctx context.Context, in Input) (*models.DetectionResult, error)
}

// MockEngine picks a uniformly random catalog outcome. It does not look at
// the pixels.
type MockEngine struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewMockEngine(seed uint64) *MockEngine {
	return &MockEngine{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: time.Now,
	}
}

func (m *MockEngine) Classify(ctx context.Context, in Input) (*models.DetectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if in.Image != nil {
		b := in.Image.Bounds()
		prepared := Prepare(in.Image)
		log.Printf("inference.Classify: processing image %dx%d (prepared %dx%d)",
			b.Dx(), b.Dy(), prepared.Bounds().Dx(), prepared.Bounds().Dy())
	}

	m.mu.Lock()
	entry := catalog[m.rng.IntN(len(catalog))]
	sev := entry.severities()
	severity := sev[m.rng.IntN(len(sev))]
	confidence := entry.MinConfidence + m.rng.Float64()*(entry.MaxConfidence-entry.MinConfidence)
	m.mu.Unlock()

	entry = entry.clone()
	return &models.DetectionResult{
		Success:     true,
		Disease:     entry.Name,
		Confidence:  RoundTo(confidence, 1),
		Description: entry.Description,
		Severity:    severity,
		Treatments:  entry.Treatments,
		Prevention:  entry.Prevention,
		Timestamp:   m.now().Format(time.RFC3339),
		Note:        SimulationNote,
	}, nil
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
