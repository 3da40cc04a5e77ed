// Package model trains, persists and serves the incident classifier: a random
// forest predicting whether a record has registered cases, from event
// indicators and an optional province encoding.
//
// # Features
//
// The feature vector is ordered registered_cases, then one 0/1 indicator per
// vocabulary category, then the province code when the model was trained with
// an encoder. Callers that only have named values use [Model.PredictFields].
//
// # Availability
//
// A model is available only after the train command has written an artifact.
// [Load] and [Loader.Model] report an absent artifact as [ErrModelUnavailable];
// the HTTP layer maps it to 503.
package model

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
)

// Errors returned by prediction and loading.
var (
	// ErrModelUnavailable carries the message returned to API clients.
	ErrModelUnavailable = errors.New("modelo indisponivel")
	ErrFeatureCount     = errors.New("feature count mismatch")
	ErrNoSamples        = errors.New("no training samples")
)

// ArtifactVersion is the current artifact schema version.
const ArtifactVersion = 1

// Fields are the named inputs of one prediction.
type Fields struct {
	Province        string
	RegisteredCases float64
	Indicators      map[string]float64
}

// Prediction is a class label and the mean tree vote for class 1.
type Prediction struct {
	Label       int     `json:"prediction"`
	Probability float64 `json:"probability"`
}

// Model is a trained random forest and the metadata needed to build its
// feature vectors.
type Model struct {
	Version   int              `json:"version"`
	TrainedAt time.Time        `json:"trained_at"`
	Features  []string         `json:"features"`
	Trees     []Tree           `json:"trees"`
	Encoder   *ProvinceEncoder `json:"encoder,omitempty"`
}

// Vocabulary returns the indicator feature names.
func (m *Model) Vocabulary() []string {
	end := len(m.Features)
	if m.Encoder != nil {
		end--
	}
	if end < 1 {
		return nil
	}
	return m.Features[1:end]
}

// Predict classifies one raw feature vector.
func (m *Model) Predict(x []float64) (Prediction, error) {
	if len(x) != len(m.Features) {
		return Prediction{}, fmt.Errorf("%w: got %d, want %d (%v)", ErrFeatureCount, len(x), len(m.Features), m.Features)
	}
	var sum float64
	for i := range m.Trees {
		sum += m.Trees[i].predict(x)
	}
	p := sum / float64(len(m.Trees))
	label := 0
	if p > 0.5 {
		label = 1
	}
	return Prediction{Label: label, Probability: p}, nil
}

// PredictFields classifies named inputs. Missing indicators count as 0 and an
// unknown province encodes as -1.
func (m *Model) PredictFields(f Fields) (Prediction, error) {
	return m.Predict(m.Vector(f))
}

// Vector builds the feature vector for f in the model's column order.
func (m *Model) Vector(f Fields) []float64 {
	return buildVector(f, m.Vocabulary(), m.Encoder)
}

func buildVector(f Fields, vocabulary []string, enc *ProvinceEncoder) []float64 {
	x := make([]float64, 0, len(vocabulary)+2)
	x = append(x, f.RegisteredCases)
	for _, c := range vocabulary {
		x = append(x, f.Indicators[c])
	}
	if enc != nil {
		x = append(x, enc.Encode(f.Province))
	}
	return x
}

func featureNames(vocabulary []string, withProvince bool) []string {
	names := append([]string{domain.FieldRegisteredCases}, vocabulary...)
	if withProvince {
		names = append(names, domain.FieldProvince)
	}
	return names
}

// ProvinceEncoder maps province labels to ordinal codes fitted on the sorted
// distinct labels seen in training. Matching ignores case and accents.
type ProvinceEncoder struct {
	Labels []string `json:"labels"`
}

// FitEncoder fits an encoder on labels, ignoring empty ones. It returns nil
// when no label is known.
func FitEncoder(labels []string) *ProvinceEncoder {
	seen := make(map[string]bool)
	var out []string
	for _, l := range labels {
		key := domain.NormalizeName(l)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return &ProvinceEncoder{Labels: out}
}

// Encode returns the ordinal code of label, or -1 when it was not seen in
// training.
func (e *ProvinceEncoder) Encode(label string) float64 {
	key := domain.NormalizeName(label)
	for i, l := range e.Labels {
		if l == key {
			return float64(i)
		}
	}
	return -1
}
