package predict

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"

	"chargex_project/internal/domain"
)

// Scorer maps a [window x features] matrix to a normalized degradation
// score in [0, 1]. The engine scales the score to a day count.
type Scorer interface {
	Score(window [][]float64) (float64, error)
}

// trainedModel is the serialized form of an exported regression head.
type trainedModel struct {
	FeatureWeights []float64 `json:"featureWeights"`
	Bias           float64   `json:"bias"`
	InputMean      []float64 `json:"inputMean"`
	InputScale     []float64 `json:"inputScale"`
}

// TrainedScorer scores a feature window with weights exported from the
// offline-trained model. Inference only; training happens elsewhere.
type TrainedScorer struct {
	model trainedModel
}

// NewTrainedScorer loads exported model weights from path. A missing or
// malformed file returns domain.ErrModelUnavailable so callers can select
// the heuristic fallback at construction time.
func NewTrainedScorer(path string) (*TrainedScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}

	var model trainedModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("%w: invalid model file: %v", domain.ErrModelUnavailable, err)
	}
	if len(model.FeatureWeights) == 0 {
		return nil, fmt.Errorf("%w: model has no feature weights", domain.ErrModelUnavailable)
	}

	return &TrainedScorer{model: model}, nil
}

// Score standardizes each feature, mean-pools the window over time and
// applies the regression head through a sigmoid.
func (s *TrainedScorer) Score(window [][]float64) (float64, error) {
	if len(window) == 0 {
		return 0, fmt.Errorf("%w: empty feature window", domain.ErrModelUnavailable)
	}

	features := len(s.model.FeatureWeights)
	pooled := make([]float64, features)
	for _, row := range window {
		if len(row) != features {
			return 0, fmt.Errorf("%w: expected %d features, got %d",
				domain.ErrModelUnavailable, features, len(row))
		}
		for i, v := range row {
			pooled[i] += v
		}
	}
	for i := range pooled {
		pooled[i] /= float64(len(window))
	}

	z := s.model.Bias
	for i, v := range pooled {
		if i < len(s.model.InputMean) && i < len(s.model.InputScale) && s.model.InputScale[i] != 0 {
			v = (v - s.model.InputMean[i]) / s.model.InputScale[i]
		}
		z += s.model.FeatureWeights[i] * v
	}

	return 1 / (1 + math.Exp(-z)), nil
}

// HeuristicScorer is the deterministic-shape fallback used for cold-start
// batteries and when the trained model is unavailable. It draws a RUL
// uniformly from [30, 365] days, expressed on the normalized scale.
type HeuristicScorer struct{}

// NewHeuristicScorer creates the fallback scorer.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

// Score returns a uniform draw from [30/365, 1].
func (s *HeuristicScorer) Score(window [][]float64) (float64, error) {
	days := 30 + rand.Float64()*(365-30)
	return days / 365, nil
}
