package predict

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"chargex_project/internal/domain"
)

func writeModel(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rul_model.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write model file: %v", err)
	}
	return path
}

func TestNewTrainedScorerMissingFile(t *testing.T) {
	_, err := NewTrainedScorer(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected model-unavailable error, got %v", err)
	}
}

func TestNewTrainedScorerInvalidJSON(t *testing.T) {
	path := writeModel(t, "{not json")
	if _, err := NewTrainedScorer(path); !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected model-unavailable error, got %v", err)
	}
}

func TestNewTrainedScorerEmptyWeights(t *testing.T) {
	path := writeModel(t, `{"featureWeights": [], "bias": 0}`)
	if _, err := NewTrainedScorer(path); !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected model-unavailable error, got %v", err)
	}
}

func TestTrainedScorerScore(t *testing.T) {
	path := writeModel(t, `{"featureWeights": [1, 0], "bias": 0}`)
	scorer, err := NewTrainedScorer(path)
	if err != nil {
		t.Fatalf("failed to load model: %v", err)
	}

	// Zero input through a sigmoid is exactly 0.5.
	score, err := scorer.Score([][]float64{{0, 0}, {0, 0}})
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if score != 0.5 {
		t.Fatalf("expected 0.5 for zero input, got %v", score)
	}

	// A positive pooled feature pushes the score up.
	high, err := scorer.Score([][]float64{{3, 0}, {3, 0}})
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if high <= score || high >= 1 {
		t.Fatalf("expected score in (0.5, 1), got %v", high)
	}
}

func TestTrainedScorerRejectsBadWindow(t *testing.T) {
	path := writeModel(t, `{"featureWeights": [1, 1], "bias": 0}`)
	scorer, err := NewTrainedScorer(path)
	if err != nil {
		t.Fatalf("failed to load model: %v", err)
	}

	if _, err := scorer.Score(nil); !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected error for empty window, got %v", err)
	}
	if _, err := scorer.Score([][]float64{{1, 2, 3}}); !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("expected error for feature-count mismatch, got %v", err)
	}
}

func TestTrainedScorerStandardization(t *testing.T) {
	path := writeModel(t, `{"featureWeights": [1], "bias": 0, "inputMean": [10], "inputScale": [2]}`)
	scorer, err := NewTrainedScorer(path)
	if err != nil {
		t.Fatalf("failed to load model: %v", err)
	}

	// An input equal to the mean standardizes to zero.
	score, err := scorer.Score([][]float64{{10}})
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if score != 0.5 {
		t.Fatalf("expected 0.5 at the mean, got %v", score)
	}
}

func TestHeuristicScorerRange(t *testing.T) {
	scorer := NewHeuristicScorer()
	for i := 0; i < 100; i++ {
		score, err := scorer.Score(nil)
		if err != nil {
			t.Fatalf("score failed: %v", err)
		}
		days := score * 365
		if days < 30 || days > 365 {
			t.Fatalf("heuristic days out of range: %v", days)
		}
	}
}
