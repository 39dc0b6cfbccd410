package model

// Feature is one embedding dimension and its signed contribution to the
// predicted class.
type Feature struct {
	Dimension int     `json:"dimension"`
	SHAPValue float64 `json:"shap_value"`
}

// Explanation is archlens's output artifact: the predicted architecture and
// the dimensions that contributed most to it, strongest first.
type Explanation struct {
	PredictedArchitecture   string    `json:"predicted_architecture"`
	TopContributingFeatures []Feature `json:"top_contributing_features"`
}

// Top returns a copy of the explanation keeping at most k features.
func (e Explanation) Top(k int) Explanation {
	if k < 0 {
		k = 0
	}
	if k < len(e.TopContributingFeatures) {
		feats := make([]Feature, k)
		copy(feats, e.TopContributingFeatures[:k])
		e.TopContributingFeatures = feats
	}
	return e
}
