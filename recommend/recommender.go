// Copyright 2024 recsys Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package recommend blends content similarity, collaborative similarity
// and latent-factor rating predictions into ranked recommendation lists.
package recommend

import (
	"sort"

	"github.com/chewxy/math32"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"

	"github.com/goodgamingshop/recsys/dataset"
	"github.com/goodgamingshop/recsys/model"
)

const (
	// DefaultItemBasedN is the default length of item-based recommendation
	// lists.
	DefaultItemBasedN = 10
	// DefaultUserBasedN is the default length of user-based recommendation
	// lists.
	DefaultUserBasedN = 50
)

// ScoredProduct is a recommended product with the intermediate scores that
// ranked it. Absent scores are null in the JSON encoding.
type ScoredProduct struct {
	dataset.Product
	TfIdfScore *float32 `json:"tfidf_score,omitempty"`
	CfScore    *float32 `json:"cf_score,omitempty"`
}

// scored pairs a dense product (or user) index with a ranking score.
type scored struct {
	index int
	score float32
}

// Recommender answers recommendation queries against structures built once
// at startup. The value is immutable after NewRecommender returns and safe
// for concurrent readers.
type Recommender struct {
	data    *dataset.Dataset
	content *ContentEngine
	collab  *CollaborativeEngine
	model   model.Model
}

// NewRecommender builds every similarity structure and trains the rating
// model. It blocks until the whole engine is ready, so readers never
// observe partial state.
func NewRecommender(data *dataset.Dataset, params model.Params, config *model.FitConfig) *Recommender {
	svd := model.NewSVD(params)
	svd.Fit(model.NewTrainset(data), config)
	return &Recommender{
		data:    data,
		content: NewContentEngine(data, dataset.StopWords()),
		collab:  NewCollaborativeEngine(data),
		model:   svd,
	}
}

// Data returns the underlying catalog.
func (r *Recommender) Data() *dataset.Dataset {
	return r.data
}

// rank turns a similarity row into a descending ranking. The sort is
// stable over ascending indices, so equal scores keep index order and
// repeated runs produce identical output.
func rank(row []float32) []scored {
	ranked := make([]scored, len(row))
	for i, score := range row {
		ranked[i] = scored{index: i, score: score}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	return ranked
}

// topExcluding keeps the n highest-scored entries of a descending ranking,
// skipping the query index itself. The query usually sorts first with
// maximal self-similarity, but an identical twin ties at the maximum and
// the stable sort can place it ahead, so dropping the head is not enough.
func topExcluding(ranked []scored, self, n int) []scored {
	kept := make([]scored, 0, n)
	for _, s := range ranked {
		if s.index == self {
			continue
		}
		kept = append(kept, s)
		if len(kept) == n {
			break
		}
	}
	return kept
}

// RecommendItemBased recommends up to n products similar to a product,
// re-ranked by the predicted rating of a user. The funnel has three
// stages: similarity rows narrow the candidates, the combined score picks
// the top n, and the rating model orders the survivors.
func (r *Recommender) RecommendItemBased(productId, userId string, n int) ([]ScoredProduct, error) {
	if n <= 0 {
		n = DefaultItemBasedN
	}
	index, ok := r.data.ProductIndex(productId)
	if !ok {
		return nil, errors.NotFoundf("product %q", productId)
	}
	if r.data.RatingsByUser(userId) == nil {
		return nil, errors.NotFoundf("user %q", userId)
	}
	contentRanked := topExcluding(rank(r.content.SimilarityRow(index)), index, n)
	collabRanked := topExcluding(rank(r.collab.ItemSimilarityRow(index)), index, n)
	// Sum-merge both lists. An index present in one list contributes only
	// its own score.
	combined := make(map[int]float32)
	for _, s := range contentRanked {
		combined[s.index] += s.score
	}
	for _, s := range collabRanked {
		combined[s.index] += s.score
	}
	merged := make([]scored, 0, len(combined))
	for i := 0; i < r.data.CountProducts(); i++ {
		if score, exist := combined[i]; exist {
			merged = append(merged, scored{index: i, score: score})
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].score > merged[j].score
	})
	if len(merged) > n {
		merged = merged[:n]
	}
	// Re-rank the survivors by predicted rating.
	predicted := make([]scored, 0, len(merged))
	for _, s := range merged {
		product := r.data.ProductByIndex(s.index)
		predicted = append(predicted, scored{
			index: s.index,
			score: r.model.Predict(userId, product.ProductId),
		})
	}
	sort.SliceStable(predicted, func(i, j int) bool {
		return predicted[i].score > predicted[j].score
	})
	if len(predicted) > n {
		predicted = predicted[:n]
	}
	predictedByIndex := lo.SliceToMap(predicted, func(s scored) (int, float32) {
		return s.index, s.score
	})
	results := make([]ScoredProduct, 0, len(predicted))
	for _, s := range predicted {
		results = append(results, ScoredProduct{
			Product:    r.data.ProductByIndex(s.index),
			TfIdfScore: lookupScore(combined, s.index),
			CfScore:    lookupScore(predictedByIndex, s.index),
		})
	}
	return results, nil
}

// lookupScore recovers a score by index, nil when the index is absent.
func lookupScore(scores map[int]float32, index int) *float32 {
	if score, exist := scores[index]; exist {
		return &score
	}
	return nil
}

// RecommendUserBased recommends up to n products for a user by averaging
// the positive ratings of the most similar users and filling the remaining
// catalog with latent-factor predictions. Products the user already rated
// positively are never recommended.
func (r *Recommender) RecommendUserBased(userId string, n int) ([]ScoredProduct, error) {
	if n <= 0 {
		n = DefaultUserBasedN
	}
	userIndex, ok := r.data.UserIndex(userId)
	if !ok {
		return nil, errors.NotFoundf("user %q", userId)
	}
	userRow := r.collab.UserRatings(userIndex)
	rated := mapset.NewThreadUnsafeSet[int]()
	for productIndex, score := range userRow {
		if score > 0 {
			rated.Add(productIndex)
		}
	}
	// Neighbor users, self excluded.
	neighbors := topExcluding(rank(r.collab.UserSimilarityRow(userIndex)), userIndex, n)
	// Average the positive ratings neighbors gave to products the user has
	// not rated positively, clamped to the rating ceiling.
	accumulated := make(map[int][]float32)
	for _, neighbor := range neighbors {
		for productIndex, score := range r.collab.UserRatings(neighbor.index) {
			if score > 0 && !rated.Contains(productIndex) {
				accumulated[productIndex] = append(accumulated[productIndex], score)
			}
		}
	}
	cfScores := make(map[int]float32, len(accumulated))
	for productIndex, scores := range accumulated {
		cfScores[productIndex] = math32.Min(model.MaxRating, lo.Sum(scores)/float32(len(scores)))
	}
	// Latent-factor predictions cover the rest of the catalog.
	final := make(map[int]float32, len(cfScores))
	for productIndex, score := range cfScores {
		final[productIndex] = score
	}
	for productIndex := 0; productIndex < r.data.CountProducts(); productIndex++ {
		if _, exist := cfScores[productIndex]; exist {
			continue
		}
		if rated.Contains(productIndex) {
			continue
		}
		product := r.data.ProductByIndex(productIndex)
		final[productIndex] += r.model.Predict(userId, product.ProductId)
	}
	merged := make([]scored, 0, len(final))
	for i := 0; i < r.data.CountProducts(); i++ {
		if score, exist := final[i]; exist {
			merged = append(merged, scored{index: i, score: score})
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].score > merged[j].score
	})
	if len(merged) > n {
		merged = merged[:n]
	}
	results := make([]ScoredProduct, 0, len(merged))
	for _, s := range merged {
		results = append(results, ScoredProduct{
			Product: r.data.ProductByIndex(s.index),
			CfScore: lookupScore(final, s.index),
		})
	}
	return results, nil
}

// UnratedProducts returns up to max products the user has not rated with
// any score. The order follows the catalog and is not part of the
// contract.
func (r *Recommender) UnratedProducts(userId string, max int) []dataset.Product {
	rated := mapset.NewThreadUnsafeSet[string]()
	for _, rating := range r.data.RatingsByUser(userId) {
		rated.Add(rating.ProductId)
	}
	var unrated []dataset.Product
	for _, product := range r.data.Products() {
		if len(unrated) >= max {
			break
		}
		if !rated.Contains(product.ProductId) {
			unrated = append(unrated, product)
		}
	}
	return unrated
}
