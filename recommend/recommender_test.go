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

package recommend

import (
	"testing"

	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"

	"github.com/goodgamingshop/recsys/dataset"
	"github.com/goodgamingshop/recsys/model"
)

var testParams = model.Params{
	model.NFactors:    4,
	model.NEpochs:     10,
	model.RandomState: 42,
}

func productIds(results []ScoredProduct) []string {
	return lo.Map(results, func(s ScoredProduct, _ int) string {
		return s.ProductId
	})
}

func TestRecommendItemBased(t *testing.T) {
	data := dataset.NewDataset([]dataset.Product{
		{ProductId: "A", Description: "gaming mouse", Category: "electronics"},
		{ProductId: "B", Description: "gaming keyboard", Category: "electronics"},
		{ProductId: "C", Description: "kitchen knife", Category: "tools"},
	}, []dataset.Rating{
		{UserId: "u1", ProductId: "A", Score: 5},
		{UserId: "u1", ProductId: "B", Score: 4},
		{UserId: "u2", ProductId: "C", Score: 5},
	})
	r := NewRecommender(data, testParams, nil)

	results, err := r.RecommendItemBased("A", "u1", 10)
	assert.NoError(t, err)
	// the query product itself is never recommended
	assert.NotContains(t, productIds(results), "A")
	assert.ElementsMatch(t, []string{"B", "C"}, productIds(results))
	for _, s := range results {
		assert.NotNil(t, s.TfIdfScore)
		assert.NotNil(t, s.CfScore)
		assert.GreaterOrEqual(t, *s.CfScore, model.MinRating)
		assert.LessOrEqual(t, *s.CfScore, model.MaxRating)
	}
	// B shares both text and raters with A, C shares neither
	scores := lo.SliceToMap(results, func(s ScoredProduct) (string, float32) {
		return s.ProductId, *s.TfIdfScore
	})
	assert.Greater(t, scores["B"], scores["C"])

	// n truncates the list
	results, err = r.RecommendItemBased("A", "u1", 1)
	assert.NoError(t, err)
	assert.Len(t, results, 1)

	// n <= 0 falls back to the default
	results, err = r.RecommendItemBased("A", "u1", 0)
	assert.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRecommendItemBasedIdenticalTwin(t *testing.T) {
	// A and B share their text and their rating column, so both
	// similarity rows of B tie at the maximum and the stable sort puts A
	// ahead of B itself.
	data := dataset.NewDataset([]dataset.Product{
		{ProductId: "A", Description: "gaming mouse", Category: "electronics"},
		{ProductId: "B", Description: "gaming mouse", Category: "electronics"},
		{ProductId: "C", Description: "kitchen knife", Category: "tools"},
	}, []dataset.Rating{
		{UserId: "u1", ProductId: "A", Score: 5},
		{UserId: "u1", ProductId: "B", Score: 5},
		{UserId: "u2", ProductId: "C", Score: 4},
	})
	r := NewRecommender(data, testParams, nil)
	for _, productId := range []string{"A", "B"} {
		results, err := r.RecommendItemBased(productId, "u1", 10)
		assert.NoError(t, err)
		assert.NotContains(t, productIds(results), productId)
	}
	// the twin is still the closest candidate
	results, err := r.RecommendItemBased("B", "u1", 1)
	assert.NoError(t, err)
	assert.Equal(t, []string{"A"}, productIds(results))
}

func TestRecommendItemBasedNotFound(t *testing.T) {
	r := NewRecommender(newTestDataset(), testParams, nil)
	_, err := r.RecommendItemBased("ghost", "u1", 10)
	assert.True(t, errors.IsNotFound(err))
	_, err = r.RecommendItemBased("p1", "ghost", 10)
	assert.True(t, errors.IsNotFound(err))
}

func TestRecommendUserBased(t *testing.T) {
	data := newTestDataset()
	r := NewRecommender(data, testParams, nil)

	// u1 rated p1 and p2 positively, so only p3 and p4 are candidates
	results, err := r.RecommendUserBased("u1", 10)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"p3", "p4"}, productIds(results))
	// p3 comes from neighbors: mean of the positive ratings 2 and 1
	for _, s := range results {
		assert.Nil(t, s.TfIdfScore)
		assert.NotNil(t, s.CfScore)
		if s.ProductId == "p3" {
			assert.InDelta(t, 1.5, *s.CfScore, 1e-5)
		}
	}
	// p4 is filled by the rating model, whose baseline beats the weak
	// neighbor score of p3
	assert.Equal(t, "p4", results[0].ProductId)

	results, err = r.RecommendUserBased("u1", 1)
	assert.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = r.RecommendUserBased("ghost", 10)
	assert.True(t, errors.IsNotFound(err))
}

func TestRecommendUserBasedIdenticalTwin(t *testing.T) {
	// u1's rating row is proportional to u2's, so their similarity ties
	// with u2's self-similarity and u1 sorts ahead of u2. u2 must still
	// never appear in its own neighbor set: with n=1 the single slot
	// belongs to u1, and u2's positively rated products stay excluded.
	data := dataset.NewDataset([]dataset.Product{
		{ProductId: "p1"}, {ProductId: "p2"}, {ProductId: "p3"},
	}, []dataset.Rating{
		{UserId: "u1", ProductId: "p1", Score: 2},
		{UserId: "u1", ProductId: "p2", Score: 2},
		{UserId: "u2", ProductId: "p1", Score: 4},
		{UserId: "u2", ProductId: "p2", Score: 4},
		{UserId: "u3", ProductId: "p3", Score: 5},
	})
	r := NewRecommender(data, testParams, nil)
	results, err := r.RecommendUserBased("u2", 1)
	assert.NoError(t, err)
	assert.NotContains(t, productIds(results), "p1")
	assert.NotContains(t, productIds(results), "p2")
	assert.Equal(t, []string{"p3"}, productIds(results))
}

func TestRecommendUserBasedClamp(t *testing.T) {
	// every neighbor rates the candidate 5, the mean stays at the ceiling
	data := dataset.NewDataset([]dataset.Product{
		{ProductId: "p1"}, {ProductId: "p2"},
	}, []dataset.Rating{
		{UserId: "u1", ProductId: "p1", Score: 5},
		{UserId: "u2", ProductId: "p1", Score: 5},
		{UserId: "u2", ProductId: "p2", Score: 5},
		{UserId: "u3", ProductId: "p1", Score: 5},
		{UserId: "u3", ProductId: "p2", Score: 5},
	})
	r := NewRecommender(data, testParams, nil)
	results, err := r.RecommendUserBased("u1", 10)
	assert.NoError(t, err)
	assert.Equal(t, []string{"p2"}, productIds(results))
	assert.Equal(t, model.MaxRating, *results[0].CfScore)
}

func TestUnratedProducts(t *testing.T) {
	r := NewRecommender(newTestDataset(), testParams, nil)

	unrated := r.UnratedProducts("u2", 50)
	ids := lo.Map(unrated, func(p dataset.Product, _ int) string {
		return p.ProductId
	})
	assert.Equal(t, []string{"p2", "p4"}, ids)

	// max truncates in catalog order
	unrated = r.UnratedProducts("u2", 1)
	assert.Len(t, unrated, 1)
	assert.Equal(t, "p2", unrated[0].ProductId)

	// an unknown user has rated nothing
	unrated = r.UnratedProducts("ghost", 50)
	assert.Len(t, unrated, 4)
}

func TestRecommenderReproducible(t *testing.T) {
	data := newTestDataset()
	first := NewRecommender(data, testParams, nil)
	second := NewRecommender(data, testParams, nil)
	a, err := first.RecommendItemBased("p1", "u1", 10)
	assert.NoError(t, err)
	b, err := second.RecommendItemBased("p1", "u1", 10)
	assert.NoError(t, err)
	assert.Equal(t, a, b)
}
