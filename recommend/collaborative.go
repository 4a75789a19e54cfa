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
	"time"

	"go.uber.org/zap"

	"github.com/goodgamingshop/recsys/base/log"
	"github.com/goodgamingshop/recsys/dataset"
	"github.com/goodgamingshop/recsys/floats"
)

// CollaborativeEngine holds the dense user x product rating pivot and the
// user-user and product-product cosine similarity matrices derived from it.
// Building costs O(M^2 N + N^2 M) time and O(M^2 + N^2 + M N) space, which
// bounds the catalog size this dense representation can serve. All fields
// are read-only after construction.
type CollaborativeEngine struct {
	pivot   [][]float32 // M x N, missing ratings are 0
	userSim [][]float32 // M x M
	itemSim [][]float32 // N x N
}

// NewCollaborativeEngine builds the rating pivot over all users x all
// products and both similarity matrices. When a user rated the same
// product more than once the last row wins in the pivot cell.
func NewCollaborativeEngine(data *dataset.Dataset) *CollaborativeEngine {
	start := time.Now()
	e := new(CollaborativeEngine)
	m, n := data.CountUsers(), data.CountProducts()
	e.pivot = make([][]float32, m)
	for i := range e.pivot {
		e.pivot[i] = make([]float32, n)
	}
	for _, rating := range data.Ratings() {
		userIndex, ok := data.UserIndex(rating.UserId)
		if !ok {
			continue
		}
		productIndex, ok := data.ProductIndex(rating.ProductId)
		if !ok {
			// Rated product absent from the catalog, there is no column
			// for it.
			continue
		}
		e.pivot[userIndex][productIndex] = rating.Score
	}
	// User-user similarity over pivot rows.
	e.userSim = make([][]float32, m)
	for i := range e.userSim {
		e.userSim[i] = make([]float32, m)
	}
	for i := 0; i < m; i++ {
		if floats.Norm(e.pivot[i]) > 0 {
			e.userSim[i][i] = 1
		}
		for j := i + 1; j < m; j++ {
			sim := floats.Cosine(e.pivot[i], e.pivot[j])
			e.userSim[i][j] = sim
			e.userSim[j][i] = sim
		}
	}
	// Product-product similarity over pivot columns.
	columns := make([][]float32, n)
	for j := range columns {
		columns[j] = make([]float32, m)
		for i := 0; i < m; i++ {
			columns[j][i] = e.pivot[i][j]
		}
	}
	e.itemSim = make([][]float32, n)
	for i := range e.itemSim {
		e.itemSim[i] = make([]float32, n)
	}
	for i := 0; i < n; i++ {
		// A product nobody rated has a zero column, similar to nothing,
		// itself included.
		if floats.Norm(columns[i]) > 0 {
			e.itemSim[i][i] = 1
		}
		for j := i + 1; j < n; j++ {
			sim := floats.Cosine(columns[i], columns[j])
			e.itemSim[i][j] = sim
			e.itemSim[j][i] = sim
		}
	}
	log.Logger().Info("built collaborative similarity",
		zap.Int("n_users", m),
		zap.Int("n_products", n),
		zap.Duration("elapsed", time.Since(start)))
	return e
}

// Rating returns the pivot cell of a user and a product, 0 when the pair
// is unobserved.
func (e *CollaborativeEngine) Rating(userIndex, productIndex int) float32 {
	return e.pivot[userIndex][productIndex]
}

// UserRatings returns the pivot row of a user.
func (e *CollaborativeEngine) UserRatings(userIndex int) []float32 {
	return e.pivot[userIndex]
}

// UserSimilarityRow returns the user-user similarity row of a user.
func (e *CollaborativeEngine) UserSimilarityRow(userIndex int) []float32 {
	return e.userSim[userIndex]
}

// ItemSimilarityRow returns the product-product similarity row of a
// product.
func (e *CollaborativeEngine) ItemSimilarityRow(productIndex int) []float32 {
	return e.itemSim[productIndex]
}
