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
	"sort"
	"strings"
	"time"

	"github.com/chewxy/math32"
	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/goodgamingshop/recsys/base/log"
	"github.com/goodgamingshop/recsys/dataset"
	"github.com/goodgamingshop/recsys/floats"
)

// ContentEngine holds TF-IDF vectors over combined product text and the
// dense pairwise cosine similarity matrix derived from them. All fields are
// read-only after construction.
type ContentEngine struct {
	terms      []string
	termIndex  map[string]int
	vectors    [][]float32
	similarity [][]float32
}

// NewContentEngine builds TF-IDF vectors for every product and the product
// similarity matrix. The vocabulary excludes stop words and is sorted, so
// the output is reproducible for a fixed catalog.
func NewContentEngine(data *dataset.Dataset, stopWords mapset.Set[string]) *ContentEngine {
	start := time.Now()
	e := new(ContentEngine)
	n := data.CountProducts()
	// Tokenize and build the vocabulary.
	tokenized := make([][]string, n)
	df := make(map[string]int)
	for i := 0; i < n; i++ {
		var kept []string
		seen := mapset.NewThreadUnsafeSet[string]()
		for _, term := range strings.Fields(data.ProductByIndex(i).Combined) {
			if stopWords.Contains(term) {
				continue
			}
			kept = append(kept, term)
			if seen.Add(term) {
				df[term]++
			}
		}
		tokenized[i] = kept
	}
	e.terms = make([]string, 0, len(df))
	for term := range df {
		e.terms = append(e.terms, term)
	}
	sort.Strings(e.terms)
	e.termIndex = make(map[string]int, len(e.terms))
	for i, term := range e.terms {
		e.termIndex[term] = i
	}
	// Smoothed idf: ln((1+n)/(1+df)) + 1
	idf := make([]float32, len(e.terms))
	for i, term := range e.terms {
		idf[i] = math32.Log(float32(1+n)/float32(1+df[term])) + 1
	}
	// Term-frequency counts weighted by idf, L2-normalized.
	e.vectors = make([][]float32, n)
	for i := 0; i < n; i++ {
		vec := make([]float32, len(e.terms))
		for _, term := range tokenized[i] {
			vec[e.termIndex[term]]++
		}
		for j := range vec {
			vec[j] *= idf[j]
		}
		if norm := floats.Norm(vec); norm > 0 {
			floats.DivConst(vec, norm)
		}
		e.vectors[i] = vec
	}
	// Pairwise cosine. An all-stop-word product has a zero vector whose
	// similarity to anything, itself included, is 0.
	e.similarity = make([][]float32, n)
	for i := range e.similarity {
		e.similarity[i] = make([]float32, n)
	}
	for i := 0; i < n; i++ {
		if floats.Norm(e.vectors[i]) > 0 {
			e.similarity[i][i] = 1
		}
		for j := i + 1; j < n; j++ {
			sim := floats.Cosine(e.vectors[i], e.vectors[j])
			e.similarity[i][j] = sim
			e.similarity[j][i] = sim
		}
	}
	log.Logger().Info("built content similarity",
		zap.Int("n_products", n),
		zap.Int("n_terms", len(e.terms)),
		zap.Duration("elapsed", time.Since(start)))
	return e
}

// Terms returns the sorted vocabulary.
func (e *ContentEngine) Terms() []string {
	return e.terms
}

// Vector returns the TF-IDF vector of a product.
func (e *ContentEngine) Vector(index int) []float32 {
	return e.vectors[index]
}

// Similarity returns the cosine similarity between two products.
func (e *ContentEngine) Similarity(i, j int) float32 {
	return e.similarity[i][j]
}

// SimilarityRow returns the similarity row of a product.
func (e *ContentEngine) SimilarityRow(index int) []float32 {
	return e.similarity[index]
}
