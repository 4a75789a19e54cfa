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

// Package model implements the latent-factor rating predictor.
package model

import (
	"github.com/goodgamingshop/recsys/base"
	"github.com/goodgamingshop/recsys/dataset"
)

// Model is the interface for rating models.
type Model interface {
	// SetParams sets hyper-parameters.
	SetParams(params Params)
	// GetParams returns hyper-parameters.
	GetParams() Params
	// Fit a model with a train set.
	Fit(trainSet *Trainset, config *FitConfig)
	// Predict the rating given by a user to a product. A baseline estimate
	// is returned for users or products absent from the train set.
	Predict(userId, productId string) float32
}

// BaseModel must be included by every rating model. Hyper-parameters and the
// random generator are managed by BaseModel.
type BaseModel struct {
	Params    Params
	rng       base.RandomGenerator
	randState int64
}

// SetParams sets hyper-parameters for the BaseModel.
func (model *BaseModel) SetParams(params Params) {
	model.Params = params
	model.randState = params.GetInt64(RandomState, 0)
	model.rng = base.NewRandomGenerator(model.randState)
}

// GetParams returns all hyper-parameters.
func (model *BaseModel) GetParams() Params {
	return model.Params
}

// FitConfig is the runtime configuration for fitting.
type FitConfig struct {
	Verbose bool
}

func NewFitConfig() *FitConfig {
	return &FitConfig{}
}

func (config *FitConfig) SetVerbose(verbose bool) *FitConfig {
	config.Verbose = verbose
	return config
}

// LoadDefaultIfNil returns a default configuration for a nil receiver.
func (config *FitConfig) LoadDefaultIfNil() *FitConfig {
	if config == nil {
		return NewFitConfig()
	}
	return config
}

// Trainset is the set of observed (user, product, rating) triples consumed
// by Fit. Products cover the full catalog so that trained models share
// indices with the similarity structures; users cover raters only.
type Trainset struct {
	UserIndex    *dataset.Dict
	ProductIndex *dataset.Dict
	Users        []int
	Products     []int
	Scores       []float32
	GlobalMean   float32
}

// NewTrainset builds a train set from the catalog. Every rating row is an
// observed triple; missing (user, product) pairs are absent, not zero.
func NewTrainset(d *dataset.Dataset) *Trainset {
	t := &Trainset{
		UserIndex:    dataset.NewDict(),
		ProductIndex: dataset.NewDict(),
	}
	for _, product := range d.Products() {
		t.ProductIndex.Add(product.ProductId)
	}
	var sum float32
	for _, rating := range d.Ratings() {
		t.Users = append(t.Users, t.UserIndex.Add(rating.UserId))
		t.Products = append(t.Products, t.ProductIndex.Add(rating.ProductId))
		t.Scores = append(t.Scores, rating.Score)
		sum += rating.Score
	}
	if len(t.Scores) > 0 {
		t.GlobalMean = sum / float32(len(t.Scores))
	}
	return t
}

// Count returns the number of observed triples.
func (t *Trainset) Count() int {
	return len(t.Scores)
}
