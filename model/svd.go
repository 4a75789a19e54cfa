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

package model

import (
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/chewxy/math32"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/goodgamingshop/recsys/base/log"
	"github.com/goodgamingshop/recsys/dataset"
	"github.com/goodgamingshop/recsys/floats"
)

// MinRating and MaxRating bound the rating scale predictions are clamped to.
const (
	MinRating float32 = 1
	MaxRating float32 = 5
)

// SVD algorithm, as popularized by Simon Funk during the Netflix Prize. The
// prediction \hat{r}_{ui} is set as:
//
//	\hat{r}_{ui} = \mu + b_u + b_i + q_i^Tp_u
//
// If user u is unknown, then the bias b_u and the factors p_u are assumed
// to be zero. The same applies for product i with b_i and q_i.
type SVD struct {
	BaseModel
	// Model parameters
	UserFactor [][]float32 // p_u
	ItemFactor [][]float32 // q_i
	UserBias   []float32   // b_u
	ItemBias   []float32   // b_i
	GlobalMean float32     // mu
	// Index mappings
	UserIndex    *dataset.Dict
	ProductIndex *dataset.Dict
	// Products inside the index but outside the train set keep untrained
	// factors; predictions for them fall back to bias terms only.
	userTrained *bitset.BitSet
	itemTrained *bitset.BitSet
	// Hyper parameters
	useBias    bool
	nFactors   int
	nEpochs    int
	lr         float32
	reg        float32
	initMean   float32
	initStdDev float32
}

// NewSVD creates a SVD model. Params:
//
//	UseBias    - Add bias terms. Default is true.
//	Reg        - The regularization parameter of the cost function that is
//	             optimized. Default is 0.02.
//	Lr         - The learning rate of SGD. Default is 0.005.
//	NFactors   - The number of latent factors. Default is 100.
//	NEpochs    - The number of iterations of the SGD procedure. Default is 20.
//	InitMean   - The mean of initial random latent factors. Default is 0.
//	InitStdDev - The standard deviation of initial random latent factors.
//	             Default is 0.1.
func NewSVD(params Params) *SVD {
	svd := new(SVD)
	svd.SetParams(params)
	return svd
}

func (svd *SVD) SetParams(params Params) {
	svd.BaseModel.SetParams(params)
	svd.useBias = svd.Params.GetBool(UseBias, true)
	svd.nFactors = svd.Params.GetInt(NFactors, 100)
	svd.nEpochs = svd.Params.GetInt(NEpochs, 20)
	svd.lr = svd.Params.GetFloat32(Lr, 0.005)
	svd.reg = svd.Params.GetFloat32(Reg, 0.02)
	svd.initMean = svd.Params.GetFloat32(InitMean, 0)
	svd.initStdDev = svd.Params.GetFloat32(InitStdDev, 0.1)
}

// Predict returns the estimated rating given by a user to a product,
// clamped to the training scale. Unknown users or products contribute
// nothing beyond the baseline, so the call never fails.
func (svd *SVD) Predict(userId, productId string) float32 {
	userIndex, hasUser := svd.UserIndex.Id(userId)
	itemIndex, hasItem := svd.ProductIndex.Id(productId)
	if !hasUser {
		userIndex = -1
	}
	if !hasItem {
		itemIndex = -1
	}
	return clamp(svd.internalPredict(userIndex, itemIndex))
}

func (svd *SVD) internalPredict(userIndex, itemIndex int) float32 {
	ret := svd.GlobalMean
	userKnown := userIndex >= 0 && svd.userTrained.Test(uint(userIndex))
	itemKnown := itemIndex >= 0 && svd.itemTrained.Test(uint(itemIndex))
	// + b_u
	if userKnown {
		ret += svd.UserBias[userIndex]
	}
	// + b_i
	if itemKnown {
		ret += svd.ItemBias[itemIndex]
	}
	// + q_i^Tp_u
	if userKnown && itemKnown {
		ret += floats.Dot(svd.UserFactor[userIndex], svd.ItemFactor[itemIndex])
	}
	return ret
}

func clamp(v float32) float32 {
	return math32.Min(MaxRating, math32.Max(MinRating, v))
}

// Fit trains the model on observed triples by stochastic gradient descent.
func (svd *SVD) Fit(trainSet *Trainset, config *FitConfig) {
	config = config.LoadDefaultIfNil()
	start := time.Now()
	userCount := trainSet.UserIndex.Count()
	itemCount := trainSet.ProductIndex.Count()
	svd.UserIndex = trainSet.UserIndex
	svd.ProductIndex = trainSet.ProductIndex
	svd.GlobalMean = trainSet.GlobalMean
	// Initialize parameters
	svd.UserBias = make([]float32, userCount)
	svd.ItemBias = make([]float32, itemCount)
	svd.UserFactor = svd.rng.NormalMatrix(userCount, svd.nFactors, svd.initMean, svd.initStdDev)
	svd.ItemFactor = svd.rng.NormalMatrix(itemCount, svd.nFactors, svd.initMean, svd.initStdDev)
	// Mark trained rows
	svd.userTrained = bitset.New(uint(userCount))
	svd.itemTrained = bitset.New(uint(itemCount))
	for i := 0; i < trainSet.Count(); i++ {
		svd.userTrained.Set(uint(trainSet.Users[i]))
		svd.itemTrained.Set(uint(trainSet.Products[i]))
	}
	// Create buffers
	a := make([]float32, svd.nFactors)
	b := make([]float32, svd.nFactors)
	var bar *progressbar.ProgressBar
	if config.Verbose {
		bar = progressbar.Default(int64(svd.nEpochs), "fit SVD")
	}
	// Stochastic gradient descent
	for epoch := 0; epoch < svd.nEpochs; epoch++ {
		var cost float32
		perm := svd.rng.Perm(trainSet.Count())
		for _, i := range perm {
			userIndex, itemIndex, rating := trainSet.Users[i], trainSet.Products[i], trainSet.Scores[i]
			// Compute error: e_{ui} = r - \hat{r}
			upGrad := rating - svd.internalPredict(userIndex, itemIndex)
			cost += upGrad * upGrad
			if svd.useBias {
				// Update user bias: b_u <- b_u + \gamma (e_{ui} - \lambda b_u)
				svd.UserBias[userIndex] += svd.lr * (upGrad - svd.reg*svd.UserBias[userIndex])
				// Update item bias: b_i <- b_i + \gamma (e_{ui} - \lambda b_i)
				svd.ItemBias[itemIndex] += svd.lr * (upGrad - svd.reg*svd.ItemBias[itemIndex])
			}
			userFactor := svd.UserFactor[userIndex]
			itemFactor := svd.ItemFactor[itemIndex]
			copy(b, userFactor)
			// Update user latent factor: p_u <- p_u + \gamma (e_{ui} q_i - \lambda p_u)
			floats.MulConstTo(itemFactor, upGrad, a)
			floats.MulConstAdd(userFactor, -svd.reg, a)
			floats.MulConstAdd(a, svd.lr, userFactor)
			// Update item latent factor: q_i <- q_i + \gamma (e_{ui} p_u - \lambda q_i)
			floats.MulConstTo(b, upGrad, a)
			floats.MulConstAdd(itemFactor, -svd.reg, a)
			floats.MulConstAdd(a, svd.lr, itemFactor)
		}
		if config.Verbose {
			_ = bar.Add(1)
		}
		if config.Verbose && (epoch+1)%10 == 0 {
			log.Logger().Debug("fit SVD",
				zap.Int("epoch", epoch+1),
				zap.Float32("cost", cost/float32(trainSet.Count())))
		}
	}
	log.Logger().Info("fit SVD complete",
		zap.Int("n_users", userCount),
		zap.Int("n_products", itemCount),
		zap.Int("n_ratings", trainSet.Count()),
		zap.Int("n_factors", svd.nFactors),
		zap.Int("n_epochs", svd.nEpochs),
		zap.Duration("elapsed", time.Since(start)))
}
