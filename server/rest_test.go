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

package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/emicklei/go-restful/v3"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/suite"

	"github.com/goodgamingshop/recsys/config"
	"github.com/goodgamingshop/recsys/dataset"
	"github.com/goodgamingshop/recsys/model"
	"github.com/goodgamingshop/recsys/recommend"
)

type ServerTestSuite struct {
	suite.Suite
	RestServer
	handler *restful.Container
}

func (suite *ServerTestSuite) SetupSuite() {
	data := dataset.NewDataset([]dataset.Product{
		{ProductId: "A", Name: "Mouse", Description: "gaming mouse", Category: "electronics", Price: "100"},
		{ProductId: "B", Name: "Keyboard", Description: "gaming keyboard", Category: "electronics", Price: "150"},
		{ProductId: "C", Name: "Knife", Description: "kitchen knife", Category: "tools", Price: "50"},
	}, []dataset.Rating{
		{UserId: "u1", ProductId: "A", Score: 5},
		{UserId: "u1", ProductId: "B", Score: 4},
		{UserId: "u2", ProductId: "C", Score: 5},
	})
	suite.Config = config.GetDefaultConfig()
	suite.Recommender = recommend.NewRecommender(data, model.Params{
		model.NFactors:    4,
		model.NEpochs:     10,
		model.RandomState: 42,
	}, nil)
	suite.WebService = new(restful.WebService)
	suite.CreateWebService()
	suite.handler = restful.NewContainer()
	suite.handler.Add(suite.WebService)
}

func (suite *ServerTestSuite) marshal(v interface{}) string {
	s, err := json.Marshal(v)
	suite.NoError(err)
	return string(s)
}

func (suite *ServerTestSuite) TestProducts() {
	t := suite.T()
	apitest.New().
		Handler(suite.handler).
		Get("/products").
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(suite.Recommender.Data().Products())).
		End()

	product, exist := suite.Recommender.Data().ProductById("A")
	suite.True(exist)
	apitest.New().
		Handler(suite.handler).
		Get("/products/A").
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(product)).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/products/ghost").
		Expect(t).
		Status(http.StatusNotFound).
		End()
}

func (suite *ServerTestSuite) TestUsers() {
	t := suite.T()
	apitest.New().
		Handler(suite.handler).
		Get("/users").
		Expect(t).
		Status(http.StatusOK).
		Body(`["u1","u2"]`).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/users/u1").
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(suite.Recommender.Data().RatingsByUser("u1"))).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/users/ghost").
		Expect(t).
		Status(http.StatusNotFound).
		End()
}

func (suite *ServerTestSuite) TestRecommend() {
	t := suite.T()
	expected, err := suite.Recommender.RecommendItemBased("A", "u1", suite.Config.Server.DefaultN)
	suite.NoError(err)
	apitest.New().
		Handler(suite.handler).
		Get("/recommend").
		Query("product_id", "A").
		Query("user_id", "u1").
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(expected)).
		End()

	expected, err = suite.Recommender.RecommendItemBased("A", "u1", 1)
	suite.NoError(err)
	apitest.New().
		Handler(suite.handler).
		Get("/recommend").
		Query("product_id", "A").
		Query("user_id", "u1").
		Query("n", "1").
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(expected)).
		End()

	// a missing parameter is the caller's fault, not a server failure
	apitest.New().
		Handler(suite.handler).
		Get("/recommend").
		Query("product_id", "A").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/recommend").
		Query("product_id", "A").
		Query("user_id", "u1").
		Query("n", "ten").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/recommend").
		Query("product_id", "ghost").
		Query("user_id", "u1").
		Expect(t).
		Status(http.StatusNotFound).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/recommend").
		Query("product_id", "A").
		Query("user_id", "ghost").
		Expect(t).
		Status(http.StatusNotFound).
		End()
}

func (suite *ServerTestSuite) TestRecommendUserBased() {
	t := suite.T()
	expected, err := suite.Recommender.RecommendUserBased("u2", suite.Config.Server.DefaultUserN)
	suite.NoError(err)
	apitest.New().
		Handler(suite.handler).
		Get("/recommend_user_based").
		Query("user_id", "u2").
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(expected)).
		End()

	apitest.New().
		Handler(suite.handler).
		Get("/recommend_user_based").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/recommend_user_based").
		Query("user_id", "ghost").
		Expect(t).
		Status(http.StatusNotFound).
		End()
}

func (suite *ServerTestSuite) TestUnratedProducts() {
	t := suite.T()
	apitest.New().
		Handler(suite.handler).
		Get("/unrated-products").
		Query("user_id", "u2").
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(suite.Recommender.UnratedProducts("u2", suite.Config.Server.MaxUnrated))).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/unrated-products").
		Query("user_id", "u2").
		Query("n", "1").
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(suite.Recommender.UnratedProducts("u2", 1))).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/unrated-products").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func TestServer(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
