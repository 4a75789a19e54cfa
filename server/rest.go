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

// Package server exposes the recommender over a read-only REST API.
package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/goodgamingshop/recsys/base/log"
	"github.com/goodgamingshop/recsys/config"
	"github.com/goodgamingshop/recsys/dataset"
	"github.com/goodgamingshop/recsys/recommend"
)

// RestServer implements the REST-ful API server. The recommender is
// injected at construction and never mutated, so handlers share it without
// locking.
type RestServer struct {
	Recommender *recommend.Recommender
	Config      *config.Config
	WebService  *restful.WebService
}

// NewRestServer creates a REST server over a ready recommender.
func NewRestServer(recommender *recommend.Recommender, conf *config.Config) *RestServer {
	return &RestServer{
		Recommender: recommender,
		Config:      conf,
		WebService:  new(restful.WebService),
	}
}

// StartHttpServer starts the REST-ful API server.
func (s *RestServer) StartHttpServer() {
	// register restful APIs
	s.CreateWebService()
	restful.DefaultContainer.Add(s.WebService)
	// register swagger UI
	specConfig := restfulspec.Config{
		WebServices: restful.RegisteredWebServices(),
		APIPath:     "/apidocs.json",
	}
	restful.DefaultContainer.Add(restfulspec.NewOpenAPIService(specConfig))
	// register prometheus
	http.Handle("/metrics", promhttp.Handler())

	address := fmt.Sprintf("%s:%d", s.Config.Server.HttpHost, s.Config.Server.HttpPort)
	log.Logger().Info("start http server", zap.String("url", "http://"+address))
	log.Logger().Fatal("failed to start http server",
		zap.Error(http.ListenAndServe(address, nil)))
}

func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	chain.ProcessFilter(req, resp)
	log.Logger().Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
		zap.Int("status_code", resp.StatusCode()))
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/")
	ws.Filter(LogFilter)

	// Item-based recommendation
	ws.Route(ws.GET("/recommend").To(s.getRecommend).
		Doc("Get hybrid recommendations similar to a product, re-ranked for a user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.QueryParameter("product_id", "identifier of the query product").DataType("string")).
		Param(ws.QueryParameter("user_id", "identifier of the user").DataType("string")).
		Param(ws.QueryParameter("n", "number of returned products").DataType("int")).
		Writes([]recommend.ScoredProduct{}))
	// User-based recommendation
	ws.Route(ws.GET("/recommend_user_based").To(s.getRecommendUserBased).
		Doc("Get recommendations for a user from similar users' ratings.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.QueryParameter("user_id", "identifier of the user").DataType("string")).
		Param(ws.QueryParameter("n", "number of returned products").DataType("int")).
		Writes([]recommend.ScoredProduct{}))
	// Unrated products
	ws.Route(ws.GET("/unrated-products").To(s.getUnratedProducts).
		Doc("Get products a user has not rated yet.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.QueryParameter("user_id", "identifier of the user").DataType("string")).
		Param(ws.QueryParameter("n", "number of returned products").DataType("int")).
		Writes([]dataset.Product{}))
	// Products
	ws.Route(ws.GET("/products").To(s.getProducts).
		Doc("Get all products.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"product"}).
		Writes([]dataset.Product{}))
	ws.Route(ws.GET("/products/{product-id}").To(s.getProduct).
		Doc("Get a product.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"product"}).
		Param(ws.PathParameter("product-id", "identifier of the product").DataType("string")).
		Writes(dataset.Product{}))
	// Users
	ws.Route(ws.GET("/users").To(s.getUsers).
		Doc("Get all user ids.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"user"}).
		Writes([]string{}))
	ws.Route(ws.GET("/users/{user-id}").To(s.getUser).
		Doc("Get all rating rows of a user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"user"}).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("string")).
		Writes([]dataset.Rating{}))
}

// ParseInt parses integers from the query parameter.
func ParseInt(request *restful.Request, name string, fallback int) (value int, err error) {
	valueString := request.QueryParameter(name)
	value, err = strconv.Atoi(valueString)
	if err != nil && valueString == "" {
		value = fallback
		err = nil
	}
	return
}

func (s *RestServer) getRecommend(request *restful.Request, response *restful.Response) {
	defer MeasureTime(ItemBasedRecommendSeconds.Observe)()
	productId := request.QueryParameter("product_id")
	userId := request.QueryParameter("user_id")
	if productId == "" || userId == "" {
		BadRequest(response, errors.BadRequestf("please provide both product_id and user_id"))
		return
	}
	n, err := ParseInt(request, "n", s.Config.Server.DefaultN)
	if err != nil {
		BadRequest(response, err)
		return
	}
	results, err := s.Recommender.RecommendItemBased(productId, userId, n)
	if err != nil {
		if errors.IsNotFound(err) {
			PageNotFound(response, err)
		} else {
			InternalServerError(response, err)
		}
		return
	}
	Ok(response, results)
}

func (s *RestServer) getRecommendUserBased(request *restful.Request, response *restful.Response) {
	defer MeasureTime(UserBasedRecommendSeconds.Observe)()
	userId := request.QueryParameter("user_id")
	if userId == "" {
		BadRequest(response, errors.BadRequestf("please provide user_id"))
		return
	}
	n, err := ParseInt(request, "n", s.Config.Server.DefaultUserN)
	if err != nil {
		BadRequest(response, err)
		return
	}
	results, err := s.Recommender.RecommendUserBased(userId, n)
	if err != nil {
		if errors.IsNotFound(err) {
			PageNotFound(response, err)
		} else {
			InternalServerError(response, err)
		}
		return
	}
	Ok(response, results)
}

func (s *RestServer) getUnratedProducts(request *restful.Request, response *restful.Response) {
	defer MeasureTime(UnratedProductsSeconds.Observe)()
	userId := request.QueryParameter("user_id")
	if userId == "" {
		BadRequest(response, errors.BadRequestf("please provide user_id"))
		return
	}
	n, err := ParseInt(request, "n", s.Config.Server.MaxUnrated)
	if err != nil {
		BadRequest(response, err)
		return
	}
	Ok(response, s.Recommender.UnratedProducts(userId, n))
}

func (s *RestServer) getProducts(_ *restful.Request, response *restful.Response) {
	Ok(response, s.Recommender.Data().Products())
}

func (s *RestServer) getProduct(request *restful.Request, response *restful.Response) {
	productId := request.PathParameter("product-id")
	product, exist := s.Recommender.Data().ProductById(productId)
	if !exist {
		PageNotFound(response, errors.NotFoundf("product %q", productId))
		return
	}
	Ok(response, product)
}

func (s *RestServer) getUsers(_ *restful.Request, response *restful.Response) {
	Ok(response, s.Recommender.Data().UserIds())
}

func (s *RestServer) getUser(request *restful.Request, response *restful.Response) {
	userId := request.PathParameter("user-id")
	ratings := s.Recommender.Data().RatingsByUser(userId)
	if ratings == nil {
		PageNotFound(response, errors.NotFoundf("user %q", userId))
		return
	}
	Ok(response, ratings)
}

// MeasureTime observes the elapsed time of a handler.
func MeasureTime(observe func(float64)) func() {
	start := time.Now()
	return func() {
		observe(time.Since(start).Seconds())
	}
}

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(response *restful.Response, status int, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteHeaderAndJson(status, ErrorResponse{Error: err.Error()}, restful.MIME_JSON); err != nil {
		log.Logger().Error("failed to write error", zap.Error(err))
	}
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	log.ResponseLogger(response).Error("bad request", zap.Error(err))
	writeError(response, http.StatusBadRequest, err)
}

// PageNotFound returns a not found error.
func PageNotFound(response *restful.Response, err error) {
	writeError(response, http.StatusNotFound, err)
}

// InternalServerError returns an internal server error.
func InternalServerError(response *restful.Response, err error) {
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	writeError(response, http.StatusInternalServerError, err)
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content interface{}) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.Logger().Error("failed to write json", zap.Error(err))
	}
}
