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

// Package dataset holds the immutable catalog of products and ratings
// loaded at startup.
package dataset

import (
	"encoding/csv"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/goodgamingshop/recsys/base/log"
)

// Product is a single catalog entry.
type Product struct {
	ProductId   string `json:"product_id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       string `json:"price,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	// Combined is the normalized description + category text consumed by
	// the content model.
	Combined string `json:"-"`
}

// Rating is a single (user, product, score) row. Scores are on a [1,5]
// scale.
type Rating struct {
	UserId    string  `json:"user_id"`
	ProductId string  `json:"product_id"`
	Score     float32 `json:"rating"`
}

// Dataset is a read-only view over products and ratings. All lookups are
// safe for concurrent use after construction.
type Dataset struct {
	products    []Product
	productDict *Dict
	ratings     []Rating
	userDict    *Dict
	userRatings [][]Rating
}

var punctuation = regexp.MustCompile(`[^\w\s]`)

// CleanText lowers the case of a text and strips punctuation.
func CleanText(text string) string {
	return strings.ToLower(punctuation.ReplaceAllString(text, ""))
}

// NewDataset builds a catalog from raw product and rating rows. Products
// are deduplicated by id, first occurrence wins.
func NewDataset(products []Product, ratings []Rating) *Dataset {
	d := &Dataset{
		productDict: NewDict(),
		userDict:    NewDict(),
	}
	for _, product := range products {
		if _, exist := d.productDict.Id(product.ProductId); exist {
			continue
		}
		product.Combined = CleanText(product.Description) + " " + CleanText(product.Category)
		d.productDict.Add(product.ProductId)
		d.products = append(d.products, product)
	}
	d.ratings = ratings
	for _, rating := range ratings {
		index := d.userDict.Add(rating.UserId)
		if index == len(d.userRatings) {
			d.userRatings = append(d.userRatings, nil)
		}
		d.userRatings[index] = append(d.userRatings[index], rating)
	}
	return d
}

// Products returns all products in catalog order.
func (d *Dataset) Products() []Product {
	return d.products
}

// ProductById looks a product up by its identifier.
func (d *Dataset) ProductById(id string) (Product, bool) {
	index, ok := d.productDict.Id(id)
	if !ok {
		return Product{}, false
	}
	return d.products[index], true
}

// ProductIndex resolves a product id to its dense index.
func (d *Dataset) ProductIndex(id string) (int, bool) {
	return d.productDict.Id(id)
}

// ProductByIndex returns the product at a dense index.
func (d *Dataset) ProductByIndex(index int) Product {
	return d.products[index]
}

// Ratings returns all rating rows, duplicates included.
func (d *Dataset) Ratings() []Rating {
	return d.ratings
}

// RatingsByUser returns all rating rows of a user, nil for an unknown
// user.
func (d *Dataset) RatingsByUser(userId string) []Rating {
	index, ok := d.userDict.Id(userId)
	if !ok {
		return nil
	}
	return d.userRatings[index]
}

// UserIds returns all distinct user ids in first-seen order.
func (d *Dataset) UserIds() []string {
	return d.userDict.Strings()
}

// UserIndex resolves a user id to its dense index.
func (d *Dataset) UserIndex(id string) (int, bool) {
	return d.userDict.Id(id)
}

func (d *Dataset) CountProducts() int {
	return d.productDict.Count()
}

func (d *Dataset) CountUsers() int {
	return d.userDict.Count()
}

func (d *Dataset) CountRatings() int {
	return len(d.ratings)
}

// header maps column names to positions, accepting both the English and
// the upstream Indonesian spellings.
type header map[string]int

func newHeader(record []string) header {
	h := make(header)
	for i, name := range record {
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return h
}

func (h header) find(names ...string) (int, bool) {
	for _, name := range names {
		if i, ok := h[name]; ok {
			return i, true
		}
	}
	return 0, false
}

func (h header) get(record []string, names ...string) string {
	if i, ok := h.find(names...); ok {
		return record[i]
	}
	return ""
}

// LoadCSV loads the catalog from a products table and a ratings table.
func LoadCSV(productsPath, ratingsPath string) (*Dataset, error) {
	products, err := readProducts(productsPath)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to load products from %s", productsPath)
	}
	ratings, err := readRatings(ratingsPath)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to load ratings from %s", ratingsPath)
	}
	d := NewDataset(products, ratings)
	log.Logger().Info("loaded dataset",
		zap.Int("n_products", d.CountProducts()),
		zap.Int("n_users", d.CountUsers()),
		zap.Int("n_ratings", d.CountRatings()))
	return d, nil
}

func readProducts(path string) ([]Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(records) == 0 {
		return nil, errors.New("empty products table")
	}
	h := newHeader(records[0])
	if _, ok := h.find("product_id", "id_produk"); !ok {
		return nil, errors.New("products table misses the product id column")
	}
	products := make([]Product, 0, len(records)-1)
	for _, record := range records[1:] {
		products = append(products, Product{
			ProductId:   h.get(record, "product_id", "id_produk"),
			Name:        h.get(record, "name", "nama_produk", "nama"),
			Description: h.get(record, "description", "deskripsi"),
			Category:    h.get(record, "category", "kategori"),
			Price:       h.get(record, "price", "harga"),
			ImageURL:    h.get(record, "image_url", "gambar"),
		})
	}
	return products, nil
}

func readRatings(path string) ([]Rating, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(records) == 0 {
		return nil, errors.New("empty ratings table")
	}
	h := newHeader(records[0])
	if _, ok := h.find("user_id", "id_user"); !ok {
		return nil, errors.New("ratings table misses the user id column")
	}
	if _, ok := h.find("product_id", "id_produk"); !ok {
		return nil, errors.New("ratings table misses the product id column")
	}
	if _, ok := h.find("rating", "rating_user"); !ok {
		return nil, errors.New("ratings table misses the rating column")
	}
	ratings := make([]Rating, 0, len(records)-1)
	for i, record := range records[1:] {
		score, err := strconv.ParseFloat(h.get(record, "rating", "rating_user"), 32)
		if err != nil {
			return nil, errors.Annotatef(err, "malformed rating in row %d", i+2)
		}
		ratings = append(ratings, Rating{
			UserId:    h.get(record, "user_id", "id_user"),
			ProductId: h.get(record, "product_id", "id_produk"),
			Score:     float32(score),
		})
	}
	return ratings, nil
}
