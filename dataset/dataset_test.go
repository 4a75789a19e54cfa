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

package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "gaming mouse", CleanText("Gaming Mouse!"))
	assert.Equal(t, "usbc 20", CleanText("USB-C 2.0"))
	assert.Equal(t, "", CleanText("!?.,"))
}

func TestNewDataset(t *testing.T) {
	products := []Product{
		{ProductId: "p1", Description: "Gaming Mouse,", Category: "Electronics"},
		{ProductId: "p2", Description: "Kitchen Knife", Category: "Tools"},
		{ProductId: "p1", Description: "duplicate, ignored", Category: "Other"},
	}
	ratings := []Rating{
		{UserId: "u1", ProductId: "p1", Score: 5},
		{UserId: "u2", ProductId: "p2", Score: 3},
		{UserId: "u1", ProductId: "p2", Score: 4},
	}
	d := NewDataset(products, ratings)
	assert.Equal(t, 2, d.CountProducts())
	assert.Equal(t, 2, d.CountUsers())
	assert.Equal(t, 3, d.CountRatings())

	// first occurrence wins
	p, ok := d.ProductById("p1")
	assert.True(t, ok)
	assert.Equal(t, "Gaming Mouse,", p.Description)
	assert.Equal(t, "gaming mouse electronics", p.Combined)
	_, ok = d.ProductById("p3")
	assert.False(t, ok)

	index, ok := d.ProductIndex("p2")
	assert.True(t, ok)
	assert.Equal(t, "p2", d.ProductByIndex(index).ProductId)

	assert.Equal(t, []string{"u1", "u2"}, d.UserIds())
	assert.Len(t, d.RatingsByUser("u1"), 2)
	assert.Len(t, d.RatingsByUser("u2"), 1)
	assert.Nil(t, d.RatingsByUser("u3"))
}

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	productsPath := writeFile(t, dir, "products.csv",
		"id_produk,nama_produk,deskripsi,kategori,harga\n"+
			"p1,Mouse,Gaming Mouse,Electronics,100\n"+
			"p2,Knife,Kitchen Knife,Tools,50\n")
	ratingsPath := writeFile(t, dir, "ratings.csv",
		"id_user,id_produk,rating_user\n"+
			"u1,p1,5\n"+
			"u1,p2,3\n")
	d, err := LoadCSV(productsPath, ratingsPath)
	assert.NoError(t, err)
	assert.Equal(t, 2, d.CountProducts())
	assert.Equal(t, 1, d.CountUsers())
	assert.Equal(t, 2, d.CountRatings())
	p, ok := d.ProductById("p1")
	assert.True(t, ok)
	assert.Equal(t, "Mouse", p.Name)
	assert.Equal(t, "100", p.Price)
	assert.Equal(t, float32(5), d.RatingsByUser("u1")[0].Score)
}

func TestLoadCSVEnglishHeader(t *testing.T) {
	dir := t.TempDir()
	productsPath := writeFile(t, dir, "products.csv",
		"product_id,name,description,category\n"+
			"p1,Mouse,Gaming Mouse,Electronics\n")
	ratingsPath := writeFile(t, dir, "ratings.csv",
		"user_id,product_id,rating\n"+
			"u1,p1,4.5\n")
	d, err := LoadCSV(productsPath, ratingsPath)
	assert.NoError(t, err)
	assert.Equal(t, 1, d.CountProducts())
	assert.Equal(t, float32(4.5), d.Ratings()[0].Score)
}

func TestLoadCSVErrors(t *testing.T) {
	dir := t.TempDir()
	productsPath := writeFile(t, dir, "products.csv",
		"product_id,description,category\np1,Mouse,Electronics\n")

	// missing file
	_, err := LoadCSV(filepath.Join(dir, "absent.csv"), productsPath)
	assert.Error(t, err)

	// missing required column
	badProducts := writeFile(t, dir, "bad_products.csv", "name,description\nMouse,Gaming\n")
	ratingsPath := writeFile(t, dir, "ratings.csv", "user_id,product_id,rating\nu1,p1,5\n")
	_, err = LoadCSV(badProducts, ratingsPath)
	assert.Error(t, err)

	// malformed rating is fatal
	badRatings := writeFile(t, dir, "bad_ratings.csv", "user_id,product_id,rating\nu1,p1,abc\n")
	_, err = LoadCSV(productsPath, badRatings)
	assert.Error(t, err)
}
