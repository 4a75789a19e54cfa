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

package config

import (
	"strings"

	"github.com/juju/errors"
	"github.com/spf13/viper"

	"github.com/goodgamingshop/recsys/model"
	"github.com/goodgamingshop/recsys/recommend"
)

// Config is the configuration for the recommender service.
type Config struct {
	Data   DataConfig   `mapstructure:"data"`
	Server ServerConfig `mapstructure:"server"`
	CF     CFConfig     `mapstructure:"cf"`
}

// DataConfig locates the input tables.
type DataConfig struct {
	ProductsCSV string `mapstructure:"products_csv"`
	RatingsCSV  string `mapstructure:"ratings_csv"`
}

// ServerConfig is the configuration for the REST server.
type ServerConfig struct {
	HttpHost     string `mapstructure:"http_host"`
	HttpPort     int    `mapstructure:"http_port"`
	DefaultN     int    `mapstructure:"default_n"`
	DefaultUserN int    `mapstructure:"default_user_n"`
	MaxUnrated   int    `mapstructure:"max_unrated"`
}

// CFConfig holds the hyper-parameters of the latent-factor model.
type CFConfig struct {
	NFactors    int     `mapstructure:"n_factors"`
	NEpochs     int     `mapstructure:"n_epochs"`
	Lr          float64 `mapstructure:"lr"`
	Reg         float64 `mapstructure:"reg"`
	InitMean    float64 `mapstructure:"init_mean"`
	InitStdDev  float64 `mapstructure:"init_std"`
	RandomState int64   `mapstructure:"random_state"`
	UseBias     bool    `mapstructure:"use_bias"`
}

// ModelParams converts the section to hyper-parameters.
func (c *CFConfig) ModelParams() model.Params {
	return model.Params{
		model.NFactors:    c.NFactors,
		model.NEpochs:     c.NEpochs,
		model.Lr:          c.Lr,
		model.Reg:         c.Reg,
		model.InitMean:    c.InitMean,
		model.InitStdDev:  c.InitStdDev,
		model.RandomState: c.RandomState,
		model.UseBias:     c.UseBias,
	}
}

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			ProductsCSV: "data/products.csv",
			RatingsCSV:  "data/ratings.csv",
		},
		Server: ServerConfig{
			HttpHost:     "127.0.0.1",
			HttpPort:     8087,
			DefaultN:     recommend.DefaultItemBasedN,
			DefaultUserN: recommend.DefaultUserBasedN,
			MaxUnrated:   50,
		},
		CF: CFConfig{
			NFactors:    100,
			NEpochs:     20,
			Lr:          0.005,
			Reg:         0.02,
			InitMean:    0,
			InitStdDev:  0.1,
			RandomState: 0,
			UseBias:     true,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaults := GetDefaultConfig()
	v.SetDefault("data.products_csv", defaults.Data.ProductsCSV)
	v.SetDefault("data.ratings_csv", defaults.Data.RatingsCSV)
	v.SetDefault("server.http_host", defaults.Server.HttpHost)
	v.SetDefault("server.http_port", defaults.Server.HttpPort)
	v.SetDefault("server.default_n", defaults.Server.DefaultN)
	v.SetDefault("server.default_user_n", defaults.Server.DefaultUserN)
	v.SetDefault("server.max_unrated", defaults.Server.MaxUnrated)
	v.SetDefault("cf.n_factors", defaults.CF.NFactors)
	v.SetDefault("cf.n_epochs", defaults.CF.NEpochs)
	v.SetDefault("cf.lr", defaults.CF.Lr)
	v.SetDefault("cf.reg", defaults.CF.Reg)
	v.SetDefault("cf.init_mean", defaults.CF.InitMean)
	v.SetDefault("cf.init_std", defaults.CF.InitStdDev)
	v.SetDefault("cf.random_state", defaults.CF.RandomState)
	v.SetDefault("cf.use_bias", defaults.CF.UseBias)
}

// LoadConfig loads the configuration from a toml file, with RECSYS_*
// environment variables taking precedence. An empty path loads pure
// defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	v.SetEnvPrefix("recsys")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}
