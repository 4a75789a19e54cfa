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

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goodgamingshop/recsys/base/log"
	"github.com/goodgamingshop/recsys/config"
	"github.com/goodgamingshop/recsys/dataset"
	"github.com/goodgamingshop/recsys/model"
	"github.com/goodgamingshop/recsys/recommend"
	"github.com/goodgamingshop/recsys/server"
)

var version = "0.1.0"

var recsysCommand = &cobra.Command{
	Use:   "recsys",
	Short: "Hybrid product recommender server.",
	Run: func(cmd *cobra.Command, args []string) {
		// show version
		showVersion, _ := cmd.PersistentFlags().GetBool("version")
		if showVersion {
			fmt.Println("recsys version", version)
			return
		}
		// setup logger
		debugMode, _ := cmd.PersistentFlags().GetBool("debug")
		log.SetLogger(cmd.PersistentFlags(), debugMode)
		// load config
		configPath, _ := cmd.PersistentFlags().GetString("config")
		conf, err := config.LoadConfig(configPath)
		if err != nil {
			log.Logger().Fatal("failed to load config", zap.Error(err))
		}
		if cmd.PersistentFlags().Changed("http-host") {
			conf.Server.HttpHost, _ = cmd.PersistentFlags().GetString("http-host")
		}
		if cmd.PersistentFlags().Changed("http-port") {
			conf.Server.HttpPort, _ = cmd.PersistentFlags().GetInt("http-port")
		}
		// The build phase must complete before the first request is
		// accepted: load data, train the model, build similarity
		// structures, then listen.
		data, err := dataset.LoadCSV(conf.Data.ProductsCSV, conf.Data.RatingsCSV)
		if err != nil {
			log.Logger().Fatal("failed to load dataset", zap.Error(err))
		}
		recommender := recommend.NewRecommender(data, conf.CF.ModelParams(),
			model.NewFitConfig().SetVerbose(debugMode))
		server.NewRestServer(recommender, conf).StartHttpServer()
	},
}

func init() {
	recsysCommand.PersistentFlags().BoolP("version", "v", false, "recsys version")
	recsysCommand.PersistentFlags().StringP("config", "c", "", "path of configuration file")
	recsysCommand.PersistentFlags().String("http-host", "127.0.0.1", "host of RESTful API")
	recsysCommand.PersistentFlags().Int("http-port", 8087, "port of RESTful API")
	recsysCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	log.AddFlags(recsysCommand.PersistentFlags())
}

func main() {
	if err := recsysCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
