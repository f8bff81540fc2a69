// Command importfarmers replaces the farmer map with the rows of a CSV or
// XLSX file.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flicky/farm-market-api/internal/config"
	"github.com/flicky/farm-market-api/internal/importer"
	"github.com/flicky/farm-market-api/internal/repository"
	"github.com/flicky/farm-market-api/internal/service"
)

func main() {
	file := flag.String("file", "india_crop_locations.csv", "CSV or XLSX file with farmer locations")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadMongo()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	res, err := importer.ParseFile(*file)
	if err != nil {
		log.Error("parse file", "file", *file, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err == nil {
		err = client.Ping(connectCtx, nil)
	}
	if err != nil {
		log.Error("connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	mapSvc := service.NewFarmerMapService(repository.NewFarmerLocationRepository(client.Database(cfg.Database)))
	n, err := mapSvc.Replace(ctx, res.Locations)
	if err != nil {
		log.Error("import farmers", "error", err)
		os.Exit(1)
	}

	log.Info("imported farmers", "imported", n, "skipped", res.Skipped, "file", *file)
}
