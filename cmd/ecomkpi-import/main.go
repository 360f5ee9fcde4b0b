// Command ecomkpi-import loads the CSV exports from a directory into the
// SQLite store and notifies running servers to reload.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"ecomkpi/internal/amqp"
	"ecomkpi/internal/cli"
	"ecomkpi/internal/log"
	"ecomkpi/internal/source/memory"
	"ecomkpi/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentImport)
	cfg := cli.LoadAndValidateConfig(logger)

	dir := flag.String("dir", cfg.DataDir, "directory containing orders.csv, customers.csv, products.csv and location.csv")
	dbPath := flag.String("db", cfg.SQLiteDBPath, "SQLite database path")
	notify := flag.Bool("notify", true, "publish a reload message when AMQP_URL is set")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.LoadTimeout)
	defer cancel()

	if err := run(ctx, logger, *dir, *dbPath); err != nil {
		logger.Error("Import failed", log.FieldError, err, "dir", *dir, "db_path", *dbPath)
		os.Exit(1)
	}

	if !*notify || !cfg.AMQPEnabled() {
		return
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Warn("Import done but reload notification not sent", log.FieldError, err)
		os.Exit(2)
	}
	defer client.Close()
	if err := client.PublishReload(ctx, "sqlite:"+*dbPath, "import"); err != nil {
		logger.Warn("Import done but reload notification not sent", log.FieldError, err)
		os.Exit(2)
	}
}

func run(ctx context.Context, logger *log.Logger, dir, dbPath string) error {
	start := time.Now()
	ds, err := memory.NewCSVDir(dir).Load(ctx)
	if err != nil {
		return err
	}

	repo, err := storage.NewSQLiteRepository(dbPath, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.Import(ctx, ds); err != nil {
		return err
	}

	counts := ds.Counts()
	logger.InfoContext(ctx, "Dataset imported",
		log.FieldSource, ds.Source,
		log.FieldOrders, counts["orders"],
		"customers", counts["customers"],
		"products", counts["products"],
		"locations", counts["locations"],
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}
