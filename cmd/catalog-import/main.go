package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"storelink/internal/awsx"
	"storelink/internal/catalog"
	"storelink/internal/config"
	"storelink/internal/handlers"
	"storelink/internal/shopee"
)

type importer struct {
	cfg  *config.Config
	deps handlers.Deps
}

// detail lets a scheduled rule point at a different catalog object.
type detail struct {
	Source string `json:"source"`
}

func (im *importer) run(ctx context.Context, source string) (catalog.Result, error) {
	var readers catalog.Readers
	if _, _, ok := catalog.ParseS3URI(source); ok {
		client, err := awsx.NewS3Client(ctx)
		if err != nil {
			return catalog.Result{}, err
		}
		readers.S3 = client
	}
	if _, ok := catalog.ParseShopeeSource(source); ok {
		readers.Shopee = &catalog.ShopeeSource{
			DB:      im.deps.DB,
			Tokens:  im.cfg.Tables.ShopeeTokens,
			Timeout: im.cfg.Database.Timeout,
			Sealer:  im.deps.Sealer,
			API:     shopee.NewClient(im.cfg.Shopee.PartnerID, im.cfg.Shopee.PartnerKey, im.cfg.Shopee.Host, im.cfg.ExchangeTimeout),
		}
	}

	raw, err := catalog.ReadSource(ctx, source, readers)
	if err != nil {
		return catalog.Result{}, err
	}
	entries, err := catalog.Decode(raw)
	if err != nil {
		return catalog.Result{}, err
	}

	im.deps.Log.Info("catalog import started", zap.String("source", source), zap.Int("entries", len(entries)))
	job := &catalog.Job{
		DB:      im.deps.DB,
		Table:   im.cfg.Tables.Products,
		Timeout: im.cfg.Catalog.Timeout,
		Log:     im.deps.Log,
	}
	return job.Run(ctx, entries)
}

func (im *importer) handle(ctx context.Context, ev events.CloudWatchEvent) (catalog.Result, error) {
	source := im.cfg.Catalog.Source
	if len(ev.Detail) > 0 {
		var d detail
		if err := json.Unmarshal(ev.Detail, &d); err == nil && d.Source != "" {
			source = d.Source
		}
	}
	return im.run(ctx, source)
}

func main() {
	file := flag.String("file", "", "catalog file, s3:// uri or shopee:<shop_id> (defaults to CATALOG_SOURCE)")
	flag.Parse()

	ctx := context.Background()

	cfg, deps, err := handlers.Bootstrap(ctx)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer deps.Log.Sync()

	im := &importer{cfg: cfg, deps: deps}

	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(im.handle)
		return
	}

	source := cfg.Catalog.Source
	if *file != "" {
		source = *file
	}
	res, err := im.run(ctx, source)
	if err != nil {
		log.Fatalf("catalog import: %v", err)
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
}
