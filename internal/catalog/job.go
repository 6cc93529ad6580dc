package catalog

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"storelink/internal/db"
)

type Failure struct {
	Index  int    `json:"index"`
	ItemID string `json:"item_id,omitempty"`
	Error  string `json:"error"`
}

type Result struct {
	Total    int       `json:"total"`
	Upserted int       `json:"upserted"`
	Failures []Failure `json:"failures"`
}

// Job upserts a pre-read batch over one connection. A failing entry is
// logged and skipped; only connection and schema errors fail the run.
type Job struct {
	DB      db.Connector
	Table   string
	Timeout time.Duration
	Log     *zap.Logger
}

func (j *Job) Run(ctx context.Context, entries []json.RawMessage) (Result, error) {
	log := j.Log
	if log == nil {
		log = zap.NewNop()
	}
	res := Result{Total: len(entries), Failures: []Failure{}}

	err := db.WithConn(ctx, j.DB, j.Timeout, func(ctx context.Context, conn db.Conn) error {
		if err := db.EnsureTable(ctx, conn, db.ProductsTable(j.Table)); err != nil {
			return err
		}
		for i, raw := range entries {
			p, err := j.upsert(ctx, conn, raw)
			if err != nil {
				log.Warn("catalog entry failed", zap.Int("index", i), zap.String("item_id", p.ItemID), zap.Error(err))
				res.Failures = append(res.Failures, Failure{Index: i, ItemID: p.ItemID, Error: err.Error()})
				continue
			}
			res.Upserted++
			log.Debug("catalog entry upserted", zap.String("item_id", p.ItemID), zap.String("item_name", p.ItemName))
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	log.Info("catalog import finished",
		zap.Int("total", res.Total),
		zap.Int("upserted", res.Upserted),
		zap.Int("failed", len(res.Failures)))
	return res, nil
}

func (j *Job) upsert(ctx context.Context, conn db.Conn, raw json.RawMessage) (db.Product, error) {
	e, err := DecodeEntry(raw)
	if err != nil {
		return db.Product{}, err
	}
	p, err := ToProduct(e)
	if err != nil {
		return p, err
	}
	return p, db.UpsertProduct(ctx, conn, j.Table, p)
}
