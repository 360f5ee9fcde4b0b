// Package google loads the dataset from a Google Sheets spreadsheet with one
// tab per table.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ecomkpi/internal/core"
	"ecomkpi/internal/log"
	"ecomkpi/internal/source"
)

var _ source.DatasetLoader = (*Client)(nil)

// Config names the spreadsheet, its tabs and the service account.
type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
	OrdersSheet        string
	CustomersSheet     string
	ProductsSheet      string
	LocationSheet      string
}

type Client struct {
	svc    *gsheet.Service
	cfg    Config
	logger *log.Logger
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentSheets)

	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created", "spreadsheet", cfg.SpreadsheetID)
	return &Client{svc: svc, cfg: cfg, logger: logger}, nil
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// Load reads all four tabs with one batch request.
func (c *Client) Load(ctx context.Context) (*core.Dataset, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	ranges := []string{c.cfg.OrdersSheet, c.cfg.CustomersSheet, c.cfg.ProductsSheet, c.cfg.LocationSheet}
	resp, err := c.svc.Spreadsheets.Values.BatchGet(c.cfg.SpreadsheetID).
		Ranges(ranges...).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read sheets: %w", core.ErrDataSourceUnavailable, err)
	}

	values := make([][][]interface{}, len(ranges))
	for i, vr := range resp.ValueRanges {
		if i < len(values) {
			values[i] = vr.Values
		}
	}
	ds, err := parseValues(values, "sheets:"+c.cfg.SpreadsheetID)
	if err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "Dataset loaded from Google Sheets", log.FieldOrders, len(ds.Orders))
	return ds, nil
}
