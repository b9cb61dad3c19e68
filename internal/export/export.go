// Package export writes the visible stores and inventory results as CSV and
// hands the files to a sink (local directory or S3 bucket).
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"go-aging-risk-dashboard/internal/livesync"
)

const (
	StoresFile    = "store_status_export.csv"
	InventoryFile = "inventory_search_export.csv"
)

// ErrNothingToExport is returned for an empty row set.
var ErrNothingToExport = errors.New("nothing to export")

var storeHeader = []string{
	"store_id",
	"total_aging_capital",
	"HEALTHY",
	"TRANSFER",
	"RR_TT",
	"VERY_DANGER",
}

var inventoryHeader = []string{
	"style_code",
	"article_name",
	"category",
	"department",
	"supplier",
	"store_id",
	"quantity",
	"days",
	"item_mrp",
	"status",
}

// WriteStores writes one row per store.
func WriteStores(w io.Writer, stores []livesync.StoreRecord) error {
	if len(stores) == 0 {
		return ErrNothingToExport
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(storeHeader); err != nil {
		return err
	}
	for _, s := range stores {
		if err := cw.Write([]string{
			s.ID,
			formatFloat(s.TotalValue),
			formatFloat(s.Aging.Healthy),
			formatFloat(s.Aging.Transfer),
			formatFloat(s.Aging.RateRevised),
			formatFloat(s.Aging.VeryDanger),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteInventory writes one row per item. Absent values are left empty.
func WriteInventory(w io.Writer, items []livesync.InventoryItem) error {
	if len(items) == 0 {
		return ErrNothingToExport
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(inventoryHeader); err != nil {
		return err
	}
	for _, it := range items {
		if err := cw.Write([]string{
			it.StyleCode,
			it.ArticleName,
			it.Category,
			it.Department,
			it.Supplier,
			it.StoreID,
			formatOptional(it.Quantity),
			formatOptional(it.Days),
			formatOptional(it.MRP),
			it.Status,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Sink stores a finished export and returns where it went.
type Sink interface {
	Put(ctx context.Context, name string, body []byte) (string, error)
}

// Exporter renders exports and writes them to a sink.
type Exporter struct {
	sink Sink
}

func NewExporter(sink Sink) *Exporter {
	return &Exporter{sink: sink}
}

// Stores exports the given stores as StoresFile.
func (e *Exporter) Stores(ctx context.Context, stores []livesync.StoreRecord) (string, error) {
	var buf bytes.Buffer
	if err := WriteStores(&buf, stores); err != nil {
		return "", err
	}
	return e.put(ctx, StoresFile, buf.Bytes())
}

// Inventory exports the given items as InventoryFile.
func (e *Exporter) Inventory(ctx context.Context, items []livesync.InventoryItem) (string, error) {
	var buf bytes.Buffer
	if err := WriteInventory(&buf, items); err != nil {
		return "", err
	}
	return e.put(ctx, InventoryFile, buf.Bytes())
}

func (e *Exporter) put(ctx context.Context, name string, body []byte) (string, error) {
	loc, err := e.sink.Put(ctx, name, body)
	if err != nil {
		return "", fmt.Errorf("export %s: %w", name, err)
	}
	return loc, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
