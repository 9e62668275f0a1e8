package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads catalog exports and inserts or updates products by name.
type CSVImporter struct {
	reader *csv.Reader
	writer ProductWriter
}

func NewCSVImporter(r io.Reader, w ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{reader: csvr, writer: w}
}

var requiredHeaders = []string{"name", "price", "category"}

// Run parses CSV rows and upserts one product per named row. Rows with an
// empty name and only an image add to the gallery of the product above.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, h := range requiredHeaders {
		if _, ok := index[h]; !ok {
			return 0, fmt.Errorf("missing column %q", h)
		}
	}

	var (
		current  *domain.Product
		imported int
		line     = 1
	)
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}

		name := pick(record, index, "name")
		if name == "" {
			// Continuation rows (images) belong to the current product.
			if img := pick(record, index, "image"); img != "" && current != nil {
				current.Gallery = append(current.Gallery, img)
			}
			continue
		}

		if current != nil {
			if err := i.save(ctx, current); err != nil {
				return imported, err
			}
			imported++
		}
		current, err = parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("row %d: %w", line, err)
		}
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, p *domain.Product) error {
	if _, err := i.writer.Upsert(ctx, *p); err != nil {
		return fmt.Errorf("upsert product %q: %w", p.Name, err)
	}
	return nil
}

func parseRow(record []string, index map[string]int) (*domain.Product, error) {
	p := &domain.Product{
		Name:        pick(record, index, "name"),
		Description: pick(record, index, "description"),
		Category:    pick(record, index, "category"),
		Brand:       pick(record, index, "brand"),
		Image:       pick(record, index, "image"),
	}

	price, err := decimal.NewFromString(pick(record, index, "price"))
	if err != nil {
		return nil, fmt.Errorf("invalid price for %q", p.Name)
	}
	p.Price = price

	if v := pick(record, index, "countInStock"); v != "" {
		if p.Stock, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid countInStock for %q", p.Name)
		}
	}
	if v := pick(record, index, "rating"); v != "" {
		if p.Rating, err = decimal.NewFromString(v); err != nil {
			return nil, fmt.Errorf("invalid rating for %q", p.Name)
		}
	}
	for _, g := range strings.Split(pick(record, index, "gallery"), ";") {
		if g = strings.TrimSpace(g); g != "" {
			p.Gallery = append(p.Gallery, g)
		}
	}
	return p, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
