package exporter

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	"mspro-labs/loadmore/internal/config"
	"mspro-labs/loadmore/internal/models"
)

// Header is the exact first line of every exported file.
const Header = "title,description,price,rating,num_of_reviews"

// Row is the CSV shape of a product.
type Row struct {
	Title       string  `csv:"title"`
	Description string  `csv:"description"`
	Price       Decimal `csv:"price"`
	Rating      int     `csv:"rating"`
	NumReviews  int     `csv:"num_of_reviews"`
}

// Decimal renders as a plain decimal (1234.5), never in exponent form.
type Decimal float64

func (d Decimal) MarshalCSV() (string, error) {
	return strconv.FormatFloat(float64(d), 'f', -1, 64), nil
}

func (d *Decimal) UnmarshalCSV(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*d = Decimal(v)
	return nil
}

// ToRows sanitizes products into their exported form.
func ToRows(products []models.Product) []Row {
	rows := make([]Row, 0, len(products))
	for _, p := range products {
		p = p.Sanitized()
		rows = append(rows, Row{
			Title:       p.Title,
			Description: p.Description,
			Price:       Decimal(p.Price),
			Rating:      p.Rating,
			NumReviews:  p.NumReviews,
		})
	}
	return rows
}

// WriteCSV writes the header and one row per product.
func WriteCSV(w io.Writer, products []models.Product) error {
	rows := ToRows(products)
	return gocsv.Marshal(&rows, w)
}

// WriteFile creates or truncates path and writes products to it. A failure
// mid-write leaves a partial file behind.
func WriteFile(path string, products []models.Product) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	if err := WriteCSV(f, products); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadFile loads rows previously written by WriteFile.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []Row
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, nil
}

// CSVSink writes each target to <Dir>/<target.Output>.
type CSVSink struct {
	Dir string
	Log zerolog.Logger
}

func (s CSVSink) Save(_ context.Context, target config.Target, products []models.Product) error {
	path := filepath.Join(s.Dir, target.Output)
	if err := WriteFile(path, products); err != nil {
		return err
	}
	s.Log.Info().
		Str("target", target.Name).
		Str("file", path).
		Int("count", len(products)).
		Msg("Successfully exported products to CSV.")
	return nil
}
