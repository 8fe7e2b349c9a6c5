package scraper

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"mspro-labs/loadmore/internal/config"
	"mspro-labs/loadmore/internal/models"
)

// CardResult is the outcome of extracting one product card: either a
// Product or the CardError explaining why it could not be built.
type CardResult struct {
	Product models.Product
	Err     error
}

// Extractor turns rendered listing markup into products.
type Extractor struct {
	sel           config.Selectors
	skipMalformed bool
	log           zerolog.Logger
}

func NewExtractor(cfg *config.SiteConfig, log zerolog.Logger) *Extractor {
	return &Extractor{
		sel:           cfg.Selectors,
		skipMalformed: cfg.SkipMalformed,
		log:           log,
	}
}

// Extract returns one product per card. By default the first malformed card
// aborts the whole page; with skip_malformed it is logged and dropped, and
// the number of dropped cards is returned.
func (x *Extractor) Extract(html string) ([]models.Product, int, error) {
	results, err := x.ExtractCards(html)
	if err != nil {
		return nil, 0, err
	}

	products := make([]models.Product, 0, len(results))
	skipped := 0
	for _, r := range results {
		if r.Err != nil {
			if !x.skipMalformed {
				return nil, 0, r.Err
			}
			x.log.Warn().Err(r.Err).Msg("Skipping malformed product card")
			skipped++
			continue
		}
		products = append(products, r.Product)
	}
	return products, skipped, nil
}

// ExtractCards parses every card independently.
func (x *Extractor) ExtractCards(html string) ([]CardResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}

	var results []CardResult
	doc.Find(x.sel.ProductCard).Each(func(i int, s *goquery.Selection) {
		p, err := x.card(i, s)
		results = append(results, CardResult{Product: p, Err: err})
	})
	return results, nil
}

func (x *Extractor) card(i int, s *goquery.Selection) (models.Product, error) {
	var p models.Product
	fail := func(field string, err error) (models.Product, error) {
		return models.Product{}, &CardError{Index: i, Field: field, Err: err}
	}

	title := s.Find(x.sel.Title).First()
	if title.Length() == 0 {
		return fail("title", ErrSelectorMiss)
	}
	if x.sel.TitleAttr == "" {
		p.Title = strings.TrimSpace(title.Text())
	} else {
		v, ok := title.Attr(x.sel.TitleAttr)
		if !ok {
			return fail("title", fmt.Errorf("%w: attribute %q", ErrSelectorMiss, x.sel.TitleAttr))
		}
		p.Title = v
	}

	desc := s.Find(x.sel.Description).First()
	if desc.Length() == 0 {
		return fail("description", ErrSelectorMiss)
	}
	p.Description = desc.Text()

	price := s.Find(x.sel.Price).First()
	if price.Length() == 0 {
		return fail("price", ErrSelectorMiss)
	}
	v, err := ParsePrice(price.Text(), x.sel.CurrencySymbol)
	if err != nil {
		return fail("price", err)
	}
	p.Price = v

	// the stars live in the second paragraph of the ratings block
	stars := s.Find(x.sel.Ratings).First().Find("p").Eq(1)
	if stars.Length() == 0 {
		return fail("rating", ErrSelectorMiss)
	}
	marker := x.sel.RatingMarker
	if marker == "" {
		marker = "span"
	}
	p.Rating = stars.Find(marker).Length()

	reviews := s.Find(x.sel.ReviewCount).First()
	if reviews.Length() == 0 {
		return fail("num_of_reviews", ErrSelectorMiss)
	}
	n, err := ParseReviewCount(reviews.Text())
	if err != nil {
		return fail("num_of_reviews", err)
	}
	p.NumReviews = n

	return p, nil
}

// ParsePrice strips exactly one leading currency symbol and parses the rest.
func ParsePrice(text, symbol string) (float64, error) {
	t := strings.TrimSpace(text)
	if symbol != "" {
		t = strings.TrimSpace(strings.TrimPrefix(t, symbol))
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: price %q", ErrParse, text)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: price %q", ErrParse, text)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: negative price %q", ErrParse, text)
	}
	return v, nil
}

// ParseReviewCount reads the leading numeral of text such as "25 reviews".
func ParseReviewCount(text string) (int, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: empty review count", ErrParse)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: review count %q", ErrParse, text)
	}
	return n, nil
}
