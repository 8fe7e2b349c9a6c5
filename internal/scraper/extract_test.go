package scraper

import (
	"fmt"
	"html"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mspro-labs/loadmore/internal/config"
	"mspro-labs/loadmore/internal/models"
)

// productCard renders one card the way the demo shop does.
func productCard(title, desc, price, reviews string, filled, empty int) string {
	var stars strings.Builder
	for i := 0; i < filled; i++ {
		stars.WriteString(`<span class="ws-icon ws-icon-star"></span>`)
	}
	for i := 0; i < empty; i++ {
		stars.WriteString(`<span class="ws-icon ws-icon-star-empty"></span>`)
	}
	return fmt.Sprintf(`
<div class="col-md-4 col-xl-4 col-lg-4">
  <div class="card thumbnail">
    <div class="product-wrapper card-body">
      <img class="img-fluid card-img-top image img-responsive" alt="item" src="/images/cart2.png">
      <div class="caption">
        <h4 class="price float-end card-title pull-right">%s</h4>
        <h4><a href="/test-sites/e-commerce/more/product/1" class="title" title="%s">%s...</a></h4>
        <p class="description card-text">%s</p>
      </div>
      <div class="ratings">
        <p class="review-count float-end">%s</p>
        <p data-rating="%d">%s</p>
      </div>
    </div>
  </div>
</div>`, price, html.EscapeString(title), html.EscapeString(title[:min(len(title), 10)]),
		html.EscapeString(desc), reviews, filled, stars.String())
}

func listingPage(cards ...string) string {
	return `<html><body><div class="row ecomerce-items ecomerce-items-more">` +
		strings.Join(cards, "\n") +
		`</div><a class="btn btn-lg btn-block btn-primary ecomerce-items-scroll-more" style="display: none;">More</a></body></html>`
}

func newTestExtractor(skip bool) *Extractor {
	cfg := config.DefaultSiteConfig()
	cfg.SkipMalformed = skip
	return NewExtractor(cfg, zerolog.Nop())
}

func TestExtractWellFormedCards(t *testing.T) {
	page := listingPage(
		productCard("Asus VivoBook X441NA-GA190", "Asus VivoBook X441NA-GA190 Chocolate Black", "$295.99", "14 reviews", 3, 2),
		productCard("Apple MacBook Air 13\"", "Apple MacBook Air 13\", i5 1.8GHz, 8GB", "$1347.78", "11 reviews", 4, 1),
		productCard("Nokia 123", "7 day battery", "$24.99", "7 reviews", 1, 4),
		productCard("Iphone", "Black", "$899.99", "0 reviews", 0, 5),
	)

	products, skipped, err := newTestExtractor(false).Extract(page)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, products, 4)

	assert.Equal(t, models.Product{
		Title:       "Asus VivoBook X441NA-GA190",
		Description: "Asus VivoBook X441NA-GA190 Chocolate Black",
		Price:       295.99,
		Rating:      3,
		NumReviews:  14,
	}, products[0])
	assert.Equal(t, `Apple MacBook Air 13"`, products[1].Title)
	assert.Equal(t, 1347.78, products[1].Price)
	assert.Equal(t, 4, products[1].Rating)

	for _, p := range products {
		assert.NotEmpty(t, p.Title)
		assert.NotEmpty(t, p.Description)
		assert.GreaterOrEqual(t, p.Price, 0.0)
		assert.GreaterOrEqual(t, p.Rating, 0)
		assert.GreaterOrEqual(t, p.NumReviews, 0)
	}
}

func TestExtractCountsOnlyFilledMarkers(t *testing.T) {
	page := listingPage(productCard("Galaxy Tab", "tablet", "$251.99", "5 reviews", 3, 2))

	products, _, err := newTestExtractor(false).Extract(page)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 3, products[0].Rating)
}

func TestExtractKeepsDescriptionText(t *testing.T) {
	page := listingPage(productCard("Lenovo", "\u00a0Slim 14\", 8GB\u00a0", "$399.00", "3 reviews", 2, 3))

	products, _, err := newTestExtractor(false).Extract(page)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "\u00a0Slim 14\", 8GB\u00a0", products[0].Description)
	assert.Equal(t, " Slim 14\", 8GB ", products[0].Sanitized().Description)
}

func TestExtractNoCards(t *testing.T) {
	products, _, err := newTestExtractor(false).Extract(listingPage())
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestExtractMalformedCardAbortsByDefault(t *testing.T) {
	page := listingPage(
		productCard("Good", "ok", "$10.00", "1 reviews", 1, 4),
		productCard("Bad", "broken", "call us", "2 reviews", 2, 3),
		productCard("Also good", "ok", "$12.00", "3 reviews", 3, 2),
	)

	_, _, err := newTestExtractor(false).Extract(page)
	require.Error(t, err)

	var cardErr *CardError
	require.ErrorAs(t, err, &cardErr)
	assert.Equal(t, 1, cardErr.Index)
	assert.Equal(t, "price", cardErr.Field)
	assert.ErrorIs(t, err, ErrParse)
}

func TestExtractSkipMalformed(t *testing.T) {
	page := listingPage(
		productCard("Good", "ok", "$10.00", "1 reviews", 1, 4),
		productCard("Bad", "broken", "$10.00", "many reviews", 2, 3),
		productCard("Also good", "ok", "$12.00", "3 reviews", 3, 2),
	)

	products, skipped, err := newTestExtractor(true).Extract(page)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, products, 2)
	assert.Equal(t, "Also good", products[1].Title)
}

func TestExtractCardsReportsEachCard(t *testing.T) {
	missingTitle := strings.Replace(
		productCard("Gone", "x", "$1.00", "1 reviews", 1, 0),
		`class="title"`, `class="name"`, 1)
	missingStars := `<div class="product-wrapper card-body"><div class="caption">
	  <h4 class="price">$5.00</h4><a class="title" title="T">T</a><p class="description">d</p></div>
	  <div class="ratings"><p class="review-count">4 reviews</p></div></div>`

	results, err := newTestExtractor(false).ExtractCards(listingPage(
		missingTitle,
		productCard("Fine", "y", "$2.00", "2 reviews", 2, 3),
		missingStars,
	))
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.ErrorIs(t, results[0].Err, ErrSelectorMiss)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, "Fine", results[1].Product.Title)

	var cardErr *CardError
	require.ErrorAs(t, results[2].Err, &cardErr)
	assert.Equal(t, "rating", cardErr.Field)
	assert.Equal(t, 2, cardErr.Index)
}

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		input    string
		expected float64
	}{
		{"$99.99", 99.99},
		{"$1234.50", 1234.5},
		{" $25.50 ", 25.50},
		{"$0.99", 0.99},
		{"19", 19},
	}

	for _, tc := range testCases {
		got, err := ParsePrice(tc.input, "$")
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.expected, got, "ParsePrice(%q)", tc.input)
	}

	for _, bad := range []string{"$$5.00", "Free", "", "$-3.00", "$NaN", "5.00$"} {
		_, err := ParsePrice(bad, "$")
		assert.ErrorIs(t, err, ErrParse, "ParsePrice(%q)", bad)
	}
}

func TestParseReviewCount(t *testing.T) {
	testCases := []struct {
		input    string
		expected int
	}{
		{"25 reviews", 25},
		{"1 review", 1},
		{"  0 reviews\n", 0},
		{"7", 7},
	}

	for _, tc := range testCases {
		got, err := ParseReviewCount(tc.input)
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.expected, got, "ParseReviewCount(%q)", tc.input)
	}

	for _, bad := range []string{"", "reviews: 5", "-2 reviews", "2.5 reviews"} {
		_, err := ParseReviewCount(bad)
		assert.ErrorIs(t, err, ErrParse, "ParseReviewCount(%q)", bad)
	}
}
