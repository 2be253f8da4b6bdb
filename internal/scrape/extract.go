package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"joblist-engine/internal/domain"
)

// Selectors for the listings site. Job cards are plain <article>
// elements; the field classes are the site's CSS-module names.
const (
	cardSelector     = "article"
	titleSelector    = ".Job_job-card__position__ic1rc"
	companySelector  = ".Job_job-card__company__7T9qY"
	locationSelector = ".Job_job-card__country__GRVhK"
	postedSelector   = ".Job_job-card__posted-on__NCZaJ"
	tagsSelector     = ".Job_job-card__tags__zfriA"
	categorySelector = ".Job_job-card__location__bq7jX"
	linkSelector     = "a.Job_job-page-link__a5I5g"
)

// Fallback values substituted when a field cannot be located. A miss is
// never an error; the rest of the card extracts normally.
const (
	FallbackTitle    = "Unspecified Position"
	FallbackCompany  = "Unspecified Company"
	FallbackLocation = "Location Not Specified"
	FallbackCategory = "Not Specified"

	// DescNone is the placeholder when there is nothing to fetch or the
	// detail page holds no recognizable description. DescLoadFailed is
	// distinct so "site had none" and "we couldn't load it" stay apart.
	DescNone       = "No description available"
	DescLoadFailed = "Failed to load job description"
)

// Detail-page description selectors, primary first. The primary is the
// list following the "Job Description" heading paragraph.
var descAlternates = []string{
	"div.job-description",
	"div[class*=description]",
	"section[class*=job-description]",
}

// Extractor turns rendered pages into candidate listings.
type Extractor struct {
	src Source
	log *zap.Logger
	now func() time.Time

	pageTimeout  time.Duration
	detailSettle time.Duration
}

func NewExtractor(src Source, log *zap.Logger, pageTimeout time.Duration) *Extractor {
	return &Extractor{
		src:          src,
		log:          log,
		now:          time.Now,
		pageTimeout:  pageTimeout,
		detailSettle: 2 * time.Second,
	}
}

// ExtractPage fetches one listings page and returns its candidates.
// A page whose job cards never appear within the timeout yields an
// empty slice and no error: "no more pages" is a valid end condition.
func (e *Extractor) ExtractPage(ctx context.Context, pageURL string) ([]domain.Candidate, error) {
	doc, err := e.src.Fetch(ctx, pageURL, FetchWait{
		Selector: cardSelector,
		Timeout:  e.pageTimeout,
	})
	if err != nil {
		if errors.Is(err, ErrPageTimeout) {
			e.log.Info("no job cards appeared", zap.String("url", pageURL))
			return nil, nil
		}
		return nil, err
	}

	cards := doc.Find(cardSelector)
	e.log.Info("found job cards", zap.String("url", pageURL), zap.Int("count", cards.Length()))

	var out []domain.Candidate
	cards.Each(func(_ int, card *goquery.Selection) {
		out = append(out, e.extractCard(card, pageURL))
	})

	// Descriptions need a secondary fetch each, so resolve them after
	// the listing DOM has been fully read.
	for i := range out {
		e.resolveDescription(ctx, &out[i], pageURL)
	}
	return out, nil
}

// extractCard reads every field of one card independently; a missing
// field substitutes its fallback and never aborts the others.
func (e *Extractor) extractCard(card *goquery.Selection, pageURL string) domain.Candidate {
	var c domain.Candidate

	c.Title = e.fieldText(card, titleSelector, FallbackTitle, "title")
	c.Company = e.fieldText(card, companySelector, FallbackCompany, "company")
	c.Location = e.fieldText(card, locationSelector, FallbackLocation, "location")

	c.PostedText = e.fieldText(card, postedSelector, "", "posted time")
	if c.PostedText.Fallback {
		c.PostedAt = e.now()
	} else {
		c.PostedAt = ParseRelativeTime(c.PostedText.Value, e.now())
	}

	// The category tag sits inside the card's tag strip.
	c.Category = e.fieldText(card.Find(tagsSelector), categorySelector, FallbackCategory, "category")

	if href, ok := card.Find(linkSelector).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
		c.URL = resolveHref(pageURL, strings.TrimSpace(href))
	} else {
		// No detail link: the listing page itself is the best URL we have.
		c.URL = pageURL
		e.log.Warn("could not extract job link", zap.String("page", pageURL))
	}
	return c
}

func (e *Extractor) fieldText(scope *goquery.Selection, selector, fallback, name string) domain.Field {
	text := strings.TrimSpace(scope.Find(selector).First().Text())
	if text == "" {
		e.log.Warn("could not extract field", zap.String("field", name))
		return domain.Field{Value: fallback, Fallback: true}
	}
	return domain.Field{Value: text}
}

// resolveDescription fills in c.Description, fetching the detail page
// when the card carried its own link. It also folds a real category
// into the description as a labeled annotation.
func (e *Extractor) resolveDescription(ctx context.Context, c *domain.Candidate, pageURL string) {
	desc := DescNone
	if c.URL != pageURL {
		desc = e.fetchDescription(ctx, c.URL)
	}
	if c.Category.Value != "" && !c.Category.Fallback {
		desc = "Category: " + c.Category.Value + "\n\n" + desc
	}
	c.Description = desc
}

func (e *Extractor) fetchDescription(ctx context.Context, url string) string {
	doc, err := e.src.Fetch(ctx, url, FetchWait{Settle: e.detailSettle})
	if err != nil {
		e.log.Warn("error accessing job url", zap.String("url", url), zap.Error(err))
		return DescLoadFailed
	}

	// Primary: the <ul> following the "Job Description" heading.
	var primary string
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if strings.TrimSpace(p.Text()) != "Job Description" {
			return true
		}
		primary = strings.TrimSpace(p.NextAllFiltered("ul").First().Text())
		return primary == ""
	})
	if primary != "" {
		return primary
	}

	for _, sel := range descAlternates {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}

	e.log.Warn("failed to extract description", zap.String("url", url))
	return DescNone
}
