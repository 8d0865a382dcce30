package comics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"comixie/internal/cache"
	"comixie/internal/extract"
	"comixie/internal/fetch"
	"comixie/pkg/models"
)

// ErrNotFound covers slugs absent from the store whose live fetch also came
// back non-2xx.
var ErrNotFound = errors.New("not found")

const homeTTL = 6 * time.Hour

type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
	Post(ctx context.Context, url string) ([]byte, error)
}

// Gateway is the slice of the persistence layer the read paths need.
type Gateway interface {
	GetComic(ctx context.Context, slug string) (*models.Comic, error)
	CreateComic(ctx context.Context, c *models.Comic) (string, error)
	ChaptersByComic(ctx context.Context, comicSlug string) ([]models.Chapter, error)
	GetChapter(ctx context.Context, slug string) (*models.Chapter, error)
	CreateChapter(ctx context.Context, ch *models.Chapter) (string, error)
	UpdateChapterImages(ctx context.Context, slug string, images []string) error
	ListGenres(ctx context.Context, limit int64) ([]string, error)
	CountByGenre(ctx context.Context, genre string) (int64, error)
	ListByGenre(ctx context.Context, genre string, skip, limit int64) ([]models.Comic, error)
}

// ListingCache is the TTL tier in front of the home listing.
type ListingCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// Service orchestrates the read-through pipelines: store first, live fetch on
// a miss, persist before returning. A stored record always wins over a live
// fetch, stale or not.
type Service struct {
	fetcher Fetcher
	store   Gateway
	cache   ListingCache
	baseURL string
}

func NewService(fetcher Fetcher, store Gateway, listings ListingCache, baseURL string) *Service {
	return &Service{
		fetcher: fetcher,
		store:   store,
		cache:   listings,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Search queries the site's search endpoint. The endpoint answers POSTs to a
// query-string URL; results are never persisted.
func (s *Service) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	u := fmt.Sprintf("%s/?story=%s&s=&type=comic", s.baseURL, url.QueryEscape(query))
	body, err := s.fetcher.Post(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return extract.SearchResults(body), nil
}

// Detail is a comic record with its chapter list embedded.
type Detail struct {
	models.Comic
	Chapters []models.Chapter `json:"chapters"`
}

// Detail returns the stored comic when present, otherwise scrapes the series
// page, persists the comic and its chapter list, and returns the fresh
// record. Stored records are never re-scraped.
func (s *Service) Detail(ctx context.Context, slug string) (*Detail, error) {
	c, err := s.store.GetComic(ctx, slug)
	if err != nil {
		return nil, err
	}
	if c != nil {
		chapters, err := s.store.ChaptersByComic(ctx, slug)
		if err != nil {
			return nil, err
		}
		return &Detail{Comic: *c, Chapters: chapters}, nil
	}

	pageURL := s.baseURL + "/category/" + slug + "/"
	body, err := s.fetcher.Get(ctx, pageURL)
	if err != nil {
		return nil, notFoundOnStatus(err)
	}

	d, err := extract.ParseComicDetail(body)
	if err != nil {
		return nil, err
	}

	comic := models.Comic{
		Slug:        slug,
		URL:         pageURL,
		Title:       d.Title,
		Genres:      d.Genres,
		Publisher:   d.Publisher,
		Description: d.Description,
		Image:       d.Image,
	}
	if _, err := s.store.CreateComic(ctx, &comic); err != nil {
		return nil, err
	}

	chapters := make([]models.Chapter, 0, len(d.Chapters))
	for _, ref := range d.Chapters {
		existing, err := s.store.GetChapter(ctx, ref.Slug)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			chapters = append(chapters, *existing)
			continue
		}
		ch := models.Chapter{Slug: ref.Slug, ComicSlug: slug, Name: ref.Name, URL: ref.URL}
		if _, err := s.store.CreateChapter(ctx, &ch); err != nil {
			return nil, err
		}
		chapters = append(chapters, ch)
	}

	return &Detail{Comic: comic, Chapters: chapters}, nil
}

// Read returns a chapter with its page images. A chapter whose images are
// already populated is served from the store; one that exists but never got
// images re-attempts the fetch. Concurrent first reads race on the image
// update and the last writer wins.
func (s *Service) Read(ctx context.Context, slug string) (*models.Chapter, error) {
	ch, err := s.store.GetChapter(ctx, slug)
	if err != nil {
		return nil, err
	}
	if ch != nil && len(ch.Images) > 0 {
		return ch, nil
	}

	pageURL := s.baseURL + "/" + slug + "/"
	body, err := s.fetcher.Get(ctx, pageURL)
	if err != nil {
		return nil, notFoundOnStatus(err)
	}

	images, err := extract.ChapterImages(body)
	if err != nil {
		return nil, err
	}

	if ch == nil {
		// First sight of this chapter outside any detail scrape: the back
		// reference is unknown and stays empty.
		ch = &models.Chapter{Slug: slug, Name: slug, URL: pageURL}
		if _, err := s.store.CreateChapter(ctx, ch); err != nil {
			return nil, err
		}
	}
	if err := s.store.UpdateChapterImages(ctx, slug, images); err != nil {
		return nil, err
	}
	ch.Images = images
	return ch, nil
}

// Home serves one home listing page through the TTL cache. Cache failures
// degrade to a live fetch, never to a request failure.
func (s *Service) Home(ctx context.Context, page int) (*models.HomeListing, error) {
	key := cache.HomeKey(page)

	payload, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Printf("[comics] home cache read failed: %v", err)
	}
	if ok {
		var listing models.HomeListing
		if err := json.Unmarshal(payload, &listing); err == nil {
			return &listing, nil
		}
		log.Printf("[comics] home cache payload corrupt for %s, refetching", key)
	}

	body, err := s.fetcher.Get(ctx, fmt.Sprintf("%s/page/%d/", s.baseURL, page))
	if err != nil {
		return nil, fmt.Errorf("home page %d: %w", page, err)
	}
	entries, err := extract.HomeListing(body)
	if err != nil {
		return nil, err
	}

	listing := &models.HomeListing{
		Page:        page,
		TotalComics: len(entries),
		Comics:      entries,
	}
	if payload, err := json.Marshal(listing); err == nil {
		if err := s.cache.Set(ctx, key, payload, homeTTL); err != nil {
			log.Printf("[comics] home cache write failed: %v", err)
		}
	}
	return listing, nil
}

func (s *Service) Genres(ctx context.Context) ([]string, error) {
	return s.store.ListGenres(ctx, 20)
}

// GenrePage is one page of stored comics carrying a given genre.
type GenrePage struct {
	Page         int                   `json:"page"`
	TotalResults int64                 `json:"total_results"`
	Results      []models.ComicSummary `json:"results"`
}

func (s *Service) ComicsByGenre(ctx context.Context, genre string, page, perPage int) (*GenrePage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	total, err := s.store.CountByGenre(ctx, genre)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListByGenre(ctx, genre, int64((page-1)*perPage), int64(perPage))
	if err != nil {
		return nil, err
	}

	results := make([]models.ComicSummary, 0, len(items))
	for _, c := range items {
		results = append(results, models.ComicSummary{
			Slug:        c.Slug,
			Title:       c.Title,
			URL:         c.URL,
			Description: c.Description,
			Publisher:   c.Publisher,
			Image:       c.Image,
		})
	}

	return &GenrePage{Page: page, TotalResults: total, Results: results}, nil
}

// notFoundOnStatus maps an upstream non-2xx answer to ErrNotFound; transport
// failures pass through unchanged.
func notFoundOnStatus(err error) error {
	var te *fetch.TransportError
	if errors.As(err, &te) && te.StatusCode != 0 {
		return ErrNotFound
	}
	return err
}
