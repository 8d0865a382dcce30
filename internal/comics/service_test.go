package comics

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"comixie/internal/fetch"
	"comixie/pkg/models"
)

const testBase = "https://source.test"

type stubFetcher struct {
	pages    map[string][]byte
	postBody []byte

	getCalls  int
	postCalls int
	postURL   string
}

func (f *stubFetcher) Get(_ context.Context, url string) ([]byte, error) {
	f.getCalls++
	if body, ok := f.pages[url]; ok {
		return body, nil
	}
	return nil, &fetch.TransportError{URL: url, StatusCode: 404}
}

func (f *stubFetcher) Post(_ context.Context, url string) ([]byte, error) {
	f.postCalls++
	f.postURL = url
	return f.postBody, nil
}

type memGateway struct {
	comics   map[string]models.Comic
	chapters map[string]models.Chapter
	genres   []string
}

func newMemGateway() *memGateway {
	return &memGateway{
		comics:   map[string]models.Comic{},
		chapters: map[string]models.Chapter{},
	}
}

func (g *memGateway) GetComic(_ context.Context, slug string) (*models.Comic, error) {
	if c, ok := g.comics[slug]; ok {
		return &c, nil
	}
	return nil, nil
}

func (g *memGateway) CreateComic(_ context.Context, c *models.Comic) (string, error) {
	c.ID = "comic-" + c.Slug
	g.comics[c.Slug] = *c
	return c.ID, nil
}

func (g *memGateway) ChaptersByComic(_ context.Context, comicSlug string) ([]models.Chapter, error) {
	out := []models.Chapter{}
	for _, ch := range g.chapters {
		if ch.ComicSlug == comicSlug {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (g *memGateway) GetChapter(_ context.Context, slug string) (*models.Chapter, error) {
	if ch, ok := g.chapters[slug]; ok {
		return &ch, nil
	}
	return nil, nil
}

func (g *memGateway) CreateChapter(_ context.Context, ch *models.Chapter) (string, error) {
	ch.ID = "chapter-" + ch.Slug
	g.chapters[ch.Slug] = *ch
	return ch.ID, nil
}

func (g *memGateway) UpdateChapterImages(_ context.Context, slug string, images []string) error {
	ch, ok := g.chapters[slug]
	if !ok {
		return nil
	}
	ch.Images = images
	g.chapters[slug] = ch
	return nil
}

func (g *memGateway) ListGenres(_ context.Context, limit int64) ([]string, error) {
	if int64(len(g.genres)) > limit {
		return g.genres[:limit], nil
	}
	return g.genres, nil
}

func (g *memGateway) CountByGenre(_ context.Context, genre string) (int64, error) {
	n, _ := g.listByGenre(genre)
	return int64(n), nil
}

func (g *memGateway) ListByGenre(_ context.Context, genre string, skip, limit int64) ([]models.Comic, error) {
	_, all := g.listByGenre(genre)
	if skip >= int64(len(all)) {
		return []models.Comic{}, nil
	}
	all = all[skip:]
	if limit < int64(len(all)) {
		all = all[:limit]
	}
	return all, nil
}

func (g *memGateway) listByGenre(genre string) (int, []models.Comic) {
	out := []models.Comic{}
	for _, c := range g.comics {
		for _, gn := range c.Genres {
			if gn == genre {
				out = append(out, c)
				break
			}
		}
	}
	return len(out), out
}

type memCache struct {
	data map[string][]byte
	sets int
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, payload []byte, _ time.Duration) error {
	m.sets++
	m.data[key] = payload
	return nil
}

func (m *memCache) expire(key string) {
	delete(m.data, key)
}

const comicDetailPage = `<html><body>
<center>
  <div><h1><b>Batman (2016)</b></h1></div>
  <p><img src="https://cdn.example/covers/batman-2016.jpg"/></p>
  <div><div><p>Genres: <strong>Action, Adventure</strong> Publisher: <strong>DC Comics</strong></p></div></div>
</center>
<div class="b"><span>Description</span><br/>A dark vigilante watches over the city.<br/>Issue list below.</div>
<ul class="list-story">
  <li><a href="https://source.test/batman-2016-issue-2/">Batman #2</a></li>
  <li><a href="https://source.test/batman-2016-issue-1/">Batman #1</a></li>
</ul>
</body></html>`

func TestDetailMemoizes(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string][]byte{
		testBase + "/category/batman-2016/": []byte(comicDetailPage),
	}}
	store := newMemGateway()
	svc := NewService(fetcher, store, newMemCache(), testBase)

	first, err := svc.Detail(context.Background(), "batman-2016")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.getCalls != 1 {
		t.Fatalf("fetch calls = %d, want 1", fetcher.getCalls)
	}
	if first.Title == nil || *first.Title != "Batman (2016)" {
		t.Errorf("title = %v", first.Title)
	}
	if len(first.Chapters) != 2 {
		t.Fatalf("chapters = %d, want 2", len(first.Chapters))
	}
	if first.Chapters[0].ComicSlug != "batman-2016" {
		t.Errorf("comic slug back-reference = %q", first.Chapters[0].ComicSlug)
	}

	// Second lookup must come from the store, not a re-scrape.
	second, err := svc.Detail(context.Background(), "batman-2016")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.getCalls != 1 {
		t.Errorf("fetch calls after second lookup = %d, want 1", fetcher.getCalls)
	}
	if second.Slug != "batman-2016" || len(second.Chapters) != 2 {
		t.Errorf("stored detail = %+v", second)
	}
}

func TestDetailNotFound(t *testing.T) {
	svc := NewService(&stubFetcher{}, newMemGateway(), newMemCache(), testBase)

	_, err := svc.Detail(context.Background(), "no-such-comic")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

const chapterPage = `<html><body><center>
<p><img src="https://cdn.example/p1.jpg"/></p>
<p><img src="https://cdn.example/p2.jpg"/></p>
</center></body></html>`

func TestReadMemoizesOncePopulated(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string][]byte{
		testBase + "/batman-2016-issue-1/": []byte(chapterPage),
	}}
	store := newMemGateway()
	svc := NewService(fetcher, store, newMemCache(), testBase)

	first, err := svc.Read(context.Background(), "batman-2016-issue-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Images) != 2 {
		t.Fatalf("images = %v", first.Images)
	}
	if fetcher.getCalls != 1 {
		t.Fatalf("fetch calls = %d, want 1", fetcher.getCalls)
	}

	second, err := svc.Read(context.Background(), "batman-2016-issue-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.getCalls != 1 {
		t.Errorf("fetch calls after second read = %d, want 1", fetcher.getCalls)
	}
	if len(second.Images) != 2 {
		t.Errorf("images = %v", second.Images)
	}
}

func TestReadRetriesWhileImagesEmpty(t *testing.T) {
	// A chapter record without images, e.g. created by a detail scrape, must
	// re-attempt the fetch on every read until images populate.
	emptyPage := `<html><body><center><p>no images yet</p></center></body></html>`
	fetcher := &stubFetcher{pages: map[string][]byte{
		testBase + "/spawn-issue-1/": []byte(emptyPage),
	}}
	store := newMemGateway()
	store.chapters["spawn-issue-1"] = models.Chapter{
		Slug:      "spawn-issue-1",
		ComicSlug: "spawn",
		Name:      "Spawn #1",
		URL:       testBase + "/spawn-issue-1/",
	}
	svc := NewService(fetcher, store, newMemCache(), testBase)

	if _, err := svc.Read(context.Background(), "spawn-issue-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Read(context.Background(), "spawn-issue-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.getCalls != 2 {
		t.Errorf("fetch calls = %d, want 2", fetcher.getCalls)
	}
}

func TestReadNotFound(t *testing.T) {
	svc := NewService(&stubFetcher{}, newMemGateway(), newMemCache(), testBase)

	_, err := svc.Read(context.Background(), "missing-chapter")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestHomeListingCached(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string][]byte{
		testBase + "/page/1/": []byte(homeListingPage),
	}}
	listings := newMemCache()
	svc := NewService(fetcher, newMemGateway(), listings, testBase)

	first, err := svc.Home(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.getCalls != 1 || listings.sets != 1 {
		t.Fatalf("fetch calls = %d, cache sets = %d", fetcher.getCalls, listings.sets)
	}
	if first.TotalComics != 1 || first.Comics[0].Slug != "spawn" {
		t.Errorf("listing = %+v", first)
	}

	cached := bytes.Clone(listings.data["home_1"])

	second, err := svc.Home(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.getCalls != 1 {
		t.Errorf("fetch calls after cache hit = %d, want 1", fetcher.getCalls)
	}
	if second.TotalComics != first.TotalComics {
		t.Errorf("cached listing differs: %+v vs %+v", second, first)
	}

	// After expiry, exactly one re-fetch regenerates a byte-identical payload.
	listings.expire("home_1")
	if _, err := svc.Home(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.getCalls != 2 || listings.sets != 2 {
		t.Errorf("fetch calls = %d, cache sets = %d", fetcher.getCalls, listings.sets)
	}
	if !bytes.Equal(cached, listings.data["home_1"]) {
		t.Errorf("regenerated payload differs from original")
	}
}

const homeListingPage = `<html><body>
<div id="post-7" class="post-7 post">
  <a href="https://source.test/category/spawn/"><img src="https://cdn.example/spawn.jpg"/></a>
  <a class="front-link" href="https://source.test/category/spawn/">Spawn</a>
  <center><span>August 21, 2026</span></center>
</div>
</body></html>`

func TestSearchBuildsQueryURL(t *testing.T) {
	fetcher := &stubFetcher{postBody: []byte(`"<a href=\"https://source.test/category/spawn/\">Spawn</a>"`)}
	svc := NewService(fetcher, newMemGateway(), newMemCache(), testBase)

	results, err := svc.Search(context.Background(), "spawn origins")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.postURL != testBase+"/?story=spawn+origins&s=&type=comic" {
		t.Errorf("post url = %q", fetcher.postURL)
	}
	if len(results) != 1 || results[0].Slug != "spawn" {
		t.Errorf("results = %+v", results)
	}
}

func TestComicsByGenrePagination(t *testing.T) {
	store := newMemGateway()
	title := "Spawn"
	store.comics["spawn"] = models.Comic{Slug: "spawn", Title: &title, Genres: []string{"Action"}}
	svc := NewService(&stubFetcher{}, store, newMemCache(), testBase)

	page, err := svc.ComicsByGenre(context.Background(), "Action", 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.TotalResults != 1 || len(page.Results) != 1 || page.Results[0].Slug != "spawn" {
		t.Errorf("page = %+v", page)
	}

	empty, err := svc.ComicsByGenre(context.Background(), "Action", 2, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(empty.Results) != 0 {
		t.Errorf("page 2 results = %+v", empty.Results)
	}
}
