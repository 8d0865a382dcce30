package models

// Comic is the stored form of one scraped series page.
//
// Only slug and url are guaranteed: every other field is whatever the source
// page happened to expose, so absent values stay nil and serialize as null.
type Comic struct {
	ID          string   `bson:"_id,omitempty" json:"_id,omitempty"`
	Slug        string   `bson:"slug" json:"slug"`
	URL         string   `bson:"url" json:"url"`
	Title       *string  `bson:"title" json:"title"`
	Genres      []string `bson:"genres" json:"genres"`
	Publisher   *string  `bson:"publisher" json:"publisher"`
	Description *string  `bson:"description" json:"description"`
	Image       *string  `bson:"image" json:"image"`
}

// Chapter belongs to a comic by slug only; the back-reference is never
// validated against the comics collection. Images is empty until the first
// successful read and is the only field ever updated in place.
type Chapter struct {
	ID        string   `bson:"_id,omitempty" json:"_id,omitempty"`
	Slug      string   `bson:"slug" json:"slug"`
	ComicSlug string   `bson:"comic_slug" json:"comic_slug"`
	Name      string   `bson:"name" json:"name"`
	URL       string   `bson:"url" json:"url"`
	Images    []string `bson:"images" json:"images"`
}

// ChapterRef is the lightweight chapter entry embedded in a comic detail
// response, before any chapter record exists.
type ChapterRef struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// SearchResult is one hit from the site's search endpoint.
type SearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Slug  string `json:"slug"`
}

// ListingEntry is one comic teaser on the paginated home listing.
type ListingEntry struct {
	URL   string `json:"url"`
	Slug  string `json:"slug"`
	Image string `json:"image"`
	Name  string `json:"name"`
	Date  string `json:"date"`
}

// HomeListing is the cached home-page payload, keyed by page number in the
// cache tier and regenerated after TTL expiry.
type HomeListing struct {
	Page        int            `json:"page"`
	TotalComics int            `json:"total_comics"`
	Comics      []ListingEntry `json:"comics"`
}

// ComicSummary is the shape of one result on a genre listing page.
type ComicSummary struct {
	Slug        string  `json:"slug"`
	Title       *string `json:"title"`
	URL         string  `json:"url"`
	Description *string `json:"description"`
	Publisher   *string `json:"publisher"`
	Image       *string `json:"image"`
}

// Genre is a document in the genres collection, seeded out-of-band.
type Genre struct {
	Name string `bson:"name" json:"name"`
}
