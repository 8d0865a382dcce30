package comics

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"comixie/pkg/models"
)

// Repo is the persistence gateway for comics, chapters and genres. The three
// collections are independently writable; nothing here enforces referential
// integrity between them.
type Repo struct {
	comics   *mongo.Collection
	chapters *mongo.Collection
	genres   *mongo.Collection
}

func NewRepo(db *mongo.Database) *Repo {
	return &Repo{
		comics:   db.Collection("comics"),
		chapters: db.Collection("chapters"),
		genres:   db.Collection("genres"),
	}
}

func (r *Repo) GetComic(ctx context.Context, slug string) (*models.Comic, error) {
	var c models.Comic
	err := r.comics.FindOne(ctx, bson.M{"slug": slug}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get comic %s: %w", slug, err)
	}
	return &c, nil
}

// CreateComic inserts the comic under a freshly assigned id. Create is always
// an insert, never an upsert: any caller-supplied id is discarded.
func (r *Repo) CreateComic(ctx context.Context, c *models.Comic) (string, error) {
	c.ID = uuid.NewString()
	if _, err := r.comics.InsertOne(ctx, c); err != nil {
		return "", fmt.Errorf("create comic %s: %w", c.Slug, err)
	}
	return c.ID, nil
}

func (r *Repo) GetChapter(ctx context.Context, slug string) (*models.Chapter, error) {
	var ch models.Chapter
	err := r.chapters.FindOne(ctx, bson.M{"slug": slug}).Decode(&ch)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chapter %s: %w", slug, err)
	}
	return &ch, nil
}

func (r *Repo) CreateChapter(ctx context.Context, ch *models.Chapter) (string, error) {
	ch.ID = uuid.NewString()
	if _, err := r.chapters.InsertOne(ctx, ch); err != nil {
		return "", fmt.Errorf("create chapter %s: %w", ch.Slug, err)
	}
	return ch.ID, nil
}

// UpdateChapterImages overwrites the images field of the chapter with the
// given slug. Unconditional set: concurrent writers race and the last one
// wins, which is accepted behavior.
func (r *Repo) UpdateChapterImages(ctx context.Context, slug string, images []string) error {
	_, err := r.chapters.UpdateOne(ctx,
		bson.M{"slug": slug},
		bson.M{"$set": bson.M{"images": images}},
	)
	if err != nil {
		return fmt.Errorf("update chapter images %s: %w", slug, err)
	}
	return nil
}

func (r *Repo) ChaptersByComic(ctx context.Context, comicSlug string) ([]models.Chapter, error) {
	cur, err := r.chapters.Find(ctx, bson.M{"comic_slug": comicSlug})
	if err != nil {
		return nil, fmt.Errorf("list chapters of %s: %w", comicSlug, err)
	}
	chapters := []models.Chapter{}
	if err := cur.All(ctx, &chapters); err != nil {
		return nil, fmt.Errorf("decode chapters of %s: %w", comicSlug, err)
	}
	return chapters, nil
}

func (r *Repo) ListGenres(ctx context.Context, limit int64) ([]string, error) {
	cur, err := r.genres.Find(ctx, bson.M{}, options.Find().SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	var docs []models.Genre
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode genres: %w", err)
	}
	names := make([]string, 0, len(docs))
	for _, g := range docs {
		names = append(names, g.Name)
	}
	return names, nil
}

func (r *Repo) CountByGenre(ctx context.Context, genre string) (int64, error) {
	total, err := r.comics.CountDocuments(ctx, bson.M{"genres": genre})
	if err != nil {
		return 0, fmt.Errorf("count comics by genre %s: %w", genre, err)
	}
	return total, nil
}

func (r *Repo) ListByGenre(ctx context.Context, genre string, skip, limit int64) ([]models.Comic, error) {
	cur, err := r.comics.Find(ctx,
		bson.M{"genres": genre},
		options.Find().SetSkip(skip).SetLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list comics by genre %s: %w", genre, err)
	}
	out := []models.Comic{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode comics by genre %s: %w", genre, err)
	}
	return out, nil
}

// ListMissingCover returns stored comics without a cover image, for the
// backfill command.
func (r *Repo) ListMissingCover(ctx context.Context) ([]models.Comic, error) {
	cur, err := r.comics.Find(ctx, bson.M{"image": nil})
	if err != nil {
		return nil, fmt.Errorf("list comics missing cover: %w", err)
	}
	out := []models.Comic{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode comics missing cover: %w", err)
	}
	return out, nil
}

func (r *Repo) SetComicImage(ctx context.Context, slug, image string) error {
	_, err := r.comics.UpdateOne(ctx,
		bson.M{"slug": slug},
		bson.M{"$set": bson.M{"image": image}},
	)
	if err != nil {
		return fmt.Errorf("set comic image %s: %w", slug, err)
	}
	return nil
}
