// Package pdf composes downloaded page images into a fixed-geometry,
// multi-page document.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"sync"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"

	"github.com/jung-kurt/gofpdf"
)

// Page geometry in unitless design points, a 2:3 portrait suited to typical
// comic panel proportions.
const (
	DefaultPageWidth  = 200.0
	DefaultPageHeight = 300.0
)

type ImageFetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Composer renders one page per source image. Images are fetched and decoded
// concurrently, but pages are assembled strictly in input order.
type Composer struct {
	fetcher ImageFetcher
	PageW   float64
	PageH   float64
	Workers int
}

func NewComposer(fetcher ImageFetcher) *Composer {
	return &Composer{
		fetcher: fetcher,
		PageW:   DefaultPageWidth,
		PageH:   DefaultPageHeight,
		Workers: 4,
	}
}

type preparedPage struct {
	png  []byte
	w, h int
}

// Compose fetches every image and emits a document covering the ones that
// survived. A single broken image is skipped with a log line; zero usable
// images is an error, never an empty document.
func (c *Composer) Compose(ctx context.Context, imageURLs []string) ([]byte, error) {
	if len(imageURLs) == 0 {
		return nil, errors.New("no images to compose")
	}

	pages := make([]*preparedPage, len(imageURLs))

	workers := c.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(imageURLs) {
		workers = len(imageURLs)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				p, err := c.prepare(ctx, imageURLs[i])
				if err != nil {
					log.Printf("[pdf] page %d skipped: %v", i+1, err)
					continue
				}
				pages[i] = p
			}
		}()
	}
	for i := range imageURLs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	doc := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: c.PageW, Ht: c.PageH},
	})

	composed := 0
	for i, p := range pages {
		if p == nil {
			continue
		}
		doc.AddPage()

		w, h, x, y := letterbox(float64(p.w), float64(p.h), c.PageW, c.PageH)
		name := fmt.Sprintf("page-%d", i)
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(p.png))
		doc.ImageOptions(name, x, y, w, h, false, opts, 0, "")
		composed++
	}
	if composed == 0 {
		return nil, errors.New("no images could be fetched")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// prepare fetches one image and re-encodes it through PNG: the document
// writer does not speak every source format the site serves.
func (c *Composer) prepare(ctx context.Context, url string) (*preparedPage, error) {
	raw, err := c.fetcher.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("re-encode %s: %w", url, err)
	}

	b := img.Bounds()
	return &preparedPage{png: buf.Bytes(), w: b.Dx(), h: b.Dy()}, nil
}

// letterbox scales an image to fit the page while preserving its aspect
// ratio, centered with uniform margins on the constrained axis.
func letterbox(imgW, imgH, pageW, pageH float64) (w, h, x, y float64) {
	aspect := imgW / imgH
	if aspect > pageW/pageH {
		w = pageW
		h = pageW / aspect
	} else {
		h = pageH
		w = pageH * aspect
	}
	x = (pageW - w) / 2
	y = (pageH - h) / 2
	return w, h, x, y
}
