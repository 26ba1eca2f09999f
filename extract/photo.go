package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/growlog/models"
)

var (
	photoImages = FirstNodes(
		`[data-testid="growlog-page-timeline-photos-item"] img`,
		`[data-testid="growlog-page-timeline-photos"] img`,
		`img.timeline-photo`,
	)
	photoSource = []Strategy{
		SelfAttr("src"),
		SelfAttr("data-src"),
		srcsetFirst,
	}
	galleryImages = cascadia.MustCompile(`img.growlog-photo`)

	thumbToken = regexp.MustCompile(`_thumb@\d+_`)
)

// Photos returns the distinct photo references of a card as absolute,
// full-size URLs.
func Photos(card *goquery.Selection, base *url.URL) []models.Photo {
	return collectPhotos(photoImages(card), base)
}

// GalleryPhotos returns the page-level gallery images.
func GalleryPhotos(root *goquery.Selection, base *url.URL) []models.Photo {
	return collectPhotos(root.FindMatcher(galleryImages), base)
}

func collectPhotos(imgs *goquery.Selection, base *url.URL) []models.Photo {
	var out []models.Photo
	seen := make(map[string]struct{})
	imgs.Each(func(_ int, img *goquery.Selection) {
		raw, ok := First(img, photoSource...)
		if !ok || strings.HasPrefix(raw, "data:") {
			return
		}
		ref := NormalizePhotoURL(raw, base)
		if ref == "" {
			return
		}
		if _, dup := seen[ref]; dup {
			return
		}
		seen[ref] = struct{}{}
		out = append(out, models.Photo{URL: ref})
	})
	return out
}

// NormalizePhotoURL resolves raw against base and rewrites a thumbnail
// reference ("x_thumb@480_y.jpg") to its full-size form ("x_y.jpg").
// It returns "" when raw is not a usable URL.
func NormalizePhotoURL(raw string, base *url.URL) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return thumbToken.ReplaceAllString(u.String(), "_")
}

// srcsetFirst reads the first candidate URL of a srcset attribute.
func srcsetFirst(s *goquery.Selection) (string, bool) {
	set, ok := s.Attr("srcset")
	if !ok {
		return "", false
	}
	first, _, _ := strings.Cut(strings.TrimSpace(set), ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}
