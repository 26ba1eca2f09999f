package scraper

import "sync"

// Document is a stabilised, fully-loaded growlog page. The live browser
// page behind it stays borrowed until Close is called.
type Document struct {
	// HTML is the rendered DOM after the last scroll.
	HTML string

	// Title is document.title, used when the page carries no heading.
	Title string

	// FinalURL is window.location.href after redirects; photo references
	// are resolved against it.
	FinalURL string

	// Scrolls counts the scroll-to-bottom actions that grew the page.
	Scrolls int

	// Stabilized is false when the loop hit a bound before the extent settled.
	Stabilized bool

	release func()
	once    sync.Once
}

// NewDocument wraps already-rendered HTML. release, if non-nil, runs once
// on Close.
func NewDocument(html, finalURL string, release func()) *Document {
	return &Document{
		HTML:       html,
		FinalURL:   finalURL,
		Stabilized: true,
		release:    release,
	}
}

// Close tears down the session that produced the document. It is safe to
// call more than once.
func (d *Document) Close() {
	d.once.Do(func() {
		if d.release != nil {
			d.release()
		}
	})
}
