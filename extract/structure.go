package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var (
	activityNodes = FirstNodes(
		`div[data-testid="growlog-page-timeline-card"]`,
		`[data-testid="timeline-card"]`,
		`.growlog-timeline-card`,
	)
	stageChangeNodes = FirstNodes(
		`div[data-testid="growlog-page-timeline-stage-change"]`,
		`[data-testid="timeline-stage-change"]`,
		`.growlog-timeline-stage-change`,
	)
	panelNodes = FirstNodes(
		`[data-testid="growlog-page-details"]`,
		`[data-testid="growlog-page-sidebar"]`,
		`aside.growlog-details`,
	)

	// panelMarkers identifies a details panel that was rendered without a
	// wrapping container.
	panelMarkers = cascadia.MustCompile(`[data-testid="growlog-page-strain-breeder"], ` +
		`[data-testid="growlog-page-tree-stages"], ` +
		`[data-testid="growlog-page-environment-details"], ` +
		`[data-testid="growlog-page-details-stage"]`)
)

// Groups are the node groups of one growlog document. A group that is not
// present in the document is an empty selection.
type Groups struct {
	Activities   *goquery.Selection
	StageChanges *goquery.Selection
	Panel        *goquery.Selection
	Root         *goquery.Selection
}

// Parse builds a queryable document from rendered HTML.
func Parse(rendered string) (*goquery.Document, error) {
	node, err := html.Parse(strings.NewReader(rendered))
	if err != nil {
		return nil, fmt.Errorf("parse rendered html: %w", err)
	}
	return goquery.NewDocumentFromNode(node), nil
}

// Partition splits a document into activity cards, stage-change blocks and
// the metadata panel.
func Partition(doc *goquery.Document) Groups {
	root := doc.Selection
	g := Groups{
		Activities:   activityNodes(root),
		StageChanges: stageChangeNodes(root),
		Panel:        panelNodes(root).First(),
		Root:         root,
	}
	if g.Panel.Length() == 0 && root.FindMatcher(panelMarkers).Length() > 0 {
		g.Panel = root
	}
	return g
}
