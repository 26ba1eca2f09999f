package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/growlog/models"
)

var (
	reminderItems = FirstNodes(
		`[data-testid="growlog-page-timeline-reminder-item"]`,
		`.timeline-reminder-item`,
	)
	reminderLabel = []Strategy{
		Text(`[data-testid="growlog-page-timeline-reminder-item-name"]`),
		Text(`.reminder-item-name`),
	}
	reminderDetails = FirstNodes(
		`[data-testid^="growlog-page-timeline-reminder-extra-data"][data-testid$="-value"]`,
		`.reminder-item-value`,
	)
	reminderMarker = []Strategy{
		SelfAttr("data-reminder-type"),
		Attr(`[data-reminder-type]`, "data-reminder-type"),
		iconToken(`i[class*="icon-"]`),
	}

	wateringWords = []string{"water", "irrigat"}
	nutrientWords = []string{"nutri", "feed", "fertil"}

	volumePattern       = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(ml|cl|dl|litres?|liters?|l|gal|oz)\b`)
	camelBoundary       = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	nutrientBoilerplate = regexp.MustCompile(`(?i)\b(nutrients?|fertili[sz]ers?|added|feeding)\b:?`)
)

// Actions classifies every reminder item of a card, in markup order.
// Items with neither a label nor a detail are skipped.
func Actions(card *goquery.Selection) []models.Action {
	var out []models.Action
	reminderItems(card).Each(func(_ int, item *goquery.Selection) {
		if a, ok := action(item); ok {
			out = append(out, a)
		}
	})
	return out
}

func action(item *goquery.Selection) (models.Action, bool) {
	label, _ := First(item, reminderLabel...)
	details := texts(reminderDetails(item))

	marker, ok := First(item, reminderMarker...)
	if !ok {
		marker = label
	}

	switch Classify(marker) {
	case models.ActionWatering:
		a := models.Action{Kind: models.ActionWatering, Label: label}
		if vol, ok := Volume(strings.Join(append(details, label), " ")); ok {
			a.Details = []string{vol}
		}
		return a, true
	case models.ActionNutrient:
		a := models.Action{Kind: models.ActionNutrient, Label: label}
		for _, d := range details {
			if n := NormalizeNutrient(d); n != "" {
				a.Details = append(a.Details, n)
			}
		}
		return a, true
	default:
		if label == "" {
			return models.Action{}, false
		}
		return models.Action{Kind: models.ActionGeneric, Label: label, Details: details}, true
	}
}

// Classify maps a reminder type marker, icon token or label to an action kind.
func Classify(marker string) models.ActionKind {
	m := strings.ToLower(marker)
	switch {
	case containsAny(m, wateringWords):
		return models.ActionWatering
	case containsAny(m, nutrientWords):
		return models.ActionNutrient
	default:
		return models.ActionGeneric
	}
}

// Volume finds the first numeric volume in s and renders it compactly
// ("2 L" → "2l", "1,5 litres" → "1.5l").
func Volume(s string) (string, bool) {
	m := volumePattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	unit := strings.ToLower(m[2])
	if strings.HasPrefix(unit, "lit") {
		unit = "l"
	}
	return strings.Replace(m[1], ",", ".", 1) + unit, true
}

// NormalizeNutrient splits concatenated product names, drops boilerplate
// words and collapses whitespace.
func NormalizeNutrient(s string) string {
	s = camelBoundary.ReplaceAllString(s, "$1 $2")
	s = nutrientBoilerplate.ReplaceAllString(s, " ")
	return strings.Trim(clean(s), " :-,")
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
