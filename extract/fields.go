package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/growlog/models"
)

// dateStrategies reads a card timestamp from its date section. Newer
// markup puts the text next to a calendar svg, older markup in a bare div.
func dateStrategies(testid string) []Strategy {
	sec := `[data-testid="` + testid + `"]`
	return []Strategy{
		Text(sec + ` > div:has(svg)`),
		Text(sec + ` div:has(svg)`),
		Text(sec + ` div:not([class])`),
		Text(sec + ` div[class=""]`),
		Attr(sec+` time[datetime]`, "datetime"),
		Attr(`time[datetime]`, "datetime"),
	}
}

func dayCountStrategies(testid string) []Strategy {
	return []Strategy{
		Text(`[data-testid="` + testid + `"] span`),
		Text(`[data-testid$="-day-count"]`),
		Text(`.day-count`),
	}
}

var (
	activityDate     = dateStrategies("growlog-page-timeline-card-date")
	activityDayCount = dayCountStrategies("growlog-page-timeline-card-date")

	stageChangeDate     = dateStrategies("growlog-page-timeline-stage-change-date")
	stageChangeDayCount = dayCountStrategies("growlog-page-timeline-stage-change-date")

	stageChangeLabel = []Strategy{
		Text(`[data-testid="growlog-page-timeline-stage-change-stage"] div > div > span`),
		Text(`[data-testid="growlog-page-timeline-stage-change-stage"] span`),
		Text(`.stage-change-label`),
	}

	logItems = FirstNodes(
		`[data-testid="growlog-page-timeline-log-item"]`,
		`.timeline-log-item`,
		`dl > div`,
	)
	logLabel = []Strategy{
		Text(`[data-testid="growlog-page-timeline-log-item-label"]`),
		Text(`.log-item-label`),
		Text(`dt`),
	}
	logValue = []Strategy{
		Text(`[data-testid="growlog-page-timeline-log-item-value"]`),
		Text(`.log-item-value`),
		Text(`dd`),
	}
)

// Activity extracts one activity card. Only the timestamp is required;
// every other field degrades to empty.
func Activity(card *goquery.Selection, base *url.URL) (models.ActivityEvent, error) {
	ts, ok := First(card, activityDate...)
	if !ok {
		return models.ActivityEvent{}, &models.FieldError{Record: "activity", Field: "timestamp"}
	}
	day, _ := First(card, activityDayCount...)

	return models.ActivityEvent{
		Timestamp: ts,
		DayCount:  day,
		Actions:   Actions(card),
		Photos:    Photos(card, base),
		TreeLogs:  TreeLogs(card),
	}, nil
}

// TreeLogs reads the label/value measurements of a card. The first value
// seen for a label is kept.
func TreeLogs(card *goquery.Selection) map[string]string {
	var logs map[string]string
	logItems(card).Each(func(_ int, item *goquery.Selection) {
		label, ok := First(item, logLabel...)
		if !ok {
			return
		}
		value, ok := First(item, logValue...)
		if !ok {
			return
		}
		if logs == nil {
			logs = make(map[string]string)
		}
		if _, dup := logs[label]; !dup {
			logs[label] = value
		}
	})
	return logs
}

var (
	stageIcon = iconToken(`[data-testid="growlog-page-timeline-stage-change-stage"] i`)

	stageChangeState = []Strategy{
		stageIcon,
		iconToken(`i[class*="icon-"]`),
		SelfAttr("data-stage"),
		Attr(`[data-stage]`, "data-stage"),
		labelKeyword(stageChangeLabel),
	}

	knownStages = []string{"germination", "seedling", "vegetative", "flowering", "drying", "curing", "harvested"}

	utilityClass = regexp.MustCompile(`\btext-[a-z0-9-]+\b`)
)

// StageChange extracts one stage-change block. The timestamp and the plant
// state are required.
func StageChange(block *goquery.Selection) (models.StageChangeEvent, error) {
	ts, ok := First(block, stageChangeDate...)
	if !ok {
		return models.StageChangeEvent{}, &models.FieldError{Record: "stage_change", Field: "timestamp"}
	}
	state, ok := First(block, stageChangeState...)
	if !ok {
		return models.StageChangeEvent{}, &models.FieldError{Record: "stage_change", Field: "plant_state"}
	}
	day, _ := First(block, stageChangeDayCount...)
	label, _ := First(block, stageChangeLabel...)

	return models.StageChangeEvent{
		Timestamp:  ts,
		DayCount:   day,
		StageLabel: label,
		PlantState: CanonicalState(state),
	}, nil
}

// CanonicalState lowercases a state tag and drops icon prefixes and
// text-* utility classes left over from the markup.
func CanonicalState(raw string) string {
	s := strings.ToLower(raw)
	s = utilityClass.ReplaceAllString(s, "")
	s = strings.TrimPrefix(clean(s), "icon-")
	return clean(s)
}

// iconToken reads the state encoded in the first icon-* class token of the
// first element matching selector.
func iconToken(selector string) Strategy {
	attr := Attr(selector, "class")
	return func(s *goquery.Selection) (string, bool) {
		class, ok := attr(s)
		if !ok {
			return "", false
		}
		for _, tok := range strings.Fields(class) {
			if strings.HasPrefix(tok, "icon-") && len(tok) > len("icon-") {
				v := CanonicalState(tok)
				return v, v != ""
			}
		}
		return "", false
	}
}

// labelKeyword finds a known stage name in the transition label.
func labelKeyword(label []Strategy) Strategy {
	return func(s *goquery.Selection) (string, bool) {
		text, ok := First(s, label...)
		if !ok {
			return "", false
		}
		lower := strings.ToLower(text)
		for _, stage := range knownStages {
			if strings.Contains(lower, stage) {
				return stage, true
			}
		}
		return "", false
	}
}
