package extract

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/growlog/models"
)

// Metadata groups reported in models.Metadata.Defaulted.
const (
	GroupStrain      = "strain"
	GroupBreeder     = "breeder"
	GroupEnvironment = "environment"
)

// Defaults substituted when a metadata group is absent from the document.
const (
	DefaultTitle   = "Growlog"
	DefaultBreeder = "Unknown breeder"
	DefaultStrain  = "Unknown strain"
)

// DefaultEnvironment returns the environment used when the details panel
// yields no environment fields.
func DefaultEnvironment() map[string]string {
	return map[string]string{
		"Name":             "Hydro mars",
		"Type":             "Indoor",
		"Exposure Time":    "16 Hours",
		"Environment Size": "80 cm x 160 cm x 80 cm",
		"Lights":           "LED - 150 W",
	}
}

type envField struct {
	key        string
	strategies []Strategy
}

func envValue(testid, value string) []Strategy {
	sec := `[data-testid="growlog-page-environment-details-` + testid + `"]`
	return []Strategy{
		Text(sec + ` span.text-lg`),
		Text(sec + ` ` + value),
	}
}

var (
	titleStrategies = []Strategy{
		Text(`h1.text-2xl`),
		Text(`h1`),
	}

	strainName = []Strategy{
		Text(`[data-testid="growlog-page-strain-breeder"] span.text-lg.font-bold`),
		Text(`[data-testid="growlog-page-strain-breeder-strain-name-value"]`),
		Text(`.strain-name`),
	}
	breederName = []Strategy{
		Text(`[data-testid="growlog-page-strain-breeder-breeder-name-value"]`),
		Text(`[data-testid="growlog-page-strain-breeder"] span.text-sm.font-bold`),
		Text(`.breeder-name`),
	}

	stageItems = FirstNodes(
		`[data-testid="growlog-page-tree-stages-item"]`,
		`.tree-stages-item`,
	)
	stageName = []Strategy{
		Text(`[data-testid="growlog-page-tree-stages-item-name-value"]`),
		Text(`.tree-stages-item-name`),
	}
	stageDate = []Strategy{
		Text(`[data-testid="growlog-page-tree-stages-item-name-date"] span`),
		Text(`[data-testid="growlog-page-tree-stages-item-name-date"]`),
		Text(`.tree-stages-item-date`),
	}

	currentStage = []Strategy{
		Text(`[data-testid="growlog-page-details-stage"] span.capitalize`),
		Text(`[data-testid="growlog-page-tree-stages-item-name-value"].text-primary`),
	}

	environmentFields = []envField{
		{"Name", []Strategy{
			Text(`[data-testid="growlog-page-environment-details-name"] span[data-testid="growlog-page-environment-details-name"]`),
			Text(`span[data-testid="growlog-page-environment-details-name"]`),
		}},
		{"Type", envValue("type", `[data-testid="growlog-page-environment-details-type-value"]`)},
		{"Exposure Time", envValue("exposure-time", `[data-testid="growlog-page-environment-details-exposure-time-value"]`)},
		{"Environment Size", envValue("indoor-size", `[data-testid="growlog-page-environment-details-indoor-size-value"]`)},
		{"Lights", []Strategy{
			Joined(`[data-testid="growlog-page-environment-details-lights-value"] p`, " | "),
			Joined(`[data-testid="growlog-page-environment-details-lights-item"]`, " | "),
			Text(`[data-testid="growlog-page-environment-details-lights"] span.text-lg`),
		}},
	}

	medium = []Strategy{
		Text(`span[data-testid="growlog-page-medium-nutrients-name-value-name"]`),
		Text(`[data-testid="growlog-page-medium-name"]`),
	}

	environmentSection = cascadia.MustCompile(`[data-testid="growlog-page-environment-details"]`)
)

// Title reads the page heading.
func Title(root *goquery.Selection) (string, bool) {
	return First(root, titleStrategies...)
}

// Metadata reads the details panel. Absent strain and environment groups
// fall back to defaults and are listed in Defaulted. Title is left for
// the caller, which knows the loader's document title.
func Metadata(panel *goquery.Selection) models.Metadata {
	md := models.Metadata{
		Stages:      []models.Stage{},
		Environment: map[string]string{},
	}
	if panel == nil {
		panel = &goquery.Selection{}
	}

	if name, ok := First(panel, strainName...); ok {
		md.Strain.Name = name
	} else {
		md.Strain.Name = DefaultStrain
		md.Defaulted = append(md.Defaulted, GroupStrain)
	}
	if brand, ok := First(panel, breederName...); ok {
		md.Strain.Brand = brand
	} else {
		md.Strain.Brand = DefaultBreeder
		md.Defaulted = append(md.Defaulted, GroupBreeder)
	}

	stageItems(panel).Each(func(_ int, item *goquery.Selection) {
		name, ok := First(item, stageName...)
		if !ok {
			return
		}
		date, _ := First(item, stageDate...)
		md.Stages = append(md.Stages, models.Stage{Name: name, Date: date})
	})

	if cur, ok := First(panel, currentStage...); ok {
		md.CurrentStage = CanonicalState(cur)
	}

	env := panel
	if sec := panel.FindMatcher(environmentSection).First(); sec.Length() > 0 {
		env = sec
	}
	for _, f := range environmentFields {
		if v, ok := First(env, f.strategies...); ok {
			md.Environment[f.key] = v
		}
	}
	if len(md.Environment) == 0 {
		md.Environment = DefaultEnvironment()
		md.Defaulted = append(md.Defaulted, GroupEnvironment)
	}
	if m, ok := First(panel, medium...); ok {
		md.Environment["Medium"] = m
	}

	return md
}
