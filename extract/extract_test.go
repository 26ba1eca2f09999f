package extract

import (
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/growlog/models"
)

func loadFixture(t *testing.T) Groups {
	t.Helper()
	raw, err := os.ReadFile("testdata/growlog.html")
	require.NoError(t, err)
	doc, err := Parse(string(raw))
	require.NoError(t, err)
	return Partition(doc)
}

func parseGroups(t *testing.T, html string) Groups {
	t.Helper()
	doc, err := Parse(html)
	require.NoError(t, err)
	return Partition(doc)
}

var fixtureBase, _ = url.Parse("https://growithjane.com/growlog/abc")

func TestPartition(t *testing.T) {
	g := loadFixture(t)

	assert.Equal(t, 3, g.Activities.Length())
	assert.Equal(t, 1, g.StageChanges.Length())
	assert.Equal(t, 1, g.Panel.Length())
}

func TestPartition_MissingGroupsAreEmpty(t *testing.T) {
	g := parseGroups(t, `<html><body><p>nothing here</p></body></html>`)

	assert.Equal(t, 0, g.Activities.Length())
	assert.Equal(t, 0, g.StageChanges.Length())
	assert.Equal(t, 0, g.Panel.Length())
}

func TestActivity(t *testing.T) {
	g := loadFixture(t)

	ev, err := Activity(g.Activities.Eq(0), fixtureBase)
	require.NoError(t, err)

	assert.Equal(t, "Jan 10th 24", ev.Timestamp)
	assert.Equal(t, "Day 10", ev.DayCount)
	assert.Empty(t, ev.PlantState)

	var canon []string
	for _, a := range ev.Actions {
		canon = append(canon, a.Canonical())
	}
	assert.Equal(t, []string{
		"Watering: 2l",
		"Watering: 2l",
		"Nutrients: Bio Grow 2ml",
		"Training: LST",
	}, canon)

	assert.Equal(t, []models.Photo{
		{URL: "https://cdn.example.com/p/1_abc.jpg"},
		{URL: "https://growithjane.com/p/2.jpg"},
	}, ev.Photos)

	assert.Equal(t, map[string]string{"Height": "24 cm"}, ev.TreeLogs)
}

func TestActivity_OptionalFieldsDegrade(t *testing.T) {
	g := loadFixture(t)

	ev, err := Activity(g.Activities.Eq(1), fixtureBase)
	require.NoError(t, err)

	assert.Equal(t, "Jan 5th 24", ev.Timestamp)
	assert.Empty(t, ev.Actions)
	assert.Empty(t, ev.Photos)
	assert.Nil(t, ev.TreeLogs)
}

func TestActivity_MissingTimestampDropsRecord(t *testing.T) {
	g := loadFixture(t)

	_, err := Activity(g.Activities.Eq(2), fixtureBase)

	require.ErrorIs(t, err, models.ErrMissingField)
	assert.Contains(t, err.Error(), "activity.timestamp")
}

func TestActivity_LegacyMarkup(t *testing.T) {
	g := parseGroups(t, `<html><body>
<div class="growlog-timeline-card">
  <div data-testid="growlog-page-timeline-card-date"><div class="">Feb 3rd 24</div></div>
  <div class="timeline-reminder-item"><span class="reminder-item-name">Defoliation</span></div>
  <img class="timeline-photo" srcset="/p/3_thumb@960_x.jpg 1x, /p/3.jpg 2x">
</div>
</body></html>`)
	require.Equal(t, 1, g.Activities.Length())

	ev, err := Activity(g.Activities.First(), fixtureBase)
	require.NoError(t, err)

	assert.Equal(t, "Feb 3rd 24", ev.Timestamp)
	require.Len(t, ev.Actions, 1)
	assert.Equal(t, "Defoliation", ev.Actions[0].Canonical())
	assert.Equal(t, []models.Photo{{URL: "https://growithjane.com/p/3_x.jpg"}}, ev.Photos)
}

func TestStageChange(t *testing.T) {
	g := loadFixture(t)

	ev, err := StageChange(g.StageChanges.First())
	require.NoError(t, err)

	assert.Equal(t, models.StageChangeEvent{
		Timestamp:  "Jan 7th 24",
		DayCount:   "Day 7",
		StageLabel: "Vegetative stage started",
		PlantState: "vegetative",
	}, ev)
}

func TestStageChange_StateFallbacks(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "data-stage attribute",
			html: `<div data-testid="growlog-page-timeline-stage-change" data-stage="Drying">
  <div data-testid="growlog-page-timeline-stage-change-date"><div><svg></svg>Mar 1st 24</div></div>
</div>`,
			want: "drying",
		},
		{
			name: "keyword in label",
			html: `<div data-testid="growlog-page-timeline-stage-change">
  <div data-testid="growlog-page-timeline-stage-change-date"><div><svg></svg>Feb 1st 24</div></div>
  <div data-testid="growlog-page-timeline-stage-change-stage"><div><div><span>Switched to Flowering</span></div></div></div>
</div>`,
			want: "flowering",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := parseGroups(t, "<html><body>"+tt.html+"</body></html>")
			ev, err := StageChange(g.StageChanges.First())
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev.PlantState)
		})
	}
}

func TestStageChange_MissingStateDropsRecord(t *testing.T) {
	g := parseGroups(t, `<html><body>
<div data-testid="growlog-page-timeline-stage-change">
  <div data-testid="growlog-page-timeline-stage-change-date"><div><svg></svg>Feb 1st 24</div></div>
  <div data-testid="growlog-page-timeline-stage-change-stage"><div><div><span>Something happened</span></div></div></div>
</div></body></html>`)

	_, err := StageChange(g.StageChanges.First())

	var fe *models.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "plant_state", fe.Field)
}

func TestMetadata(t *testing.T) {
	g := loadFixture(t)

	md := Metadata(g.Panel)

	assert.Equal(t, models.Strain{Brand: "Sensi Seeds", Name: "Northern Lights"}, md.Strain)
	assert.Equal(t, []models.Stage{
		{Name: "Germination", Date: "Jan 1st 24"},
		{Name: "Vegetative", Date: "Jan 7th 24"},
	}, md.Stages)
	assert.Equal(t, "flowering", md.CurrentStage)
	assert.Equal(t, map[string]string{
		"Name":             "Closet tent",
		"Type":             "Indoor",
		"Exposure Time":    "18 Hours",
		"Environment Size": "60 cm x 60 cm x 140 cm",
		"Lights":           "LED - 100 W | CFL - 30 W",
		"Medium":           "Coco",
	}, md.Environment)
	assert.Empty(t, md.Defaulted)

	title, ok := Title(g.Root)
	assert.True(t, ok)
	assert.Equal(t, "Northern Lights #5", title)
}

func TestMetadata_AbsentPanelUsesDefaults(t *testing.T) {
	g := parseGroups(t, `<html><body><p>nothing here</p></body></html>`)

	md := Metadata(g.Panel)

	assert.Equal(t, DefaultEnvironment(), md.Environment)
	assert.Equal(t, models.Strain{Brand: DefaultBreeder, Name: DefaultStrain}, md.Strain)
	assert.NotNil(t, md.Stages)
	assert.True(t, md.IsDefaulted(GroupEnvironment))
	assert.True(t, md.IsDefaulted(GroupStrain))

	assert.Equal(t, DefaultEnvironment(), Metadata(nil).Environment)
}

func TestGalleryPhotos(t *testing.T) {
	g := loadFixture(t)

	assert.Equal(t, []models.Photo{{URL: "https://cdn.example.com/gallery/cover_a.jpg"}},
		GalleryPhotos(g.Root, fixtureBase))
}

func TestNormalizePhotoURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://cdn.example.com/a_thumb@480_b.jpg", "https://cdn.example.com/a_b.jpg"},
		{"https://cdn.example.com/a_b.jpg", "https://cdn.example.com/a_b.jpg"},
		{"/img/x_thumb@1080_y.png", "https://growithjane.com/img/x_y.png"},
		{"  ", ""},
		{"javascript:alert(1)", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhotoURL(tt.raw, fixtureBase), tt.raw)
	}
}

func TestVolume(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2 L", "2l", true},
		{"500ml", "500ml", true},
		{"1,5 litres", "1.5l", true},
		{"watered with 3 gal", "3gal", true},
		{"a lot", "", false},
	}
	for _, tt := range tests {
		got, ok := Volume(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNormalizeNutrient(t *testing.T) {
	assert.Equal(t, "Bio Grow 2ml", NormalizeNutrient("NutrientsBioGrow  2ml"))
	assert.Equal(t, "Cal Mag", NormalizeNutrient("Added: CalMag"))
	assert.Equal(t, "", NormalizeNutrient("Nutrients"))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, models.ActionWatering, Classify("WATERING"))
	assert.Equal(t, models.ActionNutrient, Classify("feeding"))
	assert.Equal(t, models.ActionNutrient, Classify("fertilizer"))
	assert.Equal(t, models.ActionGeneric, Classify("topping"))
	assert.Equal(t, models.ActionGeneric, Classify(""))
}

func TestCanonicalState(t *testing.T) {
	assert.Equal(t, "vegetative", CanonicalState("icon-vegetative"))
	assert.Equal(t, "flowering", CanonicalState("  Flowering text-2xl "))
}

func TestFirst(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div><span class="a"></span><span class="b">B</span></div>`))
	require.NoError(t, err)

	v, ok := First(doc.Selection, Text(`span.a`), Text(`span.b`))
	assert.True(t, ok)
	assert.Equal(t, "B", v)

	v, ok = First(doc.Selection, Text(`span.c`), Default("fallback"))
	assert.True(t, ok)
	assert.Equal(t, "fallback", v)

	_, ok = First(nil, Default("x"))
	assert.False(t, ok)
}
