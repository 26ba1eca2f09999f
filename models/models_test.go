package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_Canonical(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   string
	}{
		{"watering volume", Action{Kind: ActionWatering, Label: "Water", Details: []string{"2l"}}, "Watering: 2l"},
		{"watering without volume", Action{Kind: ActionWatering, Label: "Watering"}, "Watering"},
		{"nutrient", Action{Kind: ActionNutrient, Label: "Feed", Details: []string{"Bio Grow 2ml"}}, "Nutrients: Bio Grow 2ml"},
		{"generic distinct details", Action{Kind: ActionGeneric, Label: "Training", Details: []string{"LST", " LST ", "Topping"}}, "Training: LST, Topping"},
		{"generic bare label", Action{Kind: ActionGeneric, Label: "Defoliation"}, "Defoliation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.action.Canonical())
		})
	}
}

func TestTimelineEntry_Resolved(t *testing.T) {
	assert.True(t, TimelineEntry{PlantState: "vegetative"}.Resolved())
	assert.False(t, TimelineEntry{PlantState: UnresolvedState}.Resolved())
	assert.False(t, TimelineEntry{}.Resolved())
}

func TestMetadata_IsDefaulted(t *testing.T) {
	m := Metadata{Defaulted: []string{"environment"}}
	assert.True(t, m.IsDefaulted("environment"))
	assert.False(t, m.IsDefaulted("strain"))
}

func TestExtractRequest_Validate(t *testing.T) {
	t.Run("missing url", func(t *testing.T) {
		req := ExtractRequest{URL: "   "}
		req.Normalize()
		err := req.Validate()
		require.Error(t, err)
		assert.Equal(t, ErrCodeInvalidInput, CodeOf(err))
		assert.Contains(t, err.Error(), "target address not supplied")
	})

	t.Run("not a url", func(t *testing.T) {
		req := ExtractRequest{URL: "growlog/mexican"}
		err := req.Validate()
		require.Error(t, err)
		assert.Equal(t, ErrCodeInvalidInput, CodeOf(err))
	})

	t.Run("valid", func(t *testing.T) {
		req := ExtractRequest{URL: "https://growithjane.com/growlog/mexican-tfovc"}
		assert.NoError(t, req.Validate())
	})
}

func TestScrapeError_Unwrap(t *testing.T) {
	cause := errors.New("net::ERR_NAME_NOT_RESOLVED")
	err := NewScrapeError(ErrCodeNavigation, "navigation to target URL failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "NAVIGATION_FAILED: navigation to target URL failed: net::ERR_NAME_NOT_RESOLVED", err.Error())
	assert.Equal(t, &ErrorDetail{Code: ErrCodeNavigation, Message: "navigation to target URL failed"}, err.ToDetail())
	assert.Equal(t, ErrCodeInternal, CodeOf(cause))
}

func TestFieldError_IsMissingField(t *testing.T) {
	err := &FieldError{Record: "stage_change", Field: "plant_state"}
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Equal(t, "stage_change.plant_state: required field not found", err.Error())
}
