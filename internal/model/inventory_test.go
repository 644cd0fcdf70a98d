package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		explicit BeanStatus
		want     BeanStatus
	}{
		{"plenty left", 150, "", BeanStatusInStock},
		{"just above threshold", 20.5, "", BeanStatusInStock},
		{"at threshold", 20, "", BeanStatusNearEmpty},
		{"a few grams", 3, BeanStatusInStock, BeanStatusNearEmpty},
		{"empty", 0, "", BeanStatusFinished},
		{"negative", -5, "", BeanStatusFinished},
		{"explicitly finished with beans left", 180, BeanStatusFinished, BeanStatusFinished},
		{"stored in_stock is not trusted", 10, BeanStatusInStock, BeanStatusNearEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.current, tt.explicit))
		})
	}
}

func TestNormalizeBean(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("current clamps to total", func(t *testing.T) {
		b := NormalizeBean(BeanInput{Name: "Guji", TotalWeight: 200, CurrentWeight: Float(300)}, now)
		assert.Equal(t, 200.0, b.CurrentWeight)
		assert.Equal(t, BeanStatusInStock, b.Status)
	})

	t.Run("missing current means a full bag", func(t *testing.T) {
		b := NormalizeBean(BeanInput{Name: "Guji", TotalWeight: 250}, now)
		assert.Equal(t, 250.0, b.CurrentWeight)
	})

	t.Run("negative current floors at zero", func(t *testing.T) {
		b := NormalizeBean(BeanInput{Name: "Guji", TotalWeight: 250, CurrentWeight: Float(-10)}, now)
		assert.Equal(t, 0.0, b.CurrentWeight)
		assert.Equal(t, BeanStatusFinished, b.Status)
	})

	t.Run("unknown total does not clamp", func(t *testing.T) {
		b := NormalizeBean(BeanInput{Name: "Gift", CurrentWeight: Float(90)}, now)
		assert.Equal(t, 90.0, b.CurrentWeight)
	})

	t.Run("defaults id and roast", func(t *testing.T) {
		b := NormalizeBean(BeanInput{Name: "Guji", TotalWeight: 100}, now)
		assert.NotEmpty(t, b.ID)
		assert.Equal(t, DefaultInventoryRoast, b.RoastLevel)
		assert.Equal(t, now, b.CreateTime)
		assert.Equal(t, now, b.UpdateTime)
	})
}

func TestFeedTypes(t *testing.T) {
	assert.Equal(t, FeedTypePourOver, RecordTypePourOver.FeedType())
	assert.Equal(t, FeedTypeEspresso, RecordTypeEspresso.FeedType())

	assert.Equal(t, FeedTypePourOver, ParseFeedType(""))
	assert.Equal(t, FeedTypePourOver, ParseFeedType("pourOver"))
	assert.Equal(t, FeedTypeEspresso, ParseFeedType("espresso"))
	assert.Equal(t, FeedTypeEspresso, ParseFeedType("Espresso"))
	assert.Equal(t, FeedType("Cold Brew"), ParseFeedType("Cold Brew"))
}

func TestNewPublishInput(t *testing.T) {
	r := CreateRecord(RecordTypePourOver, Payload{
		"name":       "清晨荣耀拼配",
		"brand":      "烘焙公司",
		"notes":      "sweet finish",
		"rating":     4.5,
		"flavors":    []any{"花香", "柑橘"},
		"brewParams": map[string]any{"coffeeWeight": 18.0, "waterWeight": 270.0},
		"equipment":  map[string]any{"brewer": "Hario V60"},
	})
	id := Identity{UserID: "u1", DisplayName: "Ann", AvatarRef: "https://img/a.png"}

	in := NewPublishInput(r, id)

	assert.Equal(t, r.ID, in.BeanID)
	assert.Equal(t, "清晨荣耀拼配", in.BeanName)
	assert.Equal(t, "Ann", in.UserName)
	assert.Equal(t, "pourOver", in.Type)
	assert.Equal(t, "sweet finish", in.Remarks)
	assert.Equal(t, []string{"花香", "柑橘"}, in.FlavorNotes)
	require.NotNil(t, in.CreateTime)
	assert.Nil(t, in.ExtractParams)

	var params map[string]any
	require.NoError(t, json.Unmarshal(in.BrewParams, &params))
	assert.Equal(t, 270.0, params["waterWeight"])

	var eq map[string]any
	require.NoError(t, json.Unmarshal(in.Equipment, &eq))
	assert.Equal(t, "Hario V60", eq["brewer"])
}

func TestObjectOrEmpty(t *testing.T) {
	assert.JSONEq(t, `{}`, string(ObjectOrEmpty(nil)))
	assert.JSONEq(t, `{}`, string(ObjectOrEmpty(json.RawMessage(`[1,2]`))))
	assert.JSONEq(t, `{}`, string(ObjectOrEmpty(json.RawMessage(`null`))))
	assert.JSONEq(t, `{}`, string(ObjectOrEmpty(json.RawMessage(`{"a":`))))
	assert.JSONEq(t, `{"a":1}`, string(ObjectOrEmpty(json.RawMessage(` {"a":1} `))))
}
