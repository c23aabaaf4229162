package lead

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProduct() Product {
	return Product{
		SKU:     "sku-1",
		Price:   decimal.RequireFromString("1299.50"),
		Name:    "Garden chair",
		Picture: "https://cdn.example.com/chair.jpg",
	}
}

func TestNewOrderPayload(t *testing.T) {
	info := LeadInfo{Phone: "0501112233", FullName: "Ivan Petrenko"}
	payload := NewOrderPayload("3", info, testProduct(), MarketingAttribution{"utm_source": "ads"})

	assert.Equal(t, "3", payload.SourceID)
	assert.NotEmpty(t, payload.SourceUUID)
	assert.Equal(t, Buyer{FullName: "Ivan Petrenko", Phone: "0501112233"}, payload.Buyer)
	require.Len(t, payload.Products, 1)
	assert.Equal(t, "sku-1", payload.Products[0].SKU)
	assert.Equal(t, json.Number("1299.5"), payload.Products[0].Price)
	assert.Equal(t, 1, payload.Products[0].Quantity)
	assert.Equal(t, MarketingAttribution{"utm_source": "ads"}, payload.Marketing)
}

func TestNewOrderPayload_FreshSourceUUID(t *testing.T) {
	info := LeadInfo{Phone: "0501112233"}
	first := NewOrderPayload("3", info, testProduct(), nil)
	second := NewOrderPayload("3", info, testProduct(), nil)

	assert.NotEqual(t, first.SourceUUID, second.SourceUUID)
}

func TestOrderPayload_JSON(t *testing.T) {
	t.Run("marketing omitted when absent", func(t *testing.T) {
		payload := NewOrderPayload("3", LeadInfo{Phone: "1"}, testProduct(), nil)

		raw, err := json.Marshal(payload)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.NotContains(t, decoded, "marketing")
		products := decoded["products"].([]any)
		line := products[0].(map[string]any)
		assert.Equal(t, 1299.5, line["price"])
		assert.Equal(t, float64(1), line["quantity"])
		assert.Equal(t, "Garden chair", line["name"])
		assert.Equal(t, "https://cdn.example.com/chair.jpg", line["picture"])
	})

	t.Run("marketing included when present", func(t *testing.T) {
		payload := NewOrderPayload("3", LeadInfo{Phone: "1"}, testProduct(), MarketingAttribution{"utm_medium": "cpc"})

		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"marketing":{"utm_medium":"cpc"}`)
	})
}
