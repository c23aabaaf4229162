package lead

import (
	"encoding/json"

	"github.com/google/uuid"
)

// orderQuantity is fixed; multi-product or multi-unit orders are not supported
const orderQuantity = 1

// OrderPayload is the order-creation body sent to the CRM
type OrderPayload struct {
	SourceID   string               `json:"source_id"`
	SourceUUID string               `json:"source_uuid"`
	Buyer      Buyer                `json:"buyer"`
	Products   []OrderProduct       `json:"products"`
	Marketing  MarketingAttribution `json:"marketing,omitempty"`
}

// Buyer identifies the person who submitted the form
type Buyer struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// OrderProduct is a product line of the order
type OrderProduct struct {
	SKU      string      `json:"sku"`
	Price    json.Number `json:"price"`
	Name     string      `json:"name"`
	Picture  string      `json:"picture"`
	Quantity int         `json:"quantity"`
}

// NewOrderPayload assembles an order for a single unit of product.
// Every call gets a fresh source UUID.
func NewOrderPayload(sourceID string, info LeadInfo, product Product, marketing MarketingAttribution) *OrderPayload {
	payload := &OrderPayload{
		SourceID:   sourceID,
		SourceUUID: uuid.NewString(),
		Buyer: Buyer{
			FullName: info.FullName,
			Phone:    info.Phone,
		},
		Products: []OrderProduct{
			{
				SKU:      product.SKU,
				Price:    json.Number(product.Price.String()),
				Name:     product.Name,
				Picture:  product.Picture,
				Quantity: orderQuantity,
			},
		},
	}
	if len(marketing) > 0 {
		payload.Marketing = marketing
	}
	return payload
}
