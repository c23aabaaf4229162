package crm

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// KeyCRM endpoints and success codes
const (
	keyCRMOffersPath = "/offers"
	keyCRMOrderPath  = "/order"

	// KeyCRMCodeOK is the embedded success code for reads
	KeyCRMCodeOK = 200
	// KeyCRMCodeCreated is the embedded success code for order creation
	KeyCRMCodeCreated = 201
)

// KeyCRMEnvelope captures the status fields KeyCRM may embed in any body.
// The API can answer HTTP 200 while carrying a failure code here.
type KeyCRMEnvelope struct {
	Code    *json.Number `json:"code,omitempty"`
	Message string       `json:"message,omitempty"`
}

// KeyCRMOffersResponse is the response of GET /offers
type KeyCRMOffersResponse struct {
	Data []KeyCRMOffer `json:"data"`
}

// KeyCRMOffer is a sellable variant of a product
type KeyCRMOffer struct {
	ID        int64          `json:"id"`
	ProductID int64          `json:"product_id"`
	SKU       string         `json:"sku"`
	Product   *KeyCRMProduct `json:"product,omitempty"`
}

// KeyCRMProduct is the product included with an offer
type KeyCRMProduct struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	MaxPrice     decimal.Decimal `json:"max_price"`
	ThumbnailURL string          `json:"thumbnail_url"`
}

// KeyCRMOrderResponse is the relevant part of the POST /order response
type KeyCRMOrderResponse struct {
	ID         int64  `json:"id"`
	SourceUUID string `json:"source_uuid"`
}

// keyCRMSkuFilter is sent JSON-encoded as the "filter" query parameter
type keyCRMSkuFilter struct {
	SKU string `json:"sku"`
}
