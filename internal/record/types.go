package record

// Listing is a catalog item offered for sale.
type Listing struct {
	SKU         string   `json:"sku"`
	Title       string   `json:"title"`
	Artist      string   `json:"artist,omitempty"`
	PriceCents  int64    `json:"priceCents"`
	Currency    string   `json:"currency"`
	ImageIDs    []string `json:"imageIds,omitempty"`
	ReferenceID string   `json:"referenceId,omitempty"`
}

// List is a user-curated list of listings (wishlist, crate, etc.).
type List struct {
	Name       string   `json:"name"`
	ListingIDs []string `json:"listingIds"`
	Public     bool     `json:"public,omitempty"`
}

// Image points at an object in blob storage. URL is filled in by the
// catalog server with a short-lived presigned link.
type Image struct {
	ListingID  string `json:"listingId"`
	StorageKey string `json:"storageKey"`
	URL        string `json:"url,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
}

// Reference is a row of shared reference data (formats, genres, labels).
type Reference struct {
	Kind  string `json:"kind"`
	Code  string `json:"code"`
	Label string `json:"label"`
}
