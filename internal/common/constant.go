package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// Well-known collection names served by the catalog.
const (
	CollectionListings   = "listings"
	CollectionLists      = "lists"
	CollectionImages     = "images"
	CollectionReferences = "references"
)

// Collections lists every collection the catalog serves, in bootstrap order.
var Collections = []string{
	CollectionListings,
	CollectionLists,
	CollectionImages,
	CollectionReferences,
}

// IsKnownCollection reports whether name is one of Collections.
func IsKnownCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}
