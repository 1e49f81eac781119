// Package catalogrpc defines the shelfsync.catalog.v1.Catalog gRPC service
// shared by the catalog server and the sync client.
//
// Messages are plain Go structs carried by a JSON codec registered under the
// "json" content-subtype. The client stub selects the codec on every call;
// servers pick it up from the request's content-type once this package is
// imported.
package catalogrpc
