package catalogrpc

import (
	"time"

	"github.com/dmitrijs2005/shelfsync/internal/record"
)

// PullRequest asks for the rows of Collection updated strictly after Since.
// A zero Since requests the whole collection.
type PullRequest struct {
	Collection string    `json:"collection"`
	Since      time.Time `json:"since"`
}

type PullResponse struct {
	Rows       []record.Row `json:"rows"`
	ServerTime time.Time    `json:"serverTime"`
}

// PushRequest upserts Row (or tombstones it when Row.Deleted is set).
type PushRequest struct {
	Collection string     `json:"collection"`
	Row        record.Row `json:"row"`
}

// PushResponse carries the row as stored, with the server's UpdatedAt.
type PushResponse struct {
	Row record.Row `json:"row"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type WhoAmIRequest struct{}

type WhoAmIResponse struct {
	UserID string `json:"userId"`
}
