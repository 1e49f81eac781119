package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/shelfsync/internal/common"
	"github.com/dmitrijs2005/shelfsync/internal/filex"
	"github.com/dmitrijs2005/shelfsync/internal/netx"
	"github.com/dmitrijs2005/shelfsync/internal/record"
)

const downloadDir = "images"

var errUsage = errors.New("usage")

// seams for tests
var (
	downloadFn  = netx.Download
	ensureDirFn = filex.EnsureSubDir
)

// Refresh pulls every collection and saves a snapshot.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.syncService.Refresh(ctx); err != nil {
		printlnFn("Refresh failed:", err.Error())
		return err
	}
	printlnFn("Refreshed")
	return nil
}

// Save writes a snapshot of the replica without contacting the server.
func (a *App) Save(ctx context.Context) error {
	if err := a.syncService.Persist(ctx); err != nil {
		printlnFn("Save failed:", err.Error())
		return err
	}
	printlnFn("Saved")
	return nil
}

// List prints every row of the named collection.
func (a *App) List(ctx context.Context, args []string) error {
	if len(args) != 1 {
		printlnFn("Usage: list <" + strings.Join(a.syncService.Collections(), "|") + ">")
		return errUsage
	}
	rows, err := a.syncService.Rows(args[0])
	if err != nil {
		printlnFn(err.Error())
		return err
	}
	a.printRows(args[0], rows)
	return nil
}

// Search prints the rows of a collection whose title matches every query
// word. The query is prompted for when not given inline.
func (a *App) Search(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: search <collection> [query]")
		return errUsage
	}

	query := strings.Join(args[1:], " ")
	if query == "" {
		q, err := getSimpleText(a.reader, "Enter search query", os.Stdout)
		if err != nil {
			return err
		}
		query = q
	}

	rows, err := a.syncService.Search(args[0], query)
	if err != nil {
		printlnFn(err.Error())
		return err
	}
	a.printRows(args[0], rows)
	return nil
}

// Fetch downloads a cached image through its presigned URL into the
// images directory under the working directory.
func (a *App) Fetch(ctx context.Context, args []string) error {
	if len(args) != 1 {
		printlnFn("Usage: fetch <image-id>")
		return errUsage
	}
	id := args[0]

	rows, err := a.syncService.Rows(common.CollectionImages)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	var img record.Image
	found := false
	for _, r := range rows {
		if r.ID != id {
			continue
		}
		if img, err = record.Unwrap[record.Image](r); err != nil {
			printlnFn("Bad image row:", err.Error())
			return err
		}
		found = true
		break
	}
	if !found {
		printlnFn("Image not found:", id)
		return common.ErrNotFound
	}
	if img.URL == "" {
		printlnFn("Image has no download URL, try refresh")
		return common.ErrNotFound
	}

	data, err := downloadFn(ctx, img.URL)
	if err != nil {
		printlnFn("Download failed:", err.Error())
		return err
	}

	dir, err := ensureDirFn(downloadDir)
	if err != nil {
		printlnFn("Download failed:", err.Error())
		return err
	}

	path, err := filex.WriteFileIn(dir, id, data)
	if err != nil {
		printlnFn("Download failed:", err.Error())
		return err
	}

	printlnFn(fmt.Sprintf("Saved %d bytes to %s", len(data), path))
	return nil
}

// Status prints the session and the number of cached rows per collection.
func (a *App) Status(ctx context.Context) error {
	user := a.syncService.CurrentUser()
	if user == "" {
		user = "-"
	}
	printlnFn("User:", user)
	if m := a.currentMode(); m != "" {
		printlnFn("Mode:", string(m))
	}
	for _, name := range a.syncService.Collections() {
		rows, err := a.syncService.Rows(name)
		if err != nil {
			printlnFn(fmt.Sprintf("  %-12s %s", name, err.Error()))
			continue
		}
		printlnFn(fmt.Sprintf("  %-12s %d", name, len(rows)))
	}
	return nil
}

func (a *App) printRows(collection string, rows []record.Row) {
	if len(rows) == 0 {
		printlnFn("(empty)")
		return
	}
	for _, r := range rows {
		printlnFn(formatRow(collection, r))
	}
}

// formatRow renders one row as "id  title  updated", with the image URL
// appended for image rows that carry one.
func formatRow(collection string, r record.Row) string {
	line := fmt.Sprintf("%s  %s  %s", r.ID, r.Title, r.UpdatedAt.UTC().Format(time.RFC3339))
	if collection == common.CollectionImages {
		if img, err := record.Unwrap[record.Image](r); err == nil && img.URL != "" {
			line += "  " + img.URL
		}
	}
	return line
}
