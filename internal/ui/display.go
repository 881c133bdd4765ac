// Package ui (display.go) formats containers, drive items, search results
// and diagnostics for the console, and provides the upload progress bar.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/tonimelisma/spe-client/internal/browser"
	"github.com/tonimelisma/spe-client/internal/diag"
	"github.com/tonimelisma/spe-client/internal/session"
	"github.com/tonimelisma/spe-client/pkg/spe"
)

const dateLayout = "2006-01-02 15:04"

// DisplayContainers prints a table of containers.
func DisplayContainers(w io.Writer, containers []spe.Container) {
	if len(containers) == 0 {
		fmt.Fprintln(w, "No containers found for this container type.")
		return
	}

	fmt.Fprintf(w, "%-40s %-30s %s\n", "ID", "Name", "Created")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, c := range containers {
		fmt.Fprintf(w, "%-40.40s %-30.30s %s\n", c.ID, c.DisplayName, formatTime(c.CreatedDateTime))
	}
}

// DisplayContainer prints the details of one container.
func DisplayContainer(w io.Writer, c spe.Container) {
	fmt.Fprintln(w, "Container:")
	fmt.Fprintf(w, "  Name:         %s\n", c.DisplayName)
	fmt.Fprintf(w, "  ID:           %s\n", c.ID)
	if c.Description != "" {
		fmt.Fprintf(w, "  Description:  %s\n", c.Description)
	}
	fmt.Fprintf(w, "  Type:         %s\n", c.ContainerTypeID)
	fmt.Fprintf(w, "  Created:      %s\n", formatTime(c.CreatedDateTime))
	if c.Status != "" {
		fmt.Fprintf(w, "  Status:       %s\n", c.Status)
	}
	if c.WebURL != "" {
		fmt.Fprintf(w, "  Web URL:      %s\n", c.WebURL)
	}
}

// DisplayDriveItems prints items folders first. Compact mode prints names
// only.
func DisplayDriveItems(w io.Writer, items []spe.DriveItem, title string, compact bool) {
	if len(items) == 0 {
		fmt.Fprintln(w, "This folder is empty.")
		return
	}

	sorted := SortItems(items)
	if title != "" {
		fmt.Fprintln(w, title)
	}

	if compact {
		for _, item := range sorted {
			name := item.Name
			if item.IsFolder() {
				name += "/"
			}
			fmt.Fprintln(w, name)
		}
		return
	}

	fmt.Fprintf(w, "%-40s %12s %-8s %-20s %s\n", "Name", "Size", "Type", "Created By", "Modified")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, item := range sorted {
		itemType := "File"
		size := formatBytes(item.Size)
		if item.IsFolder() {
			itemType = "Folder"
			size = fmt.Sprintf("%d items", item.ChildCount)
		}
		createdBy := item.CreatedByName
		if createdBy == "" {
			createdBy = item.CreatorName()
		}
		fmt.Fprintf(w, "%-40.40s %12s %-8s %-20.20s %s\n", item.Name, size, itemType, createdBy, formatTime(item.LastModifiedDateTime))
	}
}

// DisplayDriveItem prints detailed metadata for a single item.
func DisplayDriveItem(w io.Writer, item spe.DriveItem) {
	fmt.Fprintln(w, "Item Metadata:")
	fmt.Fprintf(w, "  Name:             %s\n", item.Name)
	fmt.Fprintf(w, "  ID:               %s\n", item.ID)
	fmt.Fprintf(w, "  Size:             %s (%d bytes)\n", formatBytes(item.Size), item.Size)
	fmt.Fprintf(w, "  Created:          %s\n", item.CreatedDateTime.Local().Format(time.RFC1123))
	fmt.Fprintf(w, "  Created By:       %s\n", item.CreatorName())
	if item.WebURL != "" {
		fmt.Fprintf(w, "  Web URL:          %s\n", item.WebURL)
	}
	if item.IsFolder() {
		fmt.Fprintf(w, "  Type:             Folder\n")
		fmt.Fprintf(w, "  Child Count:      %d\n", item.Folder.ChildCount)
	} else if item.File != nil {
		fmt.Fprintf(w, "  Type:             File\n")
		if item.File.MimeType != "" {
			fmt.Fprintf(w, "  MIME Type:        %s\n", item.File.MimeType)
		}
	}
}

// DisplayBreadcrumbs prints the path with the current folder last.
func DisplayBreadcrumbs(w io.Writer, path browser.Path) {
	fmt.Fprintf(w, "Location: %s\n", path.String())
}

// DisplaySearchResults prints search hits.
func DisplaySearchResults(w io.Writer, results []spe.SearchResult, query string) {
	if len(results) == 0 {
		fmt.Fprintf(w, "No files found matching query: \"%s\"\n", query)
		return
	}

	fmt.Fprintf(w, "Search results for \"%s\" (%d file(s)):\n", query, len(results))
	fmt.Fprintf(w, "%-40s %-20s %-17s %s\n", "Title", "Created By", "Created", "Drive / Item")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range results {
		fmt.Fprintf(w, "%-40.40s %-20.20s %-17s %s / %s\n", r.Title, r.CreatedBy, formatTime(r.CreatedDateTime), r.DriveID, r.ItemID)
		if r.Preview != "" {
			fmt.Fprintf(w, "    %s\n", StripHighlights(r.Preview))
		}
	}
}

// StripHighlights removes the <c0>…</c0> and <ddd/> markup Microsoft
// Search puts into summaries.
func StripHighlights(s string) string {
	r := strings.NewReplacer("<c0>", "", "</c0>", "", "<ddd/>", "…")
	return r.Replace(s)
}

// DisplayUser prints the signed-in account.
func DisplayUser(w io.Writer, acct *session.Account) {
	if acct == nil {
		fmt.Fprintln(w, "You are not logged in.")
		return
	}
	name := acct.Name
	if name == "" {
		name = acct.Username
	}
	fmt.Fprintf(w, "Logged in as: %s (%s)\n", name, acct.Username)
	if acct.TenantID != "" {
		fmt.Fprintf(w, "Tenant: %s\n", acct.TenantID)
	}
}

// DisplayDiagnostics prints recent Graph calls, newest first.
func DisplayDiagnostics(w io.Writer, calls []diag.Call) {
	if len(calls) == 0 {
		fmt.Fprintln(w, "No API calls recorded.")
		return
	}

	fmt.Fprintf(w, "%-8s %-7s %-6s %10s  %s\n", "Time", "Method", "Status", "Duration", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, c := range calls {
		status := fmt.Sprintf("%d", c.Status)
		if c.Status == 0 {
			status = "ERR"
		}
		fmt.Fprintf(w, "%-8s %-7s %-6s %10s  %s\n", c.Time.Local().Format("15:04:05"), c.Method, status, c.Duration.Round(time.Millisecond), c.URL)
		if c.Err != "" {
			fmt.Fprintf(w, "    %s\n", c.Err)
		}
	}
}

// formatBytes converts a size in bytes to a human-readable string using IEC
// units.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(dateLayout)
}

// NewProgressBar creates a progress bar for a transfer of maxBytes.
func NewProgressBar(maxBytes int64, description string) *progressbar.ProgressBar {
	if description == "" {
		description = "Uploading..."
	}
	return progressbar.NewOptions64(
		maxBytes,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}
