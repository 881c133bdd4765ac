package spe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// ListChildren lists the children of folderID in the container's drive. An
// empty folderID addresses the drive root. All pages are collected. Each
// item comes back with CreatedByName and ChildCount resolved.
func (c *Client) ListChildren(ctx context.Context, containerID, folderID string) ([]DriveItem, error) {
	if err := validateRequired("container id", containerID); err != nil {
		return nil, err
	}

	suffix := "drive/root/children"
	if folderID != "" {
		suffix = "drive/items/" + url.PathEscape(folderID) + "/children"
	}

	raw, err := c.collectAllPages(ctx, c.containerURL(containerID, suffix))
	if err != nil {
		return nil, fmt.Errorf("listing children of %q: %w", folderID, err)
	}

	items := make([]DriveItem, 0, len(raw))
	for _, r := range raw {
		var item DriveItem
		if err := json.Unmarshal(r, &item); err != nil {
			return nil, fmt.Errorf("%w: decoding drive item: %w", ErrDecodingFailed, err)
		}
		items = append(items, Decorate(item))
	}
	return items, nil
}

// Decorate fills the derived CreatedByName and ChildCount fields.
func Decorate(item DriveItem) DriveItem {
	item.CreatedByName = item.CreatorName()
	if item.Folder != nil {
		item.ChildCount = item.Folder.ChildCount
	} else {
		item.ChildCount = 0
	}
	return item
}

// DeleteItem removes an item from the container's drive.
func (c *Client) DeleteItem(ctx context.Context, containerID, itemID string) error {
	if err := validateRequired("container id", containerID, "item id", itemID); err != nil {
		return err
	}

	res, err := c.apiCall(ctx, http.MethodDelete, c.containerURL(containerID, "drive/items/"+url.PathEscape(itemID)), "", nil)
	if err != nil {
		return fmt.Errorf("deleting item %s: %w", itemID, err)
	}
	closeBodySafely(res.Body, c.logger, "delete item")
	return nil
}

// CreateFolder creates a folder under parentID (empty for the root). Name
// collisions are resolved by Graph renaming the new folder.
func (c *Client) CreateFolder(ctx context.Context, containerID, parentID, name string) (DriveItem, error) {
	var item DriveItem
	if err := validateRequired("container id", containerID, "folder name", name); err != nil {
		return item, err
	}
	if err := ValidateItemName(name); err != nil {
		return item, err
	}

	suffix := "drive/root/children"
	if parentID != "" {
		suffix = "drive/items/" + url.PathEscape(parentID) + "/children"
	}

	body, err := json.Marshal(map[string]interface{}{
		"name":                              name,
		"folder":                            map[string]interface{}{},
		"@microsoft.graph.conflictBehavior": "rename",
	})
	if err != nil {
		return item, fmt.Errorf("marshaling create folder request: %w", err)
	}

	if err := c.makeAPICallAndDecode(ctx, http.MethodPost, c.containerURL(containerID, suffix), "application/json", bytes.NewReader(body), &item, "create folder"); err != nil {
		return item, fmt.Errorf("creating folder %q: %w", name, err)
	}
	return Decorate(item), nil
}

// UploadFile uploads content as name under parentID (empty for the root)
// with a single PUT.
func (c *Client) UploadFile(ctx context.Context, containerID, parentID, name string, content io.Reader) (DriveItem, error) {
	var item DriveItem
	if err := validateRequired("container id", containerID, "file name", name); err != nil {
		return item, err
	}
	if err := ValidateItemName(name); err != nil {
		return item, err
	}

	parent := "root"
	if parentID != "" {
		parent = "items/" + url.PathEscape(parentID)
	}
	suffix := fmt.Sprintf("drive/%s:/%s:/content", parent, url.PathEscape(name))

	if err := c.makeAPICallAndDecode(ctx, http.MethodPut, c.containerURL(containerID, suffix), "application/octet-stream", content, &item, "upload file"); err != nil {
		return item, fmt.Errorf("uploading %q: %w", name, err)
	}
	return Decorate(item), nil
}

// GetPreviewURL asks Graph for an embeddable preview URL of an item.
func (c *Client) GetPreviewURL(ctx context.Context, driveID, itemID string) (string, error) {
	if err := validateRequired("drive id", driveID, "item id", itemID); err != nil {
		return "", err
	}

	var preview PreviewResponse
	err := c.makeAPICallAndDecode(ctx, http.MethodPost, c.driveItemURL(driveID, itemID, "preview"), "application/json", bytes.NewReader([]byte("{}")), &preview, "preview")
	if err != nil {
		return "", fmt.Errorf("getting preview of %s: %w", itemID, err)
	}
	if preview.GetURL == "" {
		return "", fmt.Errorf("%w: preview response carried no url", ErrOperationFailed)
	}
	return preview.GetURL, nil
}
