package spe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// BuildSearchQuery scopes term to one container, or to every container of
// containerTypeID when containerID is empty.
func BuildSearchQuery(term, containerID, containerTypeID string) string {
	term = strings.TrimSpace(term)
	if containerID != "" {
		return fmt.Sprintf("%s AND ContainerId:%s", term, containerID)
	}
	return fmt.Sprintf("%s AND ContainerTypeId:%s", term, containerTypeID)
}

// SearchFiles runs a Microsoft Search query for drive items. Folder hits are
// dropped; hits that are not drive items are skipped.
func (c *Client) SearchFiles(ctx context.Context, term, containerID, containerTypeID string) ([]SearchResult, error) {
	if err := validateRequired("search term", term); err != nil {
		return nil, err
	}
	if containerID == "" {
		if err := validateRequired("container type id", containerTypeID); err != nil {
			return nil, err
		}
	}

	reqBody := searchRequest{
		Requests: []searchRequestEntry{{
			EntityTypes: []string{"driveItem"},
			Query:       searchQuery{QueryString: BuildSearchQuery(term, containerID, containerTypeID)},
			Fields:      searchFields,
		}},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling search request: %w", err)
	}

	var resp searchResponse
	if err := c.makeAPICallAndDecode(ctx, http.MethodPost, c.baseURL+"search/query", "application/json", bytes.NewReader(body), &resp, "search"); err != nil {
		return nil, fmt.Errorf("searching for %q: %w", term, err)
	}

	results := []SearchResult{}
	for _, v := range resp.Value {
		for _, hc := range v.HitsContainers {
			for _, hit := range hc.Hits {
				result, ok := c.normalizeHit(hit)
				if ok {
					results = append(results, result)
				}
			}
		}
	}
	return results, nil
}

// normalizeHit projects a search hit onto a SearchResult. It reports false
// for folder-shaped hits and for resources that are not drive items.
func (c *Client) normalizeHit(hit searchHit) (SearchResult, bool) {
	var res searchResource
	if err := json.Unmarshal(hit.Resource, &res); err != nil {
		c.logger.Debug("skipping undecodable search hit", "hit", hit.HitID, "error", err)
		return SearchResult{}, false
	}
	if res.ODataType != "" && !strings.EqualFold(res.ODataType, "#microsoft.graph.driveItem") {
		return SearchResult{}, false
	}
	if res.Folder != nil && res.File == nil {
		return SearchResult{}, false
	}

	itemID := res.ID
	if itemID == "" {
		itemID = hit.HitID
	}

	result := SearchResult{
		ID:              hit.HitID,
		Title:           res.Name,
		CreatedBy:       DriveItem{CreatedBy: res.CreatedBy}.CreatorName(),
		CreatedDateTime: res.CreatedDateTime,
		Preview:         hit.Summary,
		ItemID:          itemID,
		WebURL:          res.WebURL,
		ParentReference: res.ParentReference,
	}
	if result.ID == "" {
		result.ID = itemID
	}
	if res.ParentReference != nil {
		result.DriveID = res.ParentReference.DriveID
	}
	if IsOfficeDocument(res.Name) {
		result.EditURL = res.WebURL
	}
	return result, true
}

// GetFileDetails resolves a drive/item pair to the item's canonical web URL.
func (c *Client) GetFileDetails(ctx context.Context, driveID, itemID string) (string, error) {
	if err := validateRequired("drive id", driveID, "item id", itemID); err != nil {
		return "", err
	}

	var item DriveItem
	if err := c.makeAPICallAndDecode(ctx, http.MethodGet, c.driveItemURL(driveID, itemID, ""), "", nil, &item, "file details"); err != nil {
		return "", fmt.Errorf("getting details of %s: %w", itemID, err)
	}
	return item.WebURL, nil
}

// ConvertToFileItem adapts a search result into a DriveItem for the preview
// flow. Search hits carry no size or mime type, so placeholders are used.
func ConvertToFileItem(r SearchResult) DriveItem {
	created := r.CreatedDateTime
	if created.IsZero() {
		created = time.Now()
	}

	var parent *ItemReference
	if r.ParentReference != nil {
		p := *r.ParentReference
		parent = &p
	} else if r.DriveID != "" {
		parent = &ItemReference{DriveID: r.DriveID}
	}

	return DriveItem{
		ID:                   r.ItemID,
		Name:                 r.Title,
		WebURL:               r.WebURL,
		Size:                 0,
		CreatedDateTime:      created,
		LastModifiedDateTime: created,
		CreatedBy:            &IdentitySet{User: &Identity{DisplayName: r.CreatedBy}},
		CreatedByName:        r.CreatedBy,
		ParentReference:      parent,
		File:                 &FileFacet{MimeType: GenericMimeType},
	}
}
