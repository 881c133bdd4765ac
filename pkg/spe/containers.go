package spe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// ListContainers returns every container of the given container type.
// Graph requires the containerTypeId filter on this endpoint.
func (c *Client) ListContainers(ctx context.Context, containerTypeID string) ([]Container, error) {
	if err := validateRequired("container type id", containerTypeID); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("$filter", fmt.Sprintf("containerTypeId eq %s", containerTypeID))
	raw, err := c.collectAllPages(ctx, c.containerURL("", "")+"?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}

	containers := make([]Container, 0, len(raw))
	for _, r := range raw {
		var ct Container
		if err := json.Unmarshal(r, &ct); err != nil {
			return nil, fmt.Errorf("%w: decoding container: %w", ErrDecodingFailed, err)
		}
		containers = append(containers, ct)
	}
	return containers, nil
}

// GetContainer retrieves one container with its drive expanded, so that
// WebURL is populated.
func (c *Client) GetContainer(ctx context.Context, containerID string) (Container, error) {
	var ct Container
	if err := validateRequired("container id", containerID); err != nil {
		return ct, err
	}

	apiURL := c.containerURL(containerID, "") + "?$expand=drive"
	if err := c.makeAPICallAndDecode(ctx, http.MethodGet, apiURL, "", nil, &ct, "get container"); err != nil {
		return ct, fmt.Errorf("getting container %s: %w", containerID, err)
	}
	if ct.WebURL == "" && ct.Drive != nil {
		ct.WebURL = ct.Drive.WebURL
	}
	return ct, nil
}

// CreateContainer creates a container. Name and type are checked before
// any request is sent.
func (c *Client) CreateContainer(ctx context.Context, req CreateContainerRequest) (Container, error) {
	var ct Container
	if err := validateRequired("display name", req.DisplayName, "container type id", req.ContainerTypeID); err != nil {
		return ct, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return ct, fmt.Errorf("marshaling create container request: %w", err)
	}

	if err := c.makeAPICallAndDecode(ctx, http.MethodPost, c.containerURL("", ""), "application/json", bytes.NewReader(body), &ct, "create container"); err != nil {
		return ct, fmt.Errorf("creating container %q: %w", req.DisplayName, err)
	}
	return ct, nil
}
