package spe

import (
	"encoding/json"
	"path"
	"strings"
	"time"
)

// Container is a SharePoint Embedded file storage container. In Graph the
// container id doubles as the id of its drive.
type Container struct {
	ID              string          `json:"id"`
	DisplayName     string          `json:"displayName"`
	Description     string          `json:"description,omitempty"`
	ContainerTypeID string          `json:"containerTypeId"`
	CreatedDateTime time.Time       `json:"createdDateTime"`
	Status          string          `json:"status,omitempty"`
	WebURL          string          `json:"webUrl,omitempty"`
	Drive           *ContainerDrive `json:"drive,omitempty"`
}

// ContainerDrive is the expanded drive facet of a container.
type ContainerDrive struct {
	ID     string `json:"id"`
	WebURL string `json:"webUrl"`
}

// CreateContainerRequest is the body of a container creation call.
type CreateContainerRequest struct {
	DisplayName     string `json:"displayName"`
	Description     string `json:"description,omitempty"`
	ContainerTypeID string `json:"containerTypeId"`
}

// Identity is one member of an identity set.
type Identity struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// IdentitySet names who or what performed an action.
type IdentitySet struct {
	User        *Identity `json:"user,omitempty"`
	Application *Identity `json:"application,omitempty"`
}

// ItemReference points at the parent of a drive item.
type ItemReference struct {
	DriveID   string `json:"driveId,omitempty"`
	DriveType string `json:"driveType,omitempty"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Path      string `json:"path,omitempty"`
	SiteID    string `json:"siteId,omitempty"`
}

// FileFacet is present on leaf items.
type FileFacet struct {
	MimeType string `json:"mimeType,omitempty"`
}

// FolderFacet is present on directory items.
type FolderFacet struct {
	ChildCount int `json:"childCount"`
}

// DriveItem is a file or folder inside a container. CreatedByName and
// ChildCount are filled in by the client after listing.
type DriveItem struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	WebURL               string         `json:"webUrl,omitempty"`
	Size                 int64          `json:"size"`
	LastModifiedDateTime time.Time      `json:"lastModifiedDateTime"`
	CreatedDateTime      time.Time      `json:"createdDateTime"`
	ETag                 string         `json:"eTag,omitempty"`
	CreatedBy            *IdentitySet   `json:"createdBy,omitempty"`
	ParentReference      *ItemReference `json:"parentReference,omitempty"`
	File                 *FileFacet     `json:"file,omitempty"`
	Folder               *FolderFacet   `json:"folder,omitempty"`

	CreatedByName string `json:"createdByName,omitempty"`
	ChildCount    int    `json:"childCount,omitempty"`
}

// IsFolder reports whether the item is a directory node.
func (i DriveItem) IsFolder() bool {
	return i.Folder != nil
}

// CreatorName resolves the display name of whoever created the item,
// preferring the user over the application.
func (i DriveItem) CreatorName() string {
	if i.CreatedBy != nil {
		if i.CreatedBy.User != nil && i.CreatedBy.User.DisplayName != "" {
			return i.CreatedBy.User.DisplayName
		}
		if i.CreatedBy.Application != nil && i.CreatedBy.Application.DisplayName != "" {
			return i.CreatedBy.Application.DisplayName
		}
	}
	return "Unknown"
}

// User is the signed-in user's Graph profile.
type User struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
	Mail              string `json:"mail"`
}

// PreviewResponse is returned by the item preview action.
type PreviewResponse struct {
	GetURL         string `json:"getUrl"`
	PostURL        string `json:"postUrl,omitempty"`
	PostParameters string `json:"postParameters,omitempty"`
}

// SearchResult is a normalised search hit. ItemID lives in the drive
// identified by DriveID; both are needed to address the underlying item.
type SearchResult struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	CreatedBy       string         `json:"createdBy"`
	CreatedDateTime time.Time      `json:"createdDateTime"`
	Preview         string         `json:"preview"`
	DriveID         string         `json:"driveId"`
	ItemID          string         `json:"itemId"`
	WebURL          string         `json:"webUrl,omitempty"`
	EditURL         string         `json:"editUrl,omitempty"`
	ParentReference *ItemReference `json:"parentReference,omitempty"`
}

// searchRequest is the body of POST /search/query.
type searchRequest struct {
	Requests []searchRequestEntry `json:"requests"`
}

type searchRequestEntry struct {
	EntityTypes []string    `json:"entityTypes"`
	Query       searchQuery `json:"query"`
	Fields      []string    `json:"fields,omitempty"`
}

type searchQuery struct {
	QueryString string `json:"queryString"`
}

// searchResponse mirrors { value: [{ hitsContainers: [{ hits: [...] }] }] }.
type searchResponse struct {
	Value []struct {
		HitsContainers []struct {
			Hits []searchHit `json:"hits"`
		} `json:"hitsContainers"`
	} `json:"value"`
}

type searchHit struct {
	HitID    string          `json:"hitId"`
	Rank     int             `json:"rank"`
	Summary  string          `json:"summary"`
	Resource json.RawMessage `json:"resource"`
}

// searchResource is the subset of a hit's resource the client reads.
type searchResource struct {
	ODataType       string         `json:"@odata.type"`
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	WebURL          string         `json:"webUrl"`
	CreatedDateTime time.Time      `json:"createdDateTime"`
	CreatedBy       *IdentitySet   `json:"createdBy"`
	ParentReference *ItemReference `json:"parentReference"`
	File            *FileFacet     `json:"file"`
	Folder          *FolderFacet   `json:"folder"`
}

// officeExtensions lists the document types that open for in-place editing.
var officeExtensions = map[string]bool{
	".doc": true, ".docx": true,
	".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true,
}

// IsOfficeDocument reports whether name has an Office document extension.
func IsOfficeDocument(name string) bool {
	return officeExtensions[strings.ToLower(path.Ext(name))]
}
