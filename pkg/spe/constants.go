package spe

import "time"

// Graph and identity platform roots.
const (
	DefaultGraphURL  = "https://graph.microsoft.com/v1.0/"
	DefaultAuthority = "https://login.microsoftonline.com/"

	// GraphResource is the resource identifier for Microsoft Graph; scopes
	// are formed as "{resource}/.default".
	GraphResource = "https://graph.microsoft.com"
)

// HTTP defaults.
const (
	DefaultTimeout    = 30 * time.Second
	maxErrorBodyBytes = 64 * 1024
)

// Device code polling defaults, used when the identity platform omits them.
const (
	DefaultPollInterval   = 5 * time.Second
	DefaultDeviceCodeLife = 15 * time.Minute
)

// Placeholder metadata for items synthesised from search hits.
const (
	GenericMimeType = "application/octet-stream"
)

// searchFields is the fixed field set requested from Microsoft Search.
var searchFields = []string{
	"id",
	"name",
	"title",
	"webUrl",
	"createdBy",
	"createdDateTime",
	"lastModifiedDateTime",
	"parentReference",
	"driveId",
	"size",
	"file",
	"folder",
}
