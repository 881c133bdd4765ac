package spe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSearchQuery(t *testing.T) {
	assert.Equal(t, "budget AND ContainerTypeId:type-1", BuildSearchQuery("budget", "", "type-1"))
	assert.Equal(t, "budget AND ContainerId:c1", BuildSearchQuery(" budget ", "c1", "type-1"))
}

const searchBody = `{"value":[{"hitsContainers":[{"hits":[
	{"hitId":"h1","summary":"<c0>budget</c0> 2024","resource":{
		"@odata.type":"#microsoft.graph.driveItem","id":"i1","name":"Budget.xlsx",
		"webUrl":"https://contoso.sharepoint.com/b.xlsx","createdBy":{"user":{"displayName":"Ada"}},
		"parentReference":{"driveId":"d1","id":"p1"},"file":{"mimeType":"x"}}},
	{"hitId":"h2","resource":{
		"@odata.type":"#microsoft.graph.driveItem","id":"i2","name":"Budgets",
		"parentReference":{"driveId":"d1"},"folder":{"childCount":3}}},
	{"hitId":"h3","resource":{
		"@odata.type":"#microsoft.graph.driveItem","id":"i3","name":"notes.txt",
		"webUrl":"https://contoso.sharepoint.com/n.txt","parentReference":{"driveId":"d2"},"file":{}}},
	{"hitId":"h4","resource":{"@odata.type":"#microsoft.graph.listItem","id":"l1"}}
]}]}]}`

func TestSearchFiles(t *testing.T) {
	var sent searchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/query", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		fmt.Fprint(w, searchBody)
	}))
	defer server.Close()

	results, err := newTestClient(t, server).SearchFiles(context.Background(), "budget", "", "type-1")
	require.NoError(t, err)

	require.Len(t, sent.Requests, 1)
	assert.Equal(t, []string{"driveItem"}, sent.Requests[0].EntityTypes)
	assert.Contains(t, sent.Requests[0].Query.QueryString, "ContainerTypeId:type-1")
	assert.Equal(t, searchFields, sent.Requests[0].Fields)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.NotEqual(t, "i2", r.ItemID, "folder hits must be dropped")
	}

	assert.Equal(t, "h1", results[0].ID)
	assert.Equal(t, "Budget.xlsx", results[0].Title)
	assert.Equal(t, "Ada", results[0].CreatedBy)
	assert.Equal(t, "d1", results[0].DriveID)
	assert.Equal(t, "i1", results[0].ItemID)
	assert.Equal(t, results[0].WebURL, results[0].EditURL)

	assert.Equal(t, "Unknown", results[1].CreatedBy)
	assert.Empty(t, results[1].EditURL)
}

func TestSearchFilesScopedToContainer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "q AND ContainerId:c1", req.Requests[0].Query.QueryString)
		fmt.Fprint(w, `{"value":[]}`)
	}))
	defer server.Close()

	results, err := newTestClient(t, server).SearchFiles(context.Background(), "q", "c1", "")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearchFilesNoHitContainers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[{"hitsContainers":[]}]}`)
	}))
	defer server.Close()

	results, err := newTestClient(t, server).SearchFiles(context.Background(), "q", "", "type-1")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchFilesErrorCarriesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":"BadRequest","message":"bad query"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).SearchFiles(context.Background(), "q", "", "type-1")
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Contains(t, httpErr.Body, "bad query")
}

func TestGetFileDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drives/d1/items/i1", r.URL.Path)
		fmt.Fprint(w, `{"id":"i1","webUrl":"https://contoso.sharepoint.com/doc.docx"}`)
	}))
	defer server.Close()

	u, err := newTestClient(t, server).GetFileDetails(context.Background(), "d1", "i1")
	require.NoError(t, err)
	assert.Equal(t, "https://contoso.sharepoint.com/doc.docx", u)
}

func TestConvertToFileItem(t *testing.T) {
	item := ConvertToFileItem(SearchResult{
		ID: "h1", Title: "Budget.xlsx", CreatedBy: "Ada", DriveID: "d1", ItemID: "i1",
		WebURL: "https://contoso.sharepoint.com/b.xlsx",
	})

	assert.Equal(t, "i1", item.ID)
	assert.Equal(t, int64(0), item.Size)
	require.NotNil(t, item.File)
	assert.Equal(t, GenericMimeType, item.File.MimeType)
	assert.False(t, item.IsFolder())
	assert.Equal(t, "d1", item.ParentReference.DriveID)
	assert.Equal(t, "Ada", item.CreatedByName)
}

func TestIsOfficeDocument(t *testing.T) {
	assert.True(t, IsOfficeDocument("a.DOCX"))
	assert.True(t, IsOfficeDocument("b.pptx"))
	assert.False(t, IsOfficeDocument("c.pdf"))
	assert.False(t, IsOfficeDocument("docx"))
}
