package baas

import (
	"net/url"
	"strings"
)

// FileURL converts a stored file reference of a record into a fetchable URL.
// Format: {baseURL}/api/files/{collectionId|collectionName}/{recordId}/{filename}
// Returns empty string if the record id, the collection or the filename is missing.
func FileURL(baseURL string, record Record, filename string) string {
	collection := record.CollectionID()
	if collection == "" {
		collection = record.CollectionName()
	}
	id := record.ID()
	if collection == "" || id == "" || filename == "" {
		return ""
	}
	return strings.TrimSuffix(baseURL, "/") + "/api/files/" +
		url.PathEscape(collection) + "/" +
		url.PathEscape(id) + "/" +
		url.PathEscape(filename)
}
