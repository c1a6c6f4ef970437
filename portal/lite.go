package portal

import (
	"encoding/json"
	"strings"
	"time"
)

// LiteIssue is the storage-safe projection of an Issue kept in the
// persistent cache. The full image payload is always dropped; at most
// a small thumbnail carries visual information. Rating and review are
// explicit nulls when absent so the persisted shape stays stable for
// consumers expecting them.
type LiteIssue struct {
	ID               int       `json:"id"`
	Title            string    `json:"title"`
	Status           string    `json:"status"`
	Category         string    `json:"category"`
	SubLocation      string    `json:"sub_location"`
	SpecificLocation string    `json:"specific_location"`
	Priority         string    `json:"priority"`
	CreatedAt        time.Time `json:"created_at"`
	OwnerID          int       `json:"owner_id"`
	OwnerName        string    `json:"owner_name,omitempty"`
	Rating           *int      `json:"rating"`
	Review           *string   `json:"review"`
	ImageData        *string   `json:"image_data"`
	Thumb            *string   `json:"thumb"`
}

// MakeLiteIssue projects an Issue to its lite form. thumb is supplied
// by the caller (empty means none); the projection never computes it.
func MakeLiteIssue(is Issue, thumb string) LiteIssue {
	ownerName := is.OwnerName
	if ownerName == "" && is.Owner != nil {
		ownerName = is.Owner.FullName
	}

	lite := LiteIssue{
		ID:               is.ID,
		Title:            is.Title,
		Status:           is.Status,
		Category:         is.Category,
		SubLocation:      is.SubLocation,
		SpecificLocation: is.SpecificLocation,
		Priority:         is.Priority,
		CreatedAt:        is.CreatedAt,
		OwnerID:          is.OwnerID,
		OwnerName:        ownerName,
		Rating:           is.Rating,
		Review:           is.Review,
		ImageData:        nil, // never persisted
	}
	if thumb != "" {
		lite.Thumb = &thumb
	}
	return lite
}

// isIssueCollection reports whether a canonical URL is a bulk
// image-bearing issue listing, the one endpoint whose responses are
// persisted in lite form.
func isIssueCollection(url string) bool {
	return strings.Contains(url, "/issues")
}

// decodeIssues extracts the issue array from a listing payload, which
// is either a bare array or an object with an "issues" field.
func decodeIssues(payload json.RawMessage) ([]Issue, bool) {
	var arr []Issue
	if err := json.Unmarshal(payload, &arr); err == nil {
		return arr, true
	}
	var wrapped struct {
		Issues []Issue `json:"issues"`
	}
	if err := json.Unmarshal(payload, &wrapped); err == nil && wrapped.Issues != nil {
		return wrapped.Issues, true
	}
	return nil, false
}
