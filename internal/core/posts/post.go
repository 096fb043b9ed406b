package posts

import (
	"math"
	"time"
)

// UnknownOwner is shown when an owner expansion was requested but the backend
// returned no user (deleted account or hidden by collection rules).
const UnknownOwner = "Unknown User"

// PostView is a post as the pages render it.
type PostView struct {
	Created          time.Time `json:"created"`
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Event            string    `json:"event"`
	EventDisplayName string    `json:"eventDisplayName,omitempty"`
	Op               string    `json:"op"`
	OwnerName        string    `json:"ownerName"`
	Imgs             []string  `json:"imgs"`
	Rank             int       `json:"rank"`
	Votes            int       `json:"votes"`
	HasRank          bool      `json:"hasRank"`
	CanEdit          bool      `json:"canEdit"`
}

// SortKey is the rank used for ordering. Unranked posts sort after every real rank.
func (p PostView) SortKey() int {
	if !p.HasRank {
		return math.MaxInt
	}
	return p.Rank
}

// Pagination describes the page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// ListView is the view-model of the event and owner post listings.
type ListView struct {
	CurrentUserID *string    `json:"currentUserId"`
	Error         *string    `json:"error"`
	EventID       string     `json:"eventId,omitempty"`
	UserID        string     `json:"userId,omitempty"`
	Posts         []PostView `json:"posts"`
	Pagination    Pagination `json:"pagination"`
	CanEdit       bool       `json:"canEdit"`
	RankedOnly    bool       `json:"rankedOnly,omitempty"`
}

// LandingView is the view-model of the landing page.
type LandingView struct {
	CurrentUserID *string    `json:"currentUserId"`
	Error         *string    `json:"error"`
	TopPosts      []PostView `json:"topPosts"`
	CanEdit       bool       `json:"canEdit"`
}

// EditView is the view-model of the post edit page.
type EditView struct {
	UserID string   `json:"userId"`
	Post   PostView `json:"post"`
}

// EventPostsRequest selects a page of an event's posts.
type EventPostsRequest struct {
	EventID string
	Page    int
	PerPage int
	// RankedOnly lists only ranked posts, paginated and sorted by the backend.
	RankedOnly bool
}

// UserPostsRequest selects a page of one owner's posts.
type UserPostsRequest struct {
	UserID  string
	Page    int
	PerPage int
}

// UpdatePostRequest is the edit form submission.
type UpdatePostRequest struct {
	UserID      string
	PostID      string
	Title       string
	Description string
}
