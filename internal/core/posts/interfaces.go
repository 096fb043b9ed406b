package posts

import (
	"context"

	"github.com/we-be/vibe-chuck/internal/baas"
	"github.com/we-be/vibe-chuck/internal/core/access"
)

// Service loads the post pages.
// Listing loaders never fail: a backend failure yields an empty view with Error set.
// The edit loaders return access, validation and not-found errors for the caller to map.
type Service interface {
	// GetTopPosts builds the landing page: the best ranked posts of every event
	// that has started.
	GetTopPosts(ctx context.Context, viewer access.Viewer) *LandingView

	// GetEventPosts lists the posts submitted to one event.
	GetEventPosts(ctx context.Context, viewer access.Viewer, req EventPostsRequest) *ListView

	// GetUserPosts lists every post of one owner, ranked or not.
	GetUserPosts(ctx context.Context, viewer access.Viewer, req UserPostsRequest) *ListView

	// GetPostForEdit loads a post for its owner.
	// Flow: gate viewer against route user -> fetch post -> gate viewer against post owner
	GetPostForEdit(ctx context.Context, viewer access.Viewer, userID, postID string) (*EditView, error)

	// UpdatePost saves the edit form on behalf of the viewer.
	UpdatePost(ctx context.Context, viewer access.Viewer, req UpdatePostRequest) (*EditView, error)
}

// FileResolver turns stored file names into URLs. baas.Backend satisfies it.
type FileResolver interface {
	FileURL(record baas.Record, filename string) string
}
