package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/we-be/vibe-chuck/internal/baas"
	"github.com/we-be/vibe-chuck/internal/core/access"
	"github.com/we-be/vibe-chuck/internal/core/events"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
)

// Config holds the page sizes of the listings.
type Config struct {
	EventPerPage     int // event page, default 12
	UserPerPage      int // owner page, default 10
	TopPostsLimit    int // landing page, default 6
	TopPostsPerEvent int // landing candidates per event, default 2
}

func (c Config) withDefaults() Config {
	if c.EventPerPage < 1 {
		c.EventPerPage = 12
	}
	if c.UserPerPage < 1 {
		c.UserPerPage = 10
	}
	if c.TopPostsLimit < 1 {
		c.TopPostsLimit = 6
	}
	if c.TopPostsPerEvent < 1 {
		c.TopPostsPerEvent = 2
	}
	return c
}

type postService struct {
	backend      baas.Backend
	writer       baas.Writer
	eventService events.Service
	now          func() time.Time
	cfg          Config
}

// NewPostService creates a new post service
// writer can be nil for read-only deployments; UpdatePost then fails with baas.ErrReadOnly.
func NewPostService(
	backend baas.Backend,
	writer baas.Writer, // Optional: can be nil
	eventService events.Service,
	cfg Config,
) Service {
	return &postService{
		backend:      backend,
		writer:       writer,
		eventService: eventService,
		cfg:          cfg.withDefaults(),
		now:          time.Now,
	}
}

// GetTopPosts queries every active event concurrently for its best ranked posts,
// then merges the results.
// Merged order: rank, then event order (most recent start first), then age.
func (s *postService) GetTopPosts(ctx context.Context, viewer access.Viewer) *LandingView {
	active, err := s.eventService.ActiveEvents(ctx, s.now())
	if err != nil {
		slog.Error("failed to load landing page", "error", err)
		return emptyLandingView(err)
	}

	perEvent := make([][]PostView, len(active))
	g, gctx := errgroup.WithContext(ctx)
	for i, ev := range active {
		i, ev := i, ev
		g.Go(func() error {
			res, err := s.backend.List(gctx, baas.CollectionPosts, baas.ListQuery{
				Filter:  baas.Filter{EventID: ev.ID, RankedOnly: true},
				Sort:    "rank",
				Page:    1,
				PerPage: s.cfg.TopPostsPerEvent,
			})
			if err != nil {
				return fmt.Errorf("top posts of event %s: %w", ev.ID, err)
			}
			views := make([]PostView, 0, len(res.Items))
			for _, rec := range res.Items {
				views = append(views, Project(rec, ProjectContext{EventDisplayName: ev.DisplayName}, s.backend))
			}
			perEvent[i] = views
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("failed to load landing page", "error", err)
		return emptyLandingView(err)
	}

	type candidate struct {
		post       PostView
		eventIndex int
	}
	var candidates []candidate
	for i, views := range perEvent {
		for _, v := range views {
			candidates = append(candidates, candidate{post: v, eventIndex: i})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if ka, kb := a.post.SortKey(), b.post.SortKey(); ka != kb {
			return ka < kb
		}
		if a.eventIndex != b.eventIndex {
			return a.eventIndex < b.eventIndex
		}
		return a.post.Created.Before(b.post.Created)
	})

	limit := min(len(candidates), s.cfg.TopPostsLimit)
	top := make([]PostView, 0, limit)
	for _, c := range candidates[:limit] {
		c.post.CanEdit = access.CanEdit(viewer, c.post.Op)
		top = append(top, c.post)
	}

	return &LandingView{
		TopPosts:      top,
		CanEdit:       viewer != nil && viewer.IsAuthenticated(),
		CurrentUserID: currentUserID(viewer),
	}
}

// GetEventPosts lists an event's posts.
// Default mode: fetch all posts of the event with their owners, order them
// (ranked first) and slice the requested page locally, since unranked posts
// would otherwise be split across backend pages.
// Ranked-only mode: the backend filters rank > 0, sorts by rank and paginates.
func (s *postService) GetEventPosts(ctx context.Context, viewer access.Viewer, req EventPostsRequest) *ListView {
	if req.EventID == "" {
		return emptyListView(NewValidationError("eventId", "event id is required"))
	}
	page, perPage := normalizePage(req.Page, req.PerPage, s.cfg.EventPerPage)
	pc := ProjectContext{OwnerExpanded: true}

	var (
		views      []PostView
		pagination Pagination
	)
	if req.RankedOnly {
		res, err := s.backend.List(ctx, baas.CollectionPosts, baas.ListQuery{
			Filter:  baas.Filter{EventID: req.EventID, RankedOnly: true},
			Sort:    "rank",
			Expand:  []string{ownerField},
			Page:    page,
			PerPage: perPage,
		})
		if err != nil {
			slog.Error("failed to load event posts", "event", req.EventID, "ranked", true, "error", err)
			return emptyListView(err)
		}
		views = s.project(res.Items, pc)
		pagination = FromServer(page, perPage, res.TotalItems)
	} else {
		records, err := s.backend.GetFullList(ctx, baas.CollectionPosts, baas.ListQuery{
			Filter: baas.Filter{EventID: req.EventID},
			Sort:   "created",
			Expand: []string{ownerField},
		})
		if err != nil {
			slog.Error("failed to load event posts", "event", req.EventID, "error", err)
			return emptyListView(err)
		}
		all := s.project(records, pc)
		SortRanked(all)
		views, pagination = Paginate(all, page, perPage)
	}

	for i := range views {
		views[i].CanEdit = access.CanEdit(viewer, views[i].Op)
	}

	return &ListView{
		Posts:         views,
		Pagination:    pagination,
		CanEdit:       viewer != nil && viewer.IsAuthenticated(),
		CurrentUserID: currentUserID(viewer),
		EventID:       req.EventID,
		RankedOnly:    req.RankedOnly,
	}
}

// GetUserPosts lists every post of one owner, including never-ranked ones.
// The whole set is ordered before slicing the page.
func (s *postService) GetUserPosts(ctx context.Context, viewer access.Viewer, req UserPostsRequest) *ListView {
	if req.UserID == "" {
		return emptyListView(NewValidationError("userId", "user id is required"))
	}
	page, perPage := normalizePage(req.Page, req.PerPage, s.cfg.UserPerPage)

	records, err := s.backend.GetFullList(ctx, baas.CollectionPosts, baas.ListQuery{
		Filter: baas.Filter{OwnerID: req.UserID},
		Sort:   "created",
	})
	if err != nil {
		slog.Error("failed to load user posts", "user", req.UserID, "error", err)
		return emptyListView(err)
	}

	all := s.project(records, ProjectContext{})
	SortRanked(all)
	views, pagination := Paginate(all, page, perPage)

	canEdit := access.CanEdit(viewer, req.UserID)
	for i := range views {
		views[i].CanEdit = canEdit && views[i].Op == req.UserID
	}

	return &ListView{
		Posts:         views,
		Pagination:    pagination,
		CanEdit:       canEdit,
		CurrentUserID: currentUserID(viewer),
		UserID:        req.UserID,
	}
}

func (s *postService) GetPostForEdit(ctx context.Context, viewer access.Viewer, userID, postID string) (*EditView, error) {
	if err := access.AuthorizeEdit(viewer, userID); err != nil {
		return nil, err
	}
	return s.loadOwnedPost(ctx, viewer, userID, postID)
}

// UpdatePost gates and validates the form, checks ownership against the
// stored post, then writes with the viewer's token.
func (s *postService) UpdatePost(ctx context.Context, viewer access.Viewer, req UpdatePostRequest) (*EditView, error) {
	if err := access.AuthorizeEdit(viewer, req.UserID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	if err := validateUpdate(title, description); err != nil {
		return nil, err
	}

	if _, err := s.loadOwnedPost(ctx, viewer, req.UserID, req.PostID); err != nil {
		return nil, err
	}

	if s.writer == nil {
		return nil, fmt.Errorf("failed to update post: %w", baas.ErrReadOnly)
	}
	rec, err := s.writer.Update(ctx, baas.CollectionPosts, req.PostID, map[string]any{
		"title":       title,
		"description": description,
	})
	if err != nil {
		switch {
		case baas.IsNotFound(err):
			return nil, NewNotFoundError("post", req.PostID)
		case errors.Is(err, baas.ErrForbidden):
			return nil, access.ErrNotOwner
		case errors.Is(err, baas.ErrUnauthorized):
			return nil, access.ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	view := Project(rec, ProjectContext{}, s.backend)
	view.CanEdit = true
	return &EditView{Post: view, UserID: req.UserID}, nil
}

func (s *postService) loadOwnedPost(ctx context.Context, viewer access.Viewer, userID, postID string) (*EditView, error) {
	if postID == "" {
		return nil, NewNotFoundError("post", postID)
	}
	rec, err := s.backend.GetOne(ctx, baas.CollectionPosts, postID)
	if err != nil {
		// A view rule hiding the post reads the same as a missing post.
		if baas.IsNotFound(err) || errors.Is(err, baas.ErrForbidden) {
			return nil, NewNotFoundError("post", postID)
		}
		return nil, fmt.Errorf("failed to fetch post: %w", err)
	}

	view := Project(rec, ProjectContext{}, s.backend)
	if err := access.AuthorizeEdit(viewer, view.Op); err != nil {
		return nil, err
	}
	view.CanEdit = true
	return &EditView{Post: view, UserID: userID}, nil
}

func validateUpdate(title, description string) error {
	if title == "" {
		return NewValidationError("title", "title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return NewValidationError("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return NewValidationError("description", fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	return nil
}

func (s *postService) project(records []baas.Record, pc ProjectContext) []PostView {
	views := make([]PostView, 0, len(records))
	for _, rec := range records {
		views = append(views, Project(rec, pc, s.backend))
	}
	return views
}

func currentUserID(viewer access.Viewer) *string {
	if viewer == nil {
		return nil
	}
	id, ok := viewer.CurrentUserID()
	if !ok {
		return nil
	}
	return &id
}

func emptyListView(err error) *ListView {
	msg := errorMessage(err)
	return &ListView{
		Posts:      []PostView{},
		Pagination: DefaultPagination(),
		Error:      &msg,
	}
}

func emptyLandingView(err error) *LandingView {
	msg := errorMessage(err)
	return &LandingView{
		TopPosts: []PostView{},
		Error:    &msg,
	}
}

// errorMessage is the user-facing text of a listing failure.
// Backend details stay in the logs.
func errorMessage(err error) string {
	var valErr *ValidationError
	switch {
	case errors.As(err, &valErr):
		return valErr.Message
	case errors.Is(err, baas.ErrBadRequest):
		return "The posts query was rejected."
	case errors.Is(err, baas.ErrUnauthorized), errors.Is(err, baas.ErrForbidden):
		return "You do not have access to these posts."
	case errors.Is(err, baas.ErrUnavailable):
		return "The post service is unavailable. Please try again later."
	default:
		return "Failed to load posts."
	}
}
