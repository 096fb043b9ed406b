package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/we-be/vibe-chuck/internal/api/middleware"
	"github.com/we-be/vibe-chuck/internal/baas"
	"github.com/we-be/vibe-chuck/internal/core/access"
	"github.com/we-be/vibe-chuck/internal/core/events"
	"github.com/we-be/vibe-chuck/internal/core/posts"
)

// Handlers provides HTTP handlers for the site pages and the login flow.
type Handlers struct {
	templates    *Templates
	postService  posts.Service
	eventService events.Service
	auth         baas.Authenticator
	sessions     *middleware.SessionMiddleware
}

// NewHandlers creates a new Handlers instance with the provided dependencies.
func NewHandlers(
	templates *Templates,
	postService posts.Service,
	eventService events.Service,
	auth baas.Authenticator,
	sessions *middleware.SessionMiddleware,
) *Handlers {
	return &Handlers{
		templates:    templates,
		postService:  postService,
		eventService: eventService,
		auth:         auth,
		sessions:     sessions,
	}
}

// PageData wraps a view-model with what the layout needs.
type PageData struct {
	// View is the page view-model.
	View any
	// Title is the page title
	Title string
	// ViewerID is the signed-in user, "" for anonymous visitors
	ViewerID string
	// FormError is shown above forms that failed validation.
	FormError string
}

// LoginPageData holds data for the login form.
type LoginPageData struct {
	Identity string
	Next     string
}

// ErrorPageData holds data for the error page.
type ErrorPageData struct {
	Message string
	Status  int
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// LandingHandler handles GET / requests and renders the top ranked posts.
func (h *Handlers) LandingHandler(w http.ResponseWriter, r *http.Request) {
	view := h.postService.GetTopPosts(r.Context(), middleware.GetSession(r))
	h.respond(w, r, "landing.html", "Top posts", view)
}

// EventsHandler renders the event list.
// GET /events
func (h *Handlers) EventsHandler(w http.ResponseWriter, r *http.Request) {
	view := h.eventService.GetEventList(r.Context())
	h.respond(w, r, "events.html", "Events", view)
}

// EventPostsHandler renders one event's posts.
// GET /events/{eventId}?page=&perPage=&ranked=
func (h *Handlers) EventPostsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := posts.EventPostsRequest{
		EventID:    chi.URLParam(r, "eventId"),
		Page:       intParam(q, "page"),
		PerPage:    intParam(q, "perPage"),
		RankedOnly: boolParam(q, "ranked"),
	}

	view := h.postService.GetEventPosts(r.Context(), middleware.GetSession(r), req)
	h.respond(w, r, "event_posts.html", "Event posts", view)
}

// UserPostsHandler renders every post of one owner.
// GET /users/{userId}/posts?page=&perPage=
func (h *Handlers) UserPostsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := posts.UserPostsRequest{
		UserID:  chi.URLParam(r, "userId"),
		Page:    intParam(q, "page"),
		PerPage: intParam(q, "perPage"),
	}

	view := h.postService.GetUserPosts(r.Context(), middleware.GetSession(r), req)
	h.respond(w, r, "user_posts.html", "Posts", view)
}

// EditPostPageHandler renders the edit form of a post owned by the viewer.
// GET /users/{userId}/posts/{postId}/edit
func (h *Handlers) EditPostPageHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	postID := chi.URLParam(r, "postId")

	view, err := h.postService.GetPostForEdit(r.Context(), middleware.GetSession(r), userID, postID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respond(w, r, "edit_post.html", "Edit post", view)
}

// EditPostSubmitHandler saves the edit form.
// POST /users/{userId}/posts/{postId}/edit
func (h *Handlers) EditPostSubmitHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "InvalidRequest", "Malformed form data")
		return
	}

	req := posts.UpdatePostRequest{
		UserID:      chi.URLParam(r, "userId"),
		PostID:      chi.URLParam(r, "postId"),
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
	}
	viewer := middleware.GetSession(r)

	view, err := h.postService.UpdatePost(r.Context(), viewer, req)
	var valErr *posts.ValidationError
	if errors.As(err, &valErr) && !wantsJSON(r) {
		// Show the submitted values again next to the message.
		current, loadErr := h.postService.GetPostForEdit(r.Context(), viewer, req.UserID, req.PostID)
		if loadErr != nil {
			h.handleServiceError(w, r, loadErr)
			return
		}
		current.Post.Title = req.Title
		current.Post.Description = req.Description
		h.render(w, r, http.StatusBadRequest, "edit_post.html", PageData{
			View:      current,
			Title:     "Edit post",
			ViewerID:  viewerID(r),
			FormError: valErr.Message,
		})
		return
	}
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	slog.Info("post updated", "post_id", req.PostID, "user_id", req.UserID)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, view)
		return
	}
	http.Redirect(w, r, "/users/"+url.PathEscape(req.UserID)+"/posts", http.StatusSeeOther)
}

// LoginPageHandler renders the login form.
// GET /login?next=
func (h *Handlers) LoginPageHandler(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login.html", PageData{
		View:     LoginPageData{Next: safeRedirect(r.URL.Query().Get("next"))},
		Title:    "Sign in",
		ViewerID: viewerID(r),
	})
}

// LoginSubmitHandler authenticates against the users collection and stores the
// issued token in the session cookie.
// POST /login
func (h *Handlers) LoginSubmitHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "InvalidRequest", "Malformed form data")
		return
	}

	identity := strings.TrimSpace(r.PostFormValue("identity"))
	password := r.PostFormValue("password")
	next := safeRedirect(r.PostFormValue("next"))

	loginFailed := func(status int, message string) {
		if wantsJSON(r) {
			writeJSON(w, status, ErrorResponse{Error: "LoginFailed", Message: message})
			return
		}
		h.render(w, r, status, "login.html", PageData{
			View:      LoginPageData{Identity: identity, Next: next},
			Title:     "Sign in",
			FormError: message,
		})
	}

	if identity == "" || password == "" {
		loginFailed(http.StatusBadRequest, "Email or username and password are required.")
		return
	}

	result, err := h.auth.AuthWithPassword(r.Context(), baas.CollectionUsers, identity, password)
	switch {
	case errors.Is(err, baas.ErrBadRequest), errors.Is(err, baas.ErrUnauthorized), errors.Is(err, baas.ErrForbidden):
		slog.Debug("login rejected", "identity", identity, "error", err)
		loginFailed(http.StatusUnauthorized, "Invalid login credentials.")
		return
	case err != nil:
		slog.Error("login failed", "identity", identity, "error", err)
		loginFailed(http.StatusBadGateway, "Sign in is unavailable. Please try again later.")
		return
	}

	if err := h.sessions.Login(w, r, result.Token); err != nil {
		slog.Error("failed to save session", "error", err)
		loginFailed(http.StatusInternalServerError, "Could not start your session.")
		return
	}

	slog.Info("user signed in", "user_id", result.Record.ID())

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"userId": result.Record.ID(), "next": next})
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// LogoutHandler clears the session.
// POST /logout
func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		slog.Error("failed to clear session", "error", err)
	}
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HealthHandler reports liveness. It never touches the backend.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// respond writes view as JSON or renders it into the named page.
func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, name, title string, view any) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, view)
		return
	}
	h.render(w, r, http.StatusOK, name, PageData{
		View:     view,
		Title:    title,
		ViewerID: viewerID(r),
	})
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, name string, data PageData) {
	if err := h.templates.RenderStatus(w, status, name, data); err != nil {
		slog.Error("failed to render template", "template", name, "path", r.URL.Path, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleServiceError maps service errors to HTTP responses
func (h *Handlers) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *posts.ValidationError
	switch {
	case errors.Is(err, access.ErrNotAuthenticated):
		if !wantsJSON(r) && r.Method == http.MethodGet {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		h.writeError(w, r, http.StatusUnauthorized, "AuthRequired", "Sign in to continue.")

	case errors.Is(err, access.ErrNotOwner):
		h.writeError(w, r, http.StatusForbidden, "Forbidden", "You can only edit your own posts.")

	case posts.IsNotFound(err):
		h.writeError(w, r, http.StatusNotFound, "NotFound", "Post not found.")

	case errors.As(err, &valErr):
		h.writeError(w, r, http.StatusBadRequest, "InvalidRequest", valErr.Message)

	case errors.Is(err, baas.ErrReadOnly):
		h.writeError(w, r, http.StatusServiceUnavailable, "ReadOnly", "Editing is disabled on this server.")

	default:
		// Internal server error - don't leak details
		slog.Error("post service error", "path", r.URL.Path, "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "InternalServerError", "An internal error occurred.")
	}
}

// writeError writes a JSON error or renders the error page.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, errorType, message string) {
	if wantsJSON(r) {
		writeJSON(w, status, ErrorResponse{Error: errorType, Message: message})
		return
	}
	h.render(w, r, status, "error.html", PageData{
		View:     ErrorPageData{Status: status, Message: message},
		Title:    http.StatusText(status),
		ViewerID: viewerID(r),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	// Pre-encode so an encoding failure can still become a 500
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"InternalServerError","message":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

// wantsJSON reports whether the client asked for the JSON view-model.
func wantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func viewerID(r *http.Request) string {
	id, _ := middleware.GetSession(r).CurrentUserID()
	return id
}

// intParam returns 0 for missing or malformed values; the services apply their defaults.
func intParam(q url.Values, key string) int {
	n, err := strconv.Atoi(q.Get(key))
	if err != nil {
		return 0
	}
	return n
}

func boolParam(q url.Values, key string) bool {
	b, _ := strconv.ParseBool(q.Get(key))
	return b
}

// safeRedirect keeps redirects on this site.
func safeRedirect(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
