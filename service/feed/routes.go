package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/adjeibohyen/ripple-server/cmd/models"
	"github.com/adjeibohyen/ripple-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type Handler struct {
	svc *Service
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{svc: NewService(NewStore(db))}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	// Post routes
	router.HandleFunc("/posts", utils.AuthMiddleware(h.CreatePost)).Methods("POST")
	router.HandleFunc("/posts", utils.OptionalAuthMiddleware(h.GetFeed)).Methods("GET")
	router.HandleFunc("/posts/{postedAt:[0-9]+}", utils.OptionalAuthMiddleware(h.GetPost)).Methods("GET")
	router.HandleFunc("/posts/{postedAt:[0-9]+}", utils.AuthMiddleware(h.EditPost)).Methods("PUT")
	router.HandleFunc("/posts/{postedAt:[0-9]+}", utils.AuthMiddleware(h.DeletePost)).Methods("DELETE")
	router.HandleFunc("/users/{id:[0-9]+}/posts", utils.OptionalAuthMiddleware(h.GetUserPosts)).Methods("GET")

	// Like routes
	router.HandleFunc("/posts/{postedAt:[0-9]+}/like", utils.AuthMiddleware(h.LikePost)).Methods("POST")

	// Retweet routes
	router.HandleFunc("/posts/{postedAt:[0-9]+}/retweet", utils.AuthMiddleware(h.RetweetPost)).Methods("POST")
	router.HandleFunc("/posts/{postedAt:[0-9]+}/unretweet", utils.AuthMiddleware(h.UnretweetPost)).Methods("POST")

	// Comment routes
	router.HandleFunc("/posts/{postedAt:[0-9]+}/comments", utils.AuthMiddleware(h.AddComment)).Methods("POST")
	router.HandleFunc("/posts/{postedAt:[0-9]+}/comments/{commentId:[0-9]+}", utils.AuthMiddleware(h.EditComment)).Methods("PUT")
	router.HandleFunc("/posts/{postedAt:[0-9]+}/comments/{commentId:[0-9]+}", utils.AuthMiddleware(h.DeleteComment)).Methods("DELETE")
	router.HandleFunc("/posts/{postedAt:[0-9]+}/comments/{commentId:[0-9]+}/like", utils.AuthMiddleware(h.LikeComment)).Methods("POST")
}

// PostResponse is the outward post shape: shared fields as mirrored on the
// record itself plus caller-relative annotations.
type PostResponse struct {
	PostedAt         string             `json:"posted_at"`
	Content          string             `json:"content"`
	Tag              string             `json:"tag,omitempty"`
	ImageURL         string             `json:"image_url,omitempty"`
	IsEdited         bool               `json:"is_edited"`
	CreatedAt        time.Time          `json:"created_at"`
	Author           models.UserSummary `json:"author"`
	Owner            models.UserSummary `json:"owner"`
	LikeCount        int                `json:"like_count"`
	IsLiked          bool               `json:"is_liked"`
	RetweetCount     int                `json:"retweet_count"`
	IsRetweeted      bool               `json:"is_retweeted"`
	IsRetweet        bool               `json:"is_retweet"`
	OriginalPostedAt string             `json:"original_posted_at,omitempty"`
	Comments         []CommentResponse  `json:"comments"`
}

type CommentResponse struct {
	PostedAt  string             `json:"posted_at"`
	Content   string             `json:"content"`
	IsEdited  bool               `json:"is_edited"`
	CreatedAt time.Time          `json:"created_at"`
	Author    models.UserSummary `json:"author"`
	LikeCount int                `json:"like_count"`
	IsLiked   bool               `json:"is_liked"`
}

// CreatePost creates a new original post (multipart: content, tag, image)
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(50 << 20); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	content := r.FormValue("content")
	tag := r.FormValue("tag")

	var imageURL string
	if files := r.MultipartForm.File["image"]; len(files) > 0 {
		file, err := files[0].Open()
		if err != nil {
			utils.WriteError(w, http.StatusInternalServerError, "Error processing image")
			return
		}
		defer file.Close()

		imageURL, err = utils.SaveImage(file, files[0])
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	post, err := h.svc.CreatePost(r.Context(), userID, content, tag, imageURL)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	responses, err := h.buildPostResponses(r.Context(), []models.Post{*post}, userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, responses[0])
}

// GetFeed retrieves the global feed: originals only, newest first,
// optionally filtered by tag.
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	callerID, _ := utils.GetUserIDFromContext(r.Context())
	page, pageSize := pagination(r)
	tag := r.URL.Query().Get("tag")

	posts, total, err := h.svc.Store().ListFeed(r.Context(), page, pageSize, tag)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	responses, err := h.buildPostResponses(r.Context(), posts, callerID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"posts":       responses,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetUserPosts retrieves a user's own post list, retweets included.
func (h *Handler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ownerID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	callerID, _ := utils.GetUserIDFromContext(r.Context())
	page, pageSize := pagination(r)

	posts, total, err := h.svc.Store().ListUserPosts(r.Context(), uint(ownerID), page, pageSize)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	responses, err := h.buildPostResponses(r.Context(), posts, callerID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"posts":       responses,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetPost retrieves a single post with its hydrated comment list.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	callerID, _ := utils.GetUserIDFromContext(r.Context())

	post, err := h.svc.Store().PostByKey(r.Context(), mux.Vars(r)["postedAt"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	responses, err := h.buildPostResponses(r.Context(), []models.Post{*post}, callerID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, responses[0])
}

// EditPost updates a post's content and propagates the edit to copies.
func (h *Handler) EditPost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	post, err := h.svc.EditPost(r.Context(), userID, mux.Vars(r)["postedAt"], body.Content)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	responses, err := h.buildPostResponses(r.Context(), []models.Post{*post}, userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, responses[0])
}

// DeletePost deletes a post; originals take their retweet copies with them.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.svc.DeletePost(r.Context(), userID, mux.Vars(r)["postedAt"]); err != nil {
		h.writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Post deleted successfully"})
}

// LikePost toggles the caller's like on a post.
func (h *Handler) LikePost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	state, err := h.svc.TogglePostLike(r.Context(), userID, mux.Vars(r)["postedAt"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, state)
}

// RetweetPost creates the caller's retweet copy of an original post.
func (h *Handler) RetweetPost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	copyPost, err := h.svc.Retweet(r.Context(), userID, mux.Vars(r)["postedAt"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	responses, err := h.buildPostResponses(r.Context(), []models.Post{*copyPost}, userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, responses[0])
}

// UnretweetPost removes the caller's retweet copy.
func (h *Handler) UnretweetPost(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.svc.Unretweet(r.Context(), userID, mux.Vars(r)["postedAt"]); err != nil {
		h.writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Retweet removed successfully"})
}

// AddComment attaches a comment to a post.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	comment, err := h.svc.AddComment(r.Context(), userID, mux.Vars(r)["postedAt"], body.Content)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	response, err := h.buildCommentResponse(r.Context(), comment, userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, response)
}

// EditComment updates a comment's content.
func (h *Handler) EditComment(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	comment, err := h.svc.EditComment(r.Context(), userID, mux.Vars(r)["commentId"], body.Content)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	response, err := h.buildCommentResponse(r.Context(), comment, userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, response)
}

// DeleteComment detaches and deletes a comment.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	if err := h.svc.DeleteComment(r.Context(), userID, vars["postedAt"], vars["commentId"]); err != nil {
		h.writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Comment deleted successfully"})
}

// LikeComment toggles the caller's like on a comment.
func (h *Handler) LikeComment(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	state, err := h.svc.ToggleCommentLike(r.Context(), userID, mux.Vars(r)["commentId"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, state)
}

// buildPostResponses hydrates posts into their outward shape: author and
// owner summaries, comment lists in stored order, caller-relative like and
// retweet flags. The retweet flag always reads the canonical original's
// set; a copy's own frozen snapshot is never consulted.
func (h *Handler) buildPostResponses(ctx context.Context, posts []models.Post, callerID uint) ([]PostResponse, error) {
	store := h.svc.Store()

	var originalKeys []string
	var commentKeys []string
	for _, p := range posts {
		if p.IsRetweet {
			originalKeys = append(originalKeys, p.OriginalPostedAt)
		}
		commentKeys = append(commentKeys, p.CommentIDs...)
	}

	originals, err := store.PostsByKeys(ctx, originalKeys)
	if err != nil {
		return nil, err
	}

	comments, err := store.CommentsByKeys(ctx, models.KeyList(commentKeys))
	if err != nil {
		return nil, err
	}
	commentByKey := make(map[string]models.Comment, len(comments))
	for _, c := range comments {
		commentByKey[c.PostedAt] = c
	}

	var userIDs []uint
	for _, p := range posts {
		userIDs = append(userIDs, p.AuthorID, p.OwnerID)
	}
	for _, c := range comments {
		userIDs = append(userIDs, c.AuthorID)
	}
	users, err := store.UsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	responses := make([]PostResponse, 0, len(posts))
	for _, p := range posts {
		retweeters := p.RetweetUserIDs
		if p.IsRetweet {
			if original, ok := originals[p.OriginalPostedAt]; ok {
				retweeters = original.RetweetUserIDs
			}
		}

		resp := PostResponse{
			PostedAt:         p.PostedAt,
			Content:          p.Content,
			Tag:              p.Tag,
			ImageURL:         p.ImageURL,
			IsEdited:         p.IsEdited,
			CreatedAt:        p.CreatedAt,
			Author:           userSummary(users, p.AuthorID),
			Owner:            userSummary(users, p.OwnerID),
			LikeCount:        len(p.Likes),
			IsLiked:          p.Likes.Has(callerID),
			RetweetCount:     len(retweeters),
			IsRetweeted:      retweeters.Has(callerID),
			IsRetweet:        p.IsRetweet,
			OriginalPostedAt: p.OriginalPostedAt,
			Comments:         make([]CommentResponse, 0, len(p.CommentIDs)),
		}

		for _, key := range p.CommentIDs {
			c, ok := commentByKey[key]
			if !ok {
				continue
			}
			resp.Comments = append(resp.Comments, CommentResponse{
				PostedAt:  c.PostedAt,
				Content:   c.Content,
				IsEdited:  c.IsEdited,
				CreatedAt: c.CreatedAt,
				Author:    userSummary(users, c.AuthorID),
				LikeCount: len(c.Likes),
				IsLiked:   c.Likes.Has(callerID),
			})
		}

		responses = append(responses, resp)
	}
	return responses, nil
}

func (h *Handler) buildCommentResponse(ctx context.Context, comment *models.Comment, callerID uint) (CommentResponse, error) {
	users, err := h.svc.Store().UsersByIDs(ctx, []uint{comment.AuthorID})
	if err != nil {
		return CommentResponse{}, err
	}
	return CommentResponse{
		PostedAt:  comment.PostedAt,
		Content:   comment.Content,
		IsEdited:  comment.IsEdited,
		CreatedAt: comment.CreatedAt,
		Author:    userSummary(users, comment.AuthorID),
		LikeCount: len(comment.Likes),
		IsLiked:   comment.Likes.Has(callerID),
	}, nil
}

func userSummary(users map[uint]models.User, id uint) models.UserSummary {
	if u, ok := users[id]; ok {
		return u.Summary()
	}
	return models.UserSummary{ID: id}
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func pagination(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, ErrForbidden):
		utils.WriteError(w, http.StatusForbidden, "You do not own this resource")
	case errors.Is(err, ErrInvalidOperation):
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("feed: internal error: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
