package user

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adjeibohyen/ripple-server/cmd/models"
	"github.com/adjeibohyen/ripple-server/cmd/utils"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// RegisterRoutes sets up all user-related routes
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/register", h.HandleRegister).Methods("POST")
	router.HandleFunc("/login", h.handleLogin).Methods("POST")
	router.HandleFunc("/refresh", h.handleRefreshToken).Methods("POST")
	router.HandleFunc("/users/{id:[0-9]+}", h.GetUser).Methods("GET")
	router.HandleFunc("/users/me", utils.AuthMiddleware(h.UpdateProfile)).Methods("PUT")
	router.HandleFunc("/users/{id:[0-9]+}/follow", utils.AuthMiddleware(h.ToggleFollow)).Methods("POST")
	router.HandleFunc("/users/{id:[0-9]+}/followers", h.GetFollowers).Methods("GET")
	router.HandleFunc("/users/{id:[0-9]+}/following", h.GetFollowing).Methods("GET")
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var registerRequest struct {
		Handle      string `json:"handle"`
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
		Password    string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&registerRequest); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON input")
		return
	}

	if registerRequest.Handle == "" || registerRequest.DisplayName == "" ||
		registerRequest.Email == "" || registerRequest.Password == "" {
		utils.WriteError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	var existingUser models.User
	if result := h.db.Where("email = ? OR handle = ?", registerRequest.Email, registerRequest.Handle).First(&existingUser); !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		if result.Error != nil {
			utils.WriteError(w, http.StatusInternalServerError, "Database error")
			return
		}

		var errorMessage string
		if existingUser.Email == registerRequest.Email {
			errorMessage = "Email is already in use"
		} else {
			errorMessage = "Handle is already taken"
		}
		log.Printf("Registration attempt with duplicate %s", errorMessage)
		utils.WriteError(w, http.StatusConflict, errorMessage)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(registerRequest.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error hashing password")
		return
	}

	user := models.User{
		Handle:       registerRequest.Handle,
		DisplayName:  registerRequest.DisplayName,
		Email:        registerRequest.Email,
		PasswordHash: string(passwordHash),
	}

	if err := h.db.Create(&user).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "duplicate key") {
			utils.WriteError(w, http.StatusConflict, "Email or handle is already in use")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Error registering user")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Registration successful",
		"user_id": user.ID,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&loginRequest); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var user models.User
	result := h.db.Where("email = ?", loginRequest.Email).First(&user)
	if result.Error != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(loginRequest.Password)); err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	accessToken, err := generateJWT(user.ID, 24)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error generating access token")
		return
	}

	refreshToken, err := generateRefreshToken(user.ID)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error generating refresh token")
		return
	}

	if err := saveRefreshToken(h.db, user.ID, refreshToken); err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error saving refresh token")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Login successful",
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user_id":       user.ID,
		"handle":        user.Handle,
	})
}

func (h *Handler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var refreshRequest struct {
		RefreshToken string `json:"refresh_token"`
	}

	if err := json.NewDecoder(r.Body).Decode(&refreshRequest); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	var user models.User
	if err := h.db.Where("refresh_token = ?", refreshRequest.RefreshToken).First(&user).Error; err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	if user.RefreshTokenExpiredAt.Before(time.Now()) {
		utils.WriteError(w, http.StatusUnauthorized, "Refresh token expired")
		return
	}

	newAccessToken, err := generateJWT(user.ID, 24)
	if err != nil {
		log.Printf("Failed to generate access token for user ID: %d, error: %v", user.ID, err)
		utils.WriteError(w, http.StatusInternalServerError, "Error generating new token")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": newAccessToken,
	})
}

// GetUser returns a profile summary with follow and post counts.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "User not found")
		return
	}

	var followers, following, posts int64
	h.db.Model(&models.Follow{}).Where("followee_id = ?", user.ID).Count(&followers)
	h.db.Model(&models.Follow{}).Where("follower_id = ?", user.ID).Count(&following)
	h.db.Model(&models.Post{}).Where("owner_id = ?", user.ID).Count(&posts)

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":            user.Summary(),
		"bio":             user.Bio,
		"banner_path":     user.BannerPath,
		"followers_count": followers,
		"following_count": following,
		"posts_count":     posts,
	})
}

// UpdateProfile applies one explicit profile edit per request. The
// operation is a tagged variant, never a free-form field/value pair.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var editRequest struct {
		Op    string `json:"op"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&editRequest); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var column string
	switch editRequest.Op {
	case "set_bio":
		column = "bio"
	case "set_banner":
		column = "banner_path"
	case "set_avatar":
		column = "avatar_path"
	case "set_name":
		if strings.TrimSpace(editRequest.Value) == "" {
			utils.WriteError(w, http.StatusUnprocessableEntity, "Display name cannot be empty")
			return
		}
		column = "display_name"
	default:
		utils.WriteError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Unknown profile operation: %q", editRequest.Op))
		return
	}

	if err := h.db.Model(&models.User{}).Where("id = ?", userID).
		Update(column, editRequest.Value).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error updating profile")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Profile updated successfully"})
}

// ToggleFollow flips the caller's membership in a user's follower set.
func (h *Handler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	callerID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	followeeID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	if uint(followeeID) == callerID {
		utils.WriteError(w, http.StatusUnprocessableEntity, "Cannot follow yourself")
		return
	}

	var followee models.User
	if err := h.db.First(&followee, followeeID).Error; err != nil {
		utils.WriteError(w, http.StatusNotFound, "User not found")
		return
	}

	var existing models.Follow
	err = h.db.Where("follower_id = ? AND followee_id = ?", callerID, followeeID).First(&existing).Error
	if err == nil {
		if err := h.db.Delete(&existing).Error; err != nil {
			utils.WriteError(w, http.StatusInternalServerError, "Error unfollowing user")
			return
		}
		utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"following": false})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}

	follow := models.Follow{FollowerID: callerID, FolloweeID: uint(followeeID)}
	if err := h.db.Create(&follow).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error following user")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"following": true})
}

// GetFollowers lists the users following the given user.
func (h *Handler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	h.listFollowEdge(w, r, "followee_id", "Follower")
}

// GetFollowing lists the users the given user follows.
func (h *Handler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	h.listFollowEdge(w, r, "follower_id", "Followee")
}

func (h *Handler) listFollowEdge(w http.ResponseWriter, r *http.Request, column, preload string) {
	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var follows []models.Follow
	if err := h.db.Where(column+" = ?", userID).Preload(preload).Find(&follows).Error; err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Error retrieving follows")
		return
	}

	summaries := make([]models.UserSummary, 0, len(follows))
	for _, f := range follows {
		var u *models.User
		if preload == "Follower" {
			u = f.Follower
		} else {
			u = f.Followee
		}
		if u != nil {
			summaries = append(summaries, u.Summary())
		}
	}

	utils.WriteJSON(w, http.StatusOK, summaries)
}

func generateJWT(userID uint, expirationHours int) (string, error) {
	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(userID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * time.Duration(expirationHours))),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("SECRET_KEY")))
}

func generateRefreshToken(userID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, []byte(os.Getenv("SECRET_KEY")))
	mac.Write([]byte(fmt.Sprintf("%d", userID)))
	mac.Write(b)

	signature := mac.Sum(nil)
	return fmt.Sprintf("%d_%x_%x", userID, b, signature), nil
}

func saveRefreshToken(db *gorm.DB, userID uint, refreshToken string) error {
	expirationTime := time.Now().Add(30 * 24 * time.Hour)
	return db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"refresh_token":            refreshToken,
		"refresh_token_expired_at": expirationTime,
	}).Error
}
