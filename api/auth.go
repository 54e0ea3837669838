package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/ats/internal/models"
	"github.com/garnizeh/ats/internal/validate"
	pub "github.com/garnizeh/ats/pkg/models"
	"github.com/garnizeh/ats/pkg/repository"
)

type AuthHandler struct {
	userRepo      repository.UserRepo
	jwtSecret     string
	tokenDuration time.Duration
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(ur repository.UserRepo, jwtSecret string, tokenDuration time.Duration) *AuthHandler {
	return &AuthHandler{userRepo: ur, jwtSecret: jwtSecret, tokenDuration: tokenDuration}
}

// Login accepts a username or, failing that, an email address.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req pub.Credentials
	fields, err := decodeBody(r.Context(), r, credentialsSchema, &req)
	if err != nil || fields != nil {
		badBody(w, fields, err)
		return
	}

	ctx := r.Context()
	user, err := h.userRepo.GetUserByUsername(ctx, req.Username)
	if err == nil && user == nil && strings.Contains(req.Username, "@") {
		user, err = h.userRepo.GetUserByEmail(ctx, req.Username)
	}
	if err != nil {
		internalError(w, "lookup user", err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	h.respondWithToken(w, user, http.StatusOK)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req pub.Registration
	fields, err := decodeBody(r.Context(), r, registrationSchema, &req)
	if err != nil || fields != nil {
		badBody(w, fields, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email != "" && !validate.Email(req.Email) {
		writeFields(w, map[string][]string{"email": {"Enter a valid email address."}})
		return
	}

	ctx := r.Context()
	existing, err := h.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		internalError(w, "lookup user", err)
		return
	}
	if existing != nil {
		writeFields(w, map[string][]string{"username": {"A user with that username already exists."}})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		internalError(w, "hash password", err)
		return
	}

	user := &models.User{Username: req.Username, Email: req.Email, PasswordHash: string(hash)}
	user.ID, err = h.userRepo.CreateUser(ctx, user)
	if err != nil {
		internalError(w, "create user", err)
		return
	}
	logger.Info("user registered", slog.Int64("user_id", user.ID), slog.String("username", user.Username))

	h.respondWithToken(w, user, http.StatusCreated)
}

// CurrentUser returns the user the request token belongs to.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	id, ok := UserID(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	user, err := h.userRepo.GetUserByID(r.Context(), id)
	if err != nil {
		internalError(w, "lookup user", err)
		return
	}
	if user == nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid token.")
		return
	}
	writeJSON(w, user.Public(), http.StatusOK)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, user *models.User, status int) {
	token, err := IssueToken(h.jwtSecret, user.ID, h.tokenDuration)
	if err != nil {
		internalError(w, "sign token", err)
		return
	}
	writeJSON(w, pub.AuthResult{Token: token, UserID: user.ID, Email: user.Email, Username: user.Username}, status)
}
