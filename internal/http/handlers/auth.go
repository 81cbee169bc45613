package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jjinnspecs/authhub/internal/config"
	"github.com/jjinnspecs/authhub/internal/domain/user"
	"github.com/jjinnspecs/authhub/internal/security"
)

// Keep these interfaces small so tests can fake them easily.

type UserStore interface {
	Create(ctx context.Context, req user.CreateRequest) (user.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (user.User, error)
}

type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Compare(ctx context.Context, hash, plain string) error
}

type TokenIssuer interface {
	Issue(userID, username string) (string, error)
}

type AuthHandler struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenIssuer
	log    *slog.Logger
}

func NewAuthHandler(users UserStore, hasher PasswordHasher, tokens TokenIssuer, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log,
	}
}

type SignUpRequest struct {
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName" binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// SignUp registers a new account. The users table's unique constraints
// are the authoritative duplicate signal; there is no pre-check to race.
func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	hash, err := h.hasher.Hash(cctx, req.Password)

	if err != nil {
		h.log.Error("password hash failed", "err", err)
		RespondInternal(ctx, "Registration failed")
		return
	}

	_, err = h.users.Create(cctx, user.CreateRequest{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
	})

	if err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			RespondConflict(ctx, "duplicate_user", "Username, email or phone number already exists")
			return
		}

		h.log.Error("user create failed", "err", err)
		RespondInternal(ctx, "Registration failed")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
	})
}

// Login resolves the identifier against username, email and phone
// number, verifies the password and issues a bearer token.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	foundUser, err := h.users.GetByIdentifier(cctx, req.Identifier)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondBadRequest(ctx, "Username does not exist", gin.H{"code": "user_not_found"})
			return
		}

		h.log.Error("user lookup failed", "err", err)
		RespondInternal(ctx, "Login failed")
		return
	}

	err = h.hasher.Compare(cctx, foundUser.PasswordHash, req.Password)

	if err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			RespondBadRequest(ctx, "Wrong password", gin.H{"code": "wrong_password"})
			return
		}

		// comparison fault (e.g. malformed stored hash), not a wrong
		// password; must never be reported as bad credentials
		h.log.Error("password compare failed", "user_id", foundUser.ID, "err", err)
		RespondInternal(ctx, "Login failed")
		return
	}

	token, err := h.tokens.Issue(foundUser.ID, foundUser.Username)

	if err != nil {
		h.log.Error("token issue failed", "user_id", foundUser.ID, "err", err)
		RespondInternal(ctx, "Login failed")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":  "Login successful",
		"token":    token,
		"username": foundUser.Username,
	})
}
