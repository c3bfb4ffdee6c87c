package http

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"goblog/internal/domain"
	"goblog/internal/repository"
	"goblog/internal/service"
	"goblog/internal/storage"
	"goblog/internal/token"
)

const sessionCookie = "session"

// Handler wires HTTP routes to domain services.
type Handler struct {
	users       service.UserService
	posts       service.PostService
	tokens      *token.Manager
	storage     storage.Service
	sessionTTL  time.Duration
	rememberTTL time.Duration
	logger      *logrus.Logger
}

func NewHandler(
	users service.UserService,
	posts service.PostService,
	tokens *token.Manager,
	store storage.Service,
	sessionTTL, rememberTTL time.Duration,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		users:       users,
		posts:       posts,
		tokens:      tokens,
		storage:     store,
		sessionTTL:  sessionTTL,
		rememberTTL: rememberTTL,
		logger:      logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(), requestIDMiddleware())

	router.GET("/register", h.registerForm)
	router.POST("/register", h.register)
	router.GET("/login", h.loginForm)
	router.POST("/login", h.login)
	router.GET("/logout", h.logout)
	router.GET("/user/:username", h.userPosts)
	router.GET("/reset_password", h.resetRequestForm)
	router.POST("/reset_password", h.resetRequest)
	router.GET("/reset_password/:token", h.resetTokenForm)
	router.POST("/reset_password/:token", h.resetToken)

	authed := router.Group("", h.requireAuth())
	{
		authed.GET("/account", h.account)
		authed.POST("/account", h.updateAccount)
		authed.POST("/posts", h.createPost)
	}

	router.GET("/api/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})
}

type registerRequest struct {
	Username        string `json:"username" form:"username" binding:"required,min=2,max=20"`
	Email           string `json:"email" form:"email" binding:"required,email"`
	Password        string `json:"password" form:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" binding:"required,eqfield=Password"`
}

// registerForm mirrors the original GET behavior: already-authenticated
// callers are pointed back home instead of the registration form.
func (h *Handler) registerForm(c *gin.Context) {
	h.formState(c)
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindError(err))
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.logger.WithField("username", user.Username).Info("user registered")
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Your account has been created! You are now able to log in",
		"redirect": "/login",
	})
}

type loginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
	Remember bool   `json:"remember" form:"remember"`
}

func (h *Handler) loginForm(c *gin.Context) {
	h.formState(c)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindError(err))
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Login Unsuccessful. Please check email and password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ttl := h.sessionTTL
	if req.Remember {
		ttl = h.rememberTTL
	}
	sessionToken, err := h.tokens.GenerateSession(user.ID, ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.SetCookie(sessionCookie, sessionToken, int(ttl.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"message":  "Login successful",
		"token":    sessionToken,
		"redirect": safeNext(c.Query("next")),
	})
}

func (h *Handler) logout(c *gin.Context) {
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"redirect": "/"})
}

func (h *Handler) account(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, userToResponse(user))
}

type accountRequest struct {
	Username string `form:"username" binding:"required,min=2,max=20"`
	Email    string `form:"email" binding:"required,email"`
}

// updateAccount applies username/email changes and, when a picture was
// supplied, uploads it first. An upload failure only costs the picture: the
// old image URL is kept, the failure is reported as a warning and the rest of
// the update still commits.
func (h *Handler) updateAccount(c *gin.Context) {
	user := currentUser(c)

	var req accountRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindError(err))
		return
	}

	var warnings []string
	imageURL := ""
	if fileHeader, err := c.FormFile("picture"); err == nil && fileHeader != nil {
		url, uploadErr := h.uploadPicture(c, fileHeader)
		if uploadErr != nil {
			h.logger.WithError(uploadErr).Warn("profile picture upload failed")
			warnings = append(warnings, uploadErr.Error())
		} else {
			imageURL = url
		}
	}

	updated, err := h.users.UpdateAccount(c.Request.Context(), user.ID, req.Username, req.Email, imageURL)
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"message": "Your account has been updated!",
		"user":    userToResponse(updated),
	}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) uploadPicture(c *gin.Context, fileHeader *multipart.FileHeader) (string, error) {
	if h.storage == nil {
		return "", errors.New("blob storage credentials are not configured")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("open uploaded file: %w", err)
	}
	defer f.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return h.storage.Upload(c.Request.Context(), fileHeader.Filename, contentType, f)
}

type createPostRequest struct {
	Title   string `json:"title" form:"title" binding:"required,max=100"`
	Content string `json:"content" form:"content" binding:"required"`
}

func (h *Handler) createPost(c *gin.Context) {
	user := currentUser(c)

	var req createPostRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindError(err))
		return
	}

	post, err := h.posts.Create(c.Request.Context(), user.ID, req.Title, req.Content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Your post has been created!",
		"post":    postToResponse(*post),
	})
}

func (h *Handler) userPosts(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}

	user, pageData, err := h.posts.ListByUser(c.Request.Context(), c.Param("username"), page)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	posts := make([]PostResponse, len(pageData.Posts))
	for i := range pageData.Posts {
		posts[i] = postToResponse(pageData.Posts[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"username":  user.Username,
			"image_url": user.ImageURL,
		},
		"posts": posts,
		"pagination": gin.H{
			"page":     pageData.Page,
			"per_page": pageData.PerPage,
			"total":    pageData.Total,
			"pages":    pageData.Pages,
			"has_next": pageData.HasNext,
			"has_prev": pageData.HasPrev,
		},
	})
}

type resetRequestBody struct {
	Email string `json:"email" form:"email" binding:"required,email"`
}

func (h *Handler) resetRequestForm(c *gin.Context) {
	h.formState(c)
}

func (h *Handler) resetRequest(c *gin.Context) {
	var req resetRequestBody
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindError(err))
		return
	}

	err := h.users.RequestPasswordReset(c.Request.Context(), req.Email)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"message":  "An email has been sent with instructions to reset your password.",
			"redirect": "/login",
		})
	case errors.Is(err, repository.ErrUserNotFound):
		// Distinct from the success notice; the original discloses whether an
		// email is registered.
		c.JSON(http.StatusNotFound, gin.H{"error": "No account found with that email."})
	case errors.Is(err, service.ErrMailNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).Error("password reset request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send reset email"})
	}
}

type resetPasswordBody struct {
	Password        string `json:"password" form:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" binding:"required,eqfield=Password"`
}

func (h *Handler) resetTokenForm(c *gin.Context) {
	if _, err := h.users.VerifyResetToken(c.Request.Context(), c.Param("token")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"warning":  "That is an invalid or expired token",
			"redirect": "/reset_password",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func (h *Handler) resetToken(c *gin.Context) {
	var req resetPasswordBody
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindError(err))
		return
	}

	err := h.users.ResetPassword(c.Request.Context(), c.Param("token"), req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"message":  "Your password has been updated! You are now able to log in",
			"redirect": "/login",
		})
	case errors.Is(err, service.ErrInvalidResetToken):
		c.JSON(http.StatusBadRequest, gin.H{
			"warning":  "That is an invalid or expired token",
			"redirect": "/reset_password",
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// formState answers GETs on the unauthenticated form routes: a logged-in
// caller is redirected home, everyone else may proceed.
func (h *Handler) formState(c *gin.Context) {
	if user := h.sessionUser(c); user != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": true, "redirect": "/"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}

// safeNext only honors relative in-app paths so login cannot be used as an
// open redirect.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "/"
	}
	return next
}

func bindError(err error) gin.H {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[strings.ToLower(fe.Field())] = validationMessage(fe)
		}
		return gin.H{"error": "validation failed", "fields": fields}
	}
	return gin.H{"error": err.Error()}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "eqfield":
		return "fields do not match"
	default:
		return "invalid value"
	}
}

type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	ImageURL string `json:"image_url"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		ImageURL: user.ImageURL,
	}
}

type PostResponse struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	DatePosted string `json:"date_posted"`
}

func postToResponse(post domain.Post) PostResponse {
	return PostResponse{
		ID:         post.ID,
		Title:      post.Title,
		Content:    post.Content,
		DatePosted: post.DatePosted.Format(time.RFC3339),
	}
}
