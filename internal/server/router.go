package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tracklab/progress/backend/internal/admin"
	"github.com/tracklab/progress/backend/internal/auth"
	"github.com/tracklab/progress/backend/internal/logs"
	"go.uber.org/zap"
)

const identityContextKey = "tracker_identity"

var (
	errMissingVerifier     = errors.New("token verifier dependency required")
	errMissingRoleResolver = errors.New("role resolver dependency required")
	errMissingLogService   = errors.New("log service dependency required")
	errMissingAdminService = errors.New("admin service dependency required")
)

// TokenVerifier validates a bearer token and returns identity claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (auth.Claims, error)
}

// LogService is the ingestion/retrieval/analytics surface of the logs domain.
type LogService interface {
	CreateLog(ctx context.Context, callerEmail string, entry logs.LogEntry, attachment logs.Attachment) (logs.CreateResult, error)
	ListOwn(ctx context.Context, email string) ([]logs.OwnedLog, error)
	Analytics(ctx context.Context) (*logs.TopPerformer, []logs.SubmitterAggregate, error)
}

// AdminService is the reporting surface backed by the structured database.
type AdminService interface {
	Overview(ctx context.Context) (admin.Overview, error)
	Students(ctx context.Context) ([]admin.StudentSummary, error)
	StudentLogs(ctx context.Context, studentID string) (admin.StudentProfile, []admin.StudentLog, error)
	Leaderboard(ctx context.Context) ([]admin.LeaderboardEntry, error)
	ManageAdmin(ctx context.Context, email, action string) (string, error)
}

// Dependencies wires the router to its collaborators.
type Dependencies struct {
	Verifier       TokenVerifier
	Roles          *auth.RoleResolver
	Logs           LogService
	Admin          AdminService
	Logger         *zap.Logger
	AllowedOrigins []string
}

// NewHTTPHandler builds the gin handler with CORS, auth middleware and
// all service routes.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Verifier == nil {
		return nil, errMissingVerifier
	}
	if deps.Roles == nil {
		return nil, errMissingRoleResolver
	}
	if deps.Logs == nil {
		return nil, errMissingLogService
	}
	if deps.Admin == nil {
		return nil, errMissingAdminService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsConfig := cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) != 1 || origins[0] != "*" {
		corsConfig.AllowCredentials = true
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig))

	handler := &httpHandler{
		verifier: deps.Verifier,
		roles:    deps.Roles,
		logs:     deps.Logs,
		admin:    deps.Admin,
		logger:   logger,
	}
	router.Use(handler.logRequest)

	router.GET("/", handler.handleRoot)
	router.GET("/health", handler.handleHealth)
	router.POST("/auth/login", handler.handleLogin)
	router.GET("/logs/analytics", handler.handleAnalytics)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/logs", handler.handleCreateLog)
	protected.GET("/logs/me", handler.handleMyLogs)

	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(handler.requireRole(auth.RoleAdmin, auth.RoleSuperAdmin))
	adminRoutes.GET("/overview", handler.handleOverview)
	adminRoutes.GET("/students", handler.handleStudents)
	adminRoutes.GET("/student/:id/logs", handler.handleStudentLogs)
	adminRoutes.GET("/leaderboard", handler.handleLeaderboard)
	adminRoutes.POST("/manage-admin", handler.requireRole(auth.RoleSuperAdmin), handler.handleManageAdmin)

	return router, nil
}

type httpHandler struct {
	verifier TokenVerifier
	roles    *auth.RoleResolver
	logs     LogService
	admin    AdminService
	logger   *zap.Logger
}

func (h *httpHandler) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Student Progress Tracker API", "status": "running"})
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

type loginRequestPayload struct {
	Token string `json:"token"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Token) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request"})
		return
	}

	claims, err := h.verifier.Verify(c.Request.Context(), request.Token)
	if err != nil {
		h.logger.Warn("login token verification failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"detail": verificationDetail(err)})
		return
	}

	identity := h.roles.Identify(claims)
	c.JSON(http.StatusOK, gin.H{
		"email": identity.Email,
		"name":  identity.Name,
		"role":  identity.Role,
	})
}

func (h *httpHandler) handleCreateLog(c *gin.Context) {
	identity := currentIdentity(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Unauthorized"})
		return
	}

	var entry logs.LogEntry
	payload := c.PostForm("payload")
	if payload == "" || json.Unmarshal([]byte(payload), &entry) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid payload"})
		return
	}

	fileHeader, err := c.FormFile("attachment")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Attachment is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Attachment is required"})
		return
	}
	defer file.Close()

	result, err := h.logs.CreateLog(c.Request.Context(), identity.Email, entry, logs.Attachment{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Body:        file,
		Size:        fileHeader.Size,
	})
	if err != nil {
		h.respondLogError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":             "Log stored successfully",
		"path":                result.Path,
		"attachment_url":      result.AttachmentURL,
		"attachment_filename": result.AttachmentFilename,
	})
}

func (h *httpHandler) handleMyLogs(c *gin.Context) {
	identity := currentIdentity(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Unauthorized"})
		return
	}

	owned, err := h.logs.ListOwn(c.Request.Context(), identity.Email)
	if err != nil {
		h.logger.Error("failed to list own logs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to list log entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": owned})
}

func (h *httpHandler) handleAnalytics(c *gin.Context) {
	topPerformer, aggregates, err := h.logs.Analytics(c.Request.Context())
	if err != nil {
		h.logger.Error("analytics aggregation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to list log entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"top_performer": topPerformer,
		"analytics":     aggregates,
	})
}

func (h *httpHandler) handleOverview(c *gin.Context) {
	overview, err := h.admin.Overview(c.Request.Context())
	if err != nil {
		h.respondAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "overview": overview})
}

func (h *httpHandler) handleStudents(c *gin.Context) {
	students, err := h.admin.Students(c.Request.Context())
	if err != nil {
		h.respondAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "students": students})
}

func (h *httpHandler) handleStudentLogs(c *gin.Context) {
	profile, rows, err := h.admin.StudentLogs(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "student": profile, "logs": rows})
}

func (h *httpHandler) handleLeaderboard(c *gin.Context) {
	leaderboard, err := h.admin.Leaderboard(c.Request.Context())
	if err != nil {
		h.respondAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "leaderboard": leaderboard})
}

type manageAdminPayload struct {
	Email  string `json:"email"`
	Action string `json:"action"`
}

func (h *httpHandler) handleManageAdmin(c *gin.Context) {
	var request manageAdminPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request"})
		return
	}

	message, err := h.admin.ManageAdmin(c.Request.Context(), request.Email, request.Action)
	if err != nil {
		h.respondAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authorization header missing"})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" || !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
		return
	}

	claims, err := h.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		h.logger.Warn("token verification failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": verificationDetail(err)})
		return
	}

	identity := h.roles.Identify(claims)
	c.Set(identityContextKey, identity)
	c.Next()
}

func (h *httpHandler) requireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := currentIdentity(c)
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Unauthorized"})
			return
		}
		for _, role := range allowed {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Insufficient permissions"})
	}
}

func (h *httpHandler) logRequest(c *gin.Context) {
	start := time.Now()
	requestID := uuid.NewString()
	c.Header("X-Request-Id", requestID)

	c.Next()

	h.logger.Debug("request handled",
		zap.String("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("elapsed", time.Since(start)))
}

func (h *httpHandler) respondLogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, logs.ErrOwnership):
		c.JSON(http.StatusForbidden, gin.H{"detail": "You can only submit logs for your own account."})
	case errors.Is(err, logs.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"detail": validationDetail(err)})
	default:
		h.logger.Error("log ingestion failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to store log entry"})
	}
}

func (h *httpHandler) respondAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, admin.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Student not found"})
	case errors.Is(err, admin.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Action must be 'add' or 'remove'"})
	default:
		h.logger.Error("admin reporting failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	}
}

func validationDetail(err error) string {
	var serviceErr *logs.ServiceError
	if errors.As(err, &serviceErr) && strings.HasSuffix(serviceErr.Code(), "bad_extension") {
		return "Attachment must be a PDF or DOCX file."
	}
	return "Invalid payload"
}

func verificationDetail(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken):
		return "Invalid token"
	default:
		return "Authentication failed"
	}
}

func currentIdentity(c *gin.Context) *auth.Identity {
	value, exists := c.Get(identityContextKey)
	if !exists {
		return nil
	}
	identity, ok := value.(auth.Identity)
	if !ok {
		return nil
	}
	return &identity
}
