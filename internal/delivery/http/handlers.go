package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"onlearn-learner/internal/domain"
	"onlearn-learner/internal/repository"
	"onlearn-learner/pkg/utils"
)

type Handler struct {
	AuthUsecase       domain.AuthUsecase
	CourseViewUsecase domain.CourseViewUsecase
	DashboardUsecase  domain.DashboardUsecase
}

func NewHandler(au domain.AuthUsecase, cvu domain.CourseViewUsecase, du domain.DashboardUsecase) *Handler {
	return &Handler{
		AuthUsecase:       au,
		CourseViewUsecase: cvu,
		DashboardUsecase:  du,
	}
}

// ========== UTILITY FUNCTIONS ==========

func formatValidationErrors(err error) gin.H {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		details := make(map[string]string)
		for _, f := range ve {
			details[f.Field()] = fmt.Sprintf("Field validation for '%s' failed on the '%s' tag", f.Field(), f.Tag())
		}
		return gin.H{"error": "Validation failed", "details": details}
	}
	return gin.H{"error": "Invalid request: " + err.Error()}
}

func getCredential(c *gin.Context) (domain.Credential, error) {
	v, exists := c.Get(ctxCredential)
	if !exists {
		return domain.Credential{}, domain.ErrUnauthenticated
	}
	return v.(domain.Credential), nil
}

func getCourseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// courseRequest resolves the credential and course id or answers the request.
func courseRequest(c *gin.Context) (domain.Credential, uint, bool) {
	cred, err := getCredential(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return cred, 0, false
	}
	courseID, ok := getCourseID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course ID"})
		return cred, 0, false
	}
	return cred, courseID, true
}

// respondError maps usecase errors to status codes.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		loadErr *domain.LoadError
		valErr  *domain.ValidationError
		apiErr  *repository.APIError
	)
	switch {
	// the remote LMS refused the token, e.g. it expired
	case repository.IsStatus(err, http.StatusUnauthorized), errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Please log in.", "redirect": c.GetString(ctxLoginPath)})
	case errors.Is(err, domain.ErrCourseNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found."})
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": valErr.Details()})
	case errors.As(err, &loadErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load", "prior": loadErr.Prior})
	case errors.Is(err, domain.ErrInvalidLogin):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotEnrolled):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrModuleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAlreadyEnrolled), errors.Is(err, domain.ErrFeedbackExists), errors.Is(err, domain.ErrFeedbackPending),
		errors.Is(err, domain.ErrNoModuleSelected), errors.Is(err, domain.ErrNotPlayable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidPlayback):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &apiErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// ========== AUTH HANDLERS ==========

func (h *Handler) Login(c *gin.Context) {
	var input domain.LoginInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, formatValidationErrors(err))
		return
	}

	token, err := h.AuthUsecase.Login(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	learnerID, _ := utils.DecodeLearnerID(token)
	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"token":      token,
		"learner_id": learnerID,
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ========== DASHBOARD HANDLERS ==========

func (h *Handler) GetLearnerDashboard(c *gin.Context) {
	cred, err := getCredential(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	data, err := h.DashboardUsecase.GetLearnerDashboard(c.Request.Context(), cred)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// ========== COURSE VIEW HANDLERS ==========

// OpenCourse loads (or reloads) the course view.
func (h *Handler) OpenCourse(c *gin.Context) {
	cred, courseID, ok := courseRequest(c)
	if !ok {
		return
	}

	view, err := h.CourseViewUsecase.Open(c.Request.Context(), cred, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) GetCourseView(c *gin.Context) {
	cred, courseID, ok := courseRequest(c)
	if !ok {
		return
	}

	view, err := h.CourseViewUsecase.Get(c.Request.Context(), cred, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) CloseCourse(c *gin.Context) {
	cred, courseID, ok := courseRequest(c)
	if !ok {
		return
	}

	if err := h.CourseViewUsecase.Close(c.Request.Context(), cred, courseID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Select(c *gin.Context) {
	cred, courseID, ok := courseRequest(c)
	if !ok {
		return
	}

	var req struct {
		Kind     domain.SelectionKind `json:"kind" binding:"required,oneof=module feedback"`
		ModuleID uint                 `json:"module_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, formatValidationErrors(err))
		return
	}

	var (
		view *domain.CourseView
		err  error
	)
	if req.Kind == domain.SelectFeedback {
		view, err = h.CourseViewUsecase.SelectFeedback(c.Request.Context(), cred, courseID)
	} else {
		view, err = h.CourseViewUsecase.SelectModule(c.Request.Context(), cred, courseID, req.ModuleID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) Pause(c *gin.Context) {
	cred, courseID, ok := courseRequest(c)
	if !ok {
		return
	}

	var req struct {
		Position *float64 `json:"position" binding:"required"`
		Duration *float64 `json:"duration" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, formatValidationErrors(err))
		return
	}

	view, err := h.CourseViewUsecase.Pause(c.Request.Context(), cred, courseID, *req.Position, *req.Duration)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) Ended(c *gin.Context) {
	cred, courseID, ok := courseRequest(c)
	if !ok {
		return
	}

	view, err := h.CourseViewUsecase.Ended(c.Request.Context(), cred, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) SubmitFeedback(c *gin.Context) {
	cred, courseID, ok := courseRequest(c)
	if !ok {
		return
	}

	var input domain.FeedbackInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, formatValidationErrors(err))
		return
	}

	view, err := h.CourseViewUsecase.SubmitFeedback(c.Request.Context(), cred, courseID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Thank you for your feedback!",
		"view":    view,
	})
}

func (h *Handler) Enroll(c *gin.Context) {
	cred, courseID, ok := courseRequest(c)
	if !ok {
		return
	}

	view, err := h.CourseViewUsecase.Enroll(c.Request.Context(), cred, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handler) Unenroll(c *gin.Context) {
	cred, courseID, ok := courseRequest(c)
	if !ok {
		return
	}

	view, err := h.CourseViewUsecase.Unenroll(c.Request.Context(), cred, courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
