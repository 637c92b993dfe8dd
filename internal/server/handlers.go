package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/julianstephens/habitloop/internal/errors"
	"github.com/julianstephens/habitloop/internal/logger"
	"github.com/julianstephens/habitloop/internal/models"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type createRequest struct {
	InputText string `json:"inputText"`
}

var statusByKind = map[apperrors.Kind]int{
	apperrors.KindUnauthenticated:    http.StatusUnauthorized,
	apperrors.KindValidation:         http.StatusBadRequest,
	apperrors.KindNotFound:           http.StatusNotFound,
	apperrors.KindConflict:           http.StatusConflict,
	apperrors.KindUpstreamExtraction: http.StatusBadGateway,
	apperrors.KindInternal:           http.StatusInternalServerError,
}

// StatusOf maps an error to its HTTP status.
func StatusOf(err error) int {
	if status, ok := statusByKind[apperrors.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request error", "path", c.Request.URL.Path, "error", err)
	} else {
		logger.Debug("Request rejected", "path", c.Request.URL.Path, "kind", kind, "error", err)
	}
	c.AbortWithStatusJSON(status, errorBody{Error: apperrors.MessageOf(err), Code: string(kind)})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreate(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, apperrors.E(apperrors.KindValidation, "server.create", "request body must be JSON with an inputText field", err))
		return
	}

	res, err := s.habits.Create(c.Request.Context(), currentUser(c), req.InputText)
	if err != nil {
		abortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if res.Habit == nil {
		status = http.StatusOK
	}
	if res.Items == nil {
		res.Items = []models.ParsedItem{}
	}
	c.JSON(status, res)
}

func (s *Server) handleList(c *gin.Context) {
	list, err := s.habits.List(c.Request.Context(), currentUser(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"habits": list})
}

func (s *Server) handleComplete(c *gin.Context) {
	habit, err := s.habits.Complete(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"habit": habit})
}

func (s *Server) handleDelete(c *gin.Context) {
	if err := s.habits.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleStats(c *gin.Context) {
	dashboard, err := s.habits.Dashboard(c.Request.Context(), currentUser(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}
