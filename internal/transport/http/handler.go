package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"quizroom/internal/app"
	"quizroom/internal/domain"
	"quizroom/internal/metrics"
)

// Options tunes the router built by NewRouter.
type Options struct {
	JoinPerMinute  int
	JoinBurst      int
	TrustedProxies []string
	Metrics        *metrics.Metrics // optional
}

type Handler struct {
	service *app.QuizService
	log     *zap.Logger
}

func NewHandler(service *app.QuizService, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// NewRouter wires the quiz endpoints, health and metrics into a gin engine.
func NewRouter(h *Handler, opts Options) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, err
	}
	router.Use(gin.Recovery(), requestID(), accessLog(h.log))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
		router.GET("/metrics", opts.Metrics.Handler())
	}
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	joinLimit := newIPRateLimiter(opts.JoinPerMinute, opts.JoinBurst)

	quizzes := router.Group("/api/quizzes")
	{
		quizzes.POST("", h.CreateQuiz)
		quizzes.GET("/:code", h.GetQuiz)
		quizzes.POST("/:code/participants", joinLimit.Middleware(), h.Join)
		quizzes.GET("/:code/participants/:pid/question", h.CurrentQuestion)
		quizzes.POST("/:code/participants/:pid/answers", h.SubmitAnswer)
		quizzes.GET("/:code/participants/:pid/result", h.Result)
		quizzes.GET("/:code/scoreboard", h.Scoreboard)

		quizzes.GET("/:code/access", h.Access)
		quizzes.POST("/:code/whitelist", h.moderate(h.service.AddToWhitelist))
		quizzes.DELETE("/:code/whitelist/:ip", h.unmoderate(h.service.RemoveFromWhitelist))
		quizzes.POST("/:code/blacklist", h.moderate(h.service.AddToBlacklist))
		quizzes.DELETE("/:code/blacklist/:ip", h.unmoderate(h.service.RemoveFromBlacklist))
	}
	return router, nil
}

type joinRequest struct {
	Name string `json:"name"`
}

type ipRequest struct {
	IP string `json:"ip" binding:"required,ip"`
}

type submitAnswerRequest struct {
	Selected selection `json:"selected"`
}

// selection accepts a JSON array of numbers or numeric strings, or a single
// such value. Anything that is not an integer is dropped later.
type selection []string

func (s *selection) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		items = []json.RawMessage{data}
	}
	values := make([]string, 0, len(items))
	for _, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			values = append(values, text)
			continue
		}
		values = append(values, string(item))
	}
	*s = values
	return nil
}

func (h *Handler) CreateQuiz(c *gin.Context) {
	var draft domain.QuizDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "validation"})
		return
	}

	code, err := h.service.CreateQuiz(c.Request.Context(), draft)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info("quiz created", zap.String("code", code), zap.Int("questions", len(draft.Questions)))
	c.JSON(http.StatusCreated, gin.H{"code": code})
}

func (h *Handler) GetQuiz(c *gin.Context) {
	summary, err := h.service.GetQuiz(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) Join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "validation"})
		return
	}

	ip := c.ClientIP()
	id, err := h.service.Join(c.Request.Context(), c.Param("code"), req.Name, ip)
	if err != nil {
		if errors.Is(err, domain.ErrAccessDenied) || errors.Is(err, domain.ErrAccessRestricted) {
			h.log.Warn("join refused", zap.String("code", c.Param("code")), zap.String("ip", ip), zap.Error(err))
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"participantId": id})
}

func (h *Handler) CurrentQuestion(c *gin.Context) {
	view, err := h.service.CurrentQuestion(c.Request.Context(), c.Param("code"), c.Param("pid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitAnswer takes the selection from a JSON body or, for plain HTML forms,
// from repeated "selected" form values.
func (h *Handler) SubmitAnswer(c *gin.Context) {
	var raw []string
	if c.ContentType() == gin.MIMEJSON {
		var req submitAnswerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "validation"})
			return
		}
		raw = req.Selected
	} else {
		raw = c.PostFormArray("selected")
	}

	progress, err := h.service.SubmitAnswer(c.Request.Context(), c.Param("code"), c.Param("pid"), domain.ParseSelection(raw))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (h *Handler) Result(c *gin.Context) {
	result, err := h.service.Result(c.Request.Context(), c.Param("code"), c.Param("pid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Scoreboard(c *gin.Context) {
	board, err := h.service.Scoreboard(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *Handler) Access(c *gin.Context) {
	lists, err := h.service.Access(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lists)
}

// listChange is one of the service's whitelist/blacklist mutations.
type listChange func(ctx context.Context, code, ip string) (domain.AccessLists, error)

func (h *Handler) moderate(op listChange) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ipRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "validation"})
			return
		}
		h.applyListChange(c, op, req.IP)
	}
}

func (h *Handler) unmoderate(op listChange) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.applyListChange(c, op, c.Param("ip"))
	}
}

func (h *Handler) applyListChange(c *gin.Context, op listChange, ip string) {
	lists, err := op(c.Request.Context(), c.Param("code"), ip)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info("access lists updated",
		zap.String("code", c.Param("code")),
		zap.String("ip", ip),
		zap.String("route", c.FullPath()),
		zap.String("method", c.Request.Method),
	)
	c.JSON(http.StatusOK, lists)
}

// fail maps domain error kinds to HTTP responses.
func (h *Handler) fail(c *gin.Context, err error) {
	status, kind, message := http.StatusInternalServerError, "internal", "internal error"
	switch {
	case errors.Is(err, domain.ErrValidation):
		status, kind, message = http.StatusBadRequest, "validation", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, kind, message = http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, domain.ErrAccessDenied):
		status, kind, message = http.StatusForbidden, "access_denied", "your address is blocked from this quiz"
	case errors.Is(err, domain.ErrAccessRestricted):
		status, kind, message = http.StatusForbidden, "access_restricted", "this quiz only admits whitelisted addresses"
	default:
		h.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": message, "kind": kind})
}
