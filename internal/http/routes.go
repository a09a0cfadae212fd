package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"videominer/internal/adapters/aigateway"
	"videominer/internal/adapters/pinterest"
	"videominer/internal/core/domain"
	gen "videominer/internal/generation"
)

// Miner runs a multi-source mining request.
type Miner interface {
	Mine(ctx context.Context, rawURL string, sources domain.SourceSet) domain.MiningResult
}

// Extractor runs the single-URL extraction chains.
type Extractor interface {
	ExtractShopeeProduct(ctx context.Context, rawURL string) domain.ShopeeProduct
	ExtractShopeeVideo(ctx context.Context, rawURL string) domain.ExtractedVideo
	ExtractSoraVideo(ctx context.Context, rawURL string) domain.SoraVideoData
}

// Writer produces AI captions and images.
type Writer interface {
	Captions(ctx context.Context, in aigateway.CaptionRequest) ([]string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Publisher pins images on behalf of a connected account.
type Publisher interface {
	ExchangeCode(ctx context.Context, code string) (*pinterest.Token, error)
	CreatePin(ctx context.Context, accessToken string, in pinterest.PinRequest) (*pinterest.Pin, error)
}

// Services are the collaborators behind the API.
type Services struct {
	Miner     Miner
	Extractor Extractor
	Writer    Writer
	Publisher Publisher
	Tasks     gen.TaskAPI
	Poller    *gen.Poller
	// Budget is the client-side generation budget reported by the status route.
	Budget time.Duration
}

type API struct {
	svc Services
}

func NewAPI(svc Services) *API {
	if svc.Budget <= 0 {
		svc.Budget = gen.DefaultBudget
	}
	return &API{svc: svc}
}

func registerRoutes(r *gin.Engine, api *API) {
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", api.handleHealth)

		apiGroup.POST("/mine", api.handleMine)

		apiGroup.POST("/extract/shopee-product", api.handleShopeeProduct)
		apiGroup.POST("/extract/shopee-video", api.handleShopeeVideo)
		apiGroup.POST("/extract/sora", api.handleSora)

		apiGroup.POST("/generate", api.handleGenerate)
		apiGroup.GET("/generate/:id", api.handleGenerateStatus)

		apiGroup.POST("/captions", api.handleCaptions)
		apiGroup.POST("/images", api.handleImage)

		apiGroup.POST("/pinterest/token", api.handlePinterestToken)
		apiGroup.POST("/pinterest/pins", api.handleCreatePin)
	}
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type mineRequest struct {
	URL     string   `json:"url" binding:"required,validurl"`
	Sources []string `json:"sources" binding:"omitempty,dive,validsource"`
}

func (a *API) handleMine(c *gin.Context) {
	var payload mineRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}

	// An omitted list means every source; an explicit empty list means none.
	sources := domain.NewSourceSet(domain.AllSources()...)
	if payload.Sources != nil {
		sources = domain.NewSourceSet()
		for _, s := range payload.Sources {
			src, _ := domain.ParseSource(s)
			sources[src] = true
		}
	}

	ctx := c.Request.Context()
	result := a.svc.Miner.Mine(ctx, strings.TrimSpace(payload.URL), sources)
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success":  false,
			"videos":   result.Videos,
			"keywords": result.Keywords,
			"errors":   result.Errors,
			"error":    domain.Message(domain.MsgProductNotFound, domain.LanguageFrom(ctx)),
		})
		return
	}
	if len(result.Errors) > 0 {
		c.Header(headerPartialFailure, domain.Message(domain.MsgPartialFailure, domain.LanguageFrom(ctx)))
	}
	c.JSON(http.StatusOK, result)
}

type urlRequest struct {
	URL string `json:"url" binding:"required,validurl"`
}

func (a *API) bindURL(c *gin.Context) (string, bool) {
	var payload urlRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return "", false
	}
	return strings.TrimSpace(payload.URL), true
}

func (a *API) handleShopeeProduct(c *gin.Context) {
	rawURL, ok := a.bindURL(c)
	if !ok {
		return
	}
	result := a.svc.Extractor.ExtractShopeeProduct(c.Request.Context(), rawURL)
	c.JSON(extractionStatus(result.Success), result)
}

func (a *API) handleShopeeVideo(c *gin.Context) {
	rawURL, ok := a.bindURL(c)
	if !ok {
		return
	}
	result := a.svc.Extractor.ExtractShopeeVideo(c.Request.Context(), rawURL)
	c.JSON(extractionStatus(result.Success), result)
}

func (a *API) handleSora(c *gin.Context) {
	rawURL, ok := a.bindURL(c)
	if !ok {
		return
	}
	result := a.svc.Extractor.ExtractSoraVideo(c.Request.Context(), rawURL)
	c.JSON(extractionStatus(result.Success), result)
}

func extractionStatus(success bool) int {
	if success {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}

func (a *API) handleGenerate(c *gin.Context) {
	var params gen.CreateParams
	if err := c.ShouldBindJSON(&params); err != nil {
		respondInvalid(c, err)
		return
	}
	ctx := c.Request.Context()

	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		state, err := a.svc.Poller.Run(ctx, params, nil)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := state.Err(); err != nil {
			c.JSON(statusFor(err), gin.H{
				"task":  state,
				"error": userMessage(ctx, err),
			})
			return
		}
		c.JSON(http.StatusOK, state)
		return
	}

	taskID, err := a.svc.Tasks.Create(ctx, params)
	if err != nil {
		respondError(c, err)
		return
	}
	if taskID == "" {
		respondError(c, domain.ErrMalformedPayload)
		return
	}
	c.JSON(http.StatusAccepted, gen.NewState(taskID, a.svc.Budget))
}

// handleGenerateStatus queries a task once. The client reports how long it has
// been waiting through ?elapsed=<seconds> so progress and the budget stay
// client-side.
func (a *API) handleGenerateStatus(c *gin.Context) {
	taskID := c.Param("id")
	seconds, _ := strconv.Atoi(c.Query("elapsed"))
	if seconds < 0 {
		seconds = 0
	}
	elapsed := time.Duration(seconds) * time.Second

	resp, err := a.svc.Tasks.Query(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gen.Transition(gen.NewState(taskID, a.svc.Budget), resp, elapsed))
}

type captionRequest struct {
	ProductName string `json:"product_name" binding:"required"`
	Platform    string `json:"platform"`
	Language    string `json:"language"`
	Count       int    `json:"count" binding:"omitempty,min=1,max=10"`
}

func (a *API) handleCaptions(c *gin.Context) {
	var payload captionRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	lang := payload.Language
	if lang == "" {
		lang = domain.LanguageFrom(c.Request.Context())
	}
	captions, err := a.svc.Writer.Captions(c.Request.Context(), aigateway.CaptionRequest{
		ProductName: strings.TrimSpace(payload.ProductName),
		Platform:    payload.Platform,
		Language:    lang,
		Count:       payload.Count,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"captions": captions})
}

type imageRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

func (a *API) handleImage(c *gin.Context) {
	var payload imageRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	image, err := a.svc.Writer.GenerateImage(c.Request.Context(), payload.Prompt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": image})
}

type tokenRequest struct {
	Code string `json:"code" binding:"required"`
}

func (a *API) handlePinterestToken(c *gin.Context) {
	var payload tokenRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	token, err := a.svc.Publisher.ExchangeCode(c.Request.Context(), payload.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

func (a *API) handleCreatePin(c *gin.Context) {
	var payload pinterest.PinRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondInvalid(c, err)
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader(headerPinterestToken), "Bearer "))
	pin, err := a.svc.Publisher.CreatePin(c.Request.Context(), token, payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pin)
}

// statusFor maps an error to the HTTP status returned to the caller.
func statusFor(err error) int {
	var httpErr *domain.HTTPError
	switch {
	case gen.IsFailed(err):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case domain.IsTimeout(err):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrNotConnected):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrNothingFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMalformedPayload), errors.As(err, &httpErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func userMessage(ctx context.Context, err error) string {
	lang := domain.LanguageFrom(ctx)
	if gen.IsFailed(err) {
		return domain.Message(domain.MsgGenerationFailed, lang)
	}
	return domain.UserMessage(err, lang)
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"error":  userMessage(c.Request.Context(), err),
		"detail": err.Error(),
	})
}

func respondInvalid(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid request",
		"details": validationDetails(err),
	})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
