package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"playportal/internal/config"
	"playportal/internal/repository"
	"playportal/internal/service"
	"playportal/pkg/response"
)

type Handler struct {
	walletService *service.WalletService
	scoreService  *service.ScoreService
	catalog       *service.CatalogService
	redemptions   *service.RedemptionWorkflow
}

func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	scoreService := service.NewScoreService(db, rdb, service.NewRedisTokenStore(rdb), cfg)
	return &Handler{
		walletService: service.NewWalletService(db, cfg),
		scoreService:  scoreService,
		catalog:       service.NewCatalogService(db, scoreService.Guard()),
		redemptions:   service.NewRedemptionWorkflow(db, rdb, cfg),
	}
}

// handleError maps business outcomes to HTTP statuses and machine codes.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrZeroAdjustment):
		response.ParamError(c, err.Error())
	case errors.Is(err, repository.ErrGameNotFound),
		errors.Is(err, repository.ErrRewardNotFound),
		errors.Is(err, repository.ErrRedemptionNotFound),
		errors.Is(err, repository.ErrTransactionNotFound),
		errors.Is(err, repository.ErrWalletNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, repository.ErrInsufficientBalance):
		response.Error(c, http.StatusForbidden, response.CodeInsufficientBalance,
			"Not enough points to redeem this reward")
	case errors.Is(err, service.ErrRedemptionLimitReached):
		response.Error(c, http.StatusForbidden, response.CodeRedemptionLimit,
			"Redemption limit reached")
	case errors.Is(err, repository.ErrRewardOutOfStock):
		response.Error(c, http.StatusForbidden, response.CodeRewardOutOfStock,
			"This reward is out of stock")
	case errors.Is(err, service.ErrRewardNotActive):
		response.NotFound(c, "This reward is not available")
	case errors.Is(err, repository.ErrInvalidTransition),
		errors.Is(err, service.ErrNotRedemptionOwner):
		response.Error(c, http.StatusForbidden, response.CodeIneligibleState, err.Error())
	case errors.Is(err, service.ErrSessionInvalid):
		response.Error(c, http.StatusForbidden, response.CodeSessionInvalid,
			"Play session is invalid or expired, start a new game session")
	case errors.Is(err, service.ErrDailyLimitReached):
		response.TooManyRequests(c, response.CodeDailyLimitReached,
			"Daily play limit reached for this game")
	default:
		response.ServerError(c)
	}
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// ============================================================
// Game catalog & play sessions
// ============================================================

// ListGames GET /api/v1/games
func (h *Handler) ListGames(c *gin.Context) {
	games, err := h.catalog.ListGames(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"games": games})
}

// GameStatus GET /api/v1/games/:slug/status
func (h *Handler) GameStatus(c *gin.Context) {
	game, limit, err := h.catalog.GameStatus(c.Request.Context(), currentUserID(c), c.Param("slug"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"game":  game,
		"limit": limit,
	})
}

// StartSession POST /api/v1/games/:slug/session
func (h *Handler) StartSession(c *gin.Context) {
	token, limit, err := h.scoreService.StartSession(
		c.Request.Context(), currentUserID(c), c.Param("slug"), c.ClientIP())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, gin.H{
		"session_token": token,
		"limit":         limit,
	})
}

// SubmitScoreRequest is the JSON body for score submission.
type SubmitScoreRequest struct {
	SessionToken string          `json:"session_token" binding:"required"`
	Score        int64           `json:"score" binding:"gte=0"`
	PlayTime     int64           `json:"play_time" binding:"required,gt=0"`
	Completed    bool            `json:"completed"`
	GameData     json.RawMessage `json:"game_data"`
}

// SubmitScore POST /api/v1/games/:slug/score
func (h *Handler) SubmitScore(c *gin.Context) {
	var req SubmitScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.scoreService.SubmitScore(c.Request.Context(), &service.SubmitScoreRequest{
		UserID:       currentUserID(c),
		GameSlug:     c.Param("slug"),
		SessionToken: req.SessionToken,
		Score:        req.Score,
		PlayTime:     req.PlayTime,
		Completed:    req.Completed,
		GameData:     req.GameData,
		ClientIP:     c.ClientIP(),
	})
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, result)
}

// ListScores GET /api/v1/games/:slug/scores
func (h *Handler) ListScores(c *gin.Context) {
	page, pageSize := pageParams(c)
	scores, total, err := h.scoreService.ListScores(
		c.Request.Context(), currentUserID(c), c.Param("slug"), page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"list":      scores,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// Wallet
// ============================================================

// GetWallet GET /api/v1/wallet
func (h *Handler) GetWallet(c *gin.Context) {
	wallet, err := h.walletService.GetWallet(c.Request.Context(), currentUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, wallet)
}

// ListTransactions GET /api/v1/wallet/transactions
func (h *Handler) ListTransactions(c *gin.Context) {
	page, pageSize := pageParams(c)
	transactions, total, err := h.walletService.ListTransactions(
		c.Request.Context(), currentUserID(c), page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetTransaction GET /api/v1/wallet/transactions/:no
func (h *Handler) GetTransaction(c *gin.Context) {
	trans, err := h.walletService.GetTransaction(
		c.Request.Context(), currentUserID(c), c.Param("no"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, trans)
}

// ============================================================
// Rewards & redemptions
// ============================================================

// ListRewards GET /api/v1/rewards
func (h *Handler) ListRewards(c *gin.Context) {
	rewards, err := h.redemptions.ListRewards(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"rewards": rewards})
}

// RedeemRequest is the JSON body for redeeming a reward.
type RedeemRequest struct {
	Notes string `json:"notes"`
}

// Redeem POST /api/v1/rewards/:id/redeem
func (h *Handler) Redeem(c *gin.Context) {
	rewardID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid reward id")
		return
	}

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.redemptions.Redeem(c.Request.Context(), currentUserID(c), rewardID, req.Notes)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, result)
}

// ListRedemptions GET /api/v1/redemptions
func (h *Handler) ListRedemptions(c *gin.Context) {
	page, pageSize := pageParams(c)
	redemptions, total, err := h.redemptions.ListUserRedemptions(
		c.Request.Context(), currentUserID(c), page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"list":      redemptions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// CancelRedemption POST /api/v1/redemptions/:id/cancel
func (h *Handler) CancelRedemption(c *gin.Context) {
	redemptionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid redemption id")
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	if err := h.redemptions.CancelByUser(c.Request.Context(), redemptionID, currentUserID(c), req.Notes); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "redemption cancelled, points refunded"})
}

// ============================================================
// Admin
// ============================================================

// AdminListRedemptions GET /api/v1/admin/redemptions
func (h *Handler) AdminListRedemptions(c *gin.Context) {
	page, pageSize := pageParams(c)
	redemptions, total, err := h.redemptions.ListPending(c.Request.Context(), page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"list":      redemptions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

type adminNotesRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) redemptionAction(c *gin.Context, action func(redemptionID, adminID int64, notes string) error) {
	redemptionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid redemption id")
		return
	}

	var req adminNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	if err := action(redemptionID, currentAdminID(c), req.Notes); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "ok"})
}

// AdminApprove POST /api/v1/admin/redemptions/:id/approve
func (h *Handler) AdminApprove(c *gin.Context) {
	h.redemptionAction(c, func(id, adminID int64, _ string) error {
		return h.redemptions.Approve(c.Request.Context(), id, adminID)
	})
}

// AdminFulfill POST /api/v1/admin/redemptions/:id/fulfill
func (h *Handler) AdminFulfill(c *gin.Context) {
	h.redemptionAction(c, func(id, adminID int64, notes string) error {
		return h.redemptions.Fulfill(c.Request.Context(), id, adminID, notes)
	})
}

// AdminReject POST /api/v1/admin/redemptions/:id/reject
func (h *Handler) AdminReject(c *gin.Context) {
	h.redemptionAction(c, func(id, adminID int64, notes string) error {
		return h.redemptions.Reject(c.Request.Context(), id, adminID, notes)
	})
}

// AdminCancel POST /api/v1/admin/redemptions/:id/cancel
func (h *Handler) AdminCancel(c *gin.Context) {
	h.redemptionAction(c, func(id, adminID int64, notes string) error {
		return h.redemptions.CancelByAdmin(c.Request.Context(), id, adminID, notes)
	})
}

// AdjustWalletRequest is the JSON body for admin balance adjustments.
type AdjustWalletRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// AdminAdjustWallet POST /api/v1/admin/wallet/adjust
func (h *Handler) AdminAdjustWallet(c *gin.Context) {
	var req AdjustWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.walletService.AdminAdjustment(
		c.Request.Context(), req.UserID, req.Amount, req.Reason, currentAdminID(c))
	if err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, result)
}

// ResetDailyPlaysRequest is the JSON body for resetting a daily counter.
type ResetDailyPlaysRequest struct {
	UserID   int64  `json:"user_id" binding:"required"`
	GameSlug string `json:"game_slug" binding:"required"`
}

// AdminResetDailyPlays POST /api/v1/admin/daily-plays/reset
func (h *Handler) AdminResetDailyPlays(c *gin.Context) {
	var req ResetDailyPlaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	if err := h.scoreService.ResetDailyPlays(
		c.Request.Context(), req.UserID, req.GameSlug, currentAdminID(c)); err != nil {
		handleError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "daily play record reset"})
}
