package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Dhoini/affiliate-service/internal/domain"
	"github.com/Dhoini/affiliate-service/internal/middleware"
	"github.com/Dhoini/affiliate-service/internal/repository"
	"github.com/Dhoini/affiliate-service/internal/service"
	"github.com/Dhoini/affiliate-service/pkg/logger"
	"github.com/Dhoini/affiliate-service/pkg/req"
	"github.com/Dhoini/affiliate-service/pkg/res"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AffiliateService операции, которые вызывают HTTP-обработчики
type AffiliateService interface {
	TrackReferral(ctx context.Context, actorID string, in service.TrackReferralInput) (*service.TrackReferralResult, error)
	UpdateSubscriptionStatus(ctx context.Context, subscriptionID, status string) (repository.StatusChangeResult, error)
	ListReferralsBySubscription(ctx context.Context, subscriptionID string) ([]domain.AffiliateReferral, error)

	CreateLink(ctx context.Context, actorID string) (*domain.AffiliateLink, bool, error)
	ListMyLinks(ctx context.Context, actorID string) ([]domain.LinkWithStats, error)
	LinkStats(ctx context.Context, actorID, code string) (*domain.LinkStats, error)
	RecordClick(ctx context.Context, code string) error

	AccrueCommissions(ctx context.Context, period domain.Period) (*service.AccrualResult, error)
	ListMyReferrals(ctx context.Context, actorID string) ([]domain.AffiliateReferral, error)
	ListMyCommissions(ctx context.Context, actorID, status string) ([]domain.CommissionPayment, error)
}

// AffiliateHandler обработчик для партнерской программы
type AffiliateHandler struct {
	service AffiliateService
	log     *logger.Logger
	now     func() time.Time
}

// NewAffiliateHandler создает новый обработчик
func NewAffiliateHandler(svc AffiliateService, log *logger.Logger) *AffiliateHandler {
	return &AffiliateHandler{
		service: svc,
		log:     log,
		now:     time.Now,
	}
}

type trackReferralRequest struct {
	AffiliateCode      string          `json:"affiliate_code" validate:"required"`
	SubscriptionID     string          `json:"subscription_id" validate:"required"`
	SubscriptionAmount decimal.Decimal `json:"subscription_amount"`
	PlanName           string          `json:"plan_name"`
}

type trackReferralResponse struct {
	Success        bool        `json:"success"`
	ReferralID     string      `json:"referral_id"`
	Commission     json.Number `json:"commission"`
	AlreadyTracked bool        `json:"already_tracked"`
	Message        string      `json:"message"`
}

// TrackReferral POST /affiliate/track-referral
func (h *AffiliateHandler) TrackReferral(c *gin.Context) {
	body, err := req.Decode[trackReferralRequest](c.Request.Body)
	if err != nil {
		respondBadBody(c, err, h.log)
		return
	}
	if err := req.IsValid(body); err != nil {
		respondBadBody(c, err, h.log)
		return
	}

	result, err := h.service.TrackReferral(c.Request.Context(), middleware.UserID(c), service.TrackReferralInput{
		AffiliateCode:      body.AffiliateCode,
		SubscriptionID:     body.SubscriptionID,
		SubscriptionAmount: body.SubscriptionAmount,
		PlanName:           body.PlanName,
	})
	if err != nil {
		respondError(c, err, h.log)
		return
	}

	resp := trackReferralResponse{
		Success:        true,
		ReferralID:     result.Referral.ID,
		Commission:     json.Number(result.Referral.Commission.StringFixed(2)),
		AlreadyTracked: result.AlreadyTracked,
		Message:        "Referral tracked successfully",
	}
	status := http.StatusCreated
	if result.AlreadyTracked {
		resp.Message = "Referral already tracked"
		status = http.StatusOK
	}
	res.JsonResponse(c, resp, status)
}

type updateStatusRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required"`
	Status         string `json:"status" validate:"required"`
}

// UpdateSubscriptionStatus POST /affiliate/update-subscription-status
func (h *AffiliateHandler) UpdateSubscriptionStatus(c *gin.Context) {
	body, err := req.Decode[updateStatusRequest](c.Request.Body)
	if err != nil {
		respondBadBody(c, err, h.log)
		return
	}
	if err := req.IsValid(body); err != nil {
		respondBadBody(c, err, h.log)
		return
	}

	result, err := h.service.UpdateSubscriptionStatus(c.Request.Context(), body.SubscriptionID, body.Status)
	if err != nil {
		respondError(c, err, h.log)
		return
	}

	res.JsonResponse(c, gin.H{
		"success":           true,
		"updated_referrals": result.UpdatedReferrals,
	}, http.StatusOK)
}

// GetSubscriptionReferrals GET /affiliate/update-subscription-status?subscription_id=
func (h *AffiliateHandler) GetSubscriptionReferrals(c *gin.Context) {
	refs, err := h.service.ListReferralsBySubscription(c.Request.Context(), c.Query("subscription_id"))
	if err != nil {
		respondError(c, err, h.log)
		return
	}
	res.JsonResponse(c, gin.H{"success": true, "referrals": refs}, http.StatusOK)
}

// ListMyReferrals GET /affiliate/referrals
func (h *AffiliateHandler) ListMyReferrals(c *gin.Context) {
	refs, err := h.service.ListMyReferrals(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err, h.log)
		return
	}
	res.JsonResponse(c, gin.H{"success": true, "referrals": refs}, http.StatusOK)
}

// ListMyCommissions GET /affiliate/commissions?status=
func (h *AffiliateHandler) ListMyCommissions(c *gin.Context) {
	payments, err := h.service.ListMyCommissions(c.Request.Context(), middleware.UserID(c), c.Query("status"))
	if err != nil {
		respondError(c, err, h.log)
		return
	}
	res.JsonResponse(c, gin.H{"success": true, "commissions": payments}, http.StatusOK)
}

type accrueRequest struct {
	Year  int `json:"year" validate:"required,gte=2000,lte=9999"`
	Month int `json:"month" validate:"required,gte=1,lte=12"`
}

// AccrueCommissions POST /affiliate/commissions/accrue. Без тела начисляет за текущий месяц.
func (h *AffiliateHandler) AccrueCommissions(c *gin.Context) {
	period := domain.CurrentPeriod(h.now())

	body, err := req.Decode[accrueRequest](c.Request.Body)
	switch {
	case errors.Is(err, io.EOF):
		// пустое тело, в том числе chunked без данных
	case err != nil:
		respondBadBody(c, err, h.log)
		return
	default:
		if err := req.IsValid(body); err != nil {
			respondBadBody(c, err, h.log)
			return
		}
		period = domain.PeriodFor(body.Year, time.Month(body.Month))
	}

	result, err := h.service.AccrueCommissions(c.Request.Context(), period)
	if err != nil {
		respondError(c, err, h.log)
		return
	}
	res.JsonResponse(c, gin.H{"success": true, "accrual": result}, http.StatusOK)
}
