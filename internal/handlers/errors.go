package handlers

import (
	"errors"
	"net/http"
	"strconv"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/sjperalta/fintera-financing/internal/financing"
	"github.com/sjperalta/fintera-financing/internal/models"
	"github.com/sjperalta/fintera-financing/internal/services"
	"github.com/sjperalta/fintera-financing/pkg/logger"
)

// respondError maps a service error to its HTTP status and writes it. Domain
// rejections echo their message; anything unexpected is reported to Sentry.
func respondError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	status := http.StatusInternalServerError

	var (
		mismatch *financing.ScheduleMismatchError
		over     *services.OverpaymentError
		seq      *services.SequenceViolationError
		field    *financing.ValidationError
	)

	switch {
	case errors.As(err, &field):
		status = http.StatusBadRequest
		if field.Field != "" {
			body["field"] = field.Field
		}
	case errors.As(err, &mismatch):
		status = http.StatusUnprocessableEntity
		body["computed"] = mismatch.Computed
		body["target"] = mismatch.Target
		body["difference"] = mismatch.Difference
	case errors.As(err, &over):
		status = http.StatusUnprocessableEntity
		body["max_allowed"] = over.MaxAllowed
		body["cap"] = over.Cap
	case errors.As(err, &seq):
		status = http.StatusConflict
		body["pending_installment"] = seq.Pending
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrSaleNotApproved),
		errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrDuplicate):
		status = http.StatusConflict
	case services.IsRetryable(err):
		status = http.StatusServiceUnavailable
		body["retryable"] = true
	case errors.Is(err, models.ErrBrokenChain):
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		logger.Log.ErrorContext(c.Request.Context(), "request failed",
			"path", c.FullPath(), "status", status, "error", err)
	}

	c.AbortWithStatusJSON(status, body)
}

// idParam parses a positive numeric path parameter, answering 400 otherwise
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "ID inválido: " + name})
		return 0, false
	}
	return uint(id), true
}
