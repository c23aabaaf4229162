package handler

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	leadapp "github.com/leadcrm/backend/internal/application/lead"
	"github.com/leadcrm/backend/internal/domain/lead"
	"github.com/leadcrm/backend/internal/interfaces/http/dto"
)

// LeadSubmitter runs the lead pipeline for one submission
type LeadSubmitter interface {
	CallAPI(ctx context.Context, req leadapp.SubmitRequest) leadapp.Result
}

// LeadHandler accepts form submissions and forwards them to the CRM pipeline
type LeadHandler struct {
	BaseHandler
	submitter LeadSubmitter
	defaults  map[string]string
}

// NewLeadHandler creates a LeadHandler. defaults are the server-side
// integration settings; see settings for how they combine with a request.
func NewLeadHandler(submitter LeadSubmitter, defaults map[string]string) *LeadHandler {
	return &LeadHandler{
		submitter: submitter,
		defaults:  maps.Clone(defaults),
	}
}

// SubmitLeadRequest is the body of POST /leads
type SubmitLeadRequest struct {
	FormData map[string]string `json:"form_data" binding:"required"`
	Settings map[string]string `json:"settings"`
	Host     string            `json:"host"`
	Referrer string            `json:"referrer"`
}

// Submit runs the pipeline and answers 200 with its result, whatever the
// outcome. Only undecodable bodies are rejected with the error envelope.
func (h *LeadHandler) Submit(c *gin.Context) {
	var req SubmitLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	result := h.submitter.CallAPI(c.Request.Context(), leadapp.SubmitRequest{
		FormData: req.FormData,
		Settings: h.settings(req.Settings),
		Host:     requestHost(c, req.Host),
		Referrer: requestReferrer(c, req.Referrer),
	})
	c.JSON(http.StatusOK, result)
}

func (h *LeadHandler) bindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	var invalid validator.ValidationErrors
	switch {
	case errors.As(err, &tooLarge):
		h.ErrorWithCode(c, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
	case errors.As(err, &invalid):
		h.ErrorWithCode(c, dto.ErrCodeValidation, "form_data is required")
	default:
		h.ErrorWithCode(c, dto.ErrCodeInvalidJSON, "Request body must be a JSON object with string form_data values")
	}
}

// settings picks exactly one source of integration settings. A configured
// API key pins the whole server-side set and request settings are ignored;
// without one the caller must send a complete set of its own.
func (h *LeadHandler) settings(requested map[string]string) map[string]string {
	if h.defaults[lead.SettingAPIKey] != "" {
		return maps.Clone(h.defaults)
	}
	return maps.Clone(requested)
}

// requestHost picks the site the form was served from: the explicit field,
// then the Origin or Referer hostname, then the Host header without port.
func requestHost(c *gin.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, header := range []string{"Origin", "Referer"} {
		if host := hostname(c.GetHeader(header)); host != "" {
			return host
		}
	}
	return (&url.URL{Host: c.Request.Host}).Hostname()
}

func requestReferrer(c *gin.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return c.GetHeader("Referer")
}

func hostname(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
