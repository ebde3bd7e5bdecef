// Package http provides the HTTP transport for SmartBid.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ravindran79-arch/smartbid-compliance/app"
	"github.com/ravindran79-arch/smartbid-compliance/domain/report"
	"github.com/ravindran79-arch/smartbid-compliance/domain/usage"
	"github.com/ravindran79-arch/smartbid-compliance/pkg/jsonapi"
	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// maxBodyBytes bounds request bodies; audits carry whole documents.
const maxBodyBytes = 10 << 20

// maxWebhookBytes bounds billing webhook payloads.
const maxWebhookBytes = 1 << 20

// ErrorResponse is the literal error shape of the relay and portal endpoints.
type ErrorResponse struct {
	Error string `json:"error" example:"billing not configured"`
}

// PortalRequest is the body of POST /api/create-portal-session.
type PortalRequest struct {
	UserID string `json:"userId" example:"alice"`
}

// PortalResponse carries the billing portal URL.
type PortalResponse struct {
	URL string `json:"url" example:"https://billing.stripe.com/p/session/test_123"`
}

// AuditRequest is the body of POST /api/audits.
// Request, when present, is a prepared generation request relayed verbatim;
// otherwise RFQ and Bid are rendered into the standard audit prompt.
type AuditRequest struct {
	UserID  string          `json:"userId" example:"vendor-42"`
	Role    string          `json:"role" example:"bidder"`
	RFQ     string          `json:"rfq,omitempty"`
	Bid     string          `json:"bid,omitempty"`
	Request json.RawMessage `json:"request,omitempty" swaggertype:"object"`
}

// Handler serves the SmartBid API.
type Handler struct {
	usage    *app.UsageService
	audits   *app.AuditService
	reports  *app.ReportService
	billing  *app.BillingService
	analysis *app.AnalysisService
	feed     *app.UsageFeed
	logger   zerolog.Logger
}

// Services groups the application services the handler dispatches to.
type Services struct {
	Usage    *app.UsageService
	Audits   *app.AuditService
	Reports  *app.ReportService
	Billing  *app.BillingService
	Analysis *app.AnalysisService
	Feed     *app.UsageFeed
}

// NewHandler creates a new API handler.
func NewHandler(s Services, logger zerolog.Logger) *Handler {
	return &Handler{
		usage:    s.Usage,
		audits:   s.Audits,
		reports:  s.Reports,
		billing:  s.Billing,
		analysis: s.Analysis,
		feed:     s.Feed,
		logger:   logger,
	}
}

// Analyze relays a prepared generation request to the generative-AI service.
//
//	@Summary		Relay analysis request
//	@Description	Forwards the body to the generative-AI endpoint and returns its JSON verbatim. Not metered.
//	@Tags			Analysis
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}	"Provider response"
//	@Failure		429	{object}	jsonapi.Document		"Rate limited"
//	@Failure		500	{object}	ErrorResponse			"Relay failed or API key missing"
//	@Router			/api/analyze [post]
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return
	}

	out, err := h.analysis.Analyze(r.Context(), body)
	if err != nil {
		status, msg := http.StatusInternalServerError, "analysis failed"
		switch {
		case errors.Is(err, app.ErrInvalidRequest):
			status, msg = http.StatusBadRequest, err.Error()
		case errors.Is(err, app.ErrNotConfigured):
			msg = "generative AI API key not configured"
		}
		writeJSON(w, status, ErrorResponse{Error: msg})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		h.logger.Error().Err(err).Msg("failed to write analysis response")
	}
}

// CreatePortalSession returns a billing portal URL for the user's subscription.
//
//	@Summary		Create billing portal session
//	@Tags			Billing
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PortalRequest	true	"User"
//	@Success		200		{object}	PortalResponse
//	@Failure		400		{object}	ErrorResponse	"Missing userId"
//	@Failure		404		{object}	ErrorResponse	"No subscription found"
//	@Failure		500		{object}	ErrorResponse	"Billing not configured or provider failure"
//	@Router			/api/create-portal-session [post]
func (h *Handler) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	var req PortalRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}

	url, err := h.billing.CreatePortalSession(r.Context(), req.UserID)
	if err != nil {
		status, msg := http.StatusInternalServerError, "failed to create portal session"
		switch {
		case errors.Is(err, app.ErrInvalidRequest):
			status, msg = http.StatusBadRequest, "userId is required"
		case errors.Is(err, app.ErrNoBillingCustomer):
			status, msg = http.StatusNotFound, app.ErrNoBillingCustomer.Error()
		case errors.Is(err, app.ErrNotConfigured):
			msg = "billing not configured"
		}
		writeJSON(w, status, ErrorResponse{Error: msg})
		return
	}

	writeJSON(w, http.StatusOK, PortalResponse{URL: url})
}

// Webhook receives billing provider events.
// Signature verification happens inside; the route is unauthenticated.
//
//	@Summary		Billing webhook
//	@Description	Verifies the Stripe-Signature header and applies checkout and subscription events. Always 200 once verified.
//	@Tags			Billing
//	@Accept			json
//	@Param			Stripe-Signature	header	string	true	"Webhook signature"
//	@Success		200					"Acknowledged"
//	@Failure		400					"Missing or invalid signature"
//	@Failure		500					"Webhook secret not configured"
//	@Router			/api/webhook [post]
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		http.Error(w, "missing signature", http.StatusBadRequest)
		return
	}

	if _, err := h.billing.HandleWebhook(r.Context(), payload, signature); err != nil {
		switch {
		case errors.Is(err, ports.ErrInvalidSignature):
			http.Error(w, "invalid signature", http.StatusBadRequest)
		case errors.Is(err, app.ErrNotConfigured):
			http.Error(w, "billing not configured", http.StatusInternalServerError)
		default:
			http.Error(w, "webhook processing failed", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// RunAudit runs one metered compliance audit.
//
//	@Summary		Run metered audit
//	@Description	Checks the trial gate, runs the model, stores the report and counts the audit.
//	@Tags			Audits
//	@Accept			json
//	@Produce		application/vnd.api+json
//	@Param			body	body		AuditRequest	true	"Audit request"
//	@Success		201		{object}	jsonapi.Document
//	@Failure		400		{object}	jsonapi.Document	"Invalid request"
//	@Failure		402		{object}	jsonapi.Document	"Free trial exhausted"
//	@Failure		409		{object}	jsonapi.Document	"Usage transaction conflict, audit not counted"
//	@Failure		429		{object}	jsonapi.Document	"Rate limited"
//	@Failure		502		{object}	jsonapi.Document	"Model call failed"
//	@Router			/api/audits [post]
func (h *Handler) RunAudit(w http.ResponseWriter, r *http.Request) {
	var body AuditRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		jsonapi.WriteBadRequest(w, "invalid JSON body")
		return
	}

	role, err := usage.ParseCounter(body.Role)
	if err != nil {
		jsonapi.WriteError(w, jsonapi.ErrValidation("role", "role must be initiator or bidder"))
		return
	}

	res, err := h.audits.Run(r.Context(), app.AuditRequest{
		UserID:  body.UserID,
		Role:    role,
		Input:   report.Input{RFQ: body.RFQ, Bid: body.Bid},
		Request: body.Request,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resource, err := reportResource(res.Report)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	jsonapi.WriteCreated(w, resource, resource.Links.Self, jsonapi.Meta{
		"usage":    res.Usage,
		"decision": res.Decision,
	})
}

// GetUsage returns the user's usage record and gate decision.
//
//	@Summary		Get usage snapshot
//	@Tags			Usage
//	@Produce		json
//	@Param			userID	path		string	true	"User ID"
//	@Success		200		{object}	app.Snapshot
//	@Router			/api/usage/{userID} [get]
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	snap, err := h.usage.Snapshot(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListReports lists an owner's reports, newest first.
//
//	@Summary		List reports
//	@Tags			Reports
//	@Produce		application/vnd.api+json
//	@Param			owner	query		string	true	"Owner login"
//	@Param			limit	query		int		false	"Maximum number of reports"
//	@Success		200		{object}	jsonapi.Document
//	@Router			/api/reports [get]
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			jsonapi.WriteError(w, jsonapi.NewError(http.StatusBadRequest, "bad_request", "Bad Request").
				Detail("limit must be a non-negative integer").
				Parameter("limit").
				ID(middleware.GetReqID(r.Context())).
				Build())
			return
		}
		limit = n
	}

	list, err := h.reports.List(r.Context(), owner, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resources := make([]jsonapi.Resource, 0, len(list))
	for _, rep := range list {
		res, err := reportResource(rep)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		resources = append(resources, res)
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources, jsonapi.Meta{"count": len(resources)})
}

// GetReport returns one report owned by the caller.
//
//	@Summary		Get report
//	@Tags			Reports
//	@Produce		application/vnd.api+json
//	@Param			id		path		string	true	"Report ID"
//	@Param			owner	query		string	true	"Owner login"
//	@Success		200		{object}	jsonapi.Document
//	@Failure		404		{object}	jsonapi.Document
//	@Router			/api/reports/{id} [get]
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reports.Get(r.Context(), r.URL.Query().Get("owner"), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	res, err := reportResource(rep)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, res, nil)
}

// DeleteReport deletes one report on its owner's request.
//
//	@Summary		Delete report
//	@Tags			Reports
//	@Param			id		path	string	true	"Report ID"
//	@Param			owner	query	string	true	"Owner login"
//	@Success		204
//	@Failure		404		{object}	jsonapi.Document
//	@Router			/api/reports/{id} [delete]
func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := h.reports.Delete(r.Context(), r.URL.Query().Get("owner"), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	jsonapi.WriteNoContent(w)
}

// writeServiceError maps service errors to JSON:API error documents.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var e jsonapi.Error
	switch {
	case errors.Is(err, app.ErrInvalidRequest):
		e = jsonapi.ErrBadRequest(strings.TrimPrefix(err.Error(), app.ErrInvalidRequest.Error()+": "))
	case errors.Is(err, app.ErrTrialExhausted):
		e = jsonapi.ErrPaymentRequired(app.ErrTrialExhausted.Error())
	case errors.Is(err, ports.ErrNotFound), errors.Is(err, app.ErrNoBillingCustomer):
		e = jsonapi.ErrNotFound("resource")
	case errors.Is(err, ports.ErrConflict):
		e = jsonapi.ErrConflict("concurrent usage update, the action was not counted; retry")
	case errors.Is(err, app.ErrNotConfigured):
		e = jsonapi.ErrNotConfigured(strings.TrimSuffix(err.Error(), ": "+ports.ErrNotConfigured.Error()))
	case errors.Is(err, app.ErrUpstream):
		e = jsonapi.ErrBadGateway("upstream service failed")
	default:
		h.logger.Error().Err(err).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request failed")
		e = jsonapi.ErrInternal("")
	}
	e.ID = middleware.GetReqID(r.Context())
	jsonapi.WriteError(w, e)
}

func reportResource(rep report.Report) (jsonapi.Resource, error) {
	return jsonapi.ResourceFromValue("reports", rep.ID, "/api/reports/"+rep.ID, rep)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
