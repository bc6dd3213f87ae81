// Package incidents exposes the incident service over HTTP.
package incidents

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"nfirscore/internal/core"
	"nfirscore/pkg/domain"
)

// DefaultMaxUploadBytes caps attachment uploads when no limit is configured.
const DefaultMaxUploadBytes int64 = 32 << 20

// Options configures a Handler.
type Options struct {
	Logger         *zap.Logger
	Metrics        http.Handler
	MaxUploadBytes int64
	// Roles are accepted in the actor role header on top of the built-in
	// roles, typically the department roles granted in the authorizer.
	Roles []domain.Role
}

// Handler serves the incident API.
type Handler struct {
	svc       *core.Service
	validate  *validator.Validate
	logger    *zap.Logger
	metrics   http.Handler
	maxUpload int64
	router    chi.Router
}

// NewHandler builds the router for svc.
func NewHandler(svc *core.Service, opts Options) *Handler {
	h := &Handler{
		svc:       svc,
		validate:  newValidator(opts.Roles),
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		maxUpload: opts.MaxUploadBytes,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.maxUpload <= 0 {
		h.maxUpload = DefaultMaxUploadBytes
	}
	h.router = h.routes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.logRequests)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}
	r.Route("/incidents", func(ir chi.Router) {
		ir.Post("/", h.createIncident)
		ir.Get("/", h.listIncidents)
		ir.Route("/{id}", func(one chi.Router) {
			one.Get("/", h.getIncident)
			one.Put("/", h.updateIncident)
			one.Get("/history", h.history)
			one.Post("/validate", h.validateIncident)
			one.Put("/classification", h.changeClassification)
			one.Put("/losses", h.updateLosses)
			one.Post("/lock", h.lockIncident)
			one.Post("/unlock", h.unlockIncident)
			one.Post("/responding-units", h.addUnit)
			one.Delete("/responding-units/{unitID}", h.removeUnit)
			one.Post("/responding-personnel", h.addPersonnel)
			one.Delete("/responding-personnel/{personnelID}", h.removePersonnel)
			one.Post("/casualties/civilian", h.addCivilianCasualty)
			one.Post("/casualties/fire-service", h.addFireServiceCasualty)
			one.Post("/supplies", h.recordSupplyUsage)
			one.Post("/attachments", h.addAttachment)
			one.Delete("/attachments/{attachmentID}", h.removeAttachment)
			one.Get("/attachments/{attachmentID}/url", h.attachmentURL)
		})
	})
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

type incidentResponse struct {
	Incident     domain.IncidentDocument `json:"incident"`
	Findings     []domain.Finding        `json:"findings"`
	LockEligible bool                    `json:"lockEligible"`
	Label        string                  `json:"label"`
}

type attachmentResponse struct {
	Attachment domain.Attachment `json:"attachment"`
	Result     incidentResponse  `json:"result"`
}

func newIncidentResponse(doc domain.IncidentDocument, res domain.Result) incidentResponse {
	findings := res.Findings
	if findings == nil {
		findings = []domain.Finding{}
	}
	return incidentResponse{
		Incident:     doc,
		Findings:     findings,
		LockEligible: res.LockEligible(),
		Label:        domain.StatusLabel(doc.Workflow, res.Findings),
	}
}

func (h *Handler) actor(r *http.Request) (domain.Actor, error) {
	hdr := actorHeaders{
		ID:   strings.TrimSpace(r.Header.Get(HeaderActorID)),
		Role: strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderActorRole))),
	}
	if err := h.validate.Struct(hdr); err != nil {
		return domain.Actor{}, fmt.Errorf("%w: actor headers: %v", errBadRequest, fieldErrors(err))
	}
	return domain.Actor{ID: hdr.ID, Role: domain.Role(hdr.Role)}, nil
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid JSON body: %v", err)})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request", Fields: fieldErrors(err)})
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, errorBody(err))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *Handler) createIncident(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req createIncidentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.IncidentType != "" {
		req.Basic.IncidentType = req.IncidentType
	}
	doc, res, err := h.svc.CreateIncident(r.Context(), actor, req.Basic)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/incidents/"+doc.ID)
	writeJSON(w, http.StatusCreated, newIncidentResponse(doc, res))
}

func (h *Handler) listIncidents(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.svc.ListSummaries(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"incidents": summaries})
}

func (h *Handler) getIncident(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.GetIncident(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newIncidentResponse(doc, h.svc.Workflow().Validate(doc, h.svc.Policy())))
}

func (h *Handler) validateIncident(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.svc.Validate(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	doc, err := h.svc.GetIncident(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newIncidentResponse(doc, res))
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	changes, err := h.svc.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	type entry struct {
		Action domain.Action   `json:"action"`
		At     time.Time       `json:"at"`
		After  json.RawMessage `json:"after,omitempty"`
	}
	out := make([]entry, 0, len(changes))
	for _, c := range changes {
		out = append(out, entry{Action: c.Action, At: c.At, After: json.RawMessage(c.After.Raw())})
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": out})
}

// mutation runs an actor-bound service call that returns the updated report.
func (h *Handler) mutation(w http.ResponseWriter, r *http.Request, dst any, call func(actor domain.Actor, id string) (domain.IncidentDocument, domain.Result, error)) {
	actor, err := h.actor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if dst != nil && !h.decode(w, r, dst) {
		return
	}
	doc, res, err := call(actor, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newIncidentResponse(doc, res))
}

func (h *Handler) updateIncident(w http.ResponseWriter, r *http.Request) {
	var req updateIncidentRequest
	h.mutation(w, r, &req, func(actor domain.Actor, id string) (domain.IncidentDocument, domain.Result, error) {
		return h.svc.UpdateIncident(r.Context(), id, actor, func(doc *domain.IncidentDocument) error {
			req.apply(doc)
			return nil
		})
	})
}

func (h *Handler) updateLosses(w http.ResponseWriter, r *http.Request) {
	var req lossesRequest
	h.mutation(w, r, &req, func(actor domain.Actor, id string) (domain.IncidentDocument, domain.Result, error) {
		if (req.PropertyLoss.Valid && req.PropertyLoss.Decimal.IsNegative()) || (req.ContentsLoss.Valid && req.ContentsLoss.Decimal.IsNegative()) {
			return domain.IncidentDocument{}, domain.Result{}, fmt.Errorf("%w: losses must not be negative", errBadRequest)
		}
		return h.svc.UpdateIncident(r.Context(), id, actor, func(doc *domain.IncidentDocument) error {
			doc.Basic.SectionG.PropertyLoss = req.PropertyLoss
			doc.Basic.SectionG.ContentsLoss = req.ContentsLoss
			return nil
		})
	})
}

func (h *Handler) changeClassification(w http.ResponseWriter, r *http.Request) {
	var req classificationRequest
	h.mutation(w, r, &req, func(actor domain.Actor, id string) (domain.IncidentDocument, domain.Result, error) {
		return h.svc.ChangeClassification(r.Context(), id, actor, req.IncidentType)
	})
}

func (h *Handler) lockIncident(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, r, nil, func(actor domain.Actor, id string) (domain.IncidentDocument, domain.Result, error) {
		return h.svc.LockIncident(r.Context(), id, actor)
	})
}

func (h *Handler) unlockIncident(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, r, nil, func(actor domain.Actor, id string) (domain.IncidentDocument, domain.Result, error) {
		doc, err := h.svc.UnlockIncident(r.Context(), id, actor)
		if err != nil {
			return doc, domain.Result{}, err
		}
		return doc, h.svc.Workflow().Validate(doc, h.svc.Policy()), nil
	})
}

func (h *Handler) addUnit(w http.ResponseWriter, r *http.Request) {
	var req unitRequest
	h.mutation(w, r, &req, func(actor domain.Actor, id string) (domain.IncidentDocument, domain.Result, error) {
		return h.svc.AddRespondingUnit(r.Context(), id, actor, req.UnitID)
	})
}

func (h *Handler) removeUnit(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, r, nil, func(actor domain.Actor, id string) (domain.IncidentDocument, domain.Result, error) {
		return h.svc.RemoveRespondingUnit(r.Context(), id, actor, chi.URLParam(r, "unitID"))
	})
}

func (h *Handler) addPersonnel(w http.ResponseWriter, r *http.Request) {
	var req personnelRequest
	h.mutation(w, r, &req, func(actor domain.Actor, id string) (domain.IncidentDocument, domain.Result, error) {
		return h.svc.AddRespondingPersonnel(r.Context(), id, actor, req.PersonnelID)
	})
}

func (h *Handler) removePersonnel(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, r, nil, func(actor domain.Actor, id string) (domain.IncidentDocument, domain.Result, error) {
		return h.svc.RemoveRespondingPersonnel(r.Context(), id, actor, chi.URLParam(r, "personnelID"))
	})
}

func (h *Handler) addCivilianCasualty(w http.ResponseWriter, r *http.Request) {
	var req civilianCasualtyRequest
	h.mutation(w, r, &req, func(actor domain.Actor, id string) (domain.IncidentDocument, domain.Result, error) {
		return h.svc.AddCivilianCasualty(r.Context(), id, actor, req.toDomain())
	})
}

func (h *Handler) addFireServiceCasualty(w http.ResponseWriter, r *http.Request) {
	var req fireServiceCasualtyRequest
	h.mutation(w, r, &req, func(actor domain.Actor, id string) (domain.IncidentDocument, domain.Result, error) {
		return h.svc.AddFireServiceCasualty(r.Context(), id, actor, req.toDomain())
	})
}

func (h *Handler) recordSupplyUsage(w http.ResponseWriter, r *http.Request) {
	var req supplyRequest
	h.mutation(w, r, &req, func(actor domain.Actor, id string) (domain.IncidentDocument, domain.Result, error) {
		return h.svc.RecordSupplyUsage(r.Context(), id, actor, req.ConsumableID, req.Quantity)
	})
}

func (h *Handler) addAttachment(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: multipart field \"file\": %v", errBadRequest, err))
		return
	}
	defer func() { _ = file.Close() }()
	contentType := header.Header.Get("Content-Type")
	att, doc, res, err := h.svc.AddAttachment(r.Context(), chi.URLParam(r, "id"), actor, header.Filename, contentType, io.Reader(file))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, attachmentResponse{Attachment: att, Result: newIncidentResponse(doc, res)})
}

func (h *Handler) removeAttachment(w http.ResponseWriter, r *http.Request) {
	h.mutation(w, r, nil, func(actor domain.Actor, id string) (domain.IncidentDocument, domain.Result, error) {
		return h.svc.RemoveAttachment(r.Context(), id, actor, chi.URLParam(r, "attachmentID"))
	})
}

func (h *Handler) attachmentURL(w http.ResponseWriter, r *http.Request) {
	var expiry time.Duration
	if raw := r.URL.Query().Get("expiry"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			h.fail(w, r, fmt.Errorf("%w: invalid expiry %q", errBadRequest, raw))
			return
		}
		expiry = d
	}
	url, err := h.svc.AttachmentURL(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "attachmentID"), expiry)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
