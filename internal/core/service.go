package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nfirscore/internal/blob"
	"nfirscore/pkg/domain"
)

// Service operation names used for metrics, audit entries and log fields.
const (
	OpCreateIncident            = "create_incident"
	OpUpdateIncident            = "update_incident"
	OpChangeClassification      = "change_classification"
	OpValidate                  = "validate"
	OpLockIncident              = "lock_incident"
	OpUnlockIncident            = "unlock_incident"
	OpAddAttachment             = "add_attachment"
	OpRemoveAttachment          = "remove_attachment"
	OpAddRespondingUnit         = "add_responding_unit"
	OpRemoveRespondingUnit      = "remove_responding_unit"
	OpAddRespondingPersonnel    = "add_responding_personnel"
	OpRemoveRespondingPersonnel = "remove_responding_personnel"
	OpAddCivilianCasualty       = "add_civilian_casualty"
	OpAddFireServiceCasualty    = "add_fire_service_casualty"
	OpRecordSupplyUsage         = "record_supply_usage"
)

var (
	// ErrAttachmentNotFound is returned when an attachment id is not on the report.
	ErrAttachmentNotFound = errors.New("attachment not found")
	// ErrAttachmentsDisabled is returned when no blob store is configured.
	ErrAttachmentsDisabled = errors.New("attachments are not configured")
	// ErrHistoryUnavailable is returned when the store keeps no change records.
	ErrHistoryUnavailable = errors.New("change history not available for this store")
	// ErrInvalidInput wraps rejected operation arguments.
	ErrInvalidInput = errors.New("invalid input")
)

// Service coordinates the incident store, the workflow state machine and the
// attachment blob store. Every mutation runs inside one store transaction.
type Service struct {
	store    domain.IncidentStore
	workflow *Workflow
	blobs    blob.Store
	policy   domain.FieldPolicy
	logger   *zap.Logger
	metrics  MetricsRecorder
	audit    AuditRecorder
	nowFn    func() time.Time
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(rec MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(rec AuditRecorder) ServiceOption {
	return func(s *Service) {
		if rec != nil {
			s.audit = rec
		}
	}
}

// WithBlobStore enables attachments.
func WithBlobStore(store blob.Store) ServiceOption {
	return func(s *Service) {
		s.blobs = store
	}
}

// WithFieldPolicy sets the department field policy applied on every
// validation.
func WithFieldPolicy(policy domain.FieldPolicy) ServiceOption {
	return func(s *Service) {
		s.policy = policy
	}
}

// WithServiceClock overrides the clock used for attachment timestamps and
// audit entries.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// NewService constructs a service over store and workflow.
func NewService(store domain.IncidentStore, workflow *Workflow, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		workflow: workflow,
		logger:   zap.NewNop(),
		metrics:  noopMetricsRecorder{},
		audit:    noopAuditRecorder{},
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying incident store.
func (s *Service) Store() domain.IncidentStore { return s.store }

// Workflow returns the state machine in use.
func (s *Service) Workflow() *Workflow { return s.workflow }

// Policy returns the active field policy.
func (s *Service) Policy() domain.FieldPolicy { return s.policy }

type opRecord struct {
	op         string
	incidentID string
	actor      domain.Actor
	started    time.Time
	result     *domain.Result
}

func (s *Service) begin(op, incidentID string, actor domain.Actor) *opRecord {
	return &opRecord{op: op, incidentID: incidentID, actor: actor, started: time.Now()}
}

func (s *Service) finish(ctx context.Context, rec *opRecord, err error) {
	duration := time.Since(rec.started)
	s.metrics.Observe(ctx, rec.op, err == nil, duration)
	entry := AuditEntry{
		Operation:  rec.op,
		IncidentID: rec.incidentID,
		ActorID:    rec.actor.ID,
		ActorRole:  rec.actor.Role,
		Status:     AuditStatusSuccess,
		Duration:   duration,
		At:         s.nowFn(),
	}
	if rec.result != nil {
		entry.Findings = len(rec.result.Findings)
		if fr, ok := s.metrics.(FindingsRecorder); ok {
			fr.ObserveFindings(ctx, rec.result.ByModule())
		}
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
	if err != nil {
		s.logger.Debug("operation failed", append(rec.fields(), zap.Error(err))...)
	}
}

func (r *opRecord) fields() []zap.Field {
	return []zap.Field{
		zap.String("operation", r.op),
		zap.String("incident_id", r.incidentID),
		zap.String("actor_id", r.actor.ID),
	}
}

// CreateIncident stores a new editable report built from basic. The
// sub-modules implied by the incident type are created empty.
func (s *Service) CreateIncident(ctx context.Context, actor domain.Actor, basic domain.BasicModule) (_ domain.IncidentDocument, _ domain.Result, err error) {
	rec := s.begin(OpCreateIncident, "", actor)
	defer func() { s.finish(ctx, rec, err) }()

	doc := domain.NewIncidentDocument("", basic)
	doc = s.workflow.Table().ReshapeModules(doc, basic.IncidentType)
	doc = domain.RecomputeDerived(doc)
	var created domain.IncidentDocument
	if _, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.Create(doc)
		return err
	}); err != nil {
		return domain.IncidentDocument{}, domain.Result{}, fmt.Errorf("create incident: %w", err)
	}
	rec.incidentID = created.ID
	res := s.workflow.Validate(created, s.policy)
	rec.result = &res
	s.logger.Info("incident created", append(rec.fields(), zap.String("incident_type", created.ClassificationCode()))...)
	return created, res, nil
}

// GetIncident loads one report.
func (s *Service) GetIncident(ctx context.Context, id string) (domain.IncidentDocument, error) {
	var doc domain.IncidentDocument
	err := s.store.View(ctx, func(v domain.View) error {
		found, ok := v.Get(id)
		if !ok {
			return domain.NotFoundError{ID: id}
		}
		doc = found
		return nil
	})
	return doc, err
}

// ListIncidents returns every report ordered by creation time.
func (s *Service) ListIncidents(ctx context.Context) ([]domain.IncidentDocument, error) {
	var docs []domain.IncidentDocument
	err := s.store.View(ctx, func(v domain.View) error {
		docs = v.List()
		return nil
	})
	return docs, err
}

// IncidentSummary is the list view of a report.
type IncidentSummary struct {
	ID           string        `json:"id"`
	IncidentType string        `json:"incidentType"`
	Status       domain.Status `json:"status"`
	Label        string        `json:"label"`
	Findings     int           `json:"findings"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// ListSummaries validates every report and derives its display label.
func (s *Service) ListSummaries(ctx context.Context) ([]IncidentSummary, error) {
	docs, err := s.ListIncidents(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]IncidentSummary, 0, len(docs))
	for _, doc := range docs {
		res := s.workflow.Validate(doc, s.policy)
		out = append(out, IncidentSummary{
			ID:           doc.ID,
			IncidentType: doc.ClassificationCode(),
			Status:       doc.Workflow.Status,
			Label:        domain.StatusLabel(doc.Workflow, res.Findings),
			Findings:     len(res.Findings),
			UpdatedAt:    doc.UpdatedAt,
		})
	}
	return out, nil
}

// Validate returns the current findings for a report without changing it.
func (s *Service) Validate(ctx context.Context, id string) (_ domain.Result, err error) {
	rec := s.begin(OpValidate, id, domain.Actor{})
	defer func() { s.finish(ctx, rec, err) }()
	doc, err := s.GetIncident(ctx, id)
	if err != nil {
		return domain.Result{}, err
	}
	res := s.workflow.Validate(doc, s.policy)
	rec.result = &res
	return res, nil
}

// transition loads id inside a transaction, applies step and stores the
// result when step succeeds.
func (s *Service) transition(ctx context.Context, id string, step func(domain.IncidentDocument) (domain.IncidentDocument, domain.Result, error)) (domain.IncidentDocument, domain.Result, error) {
	var (
		updated domain.IncidentDocument
		res     domain.Result
	)
	_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		current, ok := tx.Get(id)
		if !ok {
			return domain.NotFoundError{ID: id}
		}
		next, stepRes, err := step(current)
		res = stepRes
		if err != nil {
			return err
		}
		updated, err = tx.Update(id, func(doc *domain.IncidentDocument) error {
			*doc = next
			return nil
		})
		return err
	})
	if err != nil {
		return domain.IncidentDocument{}, res, err
	}
	return updated, res, nil
}

func (s *Service) mutate(ctx context.Context, op, id string, actor domain.Actor, mutator func(*domain.IncidentDocument) error) (_ domain.IncidentDocument, _ domain.Result, err error) {
	rec := s.begin(op, id, actor)
	defer func() { s.finish(ctx, rec, err) }()
	doc, res, err := s.transition(ctx, id, func(current domain.IncidentDocument) (domain.IncidentDocument, domain.Result, error) {
		return s.workflow.Mutate(current, s.policy, mutator)
	})
	if err != nil {
		return domain.IncidentDocument{}, domain.Result{}, err
	}
	rec.result = &res
	return doc, res, nil
}

// UpdateIncident applies an arbitrary edit to an editable report and returns
// the fresh findings. Derived fields are recomputed afterwards, and the
// mutator cannot change the lifecycle state.
func (s *Service) UpdateIncident(ctx context.Context, id string, actor domain.Actor, mutator func(*domain.IncidentDocument) error) (domain.IncidentDocument, domain.Result, error) {
	return s.mutate(ctx, OpUpdateIncident, id, actor, mutator)
}

// ChangeClassification sets a new incident type and reshapes the sub-modules.
// Modules that no longer apply are discarded and logged.
func (s *Service) ChangeClassification(ctx context.Context, id string, actor domain.Actor, code string) (_ domain.IncidentDocument, _ domain.Result, err error) {
	rec := s.begin(OpChangeClassification, id, actor)
	defer func() { s.finish(ctx, rec, err) }()
	var discarded []domain.ModuleKind
	doc, res, err := s.transition(ctx, id, func(current domain.IncidentDocument) (domain.IncidentDocument, domain.Result, error) {
		discarded = s.workflow.Table().DiscardedModules(current, code)
		return s.workflow.ChangeClassification(current, code, s.policy)
	})
	if err != nil {
		return domain.IncidentDocument{}, domain.Result{}, err
	}
	rec.result = &res
	if len(discarded) > 0 {
		names := make([]string, len(discarded))
		for i, kind := range discarded {
			names[i] = string(kind)
		}
		s.logger.Warn("classification change discarded modules",
			append(rec.fields(), zap.String("incident_type", code), zap.Strings("discarded", names))...)
	}
	return doc, res, nil
}

// LockIncident freezes a report with no outstanding findings. A refused lock
// returns an *domain.InvalidTransitionError together with the findings.
func (s *Service) LockIncident(ctx context.Context, id string, actor domain.Actor) (_ domain.IncidentDocument, _ domain.Result, err error) {
	rec := s.begin(OpLockIncident, id, actor)
	defer func() { s.finish(ctx, rec, err) }()
	doc, res, err := s.transition(ctx, id, func(current domain.IncidentDocument) (domain.IncidentDocument, domain.Result, error) {
		return s.workflow.Lock(current, actor, s.policy)
	})
	rec.result = &res
	if err != nil {
		var transition *domain.InvalidTransitionError
		if errors.As(err, &transition) {
			s.logger.Warn("lock refused", append(rec.fields(),
				zap.String("reason", string(transition.Reason)), zap.Int("findings", len(transition.Findings)))...)
		}
		return domain.IncidentDocument{}, res, err
	}
	s.logger.Info("incident locked", rec.fields()...)
	return doc, res, nil
}

// UnlockIncident returns a locked report to editing. Only elevated actors
// may unlock.
func (s *Service) UnlockIncident(ctx context.Context, id string, actor domain.Actor) (_ domain.IncidentDocument, err error) {
	rec := s.begin(OpUnlockIncident, id, actor)
	defer func() { s.finish(ctx, rec, err) }()
	doc, _, err := s.transition(ctx, id, func(current domain.IncidentDocument) (domain.IncidentDocument, domain.Result, error) {
		next, err := s.workflow.Unlock(current, actor)
		return next, domain.Result{}, err
	})
	if err != nil {
		return domain.IncidentDocument{}, err
	}
	s.logger.Info("incident unlocked", append(rec.fields(), zap.String("actor_role", string(actor.Role)))...)
	return doc, nil
}

// AddRespondingUnit records an apparatus on the report.
func (s *Service) AddRespondingUnit(ctx context.Context, id string, actor domain.Actor, unitID string) (domain.IncidentDocument, domain.Result, error) {
	return s.mutate(ctx, OpAddRespondingUnit, id, actor, func(doc *domain.IncidentDocument) error {
		if strings.TrimSpace(unitID) == "" {
			return fmt.Errorf("%w: unit id is required", ErrInvalidInput)
		}
		doc.AddRespondingApparatus(unitID)
		return nil
	})
}

// RemoveRespondingUnit removes an apparatus from the report.
func (s *Service) RemoveRespondingUnit(ctx context.Context, id string, actor domain.Actor, unitID string) (domain.IncidentDocument, domain.Result, error) {
	return s.mutate(ctx, OpRemoveRespondingUnit, id, actor, func(doc *domain.IncidentDocument) error {
		doc.RemoveRespondingApparatus(unitID)
		return nil
	})
}

// AddRespondingPersonnel records a responder on the report.
func (s *Service) AddRespondingPersonnel(ctx context.Context, id string, actor domain.Actor, personnelID string) (domain.IncidentDocument, domain.Result, error) {
	return s.mutate(ctx, OpAddRespondingPersonnel, id, actor, func(doc *domain.IncidentDocument) error {
		if strings.TrimSpace(personnelID) == "" {
			return fmt.Errorf("%w: personnel id is required", ErrInvalidInput)
		}
		doc.AddRespondingPersonnel(personnelID)
		return nil
	})
}

// RemoveRespondingPersonnel removes a responder from the report.
func (s *Service) RemoveRespondingPersonnel(ctx context.Context, id string, actor domain.Actor, personnelID string) (domain.IncidentDocument, domain.Result, error) {
	return s.mutate(ctx, OpRemoveRespondingPersonnel, id, actor, func(doc *domain.IncidentDocument) error {
		doc.RemoveRespondingPersonnel(personnelID)
		return nil
	})
}

// AddCivilianCasualty appends a civilian casualty record, assigning an id
// when missing.
func (s *Service) AddCivilianCasualty(ctx context.Context, id string, actor domain.Actor, casualty domain.CivilianCasualty) (domain.IncidentDocument, domain.Result, error) {
	if casualty.ID == "" {
		casualty.ID = uuid.NewString()
	}
	return s.mutate(ctx, OpAddCivilianCasualty, id, actor, func(doc *domain.IncidentDocument) error {
		doc.CivilianCasualties = append(doc.CivilianCasualties, casualty)
		return nil
	})
}

// AddFireServiceCasualty appends a fire service casualty record, assigning
// an id when missing.
func (s *Service) AddFireServiceCasualty(ctx context.Context, id string, actor domain.Actor, casualty domain.FireServiceCasualty) (domain.IncidentDocument, domain.Result, error) {
	if casualty.ID == "" {
		casualty.ID = uuid.NewString()
	}
	return s.mutate(ctx, OpAddFireServiceCasualty, id, actor, func(doc *domain.IncidentDocument) error {
		doc.FireServiceCasualties = append(doc.FireServiceCasualties, casualty)
		return nil
	})
}

// RecordSupplyUsage adds quantity of a consumable to the report. Negative
// quantities return stock; entries that reach zero are removed.
func (s *Service) RecordSupplyUsage(ctx context.Context, id string, actor domain.Actor, consumableID string, quantity int) (domain.IncidentDocument, domain.Result, error) {
	return s.mutate(ctx, OpRecordSupplyUsage, id, actor, func(doc *domain.IncidentDocument) error {
		if strings.TrimSpace(consumableID) == "" {
			return fmt.Errorf("%w: consumable id is required", ErrInvalidInput)
		}
		doc.RecordSupplyUsage(consumableID, quantity)
		return nil
	})
}

// AttachmentKey is the blob key for an attachment.
func AttachmentKey(incidentID, attachmentID, filename string) string {
	return path.Join("incidents", incidentID, attachmentID, sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "attachment"
	}
	return name
}

// AddAttachment uploads r to the blob store and references it from an
// editable report. The blob is removed again if the report update fails.
func (s *Service) AddAttachment(ctx context.Context, id string, actor domain.Actor, filename, contentType string, r io.Reader) (_ domain.Attachment, _ domain.IncidentDocument, _ domain.Result, err error) {
	rec := s.begin(OpAddAttachment, id, actor)
	defer func() { s.finish(ctx, rec, err) }()
	if s.blobs == nil {
		return domain.Attachment{}, domain.IncidentDocument{}, domain.Result{}, ErrAttachmentsDisabled
	}
	current, err := s.GetIncident(ctx, id)
	if err != nil {
		return domain.Attachment{}, domain.IncidentDocument{}, domain.Result{}, err
	}
	if _, _, err = s.workflow.Mutate(current, s.policy, nil); err != nil {
		return domain.Attachment{}, domain.IncidentDocument{}, domain.Result{}, err
	}

	attachment := domain.Attachment{
		ID:          uuid.NewString(),
		Filename:    sanitizeFilename(filename),
		ContentType: contentType,
		UploadedBy:  actor.ID,
		UploadedAt:  s.nowFn(),
	}
	attachment.BlobKey = AttachmentKey(id, attachment.ID, attachment.Filename)
	info, err := s.blobs.Put(ctx, attachment.BlobKey, r, blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"incident-id": id, "uploaded-by": actor.ID},
	})
	if err != nil {
		return domain.Attachment{}, domain.IncidentDocument{}, domain.Result{}, fmt.Errorf("store attachment: %w", err)
	}
	attachment.Size = info.Size

	doc, res, err := s.transition(ctx, id, func(cur domain.IncidentDocument) (domain.IncidentDocument, domain.Result, error) {
		return s.workflow.Mutate(cur, s.policy, func(d *domain.IncidentDocument) error {
			d.Attachments = append(d.Attachments, attachment)
			return nil
		})
	})
	if err != nil {
		if _, delErr := s.blobs.Delete(ctx, attachment.BlobKey); delErr != nil {
			s.logger.Warn("orphaned attachment blob", append(rec.fields(), zap.String("blob_key", attachment.BlobKey), zap.Error(delErr))...)
		}
		return domain.Attachment{}, domain.IncidentDocument{}, domain.Result{}, err
	}
	rec.result = &res
	return attachment, doc, res, nil
}

// RemoveAttachment detaches an attachment from an editable report and
// deletes its blob.
func (s *Service) RemoveAttachment(ctx context.Context, id string, actor domain.Actor, attachmentID string) (_ domain.IncidentDocument, _ domain.Result, err error) {
	rec := s.begin(OpRemoveAttachment, id, actor)
	defer func() { s.finish(ctx, rec, err) }()
	if s.blobs == nil {
		return domain.IncidentDocument{}, domain.Result{}, ErrAttachmentsDisabled
	}
	var removed domain.Attachment
	doc, res, err := s.transition(ctx, id, func(cur domain.IncidentDocument) (domain.IncidentDocument, domain.Result, error) {
		return s.workflow.Mutate(cur, s.policy, func(d *domain.IncidentDocument) error {
			for i, att := range d.Attachments {
				if att.ID == attachmentID {
					removed = att
					d.Attachments = append(d.Attachments[:i], d.Attachments[i+1:]...)
					return nil
				}
			}
			return ErrAttachmentNotFound
		})
	})
	if err != nil {
		return domain.IncidentDocument{}, domain.Result{}, err
	}
	rec.result = &res
	if _, delErr := s.blobs.Delete(ctx, removed.BlobKey); delErr != nil {
		s.logger.Warn("attachment blob not deleted", append(rec.fields(), zap.String("blob_key", removed.BlobKey), zap.Error(delErr))...)
	}
	return doc, res, nil
}

// AttachmentURL returns a time-limited download URL for an attachment.
// blob.ErrUnsupported is returned when the backend cannot sign URLs.
func (s *Service) AttachmentURL(ctx context.Context, id, attachmentID string, expiry time.Duration) (string, error) {
	if s.blobs == nil {
		return "", ErrAttachmentsDisabled
	}
	doc, err := s.GetIncident(ctx, id)
	if err != nil {
		return "", err
	}
	for _, att := range doc.Attachments {
		if att.ID == attachmentID {
			return s.blobs.PresignURL(ctx, att.BlobKey, blob.SignedURLOptions{Expiry: expiry})
		}
	}
	return "", ErrAttachmentNotFound
}

// History returns the stored change records for a report.
func (s *Service) History(ctx context.Context, id string) ([]domain.Change, error) {
	h, ok := s.store.(ChangeHistory)
	if !ok {
		return nil, ErrHistoryUnavailable
	}
	if _, err := s.GetIncident(ctx, id); err != nil {
		return nil, err
	}
	return h.History(ctx, id)
}
