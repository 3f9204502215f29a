package service

import (
	"context"
	"errors"
	"time"

	"labops-backend/internal/ledger"
	"labops-backend/internal/metrics"
	"labops-backend/internal/model"
	"labops-backend/internal/schedule"
	"labops-backend/internal/validate"
)

// Service is the façade external collaborators use. It translates requests
// into ledger operations and exposes the fold-style scheduling queries; it
// holds no state of its own beyond its dependencies.
type Service struct {
	store ledger.Store
	rec   *metrics.Recorder
}

// New creates a Service. rec may be nil when metrics are disabled.
func New(store ledger.Store, rec *metrics.Recorder) *Service {
	return &Service{store: store, rec: rec}
}

// RegisterEquipment registers a new equipment record.
func (s *Service) RegisterEquipment(ctx context.Context, spec ledger.RegisterSpec) (model.Equipment, error) {
	eq, err := s.store.RegisterEquipment(ctx, spec)
	if err == nil {
		s.rec.Registered()
	}
	return eq, err
}

// AppendUsageLog records a usage session.
func (s *Service) AppendUsageLog(ctx context.Context, equipmentID string, in ledger.UsageInput) (int64, error) {
	id, err := s.store.AppendUsageLog(ctx, equipmentID, in)
	s.count("usage", err)
	return id, err
}

// AppendMaintenanceLog records a maintenance action.
func (s *Service) AppendMaintenanceLog(ctx context.Context, equipmentID string, in ledger.MaintenanceInput) (int64, error) {
	id, err := s.store.AppendMaintenanceLog(ctx, equipmentID, in)
	s.count("maintenance", err)
	return id, err
}

// AppendCalibrationLog records a calibration event.
func (s *Service) AppendCalibrationLog(ctx context.Context, equipmentID string, in ledger.CalibrationInput) (int64, error) {
	id, err := s.store.AppendCalibrationLog(ctx, equipmentID, in)
	s.count("calibration", err)
	return id, err
}

// SetManualOverride sets or clears (nil) the manual status override.
func (s *Service) SetManualOverride(ctx context.Context, equipmentID string, override *model.EquipmentStatus) error {
	return s.store.SetManualOverride(ctx, equipmentID, override)
}

// Deactivate retires an equipment record.
func (s *Service) Deactivate(ctx context.Context, equipmentID string) error {
	return s.store.Deactivate(ctx, equipmentID)
}

// AttachDocument stores a document pointer.
func (s *Service) AttachDocument(ctx context.Context, equipmentID string, in ledger.DocumentInput) (int64, error) {
	return s.store.AttachDocument(ctx, equipmentID, in)
}

// ListDocuments returns the documents attached to an equipment.
func (s *Service) ListDocuments(ctx context.Context, equipmentID string) ([]model.EquipmentDocument, error) {
	return s.store.ListDocuments(ctx, equipmentID)
}

// GetEquipmentView returns the derived view of one equipment at the given time.
func (s *Service) GetEquipmentView(ctx context.Context, equipmentID string, now time.Time) (ledger.View, error) {
	return s.store.GetEquipmentView(ctx, equipmentID, now)
}

// ListEquipment returns derived views for all active equipment matching the
// filter.
func (s *Service) ListEquipment(ctx context.Context, filter ledger.ListFilter, now time.Time) ([]ledger.View, error) {
	return s.store.ListViews(ctx, filter, now)
}

// ListOverdue returns views whose calibration or maintenance track is overdue.
func (s *Service) ListOverdue(ctx context.Context, now time.Time) ([]ledger.View, error) {
	views, err := s.store.ListViews(ctx, ledger.ListFilter{}, now)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.View, 0)
	for _, v := range views {
		if v.Calibration.Urgency == schedule.UrgencyOverdue || v.Maintenance.Urgency == schedule.UrgencyOverdue {
			out = append(out, v)
		}
	}
	return out, nil
}

// ListDueSoon returns views with at least one track due soon and none
// overdue, so the two lists never report the same equipment.
func (s *Service) ListDueSoon(ctx context.Context, now time.Time) ([]ledger.View, error) {
	views, err := s.store.ListViews(ctx, ledger.ListFilter{}, now)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.View, 0)
	for _, v := range views {
		if v.Calibration.Urgency == schedule.UrgencyOverdue || v.Maintenance.Urgency == schedule.UrgencyOverdue {
			continue
		}
		if v.Calibration.Urgency == schedule.UrgencyDueSoon || v.Maintenance.Urgency == schedule.UrgencyDueSoon {
			out = append(out, v)
		}
	}
	return out, nil
}

// ListUsageLogs returns a date-filtered usage history.
func (s *Service) ListUsageLogs(ctx context.Context, equipmentID string, rng ledger.LogRange) ([]model.UsageLog, error) {
	return s.store.ListUsageLogs(ctx, equipmentID, rng)
}

// ListMaintenanceLogs returns a date-filtered maintenance history.
func (s *Service) ListMaintenanceLogs(ctx context.Context, equipmentID string, rng ledger.LogRange) ([]model.MaintenanceLog, error) {
	return s.store.ListMaintenanceLogs(ctx, equipmentID, rng)
}

// ListCalibrationLogs returns a date-filtered calibration history.
func (s *Service) ListCalibrationLogs(ctx context.Context, equipmentID string, rng ledger.LogRange) ([]model.CalibrationLog, error) {
	return s.store.ListCalibrationLogs(ctx, equipmentID, rng)
}

func (s *Service) count(logType string, err error) {
	if err == nil {
		s.rec.Accepted(logType)
		return
	}
	s.rec.Rejected(logType, ErrKind(err))
}

// ErrKind names the taxonomy kind of a ledger error, for metrics labels and
// API error bodies.
func ErrKind(err error) string {
	var oe *validate.OverlapError
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return "not_found"
	case errors.Is(err, ledger.ErrDuplicateSerialNumber):
		return "duplicate_serial_number"
	case errors.Is(err, ledger.ErrNonPositiveFrequency):
		return "non_positive_frequency"
	case errors.Is(err, ledger.ErrEquipmentUnavailable):
		return "equipment_unavailable"
	case errors.Is(err, ledger.ErrNonMonotonicDate):
		return "non_monotonic_date"
	case errors.Is(err, validate.ErrInvalidInterval):
		return "invalid_interval"
	case errors.As(err, &oe):
		return "overlap"
	case errors.Is(err, ledger.ErrInvalidLog):
		return "invalid_log"
	default:
		return "internal"
	}
}
