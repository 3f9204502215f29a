package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"labops-backend/internal/model"
	"labops-backend/internal/schedule"
	"labops-backend/internal/status"
	"labops-backend/internal/validate"
)

// Store owns the equipment records and their append-only log collections.
// It is the sole writer of ledger state: every accepted append is atomic and
// every rejection happens before any write.
type Store interface {
	RegisterEquipment(ctx context.Context, spec RegisterSpec) (model.Equipment, error)
	AppendUsageLog(ctx context.Context, equipmentID string, in UsageInput) (int64, error)
	AppendMaintenanceLog(ctx context.Context, equipmentID string, in MaintenanceInput) (int64, error)
	AppendCalibrationLog(ctx context.Context, equipmentID string, in CalibrationInput) (int64, error)
	SetManualOverride(ctx context.Context, equipmentID string, override *model.EquipmentStatus) error
	Deactivate(ctx context.Context, equipmentID string) error

	AttachDocument(ctx context.Context, equipmentID string, in DocumentInput) (int64, error)
	ListDocuments(ctx context.Context, equipmentID string) ([]model.EquipmentDocument, error)

	GetEquipmentView(ctx context.Context, equipmentID string, now time.Time) (View, error)
	ListViews(ctx context.Context, filter ListFilter, now time.Time) ([]View, error)
	ListUsageLogs(ctx context.Context, equipmentID string, rng LogRange) ([]model.UsageLog, error)
	ListMaintenanceLogs(ctx context.Context, equipmentID string, rng LogRange) ([]model.MaintenanceLog, error)
	ListCalibrationLogs(ctx context.Context, equipmentID string, rng LogRange) ([]model.CalibrationLog, error)
}

// RegisterSpec carries the static metadata and track baselines for a new
// equipment record.
type RegisterSpec struct {
	Name           string
	Model          string
	SerialNumber   string
	Manufacturer   string
	Location       string
	Category       string
	Specifications map[string]string
	Notes          string

	LastCalibrationDate      time.Time
	CalibrationFrequencyDays int
	LastMaintenanceDate      time.Time
	MaintenanceFrequencyDays int
}

// UsageInput is a proposed usage session.
type UsageInput struct {
	StartTime     time.Time
	EndTime       time.Time
	Operator      string
	TestReference string
	Parameters    map[string]string
	Notes         string
}

// MaintenanceInput is a proposed maintenance log entry.
type MaintenanceInput struct {
	Date          time.Time
	Technician    string
	Type          model.MaintenanceType
	Description   string
	Cost          float64
	DowntimeHours float64
	Result        model.MaintenanceResult
}

// CalibrationInput is a proposed calibration log entry.
type CalibrationInput struct {
	Date                 time.Time
	Technician           string
	Provider             model.CalibrationProvider
	ExternalProviderName string
	Result               model.CalibrationResult
	CertificateNumber    string
	ValidUntil           time.Time
}

// DocumentInput is a proposed document attachment.
type DocumentInput struct {
	Name       string
	Type       string
	UploadDate time.Time
	URL        string
}

// LogRange filters a log listing by date. Nil bounds are open.
type LogRange struct {
	From *time.Time
	To   *time.Time
}

// ListFilter narrows an equipment listing.
type ListFilter struct {
	Category string
	Location string
}

// View is the read-side composition of an equipment record, its derived
// status and the urgency of both tracks.
type View struct {
	Equipment   model.Equipment
	Status      model.EquipmentStatus
	Calibration schedule.Result
	Maintenance schedule.Result
}

// gormStore implements Store using GORM.
type gormStore struct {
	db         *gorm.DB
	windowDays int

	// regMu serializes registration so the duplicate-serial check and the
	// insert are atomic with respect to each other.
	regMu sync.Mutex

	// locks holds one mutex per equipment id; all append/override operations
	// on the same equipment are serialized, different equipment proceed in
	// parallel.
	locks sync.Map // map[string]*sync.Mutex
}

// NewGormStore creates a new GORM-backed store. windowDays is the due-soon
// lookahead used for derived views.
func NewGormStore(db *gorm.DB, windowDays int) Store {
	if windowDays <= 0 {
		windowDays = schedule.DefaultDueSoonWindowDays
	}
	return &gormStore{db: db, windowDays: windowDays}
}

func (s *gormStore) lockFor(equipmentID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(equipmentID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// RegisterEquipment creates a new equipment record. Fails with
// ErrDuplicateSerialNumber if an active record already holds the serial.
func (s *gormStore) RegisterEquipment(ctx context.Context, spec RegisterSpec) (model.Equipment, error) {
	if strings.TrimSpace(spec.Name) == "" || strings.TrimSpace(spec.SerialNumber) == "" {
		return model.Equipment{}, fmt.Errorf("%w: name and serial number are required", ErrInvalidLog)
	}
	if spec.CalibrationFrequencyDays <= 0 || spec.MaintenanceFrequencyDays <= 0 {
		return model.Equipment{}, ErrNonPositiveFrequency
	}
	if spec.LastCalibrationDate.IsZero() || spec.LastMaintenanceDate.IsZero() {
		return model.Equipment{}, fmt.Errorf("%w: track baseline dates are required", ErrInvalidLog)
	}

	s.regMu.Lock()
	defer s.regMu.Unlock()

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Equipment{}).
		Where("serial_number = ? AND active = ?", spec.SerialNumber, true).
		Count(&count).Error; err != nil {
		return model.Equipment{}, fmt.Errorf("failed to check serial number: %w", err)
	}
	if count > 0 {
		return model.Equipment{}, ErrDuplicateSerialNumber
	}

	eq := model.Equipment{
		ID:                       uuid.NewString(),
		Name:                     strings.TrimSpace(spec.Name),
		Model:                    spec.Model,
		SerialNumber:             strings.TrimSpace(spec.SerialNumber),
		Manufacturer:             spec.Manufacturer,
		Location:                 spec.Location,
		Category:                 spec.Category,
		Specifications:           spec.Specifications,
		Notes:                    spec.Notes,
		LastCalibrationDate:      spec.LastCalibrationDate,
		CalibrationFrequencyDays: spec.CalibrationFrequencyDays,
		LastMaintenanceDate:      spec.LastMaintenanceDate,
		MaintenanceFrequencyDays: spec.MaintenanceFrequencyDays,
		Active:                   true,
	}

	if err := s.db.WithContext(ctx).Create(&eq).Error; err != nil {
		return model.Equipment{}, fmt.Errorf("failed to create equipment: %w", err)
	}
	return eq, nil
}

// AppendUsageLog validates a usage session against the existing ledger and
// appends it. The interval check and the availability check both run under
// the equipment's lock so no conflicting append can slip in between
// validation and write.
func (s *gormStore) AppendUsageLog(ctx context.Context, equipmentID string, in UsageInput) (int64, error) {
	if strings.TrimSpace(in.Operator) == "" {
		return 0, fmt.Errorf("%w: operator is required", ErrInvalidLog)
	}

	mu := s.lockFor(equipmentID)
	mu.Lock()
	defer mu.Unlock()

	eq, err := s.fetchActiveEquipment(ctx, equipmentID)
	if err != nil {
		return 0, err
	}

	var existing []model.UsageLog
	if err := s.db.WithContext(ctx).
		Where("equipment_id = ?", equipmentID).
		Find(&existing).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch usage logs: %w", err)
	}

	if err := validate.UsageInterval(in.StartTime, in.EndTime, existing); err != nil {
		return 0, err
	}

	maint, cals, err := s.fetchTrackLogs(ctx, equipmentID)
	if err != nil {
		return 0, err
	}
	switch status.Resolve(eq, maint, cals, s.windowDays, in.StartTime) {
	case model.StatusOutOfService, model.StatusUnderMaintenance:
		return 0, ErrEquipmentUnavailable
	}

	log := model.UsageLog{
		EquipmentID:   equipmentID,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		Operator:      strings.TrimSpace(in.Operator),
		TestReference: in.TestReference,
		Parameters:    in.Parameters,
		Notes:         in.Notes,
	}
	if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
		return 0, fmt.Errorf("failed to append usage log: %w", err)
	}
	return log.ID, nil
}

// AppendMaintenanceLog appends a maintenance log, advancing the maintenance
// track when the action completed.
func (s *gormStore) AppendMaintenanceLog(ctx context.Context, equipmentID string, in MaintenanceInput) (int64, error) {
	if err := validateMaintenanceInput(in); err != nil {
		return 0, err
	}

	mu := s.lockFor(equipmentID)
	mu.Lock()
	defer mu.Unlock()

	eq, err := s.fetchActiveEquipment(ctx, equipmentID)
	if err != nil {
		return 0, err
	}
	if in.Date.Before(eq.LastMaintenanceDate) {
		return 0, ErrNonMonotonicDate
	}

	log := model.MaintenanceLog{
		EquipmentID:   equipmentID,
		Date:          in.Date,
		Technician:    strings.TrimSpace(in.Technician),
		Type:          in.Type,
		Description:   in.Description,
		Cost:          in.Cost,
		DowntimeHours: in.DowntimeHours,
		Result:        in.Result,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&log).Error; err != nil {
			return fmt.Errorf("failed to append maintenance log: %w", err)
		}
		if in.Result == model.MaintenanceCompleted {
			if err := tx.Model(&model.Equipment{ID: equipmentID}).
				Update("last_maintenance_date", in.Date).Error; err != nil {
				return fmt.Errorf("failed to advance maintenance track: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return log.ID, nil
}

// AppendCalibrationLog appends a calibration log, advancing the calibration
// track on a pass or conditional pass. A fail never advances the track.
func (s *gormStore) AppendCalibrationLog(ctx context.Context, equipmentID string, in CalibrationInput) (int64, error) {
	if err := validateCalibrationInput(in); err != nil {
		return 0, err
	}

	mu := s.lockFor(equipmentID)
	mu.Lock()
	defer mu.Unlock()

	eq, err := s.fetchActiveEquipment(ctx, equipmentID)
	if err != nil {
		return 0, err
	}
	if in.Date.Before(eq.LastCalibrationDate) {
		return 0, ErrNonMonotonicDate
	}

	log := model.CalibrationLog{
		EquipmentID:          equipmentID,
		Date:                 in.Date,
		Technician:           strings.TrimSpace(in.Technician),
		Provider:             in.Provider,
		ExternalProviderName: in.ExternalProviderName,
		Result:               in.Result,
		CertificateNumber:    in.CertificateNumber,
		ValidUntil:           in.ValidUntil,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&log).Error; err != nil {
			return fmt.Errorf("failed to append calibration log: %w", err)
		}
		if in.Result.Passing() {
			if err := tx.Model(&model.Equipment{ID: equipmentID}).
				Update("last_calibration_date", in.Date).Error; err != nil {
				return fmt.Errorf("failed to advance calibration track: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return log.ID, nil
}

// SetManualOverride sets or clears (nil) the operator-declared status.
// Idempotent; clearing returns control to derived resolution.
func (s *gormStore) SetManualOverride(ctx context.Context, equipmentID string, override *model.EquipmentStatus) error {
	if override != nil && !override.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidLog, *override)
	}

	mu := s.lockFor(equipmentID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.fetchActiveEquipment(ctx, equipmentID); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(&model.Equipment{ID: equipmentID}).
		Update("manual_override_status", override).Error; err != nil {
		return fmt.Errorf("failed to update manual override: %w", err)
	}
	return nil
}

// Deactivate retires an equipment record. The record and its logs are kept;
// only registration of the same serial number becomes possible again.
func (s *gormStore) Deactivate(ctx context.Context, equipmentID string) error {
	mu := s.lockFor(equipmentID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.fetchActiveEquipment(ctx, equipmentID); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(&model.Equipment{ID: equipmentID}).
		Update("active", false).Error; err != nil {
		return fmt.Errorf("failed to deactivate equipment: %w", err)
	}
	return nil
}

// AttachDocument stores an immutable document pointer for the equipment.
func (s *gormStore) AttachDocument(ctx context.Context, equipmentID string, in DocumentInput) (int64, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.URL) == "" {
		return 0, fmt.Errorf("%w: document name and url are required", ErrInvalidLog)
	}
	if _, err := s.fetchEquipment(ctx, equipmentID); err != nil {
		return 0, err
	}

	doc := model.EquipmentDocument{
		EquipmentID: equipmentID,
		Name:        strings.TrimSpace(in.Name),
		Type:        in.Type,
		UploadDate:  in.UploadDate,
		URL:         strings.TrimSpace(in.URL),
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return 0, fmt.Errorf("failed to attach document: %w", err)
	}
	return doc.ID, nil
}

func (s *gormStore) ListDocuments(ctx context.Context, equipmentID string) ([]model.EquipmentDocument, error) {
	if _, err := s.fetchEquipment(ctx, equipmentID); err != nil {
		return nil, err
	}
	var docs []model.EquipmentDocument
	if err := s.db.WithContext(ctx).
		Where("equipment_id = ?", equipmentID).
		Order("id").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// GetEquipmentView composes the derived status and both track urgencies for
// one equipment at the given time.
func (s *gormStore) GetEquipmentView(ctx context.Context, equipmentID string, now time.Time) (View, error) {
	eq, err := s.fetchEquipment(ctx, equipmentID)
	if err != nil {
		return View{}, err
	}
	maint, cals, err := s.fetchTrackLogs(ctx, equipmentID)
	if err != nil {
		return View{}, err
	}
	return s.composeView(eq, maint, cals, now), nil
}

// ListViews returns derived views for all active equipment matching the
// filter.
func (s *gormStore) ListViews(ctx context.Context, filter ListFilter, now time.Time) ([]View, error) {
	q := s.db.WithContext(ctx).Where("active = ?", true)
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Location != "" {
		q = q.Where("location = ?", filter.Location)
	}

	var items []model.Equipment
	if err := q.Order("name").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	if len(items) == 0 {
		return []View{}, nil
	}

	ids := make([]string, len(items))
	for i, eq := range items {
		ids[i] = eq.ID
	}

	var maint []model.MaintenanceLog
	if err := s.db.WithContext(ctx).Where("equipment_id IN ?", ids).Find(&maint).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch maintenance logs: %w", err)
	}
	var cals []model.CalibrationLog
	if err := s.db.WithContext(ctx).Where("equipment_id IN ?", ids).Find(&cals).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch calibration logs: %w", err)
	}

	maintByID := make(map[string][]model.MaintenanceLog, len(items))
	for _, l := range maint {
		maintByID[l.EquipmentID] = append(maintByID[l.EquipmentID], l)
	}
	calsByID := make(map[string][]model.CalibrationLog, len(items))
	for _, l := range cals {
		calsByID[l.EquipmentID] = append(calsByID[l.EquipmentID], l)
	}

	views := make([]View, 0, len(items))
	for _, eq := range items {
		views = append(views, s.composeView(eq, maintByID[eq.ID], calsByID[eq.ID], now))
	}
	return views, nil
}

func (s *gormStore) ListUsageLogs(ctx context.Context, equipmentID string, rng LogRange) ([]model.UsageLog, error) {
	if _, err := s.fetchEquipment(ctx, equipmentID); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Where("equipment_id = ?", equipmentID)
	if rng.From != nil {
		q = q.Where("start_time >= ?", *rng.From)
	}
	if rng.To != nil {
		q = q.Where("start_time < ?", *rng.To)
	}
	var logs []model.UsageLog
	if err := q.Order("start_time").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list usage logs: %w", err)
	}
	return logs, nil
}

func (s *gormStore) ListMaintenanceLogs(ctx context.Context, equipmentID string, rng LogRange) ([]model.MaintenanceLog, error) {
	if _, err := s.fetchEquipment(ctx, equipmentID); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Where("equipment_id = ?", equipmentID)
	if rng.From != nil {
		q = q.Where("date >= ?", *rng.From)
	}
	if rng.To != nil {
		q = q.Where("date < ?", *rng.To)
	}
	var logs []model.MaintenanceLog
	if err := q.Order("date, id").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list maintenance logs: %w", err)
	}
	return logs, nil
}

func (s *gormStore) ListCalibrationLogs(ctx context.Context, equipmentID string, rng LogRange) ([]model.CalibrationLog, error) {
	if _, err := s.fetchEquipment(ctx, equipmentID); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Where("equipment_id = ?", equipmentID)
	if rng.From != nil {
		q = q.Where("date >= ?", *rng.From)
	}
	if rng.To != nil {
		q = q.Where("date < ?", *rng.To)
	}
	var logs []model.CalibrationLog
	if err := q.Order("date, id").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list calibration logs: %w", err)
	}
	return logs, nil
}

// --- Helpers ---

func (s *gormStore) composeView(eq model.Equipment, maint []model.MaintenanceLog, cals []model.CalibrationLog, now time.Time) View {
	return View{
		Equipment:   eq,
		Status:      status.Resolve(eq, maint, cals, s.windowDays, now),
		Calibration: schedule.Compute(eq.LastCalibrationDate, eq.CalibrationFrequencyDays, s.windowDays, now),
		Maintenance: schedule.Compute(eq.LastMaintenanceDate, eq.MaintenanceFrequencyDays, s.windowDays, now),
	}
}

func (s *gormStore) fetchEquipment(ctx context.Context, equipmentID string) (model.Equipment, error) {
	var eq model.Equipment
	err := s.db.WithContext(ctx).First(&eq, "id = ?", equipmentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Equipment{}, ErrNotFound
	}
	if err != nil {
		return model.Equipment{}, fmt.Errorf("failed to fetch equipment: %w", err)
	}
	return eq, nil
}

// fetchActiveEquipment is the mutation-path lookup: deactivated records
// reject writes the same way unknown ids do.
func (s *gormStore) fetchActiveEquipment(ctx context.Context, equipmentID string) (model.Equipment, error) {
	eq, err := s.fetchEquipment(ctx, equipmentID)
	if err != nil {
		return model.Equipment{}, err
	}
	if !eq.Active {
		return model.Equipment{}, ErrNotFound
	}
	return eq, nil
}

func (s *gormStore) fetchTrackLogs(ctx context.Context, equipmentID string) ([]model.MaintenanceLog, []model.CalibrationLog, error) {
	var maint []model.MaintenanceLog
	if err := s.db.WithContext(ctx).Where("equipment_id = ?", equipmentID).Find(&maint).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to fetch maintenance logs: %w", err)
	}
	var cals []model.CalibrationLog
	if err := s.db.WithContext(ctx).Where("equipment_id = ?", equipmentID).Find(&cals).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to fetch calibration logs: %w", err)
	}
	return maint, cals, nil
}

func validateMaintenanceInput(in MaintenanceInput) error {
	if in.Date.IsZero() || strings.TrimSpace(in.Technician) == "" {
		return fmt.Errorf("%w: date and technician are required", ErrInvalidLog)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown maintenance type %q", ErrInvalidLog, in.Type)
	}
	if !in.Result.Valid() {
		return fmt.Errorf("%w: unknown maintenance result %q", ErrInvalidLog, in.Result)
	}
	if in.Cost < 0 {
		return fmt.Errorf("%w: cost must not be negative", ErrInvalidLog)
	}
	if in.DowntimeHours < 0 {
		return fmt.Errorf("%w: downtime hours must not be negative", ErrInvalidLog)
	}
	return nil
}

func validateCalibrationInput(in CalibrationInput) error {
	if in.Date.IsZero() || strings.TrimSpace(in.Technician) == "" {
		return fmt.Errorf("%w: date and technician are required", ErrInvalidLog)
	}
	if !in.Provider.Valid() {
		return fmt.Errorf("%w: unknown calibration provider %q", ErrInvalidLog, in.Provider)
	}
	if in.Provider == model.CalibrationExternal && strings.TrimSpace(in.ExternalProviderName) == "" {
		return fmt.Errorf("%w: external calibrations require a provider name", ErrInvalidLog)
	}
	if !in.Result.Valid() {
		return fmt.Errorf("%w: unknown calibration result %q", ErrInvalidLog, in.Result)
	}
	return nil
}
