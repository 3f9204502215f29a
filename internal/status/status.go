package status

import (
	"time"

	"labops-backend/internal/model"
	"labops-backend/internal/schedule"
)

// Resolve derives the current operational status of a piece of equipment from
// its ledger contents and the given reference time. First matching rule wins,
// highest severity first:
//
//  1. a manual override, verbatim
//  2. the most recent maintenance log is pending → under maintenance
//  3. the most recent calibration log is a fail → out of service
//  4. the calibration track is overdue → calibration required
//  5. operational
//
// Pure and re-evaluated on every read; status is never stored.
func Resolve(eq model.Equipment, maint []model.MaintenanceLog, cals []model.CalibrationLog, windowDays int, now time.Time) model.EquipmentStatus {
	if eq.ManualOverrideStatus != nil {
		return *eq.ManualOverrideStatus
	}

	if m, ok := latestMaintenance(maint); ok && m.Result == model.MaintenancePending {
		return model.StatusUnderMaintenance
	}

	if c, ok := latestCalibration(cals); ok && c.Result == model.CalibrationFail {
		return model.StatusOutOfService
	}

	cal := schedule.Compute(eq.LastCalibrationDate, eq.CalibrationFrequencyDays, windowDays, now)
	if cal.Urgency == schedule.UrgencyOverdue {
		return model.StatusCalibrationRequired
	}

	return model.StatusOperational
}

// latestMaintenance returns the most recent maintenance log, ordered by date
// then by append order for same-day logs.
func latestMaintenance(logs []model.MaintenanceLog) (model.MaintenanceLog, bool) {
	var latest model.MaintenanceLog
	found := false
	for _, l := range logs {
		if !found || l.Date.After(latest.Date) || (l.Date.Equal(latest.Date) && l.ID > latest.ID) {
			latest = l
			found = true
		}
	}
	return latest, found
}

func latestCalibration(logs []model.CalibrationLog) (model.CalibrationLog, bool) {
	var latest model.CalibrationLog
	found := false
	for _, l := range logs {
		if !found || l.Date.After(latest.Date) || (l.Date.Equal(latest.Date) && l.ID > latest.ID) {
			latest = l
			found = true
		}
	}
	return latest, found
}
