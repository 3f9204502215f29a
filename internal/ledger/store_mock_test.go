package ledger

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"labops-backend/internal/model"
	"labops-backend/internal/schedule"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return gormDB, mock
}

func equipmentRow(lastMaintenance, lastCalibration time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "serial_number", "active",
		"last_maintenance_date", "maintenance_frequency_days",
		"last_calibration_date", "calibration_frequency_days",
	}).AddRow(
		"eq-1", "SN-1", true,
		lastMaintenance, 90,
		lastCalibration, 180,
	)
}

// A rejected append must leave the ledger untouched: no transaction, no
// insert, no track update.
func TestRejectedAppendsWriteNothing(t *testing.T) {
	baseline := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Non-monotonic maintenance date", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		store := NewGormStore(gormDB, schedule.DefaultDueSoonWindowDays)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "equipment"`)).
			WillReturnRows(equipmentRow(baseline, baseline))

		_, err := store.AppendMaintenanceLog(context.Background(), "eq-1", MaintenanceInput{
			Date:        time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
			Technician:  "m.smith",
			Type:        model.MaintenancePreventive,
			Description: "late paperwork",
			Result:      model.MaintenanceCompleted,
		})
		assert.ErrorIs(t, err, ErrNonMonotonicDate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Overlapping usage interval", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		store := NewGormStore(gormDB, schedule.DefaultDueSoonWindowDays)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "equipment"`)).
			WillReturnRows(equipmentRow(baseline, baseline))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "usage_logs"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "equipment_id", "start_time", "end_time"}).
				AddRow(41, "eq-1", baseline.Add(9*time.Hour), baseline.Add(11*time.Hour)))

		_, err := store.AppendUsageLog(context.Background(), "eq-1", UsageInput{
			StartTime: baseline.Add(10 * time.Hour),
			EndTime:   baseline.Add(12 * time.Hour),
			Operator:  "j.doe",
		})
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Invalid enum never reaches the database", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		store := NewGormStore(gormDB, schedule.DefaultDueSoonWindowDays)

		_, err := store.AppendCalibrationLog(context.Background(), "eq-1", CalibrationInput{
			Date:       baseline,
			Technician: "c.lee",
			Provider:   model.CalibrationProvider("psychic"),
			Result:     model.CalibrationPass,
		})
		assert.ErrorIs(t, err, ErrInvalidLog)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
