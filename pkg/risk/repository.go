package risk

import (
	"context"
	"time"

	"github.com/cardia-ai/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type observationModel struct {
	ID         string            `gorm:"primaryKey;column:id"`
	PatientID  string            `gorm:"column:patient_id;index"`
	ObservedAt time.Time         `gorm:"column:observed_at;index"`
	Attributes datatypes.JSONMap `gorm:"column:attributes"`
	CreatedAt  time.Time         `gorm:"column:created_at"`
}

func (observationModel) TableName() string { return "patient_observations" }

type auditModel struct {
	ID          string            `gorm:"primaryKey;column:id"`
	PatientID   string            `gorm:"column:patient_id;index"`
	Probability float64           `gorm:"column:probability"`
	Predicted   bool              `gorm:"column:predicted"`
	Horizon     int               `gorm:"column:horizon"`
	ModelSource string            `gorm:"column:model_source"`
	Aggregates  datatypes.JSONMap `gorm:"column:aggregates"`
	CreatedAt   time.Time         `gorm:"column:created_at"`
}

func (auditModel) TableName() string { return "risk_prediction_audit" }

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&observationModel{}, &auditModel{})
}

func (r *Repository) History(ctx context.Context, patientID string) ([]models.PatientRecord, error) {
	var rows []observationModel
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("observed_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	history := make([]models.PatientRecord, 0, len(rows))
	for _, row := range rows {
		history = append(history, models.PatientRecord{
			PatientID:  row.PatientID,
			Date:       row.ObservedAt,
			Attributes: map[string]interface{}(row.Attributes),
		})
	}
	return history, nil
}

func (r *Repository) InsertObservation(ctx context.Context, id string, record models.PatientRecord) error {
	row := observationModel{
		ID:         id,
		PatientID:  record.PatientID,
		ObservedAt: record.Date,
		Attributes: datatypes.JSONMap(record.Attributes),
		CreatedAt:  time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *Repository) RecordAudit(ctx context.Context, id, patientID string, probability float64, predicted bool, horizon int, modelSource string, aggregates map[string]interface{}) error {
	row := auditModel{
		ID:          id,
		PatientID:   patientID,
		Probability: probability,
		Predicted:   predicted,
		Horizon:     horizon,
		ModelSource: modelSource,
		Aggregates:  datatypes.JSONMap(aggregates),
		CreatedAt:   time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}
