package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for user plans.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, userPlan *models.UserPlan) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindForUser(ctx context.Context, userID, id uuid.UUID) (*models.UserPlan, error)
	LockForUser(ctx context.Context, userID, id uuid.UUID) (*models.UserPlan, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.UserPlan, error)
	ActiveInCategory(ctx context.Context, userID uuid.UUID, category enums.PlanCategory, excludeID *uuid.UUID) (*models.UserPlan, error)
	LatestForPlan(ctx context.Context, userID, planID uuid.UUID) (*models.UserPlan, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.UserPlan, error)
	Current(ctx context.Context, userID uuid.UUID) (*models.UserPlan, error)
	ListActive(ctx context.Context, userID uuid.UUID) ([]models.UserPlan, error)
	CountActive(ctx context.Context, userID uuid.UUID) (int64, error)
	CancelAllActive(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a user plan repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, userPlan *models.UserPlan) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(userPlan).Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.UserPlan{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindForUser(ctx context.Context, userID, id uuid.UUID) (*models.UserPlan, error) {
	var row models.UserPlan
	if err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("id = ? AND user_id = ?", id, userID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// LockForUser loads an owned user plan with a row lock held until the
// surrounding transaction ends.
func (r *repository) LockForUser(ctx context.Context, userID, id uuid.UUID) (*models.UserPlan, error) {
	var row models.UserPlan
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.UserPlan, error) {
	var row models.UserPlan
	if err := r.db.WithContext(ctx).Preload("Plan").First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ActiveInCategory(ctx context.Context, userID uuid.UUID, category enums.PlanCategory, excludeID *uuid.UUID) (*models.UserPlan, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND category = ? AND status = ?", userID, category, enums.UserPlanStatusActive)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var rows []models.UserPlan
	if err := query.Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repository) LatestForPlan(ctx context.Context, userID, planID uuid.UUID) (*models.UserPlan, error) {
	var rows []models.UserPlan
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND plan_id = ?", userID, planID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.UserPlan, error) {
	var rows []models.UserPlan
	if err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Current(ctx context.Context, userID uuid.UUID) (*models.UserPlan, error) {
	var rows []models.UserPlan
	if err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ? AND status = ?", userID, enums.UserPlanStatusActive).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repository) ListActive(ctx context.Context, userID uuid.UUID) ([]models.UserPlan, error) {
	var rows []models.UserPlan
	if err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ? AND status = ?", userID, enums.UserPlanStatusActive).
		Order("renewal_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountActive(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserPlan{}).
		Where("user_id = ? AND status = ?", userID, enums.UserPlanStatusActive).
		Count(&count).Error
	return count, err
}

// CancelAllActive cancels every active plan of the user and switches off
// auto renewal. It returns the number of plans cancelled.
func (r *repository) CancelAllActive(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.UserPlan{}).
		Where("user_id = ? AND status = ?", userID, enums.UserPlanStatusActive).
		Updates(map[string]any{
			"status":       enums.UserPlanStatusCancelled,
			"auto_renewal": false,
			"updated_at":   at,
		})
	return res.RowsAffected, res.Error
}
