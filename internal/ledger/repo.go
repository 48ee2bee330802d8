package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	"github.com/subhub/telecom-subscriptions/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatusCount is the number of a user's transactions in one status.
type StatusCount struct {
	Status enums.TransactionStatus
	Count  int64
}

// Repository manages persistence for ledger transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) error
	Transition(ctx context.Context, id uuid.UUID, from enums.TransactionStatus, updates map[string]any) (bool, error)
	SetUserPlan(ctx context.Context, id, userPlanID uuid.UUID) error
	FindForUser(ctx context.Context, userID, id uuid.UUID) (*models.Transaction, error)
	LockForUser(ctx context.Context, userID, id uuid.UUID) (*models.Transaction, error)
	ListForUser(ctx context.Context, userID uuid.UUID, status *enums.TransactionStatus, cursor *pagination.Cursor, limit int) ([]models.Transaction, error)
	CountByStatus(ctx context.Context, userID uuid.UUID) ([]StatusCount, error)
	SumCompleted(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error)
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Transaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(txn).Error
}

// Transition applies updates only while the row still holds the expected status.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from enums.TransactionStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SetUserPlan(ctx context.Context, id, userPlanID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Update("user_plan_id", userPlanID).Error
}

func (r *repository) FindForUser(ctx context.Context, userID, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("id = ? AND user_id = ?", id, userID).
		First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) LockForUser(ctx context.Context, userID, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, status *enums.TransactionStatus, cursor *pagination.Cursor, limit int) ([]models.Transaction, error) {
	query := r.db.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	query = query.Scopes(pagination.After(cursor))
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.Transaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountByStatus(ctx context.Context, userID uuid.UUID) ([]StatusCount, error) {
	var rows []StatusCount
	if err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SumCompleted totals completed charges created at or after since, leaving
// refund rows out. A zero since covers all time.
func (r *repository) SumCompleted(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND status = ? AND amount > 0", userID, enums.TransactionStatusCompleted)
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}
	var total decimal.NullDecimal
	if err := query.Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *repository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Transaction, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.TransactionStatusPending, before).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.Transaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
