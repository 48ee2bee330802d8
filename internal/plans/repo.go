package plans

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	"gorm.io/gorm"
)

// ListFilter narrows catalog listings. Zero values mean "no filter".
type ListFilter struct {
	Category    *enums.PlanCategory
	PopularOnly bool
	Search      string
}

// CategoryTotal is a raw per-category count of available plans.
type CategoryTotal struct {
	Category enums.PlanCategory
	Count    int64
}

// Repository manages persistence for catalog plans.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, filter ListFilter, limit int) ([]models.Plan, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	FindBySlug(ctx context.Context, slug string) (*models.Plan, error)
	CategoryTotals(ctx context.Context) ([]CategoryTotal, error)
	Popular(ctx context.Context, limit int) ([]models.Plan, error)
	PricierInCategory(ctx context.Context, current models.Plan, limit int) ([]models.Plan, error)
	PopularOutsideCategory(ctx context.Context, category enums.PlanCategory, limit int) ([]models.Plan, error)
	SubscriberCount(ctx context.Context, planID uuid.UUID) (int64, error)
	TotalRevenue(ctx context.Context, planID uuid.UUID) (decimal.Decimal, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, plan *models.Plan) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Count(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a plans repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) available(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Plan{}).Where("is_available = ?", true)
}

func (r *repository) List(ctx context.Context, filter ListFilter, limit int) ([]models.Plan, error) {
	query := r.available(ctx)
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.PopularOnly {
		query = query.Where("is_popular = ?", true)
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		like := "%" + escapeLike(term) + "%"
		query = query.Where("(lower(name) LIKE ? ESCAPE '\\' OR lower(description) LIKE ? ESCAPE '\\')", like, like)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var plans []models.Plan
	if err := query.Order("is_popular DESC").Order("price ASC").Order("name ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).First(&plan, "slug = ?", strings.ToLower(strings.TrimSpace(slug))).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repository) CategoryTotals(ctx context.Context) ([]CategoryTotal, error) {
	var rows []CategoryTotal
	if err := r.available(ctx).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("category ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Popular(ctx context.Context, limit int) ([]models.Plan, error) {
	query := r.available(ctx).Where("is_popular = ?", true).Order("price ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var plans []models.Plan
	if err := query.Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repository) PricierInCategory(ctx context.Context, current models.Plan, limit int) ([]models.Plan, error) {
	var plans []models.Plan
	if err := r.available(ctx).
		Where("category = ? AND price > ? AND id <> ?", current.Category, current.Price, current.ID).
		Order("price ASC").
		Limit(limit).
		Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repository) PopularOutsideCategory(ctx context.Context, category enums.PlanCategory, limit int) ([]models.Plan, error) {
	var plans []models.Plan
	if err := r.available(ctx).
		Where("category <> ? AND is_popular = ?", category, true).
		Order("price ASC").
		Limit(limit).
		Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repository) SubscriberCount(ctx context.Context, planID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserPlan{}).
		Where("plan_id = ? AND status = ?", planID, enums.UserPlanStatusActive).
		Count(&count).Error
	return count, err
}

func (r *repository) TotalRevenue(ctx context.Context, planID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("plan_id = ? AND status = ? AND amount > 0", planID, enums.TransactionStatusCompleted).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Plan{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *repository) Create(ctx context.Context, plan *models.Plan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Plan{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Plan{}).Count(&count).Error
	return count, err
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
