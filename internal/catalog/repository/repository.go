package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ma5621/perf-working/internal/catalog/domain"
)

var ErrPerfumeNotFound = errors.New("perfume not found")

const defaultPageLimit = 12

type Repository struct {
	db *sql.DB
}

type RepoInterface interface {
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.Perfume, domain.Pagination, error)
	GetByID(ctx context.Context, id string) (*domain.Perfume, error)
	Brands(ctx context.Context, language string) ([]string, error)
	Categories(ctx context.Context, language string) ([]string, error)
	Create(ctx context.Context, p *domain.Perfume) error
	Update(ctx context.Context, p *domain.Perfume) error
	Delete(ctx context.Context, id string) error
	GetSettings(ctx context.Context) (map[string]string, error)
	PutSetting(ctx context.Context, key, value string) error
	Close() error
	RunMigrations(string) error
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

const perfumeColumns = `id, name_en, name_ar, brand_en, brand_ar, category_en, category_ar,
	gender_en, gender_ar, description_en, description_ar, sizes, stock_status,
	image_url, is_new, is_bestseller, is_active, created_at, updated_at`

func scanPerfume(scan func(...any) error) (*domain.Perfume, error) {
	p := &domain.Perfume{}
	var sizesJSON string
	err := scan(
		&p.ID,
		&p.NameEn,
		&p.NameAr,
		&p.BrandEn,
		&p.BrandAr,
		&p.CategoryEn,
		&p.CategoryAr,
		&p.GenderEn,
		&p.GenderAr,
		&p.DescriptionEn,
		&p.DescriptionAr,
		&sizesJSON,
		&p.StockStatus,
		&p.ImageURL,
		&p.IsNew,
		&p.IsBestseller,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan perfume: %w", err)
	}
	if err := json.Unmarshal([]byte(sizesJSON), &p.Sizes); err != nil {
		return nil, fmt.Errorf("failed to decode sizes for %s: %w", p.ID, err)
	}
	return p, nil
}

// List returns one page of perfumes matching the filter. Text filters
// match the Arabic columns when filter.Language is "ar", the English
// columns otherwise. Only active perfumes are listed.
func (r *Repository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Perfume, domain.Pagination, error) {
	where := []string{"is_active = 1"}
	var args []any

	arabic := filter.Language == "ar"
	col := func(en, ar string) string {
		if arabic {
			return ar
		}
		return en
	}

	if filter.Search != "" {
		where = append(where, fmt.Sprintf("%s LIKE ?", col("name_en", "name_ar")))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Brand != "" {
		where = append(where, fmt.Sprintf("%s = ?", col("brand_en", "brand_ar")))
		args = append(args, filter.Brand)
	}
	if filter.Category != "" {
		where = append(where, fmt.Sprintf("%s = ?", col("category_en", "category_ar")))
		args = append(args, filter.Category)
	}
	if filter.Gender != "" {
		where = append(where, fmt.Sprintf("%s = ?", col("gender_en", "gender_ar")))
		args = append(args, filter.Gender)
	}
	if filter.StockStatus != "" {
		// Stored statuses vary in casing and spacing ("Out of Stock"),
		// the filter arrives normalized ("out_of_stock"). Compare both
		// sides in normalized form.
		where = append(where, "LOWER(REPLACE(stock_status, ' ', '_')) = ?")
		args = append(args, strings.Join(strings.Fields(strings.ToLower(filter.StockStatus)), "_"))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM perfumes WHERE " + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("failed to count perfumes: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = defaultPageLimit
	}
	offset := (page - 1) * limit
	totalPages := (total + limit - 1) / limit

	query := fmt.Sprintf(
		"SELECT %s FROM perfumes WHERE %s ORDER BY created_at DESC LIMIT ? OFFSET ?",
		perfumeColumns, whereClause,
	)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("failed to query perfumes: %w", err)
	}
	defer rows.Close()

	var perfumes []*domain.Perfume
	for rows.Next() {
		p, err := scanPerfume(rows.Scan)
		if err != nil {
			return nil, domain.Pagination{}, err
		}
		perfumes = append(perfumes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("row iteration error: %w", err)
	}

	pagination := domain.Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
	return perfumes, pagination, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Perfume, error) {
	query := fmt.Sprintf("SELECT %s FROM perfumes WHERE id = ?", perfumeColumns)

	row := r.db.QueryRowContext(ctx, query, id)
	p, err := scanPerfume(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPerfumeNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *Repository) Brands(ctx context.Context, language string) ([]string, error) {
	return r.distinct(ctx, language, "brand_en", "brand_ar")
}

func (r *Repository) Categories(ctx context.Context, language string) ([]string, error) {
	return r.distinct(ctx, language, "category_en", "category_ar")
}

func (r *Repository) distinct(ctx context.Context, language, enCol, arCol string) ([]string, error) {
	column := enCol
	if language == "ar" {
		column = arCol
	}

	query := fmt.Sprintf("SELECT DISTINCT %s FROM perfumes WHERE is_active = 1 ORDER BY %s", column, column)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", column, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return values, nil
}

func (r *Repository) Create(ctx context.Context, p *domain.Perfume) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	sizesJSON, err := json.Marshal(p.Sizes)
	if err != nil {
		return fmt.Errorf("failed to encode sizes: %w", err)
	}

	query := fmt.Sprintf("INSERT INTO perfumes (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", perfumeColumns)
	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.NameEn, p.NameAr, p.BrandEn, p.BrandAr, p.CategoryEn, p.CategoryAr,
		p.GenderEn, p.GenderAr, p.DescriptionEn, p.DescriptionAr, string(sizesJSON),
		p.StockStatus, p.ImageURL, p.IsNew, p.IsBestseller, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert perfume: %w", err)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, p *domain.Perfume) error {
	p.UpdatedAt = time.Now().UTC()

	sizesJSON, err := json.Marshal(p.Sizes)
	if err != nil {
		return fmt.Errorf("failed to encode sizes: %w", err)
	}

	query := `UPDATE perfumes SET
		name_en = ?, name_ar = ?, brand_en = ?, brand_ar = ?,
		category_en = ?, category_ar = ?, gender_en = ?, gender_ar = ?,
		description_en = ?, description_ar = ?, sizes = ?, stock_status = ?,
		image_url = ?, is_new = ?, is_bestseller = ?, is_active = ?, updated_at = ?
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		p.NameEn, p.NameAr, p.BrandEn, p.BrandAr,
		p.CategoryEn, p.CategoryAr, p.GenderEn, p.GenderAr,
		p.DescriptionEn, p.DescriptionAr, string(sizesJSON), p.StockStatus,
		p.ImageURL, p.IsNew, p.IsBestseller, p.IsActive, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update perfume: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrPerfumeNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM perfumes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete perfume: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrPerfumeNotFound
	}
	return nil
}

func (r *Repository) GetSettings(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return settings, nil
}

func (r *Repository) PutSetting(ctx context.Context, key, value string) error {
	query := `INSERT INTO settings (key, value, description) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	_, err := r.db.ExecContext(ctx, query, key, value, fmt.Sprintf("Setting for %s", key))
	if err != nil {
		return fmt.Errorf("failed to upsert setting: %w", err)
	}
	return nil
}
