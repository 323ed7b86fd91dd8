package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/danuprasetya/go-storefront/internal/redisx"
)

type Product struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"category_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Stock       int       `json:"stock"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type HeroSlide struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	ImageURL string `json:"image_url"`
	LinkURL  string `json:"link_url,omitempty"`
	Position int    `json:"position"`
}

type ListParams struct {
	CategoryID string
	Query      string
	MinCents   int64
	MaxCents   int64
	InStock    bool
	Sort       string // price_asc | price_desc | newest
	Page       int
	PageSize   int
}

type ListResult struct {
	Items    []Product `json:"items"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

type Repo struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
}

// List returns a filtered, sorted page of products plus the total match count.
func (r *Repo) List(ctx context.Context, p ListParams) (ListResult, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 60 {
		p.PageSize = 12
	}

	where := ` WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if p.CategoryID != "" {
		where += ` AND category_id = ` + arg(p.CategoryID)
	}
	if p.Query != "" {
		where += ` AND title ILIKE ` + arg("%"+p.Query+"%")
	}
	if p.MinCents > 0 {
		where += ` AND price_cents >= ` + arg(p.MinCents)
	}
	if p.MaxCents > 0 {
		where += ` AND price_cents <= ` + arg(p.MaxCents)
	}
	if p.InStock {
		where += ` AND stock > 0`
	}

	// Sort keys are whitelisted; anything else falls back to newest.
	order := ` ORDER BY created_at DESC`
	switch p.Sort {
	case "price_asc":
		order = ` ORDER BY price_cents ASC`
	case "price_desc":
		order = ` ORDER BY price_cents DESC`
	}

	out := ListResult{Page: p.Page, PageSize: p.PageSize}
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&out.Total); err != nil {
		return ListResult{}, err
	}

	q := `SELECT id, category_id, title, COALESCE(description, ''), price_cents, stock,
			COALESCE(image_url, ''), created_at
		FROM products` + where + order +
		` LIMIT ` + arg(p.PageSize) + ` OFFSET ` + arg((p.Page-1)*p.PageSize)

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return ListResult{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var pr Product
		if err := rows.Scan(&pr.ID, &pr.CategoryID, &pr.Title, &pr.Description,
			&pr.PriceCents, &pr.Stock, &pr.ImageURL, &pr.CreatedAt); err != nil {
			return ListResult{}, err
		}
		out.Items = append(out.Items, pr)
	}
	return out, rows.Err()
}

// Categories reads through a short-lived Redis cache; the list changes rarely
// and sits on every page.
func (r *Repo) Categories(ctx context.Context) ([]Category, error) {
	if r.Redis != nil {
		if s, err := r.Redis.Get(ctx, redisx.KeyCategories).Result(); err == nil && s != "" {
			var cached []Category
			if json.Unmarshal([]byte(s), &cached) == nil {
				return cached, nil
			}
		}
	}

	rows, err := r.DB.Query(ctx, `SELECT id, name, slug FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if r.Redis != nil {
		if b, err := json.Marshal(out); err == nil {
			_ = r.Redis.Set(ctx, redisx.KeyCategories, b, redisx.TTLCategories).Err()
		}
	}
	return out, nil
}

func (r *Repo) HeroSlides(ctx context.Context) ([]HeroSlide, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, title, COALESCE(subtitle, ''), image_url, COALESCE(link_url, ''), position
		FROM hero_slides WHERE active ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HeroSlide
	for rows.Next() {
		var h HeroSlide
		if err := rows.Scan(&h.ID, &h.Title, &h.Subtitle, &h.ImageURL, &h.LinkURL, &h.Position); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
