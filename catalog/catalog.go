// Package catalog serves the fixed menu that orders snapshot their item
// names and prices from.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"food-order-tracker/models"

	"gorm.io/gorm"
)

var ErrMenuItemNotFound = errors.New("menu item not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the menu table.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&models.MenuItem{}); err != nil {
		return fmt.Errorf("migrate menu items: %w", err)
	}
	return nil
}

// Seed inserts items when the menu is empty.
func (r *Repository) Seed(ctx context.Context, items []models.MenuItem) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.MenuItem{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count menu items: %w", err)
	}
	if count > 0 || len(items) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
		return fmt.Errorf("seed menu items: %w", err)
	}
	return nil
}

// List returns the menu ordered by id, optionally filtered by category.
func (r *Repository) List(ctx context.Context, category string) ([]models.MenuItem, error) {
	var items []models.MenuItem
	query := r.db.WithContext(ctx).Order("id asc")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	return items, nil
}

func (r *Repository) Get(ctx context.Context, id string) (models.MenuItem, error) {
	var item models.MenuItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.MenuItem{}, ErrMenuItemNotFound
	}
	if err != nil {
		return models.MenuItem{}, fmt.Errorf("get menu item %s: %w", id, err)
	}
	return item, nil
}

// DefaultMenu is the demo menu loaded at startup.
func DefaultMenu() []models.MenuItem {
	return []models.MenuItem{
		{
			ID:          "1",
			Name:        "Margherita Pizza",
			Description: "Classic tomato sauce, mozzarella, fresh basil",
			Price:       12.99,
			Category:    "pizza",
			Image:       "https://images.unsplash.com/photo-1574071318508-1cdbab80d002?w=400&h=300&fit=crop",
		},
		{
			ID:          "2",
			Name:        "Pepperoni Pizza",
			Description: "Spicy pepperoni, tomato sauce, mozzarella",
			Price:       14.99,
			Category:    "pizza",
			Image:       "https://images.unsplash.com/photo-1628840042765-356cda07504e?w=400&h=300&fit=crop",
		},
		{
			ID:          "3",
			Name:        "Classic Burger",
			Description: "Beef patty, lettuce, tomato, cheese, special sauce",
			Price:       9.99,
			Category:    "burger",
			Image:       "https://images.unsplash.com/photo-1568901346375-23c9450c58cd?w=400&h=300&fit=crop",
		},
		{
			ID:          "4",
			Name:        "Double Cheese Burger",
			Description: "Two beef patties, double cheddar, pickles, onions",
			Price:       12.99,
			Category:    "burger",
			Image:       "https://images.unsplash.com/photo-1553979459-d2229ba7433b?w=400&h=300&fit=crop",
		},
		{
			ID:          "5",
			Name:        "Caesar Salad",
			Description: "Romaine, parmesan, croutons, caesar dressing",
			Price:       8.99,
			Category:    "salad",
			Image:       "https://images.unsplash.com/photo-1746211108786-ca20c8f80ecd?w=400&h=300&fit=crop",
		},
		{
			ID:          "6",
			Name:        "Fish & Chips",
			Description: "Beer-battered cod, crispy fries, tartar sauce",
			Price:       13.99,
			Category:    "other",
			Image:       "https://plus.unsplash.com/premium_photo-1694108747175-889fdc786003?w=400&h=300&fit=crop",
		},
	}
}
