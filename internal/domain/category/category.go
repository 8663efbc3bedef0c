package category

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a requested category does not exist.
	ErrNotFound = errors.New("category not found")
	// ErrEmptyName is returned when a category is created without a name.
	ErrEmptyName = errors.New("category name can not be empty")
)

// Category groups products. Products reference their category by ID; the
// reverse collection is obtained by querying products.
type Category struct {
	ID   int64
	Name string
}

// Repository defines persistence operations for categories.
type Repository interface {
	Create(ctx context.Context, c *Category) error
	GetByID(ctx context.Context, id int64) (*Category, error)
}

// Service exposes the category operations products depend on.
type Service struct {
	repo Repository
}

// NewService creates a category Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a new category and returns it with its assigned ID.
func (s *Service) Create(ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	c := &Category{Name: name}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create category")
	}
	return c, nil
}

// Get returns the category with the given ID or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "get category %d", id)
	}
	return c, nil
}
