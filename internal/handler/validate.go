package handler

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xenking/catalog-service/internal/domain/product"
)

// Product name length bounds, in characters.
const (
	minNameLen = 3
	maxNameLen = 15
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every rejected field of a request.
type ValidationError struct {
	Fields []FieldError
}

// Add records a rejected field.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Err returns e when any field was rejected and nil otherwise.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Error joins the field messages with ", ".
func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, ", ")
}

func (h *Handler) validateCommon(b productBody, ve *ValidationError) {
	switch n := utf8.RuneCountInString(b.Name); {
	case b.Name == "":
		ve.Add("name", "Name can not be empty")
	case n < minNameLen || n > maxNameLen:
		ve.Add("name", "The name must be at least 3 characters long and maximum 15 characters long.")
	}
	if b.Description == "" {
		ve.Add("description", "Description can not be empty")
	}
	switch {
	case !b.HasPrice || !b.Price.IsPositive():
		ve.Add(h.baseField, "Price must be greater than zero")
	case product.CheckPrice(b.Price) != nil:
		ve.Add(h.baseField, msgPriceOutOfRange)
	}
}

func (h *Handler) validateCreate(b productBody) (product.CreateParams, error) {
	var ve ValidationError
	h.validateCommon(b, &ve)

	var categoryID int64
	if b.CategoryID == "" {
		ve.Add("categoryId", "Category ID can not be empty")
	} else if id, err := strconv.ParseInt(b.CategoryID, 10, 64); err != nil || id <= 0 {
		ve.Add("categoryId", "Category ID must be a positive number")
	} else {
		categoryID = id
	}

	if err := ve.Err(); err != nil {
		return product.CreateParams{}, err
	}
	return product.CreateParams{
		Name:        b.Name,
		Price:       b.Price,
		Description: b.Description,
		Available:   b.Available,
		CategoryID:  categoryID,
	}, nil
}

func (h *Handler) validateUpdate(b productBody) (product.UpdateParams, error) {
	var ve ValidationError
	h.validateCommon(b, &ve)

	if err := ve.Err(); err != nil {
		return product.UpdateParams{}, err
	}
	return product.UpdateParams{
		Name:        b.Name,
		Price:       b.Price,
		Description: b.Description,
		Available:   b.Available,
	}, nil
}
