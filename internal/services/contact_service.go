package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/sosrelay/internal/fanout"
	"github.com/charlesng35/sosrelay/internal/models"
	apperrors "github.com/charlesng35/sosrelay/pkg/errors"
	"github.com/charlesng35/sosrelay/pkg/validator"
)

// ContactDTO is the API view of a personal contact.
type ContactDTO struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email,omitempty"`
	Relationship string    `json:"relationship,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateContactInput carries the fields accepted when adding a contact.
type CreateContactInput struct {
	Name         string `json:"name" validate:"required,min=2,max=100"`
	Phone        string `json:"phone" validate:"required,min=7,max=20,phone"`
	Email        string `json:"email" validate:"omitempty,email"`
	Relationship string `json:"relationship" validate:"max=50"`
}

// ContactService manages the personal contacts notified on alert submission.
type ContactService struct {
	db *gorm.DB
}

// NewContactService constructs a ContactService.
func NewContactService(db *gorm.DB) (*ContactService, error) {
	if db == nil {
		return nil, errors.New("contact service: db is required")
	}
	return &ContactService{db: db}, nil
}

// Create stores a new contact for userID. A phone number may only appear once per user.
func (s *ContactService) Create(ctx context.Context, userID string, input CreateContactInput) (*ContactDTO, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Email = strings.TrimSpace(input.Email)
	input.Relationship = strings.TrimSpace(input.Relationship)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewBadRequest(validator.Describe(err))
	}

	contact := models.Contact{
		UserID:       userID,
		Name:         input.Name,
		Phone:        input.Phone,
		Email:        input.Email,
		Relationship: input.Relationship,
	}
	if err := s.db.WithContext(ctx).Create(&contact).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrConflict.WithMessage("a contact with this phone number already exists")
		}
		return nil, fmt.Errorf("contact service: create contact: %w", err)
	}

	dto := mapContact(contact)
	return &dto, nil
}

// List returns the user's contacts ordered by name.
func (s *ContactService) List(ctx context.Context, userID string) ([]ContactDTO, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	rows, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	dtos := make([]ContactDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, mapContact(row))
	}
	return dtos, nil
}

// Delete removes one of the user's contacts.
func (s *ContactService) Delete(ctx context.Context, userID, id string) error {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	id = strings.TrimSpace(id)
	if userID == "" {
		return apperrors.ErrUnauthorized
	}
	if id == "" {
		return apperrors.NewBadRequest("contact id is required")
	}

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Contact{})
	if result.Error != nil {
		return fmt.Errorf("contact service: delete contact: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Recipients returns the user's contacts in the form the fan-out consumes.
func (s *ContactService) Recipients(ctx context.Context, userID string) ([]fanout.Contact, error) {
	ctx = ensureContext(ctx)
	rows, err := s.load(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}

	contacts := make([]fanout.Contact, 0, len(rows))
	for _, row := range rows {
		contacts = append(contacts, fanout.Contact{
			Name:  row.Name,
			Email: row.Email,
			Phone: row.Phone,
		})
	}
	return contacts, nil
}

func (s *ContactService) load(ctx context.Context, userID string) ([]models.Contact, error) {
	var rows []models.Contact
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("contact service: list contacts: %w", err)
	}
	return rows, nil
}

func mapContact(row models.Contact) ContactDTO {
	return ContactDTO{
		ID:           row.ID,
		Name:         row.Name,
		Phone:        row.Phone,
		Email:        row.Email,
		Relationship: row.Relationship,
		CreatedAt:    row.CreatedAt,
	}
}
