package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/sosrelay/internal/database/testutil"
	apperrors "github.com/charlesng35/sosrelay/pkg/errors"
)

func TestContactServiceCreateAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewContactService(db)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = svc.Create(ctx, "user-1", CreateContactInput{Name: "  Zed ", Phone: "+63 917 000 0001"})
	require.NoError(t, err)
	created, err := svc.Create(ctx, "user-1", CreateContactInput{
		Name:         "Ana",
		Phone:        "(02) 555-0102",
		Email:        "ana@example.com",
		Relationship: "Sister",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "ana@example.com", created.Email)

	_, err = svc.Create(ctx, "user-2", CreateContactInput{Name: "Other", Phone: "09170000003"})
	require.NoError(t, err)

	items, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Ana", items[0].Name)
	require.Equal(t, "Zed", items[1].Name)

	recipients, err := svc.Recipients(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, recipients, 2)
	require.Equal(t, "(02) 555-0102", recipients[0].Phone)
}

func TestContactServiceCreateValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewContactService(db)
	require.NoError(t, err)

	cases := []struct {
		name    string
		input   CreateContactInput
		message string
	}{
		{"short name", CreateContactInput{Name: "A", Phone: "09170000001"}, "name must be at least 2 characters"},
		{"missing phone", CreateContactInput{Name: "Ana"}, "phone is required"},
		{"short phone", CreateContactInput{Name: "Ana", Phone: "12345"}, "phone must be at least 7 characters"},
		{"letters in phone", CreateContactInput{Name: "Ana", Phone: "0917-CALL-ME"}, "phone may only contain"},
		{"bad email", CreateContactInput{Name: "Ana", Phone: "09170000001", Email: "nope"}, "email must be a valid email address"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "user-1", tc.input)
			require.Error(t, err)
			appErr, ok := err.(*apperrors.AppError)
			require.True(t, ok)
			require.Equal(t, apperrors.ErrBadRequest.Code, appErr.Code)
			require.Contains(t, appErr.Message, tc.message)
		})
	}
}

func TestContactServiceDuplicatePhoneConflict(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewContactService(db)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = svc.Create(ctx, "user-1", CreateContactInput{Name: "Ana", Phone: "09170000001"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "user-1", CreateContactInput{Name: "Ana Again", Phone: "09170000001"})
	require.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = svc.Create(ctx, "user-2", CreateContactInput{Name: "Ana", Phone: "09170000001"})
	require.NoError(t, err)
}

func TestContactServiceDelete(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewContactService(db)
	require.NoError(t, err)

	ctx := context.Background()
	created, err := svc.Create(ctx, "user-1", CreateContactInput{Name: "Ana", Phone: "09170000001"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, "user-2", created.ID), apperrors.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "user-1", created.ID))
	require.ErrorIs(t, svc.Delete(ctx, "user-1", created.ID), apperrors.ErrNotFound)

	items, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestContactServiceRequiresUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewContactService(db)
	require.NoError(t, err)

	_, err = svc.List(context.Background(), " ")
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = NewContactService(nil)
	require.Error(t, err)
}
