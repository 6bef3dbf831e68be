package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	require.NoError(t, base.BeforeCreate(nil))

	parsed, err := uuid.Parse(base.ID)
	require.NoError(t, err)
	require.EqualValues(t, 7, parsed.Version())
}

func TestBaseModelBeforeCreateKeepsExistingID(t *testing.T) {
	base := BaseModel{ID: "fixed"}
	require.NoError(t, base.BeforeCreate(nil))
	require.Equal(t, "fixed", base.ID)
}

func TestEmbeddedModelsUseBaseBeforeCreate(t *testing.T) {
	cases := []struct {
		name  string
		model func() *BaseModel
	}{
		{"alert", func() *BaseModel {
			a := &Alert{}
			return &a.BaseModel
		}},
		{"contact", func() *BaseModel {
			c := &Contact{}
			return &c.BaseModel
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base := tc.model()
			require.NoError(t, base.BeforeCreate(nil))
			require.NotEmpty(t, base.ID)
		})
	}
}

func TestNotificationRecordBeforeCreateGeneratesID(t *testing.T) {
	var record NotificationRecord
	require.NoError(t, record.BeforeCreate(nil))
	require.NotEmpty(t, record.ID)
}

func TestTableNamesMatchHostedSchema(t *testing.T) {
	require.Equal(t, "emergency_alerts", Alert{}.TableName())
	require.Equal(t, "personal_contacts", Contact{}.TableName())
	require.Equal(t, "alert_notifications", NotificationRecord{}.TableName())
}

func TestAlertIsActive(t *testing.T) {
	var missing *Alert
	require.False(t, missing.IsActive())
	require.True(t, (&Alert{Status: AlertStatusActive}).IsActive())
	require.False(t, (&Alert{Status: AlertStatusResolved}).IsActive())
}
