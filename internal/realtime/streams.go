package realtime

// StreamEmergencyAlerts carries alert lifecycle changes for the live map.
const StreamEmergencyAlerts = "emergency_alerts"

// Alert lifecycle events published on StreamEmergencyAlerts.
const (
	EventAlertCreated = "alert.created"
	EventAlertUpdated = "alert.updated"
)
