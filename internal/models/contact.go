package models

// Contact is a person notified when its owner raises an alert.
type Contact struct {
	BaseModel

	UserID       string `gorm:"type:varchar(64);not null;uniqueIndex:idx_contacts_user_phone" json:"user_id"`
	Name         string `gorm:"type:varchar(100);not null" json:"name"`
	Phone        string `gorm:"type:varchar(20);not null;uniqueIndex:idx_contacts_user_phone" json:"phone"`
	Email        string `gorm:"type:varchar(255)" json:"email,omitempty"`
	Relationship string `gorm:"type:varchar(50)" json:"relationship,omitempty"`
}

func (Contact) TableName() string {
	return "personal_contacts"
}
