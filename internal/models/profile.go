package models

// Profile is the public profile of a farmer.
type Profile struct {
	ID             string `gorm:"type:text;primaryKey" json:"id"`
	FullName       string `gorm:"type:text" json:"full_name"`
	Email          string `gorm:"type:text" json:"email"`
	TelegramChatID *int64 `gorm:"index" json:"-"`
	Language       string `gorm:"type:text" json:"language"`
}

// AuthIdentity is the identity record kept by the auth provider. It is only
// read through the get_user_emails procedure.
type AuthIdentity struct {
	ID    string `gorm:"type:text;primaryKey"`
	Email string `gorm:"type:text"`
}

func (AuthIdentity) TableName() string { return "auth_identities" }
