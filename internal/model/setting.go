package model

import "time"

type SettingType string

const (
	SettingTypeString  SettingType = "string"
	SettingTypeNumber  SettingType = "number"
	SettingTypeBoolean SettingType = "boolean"
	SettingTypeJSON    SettingType = "json"
)

func (t SettingType) Valid() bool {
	switch t {
	case SettingTypeString, SettingTypeNumber, SettingTypeBoolean, SettingTypeJSON:
		return true
	}
	return false
}

// Setting is addressed by Key, not ID, on update and delete.
type Setting struct {
	ID          string      `json:"id"`
	Key         string      `json:"key"`
	Value       string      `json:"value"`
	Description *string     `json:"description,omitempty"`
	Type        SettingType `json:"type"`
	IsPublic    bool        `json:"isPublic"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// SettingInput carries Key and Type only on create; the backend ignores
// them on PUT /settings/:key.
type SettingInput struct {
	Key         string       `json:"key,omitempty"`
	Value       *string      `json:"value,omitempty"`
	Description *string      `json:"description,omitempty"`
	Type        *SettingType `json:"type,omitempty"`
	IsPublic    *bool        `json:"isPublic,omitempty"`
}
