package domain

import "time"

const (
	KeyAutoApproval  = "auto_approval"
	KeyGiftStickerID = "gift_sticker_id"
	KeyGiftMessage   = "gift_message"
)

type Setting struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Setting) TableName() string { return "settings" }
