package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	settingdomain "github.com/smallbiznis/giftbot/internal/setting/domain"
	"gorm.io/gorm"
)

// DefaultSettings are written once and never overwritten afterwards.
var DefaultSettings = map[string]string{
	settingdomain.KeyAutoApproval:  "false",
	settingdomain.KeyGiftStickerID: "",
	settingdomain.KeyGiftMessage:   "🎉 Congratulations! You received a gift: a teddy bear! 🐻",
}

// EnsureDefaults seeds settings and the opening ledger row. Safe to run on
// every start.
func EnsureDefaults(ctx context.Context, conn *gorm.DB, genID *snowflake.Node, now time.Time) error {
	db := conn.WithContext(ctx)
	for _, key := range []string{settingdomain.KeyAutoApproval, settingdomain.KeyGiftStickerID, settingdomain.KeyGiftMessage} {
		if err := db.Exec(
			`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT (key) DO NOTHING`,
			key,
			DefaultSettings[key],
			now,
		).Error; err != nil {
			return fmt.Errorf("seed setting %s: %w", key, err)
		}
	}

	var count int64
	if err := db.Raw(`SELECT COUNT(*) FROM ledger_entries`).Scan(&count).Error; err != nil {
		return fmt.Errorf("count ledger entries: %w", err)
	}
	if count > 0 {
		return nil
	}
	if err := db.Exec(
		`INSERT INTO ledger_entries (id, amount, operation_type, description, created_at)
		 VALUES (?, 0, 'init', 'Initial balance', ?)`,
		genID.Generate().Int64(),
		now,
	).Error; err != nil {
		return fmt.Errorf("seed ledger: %w", err)
	}
	return nil
}
