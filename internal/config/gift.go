package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// GiftConfig describes what a winner receives and how admins hand it over.
type GiftConfig struct {
	Name            string   `mapstructure:"name"`
	Type            string   `mapstructure:"type"`
	StarsPerGift    int64    `mapstructure:"starsPerGift"`
	QuickAddAmounts []int64  `mapstructure:"quickAddAmounts"`
	DeliverySteps   []string `mapstructure:"deliverySteps"`
}

func DefaultGiftConfig() GiftConfig {
	return GiftConfig{
		Name:            "Teddy Bear",
		Type:            "teddy_bear",
		StarsPerGift:    1,
		QuickAddAmounts: []int64{100, 500, 1000},
		DeliverySteps: []string{
			"Open a chat with the user",
			"Tap the paperclip (📎)",
			"Choose \"Gift\"",
			"Pick the teddy bear (🐻)",
			"Send the gift",
		},
	}
}

type GiftConfigHolder struct {
	current atomic.Value // holds GiftConfig
}

// NewGiftConfigHolder reads gift.yml and keeps it fresh while the file changes.
// A missing file falls back to DefaultGiftConfig.
func NewGiftConfigHolder(cfg Config, log *zap.Logger) (*GiftConfigHolder, error) {
	log = log.Named("gift.config")
	v := viper.New()

	if cfg.GiftConfigPath != "" {
		v.SetConfigFile(cfg.GiftConfigPath)
	} else {
		v.SetConfigName("gift")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/giftbot")
		v.AddConfigPath(".")
	}

	holder := &GiftConfigHolder{}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read gift config: %w", err)
		}
		holder.current.Store(DefaultGiftConfig())
		log.Info("gift config not found, using defaults")
		return holder, nil
	}

	gift, err := decodeGiftConfig(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(gift)

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeGiftConfig(v)
		if err != nil {
			log.Warn("gift config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("gift config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

// NewStaticGiftConfigHolder pins a config without reading any file.
func NewStaticGiftConfigHolder(gift GiftConfig) *GiftConfigHolder {
	holder := &GiftConfigHolder{}
	holder.current.Store(gift)
	return holder
}

func (h *GiftConfigHolder) Get() GiftConfig {
	return h.current.Load().(GiftConfig)
}

func decodeGiftConfig(v *viper.Viper) (GiftConfig, error) {
	gift := DefaultGiftConfig()
	if err := v.UnmarshalKey("gift", &gift); err != nil {
		return GiftConfig{}, fmt.Errorf("decode gift config: %w", err)
	}
	gift.Name = strings.TrimSpace(gift.Name)
	gift.Type = strings.TrimSpace(gift.Type)
	if err := validateGiftConfig(gift); err != nil {
		return GiftConfig{}, err
	}
	return gift, nil
}

func validateGiftConfig(gift GiftConfig) error {
	if gift.Name == "" {
		return errors.New("gift.name cannot be empty")
	}
	if gift.Type == "" {
		return errors.New("gift.type cannot be empty")
	}
	if gift.StarsPerGift < 0 {
		return errors.New("gift.starsPerGift cannot be negative")
	}
	for _, amount := range gift.QuickAddAmounts {
		if amount <= 0 {
			return fmt.Errorf("gift.quickAddAmounts contains non-positive value %d", amount)
		}
	}
	return nil
}
