package providers

import (
	"github.com/smallbiznis/giftbot/internal/providers/telegram"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	telegram.Module,
)
