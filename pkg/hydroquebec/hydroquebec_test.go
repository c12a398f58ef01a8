package hydroquebec

import (
	"log/slog"

	"github.com/raterudder/hydroquebec/pkg/log"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}
