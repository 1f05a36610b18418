package webhook

import (
	"time"

	"github.com/Abraxas-365/craftable/logx"
)

// MessageTooOld reports whether a message's Unix timestamp is older
// than threshold. A zero timestamp cannot be verified as old and
// passes the filter.
func MessageTooOld(messageUnixTime int64, threshold time.Duration, now time.Time) bool {
	if messageUnixTime == 0 {
		logx.Debug("no timestamp available, cannot determine message age")
		return false
	}

	age := now.Sub(time.Unix(messageUnixTime, 0))
	logx.Debug("message age: %v", age)
	return age > threshold
}
