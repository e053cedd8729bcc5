// File: protocol/timestamp.go
// Author: mrylov <mrylov@gmail.com>
// License: Apache-2.0

package protocol

import (
	"time"

	"github.com/mrylov/fixlink/api"
)

// utcTimestampLayout is the FIX UTCTimestamp format with microsecond
// precision, as stamped into SendingTime(52).
const utcTimestampLayout = "20060102-15:04:05.000000"

// UTCTimestamp returns the current UTC time in FIX UTCTimestamp format.
// It is the engine's fallback clock for SendingTime(52).
func UTCTimestamp() string {
	return time.Now().UTC().Format(utcTimestampLayout)
}

// Timestamp returns the SendingTime value for one outgoing message,
// preferring the codec's own clock when it implements
// api.TimestampProvider.
func Timestamp(c api.Codec) string {
	if tp, ok := c.(api.TimestampProvider); ok {
		return tp.UTCTimestamp()
	}
	return UTCTimestamp()
}
