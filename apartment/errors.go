package apartment

import "github.com/go-asyncflow/asyncflow/asyncresult"

// ErrNotStarted is returned by Schedule/ScheduleDelayed when the apartment
// has not yet had Start called on it.
var ErrNotStarted = asyncresult.New(asyncresult.Unexpected, "apartment: not started")

// ErrStoppingOrStopped is returned by Schedule/ScheduleDelayed once
// AsyncStop has been called; callbacks already queued still run, but no new
// ones are admitted.
var ErrStoppingOrStopped = asyncresult.New(asyncresult.Terminated, "apartment: stopping or stopped")

// ErrNestedPumpUnsupported is returned by RunNestedPumpLoop on an apartment
// whose Features do not include NestedPump.
var ErrNestedPumpUnsupported = asyncresult.New(asyncresult.Unexpected, "apartment: nested pump not supported")
