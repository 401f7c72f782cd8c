package common

//go:generate go run github.com/dmarkham/enumer -json -sql -type Status -trimprefix Status

// Status of an analysis
type Status int

const (
	StatusNEW     Status = iota // Created, images not requested
	StatusPENDING               // Images are being fetched
	StatusDONE                  // Images fetched and stored
	StatusFAILED                // Fetch failed, must not be retried as is
	StatusRETRY                 // Fetch failed on a temporary error
)

// Final returns true if the status cannot change without a user action
func (s Status) Final() bool {
	return s == StatusDONE || s == StatusFAILED
}
