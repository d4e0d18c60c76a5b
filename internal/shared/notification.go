package shared

// Notification kinds.
const (
	NotifySuccess = "success"
	NotifyError   = "error"
	NotifyWarning = "warning"
)

// Notification represents a transient message surfaced to the dashboard.
type Notification struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Success builds a success notification.
func Success(message string) *Notification {
	return &Notification{Kind: NotifySuccess, Message: message}
}

// Failure builds an error notification.
func Failure(message string) *Notification {
	return &Notification{Kind: NotifyError, Message: message}
}
