package dto

// MaxBatchNotifications bounds a single batch request
const MaxBatchNotifications = 100

// EmailNotificationRequest is queued on the notification topic
type EmailNotificationRequest struct {
	To       string  `json:"to" binding:"required,email"`
	Subject  string  `json:"subject" binding:"required,min=1,max=200"`
	Body     string  `json:"body" binding:"required,min=1"`
	Template *string `json:"template"`
}

// SMSNotificationRequest is sent directly to a phone number
type SMSNotificationRequest struct {
	Phone   string `json:"phone" binding:"required,e164"`
	Message string `json:"message" binding:"required,min=1,max=160"`
}

// PushNotificationRequest is queued for asynchronous delivery
type PushNotificationRequest struct {
	UserID string         `json:"user_id" binding:"required"`
	Title  string         `json:"title" binding:"required,min=1,max=100"`
	Body   string         `json:"body" binding:"required,min=1,max=500"`
	Data   map[string]any `json:"data"`
}

// BatchNotificationRequest holds arbitrary notification documents, each queued as is
type BatchNotificationRequest struct {
	Notifications []map[string]any `json:"notifications" binding:"required"`
}

// NotificationResponse is returned once a notification is accepted
type NotificationResponse struct {
	Message   string `json:"message"`
	MessageID string `json:"message_id"`
}

// BatchItemResult is the outcome of one batch entry
type BatchItemResult struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BatchNotificationResponse summarizes a batch
type BatchNotificationResponse struct {
	Message string            `json:"message"`
	Results []BatchItemResult `json:"results"`
}
