package logger

// Standard field names for consistent logging.
const (
	FieldService   = "service"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldUserID    = "user_id"
	FieldChatID    = "chat_id"
	FieldWeek      = "week"
	FieldSemester  = "semester"
	FieldDate      = "date"
	FieldDriver    = "driver"
)
