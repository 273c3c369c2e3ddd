package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldClientID    = "client_id"
	FieldBoletoID    = "boleto_id"
	FieldCompanyID   = "company_id"
	FieldAccountID   = "account_id"
	FieldCategoryID  = "category_id"
	FieldAmountCents = "amount_cents"
	FieldMonthKey    = "month"
)

// Standard component names.
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentStorage  = "storage"
	ComponentLedger   = "ledger"
	ComponentCashFlow = "cashflow"
	ComponentBoleto   = "boleto"
	ComponentProvider = "provider"
	ComponentWhatsApp = "whatsapp"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentBackup   = "backup"
	ComponentSync     = "sync"
)
