package logging

// Standardized field names for structured logging.
const (
	FieldTransactionID = "transaction_id"
	FieldRowID         = "row_id"
	FieldVersion       = "version"
	FieldOperation     = "operation"
	FieldParser        = "parser"
	FieldConfidence    = "confidence"
	FieldCategory      = "category"
	FieldAuthor        = "author"
	FieldCount         = "count"
	FieldDuration      = "duration_ms"
	FieldStorePath     = "store_path"
	FieldSeq           = "seq"
	FieldBudgetID      = "budget_id"
	FieldOutputFile    = "output_file"
	FieldFile          = "file"
	FieldQueue         = "queue"
	FieldDate          = "date"
	FieldAmount        = "amount"
)
