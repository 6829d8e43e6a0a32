package handler

import "time"

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// ParseTextRequest is the body of a synchronous text parse.
type ParseTextRequest struct {
	Text       string `json:"text" binding:"required" example:"Лицевой счет: 1234567890\nИтого к оплате: 1 788,70"`
	SourceName string `json:"source_name" example:"epd_july.txt"`
}

// EditDocumentRequest is a manual correction of a parsed document. Omitted
// fields keep their stored value; an empty string clears a text field.
// Amounts accept the same notations as bills ("1 788,70").
type EditDocumentRequest struct {
	PayerName          *string          `json:"payer_name" example:"Иванов Иван Иванович"`
	Address            *string          `json:"address" example:"г. Москва, ул. Ленина, д. 1, кв. 5"`
	AccountNumber      *string          `json:"account_number" example:"1234567890"`
	BillingPeriod      *string          `json:"billing_period" example:"07.2025"`
	DueDate            *string          `json:"due_date" example:"2025-08-10"`
	TotalAmount        *string          `json:"total_amount" example:"1788.70"`
	TotalWithInsurance *string          `json:"total_with_insurance" example:"1838.70"`
	Services           []EditServiceRow `json:"services"`
}

// EditServiceRow replaces one service table row. Rows keep request order.
type EditServiceRow struct {
	Category      string  `json:"category" example:"Начисления за коммунальные услуги"`
	Name          string  `json:"name" example:"Отопление"`
	Volume        *string `json:"volume" example:"12.5"`
	Unit          *string `json:"unit" example:"Гкал"`
	Tariff        *string `json:"tariff" example:"850"`
	Charged       *string `json:"charged" example:"10625.00"`
	Recalculation *string `json:"recalculation"`
	Debt          *string `json:"debt"`
	Paid          *string `json:"paid"`
	Total         *string `json:"total" example:"10625.00"`
}

// Response wraps a success response.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}

// --- Parse result schema (for documentation) ---

// ParsedDocument documents the parse result. Amounts are decimal strings.
type ParsedDocument struct {
	SourceName         string              `json:"source_name" example:"epd_july.pdf"`
	PayerName          *string             `json:"payer_name" example:"Иванов Иван Иванович"`
	Address            *string             `json:"address" example:"г. Москва, ул. Ленина, д. 1, кв. 5"`
	AccountNumber      *string             `json:"account_number" example:"1234567890"`
	BillingPeriod      *BillingPeriod      `json:"billing_period"`
	DueDate            *time.Time          `json:"due_date" example:"2025-08-10T00:00:00Z"`
	TotalAmount        *string             `json:"total_amount" example:"1788.7"`
	TotalWithInsurance *string             `json:"total_with_insurance" example:"1838.7"`
	Services           []ServiceCharge     `json:"services"`
	Recalculations     []Recalculation     `json:"recalculations"`
	FieldConfidence    map[string]string   `json:"field_confidence" example:"account_number:exact,payer_name:fuzzy,address:missing"`
	Status             string              `json:"parse_status" example:"complete" enums:"complete,partial,unsupported"`
	Warnings           []ValidationWarning `json:"warnings"`
}

// BillingPeriod is a month and year.
type BillingPeriod struct {
	Month int `json:"month" example:"7"`
	Year  int `json:"year" example:"2025"`
}

// ServiceCharge is one service table row.
type ServiceCharge struct {
	OrderIndex    int     `json:"order_index" example:"0"`
	Category      string  `json:"category" example:"Начисления за коммунальные услуги"`
	Name          string  `json:"name" example:"Отопление"`
	Volume        *string `json:"volume" example:"1.25"`
	Unit          *string `json:"unit" example:"Гкал"`
	Tariff        *string `json:"tariff" example:"850"`
	Charged       *string `json:"charged" example:"1062.5"`
	Recalculation *string `json:"recalculation"`
	Debt          *string `json:"debt"`
	Paid          *string `json:"paid"`
	Total         string  `json:"total" example:"1062.5"`
}

// Recalculation is one recalculation table row.
type Recalculation struct {
	OrderIndex  int    `json:"order_index" example:"0"`
	ServiceName string `json:"service_name" example:"Отопление"`
	Reason      string `json:"reason" example:"Недопоставка июнь 2025"`
	Amount      string `json:"amount" example:"-150"`
}

// ValidationWarning is an arithmetic or plausibility warning.
type ValidationWarning struct {
	Kind     string  `json:"kind" example:"total_mismatch"`
	Rule     string  `json:"rule" example:"total.services_sum"`
	Field    string  `json:"field" example:"total_amount"`
	Expected *string `json:"expected" example:"1788.7"`
	Computed *string `json:"computed" example:"1738.7"`
	Message  string  `json:"message"`
}
