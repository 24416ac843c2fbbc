/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request structs carry validator/v10 tags. Handlers validate the shape
  before calling into the domain; the domain re-validates the invariants
  it owns (time formats, overlap, balances).

SEE ALSO:
  - handlers.go: Uses these types
  - billing/types.go, timetable/types.go: Domain counterparts
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusworks/school-engine/billing"
	"github.com/campusworks/school-engine/core"
	"github.com/campusworks/school-engine/timetable"
)

// =============================================================================
// AUTH
// =============================================================================

// RegisterRequest onboards a school together with its first admin.
type RegisterRequest struct {
	SchoolName string `json:"school_name" validate:"required,min=2"`
	Name       string `json:"name" validate:"required,min=2"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
}

// LoginRequest authenticates an existing admin.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries the signed token plus the identity it encodes.
type AuthResponse struct {
	Token    string `json:"token"`
	SchoolID string `json:"school_id"`
	AdminID  string `json:"admin_id"`
	Name     string `json:"name"`
}

// =============================================================================
// REGISTRY ENTITIES
// =============================================================================

// CreateClassRequest is the request to create a class.
type CreateClassRequest struct {
	Name     string `json:"name" validate:"required,min=1"`
	Grade    string `json:"grade" validate:"required"`
	Section  string `json:"section" validate:"required"`
	Capacity int    `json:"capacity" validate:"omitempty,min=1"`
}

// CreateStudentRequest is the request to enroll a student.
type CreateStudentRequest struct {
	Name       string `json:"name" validate:"required,min=2"`
	Email      string `json:"email" validate:"required,email"`
	RollNumber string `json:"roll_number" validate:"required"`
	ClassID    string `json:"class_id" validate:"omitempty"`
}

// CreateTeacherRequest is the request to register a teacher.
type CreateTeacherRequest struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=class_teacher subject_teacher"`
}

// CreateEventRequest is the request to publish a school event.
type CreateEventRequest struct {
	Title       string `json:"title" validate:"required,min=2"`
	Description string `json:"description"`
	Date        string `json:"date" validate:"required"`
	Audience    string `json:"audience" validate:"required,oneof=students teachers parents all"`
}

// RecordAttendanceRequest marks one roll-call outcome for a student.
type RecordAttendanceRequest struct {
	Date    string `json:"date" validate:"required"`
	Status  string `json:"status" validate:"required,oneof=present absent late excused"`
	Subject string `json:"subject" validate:"required,min=1"`
	Remarks string `json:"remarks"`
}

// AttendanceRecordDTO represents one attendance mark in API responses.
type AttendanceRecordDTO struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Status  string `json:"status"`
	Subject string `json:"subject"`
	Remarks string `json:"remarks,omitempty"`
}

// AttendanceSummaryDTO aggregates a student's attendance marks.
type AttendanceSummaryDTO struct {
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Late       int     `json:"late"`
	Excused    int     `json:"excused"`
	Percentage float64 `json:"percentage"`
}

// =============================================================================
// SCHEDULES
// =============================================================================

// PeriodInput is one period slot in a schedule save request.
type PeriodInput struct {
	PeriodNumber int    `json:"period_number" validate:"required,min=1,max=10"`
	Subject      string `json:"subject" validate:"required,min=1"`
	TeacherID    string `json:"teacher_id" validate:"required"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
	Room         string `json:"room"`
}

// SaveScheduleRequest creates or replaces one class's day schedule.
type SaveScheduleRequest struct {
	ClassID      string        `json:"class_id" validate:"required"`
	DayOfWeek    string        `json:"day_of_week" validate:"required"`
	Periods      []PeriodInput `json:"periods" validate:"required,min=1,dive"`
	AcademicYear string        `json:"academic_year"`
}

// PeriodDTO represents a period in API responses.
type PeriodDTO struct {
	PeriodNumber int    `json:"period_number"`
	Subject      string `json:"subject"`
	TeacherID    string `json:"teacher_id"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Room         string `json:"room,omitempty"`
}

// ScheduleDTO represents a stored schedule in API responses.
type ScheduleDTO struct {
	ID           string      `json:"id"`
	ClassID      string      `json:"class_id"`
	DayOfWeek    string      `json:"day_of_week"`
	Periods      []PeriodDTO `json:"periods"`
	AcademicYear string      `json:"academic_year"`
	Active       bool        `json:"is_active"`
}

// =============================================================================
// FEES AND PAYMENTS
// =============================================================================

// FeeComponentInput is one line item of a fee structure.
type FeeComponentInput struct {
	Name     string          `json:"name" validate:"required,min=1"`
	Amount   decimal.Decimal `json:"amount"`
	Type     string          `json:"type" validate:"required,oneof=tuition admission examination library sports transport other"`
	Optional bool            `json:"is_optional"`
}

// InstallmentInput is one suggested installment of a fee structure.
type InstallmentInput struct {
	Name    string          `json:"name" validate:"required,min=1"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate string          `json:"due_date" validate:"required"`
}

// CreateFeeStructureRequest creates a fee structure and fans out
// pending payments to the matching students.
type CreateFeeStructureRequest struct {
	Name         string              `json:"name" validate:"required,min=2"`
	ClassID      string              `json:"class_id" validate:"required"`
	AcademicYear string              `json:"academic_year"`
	Components   []FeeComponentInput `json:"fee_components" validate:"required,min=1,dive"`
	DueDate      string              `json:"due_date" validate:"required"`
	Installments []InstallmentInput  `json:"installments" validate:"omitempty,dive"`
}

// RecordPaymentRequest applies one collection against a payment record.
// The payment id comes from the URL.
type RecordPaymentRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"payment_method" validate:"required,oneof=cash bank_transfer online cheque card"`
	Date           string          `json:"payment_date" validate:"required"`
	TransactionRef string          `json:"transaction_id"`
	Remarks        string          `json:"remarks"`
}

// CreateSalaryRequest opens a salary obligation for a teacher-month.
type CreateSalaryRequest struct {
	TeacherID   string          `json:"teacher_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	SalaryMonth string          `json:"salary_month" validate:"required"`
	DueDate     string          `json:"due_date" validate:"required"`
	Remarks     string          `json:"remarks"`
}

// HistoryEntryDTO is one recorded collection in a payment's audit trail.
type HistoryEntryDTO struct {
	Amount         decimal.Decimal `json:"amount"`
	PaymentDate    string          `json:"payment_date"`
	Method         string          `json:"payment_method"`
	TransactionRef string          `json:"transaction_id,omitempty"`
	Remarks        string          `json:"remarks,omitempty"`
	RecordedBy     string          `json:"recorded_by"`
}

// PaymentDTO represents a payment record in API responses.
type PaymentDTO struct {
	ID              string            `json:"id"`
	Type            string            `json:"payment_type"`
	StudentID       string            `json:"student_id,omitempty"`
	FeeStructureID  string            `json:"fee_structure_id,omitempty"`
	TeacherID       string            `json:"teacher_id,omitempty"`
	SalaryMonth     string            `json:"salary_month,omitempty"`
	Amount          decimal.Decimal   `json:"amount"`
	PaidAmount      decimal.Decimal   `json:"paid_amount"`
	RemainingAmount decimal.Decimal   `json:"remaining_amount"`
	PaymentDate     string            `json:"payment_date"`
	DueDate         string            `json:"due_date"`
	Status          string            `json:"status"`
	Method          string            `json:"payment_method"`
	TransactionRef  string            `json:"transaction_id,omitempty"`
	Remarks         string            `json:"remarks,omitempty"`
	History         []HistoryEntryDTO `json:"payment_history"`
}

// FeeStructureDTO represents a fee structure in API responses.
type FeeStructureDTO struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	ClassID      string              `json:"class_id"`
	AcademicYear string              `json:"academic_year"`
	Components   []FeeComponentInput `json:"fee_components"`
	TotalAmount  decimal.Decimal     `json:"total_amount"`
	DueDate      string              `json:"due_date"`
	Installments []InstallmentInput  `json:"installments"`
}

// StatsDTO aggregates payment counts and money totals.
type StatsDTO struct {
	Total           int             `json:"total"`
	Completed       int             `json:"completed"`
	Partial         int             `json:"partial"`
	Pending         int             `json:"pending"`
	Overdue         int             `json:"overdue"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
}

// ReconcileResultDTO reports one student's outcome of the fee fan-out.
type ReconcileResultDTO struct {
	StudentID string `json:"student_id"`
	PaymentID string `json:"payment_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toAttendanceDTO(rec core.AttendanceRecord) AttendanceRecordDTO {
	return AttendanceRecordDTO{
		ID:      string(rec.ID),
		Date:    formatDate(rec.Date),
		Status:  string(rec.Status),
		Subject: rec.Subject,
		Remarks: rec.Remarks,
	}
}

func toAttendanceDTOs(records []core.AttendanceRecord) []AttendanceRecordDTO {
	out := make([]AttendanceRecordDTO, len(records))
	for i, rec := range records {
		out[i] = toAttendanceDTO(rec)
	}
	return out
}

func toAttendanceSummaryDTO(s core.AttendanceSummary) AttendanceSummaryDTO {
	return AttendanceSummaryDTO{
		Total:      s.Total,
		Present:    s.Present,
		Absent:     s.Absent,
		Late:       s.Late,
		Excused:    s.Excused,
		Percentage: s.Percentage,
	}
}

func toPeriodDTOs(periods []timetable.Period) []PeriodDTO {
	out := make([]PeriodDTO, len(periods))
	for i, p := range periods {
		out[i] = PeriodDTO{
			PeriodNumber: p.PeriodNumber,
			Subject:      p.Subject,
			TeacherID:    string(p.Teacher),
			StartTime:    p.StartTime,
			EndTime:      p.EndTime,
			Room:         p.Room,
		}
	}
	return out
}

func toScheduleDTO(s timetable.Schedule) ScheduleDTO {
	return ScheduleDTO{
		ID:           string(s.ID),
		ClassID:      string(s.Class),
		DayOfWeek:    string(s.Day),
		Periods:      toPeriodDTOs(s.Periods),
		AcademicYear: s.AcademicYear,
		Active:       s.Active,
	}
}

func toScheduleDTOs(schedules []timetable.Schedule) []ScheduleDTO {
	out := make([]ScheduleDTO, len(schedules))
	for i, s := range schedules {
		out[i] = toScheduleDTO(s)
	}
	return out
}

func toPaymentDTO(p billing.Payment) PaymentDTO {
	history := make([]HistoryEntryDTO, len(p.History))
	for i, h := range p.History {
		history[i] = HistoryEntryDTO{
			Amount:         h.Amount,
			PaymentDate:    h.PaymentDate.Format(time.RFC3339),
			Method:         string(h.Method),
			TransactionRef: h.TransactionRef,
			Remarks:        h.Remarks,
			RecordedBy:     string(h.RecordedBy),
		}
	}
	return PaymentDTO{
		ID:              string(p.ID),
		Type:            string(p.Type),
		StudentID:       string(p.Student),
		FeeStructureID:  string(p.FeeStructure),
		TeacherID:       string(p.Teacher),
		SalaryMonth:     p.SalaryMonth,
		Amount:          p.Amount,
		PaidAmount:      p.PaidAmount,
		RemainingAmount: p.RemainingAmount,
		PaymentDate:     formatDate(p.PaymentDate),
		DueDate:         formatDate(p.DueDate),
		Status:          string(p.Status),
		Method:          string(p.Method),
		TransactionRef:  p.TransactionRef,
		Remarks:         p.Remarks,
		History:         history,
	}
}

func toPaymentDTOs(payments []billing.Payment) []PaymentDTO {
	out := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		out[i] = toPaymentDTO(p)
	}
	return out
}

func toFeeStructureDTO(fs billing.FeeStructure) FeeStructureDTO {
	components := make([]FeeComponentInput, len(fs.Components))
	for i, c := range fs.Components {
		components[i] = FeeComponentInput{
			Name:     c.Name,
			Amount:   c.Amount,
			Type:     string(c.Type),
			Optional: c.Optional,
		}
	}
	installments := make([]InstallmentInput, len(fs.Installments))
	for i, inst := range fs.Installments {
		installments[i] = InstallmentInput{
			Name:    inst.Name,
			Amount:  inst.Amount,
			DueDate: formatDate(inst.DueDate),
		}
	}
	return FeeStructureDTO{
		ID:           string(fs.ID),
		Name:         fs.Name,
		ClassID:      string(fs.Class),
		AcademicYear: fs.AcademicYear,
		Components:   components,
		TotalAmount:  fs.TotalAmount,
		DueDate:      formatDate(fs.DueDate),
		Installments: installments,
	}
}

func toFeeStructureDTOs(structures []billing.FeeStructure) []FeeStructureDTO {
	out := make([]FeeStructureDTO, len(structures))
	for i, fs := range structures {
		out[i] = toFeeStructureDTO(fs)
	}
	return out
}

func toStatsDTO(s billing.PaymentStats) StatsDTO {
	return StatsDTO{
		Total:           s.Total,
		Completed:       s.Completed,
		Partial:         s.Partial,
		Pending:         s.Pending,
		Overdue:         s.Overdue,
		TotalAmount:     s.TotalAmount,
		PaidAmount:      s.PaidAmount,
		RemainingAmount: s.RemainingAmount,
	}
}

func toReconcileResultDTOs(results []billing.ReconcileResult) []ReconcileResultDTO {
	out := make([]ReconcileResultDTO, len(results))
	for i, r := range results {
		dto := ReconcileResultDTO{StudentID: string(r.Student)}
		if r.Payment != nil {
			dto.PaymentID = string(r.Payment.ID)
		}
		if r.Err != nil {
			dto.Error = r.Err.Error()
		}
		out[i] = dto
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
