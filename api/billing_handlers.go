/*
billing_handlers.go - Fee structure and payment endpoints

PURPOSE:
  Exposes the billing side: fee structure creation with its student
  fan-out, payment queries with aggregate stats, transaction recording,
  and salary obligations.

ENDPOINTS:
  GET    /api/fees/structures                List fee structures
  POST   /api/fees/structures                Create + fan out to students
  GET    /api/fees/structures/{id}           Get one fee structure
  GET    /api/fees/structures/{id}/payments  Payments + stats for a structure
  GET    /api/payments                       List payments (filters + stats)
  GET    /api/payments/{id}                  Get one payment
  POST   /api/payments/{id}/record           Record a transaction
  POST   /api/salaries                       Open a salary obligation

FAN-OUT SEMANTICS:
  Creating a fee structure immediately creates one pending payment per
  active student of the class. Per-student failures are reported in the
  response; they do not roll back the structure or the other students.

SEE ALSO:
  - billing/ledger.go: Balance-checked recording
  - billing/reconcile.go: The fan-out
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campusworks/school-engine/billing"
	"github.com/campusworks/school-engine/core"
)

// =============================================================================
// FEE STRUCTURES
// =============================================================================

// ListFeeStructures returns fee structures, filtered by ?class_id= and
// ?academic_year=.
func (h *Handler) ListFeeStructures(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	var class *core.ClassID
	if v := r.URL.Query().Get("class_id"); v != "" {
		c := core.ClassID(v)
		class = &c
	}
	year := r.URL.Query().Get("academic_year")

	structures, err := h.FeeStructures.Find(r.Context(), scope.School, class, year)
	if err != nil {
		writeDomainError(w, "Failed to list fee structures", err)
		return
	}
	writeJSON(w, http.StatusOK, toFeeStructureDTOs(structures))
}

// GetFeeStructure returns one fee structure.
func (h *Handler) GetFeeStructure(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	id := core.FeeStructureID(chi.URLParam(r, "id"))
	fs, err := h.FeeStructures.Get(r.Context(), scope.School, id)
	if err != nil {
		writeDomainError(w, "Fee structure not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toFeeStructureDTO(fs))
}

// CreateFeeStructure stores a fee structure and fans out pending payments
// to every active student of the class.
func (h *Handler) CreateFeeStructure(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	var req CreateFeeStructureRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	dueDate, err := parseDateParam(req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid due_date (use YYYY-MM-DD or RFC3339)", err)
		return
	}

	components := make([]billing.FeeComponent, len(req.Components))
	for i, c := range req.Components {
		components[i] = billing.FeeComponent{
			Name:     c.Name,
			Amount:   c.Amount,
			Type:     billing.FeeComponentType(c.Type),
			Optional: c.Optional,
		}
	}
	installments := make([]billing.Installment, len(req.Installments))
	for i, inst := range req.Installments {
		instDue, err := parseDateParam(inst.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid installment due_date", err)
			return
		}
		installments[i] = billing.Installment{
			Name:    inst.Name,
			Amount:  inst.Amount,
			DueDate: instDue,
		}
	}

	year := req.AcademicYear
	if year == "" {
		year = currentAcademicYear(time.Now())
	}
	now := time.Now()
	fs := billing.FeeStructure{
		ID:           core.FeeStructureID(uuid.NewString()),
		School:       scope.School,
		Name:         req.Name,
		Class:        core.ClassID(req.ClassID),
		AcademicYear: year,
		Components:   components,
		DueDate:      dueDate,
		Installments: installments,
		Active:       true,
		CreatedBy:    scope.Actor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := billing.PrepareFeeStructure(&fs); err != nil {
		writeDomainError(w, "Invalid fee structure", err)
		return
	}
	ctx := r.Context()
	if err := h.FeeStructures.Insert(ctx, fs); err != nil {
		writeDomainError(w, "Failed to create fee structure", err)
		return
	}

	students, err := h.Students.FindByClass(ctx, scope.School, fs.Class, true)
	if err != nil {
		writeDomainError(w, "Failed to load students for reconciliation", err)
		return
	}
	results := h.Reconciler.OnFeeStructureCreated(ctx, scope, fs, students)

	writeJSON(w, http.StatusCreated, struct {
		FeeStructure FeeStructureDTO      `json:"fee_structure"`
		Reconciled   []ReconcileResultDTO `json:"reconciled"`
	}{toFeeStructureDTO(fs), toReconcileResultDTOs(results)})
}

// FeeStructurePayments returns the payments spawned by one fee structure,
// with the aggregate stats the finance screens show.
func (h *Handler) FeeStructurePayments(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	id := core.FeeStructureID(chi.URLParam(r, "id"))
	if _, err := h.FeeStructures.Get(r.Context(), scope.School, id); err != nil {
		writeDomainError(w, "Fee structure not found", err)
		return
	}

	payments, err := h.Ledger.Payments.Find(r.Context(), scope.School, billing.PaymentFilter{
		Type:         billing.PaymentFee,
		FeeStructure: &id,
	})
	if err != nil {
		writeDomainError(w, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Payments []PaymentDTO `json:"payments"`
		Stats    StatsDTO     `json:"stats"`
	}{toPaymentDTOs(payments), toStatsDTO(billing.ComputeStats(payments))})
}

// =============================================================================
// PAYMENTS
// =============================================================================

func paymentFilterFromQuery(r *http.Request) billing.PaymentFilter {
	var f billing.PaymentFilter
	q := r.URL.Query()
	f.Type = billing.PaymentType(q.Get("type"))
	f.Status = billing.PaymentStatus(q.Get("status"))
	if v := q.Get("student_id"); v != "" {
		student := core.StudentID(v)
		f.Student = &student
	}
	if v := q.Get("teacher_id"); v != "" {
		teacher := core.TeacherID(v)
		f.Teacher = &teacher
	}
	f.SalaryMonth = q.Get("salary_month")
	return f
}

// ListPayments returns payments matching the query filters, with stats.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	payments, err := h.Ledger.Payments.Find(r.Context(), scope.School, paymentFilterFromQuery(r))
	if err != nil {
		writeDomainError(w, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Payments []PaymentDTO `json:"payments"`
		Stats    StatsDTO     `json:"stats"`
	}{toPaymentDTOs(payments), toStatsDTO(billing.ComputeStats(payments))})
}

// GetPayment returns one payment with its full history.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	id := core.PaymentID(chi.URLParam(r, "id"))
	p, err := h.Ledger.Payments.Get(r.Context(), scope.School, id)
	if err != nil {
		writeDomainError(w, "Payment not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(p))
}

// RecordPayment applies one transaction against a payment.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	id := core.PaymentID(chi.URLParam(r, "id"))
	var req RecordPaymentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	date, err := parseDateParam(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment_date (use YYYY-MM-DD or RFC3339)", err)
		return
	}

	p, err := h.Ledger.RecordPayment(r.Context(), scope, id, billing.RecordPaymentInput{
		Amount:         req.Amount,
		Method:         billing.PaymentMethod(req.Method),
		Date:           date,
		TransactionRef: req.TransactionRef,
		Remarks:        req.Remarks,
	})
	if err != nil {
		writeDomainError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(p))
}

// =============================================================================
// SALARIES
// =============================================================================

// CreateSalary opens a salary obligation for a teacher-month pair.
func (h *Handler) CreateSalary(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	var req CreateSalaryRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	dueDate, err := parseDateParam(req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid due_date (use YYYY-MM-DD or RFC3339)", err)
		return
	}

	// The teacher must exist in this school before money is owed to them.
	teacher := core.TeacherID(req.TeacherID)
	if _, err := h.Teachers.Get(r.Context(), scope.School, teacher); err != nil {
		writeDomainError(w, "Teacher not found", err)
		return
	}

	p, err := h.Ledger.CreateSalaryObligation(r.Context(), scope, billing.SalaryInput{
		Teacher:     teacher,
		Amount:      req.Amount,
		SalaryMonth: req.SalaryMonth,
		DueDate:     dueDate,
		Remarks:     req.Remarks,
	})
	if err != nil {
		writeDomainError(w, "Failed to create salary obligation", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}
