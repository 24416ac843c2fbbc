package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/school-engine/billing"
	"github.com/campusworks/school-engine/core"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func standardComponents() []billing.FeeComponent {
	return []billing.FeeComponent{
		{Name: "Tuition", Amount: d(5000), Type: billing.FeeTuition},
		{Name: "Library", Amount: d(200), Type: billing.FeeLibrary},
		{Name: "Sports", Amount: d(300), Type: billing.FeeSports},
		{Name: "Examination", Amount: d(150), Type: billing.FeeExamination},
	}
}

func validFeeStructure() billing.FeeStructure {
	return billing.FeeStructure{
		ID:           "fs-1",
		School:       "SCH001",
		Name:         "Annual Fees 2026",
		Class:        "class-a",
		AcademicYear: "2026",
		Components:   standardComponents(),
		DueDate:      time.Date(2026, time.October, 31, 0, 0, 0, 0, time.UTC),
		Active:       true,
	}
}

// =============================================================================
// TOTAL COMPUTATION
// =============================================================================

func TestComputeFeeTotal_SumsComponents(t *testing.T) {
	// GIVEN: 5000 + 200 + 300 + 150
	total := billing.ComputeFeeTotal(standardComponents())
	// THEN: 5650
	assert.True(t, total.Equal(d(5650)), "got %s", total)
}

func TestComputeFeeTotal_EmptyIsZero(t *testing.T) {
	assert.True(t, billing.ComputeFeeTotal(nil).IsZero())
}

func TestComputeFeeTotal_OptionalComponentsCount(t *testing.T) {
	components := []billing.FeeComponent{
		{Name: "Tuition", Amount: d(5000), Type: billing.FeeTuition},
		{Name: "Transport", Amount: d(800), Type: billing.FeeTransport, Optional: true},
	}
	assert.True(t, billing.ComputeFeeTotal(components).Equal(d(5800)))
}

// =============================================================================
// PREPARE FOR SAVE
// =============================================================================

func TestPrepareFeeStructure_DiscardsCallerTotal(t *testing.T) {
	// GIVEN: A caller-supplied total that disagrees with the components
	fs := validFeeStructure()
	fs.TotalAmount = d(99999)

	// WHEN: Preparing
	require.NoError(t, billing.PrepareFeeStructure(&fs))

	// THEN: Total is recomputed from the components
	assert.True(t, fs.TotalAmount.Equal(d(5650)), "got %s", fs.TotalAmount)
}

func TestPrepareFeeStructure_RequiredFields(t *testing.T) {
	fs := validFeeStructure()
	fs.School = ""
	assert.ErrorIs(t, billing.PrepareFeeStructure(&fs), core.ErrValidation)

	fs = validFeeStructure()
	fs.Name = ""
	assert.ErrorIs(t, billing.PrepareFeeStructure(&fs), core.ErrValidation)

	fs = validFeeStructure()
	fs.AcademicYear = ""
	assert.ErrorIs(t, billing.PrepareFeeStructure(&fs), core.ErrValidation)

	fs = validFeeStructure()
	fs.Components = nil
	assert.ErrorIs(t, billing.PrepareFeeStructure(&fs), core.ErrValidation)

	fs = validFeeStructure()
	fs.DueDate = time.Time{}
	assert.ErrorIs(t, billing.PrepareFeeStructure(&fs), core.ErrValidation)
}

func TestPrepareFeeStructure_RejectsNegativeComponent(t *testing.T) {
	fs := validFeeStructure()
	fs.Components[0].Amount = d(-1)
	assert.ErrorIs(t, billing.PrepareFeeStructure(&fs), core.ErrValidation)
}

func TestPrepareFeeStructure_InstallmentsNotReconciled(t *testing.T) {
	// GIVEN: Installments that do not sum to the total
	fs := validFeeStructure()
	fs.Installments = []billing.Installment{
		{Name: "Term 1", Amount: d(1000), DueDate: fs.DueDate},
		{Name: "Term 2", Amount: d(1000), DueDate: fs.DueDate.AddDate(0, 3, 0)},
	}

	// WHEN / THEN: Accepted as supplied
	require.NoError(t, billing.PrepareFeeStructure(&fs))
	assert.True(t, fs.TotalAmount.Equal(d(5650)))
}

func TestPrepareFeeStructure_InstallmentFieldsValidated(t *testing.T) {
	fs := validFeeStructure()
	fs.Installments = []billing.Installment{{Name: "", Amount: d(1000), DueDate: fs.DueDate}}
	assert.ErrorIs(t, billing.PrepareFeeStructure(&fs), core.ErrValidation)

	fs = validFeeStructure()
	fs.Installments = []billing.Installment{{Name: "Term 1", Amount: d(1000)}}
	assert.ErrorIs(t, billing.PrepareFeeStructure(&fs), core.ErrValidation)
}
