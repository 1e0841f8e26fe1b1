package service

import (
	"context"
	"testing"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/medicine"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedicine_CreateRequiresPharmacist(t *testing.T) {
	ctx := context.Background()
	h := setup(t)

	_, err := h.medicineSvc.CreateMedicine(ctx, h.doctor, &medicine.CreateMedicineCommand{Name: "X", Price: dec("1")})
	assert.ErrorIs(t, err, ErrForbidden)

	admin := &domain.Identity{UserID: uuid.New(), Role: domain.RoleAdmin}
	m, err := h.medicineSvc.CreateMedicine(ctx, admin, &medicine.CreateMedicineCommand{Name: " Ibuprofen ", Price: dec("3.499"), Stock: 4})
	require.NoError(t, err)
	assert.Equal(t, "Ibuprofen", m.Name)
	assert.Equal(t, "3.50", m.Price.StringFixed(2))

	var verr *ValidationError
	_, err = h.medicineSvc.CreateMedicine(ctx, h.pharmacist, &medicine.CreateMedicineCommand{Name: "", Price: dec("-1"), Stock: -1})
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)
}

func TestMedicine_PartialUpdate(t *testing.T) {
	ctx := context.Background()
	h := setup(t)
	m := h.medicine(t, "10.00", 50)

	notes := "keep refrigerated"
	updated, err := h.medicineSvc.UpdateMedicine(ctx, h.pharmacist, m.ID, &medicine.UpdateMedicineCommand{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)
	assert.Equal(t, "Amoxicillin 500mg", updated.Name)
	assert.Equal(t, "10.00", updated.Price.StringFixed(2))
	assert.Equal(t, 50, updated.Stock)

	negative := -3
	_, err = h.medicineSvc.UpdateMedicine(ctx, h.pharmacist, m.ID, &medicine.UpdateMedicineCommand{Stock: &negative})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, 50, h.stock(t, m))

	_, err = h.medicineSvc.UpdateMedicine(ctx, h.pharmacist, uuid.New(), &medicine.UpdateMedicineCommand{Notes: &notes})
	assert.ErrorIs(t, err, medicine.ErrMedicineNotFound)
}

func TestMedicine_DeleteRefusedWhileReferenced(t *testing.T) {
	ctx := context.Background()
	h := setup(t)
	used := h.medicine(t, "1.00", 10)
	unused := h.medicine(t, "1.00", 10)
	h.prescribe(t, h.patient, used, 1)

	assert.ErrorIs(t, h.medicineSvc.DeleteMedicine(ctx, h.pharmacist, used.ID), medicine.ErrMedicineInUse)
	require.NoError(t, h.medicineSvc.DeleteMedicine(ctx, h.pharmacist, unused.ID))
	assert.ErrorIs(t, h.medicineSvc.DeleteMedicine(ctx, h.pharmacist, unused.ID), medicine.ErrMedicineNotFound)

	list, err := h.medicineSvc.ListMedicines(ctx, h.patient)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPrescription_Create(t *testing.T) {
	ctx := context.Background()
	h := setup(t)
	m := h.medicine(t, "2.00", 5)

	p := h.prescribe(t, h.patient, m, 5)
	assert.Regexp(t, `^RX-[0-9A-F]{8}$`, p.Number)
	assert.Equal(t, prescription.StatusActive, p.Status)
	assert.Equal(t, h.doctor.UserID, p.DoctorID)
	assert.Len(t, h.pub.Events(events.PrescriptionIssued), 1)

	_, err := h.rxSvc.CreatePrescription(ctx, h.doctor, &prescription.CreatePrescriptionCommand{
		PatientNationalID: h.patient.NationalID, MedicineID: m.ID, Quantity: 6,
	})
	assert.ErrorIs(t, err, medicine.ErrInsufficientStock)

	_, err = h.rxSvc.CreatePrescription(ctx, h.doctor, &prescription.CreatePrescriptionCommand{
		PatientNationalID: "12345", MedicineID: m.ID, Quantity: 0,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)

	_, err = h.rxSvc.CreatePrescription(ctx, h.doctor, &prescription.CreatePrescriptionCommand{
		PatientNationalID: h.patient.NationalID, MedicineID: uuid.New(), Quantity: 1,
	})
	assert.ErrorIs(t, err, medicine.ErrMedicineNotFound)

	_, err = h.rxSvc.CreatePrescription(ctx, h.pharmacist, &prescription.CreatePrescriptionCommand{
		PatientNationalID: h.patient.NationalID, MedicineID: m.ID, Quantity: 1,
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPrescription_ListScoping(t *testing.T) {
	ctx := context.Background()
	h := setup(t)
	m := h.medicine(t, "2.00", 100)
	h.prescribe(t, h.patient, m, 1)
	h.prescribe(t, h.patient, m, 2)
	h.prescribe(t, h.otherPatient, m, 3)

	mine, err := h.rxSvc.ListPrescriptions(ctx, h.patient)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	issued, err := h.rxSvc.ListPrescriptions(ctx, h.doctor)
	require.NoError(t, err)
	assert.Len(t, issued, 3)

	otherDoctor := &domain.Identity{UserID: uuid.New(), Role: domain.RoleDoctor, PracticeCode: "A-999999"}
	none, err := h.rxSvc.ListPrescriptions(ctx, otherDoctor)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := h.rxSvc.ListPrescriptions(ctx, h.pharmacist)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := h.rxSvc.ListPatientActivePrescriptions(ctx, h.patient)
	require.NoError(t, err)
	require.Len(t, active, 2)
	for _, v := range active {
		assert.Equal(t, "Amoxicillin 500mg", v.MedicineName)
		assert.True(t, v.CanOrder)
		assert.Equal(t, v.UnitPrice.Mul(decimal.NewFromInt(int64(v.Prescription.Quantity))).StringFixed(2), v.TotalPrice.StringFixed(2))
	}
}

func TestPrescription_Cancel(t *testing.T) {
	ctx := context.Background()
	h := setup(t)
	m := h.medicine(t, "2.00", 100)
	p := h.prescribe(t, h.patient, m, 1)

	otherDoctor := &domain.Identity{UserID: uuid.New(), Role: domain.RoleDoctor, PracticeCode: "A-999999"}
	_, err := h.rxSvc.CancelPrescription(ctx, otherDoctor, p.ID)
	assert.ErrorIs(t, err, prescription.ErrPrescriptionNotFound)

	_, err = h.rxSvc.CancelPrescription(ctx, h.patient, p.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	cancelled, err := h.rxSvc.CancelPrescription(ctx, h.doctor, p.ID)
	require.NoError(t, err)
	assert.Equal(t, prescription.StatusCancelled, cancelled.Status)

	_, err = h.rxSvc.CancelPrescription(ctx, h.pharmacist, p.ID)
	assert.ErrorIs(t, err, prescription.ErrInvalidState)

	h.fund(t, h.patient, "10.00")
	_, err = h.orderSvc.FulfillPrescription(ctx, h.patient, p.Number)
	assert.ErrorIs(t, err, prescription.ErrPrescriptionNotFound)
}

func TestReports(t *testing.T) {
	ctx := context.Background()
	h := setup(t)
	m := h.medicine(t, "4.50", 100)
	h.fund(t, h.patient, "50.00")

	rx := h.prescribe(t, h.patient, m, 2)
	h.prescribe(t, h.patient, m, 1)
	_, err := h.orderSvc.FulfillPrescription(ctx, h.patient, rx.Number)
	require.NoError(t, err)

	stats, err := h.reportSvc.PatientStats(ctx, h.patient)
	require.NoError(t, err)
	assert.Equal(t, "41.00", stats.WalletBalance.StringFixed(2))
	assert.Equal(t, int64(1), stats.ActivePrescriptions)
	assert.Equal(t, int64(1), stats.TotalOrders)
	assert.Equal(t, int64(0), stats.PendingOrders)
	assert.Equal(t, "9.00", stats.TotalSpent.StringFixed(2))

	rev, err := h.reportSvc.Revenue(ctx, h.pharmacist)
	require.NoError(t, err)
	assert.Equal(t, "9.00", rev.TotalRevenue.StringFixed(2))
	assert.Equal(t, int64(1), rev.OrdersCount)
	assert.Equal(t, "9.00", rev.AverageOrderValue().StringFixed(2))

	_, err = h.reportSvc.Revenue(ctx, h.patient)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.reportSvc.PatientStats(ctx, h.doctor)
	assert.ErrorIs(t, err, ErrForbidden)
}
