package service

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain/prescription"
	"github.com/shopspring/decimal"
)

type ReportService struct {
	orders        order.Repository
	prescriptions prescription.Repository
	wallets       *WalletService
}

func NewReportService(orders order.Repository, prescriptions prescription.Repository, wallets *WalletService) *ReportService {
	return &ReportService{orders: orders, prescriptions: prescriptions, wallets: wallets}
}

type PatientStats struct {
	WalletBalance       decimal.Decimal
	ActivePrescriptions int64
	order.PatientOrderStats
}

func (s *ReportService) Revenue(ctx context.Context, id *domain.Identity) (order.RevenueSummary, error) {
	if err := requireRole(id, domain.RolePharmacist); err != nil {
		return order.RevenueSummary{}, err
	}
	return s.orders.Revenue(ctx)
}

func (s *ReportService) PatientStats(ctx context.Context, id *domain.Identity) (*PatientStats, error) {
	w, err := s.wallets.MyWallet(ctx, id)
	if err != nil {
		return nil, err
	}
	active, err := s.prescriptions.CountActiveForPatient(ctx, id.NationalID)
	if err != nil {
		return nil, err
	}
	stats, err := s.orders.PatientStats(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	return &PatientStats{WalletBalance: w.Balance, ActivePrescriptions: active, PatientOrderStats: stats}, nil
}
