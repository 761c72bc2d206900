package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"flexipay/internal/models"
)

// GormStore is the Postgres-backed persistence layer. It implements the
// store interfaces consumed by the status engine, the payment link
// generator, the scanner, and the notification dispatcher.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the underlying handle for services that run their own queries
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// GetOrder returns the order or nil when it does not exist
func (s *GormStore) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).First(&order, orderID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetInstallment returns one installment or nil when it does not exist
func (s *GormStore) GetInstallment(ctx context.Context, orderID uint, number int) (*models.Installment, error) {
	var inst models.Installment
	err := s.db.WithContext(ctx).
		Where("order_id = ? AND number = ?", orderID, number).
		First(&inst).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &inst, nil
}

// ListInstallments returns all installments of an order in schedule order
func (s *GormStore) ListInstallments(ctx context.Context, orderID uint) ([]models.Installment, error) {
	var installments []models.Installment
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("number asc").
		Find(&installments).Error
	return installments, err
}

func (s *GormStore) SaveInstallment(ctx context.Context, inst *models.Installment) error {
	return s.db.WithContext(ctx).Save(inst).Error
}

// UpdateOrderStatus sets the derived order status. Cancelled orders are left
// alone; cancellation is a manual decision the summary must not undo.
func (s *GormStore) UpdateOrderStatus(ctx context.Context, orderID uint, st models.OrderStatus) error {
	return s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status != ?", orderID, models.OrderStatusCancelled).
		Update("status", st).Error
}

func (s *GormStore) AppendLog(ctx context.Context, entry *models.InstallmentLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// ListLogs returns the audit trail for an order, newest first
func (s *GormStore) ListLogs(ctx context.Context, orderID uint) ([]models.InstallmentLog, error) {
	var logs []models.InstallmentLog
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at desc").
		Find(&logs).Error
	return logs, err
}

// UpsertLink writes the link for (order, installment), replacing any
// previous one so the old token stops validating
func (s *GormStore) UpsertLink(ctx context.Context, link *models.PaymentLink) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_id"}, {Name: "installment_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"token", "amount", "expires_at", "url", "updated_at",
		}),
	}).Create(link).Error
}

func (s *GormStore) GetLink(ctx context.Context, orderID uint, number int) (*models.PaymentLink, error) {
	var link models.PaymentLink
	err := s.db.WithContext(ctx).
		Where("order_id = ? AND installment_number = ?", orderID, number).
		First(&link).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// ListOrderIDsWithInstallmentStatus returns ids of orders that have at least
// one installment in the given status
func (s *GormStore) ListOrderIDsWithInstallmentStatus(ctx context.Context, st models.InstallmentStatus) ([]uint, error) {
	var orderIDs []uint
	err := s.db.WithContext(ctx).Model(&models.Installment{}).
		Where("status = ?", st).
		Distinct().
		Pluck("order_id", &orderIDs).Error
	return orderIDs, err
}

func (s *GormStore) CreateOutbox(ctx context.Context, entry *models.NotificationOutbox) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) ListPendingOutbox(ctx context.Context, limit int) ([]models.NotificationOutbox, error) {
	var entries []models.NotificationOutbox
	err := s.db.WithContext(ctx).
		Where("status = ?", models.NotificationStatusPending).
		Order("created_at asc").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (s *GormStore) SaveOutbox(ctx context.Context, entry *models.NotificationOutbox) error {
	return s.db.WithContext(ctx).Save(entry).Error
}

// ReplaceSchedule swaps a product's installment template in one transaction
func (s *GormStore) ReplaceSchedule(ctx context.Context, productID uint, entries []models.ScheduleEntry) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().
			Where("product_id = ?", productID).
			Delete(&models.ScheduleEntry{}).Error; err != nil {
			return err
		}
		for i := range entries {
			entries[i].ID = 0
			entries[i].ProductID = productID
		}
		return tx.Create(&entries).Error
	})
}

func (s *GormStore) GetSchedule(ctx context.Context, productID uint) ([]models.ScheduleEntry, error) {
	var entries []models.ScheduleEntry
	err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("installment_number asc").
		Find(&entries).Error
	return entries, err
}

// CreateOrderWithInstallments materializes an order and its installment rows
// atomically at checkout time
func (s *GormStore) CreateOrderWithInstallments(ctx context.Context, order *models.Order, installments []models.Installment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		for i := range installments {
			installments[i].OrderID = order.ID
		}
		return tx.Create(&installments).Error
	})
}

func (s *GormStore) GetSubOrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.SubOrder, error) {
	var subOrder models.SubOrder
	err := s.db.WithContext(ctx).
		Where("gateway_order_id = ?", gatewayOrderID).
		First(&subOrder).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &subOrder, nil
}

func (s *GormStore) SaveSubOrder(ctx context.Context, subOrder *models.SubOrder) error {
	return s.db.WithContext(ctx).Save(subOrder).Error
}

func (s *GormStore) CreateGatewayCallback(ctx context.Context, callback *models.GatewayCallback) error {
	return s.db.WithContext(ctx).Create(callback).Error
}
