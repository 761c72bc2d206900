package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"flexipay/internal/models"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// CheckoutService starts and resumes gateway checkout sessions for a single
// installment. Each session is backed by a sub-order; the sub-order's
// completion is what eventually marks the parent installment paid.
type CheckoutService struct {
	db             *gorm.DB
	midtransClient *MidtransService
}

func NewCheckoutService(db *gorm.DB, midtransClient *MidtransService) *CheckoutService {
	return &CheckoutService{
		db:             db,
		midtransClient: midtransClient,
	}
}

// ActiveSubOrder returns the active sub-order for an installment, if any
func (s *CheckoutService) ActiveSubOrder(parentOrderID uint, installmentNumber int) (*models.SubOrder, error) {
	var existing models.SubOrder
	err := s.db.Where("parent_order_id = ? AND installment_number = ? AND is_active = ?",
		parentOrderID, installmentNumber, true).
		Order("created_at desc").First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil // No active sub-order
		}
		return nil, err
	}
	return &existing, nil
}

// CheckoutResult holds the outcome of a checkout initiation attempt
type CheckoutResult struct {
	Token          string
	RedirectURL    string
	SubOrderNumber string
	IsExisting     bool
}

// InitiateCheckout starts or resumes payment collection for one installment
func (s *CheckoutService) InitiateCheckout(order *models.Order, inst *models.Installment, forceNew bool, callbackURL string) (*CheckoutResult, error) {
	// 1. Check for an existing active sub-order
	existing, err := s.ActiveSubOrder(order.ID, inst.Number)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		// active sub-order exists, check status with the gateway
		statusResp, err := s.midtransClient.CheckTransaction(existing.GatewayOrderID)
		if err == nil {
			// Case 1: Payment already successful
			if statusResp.TransactionStatus == "settlement" || statusResp.TransactionStatus == "capture" {
				return nil, fmt.Errorf("installment already paid")
			}

			// Case 2: Payment failed/expired/canceled
			if statusResp.TransactionStatus == "deny" || statusResp.TransactionStatus == "expire" || statusResp.TransactionStatus == "cancel" || statusResp.TransactionStatus == "failure" {
				existing.IsActive = false
				s.db.Save(existing)
				// Proceed to create new
			} else {
				// Case 3: Payment is pending at the gateway
				if forceNew {
					if err := s.midtransClient.CancelTransaction(existing.GatewayOrderID); err != nil {
						log.Printf("Failed to cancel gateway transaction %s before replacing it: %v",
							existing.GatewayOrderID, err)
					}
					existing.IsActive = false
					s.db.Save(existing)
					// Proceed to create new
				} else {
					// Reuse existing
					var midtransResp snap.Response
					if err := json.Unmarshal(existing.ResponseMetadata, &midtransResp); err == nil {
						return &CheckoutResult{
							Token:          midtransResp.Token,
							RedirectURL:    midtransResp.RedirectURL,
							SubOrderNumber: existing.Number,
							IsExisting:     true,
						}, nil
					}
					// If unmarshal fails, treat as broken
					existing.IsActive = false
					s.db.Save(existing)
				}
			}
		} else {
			// Check failed, assume the session is broken locally
			existing.IsActive = false
			s.db.Save(existing)
		}
	}

	// 2. Create a new gateway transaction
	gatewayOrderID := fmt.Sprintf("installment-%d-%d-%d", order.ID, inst.Number, time.Now().Unix())
	grossAmt := inst.Amount.Round(0).IntPart()

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  gatewayOrderID,
			GrossAmt: grossAmt,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: order.CustomerName,
			Email: order.CustomerEmail,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    fmt.Sprintf("order-%d-installment-%d", order.ID, inst.Number),
				Name:  fmt.Sprintf("Installment %d of order #%d", inst.Number, order.ID),
				Price: grossAmt,
				Qty:   1,
			},
		},
		Callbacks: &snap.Callbacks{
			Finish: callbackURL,
		},
	}

	resp, err := s.midtransClient.CreateTransaction(gatewayOrderID, grossAmt, req)
	if err != nil {
		return nil, err
	}

	// 3. Create the sub-order record
	reqBytes, _ := json.Marshal(req)
	respBytes, _ := json.Marshal(resp)

	subOrder := models.SubOrder{
		Number:            uuid.New().String(),
		ParentOrderID:     order.ID,
		InstallmentNumber: inst.Number,
		Amount:            inst.Amount,
		Status:            models.SubOrderStatusPending,
		GatewayOrderID:    gatewayOrderID,
		IsActive:          true,
		RequestMetadata:   reqBytes,
		ResponseMetadata:  respBytes,
	}
	if err := s.db.Create(&subOrder).Error; err != nil {
		return nil, err
	}

	return &CheckoutResult{
		Token:          resp.Token,
		RedirectURL:    resp.RedirectURL,
		SubOrderNumber: subOrder.Number,
		IsExisting:     false,
	}, nil
}
