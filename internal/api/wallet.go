package api

import (
	"context" // Context for Redis operations
	"errors"  // Sentinel errors for transaction closures
	"net/http"
	"strconv" // String conversion
	"time"

	"securesave/internal/domain" // Importing domain models
	"securesave/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// Sentinel errors returned from transaction closures so the handler can map
// a rollback to the right response
var (
	errInsufficientFunds = errors.New("insufficient funds")
	errExceedsTarget     = errors.New("exceeds goal target")
)

// isWalletMember reports whether the user has a membership row on the wallet
func isWalletMember(db *gorm.DB, walletID, userID uint) bool {
	var m domain.WalletMember
	return db.Where("wallet_id = ? AND user_id = ?", walletID, userID).First(&m).Error == nil
}

// walletSeriesKey is the cache key of a wallet's running-balance series
func walletSeriesKey(userID, walletID uint) string {
	return "walletseries:user:" + strconv.Itoa(int(userID)) + ":wallet:" + strconv.Itoa(int(walletID))
}

// invalidateLedgerCache drops the cached views a ledger mutation makes stale
func invalidateLedgerCache(rdb *redis.Client, userID uint, walletIDs ...uint) {
	ctx := context.Background()
	_ = utils.DeleteCache(ctx, rdb, "dashboard:user:"+strconv.Itoa(int(userID)))
	for _, w := range walletIDs {
		_ = utils.DeleteCache(ctx, rdb, walletSeriesKey(userID, w))
	}
}

// Request struct for wallet creation
type CreateWalletRequest struct {
	Name string `json:"name" binding:"required"` // Wallet name must be provided
}

// CreateWalletHandler creates a wallet and its owner membership atomically
func CreateWalletHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		uid := userID.(uint)
		var req CreateWalletRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Wallet name is required."})
			return
		}
		wallet := domain.Wallet{OwnerID: uid, Name: req.Name, Balance: 0}
		// The wallet row and the owner membership are one atomic unit
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&wallet).Error; err != nil {
				return err
			}
			member := domain.WalletMember{WalletID: wallet.ID, UserID: uid, Role: "owner"}
			return tx.Create(&member).Error
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": uid,
				"error":   err.Error(),
			}).Error("Failed to create wallet")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create wallet"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":   uid,
			"wallet_id": wallet.ID,
		}).Info("Wallet created")
		c.JSON(http.StatusCreated, gin.H{"message": "Wallet created successfully!", "wallet": wallet})
	}
}

// ListWalletsHandler returns every wallet the user is a member of
func ListWalletsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var wallets []domain.Wallet
		if err := db.
			Joins("JOIN wallet_members ON wallet_members.wallet_id = wallets.id").
			Where("wallet_members.user_id = ?", userID).
			Order("wallets.created_at desc").
			Find(&wallets).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wallets"})
			return
		}
		c.JSON(http.StatusOK, wallets)
	}
}

// Request struct for sharing a wallet
type ShareWalletRequest struct {
	Email string `json:"email" binding:"required,email"` // Email of the user to share with
}

// ShareWalletHandler adds another user as a member of an owned wallet
func ShareWalletHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		uid := userID.(uint)
		walletID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet id"})
			return
		}
		var req ShareWalletRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Only the owner may share
		var wallet domain.Wallet
		if err := db.Where("id = ? AND owner_id = ?", walletID, uid).First(&wallet).Error; err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to share this wallet."})
			return
		}
		var target domain.User
		if err := db.Where("email = ?", req.Email).First(&target).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User with that email not found."})
			return
		}
		member := domain.WalletMember{WalletID: wallet.ID, UserID: target.ID, Role: "member"}
		if err := db.Create(&member).Error; err != nil {
			// The unique (wallet,user) index rejects double shares
			c.JSON(http.StatusConflict, gin.H{"error": "Wallet is already shared with this user."})
			return
		}
		logrus.WithFields(logrus.Fields{
			"wallet_id":      wallet.ID,
			"owner_id":       uid,
			"shared_with_id": target.ID,
		}).Info("Wallet shared")
		c.JSON(http.StatusOK, gin.H{"message": "Wallet shared successfully!"})
	}
}

// DeleteWalletHandler removes a zero-balance wallet along with its
// transactions and memberships in one atomic unit
func DeleteWalletHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		uid := userID.(uint)
		walletID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet id"})
			return
		}
		var wallet domain.Wallet
		if err := db.First(&wallet, walletID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		if wallet.OwnerID != uid {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to delete this wallet"})
			return
		}
		if wallet.Balance != 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Cannot delete wallet with a non-zero balance. Please withdraw all funds first."})
			return
		}
		// Transactions, memberships and the wallet row go together or not at all
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("wallet_id = ?", wallet.ID).Delete(&domain.Transaction{}).Error; err != nil {
				return err
			}
			if err := tx.Where("wallet_id = ?", wallet.ID).Delete(&domain.WalletMember{}).Error; err != nil {
				return err
			}
			return tx.Delete(&wallet).Error
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"wallet_id": wallet.ID,
				"user_id":   uid,
				"error":     err.Error(),
			}).Error("Wallet deletion failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete wallet"})
			return
		}
		invalidateLedgerCache(rdb, uid, wallet.ID)
		logrus.WithFields(logrus.Fields{
			"wallet_id": wallet.ID,
			"user_id":   uid,
		}).Info("Wallet deleted")
		c.JSON(http.StatusOK, gin.H{"message": "Wallet deleted successfully!"})
	}
}

// Request struct for ledger movements
type TransactionRequest struct {
	Type                string  `json:"type" binding:"required"`           // deposit, withdrawal or transfer
	Amount              float64 `json:"amount" binding:"required,gt=0"`    // Amount must be positive
	SourceWalletID      uint    `json:"sourceWalletId" binding:"required"` // Wallet the movement applies to
	DestinationWalletID uint    `json:"destinationWalletId"`               // Transfer destination
	Description         string  `json:"description"`                       // Free-text description
}

// CreateTransactionHandler applies a deposit, withdrawal or transfer. The
// balance update and the ledger rows are one atomic unit; decrements are
// guarded by a conditional update so concurrent writers cannot both pass a
// stale balance check.
func CreateTransactionHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		uid := userID.(uint)
		var req TransactionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if !isWalletMember(db, req.SourceWalletID, uid) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found or you do not have access to it."})
			return
		}
		switch req.Type {
		case "deposit":
			srcID := req.SourceWalletID
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.Model(&domain.Wallet{}).Where("id = ?", srcID).
					Update("balance", gorm.Expr("balance + ?", req.Amount)).Error; err != nil {
					return err
				}
				t := domain.Transaction{UserID: uid, WalletID: &srcID, Type: "deposit",
					Amount: req.Amount, Description: req.Description, Category: "General"}
				return tx.Create(&t).Error
			})
			if err != nil {
				logLedgerFailure("Deposit failed", uid, srcID, req.Amount, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Deposit failed"})
				return
			}
			invalidateLedgerCache(rdb, uid, srcID)
			logLedgerSuccess("deposit", uid, srcID, req.Amount)
			c.JSON(http.StatusOK, gin.H{"message": "Deposit successful!"})

		case "withdrawal":
			srcID := req.SourceWalletID
			err := db.Transaction(func(tx *gorm.DB) error {
				// Conditional decrement: fails cleanly when the balance is short
				res := tx.Model(&domain.Wallet{}).Where("id = ? AND balance >= ?", srcID, req.Amount).
					Update("balance", gorm.Expr("balance - ?", req.Amount))
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return errInsufficientFunds
				}
				t := domain.Transaction{UserID: uid, WalletID: &srcID, Type: "withdrawal",
					Amount: req.Amount, Description: req.Description, Category: "General"}
				return tx.Create(&t).Error
			})
			if errors.Is(err, errInsufficientFunds) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient funds in the wallet."})
				return
			}
			if err != nil {
				logLedgerFailure("Withdrawal failed", uid, srcID, req.Amount, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Withdrawal failed"})
				return
			}
			invalidateLedgerCache(rdb, uid, srcID)
			logLedgerSuccess("withdrawal", uid, srcID, req.Amount)
			c.JSON(http.StatusOK, gin.H{"message": "Withdrawal successful!"})

		case "transfer":
			srcID, dstID := req.SourceWalletID, req.DestinationWalletID
			if dstID == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields."})
				return
			}
			if srcID == dstID {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Source and destination wallets cannot be the same."})
				return
			}
			if !isWalletMember(db, dstID, uid) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found or you do not have access to it."})
				return
			}
			err := db.Transaction(func(tx *gorm.DB) error {
				res := tx.Model(&domain.Wallet{}).Where("id = ? AND balance >= ?", srcID, req.Amount).
					Update("balance", gorm.Expr("balance - ?", req.Amount))
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return errInsufficientFunds
				}
				if err := tx.Model(&domain.Wallet{}).Where("id = ?", dstID).
					Update("balance", gorm.Expr("balance + ?", req.Amount)).Error; err != nil {
					return err
				}
				// One withdrawal on the source, one deposit on the destination,
				// both tagged Transfer
				out := domain.Transaction{UserID: uid, WalletID: &srcID, Type: "withdrawal",
					Amount: req.Amount, Description: "Transfer to wallet " + strconv.Itoa(int(dstID)), Category: "Transfer"}
				if err := tx.Create(&out).Error; err != nil {
					return err
				}
				in := domain.Transaction{UserID: uid, WalletID: &dstID, Type: "deposit",
					Amount: req.Amount, Description: "Transfer from wallet " + strconv.Itoa(int(srcID)), Category: "Transfer"}
				return tx.Create(&in).Error
			})
			if errors.Is(err, errInsufficientFunds) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient funds in the wallet."})
				return
			}
			if err != nil {
				logLedgerFailure("Transfer failed", uid, srcID, req.Amount, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Transfer failed"})
				return
			}
			invalidateLedgerCache(rdb, uid, srcID, dstID)
			logrus.WithFields(logrus.Fields{
				"user_id":   uid,
				"source":    srcID,
				"dest":      dstID,
				"amount":    req.Amount,
				"type":      "transfer",
				"timestamp": time.Now().Format(time.RFC3339),
			}).Info("Transfer transaction")
			c.JSON(http.StatusOK, gin.H{"message": "Transfer successful!"})

		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction type."})
		}
	}
}

// logLedgerFailure records a rolled-back ledger mutation
func logLedgerFailure(msg string, userID, walletID uint, amount float64, err error) {
	logrus.WithFields(logrus.Fields{
		"user_id":   userID,
		"wallet_id": walletID,
		"amount":    amount,
		"error":     err.Error(),
	}).Error(msg)
}

// logLedgerSuccess records a committed ledger mutation
func logLedgerSuccess(txType string, userID, walletID uint, amount float64) {
	logrus.WithFields(logrus.Fields{
		"user_id":   userID,
		"wallet_id": walletID,
		"amount":    amount,
		"type":      txType,
		"timestamp": time.Now().Format(time.RFC3339),
	}).Info("Ledger transaction")
}

// DeleteTransactionHandler removes one of the caller's own ledger rows
func DeleteTransactionHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		txID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
			return
		}
		res := db.Where("id = ? AND user_id = ?", txID, userID).Delete(&domain.Transaction{})
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete transaction"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found or you do not have permission to delete it."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully!"})
	}
}

// FilterTransactionsHandler lists a wallet's transactions inside a timeframe
// window (weekly, monthly or yearly). When the window holds nothing it falls
// back to the wallet's full history, which keeps the balance chart populated
// for quiet wallets.
func FilterTransactionsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		walletID := c.Query("walletId")
		if walletID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "walletId is required."})
			return
		}
		now := time.Now()
		var cutoff time.Time
		switch c.Query("timeframe") {
		case "weekly":
			cutoff = now.AddDate(0, 0, -7)
		case "yearly":
			cutoff = now.AddDate(-1, 0, 0)
		default: // monthly
			cutoff = now.AddDate(0, -1, 0)
		}
		var txs []domain.Transaction
		if err := db.Where("user_id = ? AND wallet_id = ? AND created_at >= ?", userID, walletID, cutoff).
			Order("created_at asc").Find(&txs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		if len(txs) == 0 {
			if err := db.Where("user_id = ? AND wallet_id = ?", userID, walletID).
				Order("created_at asc").Find(&txs).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
				return
			}
		}
		c.JSON(http.StatusOK, txs)
	}
}

// BalancePoint is one step of a wallet's running-balance series
type BalancePoint struct {
	Date    time.Time `json:"date"`    // Timestamp of the movement
	Balance float64   `json:"balance"` // Cumulative signed sum up to this point
}

// WalletSeriesHandler returns the cumulative balance history of a wallet,
// used to drive the balance chart
func WalletSeriesHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		uid := userID.(uint)
		walletID, err := strconv.Atoi(c.Param("walletId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet id"})
			return
		}
		ctx := context.Background()
		cacheKey := walletSeriesKey(uid, uint(walletID))
		var series []BalancePoint
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &series); err == nil && found {
			c.JSON(http.StatusOK, series)
			return
		}
		var txs []domain.Transaction
		if err := db.Where("user_id = ? AND wallet_id = ?", uid, walletID).
			Order("created_at asc").Find(&txs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error fetching wallet transactions."})
			return
		}
		series = make([]BalancePoint, 0, len(txs))
		running := 0.0
		for _, t := range txs {
			if t.Type == "deposit" {
				running += t.Amount
			} else {
				running -= t.Amount
			}
			series = append(series, BalancePoint{Date: t.CreatedAt, Balance: running})
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, series, 60*time.Second)
		c.JSON(http.StatusOK, series)
	}
}
