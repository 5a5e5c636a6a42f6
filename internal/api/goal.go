package api

import (
	"errors"
	"net/http"
	"strconv"

	"securesave/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// Request struct for creating a goal
type AddGoalRequest struct {
	Name         string  `json:"name" binding:"required"`               // Goal name must be provided
	TargetAmount float64 `json:"target_amount" binding:"required,gt=0"` // Target must be positive
}

// Request struct for goal deposits and withdrawals
type GoalAmountRequest struct {
	GoalID uint    `json:"goalId" binding:"required"`      // Goal to operate on
	Amount float64 `json:"amount" binding:"required,gt=0"` // Amount must be positive
}

// AddGoalHandler creates a savings goal with a zero starting amount
func AddGoalHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req AddGoalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide goal name and target amount."})
			return
		}
		goal := domain.Goal{UserID: userID.(uint), Name: req.Name, TargetAmount: req.TargetAmount, CurrentAmount: 0}
		if err := db.Create(&goal).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create goal"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"goal_id": goal.ID,
			"target":  goal.TargetAmount,
		}).Info("Goal created")
		c.JSON(http.StatusCreated, gin.H{"message": "Goal added successfully!", "goal": goal})
	}
}

// GetGoalHandler returns a goal together with its Savings transactions
func GetGoalHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		goalID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid goal id"})
			return
		}
		var goal domain.Goal
		if err := db.Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Goal not found"})
			return
		}
		// Goal movements are Savings transactions naming the goal
		var txs []domain.Transaction
		if err := db.Where("user_id = ? AND category = ? AND description LIKE ?",
			userID, "Savings", "%"+goal.Name+"%").
			Order("created_at desc").Find(&txs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch goal transactions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"goal": goal, "transactions": txs})
	}
}

// DeleteGoalHandler removes a goal once its saved amount is back to zero
func DeleteGoalHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		goalID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid goal id"})
			return
		}
		var goal domain.Goal
		if err := db.Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Goal not found or you do not have permission to delete it."})
			return
		}
		if goal.CurrentAmount > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Cannot delete a goal with a non-zero balance. Please withdraw all funds first."})
			return
		}
		if err := db.Delete(&goal).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete goal"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"goal_id": goal.ID,
		}).Info("Goal deleted")
		c.JSON(http.StatusOK, gin.H{"message": "Goal deleted successfully."})
	}
}

// GoalDepositHandler moves money into a goal. The conditional update keeps
// current_amount within the target even under concurrent deposits.
func GoalDepositHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		uid := userID.(uint)
		var req GoalAmountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount."})
			return
		}
		var goal domain.Goal // Ownership check and name for the ledger row
		if err := db.Where("id = ? AND user_id = ?", req.GoalID, uid).First(&goal).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Goal not found"})
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&domain.Goal{}).
				Where("id = ? AND user_id = ? AND current_amount + ? <= target_amount", goal.ID, uid, req.Amount).
				Update("current_amount", gorm.Expr("current_amount + ?", req.Amount))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errExceedsTarget
			}
			t := domain.Transaction{UserID: uid, Type: "deposit", Amount: req.Amount,
				Description: "Deposit to " + goal.Name, Category: "Savings"}
			return tx.Create(&t).Error
		})
		if errors.Is(err, errExceedsTarget) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Deposit amount will exceed the goal target. Please deposit a smaller amount."})
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": uid,
				"goal_id": goal.ID,
				"amount":  req.Amount,
				"error":   err.Error(),
			}).Error("Goal deposit failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Goal deposit failed"})
			return
		}
		invalidateLedgerCache(rdb, uid)
		logrus.WithFields(logrus.Fields{
			"user_id": uid,
			"goal_id": goal.ID,
			"amount":  req.Amount,
			"type":    "goal_deposit",
		}).Info("Goal deposit")
		c.JSON(http.StatusOK, gin.H{"message": "Deposit successful!"})
	}
}

// GoalWithdrawHandler moves money back out of a goal
func GoalWithdrawHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		uid := userID.(uint)
		var req GoalAmountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount."})
			return
		}
		var goal domain.Goal
		if err := db.Where("id = ? AND user_id = ?", req.GoalID, uid).First(&goal).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Goal not found"})
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&domain.Goal{}).
				Where("id = ? AND user_id = ? AND current_amount >= ?", goal.ID, uid, req.Amount).
				Update("current_amount", gorm.Expr("current_amount - ?", req.Amount))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errInsufficientFunds
			}
			t := domain.Transaction{UserID: uid, Type: "withdrawal", Amount: req.Amount,
				Description: "Withdrawal from " + goal.Name, Category: "Savings"}
			return tx.Create(&t).Error
		})
		if errors.Is(err, errInsufficientFunds) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient funds in goal."})
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": uid,
				"goal_id": goal.ID,
				"amount":  req.Amount,
				"error":   err.Error(),
			}).Error("Goal withdrawal failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Goal withdrawal failed"})
			return
		}
		invalidateLedgerCache(rdb, uid)
		logrus.WithFields(logrus.Fields{
			"user_id": uid,
			"goal_id": goal.ID,
			"amount":  req.Amount,
			"type":    "goal_withdrawal",
		}).Info("Goal withdrawal")
		c.JSON(http.StatusOK, gin.H{"message": "Withdrawal successful!"})
	}
}
