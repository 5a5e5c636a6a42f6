package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"securesave/internal/domain" // Importing domain models
	"securesave/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// DashboardTransaction is a ledger row joined with its wallet name
type DashboardTransaction struct {
	ID          uint      `json:"id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	WalletName  *string   `json:"wallet_name"` // nil for goal movements
}

// UserDashboardResponse aggregates everything the dashboard page renders
type UserDashboardResponse struct {
	User         gin.H                  `json:"user"`
	Transactions []DashboardTransaction `json:"transactions"`
	Goals        []domain.Goal          `json:"goals"`
}

// UserDashboardHandler returns the user's goals, transaction history and
// savings totals in one response. Read-only, cached for 60 seconds and
// invalidated by ledger mutations.
func UserDashboardHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		uid := userID.(uint)
		ctx := context.Background()
		cacheKey := "dashboard:user:" + strconv.Itoa(int(uid))
		var cached UserDashboardResponse
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}
		var user domain.User
		if err := db.First(&user, uid).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		var goals []domain.Goal
		if err := db.Where("user_id = ?", uid).Find(&goals).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch goals"})
			return
		}
		var txs []DashboardTransaction
		if err := db.Table("transactions").
			Select("transactions.id, transactions.type, transactions.amount, transactions.description, transactions.category, transactions.created_at, wallets.name AS wallet_name").
			Joins("LEFT JOIN wallets ON transactions.wallet_id = wallets.id").
			Where("transactions.user_id = ?", uid).
			Order("transactions.created_at desc").
			Scan(&txs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		// Savings totals derived from the ledger tables
		var totalGoalSavings float64
		if err := db.Model(&domain.Goal{}).Where("user_id = ?", uid).
			Select("COALESCE(SUM(current_amount), 0)").Scan(&totalGoalSavings).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute savings"})
			return
		}
		var totalGeneral float64
		if err := db.Model(&domain.Transaction{}).Where("user_id = ?", uid).
			Select("COALESCE(SUM(CASE WHEN type = 'deposit' THEN amount ELSE -amount END), 0)").
			Scan(&totalGeneral).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute savings"})
			return
		}
		resp := UserDashboardResponse{
			User: gin.H{
				"name":                       user.Name,
				"total_goals_savings":        totalGoalSavings,
				"total_general_transactions": totalGeneral,
			},
			Transactions: txs,
			Goals:        goals,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp)
	}
}
