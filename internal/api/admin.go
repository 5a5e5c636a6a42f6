package api

import (
	"context" // Context for Redis operations
	"net/http"
	"strconv" // String conversion
	"time"

	"securesave/internal/domain" // Importing domain models
	"securesave/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"golang.org/x/crypto/bcrypt"   // Password hashing
	"gorm.io/gorm"                 // GORM ORM library
)

// pageParams reads page/limit query parameters with sane bounds
func pageParams(c *gin.Context) (page, limit, offset int) {
	page, limit = 1, 10
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}
	return page, limit, (page - 1) * limit
}

// ActivityRow is one admin-visible ledger entry joined with its user
type ActivityRow struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// AdminDashboardResponse aggregates the admin landing page numbers
type AdminDashboardResponse struct {
	TotalUsers         int64         `json:"totalUsers"`
	TotalSavings       float64       `json:"totalSavings"`
	NewUsersToday      int64         `json:"newUsersToday"`
	TotalActivityCount int64         `json:"totalActivityCount"`
	RecentActivity     []ActivityRow `json:"recentActivity"`
}

// signedSum is the SQL expression turning the ledger into a signed total
const signedSum = "COALESCE(SUM(CASE WHEN type = 'deposit' THEN amount ELSE -amount END), 0)"

// AdminDashboardHandler returns platform totals and a searchable page of
// recent activity. Cached for 60 seconds per (page, limit, search).
func AdminDashboardHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, offset := pageParams(c)
		search := c.Query("search")
		ctx := context.Background()
		cacheKey := "admin:dashboard:page=" + strconv.Itoa(page) + ":limit=" + strconv.Itoa(limit) + ":search=" + search
		var cached AdminDashboardResponse
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}
		var resp AdminDashboardResponse
		if err := db.Model(&domain.User{}).Count(&resp.TotalUsers).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		if err := db.Model(&domain.Transaction{}).Select(signedSum).Scan(&resp.TotalSavings).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		if err := db.Model(&domain.User{}).Where("DATE(created_at) = CURDATE()").
			Count(&resp.NewUsersToday).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		like := "%" + search + "%"
		activity := db.Table("transactions").
			Joins("JOIN users ON transactions.user_id = users.id").
			Where("users.name LIKE ? OR users.email LIKE ? OR transactions.description LIKE ? OR transactions.category LIKE ?",
				like, like, like, like)
		if err := activity.Count(&resp.TotalActivityCount).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		if err := activity.
			Select("users.name, users.email, transactions.type, transactions.amount, transactions.description, transactions.category, transactions.created_at").
			Order("transactions.created_at desc").
			Offset(offset).Limit(limit).
			Scan(&resp.RecentActivity).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp)
	}
}

// AdminUserRow is one row of the admin user listing
type AdminUserRow struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	TotalSavings float64   `json:"total_savings"` // Signed ledger sum for this user
}

// AdminUsersHandler returns a searchable, paginated user listing with each
// user's signed ledger total
func AdminUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, offset := pageParams(c)
		search := c.Query("search")
		ctx := context.Background()
		cacheKey := "admin:users:page=" + strconv.Itoa(page) + ":limit=" + strconv.Itoa(limit) + ":search=" + search
		var cached gin.H
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}
		query := db.Model(&domain.User{})
		if search != "" {
			like := "%" + search + "%"
			query = query.Where("name LIKE ? OR email LIKE ?", like, like)
		}
		var total int64 // Parallel count for pagination
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		var users []AdminUserRow
		if err := query.
			Select("id, name, email, role, created_at, " +
				"COALESCE((SELECT SUM(CASE WHEN type = 'deposit' THEN amount ELSE -amount END) FROM transactions WHERE transactions.user_id = users.id), 0) AS total_savings").
			Order("created_at desc").
			Offset(offset).Limit(limit).
			Scan(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		resp := gin.H{"users": users, "totalCount": total}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp)
	}
}

// AdminTransactionRow is one row of the admin transaction listing
type AdminTransactionRow struct {
	ID          uint      `json:"id"`
	UserID      uint      `json:"user_id"`
	Name        string    `json:"name"` // Acting user's name
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// AdminTransactionsHandler returns a searchable, paginated listing of the
// whole ledger joined with user names
func AdminTransactionsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, offset := pageParams(c)
		search := c.Query("search")
		ctx := context.Background()
		cacheKey := "admin:txs:page=" + strconv.Itoa(page) + ":limit=" + strconv.Itoa(limit) + ":search=" + search
		var cached gin.H
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}
		query := db.Table("transactions").
			Joins("JOIN users ON transactions.user_id = users.id")
		if search != "" {
			like := "%" + search + "%"
			query = query.Where("users.name LIKE ? OR transactions.type LIKE ? OR transactions.category LIKE ? OR transactions.description LIKE ?",
				like, like, like, like)
		}
		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		var txs []AdminTransactionRow
		if err := query.
			Select("transactions.id, transactions.user_id, users.name, transactions.type, transactions.amount, transactions.description, transactions.category, transactions.created_at").
			Order("transactions.created_at desc").
			Offset(offset).Limit(limit).
			Scan(&txs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		resp := gin.H{"transactions": txs, "totalCount": total}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp)
	}
}

// AdminUserDetailHandler returns one user with their ledger total and history
func AdminUserDetailHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		var user AdminUserRow
		res := db.Model(&domain.User{}).
			Select("id, name, email, role, created_at, "+
				"COALESCE((SELECT SUM(CASE WHEN type = 'deposit' THEN amount ELSE -amount END) FROM transactions WHERE transactions.user_id = users.id), 0) AS total_savings").
			Where("id = ?", id).
			Scan(&user)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		var txs []domain.Transaction
		if err := db.Where("user_id = ?", id).Order("created_at desc").Find(&txs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user, "transactions": txs})
	}
}

// Request struct for role updates
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"` // Must be user or admin
}

// UpdateUserRoleHandler changes another user's role. The change shows up in
// tokens minted at the target's next login.
func UpdateUserRoleHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		var req UpdateRoleRequest
		if err := c.ShouldBindJSON(&req); err != nil || (req.Role != "user" && req.Role != "admin") {
			c.JSON(http.StatusBadRequest, gin.H{"error": `Invalid role provided. Must be "user" or "admin".`})
			return
		}
		if adminID.(uint) == uint(id) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You cannot change your own role via this endpoint."})
			return
		}
		var target domain.User
		if err := db.First(&target, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found."})
			return
		}
		if target.Role == req.Role {
			c.JSON(http.StatusConflict, gin.H{"error": "User already has that role."})
			return
		}
		if err := db.Model(&target).Update("role", req.Role).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error: Failed to update user role."})
			return
		}
		logrus.WithFields(logrus.Fields{
			"admin_id": adminID,
			"user_id":  target.ID,
			"role":     req.Role,
		}).Info("User role updated")
		c.JSON(http.StatusOK, gin.H{"message": "User role updated to " + req.Role + " successfully."})
	}
}

// AdminDeleteUserHandler removes a user and everything that references them:
// memberships, transactions, goals, owned wallets (with their membership and
// ledger rows), then the user row — all in one database transaction. The
// profile photo file is removed only after the commit and never fails the
// request.
func AdminDeleteUserHandler(db *gorm.DB, rdb *redis.Client, uploadDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, exists := c.Get("userID")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		if adminID.(uint) == uint(id) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You cannot delete your own admin account via this endpoint."})
			return
		}
		var target domain.User
		if err := db.First(&target, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found."})
			return
		}
		photoURL := target.ProfilePhotoURL // Captured before the row disappears
		err = db.Transaction(func(tx *gorm.DB) error {
			// Dependency order: memberships, ledger rows, goals, owned wallets, user
			if err := tx.Where("user_id = ?", target.ID).Delete(&domain.WalletMember{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", target.ID).Delete(&domain.Transaction{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", target.ID).Delete(&domain.Goal{}).Error; err != nil {
				return err
			}
			// Owned wallets take their remaining membership and ledger rows with them
			var ownedIDs []uint
			if err := tx.Model(&domain.Wallet{}).Where("owner_id = ?", target.ID).
				Pluck("id", &ownedIDs).Error; err != nil {
				return err
			}
			if len(ownedIDs) > 0 {
				if err := tx.Where("wallet_id IN ?", ownedIDs).Delete(&domain.WalletMember{}).Error; err != nil {
					return err
				}
				if err := tx.Where("wallet_id IN ?", ownedIDs).Delete(&domain.Transaction{}).Error; err != nil {
					return err
				}
				if err := tx.Where("id IN ?", ownedIDs).Delete(&domain.Wallet{}).Error; err != nil {
					return err
				}
			}
			return tx.Delete(&target).Error
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"admin_id": adminID,
				"user_id":  target.ID,
				"error":    err.Error(),
			}).Error("User cascade delete failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		// File cleanup is best-effort after the authoritative database commit
		if photoURL != nil {
			removeUploadedFile(uploadDir, *photoURL)
		}
		_ = utils.DeleteCache(context.Background(), rdb, "dashboard:user:"+strconv.Itoa(id))
		logrus.WithFields(logrus.Fields{
			"admin_id": adminID,
			"user_id":  target.ID,
		}).Info("User and related data deleted")
		c.JSON(http.StatusOK, gin.H{"message": "User and all related data deleted successfully."})
	}
}

// AdminResetPasswordHandler sets a random password on a user account and
// returns it once in the response
func AdminResetPasswordHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		newPassword, err := utils.RandomHex(8) // 16-char throwaway password
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		res := db.Model(&domain.User{}).Where("id = ?", id).Update("password", string(hash))
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error: Failed to reset password."})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found."})
			return
		}
		logrus.WithFields(logrus.Fields{"user_id": id}).Info("Admin reset user password")
		c.JSON(http.StatusOK, gin.H{"message": "Password reset successful!", "newPassword": newPassword})
	}
}
