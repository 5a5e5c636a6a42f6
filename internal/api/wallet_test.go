package api

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Column sets for mocked SELECTs
var (
	memberColumns = []string{"id", "wallet_id", "user_id", "role"}
	walletColumns = []string{"id", "owner_id", "name", "balance", "created_at"}
	txColumns     = []string{"id", "user_id", "wallet_id", "type", "amount", "description", "category", "created_at"}
)

func TestCreateTransactionHandler_Deposit(t *testing.T) {
	db, mock := setupMockDB(t)

	// Membership check, then the balance update and ledger row as one unit
	mock.ExpectQuery("SELECT .* FROM `wallet_members`").
		WillReturnRows(sqlmock.NewRows(memberColumns).AddRow(1, 1, 1, "owner"))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `wallets` SET").
		WithArgs(100.0, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `transactions`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.Use(setAuth(1, "user"))
	router.POST("/api/transaction", CreateTransactionHandler(db, nil))

	w := doJSON(t, router, "POST", "/api/transaction",
		`{"type":"deposit","amount":100,"sourceWalletId":1,"description":"Paycheck"}`)

	assert.Equal(t, 200, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTransactionHandler_Withdrawal_InsufficientFunds(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT .* FROM `wallet_members`").
		WillReturnRows(sqlmock.NewRows(memberColumns).AddRow(1, 1, 1, "owner"))
	mock.ExpectBegin()
	// Conditional decrement touches no rows: balance < amount
	mock.ExpectExec("UPDATE `wallets` SET").
		WithArgs(500.0, 1, 500.0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	router := gin.New()
	router.Use(setAuth(1, "user"))
	router.POST("/api/transaction", CreateTransactionHandler(db, nil))

	w := doJSON(t, router, "POST", "/api/transaction",
		`{"type":"withdrawal","amount":500,"sourceWalletId":1}`)

	assert.Equal(t, 400, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Insufficient funds in the wallet.", resp["error"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTransactionHandler_Transfer(t *testing.T) {
	db, mock := setupMockDB(t)

	// Membership on both wallets
	mock.ExpectQuery("SELECT .* FROM `wallet_members`").
		WillReturnRows(sqlmock.NewRows(memberColumns).AddRow(1, 1, 1, "owner"))
	mock.ExpectQuery("SELECT .* FROM `wallet_members`").
		WillReturnRows(sqlmock.NewRows(memberColumns).AddRow(2, 2, 1, "member"))
	// Both balance updates and both Transfer rows commit together
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `wallets` SET").
		WithArgs(50.0, 1, 50.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `wallets` SET").
		WithArgs(50.0, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `transactions`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `transactions`").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.Use(setAuth(1, "user"))
	router.POST("/api/transaction", CreateTransactionHandler(db, nil))

	w := doJSON(t, router, "POST", "/api/transaction",
		`{"type":"transfer","amount":50,"sourceWalletId":1,"destinationWalletId":2}`)

	assert.Equal(t, 200, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTransactionHandler_Transfer_RollsBackOnFailure(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT .* FROM `wallet_members`").
		WillReturnRows(sqlmock.NewRows(memberColumns).AddRow(1, 1, 1, "owner"))
	mock.ExpectQuery("SELECT .* FROM `wallet_members`").
		WillReturnRows(sqlmock.NewRows(memberColumns).AddRow(2, 2, 1, "member"))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `wallets` SET").
		WithArgs(50.0, 1, 50.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Destination update fails mid-transfer: everything rolls back
	mock.ExpectExec("UPDATE `wallets` SET").
		WithArgs(50.0, 2).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	router := gin.New()
	router.Use(setAuth(1, "user"))
	router.POST("/api/transaction", CreateTransactionHandler(db, nil))

	w := doJSON(t, router, "POST", "/api/transaction",
		`{"type":"transfer","amount":50,"sourceWalletId":1,"destinationWalletId":2}`)

	assert.Equal(t, 500, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTransactionHandler_TransferToSameWallet(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT .* FROM `wallet_members`").
		WillReturnRows(sqlmock.NewRows(memberColumns).AddRow(1, 1, 1, "owner"))

	router := gin.New()
	router.Use(setAuth(1, "user"))
	router.POST("/api/transaction", CreateTransactionHandler(db, nil))

	w := doJSON(t, router, "POST", "/api/transaction",
		`{"type":"transfer","amount":50,"sourceWalletId":1,"destinationWalletId":1}`)

	assert.Equal(t, 400, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTransactionHandler_NotAMember(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT .* FROM `wallet_members`").
		WillReturnRows(sqlmock.NewRows(memberColumns))

	router := gin.New()
	router.Use(setAuth(1, "user"))
	router.POST("/api/transaction", CreateTransactionHandler(db, nil))

	w := doJSON(t, router, "POST", "/api/transaction",
		`{"type":"deposit","amount":10,"sourceWalletId":9}`)

	assert.Equal(t, 404, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWalletHandler(t *testing.T) {
	db, mock := setupMockDB(t)

	// Wallet row and owner membership are created atomically
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `wallets`").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO `wallet_members`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.Use(setAuth(1, "user"))
	router.POST("/api/wallets", CreateWalletHandler(db))

	w := doJSON(t, router, "POST", "/api/wallets", `{"name":"Cash"}`)

	assert.Equal(t, 201, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteWalletHandler_NonZeroBalance(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT .* FROM `wallets`").
		WillReturnRows(sqlmock.NewRows(walletColumns).AddRow(1, 1, "Cash", 25.0, time.Now()))

	router := gin.New()
	router.Use(setAuth(1, "user"))
	router.DELETE("/api/wallets/:id", DeleteWalletHandler(db, nil))

	w := doJSON(t, router, "DELETE", "/api/wallets/1", "")

	assert.Equal(t, 409, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "non-zero balance")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteWalletHandler(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT .* FROM `wallets`").
		WillReturnRows(sqlmock.NewRows(walletColumns).AddRow(1, 1, "Cash", 0.0, time.Now()))
	// Transactions, memberships and the wallet row removed as one unit
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `transactions`").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM `wallet_members`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `wallets`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.Use(setAuth(1, "user"))
	router.DELETE("/api/wallets/:id", DeleteWalletHandler(db, nil))

	w := doJSON(t, router, "DELETE", "/api/wallets/1", "")

	assert.Equal(t, 200, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletSeriesHandler_CumulativeBalance(t *testing.T) {
	db, mock := setupMockDB(t)

	// Deposit 100 then withdraw 30: the series is the running signed sum
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .* FROM `transactions`").
		WillReturnRows(sqlmock.NewRows(txColumns).
			AddRow(1, 1, 1, "deposit", 100.0, "Paycheck", "General", base).
			AddRow(2, 1, 1, "withdrawal", 30.0, "Groceries", "General", base.Add(time.Hour)))

	router := gin.New()
	router.Use(setAuth(1, "user"))
	router.GET("/api/transactions/wallet/:walletId", WalletSeriesHandler(db, nil))

	w := doJSON(t, router, "GET", "/api/transactions/wallet/1", "")

	assert.Equal(t, 200, w.Code)
	var series []BalancePoint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &series))
	require.Len(t, series, 2)
	assert.Equal(t, 100.0, series[0].Balance)
	assert.Equal(t, 70.0, series[1].Balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFilterTransactionsHandler_Window(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT .* FROM `transactions`").
		WillReturnRows(sqlmock.NewRows(txColumns).
			AddRow(1, 1, 1, "deposit", 100.0, "Paycheck", "General", time.Now().Add(-24*time.Hour)))

	router := gin.New()
	router.Use(setAuth(1, "user"))
	router.GET("/api/transactions/filter", FilterTransactionsHandler(db))

	w := doJSON(t, router, "GET", "/api/transactions/filter?walletId=1&timeframe=weekly", "")

	assert.Equal(t, 200, w.Code)
	var txs []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &txs))
	assert.Len(t, txs, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFilterTransactionsHandler_EmptyWindowFallsBack(t *testing.T) {
	db, mock := setupMockDB(t)

	// Nothing inside the window: the handler re-queries the full history
	mock.ExpectQuery("SELECT .* FROM `transactions`").
		WillReturnRows(sqlmock.NewRows(txColumns))
	mock.ExpectQuery("SELECT .* FROM `transactions`").
		WillReturnRows(sqlmock.NewRows(txColumns).
			AddRow(1, 1, 1, "deposit", 100.0, "Paycheck", "General", time.Now().AddDate(0, -6, 0)).
			AddRow(2, 1, 1, "withdrawal", 30.0, "Groceries", "General", time.Now().AddDate(0, -5, 0)))

	router := gin.New()
	router.Use(setAuth(1, "user"))
	router.GET("/api/transactions/filter", FilterTransactionsHandler(db))

	w := doJSON(t, router, "GET", "/api/transactions/filter?walletId=1&timeframe=weekly", "")

	assert.Equal(t, 200, w.Code)
	var txs []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &txs))
	assert.Len(t, txs, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteWalletHandler_NotOwner(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT .* FROM `wallets`").
		WillReturnRows(sqlmock.NewRows(walletColumns).AddRow(1, 2, "Cash", 0.0, time.Now()))

	router := gin.New()
	router.Use(setAuth(1, "user"))
	router.DELETE("/api/wallets/:id", DeleteWalletHandler(db, nil))

	w := doJSON(t, router, "DELETE", "/api/wallets/1", "")

	assert.Equal(t, 403, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
