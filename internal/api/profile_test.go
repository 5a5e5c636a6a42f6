package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProfileHandler(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "Alice", "alice@example.com", "hash", "user", nil, false, nil, nil, time.Now()))

	router := gin.New()
	router.Use(setAuth(1, "user"))
	router.GET("/api/profile", GetProfileHandler(db))

	w := doJSON(t, router, "GET", "/api/profile", "")

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Alice", resp["name"])
	assert.Equal(t, "alice@example.com", resp["email"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfileHandler(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `users` SET").
		WithArgs("Alice B", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "Alice B", "alice@example.com", "hash", "user", nil, false, nil, nil, time.Now()))

	router := gin.New()
	router.Use(setAuth(1, "user"))
	router.PUT("/api/profile", UpdateProfileHandler(db))

	w := doJSON(t, router, "PUT", "/api/profile", `{"name":"  Alice B  "}`)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Alice B", resp["name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfileHandler_ShortName(t *testing.T) {
	db, mock := setupMockDB(t)

	router := gin.New()
	router.Use(setAuth(1, "user"))
	router.PUT("/api/profile", UpdateProfileHandler(db))

	w := doJSON(t, router, "PUT", "/api/profile", `{"name":"  ab "}`)

	assert.Equal(t, 400, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSettingHandler(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `users` SET").
		WithArgs(true, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.Use(setAuth(1, "user"))
	router.PUT("/api/settings", UpdateSettingHandler(db))

	w := doJSON(t, router, "PUT", "/api/settings", `{"settingName":"dark_mode","value":true}`)

	assert.Equal(t, 200, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSettingHandler_UnknownSetting(t *testing.T) {
	db, mock := setupMockDB(t)

	router := gin.New()
	router.Use(setAuth(1, "user"))
	router.PUT("/api/settings", UpdateSettingHandler(db))

	// Arbitrary column names never reach the database
	w := doJSON(t, router, "PUT", "/api/settings", `{"settingName":"role","value":true}`)

	assert.Equal(t, 400, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
