package api

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"securesave/internal/config"
	"securesave/internal/mail"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// userColumns mirrors the users table for mocked SELECTs
var userColumns = []string{
	"id", "name", "email", "password", "role",
	"profile_photo_url", "dark_mode", "reset_password_token", "reset_password_expires", "created_at",
}

func TestRegisterHandler(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.POST("/api/register", RegisterHandler(db))

	w := doJSON(t, router, "POST", "/api/register",
		`{"name":"Alice","email":"alice@example.com","password":"password123"}`)

	assert.Equal(t, 201, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterHandler_DuplicateEmail(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry"))
	mock.ExpectRollback()

	router := gin.New()
	router.POST("/api/register", RegisterHandler(db))

	w := doJSON(t, router, "POST", "/api/register",
		`{"name":"Alice","email":"alice@example.com","password":"password123"}`)

	assert.Equal(t, 400, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Email already exists", resp["error"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginHandler(t *testing.T) {
	db, mock := setupMockDB(t)

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "Alice", "alice@example.com", string(hash), "user", nil, false, nil, nil, time.Now()))

	router := gin.New()
	router.POST("/api/login", LoginHandler(db, "test-secret"))

	w := doJSON(t, router, "POST", "/api/login",
		`{"email":"alice@example.com","password":"password123"}`)

	assert.Equal(t, 200, w.Code)
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "user", resp.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginHandler_WrongPassword(t *testing.T) {
	db, mock := setupMockDB(t)

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "Alice", "alice@example.com", string(hash), "user", nil, false, nil, nil, time.Now()))

	router := gin.New()
	router.POST("/api/login", LoginHandler(db, "test-secret"))

	w := doJSON(t, router, "POST", "/api/login",
		`{"email":"alice@example.com","password":"wrongpassword"}`)

	assert.Equal(t, 400, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestForgotPasswordHandler_UnknownEmail(t *testing.T) {
	db, mock := setupMockDB(t)

	// No matching user: same generic response, no token written
	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows(userColumns))

	mailer := mail.NewMailer(&config.Config{})
	router := gin.New()
	router.POST("/api/forgot-password", ForgotPasswordHandler(db, mailer, "http://localhost:5000"))

	w := doJSON(t, router, "POST", "/api/forgot-password", `{"email":"nobody@example.com"}`)

	assert.Equal(t, 200, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestForgotPasswordHandler_IssuesToken(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "Alice", "alice@example.com", "hash", "user", nil, false, nil, nil, time.Now()))

	// Token and expiry are persisted on the user row
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `users` SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mailer := mail.NewMailer(&config.Config{}) // Disabled mailer logs the link
	router := gin.New()
	router.POST("/api/forgot-password", ForgotPasswordHandler(db, mailer, "http://localhost:5000"))

	w := doJSON(t, router, "POST", "/api/forgot-password", `{"email":"alice@example.com"}`)

	assert.Equal(t, 200, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestForgotPasswordHandler_MailFailureStaysGeneric(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "Alice", "alice@example.com", "hash", "user", nil, false, nil, nil, time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `users` SET").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// SMTP enabled but unreachable: the response must match the
	// unknown-email case so delivery failures reveal nothing
	mailer := mail.NewMailer(&config.Config{
		SMTPEnabled: true,
		SMTPHost:    "127.0.0.1",
		SMTPPort:    1,
	})
	router := gin.New()
	router.POST("/api/forgot-password", ForgotPasswordHandler(db, mailer, "http://localhost:5000"))

	w := doJSON(t, router, "POST", "/api/forgot-password", `{"email":"alice@example.com"}`)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "A password reset link has been sent to your email address (if it exists).", resp["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPasswordHandler(t *testing.T) {
	db, mock := setupMockDB(t)

	token := "aabbccddee"
	expires := time.Now().Add(30 * time.Minute)
	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "Alice", "alice@example.com", "oldhash", "user", nil, false, token, expires, time.Now()))

	// New hash stored, token columns cleared, one atomic update
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `users` SET").
		WithArgs(sqlmock.AnyArg(), nil, nil, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	router := gin.New()
	router.POST("/api/reset-password", ResetPasswordHandler(db))

	w := doJSON(t, router, "POST", "/api/reset-password",
		`{"email":"alice@example.com","token":"`+token+`","newPassword":"newpassword1"}`)

	assert.Equal(t, 200, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPasswordHandler_InvalidToken(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT .* FROM `users`").
		WillReturnRows(sqlmock.NewRows(userColumns))

	router := gin.New()
	router.POST("/api/reset-password", ResetPasswordHandler(db))

	w := doJSON(t, router, "POST", "/api/reset-password",
		`{"email":"alice@example.com","token":"badtoken","newPassword":"newpassword1"}`)

	assert.Equal(t, 400, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Password reset token is invalid or has expired.", resp["error"])
	require.NoError(t, mock.ExpectationsWereMet())
}
