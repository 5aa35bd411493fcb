package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/tradelink/tradelink-api/internal/auth"
	"github.com/tradelink/tradelink-api/internal/middleware"
	"github.com/tradelink/tradelink-api/internal/models"
	"github.com/tradelink/tradelink-api/internal/notify"
)

//
// --- Registration & Login ---
//

// RegisterUserInput is the JSON body for both registration endpoints.
type RegisterUserInput struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// RegisterBuyer is the handler for POST /v1/register/buyer.
func (h *Handlers) RegisterBuyer(c *gin.Context) {
	h.registerUser(c, models.UserTypeBuyer)
}

// RegisterShop is the handler for POST /v1/register/shop. A shop account
// gets its storefront row on its first price-list upload, not here.
func (h *Handlers) RegisterShop(c *gin.Context) {
	h.registerUser(c, models.UserTypeShop)
}

func (h *Handlers) registerUser(c *gin.Context, userType string) {
	var input RegisterUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	token := uuid.NewString()
	now := time.Now()

	res, err := h.DB.Exec(`
		INSERT INTO users (email, password_hash, full_name, type, is_verified, verification_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?)`,
		input.Email, password.Hash, input.FullName, userType, token, now, now)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "An account with this email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}
	userID, _ := res.LastInsertId()

	h.Notify.Enqueue(notify.Message{
		UserID:  userID,
		To:      input.Email,
		Subject: "Confirm your email",
		Body:    "Your verification token: " + token,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created. Check your email for the verification token.",
		"id":      userID,
	})
}

// VerifyEmailInput is the JSON body for POST /v1/auth/verify-email.
type VerifyEmailInput struct {
	Email string `json:"email" binding:"required,email"`
	Token string `json:"token" binding:"required"`
}

// VerifyEmail activates an account using the emailed token.
func (h *Handlers) VerifyEmail(c *gin.Context) {
	var input VerifyEmailInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.DB.Exec(`
		UPDATE users SET is_verified = 1, verification_token = NULL, updated_at = ?
		WHERE email = ? AND verification_token = ?`,
		time.Now(), input.Email, input.Token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify account"})
		return
	}

	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email or verification token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email verified. You can now log in."})
}

// LoginInput is the JSON body for POST /v1/login.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login checks the credentials and issues a JWT carrying the account kind.
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := h.DB.QueryRow(
		"SELECT id, password_hash, type, is_verified FROM users WHERE email = ?",
		input.Email).Scan(&user.ID, &user.PasswordHash, &user.Type, &user.IsVerified)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	password := models.Password{Hash: user.PasswordHash}
	matches, err := password.Matches(input.Password)
	if err != nil || !matches {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !user.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Email address is not verified"})
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Type)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "type": user.Type})
}

//
// --- Delivery Contacts ---
//

// ContactInput is the JSON body for POST /v1/user/contact.
type ContactInput struct {
	City      string  `json:"city" binding:"required"`
	Street    string  `json:"street" binding:"required"`
	House     string  `json:"house" binding:"required"`
	Apartment *string `json:"apartment"`
	Phone     string  `json:"phone" binding:"required"`
}

// CreateContact adds a delivery contact for the logged-in user.
func (h *Handlers) CreateContact(c *gin.Context) {
	userID := middleware.UserID(c)

	var input ContactInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.DB.Exec(`
		INSERT INTO contacts (user_id, city, street, house, apartment, phone)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, input.City, input.Street, input.House, input.Apartment, input.Phone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save contact"})
		return
	}
	contactID, _ := res.LastInsertId()

	c.JSON(http.StatusCreated, gin.H{"id": contactID})
}

// GetMyContacts lists the logged-in user's delivery contacts.
func (h *Handlers) GetMyContacts(c *gin.Context) {
	userID := middleware.UserID(c)

	rows, err := h.DB.Query(
		"SELECT id, user_id, city, street, house, apartment, phone FROM contacts WHERE user_id = ?",
		userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch contacts"})
		return
	}
	defer rows.Close()

	contacts := []models.Contact{}
	for rows.Next() {
		var contact models.Contact
		if err := rows.Scan(&contact.ID, &contact.UserID, &contact.City,
			&contact.Street, &contact.House, &contact.Apartment, &contact.Phone); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan contact"})
			return
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating contacts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

// DeleteContact removes one of the logged-in user's contacts.
func (h *Handlers) DeleteContact(c *gin.Context) {
	userID := middleware.UserID(c)
	contactID := c.Param("id")

	res, err := h.DB.Exec("DELETE FROM contacts WHERE id = ? AND user_id = ?", contactID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete contact"})
		return
	}

	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Contact removed"})
}
