package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"userserve/internal/models"
	"userserve/internal/services"
	"userserve/internal/store"
)

// Users handles the user routes. Auth lookups (register/login) go to
// the store directly by email; everything else goes through the generic
// document service.
type Users struct {
	Svc       *services.Commonserve
	Store     store.Store
	Log       *zap.Logger
	JWTSecret []byte
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

// POST /api/users/register
func (h *Users) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSONOrError(c, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(c, http.StatusBadRequest, "Email and password are required", "")
		return
	}

	ctx := c.Request.Context()
	_, err := h.Store.FindOne(ctx, models.UserKind.Collection, store.Filter{"email": store.Eq(req.Email)})
	if err == nil {
		respondError(c, http.StatusBadRequest, "Email already in use", "")
		return
	}
	if !errors.Is(err, store.ErrNoDocuments) {
		respondError(c, http.StatusInternalServerError, "Server Error", err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Server Error", err.Error())
		return
	}

	doc := models.ApplyUserDefaults(store.Document{
		"email":    req.Email,
		"password": string(hash),
		"phone":    req.Phone,
	})

	result := h.Svc.Add(ctx, models.UserKind, doc)
	if !result.Success {
		respondError(c, http.StatusBadRequest, "Failed to register user", result.Err)
		return
	}

	created, _ := result.Data.(store.Document)
	h.Log.Info("user registered", zap.Any("userId", created["userId"]))
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Registration successful",
		"data":    models.SanitizeUser(created),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/users/login
//
// Invalid email and invalid password collapse into one message so the
// response does not reveal which factor was wrong.
func (h *Users) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSONOrError(c, &req) {
		return
	}

	ctx := c.Request.Context()
	user, err := h.Store.FindOne(ctx, models.UserKind.Collection, store.Filter{"email": store.Eq(req.Email)})
	if errors.Is(err, store.ErrNoDocuments) {
		respondError(c, http.StatusUnauthorized, "Invalid email or password", "")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Server Error", err.Error())
		return
	}

	storedHash, _ := user["password"].(string)
	if bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(req.Password)) != nil {
		respondError(c, http.StatusUnauthorized, "Invalid email or password", "")
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": user["userId"],
		"role":   user["role"],
		"exp":    time.Now().Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString(h.JWTSecret)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Server Error", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"data":    models.SanitizeUser(user),
		"token":   signed,
	})
}

// POST /api/users/logout
//
// Tokens are stateless; logout is an acknowledgment for the client to
// drop its copy.
func (h *Users) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logout successful",
	})
}

// GET /api/users/getAll
func (h *Users) GetAll(c *gin.Context) {
	result := h.Svc.GetAll(c.Request.Context(), models.UserKind)
	if !result.Success {
		respondError(c, http.StatusInternalServerError, "Server Error", result.Err)
		return
	}

	docs, _ := result.Data.([]store.Document)
	if len(docs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "No users found",
			"data":    []store.Document{},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Users retrieved successfully",
		"count":   len(docs),
		"data":    models.SanitizeUsers(docs),
	})
}

// GET /api/users/filter
func (h *Users) Filter(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		respondError(c, http.StatusBadRequest, "Invalid page parameter", "")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		respondError(c, http.StatusBadRequest, "Invalid limit parameter", "")
		return
	}

	params := map[string]string{}
	for _, field := range []string{"username", "email", "phone", "address", "role", "status", "userId"} {
		params[field] = c.Query(field)
	}

	result := h.Svc.GetAllWithFilter(c.Request.Context(), models.UserKind, models.UserFilter(params), page, limit)
	if !result.Success {
		respondError(c, http.StatusInternalServerError, "Server Error", result.Err)
		return
	}

	docs, _ := result.Data.([]store.Document)
	if len(docs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success":    false,
			"message":    "No users found with the given filters",
			"data":       []store.Document{},
			"pagination": result.Pagination,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Users retrieved successfully",
		"count":      len(docs),
		"data":       models.SanitizeUsers(docs),
		"pagination": result.Pagination,
	})
}

// POST /api/users/create
func (h *Users) Create(c *gin.Context) {
	var data store.Document
	if !bindJSONOrError(c, &data) {
		return
	}

	if pw, ok := data["password"].(string); ok && pw != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "Server Error", err.Error())
			return
		}
		data["password"] = string(hash)
	}

	result := h.Svc.Add(c.Request.Context(), models.UserKind, models.ApplyUserDefaults(data))
	if !result.Success {
		respondError(c, http.StatusBadRequest, "Failed to create user", result.Err)
		return
	}

	created, _ := result.Data.(store.Document)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User created successfully",
		"data":    models.SanitizeUser(created),
	})
}

// GET /api/users/get/:id
func (h *Users) GetByID(c *gin.Context) {
	result := h.Svc.GetByID(c.Request.Context(), models.UserKind, c.Param("id"))
	if !result.Success {
		respondError(c, http.StatusInternalServerError, "Server Error", result.Err)
		return
	}
	if result.Data == nil {
		respondNotFound(c, "User not found")
		return
	}

	doc, _ := result.Data.(store.Document)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User retrieved successfully",
		"data":    models.SanitizeUser(doc),
	})
}

// PUT /api/users/update/:id
func (h *Users) Update(c *gin.Context) {
	var data store.Document
	if !bindJSONOrError(c, &data) {
		return
	}

	if pw, ok := data["password"].(string); ok && pw != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "Server Error", err.Error())
			return
		}
		data["password"] = string(hash)
	}

	result := h.Svc.UpdateByID(c.Request.Context(), models.UserKind, c.Param("id"), data)
	if !result.Success {
		respondError(c, http.StatusBadRequest, "Failed to update user", result.Err)
		return
	}
	if result.Data == nil {
		respondNotFound(c, "User not found")
		return
	}

	doc, _ := result.Data.(store.Document)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User updated successfully",
		"data":    models.SanitizeUser(doc),
	})
}

// DELETE /api/users/delete/:id
func (h *Users) Delete(c *gin.Context) {
	result := h.Svc.DeleteByID(c.Request.Context(), models.UserKind, c.Param("id"))
	if !result.Success {
		respondError(c, http.StatusInternalServerError, "Failed to delete user", result.Err)
		return
	}
	if result.Data == nil {
		respondNotFound(c, "User not found")
		return
	}

	doc, _ := result.Data.(store.Document)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User deleted successfully",
		"data":    models.SanitizeUser(doc),
	})
}
