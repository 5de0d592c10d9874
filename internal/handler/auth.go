package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-treatment-board/internal/config"
	"github.com/iliyamo/clinic-treatment-board/internal/utils"
)

// AuthHandler signs staff and the director in.  There are no user accounts:
// each role has one shared password whose bcrypt hash comes from config.
type AuthHandler struct {
	Cfg config.Config
}

func NewAuthHandler(cfg config.Config) *AuthHandler {
	return &AuthHandler{Cfg: cfg}
}

// ----- DTOs -----

type loginReq struct {
	Role     string `json:"role"` // STAFF | DIRECTOR
	Password string `json:"password"`
	Name     string `json:"name"` // optional display name for the token subject
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	Subject string    `json:"subject"`
	Role    string    `json:"role"`
	Access  tokenPart `json:"access"`
}

// Login verifies the role password and returns an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if req.Password == "" || (role != utils.RoleStaff && role != utils.RoleDirector) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role/password required"})
	}

	hash := h.Cfg.StaffPasswordHash
	if role == utils.RoleDirector {
		hash = h.Cfg.DirectorPasswordHash
	}
	if !utils.VerifyPassword(hash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	subject := strings.TrimSpace(req.Name)
	if subject == "" {
		subject = strings.ToLower(role)
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, subject, role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, authResp{
		Subject: subject,
		Role:    role,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
	})
}
