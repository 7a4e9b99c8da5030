package controllers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/config"
	"github.com/inkpress/inkpress/models"
	"github.com/inkpress/inkpress/utils"
)

// AuthController handles password and GitHub OAuth logins for authors and
// admins. Accounts are operator-created; there is no open registration.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Login authenticates with username and password and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		// Same response for unknown user and bad password.
		utils.Error(ctx, http.StatusUnauthorized, 40111, "invalid credentials")
		return
	}
	if user.PasswordHash == "" || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "invalid credentials")
		return
	}

	a.issueToken(ctx, &user)
}

// Logout revokes the presented token until its natural expiry.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusBadRequest, 40011, "missing bearer token")
		return
	}
	token := strings.TrimSpace(parts[1])
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}
	utils.BlacklistToken(token, claims.ExpiresAt.Time)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's profile.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to load user")
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

func (a *AuthController) oauthConfig() *oauth2.Config {
	cfg := config.Get()
	return &oauth2.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		Endpoint:     github.Endpoint,
		RedirectURL:  cfg.OAuthRedirectBase + "/api/v1/auth/oauth/github/callback",
		Scopes:       []string{"read:user"},
	}
}

// OAuthRedirect sends the browser to GitHub with a single-use state token.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	oc := a.oauthConfig()
	if oc.ClientID == "" {
		utils.Error(ctx, http.StatusNotFound, 40411, "github login not configured")
		return
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to create state")
		return
	}
	state := hex.EncodeToString(buf)
	if rc := utils.GetRedis(); rc != nil {
		c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rc.Set(c, "oauth:state:"+state, "1", 10*time.Minute).Err()
	}

	ctx.Redirect(http.StatusFound, oc.AuthCodeURL(state))
}

// OAuthCallback exchanges the code, resolves the GitHub profile and signs in
// (or provisions) the matching user.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	state := ctx.Query("state")
	code := ctx.Query("code")
	if state == "" || code == "" {
		utils.Error(ctx, http.StatusBadRequest, 40012, "missing code or state")
		return
	}
	if rc := utils.GetRedis(); rc != nil {
		c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Del(c, "oauth:state:"+state).Result()
		if err == nil && n == 0 {
			utils.Error(ctx, http.StatusBadRequest, 40013, "unknown or expired state")
			return
		}
	}

	oc := a.oauthConfig()
	tokCtx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()
	token, err := oc.Exchange(tokCtx, code)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "oauth exchange failed")
		return
	}

	profile, err := fetchGitHubProfile(tokCtx, oc, token)
	if err != nil {
		utils.Sugar.Warnf("github profile fetch failed: %v", err)
		utils.Error(ctx, http.StatusUnauthorized, 40113, "failed to load github profile")
		return
	}

	user, err := a.findOrCreateOAuthUser(profile)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to sign in")
		return
	}

	a.issueToken(ctx, user)
}

type githubProfile struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

func fetchGitHubProfile(ctx context.Context, oc *oauth2.Config, token *oauth2.Token) (*githubProfile, error) {
	resp, err := oc.Client(ctx, token).Get("https://api.github.com/user")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github user endpoint returned %d", resp.StatusCode)
	}
	var p githubProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, err
	}
	if p.Login == "" {
		return nil, errors.New("github profile has no login")
	}
	return &p, nil
}

func (a *AuthController) findOrCreateOAuthUser(p *githubProfile) (*models.User, error) {
	providerID := fmt.Sprintf("%d", p.ID)

	var user models.User
	err := a.db.Where("provider = ? AND provider_id = ?", "github", providerID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cfg := config.Get()
	user = models.User{
		Username:   p.Login,
		Email:      p.Email,
		Provider:   "github",
		ProviderID: providerID,
		AvatarURL:  p.AvatarURL,
	}
	for _, admin := range cfg.AdminUsernames {
		if strings.EqualFold(admin, p.Login) {
			user.IsAdmin = true
			break
		}
	}
	if err := a.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *AuthController) issueToken(ctx *gin.Context, user *models.User) {
	cfg := config.Get()
	token, err := utils.GenerateToken(user.ID, user.Username, user.IsAdmin, time.Duration(cfg.TokenTTLHours)*time.Hour)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to issue token")
		return
	}
	utils.Success(ctx, gin.H{"token": token, "user": user})
}
