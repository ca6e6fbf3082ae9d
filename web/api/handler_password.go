package api

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/M0hammedHaris/snaptrace/web/transport"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// PasswordManager 管理密码保护的已验证会话。
type PasswordManager struct {
	mu       sync.Mutex
	sessions map[string]bool // token -> valid
}

// NewPasswordManager 创建密码管理器。
func NewPasswordManager() *PasswordManager {
	return &PasswordManager{sessions: make(map[string]bool)}
}

func (pm *PasswordManager) newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// AddSession 记录一个已验证的会话 token。
func (pm *PasswordManager) AddSession(token string) {
	pm.mu.Lock()
	pm.sessions[token] = true
	pm.mu.Unlock()
}

// IsValidSession 检查 token 是否有效。
func (pm *PasswordManager) IsValidSession(token string) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.sessions[token]
}

// ClearSessions 使所有会话失效。
func (pm *PasswordManager) ClearSessions() {
	pm.mu.Lock()
	pm.sessions = make(map[string]bool)
	pm.mu.Unlock()
}

// GetPasswordStatus 返回密码保护是否启用及当前会话状态。
func (a *API) GetPasswordStatus(c *gin.Context) {
	hash := viper.GetString("PASSWORD_HASH")
	enabled := hash != ""

	locked := false
	if enabled {
		token := c.GetHeader("X-Auth-Token")
		if token == "" {
			token, _ = c.Cookie("auth_token")
		}
		locked = !a.Password.IsValidSession(token)
	}
	transport.SendSuccess(c, gin.H{"enabled": enabled, "is_locked": locked})
}

// SetPassword 设置或修改访问密码, 修改需要提供旧密码。
func (a *API) SetPassword(c *gin.Context) {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		transport.BadRequest(c, "参数错误")
		return
	}
	if len(req.NewPassword) < 4 {
		transport.BadRequest(c, "密码长度不能少于4位")
		return
	}

	if existing := viper.GetString("PASSWORD_HASH"); existing != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(existing), []byte(req.OldPassword)); err != nil {
			transport.BadRequest(c, "旧密码错误")
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		transport.InternalServerError(c, "密码加密失败")
		return
	}
	viper.Set("PASSWORD_HASH", string(hash))
	if err := viper.WriteConfig(); err != nil {
		transport.InternalServerError(c, "保存配置失败: "+err.Error())
		return
	}

	// 要求所有客户端重新验证
	a.Password.ClearSessions()
	transport.SendSuccess(c, gin.H{"status": "password_set"})
}

// VerifyPassword 验证密码并签发会话 token。
func (a *API) VerifyPassword(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		transport.BadRequest(c, "参数错误")
		return
	}

	hash := viper.GetString("PASSWORD_HASH")
	if hash == "" {
		transport.BadRequest(c, "未设置密码")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		transport.BadRequest(c, "密码错误")
		return
	}

	token, err := a.Password.newToken()
	if err != nil {
		transport.InternalServerError(c, "生成会话失败")
		return
	}
	a.Password.AddSession(token)
	c.SetCookie("auth_token", token, 86400, "/", "", false, false)

	transport.SendSuccess(c, gin.H{"status": "unlocked", "token": token})
}

// DisablePassword 验证后关闭密码保护。
func (a *API) DisablePassword(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		transport.BadRequest(c, "参数错误")
		return
	}

	hash := viper.GetString("PASSWORD_HASH")
	if hash == "" {
		transport.BadRequest(c, "未设置密码")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		transport.BadRequest(c, "密码错误")
		return
	}

	viper.Set("PASSWORD_HASH", "")
	if err := viper.WriteConfig(); err != nil {
		transport.InternalServerError(c, "保存配置失败: "+err.Error())
		return
	}
	a.Password.ClearSessions()
	transport.SendSuccess(c, gin.H{"status": "disabled"})
}
