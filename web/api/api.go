package api

import (
	"github.com/M0hammedHaris/snaptrace/chatlog"
	"github.com/M0hammedHaris/snaptrace/organize"
	"github.com/M0hammedHaris/snaptrace/store"
)

// API 封装了 API 处理器所需的所有依赖。
type API struct {
	Store    store.Store
	Loader   *chatlog.Loader
	Tasks    *organize.Manager
	Conf     *Config
	Password *PasswordManager
}

// Config 保存 API 层关心的静态配置。
type Config struct {
	ExportPath string
	OutputPath string
}

// NewAPI 创建一个新的 API 处理器。
func NewAPI(s store.Store, loader *chatlog.Loader, conf *Config) *API {
	return &API{
		Store:    s,
		Loader:   loader,
		Tasks:    organize.NewManager(),
		Conf:     conf,
		Password: NewPasswordManager(),
	}
}
