package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/M0hammedHaris/snaptrace/chatlog"
	"github.com/M0hammedHaris/snaptrace/store"
	"github.com/M0hammedHaris/snaptrace/web"
	"github.com/spf13/viper"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// --- 加载配置 ---
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// 文件不存在，尝试创建默认配置
			if err := viper.SafeWriteConfig(); err != nil {
				log.Printf("无法创建默认 .env 文件: %v", err)
			} else {
				log.Println("已自动创建并初始化 .env 配置文件")
			}
		} else {
			log.Printf("注意: 读取 .env 文件出错: %v. 将使用默认值或环境变量。", err)
		}
	}

	// --- 配置 ---
	// exportPath 是 Snapchat 导出数据的根目录 (包含 chat_history 与 chat_media*)。
	exportPath := viper.GetString("EXPORT_PATH")
	if exportPath == "" {
		exportPath = "export"
	}

	outputPath := viper.GetString("OUTPUT_PATH")
	if outputPath == "" {
		outputPath = "organized"
	}

	// 端口配置：优先使用 LISTEN_ADDR，其次使用 PORT，最后默认 127.0.0.1:5300
	listenAddr := viper.GetString("LISTEN_ADDR")
	port := viper.GetString("PORT")
	if listenAddr == "" {
		if port != "" {
			listenAddr = "127.0.0.1:" + port
		} else {
			listenAddr = "127.0.0.1:5300"
		}
	}

	dbPath := viper.GetString("DB_PATH")
	if dbPath == "" {
		dbPath = "snaptrace.db"
	}

	log.Printf("使用导出目录: %s", exportPath)

	// 确保输出目录存在
	if err := os.MkdirAll(outputPath, 0755); err != nil {
		log.Fatalf("创建输出目录失败: %v", err)
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("创建数据库目录失败: %v", err)
		}
	}

	// --- 初始化运行历史 Store ---
	newStore, err := store.NewStore(dbPath)
	if err != nil {
		log.Fatalf("初始化 store 失败: %v", err)
	}
	defer newStore.Close()
	log.Println("Store 初始化成功。")

	// --- 聊天记录索引: 延迟加载 + 目录监听 ---
	loader := chatlog.NewLoader(exportPath)
	if _, err := os.Stat(exportPath); err == nil {
		watcher, err := chatlog.NewWatcher(exportPath, loader)
		if err != nil {
			log.Printf("无法监听导出目录: %v", err)
		} else {
			watcher.Start()
			defer watcher.Stop()
		}
	} else {
		log.Printf("导出目录尚不存在: %s (可稍后通过 API 配置)", exportPath)
	}

	// --- 初始化 Web 服务 ---
	webConf := web.Config{
		ListenAddr: listenAddr,
		ExportPath: exportPath,
		OutputPath: outputPath,
	}
	webService := web.NewService(newStore, loader, &webConf)

	// --- 启动服务 ---
	if err := webService.Start(); err != nil {
		log.Fatalf("启动 web 服务失败: %v", err)
	}
	log.Printf("服务已启动: http://%s", listenAddr)

	// --- 等待中断信号以实现优雅关闭 ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("接收到关闭信号，正在关闭服务...")

	// --- 关闭服务 ---
	if err := webService.Stop(); err != nil {
		log.Fatalf("关闭 web 服务时出错: %v", err)
	}
	log.Println("服务已成功关闭。")
}
