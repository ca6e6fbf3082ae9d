package organize

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/M0hammedHaris/snaptrace/internal/model"
	"github.com/cespare/xxhash"
	"github.com/rs/zerolog/log"
)

// unsafeChars 文件系统不安全字符, 统一替换为下划线。
var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// 原始文件已带这些后缀时直接沿用, 否则按文件名特征猜测。
var knownExts = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".avi": {}, ".mkv": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {},
	".heic": {}, ".heif": {}, ".gif": {},
}

// Committer 把匹配成功的文件落盘到目标目录结构。
// 复制永远不删除源文件。
type Committer struct {
	OutputRoot        string
	OrganizeByYear    bool
	PreserveOriginals bool
}

// Commit 将 srcPath 复制到 "<输出>/<联系人>[/<年份>]/<生成文件名>"。
// 年份取匹配消息的 UTC 年份, 而非文件自身时间。返回目标路径。
func (c *Committer) Commit(srcPath string, msg *model.LoggedMessage, score float64) (string, error) {
	contact := SanitizeContact(msg.Contact)

	targetDir := filepath.Join(c.OutputRoot, contact)
	if c.OrganizeByYear {
		targetDir = filepath.Join(targetDir, strconv.Itoa(msg.SentAt.UTC().Year()))
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("创建目标目录失败: %w", err)
	}

	origName := filepath.Base(srcPath)
	ext := resolveExt(origName)

	// 标识可用时基于标识生成指纹, 否则退回原始文件名
	idSource := msg.MediaID
	if idSource == "" {
		idSource = origName
	}
	base := fmt.Sprintf("%s_%s_%s",
		msg.SentAt.UTC().Format("20060102_150405"),
		shortHash(contact, 6),
		shortHash(idSource, 8),
	)

	destPath := uniquePath(targetDir, base, ext)
	if err := copyFile(srcPath, destPath); err != nil {
		return "", err
	}

	if c.PreserveOriginals {
		// 边车文件写失败不影响主复制
		if err := writeSidecar(destPath, origName, msg, score); err != nil {
			log.Error().Err(err).Str("file", origName).Msg("写入元数据边车失败")
		}
	}

	log.Debug().Str("src", origName).Str("dest", destPath).Msg("文件已归档")
	return destPath, nil
}

// SanitizeContact 去掉联系人名中的文件系统不安全字符。
func SanitizeContact(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// resolveExt 沿用可识别的原始后缀, 否则按文件名子串猜测。
func resolveExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := knownExts[ext]; ok {
		return ext
	}
	return GuessExtension(filename)
}

// GuessExtension 按 Snapchat 导出的命名惯例猜测媒体类型。
func GuessExtension(filename string) string {
	switch {
	case strings.Contains(filename, "media~"), strings.Contains(filename, ".mp4"), strings.Contains(filename, "b~"):
		return ".mp4"
	case strings.Contains(filename, "thumbnail~"), strings.Contains(filename, ".jpg"):
		return ".jpg"
	case strings.Contains(filename, "overlay~"):
		if strings.Contains(filename, ".webp") {
			return ".webp"
		}
		return ".png"
	}
	return ".unknown"
}

// uniquePath 在 base 与扩展名之间追加递增计数直到没有冲突。
func uniquePath(dir, base, ext string) string {
	path := filepath.Join(dir, base+ext)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, counter, ext))
	}
}

// shortHash 返回输入的 xxhash 十六进制前缀。
func shortHash(s string, hexLen int) string {
	sum := fmt.Sprintf("%016x", xxhash.Sum64String(s))
	return sum[:hexLen]
}

// copyFile 非破坏性复制并保留源文件的修改时间。
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("打开源文件失败: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("创建目标文件失败: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("复制文件失败: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("关闭目标文件失败: %w", err)
	}

	if info, err := os.Stat(src); err == nil {
		_ = os.Chtimes(dest, info.ModTime(), info.ModTime())
	}
	return nil
}

// writeSidecar 在目标文件旁记录原始文件名与匹配元数据。
func writeSidecar(destPath, origName string, msg *model.LoggedMessage, score float64) error {
	rawID := msg.RawMediaID
	if len(rawID) > 80 {
		rawID = rawID[:80] + "..."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "original: %s\n", origName)
	fmt.Fprintf(&sb, "score: %.3f\n", score)
	fmt.Fprintf(&sb, "contact: %s\n", msg.Contact)
	fmt.Fprintf(&sb, "timestamp: %s\n", msg.SentAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&sb, "direction: %s\n", msg.Direction())
	fmt.Fprintf(&sb, "saved: %t\n", msg.IsSaved)
	fmt.Fprintf(&sb, "media_id: %s\n", rawID)
	return os.WriteFile(destPath+".meta.txt", []byte(sb.String()), 0644)
}
