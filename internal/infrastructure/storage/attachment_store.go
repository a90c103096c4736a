package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatbridge/chatbridge/pkg/errors"
)

// Store 附件存储: 上传目录下的平面文件集合
//
// 文件名在保存时做白名单校验与清洗, 并用高精度时间戳前缀去重;
// 之后仅以保存名被消息行引用。
type Store struct {
	dir     string
	allowed map[string]struct{}
	logger  *zap.Logger
	now     func() time.Time
}

// NewStore 创建附件存储, 不存在的目录会被创建
func NewStore(dir string, allowedExts []string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	allowed := make(map[string]struct{}, len(allowedExts))
	for _, ext := range allowedExts {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}

	return &Store{
		dir:     dir,
		allowed: allowed,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Save 校验并持久化一个上传文件, 返回保存名。
//
// 空文件名与白名单之外的扩展名返回 INVALID_INPUT; 磁盘故障返回 INTERNAL。
func (s *Store) Save(clientName string, r io.Reader) (string, error) {
	if clientName == "" {
		return "", errors.NewInvalidInputError("no selected file")
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(clientName), "."))
	if _, ok := s.allowed[ext]; !ok {
		return "", errors.NewInvalidInputError("file type not allowed")
	}

	safe := sanitizeFilename(filepath.Base(clientName))
	if !strings.HasSuffix(strings.ToLower(safe), "."+ext) ||
		strings.TrimSuffix(strings.ToLower(safe), "."+ext) == "" {
		// 清洗后名字残缺, 退回随机名
		safe = uuid.NewString() + "." + ext
	}

	storedName := fmt.Sprintf("%d_%s", s.now().UnixNano(), safe)
	path := filepath.Join(s.dir, storedName)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.NewInternalErrorWithCause("failed to create attachment file", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", errors.NewInternalErrorWithCause("failed to write attachment file", err)
	}

	s.logger.Debug("Attachment stored",
		zap.String("client_name", clientName),
		zap.String("stored_name", storedName),
	)

	return storedName, nil
}

// Path 将保存名解析为磁盘路径, 供下载端点使用。
// 拒绝路径穿越; 文件不存在返回 NOT_FOUND。
func (s *Store) Path(storedName string) (string, error) {
	if storedName == "" || storedName != filepath.Base(storedName) || strings.Contains(storedName, "..") {
		return "", errors.NewInvalidInputError("invalid file name")
	}

	path := filepath.Join(s.dir, storedName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewNotFoundError("file not found")
		}
		return "", errors.NewInternalErrorWithCause("failed to stat attachment file", err)
	}

	return path, nil
}

// sanitizeFilename keeps letters, digits, dot, dash and underscore; everything
// else (path separators included) collapses to underscore.
func sanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
