package tracer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fansqz/go-tracer/constants"
	"github.com/sirupsen/logrus"
)

// FoldPolicy 文件名比较前的规范化策略
type FoldPolicy interface {
	Fold(file string) string
}

type caseSensitive struct{}

func (caseSensitive) Fold(file string) string { return file }

type lowerCase struct{}

func (lowerCase) Fold(file string) string { return strings.ToLower(file) }

var (
	// CaseSensitive 不做任何转换
	CaseSensitive FoldPolicy = caseSensitive{}
	// LowerCase 适用于不区分大小写的文件系统
	LowerCase FoldPolicy = lowerCase{}
)

// NewFoldPolicy 根据配置创建策略
func NewFoldPolicy(t constants.CaseFoldType) FoldPolicy {
	switch t {
	case constants.CaseFoldLower:
		return LowerCase
	case constants.CaseFoldNone:
		return CaseSensitive
	default:
		return AutoFold()
	}
}

// AutoFold 探测临时目录所在的文件系统是否区分大小写
func AutoFold() FoldPolicy {
	if caseSensitiveFileSystem() {
		return CaseSensitive
	}
	return LowerCase
}

func caseSensitiveFileSystem() bool {
	dir, err := os.MkdirTemp("", "tracer-fold")
	if err != nil {
		logrus.Warnf("[AutoFold] mkdir temp fail, err = %v", err)
		return true
	}
	defer os.RemoveAll(dir)

	if err = os.WriteFile(filepath.Join(dir, "one"), []byte("one"), 0o644); err != nil {
		return true
	}
	if err = os.WriteFile(filepath.Join(dir, "ONE"), []byte("ONE"), 0o644); err != nil {
		return true
	}
	data, err := os.ReadFile(filepath.Join(dir, "one"))
	if err != nil {
		return true
	}
	return string(data) != "ONE"
}
