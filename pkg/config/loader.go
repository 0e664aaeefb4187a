package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load 加载配置到 out（必须是结构体指针）
// 优先级：系统环境变量 > secrets.env > yaml 文件 > out 中已有的默认值
// yaml 文件不存在时直接使用默认值，便于本地和测试环境运行
func Load(path string, out any) error {
	if err := loadYAMLFile(path, out); err != nil {
		return err
	}

	// secrets.env 与 yaml 同目录；godotenv 不会覆盖已存在的系统环境变量
	secretsFile := filepath.Join(filepath.Dir(path), "secrets.env")
	if _, err := os.Stat(secretsFile); err == nil {
		if err := godotenv.Load(secretsFile); err != nil {
			return fmt.Errorf("failed to load secrets.env: %w", err)
		}
	}

	if err := env.Parse(out); err != nil {
		return fmt.Errorf("failed to parse env overrides: %w", err)
	}
	return nil
}

// loadYAMLFile 加载 YAML 文件
func loadYAMLFile(path string, out any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
