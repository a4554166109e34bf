package generator

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var embeddedFallback []byte

// LoadFallback 读取固定任务集，path 为空时使用内置文件
func LoadFallback(path string) (*Batch, error) {
	data := embeddedFallback
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fallback missions %s: %w", path, err)
		}
		data = raw
	}

	var batch Batch
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("parse fallback missions: %w", err)
	}
	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fallback missions: %w", err)
	}
	return &batch, nil
}

// MustLoadFallback 内置文件校验失败属于构建错误
func MustLoadFallback(path string) *Batch {
	batch, err := LoadFallback(path)
	if err != nil {
		panic(err)
	}
	return batch
}
