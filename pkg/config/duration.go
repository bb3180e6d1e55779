package config

import (
	"fmt"
	"time"
)

// Duration 支持 "30s" / "2m" 形式的 yaml 时长字段
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("时长格式错误: %w", err)
	}

	*d = Duration(duration)
	return nil
}

// Duration 转换为 time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
