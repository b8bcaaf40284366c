package providers

import "time"

// ClaudeConfig Claude Provider 配置
type ClaudeConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// SDKRetries 透传给 SDK 的重试次数。任务级重试由执行器负责，默认 0。
	SDKRetries int `json:"sdk_retries,omitempty" yaml:"sdk_retries,omitempty"`
}
