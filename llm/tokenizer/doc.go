// Package tokenizer 提供 Token 计数：tiktoken 精确计数与 CJK 感知的字符估算器。
// UsageEstimator 在 Provider 未返回 usage 时补全 TaskResult 的 Token 统计。
package tokenizer
