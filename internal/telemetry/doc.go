// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为工作流调度、任务执行与流式会话的 span 和计数器提供
// TracerProvider 与 MeterProvider。禁用时保持 noop 实现，不连接任何外部服务。
package telemetry
