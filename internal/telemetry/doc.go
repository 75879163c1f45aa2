// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为规划引擎提供集中式的 TracerProvider 和 MeterProvider 配置。
// 规划周期通过 Tracer 创建 span；遥测关闭时使用 noop 实现。
package telemetry
