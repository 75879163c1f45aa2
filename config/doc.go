// Package config 提供 PlanFlow 的配置管理功能。
//
// 包含配置加载（默认值 → YAML → 环境变量）、校验、
// 基于 fsnotify 的文件监听与规划参数热重载。
package config
