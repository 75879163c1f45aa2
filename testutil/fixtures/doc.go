// Package fixtures 提供分配结果、任务与黑板的测试数据工厂。
package fixtures
