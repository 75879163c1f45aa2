// =============================================================================
// PlanFlow 主入口
// =============================================================================
// 规划 agent 服务入口，包含规划周期、结果存储、Prometheus 指标与健康检查
//
// 使用方法:
//
//	planflow run                          # 启动规划 agent
//	planflow run --config config.yaml     # 指定配置文件
//	planflow check -f plan.yaml           # 离线聚合一个工作流定义
//	planflow migrate up                   # 运行数据库迁移
//	planflow version                      # 显示版本信息
// =============================================================================

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BaSui01/planflow/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "planflow",
	Short: "Task decomposition and allocation-result aggregation engine",
	Long: `PlanFlow runs planning agents that decompose tasks into workflows,
aggregate the allocation results of their subtasks and republish the
aggregate on the parent task whenever it changes.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (YAML)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig 加载并校验配置
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader().WithValidator((*config.Config).Validate)
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
