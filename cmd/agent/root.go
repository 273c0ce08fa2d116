package agent

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/telemetry-agent/pkg/config"
	"github.com/telemetry-agent/pkg/util"
)

const projectName = "telemetry-agent"

var (
	cfgFile    string
	defaultCfg = config.NewDefaultConfig()
)

var rootCmd = &cobra.Command{
	Use:   projectName,
	Short: "Periodic host telemetry agent (CPU/memory/process/disk I/O) | 周期性主机遥测代理",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithCli(cmd)
		if err != nil {
			// 统一输出错误到 stderr
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Fprintf(os.Stderr, "请检查配置文件路径或使用 -c 参数指定\n")
			os.Exit(1)
		}
		util.PrintBanner(cmd.OutOrStdout(), projectName, "ColorBlue",
			fmt.Sprintf("period=%s destination=%q", cfg.Monitor.Interval, cfg.Transmit.Destination))
		if err := runServer(cmd.Context(), cfg); err != nil {
			fmt.Fprintf(os.Stderr, "服务启动失败: %v\n", err)
			os.Exit(1)
		}
		return nil
	},
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "-> Config file path (YAML) | 配置文件路径")
	// 注册分组 flag
	initServerFlags(rootCmd)
	initMonitorFlags(rootCmd)
	initTransmitFlags(rootCmd)
	initLogFlags(rootCmd)

	rootCmd.AddCommand(newSnapshotCmd())
}
