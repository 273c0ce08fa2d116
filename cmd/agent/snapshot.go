package agent

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	agentloop "github.com/telemetry-agent/pkg/agent"
	"github.com/telemetry-agent/pkg/collector"
	"github.com/telemetry-agent/pkg/config"
	"github.com/telemetry-agent/pkg/report"
	"github.com/telemetry-agent/pkg/transmit"
)

// newSnapshotCmd 采集一次并把报告打印到标准输出，不启动循环
func newSnapshotCmd() *cobra.Command {
	var (
		static bool
		pretty bool
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Collect once and print the report | 采集一次并打印报告",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfigWithCli(cmd)
			if err != nil {
				return err
			}
			var provider agentloop.Provider = collector.NewHostCollector(cfg.Monitor.IgnoreDisks)
			if static {
				provider = collector.NewStaticCollector(collector.Readings{
					CPUPercent:       10,
					UsedMemory:       100,
					TotalMemory:      101,
					ProcessCount:     50,
					DiskBytesRead:    102,
					DiskBytesWritten: 103,
				})
			}

			loop, err := agentloop.New(time.Second, provider, transmit.NewLog())
			if err != nil {
				return err
			}
			record, err := loop.Collect()
			if err != nil {
				return fmt.Errorf("collect: %w", err)
			}
			return printDocument(cmd, report.Build(record), pretty)
		},
	}
	cmd.Flags().BoolVar(&static, "static", false, "-> Use fixed sample readings instead of the host | 使用固定样例读数")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "-> Indent JSON output | 格式化输出")
	return cmd
}

func printDocument(cmd *cobra.Command, doc report.Document, pretty bool) error {
	var (
		b   []byte
		err error
	)
	if pretty {
		b, err = json.MarshalIndent(doc, "", "  ")
	} else {
		b, err = json.Marshal(doc)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
