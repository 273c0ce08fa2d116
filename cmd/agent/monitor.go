package agent

import (
	"github.com/spf13/cobra"
)

func initMonitorFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.Duration("monitor.interval", defaultCfg.Monitor.Interval, "-> Reporting period [1s,3600s] | 上报周期")
	f.Duration("monitor.resolution", defaultCfg.Monitor.Resolution, "-> Stop check resolution | 停止信号检查粒度")
	f.StringSlice("monitor.ignore_disks", defaultCfg.Monitor.IgnoreDisks, "-> Disk name prefixes to skip (e.g. loop,ram) | 忽略磁盘")
}
