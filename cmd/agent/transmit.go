package agent

import (
	"github.com/spf13/cobra"
)

func initTransmitFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.String("transmit.destination", defaultCfg.Transmit.Destination, "-> Collector URL, empty logs reports only | 上报地址，为空时仅写日志")
	f.Duration("transmit.timeout", defaultCfg.Transmit.Timeout, "-> Timeout of a single send | 单次上报超时时间")
	f.Bool("transmit.gzip", defaultCfg.Transmit.Gzip, "-> Gzip request body | 是否gzip压缩请求体")
}
