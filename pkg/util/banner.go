package util

import (
	"fmt"
	"io"
	"strings"

	"github.com/common-nighthawk/go-figure"
)

// ANSI 颜色
const (
	ColorReset  = "\x1b[0m"
	ColorRed    = "\x1b[1;31m"
	ColorGreen  = "\x1b[1;32m"
	ColorYellow = "\x1b[1;33m"
	ColorBlue   = "\x1b[1;34m"
	ColorCyan   = "\x1b[1;36m"
)

var colors = map[string]string{
	"ColorRed":    ColorRed,
	"ColorGreen":  ColorGreen,
	"ColorYellow": ColorYellow,
	"ColorBlue":   ColorBlue,
	"ColorCyan":   ColorCyan,
}

// Banner 渲染 ASCII banner，未知颜色名不着色
func Banner(text, color string) string {
	ansi, ok := colors[color]
	var sb strings.Builder
	for _, line := range figure.NewFigure(text, "", true).Slicify() {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if ok {
			sb.WriteString(ansi + line + ColorReset)
		} else {
			sb.WriteString(line)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// PrintBanner 输出 banner 与一行运行摘要
func PrintBanner(w io.Writer, text, color, summary string) {
	fmt.Fprint(w, Banner(text, color))
	if summary != "" {
		fmt.Fprintln(w, summary)
	}
}
