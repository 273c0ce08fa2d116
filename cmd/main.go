package main

import (
	"github.com/telemetry-agent/cmd/agent"
)

func main() {
	agent.Execute()
}
