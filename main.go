package main

import (
	"github.com/tanpawarit/databricks-agent-toolkit/cmd"
	_ "github.com/tanpawarit/databricks-agent-toolkit/pkg/logger/autoload"
)

func main() {
	cmd.Execute()
}
