// Command localflow is the CLI entry point: serve starts the HTTP/WS
// transports, run executes one workflow headlessly, validate checks a
// config file, version prints build info. Structured the way the
// teacher's cmd/hector/main.go lays out its kong CLI.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/localflow/core"
	"github.com/localflow/core/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP and WebSocket transports."`
	Run      RunCmd      `cmd:"" help:"Execute one workflow document and print its result."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config string `short:"c" help:"Path to the YAML config file." type:"path" default:"config.yaml"`
}

// VersionCmd prints the build identification string.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(core.GetVersion().String())
	return nil
}

func main() {
	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("localflow"),
		kong.Description("Local AI workflow automation engine"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
	if err != nil {
		os.Exit(1)
	}
}
