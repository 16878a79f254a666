package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// CLI binds the subcommands; shared options live on the opts structs each
// command embeds.
var CLI struct {
	Worker  optsWorker  `command:"worker" description:"Run the build job worker"`
	Enqueue optsEnqueue `command:"enqueue" description:"Push a build job onto the shared queue"`
	Status  optsStatus  `command:"status" description:"Show the status record for a job"`
}

func main() {
	// .env is optional; absence is not an error
	_ = godotenv.Load()

	var parser = flags.NewParser(&CLI, flags.Default)
	if _, err := parser.Parse(); err != nil {
		switch flagsErr := err.(type) {
		case flags.ErrorType:
			if flagsErr == flags.ErrHelp {
				os.Exit(0)
			}
			os.Exit(1)
		default:
			os.Exit(1)
		}
	}
}
