package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"
	"github.com/mit-dci/sidechaindb/scnode"
)

var cfg = scnode.DefaultConfig()

func main() {
	parser := flags.NewParser(cfg, flags.Default)
	parser.SubcommandsOptional = false

	commands := []struct {
		name, short, long string
		data              interface{}
	}{
		{"replay", "Feed blocks from a blk*.dat style file into the SCDB",
			"Reads network magic, size and block records and connects them in order.",
			&replayCmd{}},
		{"state", "Print the active WT^s", "", &stateCmd{}},
		{"approved", "Check if a WT^ is approved", "", &approvedCmd{}},
		{"digest", "Print the SCDB hash", "", &digestCmd{}},
		{"reset", "Throw away the SCDB", "", &resetCmd{}},
	}
	for _, c := range commands {
		_, err := parser.AddCommand(c.name, c.short, c.long, c.data)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}

	_, err := parser.Parse()
	scnode.CloseLog()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

// openNode finishes the config and opens the node.
func openNode() (*scnode.Node, error) {
	if err := cfg.Finish(); err != nil {
		return nil, err
	}
	return scnode.New(cfg)
}

// handleIntSig returns a channel that is closed on SIGINT, SIGTERM or
// SIGQUIT.
func handleIntSig() chan struct{} {
	quit := make(chan struct{})
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	go func() {
		<-s
		fmt.Println("User exit signal received. Exiting...")
		close(quit)
	}()
	return quit
}
