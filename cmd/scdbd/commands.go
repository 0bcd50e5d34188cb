package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

type replayCmd struct {
	Start int32 `long:"start" description:"Height of the first block in the file (default: one past the SCDB)" default:"-1"`
	Args  struct {
		File string `positional-arg-name:"file" required:"yes"`
	} `positional-args:"yes"`
}

func (c *replayCmd) Execute(_ []string) error {
	node, err := openNode()
	if err != nil {
		return err
	}
	defer node.Close()

	f, err := os.Open(c.Args.File)
	if err != nil {
		return err
	}
	defer f.Close()

	start := c.Start
	if start < 0 {
		start = node.SCDB().Height() + 1
	}

	// stop between blocks on a signal
	quit := handleIntSig()
	r := &quitReader{r: f, quit: quit}

	count, err := node.ReplayBlocks(r, cfg.Params().Net.Net, start)
	fmt.Printf("connected %d blocks, SCDB at height %d hash %s\n",
		count, node.SCDB().Height(), node.SCDB().GetSCDBHash())
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

var errQuit = errors.New("quit")

// quitReader stops reading once quit is closed.
type quitReader struct {
	r    io.Reader
	quit chan struct{}
}

func (q *quitReader) Read(p []byte) (int, error) {
	select {
	case <-q.quit:
		return 0, errQuit
	default:
	}
	return q.r.Read(p)
}

type stateCmd struct {
	Sidechain int  `short:"s" long:"sidechain" description:"Only show this sidechain" default:"-1"`
	Approved  bool `long:"approved" description:"Also list WT^s approved in earlier periods"`
}

func (c *stateCmd) Execute(_ []string) error {
	node, err := openNode()
	if err != nil {
		return err
	}
	defer node.Close()

	db := node.SCDB()
	params := db.Params()
	fmt.Printf("height %d hash %s\n", db.Height(), db.GetSCDBHash())
	for _, sc := range params.Sidechains {
		if c.Sidechain >= 0 && int(sc.Index) != c.Sidechain {
			continue
		}
		fmt.Printf("%s:\n", sc)
		for _, wt := range db.GetState(sc.Index) {
			fmt.Printf("\t%s score %d/%d left %d approved %v\n",
				wt.WTPrime, wt.WorkScore, params.MinWorkScore,
				wt.BlocksLeft, wt.WorkScore >= params.MinWorkScore)
		}
	}
	if c.Approved {
		fmt.Printf("approved in earlier periods:\n")
		for _, wt := range db.GetApproved() {
			fmt.Printf("\t%s %s\n", params.Name(wt.Sidechain), wt.WTPrime)
		}
	}
	return nil
}

type approvedCmd struct {
	Args struct {
		Sidechain uint8  `positional-arg-name:"sidechain" required:"yes"`
		WTPrime   string `positional-arg-name:"wtprime" required:"yes"`
	} `positional-args:"yes"`
}

func (c *approvedCmd) Execute(_ []string) error {
	hash, err := chainhash.NewHashFromStr(c.Args.WTPrime)
	if err != nil {
		return err
	}
	node, err := openNode()
	if err != nil {
		return err
	}
	defer node.Close()

	fmt.Println(node.SCDB().CheckWorkScore(c.Args.Sidechain, *hash))
	return nil
}

type digestCmd struct {
	Height int32 `long:"height" description:"Show the hash saved for this height instead of the current one" default:"-1"`
}

func (c *digestCmd) Execute(_ []string) error {
	node, err := openNode()
	if err != nil {
		return err
	}
	defer node.Close()

	if c.Height < 0 {
		fmt.Println(node.SCDB().GetSCDBHash())
		return nil
	}
	hash, ok, err := node.DigestAt(c.Height)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no SCDB hash saved for height %d", c.Height)
	}
	fmt.Println(hash)
	return nil
}

type resetCmd struct{}

func (c *resetCmd) Execute(_ []string) error {
	node, err := openNode()
	if err != nil {
		return err
	}
	defer node.Close()
	return node.ResetSCDB()
}
