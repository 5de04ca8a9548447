// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/xtaci/stripecodec/metafile"
	"github.com/xtaci/stripecodec/session"
)

// VERSION is injected by buildflags.
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
	go sigHandler()

	myApp := cli.NewApp()
	myApp.Name = "stripe-decode"
	myApp.Usage = "striped RS(10,4) erasure-coded decoder"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "dir, d",
			Value: ".",
			Usage: "directory containing the block streams and name_meta.txt",
		},
		cli.StringFlag{
			Name:  "name, n",
			Usage: "original filename (e.g. report.pdf), used to locate name_k<II>.ext / name_meta.txt",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		name := c.String("name")
		if name == "" {
			return errors.New("stripe-decode: --name is required")
		}
		dir := c.String("dir")

		meta, err := metafile.Read(metaPath(dir, name))
		if err != nil {
			return errors.Wrap(err, "stripe-decode: reading metadata")
		}

		sess, err := session.New(meta, dir, name)
		if err != nil {
			return errors.Wrap(err, "stripe-decode: building session")
		}
		state, err := sess.DecodeFile()
		if err != nil {
			color.Red("decode failed in state %s: %v", state, err)
			return err
		}
		color.Green("decoded %s into %d byte(s), final state %s", name, meta.OrigSize, state)
		return nil
	}
	myApp.Run(os.Args)
}

func metaPath(dir, name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return filepath.Join(dir, base+"_meta.txt")
}

// sigHandler prints the active session's last published progress snapshot
// on SIGINT, mirroring the original tool's ctrl_bs_handler (spec.md §9).
func sigHandler() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT)
	for range ch {
		if p := session.CurrentProgress(); p != nil {
			log.Printf("progress: read-in %d/%d (%s)", p.Current, p.ReadIns, p.Method)
		}
		os.Exit(1)
	}
}
