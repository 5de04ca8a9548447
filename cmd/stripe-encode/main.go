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
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

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
	myApp.Name = "stripe-encode"
	myApp.Usage = "striped RS(10,4) erasure-coded encoder"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "input, i",
			Usage: "file to encode",
		},
		cli.IntFlag{
			Name:  "synthetic-size, s",
			Usage: "generate this many bytes of random input instead of reading --input (benchmark/fuzz convenience)",
		},
		cli.StringFlag{
			Name:  "outdir, o",
			Value: ".",
			Usage: "directory to write the 14 block streams and name_meta.txt into",
		},
		cli.IntFlag{
			Name:  "k",
			Value: 10,
			Usage: "data node count (only 10 is supported by the pairing transform)",
		},
		cli.IntFlag{
			Name:  "m",
			Value: 4,
			Usage: "parity node count (only 4 is supported by the pairing transform)",
		},
		cli.IntFlag{
			Name:  "packetsize, p",
			Value: 1024,
			Usage: "block size in bytes",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		input := c.String("input")
		syntheticSize := c.Int("synthetic-size")
		if input == "" && syntheticSize == 0 {
			return errors.New("stripe-encode: one of --input or --synthetic-size is required")
		}

		var data []byte
		var name string
		if syntheticSize > 0 {
			data = make([]byte, syntheticSize)
			rand.New(rand.NewSource(time.Now().UnixNano())).Read(data)
			name = "synthetic.bin"
			color.Yellow("generated %d bytes of synthetic input", syntheticSize)
		} else {
			b, err := os.ReadFile(input)
			if err != nil {
				return errors.Wrap(err, "stripe-encode: reading input")
			}
			data = b
			name = filepath.Base(input)
		}

		meta := metafile.Meta{
			K:          c.Int("k"),
			M:          c.Int("m"),
			W:          8,
			PacketSize: c.Int("packetsize"),
			BufferSize: c.Int("packetsize") * session.SubStripes * c.Int("k"),
		}

		sess, err := session.New(meta, c.String("outdir"), name)
		if err != nil {
			return errors.Wrap(err, "stripe-encode: building session")
		}
		if err := sess.EncodeFile(data); err != nil {
			return errors.Wrap(err, "stripe-encode: encoding")
		}
		color.Green("encoded %s (%d bytes) into %s, %d read-in(s)", name, len(data), c.String("outdir"), sess.Meta.ReadIns)
		return nil
	}
	myApp.Run(os.Args)
}

// sigHandler prints the active session's last published progress snapshot
// on SIGINT, mirroring the original tool's ctrl_bs_handler (spec.md §9)
// without relying on process globals.
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
