// Command revs is a CLI interface to a revisioned object store and its tag index.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bobg/subcmd"
	"go.uber.org/zap"

	"github.com/bobg/revs"
	"github.com/bobg/revs/tags"
)

type maincmd struct {
	s  *revs.Store
	x  *tags.Index
	lg *zap.Logger
}

func main() {
	var (
		config  = flag.String("config", "revs.yaml", "path to config file")
		verbose = flag.Bool("v", false, "verbose (debug) logging")
	)
	flag.Parse()

	lg, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Creating logger: %s\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	zap.ReplaceGlobals(lg)

	if *config == "" {
		lg.Fatal("config value not set")
	}

	ctx := context.Background()

	conf, err := loadConfig(*config)
	if err != nil {
		lg.Fatal("loading config", zap.String("file", *config), zap.Error(err))
	}
	c, err := conf.build(ctx, lg)
	if err != nil {
		lg.Fatal("building store", zap.String("file", *config), zap.Error(err))
	}

	if err = subcmd.Run(ctx, c, flag.Args()); err != nil {
		lg.Fatal("running command", zap.Error(err))
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func (c maincmd) Subcmds() map[string]subcmd.Subcmd {
	return map[string]subcmd.Subcmd{
		"clean":     c.clean,
		"get":       c.get,
		"has":       c.has,
		"list":      c.list,
		"put":       c.put,
		"rev":       c.rev,
		"revisions": c.revisions,
		"tag":       c.tag,
		"tagged":    c.tagged,
		"tags":      c.tags,
	}
}
