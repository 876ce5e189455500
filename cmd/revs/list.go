package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"
)

func (c maincmd) list(ctx context.Context, fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	ids, err := c.s.List(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func (c maincmd) clean(ctx context.Context, fs *flag.FlagSet, args []string) error {
	id := fs.String("id", "", "id of object to clean (default: all)")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	deleted, err := c.s.Clean(ctx, *id)
	for _, path := range deleted {
		fmt.Println(path)
	}
	return err
}
