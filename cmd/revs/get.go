package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

func (c maincmd) get(ctx context.Context, fs *flag.FlagSet, args []string) error {
	id := fs.String("id", "", "id of object to get")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	rec, err := c.s.Get(ctx, *id)
	if err != nil {
		return errors.Wrapf(err, "getting %s", *id)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(rec), "writing object to stdout")
}

func (c maincmd) has(ctx context.Context, fs *flag.FlagSet, args []string) error {
	id := fs.String("id", "", "id of object to check")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	ok, err := c.s.Has(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Println(ok)
	return nil
}

func (c maincmd) rev(ctx context.Context, fs *flag.FlagSet, args []string) error {
	id := fs.String("id", "", "id of object")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	n, err := c.s.LatestRevisionNumber(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Println(n)
	return nil
}

func (c maincmd) revisions(ctx context.Context, fs *flag.FlagSet, args []string) error {
	id := fs.String("id", "", "id of object")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	names, err := c.s.Revisions(ctx, *id)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
