package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var errNoTags = errors.New("no tag index configured (set `tags` in the config file)")

func (c maincmd) tag(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		tag    = fs.String("tag", "", "tag name")
		id     = fs.String("id", "", "object id")
		remove = fs.Bool("remove", false, "remove the tag instead of adding it")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if c.x == nil {
		return errNoTags
	}

	if *remove {
		return c.x.RemoveTag(ctx, *tag, *id)
	}
	return c.x.AddTag(ctx, *tag, *id)
}

func (c maincmd) tagged(ctx context.Context, fs *flag.FlagSet, args []string) error {
	tagstr := fs.String("tag", "", "comma-separated tags, all of which must match")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if c.x == nil {
		return errNoTags
	}

	var tags []string
	if *tagstr != "" {
		tags = strings.Split(*tagstr, ",")
	}

	ids, err := c.x.ArticlesByTags(ctx, tags)
	if err != nil {
		return err
	}
	for _, id := range ids.Sorted() {
		fmt.Println(id)
	}
	return nil
}

func (c maincmd) tags(ctx context.Context, fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if c.x == nil {
		return errNoTags
	}

	tags, err := c.x.Tags(ctx)
	if err != nil {
		return err
	}
	for _, tag := range tags {
		fmt.Println(tag)
	}
	return nil
}
