package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bobg/revs"
)

func (c maincmd) put(ctx context.Context, fs *flag.FlagSet, args []string) error {
	data := fs.String("data", "", "JSON object to store (default: read from stdin)")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	var in io.Reader = os.Stdin
	if *data != "" {
		in = bytes.NewBufferString(*data)
	}

	rec, err := decodeInput(in)
	if err != nil {
		return err
	}

	put, err := c.s.Put(ctx, rec)
	if err != nil {
		return errors.Wrap(err, "storing object")
	}

	rev, _, _ := put.Rev()
	c.lg.Info("stored", zap.String("id", put.ID()), zap.Int64("rev", rev), zap.String("uid", put.UID()))
	return nil
}

func decodeInput(r io.Reader) (revs.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var rec revs.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, errors.Wrap(err, "decoding input")
	}
	return rec, nil
}
