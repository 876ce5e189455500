package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bobg/revs"
	"github.com/bobg/revs/store"
	_ "github.com/bobg/revs/store/afs"
	_ "github.com/bobg/revs/store/file"
	_ "github.com/bobg/revs/store/gcs"
	_ "github.com/bobg/revs/store/logging"
	_ "github.com/bobg/revs/store/lru"
	_ "github.com/bobg/revs/store/mem"
	_ "github.com/bobg/revs/store/metrics"
	_ "github.com/bobg/revs/store/pg"
	_ "github.com/bobg/revs/store/sqlite3"
	"github.com/bobg/revs/tags"
)

// config is the decoded config file.
// Besides the keys read here,
// it holds the parameters of the backend type it names.
type config map[string]interface{}

// loadConfig reads a YAML config file.
// JSON is YAML, so a JSON file works too.
func loadConfig(filename string) (config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening config file %s", filename)
	}
	defer f.Close()

	var conf config
	if err = yaml.NewDecoder(f).Decode(&conf); err != nil {
		return nil, errors.Wrapf(err, "decoding config file %s", filename)
	}
	return conf, nil
}

func (conf config) build(ctx context.Context, lg *zap.Logger) (maincmd, error) {
	typ, ok := conf["type"].(string)
	if !ok {
		return maincmd{}, errors.New("config missing `type` parameter")
	}
	b, err := store.Create(ctx, typ, conf)
	if err != nil {
		return maincmd{}, errors.Wrapf(err, "creating %s-type backend", typ)
	}

	exclusive, _ := conf["exclusive"].(bool)
	workers, _, err := store.Int(conf, "workers")
	if err != nil {
		return maincmd{}, err
	}

	s, err := revs.New(revs.Config{
		Backend:   b,
		Logger:    lg,
		Exclusive: exclusive,
		Workers:   workers,
	})
	if err != nil {
		return maincmd{}, err
	}

	c := maincmd{s: s, lg: lg}

	if root, _ := conf["tags"].(string); root != "" {
		c.x, err = tags.New(tags.Config{Root: root, Logger: lg})
		if err != nil {
			return maincmd{}, errors.Wrap(err, "opening tag index")
		}
	}

	return c, nil
}
