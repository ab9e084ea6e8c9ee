package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"

	"github.com/zipvfs/zipvfs/internal/config"
	"github.com/zipvfs/zipvfs/internal/logging"
	"github.com/zipvfs/zipvfs/pkg/vfszip"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

type rootCli struct {
	config.Cli

	Ls   lsCmd   `kong:"cmd,help='List children of an archive path.'"`
	Cat  catCmd  `kong:"cmd,help='Stream an entry to stdout.'"`
	Stat statCmd `kong:"cmd,help='Print metadata about an archive path as JSON.'"`
}

type lsCmd struct {
	Path string `kong:"arg,required,name=path,help='Archive path, e.g. ./outer.jar/lib/inner.jar/a'"`
}

type catCmd struct {
	Path string `kong:"arg,required,name=path,help='Archive path to an entry.'"`
}

type statCmd struct {
	Path string `kong:"arg,required,name=path,help='Archive path.'"`
}

// resolve turns a filesystem path that may run through one or more
// not-yet-mounted archives into a handler, via PartialPathSearch followed
// by an ordinary child-by-child walk of whatever remainder it returns.
func resolve(path string) (vfszip.VirtualFileHandler, error) {
	ctx, inner, err := vfszip.PartialPathSearch(path, vfszip.Options{})
	if err != nil {
		return nil, err
	}
	h, err := ctx.Root()
	if err != nil {
		return nil, err
	}
	if inner == "" {
		return h, nil
	}
	for _, seg := range strings.Split(inner, "/") {
		if seg == "" {
			continue
		}
		h, err = h.Child(seg)
		if err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (c *lsCmd) Run() error {
	h, err := resolve(c.Path)
	if err != nil {
		return err
	}
	leaf, err := h.IsLeaf()
	if err != nil {
		return err
	}
	if leaf {
		fmt.Println(h.Name())
		return nil
	}
	children, err := h.Children(false)
	if err != nil {
		return err
	}
	for _, child := range children {
		fmt.Println(child.Name())
	}
	return nil
}

func (c *catCmd) Run() error {
	h, err := resolve(c.Path)
	if err != nil {
		return err
	}
	rc, err := h.OpenStream()
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(os.Stdout, rc)
	return err
}

type statOutput struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Kind         string    `json:"kind"`
	IsLeaf       bool      `json:"isLeaf"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	URI          string    `json:"uri"`
}

func (c *statCmd) Run() error {
	h, err := resolve(c.Path)
	if err != nil {
		return err
	}
	leaf, err := h.IsLeaf()
	if err != nil {
		return err
	}
	size, err := h.Size()
	if err != nil {
		return err
	}
	mod, err := h.LastModified()
	if err != nil {
		return err
	}
	uri, err := h.URI()
	if err != nil {
		return err
	}
	out := statOutput{
		Name:         h.Name(),
		Path:         h.LocalPathName(),
		Kind:         h.Kind().String(),
		IsLeaf:       leaf,
		Size:         size,
		LastModified: mod,
		URI:          uri,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func main() {
	var cli rootCli
	kctx := kong.Parse(&cli,
		kong.Name("vfszip"),
		kong.Description("Inspect nested zip/jar archives as a virtual filesystem."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	logging.Configure(cli.Cli)

	if err := vfszip.SweepTempDir(); err != nil {
		log.Warn().Err(err).Msg("failed to sweep nested-archive temp directory")
	}

	if err := kctx.Run(); err != nil {
		log.Fatal().Err(err).Msg("vfszip failed")
	}
}
