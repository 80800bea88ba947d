package config

import (
	"io/fs"
	"os"
)

// fileSystem is swapped for an fstest.MapFS in tests.
var fileSystem fs.FS = osFS{}

type osFS struct{}

// osFS implements fs.FS over the host filesystem.
func (o osFS) Open(name string) (fs.File, error) {
	return os.Open(name)
}
