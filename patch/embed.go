package patch

import (
	"embed"
	"io/fs"
)

//go:embed patches/*.patch
var builtin embed.FS

// Builtin returns the patch files shipped with this package.
func Builtin() fs.FS {
	sub, err := fs.Sub(builtin, "patches")
	if err != nil {
		panic(err)
	}
	return sub
}
