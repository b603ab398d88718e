package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/bartpleiter/FPGC-sub000/brfs"
	"github.com/bartpleiter/FPGC-sub000/brfs/memflash"
	brfserrors "github.com/bartpleiter/FPGC-sub000/errors"
	"github.com/bartpleiter/FPGC-sub000/preset"
)

func main() {
	app := cli.App{
		Usage: "Inspect and manipulate BRFS volume images",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "image",
				Usage: "path to the flash image file",
				Value: "brfs.img",
			},
			&cli.StringFlag{
				Name:  "geometry",
				Usage: "flash geometry preset slug (see the geometries command)",
				Value: "w25q64-default",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "format",
				Usage: "create a new volume image from the --geometry preset",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "label", Value: ""},
					&cli.BoolFlag{Name: "full", Usage: "report format-zero progress per data sector; every data block is zeroed with or without it"},
				},
				Action: formatImage,
			},
			{
				Name:      "ls",
				Usage:     "list a directory",
				ArgsUsage: "PATH",
				Action:    listDir,
			},
			{
				Name:      "cat",
				Usage:     "print a file's contents as decimal words",
				ArgsUsage: "PATH",
				Action:    catFile,
			},
			{
				Name:      "put",
				Usage:     "write words (decimal, one per arg) into a file, creating it if needed",
				ArgsUsage: "PATH WORD...",
				Action:    putFile,
			},
			{
				Name:      "rm",
				Usage:     "delete a file or empty directory",
				ArgsUsage: "PATH",
				Action:    removePath,
			},
			{
				Name:      "mkdir",
				Usage:     "create a directory",
				ArgsUsage: "PATH",
				Action:    makeDir,
			},
			{
				Name:   "statfs",
				Usage:  "print volume-wide statistics",
				Action: statFS,
			},
			{
				Name:   "geometries",
				Usage:  "list predefined flash geometries",
				Action: listGeometries,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("brfsutil: %s", brfserrors.Strerror(err))
	}
}

// openImage loads the image file at path, or allocates a fresh one sized
// to geometry when the file doesn't exist yet.
func openImage(path string, geometry preset.Geometry) (*memflash.Device, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return memflash.New(int(geometry.FlashSizeBytes)), nil
	}
	if err != nil {
		return nil, err
	}
	return memflash.FromBytes(data), nil
}

func saveImage(path string, dev *memflash.Device) error {
	return os.WriteFile(path, dev.Bytes(), 0o644)
}

// mountedFS mounts the image at context's --image flag, using geometrySlug
// only to size a fresh in-memory device when that file doesn't exist yet.
func mountedFS(context *cli.Context, geometrySlug string) (*brfs.FileSystem, *memflash.Device, error) {
	g, err := preset.Get(geometrySlug)
	if err != nil {
		return nil, nil, err
	}
	dev, err := openImage(context.String("image"), g)
	if err != nil {
		return nil, nil, err
	}
	fs := brfs.Init(dev)
	if err := fs.Mount(); err != nil {
		return nil, nil, err
	}
	return fs, dev, nil
}

func formatImage(context *cli.Context) error {
	g, err := preset.Get(context.String("geometry"))
	if err != nil {
		return err
	}

	dev := memflash.New(int(g.FlashSizeBytes))
	fs := brfs.Init(dev)
	fs.SetProgressCallback(progressPrinter)

	if err := fs.Format(g.TotalBlocks, g.WordsPerBlock, context.String("label"), context.Bool("full")); err != nil {
		return err
	}
	if err := fs.Sync(); err != nil {
		return err
	}
	return saveImage(context.String("image"), dev)
}

func progressPrinter(phase string, current, total uint32) {
	fmt.Fprintf(os.Stderr, "\r%s: %d/%d", phase, current, total)
	if current == total {
		fmt.Fprintln(os.Stderr)
	}
}

func listDir(context *cli.Context) error {
	path := context.Args().First()
	if path == "" {
		path = "/"
	}
	fs, _, err := mountedFS(context, context.String("geometry"))
	if err != nil {
		return err
	}
	entries, err := fs.ReadDir(path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		kind := "f"
		if e.IsDirectory() {
			kind = "d"
		}
		fmt.Printf("%s %8d  %s\n", kind, e.Filesize, e.Filename)
	}
	return nil
}

func catFile(context *cli.Context) error {
	path := context.Args().First()
	if path == "" {
		return cli.Exit("usage: brfsutil cat PATH", 1)
	}
	fs, _, err := mountedFS(context, context.String("geometry"))
	if err != nil {
		return err
	}
	fd, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer fs.Close(fd)

	size, err := fs.FileSize(fd)
	if err != nil {
		return err
	}
	buf := make([]uint32, size)
	if _, err := fs.Read(fd, buf); err != nil {
		return err
	}
	words := make([]string, len(buf))
	for i, w := range buf {
		words[i] = strconv.FormatUint(uint64(w), 10)
	}
	fmt.Println(strings.Join(words, " "))
	return nil
}

func putFile(context *cli.Context) error {
	args := context.Args()
	if args.Len() < 1 {
		return cli.Exit("usage: brfsutil put PATH WORD...", 1)
	}
	path := args.First()
	words := make([]uint32, 0, args.Len()-1)
	for _, a := range args.Tail() {
		v, err := strconv.ParseUint(a, 10, 32)
		if err != nil {
			return err
		}
		words = append(words, uint32(v))
	}

	fs, dev, err := mountedFS(context, context.String("geometry"))
	if err != nil {
		return err
	}

	if !fs.Exists(path) {
		if err := fs.CreateFile(path); err != nil {
			return err
		}
	}
	fd, err := fs.Open(path)
	if err != nil {
		return err
	}
	if _, err := fs.Write(fd, words); err != nil {
		fs.Close(fd)
		return err
	}
	if err := fs.Close(fd); err != nil {
		return err
	}
	if err := fs.Sync(); err != nil {
		return err
	}
	return saveImage(context.String("image"), dev)
}

func removePath(context *cli.Context) error {
	path := context.Args().First()
	if path == "" {
		return cli.Exit("usage: brfsutil rm PATH", 1)
	}
	fs, dev, err := mountedFS(context, context.String("geometry"))
	if err != nil {
		return err
	}
	if err := fs.Delete(path); err != nil {
		return err
	}
	if err := fs.Sync(); err != nil {
		return err
	}
	return saveImage(context.String("image"), dev)
}

func makeDir(context *cli.Context) error {
	path := context.Args().First()
	if path == "" {
		return cli.Exit("usage: brfsutil mkdir PATH", 1)
	}
	fs, dev, err := mountedFS(context, context.String("geometry"))
	if err != nil {
		return err
	}
	if err := fs.CreateDir(path); err != nil {
		return err
	}
	if err := fs.Sync(); err != nil {
		return err
	}
	return saveImage(context.String("image"), dev)
}

func statFS(context *cli.Context) error {
	fs, _, err := mountedFS(context, context.String("geometry"))
	if err != nil {
		return err
	}
	total, free, blockSize, err := fs.Statfs()
	if err != nil {
		return err
	}
	label, err := fs.GetLabel()
	if err != nil {
		return err
	}
	fmt.Printf("label: %s\ntotal_blocks: %d\nfree_blocks: %d\nwords_per_block: %d\n", label, total, free, blockSize)
	return nil
}

func listGeometries(context *cli.Context) error {
	for _, slug := range preset.Slugs() {
		g, _ := preset.Get(slug)
		fmt.Printf("%-16s %-28s %8d bytes  %5d blocks x %4d words\n", g.Slug, g.Name, g.FlashSizeBytes, g.TotalBlocks, g.WordsPerBlock)
	}
	return nil
}
