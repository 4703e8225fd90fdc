package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/blockfs/pkg/backup"
	backupFile "github.com/marmos91/blockfs/pkg/backup/file"
	"github.com/marmos91/blockfs/pkg/config"
	"github.com/marmos91/blockfs/pkg/disk"
	"github.com/marmos91/blockfs/pkg/filesystem"
	"github.com/marmos91/blockfs/pkg/metadata"
)

// cli binds one opened volume to the command handlers.
type cli struct {
	fs  *filesystem.FileSystem
	cfg *config.Config
	out io.Writer
}

// command is one subcommand: its argument count bounds and its handler.
type command struct {
	minArgs int
	maxArgs int
	usage   string
	run     func(c *cli, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"format":   {0, 0, "format", (*cli).format},
	"create":   {1, 1, "create <name>", (*cli).create},
	"delete":   {1, 1, "delete <name>", (*cli).delete},
	"exists":   {1, 1, "exists <name>", (*cli).exists},
	"size":     {1, 1, "size <name>", (*cli).size},
	"stat":     {1, 1, "stat <name>", (*cli).stat},
	"write":    {2, 2, "write <name> <data>", (*cli).write},
	"append":   {2, 2, "append <name> <data>", (*cli).append},
	"read":     {1, 3, "read <name> [offset length]", (*cli).read},
	"cat":      {1, 1, "cat <name>", (*cli).cat},
	"truncate": {2, 2, "truncate <name> <size>", (*cli).truncate},
	"rename":   {2, 2, "rename <old> <new>", (*cli).rename},
	"mv":       {2, 2, "mv <old> <new>", (*cli).rename},
	"cp":       {2, 2, "cp <src> <dst>", (*cli).copy},
	"diff":     {2, 2, "diff <a> <b>", (*cli).diff},
	"ls":       {0, 0, "ls", (*cli).list},
	"defrag":   {0, 0, "defrag", (*cli).defrag},
	"check":    {0, 0, "check", (*cli).check},
	"backup":   {0, 1, "backup [dest]", (*cli).backup},
	"restore":  {0, 1, "restore [src]", (*cli).restore},
}

func (c *cli) dispatch(ctx context.Context, name string, args []string) error {
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (run with -h for usage)", name)
	}
	if len(args) < cmd.minArgs || len(args) > cmd.maxArgs || (name == "read" && len(args) == 2) {
		return fmt.Errorf("usage: blockfs %s", cmd.usage)
	}
	return cmd.run(c, ctx, args)
}

func (c *cli) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *cli) format(ctx context.Context, _ []string) error {
	if err := c.fs.Format(ctx); err != nil {
		return err
	}
	usage, err := c.fs.Usage(ctx)
	if err != nil {
		return err
	}
	c.printf("Formatted: %d data blocks of %d bytes (%s)\n",
		usage.TotalBlocks, metadata.BlockSize, humanize.IBytes(uint64(usage.TotalBlocks*metadata.BlockSize)))
	return nil
}

func (c *cli) create(ctx context.Context, args []string) error {
	if err := c.fs.Create(ctx, args[0]); err != nil {
		return err
	}
	c.printf("Created %s\n", args[0])
	return nil
}

func (c *cli) delete(ctx context.Context, args []string) error {
	if err := c.fs.Delete(ctx, args[0]); err != nil {
		return err
	}
	c.printf("Deleted %s\n", args[0])
	return nil
}

func (c *cli) exists(ctx context.Context, args []string) error {
	c.printf("%t\n", c.fs.Exists(ctx, args[0]))
	return nil
}

func (c *cli) size(ctx context.Context, args []string) error {
	c.printf("%d\n", c.fs.Size(ctx, args[0]))
	return nil
}

func (c *cli) stat(ctx context.Context, args []string) error {
	info, err := c.fs.Stat(ctx, args[0])
	if err != nil {
		return err
	}
	c.printf("Name:    %s\n", info.Name)
	c.printf("Size:    %d bytes\n", info.Size)
	c.printf("Blocks:  %d (start %d)\n", info.Blocks, info.StartBlock)
	c.printf("Created: %s\n", info.Created.Format(time.DateTime))
	return nil
}

func (c *cli) write(ctx context.Context, args []string) error {
	if err := c.fs.Write(ctx, args[0], []byte(args[1])); err != nil {
		return err
	}
	c.printf("Wrote %d bytes to %s\n", len(args[1]), args[0])
	return nil
}

func (c *cli) append(ctx context.Context, args []string) error {
	if err := c.fs.Append(ctx, args[0], []byte(args[1])); err != nil {
		return err
	}
	c.printf("Appended %d bytes to %s\n", len(args[1]), args[0])
	return nil
}

func (c *cli) read(ctx context.Context, args []string) error {
	if len(args) == 1 {
		return c.cat(ctx, args)
	}

	offset, err := parseInt("offset", args[1])
	if err != nil {
		return err
	}
	length, err := parseInt("length", args[2])
	if err != nil {
		return err
	}

	data, err := c.fs.Read(ctx, args[0], offset, length)
	if err != nil {
		return err
	}
	c.printf("%s\n", data)
	return nil
}

func (c *cli) cat(ctx context.Context, args []string) error {
	data, err := c.fs.Cat(ctx, args[0])
	if err != nil {
		return err
	}
	c.printf("%s\n", data)
	return nil
}

func (c *cli) truncate(ctx context.Context, args []string) error {
	size, err := parseInt("size", args[1])
	if err != nil {
		return err
	}
	if err := c.fs.Truncate(ctx, args[0], size); err != nil {
		return err
	}
	c.printf("Truncated %s to %d bytes\n", args[0], size)
	return nil
}

func (c *cli) rename(ctx context.Context, args []string) error {
	if err := c.fs.Rename(ctx, args[0], args[1]); err != nil {
		return err
	}
	c.printf("Renamed %s to %s\n", args[0], args[1])
	return nil
}

func (c *cli) copy(ctx context.Context, args []string) error {
	if err := c.fs.Copy(ctx, args[0], args[1]); err != nil {
		return err
	}
	c.printf("Copied %s to %s\n", args[0], args[1])
	return nil
}

func (c *cli) diff(ctx context.Context, args []string) error {
	same, err := c.fs.Diff(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if same {
		c.printf("%s and %s are identical\n", args[0], args[1])
	} else {
		c.printf("%s and %s differ\n", args[0], args[1])
	}
	return nil
}

func (c *cli) list(ctx context.Context, _ []string) error {
	files, err := c.fs.List(ctx)
	if err != nil {
		return err
	}
	usage, err := c.fs.Usage(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tSTART\tBLOCKS\tCREATED")
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", f.Name, f.Size, f.StartBlock, f.Blocks, f.Created.Format(time.DateTime))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	c.printf("%d/%d files, %d/%d blocks free (%s)\n",
		usage.Files, usage.MaxFiles, usage.FreeBlocks, usage.TotalBlocks,
		humanize.IBytes(uint64(usage.FreeBlocks*metadata.BlockSize)))
	return nil
}

func (c *cli) defrag(ctx context.Context, _ []string) error {
	result, err := c.fs.Defragment(ctx)
	if err != nil {
		return err
	}
	for _, m := range result.Moves {
		c.printf("Moved %s: block %d -> %d (%d bytes)\n", m.Name, m.From, m.To, m.Size)
	}
	c.printf("Defragmented: %d files moved, free space starts at block %d\n", len(result.Moves), result.EndBlock)
	return nil
}

func (c *cli) check(ctx context.Context, _ []string) error {
	report, err := c.fs.CheckIntegrity(ctx)
	if err != nil {
		return err
	}
	c.printf("%s\n", report)
	if !report.Clean() {
		return fmt.Errorf("integrity check failed: %d overlapping pairs", len(report.Conflicts))
	}
	return nil
}

func (c *cli) backup(ctx context.Context, args []string) error {
	dst, err := c.destination(ctx, args)
	if err != nil {
		return err
	}

	var n int64
	err = c.fs.ExclusiveRecorded(ctx, "BACKUP to "+dst.String(), func(ctx context.Context, store disk.Store) error {
		n, err = backup.Backup(ctx, store, dst)
		return err
	})
	if err != nil {
		return err
	}
	c.printf("Backed up %s to %s\n", humanize.IBytes(uint64(n)), dst)
	return nil
}

func (c *cli) restore(ctx context.Context, args []string) error {
	src, err := c.destination(ctx, args)
	if err != nil {
		return err
	}

	var n int64
	err = c.fs.ExclusiveRecorded(ctx, "RESTORE from "+src.String(), func(ctx context.Context, store disk.Store) error {
		n, err = backup.Restore(ctx, store, src)
		return err
	})
	if err != nil {
		return err
	}
	c.printf("Restored %s from %s\n", humanize.IBytes(uint64(n)), src)
	return nil
}

// destination returns a file destination for an explicit path argument and
// the configured destination otherwise.
func (c *cli) destination(ctx context.Context, args []string) (backup.Destination, error) {
	if len(args) == 1 {
		return backupFile.NewFileDestination(backupFile.FileDestinationConfig{Path: args[0]})
	}
	return config.CreateBackupDestination(ctx, &c.cfg.Backup)
}

func parseInt(what, s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", what, s, err)
	}
	return n, nil
}
