// slotkv 在命令行中读写 SlotKV 存储文件
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"SlotKV/config"
	"SlotKV/database"
	"SlotKV/storage"
)

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: slotkv [flags] <command> [args]\n\n")
	fmt.Fprintf(out, "commands:\n")
	fmt.Fprintf(out, "  set <key> <kind> <value>   kind: %s\n", kindList())
	fmt.Fprintf(out, "  get <key> [kind]           without kind the stored type is used\n")
	fmt.Fprintf(out, "  has <key>\n  rm <key>\n  clear\n  stat\n\nflags:\n")
	flag.PrintDefaults()
}

func newLogger(level *slog.LevelVar, noColor bool) *slog.Logger {
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor || !isatty.IsTerminal(os.Stderr.Fd()),
	}))
}

func run(stdout io.Writer) error {
	confPath := flag.String("conf", "", "path to conf file (optional)") // 配置文件路径
	dataDir := flag.String("dir", "", "data directory, overrides base.data_dir")
	name := flag.String("name", "", "store name, overrides base.name")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		return errors.New("missing command")
	}

	cfg := config.Default()
	if *confPath != "" {
		if _, err := os.Stat(*confPath); os.IsNotExist(err) {
			return fmt.Errorf("conf file %s does not exist", *confPath)
		}
		if err := config.Init(*confPath); err != nil {
			return err
		}
		cfg = config.Get()
	}

	ll := &slog.LevelVar{}
	ll.Set(cfg.SlogLevel())
	if *verbose {
		ll.Set(slog.LevelDebug)
	}
	// 日志级别跟随配置热更新
	config.OnChange(func(c *config.Config) {
		if !*verbose {
			ll.Set(c.SlogLevel())
		}
	})
	logger := newLogger(ll, cfg.Log.NoColor)
	slog.SetDefault(logger)

	opts := cfg.Options()
	if *dataDir != "" {
		opts = append(opts, storage.WithDir(*dataDir))
	}
	if *name != "" {
		opts = append(opts, storage.WithName(*name))
	}
	opts = append(opts, storage.WithLogger(logger))

	s, err := database.Open(database.WithStorage(opts...))
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn("close failed", "err", err)
		}
	}()

	return execute(s, flag.Args(), stdout)
}

func main() {
	if err := run(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "slotkv: %v\n", err)
		os.Exit(1)
	}
}
